package catalogstore

// Schema is the relational schema shared by the on-disk snapshot and the
// in-memory working copy (§6).
const Schema = `
CREATE TABLE IF NOT EXISTS images (
	uuid TEXT PRIMARY KEY,
	path TEXT NOT NULL,
	collection TEXT NOT NULL,
	gallery TEXT NOT NULL,
	width INTEGER NOT NULL,
	height INTEGER NOT NULL,
	file_size INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS models (
	uuid TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	collection TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tag_groups (
	uuid TEXT PRIMARY KEY,
	name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tags (
	uuid TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	tag_group_uuid TEXT NOT NULL REFERENCES tag_groups(uuid)
);

CREATE TABLE IF NOT EXISTS image_models (
	image_uuid TEXT NOT NULL REFERENCES images(uuid),
	model_uuid TEXT NOT NULL REFERENCES models(uuid),
	PRIMARY KEY (image_uuid, model_uuid)
);

CREATE TABLE IF NOT EXISTS image_tags (
	image_uuid TEXT NOT NULL REFERENCES images(uuid),
	tag_uuid TEXT NOT NULL REFERENCES tags(uuid),
	PRIMARY KEY (image_uuid, tag_uuid)
);

CREATE INDEX IF NOT EXISTS idx_images_collection_gallery ON images(collection, gallery);
CREATE INDEX IF NOT EXISTS idx_image_models_model ON image_models(model_uuid);
CREATE INDEX IF NOT EXISTS idx_image_tags_tag ON image_tags(tag_uuid);
`
