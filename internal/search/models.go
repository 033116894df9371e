// Package search implements the Search Service (§4.3): search_images,
// search_options, and the collection/gallery/model/tag listing operations,
// all executed against a catalogstore.Store through a shared filterdsl
// compiler.
package search

// ImageRow is the bare row shape returned by search_images — no enrichment
// with models/tags.
type ImageRow struct {
	UUID         string `json:"uuid"`
	RelativePath string `json:"relative_path"`
	Collection   string `json:"collection"`
	Gallery      string `json:"gallery"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FileSize     int64  `json:"file_size"`
}

// TagRef is a tag reference nested under ImageDetail.
type TagRef struct {
	UUID  string `json:"uuid"`
	Name  string `json:"name"`
	Group string `json:"group"`
}

// ModelRef is a model reference nested under ImageDetail.
type ModelRef struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// ImageDetail is the full record returned by get_image_detail, including
// linked models and tags.
type ImageDetail struct {
	ImageRow
	Models []ModelRef `json:"models"`
	Tags   []TagRef   `json:"tags"`
}

// CollectionSummary is one entry of list_collections.
type CollectionSummary struct {
	Name         string `json:"name"`
	ImageCount   int    `json:"image_count"`
	GalleryCount int    `json:"gallery_count"`
}

// GallerySummary is one entry of list_galleries.
type GallerySummary struct {
	Collection string `json:"collection"`
	Name       string `json:"name"`
	ImageCount int    `json:"image_count"`
}

// Model is one entry of list_models.
type Model struct {
	UUID       string `json:"uuid"`
	Name       string `json:"name"`
	Collection string `json:"collection"`
}

// Tag is one tag nested under TagGroup.
type Tag struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// TagGroup is one entry of list_tags, its tags nested.
type TagGroup struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
	Tags []Tag  `json:"tags"`
}

// FilterOptions is the response of search_options: the five aggregations
// computed over one shared compiled filter.
type FilterOptions struct {
	ImageCount  int              `json:"image_count"`
	Collections []string         `json:"collections"`
	Galleries   []GallerySummary `json:"galleries"`
	Models      []Model          `json:"models"`
	Tags        []TagGroupRef    `json:"tags"`
}

// TagGroupRef is a distinct tag seen in the filtered result, carrying its
// group name rather than a nested list (the §4.3 aggregation shape differs
// from list_tags' nested TagGroup shape).
type TagGroupRef struct {
	UUID  string `json:"uuid"`
	Name  string `json:"name"`
	Group string `json:"group"`
}
