package search

import (
	"context"
	"database/sql"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"tivoli/internal/apperrors"
	"tivoli/internal/catalogstore"
	"tivoli/internal/filterdsl"
	"tivoli/internal/logging"
)

// Service implements the Search Service of §4.3.
type Service struct {
	store    *catalogstore.Store
	compiler *filterdsl.Compiler
	collator *collate.Collator
}

// NewService builds a Search Service over store, sharing one compiler
// instance across requests (the compiler itself is stateless).
func NewService(store *catalogstore.Store, compiler *filterdsl.Compiler) *Service {
	return &Service{
		store:    store,
		compiler: compiler,
		collator: collate.New(language.English),
	}
}

// SearchImages compiles filters (with ordering) and returns matching rows.
func (s *Service) SearchImages(ctx context.Context, filters []filterdsl.Clause) ([]ImageRow, error) {
	query, params, err := s.compiler.Compile(filters, true)
	if err != nil {
		return nil, err
	}

	var rows []ImageRow
	err = s.store.WithRead(ctx, func(db *sql.DB) error {
		rs, err := db.QueryContext(ctx, query, params...)
		if err != nil {
			return err
		}
		defer rs.Close()

		for rs.Next() {
			var r ImageRow
			if err := rs.Scan(&r.UUID, &r.RelativePath, &r.Collection, &r.Gallery, &r.Width, &r.Height, &r.FileSize); err != nil {
				return err
			}
			rows = append(rows, r)
		}
		return rs.Err()
	})
	if err != nil {
		logging.SearchLogger.WithError(err).Error("search_images query failed")
		return nil, err
	}
	return rows, nil
}

// SearchOptions compiles filters once (the ordering-less variant) and runs
// the five aggregations of §4.3 over it as a shared subquery.
func (s *Service) SearchOptions(ctx context.Context, filters []filterdsl.Clause) (*FilterOptions, error) {
	fragment, params, err := s.compiler.Compile(filters, false)
	if err != nil {
		return nil, err
	}

	opts := &FilterOptions{}

	err = s.store.WithRead(ctx, func(db *sql.DB) error {
		if err := countImages(ctx, db, fragment, params, &opts.ImageCount); err != nil {
			return err
		}
		if err := distinctCollections(ctx, db, fragment, params, s.collator, &opts.Collections); err != nil {
			return err
		}
		if err := distinctGalleries(ctx, db, fragment, params, &opts.Galleries); err != nil {
			return err
		}
		if err := distinctModels(ctx, db, fragment, params, &opts.Models); err != nil {
			return err
		}
		return distinctTags(ctx, db, fragment, params, &opts.Tags)
	})
	if err != nil {
		logging.SearchLogger.WithError(err).Error("search_options aggregation failed")
		return nil, err
	}
	return opts, nil
}

func countImages(ctx context.Context, db *sql.DB, fragment string, params []interface{}, out *int) error {
	query := "SELECT COUNT(*) FROM (" + fragment + ") f"
	return db.QueryRowContext(ctx, query, params...).Scan(out)
}

func distinctCollections(ctx context.Context, db *sql.DB, fragment string, params []interface{}, collator *collate.Collator, out *[]string) error {
	query := "SELECT DISTINCT f.collection FROM (" + fragment + ") f"
	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return err
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	sort.Slice(names, func(i, j int) bool { return collator.CompareString(names[i], names[j]) < 0 })
	*out = names
	return nil
}

func distinctGalleries(ctx context.Context, db *sql.DB, fragment string, params []interface{}, out *[]GallerySummary) error {
	query := "SELECT DISTINCT f.collection, f.gallery FROM (" + fragment + ") f ORDER BY f.collection, f.gallery"
	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return err
	}
	defer rows.Close()

	var galleries []GallerySummary
	for rows.Next() {
		var g GallerySummary
		if err := rows.Scan(&g.Collection, &g.Name); err != nil {
			return err
		}
		galleries = append(galleries, g)
	}
	*out = galleries
	return rows.Err()
}

func distinctModels(ctx context.Context, db *sql.DB, fragment string, params []interface{}, out *[]Model) error {
	query := `
		SELECT DISTINCT m.uuid, m.name, m.collection
		FROM image_models im
		JOIN models m ON m.uuid = im.model_uuid
		WHERE im.image_uuid IN (SELECT f.uuid FROM (` + fragment + `) f)
		ORDER BY m.collection, m.name`
	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return err
	}
	defer rows.Close()

	var models []Model
	for rows.Next() {
		var m Model
		if err := rows.Scan(&m.UUID, &m.Name, &m.Collection); err != nil {
			return err
		}
		models = append(models, m)
	}
	*out = models
	return rows.Err()
}

func distinctTags(ctx context.Context, db *sql.DB, fragment string, params []interface{}, out *[]TagGroupRef) error {
	query := `
		SELECT DISTINCT t.uuid, t.name, tg.name
		FROM image_tags it
		JOIN tags t ON t.uuid = it.tag_uuid
		JOIN tag_groups tg ON tg.uuid = t.tag_group_uuid
		WHERE it.image_uuid IN (SELECT f.uuid FROM (` + fragment + `) f)
		ORDER BY tg.name, t.name`
	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return err
	}
	defer rows.Close()

	var tags []TagGroupRef
	for rows.Next() {
		var t TagGroupRef
		if err := rows.Scan(&t.UUID, &t.Name, &t.Group); err != nil {
			return err
		}
		tags = append(tags, t)
	}
	*out = tags
	return rows.Err()
}

// GetImageDetail returns the full record for uuid, including linked models
// and tags, or NotFound if it does not exist.
func (s *Service) GetImageDetail(ctx context.Context, uuid string) (*ImageDetail, error) {
	var detail ImageDetail

	err := s.store.WithRead(ctx, func(db *sql.DB) error {
		row := db.QueryRowContext(ctx, `
			SELECT uuid, path, collection, gallery, width, height, file_size
			FROM images WHERE uuid = ?`, uuid)
		if err := row.Scan(&detail.UUID, &detail.RelativePath, &detail.Collection, &detail.Gallery, &detail.Width, &detail.Height, &detail.FileSize); err != nil {
			if err == sql.ErrNoRows {
				return apperrors.NotFoundf("image %s not found", uuid)
			}
			return err
		}

		models, err := queryImageModels(ctx, db, uuid)
		if err != nil {
			return err
		}
		detail.Models = models

		tags, err := queryImageTags(ctx, db, uuid)
		if err != nil {
			return err
		}
		detail.Tags = tags
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &detail, nil
}

func queryImageModels(ctx context.Context, db *sql.DB, imageUUID string) ([]ModelRef, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT m.uuid, m.name FROM image_models im
		JOIN models m ON m.uuid = im.model_uuid
		WHERE im.image_uuid = ? ORDER BY m.name`, imageUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []ModelRef
	for rows.Next() {
		var m ModelRef
		if err := rows.Scan(&m.UUID, &m.Name); err != nil {
			return nil, err
		}
		models = append(models, m)
	}
	return models, rows.Err()
}

func queryImageTags(ctx context.Context, db *sql.DB, imageUUID string) ([]TagRef, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT t.uuid, t.name, tg.name FROM image_tags it
		JOIN tags t ON t.uuid = it.tag_uuid
		JOIN tag_groups tg ON tg.uuid = t.tag_group_uuid
		WHERE it.image_uuid = ? ORDER BY tg.name, t.name`, imageUUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tags []TagRef
	for rows.Next() {
		var t TagRef
		if err := rows.Scan(&t.UUID, &t.Name, &t.Group); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

// ListCollections returns every collection with its image/gallery counts,
// sorted by name.
func (s *Service) ListCollections(ctx context.Context) ([]CollectionSummary, error) {
	var out []CollectionSummary
	err := s.store.WithRead(ctx, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `
			SELECT collection, COUNT(*), COUNT(DISTINCT gallery)
			FROM images GROUP BY collection ORDER BY collection`)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c CollectionSummary
			if err := rows.Scan(&c.Name, &c.ImageCount, &c.GalleryCount); err != nil {
				return err
			}
			out = append(out, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListGalleries returns galleries, optionally restricted to one collection,
// sorted by (collection, name).
func (s *Service) ListGalleries(ctx context.Context, collection string) ([]GallerySummary, error) {
	var out []GallerySummary
	err := s.store.WithRead(ctx, func(db *sql.DB) error {
		query := `SELECT collection, gallery, COUNT(*) FROM images`
		var args []interface{}
		if collection != "" {
			query += " WHERE collection = ?"
			args = append(args, collection)
		}
		query += " GROUP BY collection, gallery ORDER BY collection, gallery"

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var g GallerySummary
			if err := rows.Scan(&g.Collection, &g.Name, &g.ImageCount); err != nil {
				return err
			}
			out = append(out, g)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListModels returns models, optionally restricted to one collection,
// sorted by (collection, name).
func (s *Service) ListModels(ctx context.Context, collection string) ([]Model, error) {
	var out []Model
	err := s.store.WithRead(ctx, func(db *sql.DB) error {
		query := `SELECT uuid, name, collection FROM models`
		var args []interface{}
		if collection != "" {
			query += " WHERE collection = ?"
			args = append(args, collection)
		}
		query += " ORDER BY collection, name"

		rows, err := db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var m Model
			if err := rows.Scan(&m.UUID, &m.Name, &m.Collection); err != nil {
				return err
			}
			out = append(out, m)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListTags returns every tag group, tags nested, groups and tags sorted by
// name. A group with no tags appears with an empty member list.
func (s *Service) ListTags(ctx context.Context) ([]TagGroup, error) {
	var out []TagGroup
	err := s.store.WithRead(ctx, func(db *sql.DB) error {
		groupRows, err := db.QueryContext(ctx, `SELECT uuid, name FROM tag_groups ORDER BY name`)
		if err != nil {
			return err
		}
		defer groupRows.Close()

		groups := make(map[string]*TagGroup)
		var order []string
		for groupRows.Next() {
			var g TagGroup
			if err := groupRows.Scan(&g.UUID, &g.Name); err != nil {
				return err
			}
			g.Tags = []Tag{}
			groups[g.UUID] = &g
			order = append(order, g.UUID)
		}
		if err := groupRows.Err(); err != nil {
			return err
		}

		tagRows, err := db.QueryContext(ctx, `SELECT uuid, name, tag_group_uuid FROM tags ORDER BY name`)
		if err != nil {
			return err
		}
		defer tagRows.Close()

		for tagRows.Next() {
			var uuid, name, groupUUID string
			if err := tagRows.Scan(&uuid, &name, &groupUUID); err != nil {
				return err
			}
			if g, ok := groups[groupUUID]; ok {
				g.Tags = append(g.Tags, Tag{UUID: uuid, Name: name})
			}
		}
		if err := tagRows.Err(); err != nil {
			return err
		}

		for _, id := range order {
			out = append(out, *groups[id])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
