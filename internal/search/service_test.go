package search

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"tivoli/internal/catalogstore"
	"tivoli/internal/filterdsl"
	"tivoli/internal/logging"
)

func TestMain(m *testing.M) {
	logging.SearchLogger = logging.NewNoOpEnhancedLogger("search")
	os.Exit(m.Run())
}

// seedFixture builds a small reference dataset mirroring the shape of the
// scenarios: two collections, a gallery each, two models, two tag groups,
// and an image with every model/tag combination needed to exercise
// any_of/all_of/exact/none_of.
func seedFixture(t *testing.T) *catalogstore.Store {
	t.Helper()
	store, err := catalogstore.NewEmpty()
	require.NoError(t, err)

	err = store.WithWrite(context.Background(), func(db *sql.DB) error {
		exec := func(query string, args ...interface{}) error {
			_, err := db.Exec(query, args...)
			return err
		}

		images := []struct{ uuid, path, collection, gallery string }{
			{"img-emma-solo", "a.jpg", "lumiere-studio", "opening-night"},
			{"img-sofia-solo", "b.jpg", "lumiere-studio", "opening-night"},
			{"img-duo", "c.jpg", "lumiere-studio", "opening-night"},
			{"img-noir", "d.jpg", "noir-atelier", "back-alley"},
		}
		for _, img := range images {
			if err := exec(`INSERT INTO images (uuid, path, collection, gallery, width, height, file_size) VALUES (?, ?, ?, ?, 800, 600, 1024)`,
				img.uuid, img.path, img.collection, img.gallery); err != nil {
				return err
			}
		}

		models := []struct{ uuid, name, collection string }{
			{"model-emma", "emma", "lumiere-studio"},
			{"model-sofia", "sofia", "lumiere-studio"},
		}
		for _, m := range models {
			if err := exec(`INSERT INTO models (uuid, name, collection) VALUES (?, ?, ?)`, m.uuid, m.name, m.collection); err != nil {
				return err
			}
		}

		links := []struct{ image, model string }{
			{"img-emma-solo", "model-emma"},
			{"img-sofia-solo", "model-sofia"},
			{"img-duo", "model-emma"},
			{"img-duo", "model-sofia"},
		}
		for _, l := range links {
			if err := exec(`INSERT INTO image_models (image_uuid, model_uuid) VALUES (?, ?)`, l.image, l.model); err != nil {
				return err
			}
		}

		groups := []struct{ uuid, name string }{
			{"group-lighting", "lighting"},
			{"group-setting", "setting"},
		}
		for _, g := range groups {
			if err := exec(`INSERT INTO tag_groups (uuid, name) VALUES (?, ?)`, g.uuid, g.name); err != nil {
				return err
			}
		}

		tags := []struct{ uuid, name, group string }{
			{"tag-moody", "moody", "group-lighting"},
			{"tag-bright", "bright", "group-lighting"},
			{"tag-outdoor", "outdoor", "group-setting"},
		}
		for _, tg := range tags {
			if err := exec(`INSERT INTO tags (uuid, name, tag_group_uuid) VALUES (?, ?, ?)`, tg.uuid, tg.name, tg.group); err != nil {
				return err
			}
		}

		// img-duo carries both lighting tags (moody, bright); img-emma-solo
		// carries only moody plus the unrelated setting tag outdoor.
		tagLinks := []struct{ image, tag string }{
			{"img-duo", "tag-moody"},
			{"img-duo", "tag-bright"},
			{"img-emma-solo", "tag-moody"},
			{"img-emma-solo", "tag-outdoor"},
		}
		for _, l := range tagLinks {
			if err := exec(`INSERT INTO image_tags (image_uuid, tag_uuid) VALUES (?, ?)`, l.image, l.tag); err != nil {
				return err
			}
		}

		return nil
	})
	require.NoError(t, err)

	return store
}

func TestSearchImages_EmptyFilterReturnsAll(t *testing.T) {
	store := seedFixture(t)
	svc := NewService(store, filterdsl.New())

	rows, err := svc.SearchImages(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, rows, 4)
}

func TestSearchImages_CollectionEq(t *testing.T) {
	store := seedFixture(t)
	svc := NewService(store, filterdsl.New())

	rows, err := svc.SearchImages(context.Background(), []filterdsl.Clause{
		{Field: filterdsl.FieldCollection, Op: filterdsl.OpEq, Value: filterdsl.SingleValue("noir-atelier")},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "img-noir", rows[0].UUID)
}

func TestSearchImages_ModelsAnyOf(t *testing.T) {
	store := seedFixture(t)
	svc := NewService(store, filterdsl.New())

	rows, err := svc.SearchImages(context.Background(), []filterdsl.Clause{
		{Field: filterdsl.FieldModels, Op: filterdsl.OpAnyOf, Value: filterdsl.MultipleValue([]string{"model-emma", "model-sofia"})},
	})
	require.NoError(t, err)
	require.Len(t, rows, 3)
}

func TestSearchImages_ModelsAllOf(t *testing.T) {
	store := seedFixture(t)
	svc := NewService(store, filterdsl.New())

	rows, err := svc.SearchImages(context.Background(), []filterdsl.Clause{
		{Field: filterdsl.FieldModels, Op: filterdsl.OpAllOf, Value: filterdsl.MultipleValue([]string{"model-emma", "model-sofia"})},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "img-duo", rows[0].UUID)
}

func TestSearchImages_ModelsExactExcludesDuo(t *testing.T) {
	store := seedFixture(t)
	svc := NewService(store, filterdsl.New())

	rows, err := svc.SearchImages(context.Background(), []filterdsl.Clause{
		{Field: filterdsl.FieldModels, Op: filterdsl.OpExact, Value: filterdsl.MultipleValue([]string{"model-emma"})},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "img-emma-solo", rows[0].UUID)
}

func TestSearchImages_ModelsNoneOf(t *testing.T) {
	store := seedFixture(t)
	svc := NewService(store, filterdsl.New())

	rows, err := svc.SearchImages(context.Background(), []filterdsl.Clause{
		{Field: filterdsl.FieldCollection, Op: filterdsl.OpEq, Value: filterdsl.SingleValue("lumiere-studio")},
		{Field: filterdsl.FieldModels, Op: filterdsl.OpNoneOf, Value: filterdsl.MultipleValue([]string{"model-emma"})},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "img-sofia-solo", rows[0].UUID)
}

// TestSearchImages_TagsExactIsGroupScoped exercises the normative §4.2
// revision: img-emma-solo carries "moody" (lighting) and "outdoor"
// (setting). Filtering tags exact=[moody] must still match it, because the
// extra "outdoor" tag belongs to a group the filter never touched.
func TestSearchImages_TagsExactIsGroupScoped(t *testing.T) {
	store := seedFixture(t)
	svc := NewService(store, filterdsl.New())

	rows, err := svc.SearchImages(context.Background(), []filterdsl.Clause{
		{Field: filterdsl.FieldTags, Op: filterdsl.OpExact, Value: filterdsl.MultipleValue([]string{"tag-moody"})},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "img-emma-solo", rows[0].UUID)
}

// TestSearchImages_TagsExactRejectsExtraTagInTouchedGroup asserts the other
// half of the group-scoped semantics: img-duo carries both lighting tags,
// so exact=[moody] (touching only the lighting group) must exclude it.
func TestSearchImages_TagsExactRejectsExtraTagInTouchedGroup(t *testing.T) {
	store := seedFixture(t)
	svc := NewService(store, filterdsl.New())

	rows, err := svc.SearchImages(context.Background(), []filterdsl.Clause{
		{Field: filterdsl.FieldTags, Op: filterdsl.OpExact, Value: filterdsl.MultipleValue([]string{"tag-moody"})},
	})
	require.NoError(t, err)
	for _, r := range rows {
		require.NotEqual(t, "img-duo", r.UUID)
	}
}

func TestSearchOptions_SharesCompiledFilterAcrossAggregations(t *testing.T) {
	store := seedFixture(t)
	svc := NewService(store, filterdsl.New())

	opts, err := svc.SearchOptions(context.Background(), []filterdsl.Clause{
		{Field: filterdsl.FieldCollection, Op: filterdsl.OpEq, Value: filterdsl.SingleValue("lumiere-studio")},
	})
	require.NoError(t, err)
	require.Equal(t, 3, opts.ImageCount)
	require.Equal(t, []string{"lumiere-studio"}, opts.Collections)
	require.Len(t, opts.Models, 2)
}

func TestSearchOptions_ImageCountMatchesSearchImagesLength(t *testing.T) {
	store := seedFixture(t)
	svc := NewService(store, filterdsl.New())

	filters := []filterdsl.Clause{
		{Field: filterdsl.FieldModels, Op: filterdsl.OpAnyOf, Value: filterdsl.MultipleValue([]string{"model-emma"})},
	}

	rows, err := svc.SearchImages(context.Background(), filters)
	require.NoError(t, err)

	opts, err := svc.SearchOptions(context.Background(), filters)
	require.NoError(t, err)

	require.Equal(t, len(rows), opts.ImageCount)
}

func TestGetImageDetail_UntaggedImage(t *testing.T) {
	store := seedFixture(t)
	svc := NewService(store, filterdsl.New())

	detail, err := svc.GetImageDetail(context.Background(), "img-sofia-solo")
	require.NoError(t, err)
	require.Empty(t, detail.Tags)
	require.Equal(t, "lumiere-studio", detail.Collection)
}

func TestListCollections(t *testing.T) {
	store := seedFixture(t)
	svc := NewService(store, filterdsl.New())

	collections, err := svc.ListCollections(context.Background())
	require.NoError(t, err)
	require.Len(t, collections, 2)
}

func TestListTagsPreservesEmptyGroups(t *testing.T) {
	store := seedFixture(t)
	err := store.WithWrite(context.Background(), func(db *sql.DB) error {
		_, err := db.Exec(`INSERT INTO tag_groups (uuid, name) VALUES ('group-mood', 'mood')`)
		return err
	})
	require.NoError(t, err)

	svc := NewService(store, filterdsl.New())
	groups, err := svc.ListTags(context.Background())
	require.NoError(t, err)

	require.Len(t, groups, 3)
	for _, g := range groups {
		if g.Name == "mood" {
			require.Empty(t, g.Tags)
		}
	}
}
