package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"tivoli/internal/catalogstore"
	"tivoli/internal/config"
	"tivoli/internal/filterdsl"
	"tivoli/internal/imagebytes"
	"tivoli/internal/logging"
	"tivoli/internal/search"
	"tivoli/internal/tagmutation"
	"tivoli/internal/workerpool"
)

func TestMain(m *testing.M) {
	logging.ServerLogger = logging.NewNoOpEnhancedLogger("server")
	logging.SearchLogger = logging.NewNoOpEnhancedLogger("search")
	logging.TagLogger = logging.NewNoOpEnhancedLogger("tagmutation")
	logging.ImageBytesLogger = logging.NewNoOpEnhancedLogger("imagebytes")
	os.Exit(m.Run())
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	store, err := catalogstore.NewEmpty()
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	err = store.WithWrite(context.Background(), func(db *sql.DB) error {
		_, err := db.Exec(`INSERT INTO images (uuid, path, collection, gallery, width, height, file_size) VALUES ('img-1', 'a.jpg', 'lumiere-studio', 'opening-night', 800, 600, 1024)`)
		if err != nil {
			return err
		}
		_, err = db.Exec(`INSERT INTO tag_groups (uuid, name) VALUES ('group-1', 'lighting')`)
		if err != nil {
			return err
		}
		_, err = db.Exec(`INSERT INTO tags (uuid, name, tag_group_uuid) VALUES ('tag-1', 'moody', 'group-1')`)
		return err
	})
	require.NoError(t, err)

	pool := workerpool.New(1)
	t.Cleanup(pool.Close)

	galleriesRoot := t.TempDir()
	bytesSvc, err := imagebytes.NewService(store, pool, galleriesRoot, 50, 1920)
	require.NoError(t, err)

	searchSvc := search.NewService(store, filterdsl.New())
	tagSvc := tagmutation.NewService(store, pool)

	cfg := config.DefaultConfig()
	cfg.Server.Host = "localhost"

	router, err := NewRouter(cfg, searchSvc, tagSvc, bytesSvc)
	require.NoError(t, err)

	srv := httptest.NewServer(router.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func TestSearchImages_ReturnsSeededRow(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/images/search", "application/json", bytes.NewBufferString(`{"filters":[]}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []search.ImageRow
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rows))
	require.Len(t, rows, 1)
	require.Equal(t, "img-1", rows[0].UUID)
}

func TestSearchImages_MalformedBodyIsBadRequest(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/images/search", "application/json", bytes.NewBufferString(`not json`))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSearchImages_InvalidFilterIsBadRequest(t *testing.T) {
	srv := newTestServer(t)

	body := `{"filters":[{"field":"collection","op":"any_of","value":["x"]}]}`
	resp, err := http.Post(srv.URL+"/images/search", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetImageDetail_Found(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/images/img-1")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var detail search.ImageDetail
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&detail))
	require.Equal(t, "img-1", detail.UUID)
}

func TestGetImageDetail_NotFound(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/images/bogus")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetImageFile_NotFoundWhenFileMissing(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/images/img-1/file")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestReplaceTags_Success(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/images/img-1/tags", bytes.NewBufferString(`{"tag_uuids":["tag-1"]}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestReplaceTags_UnknownTagIsBadRequest(t *testing.T) {
	srv := newTestServer(t)

	req, err := http.NewRequest(http.MethodPut, srv.URL+"/images/img-1/tags", bytes.NewBufferString(`{"tag_uuids":["bogus"]}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListCollections(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/collections")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var collections []search.CollectionSummary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&collections))
	require.Len(t, collections, 1)
	require.Equal(t, "lumiere-studio", collections[0].Name)
}

func TestListTags(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/tags")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var groups []search.TagGroup
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&groups))
	require.Len(t, groups, 1)
	require.Equal(t, "lighting", groups[0].Name)
}

func TestOpenAPIDocument_Served(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/openapi.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "application/json", resp.Header.Get("Content-Type"))
}

func TestDocsPage_Served(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/docs")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestUnknownRoute_Returns404JSON(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/bogus")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Equal(t, "endpoint not found", body["error"])
}

func TestHeartbeat(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
}
