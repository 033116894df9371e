package api

import (
	"bytes"
	"embed"
	"net/http"

	"github.com/yuin/goldmark"

	"tivoli/internal/logging"
)

//go:embed docs.md
var docsMarkdown embed.FS

// docsHandler renders the embedded markdown explainer to HTML once at
// construction, then serves the cached bytes for every request.
func docsHandler() (http.HandlerFunc, error) {
	source, err := docsMarkdown.ReadFile("docs.md")
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := goldmark.New().Convert(source, &buf); err != nil {
		return nil, err
	}

	page := []byte("<!DOCTYPE html><html><head><meta charset=\"utf-8\"><title>Tivoli API</title></head><body>" +
		buf.String() + "</body></html>")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write(page); err != nil {
			logging.ServerLogger.WithContext(r.Context()).WithError(err).Error("failed to write docs page")
		}
	}, nil
}
