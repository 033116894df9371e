package api

import (
	"embed"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"tivoli/internal/logging"
)

//go:embed openapi.yaml
var openapiYAML embed.FS

// loadOpenAPIDoc reads the embedded spec, converts it to JSON (kin-openapi's
// loader wants JSON-shaped data), and validates it — a broken spec fails
// server startup instead of silently serving garbage.
func loadOpenAPIDoc() (*openapi3.T, error) {
	raw, err := openapiYAML.ReadFile("openapi.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded openapi.yaml: %w", err)
	}

	var specData interface{}
	if err := yaml.Unmarshal(raw, &specData); err != nil {
		return nil, fmt.Errorf("parse openapi.yaml: %w", err)
	}

	jsonData, err := json.Marshal(specData)
	if err != nil {
		return nil, fmt.Errorf("convert openapi spec to json: %w", err)
	}

	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(jsonData)
	if err != nil {
		return nil, fmt.Errorf("load openapi document: %w", err)
	}

	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("openapi document failed validation: %w", err)
	}

	logging.ServerLogger.Info("openapi document loaded", "paths", doc.Paths.Len())
	return doc, nil
}

// openapiHandler serves the validated document as JSON.
func openapiHandler(doc *openapi3.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(doc); err != nil {
			logging.ServerLogger.WithContext(r.Context()).WithError(err).Error("failed to encode openapi document")
		}
	}
}
