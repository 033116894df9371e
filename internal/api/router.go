// Package api wires the HTTP Adapter: the chi router, its middleware
// stack, and every handler defined by the external interface.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"tivoli/internal/api/handlers"
	"tivoli/internal/api/middleware"
	"tivoli/internal/config"
	"tivoli/internal/imagebytes"
	"tivoli/internal/logging"
	"tivoli/internal/search"
	"tivoli/internal/tagmutation"
)

// Router is the top-level HTTP Adapter.
type Router struct {
	config *config.Config
	mux    *chi.Mux
}

// NewRouter builds the router, its middleware chain, and every route, over
// the given services. Returns an error only if the embedded OpenAPI
// document fails to load or validate, or the embedded docs page fails to
// render.
func NewRouter(cfg *config.Config, searchSvc *search.Service, tagSvc *tagmutation.Service, bytesSvc *imagebytes.Service) (*Router, error) {
	r := &Router{config: cfg, mux: chi.NewRouter()}

	r.setupMiddleware()
	if err := r.setupRoutes(searchSvc, tagSvc, bytesSvc); err != nil {
		return nil, err
	}

	return r, nil
}

// Handler returns the HTTP handler for this router.
func (r *Router) Handler() http.Handler {
	return r.mux
}

func (r *Router) setupMiddleware() {
	r.mux.Use(chimiddleware.Recoverer)
	r.mux.Use(chimiddleware.Timeout(30 * time.Second))
	r.mux.Use(middleware.NewLoggingMiddleware().Handler())
	r.mux.Use(r.createCORSMiddleware().Handler())
	r.mux.Use(chimiddleware.RequestSize(10 * 1024 * 1024))
	r.mux.Use(chimiddleware.Heartbeat("/ping"))
}

func (r *Router) createCORSMiddleware() *middleware.CORSMiddleware {
	if r.isDevEnvironment() {
		return middleware.NewDefaultCORSMiddleware()
	}
	return middleware.NewProductionCORSMiddleware([]string{"*"})
}

func (r *Router) isDevEnvironment() bool {
	return r.config.Server.Host == "localhost" || r.config.Server.Host == "127.0.0.1"
}

func (r *Router) setupRoutes(searchSvc *search.Service, tagSvc *tagmutation.Service, bytesSvc *imagebytes.Service) error {
	searchHandler := handlers.NewSearchHandler(searchSvc)
	imageHandler := handlers.NewImageHandler(searchSvc, tagSvc, bytesSvc)
	catalogHandler := handlers.NewCatalogHandler(searchSvc)

	r.mux.Post("/images/search", searchHandler.SearchImages)
	r.mux.Post("/images/search/options", searchHandler.SearchOptions)
	r.mux.Get("/images/{uuid}", imageHandler.GetDetail)
	r.mux.Get("/images/{uuid}/file", imageHandler.GetFile)
	r.mux.Put("/images/{uuid}/tags", imageHandler.ReplaceTags)

	r.mux.Get("/collections", catalogHandler.ListCollections)
	r.mux.Get("/galleries", catalogHandler.ListGalleries)
	r.mux.Get("/models", catalogHandler.ListModels)
	r.mux.Get("/tags", catalogHandler.ListTags)

	doc, err := loadOpenAPIDoc()
	if err != nil {
		return err
	}
	r.mux.Get("/openapi.json", openapiHandler(doc))

	docs, err := docsHandler()
	if err != nil {
		return err
	}
	r.mux.Get("/docs", docs)

	r.mux.NotFound(r.handleNotFound)
	r.mux.MethodNotAllowed(r.handleMethodNotAllowed)

	return nil
}

func (r *Router) handleNotFound(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	if _, err := w.Write([]byte(`{"error":"endpoint not found"}`)); err != nil {
		logging.ServerLogger.WithContext(req.Context()).WithError(err).Error("failed to write 404 body")
	}
}

func (r *Router) handleMethodNotAllowed(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusMethodNotAllowed)
	if _, err := w.Write([]byte(`{"error":"method not allowed"}`)); err != nil {
		logging.ServerLogger.WithContext(req.Context()).WithError(err).Error("failed to write 405 body")
	}
}
