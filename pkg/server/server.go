// Package server exposes the listing catalog over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/elonfeng/rentradar/internal/catalog"
	"github.com/elonfeng/rentradar/internal/logging"
	"github.com/elonfeng/rentradar/pkg/listing"
	"github.com/elonfeng/rentradar/pkg/score"
)

// maxBodyBytes bounds request bodies; saved listing pages and embedded
// photos can be several megabytes.
const maxBodyBytes = 32 << 20

// Service is the catalog behaviour the HTTP API needs.
type Service interface {
	List(ctx context.Context, sortBy string) ([]listing.Listing, error)
	AddFromURL(ctx context.Context, req catalog.AddRequest) (listing.Listing, error)
	AddFromHTML(ctx context.Context, page string, req catalog.AddRequest) (listing.Listing, error)
	Add(ctx context.Context, l listing.Listing) (listing.Listing, error)
	Edit(ctx context.Context, id int64, p catalog.Patch) (listing.Listing, error)
	Delete(ctx context.Context, id int64) error
	SetContacted(ctx context.Context, id int64, contacted bool) (listing.Listing, error)
	SetApplied(ctx context.Context, id int64, applied bool) (listing.Listing, error)
	SetGroup(ctx context.Context, id int64, group string) (listing.Listing, error)
	SetComment(ctx context.Context, id int64, comment string) (listing.Listing, error)
	Settings() catalog.Settings
	UpdateSettings(ctx context.Context, origin string, weights *score.Weights) (score.Report, error)
	Rescore(ctx context.Context) (score.Report, error)
	Stats(ctx context.Context) (score.Report, error)
	SaveSpiel(text string) error
	Spiel() (string, error)
}

// Server provides the HTTP API.
type Server struct {
	catalog  Service
	validate *validator.Validate
	metrics  *Metrics
	registry *prometheus.Registry
	log      *logging.Logger
	port     int
	router   *mux.Router
}

// New creates a new HTTP server with its own metrics registry.
func New(c Service, port int, log *logging.Logger) *Server {
	if port == 0 {
		port = 5000
	}
	reg := prometheus.NewRegistry()
	s := &Server{
		catalog:  c,
		validate: validator.New(),
		metrics:  NewMetrics(reg),
		registry: reg,
		log:      log,
		port:     port,
	}
	s.router = s.routes()
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.metrics.Middleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/listings", s.handleList).Methods(http.MethodGet)
	r.HandleFunc("/listings", s.handleAddManual).Methods(http.MethodPost)
	r.HandleFunc("/add_listing", s.handleAddListing).Methods(http.MethodPost)
	r.HandleFunc("/add_listing_from_html", s.handleAddFromHTML).Methods(http.MethodPost)
	r.HandleFunc("/edit_listing", s.handleEdit).Methods(http.MethodPost)
	r.HandleFunc("/delete_listing", s.handleDelete).Methods(http.MethodPost)
	r.HandleFunc("/contacted", s.handleContacted).Methods(http.MethodPost)
	r.HandleFunc("/applied", s.handleApplied).Methods(http.MethodPost)
	r.HandleFunc("/update_group", s.handleGroup).Methods(http.MethodPost)
	r.HandleFunc("/update_comment", s.handleComment).Methods(http.MethodPost)
	r.HandleFunc("/settings", s.handleGetSettings).Methods(http.MethodGet)
	r.HandleFunc("/update_settings", s.handleUpdateSettings).Methods(http.MethodPost)
	r.HandleFunc("/update_origin", s.handleUpdateOrigin).Methods(http.MethodPost)
	r.HandleFunc("/rescore", s.handleRescore).Methods(http.MethodPost)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/save_spiel", s.handleSaveSpiel).Methods(http.MethodPost)
	r.HandleFunc("/get_spiel_content", s.handleGetSpiel).Methods(http.MethodGet)
	r.HandleFunc("/export.xlsx", s.handleExport(formatXLSX)).Methods(http.MethodGet)
	r.HandleFunc("/export.csv", s.handleExport(formatCSV)).Methods(http.MethodGet)
	r.Handle("/metrics", s.metrics.Handler(s.registry)).Methods(http.MethodGet)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("[server] listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("[server] shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeOK(w http.ResponseWriter, fields map[string]any) {
	body := map[string]any{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, http.StatusOK, body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "error": msg})
}

// writeServiceError maps catalog errors onto status codes. Anything else
// gets fallback.
func (s *Server) writeServiceError(w http.ResponseWriter, err error, fallback int) {
	switch {
	case errors.Is(err, catalog.ErrInvalid), errors.Is(err, errBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, catalog.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.log.Error("[server] %v", err)
		writeError(w, fallback, err.Error())
	}
}
