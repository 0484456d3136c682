package server

import (
	"bytes"
	"io"
	"net/http"
	"time"

	"github.com/elonfeng/rentradar/pkg/export"
	"github.com/elonfeng/rentradar/pkg/listing"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleList returns the bare listing array, as the web UI expects.
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	listings, err := s.catalog.List(r.Context(), r.URL.Query().Get("sort_by"))
	if err != nil {
		s.writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	if listings == nil {
		listings = []listing.Listing{}
	}
	writeJSON(w, http.StatusOK, listings)
}

func (s *Server) handleAddListing(w http.ResponseWriter, r *http.Request) {
	var req addListingRequest
	if err := s.decode(r, &req); err != nil {
		s.writeServiceError(w, err, http.StatusBadRequest)
		return
	}

	l, err := s.catalog.AddFromURL(r.Context(), req.request(req.URL))
	if err != nil {
		// Anything but a catalog error is the listing site failing us.
		s.writeServiceError(w, err, http.StatusBadGateway)
		return
	}
	s.metrics.listingAdded("url")
	writeOK(w, map[string]any{"listing": l})
}

func (s *Server) handleAddFromHTML(w http.ResponseWriter, r *http.Request) {
	var req addHTMLRequest
	if err := s.decode(r, &req); err != nil {
		s.writeServiceError(w, err, http.StatusBadRequest)
		return
	}

	page, err := req.page()
	if err != nil {
		s.writeServiceError(w, err, http.StatusBadRequest)
		return
	}

	l, err := s.catalog.AddFromHTML(r.Context(), page, req.request(req.URL))
	if err != nil {
		s.writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	s.metrics.listingAdded("html")
	writeOK(w, map[string]any{"listing": l})
}

// handleAddManual accepts a listing in the stored record format.
func (s *Server) handleAddManual(w http.ResponseWriter, r *http.Request) {
	var l listing.Listing
	if err := s.decode(r, &l); err != nil {
		s.writeServiceError(w, err, http.StatusBadRequest)
		return
	}

	added, err := s.catalog.Add(r.Context(), l)
	if err != nil {
		s.writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	s.metrics.listingAdded("manual")
	writeOK(w, map[string]any{"listing": added})
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := s.decode(r, &req); err != nil {
		s.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	patch, err := req.patch()
	if err != nil {
		s.writeServiceError(w, err, http.StatusBadRequest)
		return
	}

	l, err := s.catalog.Edit(r.Context(), req.ID, patch)
	if err != nil {
		s.writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeOK(w, map[string]any{"listing": l})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req idRequest
	if err := s.decode(r, &req); err != nil {
		s.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	if err := s.catalog.Delete(r.Context(), req.ID); err != nil {
		s.writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeOK(w, map[string]any{"id": req.ID})
}

func (s *Server) handleContacted(w http.ResponseWriter, r *http.Request) {
	var req contactedRequest
	if err := s.decode(r, &req); err != nil {
		s.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	s.respondListing(w, func() (listing.Listing, error) {
		return s.catalog.SetContacted(r.Context(), req.ID, *req.Contacted)
	})
}

func (s *Server) handleApplied(w http.ResponseWriter, r *http.Request) {
	var req appliedRequest
	if err := s.decode(r, &req); err != nil {
		s.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	s.respondListing(w, func() (listing.Listing, error) {
		return s.catalog.SetApplied(r.Context(), req.ID, *req.Applied)
	})
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := s.decode(r, &req); err != nil {
		s.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	s.respondListing(w, func() (listing.Listing, error) {
		return s.catalog.SetGroup(r.Context(), req.ID, req.Group)
	})
}

func (s *Server) handleComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := s.decode(r, &req); err != nil {
		s.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	s.respondListing(w, func() (listing.Listing, error) {
		return s.catalog.SetComment(r.Context(), req.ID, req.Comments)
	})
}

func (s *Server) respondListing(w http.ResponseWriter, fn func() (listing.Listing, error)) {
	l, err := fn()
	if err != nil {
		s.writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeOK(w, map[string]any{"listing": l})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	writeOK(w, map[string]any{"settings": s.catalog.Settings()})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := s.decode(r, &req); err != nil {
		s.writeServiceError(w, err, http.StatusBadRequest)
		return
	}

	report, err := s.catalog.UpdateSettings(r.Context(), req.origin(), req.weights(s.catalog.Settings().Weights))
	if err != nil {
		s.writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	s.metrics.observeReport(report)
	writeOK(w, map[string]any{"settings": s.catalog.Settings(), "report": report})
}

// handleUpdateOrigin keeps the older origin-only endpoint working.
func (s *Server) handleUpdateOrigin(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := s.decode(r, &req); err != nil {
		s.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	origin := req.origin()
	if origin == "" {
		writeError(w, http.StatusBadRequest, "Invalid address")
		return
	}
	if _, err := s.catalog.UpdateSettings(r.Context(), origin, nil); err != nil {
		s.writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeOK(w, map[string]any{"message": "Origin address updated!"})
}

func (s *Server) handleRescore(w http.ResponseWriter, r *http.Request) {
	report, err := s.catalog.Rescore(r.Context())
	if err != nil {
		s.writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	s.metrics.observeReport(report)
	writeOK(w, map[string]any{"report": report})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	report, err := s.catalog.Stats(r.Context())
	if err != nil {
		s.writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	s.metrics.observeReport(report)
	writeOK(w, map[string]any{"report": report})
}

func (s *Server) handleSaveSpiel(w http.ResponseWriter, r *http.Request) {
	var req spielRequest
	if err := s.decode(r, &req); err != nil {
		s.writeServiceError(w, err, http.StatusBadRequest)
		return
	}
	if err := s.catalog.SaveSpiel(req.Content); err != nil {
		s.writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeOK(w, nil)
}

func (s *Server) handleGetSpiel(w http.ResponseWriter, r *http.Request) {
	text, err := s.catalog.Spiel()
	if err != nil {
		s.writeServiceError(w, err, http.StatusInternalServerError)
		return
	}
	writeOK(w, map[string]any{"content": text})
}

type exportFormat struct {
	ext         string
	contentType string
	write       func(io.Writer, []listing.Listing) error
}

var (
	formatXLSX = exportFormat{
		ext:         "xlsx",
		contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		write:       export.XLSX,
	}
	formatCSV = exportFormat{
		ext:         "csv",
		contentType: "text/csv; charset=utf-8",
		write:       export.CSV,
	}
)

func (s *Server) handleExport(f exportFormat) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		listings, err := s.catalog.List(r.Context(), r.URL.Query().Get("sort_by"))
		if err != nil {
			s.writeServiceError(w, err, http.StatusInternalServerError)
			return
		}

		// Buffer so a failed export can still be reported as JSON.
		var buf bytes.Buffer
		if err := f.write(&buf, listings); err != nil {
			s.writeServiceError(w, err, http.StatusInternalServerError)
			return
		}

		name := "listings-" + time.Now().Format("2006-01-02") + "." + f.ext
		w.Header().Set("Content-Type", f.contentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		w.WriteHeader(http.StatusOK)
		w.Write(buf.Bytes())
	}
}
