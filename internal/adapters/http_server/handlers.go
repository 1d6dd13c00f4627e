package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"reviewpulse/internal/app"
	"reviewpulse/internal/domain"
)

type Handlers struct{ Q *app.QueryService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/apps/{bundle}/reviews", h.listReviews)
	s.mux.Get("/v1/apps/{bundle}/report", h.report)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func (h *Handlers) listReviews(w http.ResponseWriter, r *http.Request) {
	bundle := chi.URLParam(r, "bundle")
	if bundle == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid bundle", "bundle is required")
		return
	}

	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 200 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}

	// Newest first; aligns with the (bundle, review_date) index
	page := domain.PageQuery{Limit: limit, Sort: "-review_date"}
	if cur := r.URL.Query().Get("cursor"); cur != "" {
		page.Cursor = &cur
	}
	out, err := h.Q.ListReviews(r.Context(), bundle, page)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			writeProblem(w, http.StatusNotFound, "Not Found", "no reviews for this app")
		case errors.Is(err, domain.ErrBadCursor):
			writeProblem(w, http.StatusBadRequest, "Invalid cursor", "cursor is not a valid page token")
		default:
			writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not list reviews")
		}
		return
	}

	writeJSON(w, r, out)
}

func (h *Handlers) report(w http.ResponseWriter, r *http.Request) {
	bundle := chi.URLParam(r, "bundle")
	if bundle == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid bundle", "bundle is required")
		return
	}

	days := 0
	if ds := r.URL.Query().Get("days"); ds != "" {
		d, err := strconv.Atoi(ds)
		if err != nil || d <= 0 || d > 365 {
			writeProblem(w, http.StatusBadRequest, "Invalid days", "days must be an integer between 1 and 365")
			return
		}
		days = d
	}

	rep, err := h.Q.Report(r.Context(), bundle, days)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "no stored reviews for this app in the window")
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "could not build report")
		return
	}

	writeJSON(w, r, rep)
}
