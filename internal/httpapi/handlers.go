package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"parasight/internal/domain"
	"parasight/internal/grouping"
	"parasight/internal/ingest"
	"parasight/internal/storage"
)

const maxBodyBytes = 1 << 20

type shareRequest struct {
	URL  string `json:"url"`
	Note string `json:"note"`
}

type shareResponse struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message,omitempty"`
	LinkID        string   `json:"linkId,omitempty"`
	ExtractedURLs []string `json:"extractedUrls,omitempty"`
	Error         string   `json:"error,omitempty"`
}

type batchRequest struct {
	URLs []string `json:"urls"`
	Note string   `json:"note"`
}

type groupRequest struct {
	LinkA string `json:"linkA"`
	LinkB string `json:"linkB"`
}

type categoryRequest struct {
	Bucket      *string `json:"bucket"`
	Subcategory *string `json:"subcategory"`
}

type renameRequest struct {
	Bucket string `json:"bucket"`
	From   string `json:"from"`
	To     string `json:"to"`
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleShareInfo(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "Parasight Share API",
		"usage":   "POST { url: string, note?: string }",
	})
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	rawURL := strings.TrimSpace(req.URL)
	if rawURL == "" {
		writeError(w, http.StatusBadRequest, "Missing 'url' in request body")
		return
	}
	if msg := validateURL(rawURL); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	note := req.Note
	if note == "" {
		note = s.cfg.DefaultNote
	}

	// The pipeline keeps running if the client goes away.
	res := s.ingester.ProcessOne(context.WithoutCancel(r.Context()), rawURL, note)
	if !res.Success {
		writeJSON(w, http.StatusInternalServerError, shareResponse{Error: res.Error})
		return
	}

	msg := "Link saved successfully"
	if len(res.ExpandedURLs) > 0 {
		msg = fmt.Sprintf("Saved %d link(s) from tweet", len(res.ExpandedURLs))
	}
	writeJSON(w, http.StatusOK, shareResponse{
		Success:       true,
		Message:       msg,
		LinkID:        res.LinkID,
		ExtractedURLs: res.ExpandedURLs,
	})
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if len(req.URLs) == 0 {
		writeError(w, http.StatusBadRequest, "Missing 'urls' in request body")
		return
	}

	// Rejected entries get their result in place; the rest run as one batch.
	results := make([]ingest.Result, len(req.URLs))
	var valid []string
	var slots []int
	for i, raw := range req.URLs {
		raw = strings.TrimSpace(raw)
		if msg := validateURL(raw); msg != "" {
			results[i] = ingest.Result{URL: raw, Error: msg}
			continue
		}
		valid = append(valid, raw)
		slots = append(slots, i)
	}

	if len(valid) > 0 {
		processed := s.ingester.ProcessBatch(context.WithoutCancel(r.Context()), valid, req.Note)
		for j, res := range processed {
			if j < len(slots) {
				results[slots[j]] = res
			}
		}
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleGroup(w http.ResponseWriter, r *http.Request) {
	var req groupRequest
	if err := decodeJSON(r, &req); err != nil || req.LinkA == "" || req.LinkB == "" {
		writeError(w, http.StatusBadRequest, "Body must contain 'linkA' and 'linkB'")
		return
	}

	name, err := s.grouper.Group(context.WithoutCancel(r.Context()), req.LinkA, req.LinkB)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Links not found")
		return
	case errors.Is(err, grouping.ErrSameLink):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		s.log.WithError(err).Error("Failed to group links")
		writeError(w, http.StatusInternalServerError, "Failed to group links")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"groupName": name})
}

func (s *Server) handleCategory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req categoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	var update storage.CategoryUpdate
	if req.Bucket != nil {
		b, err := domain.ParseBucket(*req.Bucket)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		update.Bucket = &b
	}
	if req.Subcategory != nil {
		sub := strings.TrimSpace(*req.Subcategory)
		update.Subcategory = &sub
	}

	err := s.store.UpdateCategory(r.Context(), []string{id}, update)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "Link not found")
		return
	case err != nil:
		s.log.WithError(err).WithField("link_id", id).Error("Failed to update category")
		writeError(w, http.StatusInternalServerError, "Failed to update category")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleRename(w http.ResponseWriter, r *http.Request) {
	var req renameRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	bucket, err := domain.ParseBucket(req.Bucket)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	renamed, err := s.store.RenameSubcategory(r.Context(), bucket, req.From, req.To)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to rename group")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"renamed": renamed})
}

func (s *Server) handleDedup(w http.ResponseWriter, r *http.Request) {
	report, err := s.store.Dedup(context.WithoutCancel(r.Context()))
	if err != nil {
		s.log.WithError(err).Error("Dedup failed")
		writeError(w, http.StatusInternalServerError, "Dedup failed")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// validateURL returns a client-facing message when rawURL is not an
// absolute http(s) URL.
func validateURL(rawURL string) string {
	switch err := ingest.ValidateURL(rawURL); {
	case errors.Is(err, ingest.ErrUnsupportedScheme):
		return "URL must start with http:// or https://"
	case err != nil:
		return "Invalid URL format"
	}
	return ""
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, shareResponse{Error: msg})
}
