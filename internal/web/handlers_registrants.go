package web

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/payee-recon/internal/core"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// listResponse is one page of the registry.
type listResponse struct {
	Registrants []core.Registrant `json:"registrants"`
	Total       int64             `json:"total"`
	Limit       int               `json:"limit"`
	Offset      int               `json:"offset"`
}

// handleListRegistrants returns a page of registrants.
// Query: limit, offset, q (substring over vpa, name and phone).
func (s *Server) handleListRegistrants(w http.ResponseWriter, r *http.Request) {
	page := core.Page{
		Limit:  parseIntParam(r, "limit", 50),
		Offset: parseIntParam(r, "offset", 0),
		Search: r.URL.Query().Get("q"),
	}

	regs, total, err := s.service.ListRegistrants(r.Context(), page)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Registrants: regs,
		Total:       total,
		Limit:       page.Limit,
		Offset:      page.Offset,
	})
}

func (s *Server) handleCreateRegistrant(w http.ResponseWriter, r *http.Request) {
	in, err := decodeRegistrant(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	reg, err := s.service.AddRegistrant(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

func (s *Server) handleGetRegistrant(w http.ResponseWriter, r *http.Request) {
	id, err := registrantID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	reg, err := s.service.GetRegistrant(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

func (s *Server) handleUpdateRegistrant(w http.ResponseWriter, r *http.Request) {
	id, err := registrantID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	in, err := decodeRegistrant(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	reg, err := s.service.UpdateRegistrant(r.Context(), id, in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

func (s *Server) handleDeleteRegistrant(w http.ResponseWriter, r *http.Request) {
	id, err := registrantID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := s.service.DeleteRegistrant(r.Context(), id); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeRegistrant reads a registrant from the JSON body. The id field is
// ignored; ids come from the path or the store.
func decodeRegistrant(r *http.Request) (core.RegistrantInput, error) {
	var in core.RegistrantInput
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return core.RegistrantInput{}, badRequest("invalid request body", err)
	}
	in.ID = nil
	return in, nil
}

func registrantID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, badRequest("invalid registrant id", err)
	}
	return id, nil
}

// parseIntParam parses a non-negative integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 0 {
		return defaultVal
	}
	return i
}
