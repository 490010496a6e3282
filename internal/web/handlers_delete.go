package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/JonMunkholm/payee-recon/internal/core"
	"github.com/JonMunkholm/payee-recon/internal/logging"
	"github.com/google/uuid"
)

type bulkDeleteRequest struct {
	IDs []string `json:"ids"`
}

// handleBulkDelete removes registrants in batches.
// 200 for success, 207 for partial_success, 500 for failure.
func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, badRequest("invalid request body", err))
		return
	}
	if len(req.IDs) == 0 {
		s.respondError(w, r, badRequest("invalid request body", errors.New("ids must not be empty")))
		return
	}

	ids := make([]uuid.UUID, len(req.IDs))
	for i, raw := range req.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			s.respondError(w, r, badRequest("invalid registrant id", fmt.Errorf("ids[%d]: %w", i, err)))
			return
		}
		ids[i] = id
	}

	logger := logging.WithFields(r.Context(), "op", "bulk_delete", "requested", len(ids))
	report, err := s.service.BulkDelete(r.Context(), ids, func(deleted, requested int) {
		logger.Debug("bulk delete progress", "deleted", deleted)
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if report.Status != core.DeleteSuccess {
		logger.Warn("bulk delete incomplete",
			"status", report.Status,
			"deleted", report.DeletedCount,
			"failed_ids", report.FailedIDs(),
		)
	}

	status := http.StatusOK
	switch report.Status {
	case core.DeletePartialSuccess:
		status = http.StatusMultiStatus
	case core.DeleteFailure:
		status = http.StatusInternalServerError
	}

	w.Header().Set("X-Run-ID", report.RunID)
	writeJSON(w, status, report)
}
