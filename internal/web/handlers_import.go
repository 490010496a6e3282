package web

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/JonMunkholm/payee-recon/internal/core"
	"github.com/JonMunkholm/payee-recon/internal/logging"
)

// handleImport imports a registrant CSV.
// 200 when every batch was written, 207 when some failed, 409 when none were
// because every batch hit a uniqueness conflict, and 500 otherwise.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer body.Close()

	result, err := s.service.ImportRegistrants(r.Context(), body)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("X-Run-ID", result.RunID)
	writeJSON(w, importStatus(result), result)
}

// handleImportPreview validates a registrant CSV without writing it.
func (s *Server) handleImportPreview(w http.ResponseWriter, r *http.Request) {
	body, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer body.Close()

	preview, err := s.service.PreviewImport(r.Context(), body)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// handleReconcile matches a bank statement CSV against the registry.
func (s *Server) handleReconcile(w http.ResponseWriter, r *http.Request) {
	body, err := s.readUpload(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	defer body.Close()

	logger := logging.FromContext(r.Context())
	result, err := s.service.Reconcile(r.Context(), body, func(processed, total int) {
		logger.Debug("reconcile progress", "processed", processed, "total", total)
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("X-Run-ID", result.RunID)
	writeJSON(w, http.StatusOK, result)
}

func importStatus(result *core.ImportResult) int {
	failed := result.FailedBatches()
	switch {
	case failed == 0:
		return http.StatusOK
	case failed < len(result.Batches):
		return http.StatusMultiStatus
	case allConflicts(result.Batches):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func allConflicts(batches []core.BatchOutcome) bool {
	for _, b := range batches {
		if !b.Conflict {
			return false
		}
	}
	return true
}

// uploadBody closes the uploaded file and removes any temp files the
// multipart parser spilled to disk.
type uploadBody struct {
	io.Reader
	file multipart.File
	form *multipart.Form
}

func (u *uploadBody) Close() error {
	var err error
	if u.file != nil {
		err = u.file.Close()
	}
	if u.form != nil {
		err = errors.Join(err, u.form.RemoveAll())
	}
	return err
}

// readUpload returns the CSV sent either as a multipart "file" field or as
// the raw request body, bounded by the configured upload size.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) (io.ReadCloser, error) {
	maxSize := s.cfg.Server.MaxUploadSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxSize); err != nil {
			return nil, uploadError(err)
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			r.MultipartForm.RemoveAll()
			return nil, badRequest("no file provided", err)
		}
		return &uploadBody{Reader: file, file: file, form: r.MultipartForm}, nil
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, uploadError(err)
	}
	if len(data) == 0 {
		return nil, badRequest("no file provided", nil)
	}
	return &uploadBody{Reader: bytes.NewReader(data)}, nil
}

func uploadError(err error) error {
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		return fmt.Errorf("file too large: %w", err)
	}
	return badRequest("invalid csv upload", err)
}
