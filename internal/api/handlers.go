package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/jhartig/kapsel/internal/dispatch"
	"github.com/jhartig/kapsel/internal/stage"
)

const maxUploadBytes int64 = 10 << 20

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	file, err := formFile(w, r, "file")
	if err != nil {
		writeValidationError(w, err.Error(), nil)
		return
	}

	s.logger.Debug("execute request", "file", file.Name, "bytes", len(file.Data))
	sessionID, err := s.service.RunScript(r.Context(), file)
	if err != nil {
		s.logger.Error("execute", "error", err)
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"session_id": sessionID})
}

func (s *Server) handleExecuteTests(w http.ResponseWriter, r *http.Request) {
	files, err := formFiles(w, r, "files")
	if err != nil {
		writeValidationError(w, err.Error(), nil)
		return
	}

	s.logger.Debug("execute tests request", "files", len(files))
	result, err := s.service.RunTests(r.Context(), files)
	if err != nil {
		s.logger.Error("execute tests", "error", err)
		writeAPIError(w, err)
		return
	}
	writeJSON(w, testStatusCode(result.Status), result)
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := ValidateSessionID(id); err != nil {
		writeValidationError(w, err.Error(), nil)
		return
	}

	res, err := s.service.Result(r.Context(), id)
	if err != nil {
		writeAPIError(w, err)
		return
	}
	if res.Running {
		writeJSON(w, http.StatusAccepted, map[string]string{
			"session_id": id,
			"status":     "running",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": id,
		"logs":       res.Logs,
	})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := ValidateSessionID(id); err != nil {
		writeValidationError(w, err.Error(), nil)
		return
	}

	s.logger.Debug("cleanup request", "session_id", id)
	if err := s.service.Cleanup(r.Context(), id); err != nil {
		s.logger.Error("cleanup", "session_id", id, "error", err)
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleaned up"})
}

func (s *Server) handlePrewarm(w http.ResponseWriter, r *http.Request) {
	created, err := s.pool.TopUp(r.Context())
	if err != nil {
		s.logger.Error("prewarm", "error", err)
		writeAPIError(w, err)
		return
	}

	status := "pool already at target size"
	if created {
		status = "prewarmed"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    status,
		"pool_size": s.pool.Size(),
	})
}

// testStatusCode maps a test run outcome to its HTTP status.
func testStatusCode(status string) int {
	switch status {
	case dispatch.StatusSuccess:
		return http.StatusOK
	case dispatch.StatusPartialSuccess:
		return http.StatusPartialContent
	default:
		return http.StatusBadRequest
	}
}

// formFile reads a single uploaded file from a multipart form field.
func formFile(w http.ResponseWriter, r *http.Request, field string) (stage.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	f, header, err := r.FormFile(field)
	if err != nil {
		return stage.File{}, fmt.Errorf("missing %q upload: %w", field, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return stage.File{}, fmt.Errorf("reading %q upload: %w", field, err)
	}
	return stage.File{Name: header.Filename, Data: data}, nil
}

// formFiles reads all uploads of a repeated multipart form field.
func formFiles(w http.ResponseWriter, r *http.Request, field string) ([]stage.File, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, fmt.Errorf("parsing multipart form: %w", err)
	}

	headers := r.MultipartForm.File[field]
	files := make([]stage.File, 0, len(headers))
	for _, header := range headers {
		file, err := readFileHeader(header)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

func readFileHeader(header *multipart.FileHeader) (stage.File, error) {
	f, err := header.Open()
	if err != nil {
		return stage.File{}, fmt.Errorf("opening upload %q: %w", header.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return stage.File{}, fmt.Errorf("reading upload %q: %w", header.Filename, err)
	}
	return stage.File{Name: header.Filename, Data: data}, nil
}
