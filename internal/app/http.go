package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"questionnaire/api/internal/history"
	"questionnaire/api/internal/store"
)

const (
	apiPrefix   = "/api/"
	contentType = "application/json; charset=UTF-8"
)

type HTTPServer struct {
	service      *Service
	corsOrigin   string
	mount        string
	maxBodyBytes int64
	static       http.Handler
	shell        *shellDocument
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	staticFS := http.Dir(service.cfg.StaticDir)
	maxBody := service.cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	return &HTTPServer{
		service:      service,
		corsOrigin:   corsOrigin,
		mount:        service.cfg.MountPath(),
		maxBodyBytes: maxBody,
		static:       http.FileServer(staticFS),
		shell:        &shellDocument{fs: staticFS, name: service.cfg.ShellDocument},
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.route))
}

// handleAPI serves a request whose mount-relative path starts with /api/.
func (s *HTTPServer) handleAPI(w http.ResponseWriter, r *http.Request, path string) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if path == "/api/health" && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if path == "/api/ready" && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"storage": map[string]any{"status": "ok"},
		}
		if err := s.service.Ping(ctx); err != nil {
			log.Printf(`{"request_id":"%s","ready_error":%q}`, requestID(r.Context()), err.Error())
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["storage"] = map[string]any{"status": "error"}
		}
		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	switch {
	case path == "/api/questions":
		s.handleQuestions(w, r)
	case path == "/api/questions/history":
		s.handleQuestionHistory(w, r)
	case strings.HasPrefix(path, "/api/questions/history/"):
		s.handleQuestionRevision(w, r, strings.TrimPrefix(path, "/api/questions/history/"))
	case path == "/api/profile":
		s.handleProfile(w, r)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleQuestions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet, http.MethodHead:
		payload, err := s.service.ReadConfig()
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeRaw(w, http.StatusOK, payload)
	case http.MethodPost:
		body, ok := s.readBody(w, r)
		if !ok {
			return
		}
		if err := s.service.SaveConfig(body); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "success",
			"message": "configuration saved",
		})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

func (s *HTTPServer) handleQuestionHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	limit := 20
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a non-negative integer", nil)
			return
		}
		limit = parsed
	}
	revisions, err := s.service.ConfigHistory(limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": revisions})
}

func (s *HTTPServer) handleQuestionRevision(w http.ResponseWriter, r *http.Request, hash string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}
	payload, err := s.service.ConfigRevision(hash)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeRaw(w, http.StatusOK, bytes.TrimRight(payload, "\n"))
}

func (s *HTTPServer) handleProfile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		line, err := s.service.FindProfile(r.URL.Query().Get("uuid"))
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeRaw(w, http.StatusOK, line)
	case http.MethodPost:
		body, ok := s.readBody(w, r)
		if !ok {
			return
		}
		if err := s.service.AppendProfile(body); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
	default:
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	}
}

// readBody reads the whole request body. Empty and oversized bodies are
// answered here and reported as !ok.
func (s *HTTPServer) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "EMPTY_BODY", "Empty payload", nil)
		return nil, false
	}
	defer r.Body.Close()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "BODY_TOO_LARGE", "Payload too large", nil)
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Could not read request body", nil)
		return nil, false
	}
	if len(bytes.TrimSpace(body)) == 0 {
		writeError(w, http.StatusBadRequest, "EMPTY_BODY", "Empty payload", nil)
		return nil, false
	}
	return body, true
}

// fail maps err to a response. Server-side failures are logged with their
// cause; the client only sees the mapped message.
func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		log.Printf(`{"request_id":"%s","path":"%s","error":%q}`, requestID(r.Context()), r.URL.Path, err.Error())
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Accept, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeRaw sends an already serialized JSON body.
func writeRaw(w http.ResponseWriter, status int, payload []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case errors.Is(err, store.ErrMalformedInput):
		return http.StatusBadRequest, "INVALID_BODY", "Invalid JSON body", nil
	case errors.Is(err, store.ErrBadRequest):
		return http.StatusBadRequest, "VALIDATION_ERROR", "Missing required parameter", nil
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, history.ErrRevisionNotFound):
		return http.StatusNotFound, "NOT_FOUND", "Revision not found", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
