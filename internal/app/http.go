package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"storefront/cms/internal/auth"
	"storefront/cms/internal/authpw"
	"storefront/cms/internal/content"
	"storefront/cms/internal/editor"
	"storefront/cms/internal/export"
	"storefront/cms/internal/gitrepo"
	"storefront/cms/internal/landing"
	"storefront/cms/internal/logfields"
	"storefront/cms/internal/metrics"
	"storefront/cms/internal/presets"
	"storefront/cms/internal/rbac"
	"storefront/cms/internal/search"
	"storefront/cms/internal/sections"
	"storefront/cms/internal/store"
)

const maxBodyBytes = 4 << 20

type HTTPServer struct {
	service        *Service
	corsOrigin     string
	logger         *slog.Logger
	metrics        metrics.Recorder
	metricsHandler http.Handler
}

// NewHTTPServer wires the JSON API. logger, recorder and metricsHandler may
// be nil; /metrics is only served when metricsHandler is set.
func NewHTTPServer(service *Service, corsOrigin string, logger *slog.Logger, recorder metrics.Recorder, metricsHandler http.Handler) *HTTPServer {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &HTTPServer{
		service:        service,
		corsOrigin:     corsOrigin,
		logger:         logger,
		metrics:        recorder,
		metricsHandler: metricsHandler,
	}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) forbid(w http.ResponseWriter, r *http.Request, session Session, action rbac.Action) {
	s.logger.WarnContext(r.Context(), "forbidden",
		logfields.SessionID(session.SessionID),
		slog.String("role", session.Role),
		slog.String("action", string(action)),
		logfields.Path(r.URL.Path),
	)
	writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
}

// allow writes a 403 and returns false when the session's role lacks action.
func (s *HTTPServer) allow(w http.ResponseWriter, r *http.Request, session Session, action rbac.Action) bool {
	if s.service.Can(session.Role, action) {
		return true
	}
	s.forbid(w, r, session, action)
	return false
}

func (s *HTTPServer) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code, message, details := mapError(err)
	if status >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", logfields.Path(r.URL.Path), logfields.Error(err))
	}
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		s.handleReady(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/metrics" && s.metricsHandler != nil {
		s.metricsHandler.ServeHTTP(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/login" {
		s.handleLogin(w, r)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) < 2 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	switch parts[1] {
	case "session":
		s.handleSession(w, r, session, parts[2:])
		return
	case "blocks":
		if r.Method != http.MethodGet || len(parts) != 2 {
			break
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": s.service.Blocks(r.URL.Query().Get("category"))})
		return
	case "templates":
		if r.Method != http.MethodGet || len(parts) != 2 {
			break
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": s.service.Templates()})
		return
	case "content":
		if r.Method == http.MethodPost && len(parts) == 3 && parts[2] == "validate" {
			s.handleValidate(w, r)
			return
		}
	case "editor":
		if r.Method == http.MethodPost && len(parts) == 3 {
			s.handleEditor(w, r, parts[2])
			return
		}
	case "pages":
		s.handlePages(w, r, session, parts[2:])
		return
	case "sections":
		s.handleSections(w, r, session, parts[2:])
		return
	case "landing":
		s.handleLanding(w, r, session, parts[2:])
		return
	case "presets":
		s.handlePresets(w, r, session, parts[2:])
		return
	case "preview":
		s.handlePreview(w, r, session, parts[2:])
		return
	case "site":
		s.handleSite(w, r, session, parts[2:])
		return
	case "search":
		if r.Method == http.MethodGet && len(parts) == 2 {
			s.handleSearch(w, r)
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
		"sessions": map[string]any{"status": "ok"},
	}

	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{"status": "error", "error": err.Error()}
	}
	if err := s.service.PingPreviews(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["sessions"] = map[string]any{"status": "error", "error": err.Error()}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.service.SignInEnabled() {
		writeError(w, http.StatusServiceUnavailable, "AUTH_UNAVAILABLE", "Sign-in is not configured", nil)
		return
	}
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil)
		return
	}
	writeJSON(w, http.StatusOK, sessionPayload(session, true))
}

func (s *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request, session Session, rest []string) {
	switch {
	case r.Method == http.MethodGet && len(rest) == 0:
		writeJSON(w, http.StatusOK, sessionPayload(session, false))
	case r.Method == http.MethodPost && len(rest) == 1 && rest[0] == "logout":
		if err := s.service.Logout(r.Context(), session); err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handleValidate(w http.ResponseWriter, r *http.Request) {
	raw, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, s.service.ValidateContent(raw))
}

func (s *HTTPServer) handleEditor(w http.ResponseWriter, r *http.Request, direction string) {
	switch direction {
	case "tree":
		var body struct {
			Document json.RawMessage `json:"document"`
			Title    string          `json:"title"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		tree, warnings, err := s.service.EditorTree(body.Document, body.Title)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"tree": tree, "warnings": warnings})
	case "document":
		var body struct {
			Tree json.RawMessage `json:"tree"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		tree, err := decodeTree(body.Tree)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		doc, warnings, err := s.service.EditorDocument(tree)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"document": doc, "title": tree.Title(), "warnings": warnings})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	}
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q, err := searchQuery(query)
	if err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_QUERY", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Search(q))
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		s.logger.ErrorContext(r.Context(), "session lookup failed", logfields.Error(err))
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		elapsed := time.Since(started)
		s.metrics.ObserveRequest(r.Method, routeLabel(r.URL.Path), writer.status, elapsed)
		s.logger.LogAttrs(ctx, slog.LevelInfo, "http request",
			logfields.RequestID(requestID),
			logfields.Method(r.Method),
			logfields.Path(r.URL.Path),
			logfields.Status(writer.status),
			logfields.DurationMS(elapsed.Milliseconds()),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Access-Control-Expose-Headers", "Content-Disposition, X-Content-Warnings, X-Request-ID")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
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

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) || errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

// readBody returns the raw request body for handlers that validate the JSON
// themselves.
func readBody(r *http.Request) ([]byte, error) {
	if r.Body == nil {
		return nil, fmt.Errorf("request body is required")
	}
	defer r.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(raw) > maxBodyBytes {
		return nil, fmt.Errorf("request body too large")
	}
	return raw, nil
}

func bearerToken(r *http.Request) string {
	return auth.BearerToken(r.Header.Get("Authorization"))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

var staticSegments = map[string]struct{}{
	"api": {}, "session": {}, "login": {}, "logout": {}, "blocks": {}, "templates": {},
	"content": {}, "validate": {}, "editor": {}, "tree": {}, "document": {},
	"pages": {}, "sections": {}, "detach": {}, "revisions": {}, "restore": {}, "render": {},
	"landing": {}, "duplicates": {}, "presets": {}, "preview": {}, "activate": {},
	"site": {}, "settings": {}, "effective": {}, "rollback": {}, "search": {},
	"health": {}, "ready": {}, "metrics": {},
}

// routeLabel replaces ids in path with a placeholder so metric labels stay
// bounded.
func routeLabel(path string) string {
	parts := splitPath(path)
	for i, part := range parts {
		if _, ok := staticSegments[part]; !ok {
			parts[i] = "{id}"
		}
	}
	return "/" + strings.Join(parts, "/")
}

func intParam(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("expected a non-negative integer, got %q", raw)
	}
	return n, nil
}

func decodeTree(raw json.RawMessage) (editor.Tree, error) {
	var tree editor.Tree
	if len(raw) == 0 || string(raw) == "null" {
		return tree, &content.ValidationError{Problems: []content.Problem{{Path: "$.tree", Message: "tree is required"}}}
	}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return tree, &content.ValidationError{Problems: []content.Problem{{Path: "$.tree", Message: "malformed editor tree: " + err.Error()}}}
	}
	return tree, nil
}

func searchQuery(values url.Values) (search.Query, error) {
	limit, err := intParam(values.Get("limit"), 20)
	if err != nil {
		return search.Query{}, err
	}
	offset, err := intParam(values.Get("offset"), 0)
	if err != nil {
		return search.Query{}, err
	}
	q := search.Query{
		Text:     strings.TrimSpace(values.Get("q")),
		Category: values.Get("category"),
		Limit:    min(limit, 100),
		Offset:   offset,
	}
	switch t := search.ResultType(values.Get("type")); t {
	case "", search.ResultPage, search.ResultSection:
		q.FilterType = t
	default:
		return search.Query{}, fmt.Errorf("type must be page or section")
	}
	return q, nil
}

func sessionPayload(session Session, withToken bool) map[string]any {
	payload := map[string]any{
		"sessionId": session.SessionID,
		"userName":  session.UserName,
		"role":      session.Role,
		"expiresAt": session.ExpiresAt.Unix(),
	}
	if withToken {
		payload["accessToken"] = session.Token
	}
	return payload
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	var validationErr *content.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Invalid content document", validationErr.Problems
	}
	switch {
	case errors.Is(err, presets.ErrNothingToRollback):
		return http.StatusConflict, "ACTIVATION_CONFLICT", "No activation to roll back", nil
	case errors.Is(err, presets.ErrUnknownPreset):
		return http.StatusNotFound, "UNKNOWN_PRESET", "Unknown preset", nil
	case errors.Is(err, landing.ErrUnknownTemplate):
		return http.StatusNotFound, "UNKNOWN_TEMPLATE", "Unknown template", nil
	case errors.Is(err, gitrepo.ErrNoRevisions), errors.Is(err, gitrepo.ErrUnknownRevision):
		return http.StatusNotFound, "NOT_FOUND", "Revision not found", nil
	case errors.Is(err, sql.ErrNoRows):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, store.ErrSlugTaken):
		return http.StatusConflict, "SLUG_TAKEN", "Slug already in use", nil
	case errors.Is(err, landing.ErrTitleRequired),
		errors.Is(err, landing.ErrTooManyProducts),
		errors.Is(err, landing.ErrInvalidSectionMode),
		errors.Is(err, landing.ErrInvalidCTADestination):
		return http.StatusUnprocessableEntity, "INVALID_LANDING_INPUT", err.Error(), nil
	case errors.Is(err, sections.ErrNestedReference):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil
	case errors.Is(err, export.ErrUnsupportedFormat):
		return http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error(), nil
	case errors.Is(err, export.ErrPDFDependencyMissing):
		return http.StatusServiceUnavailable, "PDF_UNAVAILABLE", "PDF rendering is not available on this server", nil
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid username or password", nil
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrExpiredToken):
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
