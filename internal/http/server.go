package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/niju646/ReportSystem/internal/auth"
	"github.com/niju646/ReportSystem/internal/config"
	"github.com/niju646/ReportSystem/internal/model"
	"github.com/niju646/ReportSystem/internal/report"
	"github.com/niju646/ReportSystem/internal/repository"
	"github.com/niju646/ReportSystem/internal/token"
)

// UserDirectory is the read-only user lookup the login handler needs.
type UserDirectory interface {
	FindUser(ctx context.Context, id int64, role model.Role) (model.User, error)
}

type Server struct {
	cfg     config.Config
	users   UserDirectory
	tokens  *token.Service
	reports *report.Aggregator
	log     *zap.SugaredLogger
}

func NewServer(cfg config.Config, users UserDirectory, tokens *token.Service, reports *report.Aggregator, log *zap.SugaredLogger) *Server {
	return &Server{
		cfg:     cfg,
		users:   users,
		tokens:  tokens,
		reports: reports,
		log:     log,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.handleLogin)
		r.Post("/refresh", s.handleRefresh)
		r.With(s.authMiddleware).Post("/logout", s.handleLogout)
		r.With(s.authMiddleware).Get("/report/{notificationId}", s.handleGetReport)
	})

	return r
}

// Auth

type claimsKey struct{}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r.Header.Get("Authorization"))
		if tokenString == "" {
			writeError(w, http.StatusUnauthorized, "Access denied: No token provided")
			return
		}
		claims, err := s.tokens.VerifyAccessToken(tokenString)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired access token")
			return
		}
		if !model.ValidRole(model.Role(claims.Role)) {
			writeError(w, http.StatusForbidden, "Access denied: Insufficient permissions")
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func claimsFromContext(ctx context.Context) *auth.Claims {
	value := ctx.Value(claimsKey{})
	claims, _ := value.(*auth.Claims)
	return claims
}

// Handlers

type loginRequest struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

type tokenResponse struct {
	Success      bool   `json:"success"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid credentials: ID and role (admin or teacher) are required")
		return
	}
	role := model.Role(strings.TrimSpace(strings.ToLower(req.Role)))
	if req.ID <= 0 || !model.ValidRole(role) {
		writeError(w, http.StatusBadRequest, "Invalid credentials: ID and role (admin or teacher) are required")
		return
	}

	user, err := s.users.FindUser(r.Context(), req.ID, role)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusUnauthorized, "Unauthorized: Invalid user ID or role")
			return
		}
		s.log.Errorw("user lookup failed", "user_id", req.ID, "reason", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		s.log.Errorw("access token issuance failed", "user_id", user.ID, "reason", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	refreshToken, err := s.tokens.IssueRefreshToken(r.Context(), user)
	if err != nil {
		s.log.Errorw("refresh token issuance failed", "user_id", user.ID, "reason", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		Success:      true,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusUnauthorized, "Refresh token required")
		return
	}

	claims, err := s.tokens.VerifyRefreshToken(r.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, token.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "Invalid or expired refresh token")
			return
		}
		s.log.Errorw("refresh verification failed", "reason", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user := model.User{ID: claims.UserID, Role: model.Role(claims.Role)}
	accessToken, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		s.log.Errorw("access token issuance failed", "user_id", user.ID, "reason", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// The presented refresh token stays valid and is returned unchanged.
	writeJSON(w, http.StatusOK, tokenResponse{
		Success:      true,
		AccessToken:  accessToken,
		RefreshToken: req.RefreshToken,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request")
		return
	}
	if req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "Refresh token required")
		return
	}

	if err := s.tokens.RevokeRefreshToken(r.Context(), req.RefreshToken); err != nil {
		s.log.Errorw("refresh token revocation failed", "reason", err)
		writeError(w, http.StatusInternalServerError, "Failed to revoke token")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out successfully",
	})
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Access denied: No token provided")
		return
	}

	raw := chi.URLParam(r, "notificationId")
	notificationID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		notificationID = 0
	}

	rep, err := s.reports.GetReport(r.Context(), notificationID)
	if err != nil {
		switch {
		case errors.Is(err, report.ErrInvalidNotificationID):
			writeError(w, http.StatusBadRequest, "Invalid notification ID. It must be a positive integer.")
		case errors.Is(err, report.ErrNoStatusRecords):
			writeError(w, http.StatusNotFound, "No status records found for notification ID "+strconv.FormatInt(notificationID, 10))
		default:
			s.log.Errorw("report fetch failed", "notification_id", notificationID, "reason", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    rep,
		"user": map[string]interface{}{
			"id":   claims.UserID,
			"role": claims.Role,
		},
	})
}

// Middleware

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		s.log.Infow("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
		)
	})
}

// Helpers

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func decodeJSON(r *http.Request, out interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(out)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}
