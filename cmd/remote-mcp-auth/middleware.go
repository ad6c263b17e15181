package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/WilliamSuiself/remote-mcp-local/internal/oauth"
)

// TokenValidator checks bearer access tokens
type TokenValidator interface {
	ValidateToken(ctx context.Context, raw string) (*oauth.TokenInfo, error)
}

// requestLogger logs one line per request with the chi request id
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				level := slog.LevelInfo
				if status >= http.StatusInternalServerError {
					level = slog.LevelError
				}
				logger.Log(r.Context(), level, "http request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", status,
					"bytes", ww.BytesWritten(),
					"duration", time.Since(start),
					"remote_addr", r.RemoteAddr,
					"request_id", middleware.GetReqID(r.Context()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// requireBearer rejects requests without a valid access token per RFC 6750
// section 3, pointing clients at the protected resource metadata.
func requireBearer(validator TokenValidator, resourceMetadataURL string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			// The scheme is case-insensitive (RFC 7235 section 2.1)
			scheme, raw, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", middleware.GetReqID(ctx),
				)
				writeUnauthorized(w, resourceMetadataURL, "", "Missing or invalid Authorization header")
				return
			}

			info, err := validator.ValidateToken(ctx, strings.TrimSpace(raw))
			if err != nil {
				if !errors.Is(err, oauth.ErrInvalidToken) && !errors.Is(err, oauth.ErrTokenExpired) {
					logger.ErrorContext(ctx, "token validation failed", "error", err)
					http.Error(w, "token validation unavailable", http.StatusServiceUnavailable)
					return
				}
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", middleware.GetReqID(ctx),
				)
				writeUnauthorized(w, resourceMetadataURL, "invalid_token", "Invalid or expired token")
				return
			}

			logger.DebugContext(ctx, "token accepted",
				"sub", info.Subject,
				"client_id", info.ClientID,
			)
			next.ServeHTTP(w, r)
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, resourceMetadataURL, code, description string) {
	challenge := fmt.Sprintf(`Bearer resource_metadata="%s"`, resourceMetadataURL)
	if code != "" {
		challenge += fmt.Sprintf(`, error="%s", error_description="%s"`, code, description)
	}
	w.Header().Set("WWW-Authenticate", challenge)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	errCode := code
	if errCode == "" {
		errCode = "unauthorized"
	}
	_, _ = fmt.Fprintf(w, `{"error":%q,"error_description":%q}`, errCode, description)
}
