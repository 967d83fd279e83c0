package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	apperrors "eventplatform/internal/errors"
	"eventplatform/internal/logger"
	"eventplatform/internal/metrics"
	"eventplatform/internal/models"
	"eventplatform/internal/permissions"

	"github.com/gin-gonic/gin"
)

const (
	principalKey = "principal"
	sessionKey   = "session_token"

	RequestIDHeader = "X-Request-ID"
)

// Authenticator resolves cookie sessions and Basic Auth credentials
type Authenticator interface {
	ResolveSession(ctx context.Context, token string) (*models.Session, error)
	Authenticate(ctx context.Context, username, password string) (*models.User, error)
}

// PrincipalFromContext returns the identity attached by Session, or anonymous
func PrincipalFromContext(c *gin.Context) permissions.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(permissions.Principal); ok {
			return p
		}
	}
	return permissions.Anonymous()
}

// SessionToken returns the cookie token the request was authenticated with
func SessionToken(c *gin.Context) string {
	return c.GetString(sessionKey)
}

// SetPrincipal attaches p to the request and its logging context
func SetPrincipal(c *gin.Context, p permissions.Principal) {
	c.Set(principalKey, p)
	c.Set("user_id", p.UserID)
	c.Request = c.Request.WithContext(logger.ContextWithUserID(c.Request.Context(), p.UserID))
}

// CORS middleware для обработки CORS запросов
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, "+RequestIDHeader)

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(200)
			return
		}

		c.Next()
	}
}

// RequestID propagates or generates a request id for logs and responses
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = logger.NewRequestID()
		}

		c.Header(RequestIDHeader, id)
		c.Set("request_id", id)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

// Timeout bounds the request context
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// Logger middleware для структурированного логирования запросов
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Записываем время начала
		start := time.Now()

		// Выполняем запрос
		c.Next()

		// Логируем результат
		latency := time.Since(start)

		logFields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status_code", c.Writer.Status(),
			"latency_ms", latency.Milliseconds(),
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		}

		log := logger.WithContext(c.Request.Context())
		if c.Writer.Status() >= 500 {
			if len(c.Errors) > 0 {
				logFields = append(logFields, "error", c.Errors.String())
			}
			log.Error("Request completed with error", logFields...)
			return
		}
		log.Debug("Request completed", logFields...)
	}
}

// Metrics records request counts and latency per route template
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.ObserveRequest(c.FullPath(), c.Request.Method, c.Writer.Status(), time.Since(start))
	}
}

// Recovery middleware для восстановления после паники с детальным логированием
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		// Логируем панику с максимумом информации
		slog.Error("PANIC recovered",
			"panic", recovered,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"query", c.Request.URL.RawQuery,
			"client_ip", c.ClientIP(),
			"user_agent", c.Request.UserAgent(),
		)

		// Отправляем правильный HTTP ответ клиенту
		if !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusInternalServerError, models.ErrorResponse{
				Error: "Internal server error",
			})
		}
	})
}

// Session attaches the principal from the session cookie or, failing that, from
// HTTP Basic Auth. Requests without credentials continue as anonymous; wrong
// Basic Auth credentials are rejected.
func Session(auth Authenticator, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if token, err := c.Cookie(cookieName); err == nil && token != "" {
			session, err := auth.ResolveSession(ctx, token)
			switch {
			case err == nil:
				c.Set(sessionKey, token)
				SetPrincipal(c, permissions.NewPrincipal(session.UserID, session.Username, session.Groups))
				c.Next()
				return
			case !errors.Is(err, apperrors.ErrNotFound):
				logger.WithContext(ctx).Warn("Session lookup failed", "error", err)
			}
		}

		username, password, ok := c.Request.BasicAuth()
		if ok {
			user, err := auth.Authenticate(ctx, username, password)
			if err != nil {
				if !errors.Is(err, apperrors.ErrInvalidCredentials) {
					logger.WithContext(ctx).Error("Basic auth failed", "error", err)
				}
				c.Header("WWW-Authenticate", "Basic realm=\"Restricted\"")
				c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
					Error:   "credenciales_invalidas",
					Message: "Usuario o contraseña incorrectos. Por favor, inténtalo de nuevo.",
				})
				return
			}
			SetPrincipal(c, permissions.NewPrincipal(user.UserID, user.Username, user.Groups))
		}

		c.Next()
	}
}

// RequireLogin rejects anonymous callers with the login URL to redirect to
func RequireLogin(loginURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if PrincipalFromContext(c).IsAuthenticated() {
			c.Next()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:    "no_autenticado",
			Message:  "Debes iniciar sesión para acceder a esta página.",
			LoginURL: LoginRedirect(loginURL, c.Request.URL.RequestURI()),
		})
	}
}

// LoginRedirect builds loginURL?next=<path>
func LoginRedirect(loginURL, next string) string {
	return loginURL + "?next=" + url.QueryEscape(next)
}
