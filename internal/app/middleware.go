package app

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"

	"github.com/odyssey-erp/crudkit/internal/observability"
	"github.com/odyssey-erp/crudkit/internal/shared"
	"github.com/odyssey-erp/crudkit/internal/urls"
)

const (
	defaultRequestTimeout = 30 * time.Second
	defaultRateLimit      = 60
)

// MiddlewareConfig aggregates dependencies shared by the middleware stack.
type MiddlewareConfig struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	Metrics        *observability.Metrics
}

// MiddlewareStack returns the chain in the order it runs.
func MiddlewareStack(cfg MiddlewareConfig) []func(http.Handler) http.Handler {
	timeout, rateLimit := defaultRequestTimeout, defaultRateLimit
	if c := cfg.Config; c != nil {
		if c.AppRequestTimeout > 0 {
			timeout = c.AppRequestTimeout
		}
		if c.RateLimit > 0 {
			rateLimit = c.RateLimit
		}
	}
	chain := []func(http.Handler) http.Handler{
		middleware.RealIP,
		middleware.RequestID,
		loadSession(cfg.SessionManager, cfg.Logger),
		middleware.Recoverer,
		middleware.Timeout(timeout),
		secureHeaders(cfg.Config, cfg.Logger),
		middleware.Compress(5),
		httprate.Limit(rateLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)),
		requireLogin(cfg.Config),
		verifyCSRF(cfg.CSRFManager, cfg.Logger),
	}
	if cfg.Metrics != nil {
		chain = append(chain, cfg.Metrics.Middleware)
	}
	return chain
}

// loadSession attaches the request session to the context and commits it before the first
// header write, so flashes queued by a handler survive its redirect.
func loadSession(sm *shared.SessionManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sm.Load(r.Context(), r)
			if err != nil {
				logger.Error("load session", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			r = r.WithContext(shared.ContextWithSession(r.Context(), sess))
			sw := &sessionWriter{ResponseWriter: w, commitFn: func() {
				if err := sm.Commit(context.WithoutCancel(r.Context()), w, r, sess); err != nil {
					logger.Error("commit session", slog.Any("error", err))
				}
			}}
			next.ServeHTTP(sw, r)
			sw.commit()
		})
	}
}

// sessionWriter runs commitFn once, right before headers go out.
type sessionWriter struct {
	http.ResponseWriter
	commitFn  func()
	committed bool
}

func (w *sessionWriter) commit() {
	if !w.committed {
		w.committed = true
		w.commitFn()
	}
}

func (w *sessionWriter) WriteHeader(status int) {
	w.commit()
	w.ResponseWriter.WriteHeader(status)
}

func (w *sessionWriter) Write(p []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(p)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *sessionWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func secureHeaders(cfg *Config, logger *slog.Logger) func(http.Handler) http.Handler {
	sm := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		FeaturePolicy:         "none",
		ContentSecurityPolicy: "default-src 'self'",
		SSLRedirect:           cfg.IsProduction(),
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
	})
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := sm.Process(w, r); err != nil {
				logger.Warn("secure headers blocked request", slog.String("host", r.Host), slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireLogin sends anonymous visitors to LOGIN_URL with a next parameter when AUTH_REQUIRED
// is set.
func requireLogin(cfg *Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if cfg == nil || !cfg.AuthRequired {
			return next
		}
		loginPath := urls.RemoveQueryString(cfg.LoginURL)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPath(loginPath, r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if sess := shared.SessionFromContext(r.Context()); sess == nil || sess.User() == "" {
				http.Redirect(w, r, urls.ConcatNextURL(cfg.LoginURL, r.URL.RequestURI()), http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// publicPath reports paths served without a login.
func publicPath(loginPath, path string) bool {
	switch {
	case path == "/healthz", path == "/metrics", strings.HasPrefix(path, "/static/"):
		return true
	case loginPath != "" && strings.HasPrefix(path, loginPath):
		return true
	}
	return false
}

// verifyCSRF rejects unsafe requests whose form field or X-CSRF-Token header does not carry a
// token issued for the session.
func verifyCSRF(m *shared.CSRFManager, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
				next.ServeHTTP(w, r)
				return
			}
			token := r.Header.Get(shared.CSRFHeader)
			if token == "" {
				token = r.PostFormValue(shared.CSRFFormField)
			}
			if err := m.VerifyToken(shared.SessionFromContext(r.Context()), token); err != nil {
				logger.Warn("csrf validation failed", slog.String("path", r.URL.Path), slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
