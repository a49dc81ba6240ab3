package console

import (
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

type OriginConfig struct {
	// Disabled turns the check off entirely.
	Disabled bool
	// AllowedOrigins are accepted regardless of the request host, e.g.
	// "https://addons.example.com" when served behind a reverse proxy.
	AllowedOrigins []string
	// TrustForwardedHost also accepts an Origin matching X-Forwarded-Host.
	TrustForwardedHost bool
	Logger             *zap.Logger
}

// RequireSameOrigin rejects form posts sent from another site. A POST whose
// Origin header names neither an allowed origin nor the request's own host
// is answered with 403. Requests without an Origin header, or with the
// opaque "null" origin browsers send under a no-referrer policy, pass through.
func RequireSameOrigin(next http.Handler, cfg OriginConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Disabled {
		return next
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		if o := normalizeOrigin(origin); o != "" {
			allowed[o] = struct{}{}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}

		origin := r.Header.Get("Origin")
		if origin == "" || origin == "null" {
			next.ServeHTTP(w, r)
			return
		}

		if _, ok := allowed[normalizeOrigin(origin)]; ok {
			next.ServeHTTP(w, r)
			return
		}
		if sameHost(origin, r.Host) {
			next.ServeHTTP(w, r)
			return
		}
		forwarded := forwardedHost(r)
		if cfg.TrustForwardedHost && forwarded != "" && sameHost(origin, forwarded) {
			next.ServeHTTP(w, r)
			return
		}

		logger.Warn("cross-origin post rejected",
			zap.String("request_id", RequestIDFromContext(r.Context())),
			zap.String("origin", origin),
			zap.String("host", r.Host),
			zap.String("forwarded_host", forwarded),
		)
		writeErrorPage(w, logger, http.StatusForbidden, ErrorPageData{
			Title:   "Forbidden",
			Heading: "Request refused",
			Message: "The form was submitted from a different site.",
			Hint:    "Open the sign-in page served by this server and retry. Operators behind a reverse proxy can set PUBLIC_ORIGINS or TRUST_PROXY.",
		})
	})
}

// forwardedHost returns the first host of X-Forwarded-Host.
func forwardedHost(r *http.Request) string {
	v := r.Header.Get("X-Forwarded-Host")
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

func normalizeOrigin(origin string) string {
	u, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return strings.ToLower(u.Scheme + "://" + u.Host)
}

func sameHost(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	return strings.EqualFold(u.Host, host)
}
