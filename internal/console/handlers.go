package console

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/sine-io/stremio-addons/internal/stremio"
)

const loginFailedMessage = "Unable to sign in. Check your credentials and try again."

// AddonFetcher returns a user's addons sorted by name.
type AddonFetcher interface {
	FetchSortedAddons(ctx context.Context, creds Credentials) ([]stremio.Descriptor, error)
}

type AddonsConfig struct {
	Catalog AddonFetcher
	Logger  *zap.Logger
}

func IndexHandler(logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		htmlBytes, err := RenderLoginHTML()
		if err != nil {
			logger.Warn("failed to render login page", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeHTML(w, http.StatusOK, htmlBytes)
	}
}

// AddonsHandler signs the user in with the posted email and password and
// renders their addons. Any failure is answered with 401 and the error page.
func AddonsHandler(cfg AddonsConfig) http.HandlerFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		creds := Credentials{
			Email:    strings.TrimSpace(r.PostFormValue("email")),
			Password: r.PostFormValue("password"),
		}

		addons, err := cfg.Catalog.FetchSortedAddons(r.Context(), creds)
		if err != nil {
			logger.Error("login failed",
				zap.String("request_id", RequestIDFromContext(r.Context())),
				zap.String("email", creds.Email),
				zap.Error(err),
			)
			writeErrorPage(w, logger, http.StatusUnauthorized, ErrorPageData{
				Title:   "Error",
				Heading: "Sign-in error",
				Message: loginFailedMessage,
				Detail:  err.Error(),
			})
			return
		}

		htmlBytes, err := RenderAddonsHTML(AddonsPageData{Addons: addons})
		if err != nil {
			logger.Warn("failed to render addons page", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		writeHTML(w, http.StatusOK, htmlBytes)
	}
}

func HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	}
}

func writeErrorPage(w http.ResponseWriter, logger *zap.Logger, status int, data ErrorPageData) {
	htmlBytes, err := RenderErrorHTML(data)
	if err != nil {
		logger.Warn("failed to render error page", zap.Error(err))
		http.Error(w, data.Message, status)
		return
	}
	writeHTML(w, status, htmlBytes)
}

func writeHTML(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
