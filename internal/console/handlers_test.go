package console

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/sine-io/stremio-addons/internal/stremio"
)

type fetcherFunc func(ctx context.Context, creds Credentials) ([]stremio.Descriptor, error)

func (f fetcherFunc) FetchSortedAddons(ctx context.Context, creds Credentials) ([]stremio.Descriptor, error) {
	return f(ctx, creds)
}

func postForm(t *testing.T, h http.Handler, form url.Values, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "http://127.0.0.1:3000/addons", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func parseHTML(t *testing.T, body []byte) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	require.NoError(t, err)
	return doc
}

func creds(email, password string) url.Values {
	return url.Values{"email": {email}, "password": {password}}
}

func TestIndexHandler_RendersLoginForm(t *testing.T) {
	h := NewHandler(ServerConfig{Catalog: fetcherFunc(nil)})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://127.0.0.1:3000/", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/html; charset=utf-8", rr.Header().Get("Content-Type"))

	doc := parseHTML(t, rr.Body.Bytes())
	form := doc.Find("form")
	require.Equal(t, 1, form.Length())
	action, _ := form.Attr("action")
	method, _ := form.Attr("method")
	assert.Equal(t, "/addons", action)
	assert.Equal(t, "POST", method)

	email := doc.Find("input[name=email]")
	typ, _ := email.Attr("type")
	assert.Equal(t, "email", typ)
	_, required := email.Attr("required")
	assert.True(t, required)

	password := doc.Find("input[name=password]")
	typ, _ = password.Attr("type")
	assert.Equal(t, "password", typ)
}

func TestIndexHandler_UnknownPathIs404(t *testing.T) {
	h := NewHandler(ServerConfig{Catalog: fetcherFunc(nil)})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://127.0.0.1:3000/nope", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAddonsHandler_ListsSortedAddons(t *testing.T) {
	catalog, err := NewCatalog(CatalogConfig{
		NewClient: func() (AddonClient, error) {
			addons := descriptors("Zeta", "alpha", "Beta")
			addons[1].Manifest.Description = "First <b>addon</b>"
			return &fakeClient{collection: &stremio.Collection{Addons: addons}}, nil
		},
	})
	require.NoError(t, err)
	h := NewHandler(ServerConfig{Catalog: catalog})

	rr := postForm(t, h, creds("user@example.com", "secret"), nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get(requestIDHeader))

	doc := parseHTML(t, rr.Body.Bytes())
	var names, descs []string
	doc.Find("ul.addons li").Each(func(_ int, s *goquery.Selection) {
		names = append(names, s.Find("strong").Text())
		descs = append(descs, s.Find("p").Text())
	})
	assert.Equal(t, []string{"alpha", "Beta", "Zeta"}, names)
	assert.Equal(t, []string{"First <b>addon</b>", "No description", "No description"}, descs)
	assert.Zero(t, doc.Find("li b").Length(), "descriptions must be escaped")
	assert.Zero(t, doc.Find(".no-addons").Length())

	href, _ := doc.Find("a").Attr("href")
	assert.Equal(t, "/", href)
}

func TestAddonsHandler_NoAddonsMessage(t *testing.T) {
	h := NewHandler(ServerConfig{Catalog: fetcherFunc(func(context.Context, Credentials) ([]stremio.Descriptor, error) {
		return []stremio.Descriptor{}, nil
	})})

	rr := postForm(t, h, creds("user@example.com", "secret"), nil)
	require.Equal(t, http.StatusOK, rr.Code)

	doc := parseHTML(t, rr.Body.Bytes())
	assert.Zero(t, doc.Find("ul").Length())
	assert.Equal(t, "No add-ons found for this account.", doc.Find("p.no-addons").Text())
}

func TestAddonsHandler_LoginFailureIs401(t *testing.T) {
	core, logs := observer.New(zapcore.ErrorLevel)
	h := NewHandler(ServerConfig{
		Catalog: fetcherFunc(func(context.Context, Credentials) ([]stremio.Descriptor, error) {
			return nil, &stremio.APIError{Code: 3, Message: "Wrong password"}
		}),
		Logger: zap.New(core),
	})

	rr := postForm(t, h, creds("user@example.com", "bad"), nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	doc := parseHTML(t, rr.Body.Bytes())
	assert.Equal(t, "Sign-in error", doc.Find("h1").Text())
	assert.Contains(t, doc.Find("p.message").Text(), loginFailedMessage)
	assert.Equal(t, "Technical detail: stremio api: Wrong password (code 3)", doc.Find("i.detail").Text())
	assert.Zero(t, doc.Find("ul").Length())
	assert.Zero(t, doc.Find(".no-addons").Length())

	entries := logs.FilterMessage("login failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "user@example.com", entries[0].ContextMap()["email"])
	assert.Contains(t, entries[0].ContextMap()["error"], "Wrong password")
	assert.NotEmpty(t, entries[0].ContextMap()["request_id"])
}

func TestAddonsHandler_MissingCredentialsIs401WithoutNetwork(t *testing.T) {
	var calls int
	catalog, err := NewCatalog(CatalogConfig{
		NewClient: func() (AddonClient, error) {
			calls++
			return &fakeClient{}, nil
		},
	})
	require.NoError(t, err)
	h := NewHandler(ServerConfig{Catalog: catalog})

	for _, form := range []url.Values{creds("", "secret"), creds("user@example.com", ""), {}} {
		rr := postForm(t, h, form, nil)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		doc := parseHTML(t, rr.Body.Bytes())
		assert.Contains(t, doc.Find("i.detail").Text(), ErrMissingCredentials.Error())
	}
	assert.Zero(t, calls)
}

func TestAddonsHandler_MethodNotAllowed(t *testing.T) {
	h := AddonsHandler(AddonsConfig{Catalog: fetcherFunc(nil)})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://127.0.0.1:3000/addons", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
	assert.Equal(t, http.MethodPost, rr.Header().Get("Allow"))
}

func TestAddonsHandler_PassesRequestContext(t *testing.T) {
	var gotID string
	h := NewHandler(ServerConfig{Catalog: fetcherFunc(func(ctx context.Context, _ Credentials) ([]stremio.Descriptor, error) {
		gotID = RequestIDFromContext(ctx)
		return nil, errors.New("offline")
	})})

	rr := postForm(t, h, creds("a@b.c", "pw"), nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.NotEmpty(t, gotID)
	assert.Equal(t, rr.Header().Get(requestIDHeader), gotID)
}

func TestRequireSameOrigin(t *testing.T) {
	ok := fetcherFunc(func(context.Context, Credentials) ([]stremio.Descriptor, error) {
		return []stremio.Descriptor{}, nil
	})
	h := NewHandler(ServerConfig{Catalog: ok})

	tests := []struct {
		name   string
		origin string
		want   int
	}{
		{name: "no origin", origin: "", want: http.StatusOK},
		{name: "same origin", origin: "http://127.0.0.1:3000", want: http.StatusOK},
		{name: "other site", origin: "https://evil.example", want: http.StatusForbidden},
		{name: "same host other port", origin: "http://127.0.0.1:4000", want: http.StatusForbidden},
		{name: "opaque origin from no-referrer page", origin: "null", want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			rr := postForm(t, h, creds("a@b.c", "pw"), header)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
			if tt.want == http.StatusForbidden {
				doc := parseHTML(t, rr.Body.Bytes())
				assert.Equal(t, "Request refused", doc.Find("h1").Text())
				assert.NotEmpty(t, doc.Find("p.hint").Text())
			}
		})
	}
}

func TestRequireSameOrigin_BehindReverseProxy(t *testing.T) {
	ok := fetcherFunc(func(context.Context, Credentials) ([]stremio.Descriptor, error) {
		return []stremio.Descriptor{}, nil
	})
	proxied := http.Header{}
	proxied.Set("Origin", "https://addons.example.com")
	proxied.Set("X-Forwarded-Host", "addons.example.com, 10.0.0.5")

	tests := []struct {
		name    string
		origins OriginConfig
		want    int
	}{
		{name: "defaults reject rewritten host", want: http.StatusForbidden},
		{name: "public origin allowed", origins: OriginConfig{AllowedOrigins: []string{"HTTPS://Addons.Example.com/"}}, want: http.StatusOK},
		{name: "other public origin", origins: OriginConfig{AllowedOrigins: []string{"https://other.example.com"}}, want: http.StatusForbidden},
		{name: "trusted forwarded host", origins: OriginConfig{TrustForwardedHost: true}, want: http.StatusOK},
		{name: "check disabled", origins: OriginConfig{Disabled: true}, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(ServerConfig{Catalog: ok, Origins: tt.origins})
			rr := postForm(t, h, creds("a@b.c", "pw"), proxied)
			assert.Equal(t, tt.want, rr.Code, rr.Body.String())
		})
	}
}

func TestRequireSameOrigin_ForwardedHostIgnoredUnlessTrusted(t *testing.T) {
	h := NewHandler(ServerConfig{Catalog: fetcherFunc(nil)})

	header := http.Header{}
	header.Set("Origin", "https://evil.example")
	header.Set("X-Forwarded-Host", "evil.example")
	rr := postForm(t, h, creds("a@b.c", "pw"), header)
	assert.Equal(t, http.StatusForbidden, rr.Code)
}

func TestAddonsHandler_LogsTrimmedEmail(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	catalog, err := NewCatalog(CatalogConfig{
		NewClient: func() (AddonClient, error) {
			return &fakeClient{loginErr: errors.New("offline")}, nil
		},
		Logger: zap.New(core),
	})
	require.NoError(t, err)
	h := NewHandler(ServerConfig{Catalog: catalog, Logger: zap.New(core)})

	rr := postForm(t, h, creds("  user@example.com ", "pw"), nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)

	for _, msg := range []string{"attempting login", "login failed"} {
		entries := logs.FilterMessage(msg).All()
		require.Len(t, entries, 1, msg)
		assert.Equal(t, "user@example.com", entries[0].ContextMap()["email"], msg)
	}
}

func TestHealthHandler(t *testing.T) {
	h := NewHandler(ServerConfig{Catalog: fetcherFunc(nil)})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://127.0.0.1:3000/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", rr.Body.String())
}

func TestLogRequests_RecordsStatus(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := LogRequests(zap.New(core), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "http://127.0.0.1:3000/x", nil))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.EqualValues(t, http.StatusTeapot, fields["status"])
	assert.Equal(t, "/x", fields["path"])
	assert.Equal(t, rr.Header().Get(requestIDHeader), fields["request_id"])
}
