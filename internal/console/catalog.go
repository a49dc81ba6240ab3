package console

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/sine-io/stremio-addons/internal/stremio"
)

// ErrMissingCredentials is returned before any network access when the email
// or the password is empty.
var ErrMissingCredentials = stremio.ErrMissingCredentials

type Credentials struct {
	Email    string
	Password string
}

// AddonClient is the part of the Stremio client the catalog needs.
type AddonClient interface {
	Login(ctx context.Context, email, password string) error
	PullAddonCollection(ctx context.Context) error
	Addons() *stremio.Collection
}

// ClientFactory builds a fresh client for one request.
type ClientFactory func() (AddonClient, error)

type StremioClientConfig struct {
	Endpoint string
	ProxyURL string
	Timeout  time.Duration
	Logger   *zap.Logger
}

// NewStremioClientFactory returns a factory producing API clients that share
// one proxy-aware HTTP client and never persist state between requests.
func NewStremioClientFactory(cfg StremioClientConfig) (ClientFactory, error) {
	httpClient, err := stremio.NewHTTPClient(cfg.ProxyURL, cfg.Timeout)
	if err != nil {
		return nil, err
	}
	return func() (AddonClient, error) {
		client, err := stremio.New(stremio.Options{
			Endpoint:   cfg.Endpoint,
			HTTPClient: httpClient,
			Storage:    stremio.NopStorage{},
			Logger:     cfg.Logger,
		})
		if err != nil {
			return nil, err
		}
		return client, nil
	}, nil
}

type CatalogConfig struct {
	NewClient ClientFactory
	Locale    language.Tag
	Proxied   bool
	Logger    *zap.Logger
}

// Catalog signs users in and returns their addons sorted by name.
type Catalog struct {
	newClient ClientFactory
	locale    language.Tag
	proxied   bool
	logger    *zap.Logger
}

func NewCatalog(cfg CatalogConfig) (*Catalog, error) {
	if cfg.NewClient == nil {
		return nil, fmt.Errorf("catalog requires a client factory")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Catalog{
		newClient: cfg.NewClient,
		locale:    cfg.Locale,
		proxied:   cfg.Proxied,
		logger:    logger,
	}, nil
}

// FetchSortedAddons logs in with creds, pulls the addon collection and
// returns it sorted by name. A user without addons yields an empty slice.
func (c *Catalog) FetchSortedAddons(ctx context.Context, creds Credentials) ([]stremio.Descriptor, error) {
	email := strings.TrimSpace(creds.Email)
	if email == "" || creds.Password == "" {
		return nil, ErrMissingCredentials
	}

	logger := c.logger.With(zap.String("email", email), zap.String("request_id", RequestIDFromContext(ctx)))

	client, err := c.newClient()
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}

	logger.Info("attempting login", zap.Bool("proxied", c.proxied))
	if err := client.Login(ctx, email, creds.Password); err != nil {
		return nil, err
	}

	logger.Info("logged in, pulling addon collection")
	if err := client.PullAddonCollection(ctx); err != nil {
		return nil, err
	}

	collection := client.Addons()
	if collection == nil || collection.Addons == nil {
		logger.Info("no addons found or invalid collection data")
		return []stremio.Descriptor{}, nil
	}

	logger.Info("addons found", zap.Int("count", len(collection.Addons)))
	sorted := SortAddons(collection.Addons, c.locale)
	logger.Debug("addons sorted", zap.Strings("names", addonNames(sorted)))
	return sorted, nil
}
