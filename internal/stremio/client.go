// Package stremio is a minimal client for the Stremio API: it signs a user in
// and pulls the user's addon collection.
package stremio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const DefaultEndpoint = "https://api.strem.io"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 8 << 20

var (
	ErrMissingCredentials = errors.New("email or password missing")
	ErrNotLoggedIn        = errors.New("not logged in")
)

type Options struct {
	Endpoint   string
	HTTPClient *http.Client
	Storage    Storage
	Logger     *zap.Logger
}

// Client talks to the Stremio API on behalf of one user.
type Client struct {
	endpoint   string
	httpClient *http.Client
	storage    Storage
	logger     *zap.Logger

	mu     sync.Mutex
	auth   *Auth
	addons *Collection
}

func New(opts Options) (*Client, error) {
	endpoint := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	storage := opts.Storage
	if storage == nil {
		storage = NopStorage{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	c := &Client{
		endpoint:   endpoint,
		httpClient: httpClient,
		storage:    storage,
		logger:     logger,
	}

	var auth Auth
	ok, err := storage.GetJSON(storageKeyAuth, &auth)
	if err != nil {
		return nil, fmt.Errorf("load stored auth: %w", err)
	}
	if ok && auth.Key != "" {
		c.auth = &auth
	}
	var addons Collection
	ok, err = storage.GetJSON(storageKeyAddons, &addons)
	if err != nil {
		return nil, fmt.Errorf("load stored addons: %w", err)
	}
	if ok {
		c.addons = &addons
	}
	return c, nil
}

// Login authenticates with email and password and keeps the session key.
func (c *Client) Login(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return ErrMissingCredentials
	}

	var res loginResult
	err := c.call(ctx, "login", loginRequest{
		Type:     "Login",
		Email:    email,
		Password: password,
	}, &res)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	if res.AuthKey == "" {
		return errors.New("login: response carried no auth key")
	}

	auth := &Auth{Key: res.AuthKey, User: res.User}
	c.mu.Lock()
	c.auth = auth
	c.mu.Unlock()

	if err := c.storage.SetJSON(storageKeyAuth, auth); err != nil {
		return fmt.Errorf("store auth: %w", err)
	}
	c.logger.Debug("logged in", zap.String("user_id", res.User.ID))
	return nil
}

// PullAddonCollection fetches the signed-in user's addon collection.
func (c *Client) PullAddonCollection(ctx context.Context) error {
	c.mu.Lock()
	auth := c.auth
	c.mu.Unlock()
	if auth == nil {
		return ErrNotLoggedIn
	}

	var res Collection
	err := c.call(ctx, "addonCollectionGet", collectionRequest{
		Type:    "AddonCollectionGet",
		AuthKey: auth.Key,
		Update:  true,
	}, &res)
	if err != nil {
		return fmt.Errorf("pull addon collection: %w", err)
	}

	c.mu.Lock()
	c.addons = &res
	c.mu.Unlock()

	if err := c.storage.SetJSON(storageKeyAddons, &res); err != nil {
		return fmt.Errorf("store addons: %w", err)
	}
	c.logger.Debug("addon collection pulled", zap.Int("count", len(res.Addons)))
	return nil
}

// Auth returns the current session, or nil before login.
func (c *Client) Auth() *Auth {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.auth
}

// Addons returns the last pulled collection, or nil if none was pulled.
func (c *Client) Addons() *Collection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addons
}

func (c *Client) call(ctx context.Context, method string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	url := c.endpoint + "/api/" + method
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return fmt.Errorf("unexpected status %s", resp.Status)
		}
		return fmt.Errorf("decode response: %w", err)
	}
	if env.Error != nil {
		return env.Error
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if len(env.Result) == 0 || string(env.Result) == "null" {
		return errors.New("empty result")
	}
	if err := json.Unmarshal(env.Result, result); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}
