package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sine-io/stremio-addons/internal/config"
	"github.com/sine-io/stremio-addons/internal/console"
)

var (
	configPath string
	host       string
	port       int
	proxyURL   string
	endpoint   string
	locale     string
	timeout    time.Duration
	debug      bool

	originCheck   bool
	publicOrigins []string
	trustProxy    bool
)

var rootCmd = &cobra.Command{
	Use:   "stremio-addons",
	Short: "Web page listing a Stremio account's add-ons sorted by name",
	Long: `stremio-addons serves a sign-in form. After signing in with a Stremio
account it lists the account's installed add-ons in alphabetical order.

Settings come from an optional YAML file (--config), then the environment
(PORT, PROXY_URL, ...), then flags.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServer,
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.Flags().StringVar(&host, "host", "", "Interface to bind (default: all)")
	rootCmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "Port to listen on (or set PORT env)")
	rootCmd.Flags().StringVar(&proxyURL, "proxy", "", "Proxy for Stremio API requests (or set PROXY_URL env)")
	rootCmd.Flags().StringVar(&endpoint, "endpoint", config.DefaultEndpoint, "Stremio API endpoint")
	rootCmd.Flags().StringVar(&locale, "locale", config.DefaultLocale, "Locale used to sort add-on names")
	rootCmd.Flags().DurationVar(&timeout, "timeout", config.DefaultTimeout, "Timeout for each Stremio API request")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "Enable debug logging")
	rootCmd.Flags().BoolVar(&originCheck, "origin-check", true, "Reject sign-in posts from other sites (or set ORIGIN_CHECK env)")
	rootCmd.Flags().StringSliceVar(&publicOrigins, "public-origin", nil, "Origin the sign-in page is served from, e.g. https://addons.example.com (or set PUBLIC_ORIGINS env)")
	rootCmd.Flags().BoolVar(&trustProxy, "trust-proxy", false, "Accept the X-Forwarded-Host header from a reverse proxy (or set TRUST_PROXY env)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	if cfg.ProxyURL == "" {
		logger.Warn("PROXY_URL not set, Stremio API requests will be made directly")
	}

	if !cfg.OriginCheck {
		logger.Warn("origin check disabled, cross-site sign-in posts will be accepted")
	}

	factory, err := console.NewStremioClientFactory(console.StremioClientConfig{
		Endpoint: cfg.Endpoint,
		ProxyURL: cfg.ProxyURL,
		Timeout:  cfg.Timeout,
		Logger:   logger.Named("stremio"),
	})
	if err != nil {
		return err
	}
	catalog, err := console.NewCatalog(console.CatalogConfig{
		NewClient: factory,
		Locale:    cfg.LanguageTag(),
		Proxied:   cfg.ProxyURL != "",
		Logger:    logger.Named("catalog"),
	})
	if err != nil {
		return err
	}

	listener, baseURL, err := console.Listen(cfg.Host, cfg.Port)
	if err != nil {
		return fmt.Errorf("startup error: %w", err)
	}
	logger.Info("server listening", zap.String("url", baseURL), zap.Int("port", cfg.Port))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := console.NewHandler(console.ServerConfig{
		Catalog: catalog,
		Origins: console.OriginConfig{
			Disabled:           !cfg.OriginCheck,
			AllowedOrigins:     cfg.PublicOrigins,
			TrustForwardedHost: cfg.TrustProxy,
		},
		Logger: logger,
	})
	return console.Serve(ctx, listener, handler, logger)
}

// applyFlags overrides file and environment settings with flags given
// explicitly on the command line.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = host
	}
	if flags.Changed("port") {
		cfg.Port = port
	}
	if flags.Changed("proxy") {
		cfg.ProxyURL = proxyURL
	}
	if flags.Changed("endpoint") {
		cfg.Endpoint = endpoint
	}
	if flags.Changed("locale") {
		cfg.Locale = locale
	}
	if flags.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if flags.Changed("debug") {
		cfg.Debug = debug
	}
	if flags.Changed("origin-check") {
		cfg.OriginCheck = originCheck
	}
	if flags.Changed("public-origin") {
		cfg.PublicOrigins = publicOrigins
	}
	if flags.Changed("trust-proxy") {
		cfg.TrustProxy = trustProxy
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if debug {
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zcfg.Build()
}
