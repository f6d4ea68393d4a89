package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vormiaphp/vormiaquery/internal/client"
	"github.com/vormiaphp/vormiaquery/internal/config"
	"github.com/vormiaphp/vormiaquery/internal/cryptox"
	"github.com/vormiaphp/vormiaquery/internal/events"
	"github.com/vormiaphp/vormiaquery/internal/filex"
	"github.com/vormiaphp/vormiaquery/internal/history"
	"github.com/vormiaphp/vormiaquery/internal/logging"
	"github.com/vormiaphp/vormiaquery/internal/services"
	"github.com/vormiaphp/vormiaquery/internal/storage"
)

const storeFile = "store.db"

type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

func DefaultStreams() Streams {
	return Streams{In: os.Stdin, Out: os.Stdout, Err: os.Stderr}
}

type globalFlags struct {
	configFile string
	envFile    string
	baseURL    string
	timeout    time.Duration
	verbose    bool
	output     string
	query      string
	storePath  string
}

// App holds the state shared by all commands of one invocation. The
// client is built lazily so that version and help work without config.
type App struct {
	version string
	flags   globalFlags
	streams Streams
	reader  *bufio.Reader
	lookup  config.LookupFunc

	logger  logging.Logger
	bus     *events.Bus
	client  *client.Client
	auth    services.AuthService
	queries *history.History
}

type AppOption func(*App)

// WithLookup replaces os.LookupEnv for config loading.
func WithLookup(fn config.LookupFunc) AppOption {
	return func(a *App) { a.lookup = fn }
}

func NewApp(version string, streams Streams, opts ...AppOption) *App {
	a := &App{
		version: version,
		streams: streams,
		reader:  bufio.NewReader(streams.In),
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// init loads config, opens the store and builds the client and the auth
// service. Flags override file and environment settings.
func (a *App) init(ctx context.Context, cmd *cobra.Command) error {
	if a.client != nil {
		return nil
	}

	cfg, err := config.Load(config.LoadOptions{
		File:    a.flags.configFile,
		EnvFile: a.flags.envFile,
		Lookup:  a.lookup,
	})
	if err != nil {
		return err
	}
	if a.flags.baseURL != "" {
		cfg.BaseURL = a.flags.baseURL
	}
	if cmd.Flags().Changed("timeout") {
		cfg.Timeout = a.flags.timeout
	}
	if a.flags.storePath != "" {
		cfg.StorePath = a.flags.storePath
	}
	if a.flags.verbose {
		cfg.LogLevel = "debug"
	}

	a.logger = logging.NewTextLogger(a.streams.Err, cfg.LogLevel)

	store, err := a.openStore(ctx, cfg)
	if err != nil {
		return err
	}

	a.bus = events.NewBus()
	a.bus.Subscribe(events.Unauthorized, func(context.Context, any) {
		fmt.Fprintln(a.streams.Err, "Session is no longer valid, run `vq login`.")
	})

	c, err := client.New(cfg,
		client.WithStore(store),
		client.WithLogger(a.logger),
		client.WithEvents(a.bus),
	)
	if err != nil {
		_ = store.Close()
		return err
	}

	authOpts := []services.AuthOption{
		services.WithEvents(a.bus),
		services.WithLogger(a.logger),
		services.WithEndpoints(cfg.AuthEndpoint, cfg.LogoutEndpoint),
	}
	if cfg.EncryptionKey != "" {
		key, err := cryptox.DeriveKey(cfg.EncryptionKey)
		if err != nil {
			_ = c.Close()
			return err
		}
		authOpts = append(authOpts, services.WithEncryptionKey(key))
	}

	a.client = c
	a.auth = services.NewAuthService(c, store, authOpts...)
	a.queries = history.New(store, storage.DefaultNamespace, "query", history.WithLimit(20))
	return nil
}

// openStore opens the store at cfg.StorePath: an s3:// URL selects an S3
// bucket, anything else a SQLite file (./.vq/store.db by default).
func (a *App) openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	path := cfg.StorePath
	if strings.HasPrefix(path, "s3://") {
		s3cfg, err := storage.ParseS3URL(path)
		if err != nil {
			return nil, err
		}
		api, err := storage.NewS3Client(ctx, s3cfg)
		if err != nil {
			return nil, err
		}
		a.logger.Debug(ctx, "store opened", "bucket", s3cfg.Bucket, "prefix", s3cfg.Prefix)
		return storage.NewS3Store(api, s3cfg.Bucket, s3cfg.Prefix), nil
	}

	if path == "" {
		p, err := filex.StatePath("", storeFile)
		if err != nil {
			return nil, err
		}
		path = p
	} else if path != ":memory:" {
		if err := filex.EnsureParent(path); err != nil {
			return nil, err
		}
	}

	store, err := storage.OpenSQLite(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	a.logger.Debug(ctx, "store opened", "path", path)
	return store, nil
}

// Close releases the client and its store.
func (a *App) Close() error {
	if a.client == nil {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	return err
}
