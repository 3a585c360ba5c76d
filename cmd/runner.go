package main

import (
	"database/sql"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/tannerfalls/playlistdb/internal/services"
	"github.com/tannerfalls/playlistdb/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	catalog services.Catalog
	logger  *log.Logger
	output  io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	Catalog services.Catalog
	Logger  *log.Logger
	Output  io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:  opts.Config,
		catalog: opts.Catalog,
		logger:  opts.Logger,
		output:  opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, ingestCommand, queryCommand, serveCommand, statusCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the effective configuration for a command, preferring
// the --config path and falling back to the Runner's config.
func (r *Runner) loadConfig(cmd *cli.Command) *shared.Config {
	return r.loadConfigPath(cmd.String("config"), r.config)
}

func (r *Runner) loadConfigPath(path string, fallback *shared.Config) *shared.Config {
	if path == "" {
		return fallback
	}

	if _, err := os.Stat(path); err != nil {
		return fallback
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "path", path, "error", err)
		return fallback
	}
	return config
}

// openDatabase opens the configured SQLite file with the configured pool
// limits. The caller closes it.
func (r *Runner) openDatabase(config *shared.Config) (*sql.DB, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)
	return db, nil
}

// resolveCatalog returns the injected catalog or builds a Spotify client from
// configured credentials.
func (r *Runner) resolveCatalog(config *shared.Config) (services.Catalog, error) {
	if r.catalog != nil {
		return r.catalog, nil
	}

	creds := config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret", shared.ErrMissingCredentials)
	}

	return services.NewSpotifyCatalog(creds.ClientID, creds.ClientSecret)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
