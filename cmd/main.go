package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"cdnheaders/internal/config"
	httpserver "cdnheaders/internal/server/http"
	"cdnheaders/pkg/cache"
	"cdnheaders/pkg/cdnheaders"
	"cdnheaders/pkg/cfg"
	"cdnheaders/pkg/logger"
	"cdnheaders/pkg/telemetry"
)

const defaultConfigPath = "config.yaml"

func main() {
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "cdnheaders",
		Short:        "Edge cache headers for dynamic HTML responses",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringP("config", "c", cfg.String("APP_CONFIG", defaultConfigPath), "Path to configuration file (YAML)")

	root.AddCommand(newServeCmd(), newStatusCmd(), newTestCmd(), newClearCmd())
	return root
}

// configPath returns the config file to load. A missing default file means
// the configuration comes from the environment alone.
func configPath(cmd *cobra.Command) (string, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return "", fmt.Errorf("failed to get config flag: %w", err)
	}
	if _, statErr := os.Stat(path); statErr != nil && !cmd.Flags().Changed("config") && os.Getenv("APP_CONFIG") == "" {
		return "", nil
	}
	return path, nil
}

func loadConfig(cmd *cobra.Command) (*config.FinalConfig, string, error) {
	path, err := configPath(cmd)
	if err != nil {
		return nil, "", err
	}
	conf, err := config.Build(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to build config: %w", err)
	}
	return conf, path, nil
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway with the CDN header middleware",
		RunE:  runServe,
	}
	cmd.Flags().BoolP("watch", "w", cfg.Bool("CONFIG_WATCH", false), "Reload CDN rules when the config file changes")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	env := cfg.String("APP_ENV", "dev")
	log, cleanup := logger.Setup(env, cfg.String("LOG_LEVEL", "info"))
	defer cleanup()

	conf, path, err := loadConfig(cmd)
	if err != nil {
		log.Error().Err(err).Msg("config")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupProvider(ctx, telemetry.Config{
		ServiceName: conf.Telemetry.ServiceName,
		Endpoint:    conf.Telemetry.Endpoint,
		Environment: env,
		Insecure:    conf.Telemetry.Insecure,
	})
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	store, err := cache.Open(ctx, cache.Config{
		Driver:   conf.Cache.Driver,
		Addr:     fmt.Sprintf("%s:%d", conf.Cache.Host, conf.Cache.Port),
		Password: conf.Cache.Pass,
		DB:       conf.Cache.Db,
		Prefix:   "cdnheaders",
	})
	if err != nil {
		return fmt.Errorf("failed to init token store: %w", err)
	}
	defer store.Close()

	newEngine := func(c cdnheaders.Config) *cdnheaders.Engine {
		return cdnheaders.New(c, cdnheaders.WithLogger(logger.New("cdnheaders")))
	}
	engines := cdnheaders.NewHolder(newEngine(conf.CDN))

	srv := httpserver.New(conf, httpserver.Deps{
		Engines: engines,
		Tokens:  cache.New(store, "cdnheaders:csrf", 0),
		Client:  telemetry.HTTPClient(0),
		Log:     log,
	})

	var jobs []func(context.Context) error
	if watch, _ := cmd.Flags().GetBool("watch"); watch && path != "" {
		w, err := config.NewWatcher(path, log, func(fc *config.FinalConfig) {
			engines.Swap(newEngine(fc.CDN))
		})
		if err != nil {
			return err
		}
		jobs = append(jobs, w.Run)
	}

	if err := srv.Start(ctx, jobs...); err != nil {
		log.Error().Err(err).Msg("server error")
		return err
	}
	return nil
}
