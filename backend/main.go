package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cognitory/backend/config"
	"cognitory/backend/models"
	"cognitory/backend/routes"
	"cognitory/backend/services"
	"cognitory/backend/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

var rootCommand = &cobra.Command{
	Use:   "cognitory",
	Short: "Run the Cognitory API server",
	Run: func(cmd *cobra.Command, args []string) {
		if err := serve(); err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
			os.Exit(1)
		}
	},
}

func main() {
	rootCommand.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the API server (default)",
		Run:   rootCommand.Run,
	})
	addMigrateCommand(rootCommand)
	addUserCommands(rootCommand)

	if err := rootCommand.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads config, the logger and the database shared by every command.
func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("error loading config: %w", err)
	}
	logger := utils.InitLogger(utils.LoggerConfig{
		Format:       cfg.LogFormat,
		Level:        cfg.LogLevel,
		EnableColors: cfg.LogFormat != "json",
	})
	return cfg, logger, nil
}

func serve() error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	// Initialize database
	db, err := utils.InitDB(cfg)
	if err != nil {
		return err
	}
	defer utils.CloseDB(db, logger)
	if err := models.Migrate(db); err != nil {
		return fmt.Errorf("error migrating database: %w", err)
	}

	storage, err := services.NewS3Storage(context.Background(), cfg.Storage)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	app := routes.NewApp(routes.Deps{
		DB:      db,
		Cfg:     cfg,
		Mailer:  services.NewSMTPMailer(cfg.SMTP),
		Storage: storage,
	}, logger, reg)

	served := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.ServerPort).Msg("Serving the API")
		served <- app.Listen(":" + cfg.ServerPort)
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-served:
		return err
	case <-signals:
		logger.Info().Msg("Shutting down the API")
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn().Err(err).Msg("Server did not shut down gracefully")
	}
	return nil
}
