package main

import (
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/zerbitx/apimock/apimock"
	"github.com/zerbitx/apimock/config"
	"github.com/zerbitx/apimock/loader"
	"github.com/zerbitx/apimock/registry"
)

func main() {
	if err := newRootCommand(config.New()).Execute(); err != nil {
		os.Exit(1)
	}
}

// newRootCommand exposes the env config as flags, the environment supplying their defaults
func newRootCommand(cfg *config.Env) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "apimock",
		Short:        "Serve mocked API responses, scenario choices scoped to each client session",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Host, "host", cfg.Host, "host to listen on")
	flags.IntVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	flags.StringVar(&cfg.Mocks, "mocks", cfg.Mocks, "glob of mock definition files, ** matches directories")
	flags.StringVar(&cfg.Backend, "backend", cfg.Backend, "backend to forward unmocked requests to")
	flags.BoolVar(&cfg.StrictIdentifiers, "strict-identifiers", cfg.StrictIdentifiers, "refuse to start when mock identifiers collide")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")

	return cmd
}

func run(cfg *config.Env) error {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid log level %s: %w", cfg.LogLevel, err)
	}

	logrus.SetLevel(level)
	logrus.SetReportCaller(true)
	logger := logrus.StandardLogger()

	state, err := loadState(cfg)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"pattern": cfg.Mocks,
		"mocks":   len(state.Mocks()),
	}).Info("mocks registered")

	options := []apimock.Option{
		apimock.WithLogger(logger),
		apimock.WithHost(cfg.Host),
		apimock.WithPort(cfg.Port),
	}

	if cfg.Backend != "" {
		backend, err := url.Parse(cfg.Backend)
		if err != nil || backend.Host == "" {
			return fmt.Errorf("invalid backend %q", cfg.Backend)
		}
		options = append(options, apimock.WithBackend(backend))
	}

	server := apimock.New(state, options...)

	errc := make(chan error, 1)
	go func() {
		errc <- server.Start()
	}()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		return err
	case sig := <-signals:
		logger.WithField("signal", sig.String()).Info("shutting down")
		return server.Shutdown()
	}
}

// loadState registers every mock matched by the configured glob
func loadState(cfg *config.Env) (*registry.State, error) {
	mocks, err := loader.Load(cfg.Mocks)
	if err != nil {
		return nil, fmt.Errorf("failed to load mocks: %w", err)
	}

	state := registry.New()

	if cfg.StrictIdentifiers {
		if err := state.CheckIdentifiers(mocks...); err != nil {
			return nil, err
		}
	}

	state.RegisterMocks(mocks...)

	return state, nil
}
