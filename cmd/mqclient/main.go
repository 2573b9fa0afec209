package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/benmeehan/mqclient/internal/callback"
	"github.com/benmeehan/mqclient/internal/utils"
	"github.com/benmeehan/mqclient/pkg/file"
	"github.com/benmeehan/mqclient/pkg/mqtt"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(runWithSignals(os.Args[1:], os.Stdout))
}

// runWithSignals runs until SIGINT or SIGTERM. The signal handlers are
// released before it returns so os.Exit never skips the cleanup.
func runWithSignals(args []string, out io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return run(ctx, args, out)
}

// run wires the client from configuration and blocks until ctx is done.
// It returns the process exit code.
func run(ctx context.Context, args []string, out io.Writer) int {
	fs := pflag.NewFlagSet("mqclient", pflag.ContinueOnError)
	fs.SetOutput(out)
	configPath := fs.String("config", "configs/config.yaml", "Path to the YAML configuration file")
	overrides := utils.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return 2
	}

	fileClient := file.NewFileService()

	// Load configuration from file
	config, err := utils.LoadConfig(*configPath, fileClient)
	if err != nil {
		fmt.Fprintf(out, "failed to load configuration: %v\n", err)
		return 1
	}
	config.ApplyEnv()
	overrides.Apply(config)

	logger := utils.NewLogger(out, config.Logging.Level, config.Logging.Format)

	if config.MQTT.UniqueClientID && config.MQTT.ClientID != "" {
		config.MQTT.ClientID = config.MQTT.ClientID + "-" + uuid.New().String()
	}
	logger.Info().Str("client_id", config.MQTT.ClientID).Str("broker", config.MQTT.BrokerURL).
		Msg("Using MQTT configuration")

	client := mqtt.NewMqttService(config.MQTT, fileClient, callback.NewLoggingCallback(logger), logger)
	return serve(ctx, client, logger)
}

// serve runs the client lifecycle: initialize on entry, disconnect on every
// exit path including a failed startup.
func serve(ctx context.Context, client mqtt.Wrapper, logger zerolog.Logger) int {
	defer func() {
		_ = client.Disconnect()
	}()

	if err := client.Initialize(); err != nil {
		logger.Error().Err(err).Msg("Failed to initialize MQTT client")
		return 1
	}
	logger.Info().Msg("MQTT client started")

	<-ctx.Done()

	logger.Info().Msg("Shutting down gracefully...")
	return 0
}
