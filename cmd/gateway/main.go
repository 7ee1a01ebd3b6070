// cmd/gateway/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"vroom-gateway/internal/api"
	"vroom-gateway/internal/config"
	"vroom-gateway/internal/entity"
	"vroom-gateway/internal/metrics"
	"vroom-gateway/internal/mqtt"
	"vroom-gateway/internal/torque"
	"vroom-gateway/internal/websocket"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "vroom-gateway: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// --- Configuration ---
	flags := pflag.NewFlagSet("vroom-gateway", pflag.ExitOnError)
	configPath := flags.String("config", ".", "Path to the configuration file directory")
	flags.Int("data-port", 0, "Port for Torque uploads (overrides server.data_port)")
	flags.Int("ui-port", 0, "Port for the web UI and metrics (overrides server.ui_port)")
	flags.String("log-level", "", "debug, info, warn or error (overrides log.level)")
	flags.Parse(os.Args[1:])

	v := viper.New()
	for key, name := range map[string]string{
		"server.data_port": "data-port",
		"server.ui_port":   "ui-port",
		"log.level":        "log-level",
	} {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			return err
		}
	}

	cfg, err := config.LoadWith(v, *configPath)
	if err != nil {
		return err
	}

	logger := newLogger(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(logger)

	// --- Initialize Components ---
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	hub := websocket.NewHub(logger)
	sinks := []entity.Sink{hub}

	if cfg.MQTT.Enabled {
		client, err := mqtt.Connect(cfg.MQTT, logger)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		sinks = append(sinks, mqtt.NewDiscovery(client, cfg.MQTT, logger))
	}
	sink := entity.NewFanout(sinks...)

	receivers := make([]*torque.Receiver, 0, len(cfg.Vehicles))
	for _, veh := range cfg.Vehicles {
		rcv := torque.NewReceiver(veh.Email, veh.VehicleName, sink, m, logger)
		receivers = append(receivers, rcv)
		logger.Info("vehicle configured", "vehicle", veh.VehicleName, "path", rcv.Path(), "email_check", veh.Email != "")
	}

	apiHandler, err := api.NewAPIHandler(receivers, hub, logger)
	if err != nil {
		return err
	}

	// --- Start WebSocket Hub ---
	go hub.Run()
	defer hub.Stop()

	// --- Setup HTTP Servers ---
	dataServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.DataPort),
		Handler:           api.SetupDataRouter(apiHandler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	uiServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.UIPort),
		Handler:           api.SetupUIRouter(apiHandler, reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	for name, srv := range map[string]*http.Server{"data": dataServer, "ui": uiServer} {
		go func(name string, srv *http.Server) {
			logger.Info("starting server", "server", name, "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("%s server: %w", name, err)
			}
		}(name, srv)
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	case err = <-errCh:
		logger.Error("server failed", "error", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, srv := range []*http.Server{dataServer, uiServer} {
		if shutdownErr := srv.Shutdown(ctx); shutdownErr != nil {
			logger.Warn("server shutdown", "addr", srv.Addr, "error", shutdownErr)
		}
	}
	logger.Info("servers stopped")
	return err
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
