package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/phototrip/phototrip/internal/api"
	"github.com/phototrip/phototrip/internal/config"
	"github.com/phototrip/phototrip/internal/controller"
	"github.com/phototrip/phototrip/internal/dispatcher"
	"github.com/phototrip/phototrip/internal/influx"
	"github.com/phototrip/phototrip/internal/logging"
	"github.com/phototrip/phototrip/internal/monitor"
	"github.com/phototrip/phototrip/internal/player"
	"github.com/phototrip/phototrip/internal/session"
	"github.com/phototrip/phototrip/internal/websocket"
	"github.com/phototrip/phototrip/pkg/streaming"
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the map, the trip player and the HTTP API",
		RunE:  runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().String("source", "", "Manifest path or URL (overrides manifest.source)")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("manifest.source", cmd.Flags().Lookup("source"))

	rootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sess := session.NewContext()
	logFile, err := setupLogging(true, func() []slog.Attr {
		s := sess.Get()
		return []slog.Attr{
			slog.Uint64("generation", s.Generation),
			slog.String("phase", s.Player.Phase.String()),
		}
	})
	if err != nil {
		return err
	}
	defer logFile.Close()
	Logger.Info("Starting up...", "version", CurrentVersion, "build", BuildDate)

	zl := newZerolog()
	trip := config.GetTripConfig()

	loop, err := dispatcher.New(
		logging.NewDispatcherLogger(zl),
		dispatcher.WithQueueSize(config.GetInt("dispatcher.bufferSize")),
		dispatcher.WithFrameInterval(trip.FrameInterval()),
	)
	if err != nil {
		return err
	}

	backend, closeStorage, err := openStorage(config.GetStorageConfig(), zl)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStorage(); err != nil {
			Logger.Error("Failed to close storage", "error", err)
		}
	}()

	normalizer, err := newNormalizer(backend)
	if err != nil {
		return err
	}

	var (
		metrics        controller.Metrics
		metricsPending monitor.MetricsReporter
	)
	if ic := config.GetInfluxConfig(); ic.Enabled {
		m := influx.NewManager(zl.With().Str("component", "influx").Logger(),
			filepath.Join(config.GetString("logsDir"), AppName+"_metrics.lp.gz"))
		if err := m.Connect(ctx); err != nil {
			Logger.Warn("Metrics disabled", "error", err)
		} else {
			interval := ic.FlushInterval
			if interval <= 0 {
				interval = 2 * time.Second
			}
			m.Start(interval)
			defer func() {
				if err := m.Close(); err != nil {
					Logger.Error("Failed to close metrics", "error", err)
				}
			}()
			metrics, metricsPending = m, m
		}
	}

	srvCfg := config.GetServerConfig()
	hub := websocket.NewHub(websocket.Dependencies{
		Logger: Logger.With("component", "hub"),
		OnEvent: func(ev streaming.UIEvent) (any, error) {
			return loop.Dispatch(dispatcher.Event{Command: ev.Command, Args: ev.Args})
		},
		PhotoPrefix: srvCfg.PhotoPrefix,
	})

	viewCfg := config.GetViewConfig()
	ctrl := controller.New(controller.Dependencies{
		Loop:       loop,
		Loader:     newLoader(),
		Normalizer: normalizer,
		Renderer:   hub,
		Audio:      hub,
		Session:    sess,
		History:    backend,
		Metrics:    metrics,
		Notifier:   hub,
		Logger:     Logger.With("component", "controller"),
	}, controller.Options{
		Source: config.GetManifestConfig().Source,
		Player: player.Options{
			StepDuration:  trip.StepDuration(),
			ShowPhotos:    trip.ShowPhotos,
			ResetOnFinish: trip.ResetOnFinish,
		},
		Clustering:     viewCfg.Clustering,
		GalleryVisible: viewCfg.GalleryVisible,
	})
	ctrl.RegisterHandlers(loop)
	loop.Start()
	defer loop.Stop()

	if _, err := loop.Dispatch(dispatcher.Event{Command: controller.CmdLoad}); err != nil {
		Logger.Warn("Initial load not started", "error", err)
	}

	mc := config.GetMonitorConfig()
	mon := monitor.NewService(monitor.Dependencies{
		Logger:     Logger.With("component", "monitor"),
		Session:    sess,
		Queue:      loop,
		Clients:    hub,
		History:    backend,
		Metrics:    metricsPending,
		StatusFile: mc.StatusFile,
		StartedAt:  SessionStartTime,
	})
	if err := mon.Start(mc.Interval); err != nil {
		Logger.Warn("Status monitor disabled", "error", err)
	}
	defer mon.Stop()

	server := &http.Server{
		Addr: srvCfg.Addr,
		Handler: api.NewRouter(api.Dependencies{
			Dispatcher:  loop,
			Session:     sess,
			Monitor:     mon,
			History:     backend,
			Hub:         hub,
			PhotosRoot:  srvCfg.PhotosRoot,
			PhotoPrefix: srvCfg.PhotoPrefix,
			CorsOrigins: srvCfg.CorsOrigins,
			APIKey:      srvCfg.APIKey,
			Logger:      Logger.With("component", "api"),
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		Logger.Info("Listening", "addr", srvCfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		Logger.Info("Shutting down...")
	case err := <-errCh:
		if err != nil {
			Logger.Error("HTTP server failed", "error", err)
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		Logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	hub.Close()
	if err := loop.Call(ctrl.Close); err != nil {
		Logger.Debug("Controller already stopped", "error", err)
	}
	return nil
}
