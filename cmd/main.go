package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"leaf-doctor/config"
	"leaf-doctor/internal/api/telegram"
	"leaf-doctor/internal/api/web"
	"leaf-doctor/internal/container"
	"leaf-doctor/internal/infrastructure/remote"
	"leaf-doctor/internal/infrastructure/storage"
	"leaf-doctor/internal/infrastructure/vision"
	"leaf-doctor/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logg := logger.New(cfg.LogLevel, cfg.LogFormat)

	// Models are loaded once; a broken artifact stops the process here.
	backends, closeBackends, err := buildBackends(cfg)
	if err != nil {
		logg.WithError(err).Fatal("failed to initialize detection backend")
	}
	defer closeBackends()

	userRepo := storage.NewMemoryUserRepository()
	appContainer := container.New(userRepo, backends, logg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.TelegramToken != "" {
		bot, err := telegram.NewBot(cfg.TelegramToken, appContainer.UserService, appContainer.DiagnosisService, cfg.MaxUploadBytes, logg)
		if err != nil {
			logg.WithError(err).Fatal("failed to create telegram bot")
		}
		go func() {
			if err := bot.Run(ctx); err != nil {
				logg.WithError(err).Error("telegram bot stopped")
			}
		}()
	}

	server := web.NewServer(appContainer.DiagnosisService, appContainer.CascadeService, web.Options{
		Backend:        cfg.Backend,
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, logg)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logg.WithError(err).Error("http shutdown")
		}
	}()

	logg.WithFields(logrus.Fields{
		"addr":    cfg.HTTPAddr,
		"backend": cfg.Backend,
		"cascade": appContainer.CascadeService.Enabled(),
	}).Info("leaf-doctor is running")

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.WithError(err).Fatal("http server")
	}
}

// buildBackends creates the configured detector and optional cascade models.
func buildBackends(cfg *config.Config) (container.Backends, func(), error) {
	var b container.Backends
	var closers []func() error
	closeAll := func() {
		for _, c := range closers {
			_ = c()
		}
	}

	if cfg.Backend == config.BackendRemote {
		b.Detector = remote.NewClient(cfg.InferenceURL, cfg.InferenceAPIKey, cfg.InferenceTimeout)
		if cfg.SpotURL != "" {
			b.Spots = remote.NewClient(cfg.SpotURL, cfg.InferenceAPIKey, cfg.InferenceTimeout)
		}
		if cfg.ClassifierURL != "" {
			b.Classifier = remote.NewClient(cfg.ClassifierURL, cfg.InferenceAPIKey, cfg.InferenceTimeout)
		}
		return b, closeAll, nil
	}

	detector, err := vision.NewYOLODetector(modelConfig(cfg, cfg.Detector))
	if err != nil {
		return b, closeAll, err
	}
	closers = append(closers, detector.Close)
	b.Detector = detector

	if cfg.Spot.Path != "" {
		spots, err := vision.NewYOLODetector(modelConfig(cfg, cfg.Spot))
		if err != nil {
			closeAll()
			return b, closeAll, err
		}
		closers = append(closers, spots.Close)
		b.Spots = spots
	}

	if cfg.CascadeEnabled() {
		classifier, err := vision.NewYOLOClassifier(modelConfig(cfg, cfg.Classifier))
		if err != nil {
			closeAll()
			return b, closeAll, err
		}
		closers = append(closers, classifier.Close)
		b.Classifier = classifier
	}

	return b, closeAll, nil
}

func modelConfig(cfg *config.Config, m config.Model) vision.ModelConfig {
	return vision.ModelConfig{
		Path:          m.Path,
		Classes:       m.Classes,
		InputSize:     m.InputSize,
		ConfThreshold: float32(cfg.ConfidenceThreshold),
		IoUThreshold:  float32(cfg.IoUThreshold),
	}
}
