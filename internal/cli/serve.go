package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"service-booking-backend/internal/api"
	"service-booking-backend/internal/booking"
	"service-booking-backend/internal/mw"
	"service-booking-backend/internal/notification"
	"service-booking-backend/internal/schedule"
	"service-booking-backend/internal/store"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the slot horizon generator",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer rt.close()
			return serve(cmd.Context(), rt)
		},
	}
}

func serve(parent context.Context, rt *runtime) error {
	cfg, log := rt.cfg, rt.log

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	appStore := store.NewGormStore(rt.db)

	var webpushOptions *webpush.Options
	var pushPool *notification.WorkerPool
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pushPool = notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, log)
		pushPool.Start(ctx)
	} else {
		log.Warn("VAPID keys are not configured, push notifications disabled")
	}

	var voice *notification.VoiceNotifier
	if cfg.Voice.Enabled {
		caller, err := notification.NewTwilioCaller(cfg.Voice)
		if err != nil {
			return err
		}
		voice = notification.NewVoiceNotifier(appStore, caller, cfg.Voice.DefaultRegion, log)
	} else {
		log.Warn("voice calls are disabled, completed bookings will not be called")
	}

	allocator := booking.NewAllocator(appStore, log)
	machine := booking.NewStateMachine(appStore, notification.NewCompletion(pushPool, voice), log, booking.Options{
		MaxAttempts:        cfg.Booking.MaxUpdateAttempts,
		AllowAnyTransition: cfg.Booking.AllowAnyTransition,
	})
	if cfg.Booking.AllowAnyTransition {
		log.Warn("booking status transitions are not validated")
	}
	generator := schedule.NewGenerator(appStore, log)

	cache := mw.NewResponseCache(time.Duration(cfg.Server.CacheTTLSeconds) * time.Second)

	horizon, err := schedule.NewHorizon(cfg.Generator, generator, log)
	if err != nil {
		return err
	}
	horizon.OnGenerated(cache.Flush)
	go horizon.Run(ctx)

	handler := api.NewHandler(api.Deps{
		Store:     appStore,
		Allocator: allocator,
		Bookings:  machine,
		Generator: generator,
		Cache:     cache,
		WebPush:   webpushOptions,
		Log:       log,
	})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           api.NewRouter(handler, cfg.Server),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("HTTP server starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server ListenAndServe: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutdown signal received, stopping services")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server Shutdown: %w", err)
	}

	log.Info("server gracefully stopped")
	return nil
}
