package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/abgdnv/gofulfillment/internal/app"
	"github.com/abgdnv/gofulfillment/internal/config"
	"github.com/abgdnv/gofulfillment/internal/store"
	"github.com/abgdnv/gofulfillment/internal/subscriber"
	"github.com/abgdnv/gofulfillment/migrations"
	"github.com/abgdnv/gofulfillment/pkg/auth"
	"github.com/abgdnv/gofulfillment/pkg/bootstrap"
	pkgconfig "github.com/abgdnv/gofulfillment/pkg/config"
	"github.com/abgdnv/gofulfillment/pkg/config/configloader"
	"github.com/abgdnv/gofulfillment/pkg/kafka"
	"github.com/abgdnv/gofulfillment/pkg/messaging"
	pnats "github.com/abgdnv/gofulfillment/pkg/nats"
	"github.com/abgdnv/gofulfillment/pkg/redisx"
	"github.com/abgdnv/gofulfillment/pkg/server"
	"github.com/abgdnv/gofulfillment/pkg/telemetry"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/health/grpc_health_v1"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration, connects the dependencies and runs every server until ctx is done.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](app.ServiceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	meterProvider, err := telemetry.NewMeterProvider(app.ServiceName)
	if err != nil {
		return err
	}

	if cfg.Database.Migrate {
		if err := migrations.Up(cfg.Database.URL); err != nil {
			return err
		}
		logger.Info("Database migrations applied")
	}
	dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
	if err != nil {
		return err
	}
	defer dbPool.Close()
	logger.Info("Successfully connected to the database!")

	var (
		natsConn *natsgo.Conn
		js       jetstream.JetStream
	)
	if cfg.NeedsNATS() {
		natsConn, err = pnats.NewClient(cfg.Nats.Url, cfg.Nats.Timeout)
		if err != nil {
			return err
		}
		defer natsConn.Close()
		if js, err = pnats.NewJetStreamContext(natsConn); err != nil {
			return err
		}
	}

	publisher, closePublisher, err := newPublisher(ctx, cfg, js)
	if err != nil {
		return err
	}
	defer closePublisher()

	deps := app.SetupDependencies(store.NewPgStore(dbPool, cfg.Database.LockTimeout), publisher, logger)
	deps.Ready = func(ctx context.Context) error {
		if err := dbPool.Ping(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
		if natsConn != nil && !natsConn.IsConnected() {
			return fmt.Errorf("nats: %s", natsConn.Status())
		}
		return nil
	}
	if cfg.IdP.Enabled {
		verifier, err := auth.NewJWTVerifier(ctx, cfg.IdP)
		if err != nil {
			return err
		}
		deps.Verifier = verifier
	}

	httpServer := app.SetupHttpServer(deps, cfg)
	grpcServer, grpcHealth := server.NewGRPCServer(logger, cfg.GrpcServer.ReflectionEnabled)
	grpcHealth.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)

	var payments *subscriber.Payments
	if cfg.Payments.Enabled {
		var closeDedup func()
		payments, closeDedup, err = newPaymentsSubscriber(ctx, cfg, js, deps, logger)
		if err != nil {
			return err
		}
		defer closeDedup()
	}

	var tracerProvider *tracesdk.TracerProvider
	if cfg.Telemetry.Enabled {
		if tracerProvider, err = telemetry.NewTracerProvider(ctx, app.ServiceName, cfg.Telemetry); err != nil {
			return err
		}
	}

	g, gCtx := errgroup.WithContext(ctx)

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := cfg.Shutdown.Context()
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Start the gRPC health server
	g.Go(func() error {
		grpcAddr := ":" + cfg.GrpcServer.Port
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC port: %w", err)
		}
		logger.Info("gRPC server listening", slog.String("addr", grpcAddr))
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down gRPC server...")
		grpcHealth.SetServingStatus("", grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			grpcHealth.Shutdown()
			close(stopped)
		}()
		select {
		case <-stopped:
			logger.Info("gRPC server stopped gracefully.")
			return nil
		case <-time.After(cfg.Shutdown.Timeout):
			logger.Warn("gRPC server graceful stop timed out. Forcing stop.")
			grpcServer.Stop()
			return fmt.Errorf("grpc server graceful stop timed out")
		}
	})

	if cfg.PProf.Enabled {
		pprofServer := &http.Server{Addr: cfg.PProf.Addr}
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := cfg.Shutdown.Context()
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}

	if payments != nil {
		g.Go(func() error {
			logger.Info("Payment subscriber started")
			err := payments.Start(gCtx, js, cfg.Payments.Subscriber)
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("payment subscriber failed", "error", err)
				return err
			}
			logger.Info("Payment subscriber stopped gracefully.")
			return nil
		})
	}

	if tracerProvider != nil {
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down tracer provider")
			shutdownCtx, cancel := cfg.Shutdown.Context()
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shutdown tracer provider: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := cfg.Shutdown.Context()
		defer cancel()
		if err := meterProvider.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shutdown meter provider: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return bootstrap.RunLiveness(gCtx, cfg.Probes, logger)
	})
	if err := bootstrap.MarkReady(cfg.Probes); err != nil {
		logger.Warn("Failed to create readiness file", "error", err)
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

// newPublisher selects the event broker and guards it with retries and a circuit breaker.
func newPublisher(ctx context.Context, cfg *config.Config, js jetstream.JetStream) (messaging.Publisher, func(), error) {
	switch cfg.Events.Broker {
	case pkgconfig.BrokerNATS:
		if err := pnats.EnsureStream(ctx, js, cfg.Nats.Stream, []string{"orders.>"}); err != nil {
			return nil, nil, err
		}
		return messaging.NewBreakerPublisher(pnats.NewNatsPublisher(js), cfg.Events.Resilience), func() {}, nil
	case pkgconfig.BrokerKafka:
		kp := kafka.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Timeout)
		closeFn := func() {
			if err := kp.Close(); err != nil {
				slog.Error("failed to close kafka writer", "error", err)
			}
		}
		return messaging.NewBreakerPublisher(kp, cfg.Events.Resilience), closeFn, nil
	default:
		return messaging.NopPublisher{}, func() {}, nil
	}
}

func newPaymentsSubscriber(ctx context.Context, cfg *config.Config, js jetstream.JetStream, deps *app.Dependencies, logger *slog.Logger) (*subscriber.Payments, func(), error) {
	subCfg := cfg.Payments.Subscriber
	if err := pnats.EnsureStream(ctx, js, subCfg.Stream, []string{subCfg.Subject}); err != nil {
		return nil, nil, err
	}
	if cfg.Redis.Addr == "" {
		logger.Warn("Redis is not configured, payment events are not de-duplicated")
		return subscriber.NewPayments(deps.OrderService, nil, logger), func() {}, nil
	}
	rdb := redisx.New(cfg.Redis.Addr, cfg.Redis.Timeout)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	dedup := redisx.NewDeduper(rdb, app.ServiceName, cfg.Redis.TTL)
	closeFn := func() {
		if err := rdb.Close(); err != nil {
			logger.Error("failed to close redis client", "error", err)
		}
	}
	return subscriber.NewPayments(deps.OrderService, dedup, logger), closeFn, nil
}
