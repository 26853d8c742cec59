package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"pairchat/auth"
	"pairchat/internal"
	"pairchat/moderation"
	"pairchat/observability"
	"pairchat/repositories"
	"pairchat/runtime"
	"pairchat/runtime/workers"
	"pairchat/transport/ws"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	grpc3 "github.com/mama165/sdk-go/grpc"
	"github.com/mama165/sdk-go/logs"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2

	shutdownTimeout = 10 * time.Second
)

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component and returns once the process should exit,
// so deferred cleanups such as closing Badger always happen.
func run() (int, error) {
	// 1. Configuration & Logger
	// A missing .env file is fine, the environment alone may carry the config.
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	policy, err := config.Policy()
	if err != nil {
		return exitConfig, err
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Database (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(ctx, config, logger))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()
	if logger.Enabled(ctx, slog.LevelDebug) {
		startDebugInspector(db, logger)
	}

	// 3. Domain components
	userRepository := repositories.NewUserRepository(db)
	messageRepository := repositories.NewMessageRepository(db, logger)
	verifier := auth.NewVerifier(config.JwtSecret, config.JwtIssuer)
	authenticator := auth.NewAuthenticator(verifier, userRepository, config.AuthTimeout, logger)
	metrics := observability.NewMetrics()

	supervisor := workers.NewSupervisor(logger, config.RestartInterval).OnRestart(metrics.WorkerRestarted)
	dispatcher := runtime.NewDispatcher(config.NumberOfLanes, config.LaneBufferSize, supervisor, logger)
	presence := runtime.NewPresence()
	coordinator := runtime.NewCoordinator(logger, runtime.NewRegistry(), presence, dispatcher,
		messageRepository, userRepository, auth.NewPayloadValidator(config.MaxContentLength),
		runtime.CoordinatorConfig{HistoryLimit: config.HistoryLimit, EditPolicy: policy},
	).WithMetrics(metrics)

	if config.CensoredWordsPath != "" {
		dictionary, err := moderation.LoadDictionary(os.DirFS(config.CensoredWordsPath), ".")
		if err != nil {
			return exitConfig, fmt.Errorf("censored words loading failed: %w", err)
		}
		moderator, err := moderation.NewModerator(dictionary.Words, charReplacement)
		if err != nil {
			return exitConfig, err
		}
		coordinator.WithCensor(moderator)
		logger.Info("Moderation enabled", "lists", dictionary.Lists, "words", len(dictionary.Words))
	}

	if err := coordinator.Seed(ctx); err != nil {
		return exitRuntime, fmt.Errorf("presence seeding failed: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	// 4. Transports
	wsServer := ws.NewServer(logger, coordinator, authenticator, presence, metrics, ws.Options{
		ConnectionBufferSize: config.ConnectionBufferSize,
		DeliveryTimeout:      config.DeliveryTimeout,
	})
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler: wsServer.Routes(),
		// Live websockets are bound to the process context and close on shutdown.
		BaseContext:       func(net.Listener) context.Context { return gctx },
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcAddress := fmt.Sprintf("%s:%d", config.Host, config.GrpcPort)
	listener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", grpcAddress, err)
	}
	grpcServer := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc3.UnaryLoggingInterceptor(logger)))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// 5. Run until a signal or the first failure
	g.Go(func() error {
		dispatcher.Run(gctx)
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting HTTP server", "address", httpServer.Addr, "at", time.Now().UTC())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting gRPC health server", "address", grpcAddress)
		if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return fmt.Errorf("gRPC server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down gracefully...")
		healthServer.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		err := httpServer.Shutdown(shutdownCtx)
		// Sessions still write their presence to Badger while disconnecting.
		if waitErr := wsServer.Wait(shutdownCtx); waitErr != nil {
			logger.Warn("Websocket sessions still open at shutdown", "error", waitErr)
		}
		grpcServer.GracefulStop()
		dispatcher.Stop()
		return err
	})

	if err := g.Wait(); err != nil {
		return exitRuntime, err
	}
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func buildBadgerOpts(ctx context.Context, config internal.Config, logger *slog.Logger) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if logger.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.WARNING)
}
