package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpc_adapter "github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/grpc"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/adapter/in/rest"
	"github.com/JoeShih716/go-bank-ledger/internal/app/core/usecase"
	"github.com/JoeShih716/go-bank-ledger/internal/config"
	"github.com/JoeShih716/go-bank-ledger/pkg/logging"
	"github.com/JoeShih716/go-bank-ledger/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to config.yaml (default $LEDGER_CONFIG or config/config.yaml)")
	flag.Parse()

	// 1. 載入設定
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Logger
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("ledger exited with error", zap.Error(err))
	}
	logger.Info("ledger exited")
}

func run(cfg config.Config, logger *logging.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector()

	// 3. 儲存層
	store, closeStore, err := openStore(ctx, cfg, logger, collector)
	if err != nil {
		return err
	}
	defer closeStore()

	// 4. UseCase
	ledger := usecase.NewLedger(store,
		usecase.WithLockTimeout(cfg.Ledger.LockTimeout),
		usecase.WithLogger(logger),
		usecase.WithRecorder(collector),
	)
	query := usecase.NewQueryService(store)

	g, gctx := errgroup.WithContext(ctx)

	// 5. HTTP (REST + /metrics)
	if cfg.Server.HTTPAddr != "" {
		router := rest.NewRouter(rest.NewHandler(ledger, query, logger), collector.Middleware())
		router.Handle("/metrics", collector.Handler()).Methods(http.MethodGet)
		srv := &http.Server{
			Addr:         cfg.Server.HTTPAddr,
			Handler:      router,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}
		g.Go(func() error {
			logger.Info("http server listening", zap.String("addr", cfg.Server.HTTPAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.Server.ShutdownTimeout)
			defer cancel()
			logger.Info("shutting down http server")
			return srv.Shutdown(shutdownCtx)
		})
	}

	// 6. gRPC
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			return fmt.Errorf("listen %s: %w", cfg.Server.GRPCAddr, err)
		}
		s := grpc.NewServer(grpc.ChainUnaryInterceptor(grpc_adapter.UnaryServerInterceptor(logger.Named("grpc"), collector)))
		grpc_adapter.RegisterLedgerServiceServer(s, grpc_adapter.NewServer(ledger, query, logger))

		healthSrv := health.NewServer()
		healthSrv.SetServingStatus(grpc_adapter.ServiceName, healthpb.HealthCheckResponse_SERVING)
		healthpb.RegisterHealthServer(s, healthSrv)
		if cfg.Server.GRPCReflection {
			reflection.Register(s)
		}

		g.Go(func() error {
			logger.Info("grpc server listening", zap.String("addr", cfg.Server.GRPCAddr))
			if err := s.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			logger.Info("shutting down grpc server")
			healthSrv.Shutdown()
			s.GracefulStop()
			return nil
		})
	}

	return g.Wait()
}
