package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"repair-intake/internal/config"
	"repair-intake/internal/intake"
	"repair-intake/internal/logging"
	"repair-intake/internal/middleware"
	"repair-intake/internal/observability"
	"repair-intake/internal/repair"
	"repair-intake/internal/storage"
)

var (
	configPath string
	logger     *zap.Logger
	cfg        *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "repair-intake",
	Short: "Repair request intake service",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "repair-intake.yaml", "配置文件路径 (不存在时使用默认值)")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	logger.Info("使用数据目录", zap.String("data_dir", cfg.DataDir))

	telemetry, err := observability.New(ctx, cfg.Telemetry, logger)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = telemetry.Shutdown(shutdownCtx)
	}()

	records, db, err := repair.Open(ctx, cfg.Database, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("无法初始化数据库: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Warn("关闭数据库连接时出错", zap.Error(err))
		}
	}()

	objects, err := storage.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("无法初始化对象存储: %w", err)
	}

	guard, closeGuard, err := newGuard(ctx)
	if err != nil {
		return err
	}
	defer closeGuard()

	limiter := middleware.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	go limiter.Cleanup(ctx, time.Minute)

	a := &app{
		cfg:      cfg,
		logger:   logger,
		objects:  objects,
		records:  records,
		guard:    guard,
		recorder: telemetry,
		limiter:  limiter,
	}
	srv := a.server()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("服务器启动", zap.String("listen", cfg.Listen),
			zap.String("database", cfg.Database.Driver),
			zap.String("storage", cfg.Storage.Type),
			zap.String("notify", cfg.Notify.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("启动服务器失败: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("正在关闭服务器")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newGuard(ctx context.Context) (intake.Guard, func(), error) {
	if cfg.Guard.Type != "redis" {
		return intake.NewLocalGuard(cfg.Guard.TTL), func() {}, nil
	}
	client := intake.NewRedisClient(cfg.Guard.RedisAddr, cfg.Guard.RedisDB)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("无法连接 Redis %s: %w", cfg.Guard.RedisAddr, err)
	}
	return intake.NewRedisGuard(client, cfg.Guard.TTL), func() { _ = client.Close() }, nil
}
