package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/fyerfyer/slideai/api"
	"github.com/fyerfyer/slideai/api/handler"
	"github.com/fyerfyer/slideai/api/middleware"
	appconfig "github.com/fyerfyer/slideai/config"
	"github.com/fyerfyer/slideai/internal/cache"
	"github.com/fyerfyer/slideai/internal/database"
	"github.com/fyerfyer/slideai/internal/editor"
	"github.com/fyerfyer/slideai/internal/gateway"
	"github.com/fyerfyer/slideai/internal/repository"
	"github.com/fyerfyer/slideai/internal/services"
	"github.com/fyerfyer/slideai/internal/slides"
	"github.com/fyerfyer/slideai/pkg/storage"
	"github.com/fyerfyer/slideai/pkg/taskqueue"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// 命令行参数，显式设置时覆盖配置文件
type flags struct {
	ConfigFile string // 配置文件路径
	Port       int    // 服务端口
	Mode       string // 运行模式 (debug/release)
	LogLevel   string // 日志级别
	Gateway    string // 持久化网关类型
	Queue      bool   // 是否启用任务队列
	Worker     bool   // 是否在本进程内运行导出工作者
}

func main() {
	f := parseFlags()

	cfg, err := appconfig.Load(f.ConfigFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg, f)

	gin.SetMode(cfg.Server.Mode)

	logger, err := setupLogger(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to configure logger: %v", err)
	}
	logger.Info("Starting SlideAI server...")

	gw, err := setupGateway(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize persistence gateway: %v", err)
	}
	defer database.Close()

	board := services.NewNoticeBoard(cfg.Session.NoticeTTL, cfg.Session.NoticeCapacity)
	presentationOpts := []services.PresentationOption{
		services.WithLogger(logger),
		services.WithNotifier(services.MultiNotifier{services.NewLogNotifier(logger), board}),
	}
	if cfg.Cache.Enable {
		backend, err := setupCache(cfg.Cache)
		if err != nil {
			logger.Fatalf("Failed to initialize cache: %v", err)
		}
		presentationOpts = append(presentationOpts,
			services.WithPresentationCache(cache.NewPresentationCache(backend, cfg.Cache.TTL)))
	}
	presentations := services.NewPresentationService(gw, presentationOpts...)

	fileStorage, err := setupStorage(cfg.Storage)
	if err != nil {
		logger.Fatalf("Failed to initialize storage: %v", err)
	}

	exportOpts := []services.ExportOption{services.WithExportLogger(logger)}
	var queue taskqueue.Queue
	if cfg.Queue.Enable {
		queue, err = setupTaskQueue(cfg.Queue, logger)
		if err != nil {
			logger.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer queue.Close()
		exportOpts = append(exportOpts, services.WithQueue(queue))
		logger.Info("Exports will use async task queue")
	}
	exports := services.NewExportService(presentations, fileStorage, exportOpts...)

	var worker taskqueue.Worker
	if queue != nil && f.Worker {
		worker, err = taskqueue.NewWorker(queue, nil)
		if err != nil {
			logger.Fatalf("Failed to create export worker: %v", err)
		}
		worker.RegisterHandler(taskqueue.TaskExportDeck, exports.Handler())
		if err := worker.Start(); err != nil {
			logger.Fatalf("Failed to start export worker: %v", err)
		}
		logger.Info("Export worker started")
	}

	sessions := editor.NewManager(editor.ManagerConfig{
		IdleTTL:         cfg.Session.IdleTTL,
		CleanupInterval: cfg.Session.CleanupInterval,
		Sanitize:        cfg.Preview.Sanitize,
	})

	router, err := api.SetupRouter(api.Handlers{
		Preview:       handler.NewPreviewHandler(slides.NewRenderer(slides.WithSanitize(cfg.Preview.Sanitize))),
		Presentations: handler.NewPresentationHandler(presentations, exports),
		Sessions:      handler.NewSessionHandler(sessions, presentations),
		Exports:       handler.NewExportHandler(exports, cfg.Export.DefaultFormat),
		Notices:       handler.NewNoticeHandler(board),
	})
	if err != nil {
		logger.Fatalf("Failed to set up router: %v", err)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Infof("Server is running on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 等待终止信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}
	if worker != nil {
		worker.Stop()
	}

	logger.Info("Server exited")
}

// parseFlags 解析命令行参数
func parseFlags() flags {
	var f flags
	flag.StringVar(&f.ConfigFile, "config", "config.yaml", "Path to config file")
	flag.IntVar(&f.Port, "port", 8080, "Server port")
	flag.StringVar(&f.Mode, "mode", "release", "Run mode (debug/release)")
	flag.StringVar(&f.LogLevel, "log-level", "info", "Log level (debug/info/warn/error)")
	flag.StringVar(&f.Gateway, "gateway", "local", "Persistence gateway (local/rest)")
	flag.BoolVar(&f.Queue, "queue", false, "Enable async export queue")
	flag.BoolVar(&f.Worker, "worker", true, "Run the export worker in this process when the queue is enabled")
	flag.Parse()
	return f
}

// applyFlags 只用显式设置过的命令行参数覆盖配置
func applyFlags(cfg *appconfig.Config, f flags) {
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "port":
			cfg.Server.Port = f.Port
		case "mode":
			cfg.Server.Mode = f.Mode
		case "log-level":
			cfg.Log.Level = f.LogLevel
		case "gateway":
			cfg.Gateway.Type = f.Gateway
		case "queue":
			cfg.Queue.Enable = f.Queue
		}
	})
}

// setupLogger 设置日志系统
func setupLogger(cfg appconfig.LogConfig) (*logrus.Logger, error) {
	err := middleware.ConfigureLogger(middleware.LogConfig{
		Level:      cfg.Level,
		Format:     cfg.Format,
		File:       cfg.File,
		MaxSizeMB:  cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAgeDays: cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	})
	return middleware.GetLogger(), err
}

// setupGateway 根据配置创建持久化网关
func setupGateway(cfg *appconfig.Config, logger *logrus.Logger) (gateway.Gateway, error) {
	if cfg.Gateway.Type == "rest" {
		restCfg := gateway.DefaultRESTConfig().
			WithBaseURL(cfg.Gateway.BaseURL).
			WithAPIKey(cfg.Gateway.APIKey).
			WithRetry(cfg.Gateway.MaxRetries, cfg.Gateway.RetryDelay)
		if cfg.Gateway.Table != "" {
			restCfg.Table = cfg.Gateway.Table
		}
		if cfg.Gateway.Timeout > 0 {
			restCfg.Timeout = cfg.Gateway.Timeout
		}
		logger.WithField("base_url", restCfg.BaseURL).Info("Using REST persistence gateway")
		return gateway.NewRESTGateway(restCfg, logger), nil
	}

	dbConfig := database.DefaultConfig()
	dbConfig.Type = cfg.Database.Type
	dbConfig.DSN = cfg.Database.DSN
	if cfg.Database.MaxOpenConns > 0 {
		dbConfig.MaxOpenConns = cfg.Database.MaxOpenConns
	}
	if cfg.Database.MaxIdleConns > 0 {
		dbConfig.MaxIdleConns = cfg.Database.MaxIdleConns
	}
	if err := database.Setup(dbConfig, logger); err != nil {
		return nil, err
	}
	return gateway.NewLocalGateway(repository.NewPresentationRepository()), nil
}

// setupCache 设置缓存服务
func setupCache(cfg appconfig.CacheConfig) (cache.Cache, error) {
	cacheConfig := cache.DefaultConfig()
	cacheConfig.Type = cfg.Type
	cacheConfig.RedisAddr = cfg.Address
	cacheConfig.RedisPassword = cfg.Password
	cacheConfig.RedisDB = cfg.DB
	if cfg.Prefix != "" {
		cacheConfig.KeyPrefix = cfg.Prefix
	}
	if cfg.TTL > 0 {
		cacheConfig.DefaultTTL = cfg.TTL
	}
	return cache.NewCache(cacheConfig)
}

// setupStorage 设置导出文件存储
func setupStorage(cfg appconfig.StorageConfig) (storage.Storage, error) {
	return storage.New(storage.Config{
		Type:  cfg.Type,
		Local: storage.LocalConfig{Path: cfg.Path},
		Minio: storage.MinioConfig{
			Endpoint:  cfg.Endpoint,
			AccessKey: cfg.AccessKey,
			SecretKey: cfg.SecretKey,
			UseSSL:    cfg.UseSSL,
			Bucket:    cfg.Bucket,
			Prefix:    cfg.Prefix,
		},
	})
}

// setupTaskQueue 设置任务队列
func setupTaskQueue(cfg appconfig.QueueConfig, logger *logrus.Logger) (taskqueue.Queue, error) {
	queueConfig := taskqueue.DefaultConfig()
	queueConfig.RedisAddr = cfg.RedisAddr
	queueConfig.RedisPassword = cfg.RedisPassword
	queueConfig.RedisDB = cfg.RedisDB
	if cfg.Concurrency > 0 {
		queueConfig.Concurrency = cfg.Concurrency
	}
	queueConfig.RetryLimit = cfg.RetryLimit
	if cfg.RetryDelay > 0 {
		queueConfig.RetryDelay = cfg.RetryDelay
	}
	if cfg.TaskTTL > 0 {
		queueConfig.TaskTTL = cfg.TaskTTL
	}

	logger.WithFields(logrus.Fields{
		"type":        cfg.Type,
		"redis_addr":  cfg.RedisAddr,
		"concurrency": queueConfig.Concurrency,
		"retry_limit": queueConfig.RetryLimit,
	}).Info("Setting up task queue")

	return taskqueue.NewQueue(cfg.Type, queueConfig, logger)
}
