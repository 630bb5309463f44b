package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hoshinonyaruko/stack-in-im/account"
	"github.com/hoshinonyaruko/stack-in-im/api"
	"github.com/hoshinonyaruko/stack-in-im/boltdb"
	"github.com/hoshinonyaruko/stack-in-im/config"
	"github.com/hoshinonyaruko/stack-in-im/game"
	"github.com/hoshinonyaruko/stack-in-im/memimg"
	"github.com/hoshinonyaruko/stack-in-im/sqlite"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	EnsureFoldersExist()
	// Initialize the configuration
	conf := config.LoadConfig("./config.json")

	logger := newLogger(conf.Debug)
	defer logger.Sync()

	if err := conf.Game.Validate(); err != nil {
		logger.Fatal("invalid game config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(conf)
	if err != nil {
		logger.Fatal("open store", zap.String("storage", conf.Storage), zap.Error(err))
	}
	defer store.Close()

	// 成绩异步写入
	recorder := account.NewRecorder(store, 256, logger.Named("account"))
	recorderDone := make(chan struct{})
	go func() {
		recorder.Run(ctx)
		close(recorderDone)
	}()

	var manager *game.Manager
	metrics := api.NewMetrics(prometheus.DefaultRegisterer, func() int { return manager.Len() })
	manager, err = game.NewManager(conf.Game, time.Duration(conf.SessionTTL)*time.Second, logger.Named("game"),
		game.WithListenerFactory(func(sessionID, playerID string) game.Listener {
			return game.Listeners{recorder.Listener(sessionID, playerID), metrics.Listener()}
		}))
	if err != nil {
		logger.Fatal("create manager", zap.Error(err))
	}
	go manager.Run(ctx, time.Minute)

	// 载入标签图片到内存
	labels := memimg.New(logger.Named("labels"))
	if err := labels.Load("./labels"); err != nil {
		logger.Warn("load labels", zap.Error(err))
	}
	// 检测并热更新到内存 加速绘图
	go func() {
		if err := labels.Watch(ctx, "./labels"); err != nil {
			logger.Warn("watch labels", zap.Error(err))
		}
	}()

	if !conf.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(api.Deps{
		Manager:  manager,
		Results:  recorder,
		Renderer: api.NewRenderer(labels, conf.RenderUnit, "./static"),
		Metrics:  metrics,
		Logger:   logger.Named("http"),
		SelfPath: conf.SelfPath,

		LiveInterval: time.Duration(conf.LiveInterval) * time.Millisecond,
	})

	go func() {
		// 从配置单例读取端口 监听
		if err := router.Run(":" + config.GetConfigValue("port").(string)); err != nil {
			logger.Error("http server stopped", zap.Error(err))
			stop()
		}
	}()
	logger.Info("stack server started", zap.String("port", conf.Port), zap.String("storage", conf.Storage))

	<-ctx.Done()
	logger.Info("shutting down")
	// 等待队列里的成绩写完
	<-recorderDone
}

func newLogger(debug bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to create logger: %s", err)
	}
	return logger
}

func openStore(conf *config.AppConfig) (account.Store, error) {
	switch conf.Storage {
	case "bolt":
		return boltdb.Open(conf.DBPath)
	default:
		return sqlite.Open(conf.DBPath)
	}
}

// EnsureFoldersExists 检查并创建必需的文件夹
func EnsureFoldersExist() {
	folders := []string{"labels", "static"}

	for _, folder := range folders {
		if _, err := os.Stat(folder); os.IsNotExist(err) {
			// 文件夹不存在，尝试创建它
			err := os.Mkdir(folder, 0755) // 使用0755权限以确保读写权限
			if err != nil {
				log.Fatalf("Failed to create %s directory: %s", folder, err)
			}
			log.Printf("Created %s directory", folder)
		}
	}
}
