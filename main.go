package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"layout-translator/config"
	"layout-translator/handlers"
	"layout-translator/logger"
	"layout-translator/middleware"
)

func main() {
	configPath := flag.String("config", os.Getenv("TRANSLATOR_CONFIG"), "YAML 配置文件路径")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Dir: cfg.LogDir, Name: "server", Console: true})
	if err != nil {
		return err
	}
	defer log.Close()
	logger.SetDefault(log)

	if err := config.ValidateLLM(cfg.LLM); err != nil {
		// 每个请求仍可通过 llmConfig 提供自己的密钥
		log.Warn("默认翻译提供商配置不完整", logger.Fields{"错误": err.Error()})
	}

	if !cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(log))

	// 设置最大上传文件大小 (100MB)
	r.MaxMultipartMemory = 100 << 20

	h := handlers.New(cfg, log)
	sessions := middleware.NewSessionManager(cfg.SessionTimeout, log)
	sessions.OnExpire = h.CleanupSession
	defer sessions.Stop()

	r.Use(sessions.Middleware())
	h.Register(r)

	if cfg.DevMode {
		// 开发模式：代理到前端开发服务器
		target, _ := url.Parse("http://localhost:3000")
		proxy := httputil.NewSingleHostReverseProxy(target)
		r.NoRoute(func(c *gin.Context) {
			proxy.ServeHTTP(c.Writer, c.Request)
		})
		log.Info("开发模式：代理前端请求", logger.Fields{"目标": target.String()})
	} else {
		r.NoRoute(func(c *gin.Context) {
			c.JSON(http.StatusNotFound, gin.H{"error": "接口不存在"})
		})
	}

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		log.Info("PDF翻译服务启动", logger.Fields{"地址": cfg.ListenAddr, "数据目录": cfg.DataDir})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}

	log.Info("正在关闭服务")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	if err := h.Shutdown(ctx); err != nil {
		log.Warn("部分翻译任务未能及时退出", logger.Fields{"错误": err.Error()})
	}
	return nil
}
