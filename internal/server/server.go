// Package server 面板开发后端：认证、机器人配置、行情快照与推送流
package server

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/emabot/gopanel/pkg/config"
)

var log = logrus.WithField("component", "server")

// Server 开发后端
type Server struct {
	cfg    config.ServerConfig
	db     *sql.DB
	market *marketSource
	hub    *hub

	bgCancel context.CancelFunc
}

// New 创建并初始化服务端：打开数据库、建表、启动行情源和推送协程
func New(cfg config.ServerConfig) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db_path 不能为空")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("jwt_secret 不能为空")
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "创建数据库目录失败")
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, errors.Wrap(err, "打开 sqlite 失败")
	}
	// SQLite：单连接更稳定
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Server{
		cfg:    cfg,
		db:     db,
		market: newMarketSource(cfg),
		hub:    newHub(),
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel
	go s.market.run(bgCtx)
	go s.pushLoop(bgCtx)
	return s, nil
}

// Close 停掉后台协程并关闭数据库
func (s *Server) Close() error {
	if s.bgCancel != nil {
		s.bgCancel()
	}
	s.hub.closeAll()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Router 组装路由
func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	// 浏览器端调试会跨域，开发环境全放开
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization")
	r.Use(cors.New(corsCfg))

	api := r.Group("/api")
	api.GET("/health", s.handleHealth)
	api.POST("/login", s.handleLogin)
	api.POST("/register", s.handleRegister)
	api.GET("/coins", s.handleCoins)
	api.GET("/ws", s.handleWS)

	authed := api.Group("")
	authed.Use(s.requireAuth())
	authed.GET("/user/profile", s.handleProfile)
	authed.PUT("/user/api-key", s.handleUpdateAPIKey)
	authed.GET("/bot/config", s.handleGetBotConfig)
	authed.PUT("/bot/config", s.handlePutBotConfig)
	authed.POST("/bot/start", s.handleStartBot)
	authed.POST("/bot/stop", s.handleStopBot)

	return r
}

// Run 监听并服务，ctx 取消时优雅退出
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.ListenAddr,
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("开发后端监听 %s", s.cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "关闭 http 服务失败")
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// detail 统一的错误响应体
func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
