package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/emabot/gopanel/internal/domain"
)

// botConfigByUser 读取用户的机器人配置，没保存过则返回默认值
func (s *Server) botConfigByUser(ctx context.Context, userID string) (domain.BotConfig, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT symbol, timeframe, leverage, take_profit, stop_loss, position_size, is_active
		FROM bot_configs WHERE user_id = ?`, userID)

	var (
		cfg                    domain.BotConfig
		takeProfit, stopLoss   string
		positionSize           string
	)
	err := row.Scan(&cfg.Symbol, &cfg.Timeframe, &cfg.Leverage,
		&takeProfit, &stopLoss, &positionSize, &cfg.IsActive)
	if err == sql.ErrNoRows {
		return domain.DefaultBotConfig(), nil
	}
	if err != nil {
		return cfg, err
	}

	// 小数按原样存文本，避免浮点损耗
	if cfg.TakeProfit, err = decimal.NewFromString(takeProfit); err != nil {
		return cfg, err
	}
	if cfg.StopLoss, err = decimal.NewFromString(stopLoss); err != nil {
		return cfg, err
	}
	if cfg.PositionSize, err = decimal.NewFromString(positionSize); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// upsertBotConfig 保存配置；is_active 由启停接口单独维护
func (s *Server) upsertBotConfig(ctx context.Context, userID string, cfg domain.BotConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_configs (user_id, symbol, timeframe, leverage, take_profit, stop_loss, position_size, is_active, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?)
		ON CONFLICT(user_id) DO UPDATE SET
		  symbol = excluded.symbol,
		  timeframe = excluded.timeframe,
		  leverage = excluded.leverage,
		  take_profit = excluded.take_profit,
		  stop_loss = excluded.stop_loss,
		  position_size = excluded.position_size,
		  updated_at = excluded.updated_at`,
		userID, cfg.Symbol, cfg.Timeframe, cfg.Leverage,
		cfg.TakeProfit.String(), cfg.StopLoss.String(), cfg.PositionSize.String(),
		time.Now().UTC().Format(time.RFC3339))
	return err
}

// setBotActive 启停位；配置还没保存过时先落一份默认配置
func (s *Server) setBotActive(ctx context.Context, userID string, active bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE bot_configs SET is_active = ?, updated_at = ? WHERE user_id = ?`,
		active, time.Now().UTC().Format(time.RFC3339), userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if err := s.upsertBotConfig(ctx, userID, domain.DefaultBotConfig()); err != nil {
			return err
		}
		_, err = s.db.ExecContext(ctx,
			`UPDATE bot_configs SET is_active = ? WHERE user_id = ?`, active, userID)
		return err
	}
	return nil
}

func (s *Server) handleGetBotConfig(c *gin.Context) {
	u := currentUser(c)
	cfg, err := s.botConfigByUser(c.Request.Context(), u.ID)
	if err != nil {
		log.Errorf("读取机器人配置失败: %v", err)
		detail(c, http.StatusInternalServerError, "Failed to load bot config")
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (s *Server) handlePutBotConfig(c *gin.Context) {
	var cfg domain.BotConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := cfg.Validate(); err != nil {
		detail(c, http.StatusBadRequest, err.Error())
		return
	}

	u := currentUser(c)
	if err := s.upsertBotConfig(c.Request.Context(), u.ID, cfg); err != nil {
		log.Errorf("保存机器人配置失败: %v", err)
		detail(c, http.StatusInternalServerError, "Failed to save bot config")
		return
	}
	log.Infof("用户 %s 保存配置 %s/%s", u.Email, cfg.Symbol, cfg.Timeframe)
	c.JSON(http.StatusOK, gin.H{"message": "Config saved"})
}

func (s *Server) handleStartBot(c *gin.Context) {
	u := currentUser(c)
	if !u.SubActive {
		detail(c, http.StatusForbidden, "Active subscription required")
		return
	}
	if err := s.setBotActive(c.Request.Context(), u.ID, true); err != nil {
		log.Errorf("启动机器人失败: %v", err)
		detail(c, http.StatusInternalServerError, "Failed to start bot")
		return
	}
	log.Infof("用户 %s 启动机器人", u.Email)
	c.JSON(http.StatusOK, gin.H{"message": "Bot started"})
}

func (s *Server) handleStopBot(c *gin.Context) {
	u := currentUser(c)
	if err := s.setBotActive(c.Request.Context(), u.ID, false); err != nil {
		log.Errorf("停止机器人失败: %v", err)
		detail(c, http.StatusInternalServerError, "Failed to stop bot")
		return
	}
	log.Infof("用户 %s 停止机器人", u.Email)
	c.JSON(http.StatusOK, gin.H{"message": "Bot stopped"})
}
