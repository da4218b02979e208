package server

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// userRow users 表的一行
type userRow struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	IsAdmin      bool
	APIKey       sql.NullString
	APISecret    sql.NullString
	SubActive    bool
	SubExpiresAt sql.NullString
	CreatedAt    string
}

const userColumns = `id, email, name, password_hash, is_admin, api_key, api_secret, sub_active, sub_expires_at, created_at`

func scanUser(row *sql.Row) (*userRow, error) {
	var u userRow
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsAdmin,
		&u.APIKey, &u.APISecret, &u.SubActive, &u.SubExpiresAt, &u.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *Server) userByEmail(ctx context.Context, email string) (*userRow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	return scanUser(row)
}

func (s *Server) userByID(ctx context.Context, id string) (*userRow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (s *Server) createUser(ctx context.Context, email, name, passwordHash string) (*userRow, error) {
	u := &userRow{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		SubActive:    s.cfg.GrantSubscription,
		CreatedAt:    time.Now().UTC().Format(time.RFC3339),
	}
	if u.SubActive {
		u.SubExpiresAt = sql.NullString{
			String: time.Now().UTC().Add(30 * 24 * time.Hour).Format(time.RFC3339),
			Valid:  true,
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, is_admin, sub_active, sub_expires_at, created_at)
		VALUES (?, ?, ?, ?, 0, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.SubActive, u.SubExpiresAt, u.CreatedAt)
	if err != nil {
		return nil, errors.Wrap(err, "写入用户失败")
	}
	return u, nil
}

// profileJSON 用户资料响应体；敏感字段只暴露存在性
func profileJSON(u *userRow) gin.H {
	sub := gin.H{"is_active": u.SubActive}
	if u.SubExpiresAt.Valid {
		sub["expires_at"] = u.SubExpiresAt.String
	}
	return gin.H{
		"user_id":      u.ID,
		"email":        u.Email,
		"name":         u.Name,
		"is_admin":     u.IsAdmin,
		"has_api_key":  u.APIKey.Valid && u.APIKey.String != "",
		"subscription": sub,
	}
}

func (s *Server) handleProfile(c *gin.Context) {
	u := currentUser(c)
	c.JSON(http.StatusOK, profileJSON(u))
}

type apiKeyUpdateRequest struct {
	APIKey    string `json:"api_key"`
	APISecret string `json:"api_secret"`
}

func (s *Server) handleUpdateAPIKey(c *gin.Context) {
	var req apiKeyUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.APIKey == "" || req.APISecret == "" {
		detail(c, http.StatusBadRequest, "API key and secret are required")
		return
	}

	u := currentUser(c)
	_, err := s.db.ExecContext(c.Request.Context(),
		`UPDATE users SET api_key = ?, api_secret = ? WHERE id = ?`,
		req.APIKey, req.APISecret, u.ID)
	if err != nil {
		log.Errorf("更新 API 密钥失败: %v", err)
		detail(c, http.StatusInternalServerError, "Failed to update API key")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "API key updated"})
}
