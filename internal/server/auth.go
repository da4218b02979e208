package server

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const userCtxKey = "gopanel_user"

// issueToken 签发 HS256 访问令牌，sub 为用户 ID
func (s *Server) issueToken(userID string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.cfg.TokenTTL)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}

// parseToken 校验令牌并取出用户 ID
func (s *Server) parseToken(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return []byte(s.cfg.JWTSecret), nil
		})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return "", jwt.ErrTokenInvalidClaims
	}
	return claims.Subject, nil
}

// requireAuth Bearer 令牌中间件，把用户整行放进请求上下文
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			detail(c, http.StatusUnauthorized, "Not authenticated")
			c.Abort()
			return
		}

		userID, err := s.parseToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			detail(c, http.StatusUnauthorized, "Invalid or expired token")
			c.Abort()
			return
		}

		u, err := s.userByID(c.Request.Context(), userID)
		if err != nil {
			if err == sql.ErrNoRows {
				detail(c, http.StatusUnauthorized, "User not found")
			} else {
				log.Errorf("查询用户失败: %v", err)
				detail(c, http.StatusInternalServerError, "Internal server error")
			}
			c.Abort()
			return
		}

		c.Set(userCtxKey, u)
		c.Next()
	}
}

// currentUser 取出 requireAuth 放进去的用户
func currentUser(c *gin.Context) *userRow {
	return c.MustGet(userCtxKey).(*userRow)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// authResponse 登录/注册共用的响应
func (s *Server) authResponse(c *gin.Context, u *userRow) {
	token, err := s.issueToken(u.ID)
	if err != nil {
		log.Errorf("签发令牌失败: %v", err)
		detail(c, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token": token,
		"token_type":   "bearer",
		"user":         profileJSON(u),
	})
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		detail(c, http.StatusBadRequest, "Email and password are required")
		return
	}

	u, err := s.userByEmail(c.Request.Context(), strings.ToLower(req.Email))
	if err != nil {
		if err != sql.ErrNoRows {
			log.Errorf("查询用户失败: %v", err)
		}
		// 用户不存在和密码错误给同一个回答
		detail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		detail(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	s.authResponse(c, u)
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		detail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Email == "" || req.Password == "" {
		detail(c, http.StatusBadRequest, "Name, email and password are required")
		return
	}
	if len(req.Password) < 6 {
		detail(c, http.StatusBadRequest, "Password must be at least 6 characters")
		return
	}

	if _, err := s.userByEmail(c.Request.Context(), req.Email); err == nil {
		detail(c, http.StatusBadRequest, "Email already registered")
		return
	} else if err != sql.ErrNoRows {
		log.Errorf("查询用户失败: %v", err)
		detail(c, http.StatusInternalServerError, "Internal server error")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		detail(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	u, err := s.createUser(c.Request.Context(), req.Email, req.Name, string(hash))
	if err != nil {
		log.Errorf("创建用户失败: %v", err)
		detail(c, http.StatusInternalServerError, "Failed to create user")
		return
	}
	log.Infof("新用户注册: %s", u.Email)
	s.authResponse(c, u)
}
