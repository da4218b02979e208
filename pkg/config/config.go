package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 应用配置
// 优先级：环境变量 > 配置文件 > 默认值
type Config struct {
	Server ServerConfig `yaml:"server"`
	Client ClientConfig `yaml:"client"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig 开发服务端配置（cmd/server）
type ServerConfig struct {
	ListenAddr   string        `yaml:"listen_addr"`    // 监听地址，默认 :8001
	DBPath       string        `yaml:"db_path"`        // SQLite 数据库路径
	JWTSecret    string        `yaml:"jwt_secret"`     // JWT 签名密钥
	TokenTTL     time.Duration `yaml:"token_ttl"`      // 访问令牌有效期，默认 7 天
	PushInterval time.Duration `yaml:"push_interval"`  // coins_update 推送间隔，默认 5s
	UseBinance   bool          `yaml:"use_binance"`    // true 则从币安拉取 K 线计算 EMA，否则使用模拟数据
	BinanceKey   string        `yaml:"binance_key"`    // 币安 API Key（可选，公共行情不需要）
	BinanceSecret string       `yaml:"binance_secret"` // 币安 API Secret（可选）

	// GrantSubscription 注册即赠送有效订阅，省去开发环境手工入库
	GrantSubscription bool `yaml:"grant_subscription"`
}

// ClientConfig 终端客户端配置（cmd/panel / cmd/coinswatch）
type ClientConfig struct {
	BaseURL string `yaml:"base_url"` // 后端 REST 基础地址，例如 http://localhost:8001
	WSURL   string `yaml:"ws_url"`   // 推送流地址（为空则从 BaseURL 派生）
	DataDir string `yaml:"data_dir"` // 本地数据目录（令牌存储等）
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`
	OutputFile string `yaml:"output_file"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

func init() {
	// .env 不存在时静默忽略
	_ = godotenv.Load()
}

// Default 返回默认配置
func Default() *Config {
	home, _ := os.UserHomeDir()
	dataDir := filepath.Join(home, ".gopanel")
	return &Config{
		Server: ServerConfig{
			ListenAddr:   ":8001",
			DBPath:       filepath.Join(dataDir, "server.db"),
			JWTSecret:    "dev_secret_change_me",
			TokenTTL:     7 * 24 * time.Hour,
			PushInterval: 5 * time.Second,

			GrantSubscription: true,
		},
		Client: ClientConfig{
			BaseURL: "http://localhost:8001",
			DataDir: dataDir,
		},
		Log: LogConfig{
			Level:      "info",
			OutputFile: filepath.Join(dataDir, "logs", "gopanel.log"),
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     7,
			Compress:   true,
		},
	}
}

// Load 加载配置：先读配置文件（可选），再用环境变量覆盖
func Load(filePath string) (*Config, error) {
	cfg := Default()

	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", filePath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败 %s: %w", filePath, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.ListenAddr = getEnv("PANEL_SERVER_ADDR", c.Server.ListenAddr)
	c.Server.DBPath = getEnv("PANEL_DB_PATH", c.Server.DBPath)
	c.Server.JWTSecret = getEnv("JWT_SECRET", c.Server.JWTSecret)
	c.Server.UseBinance = parseBoolEnv("PANEL_USE_BINANCE", c.Server.UseBinance)
	c.Server.BinanceKey = getEnv("BINANCE_API_KEY", c.Server.BinanceKey)
	c.Server.BinanceSecret = getEnv("BINANCE_API_SECRET", c.Server.BinanceSecret)
	if d := parseDurationEnv("PANEL_PUSH_INTERVAL", 0); d > 0 {
		c.Server.PushInterval = d
	}
	c.Server.GrantSubscription = parseBoolEnv("PANEL_GRANT_SUB", c.Server.GrantSubscription)

	c.Client.BaseURL = getEnv("PANEL_BASE_URL", c.Client.BaseURL)
	c.Client.WSURL = getEnv("PANEL_WS_URL", c.Client.WSURL)
	c.Client.DataDir = getEnv("PANEL_DATA_DIR", c.Client.DataDir)

	c.Log.Level = getEnv("PANEL_LOG_LEVEL", c.Log.Level)
	c.Log.OutputFile = getEnv("PANEL_LOG_FILE", c.Log.OutputFile)
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Client.BaseURL == "" {
		return fmt.Errorf("client.base_url 不能为空")
	}
	if !strings.HasPrefix(c.Client.BaseURL, "http://") && !strings.HasPrefix(c.Client.BaseURL, "https://") {
		return fmt.Errorf("client.base_url 必须以 http:// 或 https:// 开头: %s", c.Client.BaseURL)
	}
	if c.Server.PushInterval <= 0 {
		return fmt.Errorf("server.push_interval 必须为正值")
	}
	if c.Server.TokenTTL <= 0 {
		return fmt.Errorf("server.token_ttl 必须为正值")
	}
	return nil
}

// StreamURL 返回推送流地址：显式配置优先，否则从 BaseURL 派生
// http://host:port -> ws://host:port/api/ws
func (c *ClientConfig) StreamURL() string {
	if c.WSURL != "" {
		return c.WSURL
	}
	u := c.BaseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return strings.TrimSuffix(u, "/") + "/api/ws"
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func parseDurationEnv(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultValue
	}
	return d
}
