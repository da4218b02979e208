package config

import (
	"os"
	"path/filepath"
	"testing"
)

// TestDefault 测试默认配置
func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Server.ListenAddr != ":8001" {
		t.Errorf("期望默认监听地址 :8001，得到 %s", cfg.Server.ListenAddr)
	}
	if cfg.Client.BaseURL != "http://localhost:8001" {
		t.Errorf("期望默认 BaseURL http://localhost:8001，得到 %s", cfg.Client.BaseURL)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("默认配置不应该校验失败: %v", err)
	}
}

// TestLoadFromFile 测试从 YAML 文件加载配置
func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
client:
  base_url: "http://example.com:9000"
  data_dir: "/tmp/paneldata"
log:
  level: "debug"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.Client.BaseURL != "http://example.com:9000" {
		t.Errorf("期望 BaseURL http://example.com:9000，得到 %s", cfg.Client.BaseURL)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("期望日志级别 debug，得到 %s", cfg.Log.Level)
	}
	// 未覆盖的字段保留默认值
	if cfg.Server.ListenAddr != ":8001" {
		t.Errorf("未覆盖字段应保留默认值，得到 %s", cfg.Server.ListenAddr)
	}
}

// TestLoadEnvOverride 测试环境变量覆盖
func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PANEL_BASE_URL", "http://env-host:7000")
	t.Setenv("PANEL_LOG_LEVEL", "warn")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if cfg.Client.BaseURL != "http://env-host:7000" {
		t.Errorf("环境变量应覆盖 BaseURL，得到 %s", cfg.Client.BaseURL)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("环境变量应覆盖日志级别，得到 %s", cfg.Log.Level)
	}
}

// TestValidate 测试配置校验
func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Client.BaseURL = "ftp://bad"
	if err := cfg.Validate(); err == nil {
		t.Error("非 http(s) 的 BaseURL 应该校验失败")
	}

	cfg = Default()
	cfg.Server.PushInterval = 0
	if err := cfg.Validate(); err == nil {
		t.Error("推送间隔为 0 应该校验失败")
	}
}

// TestStreamURL 测试推送流地址派生
func TestStreamURL(t *testing.T) {
	cases := []struct {
		base, ws, want string
	}{
		{"http://localhost:8001", "", "ws://localhost:8001/api/ws"},
		{"https://bot.example.com", "", "wss://bot.example.com/api/ws"},
		{"http://localhost:8001/", "", "ws://localhost:8001/api/ws"},
		{"http://localhost:8001", "ws://other:9/api/ws", "ws://other:9/api/ws"},
	}
	for _, c := range cases {
		cc := ClientConfig{BaseURL: c.base, WSURL: c.ws}
		if got := cc.StreamURL(); got != c.want {
			t.Errorf("StreamURL(%q, %q) = %q，期望 %q", c.base, c.ws, got, c.want)
		}
	}
}
