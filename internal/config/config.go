package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wiko-cutlery/assistant-portal/internal/model/chat"
)

// DefaultAPIURL 与前端默认的后端地址保持一致。
const DefaultAPIURL = "http://localhost:5000/api"

// Config 聚合客户端与本地桩服务的配置项。
type Config struct {
	API    APIConfig    `yaml:"api"`
	Portal PortalConfig `yaml:"portal"`
	Server ServerConfig `yaml:"server"`
}

// APIConfig 描述远端 API 的访问方式。
type APIConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	CookieFile string        `yaml:"cookie_file"`
	Metrics    bool          `yaml:"metrics"`
}

// PortalConfig 描述命令行客户端的行为。
type PortalConfig struct {
	NotifyAddr     string           `yaml:"notify_addr"`
	DefaultContext chat.ContextType `yaml:"default_context"`
}

// ServerConfig 描述本地桩服务的监听配置。
type ServerConfig struct {
	Addr    string        `yaml:"addr"`
	Latency time.Duration `yaml:"latency"`
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile 先读取可选的 YAML 文件，再用环境变量覆盖。
func LoadFile(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyAPIEnv(&cfg.API); err != nil {
		return nil, err
	}
	if err := applyPortalEnv(&cfg.Portal); err != nil {
		return nil, err
	}
	if err := applyServerEnv(&cfg.Server); err != nil {
		return nil, err
	}

	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")
	if cfg.API.BaseURL == "" {
		return nil, fmt.Errorf("api base url must not be empty")
	}
	if cfg.API.Timeout < 0 {
		return nil, fmt.Errorf("invalid api timeout %s", cfg.API.Timeout)
	}
	if _, err := chat.ParseContextType(string(cfg.Portal.DefaultContext)); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultAPIURL,
		},
		Portal: PortalConfig{
			DefaultContext: chat.ContextGeneral,
		},
		Server: ServerConfig{
			Addr: ":5000",
		},
	}
}

func applyAPIEnv(api *APIConfig) error {
	api.BaseURL = getEnvOrDefault("PORTAL_API_URL", api.BaseURL)
	api.CookieFile = getEnvOrDefault("PORTAL_COOKIE_FILE", api.CookieFile)

	timeout, err := parseOptionalIntEnv("PORTAL_HTTP_TIMEOUT")
	if err != nil {
		return err
	}
	if timeout != nil {
		// 0 表示不设置超时，与浏览器 fetch 的默认行为一致。
		api.Timeout = time.Duration(*timeout) * time.Second
	}

	metrics, err := parseBoolEnv("PORTAL_METRICS", api.Metrics)
	if err != nil {
		return err
	}
	api.Metrics = metrics
	return nil
}

func applyPortalEnv(portal *PortalConfig) error {
	portal.NotifyAddr = getEnvOrDefault("PORTAL_NOTIFY_ADDR", portal.NotifyAddr)

	raw := getEnvOrDefault("PORTAL_DEFAULT_CONTEXT", string(portal.DefaultContext))
	ct, err := chat.ParseContextType(raw)
	if err != nil {
		return fmt.Errorf("invalid PORTAL_DEFAULT_CONTEXT value %q: %w", raw, err)
	}
	portal.DefaultContext = ct
	return nil
}

// applyServerEnv 解析桩服务监听地址。
func applyServerEnv(server *ServerConfig) error {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port != "" {
		if strings.Contains(port, " ") {
			return fmt.Errorf("invalid PORT value: %q", port)
		}
		if strings.Contains(port, ":") {
			// 允许用户直接传入 ":5000" 或 "127.0.0.1:5000"。
			server.Addr = port
		} else {
			server.Addr = ":" + port
		}
	}

	latency, err := parseOptionalIntEnv("MOCKAPI_LATENCY_MS")
	if err != nil {
		return err
	}
	if latency != nil {
		if *latency < 0 {
			return fmt.Errorf("invalid MOCKAPI_LATENCY_MS value %d", *latency)
		}
		server.Latency = time.Duration(*latency) * time.Millisecond
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
