package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"layout-translator/models"
	"layout-translator/pdf"
)

// 默认值
const (
	DefaultListenAddr     = ":8080"
	DefaultProvider       = "openai"
	DefaultModel          = "gpt-4o-mini"
	DefaultTemperature    = 0.3
	DefaultMaxTokens      = 4000
	DefaultRetryTimes     = 5
	DefaultRetryInterval  = 2 * time.Second
	DefaultMinFontSize    = 7
	DefaultSourceLanguage = "Korean"
	DefaultTargetLanguage = "English"
	DefaultPageRange      = "ALL"
	DefaultSessionTimeout = 24 * time.Hour
)

// ErrMissingAPIKey 提供商需要 API Key 但未配置
var ErrMissingAPIKey = errors.New("缺少 API Key")

// Config 服务与命令行共用的配置
type Config struct {
	ListenAddr     string           `yaml:"listenAddr"`
	DevMode        bool             `yaml:"devMode"`
	DataDir        string           `yaml:"dataDir"`
	CacheDir       string           `yaml:"cacheDir"`
	LogLevel       string           `yaml:"logLevel"`
	LogDir         string           `yaml:"logDir"`
	SourceLanguage string           `yaml:"sourceLanguage"`
	TargetLanguage string           `yaml:"targetLanguage"`
	PageRange      string           `yaml:"pageRange"`
	LLM            models.LLMConfig `yaml:"llm"`
	RetryTimes     int              `yaml:"retryTimes"`
	RetryInterval  time.Duration    `yaml:"retryInterval"`
	MinFontSize    int              `yaml:"minFontSize"`
	SessionTimeout time.Duration    `yaml:"sessionTimeout"`
	// Layout 内容解析时成行成块的阈值
	Layout pdf.LayoutConfig `yaml:"layout"`
}

// Default 返回默认配置
func Default() *Config {
	dataDir := filepath.Join(os.TempDir(), "layout-translator")
	return &Config{
		ListenAddr:     DefaultListenAddr,
		DataDir:        dataDir,
		CacheDir:       defaultCacheDir(),
		LogLevel:       "info",
		SourceLanguage: DefaultSourceLanguage,
		TargetLanguage: DefaultTargetLanguage,
		PageRange:      DefaultPageRange,
		LLM: models.LLMConfig{
			Provider:    DefaultProvider,
			Model:       DefaultModel,
			Temperature: DefaultTemperature,
			MaxTokens:   DefaultMaxTokens,
		},
		RetryTimes:     DefaultRetryTimes,
		RetryInterval:  DefaultRetryInterval,
		MinFontSize:    DefaultMinFontSize,
		SessionTimeout: DefaultSessionTimeout,
		Layout:         pdf.DefaultLayoutConfig(),
	}
}

// Load 依次应用默认值、YAML 文件（可选）和环境变量
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup("OPENAI_API_KEY"); ok && v != "" {
		c.LLM.APIKey = v
	}
	if v, ok := lookup("OPENAI_BASE_URL"); ok && v != "" {
		c.LLM.APIURL = v
	}
	if v, ok := lookup("TRANSLATOR_PROVIDER"); ok && v != "" {
		c.LLM.Provider = strings.ToLower(v)
	}
	if v, ok := lookup("TRANSLATOR_MODEL"); ok && v != "" {
		c.LLM.Model = v
	}
	if v, ok := lookup("TRANSLATOR_CACHE_DIR"); ok && v != "" {
		c.CacheDir = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.LogLevel = v
	}
	if v, ok := lookup("LISTEN_ADDR"); ok && v != "" {
		c.ListenAddr = v
	}
	if v, ok := lookup("DEV_MODE"); ok && v != "" {
		dev, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("DEV_MODE 取值无效 %q: %w", v, err)
		}
		c.DevMode = dev
	}
	return nil
}

// Validate 检查配置是否可用
func (c *Config) Validate() error {
	if c.RetryTimes < 1 {
		return fmt.Errorf("retryTimes 必须大于 0: %d", c.RetryTimes)
	}
	if c.MinFontSize < 1 {
		return fmt.Errorf("minFontSize 必须大于 0: %d", c.MinFontSize)
	}
	l := c.Layout
	if l.LineTolerance <= 0 || l.WordGap <= 0 || l.MaxHorizontalGap <= 0 || l.MaxLineSpacing <= 0 || l.MaxSizeRatio < 1 {
		return fmt.Errorf("layout 阈值无效: %+v", l)
	}
	return ValidateLLM(c.LLM)
}

// ValidateLLM 检查提供商配置，本地提供商不需要 API Key
func ValidateLLM(llm models.LLMConfig) error {
	switch strings.ToLower(llm.Provider) {
	case "ollama", "libretranslate", "custom":
		return nil
	case "":
		return errors.New("未指定翻译提供商")
	}
	if llm.APIKey == "" {
		return fmt.Errorf("%s: %w", llm.Provider, ErrMissingAPIKey)
	}
	return nil
}

func defaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "layout-translator")
	}
	return filepath.Join(os.TempDir(), "layout-translator-cache")
}
