package translator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	einoopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"layout-translator/models"
)

// ProviderType 翻译提供商类型
type ProviderType string

const (
	ProviderOpenAI         ProviderType = "openai"
	ProviderDeepSeek       ProviderType = "deepseek"
	ProviderCustom         ProviderType = "custom"
	ProviderClaude         ProviderType = "claude"
	ProviderGemini         ProviderType = "gemini"
	ProviderOllama         ProviderType = "ollama"
	ProviderLibreTranslate ProviderType = "libretranslate"
)

// 各提供商的默认地址
var defaultAPIURLs = map[ProviderType]string{
	ProviderOpenAI:         "https://api.openai.com/v1",
	ProviderDeepSeek:       "https://api.deepseek.com/v1",
	ProviderClaude:         "https://api.anthropic.com/v1/messages",
	ProviderGemini:         "https://generativelanguage.googleapis.com/v1beta/models",
	ProviderOllama:         "http://localhost:11434/api/generate",
	ProviderLibreTranslate: "http://localhost:5000/translate",
}

// Provider 翻译提供商接口
type Provider interface {
	Translate(ctx context.Context, req Request) (string, error)
	GetName() string
}

// ProviderConfig 提供商配置
type ProviderConfig struct {
	Type        ProviderType      `json:"type"`
	APIKey      string            `json:"apiKey"`
	APIURL      string            `json:"apiUrl"`
	Model       string            `json:"model"`
	Temperature float64           `json:"temperature"`
	MaxTokens   int               `json:"maxTokens"`
	Timeout     time.Duration     `json:"-"`
	Extra       map[string]string `json:"extra,omitempty"` // 额外参数
}

// ProviderConfigFromLLM 从接口和配置文件使用的 LLMConfig 转换
func ProviderConfigFromLLM(c models.LLMConfig) ProviderConfig {
	return ProviderConfig{
		Type:        ProviderType(strings.ToLower(strings.TrimSpace(c.Provider))),
		APIKey:      c.APIKey,
		APIURL:      c.APIURL,
		Model:       c.Model,
		Temperature: c.Temperature,
		MaxTokens:   c.MaxTokens,
		Extra:       c.Extra,
	}
}

// BaseProvider 基于 HTTP 的提供商公共实现
type BaseProvider struct {
	Config     ProviderConfig
	HTTPClient *http.Client
}

// NewProvider 创建提供商实例
func NewProvider(ctx context.Context, config ProviderConfig) (Provider, error) {
	if config.Type == "" {
		config.Type = ProviderOpenAI
	}
	if config.APIURL == "" {
		config.APIURL = defaultAPIURLs[config.Type]
	}
	if config.Timeout <= 0 {
		config.Timeout = 60 * time.Second
	}
	base := &BaseProvider{
		Config:     config,
		HTTPClient: &http.Client{Timeout: config.Timeout},
	}

	switch config.Type {
	case ProviderOpenAI, ProviderDeepSeek, ProviderCustom:
		return newOpenAIProvider(ctx, base)
	case ProviderClaude:
		return &ClaudeProvider{BaseProvider: base}, nil
	case ProviderGemini:
		return &GeminiProvider{BaseProvider: base}, nil
	case ProviderOllama:
		return &OllamaProvider{BaseProvider: base}, nil
	case ProviderLibreTranslate:
		return &LibreTranslateProvider{BaseProvider: base}, nil
	default:
		return nil, fmt.Errorf("不支持的提供商类型: %s", config.Type)
	}
}

func (b *BaseProvider) modelFor(req Request) string {
	if req.Model != "" {
		return req.Model
	}
	return b.Config.Model
}

// postJSON 发送 JSON 请求并返回响应体
func (b *BaseProvider) postJSON(ctx context.Context, url string, payload interface{}, headers map[string]string) ([]byte, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return b.doRequest(req)
}

// doRequest 执行 HTTP 请求
func (b *BaseProvider) doRequest(req *http.Request) ([]byte, error) {
	resp, err := b.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API 请求失败: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API 返回错误 (状态码 %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// OpenAIProvider OpenAI 兼容的提供商（包括 OpenAI、DeepSeek 和自定义地址），基于 eino ChatModel
type OpenAIProvider struct {
	*BaseProvider
	chat *einoopenai.ChatModel
}

func newOpenAIProvider(ctx context.Context, base *BaseProvider) (*OpenAIProvider, error) {
	cfg := &einoopenai.ChatModelConfig{
		APIKey:     base.Config.APIKey,
		BaseURL:    openAIBaseURL(base.Config.APIURL),
		Model:      base.Config.Model,
		HTTPClient: base.HTTPClient,
	}
	if base.Config.Temperature > 0 {
		temperature := float32(base.Config.Temperature)
		cfg.Temperature = &temperature
	}
	if base.Config.MaxTokens > 0 {
		maxTokens := base.Config.MaxTokens
		cfg.MaxTokens = &maxTokens
	}

	chat, err := einoopenai.NewChatModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("创建 %s 模型失败: %w", base.Config.Type, err)
	}
	return &OpenAIProvider{BaseProvider: base, chat: chat}, nil
}

// openAIBaseURL 兼容填写了完整 chat/completions 地址的配置
func openAIBaseURL(url string) string {
	url = strings.TrimRight(url, "/")
	return strings.TrimSuffix(url, "/chat/completions")
}

func (p *OpenAIProvider) GetName() string {
	return string(p.Config.Type)
}

func (p *OpenAIProvider) Translate(ctx context.Context, req Request) (string, error) {
	messages := []*schema.Message{
		schema.SystemMessage(SystemPrompt()),
		schema.UserMessage(UserPrompt(req)),
	}
	msg, err := p.chat.Generate(ctx, messages, model.WithModel(p.modelFor(req)))
	if err != nil {
		return "", fmt.Errorf("API 请求失败: %w", err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("API 未返回翻译结果")
	}
	return cleanResult(msg.Content), nil
}

// ClaudeProvider Anthropic Claude 提供商
type ClaudeProvider struct {
	*BaseProvider
}

func (p *ClaudeProvider) GetName() string {
	return "claude"
}

func (p *ClaudeProvider) Translate(ctx context.Context, req Request) (string, error) {
	maxTokens := p.Config.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4000
	}
	reqBody := map[string]interface{}{
		"model":       p.modelFor(req),
		"max_tokens":  maxTokens,
		"temperature": p.Config.Temperature,
		"system":      SystemPrompt(),
		"messages": []map[string]string{
			{"role": "user", "content": UserPrompt(req)},
		},
	}

	body, err := p.postJSON(ctx, p.Config.APIURL, reqBody, map[string]string{
		"x-api-key":         p.Config.APIKey,
		"anthropic-version": "2023-06-01",
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API 错误: %s", resp.Error.Message)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("API 未返回翻译结果")
	}
	return cleanResult(resp.Content[0].Text), nil
}

// GeminiProvider Google Gemini 提供商
type GeminiProvider struct {
	*BaseProvider
}

func (p *GeminiProvider) GetName() string {
	return "gemini"
}

func (p *GeminiProvider) Translate(ctx context.Context, req Request) (string, error) {
	generationConfig := map[string]interface{}{
		"temperature": p.Config.Temperature,
	}
	if p.Config.MaxTokens > 0 {
		generationConfig["maxOutputTokens"] = p.Config.MaxTokens
	}
	reqBody := map[string]interface{}{
		"systemInstruction": map[string]interface{}{
			"parts": []map[string]string{{"text": SystemPrompt()}},
		},
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": UserPrompt(req)}}},
		},
		"generationConfig": generationConfig,
	}

	// 地址格式: {APIURL}/{model}:generateContent，APIURL 已包含 generateContent 时直接使用
	apiURL := p.Config.APIURL
	if !strings.Contains(apiURL, ":generateContent") {
		apiURL = fmt.Sprintf("%s/%s:generateContent", strings.TrimRight(apiURL, "/"), p.modelFor(req))
	}

	body, err := p.postJSON(ctx, apiURL, reqBody, map[string]string{
		"x-goog-api-key": p.Config.APIKey,
	})
	if err != nil {
		return "", err
	}

	var resp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("API 错误: %s", resp.Error.Message)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("API 未返回翻译结果")
	}
	return cleanResult(resp.Candidates[0].Content.Parts[0].Text), nil
}

// OllamaProvider Ollama 本地模型提供商
type OllamaProvider struct {
	*BaseProvider
}

func (p *OllamaProvider) GetName() string {
	return "ollama"
}

func (p *OllamaProvider) Translate(ctx context.Context, req Request) (string, error) {
	options := map[string]interface{}{
		"temperature": p.Config.Temperature,
	}
	if p.Config.MaxTokens > 0 {
		options["num_predict"] = p.Config.MaxTokens
	}
	reqBody := map[string]interface{}{
		"model":   p.modelFor(req),
		"system":  SystemPrompt(),
		"prompt":  UserPrompt(req),
		"stream":  false,
		"options": options,
	}

	body, err := p.postJSON(ctx, p.Config.APIURL, reqBody, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		Response string `json:"response"`
		Error    string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("API 错误: %s", resp.Error)
	}
	if strings.TrimSpace(resp.Response) == "" {
		return "", fmt.Errorf("API 未返回翻译结果")
	}
	return cleanResult(resp.Response), nil
}

// LibreTranslateProvider LibreTranslate 机器翻译提供商
type LibreTranslateProvider struct {
	*BaseProvider
}

func (p *LibreTranslateProvider) GetName() string {
	return "libretranslate"
}

func (p *LibreTranslateProvider) Translate(ctx context.Context, req Request) (string, error) {
	reqBody := map[string]interface{}{
		"q":      req.Text,
		"source": LanguageCode(req.SourceLanguage),
		"target": LanguageCode(req.TargetLanguage),
		"format": "text",
	}
	if p.Config.APIKey != "" {
		reqBody["api_key"] = p.Config.APIKey
	}

	body, err := p.postJSON(ctx, p.Config.APIURL, reqBody, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		TranslatedText string `json:"translatedText"`
		Error          string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("解析响应失败: %w", err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("翻译错误: %s", resp.Error)
	}
	if resp.TranslatedText == "" {
		return "", fmt.Errorf("API 未返回翻译结果")
	}
	return resp.TranslatedText, nil
}
