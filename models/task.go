package models

import "time"

// 任务状态
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// TranslateTask 单个 PDF 翻译任务
type TranslateTask struct {
	ID             string    `json:"id"`
	SessionID      string    `json:"-"`
	SourceFile     string    `json:"sourceFile"`
	SourceLanguage string    `json:"sourceLanguage"`
	TargetLanguage string    `json:"targetLanguage"`
	PageRange      string    `json:"pageRange"`
	Model          string    `json:"model"`
	Status         string    `json:"status"` // pending, processing, completed, failed
	Progress       float64   `json:"progress"`
	CurrentPage    int       `json:"currentPage"`
	TotalPages     int       `json:"totalPages"`
	Summary        *Summary  `json:"summary,omitempty"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
	CompletedAt    time.Time `json:"completedAt,omitempty"`
	OutputPath     string    `json:"-"`
}

// Summary 任务完成后的块统计
type Summary struct {
	PagesProcessed   int `json:"pagesProcessed"`
	BlocksTotal      int `json:"blocksTotal"`
	BlocksTranslated int `json:"blocksTranslated"`
	BlocksSkipped    int `json:"blocksSkipped"`
	BlocksFailed     int `json:"blocksFailed"`
	Shrunk           int `json:"shrunk"`
	Truncated        int `json:"truncated"`
	Lossy            int `json:"lossy"`
}

// LLMConfig 翻译提供商配置
type LLMConfig struct {
	Provider    string            `json:"provider" yaml:"provider"` // openai, claude, gemini, ollama, deepseek, custom, libretranslate
	APIKey      string            `json:"apiKey" yaml:"apiKey"`
	APIURL      string            `json:"apiUrl" yaml:"apiUrl"`
	Model       string            `json:"model" yaml:"model"`
	Temperature float64           `json:"temperature" yaml:"temperature"`
	MaxTokens   int               `json:"maxTokens" yaml:"maxTokens"`
	Extra       map[string]string `json:"extra,omitempty" yaml:"extra,omitempty"` // 额外参数，用于自定义提供商
}

// TranslateRequest 上传接口的表单参数
type TranslateRequest struct {
	SourceLanguage   string    `json:"sourceLanguage"`
	TargetLanguage   string    `json:"targetLanguage"`
	PageRange        string    `json:"pageRange"`
	Model            string    `json:"model"`
	LLMConfig        LLMConfig `json:"llmConfig"`
	ForceRetranslate bool      `json:"forceRetranslate,omitempty"` // 是否强制重新翻译（忽略缓存）
}
