package translator

import (
	"fmt"
	"strings"
)

const systemPrompt = "You are a professional translator. Provide only the translation without any explanations."

// Request 单次翻译请求
type Request struct {
	Text           string
	SourceLanguage string
	TargetLanguage string
	// Model 为空时使用提供商配置中的模型
	Model string
}

// SystemPrompt 翻译角色提示词
func SystemPrompt() string {
	return systemPrompt
}

// UserPrompt 构造用户提示词，源语言为空时让模型自动识别
func UserPrompt(req Request) string {
	var sb strings.Builder
	if req.SourceLanguage != "" {
		fmt.Fprintf(&sb, "Translate the following text from %s to %s.\n", req.SourceLanguage, req.TargetLanguage)
	} else {
		fmt.Fprintf(&sb, "Translate the following text to %s.\n", req.TargetLanguage)
	}
	sb.WriteString("Only provide the translation without any explanations or additional text.\n\n")
	sb.WriteString("Text to translate:\n")
	sb.WriteString(req.Text)
	return sb.String()
}

// cleanResult 去掉模型回复首尾的空白和包裹的代码块标记
func cleanResult(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 6 || !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") {
		return s
	}
	inner := s[3 : len(s)-3]
	// 去掉 ```text 这样的语言标记
	if i := strings.IndexByte(inner, '\n'); i > 0 && !strings.ContainsAny(inner[:i], " \t") {
		if rest := strings.TrimSpace(inner[i+1:]); rest != "" {
			return rest
		}
	}
	return strings.TrimSpace(inner)
}
