package translator

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"layout-translator/logger"
)

// TextTranslator 替换引擎使用的翻译接口
// 实现不返回错误，翻译失败时返回原文
type TextTranslator interface {
	Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) string
}

// TextTranslatorFunc 函数适配器
type TextTranslatorFunc func(ctx context.Context, text, sourceLanguage, targetLanguage string) string

func (f TextTranslatorFunc) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) string {
	return f(ctx, text, sourceLanguage, targetLanguage)
}

// ClientTranslator 基于 TranslatorClient 的 TextTranslator
type ClientTranslator struct {
	client   *TranslatorClient
	model    string
	log      *logger.Logger
	calls    atomic.Int64
	failures atomic.Int64
}

// NewClientTranslator 创建翻译器，model 为空时使用提供商默认模型
func NewClientTranslator(client *TranslatorClient, model string, log *logger.Logger) *ClientTranslator {
	if log == nil {
		log = logger.Default()
	}
	return &ClientTranslator{client: client, model: model, log: log}
}

// Translate 翻译文本，空白文本直接返回，任何失败都退回原文
func (t *ClientTranslator) Translate(ctx context.Context, text, sourceLanguage, targetLanguage string) (result string) {
	if strings.TrimSpace(text) == "" {
		return text
	}

	defer func() {
		if r := recover(); r != nil {
			t.failures.Add(1)
			t.log.Error("翻译时发生panic，使用原文", fmt.Errorf("%w: %v", ErrTranslationUnavailable, r))
			result = text
		}
	}()

	t.calls.Add(1)
	translated, err := t.client.Translate(ctx, Request{
		Text:           text,
		SourceLanguage: sourceLanguage,
		TargetLanguage: targetLanguage,
		Model:          t.model,
	})
	if err != nil {
		t.failures.Add(1)
		t.log.Error("翻译失败，使用原文", fmt.Errorf("%w: %w", ErrTranslationUnavailable, err), logger.Fields{
			"文本": logger.Truncate(text, 60),
		})
		return text
	}
	if strings.TrimSpace(translated) == "" {
		return text
	}
	return translated
}

// TranslateBatch 逐条翻译，结果与输入一一对应
func (t *ClientTranslator) TranslateBatch(ctx context.Context, texts []string, sourceLanguage, targetLanguage string) []string {
	results := make([]string, len(texts))
	for i, text := range texts {
		if ctx.Err() != nil {
			results[i] = text
			continue
		}
		results[i] = t.Translate(ctx, text, sourceLanguage, targetLanguage)
	}
	return results
}

// Calls 实际发起的翻译请求数
func (t *ClientTranslator) Calls() int64 { return t.calls.Load() }

// Failures 失败后退回原文的次数
func (t *ClientTranslator) Failures() int64 { return t.failures.Load() }
