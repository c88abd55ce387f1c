package translator

import (
	"context"
	"fmt"
	"time"

	"layout-translator/logger"
)

// TranslatorClient 翻译客户端（支持多提供商），负责重试和缓存
type TranslatorClient struct {
	Provider      Provider
	Cache         *Cache
	RetryTimes    int
	RetryInterval time.Duration
	log           *logger.Logger
}

// NewTranslatorClient 创建翻译客户端，cache 可以为 nil
func NewTranslatorClient(ctx context.Context, config ProviderConfig, cache *Cache, log *logger.Logger) (*TranslatorClient, error) {
	provider, err := NewProvider(ctx, config)
	if err != nil {
		return nil, err
	}
	return NewClientWithProvider(provider, cache, log), nil
}

// NewClientWithProvider 使用已有的提供商创建客户端
func NewClientWithProvider(provider Provider, cache *Cache, log *logger.Logger) *TranslatorClient {
	if log == nil {
		log = logger.Default()
	}
	return &TranslatorClient{
		Provider:      provider,
		Cache:         cache,
		RetryTimes:    5,
		RetryInterval: 2 * time.Second,
		log:           log,
	}
}

// WithRetry 设置重试参数
func (c *TranslatorClient) WithRetry(times int, interval time.Duration) *TranslatorClient {
	c.RetryTimes = times
	c.RetryInterval = interval
	return c
}

// Translate 翻译文本（带缓存和重试）
func (c *TranslatorClient) Translate(ctx context.Context, req Request) (string, error) {
	key := CacheKey(req)
	if c.Cache != nil {
		if cached, ok := c.Cache.Get(key); ok {
			c.log.Debug("命中翻译缓存", logger.Fields{"文本": logger.Truncate(req.Text, 40)})
			return cached, nil
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.RetryTimes; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(c.RetryInterval):
			}
		}

		result, err := c.Provider.Translate(ctx, req)
		if err == nil {
			if c.Cache != nil {
				if cerr := c.Cache.Set(key, result); cerr != nil {
					c.log.Warn("写入翻译缓存失败", logger.Fields{"错误": cerr.Error()})
				}
			}
			return result, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		c.log.Warn("翻译请求失败", logger.Fields{
			"提供商": c.Provider.GetName(),
			"尝试":  attempt + 1,
			"错误":  err.Error(),
		})
	}

	return "", fmt.Errorf("翻译失败（重试 %d 次后）: %w", c.RetryTimes, lastErr)
}
