package translator

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
)

// Cache 翻译缓存，每条译文保存为一个文件
type Cache struct {
	dir      string
	mutex    sync.RWMutex
	disabled bool // 是否禁用缓存
}

// NewCache 创建缓存
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &Cache{dir: dir}, nil
}

// DisableCache 禁用缓存（用于强制重新翻译）
func (c *Cache) DisableCache() {
	c.mutex.Lock()
	c.disabled = true
	c.mutex.Unlock()
}

// EnableCache 启用缓存
func (c *Cache) EnableCache() {
	c.mutex.Lock()
	c.disabled = false
	c.mutex.Unlock()
}

// Get 获取缓存
func (c *Cache) Get(key string) (string, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	if c.disabled {
		return "", false
	}

	data, err := os.ReadFile(c.path(key))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Set 设置缓存
func (c *Cache) Set(key, value string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return os.WriteFile(c.path(key), []byte(value), 0644)
}

// Clear 删除所有缓存文件
func (c *Cache) Clear() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".txt" {
			if err := os.Remove(filepath.Join(c.dir, e.Name())); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Cache) path(key string) string {
	hash := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(hash[:])+".txt")
}

// CacheKey 生成缓存键，同一段文本在不同语言对或模型下分别缓存
func CacheKey(req Request) string {
	data := map[string]string{
		"text":           req.Text,
		"sourceLanguage": req.SourceLanguage,
		"targetLanguage": req.TargetLanguage,
		"model":          req.Model,
	}
	jsonData, _ := json.Marshal(data)
	return string(jsonData)
}
