package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Fields 日志附加字段
type Fields = map[string]interface{}

// Options 日志记录器配置
type Options struct {
	// Level 日志级别: debug, info, warn, error
	Level string
	// Dir 日志文件目录，为空时不写文件
	Dir string
	// Name 日志文件名前缀
	Name string
	// Console 是否同时输出到控制台
	Console bool
	// JSON 使用 JSON 格式输出
	JSON bool
	// Output 自定义输出目标，设置后忽略 Dir 和 Console
	Output io.Writer
}

// Logger 结构化日志记录器
type Logger struct {
	entry   *logrus.Entry
	logFile *os.File
	mutex   sync.Mutex
}

var (
	defaultLogger *Logger
	defaultOnce   sync.Once
	defaultMutex  sync.RWMutex
)

// New 创建日志记录器
func New(opts Options) (*Logger, error) {
	base := logrus.New()

	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}
	base.SetLevel(level)

	if opts.JSON {
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	} else {
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
			DisableColors:   opts.Dir != "",
		})
	}

	l := &Logger{}

	var writers []io.Writer
	switch {
	case opts.Output != nil:
		writers = append(writers, opts.Output)
	default:
		if opts.Dir != "" {
			if err := os.MkdirAll(opts.Dir, 0755); err != nil {
				return nil, fmt.Errorf("创建日志目录失败: %w", err)
			}
			name := opts.Name
			if name == "" {
				name = "translator"
			}
			timestamp := time.Now().Format("20060102_150405")
			logFilePath := filepath.Join(opts.Dir, fmt.Sprintf("%s_%s.log", name, timestamp))
			logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
			if err != nil {
				return nil, fmt.Errorf("创建日志文件失败: %w", err)
			}
			l.logFile = logFile
			writers = append(writers, logFile)
		}
		if opts.Console || len(writers) == 0 {
			writers = append(writers, os.Stdout)
		}
	}
	base.SetOutput(io.MultiWriter(writers...))

	l.entry = logrus.NewEntry(base)
	return l, nil
}

// ParseLevel 解析日志级别，空字符串视为 info
func ParseLevel(level string) (logrus.Level, error) {
	if level == "" {
		return logrus.InfoLevel, nil
	}
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel, fmt.Errorf("无效的日志级别 %q: %w", level, err)
	}
	return parsed, nil
}

// Default 返回进程级默认日志记录器
func Default() *Logger {
	defaultOnce.Do(func() {
		l, err := New(Options{Console: true})
		if err != nil {
			l = &Logger{entry: logrus.NewEntry(logrus.StandardLogger())}
		}
		defaultMutex.Lock()
		if defaultLogger == nil {
			defaultLogger = l
		}
		defaultMutex.Unlock()
	})
	defaultMutex.RLock()
	defer defaultMutex.RUnlock()
	return defaultLogger
}

// SetDefault 替换默认日志记录器
func SetDefault(l *Logger) {
	if l == nil {
		return
	}
	defaultOnce.Do(func() {})
	defaultMutex.Lock()
	defaultLogger = l
	defaultMutex.Unlock()
}

// Discard 返回丢弃所有输出的日志记录器，测试时使用
func Discard() *Logger {
	l, _ := New(Options{Output: io.Discard, Level: "error"})
	return l
}

// With 返回带固定字段的子记录器，例如会话和任务ID
func (l *Logger) With(fields Fields) *Logger {
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

// SetLevel 调整日志级别
func (l *Logger) SetLevel(level string) error {
	parsed, err := ParseLevel(level)
	if err != nil {
		return err
	}
	l.entry.Logger.SetLevel(parsed)
	return nil
}

// DebugEnabled 是否输出调试日志
func (l *Logger) DebugEnabled() bool {
	return l.entry.Logger.IsLevelEnabled(logrus.DebugLevel)
}

// Debug 记录调试信息
func (l *Logger) Debug(message string, data ...Fields) {
	l.withData(data).Debug(message)
}

// Info 记录信息
func (l *Logger) Info(message string, data ...Fields) {
	l.withData(data).Info(message)
}

// Warn 记录警告
func (l *Logger) Warn(message string, data ...Fields) {
	l.withData(data).Warn(message)
}

// Error 记录错误
func (l *Logger) Error(message string, err error, data ...Fields) {
	entry := l.withData(data)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(message)
}

// Timing 记录操作耗时
func (l *Logger) Timing(operation string, duration time.Duration, data ...Fields) {
	fields := Fields{"操作": operation, "耗时": duration.String()}
	if len(data) > 0 {
		for k, v := range data[0] {
			fields[k] = v
		}
	}
	l.Info("操作完成", fields)
}

// Close 关闭日志文件
func (l *Logger) Close() error {
	l.mutex.Lock()
	defer l.mutex.Unlock()
	if l.logFile == nil {
		return nil
	}
	err := l.logFile.Close()
	l.logFile = nil
	return err
}

func (l *Logger) withData(data []Fields) *logrus.Entry {
	if len(data) == 0 || data[0] == nil {
		return l.entry
	}
	return l.entry.WithFields(logrus.Fields(data[0]))
}

// Truncate 截断过长文本，用于日志预览
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
