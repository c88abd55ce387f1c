package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"layout-translator/config"
	"layout-translator/logger"
	"layout-translator/middleware"
	"layout-translator/models"
	"layout-translator/pdf"
	"layout-translator/translator"
)

// TaskManager 管理所有用户的任务
type TaskManager struct {
	// sessionID -> taskID -> task
	userTasks map[string]map[string]*models.TranslateTask
	mu        sync.RWMutex
}

// NewTaskManager 创建任务管理器
func NewTaskManager() *TaskManager {
	return &TaskManager{userTasks: make(map[string]map[string]*models.TranslateTask)}
}

// AddTask 为用户添加任务
func (tm *TaskManager) AddTask(sessionID string, task *models.TranslateTask) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.userTasks[sessionID] == nil {
		tm.userTasks[sessionID] = make(map[string]*models.TranslateTask)
	}
	tm.userTasks[sessionID][task.ID] = task
}

// GetTask 获取用户的特定任务，返回副本
func (tm *TaskManager) GetTask(sessionID, taskID string) (models.TranslateTask, bool) {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	if userTasks, exists := tm.userTasks[sessionID]; exists {
		if task, found := userTasks[taskID]; found {
			return *task, true
		}
	}
	return models.TranslateTask{}, false
}

// GetUserTasks 获取用户的所有任务，按创建时间排序
func (tm *TaskManager) GetUserTasks(sessionID string) []models.TranslateTask {
	tm.mu.RLock()
	defer tm.mu.RUnlock()

	userTasks := tm.userTasks[sessionID]
	tasks := make([]models.TranslateTask, 0, len(userTasks))
	for _, task := range userTasks {
		tasks = append(tasks, *task)
	}
	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
	})
	return tasks
}

// UpdateTask 更新任务（用于更新进度等）
func (tm *TaskManager) UpdateTask(sessionID, taskID string, updateFn func(*models.TranslateTask)) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if userTasks, exists := tm.userTasks[sessionID]; exists {
		if task, found := userTasks[taskID]; found {
			updateFn(task)
		}
	}
}

// DeleteSession 删除会话的所有任务
func (tm *TaskManager) DeleteSession(sessionID string) {
	tm.mu.Lock()
	defer tm.mu.Unlock()
	delete(tm.userTasks, sessionID)
}

// TranslatorFactory 根据请求创建翻译器
type TranslatorFactory func(ctx context.Context, sessionID string, req models.TranslateRequest) (translator.TextTranslator, error)

// Handler PDF 翻译接口
type Handler struct {
	cfg           *config.Config
	tasks         *TaskManager
	log           *logger.Logger
	newTranslator TranslatorFactory
	wg            sync.WaitGroup
	// ctx 所有后台任务的上下文，Shutdown 时取消
	ctx    context.Context
	cancel context.CancelFunc
}

// New 创建接口处理器
func New(cfg *config.Config, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Default()
	}
	h := &Handler{cfg: cfg, tasks: NewTaskManager(), log: log}
	h.ctx, h.cancel = context.WithCancel(context.Background())
	h.newTranslator = h.clientTranslator
	return h
}

// SetTranslatorFactory 替换翻译器的创建方式
func (h *Handler) SetTranslatorFactory(f TranslatorFactory) {
	h.newTranslator = f
}

// Tasks 任务管理器
func (h *Handler) Tasks() *TaskManager { return h.tasks }

// Register 注册 /api 路由
func (h *Handler) Register(r gin.IRouter) {
	api := r.Group("/api")
	api.POST("/translate", h.Translate)
	api.GET("/status/:taskId", h.GetStatus)
	api.GET("/download/:taskId", h.Download)
	api.GET("/tasks", h.GetTasks)
	api.GET("/languages", h.GetLanguages)
	api.POST("/inspect", h.Inspect)
}

// Wait 等待所有后台任务结束
func (h *Handler) Wait() { h.wg.Wait() }

// Shutdown 取消进行中的翻译任务并等待其退出，ctx 到期时返回 ctx 的错误
func (h *Handler) Shutdown(ctx context.Context) error {
	h.cancel()
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("等待翻译任务退出超时: %w", ctx.Err())
	}
}

// CleanupSession 删除过期会话的任务和文件
func (h *Handler) CleanupSession(sessionID string) {
	h.tasks.DeleteSession(sessionID)
	if err := os.RemoveAll(h.userDir(sessionID)); err != nil {
		h.log.Warn("删除会话目录失败", logger.Fields{"会话": shortID(sessionID), "错误": err.Error()})
	}
}

func (h *Handler) userDir(sessionID string) string {
	return filepath.Join(h.cfg.DataDir, "users", sessionID)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Translate 处理翻译请求
func (h *Handler) Translate(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	if h.ctx.Err() != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "服务正在关闭"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传文件"})
		return
	}
	if strings.ToLower(filepath.Ext(file.Filename)) != ".pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "只支持 .pdf 文件"})
		return
	}

	req, err := h.parseRequest(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	taskID := uuid.New().String()
	uploadDir := filepath.Join(h.userDir(sessionID), "uploads")
	if err := os.MkdirAll(uploadDir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "创建上传目录失败: " + err.Error()})
		return
	}
	sourcePath := filepath.Join(uploadDir, taskID+".pdf")
	if err := c.SaveUploadedFile(file, sourcePath); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存文件失败: " + err.Error()})
		return
	}

	// 接受任务之前先校验文档和页码范围
	totalPages, err := translator.ValidateDocument(sourcePath)
	if err != nil {
		os.Remove(sourcePath)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	pages, err := translator.ResolvePageRange(req.PageRange, totalPages)
	if err != nil {
		os.Remove(sourcePath)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "totalPages": totalPages})
		return
	}

	task := &models.TranslateTask{
		ID:             taskID,
		SessionID:      sessionID,
		SourceFile:     file.Filename,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		PageRange:      req.PageRange,
		Model:          req.LLMConfig.Model,
		Status:         models.StatusPending,
		TotalPages:     totalPages,
		CreatedAt:      time.Now(),
	}
	h.tasks.AddTask(sessionID, task)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.processTranslation(sessionID, taskID, sourcePath, len(pages), req)
	}()

	c.JSON(http.StatusOK, gin.H{
		"taskId":     taskID,
		"totalPages": totalPages,
		"pages":      translator.OneBased(pages),
		"message":    "翻译任务已创建",
	})
}

// parseRequest 读取表单参数并补全默认值
func (h *Handler) parseRequest(c *gin.Context) (models.TranslateRequest, error) {
	req := models.TranslateRequest{
		SourceLanguage: c.DefaultPostForm("sourceLanguage", h.cfg.SourceLanguage),
		TargetLanguage: c.DefaultPostForm("targetLanguage", h.cfg.TargetLanguage),
		PageRange:      c.DefaultPostForm("pageRange", h.cfg.PageRange),
		Model:          c.PostForm("model"),
		LLMConfig:      h.cfg.LLM,
	}
	if v := c.PostForm("forceRetranslate"); v != "" {
		force, err := strconv.ParseBool(v)
		if err != nil {
			return req, fmt.Errorf("forceRetranslate 取值无效: %q", v)
		}
		req.ForceRetranslate = force
	}

	if s := c.PostForm("llmConfig"); s != "" {
		var override models.LLMConfig
		if err := json.Unmarshal([]byte(s), &override); err != nil {
			return req, fmt.Errorf("LLM 配置格式错误: %w", err)
		}
		req.LLMConfig = mergeLLMConfig(h.cfg.LLM, override)
	}
	if req.Model != "" {
		req.LLMConfig.Model = req.Model
	}
	req.Model = req.LLMConfig.Model

	if strings.TrimSpace(req.TargetLanguage) == "" {
		return req, fmt.Errorf("目标语言不能为空")
	}
	if strings.TrimSpace(req.PageRange) == "" {
		req.PageRange = translator.RangeAll
	}
	if err := config.ValidateLLM(req.LLMConfig); err != nil {
		return req, err
	}
	return req, nil
}

// mergeLLMConfig 请求中的非空字段覆盖服务端配置，切换提供商时不沿用服务端的密钥和地址
func mergeLLMConfig(base, override models.LLMConfig) models.LLMConfig {
	out := base
	if override.Provider != "" && !strings.EqualFold(override.Provider, base.Provider) {
		out = models.LLMConfig{
			Provider:    override.Provider,
			Temperature: base.Temperature,
			MaxTokens:   base.MaxTokens,
		}
	}
	if override.APIKey != "" {
		out.APIKey = override.APIKey
	}
	if override.APIURL != "" {
		out.APIURL = override.APIURL
	}
	if override.Model != "" {
		out.Model = override.Model
	}
	if override.Temperature > 0 {
		out.Temperature = override.Temperature
	}
	if override.MaxTokens > 0 {
		out.MaxTokens = override.MaxTokens
	}
	if len(override.Extra) > 0 {
		out.Extra = override.Extra
	}
	return out
}

// clientTranslator 默认的翻译器：每个会话独立的缓存目录
func (h *Handler) clientTranslator(ctx context.Context, sessionID string, req models.TranslateRequest) (translator.TextTranslator, error) {
	cache, err := translator.NewCache(filepath.Join(h.userDir(sessionID), "cache"))
	if err != nil {
		return nil, fmt.Errorf("创建缓存失败: %w", err)
	}
	// 强制重新翻译时只禁用缓存读取，结果仍然写入
	if req.ForceRetranslate {
		cache.DisableCache()
	}

	client, err := translator.NewTranslatorClient(ctx, translator.ProviderConfigFromLLM(req.LLMConfig), cache, h.log)
	if err != nil {
		return nil, err
	}
	client.WithRetry(h.cfg.RetryTimes, h.cfg.RetryInterval)
	return translator.NewClientTranslator(client, req.LLMConfig.Model, h.log), nil
}

// processTranslation 处理翻译任务
func (h *Handler) processTranslation(sessionID, taskID, sourcePath string, selected int, req models.TranslateRequest) {
	log := h.log.With(logger.Fields{"会话": shortID(sessionID), "任务": taskID})
	fail := func(message string, err error) {
		h.tasks.UpdateTask(sessionID, taskID, func(t *models.TranslateTask) {
			t.Status = models.StatusFailed
			t.Error = message + ": " + err.Error()
			t.CompletedAt = time.Now()
		})
		log.Error(message, err)
	}

	defer func() {
		if r := recover(); r != nil {
			fail("翻译过程出错", fmt.Errorf("panic: %v", r))
		}
	}()

	h.tasks.UpdateTask(sessionID, taskID, func(t *models.TranslateTask) {
		t.Status = models.StatusProcessing
	})
	log.Info("开始处理翻译", logger.Fields{"提供商": req.LLMConfig.Provider, "模型": req.LLMConfig.Model})

	ctx := h.ctx
	tr, err := h.newTranslator(ctx, sessionID, req)
	if err != nil {
		fail("创建翻译客户端失败", err)
		return
	}

	outputDir := filepath.Join(h.userDir(sessionID), "outputs")
	outputPath := filepath.Join(outputDir, taskID+".pdf")

	done := 0
	progress := translator.ProgressFunc(func(current, total int) {
		h.tasks.UpdateTask(sessionID, taskID, func(t *models.TranslateTask) {
			t.CurrentPage = current
			t.TotalPages = total
			if selected > 0 {
				t.Progress = float64(done) / float64(selected)
			}
		})
		done++
	})

	pipeline := translator.NewPipeline(tr, log)
	pipeline.SetMinFontSize(h.cfg.MinFontSize)
	pipeline.SetLayoutConfig(h.cfg.Layout)
	result, err := pipeline.TranslatePDF(ctx, translator.Options{
		InputPath:      sourcePath,
		OutputPath:     outputPath,
		SourceLanguage: req.SourceLanguage,
		TargetLanguage: req.TargetLanguage,
		PageRange:      req.PageRange,
		Progress:       progress,
	})
	if err != nil {
		fail("翻译失败", err)
		return
	}

	h.tasks.UpdateTask(sessionID, taskID, func(t *models.TranslateTask) {
		t.Status = models.StatusCompleted
		t.Progress = 1.0
		t.CompletedAt = time.Now()
		t.OutputPath = result.Output
		t.Summary = result.Summary()
	})
	log.Info("翻译完成", logger.Fields{"输出": result.Output, "耗时": result.Duration.String()})
}

// GetStatus 获取任务状态
func (h *Handler) GetStatus(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	task, exists := h.tasks.GetTask(sessionID, c.Param("taskId"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在或无权访问"})
		return
	}
	c.JSON(http.StatusOK, task)
}

// Download 下载翻译后的 PDF
func (h *Handler) Download(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	task, exists := h.tasks.GetTask(sessionID, c.Param("taskId"))
	if !exists {
		c.JSON(http.StatusNotFound, gin.H{"error": "任务不存在或无权访问"})
		return
	}
	if task.Status != models.StatusCompleted {
		c.JSON(http.StatusBadRequest, gin.H{"error": "任务未完成"})
		return
	}

	baseName := strings.TrimSuffix(filepath.Base(task.SourceFile), filepath.Ext(task.SourceFile))
	c.FileAttachment(task.OutputPath, "translated_"+baseName+".pdf")
}

// GetTasks 获取当前用户的所有任务
func (h *Handler) GetTasks(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	taskList := h.tasks.GetUserTasks(sessionID)
	c.JSON(http.StatusOK, gin.H{
		"tasks": taskList,
		"total": len(taskList),
	})
}

// GetLanguages 可选语言和模型以及默认值
func (h *Handler) GetLanguages(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"languages": translator.Languages,
		"models":    translator.Models,
		"defaults": gin.H{
			"sourceLanguage": h.cfg.SourceLanguage,
			"targetLanguage": h.cfg.TargetLanguage,
			"model":          h.cfg.LLM.Model,
			"pageRange":      h.cfg.PageRange,
		},
	})
}

// Inspect 上传前预览文档页数和每页文本块
func (h *Handler) Inspect(c *gin.Context) {
	sessionID := middleware.GetSessionID(c)
	if sessionID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的会话"})
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "未找到上传文件"})
		return
	}
	if strings.ToLower(filepath.Ext(file.Filename)) != ".pdf" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "只支持 .pdf 文件"})
		return
	}

	dir := filepath.Join(h.userDir(sessionID), "inspect")
	if err := os.MkdirAll(dir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	path := filepath.Join(dir, uuid.NewString()+".pdf")
	if err := c.SaveUploadedFile(file, path); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "保存文件失败: " + err.Error()})
		return
	}
	defer os.Remove(path)

	info, err := pdf.Inspect(path, h.log)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}
