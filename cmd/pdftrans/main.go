package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"layout-translator/config"
	"layout-translator/logger"
	"layout-translator/pdf"
	"layout-translator/translator"
)

type options struct {
	input      string
	output     string
	from       string
	to         string
	pages      string
	model      string
	provider   string
	configPath string
	force      bool
	inspect    bool
	logLevel   string
}

func main() {
	opts, err := parseFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "pdftrans: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "pdftrans: %v\n", err)
		if translator.IsRangeError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func parseFlags() (options, error) {
	var opts options
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: pdftrans [flags] -in <pdf>\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&opts.input, "in", "", "Input PDF")
	flag.StringVar(&opts.output, "out", "", "Output PDF (default translated_<name>.pdf next to the input)")
	flag.StringVar(&opts.from, "from", "", "Source language (default from config)")
	flag.StringVar(&opts.to, "to", "", "Target language (default from config)")
	flag.StringVar(&opts.pages, "pages", "", "Page range: ALL, n or start-end")
	flag.StringVar(&opts.model, "model", "", "Model identifier")
	flag.StringVar(&opts.provider, "provider", "", "Translation provider: openai, deepseek, custom, claude, gemini, ollama, libretranslate")
	flag.StringVar(&opts.configPath, "config", os.Getenv("TRANSLATOR_CONFIG"), "YAML config file")
	flag.BoolVar(&opts.force, "force", false, "Ignore cached translations")
	flag.BoolVar(&opts.inspect, "inspect", false, "Print page and block summary as JSON and exit")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.Parse()

	if opts.input == "" && flag.NArg() == 1 {
		opts.input = flag.Arg(0)
	}
	if opts.input == "" {
		flag.Usage()
		return opts, errors.New("missing input pdf")
	}
	return opts, nil
}

func run(ctx context.Context, opts options) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	applyFlags(cfg, opts)

	log, err := logger.New(logger.Options{Level: cfg.LogLevel, Dir: cfg.LogDir, Name: "pdftrans", Console: true})
	if err != nil {
		return err
	}
	defer log.Close()
	logger.SetDefault(log)

	if opts.inspect {
		info, err := pdf.Inspect(opts.input, log)
		if err != nil {
			return err
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	var cache *translator.Cache
	if cfg.CacheDir != "" {
		cache, err = translator.NewCache(cfg.CacheDir)
		if err != nil {
			return fmt.Errorf("创建缓存失败: %w", err)
		}
		if opts.force {
			cache.DisableCache()
		}
	}

	client, err := translator.NewTranslatorClient(ctx, translator.ProviderConfigFromLLM(cfg.LLM), cache, log)
	if err != nil {
		return err
	}
	client.WithRetry(cfg.RetryTimes, cfg.RetryInterval)
	tr := translator.NewClientTranslator(client, cfg.LLM.Model, log)

	output := opts.output
	if output == "" {
		output = defaultOutput(opts.input)
	}

	pipeline := translator.NewPipeline(tr, log)
	pipeline.SetMinFontSize(cfg.MinFontSize)
	pipeline.SetLayoutConfig(cfg.Layout)
	result, err := pipeline.TranslatePDF(ctx, translator.Options{
		InputPath:      opts.input,
		OutputPath:     output,
		SourceLanguage: cfg.SourceLanguage,
		TargetLanguage: cfg.TargetLanguage,
		PageRange:      cfg.PageRange,
		Progress: translator.ProgressFunc(func(current, total int) {
			fmt.Fprintf(os.Stderr, "page %d/%d\n", current, total)
		}),
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s: %d pages, %d blocks translated (%d shrunk, %d truncated, %d failed), %d requests failed\n",
		result.Output, result.PagesProcessed, result.BlocksTranslated, result.Shrunk, result.Truncated, result.BlocksFailed, tr.Failures())
	return nil
}

// applyFlags 命令行参数覆盖配置
func applyFlags(cfg *config.Config, opts options) {
	if opts.from != "" {
		cfg.SourceLanguage = opts.from
	}
	if opts.to != "" {
		cfg.TargetLanguage = opts.to
	}
	if opts.pages != "" {
		cfg.PageRange = opts.pages
	}
	if opts.provider != "" {
		provider := strings.ToLower(opts.provider)
		if provider != strings.ToLower(cfg.LLM.Provider) {
			cfg.LLM.APIURL = ""
		}
		cfg.LLM.Provider = provider
	}
	if opts.model != "" {
		cfg.LLM.Model = opts.model
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
}

func defaultOutput(input string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(filepath.Dir(input), "translated_"+base+".pdf")
}
