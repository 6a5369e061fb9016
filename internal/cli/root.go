// Package cli provides the command-line interface of the assistant.
package cli

import (
	"context"
	"fmt"
	"os"

	"assistantbot/internal/extraction"
	"assistantbot/internal/intent"
	"assistantbot/internal/llm"
	"assistantbot/pkg/config"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// Version is set at build time.
var Version = "0.1.0"

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:           "assistant",
	Short:         "Telegram-ассистент для встреч, задач и заметок",
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "уровень логов (по умолчанию LOG_LEVEL или info)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "формат логов: json или text")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(consoleCmd)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func setupLogging(cfg *config.Config, defaultFormat string) {
	format := logFormat
	if format == "" {
		format = defaultFormat
	}
	if format == "text" {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
	logrus.SetOutput(os.Stdout)

	level := logLevel
	if level == "" {
		level = cfg.LogLevel
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.Warnf("Неизвестный уровень логов %q, используем info", level)
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

func loadPhrases(path string) (*intent.Phrases, error) {
	if path == "" {
		return intent.DefaultPhrases(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка при чтении %s: %w", path, err)
	}
	return intent.LoadPhrases(data)
}

// newLLM returns the extraction service, or nil when no model is configured.
func newLLM(cfg *config.Config) *llm.Service {
	if !cfg.AIConfigured() {
		logrus.Info("LLM не настроен, используются только эвристики")
		return nil
	}
	return llm.NewService(cfg)
}

func extractorOf(svc *llm.Service) extraction.Extractor {
	if svc == nil {
		return nil
	}
	return svc
}
