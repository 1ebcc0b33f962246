package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/daringdolphin/chemcheck/internal/analyzer"
	"github.com/daringdolphin/chemcheck/internal/handler"
	appI18n "github.com/daringdolphin/chemcheck/internal/i18n"
	"github.com/daringdolphin/chemcheck/internal/llm"
	"github.com/daringdolphin/chemcheck/internal/model"
	"github.com/daringdolphin/chemcheck/internal/refimage"
	"github.com/daringdolphin/chemcheck/internal/storage"
	"github.com/daringdolphin/chemcheck/internal/store"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "chemcheck",
		Short: "Chemistry answer analysis powered by vision LLMs",
	}

	serve := serveCmd()
	root.AddCommand(serve)

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `chemcheck --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the analysis API server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("db", "chemcheck.db", "SQLite database path")
	f.StringSliceP("questions", "q", []string{"questions/chemistry_olevel.json"}, "Paths to questions JSON files (repeatable)")
	f.String("storage-url", "", "Base URL of the image storage service (required)")
	f.String("storage-bucket", "question-images", "Storage bucket holding question and answer images")
	f.String("provider", "openai", "Default model provider (openai, anthropic)")
	f.String("openai-key", "", "OpenAI API key (or set CHEMCHECK_OPENAI_KEY)")
	f.String("openai-url", "", "OpenAI-compatible API base URL (empty = api.openai.com)")
	f.String("openai-model", "gpt-4o", "OpenAI vision model name")
	f.String("anthropic-key", "", "Anthropic API key (or set CHEMCHECK_ANTHROPIC_KEY)")
	f.String("anthropic-model", "claude-3-5-sonnet-20241022", "Anthropic vision model name")
	f.Duration("analysis-timeout", 120*time.Second, "Per-attempt analysis timeout")
	f.StringP("lang", "l", "en", "Default response language (en, zh)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("CHEMCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("chemcheck")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/chemcheck")
	v.AddConfigPath("/etc/chemcheck")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)

	db, err := store.New(v.GetString("db"))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := loadQuestions(db, v.GetStringSlice("questions")); err != nil {
		return fmt.Errorf("load questions: %w", err)
	}

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	resolver, err := storage.NewResolver(v.GetString("storage-url"), v.GetString("storage-bucket"))
	if err != nil {
		return fmt.Errorf("configure storage: %w", err)
	}

	providers, err := buildProviders(v)
	if err != nil {
		return err
	}

	defaultProvider := model.Provider(v.GetString("provider"))
	if !model.ValidProvider(string(defaultProvider)) {
		return fmt.Errorf("unsupported default provider %q", defaultProvider)
	}

	fetcher := refimage.New(&http.Client{Timeout: 30 * time.Second})
	svc := analyzer.New(db, resolver, fetcher, providers, defaultProvider)

	h := handler.New(svc, db, resolver)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"default_provider", defaultProvider,
		"storage_url", v.GetString("storage-url"),
		"lang", lang,
	)
	return http.ListenAndServe(addr, r)
}

// buildProviders constructs an adapter for every backend with an API key.
// At least one key must be configured.
func buildProviders(v *viper.Viper) ([]llm.Provider, error) {
	var providers []llm.Provider

	if key := v.GetString("openai-key"); key != "" {
		cfg := llm.DefaultOpenAIConfig()
		cfg.Model = v.GetString("openai-model")
		cfg.AnalysisTimeout = v.GetDuration("analysis-timeout")
		providers = append(providers, llm.NewOpenAI(v.GetString("openai-url"), key, cfg))
	}
	if key := v.GetString("anthropic-key"); key != "" {
		cfg := llm.DefaultAnthropicConfig()
		cfg.Model = v.GetString("anthropic-model")
		cfg.AnalysisTimeout = v.GetDuration("analysis-timeout")
		providers = append(providers, llm.NewAnthropic(key, cfg))
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no provider configured: set --openai-key or --anthropic-key")
	}
	return providers, nil
}

// loadQuestions imports questions JSON files, skipping files whose content
// hash has already been recorded.
func loadQuestions(db *store.Store, paths []string) error {
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}

		hash := sha256sum(data)
		storedHash, err := db.GetImportedFileHash(path)
		if err != nil {
			return fmt.Errorf("check import status for %s: %w", path, err)
		}
		if storedHash == hash {
			slog.Info("questions file unchanged, skipping", "path", path)
			continue
		}
		if storedHash != "" {
			slog.Warn("questions file changed since last import, skipping", "path", path)
			continue
		}

		var questions []model.QuestionImport
		if err := json.Unmarshal(data, &questions); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}

		for _, qi := range questions {
			err := db.InsertQuestion(model.Question{
				ID:          qi.ID,
				PromptImg:   qi.PromptImg,
				ModelAnswer: qi.ModelAnswer,
				Marks:       qi.Marks,
				Syllabus:    qi.Syllabus,
			})
			if err != nil {
				return fmt.Errorf("insert question %s from %s: %w", qi.ID, path, err)
			}
			for i, key := range qi.ReferenceImages {
				err := db.InsertReferenceImage(model.ReferenceImageRef{
					QuestionID: qi.ID,
					ImgKey:     key,
					Position:   i,
				})
				if err != nil {
					return fmt.Errorf("insert reference image for %s: %w", qi.ID, err)
				}
			}
		}

		if err := db.SetImportedFileHash(path, hash); err != nil {
			return fmt.Errorf("record import for %s: %w", path, err)
		}
		slog.Info("imported questions", "path", path, "count", len(questions))
	}
	return nil
}

func sha256sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
