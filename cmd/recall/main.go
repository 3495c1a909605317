// Package main is the recall CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pawlink/recall/internal/config"
	"github.com/pawlink/recall/internal/embedding"
	"github.com/pawlink/recall/internal/keyword"
	"github.com/pawlink/recall/internal/models"
	"github.com/pawlink/recall/internal/ranking"
	"github.com/pawlink/recall/internal/registry"
	"github.com/pawlink/recall/internal/router"
	"github.com/pawlink/recall/internal/server"
	"github.com/pawlink/recall/internal/storage"
	"github.com/pawlink/recall/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/recall/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence, so running from the project dir
// uses the project's config. Returns the config and the path actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "query":
		runQuery()
	case "rebuild":
		runRebuild()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("recall version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`recall - embedded semantic recommendation engine

Usage:
  recall server  [-config path] [-debug]        start the HTTP API
  recall query   [-config path] [-intent name] [-user id] [-limit n] <text>
  recall rebuild [-config path] [entity]        rebuild one or all indices
  recall status  [-config path]                 print index sizes
  recall version                                print version`)
}

// Components holds everything the engine needs at runtime.
type Components struct {
	Storage  storage.Storage
	Embedder embedding.Embedder
	Registry *registry.Registry
	Ranker   *ranking.Ranker
	Router   *router.Router
	Runtime  *config.Runtime
	FAQIndex *keyword.FAQIndex
}

// Close releases held resources.
func (c *Components) Close() {
	if c.FAQIndex != nil {
		_ = c.FAQIndex.Close()
	}
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger, withKeyword bool) (*Components, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	embedder, err := embedding.New(ctx, embedding.Options{
		Provider:       cfg.Embedding.Provider,
		Model:          cfg.Embedding.Model,
		APIKey:         cfg.Embedding.APIKey,
		BaseURL:        cfg.Embedding.BaseURL,
		ModelPath:      cfg.Embedding.ModelPath,
		Dimensions:     cfg.Embedding.Dimensions,
		MaxTokens:      cfg.Embedding.MaxTokens,
		CacheSize:      cfg.Embedding.CacheSize,
		TimeoutSeconds: cfg.Embedding.TimeoutSeconds,
	})
	if err != nil {
		logger.Warn("embedding provider unavailable, falling back to mock",
			zap.String("provider", cfg.Embedding.Provider), zap.Error(err))
		embedder = embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	}

	reg := registry.New(registry.Options{
		IndexDir:    cfg.Storage.IndexDir,
		Dimensions:  cfg.Embedding.Dimensions,
		BatchSize:   cfg.Index.BatchSize,
		ExpiryHours: cfg.Index.ExpiryHours,
	}, embedder, registry.Sources(store), logger)

	runtime := config.NewRuntime(cfg.Search)
	ranker := ranking.New(store, reg, embedder, runtime, logger)
	qr := router.New(reg, ranker, embedder, runtime, logger)

	components := &Components{
		Storage:  store,
		Embedder: embedder,
		Registry: reg,
		Ranker:   ranker,
		Router:   qr,
		Runtime:  runtime,
	}

	if withKeyword && cfg.Storage.FAQIndexPath != "" {
		faqIndex, err := keyword.NewFAQIndex(cfg.Storage.FAQIndexPath)
		if err != nil {
			logger.Warn("faq keyword index unavailable",
				zap.String("path", cfg.Storage.FAQIndexPath), zap.Error(err))
		} else {
			components.FAQIndex = faqIndex
			if err := syncFAQKeywordIndex(ctx, store, faqIndex); err != nil {
				logger.Warn("faq keyword sync failed", zap.Error(err))
			}
		}
	}
	return components, nil
}

// syncFAQKeywordIndex mirrors the relational FAQ rows into the Bleve index.
func syncFAQKeywordIndex(ctx context.Context, store storage.Storage, idx *keyword.FAQIndex) error {
	faqs, err := store.ListFAQs(ctx)
	if err != nil {
		return err
	}
	return idx.IndexAll(ctx, faqs)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	components, err := initializeComponents(ctx, cfg, logger, true)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	// warm the stores so the first request does not pay the build cost, and
	// honor the expiry policy for ones loaded from disk
	for _, entity := range components.Registry.Entities() {
		if _, err := components.Registry.Store(ctx, entity); err != nil {
			logger.Warn("index warmup failed", zap.String("entity", entity), zap.Error(err))
			continue
		}
		if err := components.Registry.CheckAndRefresh(ctx, entity); err != nil {
			logger.Warn("index refresh failed", zap.String("entity", entity), zap.Error(err))
		}
	}

	watcher := config.NewWatcher(resolvedConfigPath, components.Runtime, logger)
	if err := watcher.Start(ctx); err != nil {
		logger.Warn("config watcher unavailable", zap.Error(err))
	} else {
		defer watcher.Stop()
	}

	srv := server.NewServer(components.Router, components.Registry, components.FAQIndex, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Stop(shutdownCtx)
}

func runQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	intent := fs.String("intent", models.IntentGeneral, "classified intent")
	userID := fs.Int64("user", 0, "querying user id")
	limit := fs.Int("limit", 5, "number of results")
	petType := fs.String("pet-type", "", "extracted pet type filter")
	petBreed := fs.String("pet-breed", "", "extracted pet breed filter")
	symptom := fs.String("symptom", "", "extracted symptom")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: recall query [flags] <text>")
		os.Exit(1)
	}
	queryText := strings.TrimSpace(strings.Join(fs.Args(), " "))

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	components, err := initializeComponents(ctx, cfg, logger, false)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	env, err := components.Router.Query(ctx, &models.QueryRequest{
		Intent: *intent,
		UserID: *userID,
		Query:  queryText,
		Limit:  *limit,
		Entities: models.Entities{
			PetType:  *petType,
			PetBreed: *petBreed,
			Symptom:  *symptom,
		},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Query failed: %v\n", err)
		os.Exit(1)
	}
	out, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

func runRebuild() {
	fs := flag.NewFlagSet("rebuild", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	components, err := initializeComponents(ctx, cfg, logger, false)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	entities := components.Registry.Entities()
	if fs.NArg() > 0 {
		entity := fs.Arg(0)
		if !models.ValidEntity(entity) {
			fmt.Printf("Unknown entity type: %s (known: %s)\n", entity, strings.Join(entities, ", "))
			os.Exit(1)
		}
		entities = []string{entity}
	}
	for _, entity := range entities {
		start := time.Now()
		if err := components.Registry.Rebuild(ctx, entity); err != nil {
			fmt.Fprintf(os.Stderr, "Rebuild %s failed: %v\n", entity, err)
			os.Exit(1)
		}
		fmt.Printf("Rebuilt %s in %s\n", entity, time.Since(start).Round(time.Millisecond))
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(false)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	components, err := initializeComponents(ctx, cfg, logger, false)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	fmt.Printf("%-18s %8s %6s  %s\n", "ENTITY", "RECORDS", "DIM", "SAVED")
	for _, entity := range components.Registry.Entities() {
		s, err := components.Registry.Store(ctx, entity)
		if err != nil {
			fmt.Printf("%-18s error: %v\n", entity, err)
			continue
		}
		saved := "never"
		if !s.SavedAt().IsZero() {
			saved = s.SavedAt().Format(time.RFC3339)
		}
		fmt.Printf("%-18s %8d %6d  %s\n", entity, s.Len(), s.Dim(), saved)
	}
}
