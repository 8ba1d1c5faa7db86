package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonasqin/automedia-ai/pkg/adapter"
	"github.com/jonasqin/automedia-ai/pkg/cache"
	"github.com/jonasqin/automedia-ai/pkg/config"
	"github.com/jonasqin/automedia-ai/pkg/orchestrator"
	"github.com/jonasqin/automedia-ai/pkg/server"
	"github.com/jonasqin/automedia-ai/pkg/store"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "automedia-ai",
		Short: "AI generation orchestration service for the AutoMedia platform",
		Long: `automedia-ai routes generation requests to the appropriate AI provider
	based on the requested model, tracks each generation as a persisted
	record with token and cost accounting, and serves aggregated per-user
	statistics through a cache.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")

	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(modelsCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func generateCmd() *cobra.Command {
	var (
		userID       string
		model        string
		systemPrompt string
		contextText  string
		agentID      string
		temperature  float64
		maxTokens    int
	)

	cmd := &cobra.Command{
		Use:   "generate [prompt]",
		Short: "Run one generation and print the result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := buildService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := svc.Generate(cmd.Context(), userID, orchestrator.Request{
				Prompt:       args[0],
				Model:        model,
				Temperature:  temperature,
				MaxTokens:    maxTokens,
				SystemPrompt: systemPrompt,
				Context:      contextText,
				AgentID:      agentID,
			})
			if err != nil {
				return err
			}
			if res.PersistenceErr != nil {
				fmt.Fprintf(os.Stderr, "warning: %v\n", res.PersistenceErr)
			}
			return printJSON(res)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "local", "user the generation belongs to")
	cmd.Flags().StringVar(&model, "model", "", "model name (defaults from config)")
	cmd.Flags().StringVar(&systemPrompt, "system", "", "system prompt prepended to the task")
	cmd.Flags().StringVar(&contextText, "context", "", "context wrapped around the task")
	cmd.Flags().StringVar(&agentID, "agent", "", "agent preset to attribute the generation to")
	cmd.Flags().Float64Var(&temperature, "temperature", 0, "sampling temperature")
	cmd.Flags().IntVar(&maxTokens, "max-tokens", 0, "maximum output tokens")

	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [user-id]",
		Short: "Print a user's aggregated generation statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := buildService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			snap, err := svc.GetStats(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(snap)
		},
	}
}

func modelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List configured providers and their models",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			reg := buildRegistry(cfg, slog.Default())

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PROVIDER\tMODEL")
			for _, name := range reg.Names() {
				a, _ := reg.Get(name)
				for _, model := range a.Models() {
					fmt.Fprintf(w, "%s\t%s\n", name, model)
				}
			}
			return w.Flush()
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP generation service",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))

			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			svc, cleanup, err := buildServiceFromConfig(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			httpSrv := &http.Server{
				Addr:         addr,
				Handler:      server.New(svc, logger),
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
			}

			logger.Info("listening", "addr", addr)
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
}

func buildService(ctx context.Context) (*orchestrator.Service, func(), error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	return buildServiceFromConfig(ctx, cfg, logger)
}

func buildServiceFromConfig(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*orchestrator.Service, func(), error) {
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	var st store.Store
	if cfg.Mongo.URI != "" {
		mongoStore, client, err := store.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, nil, err
		}
		cleanups = append(cleanups, func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		})
		st = mongoStore
	} else {
		logger.Warn("no mongo.uri configured, generations will not be persisted across runs")
		st = store.NewMemory()
	}

	var ca cache.Cache
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		cleanups = append(cleanups, func() { _ = redisCache.Close() })
		ca = redisCache
	} else {
		ca = cache.NewMemory()
	}

	svc := orchestrator.New(buildRegistry(cfg, logger), st, ca, orchestrator.Options{
		DefaultModel:        cfg.Generation.DefaultModel,
		DefaultTemperature:  cfg.Generation.DefaultTemperature,
		DefaultMaxTokens:    cfg.Generation.DefaultMaxTokens,
		MaxRetries:          cfg.Generation.MaxRetries,
		ProviderConcurrency: cfg.Generation.ProviderConcurrency,
		StatsTTL:            cfg.Generation.StatsTTL,
		StrictPersistence:   cfg.Generation.StrictPersistence,
	}, logger)

	return svc, cleanup, nil
}

// buildRegistry registers an adapter for every provider with credentials.
// With no credentials at all, a mock adapter is registered under the
// default provider so local runs still work end to end.
func buildRegistry(cfg *config.Config, logger *slog.Logger) *adapter.Registry {
	var adapters []adapter.Adapter

	if key := cfg.Providers.OpenAIAPIKey; key != "" {
		if a, err := adapter.NewOpenAIAdapter(key); err == nil {
			adapters = append(adapters, a)
		}
	}
	if key := cfg.Providers.AnthropicAPIKey; key != "" {
		if a, err := adapter.NewAnthropicAdapter(key); err == nil {
			adapters = append(adapters, a)
		}
	}
	if key := cfg.Providers.GoogleAPIKey; key != "" {
		a, err := adapter.NewGoogleAdapter(key)
		if err != nil {
			logger.Warn("skipping google adapter", "error", err)
		} else {
			adapters = append(adapters, a)
		}
	}
	if key := cfg.Providers.DeepSeekAPIKey; key != "" {
		if a, err := adapter.NewDeepSeekAdapter(key); err == nil {
			adapters = append(adapters, a)
		}
	}

	if len(adapters) == 0 {
		logger.Warn("no provider credentials configured, using mock adapter")
		adapters = append(adapters, adapter.NewMockAdapter().WithName(adapter.DefaultProvider))
	}

	return adapter.NewRegistry(adapters...)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
