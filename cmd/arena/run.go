package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"chessarena/internal/arena"
	"chessarena/internal/llm"
)

var (
	flagConcurrency  int
	flagIncludeGames bool
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute a match and print the result as JSON",
		RunE:  runMatch,
	}
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 2, "max concurrent games")
	cmd.Flags().BoolVar(&flagIncludeGames, "include-games", false, "include per-game records in the output")
	return cmd
}

func loadMatchConfig(path string) (arena.RunConfig, error) {
	var cfg arena.RunConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func factoryFromEnv() *llm.Factory {
	_ = godotenv.Load()
	timeout := 15 * time.Second
	if raw := os.Getenv("LLM_MOVE_TIMEOUT_SECONDS"); raw != "" {
		if d, err := time.ParseDuration(raw + "s"); err == nil && d > 0 {
			timeout = d
		}
	}
	baseURL := os.Getenv("LOCAL_LLM_BASE_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:11434"
	}
	return llm.NewFactory(llm.FactoryConfig{
		OpenAIKey:    os.Getenv("OPENAI_API_KEY"),
		AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
		GeminiKey:    os.Getenv("GEMINI_API_KEY"),
		LocalBaseURL: baseURL,
		Timeout:      timeout,
	}, llm.RateLimitFromEnv(), llm.Logging())
}

func runMatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadMatchConfig(cfgFile)
	if err != nil {
		return err
	}

	// No checker: the CLI trusts its operator's model choices.
	scheduler := arena.NewScheduler(factoryFromEnv(), arena.Options{
		Concurrency: flagConcurrency,
	})
	snap, err := scheduler.Submit(cfg)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "run %s: %d games, %d max plies\n", snap.ID, cfg.NumGames, cfg.MaxPlies)

	for {
		time.Sleep(500 * time.Millisecond)
		snap, _ = scheduler.Get(snap.ID)
		if snap.Status == arena.StatusCompleted || snap.Status == arena.StatusFailed {
			break
		}
	}
	if snap.Status == arena.StatusFailed {
		return fmt.Errorf("run failed: %s", snap.Error)
	}

	result := snap.Result
	if !flagIncludeGames {
		result = result.WithoutGames()
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}
