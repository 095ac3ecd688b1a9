// Package app wires configuration, storage, providers and the HTTP
// server into one runnable unit.
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"chessarena/internal/analysis"
	"chessarena/internal/api"
	"chessarena/internal/archive"
	"chessarena/internal/arena"
	"chessarena/internal/config"
	"chessarena/internal/game"
	"chessarena/internal/llm"
	"chessarena/internal/server"
	"chessarena/internal/store"
)

type App struct {
	server *server.Server
	store  *store.Store
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	st := store.NewFromEnv(cfg.DatabaseDSN)
	log.Printf("store: %s", st.Backend())

	factory := llm.NewFactory(llm.FactoryConfig{
		OpenAIKey:    cfg.LLM.OpenAIKey,
		AnthropicKey: cfg.LLM.AnthropicKey,
		GeminiKey:    cfg.LLM.GeminiKey,
		LocalBaseURL: cfg.LLM.LocalBaseURL,
		Timeout:      cfg.LLM.MoveTimeout,
	}, llm.RateLimitFromEnv(), llm.Logging())

	opts := arena.Options{
		Concurrency: cfg.Arena.Concurrency,
		Checker:     cfg,
		Persist:     persistRun(st),
	}
	if cfg.Artifact.Enabled {
		archiveStore, err := archive.New(archive.Config{
			Endpoint:  cfg.Artifact.Endpoint,
			Region:    cfg.Artifact.Region,
			AccessKey: cfg.Artifact.AccessKey,
			SecretKey: cfg.Artifact.SecretKey,
			Bucket:    cfg.Artifact.Bucket,
			UseSSL:    cfg.Artifact.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize artifact archive: %w", err)
		}
		log.Printf("artifact archive: s3 bucket=%s endpoint=%s", cfg.Artifact.Bucket, cfg.Artifact.Endpoint)
		opts.Archive = func(ctx context.Context, snap arena.Snapshot) {
			if err := archiveStore.PutRunSnapshot(ctx, snap); err != nil {
				log.Printf("archive_failed run_id=%s error=%v", snap.ID, err)
			}
		}
	}
	scheduler := arena.NewScheduler(factory, opts)

	games := game.NewController(st, factory, game.Options{
		Checker:        cfg,
		EnginePath:     cfg.Engine.Path,
		EngineMoveTime: cfg.Engine.MoveTime,
	})

	var analyzer *analysis.Service
	if cfg.Analysis.Enabled {
		analyzer = analysis.NewService(analysis.Config{
			Profile:            cfg.Analysis.Profile,
			MinPlies:           cfg.Analysis.MinPlies,
			MaxPlies:           cfg.Analysis.MaxPlies,
			MoveTime:           cfg.Analysis.MoveTime,
			KeyMovesLimit:      cfg.Analysis.KeyMovesLimit,
			TurningPointsLimit: cfg.Analysis.TurningPointsLimit,
			EnginePath:         cfg.Engine.Path,
		})
	}

	handler := api.NewHandler(cfg, games, scheduler, st, analyzer)
	srv := server.New(cfg.Port, api.NewMux(handler))

	return &App{server: srv, store: st}, nil
}

// persistRun mirrors every lifecycle snapshot into the store.
func persistRun(st *store.Store) func(arena.Snapshot) {
	return func(snap arena.Snapshot) {
		cfgJSON, err := json.Marshal(snap.Config)
		if err != nil {
			log.Printf("persist_run_failed id=%s error=%v", snap.ID, err)
			return
		}
		rec := store.RunRecord{
			ID:        snap.ID,
			Status:    snap.Status,
			Config:    cfgJSON,
			Error:     snap.Error,
			CreatedAt: snap.CreatedAt,
		}
		if snap.Result != nil {
			resultJSON, err := json.Marshal(snap.Result)
			if err != nil {
				log.Printf("persist_run_failed id=%s error=%v", snap.ID, err)
				return
			}
			rec.Result = resultJSON
		}
		if err := st.PutRun(rec); err != nil {
			log.Printf("persist_run_failed id=%s error=%v", snap.ID, err)
		}
	}
}

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	if cerr := a.store.Close(); err == nil {
		err = cerr
	}
	return err
}
