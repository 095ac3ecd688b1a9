// Package store persists games and arena runs. It runs fully in memory
// by default and switches to Postgres (via the pgx stdlib driver) when a
// DSN is configured, with an LRU cache in front of run reads.
package store

import (
	"database/sql"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// GameRecord is one persisted game, arena-independent.
type GameRecord struct {
	ID          string          `json:"id"`
	FEN         string          `json:"fen"`
	PGN         string          `json:"pgn"`
	Over        bool            `json:"is_game_over"`
	Winner      string          `json:"winner,omitempty"`
	WhiteType   string          `json:"white_player_type"`
	BlackType   string          `json:"black_player_type"`
	WhiteConfig json.RawMessage `json:"white_player_config,omitempty"`
	BlackConfig json.RawMessage `json:"black_player_config,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// RunRecord is a serialized arena run snapshot.
type RunRecord struct {
	ID        string          `json:"id"`
	Status    string          `json:"status"`
	Config    json.RawMessage `json:"config"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

const runCacheSize = 1024

// Store dispatches to Postgres when constructed with a DSN, otherwise
// to the in-memory maps. All methods are safe for concurrent use.
type Store struct {
	db *sql.DB

	schemaOnce sync.Once
	schemaErr  error

	mu    sync.RWMutex
	games map[string]GameRecord
	runs  map[string]RunRecord

	runCache *lru.Cache[string, RunRecord]
}

// New returns a memory-backed store.
func New() *Store {
	return &Store{
		games: make(map[string]GameRecord),
		runs:  make(map[string]RunRecord),
	}
}

// NewPostgres opens a Postgres-backed store.
func NewPostgres(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", strings.TrimSpace(dsn))
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	cache, err := lru.New[string, RunRecord](runCacheSize)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{
		db:       db,
		games:    make(map[string]GameRecord),
		runs:     make(map[string]RunRecord),
		runCache: cache,
	}, nil
}

// NewFromEnv builds a Postgres store when dsn is non-empty and falls
// back to memory when it is empty or unreachable.
func NewFromEnv(dsn string) *Store {
	if strings.TrimSpace(dsn) == "" {
		return New()
	}
	s, err := NewPostgres(dsn)
	if err != nil {
		return New()
	}
	return s
}

// Backend reports which backend actually won at construction time,
// which matters when a configured Postgres was unreachable and the
// store fell back to memory.
func (s *Store) Backend() string {
	if s != nil && s.db != nil {
		return "postgres"
	}
	return "memory"
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) PutGame(rec GameRecord) error {
	if s == nil || rec.ID == "" {
		return nil
	}
	rec.UpdatedAt = time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}
	if s.db != nil {
		return s.putGameDB(rec)
	}
	s.mu.Lock()
	s.games[rec.ID] = rec
	s.mu.Unlock()
	return nil
}

func (s *Store) GetGame(id string) (GameRecord, bool) {
	if s == nil || strings.TrimSpace(id) == "" {
		return GameRecord{}, false
	}
	if s.db != nil {
		return s.getGameDB(id)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.games[id]
	return rec, ok
}

func (s *Store) PutRun(rec RunRecord) error {
	if s == nil || rec.ID == "" {
		return nil
	}
	rec.UpdatedAt = time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = rec.UpdatedAt
	}
	if s.db != nil {
		err := s.putRunDB(rec)
		if err == nil && s.runCache != nil {
			s.runCache.Remove(rec.ID)
		}
		return err
	}
	s.mu.Lock()
	s.runs[rec.ID] = rec
	s.mu.Unlock()
	return nil
}

func (s *Store) GetRun(id string) (RunRecord, bool) {
	if s == nil || strings.TrimSpace(id) == "" {
		return RunRecord{}, false
	}
	if s.db != nil {
		if s.runCache != nil {
			if cached, ok := s.runCache.Get(id); ok {
				return cached, true
			}
		}
		rec, ok := s.getRunDB(id)
		if ok && s.runCache != nil && terminal(rec.Status) {
			// Only terminal snapshots are immutable enough to cache.
			s.runCache.Add(id, rec)
		}
		return rec, ok
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.runs[id]
	return rec, ok
}

// ListRuns returns up to limit runs, most recently created first.
func (s *Store) ListRuns(limit int) []RunRecord {
	if s == nil {
		return nil
	}
	if limit < 1 {
		limit = 20
	}
	if s.db != nil {
		return s.listRunsDB(limit)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]RunRecord, 0, len(s.runs))
	for _, rec := range s.runs {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func terminal(status string) bool {
	return status == "completed" || status == "failed"
}
