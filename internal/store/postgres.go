package store

import (
	"database/sql"
)

func (s *Store) ensureSchema() error {
	if s == nil || s.db == nil {
		return nil
	}
	s.schemaOnce.Do(func() {
		_, s.schemaErr = s.db.Exec(`
CREATE TABLE IF NOT EXISTS games (
  id TEXT PRIMARY KEY,
  fen TEXT NOT NULL,
  pgn TEXT NOT NULL DEFAULT '',
  is_game_over BOOLEAN NOT NULL DEFAULT FALSE,
  winner TEXT NOT NULL DEFAULT '',
  white_player_type TEXT NOT NULL DEFAULT 'human',
  black_player_type TEXT NOT NULL DEFAULT 'human',
  white_player_config JSONB NOT NULL DEFAULT '{}',
  black_player_config JSONB NOT NULL DEFAULT '{}',
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS arena_runs (
  id TEXT PRIMARY KEY,
  status TEXT NOT NULL DEFAULT 'queued',
  config JSONB NOT NULL DEFAULT '{}',
  result JSONB,
  error TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_arena_runs_created_at ON arena_runs (created_at DESC);
`)
	})
	return s.schemaErr
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGame(row rowScanner) (GameRecord, bool) {
	var rec GameRecord
	var winner sql.NullString
	err := row.Scan(
		&rec.ID,
		&rec.FEN,
		&rec.PGN,
		&rec.Over,
		&winner,
		&rec.WhiteType,
		&rec.BlackType,
		&rec.WhiteConfig,
		&rec.BlackConfig,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return GameRecord{}, false
	}
	rec.Winner = winner.String
	return rec, true
}

func (s *Store) getGameDB(id string) (GameRecord, bool) {
	if err := s.ensureSchema(); err != nil {
		return GameRecord{}, false
	}
	row := s.db.QueryRow(`SELECT id, fen, pgn, is_game_over, winner,
white_player_type, black_player_type, white_player_config, black_player_config,
created_at, updated_at
FROM games WHERE id = $1`, id)
	return scanGame(row)
}

func (s *Store) putGameDB(rec GameRecord) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	whiteCfg := rec.WhiteConfig
	if len(whiteCfg) == 0 {
		whiteCfg = []byte(`{}`)
	}
	blackCfg := rec.BlackConfig
	if len(blackCfg) == 0 {
		blackCfg = []byte(`{}`)
	}
	_, err := s.db.Exec(`
INSERT INTO games (
  id, fen, pgn, is_game_over, winner,
  white_player_type, black_player_type, white_player_config, black_player_config,
  created_at, updated_at
)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
ON CONFLICT (id)
DO UPDATE SET fen=EXCLUDED.fen,
  pgn=EXCLUDED.pgn,
  is_game_over=EXCLUDED.is_game_over,
  winner=EXCLUDED.winner,
  updated_at=EXCLUDED.updated_at`,
		rec.ID, rec.FEN, rec.PGN, rec.Over, rec.Winner,
		rec.WhiteType, rec.BlackType, whiteCfg, blackCfg,
		rec.CreatedAt, rec.UpdatedAt)
	return err
}

func scanRun(row rowScanner) (RunRecord, bool) {
	var rec RunRecord
	var result sql.NullString
	err := row.Scan(
		&rec.ID,
		&rec.Status,
		&rec.Config,
		&result,
		&rec.Error,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return RunRecord{}, false
	}
	if result.Valid {
		rec.Result = []byte(result.String)
	}
	return rec, true
}

func (s *Store) getRunDB(id string) (RunRecord, bool) {
	if err := s.ensureSchema(); err != nil {
		return RunRecord{}, false
	}
	row := s.db.QueryRow(`SELECT id, status, config, result, error, created_at, updated_at
FROM arena_runs WHERE id = $1`, id)
	return scanRun(row)
}

func (s *Store) putRunDB(rec RunRecord) error {
	if err := s.ensureSchema(); err != nil {
		return err
	}
	config := rec.Config
	if len(config) == 0 {
		config = []byte(`{}`)
	}
	var result any
	if len(rec.Result) > 0 {
		result = []byte(rec.Result)
	}
	_, err := s.db.Exec(`
INSERT INTO arena_runs (id, status, config, result, error, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (id)
DO UPDATE SET status=EXCLUDED.status,
  result=EXCLUDED.result,
  error=EXCLUDED.error,
  updated_at=EXCLUDED.updated_at`,
		rec.ID, rec.Status, config, result, rec.Error,
		rec.CreatedAt, rec.UpdatedAt)
	return err
}

func (s *Store) listRunsDB(limit int) []RunRecord {
	if err := s.ensureSchema(); err != nil {
		return nil
	}
	rows, err := s.db.Query(`SELECT id, status, config, result, error, created_at, updated_at
FROM arena_runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil
	}
	defer rows.Close()
	var out []RunRecord
	for rows.Next() {
		if rec, ok := scanRun(rows); ok {
			out = append(out, rec)
		}
	}
	return out
}
