package archive

import (
	"context"
	"encoding/json"
	"fmt"

	"chessarena/internal/arena"
)

// PutRunSnapshot archives one completed run: the aggregate result as
// JSON plus a PGN per game.
func (s *Store) PutRunSnapshot(ctx context.Context, snap arena.Snapshot) error {
	if snap.Result == nil {
		return fmt.Errorf("run %s has no result to archive", snap.ID)
	}
	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run %s: %w", snap.ID, err)
	}
	if err := s.Put(ctx, snap.ID, "result.json", payload, "application/json"); err != nil {
		return fmt.Errorf("archive result for %s: %w", snap.ID, err)
	}
	for _, g := range snap.Result.Games {
		if g.PGN == "" {
			continue
		}
		path := fmt.Sprintf("games/%03d.pgn", g.GameIndex)
		if err := s.Put(ctx, snap.ID, path, []byte(g.PGN), "application/x-chess-pgn"); err != nil {
			return fmt.Errorf("archive %s for %s: %w", path, snap.ID, err)
		}
	}
	return nil
}
