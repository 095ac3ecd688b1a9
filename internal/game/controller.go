// Package game runs interactive games: human moves with automatic AI
// replies, and stepwise autoplay for AI-vs-AI boards.
package game

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"chessarena/internal/board"
	"chessarena/internal/engine"
	"chessarena/internal/llm"
	"chessarena/internal/policy"
	"chessarena/internal/store"
)

// Player types a game side can be driven by.
const (
	PlayerHuman     = "human"
	PlayerLLM       = "llm"
	PlayerStockfish = "stockfish"
)

var (
	ErrNotFound = errors.New("game not found")
	ErrGameOver = errors.New("game is already over")
)

// IllegalMoveError carries the legal set back to the caller, so a UI
// can recover without a second round trip.
type IllegalMoveError struct {
	MoveUCI    string
	LegalMoves []string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %q", e.MoveUCI)
}

// PlayerConfig is the LLM side configuration stored per game.
type PlayerConfig struct {
	Provider    string        `json:"provider"`
	Model       string        `json:"model"`
	CustomModel string        `json:"custom_model,omitempty"`
	Policy      policy.Config `json:"ttc_policy"`
}

func (p PlayerConfig) resolvedModel() string {
	if m := strings.TrimSpace(p.CustomModel); m != "" {
		return m
	}
	return strings.TrimSpace(p.Model)
}

// CreateParams describes a new game.
type CreateParams struct {
	WhitePlayerType   string          `json:"white_player_type"`
	BlackPlayerType   string          `json:"black_player_type"`
	WhitePlayerConfig json.RawMessage `json:"white_player_config,omitempty"`
	BlackPlayerConfig json.RawMessage `json:"black_player_config,omitempty"`
}

// ClientFactory builds provider clients on demand.
type ClientFactory interface {
	Build(ctx context.Context, provider, model string) (llm.Client, error)
}

// ModelChecker validates player model selections at creation time.
type ModelChecker interface {
	IsModelAllowed(provider, model string) bool
	CustomModelAllowed() bool
}

// Options tunes a Controller.
type Options struct {
	// Checker, when set, gates LLM player configs at creation.
	Checker ModelChecker
	// EnginePath overrides stockfish discovery for engine players.
	EnginePath string
	// EngineMoveTime is the per-move search budget for engine players.
	EngineMoveTime time.Duration
}

// Controller owns interactive game state transitions. Mutations on one
// game are serialized; distinct games proceed independently.
type Controller struct {
	store   *store.Store
	factory ClientFactory
	opts    Options

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewController(st *store.Store, factory ClientFactory, opts Options) *Controller {
	if opts.EngineMoveTime <= 0 {
		opts.EngineMoveTime = 500 * time.Millisecond
	}
	return &Controller{
		store:   st,
		factory: factory,
		opts:    opts,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (c *Controller) lockFor(id string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[id]
	if !ok {
		l = &sync.Mutex{}
		c.locks[id] = l
	}
	return l
}

// Create registers a fresh game from the initial position.
func (c *Controller) Create(params CreateParams) (store.GameRecord, error) {
	whiteType, err := normalizeType(params.WhitePlayerType)
	if err != nil {
		return store.GameRecord{}, err
	}
	blackType, err := normalizeType(params.BlackPlayerType)
	if err != nil {
		return store.GameRecord{}, err
	}
	if err := c.checkPlayer(whiteType, params.WhitePlayerConfig); err != nil {
		return store.GameRecord{}, fmt.Errorf("white player: %w", err)
	}
	if err := c.checkPlayer(blackType, params.BlackPlayerConfig); err != nil {
		return store.GameRecord{}, fmt.Errorf("black player: %w", err)
	}

	rec := store.GameRecord{
		ID:          fmt.Sprintf("game-%d", time.Now().UnixNano()),
		FEN:         board.StartFEN,
		WhiteType:   whiteType,
		BlackType:   blackType,
		WhiteConfig: params.WhitePlayerConfig,
		BlackConfig: params.BlackPlayerConfig,
	}
	if err := c.store.PutGame(rec); err != nil {
		return store.GameRecord{}, err
	}
	got, _ := c.store.GetGame(rec.ID)
	return got, nil
}

func normalizeType(t string) (string, error) {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		return PlayerHuman, nil
	}
	switch t {
	case PlayerHuman, PlayerLLM, PlayerStockfish:
		return t, nil
	}
	return "", fmt.Errorf("unknown player type %q", t)
}

func (c *Controller) checkPlayer(playerType string, raw json.RawMessage) error {
	if playerType != PlayerLLM {
		return nil
	}
	cfg, err := parsePlayerConfig(raw)
	if err != nil {
		return err
	}
	if cfg.resolvedModel() == "" {
		return errors.New("llm player needs a model")
	}
	if c.opts.Checker == nil {
		return nil
	}
	if strings.TrimSpace(cfg.CustomModel) != "" {
		if !c.opts.Checker.CustomModelAllowed() {
			return errors.New("custom models are disabled")
		}
		return cfg.Policy.Validate()
	}
	if !c.opts.Checker.IsModelAllowed(cfg.Provider, cfg.Model) {
		return fmt.Errorf("model %s/%s is not allowed", cfg.Provider, cfg.Model)
	}
	return cfg.Policy.Validate()
}

func parsePlayerConfig(raw json.RawMessage) (PlayerConfig, error) {
	var cfg PlayerConfig
	if len(raw) == 0 {
		return cfg, errors.New("missing player config")
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("invalid player config: %w", err)
	}
	return cfg, nil
}

// Get returns the stored game.
func (c *Controller) Get(id string) (store.GameRecord, bool) {
	return c.store.GetGame(id)
}

// HumanMove applies one human move and then lets the AI answer, up to
// two plies, so a human-vs-AI game always comes back on the human's
// turn.
func (c *Controller) HumanMove(ctx context.Context, id, moveUCI string) (store.GameRecord, error) {
	l := c.lockFor(id)
	l.Lock()
	defer l.Unlock()

	rec, ok := c.store.GetGame(id)
	if !ok {
		return store.GameRecord{}, ErrNotFound
	}
	if rec.Over {
		return rec, ErrGameOver
	}
	g, err := board.FromFEN(rec.FEN)
	if err != nil {
		return rec, err
	}

	moveUCI = strings.ToLower(strings.TrimSpace(moveUCI))
	if !legalIn(g, moveUCI) {
		return rec, &IllegalMoveError{MoveUCI: moveUCI, LegalMoves: g.LegalMoves()}
	}
	if err := c.applyMove(&rec, g, moveUCI); err != nil {
		return rec, err
	}
	if !rec.Over {
		if _, err := c.playAITurns(ctx, &rec, g, 2); err != nil {
			return rec, err
		}
	}
	if err := c.store.PutGame(rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// Step advances an AI-vs-AI game by at most maxPlies half-moves. It is
// a no-op on a terminal game and stops early when the turn reaches a
// human player. maxPlies is clamped to [1, 200]; zero means 40.
func (c *Controller) Step(ctx context.Context, id string, maxPlies int) (store.GameRecord, int, error) {
	l := c.lockFor(id)
	l.Lock()
	defer l.Unlock()

	rec, ok := c.store.GetGame(id)
	if !ok {
		return store.GameRecord{}, 0, ErrNotFound
	}
	if rec.Over {
		return rec, 0, nil
	}
	if maxPlies == 0 {
		maxPlies = 40
	}
	if maxPlies < 1 {
		maxPlies = 1
	}
	if maxPlies > 200 {
		maxPlies = 200
	}

	g, err := board.FromFEN(rec.FEN)
	if err != nil {
		return rec, 0, err
	}
	played, err := c.playAITurns(ctx, &rec, g, maxPlies)
	if err != nil {
		return rec, played, err
	}
	if err := c.store.PutGame(rec); err != nil {
		return rec, played, err
	}
	return rec, played, nil
}

func (c *Controller) playAITurns(ctx context.Context, rec *store.GameRecord, g *board.Game, maxPlies int) (int, error) {
	played := 0
	for !rec.Over && played < maxPlies {
		if err := ctx.Err(); err != nil {
			return played, err
		}
		playerType, raw := c.sideToMove(rec, g)
		switch playerType {
		case PlayerHuman:
			return played, nil
		case PlayerStockfish:
			if err := c.engineMove(rec, g); err != nil {
				return played, err
			}
		case PlayerLLM:
			if err := c.llmMove(ctx, rec, g, raw); err != nil {
				return played, err
			}
		default:
			return played, fmt.Errorf("unknown player type %q", playerType)
		}
		played++
	}
	return played, nil
}

func (c *Controller) sideToMove(rec *store.GameRecord, g *board.Game) (string, json.RawMessage) {
	if g.SideToMove() == "w" {
		return rec.WhiteType, rec.WhiteConfig
	}
	return rec.BlackType, rec.BlackConfig
}

// engineMove opens a fresh engine per move. Costly but keeps the HTTP
// handlers stateless; an engine crash never outlives one request.
func (c *Controller) engineMove(rec *store.GameRecord, g *board.Game) error {
	path, err := engine.ResolvePath(c.opts.EnginePath)
	if err != nil {
		return err
	}
	eng, err := engine.New(path)
	if err != nil {
		return err
	}
	defer eng.Close()

	uci, err := eng.BestMove(g.FEN(), c.opts.EngineMoveTime)
	if err != nil {
		return err
	}
	if !legalIn(g, uci) {
		return fmt.Errorf("engine produced illegal move %q", uci)
	}
	return c.applyMove(rec, g, uci)
}

func (c *Controller) llmMove(ctx context.Context, rec *store.GameRecord, g *board.Game, raw json.RawMessage) error {
	cfg, err := parsePlayerConfig(raw)
	if err != nil {
		return err
	}
	selector, err := policy.New(cfg.Policy)
	if err != nil {
		return err
	}
	clients, err := c.buildClients(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeClients(clients)

	pos := policy.Position{
		FEN:        g.FEN(),
		SideToMove: g.SideToMove(),
		LegalMoves: g.LegalMoves(),
		PGN:        rec.PGN,
	}
	started := time.Now()
	cand, err := selector.SelectMove(ctx, pos, clients)
	if err != nil {
		log.Printf("llm_move_error provider=%s model=%s latency_ms=%d error=%v",
			cfg.Provider, cfg.resolvedModel(), time.Since(started).Milliseconds(), err)
		return err
	}
	log.Printf("llm_move provider=%s model=%s policy=%s attempts=%d fallback=%t latency_ms=%d",
		cfg.Provider, cfg.resolvedModel(), selector.Name(), cand.Attempts, cand.UsedFallback,
		time.Since(started).Milliseconds())
	return c.applyMove(rec, g, cand.MoveUCI)
}

func (c *Controller) buildClients(ctx context.Context, cfg PlayerConfig) (policy.Clients, error) {
	var cl policy.Clients
	primary, err := c.factory.Build(ctx, cfg.Provider, cfg.resolvedModel())
	if err != nil {
		return cl, err
	}
	cl.Primary = primary

	pc := cfg.Policy.Normalized()
	if pc.Name == policy.Verifier {
		provider := pc.VerifierProvider
		if provider == "" {
			provider = cfg.Provider
		}
		cl.Verifier, err = c.factory.Build(ctx, provider, pc.VerifierModel)
		if err != nil {
			closeClients(cl)
			return policy.Clients{}, err
		}
	}
	if pc.Name == policy.UncertaintyFallback {
		provider := pc.FallbackProvider
		if provider == "" {
			provider = cfg.Provider
		}
		cl.Fallback, err = c.factory.Build(ctx, provider, pc.FallbackModel)
		if err != nil {
			closeClients(cl)
			return policy.Clients{}, err
		}
	}
	return cl, nil
}

func closeClients(cl policy.Clients) {
	for _, c := range []llm.Client{cl.Primary, cl.Verifier, cl.Fallback} {
		if c != nil {
			_ = c.Close()
		}
	}
}

// applyMove pushes one legal move and refreshes the record: FEN,
// accumulated movetext and terminal state.
func (c *Controller) applyMove(rec *store.GameRecord, g *board.Game, uci string) error {
	fullmove := fullmoveNumber(g.FEN())
	white := g.SideToMove() == "w"
	san, err := g.PushUCI(uci)
	if err != nil {
		return err
	}
	if white {
		rec.PGN += fmt.Sprintf("%d. %s ", fullmove, san)
	} else {
		rec.PGN += san + " "
	}
	rec.FEN = g.FEN()
	if st := g.Status(); st.Over {
		rec.Over = true
		rec.Winner = st.Winner
	}
	return nil
}

func legalIn(g *board.Game, uci string) bool {
	for _, m := range g.LegalMoves() {
		if m == uci {
			return true
		}
	}
	return false
}

func fullmoveNumber(fen string) int {
	fields := strings.Fields(fen)
	if len(fields) < 6 {
		return 1
	}
	n, err := strconv.Atoi(fields[5])
	if err != nil || n < 1 {
		return 1
	}
	return n
}
