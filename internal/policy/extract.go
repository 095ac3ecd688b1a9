package policy

import (
	"encoding/json"
	"regexp"
	"strings"

	"chessarena/internal/board"
)

var (
	uciPattern = regexp.MustCompile(`\b([a-h][1-8][a-h][1-8][qrbn]?)\b`)
	sanPattern = regexp.MustCompile(`^(O-O(-O)?|[KQRBN]?[a-h]?[1-8]?x?[a-h][1-8](=[QRBN])?)[+#]?$`)
)

// ExtractMove parses raw provider text into a move from the legal set,
// in UCI form. It returns "" when nothing legal can be extracted — a
// normal refusal, not an error. Legality is decided solely against the
// supplied legal move list, never against the model's own claim.
func ExtractMove(raw string, pos Position) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	legal := pos.legalSet()

	if uci := moveFromJSON(raw); uci != "" && legal[uci] {
		return uci
	}
	for _, match := range uciPattern.FindAllString(strings.ToLower(raw), -1) {
		if legal[match] {
			return match
		}
	}
	// Last resort: tokens that look like SAN, resolved against the position.
	for _, token := range strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == '\n' || r == '\t' || r == ',' || r == '"' || r == '.'
	}) {
		if !sanPattern.MatchString(token) {
			continue
		}
		uci, err := board.DecodeSAN(pos.FEN, token)
		if err != nil {
			continue
		}
		if legal[uci] {
			return uci
		}
	}
	return ""
}

func moveFromJSON(raw string) string {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return ""
	}
	var payload struct {
		MoveUCI string `json:"move_uci"`
		Move    string `json:"move"`
	}
	if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err != nil {
		return ""
	}
	if payload.MoveUCI != "" {
		return strings.ToLower(strings.TrimSpace(payload.MoveUCI))
	}
	return strings.ToLower(strings.TrimSpace(payload.Move))
}

// ApproveVerdict reports whether verifier output approves a candidate.
// Malformed output counts as a rejection.
func ApproveVerdict(raw string) bool {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start >= 0 && end > start {
		var payload struct {
			Verdict string `json:"verdict"`
		}
		if err := json.Unmarshal([]byte(raw[start:end+1]), &payload); err == nil {
			return strings.EqualFold(strings.TrimSpace(payload.Verdict), "approve")
		}
	}
	lower := strings.ToLower(raw)
	return strings.Contains(lower, "approve") && !strings.Contains(lower, "reject")
}
