package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/trailhound-dev/trailhound/internal/model"
)

// Mode selects how a search term is turned into FTS5 syntax.
type Mode string

const (
	// ModePhrase treats the input as one literal phrase; quoting characters
	// are escaped so the phrase cannot break out of its boundaries.
	ModePhrase Mode = "phrase"
	// ModeNatural preserves boolean operators (AND/OR/NOT) and trailing
	// wildcards; bare terms are quoted.
	ModeNatural Mode = "natural"
	// ModeRaw passes the input through unescaped. Callers must fully trust
	// the input source.
	ModeRaw Mode = "raw"
)

// ErrInvalidQuery is returned for empty terms or unknown modes. No retry is
// attempted internally; the caller decides.
var ErrInvalidQuery = errors.New("invalid search query")

// ParseMode converts a mode selector string, defaulting empty to phrase.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case ModePhrase, "":
		return ModePhrase, nil
	case ModeNatural:
		return ModeNatural, nil
	case ModeRaw:
		return ModeRaw, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidQuery, s)
}

// buildMatch converts user input into an FTS5 MATCH expression.
func buildMatch(term string, mode Mode) (string, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return "", fmt.Errorf("%w: empty term", ErrInvalidQuery)
	}

	switch mode {
	case ModePhrase:
		return `"` + strings.ReplaceAll(term, `"`, `""`) + `"`, nil

	case ModeNatural:
		tokens := strings.Fields(term)
		parts := make([]string, 0, len(tokens))
		for _, tok := range tokens {
			switch tok {
			case "AND", "OR", "NOT":
				parts = append(parts, tok)
				continue
			}
			if stem, ok := strings.CutSuffix(tok, "*"); ok && stem != "" {
				parts = append(parts, `"`+strings.ReplaceAll(stem, `"`, `""`)+`"*`)
				continue
			}
			parts = append(parts, `"`+strings.ReplaceAll(tok, `"`, `""`)+`"`)
		}
		return strings.Join(parts, " "), nil

	case ModeRaw:
		return term, nil
	}
	return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidQuery, mode)
}

var searchTables = map[model.SearchSource]struct {
	fts  string
	base string
}{
	model.SourceThinking:  {"thinking_fts", "thinking_blocks"},
	model.SourcePrompts:   {"prompts_fts", "user_prompts"},
	model.SourceResponses: {"responses_fts", "assistant_responses"},
}

// SearchSource runs a ranked search over a single text-bearing table.
func (e *Engine) SearchSource(ctx context.Context, src model.SearchSource, term string, mode Mode, limit int) ([]model.SearchHit, error) {
	match, err := buildMatch(term, mode)
	if err != nil {
		return nil, err
	}
	return e.searchTable(ctx, src, match, limit)
}

// Search runs one query string against all three text-bearing tables, merges
// the result sets by rank, and truncates to limit. A caller recovering
// context has no way to know in advance which table holds the answer.
func (e *Engine) Search(ctx context.Context, term string, mode Mode, limit int) ([]model.SearchHit, error) {
	match, err := buildMatch(term, mode)
	if err != nil {
		return nil, err
	}

	var merged []model.SearchHit
	for _, src := range []model.SearchSource{model.SourceThinking, model.SourcePrompts, model.SourceResponses} {
		hits, err := e.searchTable(ctx, src, match, limit)
		if err != nil {
			return nil, err
		}
		merged = append(merged, hits...)
	}

	// BM25 rank is negative-better; ascending puts the best match first.
	sort.SliceStable(merged, func(i, j int) bool { return merged[i].Rank < merged[j].Rank })
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged, nil
}

func (e *Engine) searchTable(ctx context.Context, src model.SearchSource, match string, limit int) ([]model.SearchHit, error) {
	t, ok := searchTables[src]
	if !ok {
		return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidQuery, src)
	}
	if limit < 1 {
		limit = 20
	}

	//nolint:gosec // table names come from the compile-time searchTables map
	q := fmt.Sprintf(`
		SELECT b.session_id, b.ts, snippet(%[1]s, 0, '', '', '…', 16), bm25(%[1]s)
		FROM %[1]s
		JOIN %[2]s b ON b.id = %[1]s.rowid
		WHERE %[1]s MATCH ?
		ORDER BY rank
		LIMIT ?`, t.fts, t.base)

	rows, err := e.db.QueryContext(ctx, q, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", src, err)
	}
	defer func() { _ = rows.Close() }()

	var hits []model.SearchHit
	for rows.Next() {
		var h model.SearchHit
		var ts int64
		if err := rows.Scan(&h.SessionID, &ts, &h.Snippet, &h.Rank); err != nil {
			return nil, err
		}
		h.Source = src
		h.Timestamp = time.UnixMilli(ts).UTC()
		hits = append(hits, h)
	}
	return hits, rows.Err()
}
