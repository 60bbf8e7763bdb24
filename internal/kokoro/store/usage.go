package store

import (
	"context"
	"fmt"
	"time"
)

// UsageEntry is one recorded completion exchange.
type UsageEntry struct {
	ID               int64
	Timestamp        time.Time
	ExchangeID       string
	UserID           string
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// WriteUsage records the token consumption of one successful exchange.
func (s *Store) WriteUsage(ctx context.Context, exchangeID, userID, model string, promptTokens, completionTokens int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_log (ts, exchange_id, user_id, model, prompt_tokens, completion_tokens)
		VALUES (?, ?, ?, ?, ?, ?)
	`, time.Now(), exchangeID, userID, model, promptTokens, completionTokens)
	if err != nil {
		return fmt.Errorf("write usage log: %w", err)
	}
	return nil
}

// RecentUsage returns the most recent usage entries, newest first.
func (s *Store) RecentUsage(ctx context.Context, limit int) ([]*UsageEntry, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, exchange_id, user_id, model, prompt_tokens, completion_tokens
		FROM usage_log
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query usage log: %w", err)
	}
	defer rows.Close()

	var entries []*UsageEntry
	for rows.Next() {
		entry := &UsageEntry{}
		if err := rows.Scan(
			&entry.ID, &entry.Timestamp, &entry.ExchangeID, &entry.UserID,
			&entry.Model, &entry.PromptTokens, &entry.CompletionTokens,
		); err != nil {
			return nil, fmt.Errorf("scan usage entry: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usage log: %w", err)
	}

	return entries, nil
}
