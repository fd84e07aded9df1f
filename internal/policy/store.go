package policy

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// Store manages session policies in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a policy store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const policyColumns = `
	session_id,
	comment_moderation_enabled, comment_ai_moderation, comment_manual_moderation,
	comment_blocked_keywords, comment_max_length, comment_min_interval_seconds,
	content_moderation_enabled, content_ai_moderation, content_blocked_keywords,
	auto_block_violations, auto_warn_violations, violation_threshold,
	created_at, updated_at`

// GetOrCreate returns the policy for a session, inserting one with defaults
// if none exists yet. The insert uses ON CONFLICT DO NOTHING on the
// session_id unique constraint, so a duplicate-create race between two
// concurrent callers resolves to a single row.
func (s *Store) GetOrCreate(ctx context.Context, sessionID string) (*Policy, error) {
	def := Default(sessionID)

	const insert = `
		INSERT INTO session_policies (
			session_id,
			comment_moderation_enabled, comment_ai_moderation, comment_manual_moderation,
			comment_blocked_keywords, comment_max_length, comment_min_interval_seconds,
			content_moderation_enabled, content_ai_moderation, content_blocked_keywords,
			auto_block_violations, auto_warn_violations, violation_threshold
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (session_id) DO NOTHING`

	_, err := s.db.ExecContext(ctx, insert,
		def.SessionID,
		def.CommentModerationEnabled, def.CommentAIModeration, def.CommentManualModeration,
		pq.Array(def.CommentBlockedKeywords), def.CommentMaxLength, def.CommentMinIntervalSeconds,
		def.ContentModerationEnabled, def.ContentAIModeration, pq.Array(def.ContentBlockedKeywords),
		def.AutoBlockViolations, def.AutoWarnViolations, def.ViolationThreshold,
	)
	if err != nil {
		return nil, fmt.Errorf("policy: insert defaults: %w", err)
	}

	return s.Get(ctx, sessionID)
}

// Get returns the policy for a session, or an error if none exists.
func (s *Store) Get(ctx context.Context, sessionID string) (*Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM session_policies WHERE session_id = $1`

	var p Policy
	var commentKeywords, contentKeywords pq.StringArray
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&p.SessionID,
		&p.CommentModerationEnabled, &p.CommentAIModeration, &p.CommentManualModeration,
		&commentKeywords, &p.CommentMaxLength, &p.CommentMinIntervalSeconds,
		&p.ContentModerationEnabled, &p.ContentAIModeration, &contentKeywords,
		&p.AutoBlockViolations, &p.AutoWarnViolations, &p.ViolationThreshold,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("policy: get %s: %w", sessionID, err)
	}

	p.CommentBlockedKeywords = commentKeywords
	p.ContentBlockedKeywords = contentKeywords
	return &p, nil
}

// Update overwrites every configurable field of an existing policy. Used by
// the host/admin configuration surface.
func (s *Store) Update(ctx context.Context, p *Policy) error {
	const query = `
		UPDATE session_policies SET
			comment_moderation_enabled = $2,
			comment_ai_moderation = $3,
			comment_manual_moderation = $4,
			comment_blocked_keywords = $5,
			comment_max_length = $6,
			comment_min_interval_seconds = $7,
			content_moderation_enabled = $8,
			content_ai_moderation = $9,
			content_blocked_keywords = $10,
			auto_block_violations = $11,
			auto_warn_violations = $12,
			violation_threshold = $13,
			updated_at = NOW()
		WHERE session_id = $1`

	result, err := s.db.ExecContext(ctx, query,
		p.SessionID,
		p.CommentModerationEnabled, p.CommentAIModeration, p.CommentManualModeration,
		pq.Array(p.CommentBlockedKeywords), p.CommentMaxLength, p.CommentMinIntervalSeconds,
		p.ContentModerationEnabled, p.ContentAIModeration, pq.Array(p.ContentBlockedKeywords),
		p.AutoBlockViolations, p.AutoWarnViolations, p.ViolationThreshold,
	)
	if err != nil {
		return fmt.Errorf("policy: update %s: %w", p.SessionID, err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return fmt.Errorf("policy: update %s: no such policy", p.SessionID)
	}
	return nil
}

// BackfillDefaultKeywords sets the baseline keyword list on every policy
// whose comment keyword list is empty. Run once at startup so reads stay
// pure instead of mutating policies as a side effect.
func (s *Store) BackfillDefaultKeywords(ctx context.Context) (int64, error) {
	const query = `
		UPDATE session_policies
		SET comment_blocked_keywords = $1, updated_at = NOW()
		WHERE cardinality(comment_blocked_keywords) = 0`

	result, err := s.db.ExecContext(ctx, query, pq.Array(DefaultBlockedKeywords))
	if err != nil {
		return 0, fmt.Errorf("policy: backfill keywords: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("policy: backfill rows affected: %w", err)
	}
	return rows, nil
}
