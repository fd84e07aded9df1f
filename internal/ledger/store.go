package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// UnbanReason is the fixed moderation reason written to rewritten records.
const UnbanReason = "unbanned by session host"

// Store manages moderation records in PostgreSQL.
type Store struct {
	db *sql.DB
}

// NewStore creates a ledger store backed by the given database handle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Create appends a moderation record. The record's ID is assigned here if
// empty. An error means the decision was not durably logged and must not be
// reported as a success.
func (s *Store) Create(ctx context.Context, r *Record) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	categories := r.AIRiskCategories
	if categories == nil {
		categories = []string{}
	}

	const query = `
		INSERT INTO moderation_records (
			id, session_id, user_id, message_id, message_content, status,
			ai_checked, ai_risk_score, ai_risk_categories, ai_reason,
			violation_count
		)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, NULLIF($10, ''), $11)`

	_, err := s.db.ExecContext(ctx, query,
		r.ID, r.SessionID, r.UserID, r.MessageID, r.MessageContent, r.Status,
		r.AIChecked, r.AIRiskScore, pq.Array(categories), r.AIReason,
		r.ViolationCount,
	)
	if err != nil {
		return fmt.Errorf("ledger: insert: %w", err)
	}
	return nil
}

// CountViolations returns the number of records for (session, user) whose
// status marks a violation (rejected or blocked). This live count is the
// authoritative violation standing.
func (s *Store) CountViolations(ctx context.Context, sessionID, userID string) (int, error) {
	const query = `
		SELECT COUNT(*)
		FROM moderation_records
		WHERE session_id = $1
		  AND user_id = $2
		  AND status IN ($3, $4)`

	var count int
	err := s.db.QueryRowContext(ctx, query, sessionID, userID, StatusRejected, StatusBlocked).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("ledger: count violations: %w", err)
	}
	return count, nil
}

// Unban clears a user's standing in a session: every record's violation
// count snapshot is zeroed and every blocked/rejected record is rewritten to
// approved with a fixed reason and timestamp. Both updates run in a single
// transaction so the user is never half-unbanned. History is not deleted.
func (s *Store) Unban(ctx context.Context, sessionID, userID, moderatedBy string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: unban begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		UPDATE moderation_records
		SET violation_count = 0
		WHERE session_id = $1 AND user_id = $2`,
		sessionID, userID,
	)
	if err != nil {
		return fmt.Errorf("ledger: unban reset counts: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE moderation_records
		SET status = $3, moderated_by = $4, moderation_reason = $5, moderated_at = NOW()
		WHERE session_id = $1 AND user_id = $2 AND status IN ($6, $7)`,
		sessionID, userID, StatusApproved, moderatedBy, UnbanReason, StatusRejected, StatusBlocked,
	)
	if err != nil {
		return fmt.Errorf("ledger: unban rewrite statuses: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ledger: unban commit: %w", err)
	}
	return nil
}

// ListBySession returns the most recent records for a session, newest first,
// optionally filtered by user. Used by the moderator review surface.
func (s *Store) ListBySession(ctx context.Context, sessionID, userID string, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	const query = `
		SELECT id, session_id, user_id, COALESCE(message_id, ''), message_content, status,
		       ai_checked, ai_risk_score, ai_risk_categories, COALESCE(ai_reason, ''),
		       COALESCE(moderated_by, ''), COALESCE(moderation_reason, ''), moderated_at,
		       violation_count, created_at
		FROM moderation_records
		WHERE session_id = $1
		  AND ($2 = '' OR user_id = $2)
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := s.db.QueryContext(ctx, query, sessionID, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("ledger: list: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var categories pq.StringArray
		err := rows.Scan(
			&r.ID, &r.SessionID, &r.UserID, &r.MessageID, &r.MessageContent, &r.Status,
			&r.AIChecked, &r.AIRiskScore, &categories, &r.AIReason,
			&r.ModeratedBy, &r.ModerationReason, &r.ModeratedAt,
			&r.ViolationCount, &r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("ledger: scan: %w", err)
		}
		r.AIRiskCategories = categories
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ledger: list rows: %w", err)
	}
	return records, nil
}
