package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
)

// chatStore implements driven.ChatStore.
type chatStore struct {
	store *Store
}

var _ driven.ChatStore = (*chatStore)(nil)

// SaveSession stores or updates a session.
func (s *chatStore) SaveSession(ctx context.Context, session *domain.ChatSession) error {
	if session == nil || session.ID == "" {
		return fmt.Errorf("%w: session id is required", domain.ErrInvalidInput)
	}

	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, document_id, active, started_at, last_interacted_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			active = excluded.active,
			last_interacted_at = excluded.last_interacted_at
	`, session.ID, session.DocumentID, session.Active,
		session.StartedAt.UTC(), session.LastInteractedAt.UTC())

	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by ID without its turns.
func (s *chatStore) GetSession(ctx context.Context, id string) (*domain.ChatSession, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, document_id, active, started_at, last_interacted_at
		FROM chat_sessions WHERE id = ?
	`, id)

	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return session, err
}

// ListSessions returns sessions ordered by start time.
func (s *chatStore) ListSessions(ctx context.Context, activeOnly bool) ([]domain.ChatSession, error) {
	query := `
		SELECT id, document_id, active, started_at, last_interacted_at
		FROM chat_sessions`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY started_at, id`

	rows, err := s.store.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.ChatSession //nolint:prealloc // size unknown from query
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// AppendTurn inserts a turn and bumps the session's last-interaction time
// in one transaction.
func (s *chatStore) AppendTurn(ctx context.Context, turn *domain.Turn) error {
	if turn == nil || turn.ID == "" || turn.SessionID == "" {
		return fmt.Errorf("%w: turn id and session id are required", domain.ErrInvalidInput)
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	res, err := tx.ExecContext(ctx, `
		UPDATE chat_sessions SET last_interacted_at = ? WHERE id = ?
	`, turn.CreatedAt.UTC(), turn.SessionID)
	if err != nil {
		return fmt.Errorf("updating session: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("session %s: %w", turn.SessionID, domain.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO turns (id, session_id, query, answer, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, turn.ID, turn.SessionID, turn.Query, turn.Answer, turn.CreatedAt.UTC()); err != nil {
		return fmt.Errorf("inserting turn: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// GetTurns returns a session's turns in insertion order.
func (s *chatStore) GetTurns(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, session_id, query, answer, created_at
		FROM turns WHERE session_id = ?
		ORDER BY seq
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("querying turns: %w", err)
	}
	defer rows.Close()

	var turns []domain.Turn //nolint:prealloc // size unknown from query
	for rows.Next() {
		var t domain.Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.Query, &t.Answer, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turns: %w", err)
	}
	return turns, nil
}

func scanSession(row scanner) (*domain.ChatSession, error) {
	var session domain.ChatSession
	if err := row.Scan(&session.ID, &session.DocumentID, &session.Active,
		&session.StartedAt, &session.LastInteractedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	return &session, nil
}
