// SPDX-License-Identifier: Apache-2.0

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mohammed-a-khan/MyAutomationResearch-sub002/internal/domain"
)

// SessionRepository stores session descriptors as JSONB documents. The
// indexed columns mirror the document so listings never decode events they
// filter out.
type SessionRepository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewSessionRepository(pool *pgxpool.Pool, logger *slog.Logger) *SessionRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionRepository{
		pool:   pool,
		logger: logger,
	}
}

func (r *SessionRepository) Save(ctx context.Context, s domain.RecordingSession) error {
	doc, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", s.ID, err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO recording_sessions
			(id, project_id, session_key, status, framework, language, browser, base_url,
			 started_at, ended_at, document, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			framework = EXCLUDED.framework,
			language = EXCLUDED.language,
			base_url = EXCLUDED.base_url,
			ended_at = EXCLUDED.ended_at,
			document = EXCLUDED.document,
			updated_at = NOW()
	`,
		s.ID,
		s.ProjectID,
		s.SessionKey,
		s.Status,
		s.Framework,
		s.Language,
		s.Browser,
		s.BaseURL,
		s.StartedAt,
		s.EndedAt,
		doc,
	)
	if err != nil {
		r.logger.Error("save session failed", "session_id", s.ID, "error", err)
		return err
	}

	r.logger.Debug("session saved", "session_id", s.ID, "status", s.Status, "events", len(s.Events))
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (domain.RecordingSession, error) {
	var doc []byte
	err := r.pool.QueryRow(ctx,
		`SELECT document FROM recording_sessions WHERE id = $1`,
		id,
	).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RecordingSession{}, domain.NotFoundf("session %s not found", id)
	}
	if err != nil {
		r.logger.Error("get session failed", "session_id", id, "error", err)
		return domain.RecordingSession{}, err
	}
	return decodeSession(doc)
}

func (r *SessionRepository) List(ctx context.Context, filter domain.SessionFilter) ([]domain.RecordingSession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT document
		FROM recording_sessions
		WHERE ($1::text = '' OR project_id = $1)
		  AND (NOT $2::boolean OR status NOT IN ($3, $4))
		ORDER BY started_at DESC
	`,
		filter.ProjectID,
		filter.ActiveOnly,
		domain.StatusCompleted,
		domain.StatusError,
	)
	if err != nil {
		r.logger.Error("list sessions failed", "project_id", filter.ProjectID, "error", err)
		return nil, err
	}

	docs, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		r.logger.Error("scan sessions failed", "error", err)
		return nil, err
	}

	out := make([]domain.RecordingSession, 0, len(docs))
	for _, doc := range docs {
		s, err := decodeSession(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func decodeSession(doc []byte) (domain.RecordingSession, error) {
	var s domain.RecordingSession
	if err := json.Unmarshal(doc, &s); err != nil {
		return domain.RecordingSession{}, fmt.Errorf("decode session document: %w", err)
	}
	return s, nil
}
