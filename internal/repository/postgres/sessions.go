package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mentora/tutoring-auth/internal/core/domain"
	"github.com/mentora/tutoring-auth/internal/core/port"
	"github.com/mentora/tutoring-auth/internal/repository"
)

var sessionColumns = []string{
	"id",
	"user_id",
	"authorization_id",
	"device_id",
	"device_name",
	"user_agent",
	"ip_address",
	"status",
	"refresh_token_id",
	"refresh_expires_at",
	"created_at",
	"last_activity_at",
	"revoked_at",
	"revoke_reason",
	"notify_user",
}

// SessionRepository implements port.SessionRepository for PostgreSQL.
type SessionRepository struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

// NewSessionRepository constructs a SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a session record.
func (r *SessionRepository) Create(ctx context.Context, session domain.Session) error {
	sql, args, err := r.builder.Insert("auth.sessions").
		Columns(sessionColumns...).
		Values(
			session.ID,
			session.UserID,
			session.AuthorizationID,
			session.DeviceID,
			session.DeviceName,
			session.UserAgent,
			session.IPAddress,
			string(session.Status),
			session.RefreshTokenID,
			session.RefreshExpiresAt,
			session.CreatedAt,
			session.LastActivityAt,
			session.RevokedAt,
			session.RevokeReason,
			session.NotifyUser,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert session sql: %w", err)
	}

	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}

	return nil
}

// GetByID returns a session by identifier.
func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	sql, args, err := r.builder.
		Select(sessionColumns...).
		From("auth.sessions").
		Where(squirrel.Eq{"id": sessionID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select session by id sql: %w", err)
	}

	session, err := scanSession(r.pool.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan session by id: %w", err)
	}

	return session, nil
}

// ListActiveByUser returns non-revoked, non-expired sessions for the user.
func (r *SessionRepository) ListActiveByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	now := time.Now().UTC()
	sql, args, err := r.builder.
		Select(sessionColumns...).
		From("auth.sessions").
		Where(squirrel.Eq{"user_id": userID, "status": string(domain.SessionStatusActive)}).
		Where("revoked_at IS NULL").
		Where(squirrel.Gt{"refresh_expires_at": now}).
		OrderBy("last_activity_at DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list sessions sql: %w", err)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []domain.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}

	return sessions, nil
}

// Touch updates last-activity metadata for the session.
func (r *SessionRepository) Touch(ctx context.Context, sessionID string, at time.Time) error {
	sql, args, err := r.builder.Update("auth.sessions").
		Set("last_activity_at", at.UTC()).
		Where(squirrel.Eq{"id": sessionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build touch session sql: %w", err)
	}

	ct, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// SetRefreshToken points the session at its currently active refresh token.
func (r *SessionRepository) SetRefreshToken(ctx context.Context, sessionID, tokenID string, expiresAt time.Time) error {
	sql, args, err := r.builder.Update("auth.sessions").
		Set("refresh_token_id", tokenID).
		Set("refresh_expires_at", expiresAt.UTC()).
		Where(squirrel.Eq{"id": sessionID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set refresh token sql: %w", err)
	}

	ct, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("set session refresh token: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

// Revoke marks the session revoked. The guard on revoked_at makes the
// operation idempotent: the second caller sees zero rows affected and a
// false return, never an error.
func (r *SessionRepository) Revoke(ctx context.Context, sessionID, reason string, notify bool, at time.Time) (bool, error) {
	sql, args, err := r.builder.Update("auth.sessions").
		Set("status", string(domain.SessionStatusRevoked)).
		Set("revoked_at", at.UTC()).
		Set("revoke_reason", reason).
		Set("notify_user", squirrel.Expr("notify_user OR ?", notify)).
		Where(squirrel.Eq{"id": sessionID}).
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build revoke session sql: %w", err)
	}

	ct, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("revoke session: %w", err)
	}

	return ct.RowsAffected() > 0, nil
}

func scanSession(row pgx.Row) (*domain.Session, error) {
	var (
		session domain.Session
		status  string
	)
	if err := row.Scan(
		&session.ID,
		&session.UserID,
		&session.AuthorizationID,
		&session.DeviceID,
		&session.DeviceName,
		&session.UserAgent,
		&session.IPAddress,
		&status,
		&session.RefreshTokenID,
		&session.RefreshExpiresAt,
		&session.CreatedAt,
		&session.LastActivityAt,
		&session.RevokedAt,
		&session.RevokeReason,
		&session.NotifyUser,
	); err != nil {
		return nil, err
	}
	session.Status = domain.SessionStatus(status)
	return &session, nil
}

var _ port.SessionRepository = (*SessionRepository)(nil)
