package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mentora/tutoring-auth/internal/core/domain"
	"github.com/mentora/tutoring-auth/internal/core/port"
	"github.com/mentora/tutoring-auth/internal/repository"
)

var refreshTokenColumns = []string{
	"id",
	"session_id",
	"token_hash",
	"salt",
	"rotated_from",
	"created_at",
	"revoked_at",
}

// TokenRepository implements port.TokenRepository using PostgreSQL tables.
type TokenRepository struct {
	pool    *pgxpool.Pool
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewTokenRepository constructs a new token repository.
func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{
		pool:    pool,
		exec:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// withTx returns a repository instance executing within the provided transaction.
func (r *TokenRepository) withTx(tx pgx.Tx) *TokenRepository {
	if tx == nil {
		return r
	}
	return &TokenRepository{
		pool:    r.pool,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts a refresh token record.
func (r *TokenRepository) Create(ctx context.Context, token domain.RefreshToken) error {
	sql, args, err := r.builder.Insert("auth.refresh_tokens").
		Columns(refreshTokenColumns...).
		Values(
			token.ID,
			token.SessionID,
			token.TokenHash,
			token.Salt,
			token.RotatedFromID,
			token.CreatedAt,
			token.RevokedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert refresh token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("insert refresh token: %w", err)
	}

	return nil
}

// GetByID retrieves a refresh token record by its opaque reference.
func (r *TokenRepository) GetByID(ctx context.Context, tokenID string) (*domain.RefreshToken, error) {
	stmt, args, err := r.builder.Select(refreshTokenColumns...).
		From("auth.refresh_tokens").
		Where(squirrel.Eq{"id": tokenID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select refresh token sql: %w", err)
	}

	var token domain.RefreshToken
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(
		&token.ID,
		&token.SessionID,
		&token.TokenHash,
		&token.Salt,
		&token.RotatedFromID,
		&token.CreatedAt,
		&token.RevokedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan refresh token: %w", err)
	}

	return &token, nil
}

// Rotate atomically revokes the presented token and inserts its successor.
// Two arbitration points protect against concurrent redemption of the
// same token: the revoked_at guard on the UPDATE, and the unique index on
// rotated_from for the INSERT. Either one failing surfaces ErrConflict
// and the transaction rolls back, so the loser never half-rotates.
func (r *TokenRepository) Rotate(ctx context.Context, oldTokenID string, next domain.RefreshToken, at time.Time) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin rotate tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txRepo := r.withTx(tx)

	revoked, err := txRepo.Revoke(ctx, oldTokenID, at)
	if err != nil {
		return err
	}
	if !revoked {
		return repository.ErrConflict
	}

	if err := txRepo.Create(ctx, next); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("commit rotate tx: %w", err)
	}

	return nil
}

// Revoke marks a single refresh token as revoked. Returns false when the
// token was already revoked or does not exist.
func (r *TokenRepository) Revoke(ctx context.Context, tokenID string, at time.Time) (bool, error) {
	sql, args, err := r.builder.Update("auth.refresh_tokens").
		Set("revoked_at", at.UTC()).
		Where(squirrel.Eq{"id": tokenID}).
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build revoke refresh token sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("revoke refresh token: %w", err)
	}

	return ct.RowsAffected() > 0, nil
}

// RevokeBySession revokes every active refresh token belonging to a session.
func (r *TokenRepository) RevokeBySession(ctx context.Context, sessionID string, at time.Time) (int, error) {
	sql, args, err := r.builder.Update("auth.refresh_tokens").
		Set("revoked_at", at.UTC()).
		Where(squirrel.Eq{"session_id": sessionID}).
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build revoke session tokens sql: %w", err)
	}

	ct, err := r.exec.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("revoke session refresh tokens: %w", err)
	}

	return int(ct.RowsAffected()), nil
}

// CountActiveBySession reports how many non-revoked tokens a session holds.
// The session/token invariant keeps this at zero or one.
func (r *TokenRepository) CountActiveBySession(ctx context.Context, sessionID string) (int, error) {
	sql, args, err := r.builder.Select("count(*)").
		From("auth.refresh_tokens").
		Where(squirrel.Eq{"session_id": sessionID}).
		Where("revoked_at IS NULL").
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count active tokens sql: %w", err)
	}

	var count int
	if err := r.exec.QueryRow(ctx, sql, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active refresh tokens: %w", err)
	}

	return count, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

var _ port.TokenRepository = (*TokenRepository)(nil)
