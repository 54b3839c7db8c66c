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

// GrantRepository stores authorization-code grants in PostgreSQL.
type GrantRepository struct {
	pool    *pgxpool.Pool
	builder squirrel.StatementBuilderType
}

// NewGrantRepository constructs a GrantRepository.
func NewGrantRepository(pool *pgxpool.Pool) *GrantRepository {
	return &GrantRepository{
		pool:    pool,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts an authorization grant keyed by the hash of its code.
func (r *GrantRepository) Create(ctx context.Context, grant domain.AuthorizationGrant, codeHash string) error {
	sql, args, err := r.builder.Insert("auth.authorization_grants").
		Columns(
			"id",
			"user_id",
			"client_id",
			"device_id",
			"scopes",
			"code_hash",
			"session_id",
			"created_at",
			"expires_at",
			"redeemed_at",
		).
		Values(
			grant.ID,
			grant.UserID,
			grant.ClientID,
			grant.DeviceID,
			grant.Scopes,
			codeHash,
			grant.SessionID,
			grant.CreatedAt,
			grant.ExpiresAt,
			grant.RedeemedAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert grant sql: %w", err)
	}

	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert authorization grant: %w", err)
	}

	return nil
}

// GetByID fetches a grant by its identifier.
func (r *GrantRepository) GetByID(ctx context.Context, grantID string) (*domain.AuthorizationGrant, error) {
	sql, args, err := r.builder.Select(
		"id",
		"user_id",
		"client_id",
		"device_id",
		"scopes",
		"session_id",
		"created_at",
		"expires_at",
		"redeemed_at",
	).
		From("auth.authorization_grants").
		Where(squirrel.Eq{"id": grantID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select grant sql: %w", err)
	}

	var grant domain.AuthorizationGrant
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(
		&grant.ID,
		&grant.UserID,
		&grant.ClientID,
		&grant.DeviceID,
		&grant.Scopes,
		&grant.SessionID,
		&grant.CreatedAt,
		&grant.ExpiresAt,
		&grant.RedeemedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("get authorization grant: %w", err)
	}

	return &grant, nil
}

// RedeemByCodeHash marks the grant redeemed and returns it. The guard on
// redeemed_at makes codes single use: a second redemption attempt sees no
// matching row and gets ErrNotFound.
func (r *GrantRepository) RedeemByCodeHash(ctx context.Context, codeHash string, at time.Time) (*domain.AuthorizationGrant, error) {
	stmt := `
		UPDATE auth.authorization_grants
		   SET redeemed_at = $2
		 WHERE code_hash = $1
		   AND redeemed_at IS NULL
		   AND expires_at > $2
		RETURNING id, user_id, client_id, device_id, scopes, session_id, created_at, expires_at, redeemed_at
	`

	var grant domain.AuthorizationGrant
	if err := r.pool.QueryRow(ctx, stmt, codeHash, at.UTC()).Scan(
		&grant.ID,
		&grant.UserID,
		&grant.ClientID,
		&grant.DeviceID,
		&grant.Scopes,
		&grant.SessionID,
		&grant.CreatedAt,
		&grant.ExpiresAt,
		&grant.RedeemedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("redeem authorization grant: %w", err)
	}

	return &grant, nil
}

// AttachSession records the session created for this grant so later
// refresh exchanges reuse it instead of creating another.
func (r *GrantRepository) AttachSession(ctx context.Context, grantID, sessionID string) error {
	sql, args, err := r.builder.Update("auth.authorization_grants").
		Set("session_id", sessionID).
		Where(squirrel.Eq{"id": grantID}).
		Where("session_id IS NULL").
		ToSql()
	if err != nil {
		return fmt.Errorf("build attach session sql: %w", err)
	}

	ct, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("attach session to grant: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

var _ port.GrantRepository = (*GrantRepository)(nil)
