package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/mentora/tutoring-auth/internal/core/domain"
	"github.com/mentora/tutoring-auth/internal/repository"
)

type stubSessionRepository struct {
	sessions   map[string]domain.Session
	touchCalls []string
	setRefresh []struct {
		sessionID string
		tokenID   string
		expiresAt time.Time
	}
	revokeCalls []struct {
		sessionID string
		reason    string
		notify    bool
	}
	createErr error
	revokeErr error
}

func newStubSessionRepository() *stubSessionRepository {
	return &stubSessionRepository{sessions: make(map[string]domain.Session)}
}

func (r *stubSessionRepository) Create(_ context.Context, session domain.Session) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.sessions[session.ID] = session
	return nil
}

func (r *stubSessionRepository) GetByID(_ context.Context, sessionID string) (*domain.Session, error) {
	if session, ok := r.sessions[sessionID]; ok {
		copy := session
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (r *stubSessionRepository) ListActiveByUser(_ context.Context, userID string) ([]domain.Session, error) {
	var out []domain.Session
	for _, session := range r.sessions {
		if session.UserID == userID && session.RevokedAt == nil {
			out = append(out, session)
		}
	}
	return out, nil
}

func (r *stubSessionRepository) Touch(_ context.Context, sessionID string, at time.Time) error {
	session, ok := r.sessions[sessionID]
	if !ok {
		return repository.ErrNotFound
	}
	session.LastActivityAt = at
	r.sessions[sessionID] = session
	r.touchCalls = append(r.touchCalls, sessionID)
	return nil
}

func (r *stubSessionRepository) SetRefreshToken(_ context.Context, sessionID, tokenID string, expiresAt time.Time) error {
	session, ok := r.sessions[sessionID]
	if !ok {
		return repository.ErrNotFound
	}
	session.RefreshTokenID = &tokenID
	session.RefreshExpiresAt = expiresAt
	r.sessions[sessionID] = session
	r.setRefresh = append(r.setRefresh, struct {
		sessionID string
		tokenID   string
		expiresAt time.Time
	}{sessionID, tokenID, expiresAt})
	return nil
}

func (r *stubSessionRepository) Revoke(_ context.Context, sessionID, reason string, notify bool, at time.Time) (bool, error) {
	if r.revokeErr != nil {
		return false, r.revokeErr
	}
	session, ok := r.sessions[sessionID]
	if !ok {
		return false, repository.ErrNotFound
	}
	changed := session.Revoke(at, reason, notify)
	r.sessions[sessionID] = session
	if changed {
		r.revokeCalls = append(r.revokeCalls, struct {
			sessionID string
			reason    string
			notify    bool
		}{sessionID, reason, notify})
	}
	return changed, nil
}

//

type stubTokenRepository struct {
	tokens      map[string]domain.RefreshToken
	rotateErr   error
	revokedBy   []string
	rotateCalls int
}

func newStubTokenRepository() *stubTokenRepository {
	return &stubTokenRepository{tokens: make(map[string]domain.RefreshToken)}
}

func (r *stubTokenRepository) Create(_ context.Context, token domain.RefreshToken) error {
	r.tokens[token.ID] = token
	return nil
}

func (r *stubTokenRepository) GetByID(_ context.Context, tokenID string) (*domain.RefreshToken, error) {
	if token, ok := r.tokens[tokenID]; ok {
		copy := token
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (r *stubTokenRepository) Rotate(_ context.Context, oldTokenID string, next domain.RefreshToken, at time.Time) error {
	r.rotateCalls++
	if r.rotateErr != nil {
		return r.rotateErr
	}
	old, ok := r.tokens[oldTokenID]
	if !ok || old.RevokedAt != nil {
		return repository.ErrConflict
	}
	old.Revoke(at)
	r.tokens[oldTokenID] = old
	r.tokens[next.ID] = next
	return nil
}

func (r *stubTokenRepository) Revoke(_ context.Context, tokenID string, at time.Time) (bool, error) {
	token, ok := r.tokens[tokenID]
	if !ok {
		return false, repository.ErrNotFound
	}
	changed := token.Revoke(at)
	r.tokens[tokenID] = token
	return changed, nil
}

func (r *stubTokenRepository) RevokeBySession(_ context.Context, sessionID string, at time.Time) (int, error) {
	count := 0
	for id, token := range r.tokens {
		if token.SessionID != sessionID || token.RevokedAt != nil {
			continue
		}
		token.Revoke(at)
		r.tokens[id] = token
		count++
	}
	r.revokedBy = append(r.revokedBy, sessionID)
	return count, nil
}

func (r *stubTokenRepository) CountActiveBySession(_ context.Context, sessionID string) (int, error) {
	count := 0
	for _, token := range r.tokens {
		if token.SessionID == sessionID && token.RevokedAt == nil {
			count++
		}
	}
	return count, nil
}

//

type stubGrantRepository struct {
	grants   map[string]domain.AuthorizationGrant
	byHash   map[string]string
	attached []struct {
		grantID   string
		sessionID string
	}
}

func newStubGrantRepository() *stubGrantRepository {
	return &stubGrantRepository{
		grants: make(map[string]domain.AuthorizationGrant),
		byHash: make(map[string]string),
	}
}

func (r *stubGrantRepository) Create(_ context.Context, grant domain.AuthorizationGrant, codeHash string) error {
	r.grants[grant.ID] = grant
	r.byHash[codeHash] = grant.ID
	return nil
}

func (r *stubGrantRepository) GetByID(_ context.Context, grantID string) (*domain.AuthorizationGrant, error) {
	if grant, ok := r.grants[grantID]; ok {
		copy := grant
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (r *stubGrantRepository) RedeemByCodeHash(_ context.Context, codeHash string, at time.Time) (*domain.AuthorizationGrant, error) {
	grantID, ok := r.byHash[codeHash]
	if !ok {
		return nil, repository.ErrNotFound
	}
	grant := r.grants[grantID]
	if grant.RedeemedAt != nil || grant.IsExpired(at) {
		return nil, repository.ErrNotFound
	}
	redeemed := at
	grant.RedeemedAt = &redeemed
	r.grants[grantID] = grant
	copy := grant
	return &copy, nil
}

func (r *stubGrantRepository) AttachSession(_ context.Context, grantID, sessionID string) error {
	grant, ok := r.grants[grantID]
	if !ok {
		return repository.ErrNotFound
	}
	if grant.SessionID != nil {
		return repository.ErrNotFound
	}
	grant.SessionID = &sessionID
	r.grants[grantID] = grant
	r.attached = append(r.attached, struct {
		grantID   string
		sessionID string
	}{grantID, sessionID})
	return nil
}

//

type stubUserDirectory struct {
	subjects map[string]domain.Subject
}

func (d *stubUserDirectory) GetSubject(_ context.Context, subjectID string) (*domain.Subject, error) {
	if subject, ok := d.subjects[subjectID]; ok {
		copy := subject
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

//

type stubClientInfoResolver struct {
	info domain.ClientInfo
	err  error
}

func (r *stubClientInfoResolver) Resolve(context.Context, string, string) (domain.ClientInfo, error) {
	if r.err != nil {
		return domain.ClientInfo{}, r.err
	}
	return r.info, nil
}

//

type stubEventPublisher struct {
	revoked []domain.SessionRevokedEvent
	replays []domain.ReplayDetectedEvent
}

func (p *stubEventPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	p.revoked = append(p.revoked, event)
	return nil
}

func (p *stubEventPublisher) PublishReplayDetected(_ context.Context, event domain.ReplayDetectedEvent) error {
	p.replays = append(p.replays, event)
	return nil
}

//

type stubRevocationCache struct {
	marked map[string]string
	err    error
}

func newStubRevocationCache() *stubRevocationCache {
	return &stubRevocationCache{marked: make(map[string]string)}
}

func (c *stubRevocationCache) MarkSessionRevoked(_ context.Context, sessionID, reason string, _ time.Duration) error {
	if c.err != nil {
		return c.err
	}
	c.marked[sessionID] = reason
	return nil
}

func (c *stubRevocationCache) IsSessionRevoked(_ context.Context, sessionID string) (bool, string, error) {
	if c.err != nil {
		return false, "", c.err
	}
	reason, ok := c.marked[sessionID]
	return ok, reason, nil
}

var errStubFailure = errors.New("stub failure")
