package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/mentora/tutoring-auth/internal/core/domain"
	"github.com/mentora/tutoring-auth/internal/core/port"
	"github.com/mentora/tutoring-auth/internal/repository"
)

const defaultRequestTimeout = 5 * time.Second

// HTTPDirectory resolves subjects against the identity service over its
// internal REST API. The authorization server never stores identities
// itself; this client is its only view of them.
type HTTPDirectory struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPDirectory constructs a directory client for the identity service
// at baseURL. The apiKey is sent as a bearer credential on every lookup.
func NewHTTPDirectory(baseURL, apiKey string, timeout time.Duration, logger *zap.Logger) *HTTPDirectory {
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	return &HTTPDirectory{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

var _ port.UserDirectory = (*HTTPDirectory)(nil)

type subjectPayload struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"`
	Email         string   `json:"email"`
	EmailVerified bool     `json:"email_verified"`
	DisplayName   string   `json:"display_name"`
	GivenName     string   `json:"given_name"`
	FamilyName    string   `json:"family_name"`
	Roles         []string `json:"roles"`
}

// GetSubject fetches the account snapshot for subjectID.
func (d *HTTPDirectory) GetSubject(ctx context.Context, subjectID string) (*domain.Subject, error) {
	endpoint := fmt.Sprintf("%s/internal/users/%s", d.baseURL, url.PathEscape(subjectID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if d.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+d.apiKey)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directory lookup: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return nil, repository.ErrNotFound
	default:
		d.logger.Warn("directory lookup failed",
			zap.String("subject_id", subjectID),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("directory lookup: unexpected status %d", resp.StatusCode)
	}

	var payload subjectPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode directory response: %w", err)
	}

	return &domain.Subject{
		ID:            payload.ID,
		Status:        domain.SubjectStatus(payload.Status),
		Email:         payload.Email,
		EmailVerified: payload.EmailVerified,
		DisplayName:   payload.DisplayName,
		GivenName:     payload.GivenName,
		FamilyName:    payload.FamilyName,
		Roles:         payload.Roles,
	}, nil
}
