package directory

import (
	"context"
	"strings"
	"sync"

	"github.com/mentora/tutoring-auth/internal/core/domain"
	"github.com/mentora/tutoring-auth/internal/core/port"
	"github.com/mentora/tutoring-auth/internal/repository"
)

// StaticDirectory serves subjects from an in-memory map. It stands in for
// the identity service during local development and in tests.
type StaticDirectory struct {
	mu       sync.RWMutex
	subjects map[string]domain.Subject
}

// NewStaticDirectory seeds the directory with the supplied subjects.
func NewStaticDirectory(subjects ...domain.Subject) *StaticDirectory {
	d := &StaticDirectory{subjects: make(map[string]domain.Subject, len(subjects))}
	for _, subject := range subjects {
		d.subjects[strings.ToLower(subject.ID)] = subject
	}
	return d
}

var _ port.UserDirectory = (*StaticDirectory)(nil)

// GetSubject returns the seeded subject for subjectID.
func (d *StaticDirectory) GetSubject(_ context.Context, subjectID string) (*domain.Subject, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	subject, ok := d.subjects[strings.ToLower(subjectID)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := subject
	return &copied, nil
}

// Upsert adds or replaces a subject. Handy for exercising disabled-account
// flows in development.
func (d *StaticDirectory) Upsert(subject domain.Subject) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.subjects[strings.ToLower(subject.ID)] = subject
}
