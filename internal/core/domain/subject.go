package domain

// SubjectStatus mirrors the account state held by the user directory.
type SubjectStatus string

const (
	SubjectStatusActive   SubjectStatus = "active"
	SubjectStatusDisabled SubjectStatus = "disabled"
	SubjectStatusDeleted  SubjectStatus = "deleted"
)

// Subject is a read-only snapshot of an account as reported by the user
// directory collaborator. The authorization server never stores or
// mutates identity data itself.
type Subject struct {
	ID            string
	Status        SubjectStatus
	Email         string
	EmailVerified bool
	DisplayName   string
	GivenName     string
	FamilyName    string
	Roles         []string
}

// CanAuthenticate reports whether the subject is still permitted to sign in.
func (s Subject) CanAuthenticate() bool {
	return s.Status == SubjectStatusActive
}

// ClientInfo describes the device a request originates from, as resolved
// by the client-info collaborator.
type ClientInfo struct {
	DeviceID   string
	DeviceName string
	UserAgent  string
	IPAddress  string
}
