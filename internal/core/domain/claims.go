package domain

// OAuth2/OIDC scopes this server will grant. Anything outside the
// allow-list is silently dropped at the authorization endpoint.
const (
	ScopeOpenID        = "openid"
	ScopeProfile       = "profile"
	ScopeEmail         = "email"
	ScopeOfflineAccess = "offline_access"
	// ScopeTutoringOffline lets the marketplace's native apps refresh in
	// the background without a browser session.
	ScopeTutoringOffline = "tutoring_api.offline"
)

// Claim types emitted into issued tokens.
const (
	ClaimSubject       = "sub"
	ClaimName          = "name"
	ClaimGivenName     = "given_name"
	ClaimFamilyName    = "family_name"
	ClaimEmail         = "email"
	ClaimEmailVerified = "email_verified"
	ClaimRole          = "role"
	ClaimSessionID     = "sid"
)

var allowedScopes = map[string]struct{}{
	ScopeOpenID:          {},
	ScopeProfile:         {},
	ScopeEmail:           {},
	ScopeOfflineAccess:   {},
	ScopeTutoringOffline: {},
}

// FilterScopes intersects the requested scopes with the allow-list. The
// result never comes back empty: when nothing survives, openid alone is
// granted so every principal carries at least one scope.
func FilterScopes(requested []string) []string {
	granted := make([]string, 0, len(requested))
	seen := make(map[string]struct{}, len(requested))
	for _, scope := range requested {
		if _, ok := allowedScopes[scope]; !ok {
			continue
		}
		if _, dup := seen[scope]; dup {
			continue
		}
		seen[scope] = struct{}{}
		granted = append(granted, scope)
	}
	if len(granted) == 0 {
		return []string{ScopeOpenID}
	}
	return granted
}

// ClaimDestination states which issued tokens a claim type is embedded
// into. Identity-token emission can additionally be gated on a scope.
type ClaimDestination struct {
	Access        bool
	Identity      bool
	IdentityScope string
}

// claimDestinations is the static claim-type mapping. Keeping it as a
// table rather than inline conditionals makes the mapping testable on
// its own and impossible to diverge between grants.
var claimDestinations = map[string]ClaimDestination{
	ClaimSubject:       {Access: true},
	ClaimName:          {Access: true, Identity: true, IdentityScope: ScopeProfile},
	ClaimGivenName:     {Access: true, Identity: true, IdentityScope: ScopeProfile},
	ClaimFamilyName:    {Access: true, Identity: true, IdentityScope: ScopeProfile},
	ClaimEmail:         {Access: true, Identity: true, IdentityScope: ScopeEmail},
	ClaimEmailVerified: {Access: true, Identity: true, IdentityScope: ScopeEmail},
	ClaimRole:          {Access: true},
	ClaimSessionID:     {Access: true, Identity: true},
}

// DestinationsFor resolves where a claim of the given type may be
// emitted, given the scopes granted to the principal. Claim types
// outside the table go to the access token only when openid was granted.
func DestinationsFor(claimType string, grantedScopes []string) (access, identity bool) {
	scopes := make(map[string]struct{}, len(grantedScopes))
	for _, scope := range grantedScopes {
		scopes[scope] = struct{}{}
	}

	dest, ok := claimDestinations[claimType]
	if !ok {
		_, openid := scopes[ScopeOpenID]
		return openid, false
	}

	access = dest.Access
	if dest.Identity {
		if dest.IdentityScope == "" {
			identity = true
		} else if _, granted := scopes[dest.IdentityScope]; granted {
			identity = true
		}
	}
	return access, identity
}

// HasScope reports whether the scope list contains the supplied scope.
func HasScope(scopes []string, scope string) bool {
	for _, s := range scopes {
		if s == scope {
			return true
		}
	}
	return false
}
