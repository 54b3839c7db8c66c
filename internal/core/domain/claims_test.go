package domain

import (
	"reflect"
	"testing"
)

func TestFilterScopesDropsUnknown(t *testing.T) {
	granted := FilterScopes([]string{ScopeOpenID, "admin"})
	if !reflect.DeepEqual(granted, []string{ScopeOpenID}) {
		t.Fatalf("expected [openid], got %v", granted)
	}
}

func TestFilterScopesNeverEmpty(t *testing.T) {
	cases := [][]string{
		nil,
		{},
		{"admin", "payments:write"},
	}
	for _, requested := range cases {
		granted := FilterScopes(requested)
		if !reflect.DeepEqual(granted, []string{ScopeOpenID}) {
			t.Fatalf("requested %v: expected [openid], got %v", requested, granted)
		}
	}
}

func TestFilterScopesKeepsAllowedAndDeduplicates(t *testing.T) {
	granted := FilterScopes([]string{ScopeOpenID, ScopeProfile, ScopeProfile, ScopeOfflineAccess, "catalog:read"})
	expected := []string{ScopeOpenID, ScopeProfile, ScopeOfflineAccess}
	if !reflect.DeepEqual(granted, expected) {
		t.Fatalf("expected %v, got %v", expected, granted)
	}
}

func TestDestinationsForProfileClaims(t *testing.T) {
	withProfile := []string{ScopeOpenID, ScopeProfile}
	withoutProfile := []string{ScopeOpenID}

	for _, claim := range []string{ClaimName, ClaimGivenName, ClaimFamilyName} {
		access, identity := DestinationsFor(claim, withProfile)
		if !access || !identity {
			t.Fatalf("%s with profile scope: expected access+identity, got access=%v identity=%v", claim, access, identity)
		}

		access, identity = DestinationsFor(claim, withoutProfile)
		if !access || identity {
			t.Fatalf("%s without profile scope: expected access only, got access=%v identity=%v", claim, access, identity)
		}
	}
}

func TestDestinationsForEmailClaims(t *testing.T) {
	access, identity := DestinationsFor(ClaimEmail, []string{ScopeOpenID, ScopeEmail})
	if !access || !identity {
		t.Fatalf("email with email scope: access=%v identity=%v", access, identity)
	}

	access, identity = DestinationsFor(ClaimEmailVerified, []string{ScopeOpenID})
	if !access || identity {
		t.Fatalf("email_verified without email scope: access=%v identity=%v", access, identity)
	}
}

func TestDestinationsForSubjectAndRoleStayOffIdentityToken(t *testing.T) {
	for _, claim := range []string{ClaimSubject, ClaimRole} {
		access, identity := DestinationsFor(claim, []string{ScopeOpenID, ScopeProfile, ScopeEmail})
		if !access || identity {
			t.Fatalf("%s: expected access only, got access=%v identity=%v", claim, access, identity)
		}
	}
}

func TestDestinationsForSessionIDGoesEverywhere(t *testing.T) {
	access, identity := DestinationsFor(ClaimSessionID, []string{ScopeOpenID})
	if !access || !identity {
		t.Fatalf("sid: expected both destinations, got access=%v identity=%v", access, identity)
	}
}

func TestDestinationsForUnknownClaimRequiresOpenID(t *testing.T) {
	access, identity := DestinationsFor("tenant_id", []string{ScopeOpenID})
	if !access || identity {
		t.Fatalf("unknown claim with openid: access=%v identity=%v", access, identity)
	}

	access, identity = DestinationsFor("tenant_id", []string{ScopeProfile})
	if access || identity {
		t.Fatalf("unknown claim without openid: access=%v identity=%v", access, identity)
	}
}
