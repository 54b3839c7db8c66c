package device

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/mentora/tutoring-auth/internal/core/domain"
	"github.com/mentora/tutoring-auth/internal/core/port"
)

// Resolver derives a stable device identifier and a human-friendly device
// name from the request's network address and user agent. The identifier
// only needs to be stable enough to group sessions per device in the
// session list; it is not a tracking fingerprint.
type Resolver struct{}

// NewResolver constructs a device resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

var _ port.ClientInfoResolver = (*Resolver)(nil)

// Resolve computes the client info for the supplied address and agent.
func (r *Resolver) Resolve(_ context.Context, ipAddress, userAgent string) (domain.ClientInfo, error) {
	return domain.ClientInfo{
		DeviceID:   fingerprint(ipAddress, userAgent),
		DeviceName: friendlyName(userAgent),
		UserAgent:  userAgent,
		IPAddress:  ipAddress,
	}, nil
}

func fingerprint(ipAddress, userAgent string) string {
	sum := sha256.Sum256([]byte(ipAddress + "|" + userAgent))
	return hex.EncodeToString(sum[:16])
}

var browserMarkers = []struct {
	marker string
	name   string
}{
	{"edg/", "Edge"},
	{"opr/", "Opera"},
	{"chrome/", "Chrome"},
	{"firefox/", "Firefox"},
	{"safari/", "Safari"},
}

var platformMarkers = []struct {
	marker string
	name   string
}{
	{"iphone", "iPhone"},
	{"ipad", "iPad"},
	{"android", "Android"},
	{"windows", "Windows"},
	{"mac os x", "macOS"},
	{"linux", "Linux"},
}

func friendlyName(userAgent string) string {
	if userAgent == "" {
		return "Unknown device"
	}

	lowered := strings.ToLower(userAgent)

	browser := ""
	for _, candidate := range browserMarkers {
		if strings.Contains(lowered, candidate.marker) {
			browser = candidate.name
			break
		}
	}

	platform := ""
	for _, candidate := range platformMarkers {
		if strings.Contains(lowered, candidate.marker) {
			platform = candidate.name
			break
		}
	}

	switch {
	case browser != "" && platform != "":
		return browser + " on " + platform
	case browser != "":
		return browser
	case platform != "":
		return platform
	default:
		return "Unknown device"
	}
}
