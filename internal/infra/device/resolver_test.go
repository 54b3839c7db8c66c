package device

import (
	"context"
	"testing"
)

const chromeOnMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

func TestResolveStableFingerprint(t *testing.T) {
	resolver := NewResolver()

	first, err := resolver.Resolve(context.Background(), "203.0.113.10", chromeOnMac)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	second, err := resolver.Resolve(context.Background(), "203.0.113.10", chromeOnMac)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if first.DeviceID == "" {
		t.Fatal("expected non-empty device id")
	}
	if first.DeviceID != second.DeviceID {
		t.Fatalf("fingerprint not stable: %s vs %s", first.DeviceID, second.DeviceID)
	}

	other, err := resolver.Resolve(context.Background(), "203.0.113.11", chromeOnMac)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if other.DeviceID == first.DeviceID {
		t.Fatal("expected different address to yield a different device id")
	}
}

func TestFriendlyName(t *testing.T) {
	cases := []struct {
		name      string
		userAgent string
		want      string
	}{
		{"chrome mac", chromeOnMac, "Chrome on macOS"},
		{"firefox windows", "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:127.0) Gecko/20100101 Firefox/127.0", "Firefox on Windows"},
		{"safari iphone", "Mozilla/5.0 (iPhone; CPU iPhone OS 17_5 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.5 Mobile/15E148 Safari/604.1", "Safari on iPhone"},
		{"edge windows", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36 Edg/126.0.0.0", "Edge on Windows"},
		{"bare android", "okhttp/4.12.0 (Linux; Android 14)", "Android"},
		{"empty", "", "Unknown device"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := friendlyName(tc.userAgent); got != tc.want {
				t.Fatalf("friendlyName(%q) = %q, want %q", tc.userAgent, got, tc.want)
			}
		})
	}
}
