package browser

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFingerprintForSeed_Deterministic(t *testing.T) {
	a := FingerprintForSeed("record-1234")
	b := FingerprintForSeed("record-1234")
	assert.Equal(t, a, b)
}

func TestFingerprintForSeed_ValidValues(t *testing.T) {
	seeds := []string{"", "x", "record-1", "record-2", "a-much-longer-seed-value"}
	for _, seed := range seeds {
		fp := FingerprintForSeed(seed)
		assert.Contains(t, userAgents, fp.UserAgent, "seed %q", seed)
		assert.Contains(t, timezones, fp.Timezone, "seed %q", seed)
		assert.Equal(t, "en-US", fp.Locale)
		assert.Positive(t, fp.Width)
		assert.Positive(t, fp.Height)
	}
}

func TestFingerprintForSeed_DifferentSeedsCanDiffer(t *testing.T) {
	// With 5 user agents and many seeds, at least two seeds must land on
	// different identities.
	seen := map[string]bool{}
	for _, seed := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		seen[FingerprintForSeed(seed).UserAgent] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestIsProxyRejected(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "tunnel connection failed",
			err:      errors.New("page load error net::ERR_TUNNEL_CONNECTION_FAILED"),
			expected: true,
		},
		{
			name:     "proxy connection failed",
			err:      errors.New("net::ERR_PROXY_CONNECTION_FAILED"),
			expected: true,
		},
		{
			name:     "proxy auth required",
			err:      errors.New("received 407 Proxy Authentication Required"),
			expected: true,
		},
		{
			name:     "wrapped in navigation error",
			err:      &NavigationError{URL: "https://example.com", Cause: errors.New("net::ERR_NO_SUPPORTED_PROXIES")},
			expected: true,
		},
		{
			name:     "target site down",
			err:      errors.New("net::ERR_CONNECTION_REFUSED"),
			expected: false,
		},
		{
			name:     "timeout",
			err:      errors.New("context deadline exceeded"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsProxyRejected(tt.err))
		})
	}
}
