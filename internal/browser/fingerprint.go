package browser

import (
	"crypto/sha256"
	"encoding/binary"
)

// Fingerprint is the synthetic browser identity presented to target sites.
// Derived deterministically from the per-application seed so that both
// acquisition attempts (proxied and direct) present the same identity.
type Fingerprint struct {
	UserAgent string
	Width     int
	Height    int
	Locale    string
	Timezone  string
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

var viewports = [][2]int{
	{1920, 1080},
	{1536, 864},
	{1440, 900},
	{1366, 768},
	{2560, 1440},
}

var timezones = []string{
	"America/New_York",
	"America/Chicago",
	"America/Denver",
	"America/Los_Angeles",
}

// FingerprintForSeed derives a stable fingerprint from the seed. The same
// seed always yields the same identity.
func FingerprintForSeed(seed string) Fingerprint {
	sum := sha256.Sum256([]byte(seed))

	uaIdx := binary.BigEndian.Uint32(sum[0:4]) % uint32(len(userAgents))
	vpIdx := binary.BigEndian.Uint32(sum[4:8]) % uint32(len(viewports))
	tzIdx := binary.BigEndian.Uint32(sum[8:12]) % uint32(len(timezones))

	vp := viewports[vpIdx]
	return Fingerprint{
		UserAgent: userAgents[uaIdx],
		Width:     vp[0],
		Height:    vp[1],
		Locale:    "en-US",
		Timezone:  timezones[tzIdx],
	}
}
