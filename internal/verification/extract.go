package verification

import (
	"regexp"
	"strings"
)

// codePattern matches a 4 to 8 digit code following code-ish lead-in text.
var codePattern = regexp.MustCompile(`(?i)(?:code|pin|otp)[^0-9]{0,20}(\d{4,8})`)

// bareCodePattern is the fallback: any standalone 6-digit group, the most
// common code length.
var bareCodePattern = regexp.MustCompile(`\b(\d{6})\b`)

// linkPattern matches confirmation URLs embedded in message bodies.
var linkPattern = regexp.MustCompile(`https?://[^\s"'<>)\]]+`)

// linkHints mark a URL as a confirmation link rather than an unsubscribe
// footer or tracking pixel.
var linkHints = []string{"verify", "confirm", "activate", "validate", "token="}

// ExtractCode pulls a verification code out of an email body. Returns the
// empty string when none is found.
func ExtractCode(body string) string {
	if m := codePattern.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	if m := bareCodePattern.FindStringSubmatch(body); m != nil {
		return m[1]
	}
	return ""
}

// ExtractLink pulls a confirmation link out of an email body. Returns the
// empty string when none of the URLs look like one.
func ExtractLink(body string) string {
	for _, url := range linkPattern.FindAllString(body, -1) {
		lower := strings.ToLower(url)
		for _, hint := range linkHints {
			if strings.Contains(lower, hint) {
				return strings.TrimRight(url, ".,;")
			}
		}
	}
	return ""
}
