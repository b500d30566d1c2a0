// Package verification detects post-submission email challenges and tries
// to resolve them by polling the candidate's mailbox.
package verification

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// challengePhrases indicate the page is waiting on an emailed confirmation.
var challengePhrases = []string{
	"verify your email",
	"verification code",
	"confirmation code",
	"check your email",
	"check your inbox",
	"we sent you an email",
	"we've sent you an email",
	"sent a verification",
	"confirm your email",
}

// codeInputSelectors locate the input where an emailed code is entered.
var codeInputSelectors = []string{
	"input[name*='verification']",
	"input[name*='code']",
	"input[id*='verification']",
	"input[id*='otp']",
	"input[autocomplete='one-time-code']",
}

// confirmSelectors locate the button that submits an entered code.
var confirmSelectors = []string{
	"button[type='submit']",
	"button[class*='verify']",
	"button[class*='confirm']",
	"input[type='submit']",
}

// Challenge describes a detected email-verification interstitial.
type Challenge struct {
	Present bool
	// WantsCode means the page has an input expecting an emailed code. When
	// false, the email is expected to carry a confirmation link instead.
	WantsCode       bool
	CodeSelector    string
	ConfirmSelector string
}

// DetectChallenge inspects page HTML for an email-verification interstitial.
func DetectChallenge(html string) Challenge {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Challenge{}
	}

	text := strings.ToLower(doc.Find("body").Text())
	present := false
	for _, phrase := range challengePhrases {
		if strings.Contains(text, phrase) {
			present = true
			break
		}
	}
	if !present {
		return Challenge{}
	}

	challenge := Challenge{Present: true}
	for _, sel := range codeInputSelectors {
		if doc.Find(sel).Length() > 0 {
			challenge.WantsCode = true
			challenge.CodeSelector = sel
			break
		}
	}
	if challenge.WantsCode {
		for _, sel := range confirmSelectors {
			if doc.Find(sel).Length() > 0 {
				challenge.ConfirmSelector = sel
				break
			}
		}
	}
	return challenge
}
