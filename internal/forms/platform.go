// Package forms locates application forms on career pages and defines the
// fill, submit, and validate contracts.
package forms

import (
	"net/url"
	"strings"
)

// Platform represents a known applicant tracking system.
type Platform string

const (
	// PlatformGreenhouse is the Greenhouse ATS platform
	PlatformGreenhouse Platform = "greenhouse"
	// PlatformLever is the Lever ATS platform
	PlatformLever Platform = "lever"
	// PlatformWorkday is the Workday ATS platform
	PlatformWorkday Platform = "workday"
	// PlatformAshby is the Ashby ATS platform
	PlatformAshby Platform = "ashby"
	// PlatformICIMS is the iCIMS ATS platform
	PlatformICIMS Platform = "icims"
	// PlatformUnknown is an unrecognized platform
	PlatformUnknown Platform = "unknown"
)

// DetectPlatform identifies the applicant tracking system from a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}

	host := strings.ToLower(parsed.Host)

	// Greenhouse patterns
	if strings.Contains(host, "greenhouse.io") ||
		strings.Contains(host, "boards.greenhouse.io") {
		return PlatformGreenhouse
	}

	// Lever patterns
	if strings.Contains(host, "lever.co") ||
		strings.Contains(host, "jobs.lever.co") {
		return PlatformLever
	}

	// Workday patterns
	if strings.Contains(host, "workday.com") ||
		strings.Contains(host, "myworkdayjobs.com") {
		return PlatformWorkday
	}

	if strings.Contains(host, "ashbyhq.com") {
		return PlatformAshby
	}

	if strings.Contains(host, "icims.com") {
		return PlatformICIMS
	}

	return PlatformUnknown
}

// PlatformFormSelectors returns form container selectors for a specific
// platform, most specific first.
func PlatformFormSelectors(platform Platform) []string {
	switch platform {
	case PlatformGreenhouse:
		return []string{
			"#application-form",
			"#application_form",
			".application--form",
			"form[action*='greenhouse']",
			"form",
		}
	case PlatformLever:
		return []string{
			".lever-application-form",
			"#application-form",
			"form[action*='lever']",
			"form",
		}
	case PlatformWorkday:
		return []string{
			"[data-automation-id='applyFlowPage'] form",
			"[data-automation-id='jobApplication']",
			"form",
		}
	case PlatformAshby:
		return []string{
			"._fields_oj0x5_1",
			"form[class*='ashby']",
			"form",
		}
	case PlatformICIMS:
		return []string{
			"#icims_content_iframe form",
			".iCIMS_MainWrapper form",
			"form",
		}
	default:
		return []string{
			"form[action*='apply']",
			"form[id*='application']",
			"form[class*='application']",
			"form",
		}
	}
}

// PlatformApplyButtonSelectors returns selectors for the button that expands
// or reveals the application form on a posting page.
func PlatformApplyButtonSelectors(platform Platform) []string {
	common := []string{
		"a[href*='#app']",
		"a[href*='apply']",
		"button[class*='apply']",
		".apply-button",
		"#apply-button",
	}

	switch platform {
	case PlatformGreenhouse:
		return append([]string{"#apply_button", ".template-btn-submit"}, common...)
	case PlatformLever:
		return append([]string{".postings-btn", ".posting-btn-submit a"}, common...)
	case PlatformWorkday:
		return append([]string{"[data-automation-id='applyButton']"}, common...)
	case PlatformAshby:
		return append([]string{"a[class*='applyButton']"}, common...)
	default:
		return common
	}
}

// PlatformFrameHints returns URL substrings that identify an embedded frame
// as hosting the platform's application form.
func PlatformFrameHints(platform Platform) []string {
	switch platform {
	case PlatformGreenhouse:
		return []string{"greenhouse.io"}
	case PlatformLever:
		return []string{"lever.co"}
	case PlatformWorkday:
		return []string{"myworkdayjobs.com", "workday.com"}
	case PlatformAshby:
		return []string{"ashbyhq.com"}
	case PlatformICIMS:
		return []string{"icims.com"}
	default:
		return []string{"greenhouse.io", "lever.co", "workday", "ashbyhq.com", "icims.com", "apply"}
	}
}
