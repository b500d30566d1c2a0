package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected Platform
	}{
		{
			name:     "greenhouse board",
			url:      "https://boards.greenhouse.io/acme/jobs/123",
			expected: PlatformGreenhouse,
		},
		{
			name:     "lever posting",
			url:      "https://jobs.lever.co/acme/abc-def",
			expected: PlatformLever,
		},
		{
			name:     "workday",
			url:      "https://acme.wd5.myworkdayjobs.com/careers/job/NYC/Engineer_R123",
			expected: PlatformWorkday,
		},
		{
			name:     "ashby",
			url:      "https://jobs.ashbyhq.com/acme/12345",
			expected: PlatformAshby,
		},
		{
			name:     "icims",
			url:      "https://careers-acme.icims.com/jobs/1000/engineer/job",
			expected: PlatformICIMS,
		},
		{
			name:     "company careers page",
			url:      "https://acme.com/careers/engineer",
			expected: PlatformUnknown,
		},
		{
			name:     "invalid url",
			url:      "://not-a-url",
			expected: PlatformUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectPlatform(tt.url))
		})
	}
}

func TestPlatformFormSelectors_AlwaysEndWithGenericForm(t *testing.T) {
	for _, p := range []Platform{PlatformGreenhouse, PlatformLever, PlatformWorkday, PlatformAshby, PlatformICIMS} {
		selectors := PlatformFormSelectors(p)
		assert.NotEmpty(t, selectors)
		assert.Equal(t, "form", selectors[len(selectors)-1], "platform %s", p)
	}
}

func TestFrameMatches(t *testing.T) {
	hints := PlatformFrameHints(PlatformGreenhouse)
	assert.True(t, frameMatches("https://boards.greenhouse.io/embed/job_app?for=acme", hints))
	assert.False(t, frameMatches("https://www.youtube.com/embed/xyz", hints))
}
