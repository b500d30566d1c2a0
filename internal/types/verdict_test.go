package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerificationOutcome_ElapsedMarshalsAsMilliseconds(t *testing.T) {
	outcome := VerificationOutcome{ElapsedMS: (90 * time.Second).Milliseconds()}
	payload, err := json.Marshal(outcome)
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"elapsed_ms":90000`)
}

func TestHasMissingRequired(t *testing.T) {
	tests := []struct {
		name     string
		issues   []string
		expected bool
	}{
		{"no issues", nil, false},
		{"required field flagged", []string{"Field 'Phone' is required but empty"}, true},
		{"missing field flagged", []string{"missing value for resume upload"}, true},
		{"unrelated issue", []string{"page still shows the form"}, false},
		{"mixed issues", []string{"confirmation text absent", "Required field left blank"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &ValidationVerdict{Issues: tt.issues}
			assert.Equal(t, tt.expected, v.HasMissingRequired())
		})
	}
}
