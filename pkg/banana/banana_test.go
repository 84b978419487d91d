package banana

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValid(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want bool
	}{
		{"valid simple", "paloaltoCA", true},
		{"valid with digits", "sf49erCA", true},
		{"missing state", "paloalto", false},
		{"lowercase state", "paloaltoca", false},
		{"three letter state", "paloaltoCAN", false},
		{"uppercase city", "PaloAltoCA", false},
		{"empty", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Valid(tc.in))
		})
	}
}

func TestState(t *testing.T) {
	assert.Equal(t, "CA", State("paloaltoCA"))
	assert.Equal(t, "", State("not-valid"))
}
