package usecase

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesNewsFilter(t *testing.T) {
	cases := []struct {
		headline string
		want     bool
	}{
		{"Acme receives FDA approval for lead candidate", true},
		{"ACME ANNOUNCES MERGER WITH BETA CORP", true},
		{"Acme reports Phase 3 clinical trial results", true},
		{"Acme announces quarterly dividend", false},
		{"", false},
		// Exclude keywords win even when a breaking keyword is present.
		{"Law firm announces class action over failed merger", false},
		{"INVESTOR ALERT: Acme acquisition investigation", false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, MatchesNewsFilter(tc.headline), tc.headline)
	}
}
