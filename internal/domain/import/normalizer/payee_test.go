package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePayee(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"entity suffix with dots", "ALBERT HEIJN B.V.", "albert heijn"},
		{"comma and inc", "Acme, Inc.", "acme"},
		{"nv", "Coolblue N.V.", "coolblue"},
		{"gmbh", "Zalando GmbH", "zalando"},
		{"spacing collapsed", "  Spotify    AB ", "spotify ab"},
		{"apostrophe removed", "O'Reilly Media", "oreilly media"},
		{"hyphen joins words", "Jumbo-Supermarkten", "jumbosupermarkten"},
		{"suffix only inside word kept", "Bvlgari", "bvlgari"},
		{"suffix alone", "GmbH", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePayee(tt.input))
		})
	}
}

func TestNewPayeeNormalizer(t *testing.T) {
	t.Run("empty list keeps suffixes", func(t *testing.T) {
		n := NewPayeeNormalizer([]string{})
		assert.Equal(t, "acme inc", n.Normalize("Acme Inc."))
		assert.Empty(t, n.Suffixes())
	})

	t.Run("custom suffix with optional dots", func(t *testing.T) {
		n := NewPayeeNormalizer([]string{"s.a."})
		assert.Equal(t, "banco", n.Normalize("Banco S.A."))
		assert.Equal(t, "banco", n.Normalize("BANCO SA"))
		assert.Equal(t, "acme bv", n.Normalize("Acme B.V."))
	})

	t.Run("suffixes are copied", func(t *testing.T) {
		n := NewPayeeNormalizer(nil)
		got := n.Suffixes()
		got[0] = "changed"
		assert.Equal(t, DefaultEntitySuffixes, n.Suffixes())
	})
}

func TestNormalizeForGrouping(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  Albert   Heijn!!! ", "albert heijn"},
		{"Netflix.com.", "netflix.com"},
		{"Jumbo B.V.", "jumbo b.v"},
		{"Spotify;", "spotify"},
		{"...", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeForGrouping(tt.input))
		})
	}
}
