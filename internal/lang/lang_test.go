package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, in := range []string{"en", "ES", " fr ", "De", "it", "ru"} {
		c, err := Parse(in)
		require.NoError(t, err, in)
		assert.True(t, c.Valid())
	}

	for _, in := range []string{"", "xx", "eng", "pt", "e n"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidLanguage, in)
	}
}

func TestCodesOrder(t *testing.T) {
	assert.Equal(t, []string{"en", "es", "fr", "de", "it", "ru"}, Codes())
	assert.Equal(t, English, Default)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Korrektur:", German.Label())
	assert.Equal(t, LiteralLabel, Code("xx").Label())

	labels := Labels()
	assert.Equal(t, LiteralLabel, labels[0])
	// en and fr share the literal label.
	assert.Len(t, labels, 5)
}

func TestName(t *testing.T) {
	assert.Equal(t, "Russian", Russian.Name())
	assert.Equal(t, "XX", Code("xx").Name())
}
