package wiktionary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSenses(t *testing.T) {
	fragment := `<ol>
<li>A <a href="/?word=finger">finger</a>.
  <ul><li><i>Me corté el dedo.</i></li></ul>
</li>
<li>A <b>toe</b>.<dl><dd>used of animals</dd></dl></li>
</ol>`
	senses, err := Senses(fragment)
	require.NoError(t, err)
	assert.Equal(t, []string{"A finger.", "A toe."}, senses)
}

func TestSensesDropsRuby(t *testing.T) {
	senses, err := Senses(`<ol><li><ruby>漢字<rp>(</rp><rt>かんじ</rt><rp>)</rp></ruby>の読み</li></ol>`)
	require.NoError(t, err)
	assert.Equal(t, []string{"漢字の読み"}, senses)
}

func TestSensesEmpty(t *testing.T) {
	senses, err := Senses("  ")
	require.NoError(t, err)
	assert.Nil(t, senses)

	senses, err = Senses("<p>no list</p>")
	require.NoError(t, err)
	assert.Empty(t, senses)
}
