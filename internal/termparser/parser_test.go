package termparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trackerd/core/internal/trackconfig"
)

func defaultTestParser() *Parser {
	cfg := trackconfig.Default().Parser
	stop := map[string]struct{}{"the": {}, "and": {}}
	return New(cfg, stop)
}

func TestParser_BasicWords(t *testing.T) {
	t.Parallel()

	p := defaultTestParser()
	counts := p.Parse("The quick brown fox jumps over the lazy dog")

	assert.Equal(t, 0, counts["the"])
	assert.Equal(t, 1, counts["quick"])
	assert.Equal(t, 1, counts["brown"])
	assert.NotContains(t, counts, "and")
}

func TestParser_DiacriticsFold(t *testing.T) {
	t.Parallel()

	p := defaultTestParser()
	counts := p.Parse("café")

	assert.Contains(t, counts, "cafe")
}

func TestParser_DigitOnlyAdmission(t *testing.T) {
	t.Parallel()

	p := defaultTestParser()

	short := p.Parse("42")
	assert.Empty(t, short)

	long := p.Parse("123456")
	require.Contains(t, long, "123456")
	assert.Equal(t, 1, long["123456"])
}

func TestParser_DigitOnlyDisabled(t *testing.T) {
	t.Parallel()

	cfg := trackconfig.Default().Parser
	cfg.IndexNumbers = false
	p := New(cfg, nil)

	counts := p.Parse("123456789")
	assert.Empty(t, counts)
}

func TestParser_MinLengthWindow(t *testing.T) {
	t.Parallel()

	p := defaultTestParser()
	counts := p.Parse("a an the cat")

	assert.NotContains(t, counts, "a")
	assert.NotContains(t, counts, "an")
	assert.Contains(t, counts, "cat")
}

func TestParser_MaxLengthTruncates(t *testing.T) {
	t.Parallel()

	cfg := trackconfig.Default().Parser
	cfg.MaxWordLength = 5
	cfg.EnableStemming = false
	p := New(cfg, nil)

	counts := p.Parse("internationalization")
	found := false
	for term := range counts {
		if len([]rune(term)) <= 5 {
			found = true
		}
	}
	assert.True(t, found)
}

func TestParser_StemmingNotAppliedToDigits(t *testing.T) {
	t.Parallel()

	p := defaultTestParser()
	counts := p.Parse("running 654321")

	require.Contains(t, counts, "654321")
	assert.NotContains(t, counts, "running")
}
