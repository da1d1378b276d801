package suggest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChipsFromJSONArray(t *testing.T) {
	f := &fakeLLM{reply: `["Yes, book it", "Not now", "Tell me more"]`}
	g := NewChipGenerator(f, nil)

	chips := g.Chips(context.Background(), "Would you like to book an appointment?", "en")
	assert.Equal(t, []string{"Yes, book it", "Not now", "Tell me more"}, chips)
}

func TestChipsLineFallbackAndSanitize(t *testing.T) {
	f := &fakeLLM{reply: "- Yes please\n* No thanks\n{\"bad\": 1}\nthis chip is far far far too long to ever be tappable\njson stuff\n\"Maybe later\""}
	g := NewChipGenerator(f, nil)

	chips := g.Chips(context.Background(), "Do you want me to continue?", "en")
	assert.Equal(t, []string{"Yes please", "No thanks", "Maybe later"}, chips)
}

func TestChipsSkipsNonQuestions(t *testing.T) {
	f := &fakeLLM{reply: `["x"]`}
	g := NewChipGenerator(f, nil)

	chips := g.Chips(context.Background(), "Your booking is confirmed.", "en")
	assert.Nil(t, chips)
	assert.Equal(t, 0, f.callCount())
}

func TestChipsDebounceSameSource(t *testing.T) {
	f := &fakeLLM{err: assert.AnError}
	g := NewChipGenerator(f, nil)
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	g.clock = func() time.Time { return now }

	src := "Shall I go ahead?"
	assert.Nil(t, g.Chips(context.Background(), src, "en"))
	require.Equal(t, 1, f.callCount())

	// Same source inside the window: no second call even though nothing
	// was cached.
	now = now.Add(500 * time.Millisecond)
	assert.Nil(t, g.Chips(context.Background(), src, "en"))
	assert.Equal(t, 1, f.callCount())

	// Past the window the call is retried.
	now = now.Add(2 * time.Second)
	assert.Nil(t, g.Chips(context.Background(), src, "en"))
	assert.Equal(t, 2, f.callCount())
}

func TestChipsCachedAcrossDebounce(t *testing.T) {
	f := &fakeLLM{reply: `["Yes", "No"]`}
	g := NewChipGenerator(f, nil)

	src := "Would you like a morning slot?"
	first := g.Chips(context.Background(), src, "en")
	second := g.Chips(context.Background(), src, "en")
	assert.Equal(t, first, second)
	assert.Equal(t, 1, f.callCount(), "cache hit skips both debounce and network")
}

func TestLooksLikeOpenQuestion(t *testing.T) {
	assert.True(t, LooksLikeOpenQuestion("What brings you in today?"))
	assert.True(t, LooksLikeOpenQuestion("Tell me more about the pain"))
	assert.False(t, LooksLikeOpenQuestion("Your appointment is booked."))
}
