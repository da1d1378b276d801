package suggest

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"carebook-chatbot/internal/llm"
	"carebook-chatbot/pkg/logging"
)

const (
	chipCacheSize   = 40
	chipMaxCount    = 4
	chipMaxRunes    = 32
	chipDebounce    = 1500 * time.Millisecond
	chipMaxTokens   = 80
	chipTemperature = 0.5
)

// ChipGenerator produces short quick-reply suggestions from the assistant's
// last utterance. It is strictly best-effort: failures and debounced calls
// yield no chips, never an error surfaced to the user.
type ChipGenerator struct {
	llm    llm.Client
	cache  *lru.Cache[string, []string]
	group  singleflight.Group
	logger *logging.Logger
	clock  func() time.Time

	mu         sync.Mutex
	lastSource string
	lastAt     time.Time
}

// NewChipGenerator wires a chip generator around the supplied client.
func NewChipGenerator(client llm.Client, logger *logging.Logger) *ChipGenerator {
	if client == nil {
		panic("suggest: llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	cache, _ := lru.New[string, []string](chipCacheSize)
	return &ChipGenerator{
		llm:    client,
		cache:  cache,
		logger: logger,
		clock:  time.Now,
	}
}

// Chips returns quick-reply chips for the given assistant utterance. Repeat
// requests for the same source within the debounce window return the cached
// result or nothing; only utterances that read as open questions trigger a
// generation call.
func (g *ChipGenerator) Chips(ctx context.Context, source, language string) []string {
	source = strings.TrimSpace(source)
	if source == "" || !LooksLikeOpenQuestion(source) {
		return nil
	}

	cacheKey := language + "|" + source
	if chips, ok := g.cache.Get(cacheKey); ok {
		return chips
	}

	g.mu.Lock()
	now := g.clock()
	if g.lastSource == cacheKey && now.Sub(g.lastAt) < chipDebounce {
		g.mu.Unlock()
		return nil
	}
	g.lastSource = cacheKey
	g.lastAt = now
	g.mu.Unlock()

	v, err, _ := g.group.Do(cacheKey, func() (interface{}, error) {
		if chips, ok := g.cache.Get(cacheKey); ok {
			return chips, nil
		}
		reply, err := g.llm.Complete(ctx, llm.Request{
			System: "Given an assistant message from a medical chat, produce up to 4 very short " +
				"replies a patient might tap, in language '" + language + "'. " +
				"Return them as a JSON array of strings, nothing else.",
			User:        source,
			MaxTokens:   chipMaxTokens,
			Temperature: chipTemperature,
		})
		if err != nil {
			return nil, err
		}
		chips := parseChips(reply)
		if len(chips) > 0 {
			g.cache.Add(cacheKey, chips)
		}
		return chips, nil
	})
	if err != nil {
		g.logger.Debug("chip generation failed", "error", err)
		return nil
	}
	chips, _ := v.([]string)
	return chips
}

// LooksLikeOpenQuestion gates chip generation to utterances that invite a
// free-form reply.
func LooksLikeOpenQuestion(text string) bool {
	s := strings.ToLower(text)
	if strings.Contains(s, "?") {
		return true
	}
	for _, m := range []string{"would you like", "do you want", "tell me", "let me know"} {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// parseChips decodes a JSON string array, falling back to line splitting when
// the model ignored the format instruction.
func parseChips(reply string) []string {
	reply = strings.TrimSpace(reply)

	var arr []string
	if err := json.Unmarshal([]byte(reply), &arr); err != nil {
		arr = strings.Split(reply, "\n")
	}

	out := make([]string, 0, chipMaxCount)
	for _, c := range arr {
		chip, ok := sanitizeChip(c)
		if !ok {
			continue
		}
		out = append(out, chip)
		if len(out) == chipMaxCount {
			break
		}
	}
	return out
}

// sanitizeChip rejects anything that looks like leaked formatting rather than
// a tappable phrase.
func sanitizeChip(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"'`)
	s = strings.TrimLeft(s, "-•* \t")
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > chipMaxRunes {
		return "", false
	}
	lower := strings.ToLower(s)
	if strings.ContainsAny(s, "{}[]") || strings.Contains(lower, "json") {
		return "", false
	}
	return s, true
}
