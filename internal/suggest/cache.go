package suggest

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"carebook-chatbot/internal/llm"
	"carebook-chatbot/pkg"
	"carebook-chatbot/pkg/logging"
)

// DefaultCacheSize bounds the suggestion memo; entries are evicted LRU.
const DefaultCacheSize = 60

// Request carries everything that affects a suggestion's correctness; every
// field is folded into the cache key.
type Request struct {
	Language string
	Risk     pkg.RiskContext
	RxDigest string
	Message  string
}

// Suggester wraps the text-generation service with a prompt template,
// allow-list validation, and a bounded LRU memo. At most one call is in
// flight per composite key; concurrent callers share the result.
type Suggester struct {
	llm    llm.Client
	cache  *lru.Cache[string, pkg.SpecialtySuggestion]
	group  singleflight.Group
	logger *logging.Logger
}

// NewSuggester wires a suggestion cache around the supplied client.
func NewSuggester(client llm.Client, cacheSize int, logger *logging.Logger) *Suggester {
	if client == nil {
		panic("suggest: llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, err := lru.New[string, pkg.SpecialtySuggestion](cacheSize)
	if err != nil {
		panic(fmt.Sprintf("suggest: lru init: %v", err))
	}
	return &Suggester{llm: client, cache: cache, logger: logger}
}

// Suggest answers the patient's message and proposes a specialty. A cache hit
// short-circuits the network call entirely; a model reply whose specialty
// code fails validation still caches (and returns) the informational answer
// with an empty key.
func (s *Suggester) Suggest(ctx context.Context, req Request) (pkg.SpecialtySuggestion, error) {
	key := CacheKey(req)
	if v, ok := s.cache.Get(key); ok {
		return v, nil
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		if v, ok := s.cache.Get(key); ok {
			return v, nil
		}
		reply, err := s.llm.Complete(ctx, buildPrompt(req))
		if err != nil {
			return pkg.SpecialtySuggestion{}, fmt.Errorf("suggest: %w", err)
		}
		sug := parseReply(reply)
		s.cache.Add(key, sug)
		return sug, nil
	})
	if err != nil {
		return pkg.SpecialtySuggestion{}, err
	}
	return v.(pkg.SpecialtySuggestion), nil
}

// CacheKey builds the composite memo key. Every component that changes the
// correct answer is present; the message keeps only outer whitespace trimmed
// so distinct questions stay distinct.
func CacheKey(req Request) string {
	return strings.Join([]string{
		req.Language,
		req.Risk.RiskLevel,
		req.Risk.Category,
		hashString(strings.Join(req.Risk.TopPredictedItems, ",")),
		hashString(labsDigest(req.Risk.LastLabs)),
		hashString(req.RxDigest),
		hashString(strings.Join(specialtyOrder, ",")),
		strings.TrimSpace(req.Message),
	}, "|")
}

func hashString(s string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return fmt.Sprintf("%08x", h.Sum32())
}
