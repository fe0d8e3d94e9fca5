package classify

import (
	"context"
	"strings"
	"sync"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/eventscope/pkg/domain"
)

// tier1Threshold is the confidence at which tier-1 results short-circuit
// the remaining tiers
const tier1Threshold = 0.85

// llmConfidence is assigned to every tier-3 result regardless of the model's
// own certainty, a deliberate simplification
const llmConfidence = 0.75

// LLMClassifier is the tier-3 capability, a model call that types ambiguous input
type LLMClassifier interface {
	ClassifyInput(ctx context.Context, rawInput string) (domain.InputType, error)
}

// Classifier routes raw input through three classification tiers: regex
// heuristics, a declared-but-unimplemented statistical tier, and an LLM
// fallback for ambiguous cases
type Classifier struct {
	llm            LLMClassifier
	useLLMFallback bool

	mu    sync.Mutex
	stats Stats
}

// Stats holds per-instance classification counters
type Stats struct {
	Tier1Hits int `json:"tier1_hits"`
	Tier2Hits int `json:"tier2_hits"`
	Tier3Hits int `json:"tier3_hits"`
	Total     int `json:"total_classifications"`
}

// New creates a classifier; llm may be nil, which disables the tier-3 fallback
func New(llm LLMClassifier) *Classifier {
	return &Classifier{llm: llm, useLLMFallback: llm != nil}
}

// Classify runs the tiered classification. Tier-1 results with confidence at
// or above the threshold return immediately; otherwise the LLM fallback is
// consulted when available. Tier-3 failures degrade to the tier-1 best-effort
// result and are never surfaced as hard errors.
func (c *Classifier) Classify(ctx context.Context, rawInput string) domain.ClassifiedInput {
	c.mu.Lock()
	c.stats.Total++
	c.mu.Unlock()

	tier1 := c.tier1(rawInput)
	if tier1.Confidence >= tier1Threshold {
		c.mu.Lock()
		c.stats.Tier1Hits++
		c.mu.Unlock()
		lgr.Printf("[DEBUG] tier-1 classification: %s (%.2f)", tier1.Type, tier1.Confidence)
		return tier1
	}

	// tier-2 statistical classifier is an extension point with the same
	// contract as tiers 1 and 3; not implemented yet

	if !c.useLLMFallback {
		return tier1
	}

	inputType, err := c.llm.ClassifyInput(ctx, tier1.RawInput)
	if err != nil {
		lgr.Printf("[WARN] tier-3 classification failed, using tier-1 result: %v", err)
		tier1.Reasoning = "llm classification failed: " + err.Error() + "; tier-1 best effort"
		return tier1
	}

	c.mu.Lock()
	c.stats.Tier3Hits++
	c.mu.Unlock()

	result := domain.ClassifiedInput{
		RawInput:   tier1.RawInput,
		Type:       inputType,
		Confidence: llmConfidence,
		Method:     domain.MethodTier3LLM,
		Reasoning:  "complex case requiring LLM analysis",
	}
	lgr.Printf("[DEBUG] tier-3 classification: %s", result.Type)
	return result
}

// tier1 applies regex heuristics; it never returns "unknown", defaulting to
// text at flat 0.5 confidence when no pattern matches
func (c *Classifier) tier1(rawInput string) domain.ClassifiedInput {
	trimmed := strings.TrimSpace(rawInput)

	if isURL(trimmed) {
		return domain.ClassifiedInput{
			RawInput:   trimmed,
			Type:       domain.InputURL,
			Confidence: urlConfidence(trimmed),
			Method:     domain.MethodTier1Regex,
			Reasoning:  "URL pattern detected",
		}
	}

	if isEmail(trimmed) {
		return domain.ClassifiedInput{
			RawInput:   trimmed,
			Type:       domain.InputEmail,
			Confidence: emailConfidence(trimmed),
			Method:     domain.MethodTier1Regex,
			Reasoning:  "email pattern detected",
		}
	}

	if eventPatternCount(trimmed) >= 2 {
		return domain.ClassifiedInput{
			RawInput:   trimmed,
			Type:       domain.InputText,
			Confidence: textConfidence(trimmed),
			Method:     domain.MethodTier1Regex,
			Reasoning:  "event keywords and patterns detected",
		}
	}

	return domain.ClassifiedInput{
		RawInput:   trimmed,
		Type:       domain.InputText,
		Confidence: 0.5,
		Method:     domain.MethodTier1Default,
		Reasoning:  "no clear pattern detected, defaulting to text",
	}
}

// GetStats returns a snapshot of the classification counters
func (c *Classifier) GetStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
