package classifier

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"agrofin/internal/extraction"
)

const (
	// Threshold is the exclusive lower bound a score must exceed to be kept.
	Threshold = 0.15
	// MaxClassifications caps the number of categories assigned to a record.
	MaxClassifications = 3

	FallbackCategory    = CategoryAdministrative
	FallbackConfidence  = 0.2
	FallbackDescription = "Classificação automática - Revisar manualmente"

	automaticSuffix  = "Classificação automática"
	describedMatches = 3
)

var fullPercentage = decimal.New(10000, -2)

// ScoreFunc scores folded text against folded keywords.
type ScoreFunc func(fullText, description string, keywords []string) Detail

// Option configures a Classifier.
type Option func(*Classifier)

// WithRules replaces the default rule table.
func WithRules(rules []Rule) Option {
	return func(c *Classifier) {
		c.rules = rules
	}
}

// WithScoreFunc replaces the keyword scorer.
func WithScoreFunc(fn ScoreFunc) Option {
	return func(c *Classifier) {
		c.score = fn
	}
}

// WithLogger emits per-category scores at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(c *Classifier) {
		c.log = l
	}
}

// Classifier assigns expense categories to extracted records. It holds only
// immutable state and is safe for concurrent use.
type Classifier struct {
	rules []Rule
	score ScoreFunc
	log   *zap.Logger
}

// New returns a Classifier using the default rule table unless overridden.
func New(opts ...Option) Classifier {
	c := Classifier{
		rules: defaultRules,
		score: scoreFolded,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	c.rules = foldRules(c.rules)
	return c
}

// Classify returns a copy of rec with Classifications set. The result always
// holds between one and MaxClassifications entries sorted by descending
// confidence. When nothing scores above Threshold a single fallback entry
// flagged for review is assigned.
func (c Classifier) Classify(rec *extraction.Record, fullText string) *extraction.Record {
	if rec == nil {
		return nil
	}
	text := fold(fullText)
	desc := fold(rec.Description)

	var out []extraction.Classification
	for _, rule := range c.rules {
		d := c.score(text, desc, rule.Keywords)
		c.log.Debug("classifier.Classify: scored category",
			zap.String("category", rule.Category),
			zap.Float64("confidence", d.Score),
			zap.Int("in_description", d.InDescription),
			zap.Int("in_text", d.InText),
			zap.Float64("penalty", d.Penalty),
		)
		if d.Score <= Threshold {
			continue
		}
		out = append(out, extraction.Classification{
			Category:    rule.Category,
			Description: describe(rule.Category, d.Matched),
			Percentage:  fullPercentage,
			Confidence:  d.Score,
		})
	}

	if len(out) == 0 {
		out = append(out, Fallback())
	}

	slices.SortStableFunc(out, func(a, b extraction.Classification) int {
		return cmp.Compare(b.Confidence, a.Confidence)
	})
	if len(out) > MaxClassifications {
		out = out[:MaxClassifications]
	}

	result := *rec
	result.Classifications = out
	return &result
}

// Fallback is the classification assigned when no category matches.
func Fallback() extraction.Classification {
	return extraction.Classification{
		Category:    FallbackCategory,
		Description: FallbackDescription,
		Percentage:  fullPercentage,
		Confidence:  FallbackConfidence,
		NeedsReview: true,
	}
}

func describe(category string, matched []string) string {
	if len(matched) == 0 {
		return fmt.Sprintf("%s - %s", category, automaticSuffix)
	}
	if len(matched) > describedMatches {
		matched = matched[:describedMatches]
	}
	return fmt.Sprintf("%s - %s", category, strings.Join(matched, ", "))
}

func foldRules(rules []Rule) []Rule {
	out := cloneRules(rules)
	for i := range out {
		for j, kw := range out[i].Keywords {
			out[i].Keywords[j] = fold(kw)
		}
		out[i].Keywords = dedupe(out[i].Keywords)
	}
	return out
}
