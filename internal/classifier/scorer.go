package classifier

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Scoring weights.
const (
	descriptionWeight   = 3
	multiMatchBoost     = 1.2
	descriptionBoost    = 1.5
	fiscalTextOnlyScale = 0.1
	fiscalProductScale  = 0.2
)

// Detail is the breakdown of a single score computation.
type Detail struct {
	InDescription int
	InText        int
	// Weighted counts description matches three times. Diagnostic only.
	Weighted int
	// Matched lists matched keywords in rule order.
	Matched []string
	// Unpenalized is the score before the fiscal penalty and the cap.
	Unpenalized float64
	// Penalty is the fiscal multiplier applied, 1 when none.
	Penalty float64
	Score   float64
}

// Score returns the confidence in [0, 1] that keywords describe the document.
func Score(fullText, description string, keywords []string) float64 {
	return ScoreDetail(fullText, description, keywords).Score
}

// ScoreDetail is Score with the intermediate counts exposed.
func ScoreDetail(fullText, description string, keywords []string) Detail {
	folded := make([]string, len(keywords))
	for i, kw := range keywords {
		folded[i] = fold(kw)
	}
	return scoreFolded(fold(fullText), fold(description), folded)
}

// fold normalizes text for case-insensitive substring matching.
func fold(s string) string {
	return strings.ToLower(norm.NFC.String(s))
}

// scoreFolded expects all inputs already passed through fold.
func scoreFolded(text, desc string, keywords []string) Detail {
	d := Detail{Penalty: 1}
	for _, kw := range keywords {
		switch {
		case strings.Contains(desc, kw):
			d.InDescription++
		case strings.Contains(text, kw):
			d.InText++
		default:
			continue
		}
		d.Matched = append(d.Matched, kw)
	}
	d.Weighted = descriptionWeight*d.InDescription + d.InText

	total := d.InDescription + d.InText
	if total == 0 {
		return d
	}

	base := float64(total) / float64(len(keywords))
	if total > 1 {
		base *= multiMatchBoost
	}
	if d.InDescription > 0 {
		base *= descriptionBoost
	}
	d.Unpenalized = base

	if isFiscal(keywords) {
		switch {
		case d.InDescription == 0:
			d.Penalty = fiscalTextOnlyScale
		case describesProducts(desc):
			d.Penalty = fiscalProductScale
		}
	}

	d.Score = min(base*d.Penalty, 1.0)
	return d
}

func isFiscal(keywords []string) bool {
	for _, kw := range keywords {
		for _, f := range fiscalKeywords {
			if kw == f {
				return true
			}
		}
	}
	return false
}

func describesProducts(desc string) bool {
	for _, ind := range productIndicators {
		if strings.Contains(desc, ind) {
			return true
		}
	}
	return false
}
