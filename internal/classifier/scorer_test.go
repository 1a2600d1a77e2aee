package classifier_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrofin/internal/classifier"
)

var fertilizerKeywords = []string{"fertilizante", "adubo", "ureia", "herbicida"}

func taxKeywords(t *testing.T) []string {
	t.Helper()
	for _, r := range classifier.Rules() {
		if r.Category == classifier.CategoryTaxes {
			return r.Keywords
		}
	}
	t.Fatal("tax rule not found")
	return nil
}

func TestScore_NoMatches(t *testing.T) {
	d := classifier.ScoreDetail("nada aqui", "nada", fertilizerKeywords)

	assert.Zero(t, d.Score)
	assert.Zero(t, d.InDescription)
	assert.Zero(t, d.InText)
	assert.Empty(t, d.Matched)
}

func TestScore_EmptyKeywords(t *testing.T) {
	assert.Zero(t, classifier.Score("fertilizante", "fertilizante", nil))
}

func TestScore_Deterministic(t *testing.T) {
	full := "NF 123 fertilizante NPK ureia ICMS"
	desc := "compra de adubo"

	first := classifier.Score(full, desc, fertilizerKeywords)
	second := classifier.Score(full, desc, fertilizerKeywords)

	assert.Equal(t, first, second)
	assert.Equal(t, classifier.ScoreDetail(full, desc, fertilizerKeywords), classifier.ScoreDetail(full, desc, fertilizerKeywords))
}

func TestScore_DescriptionWeighting(t *testing.T) {
	desc := "compra de 10 sacas de fertilizante NPK"

	inDesc := classifier.ScoreDetail(desc, desc, fertilizerKeywords)
	assert.Equal(t, 1, inDesc.InDescription)
	assert.Equal(t, 0, inDesc.InText)
	assert.Equal(t, 3, inDesc.Weighted)
	assert.InDelta(t, 0.25*1.5, inDesc.Score, 1e-12)

	textOnly := classifier.ScoreDetail(desc, "compra de 10 sacas", fertilizerKeywords)
	assert.Equal(t, 0, textOnly.InDescription)
	assert.Equal(t, 1, textOnly.InText)
	assert.Equal(t, 1, textOnly.Weighted)
	assert.InDelta(t, 0.25, textOnly.Score, 1e-12)

	assert.Greater(t, inDesc.Score, textOnly.Score)
}

func TestScore_KeywordCountedOnce(t *testing.T) {
	d := classifier.ScoreDetail("adubo", "adubo", fertilizerKeywords)

	assert.Equal(t, 1, d.InDescription)
	assert.Equal(t, 0, d.InText)
	assert.Equal(t, []string{"adubo"}, d.Matched)
}

func TestScore_MultiMatchBoost(t *testing.T) {
	d := classifier.ScoreDetail("fertilizante e ureia", "", fertilizerKeywords)

	assert.Equal(t, 2, d.InText)
	assert.InDelta(t, 0.5*1.2, d.Score, 1e-12)
	assert.Equal(t, []string{"fertilizante", "ureia"}, d.Matched)
}

func TestScore_CappedAtOne(t *testing.T) {
	all := "fertilizante adubo ureia herbicida"
	d := classifier.ScoreDetail(all, all, fertilizerKeywords)

	assert.Greater(t, d.Unpenalized, 1.0)
	assert.Equal(t, 1.0, d.Score)
}

func TestScore_CaseAndNormalization(t *testing.T) {
	decomposed := "O\u0301LEO DIESEL"
	d := classifier.ScoreDetail("", decomposed, []string{"óleo", "diesel"})

	assert.Equal(t, 2, d.InDescription)
}

func TestScore_FiscalSuppression(t *testing.T) {
	keywords := taxKeywords(t)
	desc := "kit parafuso sextavado 10 unidades"
	full := "ICMS 18% IPI 5% " + desc

	d := classifier.ScoreDetail(full, desc, keywords)

	require.Zero(t, d.InDescription)
	require.Greater(t, d.InText, 0)
	assert.Equal(t, 0.1, d.Penalty)
	assert.LessOrEqual(t, d.Score, 0.2*d.Unpenalized)
}

func TestScore_FiscalProductDescription(t *testing.T) {
	keywords := taxKeywords(t)
	desc := "imposto sobre 10 kg de semente"

	d := classifier.ScoreDetail(desc, desc, keywords)

	require.Greater(t, d.InDescription, 0)
	assert.Equal(t, 0.2, d.Penalty)
	assert.InDelta(t, d.Unpenalized*0.2, d.Score, 1e-12)
}

func TestScore_FiscalWithoutProducts(t *testing.T) {
	keywords := taxKeywords(t)
	desc := "guia do iptu"

	d := classifier.ScoreDetail(desc, desc, keywords)

	assert.Equal(t, 1.0, d.Penalty)
	assert.Equal(t, d.Unpenalized, d.Score)
}

func TestScore_NonFiscalNotPenalized(t *testing.T) {
	d := classifier.ScoreDetail("ICMS fertilizante", "", fertilizerKeywords)

	assert.Equal(t, 1.0, d.Penalty)
	assert.InDelta(t, 0.25, d.Score, 1e-12)
}
