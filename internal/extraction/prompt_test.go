package extraction_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"agrofin/internal/extraction"
)

func TestBuildPrompt_EmbedsTextVerbatim(t *testing.T) {
	text := "NOTA FISCAL Nº 123\n  Fertilizante NPK 20-05-20 ... R$ 1.234,50\n\tCNPJ: 12.345.678/0001-90"

	prompt := extraction.BuildPrompt(text)

	assert.Contains(t, prompt, text)
	assert.Equal(t, 1, strings.Count(prompt, text))
}

func TestBuildPrompt_DeclaresContract(t *testing.T) {
	prompt := extraction.BuildPrompt("texto")

	for _, key := range []string{
		extraction.KeyInvoiceNumber,
		extraction.KeyIssueDate,
		extraction.KeyDescription,
		extraction.KeyTotalAmount,
		extraction.KeySupplier,
		extraction.KeyLegalName,
		extraction.KeyTradeName,
		extraction.KeyTaxID,
		extraction.KeyBilledParty,
		extraction.KeyFullName,
		extraction.KeyDocumentID,
		extraction.KeyInstallments,
		extraction.KeyInstallmentNumber,
		extraction.KeyDueDate,
		extraction.KeyInstallmentAmount,
		extraction.KeyInstallmentCount,
		extraction.KeyConfidence,
		extraction.KeyNotes,
	} {
		assert.Contains(t, prompt, `"`+key+`"`, "prompt should declare key %s", key)
	}
}

func TestBuildPrompt_FormatRules(t *testing.T) {
	prompt := extraction.BuildPrompt("")

	assert.Contains(t, prompt, "YYYY-MM-DD")
	assert.Contains(t, prompt, "XX.XXX.XXX/XXXX-XX")
	assert.Contains(t, prompt, "XXX.XXX.XXX-XX")
	assert.Contains(t, prompt, "2 casas decimais")
	assert.Contains(t, prompt, "liste TODAS")
	assert.Contains(t, prompt, "use a data de emissão da nota como data_vencimento")
	assert.Contains(t, prompt, extraction.NotFoundMarker)
	assert.Contains(t, prompt, "Retorne APENAS o JSON")
}

func TestBuildPrompt_Deterministic(t *testing.T) {
	assert.Equal(t, extraction.BuildPrompt("abc"), extraction.BuildPrompt("abc"))
}
