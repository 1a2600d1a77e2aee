package extraction

import "strings"

// Payload keys agreed with the model. The contract is in Portuguese because
// the source documents are Brazilian notas fiscais.
const (
	KeyInvoiceNumber     = "numero_nota_fiscal"
	KeyIssueDate         = "data_emissao"
	KeyDescription       = "descricao_produtos"
	KeyTotalAmount       = "valor_total"
	KeySupplier          = "fornecedor"
	KeyLegalName         = "razao_social"
	KeyTradeName         = "nome_fantasia"
	KeyTaxID             = "cnpj"
	KeyBilledParty       = "faturado"
	KeyFullName          = "nome_completo"
	KeyDocumentID        = "cpf"
	KeyInstallments      = "parcelas"
	KeyInstallmentNumber = "numero_parcela"
	KeyDueDate           = "data_vencimento"
	KeyInstallmentAmount = "valor_parcela"
	KeyInstallmentCount  = "quantidade_parcelas"
	KeyConfidence        = "confianca_geral"
	KeyNotes             = "observacoes_ia"
)

// NotFoundMarker is what the model writes in the notes when a required field
// is absent from the document.
const NotFoundMarker = "NÃO ENCONTRADO"

const promptHeader = `Você é um especialista em análise de notas fiscais para um sistema administrativo financeiro agrícola.
Analise a nota fiscal abaixo e extraia OBRIGATORIAMENTE todas as informações solicitadas.

TEXTO DA NOTA FISCAL:
`

const promptContract = `

CAMPOS OBRIGATÓRIOS PARA EXTRAÇÃO:

FORNECEDOR (OBRIGATÓRIO):
- Razão Social (obrigatório)
- Nome Fantasia (opcional)
- CNPJ (obrigatório, formato XX.XXX.XXX/XXXX-XX)

FATURADO (OBRIGATÓRIO se existir na nota):
- Nome completo da pessoa física
- CPF (formato XXX.XXX.XXX-XX)

DADOS DA NOTA FISCAL (OBRIGATÓRIOS):
- Número da nota fiscal
- Data de emissão (formato YYYY-MM-DD)
- Descrição detalhada dos produtos/serviços
- Valor total (decimal com 2 casas)

PARCELAS (OBRIGATÓRIO):
- Quantidade de parcelas (mínimo 1)
- Data de vencimento de cada parcela
- Valor de cada parcela

ESTRUTURA JSON OBRIGATÓRIA:
{
  "numero_nota_fiscal": "string",
  "data_emissao": "YYYY-MM-DD",
  "descricao_produtos": "string detalhada",
  "valor_total": "0.00",
  "fornecedor": {
    "razao_social": "string",
    "nome_fantasia": "string ou null",
    "cnpj": "XX.XXX.XXX/XXXX-XX"
  },
  "faturado": {
    "nome_completo": "string",
    "cpf": "XXX.XXX.XXX-XX"
  } ou null,
  "parcelas": [
    {
      "numero_parcela": 1,
      "data_vencimento": "YYYY-MM-DD",
      "valor_parcela": "0.00"
    }
  ],
  "quantidade_parcelas": 1,
  "confianca_geral": 0.85,
  "observacoes_ia": "observações sobre a extração"
}

INSTRUÇÕES CRÍTICAS:
1. Todos os campos marcados como OBRIGATÓRIO devem ser preenchidos.
2. Se não encontrar um campo obrigatório, escreva "` + NotFoundMarker + `" e o nome do campo em observacoes_ia. Nunca omita o campo em silêncio.
3. Formate datas rigorosamente como YYYY-MM-DD.
4. Formate CNPJ como XX.XXX.XXX/XXXX-XX (com pontos, barra e hífen).
5. Formate CPF como XXX.XXX.XXX-XX (com pontos e hífen).
6. Valores decimais sempre com exatamente 2 casas decimais.
7. Se existirem várias parcelas, liste TODAS, sem resumir nem amostrar. quantidade_parcelas deve ser igual ao número de itens em parcelas.
8. Se houver apenas uma parcela, use a data de emissão da nota como data_vencimento.
9. Seja detalhado na descrição dos produtos.
10. confianca_geral vai de 0 a 1, conforme a clareza e completude dos dados encontrados.

Retorne APENAS o JSON válido, sem texto adicional antes ou depois.`

// BuildPrompt returns the extraction prompt for the given document text. The
// text is embedded verbatim.
func BuildPrompt(sourceText string) string {
	var b strings.Builder
	b.Grow(len(promptHeader) + len(sourceText) + len(promptContract))
	b.WriteString(promptHeader)
	b.WriteString(sourceText)
	b.WriteString(promptContract)
	return b.String()
}
