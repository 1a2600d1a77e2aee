package extraction

import (
	"errors"
	"strconv"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const payloadSchemaURL = "payload.json"

// payloadSchemaText describes the shape of a model response. Presence of
// required fields is checked separately so the error can name the field.
const payloadSchemaText = `{
  "type": "object",
  "properties": {
    "numero_nota_fiscal": {"type": ["string", "number", "null"]},
    "data_emissao": {"type": "string"},
    "descricao_produtos": {"type": "string"},
    "valor_total": {"type": ["string", "number"]},
    "fornecedor": {
      "type": "object",
      "properties": {
        "razao_social": {"type": ["string", "null"]},
        "nome_fantasia": {"type": ["string", "null"]},
        "cnpj": {"type": ["string", "null"]}
      }
    },
    "faturado": {
      "type": ["object", "null"],
      "properties": {
        "nome_completo": {"type": ["string", "null"]},
        "cpf": {"type": ["string", "null"]}
      }
    },
    "parcelas": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "numero_parcela": {"type": ["integer", "string", "null"]},
          "data_vencimento": {"type": ["string", "null"]},
          "valor_parcela": {"type": ["string", "number", "null"]}
        }
      }
    },
    "quantidade_parcelas": {"type": ["integer", "string", "null"]},
    "confianca_geral": {"type": ["number", "string", "null"]},
    "observacoes_ia": {"type": ["string", "null"]}
  }
}`

var payloadSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(payloadSchemaURL, strings.NewReader(payloadSchemaText)); err != nil {
		panic("extraction: add payload schema: " + err.Error())
	}
	schema, err := compiler.Compile(payloadSchemaURL)
	if err != nil {
		panic("extraction: compile payload schema: " + err.Error())
	}
	return schema
}

// checkShape validates p against the payload schema and reports the first
// leaf violation as an InvalidExtractionError.
func checkShape(p Payload) error {
	err := payloadSchema.Validate(map[string]any(p))
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return invalid("$", nil, err.Error())
	}
	leaf := verr
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	field := pointerToPath(leaf.InstanceLocation)
	return invalid(field, lookupPointer(p, leaf.InstanceLocation), leaf.Message)
}

// pointerToPath turns "/parcelas/0/valor_parcela" into "parcelas[0].valor_parcela".
func pointerToPath(ptr string) string {
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return "$"
	}
	var b strings.Builder
	for i, tok := range strings.Split(ptr, "/") {
		tok = unescapePointer(tok)
		if _, err := strconv.Atoi(tok); err == nil {
			b.WriteString("[" + tok + "]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(tok)
	}
	return b.String()
}

func lookupPointer(p Payload, ptr string) any {
	var cur any = map[string]any(p)
	ptr = strings.TrimPrefix(ptr, "/")
	if ptr == "" {
		return nil
	}
	for _, tok := range strings.Split(ptr, "/") {
		tok = unescapePointer(tok)
		switch node := cur.(type) {
		case map[string]any:
			cur = node[tok]
		case []any:
			i, err := strconv.Atoi(tok)
			if err != nil || i < 0 || i >= len(node) {
				return nil
			}
			cur = node[i]
		default:
			return nil
		}
	}
	return cur
}

func unescapePointer(tok string) string {
	return strings.ReplaceAll(strings.ReplaceAll(tok, "~1", "/"), "~0", "~")
}
