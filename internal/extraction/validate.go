package extraction

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	taxIDPattern      = regexp.MustCompile(`^\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}$`)
	documentIDPattern = regexp.MustCompile(`^\d{3}\.\d{3}\.\d{3}-\d{2}$`)
)

// ValidTaxID reports whether s is a CNPJ in canonical NN.NNN.NNN/NNNN-NN form.
// Check digits are not verified.
func ValidTaxID(s string) bool {
	return taxIDPattern.MatchString(s)
}

// ValidDocumentID reports whether s is a CPF in canonical NNN.NNN.NNN-NN form.
func ValidDocumentID(s string) bool {
	return documentIDPattern.MatchString(s)
}

var requiredTopLevel = []string{
	KeyIssueDate,
	KeyDescription,
	KeyTotalAmount,
	KeySupplier,
	KeyInstallments,
}

// Validator converts decoded payloads into records.
type Validator struct {
	// StrictInstallmentCount rejects payloads whose declared installment
	// count differs from the number of listed installments. When false the
	// mismatch is recorded as a warning.
	StrictInstallmentCount bool
}

// Validate runs the default, non-strict Validator.
func Validate(p Payload) (*Record, error) {
	return Validator{}.Validate(p)
}

// Validate checks p and returns the normalized record. Errors are always
// *InvalidExtractionError.
func (v Validator) Validate(p Payload) (*Record, error) {
	if p == nil {
		return nil, invalid("$", nil, "payload is empty")
	}
	for _, key := range requiredTopLevel {
		if absent(p[key]) {
			return nil, missing(key)
		}
	}
	if err := checkShape(p); err != nil {
		return nil, err
	}

	rec := &Record{Classifications: []Classification{}}

	issue, err := parseDateField(KeyIssueDate, p[KeyIssueDate])
	if err != nil {
		return nil, err
	}
	rec.IssueDate = issue
	rec.InvoiceNumber = optionalString(p[KeyInvoiceNumber])
	rec.Description = strings.TrimSpace(p[KeyDescription].(string))

	if rec.TotalAmount, err = parseAmount(KeyTotalAmount, p[KeyTotalAmount]); err != nil {
		return nil, err
	}

	supplier, err := parseSupplier(p[KeySupplier].(map[string]any))
	if err != nil {
		return nil, err
	}
	rec.Supplier = supplier

	if rec.BilledParty, err = parseBilledParty(p[KeyBilledParty]); err != nil {
		return nil, err
	}

	if rec.Installments, err = parseInstallments(p[KeyInstallments].([]any), issue); err != nil {
		return nil, err
	}

	if err := v.applyInstallmentCount(rec, p[KeyInstallmentCount]); err != nil {
		return nil, err
	}

	if sum := sumInstallments(rec.Installments); !sum.Equal(rec.TotalAmount) {
		rec.Warnings = append(rec.Warnings, fmt.Sprintf(
			"installment amounts sum to %s but total is %s", sum.StringFixed(2), rec.TotalAmount.StringFixed(2)))
	}

	if rec.OverallConfidence, err = parseConfidence(p[KeyConfidence]); err != nil {
		return nil, err
	}
	rec.Notes = optionalText(p[KeyNotes])

	return rec, nil
}

func parseSupplier(obj map[string]any) (Supplier, error) {
	legal := requiredString(obj[KeyLegalName])
	if legal == "" {
		return Supplier{}, missing(KeySupplier + "." + KeyLegalName)
	}
	taxID := requiredString(obj[KeyTaxID])
	if taxID == "" {
		return Supplier{}, missing(KeySupplier + "." + KeyTaxID)
	}
	if !ValidTaxID(taxID) {
		return Supplier{}, invalid(KeySupplier+"."+KeyTaxID, taxID, "expected format NN.NNN.NNN/NNNN-NN")
	}
	return Supplier{
		LegalName: legal,
		TradeName: optionalString(obj[KeyTradeName]),
		TaxID:     taxID,
	}, nil
}

func parseBilledParty(raw any) (*BilledParty, error) {
	obj, ok := raw.(map[string]any)
	if !ok || obj == nil {
		return nil, nil
	}
	name := requiredString(obj[KeyFullName])
	if name == "" {
		return nil, missing(KeyBilledParty + "." + KeyFullName)
	}
	docID := requiredString(obj[KeyDocumentID])
	if docID == "" {
		return nil, missing(KeyBilledParty + "." + KeyDocumentID)
	}
	if !ValidDocumentID(docID) {
		return nil, invalid(KeyBilledParty+"."+KeyDocumentID, docID, "expected format NNN.NNN.NNN-NN")
	}
	return &BilledParty{FullName: name, DocumentID: docID}, nil
}

func parseInstallments(items []any, issue Date) ([]Installment, error) {
	if len(items) == 0 {
		return nil, invalid(KeyInstallments, nil, "at least one installment is required")
	}
	out := make([]Installment, 0, len(items))
	for i, item := range items {
		obj := item.(map[string]any)
		path := fmt.Sprintf("%s[%d]", KeyInstallments, i)

		inst := Installment{Number: i + 1}
		if raw := obj[KeyInstallmentNumber]; !absent(raw) {
			n, err := parseInt(path+"."+KeyInstallmentNumber, raw)
			if err != nil {
				return nil, err
			}
			if n < 1 {
				return nil, invalid(path+"."+KeyInstallmentNumber, raw, "must be at least 1")
			}
			inst.Number = n
		}

		switch raw := obj[KeyDueDate]; {
		case !absent(raw):
			due, err := parseDateField(path+"."+KeyDueDate, raw)
			if err != nil {
				return nil, err
			}
			inst.DueDate = due
		case len(items) == 1:
			inst.DueDate = issue
		default:
			return nil, missing(path + "." + KeyDueDate)
		}

		if absent(obj[KeyInstallmentAmount]) {
			return nil, missing(path + "." + KeyInstallmentAmount)
		}
		amount, err := parseAmount(path+"."+KeyInstallmentAmount, obj[KeyInstallmentAmount])
		if err != nil {
			return nil, err
		}
		inst.Amount = amount
		out = append(out, inst)
	}
	return out, nil
}

func (v Validator) applyInstallmentCount(rec *Record, raw any) error {
	listed := len(rec.Installments)
	if absent(raw) {
		rec.InstallmentCount = listed
		return nil
	}
	n, err := parseInt(KeyInstallmentCount, raw)
	if err != nil {
		return err
	}
	if n < 1 {
		return invalid(KeyInstallmentCount, raw, "must be at least 1")
	}
	rec.InstallmentCount = n
	if n != listed {
		msg := fmt.Sprintf("declared %d installments but %d were listed", n, listed)
		if v.StrictInstallmentCount {
			return invalid(KeyInstallmentCount, raw, msg)
		}
		rec.Warnings = append(rec.Warnings, msg)
	}
	return nil
}

func sumInstallments(items []Installment) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(it.Amount)
	}
	return sum
}

func parseDateField(field string, raw any) (Date, error) {
	s, ok := raw.(string)
	if !ok {
		return Date{}, invalid(field, raw, "date must be a string")
	}
	d, err := ParseDate(s)
	if err != nil {
		return Date{}, invalid(field, raw, "expected date in YYYY-MM-DD format")
	}
	return d, nil
}

var (
	plainAmount     = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
	decimalComma    = regexp.MustCompile(`^-?\d+,\d+$`)
	groupedDotComma = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})+(,\d+)?$`)
	groupedCommaDot = regexp.MustCompile(`^-?\d{1,3}(,\d{3})+(\.\d+)?$`)
)

// normalizeAmount rewrites a numeric string in either pt-BR (1.234,56) or
// en-US (1,234.56) notation to a plain decimal. The last separator is the
// decimal one; thousands groups must have three digits. A single dot is a
// decimal point and a single comma a decimal comma.
func normalizeAmount(s string) (string, bool) {
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	s = strings.ReplaceAll(s, " ", "")
	switch {
	case plainAmount.MatchString(s):
		return s, true
	case decimalComma.MatchString(s):
		return strings.Replace(s, ",", ".", 1), true
	case groupedDotComma.MatchString(s):
		return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1), true
	case groupedCommaDot.MatchString(s):
		return strings.ReplaceAll(s, ",", ""), true
	}
	return "", false
}

// parseAmount accepts JSON number literals and numeric strings in pt-BR or
// en-US notation with an optional R$ prefix. The result is rounded to
// cents and must still be greater than zero.
func parseAmount(field string, raw any) (decimal.Decimal, error) {
	var s string
	switch v := raw.(type) {
	case json.Number:
		s = v.String()
	case string:
		norm, ok := normalizeAmount(v)
		if !ok {
			return decimal.Zero, invalid(field, raw, "not a decimal amount")
		}
		s = norm
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		s = strconv.Itoa(v)
	default:
		return decimal.Zero, invalid(field, raw, "amount must be a number or numeric string")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, invalid(field, raw, "not a decimal amount")
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, invalid(field, raw, "amount must be at least 0.01")
	}
	return d, nil
}

func parseInt(field string, raw any) (int, error) {
	var s string
	switch v := raw.(type) {
	case json.Number:
		s = v.String()
	case string:
		s = strings.TrimSpace(v)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return v, nil
	default:
		return 0, invalid(field, raw, "expected an integer")
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsInteger() {
		return 0, invalid(field, raw, "expected an integer")
	}
	return int(d.IntPart()), nil
}

// parseConfidence clamps the model's self-reported confidence to [0, 1].
func parseConfidence(raw any) (float64, error) {
	if absent(raw) {
		return 0, nil
	}
	var (
		f   float64
		err error
	)
	switch v := raw.(type) {
	case json.Number:
		f, err = v.Float64()
	case string:
		f, err = strconv.ParseFloat(strings.TrimSpace(v), 64)
	case float64:
		f = v
	default:
		return 0, invalid(KeyConfidence, raw, "expected a number")
	}
	if err != nil {
		return 0, invalid(KeyConfidence, raw, "expected a number")
	}
	if math.IsNaN(f) {
		return 0, nil
	}
	return math.Max(0, math.Min(1, f)), nil
}

// absent treats null, blank strings and the not-found marker as missing.
func absent(raw any) bool {
	switch v := raw.(type) {
	case nil:
		return true
	case string:
		return requiredString(v) == ""
	}
	return false
}

func requiredString(raw any) string {
	s, ok := raw.(string)
	if !ok {
		return ""
	}
	s = strings.TrimSpace(s)
	if isNotFound(s) {
		return ""
	}
	return s
}

func optionalString(raw any) *string {
	var s string
	switch v := raw.(type) {
	case string:
		s = requiredString(v)
	case json.Number:
		s = v.String()
	}
	if s == "" {
		return nil
	}
	return &s
}

// optionalText keeps free text verbatim, including not-found markers.
func optionalText(raw any) *string {
	s, ok := raw.(string)
	if !ok {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// isNotFound reports whether s is the not-found marker itself, ignoring case
// and trailing punctuation. Text that merely mentions it is a real value.
func isNotFound(s string) bool {
	u := strings.TrimRight(strings.ToUpper(strings.TrimSpace(s)), ".:;!- ")
	return u == NotFoundMarker
}
