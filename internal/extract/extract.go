// Package extract pulls invoice fields out of free text.
//
// Every field has its own matcher. Matchers share nothing and run over the
// same input, so the result for one field never depends on another.
package extract

import (
	"regexp"
	"strings"

	"github.com/fhiba/2025Q2-G4/internal/domain/invoiceModel"
)

// Matcher finds at most one value for a field.
type Matcher struct {
	Field string
	Match func(text string) (string, bool)
}

var (
	totalPattern  = regexp.MustCompile(`(?i)(total|importe)\D+([\d.,]+)`)
	datePattern   = regexp.MustCompile(`(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})`)
	taxIDPattern  = regexp.MustCompile(`(?i)(?:CUIT|C.U.I.T)\D*(\d{2}-\d{8}-\d)`)
	vendorPattern = regexp.MustCompile(`(?i)(?:razón social|proveedor|empresa):?\s*([A-ZÁÉÍÓÚÑ ]+)`)
)

var matchers = []Matcher{
	{Field: invoiceModel.FieldTotal, Match: matchTotal},
	{Field: invoiceModel.FieldDate, Match: submatch(datePattern, 1)},
	{Field: invoiceModel.FieldTaxID, Match: submatch(taxIDPattern, 1)},
	{Field: invoiceModel.FieldVendor, Match: matchVendor},
}

// Matchers returns the field matchers in a fresh slice.
func Matchers() []Matcher {
	return append([]Matcher(nil), matchers...)
}

// Extract never fails. Fields with no match are absent from the result.
func Extract(text string) map[string]string {
	return ExtractWith(matchers, text)
}

func ExtractWith(ms []Matcher, text string) map[string]string {
	fields := make(map[string]string, len(ms))
	for _, m := range ms {
		if v, ok := m.Match(text); ok {
			fields[m.Field] = v
		}
	}
	return fields
}

// Typed converts extracted strings into field values. Only the total is
// numeric, and it stays text when it is not a valid decimal.
func Typed(fields map[string]string) map[string]invoiceModel.FieldValue {
	out := make(map[string]invoiceModel.FieldValue, len(fields))
	for k, v := range fields {
		if k == invoiceModel.FieldTotal {
			out[k] = invoiceModel.ParseNumeric(v)
			continue
		}
		out[k] = invoiceModel.TextValue(v)
	}
	return out
}

func submatch(re *regexp.Regexp, group int) func(string) (string, bool) {
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		return m[group], true
	}
}

// only the first comma becomes a dot, "1.234,56" gives "1.234.56"
func matchTotal(text string) (string, bool) {
	m := totalPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	return strings.Replace(m[2], ",", ".", 1), true
}

func matchVendor(text string) (string, bool) {
	m := vendorPattern.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	return v, v != ""
}
