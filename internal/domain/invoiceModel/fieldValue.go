package invoiceModel

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// FieldValue is either free text or an exact decimal. The zero value is
// empty text.
type FieldValue struct {
	text string
	num  *apd.Decimal
}

func TextValue(s string) FieldValue {
	return FieldValue{text: s}
}

func DecimalValue(d *apd.Decimal) FieldValue {
	var c apd.Decimal
	c.Set(d)
	return FieldValue{num: &c}
}

// ParseNumeric keeps s as an exact decimal when it is one and falls back to
// the literal text otherwise. NaN and infinities stay text.
func ParseNumeric(s string) FieldValue {
	d, _, err := apd.NewFromString(s)
	if err != nil || d.Form != apd.Finite {
		return TextValue(s)
	}
	return FieldValue{num: d}
}

func (v FieldValue) IsDecimal() bool {
	return v.num != nil
}

// Decimal returns a copy of the decimal value.
func (v FieldValue) Decimal() (*apd.Decimal, bool) {
	if v.num == nil {
		return nil, false
	}
	var c apd.Decimal
	c.Set(v.num)
	return &c, true
}

// String renders decimals in plain notation without losing digits.
func (v FieldValue) String() string {
	if v.num != nil {
		return v.num.Text('f')
	}
	return v.text
}

func (v FieldValue) Equal(o FieldValue) bool {
	if v.IsDecimal() != o.IsDecimal() {
		return false
	}
	if v.num != nil {
		return v.num.Cmp(o.num) == 0 && v.num.Exponent == o.num.Exponent
	}
	return v.text == o.text
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	if v.num != nil {
		return []byte(v.num.Text('f')), nil
	}
	return json.Marshal(v.text)
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return fmt.Errorf("field value cannot be null")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TextValue(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("field value must be a string or a number: %w", err)
	}
	d, _, err := apd.NewFromString(n.String())
	if err != nil {
		return fmt.Errorf("invalid decimal %q: %w", n.String(), err)
	}
	*v = FieldValue{num: d}
	return nil
}

func FieldsEqual(a, b map[string]FieldValue) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || !av.Equal(bv) {
			return false
		}
	}
	return true
}
