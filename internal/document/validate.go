package document

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// StructureValidator rejects documents whose container structure is broken
// before any text decoding is attempted.
type StructureValidator interface {
	Validate(data []byte) error
}

type PDFValidator struct {
	conf *model.Configuration
}

func NewPDFValidator() *PDFValidator {
	api.DisableConfigDir()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PDFValidator{conf: conf}
}

func (v *PDFValidator) Validate(data []byte) error {
	if err := api.Validate(bytes.NewReader(data), v.conf); err != nil {
		return fmt.Errorf("pdf structure invalid: %w", err)
	}
	return nil
}
