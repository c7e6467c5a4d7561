package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dslipak/pdf"
	"github.com/lu4p/cat"

	"github.com/fhiba/2025Q2-G4/internal/config"
)

// PageDecoder turns raw document bytes into page texts, in page order.
type PageDecoder interface {
	Decode(ctx context.Context, data []byte) ([]string, error)
}

var errPageTimeout = errors.New("page extraction timed out")

type PDFDecoder struct {
	PageTimeout time.Duration
}

func NewPDFDecoder(pageTimeout time.Duration) *PDFDecoder {
	if pageTimeout <= 0 {
		pageTimeout = config.PageDecodeTimeout
	}
	return &PDFDecoder{PageTimeout: pageTimeout}
}

func (d *PDFDecoder) Decode(ctx context.Context, data []byte) (pages []string, err error) {
	// the pdf package panics on some broken inputs
	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("failed to parse pdf: %v", r)
		}
	}()

	f, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to open pdf: %w", err)
	}

	numPages := f.NumPage()
	pages = make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		page := f.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		content, err := d.protectExtract(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		pages = append(pages, content)
	}
	return pages, nil
}

func (d *PDFDecoder) protectExtract(ctx context.Context, page pdf.Page) (string, error) {
	type result struct {
		content string
		err     error
	}
	resChan := make(chan result, 1)

	// GetPlainText cannot be interrupted; on timeout the goroutine is left to
	// finish on its own and its result is dropped.
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resChan <- result{err: fmt.Errorf("%v", r)}
			}
		}()
		content, err := page.GetPlainText(nil)
		resChan <- result{content, err}
	}()

	timer := time.NewTimer(d.PageTimeout)
	defer timer.Stop()
	select {
	case r := <-resChan:
		return r.content, r.err
	case <-timer.C:
		return "", errPageTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// OfficeDecoder handles .docx, .odt, .rtf and plain text as a single page.
type OfficeDecoder struct{}

func (OfficeDecoder) Decode(ctx context.Context, data []byte) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text, err := cat.FromBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to extract document text: %w", err)
	}
	return []string{text}, nil
}
