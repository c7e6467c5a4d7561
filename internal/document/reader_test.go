package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fhiba/2025Q2-G4/internal/domain/invoiceModel"
	"github.com/fhiba/2025Q2-G4/internal/extract"
)

type mockFetcher struct {
	OnFetch func(ctx context.Context, bucket, key string) ([]byte, error)
}

func (m *mockFetcher) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	return m.OnFetch(ctx, bucket, key)
}

func bytesFetcher(data []byte) *mockFetcher {
	return &mockFetcher{OnFetch: func(ctx context.Context, bucket, key string) ([]byte, error) {
		return data, nil
	}}
}

type mockDecoder struct {
	calls    int
	OnDecode func(ctx context.Context, data []byte) ([]string, error)
}

func (m *mockDecoder) Decode(ctx context.Context, data []byte) ([]string, error) {
	m.calls++
	return m.OnDecode(ctx, data)
}

func pagesDecoder(pages ...string) *mockDecoder {
	return &mockDecoder{OnDecode: func(ctx context.Context, data []byte) ([]string, error) {
		return pages, nil
	}}
}

type mockValidator struct {
	OnValidate func(data []byte) error
}

func (m *mockValidator) Validate(data []byte) error {
	return m.OnValidate(data)
}

var ref = invoiceModel.DocumentRef{Bucket: "invoices", Key: "alice/doc1.pdf", OwnerID: "alice"}

func requireReadError(t *testing.T, err error, kind invoiceModel.ReadErrorKind) *invoiceModel.ReadError {
	t.Helper()
	var re *invoiceModel.ReadError
	require.True(t, errors.As(err, &re), "expected ReadError, got %v", err)
	assert.Equal(t, kind, re.Kind)
	return re
}

func TestReadTooSmallDocument(t *testing.T) {
	dec := pagesDecoder("never")
	r := NewReader(bytesFetcher(bytes.Repeat([]byte("a"), 50)), dec)

	_, err := r.Read(context.Background(), ref)
	re := requireReadError(t, err, invoiceModel.TooSmall)
	assert.Equal(t, int64(50), re.Size)
	assert.True(t, errors.Is(err, invoiceModel.ErrTooSmall))
	assert.Zero(t, dec.calls, "decoder must not run for undersized input")
}

func TestReadFetchFailureIsUnavailable(t *testing.T) {
	fetcher := &mockFetcher{OnFetch: func(ctx context.Context, bucket, key string) ([]byte, error) {
		return nil, errors.New("connection reset")
	}}
	r := NewReader(fetcher, pagesDecoder())

	_, err := r.Read(context.Background(), ref)
	re := requireReadError(t, err, invoiceModel.Unavailable)
	assert.False(t, re.Permanent())
}

func TestReadGarbageIsMalformed(t *testing.T) {
	r := NewReader(bytesFetcher(bytes.Repeat([]byte("x"), 400)), NewPDFDecoder(0))

	_, err := r.Read(context.Background(), ref)
	re := requireReadError(t, err, invoiceModel.Malformed)
	assert.NotEmpty(t, re.Cause.Error())
	assert.True(t, re.Permanent())
}

func TestReadDecoderErrorCarriesMessage(t *testing.T) {
	dec := &mockDecoder{OnDecode: func(ctx context.Context, data []byte) ([]string, error) {
		return nil, errors.New("xref table broken")
	}}
	r := NewReader(bytesFetcher(make([]byte, 200)), dec)

	_, err := r.Read(context.Background(), ref)
	requireReadError(t, err, invoiceModel.Malformed)
	assert.Contains(t, err.Error(), "xref table broken")
}

func TestReadJoinsPagesInOrder(t *testing.T) {
	r := NewReader(bytesFetcher(make([]byte, 200)), pagesDecoder("Proveedor: ACME", "Total: 10,5", "ñandú"))

	doc, err := r.Read(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "Proveedor: ACME\nTotal: 10,5\nñandú", doc.Text)
	assert.Equal(t, int64(200), doc.FileSizeBytes)
	assert.Equal(t, int64(len([]rune(doc.Text))), doc.TextLength)
	assert.Equal(t, 3, doc.Pages)
}

func TestReadZeroPages(t *testing.T) {
	r := NewReader(bytesFetcher(make([]byte, 200)), pagesDecoder())

	doc, err := r.Read(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, "", doc.Text)
	assert.Zero(t, doc.TextLength)
}

func TestReadValidatorRejectsBeforeDecode(t *testing.T) {
	dec := pagesDecoder("never")
	v := &mockValidator{OnValidate: func(data []byte) error { return errors.New("missing trailer") }}
	r := NewReader(bytesFetcher(make([]byte, 200)), dec, WithValidator(v))

	_, err := r.Read(context.Background(), ref)
	requireReadError(t, err, invoiceModel.Malformed)
	assert.Zero(t, dec.calls)
}

func TestReadRoutesByExtension(t *testing.T) {
	pdfDec := pagesDecoder("pdf")
	docxDec := pagesDecoder("docx")
	v := &mockValidator{OnValidate: func(data []byte) error { return errors.New("not a pdf") }}
	r := NewReader(bytesFetcher(make([]byte, 200)), pdfDec, WithDecoder(".DOCX", docxDec), WithValidator(v))

	doc, err := r.Read(context.Background(), invoiceModel.DocumentRef{Bucket: "b", Key: "bob/factura.docx"})
	require.NoError(t, err, "office documents skip pdf validation")
	assert.Equal(t, "docx", doc.Text)
	assert.Zero(t, pdfDec.calls)
}

func TestReadCancelledDecodeIsTransient(t *testing.T) {
	dec := &mockDecoder{OnDecode: func(ctx context.Context, data []byte) ([]string, error) {
		return nil, fmt.Errorf("page 1: %w", context.Canceled)
	}}
	r := NewReader(bytesFetcher(make([]byte, 200)), dec)

	_, err := r.Read(context.Background(), ref)
	requireReadError(t, err, invoiceModel.Unavailable)
}

func TestPDFDecoderReadsGeneratedDocument(t *testing.T) {
	data := buildPDF("Total: 1500,00", "CUIT: 20-12345678-9")
	r := NewReader(bytesFetcher(data), NewPDFDecoder(0))

	doc, err := r.Read(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, 2, doc.Pages)
	assert.Contains(t, doc.Text, "Total: 1500,00")
	assert.Contains(t, doc.Text, "CUIT: 20-12345678-9")

	fields := extract.Extract(doc.Text)
	assert.Equal(t, "1500.00", fields["total"])
	assert.Equal(t, "20-12345678-9", fields["taxId"])
}

func TestPDFValidatorRejectsGarbage(t *testing.T) {
	err := NewPDFValidator().Validate(bytes.Repeat([]byte("not a pdf "), 30))
	assert.Error(t, err)
}

func TestFileFetcher(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "invoices", "alice"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "invoices", "alice", "a.pdf"), []byte("content"), 0o644))

	f := FileFetcher{Root: root}
	data, err := f.Fetch(context.Background(), "invoices", "alice/a.pdf")
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))

	_, err = f.Fetch(context.Background(), "invoices", "alice/missing.pdf")
	assert.Error(t, err)

	_, err = f.Fetch(context.Background(), "invoices", "../../etc/passwd")
	assert.ErrorContains(t, err, "escapes")
}

// buildPDF writes a minimal PDF with one Helvetica text line per page.
func buildPDF(pageTexts ...string) []byte {
	n := len(pageTexts)
	fontID := 3 + 2*n
	objects := make([]string, 0, 3+2*n)

	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")
	kids := make([]string, n)
	for i := range pageTexts {
		kids[i] = fmt.Sprintf("%d 0 R", 3+2*i)
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n))
	for i, text := range pageTexts {
		content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 %d 0 R >> >> /Contents %d 0 R >>", fontID, 4+2*i),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
		)
	}
	objects = append(objects, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func TestReadPageTimeoutIsTransient(t *testing.T) {
	dec := &mockDecoder{OnDecode: func(ctx context.Context, data []byte) ([]string, error) {
		return nil, fmt.Errorf("page 1: %w", errPageTimeout)
	}}
	r := NewReader(bytesFetcher(make([]byte, 200)), dec)

	_, err := r.Read(context.Background(), ref)
	re := requireReadError(t, err, invoiceModel.Unavailable)
	assert.False(t, re.Permanent())

	pe := &invoiceModel.ProcessError{Kind: invoiceModel.UnreadableDocument, Key: ref.Key, Err: err}
	assert.False(t, pe.Permanent(), "a timed out page is retried through the queue")
}
