package document

import (
	"context"
	"errors"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/fhiba/2025Q2-G4/internal/config"
	"github.com/fhiba/2025Q2-G4/internal/domain/invoiceModel"
	"github.com/fhiba/2025Q2-G4/pkg/logger_i"
)

type Reader struct {
	fetcher   ObjectFetcher
	fallback  PageDecoder
	decoders  map[string]PageDecoder
	validator StructureValidator
	minBytes  int
	logger    *logger_i.Logger
}

type Option func(*Reader)

// WithDecoder routes keys with the given extension (".docx") to d.
func WithDecoder(ext string, d PageDecoder) Option {
	return func(r *Reader) {
		r.decoders[strings.ToLower(ext)] = d
	}
}

// WithValidator checks PDF structure before decoding.
func WithValidator(v StructureValidator) Option {
	return func(r *Reader) {
		r.validator = v
	}
}

func WithMinBytes(n int) Option {
	return func(r *Reader) {
		r.minBytes = n
	}
}

// NewReader decodes PDF by default. Office formats are routed to the
// OfficeDecoder unless overridden with WithDecoder.
func NewReader(fetcher ObjectFetcher, pdfDecoder PageDecoder, opts ...Option) *Reader {
	r := &Reader{
		fetcher:  fetcher,
		fallback: pdfDecoder,
		decoders: map[string]PageDecoder{},
		minBytes: config.MinDocumentBytes,
		logger:   logger_i.NewLogger("Document Reader"),
	}
	office := OfficeDecoder{}
	for _, ext := range []string{".docx", ".odt", ".rtf", ".txt"} {
		r.decoders[ext] = office
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read fetches the object behind ref and returns its text, pages joined
// with "\n". Errors are always *invoiceModel.ReadError.
func (r *Reader) Read(ctx context.Context, ref invoiceModel.DocumentRef) (invoiceModel.Document, error) {
	log := r.logger.With("bucket", ref.Bucket, "storageKey", ref.Key)

	data, err := r.fetcher.Fetch(ctx, ref.Bucket, ref.Key)
	if err != nil {
		log.Warn("fetch failed", "error", err)
		return invoiceModel.Document{}, &invoiceModel.ReadError{Kind: invoiceModel.Unavailable, Key: ref.Key, Cause: err}
	}

	size := int64(len(data))
	if len(data) < r.minBytes {
		log.Info("document too small", "bytes", size)
		return invoiceModel.Document{}, &invoiceModel.ReadError{Kind: invoiceModel.TooSmall, Key: ref.Key, Size: size}
	}

	decoder, isPDF := r.decoderFor(ref.Key)
	if isPDF && r.validator != nil {
		if err := r.validator.Validate(data); err != nil {
			log.Info("document failed structural validation", "error", err)
			return invoiceModel.Document{}, &invoiceModel.ReadError{Kind: invoiceModel.Malformed, Key: ref.Key, Size: size, Cause: err}
		}
	}

	pages, err := decoder.Decode(ctx, data)
	if err != nil {
		kind := invoiceModel.Malformed
		// a slow page is not a broken document
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, errPageTimeout) {
			kind = invoiceModel.Unavailable
		}
		log.Info("document decode failed", "error", err, "kind", kind)
		return invoiceModel.Document{}, &invoiceModel.ReadError{Kind: kind, Key: ref.Key, Size: size, Cause: err}
	}

	text := strings.Join(pages, "\n")
	log.Debug("document read", "pages", len(pages), "bytes", size)
	return invoiceModel.Document{
		Text:          text,
		FileSizeBytes: size,
		TextLength:    int64(utf8.RuneCountInString(text)),
		Pages:         len(pages),
	}, nil
}

func (r *Reader) decoderFor(key string) (PageDecoder, bool) {
	ext := strings.ToLower(path.Ext(key))
	if d, ok := r.decoders[ext]; ok {
		return d, false
	}
	return r.fallback, true
}

// ReaderFromConfig builds a Reader over fetcher with the limits in cfg.
func ReaderFromConfig(fetcher ObjectFetcher, cfg *config.Config) *Reader {
	opts := []Option{WithMinBytes(cfg.Documents.MinBytes)}
	if cfg.Documents.ValidateStructure {
		opts = append(opts, WithValidator(NewPDFValidator()))
	}
	return NewReader(fetcher, NewPDFDecoder(cfg.Documents.PageTimeout), opts...)
}
