// Package receipt turns an uploaded receipt (image or PDF) into a draft
// expense for the user to confirm. Recognition goes through an external
// OCR collaborator; PDFs with an embedded text layer are read locally
// first so text-based receipts never need the OCR call.
package receipt

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spendlens/backend/internal/model"
)

// OCRClient recognizes text in a receipt image or scanned PDF.
type OCRClient interface {
	Recognize(ctx context.Context, data []byte, mimeType string) (string, error)
}

// CurrencyConverter converts an amount between ISO currency codes.
// Receipts in a foreign currency are converted to INR before the draft
// is shown.
type CurrencyConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// Normalizer maps a free-form category phrase onto the fixed category set.
type Normalizer interface {
	Normalize(ctx context.Context, phrase string) model.Category
}

// Draft is a candidate expense parsed from a receipt, pending user
// confirmation. It is not persisted.
type Draft struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Date     string          `json:"date"`
	Title    string          `json:"title"`
	Category model.Category  `json:"category"`
}

const homeCurrency = "INR"

// Service parses receipts into drafts.
type Service struct {
	ocr        OCRClient
	converter  CurrencyConverter
	normalizer Normalizer
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a receipt service. converter may be nil, in which
// case foreign-currency amounts are kept in their original currency.
func NewService(ocr OCRClient, converter CurrencyConverter, normalizer Normalizer, logger *slog.Logger) *Service {
	return &Service{
		ocr:        ocr,
		converter:  converter,
		normalizer: normalizer,
		logger:     logger,
		now:        time.Now,
	}
}

// Parse produces a draft expense from raw receipt bytes.
func (s *Service) Parse(ctx context.Context, data []byte) (*Draft, error) {
	if len(data) == 0 {
		return nil, &model.ValidationError{Field: "file", Message: "receipt file is empty"}
	}

	mimeType := detectMimeType(data)
	text, err := s.recognize(ctx, data, mimeType)
	if err != nil {
		return nil, err
	}

	parsed := parseText(text, s.now())
	if parsed.amount.IsZero() {
		return nil, &model.ValidationError{Field: "file", Message: "could not find an amount on the receipt"}
	}

	draft := &Draft{
		Amount:   parsed.amount,
		Currency: parsed.currency,
		Date:     parsed.date.Format(model.DateLayout),
		Title:    parsed.merchant,
		Category: s.normalizer.Normalize(ctx, parsed.merchant),
	}

	if draft.Currency != homeCurrency && s.converter != nil {
		converted, err := s.converter.Convert(ctx, draft.Amount, draft.Currency, homeCurrency)
		if err != nil {
			s.logger.Warn("currency conversion failed, keeping original currency",
				"from", draft.Currency, "error", err)
		} else {
			draft.Amount = converted
			draft.Currency = homeCurrency
		}
	}

	return draft, nil
}

// recognize returns the receipt text, preferring the embedded text layer
// of digital PDFs over the OCR call.
func (s *Service) recognize(ctx context.Context, data []byte, mimeType string) (string, error) {
	if mimeType == "application/pdf" {
		if text, ok := pdfText(data); ok {
			return text, nil
		}
		s.logger.Debug("PDF has no usable text layer, falling back to OCR")
	}

	if s.ocr == nil {
		return "", fmt.Errorf("receipt requires OCR but no OCR client is configured")
	}
	text, err := s.ocr.Recognize(ctx, data, mimeType)
	if err != nil {
		return "", fmt.Errorf("recognize receipt: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", &model.ValidationError{Field: "file", Message: "no text could be read from the receipt"}
	}
	return text, nil
}

// detectMimeType sniffs the upload from its magic bytes.
func detectMimeType(data []byte) string {
	switch {
	case len(data) >= 4 && string(data[:4]) == "%PDF":
		return "application/pdf"
	case len(data) >= 4 && string(data[:4]) == "\x89PNG":
		return "image/png"
	case len(data) >= 3 && string(data[:3]) == "\xff\xd8\xff":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
