package receipt

import (
	"bytes"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	maxTextBytes = 100 * 1024
	// chars per page below which the PDF is treated as scanned
	scannedThreshold = 50
)

// pdfText extracts the embedded text layer of a PDF. ok is false for
// scanned PDFs and for anything the reader cannot open, in which case the
// caller falls back to OCR. The pdf library panics on some malformed
// files, so the whole extraction runs under recover.
func pdfText(data []byte) (text string, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			text, ok = "", false
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", false
	}

	pages := reader.NumPage()
	if pages < 1 {
		pages = 1
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", false
	}
	raw, err := io.ReadAll(io.LimitReader(plain, maxTextBytes))
	if err != nil {
		return "", false
	}

	text = string(raw)
	if len(strings.TrimSpace(text))/pages < scannedThreshold {
		return "", false
	}
	return text, true
}
