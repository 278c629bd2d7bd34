package document

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// MaxUploadSize caps how many bytes of a PDF upload are read.
const MaxUploadSize = 20 * 1024 * 1024

// ExtractPDF concatenates the plain text of every page. Pages without a text
// layer contribute nothing.
func ExtractPDF(ctx context.Context, r io.ReaderAt, size int64) (text string, err error) {
	// the pdf reader panics on some malformed files
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("read pdf: malformed document: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("read pdf page %d: %w", i, err)
		}
		b.WriteString(pageText)
	}

	return b.String(), nil
}

// ExtractPDFBytes is ExtractPDF over an in-memory upload.
func ExtractPDFBytes(ctx context.Context, data []byte) (string, error) {
	return ExtractPDF(ctx, bytes.NewReader(data), int64(len(data)))
}

// ReadUpload reads at most MaxUploadSize bytes and fails if the upload is
// larger.
func ReadUpload(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUploadSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxUploadSize {
		return nil, fmt.Errorf("upload exceeds %d bytes", MaxUploadSize)
	}
	return data, nil
}
