// Package extraction pulls raw text out of statement PDFs for the
// text-mode ingestion path, where the model receives extracted text instead
// of the PDF itself.
package extraction

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/dslipak/pdf"

	apperrors "statement-ingestion-service/pkg/errors"
	"statement-ingestion-service/pkg/logger"
)

// TextFromPDF extracts row-ordered text from a PDF file.
func TextFromPDF(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CategoryParse, apperrors.CodeMalformedResponse,
			"cannot open statement PDF")
	}
	defer f.Close()

	return TextFromReader(f)
}

// TextFromReader extracts row-ordered text from PDF content. Pages that
// fail text extraction are skipped; a statement with a damaged page is
// still worth a partial extraction.
func TextFromReader(r io.Reader) (string, error) {
	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(r); err != nil {
		return "", apperrors.Wrap(err, apperrors.CategoryParse, apperrors.CodeMalformedResponse,
			"cannot read statement PDF")
	}
	data := buf.Bytes()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.CategoryParse, apperrors.CodeMalformedResponse,
			"cannot parse statement PDF")
	}

	log := logger.GetGlobalLogger().WithComponent("extraction")
	var b strings.Builder

	for no := 1; no <= reader.NumPage(); no++ {
		rows, err := reader.Page(no).GetTextByRow()
		if err != nil {
			log.WithError(err).WithField("page", no).Warn("skipping unreadable page")
			continue
		}
		for _, row := range rows {
			for i, text := range row.Content {
				b.WriteString(text.S)
				if i < len(row.Content)-1 {
					b.WriteByte(' ')
				}
			}
			b.WriteByte('\n')
		}
	}

	return b.String(), nil
}
