package importer

import (
	"encoding/csv"
	"fmt"
	"io"
)

// utf8BOM makes Excel open the file as UTF-8 so Arabic headers render.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// templateHeaders is the fixed bilingual header row of the import
// template. Each label carries both spellings so the file round-trips
// through the fuzzy header matcher.
var templateHeaders = []string{
	"Name / الاسم",
	"Phone / الهاتف",
	"Email / البريد",
	"Company / الشركة",
	"Source / المصدر",
	"Budget / الميزانية",
	"Notes / ملاحظات",
}

// templateExample is one sample data row showing the expected formats.
var templateExample = []string{
	"أحمد حسن",
	"01012345678",
	"ahmed@example.com",
	"Delta Realty",
	"referral",
	"1500000",
	"مهتم بشقة في التجمع الخامس",
}

// WriteTemplate writes the CSV import template, BOM first.
func WriteTemplate(w io.Writer) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(templateHeaders); err != nil {
		return fmt.Errorf("failed to write template header: %w", err)
	}
	if err := csvWriter.Write(templateExample); err != nil {
		return fmt.Errorf("failed to write template example: %w", err)
	}
	csvWriter.Flush()
	return csvWriter.Error()
}
