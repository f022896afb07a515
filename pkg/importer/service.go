package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/aqarlink/crm/pkg/leaddedup"
	"github.com/aqarlink/crm/pkg/leadscoring"
	"github.com/aqarlink/crm/pkg/models"
	"github.com/aqarlink/crm/pkg/phone"
)

var (
	// ErrUnsupportedFormat is returned for files that are neither CSV
	// nor XLSX.
	ErrUnsupportedFormat = errors.New("unsupported file format")
	// ErrNoHeaderRow is returned when the file has no usable header.
	ErrNoHeaderRow = errors.New("file has no header row")
	// ErrNoPhoneColumn is returned when no phone column can be located.
	ErrNoPhoneColumn = errors.New("no phone column found in header")
)

// Options configures one import run.
type Options struct {
	MaxRows         int    // 0 = default limit
	BatchSize       int    // rows per transaction
	DefaultSource   string // applied when the row has no source column/value
	DefaultInterest string
	SkipDuplicates  bool // skip rows matching an existing lead's phone/email
}

// DefaultOptions returns the standard import configuration.
func DefaultOptions() Options {
	return Options{
		MaxRows:         10000,
		BatchSize:       100,
		DefaultSource:   "import",
		DefaultInterest: "medium",
		SkipDuplicates:  true,
	}
}

// RowOutcome records why a specific data row was not imported.
type RowOutcome struct {
	Row    int    `json:"row"`
	Name   string `json:"name,omitempty"`
	Phone  string `json:"phone,omitempty"`
	Reason string `json:"reason"`
}

// Result summarizes an import run. Skipped rows are counted and
// reported per-row, never surfaced as errors.
type Result struct {
	TotalRows       int          `json:"total_rows"`
	ImportedCount   int          `json:"imported_count"`
	SkippedCount    int          `json:"skipped_count"`
	DuplicateCount  int          `json:"duplicate_count"`
	Skipped         []RowOutcome `json:"skipped,omitempty"`
	Duplicates      []RowOutcome `json:"duplicates,omitempty"`
	ImportedLeadIDs []uint       `json:"imported_lead_ids,omitempty"`
	Duration        string       `json:"duration"`
}

// Service ingests lead files exported from spreadsheets kept by sales
// teams, typically with mixed Arabic/English headers.
type Service struct {
	db    *gorm.DB
	dedup *leaddedup.Service
}

// NewService creates a new import service.
func NewService(db *gorm.DB, dedup *leaddedup.Service) *Service {
	return &Service{db: db, dedup: dedup}
}

// fieldOrder fixes match precedence when one header could satisfy two
// fields ("company name" contains both).
var fieldOrder = []string{"phone", "email", "company", "budget", "source", "status", "notes", "name"}

// fieldCandidates maps each lead field to the header spellings seen in
// the wild, Arabic and English. Matching is fuzzy: normalized headers
// match on containment in either direction.
var fieldCandidates = map[string][]string{
	"name":    {"name", "full name", "client name", "lead name", "الاسم", "اسم", "اسم العميل"},
	"phone":   {"phone", "mobile", "phone number", "tel", "telephone", "الهاتف", "هاتف", "رقم الهاتف", "موبايل", "جوال", "رقم"},
	"email":   {"email", "e-mail", "mail", "البريد", "البريد الالكتروني", "ايميل"},
	"company": {"company", "organization", "الشركة", "شركة", "جهة العمل"},
	"status":  {"status", "الحالة", "حالة"},
	"notes":   {"notes", "note", "comment", "comments", "ملاحظات", "ملاحظة"},
	"source":  {"source", "channel", "المصدر", "مصدر"},
	"budget":  {"budget", "price", "الميزانية", "ميزانية", "السعر"},
}

// ImportFile ingests a CSV or XLSX file of leads. Rows lacking a
// cleaned name or a phone of at least 10 significant digits are skipped
// silently and counted.
func (s *Service) ImportFile(ctx context.Context, filename string, r io.Reader, opts Options, createdBy uint) (*Result, error) {
	start := time.Now()

	if opts.MaxRows <= 0 {
		opts.MaxRows = DefaultOptions().MaxRows
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultOptions().BatchSize
	}
	if opts.DefaultSource == "" {
		opts.DefaultSource = DefaultOptions().DefaultSource
	}
	if opts.DefaultInterest == "" {
		opts.DefaultInterest = DefaultOptions().DefaultInterest
	}

	var rows [][]string
	var err error
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		rows, err = readCSV(r)
	case ".xlsx":
		rows, err = readXLSX(r)
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoHeaderRow
	}

	columns := mapColumns(rows[0])
	if _, ok := columns["phone"]; !ok {
		return nil, ErrNoPhoneColumn
	}

	result := &Result{}
	var accepted []models.Lead
	acceptedRows := make([]int, 0)

	for i, row := range rows[1:] {
		rowNum := i + 2 // 1-based, after the header
		if result.TotalRows >= opts.MaxRows {
			break
		}
		result.TotalRows++

		lead, reason := s.parseRow(row, columns, opts, createdBy)
		if reason != "" {
			result.SkippedCount++
			result.Skipped = append(result.Skipped, RowOutcome{
				Row:    rowNum,
				Name:   cellAt(row, columns, "name"),
				Phone:  cellAt(row, columns, "phone"),
				Reason: reason,
			})
			continue
		}

		accepted = append(accepted, *lead)
		acceptedRows = append(acceptedRows, rowNum)
	}

	if opts.SkipDuplicates && s.dedup != nil && len(accepted) > 0 {
		accepted, acceptedRows = s.filterDuplicates(ctx, accepted, acceptedRows, result)
	}

	for i := 0; i < len(accepted); i += opts.BatchSize {
		end := i + opts.BatchSize
		if end > len(accepted) {
			end = len(accepted)
		}
		batch := accepted[i:end]

		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(&batch).Error
		})
		if err != nil {
			// The whole batch rolls back; report its rows as skipped.
			for j := range batch {
				result.SkippedCount++
				result.Skipped = append(result.Skipped, RowOutcome{
					Row:    acceptedRows[i+j],
					Name:   batch[j].Name,
					Phone:  batch[j].Phone,
					Reason: fmt.Sprintf("database error: %v", err),
				})
			}
			continue
		}
		for j := range batch {
			result.ImportedCount++
			result.ImportedLeadIDs = append(result.ImportedLeadIDs, batch[j].ID)
		}
	}

	result.Duration = time.Since(start).String()
	log.Printf("✅ Import completed: %d imported, %d skipped, %d duplicates in %s",
		result.ImportedCount, result.SkippedCount, result.DuplicateCount, result.Duration)

	return result, nil
}

// parseRow maps one data row to a Lead. A non-empty reason means the
// row is skipped.
func (s *Service) parseRow(row []string, columns map[string]int, opts Options, createdBy uint) (*models.Lead, string) {
	name := CleanName(cellAt(row, columns, "name"))
	if name == "" {
		return nil, "missing name"
	}

	cleanedPhone := phone.Clean(cellAt(row, columns, "phone"))
	if !phone.IsValid(cleanedPhone) {
		return nil, "phone shorter than 10 digits"
	}

	lead := models.Lead{
		Name:        name,
		Phone:       cleanedPhone,
		Email:       strings.ToLower(strings.TrimSpace(cellAt(row, columns, "email"))),
		Company:     strings.TrimSpace(cellAt(row, columns, "company")),
		Source:      strings.TrimSpace(cellAt(row, columns, "source")),
		Status:      models.LeadStatusNew,
		Priority:    models.PriorityMedium,
		Interest:    opts.DefaultInterest,
		Type:        models.ClientTypeIndividual,
		Notes:       strings.TrimSpace(cellAt(row, columns, "notes")),
		CreatedByID: createdBy,
	}
	if lead.Source == "" {
		lead.Source = opts.DefaultSource
	}
	if budget := parseBudget(cellAt(row, columns, "budget")); budget != nil {
		lead.Budget = budget
	}

	lead.Score, _ = leadscoring.Compute(leadscoring.Input{
		Interest: lead.Interest,
		Type:     lead.Type,
		Source:   lead.Source,
		Phone:    lead.Phone,
		Email:    lead.Email,
		Location: lead.Location,
		Budget:   lead.Budget,
	})

	return &lead, ""
}

func (s *Service) filterDuplicates(ctx context.Context, leads []models.Lead, rows []int, result *Result) ([]models.Lead, []int) {
	phones := make([]string, len(leads))
	emails := make([]string, len(leads))
	for i, l := range leads {
		phones[i] = l.Phone
		emails[i] = l.Email
	}

	bulk, err := s.dedup.BulkCheck(ctx, phones, emails)
	if err != nil {
		log.Printf("⚠️  Duplicate check failed, importing without dedup: %v", err)
		return leads, rows
	}

	dupIndex := make(map[int]bool, len(bulk.Duplicates))
	for _, d := range bulk.Duplicates {
		dupIndex[d.Index] = true
	}

	kept := leads[:0]
	keptRows := rows[:0]
	for i := range leads {
		if dupIndex[i] {
			result.DuplicateCount++
			result.Duplicates = append(result.Duplicates, RowOutcome{
				Row:    rows[i],
				Name:   leads[i].Name,
				Phone:  leads[i].Phone,
				Reason: "matches an existing lead",
			})
			continue
		}
		kept = append(kept, leads[i])
		keptRows = append(keptRows, rows[i])
	}
	return kept, keptRows
}

func readCSV(r io.Reader) ([][]string, error) {
	csvReader := csv.NewReader(r)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	var rows [][]string
	for {
		row, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeaderRow
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	return rows, nil
}

// mapColumns locates each known field in the header row by fuzzy
// bilingual matching. The first matching column per field wins.
func mapColumns(header []string) map[string]int {
	columns := make(map[string]int)
	for idx, raw := range header {
		h := normalizeHeader(raw)
		if h == "" {
			continue
		}
		for _, field := range fieldOrder {
			if _, done := columns[field]; done {
				continue
			}
			matched := false
			for _, candidate := range fieldCandidates[field] {
				c := normalizeHeader(candidate)
				if h == c || strings.Contains(h, c) || strings.Contains(c, h) {
					columns[field] = idx
					matched = true
					break
				}
			}
			if matched {
				break
			}
		}
	}
	return columns
}

// normalizeHeader lowercases, NFC-normalizes and strips the characters
// that vary between spreadsheet exports: BOM, tatweel, Arabic
// diacritics, punctuation.
func normalizeHeader(h string) string {
	h = norm.NFC.String(strings.ToLower(strings.TrimSpace(h)))
	var b strings.Builder
	for _, r := range h {
		switch {
		case r == '\uFEFF' || r == 'ـ': // BOM, tatweel
		case unicode.In(r, unicode.Mn): // Arabic diacritics
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
		default:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// CleanName trims, NFC-normalizes and strips control characters from an
// imported name, collapsing runs of whitespace.
func CleanName(name string) string {
	name = norm.NFC.String(name)
	var b strings.Builder
	for _, r := range name {
		if unicode.IsControl(r) || r == '\uFEFF' {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

func parseBudget(raw string) *float64 {
	cleaned := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' || r == '.' {
			return r
		}
		if r >= '٠' && r <= '٩' {
			return rune('0' + (r - '٠'))
		}
		return -1
	}, raw)
	if cleaned == "" {
		return nil
	}
	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || value <= 0 {
		return nil
	}
	return &value
}

func cellAt(row []string, columns map[string]int, field string) string {
	idx, ok := columns[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}
