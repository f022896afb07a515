package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/aqarlink/crm/pkg/models"
)

// ErrNothingToExport is returned when the filters match no rows.
var ErrNothingToExport = errors.New("nothing to export")

const maxExportRows = 10000

// utf8BOM makes Excel open CSV files as UTF-8 so Arabic names render.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Service writes lead and client exports to the local storage path.
type Service struct {
	db          *gorm.DB
	storagePath string
}

// NewService creates a new export service rooted at storagePath.
func NewService(db *gorm.DB, storagePath string) *Service {
	os.MkdirAll(storagePath, 0755)
	return &Service{db: db, storagePath: storagePath}
}

// FileInfo describes a generated export file.
type FileInfo struct {
	Filename  string    `json:"filename"`
	Path      string    `json:"-"`
	Format    string    `json:"format"`
	RowCount  int       `json:"row_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Export generates a file for the requested entity and format. Archived
// rows are never exported.
func (s *Service) Export(ctx context.Context, req models.ExportRequest) (*FileInfo, error) {
	switch req.Entity {
	case "leads":
		return s.exportLeads(ctx, req)
	case "clients":
		return s.exportClients(ctx, req)
	default:
		return nil, fmt.Errorf("unknown export entity: %s", req.Entity)
	}
}

func (s *Service) exportLeads(ctx context.Context, req models.ExportRequest) (*FileInfo, error) {
	query := s.db.WithContext(ctx).Where("archived_at IS NULL")
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var leads []models.Lead
	if err := query.Order("created_at DESC").Limit(maxExportRows).Find(&leads).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch leads: %w", err)
	}
	if len(leads) == 0 {
		return nil, ErrNothingToExport
	}

	headers := []string{"ID", "Name", "Phone", "Email", "Company", "Source", "Status", "Priority", "Score", "Interest", "Type", "Location", "Budget", "Notes", "Created At"}
	rows := make([][]string, len(leads))
	for i, l := range leads {
		budget := ""
		if l.Budget != nil {
			budget = strconv.FormatFloat(*l.Budget, 'f', 0, 64)
		}
		rows[i] = []string{
			strconv.FormatUint(uint64(l.ID), 10),
			l.Name, l.Phone, l.Email, l.Company, l.Source,
			string(l.Status), string(l.Priority),
			strconv.Itoa(l.Score),
			l.Interest, string(l.Type), l.Location, budget, l.Notes,
			l.CreatedAt.Format(time.RFC3339),
		}
	}

	return s.writeFile(req.Format, "leads", headers, rows)
}

func (s *Service) exportClients(ctx context.Context, req models.ExportRequest) (*FileInfo, error) {
	query := s.db.WithContext(ctx).Where("archived_at IS NULL")
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}

	var clients []models.Client
	if err := query.Order("created_at DESC").Limit(maxExportRows).Find(&clients).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch clients: %w", err)
	}
	if len(clients) == 0 {
		return nil, ErrNothingToExport
	}

	headers := []string{"ID", "Name", "Phone", "Email", "Company", "Status", "Source", "Budget", "Location", "Notes", "Created At"}
	rows := make([][]string, len(clients))
	for i, c := range clients {
		budget := ""
		if c.Budget != nil {
			budget = strconv.FormatFloat(*c.Budget, 'f', 0, 64)
		}
		rows[i] = []string{
			strconv.FormatUint(uint64(c.ID), 10),
			c.Name, c.Phone, c.Email, c.Company,
			string(c.Status), c.Source, budget, c.Location, c.Notes,
			c.CreatedAt.Format(time.RFC3339),
		}
	}

	return s.writeFile(req.Format, "clients", headers, rows)
}

func (s *Service) writeFile(format, entity string, headers []string, rows [][]string) (*FileInfo, error) {
	ext := "csv"
	if format == "excel" {
		ext = "xlsx"
	}
	filename := fmt.Sprintf("%s-%s.%s", entity, uuid.New().String(), ext)
	path := filepath.Join(s.storagePath, filename)

	var err error
	if format == "excel" {
		err = writeExcel(path, headers, rows)
	} else {
		err = writeCSV(path, headers, rows)
	}
	if err != nil {
		return nil, err
	}

	return &FileInfo{
		Filename:  filename,
		Path:      path,
		Format:    format,
		RowCount:  len(rows),
		CreatedAt: time.Now(),
	}, nil
}

func writeCSV(path string, headers []string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if _, err := file.Write(utf8BOM); err != nil {
		return fmt.Errorf("failed to write BOM: %w", err)
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

func writeExcel(path string, headers []string, rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Export"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return fmt.Errorf("failed to map header cell: %w", err)
		}
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for rowIdx, row := range rows {
		for colIdx, value := range row {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return fmt.Errorf("failed to map cell: %w", err)
			}
			f.SetCellValue(sheetName, cell, value)
		}
	}

	for i := range headers {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return fmt.Errorf("failed to map column: %w", err)
		}
		f.SetColWidth(sheetName, col, col, 15)
	}

	f.SetActiveSheet(index)

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	return nil
}
