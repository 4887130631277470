package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/students-api/internal/dto"
	"github.com/noah-isme/students-api/internal/validation"
)

const (
	studentSheet = "Students"
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	zipMIME      = "application/zip"
)

var (
	// ErrUnsupportedSpreadsheet indicates the upload is not an xlsx workbook.
	ErrUnsupportedSpreadsheet = errors.New("file must be an xlsx spreadsheet")
	// ErrSpreadsheetLayout indicates the first sheet lacks the expected header row.
	ErrSpreadsheetLayout = errors.New("spreadsheet must have a header row with first name, last name, birth date and course columns")
)

var exportHeader = []string{"ID", "First name", "Last name", "Birth date", "Course", "Erasmus"}

var requiredImportColumns = []string{"first name", "last name", "birth date", "course"}

// StudentTransferService moves student records in and out of xlsx workbooks.
type StudentTransferService interface {
	Export(ctx context.Context, search string, w io.Writer) error
	Import(ctx context.Context, r io.Reader, actor ActivityActor) (dto.ImportResult, error)
}

type studentTransferService struct {
	students  StudentService
	sanitizer *bluemonday.Policy
	logger    zerolog.Logger
}

// NewStudentTransferService builds the import/export service on top of the student service.
func NewStudentTransferService(students StudentService, logger zerolog.Logger) StudentTransferService {
	return &studentTransferService{
		students:  students,
		sanitizer: bluemonday.StrictPolicy(),
		logger:    logger.With().Str("component", "student_transfer_service").Logger(),
	}
}

func (s *studentTransferService) Export(ctx context.Context, search string, w io.Writer) error {
	students, err := s.students.List(ctx, search)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close export workbook")
		}
	}()

	if err := f.SetSheetName(f.GetSheetName(0), studentSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(studentSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, student := range students {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{student.ID, student.FirstName, student.LastName, student.BirthDate, student.Course, student.IsErasmus}
		if err := f.SetSheetRow(studentSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}

	return nil
}

func (s *studentTransferService) Import(ctx context.Context, r io.Reader, actor ActivityActor) (dto.ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return dto.ImportResult{}, err
	}

	if !isSpreadsheet(data) {
		return dto.ImportResult{}, ErrUnsupportedSpreadsheet
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return dto.ImportResult{}, ErrUnsupportedSpreadsheet
	}
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to close import workbook")
		}
	}()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return dto.ImportResult{}, ErrSpreadsheetLayout
	}

	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return dto.ImportResult{}, fmt.Errorf("read sheet %s: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return dto.ImportResult{}, ErrSpreadsheetLayout
	}

	columns := make(map[string]int, len(rows[0]))
	for i, title := range rows[0] {
		columns[strings.ToLower(strings.TrimSpace(title))] = i
	}
	for _, name := range requiredImportColumns {
		if _, ok := columns[name]; !ok {
			return dto.ImportResult{}, ErrSpreadsheetLayout
		}
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	result := dto.ImportResult{Failed: []dto.ImportFailure{}}
	for i, row := range rows[1:] {
		rowNumber := i + 2
		if isBlankRow(row) {
			continue
		}

		req := dto.StudentRequest{
			FirstName: s.cell(row, columns, "first name"),
			LastName:  s.cell(row, columns, "last name"),
			BirthDate: birthDateCell(s.cell(row, columns, "birth date"), date1904),
			Course:    dto.CourseValue(s.cell(row, columns, "course")),
			IsErasmus: parseFlag(s.cell(row, columns, "erasmus")),
		}

		if _, err := s.students.Create(ctx, req, actor); err != nil {
			var validationErr *ValidationError
			if errors.As(err, &validationErr) {
				result.Failed = append(result.Failed, dto.ImportFailure{Row: rowNumber, Errors: validationErr.Errors})
				continue
			}
			return result, fmt.Errorf("import row %d: %w", rowNumber, err)
		}
		result.Imported++
	}

	s.logger.Info().Int("imported", result.Imported).Int("failed", len(result.Failed)).Msg("student import finished")

	return result, nil
}

func (s *studentTransferService) cell(row []string, columns map[string]int, name string) string {
	index, ok := columns[name]
	if !ok || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(s.sanitizer.Sanitize(row[index]))
}

// birthDateCell turns an Excel date serial into a calendar date. Text cells pass through.
func birthDateCell(value string, date1904 bool) string {
	if _, err := validation.ParseDate(value); err == nil {
		return value
	}
	serial, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return value
	}
	return validation.FormatDate(t)
}

func isSpreadsheet(data []byte) bool {
	for m := mimetype.Detect(data); m != nil; m = m.Parent() {
		if m.Is(xlsxMIME) || m.Is(zipMIME) {
			return true
		}
	}
	return false
}

func isBlankRow(row []string) bool {
	for _, value := range row {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

func parseFlag(value string) bool {
	switch strings.ToLower(value) {
	case "yes", "y", "x":
		return true
	}
	flag, err := strconv.ParseBool(value)
	return err == nil && flag
}
