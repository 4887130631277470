package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestStudentTransferExportThenImport(t *testing.T) {
	source := newFixture(t)
	ctx := context.Background()

	_, err := source.svc.Create(ctx, request("Anna", "Smith"), ActivityActor{})
	require.NoError(t, err)
	_, err = source.svc.Create(ctx, request("Carl", "Jones"), ActivityActor{})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, NewStudentTransferService(source.svc, zerolog.Nop()).Export(ctx, "", &buf))

	book, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	rows, err := book.GetRows("Students")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	require.Equal(t, []string{"ID", "First name", "Last name", "Birth date", "Course", "Erasmus"}, rows[0])
	require.Equal(t, "Anna", rows[1][1])
	require.Equal(t, "2001-02-03", rows[1][3])
	require.NoError(t, book.Close())

	target := newFixture(t)
	result, err := NewStudentTransferService(target.svc, zerolog.Nop()).Import(ctx, bytes.NewReader(buf.Bytes()), ActivityActor{})
	require.NoError(t, err)
	require.Equal(t, 2, result.Imported)
	require.Empty(t, result.Failed)

	imported, err := target.svc.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, imported, 2)
	require.Equal(t, "Jones", imported[1].LastName)
}

func TestStudentTransferImportReportsInvalidRows(t *testing.T) {
	f := newFixture(t)

	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	rows := [][]interface{}{
		{"First name", "Last name", "Birth date", "Course", "Erasmus"},
		{"Jo", "Doe", "2001-02-03", 2, "yes"},
		{"J0", "Doe", "2050-01-01", 0, "no"},
		{},
		{"Mary Ann", "Lee", "1990-01-01", "4", ""},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, book.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	_, err := book.WriteTo(&buf)
	require.NoError(t, err)

	result, err := NewStudentTransferService(f.svc, zerolog.Nop()).Import(context.Background(), &buf, ActivityActor{})
	require.NoError(t, err)
	require.Equal(t, 2, result.Imported)
	require.Len(t, result.Failed, 1)
	require.Equal(t, 3, result.Failed[0].Row)
	require.Equal(t, []string{
		"First name must contain only letters.",
		"Birth date cannot be in the future.",
		"Course must be a positive number.",
	}, result.Failed[0].Errors)

	students, err := f.svc.List(context.Background(), "doe")
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.True(t, students[0].IsErasmus)
}

func TestStudentTransferImportRejectsNonSpreadsheet(t *testing.T) {
	f := newFixture(t)
	svc := NewStudentTransferService(f.svc, zerolog.Nop())

	_, err := svc.Import(context.Background(), bytes.NewBufferString("first_name,last_name\nJo,Doe\n"), ActivityActor{})
	require.ErrorIs(t, err, ErrUnsupportedSpreadsheet)
}

func TestStudentTransferImportRequiresHeader(t *testing.T) {
	f := newFixture(t)

	book := excelize.NewFile()
	require.NoError(t, book.SetCellValue(book.GetSheetName(0), "A1", "Name"))
	var buf bytes.Buffer
	_, err := book.WriteTo(&buf)
	require.NoError(t, err)

	_, err = NewStudentTransferService(f.svc, zerolog.Nop()).Import(context.Background(), &buf, ActivityActor{})
	require.ErrorIs(t, err, ErrSpreadsheetLayout)
}

func TestStudentTransferImportReadsDateFormattedCells(t *testing.T) {
	f := newFixture(t)

	book := excelize.NewFile()
	sheet := book.GetSheetName(0)
	rows := [][]interface{}{
		{"First name", "Last name", "Birth date", "Course", "Erasmus"},
		{"Jo", "Doe", time.Date(2001, 2, 3, 0, 0, 0, 0, time.UTC), 2, "x"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := row
		require.NoError(t, book.SetSheetRow(sheet, cell, &row))
	}
	var buf bytes.Buffer
	_, err := book.WriteTo(&buf)
	require.NoError(t, err)

	result, err := NewStudentTransferService(f.svc, zerolog.Nop()).Import(context.Background(), &buf, ActivityActor{})
	require.NoError(t, err)
	require.Equal(t, 1, result.Imported)
	require.Empty(t, result.Failed)

	students, err := f.svc.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, students, 1)
	require.Equal(t, "2001-02-03", students[0].BirthDate)
	require.True(t, students[0].IsErasmus)
}

func TestBirthDateCellConvertsSerials(t *testing.T) {
	require.Equal(t, "2001-02-03", birthDateCell("36925", false))
	require.Equal(t, "2001-02-03", birthDateCell("2001-02-03", false))
	require.Equal(t, "2001-02-30", birthDateCell("2001-02-30", false))
}
