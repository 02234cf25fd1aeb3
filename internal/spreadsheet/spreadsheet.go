// Package spreadsheet reads and writes the inventory as an XLSX workbook
// with the columns Name | Quantity | Price | Tags (comma separated).
package spreadsheet

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/ikkim/inventory-backend/internal/app/model"
	apperrors "github.com/ikkim/inventory-backend/internal/errors"
	"github.com/xuri/excelize/v2"
)

const SheetName = "Inventory"

var header = []interface{}{"Name", "Quantity", "Price", "Tags"}

// Row is one parsed data row. Line is the 1-based sheet row it came from.
type Row struct {
	Line     int
	Name     string
	Quantity int
	Price    float64
	Tags     []string
}

// ReadProducts parses the first sheet of an XLSX workbook. The first row is
// a header. Blank rows are skipped; rows that cannot be parsed are returned
// as problems (each wrapping apperrors.ErrValidation) rather than aborting.
func ReadProducts(r io.Reader) ([]Row, []error, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, nil, fmt.Errorf("no sheets found in XLSX file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("no data found in XLSX file")
	}

	var (
		parsed   []Row
		problems []error
	)
	// First row is the header
	for i, cells := range rows[1:] {
		line := i + 2
		if isBlank(cells) {
			continue
		}
		row, err := parseRow(line, cells)
		if err != nil {
			problems = append(problems, fmt.Errorf("line %d: %w", line, err))
			continue
		}
		parsed = append(parsed, row)
	}
	return parsed, problems, nil
}

func parseRow(line int, cells []string) (Row, error) {
	cell := func(i int) string {
		if i < len(cells) {
			return strings.TrimSpace(cells[i])
		}
		return ""
	}

	row := Row{Line: line, Name: cell(0)}
	fields := map[string]string{}

	if q := cell(1); q != "" {
		n, err := strconv.ParseFloat(q, 64)
		if err != nil || n != math.Trunc(n) {
			fields["quantity"] = "must be a whole number"
		} else {
			row.Quantity = int(n)
		}
	}
	if p := cell(2); p != "" {
		n, err := strconv.ParseFloat(p, 64)
		if err != nil {
			fields["price"] = "must be a number"
		} else {
			row.Price = n
		}
	}
	for _, t := range strings.Split(cell(3), ",") {
		if t = strings.TrimSpace(t); t != "" {
			row.Tags = append(row.Tags, t)
		}
	}

	if len(fields) > 0 {
		return row, apperrors.NewValidationError(fields)
	}
	return row, nil
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// WriteProducts renders products as a single-sheet workbook.
func WriteProducts(w io.Writer, products []model.Product) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return err
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(SheetName, "A1", "D1", bold); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "A", "A", 32); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "D", "D", 40); err != nil {
		return err
	}

	for i, p := range products {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{p.Name, p.Quantity, p.Price, strings.Join(p.Tags, ", ")}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return err
		}
	}

	_, err = f.WriteTo(w)
	return err
}
