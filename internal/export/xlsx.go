package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"aria/internal/domain"
	"aria/internal/schema"
)

// Sheet is the set of rows written to one worksheet.
type Sheet struct {
	Type  domain.TransactionType
	Specs []schema.FieldSpec
	Rows  []Row
}

// WriteXLSX writes one worksheet per sheet, named after its transaction type.
func WriteXLSX(w io.Writer, sheets []Sheet) error {
	if len(sheets) == 0 {
		return fmt.Errorf("export: no sheets to write")
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	defaultSheet := f.GetSheetName(0)
	for i, sh := range sheets {
		name := string(sh.Type)
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("naming sheet %s: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("creating sheet %s: %w", name, err)
		}

		if err := writeSheetRow(f, name, 1, Columns(sh.Specs)); err != nil {
			return err
		}
		for j := range sh.Rows {
			if err := writeSheetRow(f, name, j+2, rowValues(sh.Specs, &sh.Rows[j])); err != nil {
				return err
			}
		}
		if err := f.SetPanes(name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return fmt.Errorf("freezing header of %s: %w", name, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeSheetRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &row); err != nil {
		return fmt.Errorf("writing row %d of %s: %w", rowNum, sheet, err)
	}
	return nil
}
