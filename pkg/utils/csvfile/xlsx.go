package csvfile

import (
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the sheet written by WriteXLSX
const DefaultSheet = "Export"

// ReadXLSX reads the rows of the first sheet of a workbook
func ReadXLSX(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open xlsx")
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, goerr.Wrap(ErrNoBlocks, "workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read sheet", goerr.V("sheet", sheets[0]))
	}
	return rows, nil
}

// WriteXLSX writes rows into a single sheet workbook
func WriteXLSX(w io.Writer, rows [][]string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", DefaultSheet); err != nil {
		return goerr.Wrap(err, "failed to name sheet")
	}

	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		axis, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return goerr.Wrap(err, "failed to compute cell name", goerr.V("row", i+1))
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(DefaultSheet, axis, &values); err != nil {
			return goerr.Wrap(err, "failed to write row", goerr.V("row", i+1))
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return goerr.Wrap(err, "failed to write xlsx")
	}
	return nil
}
