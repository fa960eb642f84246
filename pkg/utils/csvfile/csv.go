package csvfile

import (
	"bufio"
	"encoding/csv"
	"io"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// ReadCSV reads all records of a CSV file together with the file line each
// record starts on. A UTF-8 byte order mark is skipped and rows may have
// different lengths. Blank lines come back as empty rows.
func ReadCSV(r io.Reader) ([][]string, []int, error) {
	br := stripUTF8BOM(bufio.NewReader(r))

	cr := csv.NewReader(br)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	var lines []int
	expected := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, goerr.Wrap(err, "failed to read csv", goerr.V("line", expected))
		}

		line, _ := cr.FieldPos(0)
		if line > expected {
			rows = append(rows, []string{})
			lines = append(lines, expected)
		}
		rows = append(rows, record)
		lines = append(lines, line)

		expected = line + 1
		for _, field := range record {
			expected += strings.Count(field, "\n")
		}
	}
	return rows, lines, nil
}

// WriteCSV writes rows as CSV
func WriteCSV(w io.Writer, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		return goerr.Wrap(err, "failed to write csv")
	}
	return nil
}

func stripUTF8BOM(r *bufio.Reader) *bufio.Reader {
	b, err := r.Peek(3)
	if err == nil && len(b) == 3 && b[0] == 0xEF && b[1] == 0xBB && b[2] == 0xBF {
		_, _ = r.Discard(3)
	}
	return r
}
