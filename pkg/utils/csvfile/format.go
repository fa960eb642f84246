package csvfile

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

// Format is a spreadsheet encoding
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const (
	ContentTypeCSV  = "text/csv"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ParseFormat accepts "csv" or "xlsx". Empty selects CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", goerr.Wrap(ErrUnsupportedFormat, "unknown format", goerr.V("format", s))
	}
}

// ContentType returns the MIME type of the format
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return ContentTypeXLSX
	}
	return ContentTypeCSV
}

// Ext returns the file extension of the format including the dot
func (f Format) Ext() string {
	return "." + string(f)
}

var zipMagic = []byte("PK\x03\x04")

// Detect guesses the format from a file name and the first bytes of content
func Detect(name string, head []byte) Format {
	if strings.EqualFold(filepath.Ext(name), ".xlsx") || bytes.HasPrefix(head, zipMagic) {
		return FormatXLSX
	}
	return FormatCSV
}

// ReadBlocks reads a whole file and splits it into blocks
func ReadBlocks(r io.Reader, name string) ([]*Block, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read import file")
	}

	var rows [][]string
	var lines []int
	switch Detect(name, data) {
	case FormatXLSX:
		rows, err = ReadXLSX(bytes.NewReader(data))
	default:
		rows, lines, err = ReadCSV(bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}
	return Split(rows, lines)
}

// WriteBlocks writes blocks in the given format
func WriteBlocks(w io.Writer, format Format, blocks []*Block) error {
	rows := Join(blocks)
	switch format {
	case FormatXLSX:
		return WriteXLSX(w, rows)
	case FormatCSV:
		return WriteCSV(w, rows)
	default:
		return goerr.Wrap(ErrUnsupportedFormat, "cannot write format", goerr.V("format", format))
	}
}
