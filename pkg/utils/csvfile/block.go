package csvfile

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrNoBlocks          = goerr.New("no object blocks found")
	ErrUnsupportedFormat = goerr.New("unsupported file format")
)

// blockMarker is the first cell of the row that starts a block
const blockMarker = "Object type"

// Block is one "Object type" section of a file
type Block struct {
	ObjectType string     `json:"object_type"`
	HeaderLine int        `json:"-"`
	Header     []string   `json:"header"`
	Rows       [][]string `json:"rows"`
	Lines      []int      `json:"-"`
}

// LineOf returns the 1-based file line of data row i. Blocks that did not
// come from a file number their rows right after the header.
func (b *Block) LineOf(i int) int {
	if i < len(b.Lines) {
		return b.Lines[i]
	}
	return b.HeaderLine + 1 + i
}

// Split cuts spreadsheet rows into blocks. A row whose first cell is
// "Object type" starts a block and names the type in its second cell; the
// next row is the header and data rows follow until a blank row or the next
// block. Rows outside any block are ignored. lines holds the file line of
// each row; when nil, row i is on line i+1.
func Split(rows [][]string, lines []int) ([]*Block, error) {
	var blocks []*Block
	var current *Block
	expectHeader := false

	for i, row := range rows {
		line := i + 1
		if i < len(lines) {
			line = lines[i]
		}

		if isMarker(row) {
			current = &Block{
				ObjectType: strings.TrimSpace(cell(row, 1)),
				HeaderLine: line + 1,
			}
			blocks = append(blocks, current)
			expectHeader = true
			continue
		}
		if current == nil {
			continue
		}

		if expectHeader {
			expectHeader = false
			if !isBlank(row) {
				current.HeaderLine = line
				current.Header = trimTrailing(row)
				continue
			}
		}

		if isBlank(row) {
			current = nil
			continue
		}
		current.Rows = append(current.Rows, row)
		current.Lines = append(current.Lines, line)
	}

	if len(blocks) == 0 {
		return nil, goerr.Wrap(ErrNoBlocks, "file has no 'Object type' row")
	}
	return blocks, nil
}

// Join lays blocks out in import order with a blank row between blocks
func Join(blocks []*Block) [][]string {
	var rows [][]string
	for i, b := range blocks {
		if i > 0 {
			rows = append(rows, []string{})
		}
		rows = append(rows, []string{blockMarker, b.ObjectType})
		rows = append(rows, b.Header)
		rows = append(rows, b.Rows...)
	}
	return rows
}

func isMarker(row []string) bool {
	return strings.EqualFold(strings.TrimSpace(cell(row, 0)), blockMarker)
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

// trimTrailing drops empty cells at the end of a header row
func trimTrailing(row []string) []string {
	end := len(row)
	for end > 0 && strings.TrimSpace(row[end-1]) == "" {
		end--
	}
	return row[:end]
}
