package model

// RowDisposition is what happened to a row
type RowDisposition string

const (
	RowCreated RowDisposition = "created"
	RowUpdated RowDisposition = "updated"
	RowIgnored RowDisposition = "ignored"
	RowDeleted RowDisposition = "deleted"
)

// RowResult is the outcome of converting one data row
type RowResult struct {
	Line        int
	Record      *Record
	Errors      []string
	Warnings    []string
	Disposition RowDisposition
	Deprecated  bool
}

// HasErrors reports whether the row was rejected
func (r *RowResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// BlockResult is the summary of one imported block
type BlockResult struct {
	Name          string   `json:"name"`
	Rows          int      `json:"rows"`
	Created       int      `json:"created"`
	Updated       int      `json:"updated"`
	Ignored       int      `json:"ignored"`
	Deleted       int      `json:"deleted"`
	Deprecated    int      `json:"deprecated"`
	RowErrors     []string `json:"row_errors"`
	RowWarnings   []string `json:"row_warnings"`
	BlockErrors   []string `json:"block_errors"`
	BlockWarnings []string `json:"block_warnings"`
}

// NewBlockResult returns an empty summary with non-nil message lists so that
// they encode as [] rather than null
func NewBlockResult(name string) *BlockResult {
	return &BlockResult{
		Name:          name,
		RowErrors:     []string{},
		RowWarnings:   []string{},
		BlockErrors:   []string{},
		BlockWarnings: []string{},
	}
}

// AddRow folds a row result into the counters
func (b *BlockResult) AddRow(r *RowResult) {
	b.Rows++
	b.RowErrors = append(b.RowErrors, r.Errors...)
	b.RowWarnings = append(b.RowWarnings, r.Warnings...)

	switch r.Disposition {
	case RowCreated:
		b.Created++
	case RowUpdated:
		b.Updated++
	case RowDeleted:
		b.Deleted++
	default:
		b.Ignored++
	}
	if r.Deprecated {
		b.Deprecated++
	}
}

// HasErrors reports whether the block or any of its rows failed
func (b *BlockResult) HasErrors() bool {
	return len(b.BlockErrors) > 0 || len(b.RowErrors) > 0
}

// ImportTotals sums the counters of several blocks
type ImportTotals struct {
	Rows       int `json:"rows"`
	Created    int `json:"created"`
	Updated    int `json:"updated"`
	Ignored    int `json:"ignored"`
	Deleted    int `json:"deleted"`
	Deprecated int `json:"deprecated"`
	Errors     int `json:"errors"`
	Warnings   int `json:"warnings"`
}

// SumBlocks returns the totals over blocks
func SumBlocks(blocks []*BlockResult) ImportTotals {
	var t ImportTotals
	for _, b := range blocks {
		t.Rows += b.Rows
		t.Created += b.Created
		t.Updated += b.Updated
		t.Ignored += b.Ignored
		t.Deleted += b.Deleted
		t.Deprecated += b.Deprecated
		t.Errors += len(b.RowErrors) + len(b.BlockErrors)
		t.Warnings += len(b.RowWarnings) + len(b.BlockWarnings)
	}
	return t
}
