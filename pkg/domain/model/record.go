package model

import (
	"time"

	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// Record is an importable GRC object: program, control, objective, audit,
// assessment, issue, workflow cycle or cycle task. Fields that do not apply to
// a type stay at their zero value.
type Record struct {
	ID          string
	Type        types.ObjectType
	Slug        string
	Title       string
	Description string // rich text
	Notes       string // rich text
	Status      types.Status
	Archived    bool // audits only

	StartDate          Date
	DueDate            Date
	EffectiveDate      Date
	FinishedDate       Date
	VerifiedDate       Date
	LastDeprecatedDate Date

	LastUpdatedBy string // email of the last importer
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Ref returns the object reference of the record
func (r *Record) Ref() ObjectRef {
	return ObjectRef{Type: r.Type, ID: r.ID}
}

// Clone returns a copy of the record
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	copied := *r
	return &copied
}

// SameContent reports whether two records carry the same importable content.
// Timestamps and the last updater are not compared.
func (r *Record) SameContent(other *Record) bool {
	if r == nil || other == nil {
		return r == other
	}
	return r.Type == other.Type &&
		r.Slug == other.Slug &&
		r.Title == other.Title &&
		r.Description == other.Description &&
		r.Notes == other.Notes &&
		r.Status == other.Status &&
		r.Archived == other.Archived &&
		r.StartDate == other.StartDate &&
		r.DueDate == other.DueDate &&
		r.EffectiveDate == other.EffectiveDate &&
		r.FinishedDate == other.FinishedDate &&
		r.VerifiedDate == other.VerifiedDate &&
		r.LastDeprecatedDate == other.LastDeprecatedDate
}
