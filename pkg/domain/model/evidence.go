package model

import (
	"time"

	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// Evidence is a file or link attached to a record through a relationship
type Evidence struct {
	ID        string
	Kind      types.EvidenceKind
	Link      string
	Title     string
	SourceID  string // identifier on the document host
	CreatedAt time.Time
}

// Ref returns the object reference of the evidence
func (e *Evidence) Ref() ObjectRef {
	return ObjectRef{Type: types.ObjectTypeEvidence, ID: e.ID}
}

// Document is what the document host returns for a link
type Document struct {
	ID   string
	Link string
	Name string
}
