package model

import "time"

// RelationshipKindMapping is the kind of relationships created by map: columns
const RelationshipKindMapping = "mapping"

// Relationship binds two objects. A pair of objects is related at most once,
// whichever side is the source.
type Relationship struct {
	ID          string
	Source      ObjectRef
	Destination ObjectRef
	Kind        string
	CreatedAt   time.Time
}

// NewRelationship returns a relationship with an ID derived from the unordered pair
func NewRelationship(source, destination ObjectRef) *Relationship {
	return &Relationship{
		ID:          RelationshipID(source, destination),
		Source:      source,
		Destination: destination,
		Kind:        RelationshipKindMapping,
	}
}

// RelationshipID returns the ID shared by (a, b) and (b, a)
func RelationshipID(a, b ObjectRef) string {
	x, y := a.String(), b.String()
	if y < x {
		x, y = y, x
	}
	return DeriveID("relationship", x, y)
}

// Involves reports whether ref is one side of the relationship
func (r *Relationship) Involves(ref ObjectRef) bool {
	return r.Source == ref || r.Destination == ref
}

// Other returns the side that is not ref
func (r *Relationship) Other(ref ObjectRef) ObjectRef {
	if r.Source == ref {
		return r.Destination
	}
	return r.Source
}
