package types

// EvidenceKind distinguishes uploaded files from plain links
type EvidenceKind string

const (
	EvidenceKindFile EvidenceKind = "FILE"
	EvidenceKindURL  EvidenceKind = "URL"
)

// IsValid checks if the evidence kind is valid
func (k EvidenceKind) IsValid() bool {
	return k == EvidenceKindFile || k == EvidenceKindURL
}

// String returns the string representation of the evidence kind
func (k EvidenceKind) String() string {
	return string(k)
}
