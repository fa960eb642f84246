package types

import (
	"strings"
)

// Status is a lifecycle state of a record. The valid vocabulary depends on the object type.
type Status string

const (
	// Program, Control, Objective, Issue
	StatusDraft            Status = "Draft"
	StatusActive           Status = "Active"
	StatusFixed            Status = "Fixed"
	StatusFixedAndVerified Status = "Fixed and Verified"

	// Audit
	StatusPlanned                Status = "Planned"
	StatusManagerReview          Status = "Manager Review"
	StatusReadyForExternalReview Status = "Ready for External Review"

	// Assessment
	StatusNotStarted   Status = "Not Started"
	StatusInProgress   Status = "In Progress"
	StatusInReview     Status = "In Review"
	StatusReworkNeeded Status = "Rework Needed"
	StatusCompleted    Status = "Completed"
	StatusVerified     Status = "Verified"

	// Cycle, CycleTask
	StatusAssigned Status = "Assigned"
	StatusFinished Status = "Finished"
	StatusDeclined Status = "Declined"

	StatusDeprecated Status = "Deprecated"
)

// StatusVocabulary returns the ordered list of statuses allowed for the object type.
// The first element is the default state of new records.
func StatusVocabulary(t ObjectType) []Status {
	switch t {
	case ObjectTypeProgram, ObjectTypeControl, ObjectTypeObjective:
		return []Status{StatusDraft, StatusActive, StatusDeprecated}
	case ObjectTypeAudit:
		return []Status{
			StatusPlanned,
			StatusInProgress,
			StatusManagerReview,
			StatusReadyForExternalReview,
			StatusCompleted,
			StatusDeprecated,
		}
	case ObjectTypeAssessment:
		return []Status{
			StatusNotStarted,
			StatusInProgress,
			StatusInReview,
			StatusReworkNeeded,
			StatusCompleted,
			StatusVerified,
			StatusDeprecated,
		}
	case ObjectTypeIssue:
		return []Status{
			StatusDraft,
			StatusActive,
			StatusFixed,
			StatusFixedAndVerified,
			StatusDeprecated,
		}
	case ObjectTypeCycle:
		return []Status{StatusAssigned, StatusInProgress, StatusFinished, StatusVerified}
	case ObjectTypeCycleTask:
		return []Status{
			StatusAssigned,
			StatusInProgress,
			StatusFinished,
			StatusDeclined,
			StatusVerified,
			StatusDeprecated,
		}
	default:
		return nil
	}
}

// DefaultStatus returns the state given to new records of the object type
func DefaultStatus(t ObjectType) Status {
	vocab := StatusVocabulary(t)
	if len(vocab) == 0 {
		return ""
	}
	return vocab[0]
}

// ParseStatus matches s case-insensitively against the vocabulary of t and
// returns the canonical form. ok is false when s is not part of the vocabulary.
func ParseStatus(t ObjectType, s string) (Status, bool) {
	key := strings.ToLower(strings.Join(strings.Fields(s), " "))
	for _, status := range StatusVocabulary(t) {
		if strings.ToLower(string(status)) == key {
			return status, true
		}
	}
	return "", false
}

// IsValidFor checks if the status belongs to the vocabulary of t
func (s Status) IsValidFor(t ObjectType) bool {
	_, ok := ParseStatus(t, string(s))
	return ok
}

// IsTaskDone reports whether a cycle task in this state no longer needs reminders
func (s Status) IsTaskDone() bool {
	switch s {
	case StatusFinished, StatusVerified, StatusDeprecated, StatusDeclined:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status
func (s Status) String() string {
	return string(s)
}
