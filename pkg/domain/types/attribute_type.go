package types

import "strings"

// AttributeType is the declared type of a custom attribute definition
type AttributeType string

const (
	AttributeTypeText        AttributeType = "Text"
	AttributeTypeRichText    AttributeType = "Rich Text"
	AttributeTypeDate        AttributeType = "Date"
	AttributeTypeDropdown    AttributeType = "Dropdown"
	AttributeTypeCheckbox    AttributeType = "Checkbox"
	AttributeTypeMultiselect AttributeType = "Multiselect"
	AttributeTypePerson      AttributeType = "Map:Person"
)

// AllAttributeTypes returns all valid attribute types
func AllAttributeTypes() []AttributeType {
	return []AttributeType{
		AttributeTypeText,
		AttributeTypeRichText,
		AttributeTypeDate,
		AttributeTypeDropdown,
		AttributeTypeCheckbox,
		AttributeTypeMultiselect,
		AttributeTypePerson,
	}
}

// IsValid checks if the attribute type is valid
func (t AttributeType) IsValid() bool {
	switch t {
	case AttributeTypeText,
		AttributeTypeRichText,
		AttributeTypeDate,
		AttributeTypeDropdown,
		AttributeTypeCheckbox,
		AttributeTypeMultiselect,
		AttributeTypePerson:
		return true
	default:
		return false
	}
}

// HasOptions reports whether values must be chosen from MultiChoiceOptions
func (t AttributeType) HasOptions() bool {
	return t == AttributeTypeDropdown || t == AttributeTypeMultiselect
}

// String returns the string representation of the attribute type
func (t AttributeType) String() string {
	return string(t)
}

// ParseAttributeType parses a type name case-insensitively
func ParseAttributeType(s string) (AttributeType, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	for _, t := range AllAttributeTypes() {
		if strings.ToLower(string(t)) == key {
			return t, true
		}
	}
	return "", false
}
