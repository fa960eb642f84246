package model

import (
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/domain/types"
)

// AttributeValidator type-checks raw spreadsheet values against custom
// attribute definitions and returns their canonical stored form
type AttributeValidator struct{}

// NewAttributeValidator creates a new AttributeValidator
func NewAttributeValidator() *AttributeValidator {
	return &AttributeValidator{}
}

// Normalize validates raw for def. raw must be non-empty; callers decide what
// an empty cell means. Map:Person values come back as normalized e-mail
// addresses, the caller resolves them to people.
func (v *AttributeValidator) Normalize(def *CustomAttributeDefinition, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", goerr.Wrap(ErrMissingRequired, "empty attribute value",
			goerr.V(AttributeIDKey, def.ID))
	}

	switch def.AttributeType {
	case types.AttributeTypeText, types.AttributeTypeRichText:
		return raw, nil
	case types.AttributeTypeDate:
		return v.normalizeDate(def, raw)
	case types.AttributeTypeDropdown:
		return v.normalizeDropdown(def, raw)
	case types.AttributeTypeCheckbox:
		return v.normalizeCheckbox(def, raw)
	case types.AttributeTypeMultiselect:
		return v.normalizeMultiselect(def, raw)
	case types.AttributeTypePerson:
		return v.normalizePerson(def, raw)
	default:
		return "", goerr.Wrap(ErrInvalidAttributeType, "unsupported attribute type",
			goerr.V(AttributeIDKey, def.ID),
			goerr.V(AttributeTypeKey, def.AttributeType))
	}
}

// normalizeDate stores dates as YYYY-MM-DD
func (v *AttributeValidator) normalizeDate(def *CustomAttributeDefinition, raw string) (string, error) {
	d, ok := ParseDate(raw)
	if !ok {
		return "", goerr.Wrap(ErrInvalidAttributeValue, "value is not a date",
			goerr.V(AttributeIDKey, def.ID),
			goerr.V(AttributeValueKey, raw))
	}
	return d.String(), nil
}

func (v *AttributeValidator) normalizeDropdown(def *CustomAttributeDefinition, raw string) (string, error) {
	opt, ok := matchOption(def.MultiChoiceOptions, raw)
	if !ok {
		return "", goerr.Wrap(ErrInvalidOption, "dropdown option not found",
			goerr.V(AttributeIDKey, def.ID),
			goerr.V(OptionKey, raw))
	}
	return opt, nil
}

// normalizeCheckbox stores "1" or "0"
func (v *AttributeValidator) normalizeCheckbox(def *CustomAttributeDefinition, raw string) (string, error) {
	b, ok := ParseBool(raw)
	if !ok {
		return "", goerr.Wrap(ErrInvalidAttributeValue, "value is not a checkbox state",
			goerr.V(AttributeIDKey, def.ID),
			goerr.V(AttributeValueKey, raw))
	}
	if b {
		return "1", nil
	}
	return "0", nil
}

// normalizeMultiselect matches each comma separated item case-insensitively
// and returns the canonical options in definition order
func (v *AttributeValidator) normalizeMultiselect(def *CustomAttributeDefinition, raw string) (string, error) {
	selected := make(map[string]bool)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		opt, ok := matchOption(def.MultiChoiceOptions, item)
		if !ok {
			return "", goerr.Wrap(ErrInvalidOption, "multiselect option not found",
				goerr.V(AttributeIDKey, def.ID),
				goerr.V(OptionKey, item))
		}
		selected[opt] = true
	}
	if len(selected) == 0 {
		return "", goerr.Wrap(ErrInvalidAttributeValue, "no options selected",
			goerr.V(AttributeIDKey, def.ID),
			goerr.V(AttributeValueKey, raw))
	}

	var out []string
	for _, opt := range def.MultiChoiceOptions {
		if selected[opt] {
			out = append(out, opt)
		}
	}
	return strings.Join(out, ","), nil
}

func (v *AttributeValidator) normalizePerson(def *CustomAttributeDefinition, raw string) (string, error) {
	email := NormalizeEmail(raw)
	if !IsValidEmail(email) {
		return "", goerr.Wrap(ErrInvalidAttributeValue, "value is not an e-mail address",
			goerr.V(AttributeIDKey, def.ID),
			goerr.V(AttributeValueKey, raw))
	}
	return email, nil
}

func matchOption(options []string, raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	for _, opt := range options {
		if strings.ToLower(strings.TrimSpace(opt)) == key {
			return opt, true
		}
	}
	return "", false
}

// ParseBool accepts the spreadsheet spellings of a boolean
func ParseBool(raw string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yes", "true", "1", "y", "on", "checked":
		return true, true
	case "no", "false", "0", "n", "off", "unchecked":
		return false, true
	default:
		return false, false
	}
}
