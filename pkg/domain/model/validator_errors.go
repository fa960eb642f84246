package model

import "github.com/m-mizutani/goerr/v2"

// Validation errors
var (
	ErrInvalidAttributeType  = goerr.New("invalid attribute type")
	ErrInvalidAttributeValue = goerr.New("invalid attribute value")
	ErrInvalidOption         = goerr.New("value is not one of the attribute options")
	ErrMissingRequired       = goerr.New("required attribute is missing")
)

// Context keys for error values
const (
	AttributeIDKey    = "attribute_id"
	AttributeTypeKey  = "attribute_type"
	AttributeValueKey = "attribute_value"
	OptionKey         = "option"
)
