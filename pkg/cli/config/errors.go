package config

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for configuration validation
var (
	ErrConfigNotFound       = goerr.New("configuration file not found")
	ErrInvalidConfig        = goerr.New("invalid configuration")
	ErrDuplicateRole        = goerr.New("duplicate role")
	ErrDuplicateAttribute   = goerr.New("duplicate custom attribute")
	ErrInvalidObjectType    = goerr.New("invalid object type")
	ErrInvalidAttributeType = goerr.New("invalid attribute type")
	ErrMissingOptions       = goerr.New("dropdown/multiselect attribute requires at least one option")
	ErrMissingName          = goerr.New("name is required")
	ErrInvalidStatus        = goerr.New("invalid status")
	ErrInvalidTimeZone      = goerr.New("invalid time zone")
)

// Context keys for error values
const (
	ConfigPathKey     = "config_path"
	ObjectTypeKey     = "object_type"
	RoleNameKey       = "role_name"
	RoleIndexKey      = "role_index"
	AttributeTitleKey = "attribute_title"
	AttributeTypeKey  = "attribute_type"
	AttributeIndexKey = "attribute_index"
	StatusKey         = "status"
)
