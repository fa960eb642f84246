package usecase

import "github.com/m-mizutani/goerr/v2"

// Sentinel errors for use case layer
var (
	ErrUnknownObjectType = goerr.New("unknown object type")
	ErrNoExportQuery     = goerr.New("no export query given")
	ErrNoExportStore     = goerr.New("export store is not configured")
	ErrNoNotifier        = goerr.New("no digest notifier is configured")
	ErrInvalidStatus     = goerr.New("invalid status for object type")
)

// Context keys for error values
const (
	ObjectTypeKey = "object_type"
	FileNameKey   = "file_name"
	RecipientKey  = "recipient"
	RecordSlugKey = "record_slug"
	StatusKey     = "status"
)
