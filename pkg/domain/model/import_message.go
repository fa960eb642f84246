package model

import "fmt"

// Import message formats. Every message is prefixed with "Line <n>: " by
// LineMessage, where n is the 1-based file line of the row (or of the header
// row for block messages).
const (
	// Block errors
	MsgUnknownObjectType = "Unknown object type '%s'. The block will be ignored."
	MsgEmptyHeader       = "The block has no header row. The block will be ignored."
	MsgDuplicateColumns  = "Duplicate column names %s. The block will be ignored."

	// Block warnings
	MsgUnknownColumn      = "Attribute '%s' does not exist. Column will be ignored."
	MsgUnsupportedMapping = "Mapping of %s to %s is not supported. Column '%s' will be ignored."

	// Row errors
	MsgMissingColumn    = "Missing mandatory column%s %s, when adding object. The line will be ignored."
	MsgMissingValue     = "Field '%s' is required. The line will be ignored."
	MsgArchivedImport   = "Importing archived instance is prohibited. The line will be ignored."
	MsgDuplicateInBlock = "Field 'Code' contains duplicate value '%s' (first used on line %d). The line will be ignored."
	MsgDeleteNewObject  = "Tried to delete and create a new object on the same line. The line will be ignored."

	// Row warnings
	MsgUnknownObject          = "%s '%s' doesn't exist, so it can't be mapped/unmapped."
	MsgWrongValue             = "Field '%s' contains invalid data. The value will be ignored."
	MsgWrongValueDefault      = "Field '%s' contains invalid data '%s'. The default value will be used."
	MsgUnknownAttribute       = "Object does not contain attribute '%s'. The value will be ignored."
	MsgUnmodifiableColumn     = "Column '%s' can not be modified. The value will be ignored."
	MsgExportOnly             = "Field '%s' is export only and can not be imported. The value will be ignored."
	MsgStateWillBeIgnored     = "State will be ignored since the verifiers of the object were changed. The object is moved to 'In Progress'."
	MsgNoVerifier             = "Object without verifiers can not be moved to '%s' state. The state will be ignored."
	MsgOwnerMissing           = "Field '%s' does not contain a valid owner. The role will be left empty."
	MsgIssueSnapshotMap       = "%s versions can not be mapped to an Issue. The mapping will be ignored."
	MsgSingleAuditRestriction = "You can not map %s to %s, because this %s is already mapped to an audit."
	MsgEvidenceFileReadOnly   = "'Evidence File' can't be changed via import. Please go on Assessment page and make changes manually. The column will be skipped"
	MsgInvalidEmail           = "Field '%s' contains invalid email '%s'. The value will be ignored."
)

// LineMessage formats an import message for the given file line
func LineMessage(line int, format string, args ...any) string {
	return fmt.Sprintf("Line %d: ", line) + fmt.Sprintf(format, args...)
}
