package cli

var (
	ParseNow             = parseNow
	PrintImportSummary   = printImportSummary
	PrintDigest          = printDigest
	PrintSchemaSummary   = printSchemaSummary
	CheckLocalAttributes = checkLocalAttributes
)
