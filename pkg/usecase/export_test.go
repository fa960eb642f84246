package usecase

// NumberLines is exported for testing
var NumberLines = numberLines
