package converter

import "github.com/m-mizutani/goerr/v2"

var (
	ErrSessionClosed       = goerr.New("import session is closed")
	ErrInvalidCommitPolicy = goerr.New("invalid commit policy")
)
