package async

import (
	"context"
	"fmt"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/utils/errutil"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
)

// Dispatch runs handler in a new goroutine detached from the request
// lifetime. The logger of ctx is carried over. Errors and panics are logged
// and reported under name.
func Dispatch(ctx context.Context, name string, handler func(ctx context.Context) error) {
	bgCtx := logging.With(context.Background(), logging.From(ctx))

	go func() {
		defer func() {
			if r := recover(); r != nil {
				_ = errutil.Handle(bgCtx, goerr.New(fmt.Sprintf("panic: %v", r), goerr.V("task", name)), "panic in background task")
			}
		}()

		if err := handler(bgCtx); err != nil {
			_ = errutil.Handle(bgCtx, err, "background task failed: "+name)
		}
	}()
}
