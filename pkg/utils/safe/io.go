package safe

import (
	"context"
	"io"
	"log/slog"

	"github.com/secmon-lab/grcbook/pkg/utils/logging"
)

// Close closes closer and logs a failure with the given attributes.
// A nil closer is ignored.
func Close(ctx context.Context, closer io.Closer, attrs ...any) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		args := append([]any{slog.Any("error", err)}, attrs...)
		logging.From(ctx).Error("failed to close", args...)
	}
}

// Write writes data and logs a failure. Used for response bodies where the
// client may already be gone.
func Write(ctx context.Context, w io.Writer, data []byte) {
	if w == nil {
		return
	}
	if _, err := w.Write(data); err != nil {
		logging.From(ctx).Warn("failed to write response", slog.Any("error", err), slog.Int("bytes", len(data)))
	}
}
