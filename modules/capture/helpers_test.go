package capture

import (
	"errors"
	"io"
	"log/slog"
)

var errTest = errors.New("boom")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
