package logging

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGELFHandler returns a JSON handler shipping records to a Graylog GELF UDP input,
// and the writer to close on shutdown.
func NewGELFHandler(address, level string) (slog.Handler, io.Closer, error) {
	w, err := gelf.NewWriter(address)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create GELF writer for %s: %w", address, err)
	}
	return slog.NewJSONHandler(w, HandlerOptions(level)), w, nil
}
