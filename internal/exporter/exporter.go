// Package exporter rasterizes chart cards to PNG and delivers the file.
package exporter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"

	"github.com/naka-gawa/gitgraph/internal/domain"
)

// Suffix is appended to the requested file name.
const Suffix = "_gitgraph.png"

// Node is something that can be rasterized, such as a rendered chart card.
type Node interface {
	WritePNG(ctx context.Context, w io.Writer) error
}

// Sink delivers a finished image under a file name.
type Sink interface {
	Save(ctx context.Context, name string, data []byte) error
}

// FileName returns the artifact name for base.
func FileName(base string) string { return base + Suffix }

// Exporter turns nodes into PNG artifacts.
type Exporter struct {
	sink   Sink
	logger *slog.Logger
}

// New returns an Exporter delivering to sink.
func New(sink Sink, logger *slog.Logger) *Exporter {
	return &Exporter{sink: sink, logger: logger}
}

// Export rasterizes node and saves it as "<fileName>_gitgraph.png".
// A nil node is a no-op. Every failure, including a panic while drawing,
// is returned as *domain.ExportError.
func (e *Exporter) Export(ctx context.Context, node Node, fileName string) (err error) {
	if isNil(node) {
		return nil
	}
	name := FileName(fileName)
	defer func() {
		if r := recover(); r != nil {
			err = &domain.ExportError{FileName: name, Message: "Failed to render image", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	var buf bytes.Buffer
	if err := node.WritePNG(ctx, &buf); err != nil {
		return &domain.ExportError{FileName: name, Message: "Failed to render image", Err: err}
	}
	if err := e.sink.Save(ctx, name, buf.Bytes()); err != nil {
		return &domain.ExportError{FileName: name, Message: "Failed to save image", Err: err}
	}
	e.logger.Debug("Exported chart card", "file", name, "bytes", buf.Len())
	return nil
}

// isNil also catches typed nil pointers stored in the interface.
func isNil(node Node) bool {
	if node == nil {
		return true
	}
	v := reflect.ValueOf(node)
	return v.Kind() == reflect.Ptr && v.IsNil()
}
