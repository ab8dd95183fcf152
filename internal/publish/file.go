package publish

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"course-dedupe/internal/export"
)

// FileSink writes documents into a local directory.
type FileSink struct {
	Dir string
}

func NewFileSink(dir string) *FileSink {
	if dir == "" {
		dir = "."
	}
	return &FileSink{Dir: dir}
}

func (s *FileSink) Name() string { return "file:" + s.Dir }

func (s *FileSink) Publish(_ context.Context, doc export.Document) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("file sink: mkdir %s: %w", s.Dir, err)
	}
	p := filepath.Join(s.Dir, filepath.Base(doc.Name))
	// write then rename so readers never see a half written report
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, doc.Data, 0o644); err != nil {
		return fmt.Errorf("file sink: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("file sink: rename %s: %w", p, err)
	}
	return nil
}
