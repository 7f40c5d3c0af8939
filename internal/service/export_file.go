package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"pagecraft/internal/config"
)

// FileExport describes one project-file-to-archive run.
type FileExport struct {
	Input string
	// Output is the archive path; empty means <export.output_dir>/<input base>.zip.
	Output  string
	Title   string
	Analyze bool
}

// ExportFile loads a project document, optionally analyzes it and writes the
// archive. The archive is written to a temporary file and renamed into place
// so a watcher never leaves a half-written file behind. It returns the
// archive path.
func ExportFile(ctx context.Context, cfg *config.Config, fe FileExport, log *zap.Logger) (string, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	data, err := os.ReadFile(fe.Input)
	if err != nil {
		return "", fmt.Errorf("read project: %w", err)
	}
	s := NewSession(cfg, WithLogger(log))
	if err := s.LoadJSON(data); err != nil {
		return "", fmt.Errorf("load %s: %w", fe.Input, err)
	}
	if fe.Analyze {
		s.Analyze()
	}
	archive, err := s.Archive(ctx, fe.Title)
	if err != nil {
		return "", err
	}

	out := fe.Output
	if out == "" {
		base := strings.TrimSuffix(filepath.Base(fe.Input), filepath.Ext(fe.Input))
		out = filepath.Join(cfg.Export.OutputDir, base+".zip")
	}
	if err := writeAtomic(out, archive); err != nil {
		return "", err
	}
	log.Named("export").Info("archive written", zap.String("path", out), zap.Int("bytes", len(archive)))
	return out, nil
}

func writeAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pagecraft-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if err := tmp.Chmod(0644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod archive: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close archive: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename archive: %w", err)
	}
	return nil
}

// WriteArchive exports the session's page to path.
func (s *Session) WriteArchive(ctx context.Context, path, title string) (int, error) {
	data, err := s.Archive(ctx, title)
	if err != nil {
		return 0, err
	}
	if err := writeAtomic(path, data); err != nil {
		return 0, err
	}
	s.log.Info("archive written", zap.String("path", path), zap.Int("bytes", len(data)))
	return len(data), nil
}
