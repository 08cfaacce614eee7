package filesync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// Export copies every file from the sandboxed directory into a directory the
// user picks. It returns the number of files copied. A canceled picker
// returns ErrPickCanceled.
func (s *Session) Export(ctx context.Context, picker DirectoryPicker) (int, error) {
	if s.handles.Kind() != KindSandboxed {
		return 0, ErrNotSandboxed
	}
	if picker == nil {
		return 0, fmt.Errorf("export picker: %w", ErrUnsupported)
	}
	src, err := s.handles.Current(ctx)
	if err != nil {
		return 0, err
	}

	target, err := picker.PickDirectory(ctx, PurposeExport)
	if err != nil {
		return 0, err
	}
	target = strings.TrimSpace(target)
	if target == "" {
		return 0, ErrPickCanceled
	}
	if err := checkWritableDir(s.fs, target); err != nil {
		return 0, err
	}
	dst := newDirectory(KindUserSelected, target, s.fs)

	files, err := src.List()
	if err != nil {
		return 0, err
	}
	copied := 0
	var errs []error
	for _, f := range files {
		data, err := src.ReadFile(f.Name)
		if err == nil {
			err = dst.WriteFile(f.Name, data)
		}
		if err != nil {
			errs = append(errs, &FileError{Name: f.Name, Err: err})
			s.log.Warn("failed to export file", zap.String("file", f.Name), zap.Error(err))
			continue
		}
		copied++
	}
	exportedFiles.Add(float64(copied))
	s.log.Info("exported notes", zap.String("dir", target), zap.Int("files", copied), zap.Int("failed", len(errs)))
	return copied, errors.Join(errs...)
}
