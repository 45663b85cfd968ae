package analyzer

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/Zachacious/go-slsdoc/internal/config"
	apperrors "github.com/Zachacious/go-slsdoc/internal/errors"
	"github.com/Zachacious/go-slsdoc/internal/model"
	"golang.org/x/sync/errgroup"
)

// Analyzer scans the handler files of one project.
type Analyzer struct {
	projectPath string
	extensions  []string
}

// New creates an Analyzer rooted at projectPath. Handler references are
// resolved by trying cfg.HandlerExtensions in order.
func New(projectPath string, cfg *config.Config) *Analyzer {
	exts := cfg.HandlerExtensions
	if len(exts) == 0 {
		exts = config.Default().HandlerExtensions
	}
	return &Analyzer{projectPath: projectPath, extensions: exts}
}

// ScanHandlers reads and scans every file concurrently. Each file gets its
// own goroutine and result slot; nothing is shared between scans. The first
// failure aborts the whole scan.
func (a *Analyzer) ScanHandlers(files []string) (model.DocIndex, error) {
	results := make([]model.HandlerDocIndex, len(files))

	var g errgroup.Group
	for i, file := range files {
		i, file := i, file
		g.Go(func() error {
			src, path, err := a.readHandler(file)
			if err != nil {
				return err
			}
			index, err := ScanSource(file, src)
			if err != nil {
				return apperrors.Attr(err, "path", path)
			}
			slog.Debug("scanned handler file", "file", path, "documented", len(index))
			results[i] = index
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	docs := make(model.DocIndex, len(files))
	for i, file := range files {
		docs[file] = results[i]
	}
	return docs, nil
}

// readHandler resolves a handler file (given without extension) to the
// first existing candidate.
func (a *Analyzer) readHandler(file string) ([]byte, string, error) {
	base := filepath.Join(a.projectPath, filepath.FromSlash(file))
	for _, ext := range a.extensions {
		path := base + ext
		data, err := os.ReadFile(path)
		if err == nil {
			return data, path, nil
		}
		if !os.IsNotExist(err) {
			return nil, path, apperrors.Attr(
				apperrors.Wrapf(err, apperrors.KindHandlerFileMissing, "read handler %s", file),
				"file", path)
		}
	}
	err := apperrors.Errorf(apperrors.KindHandlerFileMissing, "handler file %s not found", file)
	err = apperrors.Attr(err, "file", file)
	return nil, "", apperrors.Attr(err, "extensions", a.extensions)
}

// ScanSource builds the doc index of one handler file's content. Handlers
// without a comment or without an @apidoc tag get no entry. A malformed
// fragment fails the whole file.
func ScanSource(file string, src []byte) (model.HandlerDocIndex, error) {
	index := make(model.HandlerDocIndex)
	for _, sym := range ExtractAnnotatedSymbols(string(src)) {
		fragment, found, err := ParseAPIDoc(sym.Comment)
		if err != nil {
			err = apperrors.Attr(err, "file", file)
			err = apperrors.Attr(err, "symbol", sym.Name)
			return nil, apperrors.Attr(err, "line", sym.Line)
		}
		if !found {
			slog.Debug("handler has no @apidoc fragment", "file", file, "symbol", sym.Name)
			continue
		}
		if _, dup := index[sym.Name]; dup {
			slog.Warn("duplicate @apidoc for symbol, keeping the later one", "file", file, "symbol", sym.Name)
		}
		index[sym.Name] = fragment
	}
	return index, nil
}
