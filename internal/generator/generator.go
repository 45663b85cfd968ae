// Package generator runs the whole pipeline: read the manifest, scan the
// handler files, merge routes with their documentation, build the document
// and write it out.
package generator

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Zachacious/go-slsdoc/internal/analyzer"
	"github.com/Zachacious/go-slsdoc/internal/assembler"
	"github.com/Zachacious/go-slsdoc/internal/config"
	apperrors "github.com/Zachacious/go-slsdoc/internal/errors"
	"github.com/Zachacious/go-slsdoc/internal/manifest"
	"github.com/Zachacious/go-slsdoc/internal/model"
	"github.com/getkin/kin-openapi/openapi3"
	"sigs.k8s.io/yaml"
)

const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

// Options configures one generation run. Empty fields fall back to the
// project's .slsdoc.yaml and then to the built-in defaults.
type Options struct {
	SourceFolder string
	OutputPath   string
	ServerURL    string
	ServerName   string
	Title        string
	Version      string
	// Format is "yaml" or "json"; inferred from OutputPath when empty.
	Format string
}

// Generate produces the document for opts.SourceFolder and writes it to
// opts.OutputPath. Nothing is written when any stage fails.
func Generate(opts Options) (*openapi3.T, error) {
	doc, data, err := Build(opts)
	if err != nil {
		return nil, err
	}
	if err := writeAtomic(opts.OutputPath, data); err != nil {
		return nil, err
	}
	slog.Info("wrote OpenAPI document", "path", opts.OutputPath, "bytes", len(data))
	return doc, nil
}

// Build runs every stage but the write and returns the document together
// with its rendered bytes.
func Build(opts Options) (*openapi3.T, []byte, error) {
	format, err := resolveFormat(opts.Format, opts.OutputPath)
	if err != nil {
		return nil, nil, err
	}

	cfg, err := config.Load(opts.SourceFolder)
	if err != nil {
		return nil, nil, err
	}

	manifestPath := filepath.Join(opts.SourceFolder, cfg.Manifest)
	defs, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("manifest loaded", "path", manifestPath, "functions", len(defs))

	files := model.HandlerFiles(defs)
	docs, err := analyzer.New(opts.SourceFolder, cfg).ScanHandlers(files)
	if err != nil {
		return nil, nil, err
	}
	slog.Info("handler files scanned", "files", len(files))

	paths, err := assembler.MergeRoutes(defs, docs)
	if err != nil {
		return nil, nil, err
	}

	doc := assembler.BuildSpec(paths, docOptions(cfg, opts), cfg.SecuritySchemes)
	data, err := Render(doc, format)
	if err != nil {
		return nil, nil, err
	}
	return doc, data, nil
}

// docOptions layers command-line values over the project configuration.
func docOptions(cfg *config.Config, opts Options) config.DocOptions {
	doc := cfg.DocOptions()
	if opts.Title != "" {
		doc.Title = opts.Title
	}
	if opts.Version != "" {
		doc.Version = opts.Version
	}
	if opts.ServerURL != "" {
		doc.ServerURL = opts.ServerURL
	}
	if opts.ServerName != "" {
		doc.ServerName = opts.ServerName
	}
	return doc
}

// Render serialises doc. Both formats have sorted keys, so equal documents
// always render to equal bytes.
func Render(doc *openapi3.T, format string) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindOutput, "marshal document")
	}
	switch format {
	case FormatJSON:
		return append(data, '\n'), nil
	case FormatYAML, "":
		out, err := yaml.JSONToYAML(data)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.KindOutput, "convert document to yaml")
		}
		return out, nil
	}
	return nil, apperrors.Errorf(apperrors.KindOutput, "unknown output format %q", format)
}

func resolveFormat(format, outputPath string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case FormatJSON, FormatYAML:
		return format, nil
	case "":
		if strings.EqualFold(filepath.Ext(outputPath), ".json") {
			return FormatJSON, nil
		}
		return FormatYAML, nil
	}
	return "", apperrors.Errorf(apperrors.KindConfig, "unknown output format %q", format)
}

// writeAtomic replaces path with data through a temporary file in the same
// directory, so readers never observe a partial document.
func writeAtomic(path string, data []byte) error {
	if path == "" {
		return apperrors.New(apperrors.KindOutput, "no output path")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.Attr(apperrors.Wrap(err, apperrors.KindOutput, "create output directory"), "file", path)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return apperrors.Attr(apperrors.Wrap(err, apperrors.KindOutput, "create temp file"), "file", path)
	}
	tmpName := tmp.Name()
	fail := func(err error, msg string) error {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.Attr(apperrors.Wrap(err, apperrors.KindOutput, msg), "file", path)
	}

	if _, err := tmp.Write(data); err != nil {
		return fail(err, "write output")
	}
	if err := tmp.Chmod(0o644); err != nil {
		return fail(err, "chmod output")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.Attr(apperrors.Wrap(err, apperrors.KindOutput, "close output"), "file", path)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return apperrors.Attr(apperrors.Wrap(err, apperrors.KindOutput, fmt.Sprintf("rename into %s", path)), "file", path)
	}
	return nil
}
