package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	apperrors "github.com/Zachacious/go-slsdoc/internal/errors"
	"github.com/Zachacious/go-slsdoc/internal/generator"
	"github.com/spf13/cobra"
)

// These variables are set at build time with -ldflags "-X main.version=..."
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var (
		opts    generator.Options
		verbose bool
	)

	var rootCmd = &cobra.Command{
		Use:   "slsdoc",
		Short: "slsdoc generates an OpenAPI document from a serverless project.",
		Long: `slsdoc reads the HTTP routes of a serverless.yml manifest, scans the
referenced handler files for @apidoc comment blocks and writes an OpenAPI 3
document. Routes without annotations are still documented with defaults.

An "authorization: user" annotation is written as the OpenAPI security
requirement list "security: [{user: []}]", and a list of names becomes one
requirement holding every scheme.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("Generating OpenAPI document for project at: %s\n", opts.SourceFolder)
			doc, err := generator.Generate(opts)
			if err != nil {
				return err
			}
			fmt.Printf("Documented %d paths.\n", doc.Paths.Len())
			fmt.Printf("Successfully generated OpenAPI document at: %s\n", opts.OutputPath)
			return nil
		},
	}

	var versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of slsdoc",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("slsdoc version %s\n", version)
			fmt.Printf("commit: %s\n", commit)
			fmt.Printf("built at: %s\n", date)
		},
	}
	rootCmd.AddCommand(versionCmd)

	flags := rootCmd.Flags()
	flags.StringVarP(&opts.SourceFolder, "in", "i", ".", "Serverless project folder containing the manifest")
	flags.StringVarP(&opts.OutputPath, "out", "o", "openapi.yml", "Output file for the OpenAPI document")
	flags.StringVar(&opts.ServerURL, "server-url", "", "URL of the server entry (default from .slsdoc.yaml or http://localhost:5000/)")
	flags.StringVarP(&opts.ServerName, "server-name", "s", "", "Description of the server entry")
	flags.StringVar(&opts.Title, "title", "", "Document title")
	flags.StringVar(&opts.Version, "api-version", "", "Document version")
	flags.StringVar(&opts.Format, "format", "", "Output format, yaml or json (default from the output extension)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Log every scanned file and documented route")

	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "Error (%s): %v\n", apperrors.GetKind(err), err)
	attrs := apperrors.GetAttributes(err)
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(os.Stderr, "  %s: %v\n", k, attrs[k])
	}
}
