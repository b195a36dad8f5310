package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sennetconsortium/senotype-editor/modules/senotype/infrastructure/lookup"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/services"
	"github.com/sennetconsortium/senotype-editor/pkg/editor"
)

type importOptions struct {
	file       string
	regulating bool
}

func newImportMarkersCmd() *cobra.Command {
	var opts importOptions
	cmd := &cobra.Command{
		Use:   "import-markers",
		Short: "Validate a marker import file against the gene and protein lookups (dry run)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(opts.file) == "" {
				return withCode(exitUsage, fmt.Errorf("--file is required"))
			}
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			defer conf.Unload()
			log := conf.Logger().WithField("component", "import-markers")
			importer := editor.Importer{
				Fetcher:  lookup.NewFetcherFromConfig(conf.Lookup, log, nil),
				Profiles: services.NewCatalog(lookup.Profiles(conf.Lookup)).ImportProfiles(),
			}
			return runImportMarkers(cmd.Context(), importer, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&opts.file, "file", "", "marker file (.csv or .xlsx)")
	cmd.Flags().BoolVar(&opts.regulating, "regulating", false, "validate as regulating markers (requires an action column)")
	return cmd
}

// importSummary is the last line written by import-markers.
type importSummary struct {
	File    string `json:"file"`
	Total   int    `json:"total"`
	Valid   int    `json:"valid"`
	Invalid int    `json:"invalid"`
}

// runImportMarkers writes one JSON line per validated record and per error,
// then a summary. Any error makes the run fail with the validation exit code.
func runImportMarkers(ctx context.Context, importer editor.Importer, opts importOptions, out io.Writer) error {
	f, err := os.Open(opts.file)
	if err != nil {
		return withCode(exitUsage, err)
	}
	defer f.Close()

	var (
		rows      []editor.ImportRow
		parseErrs []editor.ImportError
	)
	switch strings.ToLower(filepath.Ext(opts.file)) {
	case ".xlsx":
		rows, parseErrs, err = editor.ReadXLSX(f, opts.regulating)
	case ".csv", ".txt":
		rows, parseErrs, err = editor.ReadCSV(f, opts.regulating)
	default:
		return withCode(exitUsage, fmt.Errorf("unsupported file type %q (expected .csv or .xlsx)", filepath.Ext(opts.file)))
	}
	if err != nil {
		return withCode(exitValidation, err)
	}

	list := "marker"
	if opts.regulating {
		list = "regmarker"
	}
	report := importer.Validate(ctx, list, rows, parseErrs)
	if err := ctx.Err(); err != nil {
		return withCode(exitLookup, err)
	}
	for _, rec := range report.Records {
		if err := writeJSONLine(out, rec); err != nil {
			return err
		}
	}
	for _, e := range report.Errors {
		if err := writeJSONLine(out, e); err != nil {
			return err
		}
	}
	summary := importSummary{File: filepath.Base(opts.file), Total: report.Total, Valid: len(report.Records), Invalid: len(report.Errors)}
	if err := writeJSONLine(out, summary); err != nil {
		return err
	}
	if !report.Ready() {
		return withCode(exitValidation, fmt.Errorf("%d of %d rows failed validation", len(report.Errors), report.Total))
	}
	return nil
}
