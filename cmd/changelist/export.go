package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/changelist/export"
)

var (
	exportFilters []string
	exportSearch  string
	exportOrder   string
	exportOutput  string
)

var exportCmd = &cobra.Command{
	Use:   "export <model>",
	Short: "Export the filtered result set to a file",
	Long: `Export every record matching the filters, not just one page, in
the format given by --format. Without --output the file lands in a
fresh temporary directory. With --dry-run, report what would be
written instead of writing it.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringArrayVar(&exportFilters, "filter", nil, "field lookup as field=value (repeatable)")
	exportCmd.Flags().StringVarP(&exportSearch, "search", "s", "", "search query")
	exportCmd.Flags().StringVar(&exportOrder, "order", "", "comma-separated column indexes, '-' descends")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output file path")
}

func runExport(cmd *cobra.Command, args []string) error {
	site, db, err := openSite()
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	admin, err := adminFor(site, args[0])
	if err != nil {
		return err
	}
	values, err := queryValues(exportFilters, exportSearch, exportOrder, 0, false)
	if err != nil {
		return err
	}
	cl, err := admin.ChangeList(cmd.Context(), values)
	if err != nil {
		return err
	}

	opts := export.Options{Format: viperInst.GetString("format")}

	if viperInst.GetBool("dry-run") {
		meta, err := export.GetMetadata(cmd.Context(), cl, opts)
		if err != nil {
			return err
		}
		target := exportOutput
		if target == "" {
			target = meta.Filename
		}
		fmt.Fprintf(cmd.OutOrStdout(), "would export %d rows to %s (%s)\n",
			meta.Rows, target, humanize.Bytes(uint64(meta.SizeBytes)))
		return nil
	}

	data, err := export.Generate(cmd.Context(), cl, opts)
	if err != nil {
		return err
	}

	outputPath := exportOutput
	if outputPath == "" {
		tempDir, err := os.MkdirTemp("", "changelist-export-*")
		if err != nil {
			return fmt.Errorf("failed to create temp directory: %w", err)
		}
		outputPath = filepath.Join(tempDir, data.Filename)
	}
	if err := export.Write(cmd.Context(), data, outputPath, nil); err != nil {
		return err
	}

	mainLogger.Info("exported change list",
		"model", cl.Model.Table,
		"rows", data.Rows,
		"format", data.Format,
		"path", outputPath)
	if viperInst.GetBool("quiet") {
		fmt.Fprintln(cmd.OutOrStdout(), outputPath)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "exported %d rows to %s\n", data.Rows, outputPath)
	}
	return nil
}
