package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/meigma/astedit"
)

// parseConvert parses a "from:to" conversion flag such as "p3r:dds".
func parseConvert(s string) (astedit.Conversion, error) {
	if s == "" {
		return astedit.ConvertNone, nil
	}
	from, to, ok := strings.Cut(s, ":")
	if !ok {
		return astedit.ConvertNone, fmt.Errorf("%w: want FROM:TO, got %q", astedit.ErrConversion, s)
	}
	c, err := astedit.ParseConversion(from, to)
	if err != nil {
		return astedit.ConvertNone, fmt.Errorf("%w: %q", err, s)
	}
	return c, nil
}

func newExportCmd(opts *globalOptions) *cobra.Command {
	var (
		decompress bool
		convert    string
	)
	cmd := &cobra.Command{
		Use:   "export ROOT NODE DEST",
		Short: "Write one node of ROOT to a file",
		Long: "Write the node at NODE (an index path such as 689_4) to DEST. Compressed " +
			"entries are written as stored unless --decompress is given.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := parseConvert(convert)
			if err != nil {
				return err
			}
			ed, _, err := newEditor(cmd, opts)
			if err != nil {
				return err
			}
			defer ed.Close()

			addr, err := openRoot(cmd.Context(), ed, args[0], args[1])
			if err != nil {
				return err
			}
			n, err := ed.ExportFile(cmd.Context(), addr, args[2],
				astedit.ExportWithDecompress(decompress),
				astedit.ExportWithConversion(conv),
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %s to %s (%s)\n", addr.NodeKey(), args[2], humanize.Bytes(uint64(n)))
			return nil
		},
	}
	cmd.Flags().BoolVarP(&decompress, "decompress", "d", false, "Inflate compressed entries")
	cmd.Flags().StringVar(&convert, "convert", "", "Rewrite the header tag, e.g. p3r:dds")
	return cmd
}

func newImportCmd(opts *globalOptions) *cobra.Command {
	var (
		raw          bool
		deflateSrc   bool
		convert      string
		forcePreview bool
	)
	cmd := &cobra.Command{
		Use:   "import ROOT NODE SRC",
		Short: "Replace one node of ROOT with the contents of a file",
		Long: "Replace the node at NODE with SRC and rewrite ROOT in place. A SRC that is " +
			"a complete zlib stream, as written by export, is stored as is in a compressed " +
			"entry and anything else is deflated. --raw and --deflate force either reading. " +
			"The node's original bytes are snapshotted on its first import.",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			conv, err := parseConvert(convert)
			if err != nil {
				return err
			}
			ed, logger, err := newEditor(cmd, opts)
			if err != nil {
				return err
			}
			defer ed.Close()

			addr, err := openRoot(cmd.Context(), ed, args[0], args[1])
			if err != nil {
				return err
			}
			importOpts := []astedit.ImportOption{
				astedit.ImportWithConversion(conv),
				astedit.ImportWithForcePreview(forcePreview),
			}
			switch {
			case raw:
				importOpts = append(importOpts, astedit.ImportWithCompress(false))
			case deflateSrc:
				importOpts = append(importOpts, astedit.ImportWithCompress(true))
			}
			res, err := ed.ImportFile(cmd.Context(), addr, args[2], importOpts...)
			if err != nil {
				return err
			}
			if res.Preview != "" {
				logger.Debug("import preview", "address", addr.String(), "bytes", len(res.Preview))
			}
			if !res.Changed {
				fmt.Fprintf(cmd.OutOrStdout(), "%s unchanged\n", addr.NodeKey())
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s into %s (%s)\n",
				args[2], addr.NodeKey(), humanize.Bytes(uint64(len(res.Data))))
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "SRC is already deflated; store it as is")
	cmd.Flags().BoolVar(&deflateSrc, "deflate", false, "SRC is plain content; always deflate it")
	cmd.MarkFlagsMutuallyExclusive("raw", "deflate")
	cmd.Flags().StringVar(&convert, "convert", "", "Rewrite the header tag, e.g. dds:p3r")
	cmd.Flags().BoolVar(&forcePreview, "force-preview", false, "Render a preview even if the old entry was not a texture")
	return cmd
}

func newRevertCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "revert ROOT NODE",
		Short: "Restore a node of ROOT to its pristine bytes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.noPristine {
				return fmt.Errorf("%w: revert needs pristine snapshots", astedit.ErrNotChanged)
			}
			ed, _, err := newEditor(cmd, opts)
			if err != nil {
				return err
			}
			defer ed.Close()

			addr, err := openRoot(cmd.Context(), ed, args[0], args[1])
			if err != nil {
				return err
			}
			if _, err := ed.Revert(cmd.Context(), addr); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reverted %s\n", addr.NodeKey())
			return nil
		},
	}
}

func newExtractCmd(opts *globalOptions) *cobra.Command {
	var (
		stored    bool
		recursive bool
		overwrite bool
	)
	cmd := &cobra.Command{
		Use:   "extract ROOT [NODE] DIR",
		Short: "Write every entry of a container to its own file",
		Long: "Write each entry of ROOT, or of the nested container at NODE, to DIR as " +
			"<index>.<kind>. Existing files are skipped unless --overwrite is given.",
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, _, err := newEditor(cmd, opts)
			if err != nil {
				return err
			}
			defer ed.Close()

			node := ""
			if len(args) == 3 {
				node = args[1]
			}
			dir := args[len(args)-1]
			addr, err := openRoot(cmd.Context(), ed, args[0], node)
			if err != nil {
				return err
			}
			stats, err := ed.Extract(cmd.Context(), addr, dir,
				astedit.ExtractWithDecompress(!stored),
				astedit.ExtractWithRecursive(recursive),
				astedit.ExtractWithOverwrite(overwrite),
			)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "extracted %d files to %s (%s, %d skipped)\n",
				stats.Processed, dir, humanize.Bytes(stats.Bytes), stats.Skipped)
			return nil
		},
	}
	cmd.Flags().BoolVar(&stored, "stored", false, "Write compressed entries as stored zlib streams")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Extract nested containers into subdirectories")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace existing files")
	return cmd
}
