// Command astedit lists, exports, imports and reverts nodes of ".ast" game
// archive containers.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"charm.land/log/v2"
	"github.com/spf13/cobra"

	"github.com/meigma/astedit"
)

type globalOptions struct {
	stateDir    string
	noPristine  bool
	logLevel    string
	concurrency int
	previewSize int
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	cmd := &cobra.Command{
		Use:          "astedit",
		Short:        "Edit nested .ast game archive containers",
		SilenceUsage: true,
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.stateDir, "state-dir", defaultStateDir(), "Directory for changed-node records and pristine snapshots")
	flags.BoolVar(&opts.noPristine, "no-pristine", false, "Do not record pristine snapshots (disables revert)")
	flags.StringVar(&opts.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.IntVar(&opts.concurrency, "concurrency", 0, "Entries parsed at once per container (0 = unlimited)")
	flags.IntVar(&opts.previewSize, "preview-size", astedit.DefaultPreviewSize, "Longer edge of texture previews in pixels")

	cmd.AddCommand(
		newFolderCmd(opts),
		newLsCmd(opts),
		newExportCmd(opts),
		newExtractCmd(opts),
		newImportCmd(opts),
		newRevertCmd(opts),
		newChangedCmd(opts),
	)
	return cmd
}

func defaultStateDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".astedit"
	}
	return filepath.Join(dir, "astedit")
}

func newLogger(w io.Writer, level string) (*slog.Logger, error) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:           lvl,
		Prefix:          "astedit",
		ReportTimestamp: true,
	})
	return slog.New(handler), nil
}

// newEditor builds an editor from the global flags. Progress is logged at
// debug level.
func newEditor(cmd *cobra.Command, opts *globalOptions) (*astedit.Editor, *slog.Logger, error) {
	logger, err := newLogger(cmd.ErrOrStderr(), opts.logLevel)
	if err != nil {
		return nil, nil, err
	}
	observer := astedit.ObserverFuncs{
		OnProgress: func(p int) {
			logger.Debug("progress", "percent", p)
		},
	}
	edOpts := []astedit.Option{
		astedit.WithLogger(logger),
		astedit.WithObserver(observer),
		astedit.WithConcurrency(opts.concurrency),
		astedit.WithPreviewSize(opts.previewSize),
	}
	if !opts.noPristine {
		edOpts = append(edOpts, astedit.WithPristineDir(opts.stateDir))
	}
	ed, err := astedit.NewEditor(edOpts...)
	if err != nil {
		return nil, nil, err
	}
	return ed, logger, nil
}

// openRoot opens path as the only session and returns the address of node
// (a path such as "689_4", or "" for the root) inside it. Paths starting
// with http:// or https:// are opened read-only over HTTP.
func openRoot(ctx context.Context, ed *astedit.Editor, path, node string) (astedit.Address, error) {
	open := ed.OpenFile
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		open = ed.OpenURL
	}
	s, err := open(ctx, path)
	if err != nil {
		return astedit.Address{}, err
	}
	return astedit.AddressFromNodeKey(s.Key, node)
}
