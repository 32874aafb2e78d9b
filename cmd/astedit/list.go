package main

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/meigma/astedit"
)

func newFolderCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "folder DIR",
		Short: "List the root containers of a game folder",
		Long:  "List the .ast root containers in DIR, or in DIR/PS3_GAME/USRDIR when present.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, _, err := newEditor(cmd, opts)
			if err != nil {
				return err
			}
			defer ed.Close()

			sessions, err := ed.OpenFolder(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KEY\tNAME\tSIZE\tCHANGED")
			for _, s := range sessions {
				changed, err := ed.Changed(s.Key)
				if err != nil {
					return err
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", s.Key, s.Name, s.HumanSize(), len(changed))
			}
			return tw.Flush()
		},
	}
}

type lsOptions struct {
	recursive bool
	previews  bool
}

func newLsCmd(opts *globalOptions) *cobra.Command {
	lo := &lsOptions{}
	cmd := &cobra.Command{
		Use:   "ls ROOT [NODE]",
		Short: "List a root container or a nested container",
		Long: "List the entries of ROOT, or of the nested container at NODE (an index path such as 689_4). " +
			"ROOT may be an http(s) URL served with range support.",
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, logger, err := newEditor(cmd, opts)
			if err != nil {
				return err
			}
			defer ed.Close()

			addr, err := openRoot(cmd.Context(), ed, args[0], nodeArg(args, 1))
			if err != nil {
				return err
			}
			c, err := ed.Read(cmd.Context(), addr,
				astedit.ReadWithPreviews(lo.previews),
				astedit.ReadWithRecursive(lo.recursive),
			)
			if err != nil {
				return err
			}
			changed, err := ed.Changed(addr.Root)
			if err != nil {
				return err
			}
			if lo.previews {
				stats := ed.PreviewStats()
				logger.Debug("preview cache", "hits", stats.Hits, "misses", stats.Misses)
			}
			return printContainer(cmd.OutOrStdout(), addr, c, changed)
		},
	}
	cmd.Flags().BoolVarP(&lo.recursive, "recursive", "r", false, "List nested containers at every depth")
	cmd.Flags().BoolVar(&lo.previews, "previews", false, "Render texture previews and mark entries that have one")
	return cmd
}

func printContainer(w io.Writer, addr astedit.Address, c *astedit.Container, changed []astedit.Address) error {
	marked := make(map[string]bool, len(changed))
	for _, a := range changed {
		marked[a.String()] = true
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "# %s  %d entries  %s\n", addr, len(c.Entries), humanize.Bytes(uint64(max(c.Size, 0))))
	fmt.Fprintln(tw, "ADDRESS\tKIND\tFORMAT\tSTORED\tSIZE\tFLAGS\tDESCRIPTION")
	writeEntries(tw, addr, c, marked)
	return tw.Flush()
}

func writeEntries(w io.Writer, addr astedit.Address, c *astedit.Container, marked map[string]bool) {
	for _, e := range c.Entries {
		node := addr.Child(e.Index)
		size := e.RawSize
		if e.Compressed() {
			size = e.UncompressedSize
		}
		kind := e.Kind.String()
		if !e.Sniffed() {
			kind = "-"
		}
		format := ""
		if e.Kind.IsTexture() {
			format = e.Format.String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			node, kind, format,
			humanize.Bytes(e.RawSize), humanize.Bytes(size),
			entryFlags(e, marked[node.String()]), e.Description)
		if e.Nested != nil {
			writeEntries(w, node, e.Nested, marked)
		}
	}
}

// entryFlags returns z for compressed, p for a rendered preview and * for
// a node changed since its pristine snapshot.
func entryFlags(e *astedit.Entry, changed bool) string {
	var flags []string
	if e.Compressed() {
		flags = append(flags, "z")
	}
	if e.Preview != "" {
		flags = append(flags, "p")
	}
	if changed {
		flags = append(flags, "*")
	}
	if len(flags) == 0 {
		return "-"
	}
	return strings.Join(flags, "")
}

func newChangedCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "changed ROOT",
		Short: "List nodes of ROOT imported over since their pristine snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, _, err := newEditor(cmd, opts)
			if err != nil {
				return err
			}
			defer ed.Close()

			addr, err := openRoot(cmd.Context(), ed, args[0], "")
			if err != nil {
				return err
			}
			changed, err := ed.Changed(addr.Root)
			if err != nil {
				return err
			}
			nodes := make([]string, len(changed))
			for i, a := range changed {
				nodes[i] = a.NodeKey()
			}
			slices.Sort(nodes)
			for _, n := range nodes {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func nodeArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return ""
}
