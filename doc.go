// Package astedit edits nested game archive containers (".ast" files) in
// place.
//
// A root container holds a table of contents whose entries may be zlib
// compressed and may themselves be containers. This package provides a
// unified high-level API through [Editor] for opening roots, listing
// containers, exporting nodes and importing replacements. For low-level
// container operations on any [io.ReaderAt], use the [core] subpackage.
//
// Nodes are named by addresses of the form "<root>[_<index>]*": the session
// key of an open root followed by the TOC index chosen at each level.
//
// # Quick Start
//
// Open a game folder and list a root:
//
//	ed, err := astedit.NewEditor(astedit.WithPristineDir(stateDir))
//	if err != nil {
//	    return err
//	}
//	defer ed.Close()
//	if _, err := ed.OpenFolder(ctx, "/games/BLUS30000"); err != nil {
//	    return err
//	}
//	root, err := ed.Read(ctx, astedit.Address{Root: "0"})
//
// Export a texture as DDS and import it back after editing:
//
//	addr, _ := astedit.ParseAddress("0_689_4")
//	_, err = ed.ExportFile(ctx, addr, "tex.dds",
//	    astedit.ExportWithConversion(astedit.ConvertP3RToDDS))
//	_, err = ed.ImportFile(ctx, addr, "tex.dds",
//	    astedit.ImportWithConversion(astedit.ConvertDDSToP3R))
//
// Roots served over HTTP can be opened read-only with [Editor.OpenURL];
// they support Read, Resolve, Export and Extract.
//
// # Reverting
//
// With [WithPristineDir], the first import over a node snapshots its
// original bytes, and [Editor.Revert] restores them.
//
// Imports overwrite the root file in place without a temporary copy. A
// failure during that final write leaves the root in an undefined state.
package astedit
