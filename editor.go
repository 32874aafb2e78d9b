package astedit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"os"
	"strings"

	astcore "github.com/meigma/astedit/core"
	asthttp "github.com/meigma/astedit/core/http"
	"github.com/meigma/astedit/pristine"
)

// Editor reads, exports and rewrites nodes of open root containers.
//
// Every operation reopens the root file and re-parses the containers on the
// address path, so results always reflect what is on disk.
type Editor struct {
	sessions *Registry
	logger   *slog.Logger
	observer Observer

	concurrency  int
	maxEntrySize uint64

	previewSize         int
	previewQuality      int
	previewCacheEntries int
	renderer            *astcore.Renderer

	importOpts []astcore.ImportOption

	httpClient *nethttp.Client

	pristineDir string
	store       *pristine.Store
	ownsStore   bool
}

// NewEditor creates an editor with the given options.
func NewEditor(opts ...Option) (*Editor, error) {
	e := &Editor{
		maxEntrySize:        astcore.DefaultMaxEntrySize,
		previewSize:         DefaultPreviewSize,
		previewQuality:      DefaultPreviewQuality,
		previewCacheEntries: DefaultPreviewCacheEntries,
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	if e.observer == nil {
		e.observer = NopObserver
	}
	if e.sessions == nil {
		e.sessions = NewRegistry(
			astcore.WithLogger(e.logger),
			astcore.WithConcurrency(e.concurrency),
			astcore.WithMaxEntrySize(e.maxEntrySize),
		)
	}

	cache := astcore.PreviewWithCache(nil)
	if e.previewCacheEntries > 0 {
		cache = astcore.PreviewWithCache(astcore.NewPreviewCache(e.previewCacheEntries))
	}
	e.renderer = astcore.NewRenderer(
		astcore.PreviewWithMaxSize(e.previewSize),
		astcore.PreviewWithQuality(e.previewQuality),
		cache,
	)

	if e.store == nil && e.pristineDir != "" {
		store, err := pristine.Open(e.pristineDir, pristine.WithLogger(e.logger))
		if err != nil {
			return nil, err
		}
		e.store = store
		e.ownsStore = true
	}
	return e, nil
}

// Close releases the pristine store if the editor opened it.
func (e *Editor) Close() error {
	if e.ownsStore && e.store != nil {
		return e.store.Close()
	}
	return nil
}

// Sessions returns the editor's session registry.
func (e *Editor) Sessions() *Registry {
	return e.sessions
}

// PreviewStats returns the preview cache counters.
func (e *Editor) PreviewStats() astcore.PreviewCacheStats {
	if c := e.renderer.Cache(); c != nil {
		return c.Stats()
	}
	return astcore.PreviewCacheStats{}
}

// ReadOption configures Read.
type ReadOption func(*readConfig)

type readConfig struct {
	previews  bool
	recursive bool
}

// ReadWithPreviews renders previews for listed textures (default: true).
func ReadWithPreviews(enabled bool) ReadOption {
	return func(cfg *readConfig) {
		cfg.previews = enabled
	}
}

// ReadWithRecursive lists every nested container below the one read.
func ReadWithRecursive(enabled bool) ReadOption {
	return func(cfg *readConfig) {
		cfg.recursive = enabled
	}
}

// Read lists the container at addr. A root address lists the root file;
// any other address must name a nested container, which is reached by
// descending the path without sniffing siblings along the way.
func (e *Editor) Read(ctx context.Context, addr Address, opts ...ReadOption) (*Container, error) {
	cfg := readConfig{previews: true}
	for _, opt := range opts {
		opt(&cfg)
	}

	src, done, err := e.open(addr.Root)
	if err != nil {
		return nil, err
	}
	defer done()

	root, err := astcore.Parse(ctx, src,
		astcore.WithObserver(e.observer),
		astcore.WithLogger(e.logger),
		astcore.WithConcurrency(e.concurrency),
		astcore.WithMaxEntrySize(e.maxEntrySize),
		astcore.WithRenderer(e.renderer),
		astcore.WithAddress(Address{Root: addr.Root}),
		astcore.WithDescendPath(addr.Path),
		astcore.WithPreviews(cfg.previews),
		astcore.WithRecursive(cfg.recursive),
	)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", addr, err)
	}

	c := root
	for _, idx := range addr.Path {
		ent, ok := c.Entry(idx)
		if !ok || ent.Nested == nil {
			return nil, fmt.Errorf("%w: %s is not a container", ErrNotFound, addr)
		}
		c = ent.Nested
	}
	e.logger.Debug("read container", "address", addr.String(), "entries", len(c.Entries))
	return c, nil
}

// Resolve returns the entry at addr with its kind sniffed.
func (e *Editor) Resolve(ctx context.Context, addr Address) (*Entry, error) {
	src, done, err := e.open(addr.Root)
	if err != nil {
		return nil, err
	}
	defer done()
	return astcore.Resolve(ctx, src, addr, astcore.WithMaxEntrySize(e.maxEntrySize))
}

// Export writes the node at addr to w and returns the number of bytes
// written. A root address writes the whole root file.
func (e *Editor) Export(ctx context.Context, addr Address, w io.Writer, opts ...ExportOption) (int64, error) {
	src, done, err := e.open(addr.Root)
	if err != nil {
		return 0, err
	}
	defer done()

	base := []ExportOption{
		astcore.ExportWithObserver(e.observer),
		astcore.ExportWithLogger(e.logger),
		astcore.ExportWithMaxEntrySize(e.maxEntrySize),
	}
	return astcore.Export(ctx, src, addr, w, append(base, opts...)...)
}

// ExportFile exports the node at addr to a new file at dest. The file is
// removed again if the export fails.
func (e *Editor) ExportFile(ctx context.Context, addr Address, dest string, opts ...ExportOption) (int64, error) {
	f, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	n, err := e.Export(ctx, addr, f, opts...)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(dest)
		return 0, err
	}
	e.logger.Info("exported node", "address", addr.String(), "dest", dest, "size", n)
	return n, nil
}

// Extract writes every entry of the container at addr to its own file in
// dir. A root address extracts the root container.
func (e *Editor) Extract(ctx context.Context, addr Address, dir string, opts ...ExtractOption) (*ExtractStats, error) {
	src, done, err := e.open(addr.Root)
	if err != nil {
		return nil, err
	}
	defer done()

	base := []ExtractOption{
		astcore.ExtractWithObserver(e.observer),
		astcore.ExtractWithLogger(e.logger),
		astcore.ExtractWithConcurrency(e.concurrency),
		astcore.ExtractWithMaxEntrySize(e.maxEntrySize),
	}
	stats, err := astcore.Extract(ctx, src, addr, dir, append(base, opts...)...)
	if err != nil {
		return stats, err
	}
	e.logger.Info("extracted container", "address", addr.String(), "dir", dir,
		"files", stats.Processed, "skipped", stats.Skipped, "size", stats.Bytes)
	return stats, nil
}

// Import replaces the payload of the node at addr and rewrites the root
// file in place. With a pristine store configured, the node's original
// bytes are snapshotted before its first import.
func (e *Editor) Import(ctx context.Context, addr Address, payload []byte, opts ...ImportOption) (*ImportResult, error) {
	s, err := e.writable(addr.Root)
	if err != nil {
		return nil, err
	}
	base := e.importOptions()
	if e.store != nil {
		base = append(base, astcore.ImportWithBeforeWrite(e.store.BeforeWrite))
	}
	res, err := astcore.ImportFile(ctx, s.Path, addr, payload, append(base, opts...)...)
	if err != nil {
		return nil, err
	}
	e.refresh(ctx, s)
	return res, nil
}

// ImportFile imports the contents of the file at payloadPath. A path ending
// in StoredExt is taken as an already-deflated stream unless opts say
// otherwise.
func (e *Editor) ImportFile(ctx context.Context, addr Address, payloadPath string, opts ...ImportOption) (*ImportResult, error) {
	payload, err := os.ReadFile(payloadPath)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(payloadPath, StoredExt) {
		opts = append([]ImportOption{astcore.ImportWithCompress(false)}, opts...)
	}
	return e.Import(ctx, addr, payload, opts...)
}

// Revert restores the node at addr to the bytes it held before its first
// import and forgets the change. It fails with ErrNotChanged when no change
// was recorded for the node.
func (e *Editor) Revert(ctx context.Context, addr Address) (*ImportResult, error) {
	s, err := e.writable(addr.Root)
	if err != nil {
		return nil, err
	}
	node := addr.NodeKey()
	if e.store == nil || addr.IsRoot() || !e.store.WasChanged(s.Path, node) {
		return nil, fmt.Errorf("%w: %s cannot be reverted", ErrNotChanged, addr)
	}

	stored, err := e.store.Load(s.Path, node)
	if err != nil {
		return nil, err
	}
	opts := append(e.importOptions(),
		astcore.ImportWithCompress(false),
		astcore.ImportWithForcePreview(true),
	)
	res, err := astcore.ImportFile(ctx, s.Path, addr, stored, opts...)
	if err != nil {
		return nil, fmt.Errorf("revert %s: %w", addr, err)
	}
	if err := e.store.Remove(s.Path, node); err != nil {
		return nil, err
	}
	e.refresh(ctx, s)
	e.logger.Info("reverted node", "address", addr.String(), "path", s.Path)
	return res, nil
}

// Changed returns the addresses of every node imported over in the root
// open under key, in the order they were first changed.
func (e *Editor) Changed(key string) ([]Address, error) {
	s, err := e.sessions.Get(key)
	if err != nil {
		return nil, err
	}
	if e.store == nil || s.Remote {
		return nil, nil
	}
	nodes := e.store.Changed(s.Path)
	out := make([]Address, 0, len(nodes))
	for _, n := range nodes {
		addr, err := AddressFromNodeKey(key, n)
		if err != nil {
			e.logger.Warn("skipping bad changed-node key", "root", s.Path, "node", n, "error", err)
			continue
		}
		out = append(out, addr)
	}
	return out, nil
}

// OpenURL opens a root container served over HTTP. The server must honor
// range requests. Remote sessions can be read and exported but not imported
// into.
func (e *Editor) OpenURL(ctx context.Context, url string) (*Session, error) {
	src, err := e.remote(url)
	if err != nil {
		return nil, err
	}
	s, err := e.sessions.OpenRemote(ctx, url, src)
	if err != nil {
		return nil, err
	}
	e.logger.Info("opened remote root", "key", s.Key, "url", url, "size", s.HumanSize())
	return s, nil
}

// open returns a source for the root under key and a func releasing it.
func (e *Editor) open(key string) (astcore.Source, func(), error) {
	s, err := e.sessions.Get(key)
	if err != nil {
		return nil, nil, err
	}
	if s.Remote {
		src, err := e.remote(s.Path)
		if err != nil {
			return nil, nil, err
		}
		if src.Size() != s.Size {
			e.logger.Warn("remote root changed size", "key", key, "was", s.Size, "now", src.Size())
		}
		return src, func() {
			e.logger.Debug("remote reads", "key", key, "requests", src.Requests())
		}, nil
	}
	src, err := astcore.OpenFile(s.Path)
	if err != nil {
		return nil, nil, err
	}
	return src, func() { _ = src.Close() }, nil
}

func (e *Editor) remote(url string) (*asthttp.Source, error) {
	var opts []asthttp.Option
	if e.httpClient != nil {
		opts = append(opts, asthttp.WithClient(e.httpClient))
	}
	return asthttp.NewSource(url, opts...)
}

func (e *Editor) writable(key string) (*Session, error) {
	s, err := e.sessions.Get(key)
	if err != nil {
		return nil, err
	}
	if s.Remote {
		return nil, fmt.Errorf("%w: %s", ErrReadOnly, s.Path)
	}
	return s, nil
}

func (e *Editor) importOptions() []ImportOption {
	opts := []ImportOption{
		astcore.ImportWithObserver(e.observer),
		astcore.ImportWithLogger(e.logger),
		astcore.ImportWithRenderer(e.renderer),
		astcore.ImportWithMaxEntrySize(e.maxEntrySize),
	}
	return append(opts, e.importOpts...)
}

// refresh re-opens s so its size and root reflect the rewritten file.
func (e *Editor) refresh(ctx context.Context, s *Session) {
	if _, err := e.sessions.Open(ctx, s.Key, s.Path); err != nil {
		e.logger.Warn("refresh session", "key", s.Key, "error", err)
	}
}
