// Package pristine remembers which nodes of a root container were imported
// over and keeps each node's original stored bytes so the import can be
// reverted.
//
// A Store is a directory holding a JSON ledger and one zstd-compressed
// snapshot per changed node:
//
//	<dir>/changed-nodes.json
//	<dir>/pristine-nodes/<root digest>/<node key>.prs
//
// Roots are keyed by the digest of their absolute path, so a ledger survives
// the root being reopened in a different session slot.
package pristine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/klauspost/compress/zstd"
	digest "github.com/opencontainers/go-digest"

	astcore "github.com/meigma/astedit/core"
)

// Layout names inside a store directory.
const (
	LedgerName  = "changed-nodes.json"
	SnapshotDir = "pristine-nodes"
	SnapshotExt = ".prs"
)

const (
	defaultDirPerm  = 0o700
	defaultFilePerm = 0o600

	// maxDecoderMemory bounds a single snapshot decode.
	maxDecoderMemory = 1 << 30
)

// Store is a disk-backed changed-node ledger with pristine snapshots.
// It is safe for concurrent use.
type Store struct {
	dir     string
	root    *os.Root
	dirPerm os.FileMode
	level   zstd.EncoderLevel
	logger  *slog.Logger

	enc *zstd.Encoder
	dec *zstd.Decoder

	mu    sync.Mutex
	nodes map[string][]string
}

// Option configures a Store.
type Option func(*Store)

// WithDirPerm sets the permissions used for store directories.
func WithDirPerm(mode os.FileMode) Option {
	return func(s *Store) {
		s.dirPerm = mode
	}
}

// WithEncoderLevel sets the zstd level used for snapshots.
func WithEncoderLevel(level zstd.EncoderLevel) Option {
	return func(s *Store) {
		s.level = level
	}
}

// WithLogger sets the logger for store diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// Open opens the store rooted at dir, creating it if needed, and loads its
// ledger. The caller must Close the store.
func Open(dir string, opts ...Option) (*Store, error) {
	if dir == "" {
		return nil, errors.New("pristine: store dir is empty")
	}
	s := &Store{
		dir:     dir,
		dirPerm: defaultDirPerm,
		level:   zstd.SpeedDefault,
		nodes:   make(map[string][]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.DiscardHandler)
	}

	if err := os.MkdirAll(dir, s.dirPerm); err != nil {
		return nil, fmt.Errorf("pristine: create store: %w", err)
	}
	root, err := os.OpenRoot(dir)
	if err != nil {
		return nil, fmt.Errorf("pristine: open store: %w", err)
	}
	s.root = root
	if err := root.MkdirAll(SnapshotDir, s.dirPerm); err != nil {
		root.Close()
		return nil, fmt.Errorf("pristine: create snapshot dir: %w", err)
	}
	if err := s.loadLedger(); err != nil {
		root.Close()
		return nil, err
	}

	s.enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(s.level), zstd.WithEncoderConcurrency(1))
	if err != nil {
		root.Close()
		return nil, fmt.Errorf("pristine: zstd encoder: %w", err)
	}
	s.dec, err = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0), zstd.WithDecoderMaxMemory(maxDecoderMemory))
	if err != nil {
		s.enc.Close()
		root.Close()
		return nil, fmt.Errorf("pristine: zstd decoder: %w", err)
	}
	return s, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Close releases the store's directory handle and codecs.
func (s *Store) Close() error {
	s.dec.Close()
	err := s.enc.Close()
	if cerr := s.root.Close(); err == nil {
		err = cerr
	}
	return err
}

// Key returns the ledger key of a root container path.
func Key(rootPath string) (string, error) {
	abs, err := filepath.Abs(rootPath)
	if err != nil {
		return "", fmt.Errorf("pristine: resolve %s: %w", rootPath, err)
	}
	return digest.FromString(abs).Encoded(), nil
}

// Snapshot records node of the root at rootPath as changed and stores its
// pristine stored bytes. Only the first snapshot of a node is kept, so the
// original survives repeated imports; Snapshot reports whether it recorded
// a new one.
func (s *Store) Snapshot(rootPath, node string, stored []byte) (bool, error) {
	if err := validNode(node); err != nil {
		return false, err
	}
	key, err := Key(rootPath)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(s.nodes[key], node) {
		return false, nil
	}

	dir := filepath.Join(SnapshotDir, key)
	if err := s.root.MkdirAll(dir, s.dirPerm); err != nil {
		return false, fmt.Errorf("pristine: create %s: %w", dir, err)
	}
	path := snapshotPath(key, node)
	if err := writeFile(s.root, path, s.enc.EncodeAll(stored, nil)); err != nil {
		return false, fmt.Errorf("pristine: write snapshot %s: %w", node, err)
	}

	prev := s.nodes[key]
	s.nodes[key] = append(slices.Clone(prev), node)
	if err := s.saveLedger(); err != nil {
		s.restore(key, prev)
		_ = s.root.Remove(path)
		return false, err
	}
	s.logger.Debug("pristine snapshot recorded", "root", rootPath, "node", node, "size", len(stored))
	return true, nil
}

// BeforeWrite snapshots the node an import is about to overwrite. It has the
// signature of the importer's before-write hook.
func (s *Store) BeforeWrite(ctx context.Context, info astcore.WriteInfo) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.Snapshot(info.Path, info.Address.NodeKey(), info.Pristine)
	return err
}

// WasChanged reports whether node of the root at rootPath has a snapshot.
func (s *Store) WasChanged(rootPath, node string) bool {
	key, err := Key(rootPath)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.nodes[key], node)
}

// Changed returns the changed node keys of the root at rootPath in the order
// they were first imported over.
func (s *Store) Changed(rootPath string) []string {
	key, err := Key(rootPath)
	if err != nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.nodes[key])
}

// Load returns the pristine stored bytes of node. It fails with
// ErrNotChanged when the node has no snapshot.
func (s *Store) Load(rootPath, node string) ([]byte, error) {
	key, err := Key(rootPath)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.Contains(s.nodes[key], node) {
		return nil, fmt.Errorf("%w: %s in %s", astcore.ErrNotChanged, node, rootPath)
	}
	compressed, err := s.root.ReadFile(snapshotPath(key, node))
	if err != nil {
		return nil, fmt.Errorf("pristine: read snapshot %s: %w", node, err)
	}
	data, err := s.dec.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("pristine: decode snapshot %s: %w", node, err)
	}
	return data, nil
}

// Remove forgets node and deletes its snapshot. It fails with ErrNotChanged
// when the node has no snapshot.
func (s *Store) Remove(rootPath, node string) error {
	key, err := Key(rootPath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.nodes[key]
	i := slices.Index(prev, node)
	if i < 0 {
		return fmt.Errorf("%w: %s in %s", astcore.ErrNotChanged, node, rootPath)
	}

	next := slices.Delete(slices.Clone(prev), i, i+1)
	s.restore(key, next)
	if err := s.saveLedger(); err != nil {
		s.restore(key, prev)
		return err
	}

	if err := s.root.Remove(snapshotPath(key, node)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("remove pristine snapshot", "root", rootPath, "node", node, "error", err)
	}
	if len(next) == 0 {
		if err := s.root.Remove(filepath.Join(SnapshotDir, key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("remove pristine dir", "root", rootPath, "error", err)
		}
	}
	return nil
}

// restore sets the node list of key, dropping the key when the list is empty.
func (s *Store) restore(key string, nodes []string) {
	if len(nodes) == 0 {
		delete(s.nodes, key)
		return
	}
	s.nodes[key] = nodes
}

func (s *Store) loadLedger() error {
	data, err := s.root.ReadFile(LedgerName)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("pristine: read ledger: %w", err)
	}
	if err := json.Unmarshal(data, &s.nodes); err != nil {
		return fmt.Errorf("pristine: parse ledger: %w", err)
	}
	if s.nodes == nil {
		s.nodes = make(map[string][]string)
	}
	return nil
}

func (s *Store) saveLedger() error {
	data, err := json.Marshal(s.nodes)
	if err != nil {
		return fmt.Errorf("pristine: encode ledger: %w", err)
	}
	if err := writeFile(s.root, LedgerName, data); err != nil {
		return fmt.Errorf("pristine: write ledger: %w", err)
	}
	return nil
}

func snapshotPath(key, node string) string {
	return filepath.Join(SnapshotDir, key, node+SnapshotExt)
}

// validNode rejects keys that are not a non-empty index path.
func validNode(node string) error {
	addr, err := astcore.AddressFromNodeKey("0", node)
	if err != nil {
		return err
	}
	if addr.IsRoot() {
		return fmt.Errorf("%w: the root container has no pristine snapshot", astcore.ErrNotFound)
	}
	return nil
}
