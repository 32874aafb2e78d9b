package astedit

import (
	"cmp"
	"context"
	"fmt"
	neturl "net/url"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"github.com/dustin/go-humanize"

	astcore "github.com/meigma/astedit/core"
)

// Session is one open root container.
type Session struct {
	// Key is the root key used in node addresses.
	Key string

	// Path is the absolute path of the root file, or its URL when Remote.
	Path string

	// Remote reports a root read over HTTP. Remote sessions are read-only.
	Remote bool

	// Name is the file name shown in listings.
	Name string

	// Size is the file size when the session was opened.
	Size int64

	// Root is the root container as parsed when the session was opened.
	// Its entries are sniffed but nested containers are not parsed.
	Root *Container

	// ID is the synthetic identifier of Root.
	ID string
}

// HumanSize returns Size in human-readable SI units, e.g. "83 MB".
func (s *Session) HumanSize() string {
	return humanize.Bytes(uint64(max(s.Size, 0)))
}

// Registry maps root keys to open sessions.
//
// Registry is safe for concurrent use. Operations on different keys never
// interfere; callers must serialize imports and exports on the same key.
type Registry struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	parseOpts []ParseOption
}

// NewRegistry creates an empty registry. opts apply to the parse that
// validates each root as it is opened.
func NewRegistry(opts ...ParseOption) *Registry {
	return &Registry{sessions: make(map[string]*Session), parseOpts: opts}
}

// Open parses the root file at path and registers it under key, replacing
// any session already using that key. A file that is not a container fails
// with ErrMalformed and leaves the registry unchanged.
func (r *Registry) Open(ctx context.Context, key, path string) (*Session, error) {
	if key == "" {
		return nil, fmt.Errorf("%w: empty session key", ErrUnknownSession)
	}
	s, err := r.parseFile(ctx, key, path)
	if err != nil {
		return nil, err
	}
	s.Key = key
	r.put(s)
	return s, nil
}

// OpenNext is Open under the lowest numeric key not in use.
func (r *Registry) OpenNext(ctx context.Context, path string) (*Session, error) {
	s, err := r.parseFile(ctx, "", path)
	if err != nil {
		return nil, err
	}
	r.putNext(s)
	return s, nil
}

// OpenRemote parses the root served at url through src and registers it
// under the lowest numeric key not in use.
func (r *Registry) OpenRemote(ctx context.Context, url string, src Source) (*Session, error) {
	u, err := neturl.Parse(url)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", url, err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		name = u.Host
	}
	root, err := r.parse(ctx, "", src)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", url, err)
	}
	s := &Session{Path: url, Name: name, Size: src.Size(), Remote: true, Root: root, ID: root.ID}
	r.putNext(s)
	return s, nil
}

func (r *Registry) parseFile(ctx context.Context, key, path string) (*Session, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("open %s: not a regular file", abs)
	}

	src, err := astcore.OpenFile(abs)
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()
	root, err := r.parse(ctx, key, src)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", abs, err)
	}
	return &Session{Path: abs, Name: info.Name(), Size: src.Size(), Root: root, ID: root.ID}, nil
}

func (r *Registry) parse(ctx context.Context, key string, src Source) (*Container, error) {
	opts := append(slices.Clone(r.parseOpts),
		astcore.WithAddress(Address{Root: key}),
		astcore.WithPreviews(false),
		astcore.WithRecursive(false),
	)
	return astcore.Parse(ctx, src, opts...)
}

func (r *Registry) put(s *Session) {
	r.mu.Lock()
	r.sessions[s.Key] = s
	r.mu.Unlock()
}

// putNext registers s under the lowest free numeric key.
func (r *Registry) putNext(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := 0; ; i++ {
		key := strconv.Itoa(i)
		if _, ok := r.sessions[key]; !ok {
			s.Key = key
			r.sessions[key] = s
			return
		}
	}
}

// Get returns the session registered under key.
func (r *Registry) Get(key string) (*Session, error) {
	r.mu.RLock()
	s, ok := r.sessions[key]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSession, key)
	}
	return s, nil
}

// Close forgets the session under key and reports whether one existed.
func (r *Registry) Close(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.sessions[key]
	delete(r.sessions, key)
	return ok
}

// Keys returns the open session keys, numeric keys first in numeric order.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	keys := make([]string, 0, len(r.sessions))
	for k := range r.sessions {
		keys = append(keys, k)
	}
	r.mu.RUnlock()
	slices.SortFunc(keys, compareKeys)
	return keys
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func compareKeys(a, b string) int {
	na, aerr := strconv.Atoi(a)
	nb, berr := strconv.Atoi(b)
	switch {
	case aerr == nil && berr == nil:
		return cmp.Compare(na, nb)
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	default:
		return cmp.Compare(a, b)
	}
}
