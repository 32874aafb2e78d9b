package ast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/meigma/astedit/core/internal/asttype"
)

// AddressSeparator joins the parts of a node address.
const AddressSeparator = "_"

// Address locates a node: a root key followed by the TOC index chosen at
// each nesting level. An empty Path addresses the root container itself.
//
// The textual form is "<root>[_<index>]*", for example "0_689_4".
type Address struct {
	Root string
	Path []int
}

// ParseAddress parses the textual form of an Address.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("%w: empty address", asttype.ErrNotFound)
	}
	parts := strings.Split(s, AddressSeparator)
	if parts[0] == "" {
		return Address{}, fmt.Errorf("%w: address %q has no root", asttype.ErrNotFound, s)
	}
	addr := Address{Root: parts[0]}
	if len(parts) > 1 {
		addr.Path = make([]int, len(parts)-1)
	}
	for i, p := range parts[1:] {
		n, ok := parseIndex(p)
		if !ok {
			return Address{}, fmt.Errorf("%w: bad index %q in address %q", asttype.ErrNotFound, p, s)
		}
		addr.Path[i] = n
	}
	return addr, nil
}

// parseIndex accepts only the canonical decimal form String writes: digits
// with no sign, spaces or leading zeros.
func parseIndex(s string) (int, bool) {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// String returns the textual form of the address.
func (a Address) String() string {
	var sb strings.Builder
	sb.WriteString(a.Root)
	for _, idx := range a.Path {
		sb.WriteString(AddressSeparator)
		sb.WriteString(strconv.Itoa(idx))
	}
	return sb.String()
}

// Child returns the address of entry index inside the node a addresses.
func (a Address) Child(index int) Address {
	path := make([]int, len(a.Path), len(a.Path)+1)
	copy(path, a.Path)
	return Address{Root: a.Root, Path: append(path, index)}
}

// IsRoot reports whether a addresses a root container.
func (a Address) IsRoot() bool {
	return len(a.Path) == 0
}

// Depth returns the number of indices in the path.
func (a Address) Depth() int {
	return len(a.Path)
}

// NodeKey returns the path without the root key, for example "689_4".
// It names a node independently of the session slot its root is open in.
// The root container's node key is empty.
func (a Address) NodeKey() string {
	parts := make([]string, len(a.Path))
	for i, idx := range a.Path {
		parts[i] = strconv.Itoa(idx)
	}
	return strings.Join(parts, AddressSeparator)
}

// AddressFromNodeKey parses key as a path under root.
func AddressFromNodeKey(root, key string) (Address, error) {
	if key == "" {
		return ParseAddress(root)
	}
	return ParseAddress(root + AddressSeparator + key)
}
