package astedit

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
)

// RootExt is the file extension of root containers.
const RootExt = ".ast"

// GameDataDir is where a disc or installed game keeps its root containers.
var GameDataDir = filepath.Join("PS3_GAME", "USRDIR")

// RootDir returns the directory holding the root containers of dir: its
// PS3_GAME/USRDIR subdirectory when present, otherwise dir itself.
func RootDir(dir string) (string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", dir)
	}
	game := filepath.Join(dir, GameDataDir)
	if info, err := os.Stat(game); err == nil && info.IsDir() {
		return game, nil
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}
	return dir, nil
}

// OpenFolder opens every root container in dir, sorted by file name, under
// keys "0", "1", ... in that order. Sessions already using those keys are
// replaced. A file that does not parse as a container fails the whole call.
func (e *Editor) OpenFolder(ctx context.Context, dir string) ([]*Session, error) {
	rootDir, err := RootDir(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(rootDir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, ent := range entries {
		if ent.Type().IsRegular() && strings.EqualFold(filepath.Ext(ent.Name()), RootExt) {
			names = append(names, ent.Name())
		}
	}
	slices.Sort(names)

	sessions := make([]*Session, 0, len(names))
	for i, name := range names {
		s, err := e.sessions.Open(ctx, strconv.Itoa(i), filepath.Join(rootDir, name))
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	e.logger.Info("opened folder", "dir", rootDir, "roots", len(sessions))
	return sessions, nil
}

// OpenFile opens one root container under the lowest numeric key not in
// use, so a key freed by Close is reused before a new one is taken.
func (e *Editor) OpenFile(ctx context.Context, path string) (*Session, error) {
	s, err := e.sessions.OpenNext(ctx, path)
	if err != nil {
		return nil, err
	}
	e.logger.Info("opened root", "key", s.Key, "path", s.Path, "id", s.ID, "entries", len(s.Root.Entries), "size", s.HumanSize())
	return s, nil
}
