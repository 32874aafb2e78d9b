package astedit

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFolderGameLayout(t *testing.T) {
	t.Parallel()

	game := t.TempDir()
	usrdir := filepath.Join(game, GameDataDir)
	require.NoError(t, os.MkdirAll(usrdir, 0o700))
	writeRoot(t, usrdir, "qkl_fe.ast")
	writeRoot(t, usrdir, "boot.AST")
	require.NoError(t, os.WriteFile(filepath.Join(usrdir, "EBOOT.BIN"), []byte("elf"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(usrdir, "dir.ast"), 0o700))

	ed, err := NewEditor()
	require.NoError(t, err)
	sessions, err := ed.OpenFolder(context.Background(), game)
	require.NoError(t, err)

	require.Len(t, sessions, 2)
	assert.Equal(t, "0", sessions[0].Key)
	assert.Equal(t, "boot.AST", sessions[0].Name)
	assert.Equal(t, "1", sessions[1].Key)
	assert.Equal(t, "qkl_fe.ast", sessions[1].Name)
	assert.Equal(t, []string{"0", "1"}, ed.Sessions().Keys())
}

func TestOpenFolderPlainDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeRoot(t, dir, "only.ast")

	got, err := RootDir(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	ed, err := NewEditor()
	require.NoError(t, err)
	sessions, err := ed.OpenFolder(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	s, err := ed.OpenFile(context.Background(), filepath.Join(dir, "only.ast"))
	require.NoError(t, err)
	assert.Equal(t, "1", s.Key, "key is the lowest one free")
}

func TestOpenFolderErrors(t *testing.T) {
	t.Parallel()

	ed, err := NewEditor()
	require.NoError(t, err)

	_, err = ed.OpenFolder(context.Background(), filepath.Join(t.TempDir(), "missing"))
	require.ErrorIs(t, err, os.ErrNotExist)

	file := writeRoot(t, t.TempDir(), "f.ast")
	_, err = ed.OpenFolder(context.Background(), file)
	require.Error(t, err)

	dir := t.TempDir()
	writeRoot(t, dir, "a.ast")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.ast"), []byte("not a container at all"), 0o600))
	_, err = ed.OpenFolder(context.Background(), dir)
	require.ErrorIs(t, err, ErrMalformed)
}

func TestOpenFileReusesFreedKey(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeRoot(t, dir, "a.ast")
	b := writeRoot(t, dir, "b.ast")
	c := writeRoot(t, dir, "c.ast")

	ed, err := NewEditor()
	require.NoError(t, err)
	ctx := context.Background()

	sa, err := ed.OpenFile(ctx, a)
	require.NoError(t, err)
	sb, err := ed.OpenFile(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "0", sa.Key)
	assert.Equal(t, "1", sb.Key)

	require.True(t, ed.Sessions().Close("0"))
	sc, err := ed.OpenFile(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "0", sc.Key)

	got, err := ed.Sessions().Get("1")
	require.NoError(t, err)
	assert.Equal(t, "b.ast", got.Name, "an open session keeps its key")

	sd, err := ed.OpenFile(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, "2", sd.Key)
	assert.Equal(t, []string{"0", "1", "2"}, ed.Sessions().Keys())
}

func TestOpenFileRejectsNonContainer(t *testing.T) {
	t.Parallel()

	junk := filepath.Join(t.TempDir(), "junk.ast")
	require.NoError(t, os.WriteFile(junk, []byte("not a container at all"), 0o600))

	ed, err := NewEditor()
	require.NoError(t, err)
	_, err = ed.OpenFile(context.Background(), junk)
	require.ErrorIs(t, err, ErrMalformed)
	assert.Zero(t, ed.Sessions().Len())

	s, err := ed.OpenFile(context.Background(), writeRoot(t, t.TempDir(), "ok.ast"))
	require.NoError(t, err)
	require.NotNil(t, s.Root)
	assert.Len(t, s.Root.Entries, 3)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, s.Root.ID, s.ID)
}
