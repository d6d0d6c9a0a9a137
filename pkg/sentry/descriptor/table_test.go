package descriptor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFile struct {
	kind   string
	closed int
}

func (f *fakeFile) Kind() string                             { return f.kind }
func (f *fakeFile) Read(p []byte) (int, error)                { return 0, nil }
func (f *fakeFile) Write(p []byte) (int, error)               { return len(p), nil }
func (f *fakeFile) Readiness(mask Readiness) Readiness        { return 0 }
func (f *fakeFile) Close() error                              { f.closed++; return nil }
func (f *fakeFile) Ioctl(req uint, arg uintptr) (uintptr, error) { return 0, nil }
func (f *fakeFile) Fcntl(cmd int32, arg uintptr) (uintptr, error) { return 0, nil }

func newDesc(kind string) *Descriptor {
	return &Descriptor{File: &fakeFile{kind: kind}}
}

func TestAllocateLowestFree(t *testing.T) {
	tab := NewTable()
	h0 := tab.Allocate(newDesc("a"))
	h1 := tab.Allocate(newDesc("b"))
	assert.Equal(t, Handle(0), h0)
	assert.Equal(t, Handle(1), h1)

	require.NoError(t, tab.Close(h0))
	h2 := tab.Allocate(newDesc("c"))
	assert.Equal(t, Handle(0), h2, "closed handle 0 must be reused before allocating 2")
}

func TestGetUnallocatedIsEBADF(t *testing.T) {
	tab := NewTable()
	_, err := tab.Get(5)
	assert.ErrorIs(t, err, EBADF)
}

func TestDoubleCloseIsEBADF(t *testing.T) {
	tab := NewTable()
	h := tab.Allocate(newDesc("a"))
	require.NoError(t, tab.Close(h))
	err := tab.Close(h)
	assert.ErrorIs(t, err, EBADF)
}

func TestDupToSameHandleIsNoop(t *testing.T) {
	tab := NewTable()
	h := tab.Allocate(newDesc("a"))
	require.NoError(t, tab.DupTo(h, h))
	d, err := tab.Get(h)
	require.NoError(t, err)
	assert.Equal(t, "a", d.File.Kind())
}

func TestDupToClosesDisplacedTarget(t *testing.T) {
	tab := NewTable()
	src := tab.Allocate(newDesc("a"))
	displaced := &fakeFile{kind: "b"}
	dst := tab.Allocate(&Descriptor{File: displaced})

	require.NoError(t, tab.DupTo(src, dst))

	d, err := tab.Get(dst)
	require.NoError(t, err)
	assert.Equal(t, "a", d.File.Kind())
	assert.Equal(t, 1, displaced.closed)
}

func TestDupToMissingSrcIsEBADF(t *testing.T) {
	tab := NewTable()
	dst := tab.Allocate(newDesc("a"))
	err := tab.DupTo(99, dst)
	assert.ErrorIs(t, err, EBADF)
}

func TestDupSharesFileObject(t *testing.T) {
	tab := NewTable()
	file := &fakeFile{kind: "shared"}
	src := tab.Allocate(&Descriptor{File: file})

	dup, err := tab.Dup(src, 0)
	require.NoError(t, err)
	assert.NotEqual(t, src, dup)

	d1, _ := tab.Get(src)
	d2, _ := tab.Get(dup)
	assert.Same(t, d1.File, d2.File)
}

func TestDupCarriesNonBlockingButResetsCloseOnExec(t *testing.T) {
	tab := NewTable()
	srcDesc := newDesc("shared")
	srcDesc.Flags = Flags{CloseOnExec: true, NonBlocking: true}
	src := tab.Allocate(srcDesc)

	dup, err := tab.Dup(src, 0)
	require.NoError(t, err)
	d2, _ := tab.Get(dup)
	assert.True(t, d2.Flags.NonBlocking)
	assert.False(t, d2.Flags.CloseOnExec)

	dst := tab.Allocate(newDesc("other"))
	err = tab.DupTo(src, dst)
	require.NoError(t, err)
	d3, _ := tab.Get(dst)
	assert.True(t, d3.Flags.NonBlocking)
	assert.False(t, d3.Flags.CloseOnExec)
}

func TestCloseOnExecSweepRemovesFlaggedOnly(t *testing.T) {
	tab := NewTable()
	keep := tab.Allocate(newDesc("keep"))
	cloexecDesc := newDesc("gone")
	cloexecDesc.Flags.CloseOnExec = true
	gone := tab.Allocate(cloexecDesc)

	err := tab.CloseOnExecSweep()
	require.NoError(t, err)

	_, err = tab.Get(gone)
	assert.ErrorIs(t, err, EBADF)

	_, err = tab.Get(keep)
	assert.NoError(t, err)
}

func TestCloseAllAggregatesEveryDescriptor(t *testing.T) {
	tab := NewTable()
	f1 := &fakeFile{kind: "a"}
	f2 := &fakeFile{kind: "b"}
	tab.Allocate(&Descriptor{File: f1})
	tab.Allocate(&Descriptor{File: f2})

	require.NoError(t, tab.CloseAll())
	assert.Equal(t, 1, f1.closed)
	assert.Equal(t, 1, f2.closed)

	_, err := tab.Get(0)
	assert.ErrorIs(t, err, EBADF)
}

func TestForkSharesFileObjectsButCopiesFlagsIndependently(t *testing.T) {
	tab := NewTable()
	d := newDesc("shared")
	d.Flags.CloseOnExec = true
	h := tab.Allocate(d)

	child := tab.Fork()
	cd, err := child.Get(h)
	require.NoError(t, err)

	pd, _ := tab.Get(h)
	assert.Same(t, pd.File, cd.File)

	cd.Flags.CloseOnExec = false
	pd2, _ := tab.Get(h)
	assert.True(t, pd2.Flags.CloseOnExec, "mutating the child's flags copy must not affect the parent's")
}

func TestAllocateFromHint(t *testing.T) {
	tab := NewTable()
	tab.Allocate(newDesc("a")) // takes 0
	h := tab.AllocateFrom(newDesc("b"), 5)
	assert.Equal(t, Handle(5), h)
}
