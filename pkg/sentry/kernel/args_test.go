package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSyscallArgsPadsMissingArgsWithZero(t *testing.T) {
	a := NewSyscallArgs(1, Reg(10), Reg(20))
	assert.Equal(t, Reg(10), a.Get(0))
	assert.Equal(t, Reg(20), a.Get(1))
	assert.Equal(t, Reg(0), a.Get(2))
}

func TestNewSyscallArgsTruncatesExtraArgs(t *testing.T) {
	a := NewSyscallArgs(1, Reg(1), Reg(2), Reg(3), Reg(4), Reg(5), Reg(6), Reg(7))
	assert.Equal(t, Reg(6), a.Get(5))
}
