// Package kernel defines the register-file abstraction and the capability
// interfaces (Host, Process, Thread) that the syscall dispatcher is driven
// through. It owns no scheduling or memory-management logic itself; those
// are supplied by the external collaborators named in the engine's
// top-level design and merely declared here as interfaces.
package kernel

import "fmt"

// Reg is a single raw machine-word syscall register: one of the six
// arguments, or the return value. It carries no type information of its
// own; handlers declare the type they expect and the dispatcher converts.
type Reg uint64

// Addr is a guest virtual address. It is a distinct type from Reg so that
// handler signatures document which arguments are pointers.
type Addr uintptr

// Int8/Int16/... etc. let handlers declare narrow integer parameters while
// still being driven off a 64-bit Reg.
func (r Reg) Int8() int8     { return int8(r) }
func (r Reg) Int16() int16   { return int16(r) }
func (r Reg) Int32() int32   { return int32(r) }
func (r Reg) Int64() int64   { return int64(r) }
func (r Reg) Uint8() uint8   { return uint8(r) }
func (r Reg) Uint16() uint16 { return uint16(r) }
func (r Reg) Uint32() uint32 { return uint32(r) }
func (r Reg) Uint64() uint64 { return uint64(r) }
func (r Reg) Addr() Addr     { return Addr(r) }

// Int and Uint give the native-width signed/unsigned views most handlers
// actually want (file descriptors, flags, counts).
func (r Reg) Int() int   { return int(int64(r)) }
func (r Reg) Uint() uint { return uint(r) }

// FromInt64/FromUint64/FromAddr build a Reg from a handler's return value.
// Handlers return one of these via the generic adapters in package
// syscall; they never construct a Reg from an untyped literal so that the
// conversion site stays visible in review.
func FromInt64(v int64) Reg   { return Reg(uint64(v)) }
func FromUint64(v uint64) Reg { return Reg(v) }
func FromInt(v int) Reg       { return Reg(uint64(int64(v))) }
func FromAddr(a Addr) Reg     { return Reg(a) }

func (a Addr) String() string { return fmt.Sprintf("0x%x", uintptr(a)) }

// IsNull reports whether the address is the guest NULL pointer.
func (a Addr) IsNull() bool { return a == 0 }
