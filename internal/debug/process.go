package debug

import (
	"encoding/binary"
	"fmt"

	"github.com/rustlens/rustlens/internal/value"
)

// MemoryReader reads raw bytes from a debuggee. DelveClient satisfies it;
// tests substitute an in-memory fake.
type MemoryReader interface {
	ReadMemory(addr uint64, size int) ([]byte, error)
}

// TargetProcess adapts a memory reader and a type table into the process
// facade the decoders consume. Defaults are a 64-bit little-endian
// target; both are overridable for other architectures.
type TargetProcess struct {
	mem     MemoryReader
	types   *TypeTable
	order   binary.ByteOrder
	ptrSize int
}

// TargetOption configures a TargetProcess.
type TargetOption func(*TargetProcess)

// WithByteOrder sets the debuggee's byte order.
func WithByteOrder(order binary.ByteOrder) TargetOption {
	return func(tp *TargetProcess) { tp.order = order }
}

// WithPointerSize sets the debuggee's address width in bytes.
func WithPointerSize(size int) TargetOption {
	return func(tp *TargetProcess) { tp.ptrSize = size }
}

// NewTargetProcess returns a process facade over mem and types.
func NewTargetProcess(mem MemoryReader, types *TypeTable, opts ...TargetOption) *TargetProcess {
	tp := &TargetProcess{
		mem:     mem,
		types:   types,
		order:   binary.LittleEndian,
		ptrSize: 8,
	}
	for _, opt := range opts {
		opt(tp)
	}
	return tp
}

// ReadMemory reads size bytes at addr from the debuggee.
func (tp *TargetProcess) ReadMemory(addr uint64, size int) ([]byte, error) {
	return tp.mem.ReadMemory(addr, size)
}

// PointerSize returns the debuggee's address width in bytes.
func (tp *TargetProcess) PointerSize() int {
	return tp.ptrSize
}

// ByteOrder returns the debuggee's byte order.
func (tp *TargetProcess) ByteOrder() binary.ByteOrder {
	return tp.order
}

// FindType resolves a type by its fully qualified name.
func (tp *TargetProcess) FindType(name string) (*value.Type, error) {
	if t := tp.types.Lookup(name); t != nil {
		return t, nil
	}
	return nil, fmt.Errorf("type %q not found", name)
}

// Types returns the underlying type table.
func (tp *TargetProcess) Types() *TypeTable {
	return tp.types
}

var _ value.Process = (*TargetProcess)(nil)
