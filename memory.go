package rendercore

import "encoding/binary"

// Address is a pointer into guest-visible memory. The zero address is the
// null pointer: surfaces backed by it are treated as absent and
// notifications targeting it are silently dropped.
type Address uint32

// IsNull reports whether the address is the guest null pointer.
func (a Address) IsNull() bool { return a == 0 }

// Memory is the guest-visible address space. The render thread hands it
// to NewContext; the dispatcher goroutine writes notification values into
// it once the corresponding GPU work has completed.
//
// All multi-byte accesses are little-endian, matching the guest CPU.
type Memory []byte

// WriteUint32 stores v at the given guest address.
// Out-of-range addresses are ignored.
func (m Memory) WriteUint32(addr Address, v uint32) {
	if int(addr)+4 > len(m) {
		return
	}
	binary.LittleEndian.PutUint32(m[addr:], v)
}

// ReadUint32 loads the value at the given guest address.
// Out-of-range addresses read as zero.
func (m Memory) ReadUint32(addr Address) uint32 {
	if int(addr)+4 > len(m) {
		return 0
	}
	return binary.LittleEndian.Uint32(m[addr:])
}

// Notification is a guest-visible completion signal: once the GPU work of
// the scene that carried it has finished, Value is written to Address.
// A notification with a null address is a no-op.
type Notification struct {
	Address Address
	Value   uint32
}
