package guestmem

import (
	"github.com/tetratelabs/wazero/api"

	hostbridge "github.com/edgelet/hostbridge"
	"github.com/edgelet/hostbridge/errors"
)

// WazeroMemory adapts wazero's api.Memory to the root Memory interface.
// Every Read copies out of linear memory; the returned slices never alias
// the guest buffer.
type WazeroMemory struct {
	mem api.Memory
}

func NewWazeroMemory(mod api.Module) (*WazeroMemory, error) {
	mem := mod.Memory()
	if mem == nil {
		return nil, errors.InvalidInput(errors.PhaseLoad, "module exports no memory")
	}
	return &WazeroMemory{mem: mem}, nil
}

func (m *WazeroMemory) Read(offset, length uint32) ([]byte, error) {
	view, ok := m.mem.Read(offset, length)
	if !ok {
		return nil, errors.OutOfBounds(errors.PhaseDecode, int(offset), int(m.mem.Size()))
	}
	out := make([]byte, length)
	copy(out, view)
	return out, nil
}

func (m *WazeroMemory) Write(offset uint32, data []byte) error {
	if !m.mem.Write(offset, data) {
		return errors.OutOfBounds(errors.PhaseMarshal, int(offset), int(m.mem.Size()))
	}
	return nil
}

func (m *WazeroMemory) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.mem.ReadUint32Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseDecode, int(offset), int(m.mem.Size()))
	}
	return v, nil
}

func (m *WazeroMemory) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.mem.ReadUint64Le(offset)
	if !ok {
		return 0, errors.OutOfBounds(errors.PhaseDecode, int(offset), int(m.mem.Size()))
	}
	return v, nil
}

func (m *WazeroMemory) WriteU32(offset uint32, value uint32) error {
	if !m.mem.WriteUint32Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseMarshal, int(offset), int(m.mem.Size()))
	}
	return nil
}

func (m *WazeroMemory) WriteU64(offset uint32, value uint64) error {
	if !m.mem.WriteUint64Le(offset, value) {
		return errors.OutOfBounds(errors.PhaseMarshal, int(offset), int(m.mem.Size()))
	}
	return nil
}

var _ hostbridge.Memory = (*WazeroMemory)(nil)
