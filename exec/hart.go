package exec

import "fmt"

// HartState is the architectural state of a single hart that lives outside
// the memory-mapped register shadow: the program counter and rrs-lib's
// last_register_write diagnostic (original_source/rrs/rrs-lib/src/lib.rs),
// which the executor sets on every register write and which Dump surfaces
// on a fatal exit.
type HartState struct {
	PC                uint64
	LastRegisterWrite *uint32
}

// NewHartState returns a hart with PC set to pc and no prior register write.
func NewHartState(pc uint64) *HartState {
	return &HartState{PC: pc}
}

// Dump renders the PC and last-write diagnostic for fatal-exit reporting.
func (h *HartState) Dump(m *Monitor) string {
	last := "none"
	if h.LastRegisterWrite != nil {
		idx := *h.LastRegisterWrite
		last = fmt.Sprintf("x%d=0x%x", idx, m.LoadRegister(idx))
	}
	return fmt.Sprintf("pc=0x%x last_write=%s", h.PC, last)
}
