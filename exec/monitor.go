// Package exec implements the hart step loop: fetch, decode, execute and
// commit, driven against a transactional view of the memory space.
//
// The transactional design mirrors risc0's MemoryMonitor
// (original_source/risc0-nova/risc0/zkvm/src/exec/monitor.rs): stores made
// while executing an instruction are buffered rather than applied directly,
// so a faulting instruction leaves no partial effect, and are flushed to
// the backing memory.Space only once the step completes successfully.
package exec

import (
	"sort"

	"github.com/sbnair/rv64core/memory"
	"github.com/sbnair/rv64core/riscv"
)

// SyscallRecord captures one ecall's arguments and outcome for segment
// replay, adapted from cannon/mipsevm/exec/mips_syscalls.go's
// GetSyscallArgs/HandleSyscallUpdates pair: that file reads the MIPS o32
// convention (v0 in register 2, a0..a3 in registers 4..7); this one reads
// the RV64 Linux ABI convention (a7 in register 17, a0..a5 in registers
// 10..15).
type SyscallRecord struct {
	Number uint64
	Args   [6]uint64
	Result uint64
}

// OpCodeResult is the per-instruction outcome threaded through save_op and
// commit: an optional syscall record, whether the handler redirected PC
// itself (rather than leaving it to the default pc+4 advance), and the
// decoded opcode for trace attribution. Mirrors risc0's MemoryMonitor
// save_op/commit contract (original_source/risc0-nova/risc0/zkvm/src/exec/
// monitor.rs).
type OpCodeResult struct {
	Syscall   *SyscallRecord
	PCUpdated bool
	Op        riscv.OpCode
}

// Monitor is the transactional memory view instructions execute against,
// and also owns the register file: per spec.md section 4.3, registers are
// memory-mapped into a shadow region at SystemStart+8*idx rather than kept
// in a separate array, so a plain byte-granular store/load path serves
// both general memory and register access uniformly.
type Monitor struct {
	space       *memory.Space
	systemStart uint64
	stackInit   uint64

	pending map[uint64]byte
	order   []uint64

	opResult *OpCodeResult
	syscalls []SyscallRecord

	x2Seeded bool
}

// NewMonitor returns a Monitor over space, with the register shadow region
// based at systemStart and x2's bootstrap value set to stackInit.
func NewMonitor(space *memory.Space, systemStart, stackInit uint64) *Monitor {
	return &Monitor{
		space:       space,
		systemStart: systemStart,
		stackInit:   stackInit,
		pending:     make(map[uint64]byte),
	}
}

func (m *Monitor) registerAddr(idx uint32) uint64 {
	return m.systemStart + 8*uint64(idx)
}

func (m *Monitor) readByte(addr uint64) (byte, bool) {
	if b, ok := m.pending[addr]; ok {
		return b, true
	}
	v, ok := m.space.Read(addr, memory.Byte)
	return byte(v), ok
}

func (m *Monitor) writeByte(addr uint64, b byte) {
	if _, exists := m.pending[addr]; !exists {
		m.order = append(m.order, addr)
	}
	m.pending[addr] = b
}

// Load reads size bytes at addr, little-endian, seeing this step's own
// pending stores (read-your-writes) layered over the committed Space.
// Reports false if any byte of the access falls outside every region.
func (m *Monitor) Load(addr uint64, size memory.Size) (uint64, bool) {
	width := size.Bytes()
	var val uint64
	for i := uint64(0); i < width; i++ {
		b, ok := m.readByte(addr + i)
		if !ok {
			return 0, false
		}
		val |= uint64(b) << (8 * i)
	}
	return val, true
}

// Store buffers size bytes of value at addr for the next Commit. Reports
// false, buffering nothing, if any byte of the access falls outside every
// region -- callers surface this as a StoreAccessFault rather than let it
// commit silently.
func (m *Monitor) Store(addr uint64, size memory.Size, value uint64) bool {
	width := size.Bytes()
	if !m.space.Contains(addr, width) {
		return false
	}
	for i := uint64(0); i < width; i++ {
		m.writeByte(addr+i, byte(value>>(8*i)))
	}
	return true
}

// LoadRegister reads register idx. Register 0 is hardwired to zero. The
// first read of x2 (the stack pointer) while it is still zero bootstraps
// it to stackInit rather than returning zero, per spec.md's x2 bootstrap
// semantics. The register shadow region is sized and mapped by the caller
// (see rv64core.RegisterFileSize), so this load is never expected to miss;
// a miss here reflects a misconfigured memory space, not a guest fault.
func (m *Monitor) LoadRegister(idx uint32) uint64 {
	if idx == 0 {
		return 0
	}
	val, _ := m.Load(m.registerAddr(idx), memory.DoubleWord)
	if idx == 2 && val == 0 && !m.x2Seeded {
		m.x2Seeded = true
		m.StoreRegister(idx, m.stackInit)
		return m.stackInit
	}
	if idx == 2 {
		m.x2Seeded = true
	}
	return val
}

// StoreRegister writes val into register idx. Register 0 discards writes.
// Storing zero into x2 resets the bootstrap latch, so a subsequent read
// re-seeds stackInit instead of observing the explicit zero -- matching
// spec.md's store-of-zero interception.
func (m *Monitor) StoreRegister(idx uint32, val uint64) {
	if idx == 0 {
		return
	}
	if idx == 2 && val == 0 {
		m.x2Seeded = false
	}
	m.Store(m.registerAddr(idx), memory.DoubleWord, val)
}

// SaveOp stages result for the next Commit, per spec.md's save_op/commit
// contract: the decoded opcode and any syscall the step produced are
// recorded atomically with the pending memory writes, rather than the
// syscall log being mutated eagerly mid-step.
func (m *Monitor) SaveOp(result OpCodeResult) {
	m.opResult = &result
}

// Commit flushes every pending byte to the backing Space in ascending
// address order (byte-level last-write-wins is implicit: the pending map
// already holds only the latest value per address), appends the staged
// op result's syscall record if any, and clears both buffers for the next
// step. Matches risc0's MemoryMonitor::commit. It is a programmer error to
// call Commit without a prior SaveOp for the same step, and this panics
// rather than silently committing an untracked instruction.
func (m *Monitor) Commit() {
	if m.opResult == nil {
		panic("exec: commit called without a prior save_op")
	}
	if m.opResult.Syscall != nil {
		m.syscalls = append(m.syscalls, *m.opResult.Syscall)
	}
	m.opResult = nil

	sort.Slice(m.order, func(i, j int) bool { return m.order[i] < m.order[j] })
	for _, addr := range m.order {
		if b, ok := m.pending[addr]; ok {
			m.space.Write(addr, memory.Byte, uint64(b))
		}
	}
	m.pending = make(map[uint64]byte)
	m.order = m.order[:0]
}

// Discard drops this step's buffered writes and any staged op result
// without applying them, for a step that fails before reaching commit
// (fetch fault, illegal instruction, alignment or access fault).
func (m *Monitor) Discard() {
	m.pending = make(map[uint64]byte)
	m.order = m.order[:0]
	m.opResult = nil
}

// Syscalls returns the syscall replay log accumulated since the last
// ClearSegment.
func (m *Monitor) Syscalls() []SyscallRecord {
	return m.syscalls
}

// ClearSegment drops the accumulated syscall replay log at a segment
// boundary, matching risc0's MemoryMonitor::clear_segment.
func (m *Monitor) ClearSegment() {
	m.syscalls = nil
}

// ClearSession resets the x2 bootstrap latch in addition to clearing the
// segment log, matching risc0's MemoryMonitor::clear_session.
func (m *Monitor) ClearSession() {
	m.ClearSegment()
	m.x2Seeded = false
}
