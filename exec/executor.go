package exec

import (
	"fmt"
	"math/bits"

	"github.com/sbnair/rv64core/memory"
	"github.com/sbnair/rv64core/riscv"
)

// FetchError reports a failed instruction fetch: pc fell outside every
// registered memory region.
type FetchError struct{ PC uint64 }

func (e *FetchError) Error() string { return fmt.Sprintf("exec: fetch fault at pc 0x%x", e.PC) }

// IllegalInstructionError wraps a decode failure with the faulting PC and
// the raw word, so callers can render it with riscv.Disassemble alongside
// the underlying decode error.
type IllegalInstructionError struct {
	PC   uint64
	Insn uint32
	Err  error
}

func (e *IllegalInstructionError) Error() string {
	return fmt.Sprintf("exec: illegal instruction at pc 0x%x (%s): %v", e.PC, riscv.Disassemble(e.Insn), e.Err)
}
func (e *IllegalInstructionError) Unwrap() error { return e.Err }

// AlignmentFault reports a load, store, or atomic whose address was not a
// multiple of the access width, per spec.md section 4.3: checked ahead of
// the region lookup so a misaligned access never touches memory or
// registers. Grounded on rrs-lib's instruction_executor.rs, which checks
// addr & align_mask before every load/store/AMO.
type AlignmentFault struct{ Addr uint64 }

func (e *AlignmentFault) Error() string { return fmt.Sprintf("exec: alignment fault at 0x%x", e.Addr) }

// LoadAccessFault reports a load or atomic read whose address fell outside
// every registered memory region.
type LoadAccessFault struct{ Addr uint64 }

func (e *LoadAccessFault) Error() string { return fmt.Sprintf("exec: load access fault at 0x%x", e.Addr) }

// StoreAccessFault reports a store, atomic read-modify-write, or
// store-conditional whose address fell outside every registered memory
// region. spec.md section 4.4 permits either silently dropping such a
// write or escalating it to a fault ("see section 9"); this core escalates,
// so a step never runs to completion having buffered an unreachable write.
type StoreAccessFault struct{ Addr uint64 }

func (e *StoreAccessFault) Error() string {
	return fmt.Sprintf("exec: store access fault at 0x%x", e.Addr)
}

// Halt is returned by Step when the guest executed an exit/exit_group
// ecall, or hit an ebreak. Code is the RV64 Linux ABI exit status (a0) for
// exit/exit_group; ebreak halts with code 0. A *Halt is not a fault: the
// session driver treats it as the segment's terminal ExitCode.
type Halt struct{ Code uint32 }

func (h *Halt) Error() string { return fmt.Sprintf("exec: halted with code %d", h.Code) }

// Executor steps a single hart against a Monitor, one instruction per
// Step call, per spec.md section 5: clear last_register_write, fetch,
// decode, execute, advance pc unless execute already redirected it, commit.
type Executor struct {
	Hart    *HartState
	Monitor *Monitor
}

// NewExecutor pairs hart with monitor.
func NewExecutor(hart *HartState, monitor *Monitor) *Executor {
	return &Executor{Hart: hart, Monitor: monitor}
}

func (e *Executor) setReg(idx uint32, val uint64) {
	e.Monitor.StoreRegister(idx, val)
	if idx != 0 {
		i := idx
		e.Hart.LastRegisterWrite = &i
	}
}

func (e *Executor) reg(idx uint32) uint64 { return e.Monitor.LoadRegister(idx) }

func signExtend32(v uint32) uint64 { return uint64(int64(int32(v))) }

// checkAlignment returns an *AlignmentFault if addr is not naturally
// aligned to size, per spec.md section 4.3's addr & (size_bytes-1) check.
func checkAlignment(addr uint64, size memory.Size) error {
	width := size.Bytes()
	if addr&(width-1) != 0 {
		return &AlignmentFault{Addr: addr}
	}
	return nil
}

// Step performs one fetch/decode/execute/commit cycle. A returned *Halt
// indicates a clean guest exit and should not be treated as failure by
// callers that only want the exit code; any other error means the step's
// buffered writes were discarded and the hart's state is as of the start
// of the step.
func (e *Executor) Step() error {
	e.Hart.LastRegisterWrite = nil
	pc := e.Hart.PC

	word, ok := e.Monitor.Load(pc, memory.Word)
	if !ok {
		return &FetchError{PC: pc}
	}
	insn := uint32(word)

	op, err := riscv.Decode(insn, pc)
	if err != nil {
		return &IllegalInstructionError{PC: pc, Insn: insn, Err: err}
	}

	nextPC := pc + 4
	var syscallRec *SyscallRecord
	halt, err := e.execute(op, pc, &nextPC, &syscallRec)
	if err != nil {
		e.Monitor.Discard()
		return err
	}

	e.Monitor.SaveOp(OpCodeResult{
		Syscall:   syscallRec,
		PCUpdated: nextPC != pc+4,
		Op:        op,
	})
	e.Hart.PC = nextPC
	e.Monitor.Commit()
	if halt != nil {
		return halt
	}
	return nil
}

// execute dispatches on the decoded mnemonic. nextPC is pre-seeded with
// pc+4 and overwritten by control-flow instructions. syscallOut receives
// the ecall's record, if any, for Step to stage via Monitor.SaveOp.
func (e *Executor) execute(op riscv.OpCode, pc uint64, nextPC *uint64, syscallOut **SyscallRecord) (*Halt, error) {
	insn := op.Insn
	switch op.Mnemonic {

	// --- loads ---
	case "LB", "LH", "LW", "LD", "LBU", "LHU", "LWU":
		f := riscv.DecodeIType(insn)
		addr := e.reg(f.Rs1) + uint64(f.Imm)
		var size memory.Size
		switch op.Mnemonic {
		case "LB", "LBU":
			size = memory.Byte
		case "LH", "LHU":
			size = memory.Half
		case "LW", "LWU":
			size = memory.Word
		case "LD":
			size = memory.DoubleWord
		}
		if err := checkAlignment(addr, size); err != nil {
			return nil, err
		}
		raw, ok := e.Monitor.Load(addr, size)
		if !ok {
			return nil, &LoadAccessFault{Addr: addr}
		}
		var val uint64
		switch op.Mnemonic {
		case "LB":
			val = uint64(int64(int8(raw)))
		case "LH":
			val = uint64(int64(int16(raw)))
		case "LW":
			val = signExtend32(uint32(raw))
		case "LD", "LBU", "LHU", "LWU":
			val = raw
		}
		e.setReg(f.Rd, val)

	// --- op-imm ---
	case "ADDI":
		f := riscv.DecodeIType(insn)
		e.setReg(f.Rd, e.reg(f.Rs1)+uint64(f.Imm))
	case "SLTI":
		f := riscv.DecodeIType(insn)
		e.setReg(f.Rd, boolToReg(int64(e.reg(f.Rs1)) < f.Imm))
	case "SLTIU":
		f := riscv.DecodeIType(insn)
		e.setReg(f.Rd, boolToReg(e.reg(f.Rs1) < uint64(f.Imm)))
	case "XORI":
		f := riscv.DecodeIType(insn)
		e.setReg(f.Rd, e.reg(f.Rs1)^uint64(f.Imm))
	case "ORI":
		f := riscv.DecodeIType(insn)
		e.setReg(f.Rd, e.reg(f.Rs1)|uint64(f.Imm))
	case "ANDI":
		f := riscv.DecodeIType(insn)
		e.setReg(f.Rd, e.reg(f.Rs1)&uint64(f.Imm))
	case "SLLI":
		f := riscv.DecodeITypeShamt(insn)
		e.setReg(f.Rd, e.reg(f.Rs1)<<(f.Shamt&0x3f))
	case "SRLI":
		f := riscv.DecodeITypeShamt(insn)
		e.setReg(f.Rd, e.reg(f.Rs1)>>(f.Shamt&0x3f))
	case "SRAI":
		f := riscv.DecodeITypeShamt(insn)
		e.setReg(f.Rd, uint64(int64(e.reg(f.Rs1))>>(f.Shamt&0x3f)))
	case "ADDIW":
		f := riscv.DecodeIType(insn)
		e.setReg(f.Rd, signExtend32(uint32(int32(e.reg(f.Rs1))+int32(f.Imm))))

	case "AUIPC":
		f := riscv.DecodeUType(insn)
		e.setReg(f.Rd, pc+uint64(f.Imm))
	case "LUI":
		f := riscv.DecodeUType(insn)
		e.setReg(f.Rd, uint64(f.Imm))

	// --- stores ---
	case "SB", "SH", "SW", "SD":
		f := riscv.DecodeSType(insn)
		addr := e.reg(f.Rs1) + uint64(f.Imm)
		var size memory.Size
		switch op.Mnemonic {
		case "SB":
			size = memory.Byte
		case "SH":
			size = memory.Half
		case "SW":
			size = memory.Word
		case "SD":
			size = memory.DoubleWord
		}
		if err := checkAlignment(addr, size); err != nil {
			return nil, err
		}
		if !e.Monitor.Store(addr, size, e.reg(f.Rs2)) {
			return nil, &StoreAccessFault{Addr: addr}
		}

	// --- reg-reg ALU ---
	case "ADD":
		f := riscv.DecodeRType(insn)
		e.setReg(f.Rd, e.reg(f.Rs1)+e.reg(f.Rs2))
	case "SUB":
		f := riscv.DecodeRType(insn)
		e.setReg(f.Rd, e.reg(f.Rs1)-e.reg(f.Rs2))
	case "SLL":
		f := riscv.DecodeRType(insn)
		e.setReg(f.Rd, e.reg(f.Rs1)<<(e.reg(f.Rs2)&0x3f))
	case "SLT":
		f := riscv.DecodeRType(insn)
		e.setReg(f.Rd, boolToReg(int64(e.reg(f.Rs1)) < int64(e.reg(f.Rs2))))
	case "SLTU":
		f := riscv.DecodeRType(insn)
		e.setReg(f.Rd, boolToReg(e.reg(f.Rs1) < e.reg(f.Rs2)))
	case "XOR":
		f := riscv.DecodeRType(insn)
		e.setReg(f.Rd, e.reg(f.Rs1)^e.reg(f.Rs2))
	case "SRL":
		f := riscv.DecodeRType(insn)
		e.setReg(f.Rd, e.reg(f.Rs1)>>(e.reg(f.Rs2)&0x3f))
	case "SRA":
		f := riscv.DecodeRType(insn)
		e.setReg(f.Rd, uint64(int64(e.reg(f.Rs1))>>(e.reg(f.Rs2)&0x3f)))
	case "OR":
		f := riscv.DecodeRType(insn)
		e.setReg(f.Rd, e.reg(f.Rs1)|e.reg(f.Rs2))
	case "AND":
		f := riscv.DecodeRType(insn)
		e.setReg(f.Rd, e.reg(f.Rs1)&e.reg(f.Rs2))

	// --- multiply/divide ---
	case "MUL":
		f := riscv.DecodeRType(insn)
		e.setReg(f.Rd, e.reg(f.Rs1)*e.reg(f.Rs2))
	case "MULH":
		f := riscv.DecodeRType(insn)
		e.setReg(f.Rd, mulh(int64(e.reg(f.Rs1)), int64(e.reg(f.Rs2))))
	case "MULSU":
		f := riscv.DecodeRType(insn)
		e.setReg(f.Rd, mulhsu(int64(e.reg(f.Rs1)), e.reg(f.Rs2)))
	case "MULU":
		f := riscv.DecodeRType(insn)
		hi, _ := bits.Mul64(e.reg(f.Rs1), e.reg(f.Rs2))
		e.setReg(f.Rd, hi)
	case "MULW":
		f := riscv.DecodeRType(insn)
		prod := int32(e.reg(f.Rs1)) * int32(e.reg(f.Rs2))
		e.setReg(f.Rd, signExtend32(uint32(prod)))
	case "DIV":
		f := riscv.DecodeRType(insn)
		e.setReg(f.Rd, sdiv(int64(e.reg(f.Rs1)), int64(e.reg(f.Rs2))))
	case "DIVU":
		f := riscv.DecodeRType(insn)
		a, b := e.reg(f.Rs1), e.reg(f.Rs2)
		if b == 0 {
			e.setReg(f.Rd, ^uint64(0))
		} else {
			e.setReg(f.Rd, a/b)
		}
	case "REM":
		f := riscv.DecodeRType(insn)
		e.setReg(f.Rd, srem(int64(e.reg(f.Rs1)), int64(e.reg(f.Rs2))))
	case "REMU":
		f := riscv.DecodeRType(insn)
		a, b := e.reg(f.Rs1), e.reg(f.Rs2)
		if b == 0 {
			e.setReg(f.Rd, a)
		} else {
			e.setReg(f.Rd, a%b)
		}
	case "REMUW":
		f := riscv.DecodeRType(insn)
		a, b := uint32(e.reg(f.Rs1)), uint32(e.reg(f.Rs2))
		if b == 0 {
			e.setReg(f.Rd, signExtend32(a)&0xffff_ffff)
		} else {
			e.setReg(f.Rd, signExtend32(a%b))
		}

	// --- atomics ---
	case "AMOSWAP.W", "AMOADD.W", "AMOOR.W", "AMOAND.W":
		f := riscv.DecodeAType(insn)
		addr := e.reg(f.Rs1)
		if err := checkAlignment(addr, memory.Word); err != nil {
			return nil, err
		}
		old, ok := e.Monitor.Load(addr, memory.Word)
		if !ok {
			return nil, &LoadAccessFault{Addr: addr}
		}
		rs2 := uint32(e.reg(f.Rs2))
		var result uint32
		switch op.Mnemonic {
		case "AMOSWAP.W":
			result = rs2
		case "AMOADD.W":
			result = uint32(old) + rs2
		case "AMOOR.W":
			result = uint32(old) | rs2
		case "AMOAND.W":
			result = uint32(old) & rs2
		}
		if !e.Monitor.Store(addr, memory.Word, uint64(result)) {
			return nil, &StoreAccessFault{Addr: addr}
		}
		e.setReg(f.Rd, signExtend32(uint32(old)))
	case "AMOADD.D", "AMOSWAP.D":
		f := riscv.DecodeAType(insn)
		addr := e.reg(f.Rs1)
		if err := checkAlignment(addr, memory.DoubleWord); err != nil {
			return nil, err
		}
		old, ok := e.Monitor.Load(addr, memory.DoubleWord)
		if !ok {
			return nil, &LoadAccessFault{Addr: addr}
		}
		rs2 := e.reg(f.Rs2)
		var result uint64
		if op.Mnemonic == "AMOADD.D" {
			result = old + rs2
		} else {
			result = rs2
		}
		if !e.Monitor.Store(addr, memory.DoubleWord, result) {
			return nil, &StoreAccessFault{Addr: addr}
		}
		e.setReg(f.Rd, old)
	case "LR.W":
		f := riscv.DecodeAType(insn)
		addr := e.reg(f.Rs1)
		if err := checkAlignment(addr, memory.Word); err != nil {
			return nil, err
		}
		old, ok := e.Monitor.Load(addr, memory.Word)
		if !ok {
			return nil, &LoadAccessFault{Addr: addr}
		}
		e.setReg(f.Rd, signExtend32(uint32(old)))
	case "LR.D":
		f := riscv.DecodeAType(insn)
		addr := e.reg(f.Rs1)
		if err := checkAlignment(addr, memory.DoubleWord); err != nil {
			return nil, err
		}
		old, ok := e.Monitor.Load(addr, memory.DoubleWord)
		if !ok {
			return nil, &LoadAccessFault{Addr: addr}
		}
		e.setReg(f.Rd, old)
	case "SC.W":
		// Single-hart interpreter: the reservation always holds.
		f := riscv.DecodeAType(insn)
		addr := e.reg(f.Rs1)
		if err := checkAlignment(addr, memory.Word); err != nil {
			return nil, err
		}
		if !e.Monitor.Store(addr, memory.Word, e.reg(f.Rs2)) {
			return nil, &StoreAccessFault{Addr: addr}
		}
		e.setReg(f.Rd, 0)
	case "SC.D":
		f := riscv.DecodeAType(insn)
		addr := e.reg(f.Rs1)
		if err := checkAlignment(addr, memory.DoubleWord); err != nil {
			return nil, err
		}
		if !e.Monitor.Store(addr, memory.DoubleWord, e.reg(f.Rs2)) {
			return nil, &StoreAccessFault{Addr: addr}
		}
		e.setReg(f.Rd, 0)

	// --- branches ---
	case "BEQ", "BNE", "BLT", "BGE", "BLTU", "BGEU":
		f := riscv.DecodeBType(insn)
		a, b := e.reg(f.Rs1), e.reg(f.Rs2)
		var taken bool
		switch op.Mnemonic {
		case "BEQ":
			taken = a == b
		case "BNE":
			taken = a != b
		case "BLT":
			taken = int64(a) < int64(b)
		case "BGE":
			taken = int64(a) >= int64(b)
		case "BLTU":
			taken = a < b
		case "BGEU":
			taken = a >= b
		}
		if taken {
			*nextPC = pc + uint64(f.Imm)
		}

	case "JAL":
		f := riscv.DecodeJType(insn)
		e.setReg(f.Rd, pc+4)
		*nextPC = pc + uint64(f.Imm)
	case "JALR":
		f := riscv.DecodeIType(insn)
		target := (e.reg(f.Rs1) + uint64(f.Imm)) &^ 1
		e.setReg(f.Rd, pc+4)
		*nextPC = target

	case "RDTIME":
		f := riscv.DecodeIType(insn)
		e.setReg(f.Rd, 0)
	case "FENCE":
		// No-op: single-hart interpreter has no memory ordering to enforce.

	case "ECALL":
		rec, halt := HandleSyscall(e.Monitor)
		*syscallOut = rec
		if halt != nil {
			return halt, nil
		}
	case "EBREAK":
		return &Halt{Code: 0}, nil

	default:
		return nil, &IllegalInstructionError{PC: pc, Insn: insn, Err: fmt.Errorf("unhandled mnemonic %q", op.Mnemonic)}
	}
	return nil, nil
}

func boolToReg(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

func mulh(a, b int64) uint64 {
	hi, _ := bits.Mul64(uint64(a), uint64(b))
	if a < 0 {
		hi -= uint64(b)
	}
	if b < 0 {
		hi -= uint64(a)
	}
	return hi
}

func mulhsu(a int64, b uint64) uint64 {
	hi, _ := bits.Mul64(uint64(a), b)
	if a < 0 {
		hi -= b
	}
	return hi
}

// sdiv implements RISC-V signed division: divide-by-zero yields all-ones
// (spec.md's DIV semantics), and the INT64_MIN/-1 overflow case yields
// INT64_MIN rather than trapping, per the standard RISC-V M-extension
// behaviour rrs-lib's execute_reg_reg_op follows.
func sdiv(a, b int64) uint64 {
	if b == 0 {
		return ^uint64(0)
	}
	if a == minInt64 && b == -1 {
		return uint64(a)
	}
	return uint64(a / b)
}

// srem mirrors sdiv's edge cases: divide-by-zero leaves the dividend
// unchanged, and INT64_MIN % -1 is zero.
func srem(a, b int64) uint64 {
	if b == 0 {
		return uint64(a)
	}
	if a == minInt64 && b == -1 {
		return 0
	}
	return uint64(a % b)
}

const minInt64 int64 = -1 << 63
