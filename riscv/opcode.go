package riscv

import "fmt"

// MajorType is the coarse classification used to group opcodes for the
// prover's segmenting logic (out of scope here; the tags are preserved
// verbatim for forward compatibility per spec.md's open question on cycle
// weights). It mirrors risc0's MajorType enum field-for-field.
type MajorType int

const (
	Compute0 MajorType = iota
	Compute1
	Compute2
	MemIo
	Multiply
	Divide
	VerifyAnd
	VerifyDivide
	ECall
	ShaInit
	ShaLoad
	ShaMain
	PageFault
)

func (m MajorType) String() string {
	names := [...]string{"Compute0", "Compute1", "Compute2", "MemIo", "Multiply", "Divide", "VerifyAnd", "VerifyDivide", "ECall", "ShaInit", "ShaLoad", "ShaMain", "PageFault"}
	if int(m) < 0 || int(m) >= len(names) {
		return fmt.Sprintf("MajorType(%d)", int(m))
	}
	return names[m]
}

// OpCode is a decoded instruction: the raw word, the PC it was fetched
// from, its mnemonic, major/minor classification tags and its static
// cycle weight. Decoding operand fields (rd/rs1/rs2/immediates) is a
// separate step performed by the executor via the DecodeXType helpers in
// this package, since spec.md's OpCode record itself only carries the
// classification, not the operands.
type OpCode struct {
	Insn     uint32
	PC       uint64
	Mnemonic string
	Major    MajorType
	Minor    uint32
	Cycles   int
}

func newIdx(insn uint32, pc uint64, mnemonic string, idx uint32, cycles int) OpCode {
	return OpCode{Insn: insn, PC: pc, Mnemonic: mnemonic, Major: MajorType(idx / 8), Minor: idx % 8, Cycles: cycles}
}

func newMajorMinor(insn uint32, pc uint64, mnemonic string, major MajorType, minor uint32, cycles int) OpCode {
	return OpCode{Insn: insn, PC: pc, Mnemonic: mnemonic, Major: major, Minor: minor, Cycles: cycles}
}

// IllegalOpcodeError reports a 32-bit word this decoder cannot classify.
type IllegalOpcodeError struct {
	Insn uint32
	PC   uint64
}

func (e *IllegalOpcodeError) Error() string {
	return fmt.Sprintf("illegal opcode: 0x%08x at pc 0x%x", e.Insn, e.PC)
}

// Decode classifies insn (fetched at pc, used only for diagnostics and
// embedded into the returned OpCode) per the table in spec.md section 4.2.
// Field extraction follows classical RISC-V decoding: opcode = insn[6:0],
// funct3 = insn[14:12], funct7 = insn[31:25], funct7_rv64 = insn[31:26]
// (shifts only, to fold shamt[5] into the immediate), funct5 = insn[31:27],
// rs2 = insn[24:20].
func Decode(insn uint32, pc uint64) (OpCode, error) {
	opcode := insn & 0x7f
	rs2 := (insn >> 20) & 0x1f
	funct3 := (insn >> 12) & 0x7
	funct7 := (insn >> 25) & 0x7f
	funct7rv64 := (insn >> 26) & 0x3f
	funct5 := (insn >> 27) & 0x1f

	switch opcode {
	case 0b0000011: // load
		switch funct3 {
		case 0x0:
			return newIdx(insn, pc, "LB", 24, 1), nil
		case 0x1:
			return newIdx(insn, pc, "LH", 25, 1), nil
		case 0x2:
			return newIdx(insn, pc, "LW", 26, 1), nil
		case 0x3:
			return newIdx(insn, pc, "LD", 27, 1), nil
		case 0x4:
			return newIdx(insn, pc, "LBU", 28, 1), nil
		case 0x5:
			return newIdx(insn, pc, "LHU", 29, 1), nil
		case 0x6:
			return newIdx(insn, pc, "LWU", 30, 1), nil
		}
	case 0b0010011: // op-imm
		switch funct3 {
		case 0x0:
			return newIdx(insn, pc, "ADDI", 7, 1), nil
		case 0x1:
			return newIdx(insn, pc, "SLLI", 37, 1), nil
		case 0x2:
			return newIdx(insn, pc, "SLTI", 11, 1), nil
		case 0x3:
			return newIdx(insn, pc, "SLTIU", 12, 1), nil
		case 0x4:
			return newIdx(insn, pc, "XORI", 8, 2), nil
		case 0x5:
			switch funct7rv64 {
			case 0b000000:
				return newIdx(insn, pc, "SRLI", 46, 2), nil
			case 0b010000:
				return newIdx(insn, pc, "SRAI", 47, 2), nil
			}
		case 0x6:
			return newIdx(insn, pc, "ORI", 9, 2), nil
		case 0x7:
			return newIdx(insn, pc, "ANDI", 10, 2), nil
		}
	case 0b0010111:
		return newIdx(insn, pc, "AUIPC", 22, 1), nil
	case 0b0100011: // store
		switch funct3 {
		case 0x0:
			return newIdx(insn, pc, "SB", 29, 1), nil
		case 0x1:
			return newIdx(insn, pc, "SH", 30, 1), nil
		case 0x2:
			return newIdx(insn, pc, "SW", 31, 1), nil
		case 0x3:
			return newIdx(insn, pc, "SD", 31, 1), nil
		}
	case 0b0110011: // op
		switch {
		case funct3 == 0x0 && funct7 == 0x00:
			return newIdx(insn, pc, "ADD", 0, 1), nil
		case funct3 == 0x0 && funct7 == 0x20:
			return newIdx(insn, pc, "SUB", 1, 1), nil
		case funct3 == 0x1 && funct7 == 0x00:
			return newIdx(insn, pc, "SLL", 36, 1), nil
		case funct3 == 0x2 && funct7 == 0x00:
			return newIdx(insn, pc, "SLT", 5, 1), nil
		case funct3 == 0x3 && funct7 == 0x00:
			return newIdx(insn, pc, "SLTU", 6, 1), nil
		case funct3 == 0x4 && funct7 == 0x00:
			return newIdx(insn, pc, "XOR", 2, 2), nil
		case funct3 == 0x5 && funct7 == 0x00:
			return newIdx(insn, pc, "SRL", 44, 2), nil
		case funct3 == 0x5 && funct7 == 0x20:
			return newIdx(insn, pc, "SRA", 45, 2), nil
		case funct3 == 0x6 && funct7 == 0x00:
			return newIdx(insn, pc, "OR", 3, 2), nil
		case funct3 == 0x7 && funct7 == 0x00:
			return newIdx(insn, pc, "AND", 4, 2), nil
		case funct3 == 0x0 && funct7 == 0x01:
			return newIdx(insn, pc, "MUL", 32, 1), nil
		case funct3 == 0x1 && funct7 == 0x01:
			return newIdx(insn, pc, "MULH", 33, 1), nil
		case funct3 == 0x2 && funct7 == 0x01:
			return newIdx(insn, pc, "MULSU", 34, 1), nil
		case funct3 == 0x3 && funct7 == 0x01:
			return newIdx(insn, pc, "MULU", 35, 1), nil
		case funct3 == 0x4 && funct7 == 0x01:
			return newIdx(insn, pc, "DIV", 40, 2), nil
		case funct3 == 0x5 && funct7 == 0x01:
			return newIdx(insn, pc, "DIVU", 41, 2), nil
		case funct3 == 0x6 && funct7 == 0x01:
			return newIdx(insn, pc, "REM", 42, 2), nil
		case funct3 == 0x7 && funct7 == 0x01:
			return newIdx(insn, pc, "REMU", 43, 2), nil
		}
	case 0b0101111: // atomic
		switch {
		case funct3 == 0b010 && funct5 == 0b00001:
			return newIdx(insn, pc, "AMOSWAP.W", 0, 1), nil
		case funct3 == 0b010 && funct5 == 0b00010:
			return newIdx(insn, pc, "LR.W", 2, 1), nil
		case funct3 == 0b010 && funct5 == 0b00011:
			return newIdx(insn, pc, "SC.W", 3, 1), nil
		case funct3 == 0b010 && funct5 == 0b01000:
			return newIdx(insn, pc, "AMOOR.W", 0, 1), nil
		case funct3 == 0b010 && funct5 == 0b00000:
			return newIdx(insn, pc, "AMOADD.W", 1, 1), nil
		case funct3 == 0b010 && funct5 == 0b01100:
			return newIdx(insn, pc, "AMOAND.W", 0, 1), nil
		case funct3 == 0b011 && funct5 == 0b00000:
			return newIdx(insn, pc, "AMOADD.D", 1, 1), nil
		case funct3 == 0b011 && funct5 == 0b00001:
			return newIdx(insn, pc, "AMOSWAP.D", 2, 1), nil
		case funct3 == 0b011 && funct5 == 0b00010:
			return newIdx(insn, pc, "LR.D", 3, 1), nil
		case funct3 == 0b011 && funct5 == 0b00011:
			return newIdx(insn, pc, "SC.D", 4, 1), nil
		}
	case 0b0110111:
		return newIdx(insn, pc, "LUI", 21, 1), nil
	case 0b1100011: // branch
		switch funct3 {
		case 0x0:
			return newIdx(insn, pc, "BEQ", 13, 1), nil
		case 0x1:
			return newIdx(insn, pc, "BNE", 14, 1), nil
		case 0x4:
			return newIdx(insn, pc, "BLT", 15, 1), nil
		case 0x5:
			return newIdx(insn, pc, "BGE", 16, 1), nil
		case 0x6:
			return newIdx(insn, pc, "BLTU", 17, 1), nil
		case 0x7:
			return newIdx(insn, pc, "BGEU", 18, 1), nil
		}
	case 0b1100111:
		if funct3 == 0x0 {
			return newIdx(insn, pc, "JALR", 20, 1), nil
		}
	case 0b0011011: // ADDIW
		if funct3 == 0b000 {
			return newIdx(insn, pc, "ADDIW", 0, 1), nil
		}
	case 0b0111011: // MULW / REMUW
		switch {
		case funct3 == 0b000 && funct7 == 0b0000001:
			return newIdx(insn, pc, "MULW", 0, 1), nil
		case funct3 == 0b111 && funct7 == 0b0000001:
			return newIdx(insn, pc, "REMUW", 1, 1), nil
		}
	case 0b1101111:
		return newIdx(insn, pc, "JAL", 19, 1), nil
	case 0b1110011: // system
		switch funct3 {
		case 0x0:
			switch {
			case rs2 == 0x0 && funct7 == 0x0:
				return newMajorMinor(insn, pc, "ECALL", ECall, 0, 1), nil
			case rs2 == 0x1 && funct7 == 0x0:
				return newMajorMinor(insn, pc, "EBREAK", ECall, 1, 1), nil
			}
		case 0b010:
			return newIdx(insn, pc, "RDTIME", 0, 1), nil
		}
	case 0b0001111:
		return newIdx(insn, pc, "FENCE", 0, 1), nil
	}
	return OpCode{}, &IllegalOpcodeError{Insn: insn, PC: pc}
}
