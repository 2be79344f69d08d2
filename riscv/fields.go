// Package riscv implements classical RV64 instruction decoding: extracting
// the canonical operand formats and classifying a 32-bit instruction word
// into a mnemonic with major/minor tags and a cycle weight.
//
// The operand formats mirror rrs-lib's instruction_formats module
// (original_source/rrs/rrs-lib/src/instruction_formats.rs is not in the
// retrieval pack directly, but instruction_executor.rs's field usage and
// opcode.rs's bit-field extraction fully determine the shapes used here);
// the classification table mirrors risc0's opcode.rs verbatim.
package riscv

// RType is the register-register format: opcode, rd, funct3, rs1, rs2, funct7.
type RType struct {
	Rd, Rs1, Rs2 uint32
}

// IType is the register-immediate / load / jalr format.
type IType struct {
	Rd, Rs1 uint32
	Imm     int64 // sign-extended 12-bit immediate
}

// ITypeShamt is an RV64 shift-immediate format: the 6-bit shift amount
// folds bit 25 (shamt[5]) into the immediate, per spec.md's funct7_rv64
// note.
type ITypeShamt struct {
	Rd, Rs1 uint32
	Shamt   uint32
}

// SType is the store format.
type SType struct {
	Rs1, Rs2 uint32
	Imm      int64
}

// BType is the branch format.
type BType struct {
	Rs1, Rs2 uint32
	Imm      int64
}

// UType is the LUI/AUIPC format.
type UType struct {
	Rd  uint32
	Imm int64 // already shifted into bit position 12..31, sign-extended
}

// JType is the JAL format.
type JType struct {
	Rd  uint32
	Imm int64
}

// AType is the atomic-memory-operation format (same field layout as RType,
// named separately because AMO instructions address memory through rs1
// rather than treating it as a third operand register).
type AType struct {
	Rd, Rs1, Rs2 uint32
}

func signExtend(v uint32, bits uint) int64 {
	shift := 32 - bits
	return int64(int32(v<<shift)) >> shift
}

// DecodeRType extracts the rd/rs1/rs2 fields of a register-register
// instruction.
func DecodeRType(insn uint32) RType {
	return RType{
		Rd:  (insn >> 7) & 0x1f,
		Rs1: (insn >> 15) & 0x1f,
		Rs2: (insn >> 20) & 0x1f,
	}
}

// DecodeAType extracts the rd/rs1/rs2 fields of an atomic-memory-operation
// instruction (same layout as RType).
func DecodeAType(insn uint32) AType {
	r := DecodeRType(insn)
	return AType{Rd: r.Rd, Rs1: r.Rs1, Rs2: r.Rs2}
}

// DecodeIType extracts the rd/rs1/imm fields of a register-immediate, load
// or jalr instruction.
func DecodeIType(insn uint32) IType {
	imm := signExtend(insn>>20, 12)
	return IType{
		Rd:  (insn >> 7) & 0x1f,
		Rs1: (insn >> 15) & 0x1f,
		Imm: imm,
	}
}

// DecodeITypeShamt extracts the rd/rs1/shamt fields of an RV64
// shift-immediate instruction.
func DecodeITypeShamt(insn uint32) ITypeShamt {
	return ITypeShamt{
		Rd:    (insn >> 7) & 0x1f,
		Rs1:   (insn >> 15) & 0x1f,
		Shamt: (insn >> 20) & 0x3f, // RV64: 6 bits, bit 25 is shamt[5]
	}
}

// DecodeSType extracts the rs1/rs2/imm fields of a store instruction.
func DecodeSType(insn uint32) SType {
	lo := (insn >> 7) & 0x1f
	hi := (insn >> 25) & 0x7f
	imm := signExtend((hi<<5)|lo, 12)
	return SType{
		Rs1: (insn >> 15) & 0x1f,
		Rs2: (insn >> 20) & 0x1f,
		Imm: imm,
	}
}

// DecodeBType extracts the rs1/rs2/imm fields of a branch instruction.
func DecodeBType(insn uint32) BType {
	bit11 := (insn >> 7) & 0x1
	lo4 := (insn >> 8) & 0xf
	mid6 := (insn >> 25) & 0x3f
	bit12 := (insn >> 31) & 0x1
	raw := (bit12 << 12) | (bit11 << 11) | (mid6 << 5) | (lo4 << 1)
	imm := signExtend(raw, 13)
	return BType{
		Rs1: (insn >> 15) & 0x1f,
		Rs2: (insn >> 20) & 0x1f,
		Imm: imm,
	}
}

// DecodeUType extracts the rd/imm fields of a LUI/AUIPC instruction.
func DecodeUType(insn uint32) UType {
	return UType{
		Rd:  (insn >> 7) & 0x1f,
		Imm: int64(int32(insn & 0xffff_f000)),
	}
}

// DecodeJType extracts the rd/imm fields of a JAL instruction.
func DecodeJType(insn uint32) JType {
	bit20 := (insn >> 31) & 0x1
	lo10 := (insn >> 21) & 0x3ff
	bit11 := (insn >> 20) & 0x1
	hi8 := (insn >> 12) & 0xff
	raw := (bit20 << 20) | (hi8 << 12) | (bit11 << 11) | (lo10 << 1)
	imm := signExtend(raw, 21)
	return JType{
		Rd:  (insn >> 7) & 0x1f,
		Imm: imm,
	}
}
