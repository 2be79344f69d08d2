package riscv

import (
	"fmt"
	"strings"
)

// Disassemble renders insn as a short assembly-like string for diagnostics,
// the way risc0's OpCode::debug and rrs-lib's InstructionStringOutputter
// render the current instruction when a trace needs to explain itself. It
// never fails: an undecodable word still yields a best-effort string
// ("illegal 0x...") rather than propagating the decode error, since callers
// use this purely for human-facing context alongside a typed fault.
func Disassemble(insn uint32) string {
	op, err := Decode(insn, 0)
	if err != nil {
		return fmt.Sprintf("illegal 0x%08x", insn)
	}

	mnem := strings.ToLower(op.Mnemonic)
	switch op.Mnemonic {
	case "ADD", "SUB", "SLL", "SLT", "SLTU", "XOR", "SRL", "SRA", "OR", "AND",
		"MUL", "MULH", "MULSU", "MULU", "MULW", "DIV", "DIVU", "REM", "REMU", "REMUW":
		f := DecodeRType(insn)
		return fmt.Sprintf("%s x%d,x%d,x%d", mnem, f.Rd, f.Rs1, f.Rs2)

	case "ADDI", "SLTI", "SLTIU", "XORI", "ORI", "ANDI", "ADDIW", "RDTIME", "JALR":
		f := DecodeIType(insn)
		if op.Mnemonic == "JALR" {
			return fmt.Sprintf("jalr x%d,%d(x%d)", f.Rd, f.Imm, f.Rs1)
		}
		if op.Mnemonic == "RDTIME" {
			return fmt.Sprintf("rdtime x%d", f.Rd)
		}
		return fmt.Sprintf("%s x%d,x%d,%d", mnem, f.Rd, f.Rs1, f.Imm)

	case "SLLI", "SRLI", "SRAI":
		f := DecodeITypeShamt(insn)
		return fmt.Sprintf("%s x%d,x%d,%d", mnem, f.Rd, f.Rs1, f.Shamt)

	case "LB", "LH", "LW", "LD", "LBU", "LHU", "LWU":
		f := DecodeIType(insn)
		return fmt.Sprintf("%s x%d,%d(x%d)", mnem, f.Rd, f.Imm, f.Rs1)

	case "SB", "SH", "SW", "SD":
		f := DecodeSType(insn)
		return fmt.Sprintf("%s x%d,%d(x%d)", mnem, f.Rs2, f.Imm, f.Rs1)

	case "LUI", "AUIPC":
		f := DecodeUType(insn)
		return fmt.Sprintf("%s x%d,0x%x", mnem, f.Rd, uint64(f.Imm)>>12)

	case "BEQ", "BNE", "BLT", "BGE", "BLTU", "BGEU":
		f := DecodeBType(insn)
		return fmt.Sprintf("%s x%d,x%d,%d", mnem, f.Rs1, f.Rs2, f.Imm)

	case "JAL":
		f := DecodeJType(insn)
		return fmt.Sprintf("jal x%d,%d", f.Rd, f.Imm)

	case "AMOSWAP.W", "AMOADD.W", "AMOOR.W", "AMOAND.W", "AMOADD.D", "AMOSWAP.D":
		f := DecodeAType(insn)
		return fmt.Sprintf("%s x%d,x%d,(x%d)", mnem, f.Rd, f.Rs2, f.Rs1)

	case "LR.W", "LR.D":
		f := DecodeAType(insn)
		return fmt.Sprintf("%s x%d,(x%d)", mnem, f.Rd, f.Rs1)

	case "SC.W", "SC.D":
		f := DecodeAType(insn)
		return fmt.Sprintf("%s x%d,x%d,(x%d)", mnem, f.Rd, f.Rs2, f.Rs1)

	case "FENCE", "ECALL", "EBREAK":
		return mnem

	default:
		return mnem
	}
}
