package riscv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeClassifiesKnownMnemonics(t *testing.T) {
	cases := []struct {
		name string
		insn uint32
		want string
	}{
		{"lui", 0x1234b137, "LUI"},
		{"addi", 0xbcd10113, "ADDI"},
		{"add", 0x003100b3, "ADD"},
		{"sub", 0x402080b3, "SUB"},
		{"jal", 0x00c0036f, "JAL"},
		{"ecall", 0x00000073, "ECALL"},
		{"ebreak", 0x00100073, "EBREAK"},
		{"fence", 0x0000000f, "FENCE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			op, err := Decode(tc.insn, 0)
			require.NoError(t, err)
			require.Equal(t, tc.want, op.Mnemonic)
		})
	}
}

func TestDecodeRejectsIllegalOpcode(t *testing.T) {
	_, err := Decode(0x00000000, 0x54)
	require.Error(t, err)
	var illegal *IllegalOpcodeError
	require.ErrorAs(t, err, &illegal)
	require.Equal(t, uint64(0x54), illegal.PC)
}

func TestFieldDecoders(t *testing.T) {
	// addi x2, x0, -1 : imm=-1 sign-extends across the full 12-bit field.
	f := DecodeIType(0xfff00113)
	require.Equal(t, int64(-1), f.Imm)
	require.Equal(t, uint32(2), f.Rd)
	require.Equal(t, uint32(0), f.Rs1)
}
