package exec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sbnair/rv64core/memory"
)

// TestStepMatchesReferenceTrace replays the instruction sequence from
// rrs-lib's test_insn_execute (original_source/rrs/rrs-lib/src/lib.rs),
// packed the same way: each pair of 32-bit words is one little-endian
// 64-bit literal, the low half landing at the lower address. It runs to
// the same halting pc (0x54) and checks the final register values, which
// follow RV64 semantics (LUI, LW and LB results sign-extended to 64 bits),
// then checks that stepping once more reports the same illegal
// instruction at the same pc.
func TestStepMatchesReferenceTrace(t *testing.T) {
	packed := []uint64{
		0xbcd10113_1234b137,
		0x3aa18193_f387e1b7,
		0x7ac28293_bed892b7,
		0xf4e0e213_003100b3,
		0x00121463_02120a63,
		0x00c0036f_1542c093,
		0x402080b3_0020f0b3,
		0x02838393_00000397,
		0x00638483_0003a403,
		0x00139223_0023d503,
		0x00000000_0043a583,
		0x00000000_00000000,
		0xbaadf00d_deadbeef,
	}

	space := memory.NewSpace()
	program := memory.NewRegion(0, uint64(len(packed))*8)
	for i, word := range packed {
		require.True(t, program.Write(uint64(i)*8, memory.DoubleWord, word))
	}
	require.NoError(t, space.AddRegion(program))

	const systemStart = 0x10000
	require.NoError(t, space.AddRegion(memory.NewRegion(systemStart, 256)))

	hart := NewHartState(0)
	monitor := NewMonitor(space, systemStart, 0)
	executor := NewExecutor(hart, monitor)

	for hart.PC != 0x54 {
		err := executor.Step()
		require.NoError(t, err)
	}

	want := map[uint32]uint64{
		1:  0x05bc8f77,
		2:  0x1234abcd,
		3:  0xfffffffff387e3aa,
		4:  0xffffffffffffff7f,
		5:  0xffffffffbed897ac,
		6:  0x00000030,
		7:  0x00000060,
		8:  0xffffffffdeadbeef,
		9:  0xffffffffffffffad,
		10: 0x0000dead,
		11: 0xffffffffbaad8f77,
	}
	for idx, expect := range want {
		require.Equalf(t, expect, monitor.LoadRegister(idx), "x%d", idx)
	}

	err := executor.Step()
	require.Error(t, err)
	var illegal *IllegalInstructionError
	require.ErrorAs(t, err, &illegal)
	require.Equal(t, uint64(0x54), illegal.PC)
}

func TestStepHaltsOnExitSyscall(t *testing.T) {
	space := memory.NewSpace()
	region := memory.NewRegion(0, 4096)
	require.NoError(t, space.AddRegion(region))

	const systemStart = 0x2000
	require.NoError(t, space.AddRegion(memory.NewRegion(systemStart, 256)))

	hart := NewHartState(0)
	monitor := NewMonitor(space, systemStart, 0)
	executor := NewExecutor(hart, monitor)

	// addi a7, x0, 93 (exit); addi a0, x0, 7; ecall
	require.True(t, region.Write(0, memory.Word, 0x05d00893)) // addi a7,x0,93
	require.True(t, region.Write(4, memory.Word, 0x00700513)) // addi a0,x0,7
	require.True(t, region.Write(8, memory.Word, 0x00000073)) // ecall

	require.NoError(t, executor.Step())
	require.NoError(t, executor.Step())

	err := executor.Step()
	require.Error(t, err)
	var halt *Halt
	require.ErrorAs(t, err, &halt)
	require.Equal(t, uint32(7), halt.Code)
}

// TestStepMisalignedLoadFaults checks the E2E scenario from spec.md section
// 8: `lw x1, 1(x0)` against a zeroed x0 base faults with AlignmentFault(1)
// and leaves x1 unchanged.
func TestStepMisalignedLoadFaults(t *testing.T) {
	space := memory.NewSpace()
	region := memory.NewRegion(0, 4096)
	require.NoError(t, space.AddRegion(region))
	const systemStart = 0x2000
	require.NoError(t, space.AddRegion(memory.NewRegion(systemStart, 256)))

	// lw x1, 1(x0)
	require.True(t, region.Write(0, memory.Word, 0x00102083))

	hart := NewHartState(0)
	monitor := NewMonitor(space, systemStart, 0)
	executor := NewExecutor(hart, monitor)

	before := monitor.LoadRegister(1)
	err := executor.Step()
	require.Error(t, err)
	var fault *AlignmentFault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, uint64(1), fault.Addr)
	require.Equal(t, before, monitor.LoadRegister(1))
	require.Equal(t, uint64(0), hart.PC)
}

// TestStepMisalignedStoreFaults checks a misaligned sd leaves no pending
// write behind: the store never reaches Commit.
func TestStepMisalignedStoreFaults(t *testing.T) {
	space := memory.NewSpace()
	region := memory.NewRegion(0, 4096)
	require.NoError(t, space.AddRegion(region))
	const systemStart = 0x2000
	require.NoError(t, space.AddRegion(memory.NewRegion(systemStart, 256)))

	// sd x0, 2(x0)
	require.True(t, region.Write(0, memory.Word, 0x00003123))

	hart := NewHartState(0)
	monitor := NewMonitor(space, systemStart, 0)
	executor := NewExecutor(hart, monitor)

	err := executor.Step()
	require.Error(t, err)
	var fault *AlignmentFault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, uint64(2), fault.Addr)

	// The word inside the store's target range (addr 2 through 9) still
	// reads zero. The store's value is x0, so this read cannot tell a
	// leaked write from no write at all.
	raw, ok := region.Read(4, memory.Word)
	require.True(t, ok)
	require.Equal(t, uint64(0), raw)
}

// TestStepOutOfRangeStoreFaults checks an aligned store whose address falls
// outside every region escalates to a StoreAccessFault rather than being
// silently dropped.
func TestStepOutOfRangeStoreFaults(t *testing.T) {
	space := memory.NewSpace()
	region := memory.NewRegion(0, 4096)
	require.NoError(t, space.AddRegion(region))
	const systemStart = 0x2000
	require.NoError(t, space.AddRegion(memory.NewRegion(systemStart, 256)))

	hart := NewHartState(0)
	monitor := NewMonitor(space, systemStart, 0)
	executor := NewExecutor(hart, monitor)
	monitor.StoreRegister(1, 0x100000)

	// sd x0, 0(x1), with x1 pointing far outside every registered region
	require.True(t, region.Write(0, memory.Word, 0x0000b023))

	err := executor.Step()
	require.Error(t, err)
	var fault *StoreAccessFault
	require.ErrorAs(t, err, &fault)
	require.Equal(t, uint64(0x100000), fault.Addr)
}

func TestMonitorCommitIsTransactional(t *testing.T) {
	space := memory.NewSpace()
	region := memory.NewRegion(0, 64)
	require.NoError(t, space.AddRegion(region))

	m := NewMonitor(space, 0x1000, 0)
	m.Store(0, memory.Word, 0xdeadbeef)

	// Not yet visible in the backing space before Commit.
	raw, _ := region.Read(0, memory.Word)
	require.Equal(t, uint64(0), raw)

	// But visible through the monitor itself (read-your-writes).
	val, ok := m.Load(0, memory.Word)
	require.True(t, ok)
	require.Equal(t, uint64(0xdeadbeef), val)

	m.SaveOp(OpCodeResult{})
	m.Commit()
	raw, _ = region.Read(0, memory.Word)
	require.Equal(t, uint64(0xdeadbeef), raw)
}

// TestMonitorCommitWithoutSaveOpPanics checks the programmer-error contract:
// Commit must never run to completion without a prior SaveOp for the step.
func TestMonitorCommitWithoutSaveOpPanics(t *testing.T) {
	space := memory.NewSpace()
	require.NoError(t, space.AddRegion(memory.NewRegion(0, 64)))
	m := NewMonitor(space, 0x1000, 0)

	require.Panics(t, func() { m.Commit() })
}

func TestMonitorX2Bootstrap(t *testing.T) {
	space := memory.NewSpace()
	require.NoError(t, space.AddRegion(memory.NewRegion(0x1000, 256)))
	m := NewMonitor(space, 0x1000, 0xdead0000)

	require.Equal(t, uint64(0xdead0000), m.LoadRegister(2))

	m.StoreRegister(2, 0)
	require.Equal(t, uint64(0xdead0000), m.LoadRegister(2))

	m.StoreRegister(2, 0x42)
	require.Equal(t, uint64(0x42), m.LoadRegister(2))
}
