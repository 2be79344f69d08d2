package exec

// RV64 Linux syscall numbers this core recognises on ecall. The exit paths
// halt the hart; read and write perform no host I/O and are answered with
// 0 and the requested byte count respectively; every other number is
// answered with -ENOSYS, since the interpreter has no kernel behind it.
// Every ecall is recorded for segment replay.
// Numbers and the FdStd* constants are the RV64 analogue of
// cannon/mipsevm/exec/mips_syscalls.go's SysExitGroup/FdStdout family,
// renumbered from the MIPS o32 table to the RV64 table.
const (
	SysRead      = 63
	SysWrite     = 64
	SysExit      = 93
	SysExitGroup = 94
)

const (
	FdStdin  = 0
	FdStdout = 1
	FdStderr = 2
)

// errNoSys is -ENOSYS in RV64's two's-complement return convention.
const errNoSys = ^uint64(38 - 1)

// GetSyscallArgs reads the pending ecall's number and argument registers
// per the RV64 Linux ABI: a7 (x17) carries the syscall number, a0..a5
// (x10..x15) carry up to six arguments. This is the RV64 counterpart of
// mips_syscalls.go's GetSyscallArgs, which reads v0/a0..a3 from the MIPS
// o32 convention instead.
func GetSyscallArgs(m *Monitor) (number uint64, args [6]uint64) {
	number = m.LoadRegister(17)
	for i := 0; i < 6; i++ {
		args[i] = m.LoadRegister(uint32(10 + i))
	}
	return number, args
}

// HandleSyscall executes the narrow set of syscalls this core understands
// and returns the outcome as a SyscallRecord for the caller to stage via
// Monitor.SaveOp, rather than recording it directly; per spec.md section
// 4.4, the record only becomes part of the segment's replay log once the
// whole step commits. A non-nil returned *Halt signals an exit/exit_group
// ecall; the caller (Executor.Step) propagates it as the step's terminal
// error. Every other ecall writes its result into a0 (0 for read, the byte
// count for write, -ENOSYS for any other number) and lets execution
// continue, mirroring mips_syscalls.go's HandleSyscallUpdates
// writing back into registers 2 and 7.
func HandleSyscall(m *Monitor) (*SyscallRecord, *Halt) {
	number, args := GetSyscallArgs(m)

	var result uint64
	var halt *Halt
	switch number {
	case SysExit, SysExitGroup:
		halt = &Halt{Code: uint32(args[0])}
		result = args[0]
	case SysWrite:
		// Recorded for replay only; this core does not perform host I/O.
		result = args[2]
	case SysRead:
		result = 0
	default:
		result = errNoSys
	}

	if halt == nil {
		m.StoreRegister(10, result)
	}
	return &SyscallRecord{Number: number, Args: args, Result: result}, halt
}
