// Package session drives a hart to completion and records the resulting
// trace, mirroring risc0's session.rs (original_source/risc0-nova/risc0/
// zkvm/src/session.rs): a Session is a sequence of Segments, each ending in
// an ExitCode, with the final segment's code becoming the session's own.
package session

import (
	"errors"
	"fmt"

	"github.com/sbnair/rv64core/exec"
)

// ExitCode is the reason a segment stopped stepping. Halted carries the
// RV64 Linux ABI exit status from an exit/exit_group ecall (or 0 for
// ebreak); SessionLimit means the step budget was exhausted before the
// guest halted itself.
type ExitCode struct {
	Halted       bool
	Code         uint32
	SessionLimit bool
}

func (e ExitCode) String() string {
	switch {
	case e.SessionLimit:
		return "SessionLimit"
	case e.Halted:
		return fmt.Sprintf("Halted(%d)", e.Code)
	default:
		return "Running"
	}
}

// Segment is one bounded run of the step loop: the PC it started at, the
// number of steps it executed, and the ExitCode it ended with.
type Segment struct {
	StartPC  uint64
	Steps    uint64
	ExitCode ExitCode
}

// Session is the ordered list of Segments produced by Run, plus the final
// ExitCode (the last segment's).
type Session struct {
	Segments []Segment
	ExitCode ExitCode
}

// Driver steps an Executor in segments of at most segmentSteps
// instructions, recording one Segment per such run, until the guest
// halts or the overall stepLimit (0 meaning unbounded) is exhausted.
type Driver struct {
	Executor     *exec.Executor
	SegmentSteps uint64
	StepLimit    uint64
}

// NewDriver returns a Driver over executor, segmenting every segmentSteps
// instructions (0 means one segment covering the whole run) and stopping
// at stepLimit total instructions (0 meaning unbounded).
func NewDriver(executor *exec.Executor, segmentSteps, stepLimit uint64) *Driver {
	return &Driver{Executor: executor, SegmentSteps: segmentSteps, StepLimit: stepLimit}
}

// Run steps the hart until it halts or the step limit is reached,
// returning the full Session. A fault surfaced by Executor.Step that is
// neither a *exec.Halt nor the step limit is returned as an error; the
// partial Session accumulated so far is discarded, matching risc0's
// behaviour of treating a mid-segment trap as unrecoverable rather than a
// normal ExitCode.
func (d *Driver) Run() (*Session, error) {
	sess := &Session{}
	var total uint64

	for {
		seg := Segment{StartPC: d.Executor.Hart.PC}
		limit := d.SegmentSteps

		for limit == 0 || seg.Steps < limit {
			if d.StepLimit != 0 && total >= d.StepLimit {
				seg.ExitCode = ExitCode{SessionLimit: true}
				sess.Segments = append(sess.Segments, seg)
				sess.ExitCode = seg.ExitCode
				return sess, nil
			}

			err := d.Executor.Step()
			seg.Steps++
			total++

			if err == nil {
				continue
			}

			var halt *exec.Halt
			if errors.As(err, &halt) {
				seg.ExitCode = ExitCode{Halted: true, Code: halt.Code}
				sess.Segments = append(sess.Segments, seg)
				sess.ExitCode = seg.ExitCode
				d.Executor.Monitor.ClearSegment()
				return sess, nil
			}
			return nil, fmt.Errorf("session: step %d at pc 0x%x: %w", total, d.Executor.Hart.PC, err)
		}

		// Hitting SegmentSteps only splits the trace into another segment;
		// it is not a terminal condition, so the segment's own ExitCode
		// stays the zero value (Running) rather than SessionLimit, which is
		// reserved for the driver's overall StepLimit being exhausted.
		sess.Segments = append(sess.Segments, seg)
		d.Executor.Monitor.ClearSegment()
	}
}
