// Command rv64core loads an RV64 ELF binary and runs it to completion
// against the execution core, printing the resulting session trace. Flag
// layout follows cannon's run command (see the corpus's cmd/run.go): a
// required --elf input, a --verbose switch (repeating it has no further
// effect), and an optional JSON --receipt output path.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/sbnair/rv64core"
	"github.com/sbnair/rv64core/exec"
	"github.com/sbnair/rv64core/internal/metrics"
	"github.com/sbnair/rv64core/internal/rvlog"
	"github.com/sbnair/rv64core/memory"
	"github.com/sbnair/rv64core/program"
	"github.com/sbnair/rv64core/session"
)

var (
	elfFlag = &cli.PathFlag{
		Name:      "elf",
		Usage:     "path to the RV64 ELF executable to run",
		TakesFile: true,
		Required:  true,
	}
	receiptFlag = &cli.PathFlag{
		Name:      "receipt",
		Usage:     "path to write the session receipt as JSON; stdout if empty",
		TakesFile: true,
	}
	stepLimitFlag = &cli.Uint64Flag{
		Name:  "step-limit",
		Usage: "maximum total instructions to execute before exiting with SessionLimit (0 for unbounded)",
	}
	segmentStepsFlag = &cli.Uint64Flag{
		Name:  "segment-steps",
		Usage: "instructions per segment (0 for a single segment covering the whole run)",
	}
	metricsFlag = &cli.BoolFlag{
		Name:  "metrics",
		Usage: "record step-loop metrics to an in-process Prometheus registry (the registry is not printed or served)",
	}
	verboseFlag = &cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "enable debug logging",
	}
)

// receipt is the JSON-serialisable summary of a completed run, using
// go-ethereum/common/hexutil for the address/word fields the way the
// corpus's state and proof types do.
type receipt struct {
	EntryPC  hexutil.Uint64 `json:"entryPc"`
	ExitCode string         `json:"exitCode"`
	Segments int            `json:"segments"`
	Steps    uint64         `json:"steps"`
}

func run(c *cli.Context) error {
	verbosity := 0
	if c.Bool(verboseFlag.Name) {
		verbosity = 1
	}
	logger := rvlog.New(verbosity)

	data, err := os.ReadFile(c.Path(elfFlag.Name))
	if err != nil {
		return fmt.Errorf("rv64core: failed to read elf: %w", err)
	}

	cfg := rv64core.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("rv64core: invalid config: %w", err)
	}

	prog, err := program.Load(data, cfg.MaxMem)
	if err != nil {
		return fmt.Errorf("rv64core: failed to load program: %w", err)
	}
	logger.Info("loaded program", "entry", fmt.Sprintf("0x%x", prog.Entry), "words", len(prog.Image))

	space, err := memory.NewImage(cfg.MemSize, rv64core.PlaygroundBase, prog.Image)
	if err != nil {
		return fmt.Errorf("rv64core: failed to build memory image: %w", err)
	}
	// The register file lives in its own shadow region, separate from the
	// primary and playground regions NewImage builds, so it must be added
	// before any register access.
	if err := space.AddRegion(memory.NewRegion(cfg.SystemStart, rv64core.RegisterFileSize)); err != nil {
		return fmt.Errorf("rv64core: failed to map register file: %w", err)
	}

	hart := exec.NewHartState(prog.Entry)
	monitor := exec.NewMonitor(space, cfg.SystemStart, cfg.StackInitialAddress)
	executor := exec.NewExecutor(hart, monitor)

	var recorder metrics.Recorder = metrics.Noop{}
	var reg *prometheus.Registry
	if c.Bool(metricsFlag.Name) {
		reg = prometheus.NewRegistry()
		recorder = metrics.New(reg)
	}

	segSteps := c.Uint64(segmentStepsFlag.Name)
	stepLimit := c.Uint64(stepLimitFlag.Name)
	if stepLimit == 0 {
		stepLimit = cfg.StepLimit
	}
	driver := session.NewDriver(executor, segSteps, stepLimit)

	sess, runErr := driver.Run()
	if runErr != nil {
		dump := hart.Dump(monitor)
		logger.Error("run failed", "err", runErr, "dump", dump)
		fmt.Fprintln(os.Stderr, dump)
		return runErr
	}

	var total uint64
	for _, seg := range sess.Segments {
		total += seg.Steps
		recorder.SegmentCompleted(seg.Steps)
	}
	if sess.ExitCode.Halted {
		recorder.Halted(sess.ExitCode.Code)
	}

	r := receipt{
		EntryPC:  hexutil.Uint64(prog.Entry),
		ExitCode: sess.ExitCode.String(),
		Segments: len(sess.Segments),
		Steps:    total,
	}
	out, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("rv64core: failed to marshal receipt: %w", err)
	}

	if path := c.Path(receiptFlag.Name); path != "" {
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return fmt.Errorf("rv64core: failed to write receipt: %w", err)
		}
	} else {
		fmt.Println(string(out))
	}
	return nil
}

func main() {
	app := &cli.App{
		Name:  "rv64core",
		Usage: "run an RV64 ELF binary against the execution core",
		Flags: []cli.Flag{
			elfFlag,
			receiptFlag,
			stepLimitFlag,
			segmentStepsFlag,
			metricsFlag,
			verboseFlag,
		},
		Action: run,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
