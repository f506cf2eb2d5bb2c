package reproduce

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/concuject/concuject/internal/obslog"
)

// ErrCantReproduce is returned when the reproduction subprocess ran to
// completion without the recorded schedule triggering the bug again.
var ErrCantReproduce = errors.New("reproduce: schedule did not trigger the bug outside the builder")

// config is the JSON document the reproduction subprocess is invoked with.
type config struct {
	Cmd      []string `json:"cmd"`
	CWD      string   `json:"cwd"`
	StepTime float64  `json:"steptime"`
	Timeout  float64  `json:"timeout"`
	Trace    string   `json:"trace"`
}

// Reproducer replays a single bug's schedule against the compiled target
// under GDB control, via an external subprocess.
type Reproducer struct {
	// ExePath is the reproduction driver binary.
	ExePath string
	// Cmd is the target program's argv.
	Cmd []string
	// CWD is the directory the target runs in.
	CWD string
	// Timeout bounds the whole replay; StepTimeout bounds each GDB step.
	Timeout, StepTimeout time.Duration
}

func NewReproducer(exePath string, cmd []string, cwd string, timeout, stepTimeout time.Duration) *Reproducer {
	return &Reproducer{ExePath: exePath, Cmd: cmd, CWD: cwd, Timeout: timeout, StepTimeout: stepTimeout}
}

// Run replays tracePath (the bug's recorded schedule) and reports whether
// it reproduced the trigger: nil if it did, ErrCantReproduce if the
// subprocess finished without recording a trigger, and any other error if
// the subprocess or its temporary files could not be run or read.
func (r *Reproducer) Run(ctx context.Context, logger *obslog.Logger, tracePath string) error {
	cfg := config{
		Cmd:      r.Cmd,
		CWD:      r.CWD,
		StepTime: r.StepTimeout.Seconds(),
		Timeout:  r.Timeout.Seconds(),
		Trace:    tracePath,
	}

	configFile, err := writeTempJSON(cfg)
	if err != nil {
		return err
	}
	defer os.Remove(configFile)

	outFile, err := os.CreateTemp("", "*.repro.out")
	if err != nil {
		return fmt.Errorf("reproduce: creating output file: %w", err)
	}
	outPath := outFile.Name()
	outFile.Close()
	defer os.Remove(outPath)

	logger.Debug().Str("trace", tracePath).Log("starting reproduction subprocess")

	cmd := exec.CommandContext(ctx, r.ExePath, configFile, outPath)
	cmd.Stdin = nil
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("reproduce: running %s: %w", r.ExePath, err)
	}

	triggered, err := hasTrigger(outPath)
	if err != nil {
		return err
	}
	if !triggered {
		logger.Info().Str("trace", tracePath).Log("reproduction did not trigger")
		return ErrCantReproduce
	}
	logger.Info().Str("trace", tracePath).Log("reproduction triggered")
	return nil
}

// hasTrigger reports whether outPath contains a non-empty JSON array of
// observed trigger events. A missing or unparsable file counts as no
// trigger, matching the subprocess's own convention of simply not writing
// anything when nothing fired.
func hasTrigger(outPath string) (bool, error) {
	data, err := os.ReadFile(outPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("reproduce: reading output %s: %w", outPath, err)
	}
	var events []json.RawMessage
	if err := json.Unmarshal(data, &events); err != nil {
		return false, nil
	}
	return len(events) > 0, nil
}

func writeTempJSON(v any) (string, error) {
	f, err := os.CreateTemp("", "*.repro.json")
	if err != nil {
		return "", fmt.Errorf("reproduce: creating config file: %w", err)
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("reproduce: writing config file: %w", err)
	}
	return f.Name(), nil
}
