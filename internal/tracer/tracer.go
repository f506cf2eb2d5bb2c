package tracer

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/concuject/concuject/internal/obslog"
	"github.com/concuject/concuject/internal/trace"
)

// Config is the JSON document the external tracer is invoked with and
// reads back once it exits: working directory plus the paths (relative to
// cwd, unless absolute) of the log it wrote, the blacklist it consulted,
// and the target's source tree.
type Config struct {
	CWD       string `json:"cwd"`
	Log       string `json:"log"`
	Blacklist string `json:"blacklist"`
	Srcdir    string `json:"srcdir"`
}

func (c Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.CWD, path)
}

// ReadConfig loads a Config from a JSON file at path.
func ReadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("tracer: reading config %s: %w", path, err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("tracer: parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Run invokes the external tracer binary against configFile, then parses
// its log and blacklist output into a trace.Trace. The subprocess runs in
// its own process group so a context cancellation can tear down every
// child it spawned, not just the immediate one.
func Run(ctx context.Context, logger *obslog.Logger, tracerPath, configFile string) (*trace.Trace, error) {
	logger.Debug().Str("tracer_path", tracerPath).Str("config_file", configFile).Log("starting tracer subprocess")

	cmd := exec.CommandContext(ctx, tracerPath, configFile)
	cmd.Stdout = nil
	cmd.Stderr = nil
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("tracer: starting %s: %w", tracerPath, err)
	}
	runErr := cmd.Wait()
	if runErr != nil {
		killProcessGroup(cmd)
		return nil, fmt.Errorf("tracer: running %s: %w", tracerPath, runErr)
	}

	cfg, err := ReadConfig(configFile)
	if err != nil {
		return nil, err
	}

	logPath := cfg.resolve(cfg.Log)
	blackPath := cfg.resolve(cfg.Blacklist)
	srcdir := cfg.resolve(cfg.Srcdir)

	logFile, err := os.Open(logPath)
	if err != nil {
		return nil, fmt.Errorf("tracer: opening log %s: %w", logPath, err)
	}
	defer logFile.Close()
	positions, err := trace.ParseLog(logFile)
	if err != nil {
		return nil, err
	}

	var blacklist trace.Blacklist
	if blackPath != "" {
		blackFile, err := os.Open(blackPath)
		if err != nil {
			return nil, fmt.Errorf("tracer: opening blacklist %s: %w", blackPath, err)
		}
		defer blackFile.Close()
		blacklist, err = trace.ParseBlacklist(blackFile)
		if err != nil {
			return nil, err
		}
	}

	logger.Info().Int("positions", len(positions)).Log("tracer finished")
	return trace.NewTrace(positions, blacklist, srcdir), nil
}
