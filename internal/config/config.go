package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Bug configures the population of bugs to extract.
type Bug struct {
	// Num is how many independent bugs to extract.
	Num int `toml:"num"`
	// MaxTry is decoded but not consulted: the extractor's per-bug retry
	// budget is the constant builder.FailLimit.
	MaxTry int `toml:"max_try"`
	// ByteNum is how many accepted byte mutations to apply to the seed
	// input; the input is mutated once per run and shared by every bug.
	ByteNum int `toml:"byte_num"`
	// InterNum bounds path_len, the DUA chain length.
	InterNum int `toml:"inter_num"`
}

// Mutate holds settings for internal/mutate's retry loop. Both fields are
// decoded but not consulted: Mutator.Mutate retries rejected mutations
// without a trial limit and calls its checker without a timeout.
type Mutate struct {
	// Trials is the configured number of mutation attempts (accepted +
	// rejected) for a seed input.
	Trials int `toml:"trials"`
	// StepTimeout is the configured per-trial time for the validity checker.
	StepTimeout Duration `toml:"step_timeout"`
}

// Target names the program under extraction and where its source lives.
type Target struct {
	Name   string   `toml:"name"`
	Srcdir string   `toml:"srcdir"`
	Cmd    []string `toml:"cmd"`
}

// Reproduce configures internal/reproduce's post-hoc GDB replay.
type Reproduce struct {
	// Timeout bounds the whole replay; StepTimeout bounds each GDB step.
	Timeout     Duration `toml:"timeout"`
	StepTimeout Duration `toml:"step_timeout"`
}

// Worker bounds the extraction fan-out in builder.Orchestrator.
type Worker struct {
	// Concurrency is the maximum number of bugs extracted in parallel.
	Concurrency int `toml:"concurrency"`
}

// Artifact configures internal/artifact's output sink.
type Artifact struct {
	// Dir is the local directory every bug's output files are written to.
	Dir string `toml:"dir"`
	// S3Bucket, if non-empty, is an additional upload destination.
	S3Bucket string `toml:"s3_bucket"`
	S3Prefix string `toml:"s3_prefix"`
}

// Config is the full document passed to cmd/concuject.
type Config struct {
	Bug       Bug       `toml:"bug"`
	Mutate    Mutate    `toml:"mutate"`
	Target    Target    `toml:"target"`
	Worker    Worker    `toml:"worker"`
	Artifact  Artifact  `toml:"artifact"`
	Reproduce Reproduce `toml:"reproduce"`
}

// Duration lets TOML documents write human durations ("30s") while the
// program consumes a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("config: parsing duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Duration() time.Duration { return time.Duration(d) }

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Bug:       Bug{Num: 1, MaxTry: 20, ByteNum: 8, InterNum: 4},
		Mutate:    Mutate{Trials: 100, StepTimeout: Duration(5 * time.Second)},
		Worker:    Worker{Concurrency: 1},
		Reproduce: Reproduce{Timeout: Duration(30 * time.Second), StepTimeout: Duration(5 * time.Second)},
	}
}

// Load reads and decodes a TOML config file, filling in Default() for any
// field the file doesn't mention.
func Load(path string) (Config, error) {
	cfg := Default()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("config: decoding %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("config: %s has unrecognized keys: %v", path, undecoded)
	}
	return cfg, nil
}
