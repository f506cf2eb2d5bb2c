// Command concuject drives one full extraction run: it traces a target
// program, then synthesizes and injects bug_num independent concurrency
// bugs into its source tree, writing each bug's output artifacts as it
// goes. See spec.md for the core algorithm this orchestrates.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/joeycumines/logiface"
	"github.com/pbnjay/memory"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/concuject/concuject/internal/artifact"
	"github.com/concuject/concuject/internal/builder"
	"github.com/concuject/concuject/internal/bugmodel"
	"github.com/concuject/concuject/internal/config"
	"github.com/concuject/concuject/internal/domclient"
	"github.com/concuject/concuject/internal/inject"
	"github.com/concuject/concuject/internal/mutate"
	"github.com/concuject/concuject/internal/obslog"
	"github.com/concuject/concuject/internal/rbcode"
	"github.com/concuject/concuject/internal/report"
	"github.com/concuject/concuject/internal/reproduce"
	"github.com/concuject/concuject/internal/tracer"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		configPath = flag.String("config", "concuject.toml", "path to the run configuration")
		traceCfg   = flag.String("trace-config", "", "path to the tracer's own config file")
		tracerExe  = flag.String("tracer", "", "path to the external tracer binary")
		domExe     = flag.String("dom-oracle", "", "path to the external dominator-oracle binary")
		seedInput  = flag.String("seed-input", "", "path to the seed input file")
		reproExe   = flag.String("reproducer", "", "path to the external reproduction-check binary; skipped if empty")
		verbose    = flag.Bool("v", false, "debug-level logging")
	)
	flag.Parse()

	level := logiface.LevelInformational
	if *verbose {
		level = logiface.LevelDebug
	}
	logger := obslog.NewStderr(level)

	if _, err := maxprocs.Set(maxprocs.Logger(func(f string, a ...any) { logger.Debug().Log(fmt.Sprintf(f, a...)) })); err != nil {
		logger.Err().Err(err).Log("failed to set GOMAXPROCS from cgroup limits")
	}
	if _, err := memlimit.SetGoMemLimitWithOpts(memlimit.WithRatio(0.9)); err != nil {
		logger.Err().Err(err).Log("failed to set GOMEMLIMIT from cgroup limits")
	}
	logger.Debug().Int64("system_memory_bytes", int64(memory.TotalMemory())).Log("detected system memory")

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Err().Err(err).Log("loading config")
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := extractAll(ctx, logger, cfg, *traceCfg, *tracerExe, *domExe, *seedInput, *reproExe); err != nil {
		logger.Err().Err(err).Log("extraction run failed")
		return 1
	}
	return 0
}

func extractAll(ctx context.Context, logger *obslog.Logger, cfg config.Config, traceConfigFile, tracerExe, domExe, seedInputPath, reproExe string) error {
	tr, err := tracer.Run(ctx, logger, tracerExe, traceConfigFile)
	if err != nil {
		return fmt.Errorf("concuject: tracing target: %w", err)
	}

	seedInput, err := os.ReadFile(seedInputPath)
	if err != nil {
		return fmt.Errorf("concuject: reading seed input %s: %w", seedInputPath, err)
	}

	dom := domclient.NewClient(cfg.Target.Srcdir, domExe)
	injectChecker := inject.NewInjectChecker([]string{"racebench.c", "racebench.h", "racebench_bugs.c", "racebench_bugs.h"})
	locChecker := func(fl bugmodel.FileLine) bool {
		ok, err := injectChecker.CanInsertBefore(fl.Filename, fl.Line)
		if err != nil {
			logger.Err().Err(err).Str("file", fl.Filename).Log("checking injection legality")
			return false
		}
		return ok
	}

	mutator := mutate.NewMutator(func([]byte) bool { return true })
	rng := rand.New(rand.NewSource(1))

	extractor := builder.NewExtractor(locChecker, dom, nil)
	orchestrator := builder.NewOrchestrator(extractor, cfg.Worker.Concurrency)

	mutatedInput, err := mutator.Mutate(rng, seedInput, cfg.Bug.ByteNum)
	if err != nil {
		return fmt.Errorf("concuject: mutating seed input: %w", err)
	}

	results, err := orchestrator.ExtractAll(ctx, cfg.Bug.Num, tr, seedInputPath, mutatedInput, cfg.Bug.InterNum, 1)
	if err != nil {
		return fmt.Errorf("concuject: extraction fan-out: %w", err)
	}

	rb := rbcode.NewRaceBenchCode(cfg.Target.Srcdir)
	if err := rb.CopyPresetFiles(nil); err != nil {
		return fmt.Errorf("concuject: copying racebench presets: %w", err)
	}

	injector := inject.NewInjector()
	sink, err := artifact.NewSink(cfg.Artifact.Dir, cfg.Artifact.S3Bucket, cfg.Artifact.S3Prefix)
	if err != nil {
		return fmt.Errorf("concuject: creating artifact sink: %w", err)
	}

	var reproducer *reproduce.Reproducer
	if reproExe != "" {
		reproducer = reproduce.NewReproducer(reproExe, cfg.Target.Cmd, cfg.Target.Srcdir,
			cfg.Reproduce.Timeout.Duration(), cfg.Reproduce.StepTimeout.Duration())
	}

	var bugs []*bugmodel.Bug
	for _, res := range results {
		if res.Err != nil {
			logger.Err().Err(res.Err).Int("bug_id", res.BugID).Log("bug extraction failed, skipping")
			continue
		}
		inject.QueueBug(injector, res.Bug)
		rb.AddState(res.Bug)
		bugs = append(bugs, res.Bug)
	}

	if err := injector.Commit(); err != nil {
		return fmt.Errorf("concuject: committing injected source: %w", err)
	}
	if err := rb.DumpStateDefs(); err != nil {
		return fmt.Errorf("concuject: emitting racebench state: %w", err)
	}

	for _, bug := range bugs {
		bug.ResolveOrderLines()

		var orderBuf bytes.Buffer
		if err := bug.DumpOrder(&orderBuf); err != nil {
			return fmt.Errorf("concuject: rendering order file for bug %d: %w", bug.BugID, err)
		}

		set := artifact.Set{BugID: bug.BugID, Log: bug.Log, Input: mutatedInput, Order: orderBuf.String()}
		hash, err := sink.Write(ctx, set)
		if err != nil {
			return fmt.Errorf("concuject: writing artifacts for bug %d: %w", bug.BugID, err)
		}

		if reproducer != nil {
			orderPath := filepath.Join(cfg.Artifact.Dir, fmt.Sprintf("order-%d.txt", bug.BugID))
			if err := reproducer.Run(ctx, logger, orderPath); err != nil {
				if errors.Is(err, reproduce.ErrCantReproduce) {
					logger.Warning().Int("bug_id", bug.BugID).Log("bug did not reproduce outside the builder")
				} else {
					logger.Warning().Err(err).Int("bug_id", bug.BugID).Log("reproduction check failed to run")
				}
			}
		}

		html, err := report.RenderHTML(report.Summary(bug.BugID, bug.Log))
		if err != nil {
			return fmt.Errorf("concuject: rendering report for bug %d: %w", bug.BugID, err)
		}
		reportPath := fmt.Sprintf("%s/report-%d.html", cfg.Artifact.Dir, bug.BugID)
		if err := os.WriteFile(reportPath, []byte(html), 0o644); err != nil {
			return fmt.Errorf("concuject: writing report for bug %d: %w", bug.BugID, err)
		}

		logger.Info().Int("bug_id", bug.BugID).Str("hash", hash).Log("bug extracted")
	}

	return nil
}
