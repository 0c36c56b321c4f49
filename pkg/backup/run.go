package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/config"
	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/device"
	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/logging"
)

// Result summarizes one run.
type Result struct {
	RunID    string
	Plan     Plan
	Duration time.Duration
}

// Runner wires one backup pipeline to the system it runs on. Build it with
// NewRunner; tests override the collaborators.
type Runner struct {
	Config  config.Config
	Devices device.Enumerator
	Mounter device.Mounter

	// Engine overrides the config-selected sync engine when set.
	Engine Engine

	// LookPath resolves external binaries; exec.LookPath outside of tests.
	LookPath func(string) (string, error)

	// Out receives the plan and step listing in dry-run mode.
	Out io.Writer
}

// NewRunner returns a Runner bound to the real system tools.
func NewRunner(cfg config.Config) *Runner {
	return &Runner{
		Config:   cfg,
		Devices:  device.NewLsblk(),
		Mounter:  device.ExecMounter{},
		LookPath: exec.LookPath,
		Out:      os.Stdout,
	}
}

// Run executes one backup: lock, dependency check, log rotation, plan, then
// the mount/space/sync/verify steps with their teardown. With dryRun it stops
// after printing the plan and the steps it would take, touching nothing.
func (r *Runner) Run(ctx context.Context, dryRun bool) (Result, error) {
	start := time.Now()
	res := Result{RunID: uuid.NewString()}

	logger := log.Ctx(ctx).With().Str("run_id", res.RunID).Logger()
	ctx = logger.WithContext(ctx)

	err := r.run(ctx, dryRun, &res)
	res.Duration = time.Since(start)
	r.summarize(ctx, res, dryRun, err)
	return res, err
}

func (r *Runner) run(ctx context.Context, dryRun bool, res *Result) error {
	if !dryRun && r.Config.Lock.Path != "" {
		lock, err := AcquireLock(ctx, r.Config.Lock.Path)
		if err != nil {
			return err
		}
		defer func() {
			if err := lock.Release(); err != nil {
				log.Ctx(ctx).Warn().Err(err).Msg("releasing run lock")
			}
		}()
	}

	if err := checkDependencies(r.lookPath(), r.engine().Name()); err != nil {
		return err
	}

	if !dryRun {
		// The run log is rotated at the start of every run, not only at
		// process start; in schedule mode the process lives across many runs.
		if err := logging.TrimToTail(r.Config.Log.Path, r.Config.Log.MaxLines); err != nil {
			return err
		}
	}

	plan, err := BuildPlan(ctx, r.Config, r.Devices)
	if err != nil {
		return err
	}
	res.Plan = plan

	if dryRun {
		r.printPlan(plan)
		return nil
	}

	if plan.NeedsMount && os.Geteuid() != 0 {
		log.Ctx(ctx).Warn().Msg("not running as root, mounting will likely fail")
	}

	return RunSteps(ctx, r.buildSteps(plan))
}

func (r *Runner) buildSteps(plan Plan) []Step {
	var steps []Step
	if plan.NeedsMount {
		steps = append(steps, &mountStep{
			mounter: r.Mounter,
			devPath: plan.Device.Path,
			target:  plan.MountPoint,
		})
	}
	steps = append(steps, &spaceStep{
		mountPoint: plan.MountPoint,
		destDir:    plan.DestDir,
		sourceSize: plan.SourceSize,
		minFree:    r.Config.Device.MinFree,
	})
	steps = append(steps, &syncStep{
		engine: r.engine(),
		src:    plan.SourceDir,
		dst:    plan.DestDir,
	})
	if plan.Verify {
		steps = append(steps, &verifyStep{src: plan.SourceDir, dst: plan.DestDir})
	}
	return steps
}

func (r *Runner) printPlan(plan Plan) {
	out := r.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprint(out, plan.String())
	fmt.Fprintln(out, "Steps:")
	for _, line := range lo.Map(r.buildSteps(plan), func(s Step, _ int) string { return s.Describe() }) {
		fmt.Fprintln(out, "  -", line)
	}
}

func (r *Runner) summarize(ctx context.Context, res Result, dryRun bool, err error) {
	ev := log.Ctx(ctx).Info()
	result := "success"
	if err != nil {
		ev = log.Ctx(ctx).Error().Err(err)
		result = "failure"
	}
	ev.Str("source", res.Plan.SourceDir).
		Str("volume", res.Plan.Device.Path).
		Str("dest", res.Plan.DestDir).
		Int("files", res.Plan.SourceFiles).
		Str("size", res.Plan.SourceSize.HumanReadable()).
		Dur("duration", res.Duration).
		Bool("dry_run", dryRun).
		Str("result", result).
		Msg("run summary")
}

func (r *Runner) engine() Engine {
	if r.Engine != nil {
		return r.Engine
	}
	if r.Config.Sync.Engine == config.EngineCopy {
		return CopyEngine{}
	}
	return &RsyncEngine{
		ExtraArgs: r.Config.Sync.ExtraArgs,
		LogPath:   r.Config.Log.TransferPath,
	}
}

func (r *Runner) lookPath() func(string) (string, error) {
	if r.LookPath != nil {
		return r.LookPath
	}
	return exec.LookPath
}
