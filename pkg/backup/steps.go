package backup

import (
	"context"
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/Qalisa/k8s-local-path-flashdrive-rsync/pkg/device"
)

// Step is one stage of the pipeline. Setup does the work; Teardown undoes
// whatever Setup left behind.
type Step interface {
	Name() string
	Describe() string
	Setup(ctx context.Context) error
	Teardown(ctx context.Context) error
}

// RunSteps drives the steps in order, stopping at the first setup failure,
// then tears down the completed ones in reverse. A failing teardown is logged
// and reported, but never masks the error that stopped the run.
func RunSteps(ctx context.Context, steps []Step) error {
	var performed []Step
	var runErr error
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		log.Ctx(ctx).Debug().Str("step", step.Name()).Msg(step.Describe())
		if err := step.Setup(ctx); err != nil {
			runErr = errors.Wrapf(err, "step %s", step.Name())
			break
		}
		performed = append(performed, step)
	}

	// Cleanup still runs when ctx was cancelled; an unmount must not be
	// killed halfway through.
	teardownCtx := context.WithoutCancel(ctx)
	var undoErr *multierror.Error
	for i := len(performed) - 1; i >= 0; i-- {
		step := performed[i]
		if err := step.Teardown(teardownCtx); err != nil {
			log.Ctx(ctx).Warn().Err(err).Str("step", step.Name()).Msg("teardown failed")
			undoErr = multierror.Append(undoErr, errors.Wrapf(err, "teardown %s", step.Name()))
		}
	}

	if runErr != nil {
		return runErr
	}
	return undoErr.ErrorOrNil()
}

// noTeardown is embedded by steps that leave nothing behind.
type noTeardown struct{}

func (noTeardown) Teardown(context.Context) error { return nil }

type mountStep struct {
	mounter device.Mounter
	devPath string
	target  string
}

func (s *mountStep) Name() string { return "mount" }

func (s *mountStep) Describe() string {
	return fmt.Sprintf("mount %s on %s", s.devPath, s.target)
}

func (s *mountStep) Setup(ctx context.Context) error {
	return s.mounter.Mount(ctx, s.devPath, s.target)
}

func (s *mountStep) Teardown(ctx context.Context) error {
	return s.mounter.Unmount(ctx, s.target)
}

type spaceStep struct {
	noTeardown
	mountPoint string
	destDir    string
	sourceSize datasize.ByteSize
	minFree    datasize.ByteSize
}

func (s *spaceStep) Name() string { return "free-space" }

func (s *spaceStep) Describe() string {
	return fmt.Sprintf("check %s has room for %s", s.mountPoint, (s.sourceSize + s.minFree).HumanReadable())
}

func (s *spaceStep) Setup(ctx context.Context) error {
	need := s.sourceSize + s.minFree
	// Whatever the previous mirror occupies gets overwritten or deleted, so
	// it counts as available.
	if _, existing, err := TreeSize(s.destDir); err == nil {
		if existing >= need {
			return nil
		}
		need -= existing
	}
	return CheckFreeSpace(s.mountPoint, need)
}

type syncStep struct {
	noTeardown
	engine Engine
	src    string
	dst    string
}

func (s *syncStep) Name() string { return "sync" }

func (s *syncStep) Describe() string {
	return fmt.Sprintf("mirror %s onto %s (%s)", s.src, s.dst, s.engine.Name())
}

func (s *syncStep) Setup(ctx context.Context) error {
	if err := os.MkdirAll(s.dst, 0o755); err != nil {
		return errors.Wrapf(err, "creating destination %s", s.dst)
	}
	return s.engine.Sync(ctx, s.src, s.dst)
}

type verifyStep struct {
	noTeardown
	src string
	dst string
}

func (s *verifyStep) Name() string { return "verify" }

func (s *verifyStep) Describe() string {
	return fmt.Sprintf("compare %s and %s byte for byte", s.src, s.dst)
}

func (s *verifyStep) Setup(context.Context) error {
	return VerifyTrees(s.src, s.dst)
}
