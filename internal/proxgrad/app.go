// Package proxgrad wires configuration, the comparison harness and the trainer into the commands of the proxgrad tool.
package proxgrad

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"k8s.io/utils/clock"
	"sigs.k8s.io/yaml"

	"github.com/armadaproject/proxgrad/internal/common/armadacontext"
	"github.com/armadaproject/proxgrad/internal/common/health"
	"github.com/armadaproject/proxgrad/internal/common/metrics"
	"github.com/armadaproject/proxgrad/internal/common/serve"
	"github.com/armadaproject/proxgrad/internal/common/util"
	"github.com/armadaproject/proxgrad/internal/harness"
	"github.com/armadaproject/proxgrad/internal/proxgrad/build"
	"github.com/armadaproject/proxgrad/internal/proxgrad/configuration"
	"github.com/armadaproject/proxgrad/internal/trainer"
)

// App holds everything the commands need.
type App struct {
	Config configuration.Configuration
	// Output for reports and version information.
	Out io.Writer
	// Registry metrics are registered with and served from.
	Registry *prometheus.Registry
	Clock    clock.PassiveClock
}

func New(config configuration.Configuration) *App {
	return &App{
		Config:   config,
		Out:      os.Stdout,
		Registry: prometheus.NewRegistry(),
		Clock:    clock.RealClock{},
	}
}

// Compare runs the configured sweep and writes its summary to the app output.
// The report is returned even if some cases failed, together with an error describing the failures.
func (a *App) Compare(ctx *armadacontext.Context) (*harness.Report, error) {
	ctx, runId := armadacontext.WithRunId(ctx)
	cases := a.Config.Harness.Grid().Cases()
	ctx.Log.Infof("Comparing %s against the reference on %d cases", a.Config.Harness.Optimiser, len(cases))

	report, err := harness.Sweep(ctx, cases, a.Config.Harness.SweepConfig(), harness.NewMetrics(a.Registry))
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(a.Out, "Run %s: %d cases, %d failed in %s\n\n", runId, len(report.Results), len(report.Failed()), report.Duration)
	fmt.Fprint(a.Out, report.Summary())
	if path := a.Config.Harness.JUnitReport; path != "" {
		if err := writeJUnit(report, path); err != nil {
			return report, err
		}
		ctx.Log.Infof("Wrote JUnit report to %s", path)
	}
	if err := report.Err(); err != nil {
		return report, errors.WithMessagef(err, "%d of %d cases failed", len(report.Failed()), len(report.Results))
	}
	return report, nil
}

func writeJUnit(report *harness.Report, path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = errors.WithStack(closeErr)
		}
	}()
	return report.WriteJUnit(f)
}

// Train fits the configured problem and writes a summary to the app output.
// If metrics are enabled, they are served together with the health of the run until training stops.
func (a *App) Train(ctx *armadacontext.Context) (*trainer.Summary, error) {
	ctx, runId := armadacontext.WithRunId(ctx)
	c, err := a.Config.Training.TrainerConfig()
	if err != nil {
		return nil, err
	}
	runner, err := trainer.NewRunner(c, trainer.NewMetrics(a.Registry), a.Clock)
	if err != nil {
		return nil, err
	}

	var summary *trainer.Summary
	if !a.Config.Metrics.Enabled {
		summary, err = runner.Run(ctx)
	} else {
		summary, err = a.trainWithServer(ctx, runner)
	}
	if err != nil {
		return nil, err
	}

	t := util.NewTable("RUN", "STEPS", "LOSS", "ZERO GROUPS", "SUPPORT RECOVERED", "FALSE POSITIVES", "DURATION")
	t.AddRow(runId, summary.Steps, summary.FinalLoss, summary.ZeroGroups, summary.SupportRecovered, summary.FalsePositives, summary.Duration)
	fmt.Fprint(a.Out, t.String())
	return summary, nil
}

func (a *App) trainWithServer(ctx *armadacontext.Context, runner trainer.Runner) (*trainer.Summary, error) {
	g, gctx := armadacontext.ErrGroup(ctx)
	serverCtx, stopServer := armadacontext.WithCancel(gctx)
	server := metrics.NewServer(a.Config.Metrics.Port, a.Registry, health.NewMultiChecker(runner))
	g.Go(func() error {
		return serve.ListenAndServe(serverCtx, server)
	})

	var summary *trainer.Summary
	g.Go(func() error {
		defer stopServer()
		var err error
		summary, err = runner.Run(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summary, nil
}

// Version prints build information (e.g., current git commit) to the app output.
func (a *App) Version() error {
	w := tabwriter.NewWriter(a.Out, 1, 1, 1, ' ', 0)
	fmt.Fprintf(w, "Version:\t%s\n", build.ReleaseVersion)
	fmt.Fprintf(w, "Commit:\t%s\n", build.GitCommit)
	fmt.Fprintf(w, "Go version:\t%s\n", build.GoVersion)
	fmt.Fprintf(w, "Built:\t%s\n", build.BuildTime)
	return w.Flush()
}

// PrintConfig writes the configuration in effect to the app output as YAML that can be passed back with --config.
func (a *App) PrintConfig() error {
	out, err := yaml.Marshal(a.Config)
	if err != nil {
		return errors.WithStack(err)
	}
	_, err = a.Out.Write(out)
	return errors.WithStack(err)
}
