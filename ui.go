package mist

import (
	"io"

	"github.com/charmbracelet/log"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// instanceAll marks status events that apply to the whole run.
const instanceAll = "all"

// ProgressUI renders one progress bar per plan instance. mpb serializes
// rendering internally, so Update may be called from any goroutine.
type ProgressUI struct {
	p    *mpb.Progress
	bars map[string]*mpb.Bar
}

// NewProgressUI allocates a progress surface for the given plan, one bar per
// instance sized to its command sequence.
func NewProgressUI(w io.Writer, plan Plan) *ProgressUI {
	p := mpb.New(
		mpb.WithOutput(w),
		mpb.WithWidth(48),
	)

	bars := make(map[string]*mpb.Bar, len(plan))

	for _, name := range plan.Instances() {
		total := len(plan.Sequence(name))

		bars[name] = p.AddBar(int64(total),
			mpb.PrependDecorators(
				decor.Name(name, decor.WCSyncSpaceR),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(
				decor.OnComplete(decor.Percentage(), "done"),
			),
		)
	}

	return &ProgressUI{
		p:    p,
		bars: bars,
	}
}

// Update implements StatusSink. Command successes advance the instance's
// bar; a failure abandons it, leaving the partial progress visible.
func (u *ProgressUI) Update(task, step, result, instance string) {
	if instance == instanceAll {
		return
	}

	if step != "execution" {
		return
	}

	bar, ok := u.bars[instance]

	if !ok {
		return
	}

	switch result {
	case "success":
		bar.Increment()
	case "failure":
		bar.Abort(false)
	}
}

// Wait blocks until all bars have rendered their final state.
func (u *ProgressUI) Wait() {
	for _, bar := range u.bars {
		if !bar.Completed() && !bar.Aborted() {
			bar.Abort(false)
		}
	}

	u.p.Wait()
}

// LogStatus is a StatusSink that reports events through a charm logger,
// for non-TTY runs.
type LogStatus struct {
	logger *log.Logger
}

func NewLogStatus(logger *log.Logger) *LogStatus {
	return &LogStatus{
		logger: logger,
	}
}

// Update implements StatusSink.
func (s *LogStatus) Update(task, step, result, instance string) {
	if result == "failure" {
		s.logger.Error("Status", "task", task, "step", step, "result", result, "instance", instance)

		return
	}

	s.logger.Info("Status", "task", task, "step", step, "result", result, "instance", instance)
}
