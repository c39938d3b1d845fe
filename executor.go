package mist

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

// StatusSink consumes execution status events. Implementations must be safe
// for concurrent use; events arrive from one goroutine per instance.
type StatusSink interface {
	Update(task, step, result, instance string)
}

// Result is the outcome of one instance's command sequence.
type Result struct {
	Instance string
	// Completed counts commands that ran successfully
	Completed int
	// Err is the first command failure, nil if the sequence succeeded
	Err error
}

// Executor runs an execution plan, one concurrent unit per instance.
type Executor struct {
	status StatusSink
	mux    *LogMux
}

// NewExecutor allocates an executor. mux may be nil to discard command
// output.
func NewExecutor(status StatusSink, mux *LogMux) *Executor {
	return &Executor{
		status: status,
		mux:    mux,
	}
}

// Run executes the plan and returns one result per instance, in the plan's
// instance order.
//
// Each instance's commands run sequentially in ascending index order; the
// instances themselves run concurrently. A command failure skips the rest of
// that instance's sequence, since later provisioning steps depend on earlier
// ones, and is recorded in the instance's result. Failures never cancel
// sibling instances. A terminal "finished" event is emitted once every
// instance is done, regardless of outcomes.
func (e *Executor) Run(ctx context.Context, plan Plan) []Result {
	instances := plan.Instances()

	results := make([]Result, len(instances))

	// Streams are registered before the concurrent phase starts; the mux is
	// only written to from the instance goroutines afterwards.
	streams := make(map[string]*LogStream, len(instances))

	if e.mux != nil {
		for _, name := range instances {
			streams[name] = e.mux.Stream(name)
		}
	}

	var wg sync.WaitGroup

	for i, name := range instances {
		i := i
		name := name

		wg.Add(1)

		go func() {
			defer wg.Done()

			results[i] = e.runSequence(ctx, name, plan.Sequence(name), streams[name])
		}()
	}

	wg.Wait()

	e.status.Update("finished", "execution", "success", instanceAll)

	return results
}

func (e *Executor) runSequence(ctx context.Context, instance string, cmds []ResolvedCommand, stream *LogStream) Result {
	res := Result{Instance: instance}

	var out io.Writer

	if stream != nil {
		out = stream
	}

	for _, rc := range cmds {
		log.Debug("Running command", "instance", instance, "index", rc.Index, "description", rc.Description)

		err := rc.Runner.Run(ctx, rc.Command, out)

		if err != nil {
			e.status.Update(rc.Description, "execution", "failure", instance)

			res.Err = fmt.Errorf("step %d (%s): %w", rc.Index, rc.Description, err)

			break
		}

		e.status.Update(rc.Description, "execution", "success", instance)

		res.Completed++
	}

	if res.Err != nil {
		e.status.Update("provision", "instance", "failure", instance)
	} else {
		e.status.Update("provision", "instance", "success", instance)
	}

	return res
}
