package engine

import (
	"github.com/ormasoftchile/workflow/pkg/providers"
	"github.com/ormasoftchile/workflow/pkg/schema"
)

// Reporter receives progress notifications for display. Implementations
// must not block; the engine calls them synchronously.
type Reporter interface {
	RunStarted(wf *schema.Workflow, mode schema.Mode)
	StepStarted(step schema.Step, position, total int)
	CommandFinished(step schema.Step, res *providers.CommandResult)
	ActionResolved(step schema.Step, action schema.Action, source schema.ActionSource)
	RunFinished(res *Result)
	RunFailed(err error)
}

type nopReporter struct{}

func (nopReporter) RunStarted(*schema.Workflow, schema.Mode) {}

func (nopReporter) StepStarted(schema.Step, int, int) {}

func (nopReporter) CommandFinished(schema.Step, *providers.CommandResult) {}

func (nopReporter) ActionResolved(schema.Step, schema.Action, schema.ActionSource) {}

func (nopReporter) RunFinished(*Result) {}

func (nopReporter) RunFailed(error) {}
