// Package pipeline implements a generic, ordered composition of processing
// steps over a mutable context with optional error handoff.
package pipeline

// Next passes control to the subsequent step. A step that returns without
// invoking next terminates the pipeline early.
type Next[C any] func(ctx *C) error

// Step is one unit of work. Steps mutate the context in place and must not
// retain a reference to it past their call.
type Step[C any] func(ctx *C, next Next[C]) error

// ErrorHandler receives a step error together with the context and the
// continuation for the remaining steps. Handlers either recover (optionally
// resuming via next) or return the error to terminate the pipeline.
type ErrorHandler[C any] func(err error, ctx *C, next Next[C]) error

// Pipeline is an ordered sequence of steps over a context of type C.
type Pipeline[C any] struct {
	steps   []Step[C]
	onError ErrorHandler[C]
}

// New builds a pipeline from the given steps. The default error behavior
// re-raises step errors to the caller of Run.
func New[C any](steps ...Step[C]) *Pipeline[C] {
	return &Pipeline[C]{steps: steps}
}

// WithErrorHandler installs a custom error handler and returns the pipeline.
func (p *Pipeline[C]) WithErrorHandler(handler ErrorHandler[C]) *Pipeline[C] {
	p.onError = handler
	return p
}

// Append adds steps to the end of the pipeline.
func (p *Pipeline[C]) Append(steps ...Step[C]) *Pipeline[C] {
	p.steps = append(p.steps, steps...)
	return p
}

// Len reports the number of steps.
func (p *Pipeline[C]) Len() int {
	return len(p.steps)
}

// Run executes the steps in order against ctx. An error from a step is
// offered to the error handler; without a handler it propagates unchanged.
func (p *Pipeline[C]) Run(ctx *C) error {
	var invoke func(index int, c *C) error
	invoke = func(index int, c *C) error {
		if index >= len(p.steps) {
			return nil
		}
		next := func(c *C) error {
			return invoke(index+1, c)
		}
		if err := p.steps[index](c, next); err != nil {
			if p.onError != nil {
				return p.onError(err, c, next)
			}
			return err
		}
		return nil
	}
	return invoke(0, ctx)
}
