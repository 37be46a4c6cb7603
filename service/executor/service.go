// Package executor advances running processes by invoking their registered
// behavior once per simulation step.  The behavior's input is built from the
// process data map via structology conversion, and the step output is folded
// back into the process: progress, completion, failure and data updates.
package executor

import (
	"context"
	"reflect"

	"github.com/viant/structology/conv"

	"github.com/hackwire/simcore/errors"
	"github.com/hackwire/simcore/extension"
	"github.com/hackwire/simcore/model/process"
	"github.com/hackwire/simcore/model/types"
)

// Listener is invoked after every behavior step, whether or not it
// returned an error.  Implementations can log or collect metrics.
type Listener func(p *process.Process, input interface{}, output *types.StepOutput, err error)

// Service steps processes through their behaviors.
type Service interface {
	Step(ctx context.Context, p *process.Process) (*types.StepOutput, error)
}

type service struct {
	behaviors *extension.Behaviors
	converter *conv.Converter
	listener  Listener
}

// Option customises the executor.
type Option func(*service)

// WithListener sets the post-step callback.  Passing nil disables it.
func WithListener(l Listener) Option {
	return func(s *service) { s.listener = l }
}

// Step invokes the behavior registered for the process type and applies its
// output to the process.  A NotFound error means no behavior is registered;
// such processes advance on schedule alone.
func (s *service) Step(ctx context.Context, p *process.Process) (*types.StepOutput, error) {
	behavior := s.behaviors.Lookup(string(p.Type))
	if behavior == nil {
		return nil, errors.NewNotFoundError("no behavior registered", nil).
			WithContext("type", string(p.Type))
	}
	signature := behavior.Methods().Lookup(types.StepMethod)
	if signature == nil {
		return nil, errors.NewInternalError("behavior has no step method", nil).
			WithContext("behavior", behavior.Name())
	}
	method, err := behavior.Method(types.StepMethod)
	if err != nil {
		return nil, errors.NewInternalError("failed to resolve step method", err).
			WithContext("behavior", behavior.Name())
	}

	input := reflect.New(deref(signature.Input)).Interface()
	if err = s.converter.Convert(p.DataSnapshot(), input); err != nil {
		return nil, errors.NewValidationError("failed to build step input", err).
			WithContext("behavior", behavior.Name())
	}
	rawOutput := reflect.New(deref(signature.Output)).Interface()

	err = method(ctx, input, rawOutput)
	output, ok := rawOutput.(*types.StepOutput)
	if !ok {
		return nil, types.NewInvalidOutputError(rawOutput)
	}
	if s.listener != nil {
		s.listener(p, input, output, err)
	}
	if err != nil {
		return output, err
	}
	s.apply(p, output)
	return output, nil
}

// apply folds the step output into the process record.
func (s *service) apply(p *process.Process, output *types.StepOutput) {
	if len(output.Data) > 0 {
		p.MergeData(output.Data)
	}
	switch {
	case output.Failed:
	case output.Done:
		p.SetProgress(100)
	default:
		p.SetProgress(output.Progress)
	}
}

func deref(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Ptr {
		return t.Elem()
	}
	return t
}

// New creates an executor backed by the supplied behavior registry.
func New(behaviors *extension.Behaviors, opts ...Option) Service {
	options := conv.DefaultOptions()
	options.ClonePointerData = true
	options.IgnoreUnmapped = true
	options.AccessUnexported = true

	s := &service{
		behaviors: behaviors,
		converter: conv.NewConverter(options),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}
