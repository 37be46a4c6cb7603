// Package timed implements a fixed-increment behavior shared by the
// operations whose outcome depends on elapsed effort alone, such as
// software installs, virus collections and bank transfers.
package timed

import (
	"context"
	"reflect"

	"github.com/hackwire/simcore/model/types"
)

// defaultIncrement is the progress gained per step when none is configured.
const defaultIncrement = 10

// Service advances a process by a fixed amount per step.
type Service struct {
	name      string
	increment int
}

// Input carries the progress between steps.
type Input struct {
	Progress int `json:"progress"`
	// Increment overrides the per-step progress gain when positive.
	Increment int `json:"increment"`
}

// New creates a timed behavior registered under the given process type
// name, gaining increment progress per step.
func New(name string, increment int) *Service {
	if increment <= 0 {
		increment = defaultIncrement
	}
	return &Service{name: name, increment: increment}
}

func (s *Service) Name() string {
	return s.name
}

func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name:   types.StepMethod,
			Input:  reflect.TypeOf(&Input{}),
			Output: reflect.TypeOf(&types.StepOutput{}),
		},
	}
}

func (s *Service) Method(methodName string) (types.Executable, error) {
	if methodName != types.StepMethod {
		return nil, types.NewMethodNotFoundError(methodName)
	}
	return s.step, nil
}

func (s *Service) step(_ context.Context, in, out interface{}) error {
	input, ok := in.(*Input)
	if !ok {
		return types.NewInvalidInputError(in)
	}
	output, ok := out.(*types.StepOutput)
	if !ok {
		return types.NewInvalidOutputError(out)
	}
	increment := s.increment
	if input.Increment > 0 {
		increment = input.Increment
	}
	progress := input.Progress + increment
	if progress >= 100 {
		output.Done = true
		output.Progress = 100
		return nil
	}
	output.Progress = progress
	output.Data = map[string]interface{}{"progress": progress}
	return nil
}
