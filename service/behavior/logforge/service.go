// Package logforge implements the log-editing behavior.  The run rewrites a
// server's access log to the forged content over several steps and records a
// unified diff of the change for later inspection.
package logforge

import (
	"context"
	"reflect"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/hackwire/simcore/model/process"
	"github.com/hackwire/simcore/model/types"
)

var name = string(process.TypeLogForge)

// progressPerStep is how much of the rewrite one step completes.
const progressPerStep = 25

// Service is the log-forging behavior.
type Service struct{}

// Input carries the forge state between steps.
type Input struct {
	// Original is the log content before the edit.
	Original string `json:"original"`
	// Forged is the content the log should end up with.
	Forged string `json:"forged"`
	// Progress is the rewrite progress so far.
	Progress int `json:"progress"`
}

// New creates the log-forging behavior.
func New() *Service {
	return &Service{}
}

func (s *Service) Name() string {
	return name
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
	if input.Original == input.Forged {
		output.Failed = true
		output.Reason = "log already matches forged content"
		return nil
	}
	progress := input.Progress + progressPerStep
	if progress < 100 {
		output.Progress = progress
		output.Data = map[string]interface{}{"progress": progress}
		return nil
	}
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(input.Original),
		B:        difflib.SplitLines(input.Forged),
		FromFile: "log",
		ToFile:   "log.forged",
		Context:  2,
	})
	if err != nil {
		return err
	}
	output.Done = true
	output.Progress = 100
	output.Data = map[string]interface{}{"diff": diff}
	return nil
}
