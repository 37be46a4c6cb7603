// Package transfer implements the file-transfer behavior.  Each step moves
// a fixed number of bytes; the run completes once the whole file arrived.
package transfer

import (
	"context"
	"reflect"

	"github.com/hackwire/simcore/model/process"
	"github.com/hackwire/simcore/model/types"
)

var name = string(process.TypeFileTransfer)

// defaultRate is the bytes moved per step when none is configured.
const defaultRate = 1 << 20

// Service is the file-transfer behavior.
type Service struct{}

// Input carries the transfer state between steps.
type Input struct {
	// SizeBytes is the total file size.
	SizeBytes int64 `json:"sizeBytes"`
	// TransferredBytes is how much arrived so far.
	TransferredBytes int64 `json:"transferredBytes"`
	// RateBytes is the bytes moved per step.
	RateBytes int64 `json:"rateBytes"`
}

// New creates the file-transfer behavior.
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
	if input.SizeBytes <= 0 {
		output.Failed = true
		output.Reason = "nothing to transfer"
		return nil
	}
	rate := input.RateBytes
	if rate <= 0 {
		rate = defaultRate
	}
	transferred := input.TransferredBytes + rate
	if transferred >= input.SizeBytes {
		output.Done = true
		output.Progress = 100
		output.Data = map[string]interface{}{"transferredBytes": input.SizeBytes}
		return nil
	}
	output.Progress = int(transferred * 100 / input.SizeBytes)
	output.Data = map[string]interface{}{"transferredBytes": transferred}
	return nil
}
