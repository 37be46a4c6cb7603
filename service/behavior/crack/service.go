// Package crack implements the password-cracking behavior.  Each step tries
// one candidate password against the target's bcrypt hash; the run completes
// when a candidate matches and fails when the wordlist is exhausted.
package crack

import (
	"context"
	"reflect"

	"golang.org/x/crypto/bcrypt"

	"github.com/hackwire/simcore/model/process"
	"github.com/hackwire/simcore/model/types"
)

var name = string(process.TypeCracker)

// Service is the cracker behavior.
type Service struct{}

// Input carries the crack state between steps.
type Input struct {
	// Hash is the bcrypt hash of the target password.
	Hash string `json:"hash"`
	// Candidates is the wordlist to try, one entry per step.
	Candidates []string `json:"candidates"`
	// Attempt is the index of the next candidate to try.
	Attempt int `json:"attempt"`
}

// New creates the cracker behavior.
func New() *Service {
	return &Service{}
}

// Name returns the behavior name.
func (s *Service) Name() string {
	return name
}

// Methods returns the behavior methods.
func (s *Service) Methods() types.Signatures {
	return []types.Signature{
		{
			Name:   types.StepMethod,
			Input:  reflect.TypeOf(&Input{}),
			Output: reflect.TypeOf(&types.StepOutput{}),
		},
	}
}

// Method returns the named method.
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
	total := len(input.Candidates)
	if input.Hash == "" || total == 0 {
		output.Failed = true
		output.Reason = "nothing to crack"
		return nil
	}
	if input.Attempt >= total {
		output.Failed = true
		output.Reason = "wordlist exhausted"
		return nil
	}
	candidate := input.Candidates[input.Attempt]
	if err := bcrypt.CompareHashAndPassword([]byte(input.Hash), []byte(candidate)); err == nil {
		output.Done = true
		output.Progress = 100
		output.Data = map[string]interface{}{"password": candidate}
		return nil
	}
	next := input.Attempt + 1
	if next >= total {
		output.Failed = true
		output.Reason = "wordlist exhausted"
		return nil
	}
	output.Progress = next * 100 / total
	output.Data = map[string]interface{}{"attempt": next}
	return nil
}
