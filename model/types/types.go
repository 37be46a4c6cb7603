// Package types defines the contract between the behavior executor and
// pluggable process behaviors.  Each behavior is a named service exposing
// methods with typed input/output signatures; the executor converts a
// process' data map into the method's input type before invocation.
package types

import (
	"context"
	"fmt"
	"reflect"
)

// Signature describes one behavior method.
type Signature struct {
	Name   string
	Input  reflect.Type
	Output reflect.Type
}

type Signatures []Signature

// Lookup returns the signature with the given name, or nil.
func (s Signatures) Lookup(name string) *Signature {
	for i := range s {
		sig := &s[i]
		if sig.Name == name {
			return sig
		}
	}
	return nil
}

// Executable invokes a behavior method; input and output are pointers to the
// signature's types.
type Executable func(ctx context.Context, input, output interface{}) error

// Service is a named behavior with methods.
type Service interface {
	Name() string
	Methods() Signatures
	Method(name string) (Executable, error)
}

// StepMethod is the method every process behavior must expose; the executor
// invokes it once per simulation step for each running process.
const StepMethod = "step"

// StepOutput is the common output type of every behavior step.  Progress is
// absolute (0-100); Done marks completion regardless of progress; Failed
// aborts the process with Reason.  Data values are merged into the process
// data map.
type StepOutput struct {
	Progress int
	Done     bool
	Failed   bool
	Reason   string
	Data     map[string]interface{}
}

func NewMethodNotFoundError(name string) error {
	return fmt.Errorf("method %v not found", name)
}

func NewInvalidInputError(input interface{}) error {
	return fmt.Errorf("invalid input %T", input)
}

func NewInvalidOutputError(output interface{}) error {
	return fmt.Errorf("invalid output %T", output)
}
