package idgen

import "github.com/google/uuid"

// NewFunc supplies fresh identifiers; tests override it for determinism.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new globally unique identifier via NewFunc.
func New() string { return NewFunc() }
