package idgen

import "github.com/google/uuid"

// NewFunc returns a new globally unique identifier as string. It is a
// variable so tests can stub it with a deterministic generator.
var NewFunc = func() string { return uuid.New().String() }

func New() string { return NewFunc() }
