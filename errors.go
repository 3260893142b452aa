package saurus

import "fmt"

// TypeError is raised whenever an operation expects one value kind and
// receives another.
type TypeError struct {
	Expected string
	Got      string
}

func (e TypeError) Error() string {
	return fmt.Sprintf("Expected %s, got %s", e.Expected, e.Got)
}

// ArityError is raised when a call supplies the wrong number of
// arguments to a fixed-arity closure or native function.
type ArityError struct {
	Expected int
	Got      int
}

func (e ArityError) Error() string {
	return fmt.Sprintf("bad number of arguments: expected %d got %d", e.Expected, e.Got)
}

// BoundsError is raised by out-of-range vector/string indexing.
type BoundsError struct {
	Index  int
	Length int
}

func (e BoundsError) Error() string {
	return fmt.Sprintf("index %d out of bounds (length %d)", e.Index, e.Length)
}

// UndefinedGlobalError is raised by GetGlobal on a name with no binding.
type UndefinedGlobalError struct {
	Name string
}

func (e UndefinedGlobalError) Error() string {
	return fmt.Sprintf("undefined global: %s", e.Name)
}

// MissingKeyError is raised when calling a map with a key it doesn't hold.
type MissingKeyError struct {
	Key Value
}

func (e MissingKeyError) Error() string {
	return fmt.Sprintf("missing map key: %s", e.Key)
}

// CrossThreadAccessError is raised whenever a Local cell is read or
// written from a thread other than the one that created it.
type CrossThreadAccessError struct{}

func (e CrossThreadAccessError) Error() string {
	return "Locals can only be mutated and accessed by owner thread!"
}

// ImageError is raised by the bytecode loader on malformed input.
type ImageError struct {
	Reason string
}

func (e ImageError) Error() string {
	return fmt.Sprintf("Could not load image: %s", e.Reason)
}

// StackOverflowError is raised when the value or frame stack exceeds its
// configured bound.
type StackOverflowError struct {
	What string
}

func (e StackOverflowError) Error() string {
	return fmt.Sprintf("%s overflow", e.What)
}

// DivisionByZeroError is raised by Div/Mod on a zero divisor.
type DivisionByZeroError struct{}

func (e DivisionByZeroError) Error() string {
	return "Division by zero"
}

// ApplyError is raised by Call dispatch on a value that can't be applied.
type ApplyError struct {
	Type string
}

func (e ApplyError) Error() string {
	return fmt.Sprintf("cannot apply %s", e.Type)
}

// vmPanic is the internal control-flow value thrown by (*Thread).fail
// and recovered at the nearest installed recovery boundary, standing in
// for the reference implementation's setjmp/longjmp pair. TryCall and
// GetGlobal recover it into a returned error; Call restores the stack
// and frame tops and re-raises it; a forked thread's body swallows it.
// Any other panic propagates untouched.
type vmPanic struct {
	err error
}

func isVMError(err error) bool {
	switch err.(type) {
	case TypeError, ArityError, BoundsError, UndefinedGlobalError,
		MissingKeyError, CrossThreadAccessError, ImageError,
		StackOverflowError, DivisionByZeroError, ApplyError:
		return true
	}
	return false
}
