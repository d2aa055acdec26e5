package executor

// An Operation is an abstraction that represents
// some parameterless invocation. It is the part of the work
// that varies; an Executor supplies the timing and logging around it.
//
// A returned error is the failure of the Operation and is
// handed back to the caller of Execute untouched.
type Operation interface {
	Call() error
}

// OperationFunc adapts an ordinary function to an Operation.
type OperationFunc func() error

// Call invokes f.
func (f OperationFunc) Call() error {
	return f()
}

// Action adapts a function that cannot fail to an Operation.
type Action func()

// Call invokes a and always returns nil.
func (a Action) Call() error {
	a()
	return nil
}

// isNil reports whether op is absent, including typed nil function values
// which would otherwise satisfy the interface and panic on Call.
func isNil(op Operation) bool {
	switch v := op.(type) {
	case nil:
		return true
	case OperationFunc:
		return v == nil
	case Action:
		return v == nil
	}
	return false
}
