package catalog

import (
	"fmt"
	"reflect"
)

var errorType = reflect.TypeFor[error]()

// Constructor builds instances of one type. A type has exactly one
// constructor, taking either no arguments or the registration context.
//
// The typed helpers (New, NewE, NewWith, NewWithE) fix the shape at compile
// time. Func accepts an arbitrary function value and checks its shape when
// the constructor is invoked.
type Constructor struct {
	params   int
	probe    any
	build    func(rc any) (any, error)
	shapeErr error
}

// Params returns the number of parameters the constructor declares.
func (c Constructor) Params() int {
	return c.params
}

// Probe returns a zero value of the constructed type. Capability checks are
// type assertions against it; it is nil for constructors without a concrete
// result type.
func (c Constructor) Probe() any {
	return c.probe
}

// Build invokes the constructor. Zero-parameter constructors ignore rc.
// Panics are recovered and returned as ErrConstructorPanic.
func (c Constructor) Build(rc any) (instance any, err error) {
	if c.shapeErr != nil {
		return nil, c.shapeErr
	}
	if c.build == nil {
		return nil, fmt.Errorf("%w: no constructor", ErrUnsupportedConstructorShape)
	}

	defer func() {
		if r := recover(); r != nil {
			instance = nil
			err = fmt.Errorf("%w: %v", ErrConstructorPanic, r)
		}
	}()

	instance, err = c.build(rc)
	if err != nil {
		return nil, err
	}
	if isNil(instance) {
		return nil, ErrNilInstance
	}
	return instance, nil
}

// New wraps a zero-argument constructor.
func New[T any](fn func() T) Constructor {
	return NewE(func() (T, error) { return fn(), nil })
}

// NewE wraps a zero-argument constructor that can fail.
func NewE[T any](fn func() (T, error)) Constructor {
	return Constructor{
		params: 0,
		probe:  probeOf[T](),
		build: func(any) (any, error) {
			return fn()
		},
	}
}

// NewWith wraps a constructor that takes the registration context.
func NewWith[R, T any](fn func(R) T) Constructor {
	return NewWithE(func(rc R) (T, error) { return fn(rc), nil })
}

// NewWithE wraps a constructor that takes the registration context and can fail.
func NewWithE[R, T any](fn func(R) (T, error)) Constructor {
	return Constructor{
		params: 1,
		probe:  probeOf[T](),
		build: func(rc any) (any, error) {
			typed, ok := rc.(R)
			if !ok {
				return nil, fmt.Errorf("%w: have %T, want %s", ErrContextMismatch, rc, reflect.TypeFor[R]())
			}
			return fn(typed)
		},
	}
}

// Func wraps an arbitrary function value. Supported shapes are
// func() T, func() (T, error), func(R) T and func(R) (T, error); any other
// parameter count fails with ErrUnsupportedConstructorShape when built.
func Func(fn any) Constructor {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return Constructor{shapeErr: fmt.Errorf("%w: %T is not a function", ErrUnsupportedConstructorShape, fn)}
	}
	t := v.Type()

	c := Constructor{params: t.NumIn()}
	if t.NumOut() > 0 && t.Out(0).Kind() != reflect.Interface {
		c.probe = reflect.Zero(t.Out(0)).Interface()
	}

	switch {
	case t.IsVariadic():
		c.shapeErr = fmt.Errorf("%w: variadic constructor %s", ErrUnsupportedConstructorShape, t)
		return c
	case t.NumOut() == 0 || t.NumOut() > 2:
		c.shapeErr = fmt.Errorf("%w: %s must return T or (T, error)", ErrUnsupportedConstructorShape, t)
		return c
	case t.NumOut() == 2 && t.Out(1) != errorType:
		c.shapeErr = fmt.Errorf("%w: second result of %s must be error", ErrUnsupportedConstructorShape, t)
		return c
	case t.NumIn() > 1:
		c.shapeErr = fmt.Errorf("%w: %d parameters", ErrUnsupportedConstructorShape, t.NumIn())
		return c
	}

	c.build = func(rc any) (any, error) {
		var args []reflect.Value
		if t.NumIn() == 1 {
			arg := reflect.ValueOf(rc)
			if !arg.IsValid() || !arg.Type().AssignableTo(t.In(0)) {
				return nil, fmt.Errorf("%w: have %T, want %s", ErrContextMismatch, rc, t.In(0))
			}
			args = append(args, arg)
		}

		out := v.Call(args)
		if len(out) == 2 && !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return out[0].Interface(), nil
	}
	return c
}

func probeOf[T any]() any {
	var zero T
	return any(zero)
}

// isNil reports whether v is nil or a typed nil pointer, map, slice, func or chan.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
