package catalog

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type host struct{ name string }

type greeter struct{ host *host }

func TestConstructor_TypedShapes(t *testing.T) {
	h := &host{name: "demo"}

	t.Run("no arguments", func(t *testing.T) {
		c := New(newWidget)
		assert.Equal(t, 0, c.Params())

		v, err := c.Build(h)
		require.NoError(t, err)
		assert.Equal(t, "widget", v.(*widget).name)
	})

	t.Run("context argument", func(t *testing.T) {
		c := NewWith(func(h *host) *greeter { return &greeter{host: h} })
		assert.Equal(t, 1, c.Params())

		v, err := c.Build(h)
		require.NoError(t, err)
		assert.Same(t, h, v.(*greeter).host)
	})

	t.Run("context mismatch", func(t *testing.T) {
		c := NewWith(func(h *host) *greeter { return &greeter{host: h} })
		_, err := c.Build("not a host")
		assert.ErrorIs(t, err, ErrContextMismatch)
	})

	t.Run("constructor error", func(t *testing.T) {
		boom := errors.New("boom")
		c := NewE(func() (*widget, error) { return nil, boom })
		_, err := c.Build(h)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("constructor panic", func(t *testing.T) {
		c := New(func() *widget { panic("kaboom") })
		_, err := c.Build(h)
		assert.ErrorIs(t, err, ErrConstructorPanic)
		assert.Contains(t, err.Error(), "kaboom")
	})

	t.Run("nil instance", func(t *testing.T) {
		c := New(func() *widget { return nil })
		_, err := c.Build(h)
		assert.ErrorIs(t, err, ErrNilInstance)
	})

	t.Run("probe carries the result type", func(t *testing.T) {
		c := New(newWidget)
		_, ok := c.Probe().(*widget)
		assert.True(t, ok)
	})
}

func TestConstructor_Func(t *testing.T) {
	h := &host{name: "demo"}

	tests := []struct {
		name       string
		fn         any
		wantParams int
		wantErr    error
	}{
		{name: "zero args", fn: newWidget, wantParams: 0},
		{name: "zero args with error", fn: func() (*widget, error) { return newWidget(), nil }, wantParams: 0},
		{name: "context arg", fn: func(h *host) *greeter { return &greeter{host: h} }, wantParams: 1},
		{name: "two args", fn: func(a, b *host) *greeter { return &greeter{} }, wantParams: 2, wantErr: ErrUnsupportedConstructorShape},
		{name: "variadic", fn: func(hs ...*host) *greeter { return &greeter{} }, wantParams: 1, wantErr: ErrUnsupportedConstructorShape},
		{name: "no results", fn: func() {}, wantParams: 0, wantErr: ErrUnsupportedConstructorShape},
		{name: "second result not error", fn: func() (*widget, int) { return nil, 0 }, wantParams: 0, wantErr: ErrUnsupportedConstructorShape},
		{name: "wrong context type", fn: func(s string) *greeter { return &greeter{} }, wantParams: 1, wantErr: ErrContextMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Func(tt.fn)
			assert.Equal(t, tt.wantParams, c.Params())

			v, err := c.Build(h)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, v)
		})
	}

	t.Run("returned error", func(t *testing.T) {
		boom := errors.New("boom")
		c := Func(func(h *host) (*greeter, error) { return nil, boom })
		_, err := c.Build(h)
		assert.ErrorIs(t, err, boom)
	})

	t.Run("unsupported shape keeps probe", func(t *testing.T) {
		c := Func(func(a, b *host) *greeter { return nil })
		_, ok := c.Probe().(*greeter)
		assert.True(t, ok)
	})
}
