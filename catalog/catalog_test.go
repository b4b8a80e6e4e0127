package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct{ name string }

func newWidget() *widget { return &widget{name: "widget"} }

func TestIdentifier(t *testing.T) {
	tests := []struct {
		namespace string
		name      string
		want      string
	}{
		{"commands", "Ping", "commands.Ping"},
		{"commands/admin", "Kick", "commands/admin.Kick"},
		{"", "Root", "Root"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			id := Identifier(tt.namespace, tt.name)
			assert.Equal(t, tt.want, id)

			ns, name := SplitIdentifier(id)
			assert.Equal(t, tt.namespace, ns)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestValidateNamespace(t *testing.T) {
	tests := []struct {
		namespace string
		wantErr   bool
	}{
		{"", false},
		{"commands", false},
		{"commands/admin", false},
		{"commands//admin", true},
		{"/commands", true},
		{"commands/", true},
		{"commands/*", true},
		{"commands.admin", true},
		{"com mands", true},
	}

	for _, tt := range tests {
		t.Run(tt.namespace, func(t *testing.T) {
			err := ValidateNamespace(tt.namespace)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidNamespace)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCatalog_Register(t *testing.T) {
	t.Run("registers and looks up", func(t *testing.T) {
		c := NewCatalog()
		require.NoError(t, c.Register(TypeInfo{
			Namespace:   "widgets",
			Name:        "Widget",
			Marker:      &Marker{Key: "w"},
			Constructor: New(newWidget),
		}))

		info, ok := c.Lookup("widgets.Widget")
		require.True(t, ok)
		assert.Equal(t, "w", info.Marker.Key)
		assert.Equal(t, 1, c.Len())
	})

	t.Run("rejects duplicates", func(t *testing.T) {
		c := NewCatalog()
		info := TypeInfo{Namespace: "widgets", Name: "Widget", Constructor: New(newWidget)}
		require.NoError(t, c.Register(info))
		assert.ErrorIs(t, c.Register(info), ErrDuplicateType)
	})

	t.Run("rejects invalid name", func(t *testing.T) {
		c := NewCatalog()
		err := c.Register(TypeInfo{Namespace: "widgets", Name: "not-a-name", Constructor: New(newWidget)})
		assert.ErrorIs(t, err, ErrInvalidName)
	})

	t.Run("rejects interface results", func(t *testing.T) {
		c := NewCatalog()
		err := c.Register(TypeInfo{
			Namespace:   "widgets",
			Name:        "Stringer",
			Constructor: New(func() error { return errors.New("x") }),
		})
		assert.ErrorIs(t, err, ErrAbstractConstructor)
	})

	t.Run("rejects non-function constructors", func(t *testing.T) {
		c := NewCatalog()
		err := c.Register(TypeInfo{Namespace: "widgets", Name: "Bad", Constructor: Func(42)})
		assert.ErrorIs(t, err, ErrUnsupportedConstructorShape)
	})

	t.Run("must register panics", func(t *testing.T) {
		c := NewCatalog()
		assert.Panics(t, func() {
			c.MustRegister(TypeInfo{Namespace: "bad//ns", Name: "Widget", Constructor: New(newWidget)})
		})
	})
}

func TestCatalog_Load(t *testing.T) {
	c := NewCatalog()
	initCalls := 0
	c.MustRegister(TypeInfo{
		Namespace:   "widgets",
		Name:        "Widget",
		Constructor: New(newWidget),
		Init: func() error {
			initCalls++
			return nil
		},
	})
	c.MustRegister(TypeInfo{
		Namespace:   "widgets",
		Name:        "Broken",
		Constructor: New(newWidget),
		Init:        func() error { return errors.New("missing dependency") },
	})

	t.Run("runs init", func(t *testing.T) {
		info, err := c.Load("widgets.Widget")
		require.NoError(t, err)
		assert.Equal(t, "Widget", info.Name)
		assert.Equal(t, 1, initCalls)
	})

	t.Run("init failure is a load error", func(t *testing.T) {
		_, err := c.Load("widgets.Broken")
		var loadErr *LoadError
		require.ErrorAs(t, err, &loadErr)
		assert.Equal(t, "widgets.Broken", loadErr.Identifier)
		assert.Contains(t, err.Error(), "missing dependency")
	})

	t.Run("unknown identifier", func(t *testing.T) {
		_, err := c.Load("widgets.Missing")
		assert.ErrorIs(t, err, ErrTypeNotFound)
	})
}

func TestCatalog_Identifiers(t *testing.T) {
	c := NewCatalog()
	c.MustRegister(TypeInfo{Namespace: "b", Name: "Two", Constructor: New(newWidget)})
	c.MustRegister(TypeInfo{Namespace: "a", Name: "One", Constructor: New(newWidget)})

	ids, err := c.Identifiers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.One", "b.Two"}, ids)
}
