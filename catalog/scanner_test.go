package catalog

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type staticIndex []string

func (s staticIndex) Identifiers(context.Context) ([]string, error) {
	return s, nil
}

type failingIndex struct{ err error }

func (f failingIndex) Identifiers(context.Context) ([]string, error) {
	return nil, f.err
}

func collect(t *testing.T, s *Scanner, namespace string, deep bool) []string {
	t.Helper()
	seq, err := s.Scan(context.Background(), namespace, deep)
	require.NoError(t, err)
	return slices.Collect(seq)
}

func TestScanner_Scan(t *testing.T) {
	s := NewScanner(staticIndex{
		"Root",
		"commands.Ping",
		"commands.Help",
		"commands/admin.Kick",
		"commands/admin/deep.Ban",
		"commandsextra.Other",
		"listeners.Join",
	})

	tests := []struct {
		name      string
		namespace string
		deep      bool
		want      []string
	}{
		{
			name:      "shallow",
			namespace: "commands",
			want:      []string{"commands.Ping", "commands.Help"},
		},
		{
			name:      "deep",
			namespace: "commands",
			deep:      true,
			want:      []string{"commands.Ping", "commands.Help", "commands/admin.Kick", "commands/admin/deep.Ban"},
		},
		{
			name:      "nested shallow",
			namespace: "commands/admin",
			want:      []string{"commands/admin.Kick"},
		},
		{
			name:      "root shallow",
			namespace: "",
			want:      []string{"Root"},
		},
		{
			name:      "unknown namespace",
			namespace: "nothing",
			deep:      true,
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := collect(t, s, tt.namespace, tt.deep)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("root deep lists everything", func(t *testing.T) {
		assert.Len(t, collect(t, s, "", true), 7)
	})
}

func TestScanner_Restartable(t *testing.T) {
	s := NewScanner(staticIndex{"a.One", "a.Two", "a.Three"})
	seq, err := s.Scan(context.Background(), "a", false)
	require.NoError(t, err)

	first := slices.Collect(seq)
	second := slices.Collect(seq)
	assert.Equal(t, first, second)

	// Stopping early does not affect later iterations.
	for range seq {
		break
	}
	assert.Len(t, slices.Collect(seq), 3)
}

func TestScanner_Errors(t *testing.T) {
	t.Run("index failure", func(t *testing.T) {
		cause := errors.New("disk on fire")
		s := NewScanner(failingIndex{err: cause})
		_, err := s.Scan(context.Background(), "commands", true)

		var scanErr *ScanError
		require.ErrorAs(t, err, &scanErr)
		assert.Equal(t, "commands", scanErr.Namespace)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("invalid namespace", func(t *testing.T) {
		s := NewScanner(staticIndex{})
		_, err := s.Scan(context.Background(), "commands/**", true)
		assert.ErrorIs(t, err, ErrInvalidNamespace)
	})

	t.Run("missing manifest", func(t *testing.T) {
		s := NewScanner(ManifestIndex{Path: filepath.Join(t.TempDir(), "missing.yaml")})
		_, err := s.Scan(context.Background(), "", true)
		var scanErr *ScanError
		assert.ErrorAs(t, err, &scanErr)
	})
}

func TestScanner_ShallowExcludesSubNamespaces(t *testing.T) {
	segment := rapid.SampledFrom([]string{"a", "b", "c"})
	namespaceGen := rapid.Custom(func(t *rapid.T) string {
		parts := rapid.SliceOfN(segment, 1, 3).Draw(t, "parts")
		return strings.Join(parts, "/")
	})
	nameGen := rapid.SampledFrom([]string{"One", "Two", "Three"})

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 20).Draw(t, "n")
		ids := make(staticIndex, 0, n)
		for i := 0; i < n; i++ {
			ids = append(ids, Identifier(namespaceGen.Draw(t, "ns"), nameGen.Draw(t, "name")))
		}
		target := namespaceGen.Draw(t, "target")

		seq, err := NewScanner(ids).Scan(context.Background(), target, false)
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		for id := range seq {
			ns, _ := SplitIdentifier(id)
			if ns != target {
				t.Fatalf("shallow scan of %q produced %q from namespace %q", target, id, ns)
			}
		}

		deep, err := NewScanner(ids).Scan(context.Background(), target, true)
		if err != nil {
			t.Fatalf("scan: %v", err)
		}
		for id := range deep {
			ns, _ := SplitIdentifier(id)
			if ns != target && !strings.HasPrefix(ns, target+"/") {
				t.Fatalf("deep scan of %q produced %q outside the namespace", target, id)
			}
		}
	})
}
