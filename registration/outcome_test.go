package registration

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/c360studio/semwire/catalog"
)

func TestKind_String(t *testing.T) {
	assert.Equal(t, "registered", Registered.String())
	assert.Equal(t, "skipped_not_dev", SkippedNotDev.String())
	assert.Equal(t, "skipped_no_target", SkippedNoTarget.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "unknown", Kind(0).String())
}

func TestReport_Aggregates(t *testing.T) {
	boom := errors.New("boom")
	report := &Report{
		Variant:   VariantCommand,
		Namespace: "cmds",
		Scanned:   5,
		Outcomes: []Outcome{
			{Kind: Registered, Identifier: "cmds.A", Name: "a"},
			{Kind: Failed, Identifier: "cmds.B", Name: "b", Err: boom},
			{Kind: SkippedNoTarget, Identifier: "cmds.C", Name: "c"},
			{Kind: Registered, Identifier: "cmds.D", Name: "d"},
		},
	}

	assert.Equal(t, 2, report.Count(Registered))
	assert.Equal(t, 0, report.Count(SkippedNotDev))
	assert.Len(t, report.Failures(), 1)
	assert.ErrorIs(t, report.Err(), boom)

	out, ok := report.Find("cmds.C")
	require.True(t, ok)
	assert.Equal(t, "skipped_no_target cmds.C (c)", out.String())
	assert.Equal(t, "failed cmds.B: boom", report.Outcomes[1].String())

	assert.Equal(t,
		`command pass over "cmds": 5 scanned, 2 registered, 0 skipped (not dev), 1 skipped (no target), 1 failed`,
		report.Summary())
}

func TestReport_CleanPassHasNoError(t *testing.T) {
	report := &Report{Outcomes: []Outcome{{Kind: Registered}, {Kind: SkippedNotDev}}}
	assert.NoError(t, report.Err())
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "idle", StageIdle.String())
	assert.Equal(t, "instantiating", StageInstantiating.String())
	assert.Equal(t, "unknown", Stage(42).String())
}

// Every candidate gets exactly one outcome, dev-only candidates never register
// with dev mode off, and slots that are not declared are never bound.
func TestPipeline_OutcomeProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 12).Draw(t, "n")
		devMode := rapid.Bool().Draw(t, "devMode")

		c := catalog.NewCatalog()
		slots := newFakeSlots()
		dev := make(map[string]bool)
		declared := make(map[string]bool)
		for i := range n {
			key := fmt.Sprintf("cmd%d", i)
			name := fmt.Sprintf("T%02d", i)
			dev[catalog.Identifier("cmds", name)] = rapid.Bool().Draw(t, "dev")
			if rapid.Bool().Draw(t, "declared") {
				slots.declared[key] = true
				declared[key] = true
			}
			c.MustRegister(catalog.TypeInfo{
				Namespace:   "cmds",
				Name:        name,
				Marker:      &catalog.Marker{Key: key, DevOnly: dev[catalog.Identifier("cmds", name)]},
				Constructor: catalog.New(func() *debugHandler { return &debugHandler{} }),
			})
		}

		p := NewCommandPipeline[handler](catalog.NewScanner(c), c, slots, Options{DevMode: devMode, Logger: quietLogger()})
		report, err := p.Register(context.Background(), &testHost{}, "cmds")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(report.Outcomes) != n {
			t.Fatalf("got %d outcomes for %d candidates", len(report.Outcomes), n)
		}
		seen := make(map[string]bool)
		for _, out := range report.Outcomes {
			if seen[out.Identifier] {
				t.Fatalf("duplicate outcome for %s", out.Identifier)
			}
			seen[out.Identifier] = true

			switch {
			case dev[out.Identifier] && !devMode:
				if out.Kind != SkippedNotDev {
					t.Fatalf("%s: want skipped_not_dev, got %s", out.Identifier, out.Kind)
				}
			case declared[out.Name]:
				if out.Kind != Registered {
					t.Fatalf("%s: want registered, got %s", out.Identifier, out.Kind)
				}
			default:
				if out.Kind != SkippedNoTarget {
					t.Fatalf("%s: want skipped_no_target, got %s", out.Identifier, out.Kind)
				}
			}
		}
		for name := range slots.bound {
			if !declared[name] {
				t.Fatalf("undeclared slot %q was bound", name)
			}
		}
	})
}
