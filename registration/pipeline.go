package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	errs "github.com/c360studio/semstreams/pkg/errs"
	"github.com/google/uuid"

	"github.com/c360studio/semwire/catalog"
)

// ErrNilContext is returned when a pass is started without a registration context.
var ErrNilContext = errors.New("registration context is required")

// Variant labels used in logs, metrics and reports.
const (
	VariantCommand  = "command"
	VariantListener = "listener"
)

// Stage is a step of a registration pass.
type Stage int

const (
	StageIdle Stage = iota
	StageScanning
	StageFiltering
	StageInstantiating
	StageRegistering
	StageDone
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageScanning:
		return "scanning"
	case StageFiltering:
		return "filtering"
	case StageInstantiating:
		return "instantiating"
	case StageRegistering:
		return "registering"
	case StageDone:
		return "done"
	default:
		return "unknown"
	}
}

// Observer is notified on every stage transition, starting with StageIdle
// when a pass begins. identifier is empty for the idle, scanning and done
// stages.
type Observer func(stage Stage, identifier string)

// Options configures a pipeline. It is fixed for the pipeline's lifetime.
type Options struct {
	// Variant labels the pipeline; defaults to the constructor's variant.
	Variant string

	// DevMode includes components marked development-only.
	DevMode bool

	// RequireMarker skips capable types that carry no marker.
	RequireMarker bool

	Logger   *slog.Logger
	Metrics  *Metrics
	Observer Observer
}

// Pipeline discovers types implementing capability C under a namespace,
// builds them and hands them to a sink.
type Pipeline[C any] struct {
	scanner *catalog.Scanner
	loader  catalog.Loader
	sink    Sink[C]
	opts    Options
	logger  *slog.Logger
}

// New creates a pipeline over a scanner, a loader and a sink.
func New[C any](scanner *catalog.Scanner, loader catalog.Loader, sink Sink[C], opts Options) *Pipeline[C] {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline[C]{
		scanner: scanner,
		loader:  loader,
		sink:    sink,
		opts:    opts,
		logger:  logger.With("variant", opts.Variant),
	}
}

// NewCommandPipeline creates a pipeline binding marked types to named slots.
// Command candidates always require a marker, since the marker carries the slot name.
func NewCommandPipeline[C any](scanner *catalog.Scanner, loader catalog.Loader, slots SlotRegistry[C], opts Options) *Pipeline[C] {
	if opts.Variant == "" {
		opts.Variant = VariantCommand
	}
	opts.RequireMarker = true
	return New[C](scanner, loader, CommandSink[C]{Slots: slots}, opts)
}

// NewListenerPipeline creates a pipeline registering every capable type with
// a listener registry. A marker is only needed to flag development-only listeners
// unless opts.RequireMarker is set.
func NewListenerPipeline[C any](scanner *catalog.Scanner, loader catalog.Loader, registry ListenerRegistry[C], opts Options) *Pipeline[C] {
	if opts.Variant == "" {
		opts.Variant = VariantListener
	}
	return New[C](scanner, loader, ListenerSink[C]{Registry: registry}, opts)
}

// Register runs a deep pass over namespace and its sub-namespaces.
func (p *Pipeline[C]) Register(ctx context.Context, rc any, namespace string) (*Report, error) {
	return p.Run(ctx, rc, namespace, true)
}

// Run performs one registration pass. Candidates are processed sequentially in
// scanner order; a failing candidate never stops the pass.
//
// A scan failure is fatal: no outcomes are produced and the error is returned.
// When ctx is cancelled the pass stops before the next candidate and returns
// the partial report together with the context error. Registrations made
// before a failure or cancellation stay in effect.
func (p *Pipeline[C]) Run(ctx context.Context, rc any, namespace string, deep bool) (*Report, error) {
	if rc == nil {
		return nil, errs.WrapInvalid(ErrNilContext, "Pipeline", "Run", "context validation")
	}

	report := &Report{
		RunID:     uuid.NewString(),
		Variant:   p.opts.Variant,
		Namespace: namespace,
		Deep:      deep,
		DevMode:   p.opts.DevMode,
		Started:   time.Now(),
	}
	logger := p.logger.With("run_id", report.RunID)

	p.observe(StageIdle, "")
	p.observe(StageScanning, "")
	ids, err := p.scanner.Scan(ctx, namespace, deep)
	if err != nil {
		p.opts.Metrics.recordScanFailure(p.opts.Variant)
		logger.Error("Namespace scan failed", "namespace", namespace, "error", err)
		return nil, errs.WrapFatal(err, "Pipeline", "Run", "namespace scan")
	}

	for id := range ids {
		if err := ctx.Err(); err != nil {
			report.Aborted = true
			report.Duration = time.Since(report.Started)
			logger.Warn("Registration pass aborted", "namespace", namespace, "processed", report.Scanned)
			return report, fmt.Errorf("registration pass aborted: %w", err)
		}

		report.Scanned++
		out, ok := p.process(ctx, rc, id)
		if !ok {
			continue
		}
		report.Outcomes = append(report.Outcomes, out)
		p.opts.Metrics.recordOutcome(p.opts.Variant, out.Kind)
		logOutcome(logger, out)
	}

	report.Duration = time.Since(report.Started)
	p.opts.Metrics.recordPass(p.opts.Variant, report.Duration)
	p.observe(StageDone, "")

	logger.Debug("Registration pass complete",
		"namespace", namespace,
		"scanned", report.Scanned,
		"outcomes", len(report.Outcomes),
		"duration", report.Duration)
	return report, nil
}

// process filters, builds and binds one identifier. ok is false when the
// identifier is not a candidate at all.
func (p *Pipeline[C]) process(ctx context.Context, rc any, id string) (out Outcome, ok bool) {
	p.observe(StageFiltering, id)

	info, err := p.loader.Load(id)
	if err != nil {
		return Outcome{Kind: Failed, Identifier: id, Name: id, Err: err}, true
	}

	if _, capable := info.Constructor.Probe().(C); !capable {
		return Outcome{}, false
	}
	if info.Marker == nil && p.opts.RequireMarker {
		return Outcome{}, false
	}

	candidate := newCandidate(info)
	if info.DevOnly() && !p.opts.DevMode {
		return Outcome{Kind: SkippedNotDev, Identifier: id, Name: skipName(candidate), Dev: true}, true
	}

	p.observe(StageInstantiating, id)
	instance, err := info.Constructor.Build(rc)
	if err != nil {
		return constructFailure(candidate, err), true
	}
	typed, capable := instance.(C)
	if !capable {
		return constructFailure(candidate, fmt.Errorf("built %T does not implement the capability", instance)), true
	}

	p.observe(StageRegistering, id)
	return p.sink.Bind(ctx, candidate, typed), true
}

func (p *Pipeline[C]) observe(stage Stage, id string) {
	if p.opts.Observer != nil {
		p.opts.Observer(stage, id)
	}
}

func constructFailure(c Candidate, err error) Outcome {
	return Outcome{
		Kind:       Failed,
		Identifier: c.Identifier,
		Name:       skipName(c),
		Dev:        c.Marker.DevOnly,
		Err:        &catalog.ConstructError{Identifier: c.Identifier, Err: err},
	}
}

// skipName is the name reported for outcomes that never reach the sink.
func skipName(c Candidate) string {
	if c.Marker.Key != "" {
		return c.Marker.Key
	}
	return c.Name
}

func logOutcome(logger *slog.Logger, out Outcome) {
	attrs := []any{"identifier", out.Identifier, "name", out.Name, "dev", out.Dev}
	switch out.Kind {
	case Registered:
		logger.Info("Registered component", attrs...)
	case SkippedNotDev:
		logger.Info("Skipped development-only component", attrs...)
	case SkippedNoTarget:
		logger.Warn("No registration target declared for component", attrs...)
	case Failed:
		logger.Error("Component registration failed", append(attrs, "error", out.Err)...)
	}
}
