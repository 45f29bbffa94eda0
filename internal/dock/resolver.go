package dock

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Detector is one detection method.
//
// Detect may return an error; the Resolver treats any error exactly like an
// empty result.
type Detector interface {
	Method() Method
	Detect(ctx context.Context) ([]Observation, error)
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc struct {
	M  Method
	Fn func(ctx context.Context) ([]Observation, error)
}

// Method implements Detector.
func (d DetectorFunc) Method() Method { return d.M }

// Detect implements Detector.
func (d DetectorFunc) Detect(ctx context.Context) ([]Observation, error) {
	return d.Fn(ctx)
}

// Logger defines the logging interface used by the Resolver.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Resolver turns detection methods into a deduplicated inventory.
//
// A Resolver holds only configuration; each Resolve call works on freshly
// detected data and shares nothing with other calls.
type Resolver struct {
	filter       *ModelFilter
	subInterface SubInterfaceFunc
	logger       Logger
	now          func() time.Time
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithModelFilter restricts every batch to matching models before deduplication.
func WithModelFilter(f *ModelFilter) ResolverOption {
	return func(r *Resolver) {
		r.filter = f
	}
}

// WithSubInterface replaces the default sub-interface predicate.
func WithSubInterface(fn SubInterfaceFunc) ResolverOption {
	return func(r *Resolver) {
		r.subInterface = fn
	}
}

// NewResolver creates a Resolver. Without options it applies no model filter
// and uses USBInterfaceMarker.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		subInterface: USBInterfaceMarker,
		logger:       noopLogger{},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetLogger sets the logger for the resolver.
func (r *Resolver) SetLogger(logger Logger) {
	r.logger = logger
}

// Resolve runs the detectors in method priority order and stops at the first
// one whose filtered batch is non-empty. That batch alone is deduplicated.
//
// Detectors are stable-sorted by Method before use, so callers cannot invert
// the priority by listing them differently. Detection errors and panics are
// recorded in Inventory.Attempts and otherwise ignored. An inventory with no
// entries is a normal result meaning no dock is connected.
//
// Parameters:
//   - ctx: Context passed to each detector
//   - detectors: Detection methods to try
//
// Returns:
//   - Inventory: Resolved entries plus per-method diagnostics
func (r *Resolver) Resolve(ctx context.Context, detectors []Detector) Inventory {
	ordered := make([]Detector, 0, len(detectors))
	for _, d := range detectors {
		if d != nil {
			ordered = append(ordered, d)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Method() < ordered[j].Method()
	})

	inv := Inventory{Source: MethodNone}
	for _, d := range ordered {
		batch, attempt := r.invoke(ctx, d)
		inv.Attempts = append(inv.Attempts, attempt)

		if attempt.Failed() {
			r.logger.Warn("detection method failed",
				"method", attempt.Method.String(),
				"error", attempt.Err,
			)
			continue
		}
		if len(batch) == 0 {
			r.logger.Debug("detection method found nothing",
				"method", attempt.Method.String(),
				"observations", attempt.Observations,
			)
			continue
		}

		inv.Entries = DeduplicateWith(batch, r.subInterface)
		inv.Source = d.Method()
		r.logger.Info("docks resolved",
			"method", inv.Source.String(),
			"observations", len(batch),
			"docks", inv.DockCount(),
		)
		return inv
	}

	r.logger.Info("no dock detected", "methods_tried", len(inv.Attempts))
	return inv
}

// invoke calls one detector, converting errors and panics into a failed Attempt.
func (r *Resolver) invoke(ctx context.Context, d Detector) (batch []Observation, attempt Attempt) {
	method := d.Method()
	start := r.now()
	attempt = Attempt{Method: method}

	defer func() {
		attempt.Duration = r.now().Sub(start)
		if rec := recover(); rec != nil {
			batch = nil
			attempt.Accepted = 0
			attempt.Err = NewDetectionFailure(method, fmt.Errorf("panic: %v", rec))
		}
	}()

	raw, err := d.Detect(ctx)
	if err != nil {
		attempt.Err = NewDetectionFailure(method, err)
		return nil, attempt
	}

	attempt.Observations = len(raw)
	batch = r.filter.Apply(raw)
	attempt.Accepted = len(batch)
	return batch, attempt
}
