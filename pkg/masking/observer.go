package masking

import "fmt"

// AnomalyKind classifies a masking step that was skipped.
type AnomalyKind string

const (
	// AnomalyUnreachablePath: an intermediate path segment resolved to a
	// list or scalar instead of a map.
	AnomalyUnreachablePath AnomalyKind = "unreachable_path"
	// AnomalyDepthExceeded: a subtree sat below the walker depth limit and
	// was not scanned.
	AnomalyDepthExceeded AnomalyKind = "depth_exceeded"
	// AnomalyRulePanic: a rule or path panicked and was skipped for the field.
	AnomalyRulePanic AnomalyKind = "rule_panic"
)

// Anomaly describes one rule skipped for one field.
type Anomaly struct {
	Kind AnomalyKind
	// Field is the record field being masked: message, context or attributes.
	Field string
	// Rule names the path or pattern rule involved, if any.
	Rule   string
	Detail string
}

func (a Anomaly) String() string {
	if a.Rule == "" {
		return fmt.Sprintf("%s on %s: %s", a.Kind, a.Field, a.Detail)
	}
	return fmt.Sprintf("%s on %s (%s): %s", a.Kind, a.Field, a.Rule, a.Detail)
}

// Observer receives masking anomalies. Observe is called synchronously from
// the masking goroutine and must not log through a masking logger.
type Observer interface {
	Observe(Anomaly)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Anomaly)

func (f ObserverFunc) Observe(a Anomaly) { f(a) }

type nopObserver struct{}

func (nopObserver) Observe(Anomaly) {}

// NopObserver discards anomalies.
var NopObserver Observer = nopObserver{}

func observerOrNop(o Observer) Observer {
	if o == nil {
		return NopObserver
	}
	return o
}

// Guard runs fn and returns its result. If fn panics, Guard reports an
// AnomalyRulePanic for field and rule and returns fallback instead.
func Guard[T any](obs Observer, field, rule string, fallback T, fn func() T) (out T) {
	defer func() {
		if r := recover(); r != nil {
			observerOrNop(obs).Observe(Anomaly{
				Kind:   AnomalyRulePanic,
				Field:  field,
				Rule:   rule,
				Detail: fmt.Sprint(r),
			})
			out = fallback
		}
	}()
	return fn()
}
