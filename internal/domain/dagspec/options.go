package dagspec

import "time"

// BackoffStrategy selects how retry delay grows between attempts.
// Spec.md §4.8: "Fixed: constant; Linear: delay·attempt; Exponential:
// delay·2^(attempt-1), capped at a sane maximum."
type BackoffStrategy string

const (
	BackoffFixed       BackoffStrategy = "fixed"
	BackoffLinear      BackoffStrategy = "linear"
	BackoffExponential BackoffStrategy = "exponential"
)

// OnErrorStrategy governs what happens to a module's downstream consumers
// once its retries are exhausted.
type OnErrorStrategy string

const (
	// OnErrorFail is the default: the module transitions to Failed and every
	// downstream module depending on its outputs is marked Skipped.
	OnErrorFail OnErrorStrategy = "fail"

	// OnErrorIgnore still marks the module Failed, but downstream modules
	// that consume one of its outputs through an Option<T> data node are
	// allowed to proceed with that input bound to None rather than being
	// Skipped; non-Option consumers are Skipped as usual.
	OnErrorIgnore OnErrorStrategy = "ignore"
)

// PriorityLevel names the three fixed priority presets; spec.md §9 resolves
// the custom-vs-named-priority open question by having named levels resolve
// to these plain integers and comparing everything on that integer.
type PriorityLevel int

const (
	PriorityLevelLow    PriorityLevel = -10
	PriorityLevelNormal PriorityLevel = 0
	PriorityLevelHigh   PriorityLevel = 10
)

// Priority is either a named level or a custom integer; both resolve to the
// same comparable integer space, so CustomPriority(5) runs after High (10)
// and before Normal (0).
type Priority struct {
	value int
}

// Low, Normal, and High construct the three named priority presets.
func Low() Priority    { return Priority{value: int(PriorityLevelLow)} }
func Normal() Priority { return Priority{value: int(PriorityLevelNormal)} }
func High() Priority   { return Priority{value: int(PriorityLevelHigh)} }

// CustomPriority constructs an arbitrary-integer priority.
func CustomPriority(n int) Priority { return Priority{value: n} }

// Resolved returns the comparable integer used for scheduling order: higher
// runs first.
func (p Priority) Resolved() int { return p.value }

// ModuleCallOptions configures one module's execution behavior. Every field
// is a pointer so "unset" (inherit default) is distinguishable from the
// zero value.
type ModuleCallOptions struct {
	RetryCount     *int
	Timeout        *time.Duration
	Delay          *time.Duration
	Backoff        *BackoffStrategy
	CacheTTL       *time.Duration
	CacheBackend   *string
	ThrottleCount  *int
	ThrottleWindow *time.Duration
	ConcurrencyLimit *int
	OnError        *OnErrorStrategy
	Lazy           *bool
	Priority       *Priority
}

// DefaultModuleCallOptions are applied wherever a field of ModuleCallOptions
// is nil.
var DefaultModuleCallOptions = ModuleCallOptions{}

func intOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func durationOr(p *time.Duration, def time.Duration) time.Duration {
	if p == nil {
		return def
	}
	return *p
}

// ResolvedOptions is ModuleCallOptions with every field defaulted, the form
// the scheduler actually consumes.
type ResolvedOptions struct {
	RetryCount       int
	Timeout          time.Duration
	Delay            time.Duration
	Backoff          BackoffStrategy
	CacheTTL         time.Duration
	CacheBackend     string
	ThrottleCount    int
	ThrottleWindow   time.Duration
	ConcurrencyLimit int
	OnError          OnErrorStrategy
	Lazy             bool
	Priority         Priority
}

// Resolve merges opts over a set of engine-wide defaults.
func Resolve(opts ModuleCallOptions, defaults ResolvedOptions) ResolvedOptions {
	resolved := defaults
	if opts.RetryCount != nil {
		resolved.RetryCount = *opts.RetryCount
	}
	if opts.Timeout != nil {
		resolved.Timeout = *opts.Timeout
	}
	if opts.Delay != nil {
		resolved.Delay = *opts.Delay
	}
	if opts.Backoff != nil {
		resolved.Backoff = *opts.Backoff
	}
	if opts.CacheTTL != nil {
		resolved.CacheTTL = *opts.CacheTTL
	}
	if opts.CacheBackend != nil {
		resolved.CacheBackend = *opts.CacheBackend
	}
	if opts.ThrottleCount != nil {
		resolved.ThrottleCount = *opts.ThrottleCount
	}
	if opts.ThrottleWindow != nil {
		resolved.ThrottleWindow = *opts.ThrottleWindow
	}
	if opts.ConcurrencyLimit != nil {
		resolved.ConcurrencyLimit = *opts.ConcurrencyLimit
	}
	if opts.OnError != nil {
		resolved.OnError = *opts.OnError
	}
	if opts.Lazy != nil {
		resolved.Lazy = *opts.Lazy
	}
	if opts.Priority != nil {
		resolved.Priority = *opts.Priority
	}
	return resolved
}

// DefaultResolvedOptions are the engine-wide defaults applied when a
// PipelineImage carries no per-module override.
var DefaultResolvedOptions = ResolvedOptions{
	RetryCount:       0,
	Timeout:          30 * time.Second,
	Delay:            0,
	Backoff:          BackoffFixed,
	ThrottleCount:    0,
	ConcurrencyLimit: 0,
	OnError:          OnErrorFail,
	Lazy:             false,
	Priority:         Normal(),
}
