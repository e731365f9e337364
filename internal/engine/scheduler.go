package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/alexisbeaulieu97/constellation/internal/canon"
	"github.com/alexisbeaulieu97/constellation/internal/domain/ctype"
	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
	"github.com/alexisbeaulieu97/constellation/internal/domain/image"
	"github.com/alexisbeaulieu97/constellation/internal/domain/suspension"
	"github.com/alexisbeaulieu97/constellation/internal/domain/xerrors"
	"github.com/alexisbeaulieu97/constellation/internal/ports"
	"github.com/alexisbeaulieu97/constellation/internal/registry"
	"github.com/alexisbeaulieu97/constellation/internal/transform"
)

// Config is everything a Run needs: the compiled graph, its bound
// implementations, per-module option overrides, and engine-wide defaults.
type Config struct {
	Spec          dagspec.DagSpec
	Impls         map[uuid.UUID]image.ModuleImpl
	ModuleOptions map[uuid.UUID]dagspec.ModuleCallOptions
	Defaults      dagspec.ResolvedOptions
	// GlobalTimeout, if non-zero, cancels the whole run at expiry.
	GlobalTimeout time.Duration

	// Logger receives per-module dispatch/completion/failure events. A nil
	// Logger is replaced by ports.NoOpLogger.
	Logger ports.Logger
	// Metrics, if set, is sent one IncCounter and one ObserveHistogram call
	// per completed module invocation (spec.md §5 capability hooks).
	Metrics ports.MetricsCollector
	// Caches resolves a module's ModuleCallOptions.CacheBackend name to a
	// concrete backend. A module with a zero CacheTTL or a name absent from
	// this map is never memoized.
	Caches map[string]ports.CacheBackend
}

// Scheduler runs one Config's DagSpec to completion, suspension, or failure.
type Scheduler struct {
	cfg   Config
	index map[uuid.UUID]int
}

// New builds a Scheduler for cfg, pre-computing the canonical tie-break
// index once since it only depends on the (immutable) Spec.
func New(cfg Config) *Scheduler {
	if cfg.Logger == nil {
		cfg.Logger = ports.NoOpLogger{}
	}
	return &Scheduler{cfg: cfg, index: canon.CanonicalIndex(cfg.Spec)}
}

type moduleOutcome struct {
	moduleID uuid.UUID
	outputs  map[string]cvalue.CValue
	err      error
	duration time.Duration
}

// run is the scheduler's mutable per-execution state, protected by mu.
type run struct {
	mu sync.Mutex

	values         map[uuid.UUID]Cell
	moduleStatus   map[uuid.UUID]suspension.ModuleStatus
	resolvedOpts   map[uuid.UUID]dagspec.ResolvedOptions
	dispatched     map[uuid.UUID]bool
	errs           []error
	inFlight       int

	// readyAt records when each module last transitioned to Ready, so
	// expireTimedOutModules can measure how long it has sat queued behind a
	// concurrency/throttle slot against its ModuleNodeSpec.InputsTimeout
	// (spec.md:148/223: the ceiling applies to time spent Ready, not to the
	// Invoke call itself — that is ModuleTimeout's job).
	readyAt map[uuid.UUID]time.Time

	// durations records each module's wall-clock invocation span (including
	// retries), keyed by module node UUID, for internal/report's optional
	// per-node timings (spec.md §4.11).
	durations map[uuid.UUID]time.Duration

	nameSlots    map[registry.Key]chan struct{}
	nameLimiters map[registry.Key]*rate.Limiter
}

// Preload seeds per-run state before providedInputs is bound, letting a
// resumed run (internal/suspendstore) pick up from a prior snapshot's
// already-Computed values and module statuses instead of re-executing
// modules that already succeeded (spec.md §4.10 step 4).
type Preload struct {
	Values         map[uuid.UUID]cvalue.CValue
	ModuleStatuses map[uuid.UUID]suspension.ModuleStatus
}

// Run executes the scheduler's DagSpec against providedInputs (keyed by
// data node Name), returning a terminal Result. It never panics on module
// implementation error — every failure path is captured in the Result.
func (s *Scheduler) Run(ctx context.Context, providedInputs map[string]cvalue.CValue) (*Result, error) {
	return s.execute(ctx, providedInputs, Preload{})
}

// RunResumed is Run with a Preload applied first, the entry point
// internal/suspendstore's resume procedure calls after merging a snapshot's
// additionalInputs and resolvedNodes.
func (s *Scheduler) RunResumed(ctx context.Context, providedInputs map[string]cvalue.CValue, preload Preload) (*Result, error) {
	return s.execute(ctx, providedInputs, preload)
}

func (s *Scheduler) execute(ctx context.Context, providedInputs map[string]cvalue.CValue, preload Preload) (*Result, error) {
	started := time.Now()

	if s.cfg.GlobalTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.GlobalTimeout)
		defer cancel()
	}

	r := &run{
		values:       make(map[uuid.UUID]Cell, len(s.cfg.Spec.Data)),
		moduleStatus: make(map[uuid.UUID]suspension.ModuleStatus, len(s.cfg.Spec.Modules)),
		resolvedOpts: make(map[uuid.UUID]dagspec.ResolvedOptions, len(s.cfg.Spec.Modules)),
		dispatched:   make(map[uuid.UUID]bool),
		durations:    make(map[uuid.UUID]time.Duration, len(s.cfg.Spec.Modules)),
		nameSlots:    make(map[registry.Key]chan struct{}),
		nameLimiters: make(map[registry.Key]*rate.Limiter),
		readyAt:      make(map[uuid.UUID]time.Time, len(s.cfg.Spec.Modules)),
	}
	for id := range s.cfg.Spec.Data {
		r.values[id] = Cell{State: CellEmpty}
	}
	for id := range s.cfg.Spec.Modules {
		r.moduleStatus[id] = suspension.StatusPending
		r.resolvedOpts[id] = dagspec.Resolve(s.cfg.ModuleOptions[id], s.cfg.Defaults)
	}
	for id, v := range preload.Values {
		r.values[id] = Cell{State: CellComputed, Value: v}
	}
	for id, status := range preload.ModuleStatuses {
		r.moduleStatus[id] = status
		if status == suspension.StatusCompleted || status == suspension.StatusFailed || status == suspension.StatusSkipped {
			r.dispatched[id] = true
		}
	}

	if err := s.bindInputs(r, providedInputs); err != nil {
		return &Result{
			Outcome:        OutcomeFailed,
			Errors:         []error{err},
			ModuleStatuses: r.moduleStatus,
			Values:         r.values,
			StartedAt:      started,
			FinishedAt:     time.Now(),
		}, nil
	}

	s.cascadeTransforms(r)
	s.refreshReadiness(r)

	completions := make(chan moduleOutcome, len(s.cfg.Spec.Modules)+1)

	for {
		r.mu.Lock()
		if ctx.Err() != nil {
			r.mu.Unlock()
			break
		}
		timedOut := s.expireTimedOutModules(r)
		ready := s.readyModules(r)
		for _, id := range ready {
			if s.tryDispatch(ctx, r, id, completions) {
				r.dispatched[id] = true
			}
		}
		running := r.inFlight
		r.mu.Unlock()

		if timedOut {
			// A Ready module just failed on inputsTimeout; cascade the
			// resulting Skipped/Failed statuses before recomputing readiness.
			s.cascadeTransforms(r)
			s.refreshReadiness(r)
			continue
		}

		if len(ready) == 0 && running == 0 {
			break
		}
		if running == 0 && len(ready) > 0 {
			// Every ready module is blocked on a full concurrency slot;
			// wait briefly rather than busy-looping.
			select {
			case <-ctx.Done():
			case <-time.After(5 * time.Millisecond):
			}
			continue
		}

		// Poll periodically even while a module is in flight, so a
		// different Ready module queued behind a full slot still gets its
		// inputsTimeout checked instead of waiting on the in-flight
		// module's completion.
		select {
		case out := <-completions:
			s.applyOutcome(r, out)
			s.cascadeTransforms(r)
			s.refreshReadiness(r)
		case <-time.After(5 * time.Millisecond):
		case <-ctx.Done():
		}
	}

	return s.finalize(r, started, ctx.Err()), nil
}

func (s *Scheduler) bindInputs(r *run, provided map[string]cvalue.CValue) error {
	byName := make(map[string]uuid.UUID, len(s.cfg.Spec.Data))
	for id, node := range s.cfg.Spec.Data {
		byName[node.Name] = id
	}

	for name, v := range provided {
		id, ok := byName[name]
		if !ok {
			return xerrors.New(xerrors.CodeInputValidation, "no data node matches provided input name").
				WithContext(map[string]interface{}{"input": name})
		}
		node := s.cfg.Spec.Data[id]
		if !v.Type.Equal(node.Type) {
			return xerrors.New(xerrors.CodeInputTypeMismatch, "provided input does not match declared data node type").
				WithContext(map[string]interface{}{"input": name, "expected": node.Type.String(), "actual": v.Type.String()})
		}
		r.values[id] = Cell{State: CellComputed, Value: v}
	}
	return nil
}

// cascadeTransforms evaluates every inline-transform data node whose inputs
// are all Computed and which is not itself already Computed or Failed. It
// repeats until a pass makes no progress, since one transform's output can
// feed another (spec.md §4.9: inline transforms chain without a module
// node in between).
func (s *Scheduler) cascadeTransforms(r *run) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		progressed := false
		for dataID, node := range s.cfg.Spec.Data {
			if node.InlineTransform == nil {
				continue
			}
			cell := r.values[dataID]
			if cell.State != CellEmpty {
				continue
			}
			inputs := make(map[string]cvalue.CValue, len(node.TransformInputs))
			ready := true
			failed := false
			var inputErr error
			for name, inputID := range node.TransformInputs {
				ic := r.values[inputID]
				switch ic.State {
				case CellComputed:
					inputs[name] = ic.Value
				case CellFailed:
					failed = true
					inputErr = ic.Err
				default:
					ready = false
				}
			}
			if failed {
				r.values[dataID] = Cell{State: CellFailed, Err: inputErr}
				progressed = true
				continue
			}
			if !ready {
				continue
			}
			out, err := transform.Evaluate(*node.InlineTransform, inputs, node.Type)
			if err != nil {
				r.values[dataID] = Cell{State: CellFailed, Err: err}
			} else {
				r.values[dataID] = Cell{State: CellComputed, Value: out}
			}
			progressed = true
		}
		if !progressed {
			return
		}
	}
}

// moduleReady reports whether every in-edge of moduleID resolves to a
// Computed cell and the module itself hasn't already run or been decided.
func (s *Scheduler) moduleReady(r *run, moduleID uuid.UUID) bool {
	switch r.moduleStatus[moduleID] {
	case suspension.StatusCompleted, suspension.StatusFailed, suspension.StatusSkipped, suspension.StatusRunning:
		return false
	}
	if r.dispatched[moduleID] {
		return false
	}
	for _, e := range s.cfg.Spec.InEdgesFor(moduleID) {
		if r.values[e.Data].State != CellComputed {
			return false
		}
	}
	return true
}

// refreshReadiness marks every module newly satisfying moduleReady as Ready.
func (s *Scheduler) refreshReadiness(r *run) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id := range s.cfg.Spec.Modules {
		if r.moduleStatus[id] == suspension.StatusPending && s.moduleReady(r, id) {
			r.moduleStatus[id] = suspension.StatusReady
			r.readyAt[id] = time.Now()
		}
	}
}

// expireTimedOutModules fails every Ready, not-yet-dispatched module whose
// InputsTimeout has elapsed since it became Ready. InputsTimeout bounds time
// spent queued behind a full concurrency slot or throttle limiter, not the
// Invoke call itself (spec.md:148, spec.md:223) — a module only ever reaches
// this check while Ready, never while Running. Returns true if any module
// was failed this way, so the caller cascades the resulting Skipped/Failed
// statuses before recomputing readiness. Caller holds r.mu.
func (s *Scheduler) expireTimedOutModules(r *run) bool {
	now := time.Now()
	expired := false
	for id, status := range r.moduleStatus {
		if status != suspension.StatusReady || r.dispatched[id] {
			continue
		}
		node := s.cfg.Spec.Modules[id]
		if node.InputsTimeout <= 0 {
			continue
		}
		readyAt, ok := r.readyAt[id]
		if !ok {
			// A preloaded (resumed) run can mark a module Ready without
			// ever passing through refreshReadiness; start its clock now.
			r.readyAt[id] = now
			continue
		}
		if now.Sub(readyAt) < node.InputsTimeout {
			continue
		}

		err := xerrors.New(xerrors.CodeTimeout, "module timed out waiting for a free dispatch slot").
			WithContext(map[string]interface{}{
				"module":        node.Name,
				"version":       node.Version,
				"inputsTimeout": node.InputsTimeout.String(),
			})
		r.moduleStatus[id] = suspension.StatusFailed
		r.dispatched[id] = true
		r.errs = append(r.errs, err)
		s.skipDownstream(r, id, r.resolvedOpts[id].OnError)
		expired = true
	}
	return expired
}

// readyModules returns every Ready, not-yet-dispatched module, ordered by
// descending priority then ascending canonical index (spec.md §4.8: "higher
// priority first; ties broken by smaller canonical index"). Caller holds
// r.mu.
func (s *Scheduler) readyModules(r *run) []uuid.UUID {
	var ids []uuid.UUID
	for id, status := range r.moduleStatus {
		if status == suspension.StatusReady && !r.dispatched[id] {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		pi := r.resolvedOpts[ids[i]].Priority.Resolved()
		pj := r.resolvedOpts[ids[j]].Priority.Resolved()
		if pi != pj {
			return pi > pj
		}
		return s.index[ids[i]] < s.index[ids[j]]
	})
	return ids
}

// identityFor returns the registry key used to scope per-implementation
// concurrency and throttle limits: within one run, a module node executes
// at most once, so the only meaningful sharing is across distinct nodes
// bound to the same named module implementation.
func identityFor(node dagspec.ModuleNodeSpec) registry.Key {
	return registry.Key{Name: node.Name, Version: node.Version}
}

// slotFor lazily creates the buffered semaphore channel gating concurrent
// invocations of a given module identity. Caller holds r.mu.
func (r *run) slotFor(key registry.Key, limit int) chan struct{} {
	ch, ok := r.nameSlots[key]
	if !ok {
		size := limit
		if size <= 0 {
			size = 1 << 20 // effectively unbounded
		}
		ch = make(chan struct{}, size)
		r.nameSlots[key] = ch
	}
	return ch
}

// limiterFor lazily creates the rate.Limiter gating a module identity's
// invocation rate per ThrottleCount/ThrottleWindow. Caller holds r.mu.
func (r *run) limiterFor(key registry.Key, count int, window time.Duration) *rate.Limiter {
	lim, ok := r.nameLimiters[key]
	if !ok {
		if count <= 0 || window <= 0 {
			lim = rate.NewLimiter(rate.Inf, 1)
		} else {
			lim = rate.NewLimiter(rate.Every(window/time.Duration(count)), count)
		}
		r.nameLimiters[key] = lim
	}
	return lim
}

// tryDispatch attempts to claim moduleID's concurrency slot and throttle
// token and, on success, launches its goroutine. It returns false (without
// blocking) if the slot is currently full, leaving the module Ready for a
// later pass. Caller holds r.mu.
func (s *Scheduler) tryDispatch(ctx context.Context, r *run, moduleID uuid.UUID, completions chan<- moduleOutcome) bool {
	node := s.cfg.Spec.Modules[moduleID]
	opts := r.resolvedOpts[moduleID]
	key := identityFor(node)
	slot := r.slotFor(key, opts.ConcurrencyLimit)

	select {
	case slot <- struct{}{}:
	default:
		return false
	}

	limiter := r.limiterFor(key, opts.ThrottleCount, opts.ThrottleWindow)
	if !limiter.Allow() {
		<-slot
		return false
	}

	r.moduleStatus[moduleID] = suspension.StatusRunning
	r.inFlight++

	impl := s.cfg.Impls[moduleID]
	inputs := make(map[string]cvalue.CValue, len(node.Consumes))
	for _, e := range s.cfg.Spec.InEdgesFor(moduleID) {
		dn := s.cfg.Spec.Data[e.Data]
		inputs[dn.NicknameFor(moduleID)] = r.values[e.Data].Value
	}

	s.cfg.Logger.Debug(ctx, "dispatching module", "module", node.Name, "version", node.Version)

	go func() {
		defer func() { <-slot }()
		start := time.Now()
		outputs, err := s.invokeCached(ctx, node, opts, impl, inputs)
		duration := time.Since(start)
		s.recordOutcome(ctx, node, duration, err)
		completions <- moduleOutcome{moduleID: moduleID, outputs: outputs, err: err, duration: duration}
	}()

	return true
}

// recordOutcome emits the Logger/Metrics side effects for one completed
// invocation. Called from the dispatch goroutine so timing reflects the
// actual call span, not the time applyOutcome gets scheduled.
func (s *Scheduler) recordOutcome(ctx context.Context, node dagspec.ModuleNodeSpec, duration time.Duration, err error) {
	status := "completed"
	if err != nil {
		status = "failed"
		s.cfg.Logger.Error(ctx, "module invocation failed", "module", node.Name, "version", node.Version, "error", err.Error())
	} else {
		s.cfg.Logger.Debug(ctx, "module invocation completed", "module", node.Name, "version", node.Version, "duration_ms", duration.Milliseconds())
	}
	if s.cfg.Metrics != nil {
		labels := map[string]string{"module": node.Name, "status": status}
		s.cfg.Metrics.IncCounter(ctx, "module_invocations_total", labels)
		s.cfg.Metrics.ObserveHistogram(ctx, "module_duration_seconds", duration.Seconds(), map[string]string{"module": node.Name})
	}
}

// invokeCached wraps invokeWithRetry with the module's optional
// CacheBackend/CacheTTL: a cache hit short-circuits the call entirely,
// and a successful miss is stored before returning.
func (s *Scheduler) invokeCached(ctx context.Context, node dagspec.ModuleNodeSpec, opts dagspec.ResolvedOptions, impl image.ModuleImpl, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
	backend := s.cacheBackendFor(opts)
	if backend == nil {
		return s.invokeWithRetry(ctx, node, opts, impl, inputs)
	}

	key, err := cacheKey(node, inputs)
	if err == nil {
		if raw, ok := backend.Get(ctx, key); ok {
			if outputs, decodeErr := decodeOutputs(raw); decodeErr == nil {
				s.cfg.Logger.Debug(ctx, "module cache hit", "module", node.Name, "version", node.Version)
				return outputs, nil
			}
		}
	}

	outputs, invokeErr := s.invokeWithRetry(ctx, node, opts, impl, inputs)
	if invokeErr == nil && err == nil {
		if raw, encodeErr := encodeOutputs(outputs); encodeErr == nil {
			backend.Set(ctx, key, raw, opts.CacheTTL)
		}
	}
	return outputs, invokeErr
}

func (s *Scheduler) cacheBackendFor(opts dagspec.ResolvedOptions) ports.CacheBackend {
	if opts.CacheTTL <= 0 || opts.CacheBackend == "" || s.cfg.Caches == nil {
		return nil
	}
	return s.cfg.Caches[opts.CacheBackend]
}

// invokeWithRetry calls impl.Invoke, retrying up to opts.RetryCount times on
// error with the delay curve from backOffFor, honoring both the node's
// declared ModuleTimeout and any per-call Timeout override; the engine-wide
// default Timeout applies only to a node with no ModuleTimeout.
func (s *Scheduler) invokeWithRetry(ctx context.Context, node dagspec.ModuleNodeSpec, opts dagspec.ResolvedOptions, impl image.ModuleImpl, inputs map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
	if impl == nil {
		return nil, xerrors.New(xerrors.CodeModuleNotFound, "no implementation bound for module node").
			WithContext(map[string]interface{}{"module": node.Name, "version": node.Version})
	}

	timeout := opts.Timeout
	if override := s.cfg.ModuleOptions[node.ID].Timeout; override == nil || *override <= 0 {
		if node.ModuleTimeout > 0 {
			timeout = node.ModuleTimeout
		}
	}

	bo := backOffFor(opts.Backoff, opts.Delay)
	bo.Reset()

	var lastErr error
	for attempt := 0; attempt <= opts.RetryCount; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if timeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		out, err := impl.Invoke(callCtx, inputs)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return out, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, lastErr
		}
		if attempt < opts.RetryCount {
			delay := bo.NextBackOff()
			if delay == backoff.Stop {
				break
			}
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return nil, lastErr
			}
		}
	}
	return nil, xerrors.Wrap(xerrors.CodeModuleExecution, "module failed after exhausting retries", lastErr).
		WithContext(map[string]interface{}{"module": node.Name, "version": node.Version, "attempts": opts.RetryCount + 1})
}

// applyOutcome folds one completed invocation back into run state: writing
// produced values to their out-edge data nodes on success, or marking the
// module Failed and cascading Skipped to its consumers on error.
func (s *Scheduler) applyOutcome(r *run, out moduleOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.inFlight--
	node := s.cfg.Spec.Modules[out.moduleID]
	r.durations[out.moduleID] = out.duration

	if out.err != nil {
		r.moduleStatus[out.moduleID] = suspension.StatusFailed
		r.errs = append(r.errs, out.err)
		s.skipDownstream(r, out.moduleID, r.resolvedOpts[out.moduleID].OnError)
		return
	}

	r.moduleStatus[out.moduleID] = suspension.StatusCompleted
	for _, e := range s.cfg.Spec.OutEdgesFor(out.moduleID) {
		dn := s.cfg.Spec.Data[e.Data]
		name := dn.NicknameFor(out.moduleID)
		v, ok := out.outputs[name]
		if !ok {
			r.values[e.Data] = Cell{State: CellFailed, Err: xerrors.New(xerrors.CodeDataNotFound, "module did not produce declared output").
				WithContext(map[string]interface{}{"module": node.Name, "output": name})}
			continue
		}
		if !v.Type.Equal(dn.Type) {
			r.values[e.Data] = Cell{State: CellFailed, Err: xerrors.New(xerrors.CodeNodeTypeMismatch, "produced output does not match declared data node type").
				WithContext(map[string]interface{}{"module": node.Name, "output": name})}
			continue
		}
		r.values[e.Data] = Cell{State: CellComputed, Value: v}
	}
}

// skipDownstream marks every module transitively depending on failedModule's
// outputs as Skipped, except where strategy is OnErrorIgnore and the
// dependency flows through an Option<T> data node — there the node is bound
// to None instead, and its consumers are left for refreshReadiness to pick
// up normally (spec.md §4.8's ignore-strategy carve-out).
func (s *Scheduler) skipDownstream(r *run, failedModule uuid.UUID, strategy dagspec.OnErrorStrategy) {
	var walk func(uuid.UUID)
	walk = func(moduleID uuid.UUID) {
		for _, e := range s.cfg.Spec.OutEdgesFor(moduleID) {
			dataNode := s.cfg.Spec.Data[e.Data]
			ignorable := strategy == dagspec.OnErrorIgnore && dataNode.Type.Kind == ctype.KindOption
			if ignorable {
				r.values[e.Data] = Cell{State: CellComputed, Value: cvalue.NewNone(*dataNode.Type.Elem)}
				continue
			}
			if r.values[e.Data].State == CellEmpty {
				r.values[e.Data] = Cell{State: CellFailed, Err: xerrors.New(xerrors.CodeModuleExecution, "upstream module failed")}
			}
			for _, consumer := range s.cfg.Spec.ConsumerModules(e.Data) {
				switch r.moduleStatus[consumer] {
				case suspension.StatusCompleted, suspension.StatusFailed, suspension.StatusSkipped:
					continue
				}
				r.moduleStatus[consumer] = suspension.StatusSkipped
				walk(consumer)
			}
		}
	}
	walk(failedModule)
}

// finalize derives the terminal Result once the dispatch loop has no more
// work to do: Completed if every declared output resolved, Cancelled if the
// context was cancelled or deadline-exceeded, Failed if any module failed
// without the run merely waiting on missing inputs, and Suspended if the
// run is simply blocked on inputs that were never provided.
func (s *Scheduler) finalize(r *run, started time.Time, ctxErr error) *Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	res := &Result{
		Outputs:         make(map[string]cvalue.CValue),
		Errors:          append([]error(nil), r.errs...),
		ModuleStatuses:  r.moduleStatus,
		Values:          r.values,
		ModuleDurations: r.durations,
		StartedAt:       started,
		FinishedAt:      time.Now(),
	}

	for _, name := range s.cfg.Spec.OutputNames {
		dataID := s.cfg.Spec.OutputBindings[name]
		if cell := r.values[dataID]; cell.State == CellComputed {
			res.Outputs[name] = cell.Value
		}
	}

	if ctxErr != nil {
		res.Outcome = OutcomeCancelled
		return res
	}

	if len(res.Outputs) == len(s.cfg.Spec.OutputNames) {
		res.Outcome = OutcomeCompleted
		return res
	}

	var missing []string
	blockedOnInput := false
	for id, node := range s.cfg.Spec.Data {
		if r.values[id].State != CellEmpty {
			continue
		}
		if node.InlineTransform != nil {
			continue
		}
		if _, hasProducer := s.cfg.Spec.ProducerModule(id); hasProducer {
			continue
		}
		missing = append(missing, node.Name)
		blockedOnInput = true
	}

	if len(r.errs) > 0 && !blockedOnInput {
		res.Outcome = OutcomeFailed
		return res
	}

	sort.Strings(missing)
	res.MissingInputs = missing
	res.Outcome = OutcomeSuspended
	return res
}
