package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/constellation/internal/cache"
	"github.com/alexisbeaulieu97/constellation/internal/domain/ctype"
	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
	"github.com/alexisbeaulieu97/constellation/internal/domain/image"
	"github.com/alexisbeaulieu97/constellation/internal/ports"
)

func TestInvokeCachedSkipsSecondCallOnHit(t *testing.T) {
	doubleID, xID, yID := uuid.New(), uuid.New(), uuid.New()
	spec := dagspec.DagSpec{
		Modules: map[uuid.UUID]dagspec.ModuleNodeSpec{
			doubleID: {ID: doubleID, Name: "double", Version: "v1",
				Consumes: map[string]ctype.CType{"x": ctype.Int},
				Produces: map[string]ctype.CType{"y": ctype.Int}},
		},
		Data: map[uuid.UUID]dagspec.DataNodeSpec{
			xID: {ID: xID, Name: "x", Type: ctype.Int},
			yID: {ID: yID, Name: "y", Type: ctype.Int},
		},
		InEdges:        []dagspec.InEdge{{Data: xID, Module: doubleID}},
		OutEdges:       []dagspec.OutEdge{{Module: doubleID, Data: yID}},
		OutputNames:    []string{"y"},
		OutputBindings: map[string]uuid.UUID{"y": yID},
	}

	var calls int32
	double := &funcModule{name: "double", version: "v1", fn: func(_ context.Context, in map[string]cvalue.CValue) (map[string]cvalue.CValue, error) {
		atomic.AddInt32(&calls, 1)
		return map[string]cvalue.CValue{"y": cvalue.NewInt(in["x"].IntV * 2)}, nil
	}}

	backend, err := cache.New()
	if err != nil {
		t.Fatalf("cache.New: %v", err)
	}

	ttl := time.Minute
	cacheBackendName := "default"
	opts := map[uuid.UUID]dagspec.ModuleCallOptions{
		doubleID: {CacheTTL: &ttl, CacheBackend: &cacheBackendName},
	}

	sched := New(Config{
		Spec:          spec,
		Impls:         map[uuid.UUID]image.ModuleImpl{doubleID: double},
		ModuleOptions: opts,
		Defaults:      dagspec.DefaultResolvedOptions,
		Caches:        map[string]ports.CacheBackend{"default": backend},
	})

	res, err := sched.Run(context.Background(), map[string]cvalue.CValue{"x": cvalue.NewInt(4)})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.Outcome != OutcomeCompleted {
		t.Fatalf("outcome = %v, want Completed", res.Outcome)
	}

	sched2 := New(Config{
		Spec:          spec,
		Impls:         map[uuid.UUID]image.ModuleImpl{doubleID: double},
		ModuleOptions: opts,
		Defaults:      dagspec.DefaultResolvedOptions,
		Caches:        map[string]ports.CacheBackend{"default": backend},
	})
	res2, err := sched2.Run(context.Background(), map[string]cvalue.CValue{"x": cvalue.NewInt(4)})
	if err != nil {
		t.Fatalf("second Run returned error: %v", err)
	}
	if res2.Outputs["y"].IntV != 8 {
		t.Fatalf("y = %v, want 8 (from cache)", res2.Outputs["y"].IntV)
	}

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("double invoked %d times, want 1 (second run should hit the cache)", got)
	}
}
