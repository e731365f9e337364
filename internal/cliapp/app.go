// Package cliapp wires the engine's core packages (C3-C11) together behind
// the three operations cmd/constellation exposes: run, resume, and the
// PipelineImageStore's store list/alias. It is the CLI's only dependency on
// internal/engine and friends, kept separate from cmd/constellation so the
// wiring can be exercised by tests without cobra in the loop.
package cliapp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alexisbeaulieu97/constellation/internal/canon"
	"github.com/alexisbeaulieu97/constellation/internal/domain/cvalue"
	"github.com/alexisbeaulieu97/constellation/internal/domain/dagspec"
	"github.com/alexisbeaulieu97/constellation/internal/domain/image"
	"github.com/alexisbeaulieu97/constellation/internal/domain/suspension"
	"github.com/alexisbeaulieu97/constellation/internal/domain/xerrors"
	"github.com/alexisbeaulieu97/constellation/internal/engine"
	"github.com/alexisbeaulieu97/constellation/internal/jsonboundary"
	"github.com/alexisbeaulieu97/constellation/internal/ports"
	"github.com/alexisbeaulieu97/constellation/internal/registry"
	"github.com/alexisbeaulieu97/constellation/internal/report"
	"github.com/alexisbeaulieu97/constellation/internal/store"
	"github.com/alexisbeaulieu97/constellation/internal/suspendstore"
	"github.com/alexisbeaulieu97/constellation/internal/synthetic"
)

// App bundles the long-lived state a CLI invocation needs: the module
// registry named implementations are looked up in, the image/suspension
// stores, and the capability hooks every run is wired with. A fresh App is
// built once per process; internal/store and internal/suspendstore hold
// everything in memory, so a CLI binary (a new process per invocation)
// calls LoadSnapshots/SaveSnapshot and LoadImages/SaveImages to round-trip
// suspensions and stored images through SnapshotDir/StorePath between a
// `run` and a later `resume` or `store list`/`alias`.
type App struct {
	Registry    *registry.Registry
	Images      *store.PipelineImageStore
	Suspended   *suspendstore.Store
	Logger      ports.Logger
	SnapshotDir string
	StorePath   string
}

// New builds an App with an empty module registry (the CLI shim ships no
// built-in named modules — a real deployment registers its own before
// wiring an App) and fresh in-memory stores, backed by one JSON file per
// suspended execution under snapshotDir and a single JSON file at
// storePath for the PipelineImageStore's images/aliases.
func New(logger ports.Logger, snapshotDir, storePath string) (*App, error) {
	images, err := store.New()
	if err != nil {
		return nil, err
	}
	app := &App{
		Registry:    registry.New(),
		Images:      images,
		Suspended:   suspendstore.New(),
		Logger:      logger,
		SnapshotDir: snapshotDir,
		StorePath:   storePath,
	}
	if err := app.LoadSnapshots(); err != nil {
		return nil, err
	}
	if err := app.LoadImages(); err != nil {
		return nil, err
	}
	return app, nil
}

// imageStoreFile is the on-disk shape of a.Images: the LRU cache and alias
// map flattened to the slice/map encoding/json can round-trip.
type imageStoreFile struct {
	Images  []image.PipelineImage `json:"images"`
	Aliases map[string]string     `json:"aliases"`
}

// LoadImages populates a.Images from a.StorePath. A missing file is not an
// error (no images stored yet).
func (a *App) LoadImages() error {
	if a.StorePath == "" {
		return nil
	}
	data, err := os.ReadFile(a.StorePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read image store %s: %w", a.StorePath, err)
	}
	var file imageStoreFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("decode image store %s: %w", a.StorePath, err)
	}
	for _, img := range file.Images {
		if _, err := a.Images.Store(img); err != nil {
			return err
		}
	}
	for name, hash := range file.Aliases {
		if err := a.Images.Alias(name, hash); err != nil {
			return err
		}
	}
	return nil
}

// SaveImages persists a.Images to a.StorePath as one JSON document.
func (a *App) SaveImages() error {
	if a.StorePath == "" {
		return nil
	}
	file := imageStoreFile{Aliases: a.Images.ListAliases()}
	for _, hash := range a.Images.ListImages() {
		img, ok := a.Images.Get(hash)
		if !ok {
			continue
		}
		file.Images = append(file.Images, img)
	}
	dir := filepath.Dir(a.StorePath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create image store dir %s: %w", dir, err)
		}
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(a.StorePath, data, 0o644)
}

// LoadSnapshots populates a.Suspended from every "*.json" file in
// a.SnapshotDir. A missing directory is not an error (no suspensions yet).
func (a *App) LoadSnapshots() error {
	if a.SnapshotDir == "" {
		return nil
	}
	entries, err := os.ReadDir(a.SnapshotDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot dir %s: %w", a.SnapshotDir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := a.SnapshotDir + "/" + entry.Name()
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read snapshot %s: %w", path, err)
		}
		snapshot, err := suspendstore.Decode(data)
		if err != nil {
			return fmt.Errorf("decode snapshot %s: %w", path, err)
		}
		if _, err := a.Suspended.Save(snapshot); err != nil {
			return err
		}
	}
	return nil
}

// SaveSnapshot persists handle's current snapshot to a.SnapshotDir, or
// removes its file if the execution is no longer suspended (handle absent
// from a.Suspended).
func (a *App) SaveSnapshot(handle uuid.UUID) error {
	if a.SnapshotDir == "" {
		return nil
	}
	path := a.SnapshotDir + "/" + handle.String() + ".json"
	snapshot, ok := a.Suspended.Load(handle)
	if !ok {
		return os.Remove(path)
	}
	if err := os.MkdirAll(a.SnapshotDir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir %s: %w", a.SnapshotDir, err)
	}
	data, err := suspendstore.Encode(snapshot)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadDagSpec reads and decodes a DagSpec from its JSON file.
func LoadDagSpec(path string) (dagspec.DagSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return dagspec.DagSpec{}, fmt.Errorf("read dagspec %s: %w", path, err)
	}
	var spec dagspec.DagSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return dagspec.DagSpec{}, fmt.Errorf("parse dagspec %s: %w", path, err)
	}
	if err := spec.Validate(); err != nil {
		return dagspec.DagSpec{}, err
	}
	return spec, nil
}

// ParseInputFlag parses one "name=jsonValue" --input flag against spec's
// declared data node types: the value is decoded with jsonboundary.Decode
// against the CType of the data node the name matches.
func ParseInputFlag(spec dagspec.DagSpec, flag string) (string, cvalue.CValue, error) {
	name, raw, ok := strings.Cut(flag, "=")
	if !ok {
		return "", cvalue.CValue{}, fmt.Errorf("--input must be name=value, got %q", flag)
	}

	var nodeType *dagspec.DataNodeSpec
	for _, node := range spec.Data {
		if node.Name == name {
			n := node
			nodeType = &n
			break
		}
	}
	if nodeType == nil {
		return "", cvalue.CValue{}, xerrors.New(xerrors.CodeInputValidation, "no data node matches provided input name").
			WithContext(map[string]interface{}{"input": name})
	}

	v, err := jsonboundary.Decode([]byte(raw), nodeType.Type, jsonboundary.DefaultLimits)
	if err != nil {
		return "", cvalue.CValue{}, err
	}
	return name, v, nil
}

// impls binds spec's module nodes: synthetic nodes via internal/synthetic,
// everything else via a.Registry.
func (a *App) impls(spec dagspec.DagSpec) (map[uuid.UUID]image.ModuleImpl, error) {
	bound, err := a.Registry.InitModules(spec)
	if err != nil {
		return nil, err
	}
	syn, err := synthetic.Reconstruct(spec)
	if err != nil {
		return nil, err
	}
	for id, impl := range syn {
		bound[id] = impl
	}
	return bound, nil
}

// RunResult is what Run/Resume hand back to the CLI layer for rendering.
type RunResult struct {
	Signature      report.DataSignature
	SuspendHandle  uuid.UUID
	StructuralHash string
}

// Run compiles (hashes), registers, and executes spec once against
// providedInputs, building a report.DataSignature with every optional
// section enabled (the CLI always prints the fullest report; a thinner
// client can always drop fields it doesn't want). A Suspended or Failed
// outcome is additionally persisted to a.Suspended under a fresh execution
// id, returned as SuspendHandle for a later `resume`.
func (a *App) Run(ctx context.Context, spec dagspec.DagSpec, providedInputs map[string]cvalue.CValue, opts map[uuid.UUID]dagspec.ModuleCallOptions, metrics ports.MetricsCollector, caches map[string]ports.CacheBackend) (RunResult, error) {
	structuralHash, err := canon.StructuralHash(spec, opts)
	if err != nil {
		return RunResult{}, err
	}
	if _, err := a.Images.Store(image.PipelineImage{
		StructuralHash: structuralHash,
		Spec:           spec,
		ModuleOptions:  opts,
		CompiledAt:     time.Now(),
	}); err != nil {
		return RunResult{}, err
	}
	if err := a.SaveImages(); err != nil {
		return RunResult{}, err
	}

	impls, err := a.impls(spec)
	if err != nil {
		return RunResult{}, err
	}

	sched := engine.New(engine.Config{
		Spec:          spec,
		Impls:         impls,
		ModuleOptions: opts,
		Defaults:      dagspec.DefaultResolvedOptions,
		Logger:        a.Logger,
		Metrics:       metrics,
		Caches:        caches,
	})

	result, err := sched.Run(ctx, providedInputs)
	if err != nil {
		return RunResult{}, err
	}

	res := RunResult{StructuralHash: structuralHash}
	var snapshotPtr *suspension.SuspendedExecution
	if result.Outcome == engine.OutcomeSuspended || result.Outcome == engine.OutcomeFailed {
		executionID := uuid.New()
		snapshot := suspendstore.BuildSnapshot(executionID, structuralHash, spec, opts, providedInputs, result)
		if _, err := a.Suspended.Save(snapshot); err != nil {
			return RunResult{}, err
		}
		res.SuspendHandle = executionID
		snapshotPtr = &snapshot
		if err := a.SaveSnapshot(executionID); err != nil {
			return RunResult{}, err
		}
	}

	res.Signature = report.Build(spec, result, snapshotPtr, report.ExecutionOptions{
		IncludeTimings:           true,
		IncludeProvenance:        true,
		IncludeBlockedGraph:      true,
		IncludeResolutionSources: true,
	})
	return res, nil
}

// Resume continues a previously suspended execution with additionalInputs
// merged in by name.
func (a *App) Resume(ctx context.Context, handle uuid.UUID, additionalInputs map[string]cvalue.CValue) (RunResult, error) {
	snapshot, ok := a.Suspended.Load(handle)
	if !ok {
		return RunResult{}, xerrors.New(xerrors.CodePipelineNotFound, "no suspended execution for handle").
			WithContext(map[string]interface{}{"executionId": handle.String()})
	}

	impls, err := a.impls(snapshot.Spec)
	if err != nil {
		return RunResult{}, err
	}

	resumer := suspendstore.NewResumer(a.Suspended)
	result, err := resumer.Resume(ctx, handle, additionalInputs, nil, impls, dagspec.DefaultResolvedOptions)
	if err != nil {
		return RunResult{}, err
	}

	res := RunResult{StructuralHash: snapshot.StructuralHash}
	var snapshotPtr *suspension.SuspendedExecution
	if result.Outcome == engine.OutcomeSuspended || result.Outcome == engine.OutcomeFailed {
		res.SuspendHandle = handle
		updated, _ := a.Suspended.Load(handle)
		snapshotPtr = &updated
	}
	if err := a.SaveSnapshot(handle); err != nil {
		return RunResult{}, err
	}

	res.Signature = report.Build(snapshot.Spec, result, snapshotPtr, report.ExecutionOptions{
		IncludeTimings:           true,
		IncludeProvenance:        true,
		IncludeBlockedGraph:      true,
		IncludeResolutionSources: true,
	})
	return res, nil
}
