// Package driver orchestrates a full ahead-of-time compilation: load one
// model's template, build its context-stack resolution, emit Go source, and
// accumulate diagnostics across a batch of models processed concurrently
// (spec.md sections 4.6/5). Grounded on the teacher's cmd/mustache/main.go
// run() function (load data/template, render, report error, set process
// exit code), widened from "one template per invocation" to "many models,
// bounded worker pool, accumulate, exit non-zero iff any fatal".
package driver

import (
	"context"
	"fmt"
	"sync"

	"github.com/jstachio-go/jstachio/codegen"
	"github.com/jstachio-go/jstachio/loader"
	"github.com/jstachio-go/jstachio/model"
	"github.com/jstachio-go/jstachio/resolve"
)

// InternalError wraps a panic recovered from one model's compilation
// worker (spec.md section 7: "a defect in this module itself, never the
// caller's input"), keeping one bad model from taking down a whole batch.
type InternalError struct {
	Model any
	Cause any
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("internal error compiling %T: %v", e.Model, e.Cause)
}

// ModelRef names the Go package a model's generated renderer belongs in and
// how to import the model type itself from that package.
type ModelRef struct {
	Spec model.TemplateSpec
	// PackageName is the package clause of the generated renderer file.
	PackageName string
	// ModelImportPath/ModelPkgName qualify the model type in generated code
	// when it lives outside PackageName; both "" means same-package.
	ModelImportPath string
	ModelPkgName    string
}

// ModelResult is one model's compilation outcome.
type ModelResult struct {
	Ref        ModelRef
	Result     *codegen.Result
	Diagnostic error // nil on success
}

// Result is a whole batch's outcome.
type Result struct {
	Models []ModelResult
	// Fatal is true iff at least one ModelResult carries a non-nil
	// Diagnostic (spec.md section 4.6: "exit non-zero iff any fatal
	// diagnostic was recorded").
	Fatal bool
}

// Options configures one Compile call.
type Options struct {
	// Provider resolves templates/partials not supplied inline, shared
	// across every model in the batch (spec.md section 5, "Shared state").
	Provider loader.Provider
	// Concurrency bounds the worker pool; <= 0 means a sane default.
	Concurrency int
}

// Driver holds the process-lifetime state shared across every Compile call:
// the type-descriptor catalog, filled as models are first described and
// never invalidated. catalogMu serializes Describe calls from concurrent
// workers, since Describe writes to the catalog.
type Driver struct {
	catalog   *model.Catalog
	catalogMu sync.Mutex
}

// New returns a Driver with a fresh, empty type-descriptor catalog.
func New() *Driver {
	return &Driver{catalog: model.NewCatalog()}
}

// Compile loads, resolves, and emits every ref in refs, running up to
// opts.Concurrency workers concurrently over a shared channel of indices
// (the same producer/bounded-consumer shape as token's lexer goroutine).
// It returns once every model has either produced a ModelResult or been
// abandoned after ctx cancellation.
func (d *Driver) Compile(ctx context.Context, refs []ModelRef, opts Options) Result {
	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	jobs := make(chan int)
	results := make([]ModelResult, len(refs))

	var wg sync.WaitGroup
	var mu sync.Mutex
	fatal := false

	record := func(idx int, res ModelResult) {
		mu.Lock()
		defer mu.Unlock()
		results[idx] = res
		if res.Diagnostic != nil {
			fatal = true
		}
	}

	worker := func() {
		defer wg.Done()
		for idx := range jobs {
			select {
			case <-ctx.Done():
				record(idx, ModelResult{Ref: refs[idx], Diagnostic: ctx.Err()})
				continue
			default:
			}
			res, diag := d.compileOne(refs[idx], opts.Provider)
			record(idx, ModelResult{Ref: refs[idx], Result: res, Diagnostic: diag})
		}
	}

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go worker()
	}
	for i := range refs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return Result{Models: results, Fatal: fatal}
}

// compileOne runs the full load -> resolve -> emit pipeline for one model,
// recovering any panic into an *InternalError so a single defective model
// can't abort the whole batch (spec.md section 5: "A panic recovered at a
// worker boundary is reported as InternalError, never propagated").
func (d *Driver) compileOne(ref ModelRef, provider loader.Provider) (result *codegen.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &InternalError{Model: ref.Spec.Model, Cause: r}
		}
	}()

	ts := ref.Spec
	modelType := ts.ModelType()
	if modelType == nil {
		return nil, fmt.Errorf("driver: template spec has no Model value set")
	}

	partialOverrides := make(map[string]string, len(ts.Partials))
	for name, val := range ts.Partials {
		partialOverrides[name] = val
	}
	pathMapping := make([]loader.Rule, 0, len(ts.PathMapping))
	for _, r := range ts.PathMapping {
		pathMapping = append(pathMapping, loader.Rule{Prefix: r.Prefix, Replacement: r.Replacement})
	}

	tmpl, err := loader.Load(loader.Options{
		Inline:           ts.Inline,
		Path:             ts.Path,
		DefaultName:      modelType.Name() + ".mustache",
		Provider:         provider,
		PartialOverrides: partialOverrides,
		PathMapping:      pathMapping,
		DepthLimit:       ts.PartialDepthLimit,
	})
	if err != nil {
		return nil, err
	}

	d.catalogMu.Lock()
	descriptor := d.catalog.Describe(modelType)
	d.catalogMu.Unlock()
	resolver, err := resolve.Resolve(d.catalog, tmpl, descriptor)
	if err != nil {
		return nil, err
	}

	result, err = codegen.Generate(ref.PackageName, ts, tmpl, resolver, ref.ModelImportPath, ref.ModelPkgName)
	if err != nil {
		return nil, err
	}
	return result, nil
}
