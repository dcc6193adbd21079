package driver

import (
	"context"
	"testing"

	"github.com/jstachio-go/jstachio/model"
)

type greeting struct {
	Name string
}

type broken struct {
	Bogus string
}

func TestCompileSucceedsForValidModel(t *testing.T) {
	refs := []ModelRef{{
		Spec:        model.TemplateSpec{Model: greeting{}, Inline: "Hi {{Name}}"},
		PackageName: "gen",
	}}
	res := New().Compile(context.Background(), refs, Options{})
	if res.Fatal {
		t.Fatalf("expected success, got diagnostics: %+v", res.Models)
	}
	if len(res.Models) != 1 || res.Models[0].Result == nil {
		t.Fatalf("got %+v", res.Models)
	}
	if res.Models[0].Result.RendererName != "greetingRenderer" {
		t.Fatalf("got renderer name %q", res.Models[0].Result.RendererName)
	}
}

func TestCompileAccumulatesDiagnosticWithoutAbortingBatch(t *testing.T) {
	refs := []ModelRef{
		{Spec: model.TemplateSpec{Model: greeting{}, Inline: "Hi {{Name}}"}, PackageName: "gen"},
		{Spec: model.TemplateSpec{Model: broken{}, Inline: "{{DoesNotExist}}"}, PackageName: "gen"},
	}
	res := New().Compile(context.Background(), refs, Options{Concurrency: 2})
	if !res.Fatal {
		t.Fatal("expected Fatal, one model has an unresolvable name")
	}
	var okCount, errCount int
	for _, m := range res.Models {
		if m.Diagnostic != nil {
			errCount++
		} else {
			okCount++
		}
	}
	if okCount != 1 || errCount != 1 {
		t.Fatalf("got okCount=%d errCount=%d", okCount, errCount)
	}
}

func TestCompileNoModelValueIsDiagnostic(t *testing.T) {
	refs := []ModelRef{{Spec: model.TemplateSpec{Inline: "hi"}, PackageName: "gen"}}
	res := New().Compile(context.Background(), refs, Options{})
	if !res.Fatal || res.Models[0].Diagnostic == nil {
		t.Fatalf("expected a diagnostic for a spec with no Model, got %+v", res.Models)
	}
}

func TestCompileHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	refs := []ModelRef{{Spec: model.TemplateSpec{Model: greeting{}, Inline: "Hi {{Name}}"}, PackageName: "gen"}}
	res := New().Compile(ctx, refs, Options{})
	if !res.Fatal {
		t.Fatal("expected a cancelled context to surface as a fatal diagnostic")
	}
}
