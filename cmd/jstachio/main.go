// Command jstachio is the ahead-of-time compiler driver: it reads a YAML
// manifest naming registered model types and their template options
// (spec.md section 6) and writes one generated renderer source file per
// entry. Grounded on the teacher's cmd/mustache/main.go (cobra root
// command, gopkg.in/yaml.v2 manifest decoding, package + os.Exit error
// reporting), with --layout/--override replaced by --out/--config to match
// a batch compiler's inputs instead of a single-render invocation's.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"

	"github.com/jstachio-go/jstachio/driver"
	"github.com/jstachio-go/jstachio/examples/people"
	"github.com/jstachio-go/jstachio/loader"
)

func init() {
	people.Register(Register)
}

var rootCmd = &cobra.Command{
	Use: "jstachio --config manifest.yml --out gen/",
	Example: `  $ jstachio --config templates.yml --out ./internal/render
  $ jstachio --config templates.yml --out ./internal/render --roots ./templates`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := run(cmd); err != nil {
			fmt.Printf("Error: %s\n", err.Error())
			os.Exit(1)
		}
	},
}

var (
	configFile  string
	outDir      string
	roots       []string
	concurrency int
)

func main() {
	rootCmd.Flags().StringVar(&configFile, "config", "", "path to the YAML template manifest")
	rootCmd.Flags().StringVar(&outDir, "out", ".", "directory to write generated renderer files into")
	rootCmd.Flags().StringSliceVar(&roots, "roots", nil, "template/partial search roots")
	rootCmd.Flags().IntVar(&concurrency, "concurrency", 4, "number of models compiled concurrently")
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type manifestEntry struct {
	Model             string            `yaml:"model"`
	Package           string            `yaml:"package"`
	ModelImportPath   string            `yaml:"modelImportPath"`
	ModelPkgName      string            `yaml:"modelPkgName"`
	Path              string            `yaml:"path"`
	Inline            string            `yaml:"inline"`
	Renderer          string            `yaml:"renderer"`
	ContentType       string            `yaml:"contentType"`
	Formatter         string            `yaml:"formatter"`
	Charset           string            `yaml:"charset"`
	Partials          map[string]string `yaml:"partials"`
	PartialDepthLimit int               `yaml:"partialDepthLimit"`
	PathMapping       []pathMappingRule `yaml:"pathMapping"`
	Interfaces        []interfaceRef    `yaml:"interfaces"`
}

type pathMappingRule struct {
	Prefix      string `yaml:"prefix"`
	Replacement string `yaml:"replacement"`
}

// interfaceRef names one extra interface a manifest entry wants its
// generated Renderer to assert it implements (spec.md section 6's
// "interfaces" option).
type interfaceRef struct {
	ImportPath   string `yaml:"importPath"`
	PackageAlias string `yaml:"packageAlias"`
	TypeName     string `yaml:"typeName"`
}

type manifest struct {
	Templates []manifestEntry `yaml:"templates"`
}

func run(cmd *cobra.Command) error {
	if configFile == "" {
		return cmd.Usage()
	}
	data, err := os.ReadFile(configFile)
	if err != nil {
		return err
	}
	var man manifest
	if err := yaml.Unmarshal(data, &man); err != nil {
		return err
	}

	refs := make([]driver.ModelRef, 0, len(man.Templates))
	for _, e := range man.Templates {
		ts, err := buildSpec(e)
		if err != nil {
			return err
		}
		refs = append(refs, driver.ModelRef{
			Spec:            ts,
			PackageName:     e.Package,
			ModelImportPath: e.ModelImportPath,
			ModelPkgName:    e.ModelPkgName,
		})
	}

	provider := &loader.FileProvider{Roots: roots}
	d := driver.New()
	result := d.Compile(context.Background(), refs, driver.Options{
		Provider:    provider,
		Concurrency: concurrency,
	})

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	for _, mr := range result.Models {
		if mr.Diagnostic != nil {
			fmt.Printf("Error: %s: %s\n", mr.Ref.Spec.ModelType(), mr.Diagnostic)
			continue
		}
		name := filepath.Join(outDir, mr.Result.RendererName+"_mustache.go")
		if err := os.WriteFile(name, mr.Result.Source, 0o644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", name)
	}

	if result.Fatal {
		os.Exit(1)
	}
	return nil
}
