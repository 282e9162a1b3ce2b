// facet evaluates mesh scripts and inspects Wavefront OBJ files.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chazu/facet/internal/config"
	"github.com/chazu/facet/internal/logger"
	"github.com/chazu/facet/pkg/halfedge"
	"github.com/chazu/facet/pkg/ops"
	"github.com/chazu/facet/pkg/wavefront"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var err error
	switch command {
	case "run":
		err = cmdRun(args)
	case "buffers":
		err = cmdBuffers(args)
	case "info":
		err = cmdInfo(args)
	case "validate", "check":
		err = cmdValidate(args)
	case "ops":
		cmdOps()
	case "config":
		err = cmdConfig(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	logger.Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`facet - halfedge mesh scripting

Usage:
  facet <command> [options]

Commands:
  run [-o out.obj] <script>   Evaluate a script and write the mesh as OBJ
  buffers <script>            Evaluate a script and print render buffers as JSON
  info <file.obj>             Show counts, bounds and validation findings
  validate <file.obj>         Exit non-zero if the mesh breaks an invariant
  ops                         List script operations
  config init [-force] [path] Write the effective config as YAML

Options (run, buffers, config init):
  -config, -debug, -log-file, -timeout, -mesh-cells, -out-dir

Examples:
  facet run -o tower.obj examples/tower.lisp
  facet buffers examples/bracket.lisp > bracket.json
  facet info tower.obj`)
}

// setup parses the shared flags, loads config and starts logging.
func setup(fs *flag.FlagSet, args []string) (*config.Config, error) {
	flags := config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(flags)
	if err != nil {
		return nil, err
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, nil
}

// evaluateFile runs the script at path and returns the evaluation result,
// reporting script errors as a single error.
func evaluateFile(app *App, path string) (EvalResult, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return EvalResult{}, err
	}
	logger.Info("evaluating", zap.String("script", path))
	result := app.Evaluate(string(source))
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			if e.Line > 0 {
				fmt.Fprintf(os.Stderr, "%s:%d: %s\n", path, e.Line, e.Message)
			} else {
				fmt.Fprintf(os.Stderr, "%s: %s\n", path, e.Message)
			}
		}
		return result, fmt.Errorf("%s: %d error(s)", path, len(result.Errors))
	}
	return result, nil
}

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	out := fs.String("o", "", "Output OBJ file (default stdout); relative paths are under -out-dir")
	cfg, err := setup(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: facet run [-o out.obj] <script>")
	}

	app := NewApp(cfg)
	result, err := evaluateFile(app, fs.Arg(0))
	if err != nil {
		return err
	}

	if *out == "" {
		return wavefront.Encode(os.Stdout, result.Mesh)
	}
	path := *out
	if !filepath.IsAbs(path) {
		path = filepath.Join(app.env.ExportDir, path)
	}
	if err := wavefront.Export(result.Mesh, path); err != nil {
		return err
	}
	logger.Info("wrote mesh", zap.String("path", path), zap.Stringer("mesh", result.Mesh))
	return nil
}

func cmdBuffers(args []string) error {
	fs := flag.NewFlagSet("buffers", flag.ExitOnError)
	cfg, err := setup(fs, args)
	if err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("usage: facet buffers <script>")
	}

	result, err := evaluateFile(NewApp(cfg), fs.Arg(0))
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func readMesh(path string) (*halfedge.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := wavefront.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func cmdInfo(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: facet info <file.obj>")
	}
	m, err := readMesh(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("File:      %s\n", args[0])
	fmt.Printf("Vertices:  %d\n", m.NumVertices())
	fmt.Printf("Edges:     %d\n", m.NumEdges())
	fmt.Printf("Faces:     %d\n", m.NumFaces())
	if lo, hi, ok := m.Bounds(); ok {
		fmt.Printf("Bounds:    (%g, %g, %g) .. (%g, %g, %g)\n", lo.X, lo.Y, lo.Z, hi.X, hi.Y, hi.Z)
	}

	findings := halfedge.Validate(m)
	if len(findings) == 0 {
		fmt.Println("Validation: ok")
		return nil
	}
	fmt.Printf("Validation: %d finding(s)\n", len(findings))
	for _, f := range findings {
		fmt.Printf("  %s\n", f.Error())
	}
	return nil
}

func cmdValidate(args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: facet validate <file.obj>")
	}
	m, err := readMesh(args[0])
	if err != nil {
		return err
	}
	if err := m.Check(); err != nil {
		return err
	}
	fmt.Printf("%s: ok (%d vertices, %d faces)\n", args[0], m.NumVertices(), m.NumFaces())
	return nil
}

func cmdConfig(args []string) error {
	if len(args) < 1 || args[0] != "init" {
		return fmt.Errorf("usage: facet config init [-force] [path]")
	}
	fs := flag.NewFlagSet("config init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite an existing config file")
	cfg, err := setup(fs, args[1:])
	if err != nil {
		return err
	}
	path, err := initConfig(cfg, fs.Arg(0), *force)
	if err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

// initConfig writes cfg to path, or to the user's config directory when
// path is empty. An existing file is kept unless force is set.
func initConfig(cfg *config.Config, path string, force bool) (string, error) {
	target := path
	if target == "" {
		target = config.DefaultPath()
	}
	if _, err := os.Stat(target); err == nil && !force {
		return "", fmt.Errorf("%s already exists (use -force to overwrite)", target)
	}
	if path == "" {
		err := cfg.Save()
		return target, err
	}
	return target, cfg.SaveTo(target)
}

func cmdOps() {
	for _, name := range ops.Names() {
		op, _ := ops.Lookup(name)
		fmt.Printf("%s\n    %s\n", op.Signature(), op.Doc)
	}
}
