// Package engine evaluates facet scripts. It wraps zygomys in a sandboxed
// environment where every operation-table entry is a builtin, and returns
// the mesh the script produces.
package engine

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/facet/internal/logger"
	"github.com/chazu/facet/pkg/halfedge"
	"github.com/chazu/facet/pkg/ops"
	zygo "github.com/glycerine/zygomys/zygo"
	"go.uber.org/zap"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Config holds evaluation settings. Zero fields take defaults.
type Config struct {
	Timeout time.Duration // EvalTimeout when zero
	Env     *ops.Env      // ops.DefaultEnv() when nil
}

// Engine wraps the zygomys interpreter for facet evaluation.
// It is safe for concurrent use; each call to Evaluate creates a fresh
// sandboxed environment for determinism.
type Engine struct {
	mu         sync.Mutex
	generation uint64
	timeout    time.Duration
	env        *ops.Env
}

// NewEngine creates an Engine with default settings.
func NewEngine() *Engine {
	return New(Config{})
}

// New creates an Engine from cfg.
func New(cfg Config) *Engine {
	if cfg.Timeout <= 0 {
		cfg.Timeout = EvalTimeout
	}
	if cfg.Env == nil {
		cfg.Env = ops.DefaultEnv()
	}
	return &Engine{timeout: cfg.Timeout, env: cfg.Env}
}

// Evaluate runs a script and returns the mesh it evaluates to.
// Each call creates a fresh zygomys sandbox for deterministic evaluation.
//
// The script's value is its last expression. A mesh is returned as is, a
// solid is tessellated, and any other value yields an empty mesh.
//
// Return semantics:
//   - On success: returns mesh + nil errors + nil error
//   - On parse/eval failure: returns nil mesh + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*halfedge.Mesh, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	log := logger.Named("engine")
	log.Debug("evaluate", zap.Uint64("generation", gen), zap.Int("bytes", len(source)))
	start := time.Now()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		m, evalErrs, err := e.evaluate(source)
		ch <- evalResult{mesh: m, errors: evalErrs, err: err}
	}()

	m, evalErrs, err := waitWithTimeout(ch, gen, &e.mu, &e.generation, e.timeout)
	switch {
	case err != nil:
		log.Warn("evaluation failed", zap.Uint64("generation", gen), zap.Error(err))
	case len(evalErrs) > 0:
		log.Debug("script errors", zap.Uint64("generation", gen), zap.Int("count", len(evalErrs)),
			zap.String("first", evalErrs[0].Error()))
	default:
		log.Debug("evaluated", zap.Uint64("generation", gen), zap.Duration("took", time.Since(start)),
			zap.Stringer("mesh", m))
	}
	return m, evalErrs, err
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*halfedge.Mesh, []EvalError, error) {
	// Empty source is a valid program that produces an empty mesh.
	if strings.TrimSpace(source) == "" {
		return halfedge.New(), nil, nil
	}

	// Sandbox mode keeps scripts away from the filesystem and syscalls;
	// export_wavefront is the only way out and writes under Env.ExportDir.
	z := zygo.NewZlispSandbox()
	defer z.Stop()

	registerBuiltins(z, e.env)

	if err := z.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}

	v, err := z.Run()
	if err != nil {
		return nil, parseZygomysError(err), nil
	}
	return e.resultMesh(v)
}

// resultMesh turns the script's final value into a mesh.
func (e *Engine) resultMesh(v zygo.Sexp) (*halfedge.Mesh, []EvalError, error) {
	switch x := v.(type) {
	case *sexpMesh:
		return x.mesh, nil, nil
	case *sexpSolid:
		out, err := ops.Call("sdf_mesh", ops.NewArgs(e.env).Set("solid", x.solid))
		if err != nil {
			return nil, []EvalError{{Message: err.Error()}}, nil
		}
		return out.(*halfedge.Mesh), nil, nil
	}
	return halfedge.New(), nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into one or more EvalError values.
// It attempts to extract line number information from the error message;
// the line marker is cut out and the rest of the text kept.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if loc := re.FindStringSubmatchIndex(msg); loc != nil {
			line, _ := strconv.Atoi(msg[loc[2]:loc[3]])
			rest := strings.TrimSpace(msg[:loc[0]] + " " + msg[loc[4]:])
			return []EvalError{{
				Line:    line,
				Message: rest,
			}}
		}
	}

	// Fallback: no line info available.
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
