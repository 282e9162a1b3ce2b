package main

import (
	"github.com/chazu/facet/internal/config"
	"github.com/chazu/facet/internal/logger"
	"github.com/chazu/facet/pkg/engine"
	"github.com/chazu/facet/pkg/halfedge"
	"github.com/chazu/facet/pkg/kernel/sdfx"
	"github.com/chazu/facet/pkg/ops"
	"github.com/chazu/facet/pkg/tessellate"
	"go.uber.org/zap"
)

// colorPalette is a default palette used to assign distinct colors to parts.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// App ties the script engine to the render and export paths.
type App struct {
	engine *engine.Engine
	env    *ops.Env
}

// MeshData is the JSON mesh format printed by the buffers command.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON eval error.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of evaluating a script. Mesh is kept for
// export and left out of the JSON.
type EvalResult struct {
	Mesh   *halfedge.Mesh  `json:"-"`
	Meshes []MeshData      `json:"meshes"`
	Errors []EvalErrorData `json:"errors"`
}

// NewApp creates an App from cfg. A nil cfg means config.Default().
func NewApp(cfg *config.Config) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	env := &ops.Env{
		Kernel:        sdfx.New(cfg.Kernel.MeshCells),
		WeldTolerance: cfg.Kernel.WeldTolerance,
		ExportDir:     cfg.Export.Dir,
	}
	return &App{
		engine: engine.New(engine.Config{Timeout: cfg.Engine.Timeout, Env: env}),
		env:    env,
	}
}

// Evaluate takes script source and returns the resulting mesh, its render
// buffers split by material, and any errors.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Meshes: []MeshData{},
		Errors: []EvalErrorData{},
	}

	// Step 1: Evaluate the script into a mesh.
	m, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		// Fatal error (panic, timeout, etc.)
		logger.Error("evaluate fatal error", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}

	// Step 2: Convert eval errors.
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}
	result.Mesh = m

	// Step 3: Split the mesh into render buffers, one per material.
	parts, err := tessellate.Parts(m)
	if err != nil {
		logger.Error("tessellate error", zap.Error(err))
		result.Errors = append(result.Errors, EvalErrorData{
			Message: "tessellation failed: " + err.Error(),
		})
		return result
	}

	// Step 4: Convert kernel meshes to MeshData.
	for i, p := range parts {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: p.Vertices,
			Normals:  p.Normals,
			Indices:  p.Indices,
			PartName: p.Name,
			Color:    colorPalette[i%len(colorPalette)],
		})
	}

	return result
}
