package ops

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/chazu/facet/internal/logger"
	"github.com/chazu/facet/pkg/halfedge"
	"github.com/chazu/facet/pkg/kernel"
	"github.com/chazu/facet/pkg/kernel/sdfx"
	"github.com/chazu/facet/pkg/selection"
	"github.com/chazu/facet/pkg/vecmath"
	"go.uber.org/zap"
)

// ErrUnknownOperation reports a Call or Lookup for a name with no entry.
var ErrUnknownOperation = errors.New("unknown operation")

// ParamType is the value type an operation parameter accepts.
type ParamType int

const (
	ParamMesh ParamType = iota
	ParamVec3
	ParamScalar
	ParamInt
	ParamString
	ParamSelection
	ParamKind
	ParamSolid
	ParamPoints
)

func (t ParamType) String() string {
	switch t {
	case ParamMesh:
		return "mesh"
	case ParamVec3:
		return "vec3"
	case ParamScalar:
		return "scalar"
	case ParamInt:
		return "int"
	case ParamString:
		return "string"
	case ParamSelection:
		return "selection"
	case ParamKind:
		return "kind"
	case ParamSolid:
		return "solid"
	case ParamPoints:
		return "points"
	}
	return "unknown"
}

// Param describes one operation parameter. A nil Default makes the
// parameter required.
type Param struct {
	Name    string
	Type    ParamType
	Default any
}

// Operation is one entry of the operation table.
type Operation struct {
	Name   string
	Doc    string
	Params []Param
	Fn     func(Args) (any, error)
}

// Signature renders the call shape, e.g. "extrude(mesh mesh, faces selection, amount scalar=1)".
func (op *Operation) Signature() string {
	parts := make([]string, len(op.Params))
	for i, p := range op.Params {
		parts[i] = p.Name + " " + p.Type.String()
		if p.Default != nil {
			parts[i] += "=" + formatDefault(p.Default)
		}
	}
	return op.Name + "(" + strings.Join(parts, ", ") + ")"
}

func formatDefault(v any) string {
	switch d := v.(type) {
	case vecmath.Vec3:
		return fmt.Sprintf("(%g %g %g)", d.X, d.Y, d.Z)
	case string:
		return fmt.Sprintf("%q", d)
	case selection.Expression:
		return fmt.Sprintf("%q", d.String())
	}
	return fmt.Sprint(v)
}

// Env carries what operations need beyond their arguments.
type Env struct {
	Kernel        kernel.Kernel
	WeldTolerance float64
	ExportDir     string
}

// DefaultWeldTolerance is the distance below which tessellated vertices are
// welded when no Env sets one.
const DefaultWeldTolerance = 1e-5

// DefaultEnv returns an Env with an sdfx kernel at its default resolution.
func DefaultEnv() *Env {
	return &Env{
		Kernel:        sdfx.New(sdfx.DefaultMeshCells),
		WeldTolerance: DefaultWeldTolerance,
		ExportDir:     ".",
	}
}

// Args holds named arguments for a Call. After Call has checked them, the
// typed accessors cannot fail.
type Args struct {
	env    *Env
	values map[string]any
}

// NewArgs returns an empty argument set bound to env. A nil env means
// DefaultEnv.
func NewArgs(env *Env) Args {
	if env == nil {
		env = DefaultEnv()
	}
	return Args{env: env, values: make(map[string]any)}
}

// Set stores a value under name and returns a for chaining.
func (a Args) Set(name string, v any) Args {
	a.values[name] = v
	return a
}

// Has reports whether a value is stored under name.
func (a Args) Has(name string) bool {
	_, ok := a.values[name]
	return ok
}

func (a Args) Env() *Env                         { return a.env }
func (a Args) Mesh(name string) *halfedge.Mesh   { return a.values[name].(*halfedge.Mesh) }
func (a Args) Vec3(name string) vecmath.Vec3     { return a.values[name].(vecmath.Vec3) }
func (a Args) Scalar(name string) float64        { return a.values[name].(float64) }
func (a Args) Int(name string) int               { return a.values[name].(int) }
func (a Args) Text(name string) string           { return a.values[name].(string) }
func (a Args) Solid(name string) kernel.Solid    { return a.values[name].(kernel.Solid) }
func (a Args) Points(name string) []vecmath.Vec3 { return a.values[name].([]vecmath.Vec3) }

func (a Args) Selection(name string) selection.Expression {
	return a.values[name].(selection.Expression)
}

func (a Args) Kind(name string) halfedge.ElementKind {
	return a.values[name].(halfedge.ElementKind)
}

var byName map[string]*Operation

func init() {
	byName = make(map[string]*Operation, len(operations))
	for i := range operations {
		op := &operations[i]
		if _, dup := byName[op.Name]; dup {
			panic("ops: duplicate operation " + op.Name)
		}
		byName[op.Name] = op
	}
}

// Lookup returns the operation registered under name.
func Lookup(name string) (*Operation, bool) {
	op, ok := byName[name]
	return op, ok
}

// Names returns every operation name in sorted order.
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Call checks args against the parameter list of the named operation, fills
// in defaults and runs it. Arguments the operation does not declare are an
// error.
func Call(name string, args Args) (any, error) {
	op, ok := Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, name)
	}
	if args.values == nil {
		args = NewArgs(args.env)
	}

	checked := NewArgs(args.env)
	declared := make(map[string]bool, len(op.Params))
	for _, p := range op.Params {
		declared[p.Name] = true
		v, ok := args.values[p.Name]
		if !ok {
			if p.Default == nil {
				return nil, fmt.Errorf("%s: %w: missing argument %q", name, halfedge.ErrInvalidParameter, p.Name)
			}
			v = p.Default
		}
		cv, err := coerce(p.Type, v)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", name, p.Name, err)
		}
		checked.values[p.Name] = cv
	}
	for k := range args.values {
		if !declared[k] {
			return nil, fmt.Errorf("%s: %w: unknown argument %q", name, halfedge.ErrInvalidParameter, k)
		}
	}

	log := logger.Named("ops")
	log.Debug("call", zap.String("op", name), zap.Int("args", len(checked.values)))
	out, err := op.Fn(checked)
	if err != nil {
		log.Debug("call failed", zap.String("op", name), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func typeError(want ParamType, v any) error {
	return fmt.Errorf("%w: expected %s, got %T", halfedge.ErrInvalidParameter, want, v)
}

// coerce converts v to the Go type the accessors expect for t.
func coerce(t ParamType, v any) (any, error) {
	switch t {
	case ParamMesh:
		if m, ok := v.(*halfedge.Mesh); ok && m != nil {
			return m, nil
		}
	case ParamVec3:
		switch x := v.(type) {
		case vecmath.Vec3:
			return x, nil
		case float64:
			return vecmath.V3(x, x, x), nil
		case int:
			f := float64(x)
			return vecmath.V3(f, f, f), nil
		}
	case ParamScalar:
		switch x := v.(type) {
		case float64:
			return x, nil
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		}
	case ParamInt:
		switch x := v.(type) {
		case int:
			return x, nil
		case int64:
			return int(x), nil
		case float64:
			if x == math.Trunc(x) {
				return int(x), nil
			}
			return nil, fmt.Errorf("%w: expected int, got %g", halfedge.ErrInvalidParameter, x)
		}
	case ParamString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case ParamSelection:
		switch x := v.(type) {
		case selection.Expression:
			return x, nil
		case string:
			return selection.Parse(x)
		case int:
			if x >= 0 {
				return selection.Indices(uint32(x)), nil
			}
		}
	case ParamKind:
		switch x := v.(type) {
		case halfedge.ElementKind:
			return x, nil
		case string:
			if k, ok := halfedge.ParseElementKind(x); ok {
				return k, nil
			}
			return nil, fmt.Errorf("%w: unknown element kind %q", halfedge.ErrInvalidParameter, x)
		}
	case ParamSolid:
		if s, ok := v.(kernel.Solid); ok && s != nil {
			return s, nil
		}
	case ParamPoints:
		if ps, ok := v.([]vecmath.Vec3); ok {
			return ps, nil
		}
	}
	return nil, typeError(t, v)
}
