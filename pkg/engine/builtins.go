package engine

import (
	"fmt"
	"sort"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cassette/pkg/config"
	"github.com/chazu/cassette/pkg/geom"
	"github.com/chazu/cassette/pkg/topology"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites program source before zygomys reads it:
//
//  1. :keyword becomes the string "__kw_keyword", so keywords never collide
//     with user variables.
//  2. kebab-case identifiers become snake_case, since zygomys reads a hyphen
//     as subtraction.
//  3. ; line comments become // comments.
//
// String literals are left untouched.
func preprocessSource(source string) string {
	result := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		if b[i] == '"' {
			result = append(result, b[i])
			i++
			for i < len(b) && b[i] != '"' {
				if b[i] == '\\' && i+1 < len(b) {
					result = append(result, b[i], b[i+1])
					i += 2
					continue
				}
				result = append(result, b[i])
				i++
			}
			if i < len(b) {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == '`' {
			j := i + 1
			for j < len(b) && b[j] != '`' {
				j++
			}
			if j < len(b) {
				j++
			}
			result = append(result, b[i:j]...)
			i = j
			continue
		}
		if b[i] == ';' {
			result = append(result, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				result = append(result, b[i])
				i++
			}
			continue
		}
		if b[i] == ':' && i+1 < len(b) {
			if b[i+1] == '=' {
				result = append(result, b[i], b[i+1])
				i += 2
				continue
			}
			if isLetter(b[i+1]) {
				j := i + 1
				for j < len(b) && isKWChar(b[j]) {
					j++
				}
				result = append(result, '"')
				result = append(result, kwPrefix...)
				result = append(result, b[i+1:j]...)
				result = append(result, '"')
				i = j
				continue
			}
		}
		// A hyphen between identifier characters is part of a name, not
		// a minus.
		if b[i] == '-' && i > 0 && i+1 < len(b) &&
			isIdentChar(b[i-1]) && isLetter(b[i+1]) {
			result = append(result, '_')
			i++
			continue
		}
		result = append(result, b[i])
		i++
	}
	return string(result)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Values passed between builtins
// ---------------------------------------------------------------------------

type sexpVec3 struct {
	vec r3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpPanel is returned by panel so it can be printed or bound to a name.
type sexpPanel struct {
	name    string
	corners int
}

func (p *sexpPanel) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(panel %q %d corners)", p.name, p.corners)
}
func (p *sexpPanel) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword arguments
// ---------------------------------------------------------------------------

const kwPrefix = "__kw_"

func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", false
	}
	if strings.HasPrefix(str.S, kwPrefix) {
		return str.S[len(kwPrefix):], true
	}
	return "", false
}

type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// unknownKeys returns the keywords in kw that are not in allowed, sorted.
func unknownKeys(kw map[string]zygo.Sexp, allowed ...string) []string {
	var out []string
	for k := range kw {
		found := false
		for _, a := range allowed {
			if k == a {
				found = true
				break
			}
		}
		if !found {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// ---------------------------------------------------------------------------
// Value extraction
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

// toKeywordString accepts both a keyword and a plain string.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %T (%s)", s, s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

func toVec3(s zygo.Sexp) (r3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	return r3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Program builder
// ---------------------------------------------------------------------------

// builder accumulates the program while the builtins run.
type builder struct {
	settings config.GeometrySettings
	panels   []topology.PanelSpec
	names    map[string]bool
}

func (b *builder) program() *Program {
	return &Program{Settings: b.settings, Panels: b.panels}
}

// settingFields maps DSL keywords to the settings they override.
func settingFields(s *config.GeometrySettings) map[string]*float64 {
	return map[string]*float64{
		"beam-max-width":  &s.BeamMaxWidth,
		"beam-thickness":  &s.BeamThickness,
		"plate-thickness": &s.PlateThickness,
		"dowel-radius":    &s.DowelRadius,
		"sawtooth-depth":  &s.SawtoothDepth,
		"sawtooth-width":  &s.SawtoothWidth,
		"sawtooth-safety": &s.SawtoothSafety,
		"toolhead-radius": &s.ToolheadRadius,
	}
}

// registerBuiltins installs the program builtins. Source must go through
// preprocessSource first so keywords are recognizable.
func registerBuiltins(env *zygo.Zlisp, b *builder) {

	// -----------------------------------------------------------------------
	// (vec3 1 2 3)
	// -----------------------------------------------------------------------
	env.AddFunction("vec3", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		var c [3]float64
		for i, a := range args {
			f, err := toFloat64(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
			}
			c[i] = f
		}
		return &sexpVec3{vec: geom.Vec(c[0], c[1], c[2])}, nil
	})

	// -----------------------------------------------------------------------
	// (settings :beam-max-width 0.06 :beam-thickness 0.02 ...)
	// -----------------------------------------------------------------------
	env.AddFunction("settings", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) > 0 {
			return zygo.SexpNull, fmt.Errorf("settings takes only keyword arguments")
		}
		fields := settingFields(&b.settings)
		for k, v := range pa.kw {
			dst, ok := fields[k]
			if !ok {
				return zygo.SexpNull, fmt.Errorf("settings: unknown setting :%s", k)
			}
			f, err := toFloat64(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("settings: %s: %w", k, err)
			}
			*dst = f
		}
		return zygo.SexpNull, nil
	})

	// -----------------------------------------------------------------------
	// (panel "east" :points (list (vec3 1 0 0) ...) :neighbors (list :d "north"))
	// -----------------------------------------------------------------------
	env.AddFunction("panel", func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		if len(pa.positional) != 1 {
			return zygo.SexpNull, fmt.Errorf("panel requires a name argument")
		}
		panelName, err := toString(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("panel: name: %w", err)
		}
		if b.names[panelName] {
			return zygo.SexpNull, fmt.Errorf("panel: %q is already defined", panelName)
		}
		if bad := unknownKeys(pa.kw, "points", "neighbors"); len(bad) > 0 {
			return zygo.SexpNull, fmt.Errorf("panel %s: unknown arguments %s", panelName, strings.Join(bad, ", "))
		}

		spec := topology.PanelSpec{Name: panelName}
		v, ok := pa.kw["points"]
		if !ok {
			return zygo.SexpNull, fmt.Errorf("panel %s: :points is required", panelName)
		}
		items, err := sexpListToSlice(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("panel %s: points: %w", panelName, err)
		}
		for i, item := range items {
			p, err := toVec3(item)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("panel %s: point %d: %w", panelName, i, err)
			}
			spec.Points = append(spec.Points, [3]float64{p.X, p.Y, p.Z})
		}

		if v, ok := pa.kw["neighbors"]; ok {
			items, err := sexpListToSlice(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("panel %s: neighbors: %w", panelName, err)
			}
			if len(items)%2 != 0 {
				return zygo.SexpNull, fmt.Errorf("panel %s: neighbors must alternate edge keys and panel names", panelName)
			}
			spec.Neighbors = make(map[string]string, len(items)/2)
			for i := 0; i < len(items); i += 2 {
				edge, err := toKeywordString(items[i])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("panel %s: neighbor edge: %w", panelName, err)
				}
				if !geom.IsEdgeKey(edge) {
					return zygo.SexpNull, fmt.Errorf("panel %s: %q is not an edge key", panelName, edge)
				}
				other, err := toString(items[i+1])
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("panel %s: neighbor of edge %s: %w", panelName, edge, err)
				}
				spec.Neighbors[edge] = other
			}
		}

		b.names[panelName] = true
		b.panels = append(b.panels, spec)
		return &sexpPanel{name: panelName, corners: len(spec.Points)}, nil
	})
}
