package graph

import (
	"fmt"

	"github.com/chazu/cassette/pkg/component"
)

// ValidationSeverity indicates whether a finding means the run is broken
// or merely incomplete.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // structural problem
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	NodeID   NodeID
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.NodeID == "" {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Severity, e.NodeID, e.Message)
}

// ValidationResult bundles structural errors and completeness warnings.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationError
}

// OK reports whether there are no errors.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Validate runs the structural checks: every dependency exists and the
// graph has no cycle.
func Validate(g *ComponentGraph) []ValidationError {
	var errs []ValidationError
	errs = append(errs, validateDAG(g)...)
	errs = append(errs, validateReferences(g)...)
	return errs
}

// ValidateAll runs the structural checks and the completeness checks.
func ValidateAll(g *ComponentGraph) ValidationResult {
	return ValidationResult{
		Errors:   Validate(g),
		Warnings: validateCompleteness(g),
	}
}

// validateDAG checks for cycles using DFS with 3-color marking.
func validateDAG(g *ComponentGraph) []ValidationError {
	const (
		white = iota
		gray
		black
	)

	color := make(map[NodeID]int)
	var errs []ValidationError

	var visit func(id NodeID) bool
	visit = func(id NodeID) bool {
		switch color[id] {
		case black:
			return false
		case gray:
			errs = append(errs, ValidationError{
				NodeID:   id,
				Message:  "cycle detected",
				Severity: SeverityError,
			})
			return true
		}

		color[id] = gray
		node, ok := g.Nodes[id]
		if !ok {
			// Dangling reference; handled by validateReferences.
			color[id] = black
			return false
		}
		for _, dep := range node.Deps {
			if visit(dep) {
				return true
			}
		}
		color[id] = black
		return false
	}

	for _, id := range g.IDs() {
		if color[id] == white && visit(id) {
			break
		}
	}
	return errs
}

func validateReferences(g *ComponentGraph) []ValidationError {
	var errs []ValidationError
	for _, id := range g.IDs() {
		for _, dep := range g.Nodes[id].Deps {
			if _, ok := g.Nodes[dep]; !ok {
				errs = append(errs, ValidationError{
					NodeID:   id,
					Message:  fmt.Sprintf("dependency %s does not exist", dep),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// validateCompleteness warns about panels that ended up without parts and
// joints that detailed nothing.
func validateCompleteness(g *ComponentGraph) []ValidationError {
	var warns []ValidationError
	for _, p := range g.OfKind(component.KindPanel) {
		var beams, plates int
		for _, d := range g.Dependents(p.ID) {
			switch d.Kind {
			case component.KindBeam:
				beams++
			case component.KindPlate:
				plates++
			}
		}
		if beams == 0 {
			warns = append(warns, ValidationError{NodeID: p.ID, Message: "panel has no beams", Severity: SeverityWarning})
		}
		if plates == 0 {
			warns = append(warns, ValidationError{NodeID: p.ID, Message: "panel has no plate", Severity: SeverityWarning})
		}
	}
	for _, j := range g.OfKind(component.KindJoint) {
		detailed := false
		for _, d := range j.Deps {
			if n := g.Nodes[d]; n != nil && n.Kind == component.KindBeam {
				detailed = true
				break
			}
		}
		if !detailed {
			warns = append(warns, ValidationError{NodeID: j.ID, Message: "joint detailed no beams", Severity: SeverityWarning})
		}
	}
	return warns
}
