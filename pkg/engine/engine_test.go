package engine

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/chazu/cassette/pkg/config"
	"github.com/chazu/cassette/pkg/errors"
)

func newEngine() *Engine {
	return NewEngine(config.DefaultGeometry())
}

func TestEvaluateEmptyString(t *testing.T) {
	for _, src := range []string{"", "   \n\t  \n  "} {
		p, evalErrs, err := newEngine().Evaluate(src)
		if err != nil {
			t.Fatalf("unexpected fatal error: %v", err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("unexpected eval errors: %v", evalErrs)
		}
		if p == nil {
			t.Fatal("expected non-nil program")
		}
		if len(p.Panels) != 0 {
			t.Errorf("expected no panels, got %d", len(p.Panels))
		}
		if p.Settings != config.DefaultGeometry() {
			t.Errorf("expected default settings, got %+v", p.Settings)
		}
	}
}

func TestEvaluateMultipleExpressions(t *testing.T) {
	source := `
(def x 10)
(def y 20)
(+ x y)
`
	p, evalErrs, err := newEngine().Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if p == nil {
		t.Fatal("expected non-nil program")
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	p, evalErrs, err := newEngine().Evaluate("(+ 1 2)\n(+ 3")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if p != nil {
		t.Fatal("expected nil program on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for syntax error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	p, evalErrs, err := newEngine().Evaluate("(+ 1 undefined-symbol)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if p != nil {
		t.Fatal("expected nil program on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvalErrorImplementsError(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	if s := e.Error(); !strings.Contains(s, "line 5") || !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() = %q, want line and message", s)
	}
	e2 := EvalError{Message: "no location"}
	if s := e2.Error(); strings.Contains(s, "line") {
		t.Errorf("Error() with no line should not contain 'line', got: %s", s)
	}
}

func TestEvaluateTimeout(t *testing.T) {
	// waitWithTimeout is exercised directly with a channel that never
	// sends; a real runaway program would hold the test for EvalTimeout
	// anyway.
	var mu sync.Mutex
	var gen uint64 = 1
	ch := make(chan evalResult)

	done := make(chan struct{})
	var resultErr error
	go func() {
		defer close(done)
		_, _, resultErr = waitWithTimeout(ch, 1, &mu, &gen)
	}()

	select {
	case <-done:
		if resultErr == nil {
			t.Fatal("expected timeout error, got nil")
		}
		if !strings.Contains(resultErr.Error(), "timed out") {
			t.Errorf("expected timeout error message, got: %v", resultErr)
		}
	case <-time.After(EvalTimeout + 2*time.Second):
		t.Fatal("test itself timed out waiting for evaluation timeout")
	}
}

func TestEvaluateGenerationDiscardsStale(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(2)

	ch := make(chan evalResult, 1)
	ch <- evalResult{}

	_, _, err := waitWithTimeout(ch, 1, &mu, &gen)
	if err == nil {
		t.Fatal("expected error for stale generation")
	}
	if !strings.Contains(err.Error(), "superseded") {
		t.Errorf("expected superseded error, got: %v", err)
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line format", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"no line info", "some generic error", 0, "some generic error"},
		{"line format lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short line format", "line 3: bad vec3", 3, "bad vec3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errString(tt.msg))
			if len(errs) == 0 {
				t.Fatal("expected at least one error")
			}
			e := errs[0]
			if e.Line != tt.wantLine {
				t.Errorf("line = %d, want %d", e.Line, tt.wantLine)
			}
			if !strings.Contains(e.Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", e.Message, tt.wantMsg)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	eng := newEngine()
	p, err := eng.ParseJSON([]byte(`{
		"settings": {"beam_thickness": 0.03},
		"panels": [
			{"name": "north", "points": [[0,0,0],[1,0,0],[1,1,0],[0,1,0]]},
			{"name": "east", "points": [[1,0,0],[2,0,0],[2,1,0],[1,1,0]], "neighbors": {"d": "north"}}
		]
	}`))
	if err != nil {
		t.Fatalf("ParseJSON: %v", err)
	}
	if p.Settings.BeamThickness != 0.03 {
		t.Errorf("beam thickness = %g, want 0.03", p.Settings.BeamThickness)
	}
	if p.Settings.BeamMaxWidth != config.DefaultGeometry().BeamMaxWidth {
		t.Errorf("beam max width = %g, want default", p.Settings.BeamMaxWidth)
	}
	if len(p.Panels) != 2 || p.Panels[1].Neighbors["d"] != "north" {
		t.Errorf("unexpected panels: %+v", p.Panels)
	}

	for _, bad := range []string{
		`{"panels": [`,
		`{"panelz": []}`,
		`{"settings": {"beam_thickness": -1}}`,
	} {
		if _, err := eng.ParseJSON([]byte(bad)); !errors.Is(err, errors.ErrCodeInvalidInput) {
			t.Errorf("ParseJSON(%s): expected INVALID_INPUT, got %v", bad, err)
		}
	}
}

func TestParseDispatchesOnExtension(t *testing.T) {
	eng := newEngine()
	if _, err := eng.Parse("run.JSON", []byte(`{"panels": []}`)); err != nil {
		t.Errorf("json: %v", err)
	}
	p, err := eng.Parse("run.lisp", []byte(`(panel "a" :points (list (vec3 0 0 0) (vec3 1 0 0) (vec3 0 1 0)))`))
	if err != nil {
		t.Fatalf("lisp: %v", err)
	}
	if len(p.Panels) != 1 {
		t.Errorf("expected 1 panel, got %d", len(p.Panels))
	}
	_, err = eng.Parse("run.lisp", []byte(`(panel`))
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for a parse error, got %v", err)
	}
}

type errString string

func (e errString) Error() string { return string(e) }
