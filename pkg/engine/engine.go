// Package engine evaluates cassette programs. A program names the panels of
// an envelope and may override the geometry settings; it is written either
// in a small Lisp dialect run on zygomys in a sandbox, or as JSON.
package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	zygo "github.com/glycerine/zygomys/zygo"

	"github.com/chazu/cassette/pkg/config"
	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/topology"
)

// EvalError is a non-fatal error in user code, such as a parse error or a
// bad builtin argument.
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

// Program is the result of evaluating a source file.
type Program struct {
	Settings config.GeometrySettings `json:"settings"`
	Panels   []topology.PanelSpec    `json:"panels"`
}

// Topology builds the panel topology of the program.
func (p *Program) Topology() (*topology.Topology, error) {
	return topology.Build(p.Panels)
}

// Engine evaluates programs. Every call to Evaluate runs in a fresh
// sandbox; starting an evaluation supersedes one still in flight, so
// callers serving independent requests use one Engine each.
type Engine struct {
	// Defaults are the settings a program starts from.
	Defaults config.GeometrySettings

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates an engine whose programs start from defaults.
func NewEngine(defaults config.GeometrySettings) *Engine {
	return &Engine{Defaults: defaults}
}

// Evaluate runs Lisp source and returns the program it describes.
//
// Return semantics:
//   - On success: returns program + nil errors + nil error
//   - On parse/eval failure: returns nil program + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Program, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		p, evalErrs, err := e.evaluate(source)
		ch <- evalResult{program: p, errors: evalErrs, err: err}
	}()

	return waitWithTimeout(ch, gen, &e.mu, &e.generation)
}

func (e *Engine) evaluate(source string) (*Program, []EvalError, error) {
	b := &builder{settings: e.Defaults, names: make(map[string]bool)}
	if strings.TrimSpace(source) == "" {
		return b.program(), nil, nil
	}

	env := zygo.NewZlispSandbox()
	defer env.Stop()
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if err := b.settings.Validate(); err != nil {
		return nil, []EvalError{{Message: errors.UserMessage(err)}}, nil
	}
	return b.program(), nil, nil
}

// ParseJSON decodes a JSON program. Settings missing from the document keep
// their default values.
func (e *Engine) ParseJSON(data []byte) (*Program, error) {
	p := Program{Settings: e.Defaults}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode program")
	}
	if err := p.Settings.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Parse evaluates data as JSON when name ends in .json and as Lisp
// otherwise. Eval errors are joined into one INVALID_INPUT error.
func (e *Engine) Parse(name string, data []byte) (*Program, error) {
	if strings.EqualFold(filepath.Ext(name), ".json") {
		return e.ParseJSON(data)
	}
	p, evalErrs, err := e.Evaluate(string(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "evaluate %s", name)
	}
	if len(evalErrs) > 0 {
		msgs := make([]string, len(evalErrs))
		for i, ee := range evalErrs {
			msgs[i] = ee.Error()
		}
		return nil, errors.New(errors.ErrCodeInvalidInput, "%s: %s", name, strings.Join(msgs, "; "))
	}
	return p, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into eval errors, keeping the
// line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
