// Package component defines the parts a cassette is made of and their
// stored records.
//
// Components keep only outlines and parameters. Solids are rebuilt through
// a kernel.Kernel on demand, so a record can be loaded by any process that
// has a kernel at hand.
package component

import (
	"encoding/json"
	"fmt"

	"github.com/chazu/cassette/pkg/errors"
	"github.com/chazu/cassette/pkg/geom"
	"github.com/chazu/cassette/pkg/kernel"
	"github.com/chazu/cassette/pkg/layer"
)

// Kind names a component type.
type Kind string

const (
	KindPanel Kind = "panel"
	KindBeam  Kind = "beam"
	KindPlate Kind = "plate"
	KindDowel Kind = "dowel"
	KindJoint Kind = "joint"
)

// Kinds lists every component kind.
var Kinds = []Kind{KindPanel, KindBeam, KindPlate, KindDowel, KindJoint}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidInput, "unknown component kind %q", s)
}

// Component is implemented by every stored part.
type Component interface {
	ComponentID() string
	Kind() Kind
	PanelName() string
}

// Solidifier is implemented by components with a volume.
type Solidifier interface {
	Component
	Volume(k kernel.Kernel) (kernel.Solid, error)
}

// BeamID returns the identifier of a beam.
func BeamID(panel string, level, edge int) string {
	return layer.BeamID(panel, level, edge)
}

// PlateID returns the identifier of a panel's plate.
func PlateID(panel string) string {
	return panel + "_P"
}

// DowelID returns the identifier of the dowel at a panel corner.
func DowelID(panel string, corner int) string {
	return fmt.Sprintf("%s_D%s", panel, geom.CornerKey(corner))
}

// JointID returns the identifier of the joint between two panels. The
// order of the arguments does not matter.
func JointID(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + " x " + b
}

// Record is the stored form of a component.
type Record struct {
	ID    string          `json:"id"`
	Kind  Kind            `json:"kind"`
	Panel string          `json:"panel"`
	RunID string          `json:"runId"`
	Data  json.RawMessage `json:"data"`
}

// NewRecord encodes c for storage.
func NewRecord(c Component, runID string) (Record, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return Record{}, errors.Wrap(errors.ErrCodeInternal, err, "encode %s", c.ComponentID())
	}
	return Record{
		ID:    c.ComponentID(),
		Kind:  c.Kind(),
		Panel: c.PanelName(),
		RunID: runID,
		Data:  data,
	}, nil
}

// Decode turns a record back into its typed component.
func Decode(r Record) (Component, error) {
	var c Component
	switch r.Kind {
	case KindPanel:
		c = &Panel{}
	case KindBeam:
		c = &Beam{}
	case KindPlate:
		c = &Plate{}
	case KindDowel:
		c = &Dowel{}
	case KindJoint:
		c = &Joint{}
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "record %s has unknown kind %q", r.ID, r.Kind)
	}
	if err := json.Unmarshal(r.Data, c); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode %s", r.ID)
	}
	return c, nil
}

// As decodes a record into the expected concrete type.
func As[T Component](r Record) (T, error) {
	var zero T
	c, err := Decode(r)
	if err != nil {
		return zero, err
	}
	t, ok := c.(T)
	if !ok {
		return zero, errors.New(errors.ErrCodeInvalidInput, "record %s is a %s, not %T", r.ID, r.Kind, zero)
	}
	return t, nil
}
