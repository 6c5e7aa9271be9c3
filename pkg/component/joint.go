package component

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/chazu/cassette/pkg/geom"
	"github.com/chazu/cassette/pkg/layer"
)

// GuideCount is the number of guides per joint side: the panel outline and
// the bottom outline of each layer.
const GuideCount = layer.Levels + 1

// Joint connects two neighboring panels along their shared edge.
type Joint struct {
	ID    string     `json:"id"`
	A     string     `json:"a"`
	B     string     `json:"b"`
	EdgeA int        `json:"edgeA"`
	EdgeB int        `json:"edgeB"`
	Plane geom.Plane `json:"plane"`
	// NormalA and NormalB are the panel normals teeth are rotated about.
	NormalA r3.Vec `json:"normalA"`
	NormalB r3.Vec `json:"normalB"`
	// GuidesA holds the shared edge of panel A at each guide level; level
	// L beams use guides L and L+1.
	GuidesA [GuideCount]geom.Line `json:"guidesA"`
	GuidesB [GuideCount]geom.Line `json:"guidesB"`
	// ToothCounts is the count used at each beam level, zero until applied.
	ToothCounts     [layer.Levels]int `json:"toothCounts"`
	PlateToothCount int               `json:"plateToothCount"`
	// Beams lists the beams this joint has detailed.
	Beams []string `json:"beams,omitempty"`
}

func (j *Joint) ComponentID() string { return j.ID }
func (j *Joint) Kind() Kind          { return KindJoint }
func (j *Joint) PanelName() string   { return j.A }

// JointSide is one panel's view of a joint.
type JointSide struct {
	Panel  string
	Edge   int
	Normal r3.Vec
	Guides [GuideCount]geom.Line
}

// Side returns side a (true) or b.
func (j *Joint) Side(a bool) JointSide {
	if a {
		return JointSide{Panel: j.A, Edge: j.EdgeA, Normal: j.NormalA, Guides: j.GuidesA}
	}
	return JointSide{Panel: j.B, Edge: j.EdgeB, Normal: j.NormalB, Guides: j.GuidesB}
}
