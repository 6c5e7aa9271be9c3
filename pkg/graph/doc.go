// Package graph records how the components of a generation run depend on
// each other. Beams, plates and dowels hang off their panel, dowels off the
// bottom beams they pin, and joints off both panels and every beam they
// detail. The graph is built once per run and never mutated afterwards.
package graph
