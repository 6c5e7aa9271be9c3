package cli

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/chazu/cassette/pkg/component"
	"github.com/chazu/cassette/pkg/pipeline"
)

var (
	colorCyan  = lipgloss.Color("36")
	colorGreen = lipgloss.Color("35")
	colorRed   = lipgloss.Color("167")
	colorGray  = lipgloss.Color("245")
	colorDim   = lipgloss.Color("240")
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleDim     = lipgloss.NewStyle().Foreground(colorDim)
	styleHeader  = lipgloss.NewStyle().Foreground(colorGray).Bold(true).Padding(0, 1)
	styleCell    = lipgloss.NewStyle().Padding(0, 1)
	styleSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleError   = lipgloss.NewStyle().Foreground(colorRed)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconArrow   = "→"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleHeader
			}
			return styleCell
		})
}

func counts(c [3]int) string {
	parts := make([]string, len(c))
	for i, n := range c {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, " / ")
}

func yesNo(b bool) string {
	if b {
		return styleSuccess.Render(iconSuccess)
	}
	return styleError.Render(iconError)
}

// printResult writes the summary of a run.
func printResult(w io.Writer, res *pipeline.Result) {
	fmt.Fprintln(w, styleTitle.Render("Run "+res.RunID))

	panels := newTable("Panel", "Levels", "Beams (L0/L1/L2)", "Plate", "Dowels")
	for _, p := range res.Panels {
		panels.Row(p.Panel, strconv.Itoa(p.Levels), counts(p.Beams), yesNo(p.Plate), strconv.Itoa(p.Dowels))
	}
	fmt.Fprintln(w, panels.Render())

	if len(res.Joints) > 0 {
		joints := newTable("Joint", "Teeth (L0/L1/L2)", "Plate teeth", "Beams")
		for _, j := range res.Joints {
			joints.Row(j.Joint, counts(j.ToothCounts), strconv.Itoa(j.PlateToothCount), strconv.Itoa(j.Beams))
		}
		fmt.Fprintln(w, joints.Render())
	}

	if len(res.Failures) > 0 {
		failures := newTable("Component", "Stage", "Code", "Error")
		for _, f := range res.Failures {
			failures.Row(f.Component, string(f.Stage), string(f.Code), f.Err.Error())
		}
		fmt.Fprintln(w, failures.Render())
	}

	stages := make([]string, 0, len(res.Durations))
	for s := range res.Durations {
		stages = append(stages, string(s))
	}
	sort.Strings(stages)
	var timing []string
	for _, s := range stages {
		timing = append(timing, fmt.Sprintf("%s %s", s, res.Durations[pipeline.Stage(s)].Round(time.Millisecond)))
	}
	fmt.Fprintln(w, styleDim.Render(strings.Join(timing, " · ")))

	if res.OK() {
		fmt.Fprintln(w, styleSuccess.Render(iconSuccess)+" all components built")
	} else {
		fmt.Fprintln(w, styleError.Render(iconError)+fmt.Sprintf(" %d components failed", len(res.Failures)))
	}
}

// printRecords writes a table of stored records.
func printRecords(w io.Writer, recs []component.Record) {
	t := newTable("ID", "Kind", "Panel", "Run")
	for _, r := range recs {
		t.Row(r.ID, string(r.Kind), r.Panel, r.RunID)
	}
	fmt.Fprintln(w, t.Render())
	fmt.Fprintln(w, styleDim.Render(fmt.Sprintf("%d components", len(recs))))
}

func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+styleDim.Render(iconArrow)+" "+path)
}
