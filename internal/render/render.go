// Package render turns task sets and schedule results into tables and ASCII
// timelines. It only reads model values.
package render

import (
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/signalsfoundry/rtsched/core"
	"github.com/signalsfoundry/rtsched/model"
)

// MaxTimelineTicks caps the width of an ASCII timeline.
const MaxTimelineTicks = 120

// TaskTable writes the entered task set with per-task utilization.
func TaskTable(w io.Writer, tasks []model.TaskType) {
	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		u := "-"
		if t.Period > 0 {
			u = big.NewRat(int64(t.ExecutionBudget), int64(t.Period)).RatString()
		}
		rows = append(rows, []string{
			t.ID,
			strconv.Itoa(t.Period),
			strconv.Itoa(t.ExecutionBudget),
			strconv.Itoa(t.RelativeDeadline),
			strconv.Itoa(t.ReleaseOffset),
			u,
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Task", "Period", "Execution", "Deadline", "Offset", "e/p"})
	table.AppendBulk(rows)
	table.SetFooter([]string{"", "", "", "", "Total", core.Utilization(tasks).RatString()})
	table.Render()
}

// IntervalTable writes each task's execution intervals and status.
func IntervalTable(w io.Writer, res *model.ScheduleResult) {
	if res == nil {
		return
	}
	rows := make([][]string, 0, len(res.TaskOrder))
	for _, id := range res.TaskOrder {
		status := "ok"
		switch {
		case dropped(res, id):
			status = "dropped"
		case late(res, id):
			status = "late"
		}
		rows = append(rows, []string{
			id,
			FormatIntervals(res.Intervals[id]),
			strconv.Itoa(res.Occupied(id)),
			status,
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Task", "Intervals", "Ticks", "Status"})
	table.SetAutoWrapText(false)
	table.AppendBulk(rows)
	table.SetFooter([]string{"", string(res.Policy), fmt.Sprintf("busy %d / %d", res.BusyTicks, res.Horizon), ""})
	table.Render()
}

// Summary writes the horizon and utilization lines.
func Summary(w io.Writer, res *model.ScheduleResult) {
	if res == nil {
		return
	}
	u := res.UtilizationFloat()
	_, _ = fmt.Fprintf(w, "Policy: %s\n", res.Policy)
	_, _ = fmt.Fprintf(w, "Total simulation time (LCM of periods): %d\n", res.Horizon)
	_, _ = fmt.Fprintf(w, "Utilization: %s = %.2f <= 1 (%.2f %%)\n", res.Utilization.RatString(), u, u*100)
	for _, d := range res.Drops {
		_, _ = fmt.Fprintf(w, "%s#%d is dropped due to overload at time: %d (remaining %d)\n", d.TaskID, d.Release, d.At, d.Remaining)
	}
	for _, l := range res.LateCompletions {
		_, _ = fmt.Fprintf(w, "%s#%d passed its deadline at %d\n", l.TaskID, l.Release, l.Deadline)
	}
}

// firstRelease is the first release at or after tick 0.
func firstRelease(t model.TaskType) int {
	r := t.ReleaseOffset
	if r < 0 {
		r += (-r + t.Period - 1) / t.Period * t.Period
	}
	return r
}

func dropped(res *model.ScheduleResult, id string) bool {
	for _, d := range res.Drops {
		if d.TaskID == id {
			return true
		}
	}
	return false
}

func late(res *model.ScheduleResult, id string) bool {
	for _, l := range res.LateCompletions {
		if l.TaskID == id {
			return true
		}
	}
	return false
}

// FormatIntervals renders runs as "[0,2) [5,6)".
func FormatIntervals(runs []model.Interval) string {
	if len(runs) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(runs))
	for _, iv := range runs {
		parts = append(parts, fmt.Sprintf("[%d,%d)", iv.Start, iv.End))
	}
	return strings.Join(parts, " ")
}

// Timeline writes an ASCII Gantt chart: one row per task with '#' where it
// runs, followed by a marker row with 'R' at releases and 'D' at deadlines
// that differ from the next release. Horizons wider than MaxTimelineTicks
// are truncated.
func Timeline(w io.Writer, tasks []model.TaskType, res *model.ScheduleResult) {
	if res == nil {
		return
	}
	width := res.Horizon
	truncated := false
	if width > MaxTimelineTicks {
		width = MaxTimelineTicks
		truncated = true
	}

	label := 0
	for _, t := range tasks {
		if len(t.ID) > label {
			label = len(t.ID)
		}
	}
	pad := func(s string) string { return s + strings.Repeat(" ", label-len(s)) }

	scale := make([]byte, width)
	for i := range scale {
		switch {
		case i%10 == 0:
			scale[i] = '|'
		case i%5 == 0:
			scale[i] = '+'
		default:
			scale[i] = ' '
		}
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", pad(""), scale)

	for _, t := range tasks {
		row := []byte(strings.Repeat("-", width))
		for _, iv := range res.Intervals[t.ID] {
			for tick := max(iv.Start, 0); tick < iv.End && tick < width; tick++ {
				row[tick] = '#'
			}
		}
		_, _ = fmt.Fprintf(w, "%s %s\n", pad(t.ID), row)

		marks := []byte(strings.Repeat(" ", width))
		if t.Period > 0 {
			for r := firstRelease(t); r < width; r += t.Period {
				marks[r] = 'R'
				if d := r + t.RelativeDeadline; d >= 0 && d < width && t.RelativeDeadline < t.Period {
					marks[d] = 'D'
				}
			}
		}
		_, _ = fmt.Fprintf(w, "%s %s\n", pad(""), strings.TrimRight(string(marks), " "))
	}
	_, _ = fmt.Fprintf(w, "%s 0..%d\n", pad(""), width)
	if truncated {
		_, _ = fmt.Fprintf(w, "(timeline truncated to %d of %d ticks)\n", width, res.Horizon)
	}
}
