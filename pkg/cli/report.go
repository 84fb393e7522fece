package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/poltergeist/callcenter/pkg/metrics"
	"github.com/poltergeist/callcenter/pkg/types"
)

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func renderQueue(w io.Writer, calls []types.CallSnapshot) {
	if len(calls) == 0 {
		fmt.Fprintln(w, "\nQueue is empty.")
		return
	}

	fmt.Fprintf(w, "\n%s\n", color.CyanString("Current Call Queue:"))
	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tPriority\tCaller\tPhone\tDuration\tEnqueued")
	for _, call := range calls {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%ds\t%s\n",
			call.ID,
			call.Priority,
			call.CallerName,
			call.PhoneNumber,
			call.Duration,
			formatClock(call.EnqueuedAt))
	}
	tw.Flush()
}

func renderAgents(w io.Writer, agents []types.AgentSnapshot) {
	fmt.Fprintf(w, "\n%s\n", color.CyanString("Agent Status:"))
	if len(agents) == 0 {
		fmt.Fprintln(w, "No agents.")
		return
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tStatus\tCurrent Call\tCaller\tTotal Calls\tTotal Time")
	for _, a := range agents {
		call, caller := "-", "-"
		if a.Status == types.AgentStatusBusy {
			call = fmt.Sprintf("%d", a.CurrentCallID)
			caller = a.CurrentCaller
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%d\t%d sec\n",
			a.ID, a.Status, call, caller, a.CallsHandled, a.TimeSpent)
	}
	tw.Flush()
}

func renderMetrics(w io.Writer, s metrics.Summary) {
	fmt.Fprintf(w, "\n%s\n", color.CyanString("Metrics:"))

	tw := newTable(w)
	fmt.Fprintf(tw, "Submitted\t%.0f\n", s.Submitted)
	fmt.Fprintf(tw, "Assigned\t%.0f\n", s.Assigned)
	fmt.Fprintf(tw, "Completed\t%.0f\n", s.Completed)
	fmt.Fprintf(tw, "Preempted\t%.0f\n", s.Preempted)
	fmt.Fprintf(tw, "Queue depth\t%.0f\n", s.QueueDepth)
	fmt.Fprintf(tw, "Busy agents\t%.0f\n", s.BusyAgents)
	fmt.Fprintf(tw, "Avg wait\t%s\n", s.AvgWait.Round(time.Millisecond))
	fmt.Fprintf(tw, "Avg handle\t%s\n", s.AvgHandle.Round(time.Millisecond))

	tiers := make([]string, 0, len(s.ByPriority))
	for tier := range s.ByPriority {
		tiers = append(tiers, tier)
	}
	sort.Strings(tiers)
	for _, tier := range tiers {
		fmt.Fprintf(tw, "Submitted %s\t%.0f\n", tier, s.ByPriority[tier])
	}
	tw.Flush()
}

func formatClock(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("15:04:05")
}

func callSnapshots(calls []types.Call) []types.CallSnapshot {
	out := make([]types.CallSnapshot, 0, len(calls))
	for _, c := range calls {
		out = append(out, types.CallSnapshot{
			ID:          c.ID,
			Priority:    c.Priority,
			CallerName:  c.CallerName,
			PhoneNumber: c.PhoneNumber,
			Duration:    c.Duration,
			EnqueuedAt:  c.EnqueuedAt,
		})
	}
	return out
}

func agentSnapshots(records []types.AgentRecord) []types.AgentSnapshot {
	out := make([]types.AgentSnapshot, 0, len(records))
	for _, r := range records {
		out = append(out, types.AgentSnapshot(r))
	}
	return out
}
