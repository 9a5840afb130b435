package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/dossier/internal/workflow"
)

// newQueueCmd creates the queue command
func newQueueCmd() *cobra.Command {
	var (
		f        workflow.QueueFilter
		sortBy   string
		priority string
		stage    int
	)
	cmd := &cobra.Command{
		Use:   "queue <approver-id>",
		Short: "Show an approver's pending approvals",
		Long: `Show the pending approvals assigned to an approver, most urgent first.

Urgency combines priority, escalation level and time to (or past) the due
date. Use --sort to order by due date, priority or assignment time instead.

Example:
  dossier queue alice
  dossier queue alice --overdue
  dossier queue alice --sort due --due-within 24h`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f.ApproverID = args[0]
			f.Sort = workflow.QueueSort(sortBy)
			f.Priority = workflow.Priority(priority)
			f.Stage = workflow.Stage(stage)

			return withEngine(cmd.Context(), func(e *workflow.Engine) error {
				items, err := e.Queue(cmd.Context(), f)
				if err != nil {
					return err
				}
				summary, err := e.Summary(cmd.Context(), f.ApproverID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOut {
					return printJSON(out, map[string]any{"summary": summary, "items": items})
				}
				printQueue(out, detectTerminal(out), summary, items, time.Now())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&sortBy, "sort", "urgency", "urgency, due, priority or assigned")
	cmd.Flags().BoolVar(&f.OverdueOnly, "overdue", false, "only overdue items")
	cmd.Flags().DurationVar(&f.DueWithin, "due-within", 0, "only items due within this window (e.g. 24h)")
	cmd.Flags().IntVar(&stage, "stage", 0, "stage number 1-4")
	cmd.Flags().StringVar(&priority, "priority", "", "low, normal, high or urgent")
	cmd.Flags().StringVar(&f.DocumentType, "type", "", "document type")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "maximum number of items")
	return cmd
}

// printQueue renders the summary line and one row per item. Columns are
// padded by hand so styled cells keep their alignment.
func printQueue(out io.Writer, t terminal, s *workflow.QueueSummary, items []*workflow.QueueItem, now time.Time) {
	fmt.Fprintln(out, t.render(headerStyle, fmt.Sprintf("Queue for %s", s.ApproverID)))
	line := fmt.Sprintf("%d pending", s.Pending)
	if s.Overdue > 0 {
		line += ", " + t.render(overdueStyle, fmt.Sprintf("%d overdue", s.Overdue))
	}
	if s.DueSoon > 0 {
		line += ", " + t.render(soonStyle, fmt.Sprintf("%d due within 24h", s.DueSoon))
	}
	fmt.Fprintln(out, line)
	if len(s.ByStage) > 0 {
		stages := make([]int, 0, len(s.ByStage))
		for st := range s.ByStage {
			stages = append(stages, int(st))
		}
		sort.Ints(stages)
		parts := make([]string, 0, len(stages))
		for _, st := range stages {
			parts = append(parts, fmt.Sprintf("stage %d: %d", st, s.ByStage[workflow.Stage(st)]))
		}
		fmt.Fprintln(out, t.render(dimStyle, strings.Join(parts, " · ")))
	}

	if len(items) == 0 {
		fmt.Fprintln(out, "\nNothing to review.")
		return
	}

	const fixed = 6 + 2 + 7 + 2 + 8 + 2 + 14 + 2 + 12 + 2
	titleWidth := max(t.width-fixed, 20)

	fmt.Fprintln(out)
	fmt.Fprintln(out, t.render(headerStyle, fmt.Sprintf("%-6s  %-7s  %-8s  %-14s  %-12s  %s",
		"SCORE", "STAGE", "PRIORITY", "DUE", "TYPE", "TITLE")))
	for _, it := range items {
		due := fmt.Sprintf("%-14s", relativeDue(it.DueAt, now))
		switch {
		case it.Overdue:
			due = t.render(overdueStyle, due)
		case it.DueAt.Sub(now) <= 24*time.Hour:
			due = t.render(soonStyle, due)
		}
		prio := fmt.Sprintf("%-8s", it.Priority)
		if st, ok := priorityStyles[it.Priority]; ok {
			prio = t.render(st, prio)
		}
		title := truncate(it.Title, titleWidth)
		if it.EscalationLevel > 0 {
			title += t.render(overdueStyle, fmt.Sprintf(" ↑%d", it.EscalationLevel))
		}
		fmt.Fprintf(out, "%-6d  %-7d  %s  %s  %-12s  %s\n",
			it.Urgency, int(it.Stage), prio, due, truncate(it.DocumentType, 12), title)
		fmt.Fprintln(out, t.render(dimStyle, fmt.Sprintf("        %s  workflow %s", it.ID, it.WorkflowID)))
	}
}
