package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/dossier/internal/workflow"
)

// newWorkflowCmd creates the workflow command group
func newWorkflowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "workflow",
		Aliases: []string{"wf"},
		Short:   "Submit and decide document approval workflows",
	}
	cmd.AddCommand(newWorkflowStartCmd())
	cmd.AddCommand(newWorkflowShowCmd())
	cmd.AddCommand(newWorkflowListCmd())
	cmd.AddCommand(newWorkflowApproveCmd())
	cmd.AddCommand(newWorkflowRejectCmd())
	cmd.AddCommand(newWorkflowEscalateCmd())
	cmd.AddCommand(newWorkflowCancelCmd())
	cmd.AddCommand(newWorkflowHistoryCmd())
	return cmd
}

func newWorkflowStartCmd() *cobra.Command {
	var (
		req      workflow.StartRequest
		priority string
		metadata string
	)
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Submit a document for review",
		Long: `Submit a document into the approval pipeline at stage 1.

Example:
  dossier workflow start --doc INV-2041 --title "Q3 invoice" --type invoice --by alice
  dossier workflow start --doc MSA-7 --title "Master agreement" --type contract \
      --project 6f1c... --priority high --metadata '{"amount": 12000}'`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Priority = workflow.Priority(priority)
			if metadata != "" {
				req.Metadata = json.RawMessage(metadata)
			}
			return withEngine(cmd.Context(), func(e *workflow.Engine) error {
				wf, err := e.Start(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printWorkflow(cmd.OutOrStdout(), wf)
			})
		},
	}
	cmd.Flags().StringVar(&req.DocumentID, "doc", "", "document ID (required)")
	cmd.Flags().StringVar(&req.Title, "title", "", "document title (required)")
	cmd.Flags().StringVar(&req.DocumentType, "type", "", "document type used for routing (default general)")
	cmd.Flags().StringVar(&req.SubmittedBy, "by", "", "submitter ID (required)")
	cmd.Flags().StringVar(&req.ProjectID, "project", "", "project ID")
	cmd.Flags().StringVar(&req.ClientID, "client", "", "client ID (defaults to the project's client)")
	cmd.Flags().StringVar(&priority, "priority", "", "low, normal, high or urgent (default normal)")
	cmd.Flags().IntVar(&req.SLAHours, "sla-hours", 0, "per-stage SLA in hours (default from config)")
	cmd.Flags().StringVar(&metadata, "metadata", "", "document metadata as a JSON object")
	return cmd
}

func newWorkflowShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <workflow-id>",
		Short: "Show a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(e *workflow.Engine) error {
				wf, err := e.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printWorkflow(cmd.OutOrStdout(), wf)
			})
		},
	}
}

func newWorkflowListCmd() *cobra.Command {
	var (
		f                         workflow.WorkflowFilter
		status, priority, docType string
		stage                     int
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List workflows, newest first",
		Long: `List workflows, newest first.

Example:
  dossier workflow list
  dossier workflow list --status in_review --overdue
  dossier workflow list --stage 3 --type contract`,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Status = workflow.Status(status)
			f.Priority = workflow.Priority(priority)
			f.DocumentType = docType
			f.Stage = workflow.Stage(stage)
			return withEngine(cmd.Context(), func(e *workflow.Engine) error {
				list, err := e.List(cmd.Context(), f)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOut {
					return printJSON(out, list)
				}
				if len(list) == 0 {
					fmt.Fprintln(out, "No workflows found.")
					return nil
				}
				return printWorkflowTable(out, list, time.Now())
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "in_review, approved, rejected or cancelled")
	cmd.Flags().IntVar(&stage, "stage", 0, "stage number 1-4")
	cmd.Flags().StringVar(&priority, "priority", "", "low, normal, high or urgent")
	cmd.Flags().StringVar(&docType, "type", "", "document type")
	cmd.Flags().StringVar(&f.ProjectID, "project", "", "project ID")
	cmd.Flags().StringVar(&f.ClientID, "client", "", "client ID")
	cmd.Flags().BoolVar(&f.Overdue, "overdue", false, "only in-review workflows past their due date")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "maximum number of workflows")
	cmd.Flags().IntVar(&f.Offset, "offset", 0, "number of workflows to skip")
	return cmd
}

func newDecisionCmd(use, short string, reject bool) *cobra.Command {
	var (
		req   workflow.DecisionRequest
		stage int
	)
	cmd := &cobra.Command{
		Use:   use + " <workflow-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.WorkflowID = args[0]
			req.Stage = workflow.Stage(stage)
			return withEngine(cmd.Context(), func(e *workflow.Engine) error {
				decide := e.Approve
				if reject {
					decide = e.Reject
				}
				wf, err := decide(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printWorkflow(cmd.OutOrStdout(), wf)
			})
		},
	}
	cmd.Flags().StringVar(&req.ApproverID, "approver", "", "approver ID (required)")
	cmd.Flags().IntVar(&stage, "stage", 0, "expected current stage; fails if the workflow has moved on")
	if reject {
		cmd.Flags().StringVarP(&req.Comment, "reason", "m", "", "rejection reason (required)")
	} else {
		cmd.Flags().StringVarP(&req.Comment, "comment", "m", "", "comment")
	}
	return cmd
}

func newWorkflowApproveCmd() *cobra.Command {
	return newDecisionCmd("approve", "Approve the current stage", false)
}

func newWorkflowRejectCmd() *cobra.Command {
	return newDecisionCmd("reject", "Reject the workflow at its current stage", true)
}

func newWorkflowEscalateCmd() *cobra.Command {
	var req workflow.EscalateRequest
	cmd := &cobra.Command{
		Use:   "escalate <workflow-id>",
		Short: "Raise a workflow's escalation level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.WorkflowID = args[0]
			return withEngine(cmd.Context(), func(e *workflow.Engine) error {
				wf, err := e.Escalate(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printWorkflow(cmd.OutOrStdout(), wf)
			})
		},
	}
	cmd.Flags().StringVar(&req.ActorID, "actor", "", "who is escalating (required)")
	cmd.Flags().StringVarP(&req.Reason, "reason", "m", "", "reason")
	return cmd
}

func newWorkflowCancelCmd() *cobra.Command {
	var req workflow.CancelRequest
	cmd := &cobra.Command{
		Use:   "cancel <workflow-id>",
		Short: "Withdraw a workflow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.WorkflowID = args[0]
			return withEngine(cmd.Context(), func(e *workflow.Engine) error {
				wf, err := e.Cancel(cmd.Context(), req)
				if err != nil {
					return err
				}
				return printWorkflow(cmd.OutOrStdout(), wf)
			})
		},
	}
	cmd.Flags().StringVar(&req.ActorID, "actor", "", "who is cancelling (required)")
	cmd.Flags().StringVarP(&req.Reason, "reason", "m", "", "reason")
	return cmd
}

func newWorkflowHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <workflow-id>",
		Short: "Show a workflow's audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(e *workflow.Engine) error {
				entries, err := e.History(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if jsonOut {
					return printJSON(out, entries)
				}
				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "#\tTIME\tACTION\tSTAGE\tACTOR\tCOMMENT")
				for _, h := range entries {
					fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\n",
						h.Seq, h.CreatedAt.Local().Format("2006-01-02 15:04"), h.Action, int(h.Stage), h.ActorID, h.Comment)
				}
				return w.Flush()
			})
		},
	}
}

func printWorkflow(out io.Writer, wf *workflow.Workflow) error {
	if jsonOut {
		return printJSON(out, wf)
	}
	now := time.Now()
	fmt.Fprintf(out, "%s %s\n", statusIcon(wf.Status), wf.Title)
	fmt.Fprintf(out, "  ID:        %s\n", wf.ID)
	fmt.Fprintf(out, "  Document:  %s (%s)\n", wf.DocumentID, wf.DocumentType)
	fmt.Fprintf(out, "  Status:    %s\n", wf.Status)
	fmt.Fprintf(out, "  Stage:     %s\n", stageLabel(wf.Stage))
	fmt.Fprintf(out, "  Priority:  %s\n", wf.Priority)
	if wf.Status == workflow.StatusInReview {
		fmt.Fprintf(out, "  Due:       %s (%s)\n", wf.DueAt.Local().Format("2006-01-02 15:04"), relativeDue(wf.DueAt, now))
	}
	if wf.EscalationLevel > 0 {
		fmt.Fprintf(out, "  Escalated: level %d\n", wf.EscalationLevel)
	}
	if wf.ProjectID != "" {
		fmt.Fprintf(out, "  Project:   %s\n", wf.ProjectID)
	}
	if wf.ClientID != "" {
		fmt.Fprintf(out, "  Client:    %s\n", wf.ClientID)
	}
	fmt.Fprintf(out, "  Submitted: %s by %s\n", wf.CreatedAt.Local().Format("2006-01-02 15:04"), wf.SubmittedBy)
	return nil
}

func printWorkflowTable(out io.Writer, list []*workflow.Workflow, now time.Time) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tSTAGE\tPRIORITY\tDUE\tTITLE")
	for _, wf := range list {
		due := "-"
		if wf.Status == workflow.StatusInReview {
			due = relativeDue(wf.DueAt, now)
		}
		fmt.Fprintf(w, "%s\t%s %s\t%d\t%s\t%s\t%s\n",
			wf.ID, statusIcon(wf.Status), wf.Status, int(wf.Stage), wf.Priority, due, truncate(wf.Title, 40))
	}
	return w.Flush()
}
