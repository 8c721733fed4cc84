package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kiranshivaraju/postpilot/pkg/models"
)

// historyShown bounds the history lines printed by status.
const historyShown = 10

var statusOrder = []models.JobStatus{
	models.JobStatusIdle,
	models.JobStatusRunning,
	models.JobStatusSucceeded,
	models.JobStatusFailed,
	models.JobStatusPaused,
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04 MST")
}

func printReport(w io.Writer, r models.RunReport) {
	fmt.Fprintf(w, "Run %s: %s\n", r.RunID, r.Outcome())
	fmt.Fprintf(w, "  Topic: %s (%s)\n", r.Topic, r.ContentType)
	if r.Provider != "" {
		fmt.Fprintf(w, "  Provider: %s\n", r.Provider)
	}
	fmt.Fprintf(w, "  Sources: %d\n", r.Sources)
	if r.PostID != "" {
		fmt.Fprintf(w, "  Post: %s\n", r.PostID)
	}
	if reason := r.Reason(); reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", reason)
	}
	for _, st := range r.Stages {
		line := fmt.Sprintf("  %-13s %8s  attempts=%d", st.Stage, st.Duration.Round(time.Millisecond), st.Attempts)
		if st.Err != "" {
			line += "  error=" + st.Err
		}
		fmt.Fprintln(w, line)
	}
}

func printJobs(w io.Writer, jobs []*models.Job) {
	if len(jobs) == 0 {
		fmt.Fprintln(w, "No jobs found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTOPIC\tSCHEDULE\tTYPE\tSTATUS\tNEXT RUN\tLAST RESULT")
	for _, j := range jobs {
		ct := string(j.ContentType)
		if ct == "" {
			ct = "rotating"
		}
		last := "-"
		if e, ok := j.LastRun(); ok {
			last = string(e.Outcome)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			j.ID, j.Topic, j.Schedule, ct, j.Status, formatTime(j.NextRun), last)
	}
	_ = tw.Flush()
}

func printJob(w io.Writer, j *models.Job) {
	fmt.Fprintf(w, "Job: %s\n", j.ID)
	fmt.Fprintf(w, "  Topic: %s\n", j.Topic)
	if len(j.Topics) > 0 {
		fmt.Fprintf(w, "  Rotation: %s\n", strings.Join(j.Topics, ", "))
	}
	fmt.Fprintf(w, "  Schedule: %s\n", j.Schedule)
	if j.ContentType != "" {
		fmt.Fprintf(w, "  Type: %s\n", j.ContentType)
	}
	fmt.Fprintf(w, "  Status: %s\n", j.Status)
	fmt.Fprintf(w, "  Next run: %s\n", formatTime(j.NextRun))
	if j.LastError != "" {
		fmt.Fprintf(w, "  Last error: %s\n", j.LastError)
	}

	if len(j.History) == 0 {
		fmt.Fprintln(w, "  History: none")
		return
	}
	fmt.Fprintln(w, "  History:")
	history := j.History
	if len(history) > historyShown {
		history = history[len(history)-historyShown:]
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i := len(history) - 1; i >= 0; i-- {
		e := history[i]
		detail := e.Reason
		if e.PostID != "" {
			detail = strings.TrimSpace("post " + e.PostID + " " + detail)
		}
		fmt.Fprintf(tw, "    %s\t%s\t%s\t%s\t%s\n", formatTime(e.At), e.Outcome, e.Topic, e.Provider, detail)
	}
	_ = tw.Flush()
}

func printCounts(w io.Writer, counts map[models.JobStatus]int64) {
	var total int64
	for _, n := range counts {
		total += n
	}
	fmt.Fprintf(w, "Jobs: %d\n", total)
	for _, st := range statusOrder {
		if n := counts[st]; n > 0 {
			fmt.Fprintf(w, "  %-10s %d\n", st, n)
		}
	}
}
