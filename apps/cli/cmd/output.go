package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/abdul-hamid-achik/hitsend/packages/metrics"
	"github.com/abdul-hamid-achik/hitsend/packages/models"
	"github.com/fatih/color"
)

// statusColor picks the color for a status code.
func statusColor(status int) *color.Color {
	switch {
	case status >= 500:
		return color.New(color.FgRed, color.Bold)
	case status >= 400:
		return color.New(color.FgRed)
	case status >= 300:
		return color.New(color.FgYellow)
	case status >= 200:
		return color.New(color.FgGreen)
	}
	return color.New(color.FgWhite)
}

// printResponse writes a one-line summary, optionally followed by the
// response headers and body.
func printResponse(w io.Writer, resp models.HttpResponse, headers, body bool) error {
	red := color.New(color.FgRed).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()
	cyan := color.New(color.FgCyan).SprintFunc()

	if resp.Status > 0 {
		status := statusColor(resp.Status).Sprintf("%d %s", resp.Status, resp.StatusReason)
		fmt.Fprintf(w, "%s %s  %s  %s\n", resp.Version, status, dim(fmt.Sprintf("%dms", resp.Elapsed)), dim(formatBytes(resp.ContentLength)))
	}
	if resp.Error != "" {
		fmt.Fprintf(w, "%s %s\n", red("error:"), resp.Error)
	}

	if headers {
		for _, h := range resp.Headers {
			fmt.Fprintf(w, "%s: %s\n", cyan(h.Name), h.Value)
		}
		if len(resp.Headers) > 0 {
			fmt.Fprintln(w)
		}
	}

	if body && resp.BodyPath != "" {
		f, err := os.Open(resp.BodyPath)
		if err != nil {
			return fmt.Errorf("cannot open response body: %w", err)
		}
		defer f.Close()
		if _, err := io.Copy(w, f); err != nil {
			return err
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "%s %s\n", dim("response"), resp.ID)
	return nil
}

func formatBytes(n *int64) string {
	if n == nil {
		return "-"
	}
	const unit = 1024
	size := *n
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for m := size / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func printLatency(w io.Writer, s metrics.LatencySummary) {
	bold := color.New(color.Bold).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	ms := func(d time.Duration) string {
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	}

	failed := fmt.Sprint(s.Errors)
	if s.Errors > 0 {
		failed = red(failed)
	}
	fmt.Fprintf(w, "\n%s %d sends, %s errors\n", bold("latency:"), s.Count, failed)
	fmt.Fprintf(w, "  min %s  mean %s  p50 %s  p95 %s  p99 %s  max %s\n",
		ms(s.Min), ms(s.Mean), ms(s.P50), ms(s.P95), ms(s.P99), ms(s.Max))
}
