package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"rommate/internal/scan"
	"rommate/internal/verify"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func groupColor(g verify.Group) string {
	switch g {
	case verify.GroupVerified:
		return ansiGreen
	case verify.GroupFailed:
		return ansiRed
	default:
		return ansiYellow
	}
}

func colorize(s, color string, enabled bool) string {
	if !enabled || color == "" {
		return s
	}
	return color + s + ansiReset
}

// resultLine is the per-file report line, coloured by verdict group.
func resultLine(r verify.Result, color bool) string {
	return colorize(scan.FormatLine(r), groupColor(r.Status.Group()), color)
}

// consoleObserver streams scan events: results to out, log lines to errOut.
type consoleObserver struct {
	out    io.Writer
	errOut io.Writer
	color  bool
}

func (o consoleObserver) OnProgress(int, int, string) {}

func (o consoleObserver) OnLog(message string) {
	fmt.Fprintln(o.errOut, colorize(message, ansiBlue, o.color))
}

func (o consoleObserver) OnResult(_ int, r verify.Result) {
	fmt.Fprintln(o.out, resultLine(r, o.color))
	for _, line := range r.Details {
		fmt.Fprintf(o.out, "    %s\n", line)
	}
}

func renderSummary(agg *scan.Aggregate) string {
	tbl := newTextTable("Status", "Files", "Group").align(alignLeft, alignRight, alignLeft)
	for _, s := range verify.Statuses {
		n := agg.Count(s)
		if n == 0 {
			continue
		}
		tbl.add(s.Label(), strconv.Itoa(n), string(s.Group()))
	}
	var b strings.Builder
	if !tbl.empty() {
		tbl.total("Total", strconv.Itoa(agg.Processed()), "")
		b.WriteString(tbl.String())
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "Verified: %d  Needs attention: %d  Failed: %d  (%d of %d file(s) in %s)\n",
		agg.Verified, agg.Attention, agg.Failed, agg.Processed(), agg.Candidates, formatDuration(agg.Duration()))
	if len(agg.Excluded) > 0 {
		fmt.Fprintf(&b, "Track files covered by CUE sheets: %d\n", len(agg.Excluded))
	}
	if agg.Canceled {
		b.WriteString("Scan canceled before all files were processed\n")
	}
	return b.String()
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
