package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kalambet/vidqa/internal/storage"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

func colorize(color, text string) string {
	if noColor {
		return text
	}
	return color + text + colorReset
}

func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorGreen, "✓ "+msg))
}

func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorRed, "✗ "+msg))
}

func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorYellow, "⚠ "+msg))
}

func printStatus(label string, format string, args ...any) {
	val := fmt.Sprintf(format, args...)
	l := colorize(colorBold, label+":")
	fmt.Fprintf(os.Stderr, "  %s %s\n", l, val)
}

func printStep(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Fprintln(os.Stderr, colorize(colorCyan, "→ "+msg))
}

func writeQA(w io.Writer, entries []storage.QAEntry) {
	for i, e := range entries {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s %s\n", colorize(colorBold, "Q:"), e.Question)
		fmt.Fprintf(w, "%s %s\n", colorize(colorCyan, "A:"), e.Answer)
		fmt.Fprintf(w, "   %s\n", e.CreatedAt.Local().Format(time.DateTime))
	}
}

func writeVideos(w io.Writer, videos []storage.VideoRecord) {
	for _, v := range videos {
		fmt.Fprintf(w, "%-14s %s  %s\n",
			v.VideoID,
			colorize(colorBold, v.Title),
			v.CreatedAt.Local().Format(time.DateTime),
		)
	}
}
