package ui

import (
	"fmt"
	"io"
	"os"
)

// Output is where the print helpers write. Tests swap it for a buffer.
var Output io.Writer = os.Stdout

// Banner is the title shown when a crawl starts
const Banner = "CLUBKIT · club kit directory crawler"

// PrintBanner prints the banner with the version underneath
func PrintBanner(version string) {
	fmt.Fprintln(Output, bannerStyle.Render(Banner))
	if version != "" {
		fmt.Fprintln(Output, dimStyle.Render("  version "+version))
	}
}

// PrintError prints an error message with an optional detail
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	fmt.Fprintln(Output, errorStyle.Render("✗ "+msg))
}

// PrintSuccess prints a success message
func PrintSuccess(msg string) {
	fmt.Fprintln(Output, successStyle.Render("✓ "+msg))
}

// PrintInfo prints a label and its value
func PrintInfo(label string, value string) {
	fmt.Fprintf(Output, "%s: %s\n", labelStyle.Render(label), valueStyle.Render(value))
}

// PrintWarning prints a warning with an optional detail
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		msg = msg + ": " + fmt.Sprintf("%v", args[0])
	}
	fmt.Fprintln(Output, warningStyle.Render("! "+msg))
}

// PrintHighlight prints a highlighted message
func PrintHighlight(msg string) {
	fmt.Fprintln(Output, highlight.Render(msg))
}

// Dim renders text in the muted color
func Dim(text string) string {
	return dimStyle.Render(text)
}
