package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ASCIILogo is printed at startup
const ASCIILogo = `
    ╔════════════════════════════════════════════════════════╗
    ║  ██████╗  ██████╗  ██████╗ ██╗  ██╗███╗   ███╗██╗  ██╗  ║
    ║  ██╔══██╗██╔═══██╗██╔═══██╗██║ ██╔╝████╗ ████║██║ ██╔╝  ║
    ║  ██████╔╝██║   ██║██║   ██║█████╔╝ ██╔████╔██║█████╔╝   ║
    ║  ██╔══██╗██║   ██║██║   ██║██╔═██╗ ██║╚██╔╝██║██╔═██╗   ║
    ║  ██████╔╝╚██████╔╝╚██████╔╝██║  ██╗██║ ╚═╝ ██║██║  ██╗  ║
    ║  ╚═════╝  ╚═════╝  ╚═════╝ ╚═╝  ╚═╝╚═╝     ╚═╝╚═╝  ╚═╝  ║
    ║           BOOKMARK COLLECTOR AND DOWNLOADER              ║
    ╚════════════════════════════════════════════════════════╝
`

var (
	mu      sync.Mutex
	out     io.Writer = os.Stdout
	noColor bool
)

// SetOutput redirects all printing, mainly for tests
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	out = w
}

// SetNoColor disables ANSI escapes
func SetNoColor(disabled bool) {
	mu.Lock()
	defer mu.Unlock()
	noColor = disabled
}

func printf(format string, args ...interface{}) {
	mu.Lock()
	w := out
	mu.Unlock()
	fmt.Fprintf(w, format, args...)
}

// Color functions for terminal output
var (
	Cyan    = colorize("36")
	Yellow  = colorize("33")
	Red     = colorize("31")
	Green   = colorize("32")
	Magenta = colorize("35")
	Dim     = colorize("2")
)

// colorize returns a function that wraps text with an ANSI color code
func colorize(code string) func(string) string {
	return func(text string) string {
		mu.Lock()
		plain := noColor
		mu.Unlock()
		if plain {
			return text
		}
		return "\033[" + code + "m" + text + "\033[0m"
	}
}

// PrintLogo prints the ASCII logo with color
func PrintLogo() {
	printf("%s", Cyan(ASCIILogo))
}

// PrintRule prints a titled section separator
func PrintRule(title string) {
	line := strings.Repeat("=", 60)
	printf("\n%s\n%s\n%s\n", line, Magenta(title), line)
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		printf("%s\n", Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		printf("%s\n", Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	printf("%s\n", Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(label string, value string) {
	printf("%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		printf("%s\n", Yellow(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		printf("%s\n", Yellow(msg))
	}
}

// PrintHighlight prints a highlighted message in magenta
func PrintHighlight(msg string) {
	printf("%s\n", Magenta(msg))
}
