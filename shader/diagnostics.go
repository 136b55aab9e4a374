package shader

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
	"golang.org/x/term"
)

// Matches "0:12:" (ANGLE, NVIDIA) and "0:12(5):" (Mesa).
var logLineRe = regexp.MustCompile(`\b\d+:(\d+)(?:\(\d+\))?:`)

// ErrorLines extracts the distinct source line numbers referenced by a
// compiler info log, in ascending order.
func ErrorLines(log string) []int {
	seen := make(map[int]bool)
	var lines []int
	for _, m := range logLineRe.FindAllStringSubmatch(log, -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 || seen[n] {
			continue
		}
		seen[n] = true
		lines = append(lines, n)
	}
	sort.Ints(lines)
	return lines
}

// Excerpt returns the lines of code around line (1-based), with a gutter
// holding line numbers and a '>' marker on the reported line.
func Excerpt(code string, line, context int, highlight bool) string {
	src := strings.Split(code, "\n")
	if line < 1 || line > len(src) {
		return ""
	}
	first := max(1, line-context)
	last := min(len(src), line+context)

	body := strings.Join(src[first-1:last], "\n")
	if highlight {
		var sb strings.Builder
		if err := quick.Highlight(&sb, body, "glsl", "terminal256", "monokai"); err == nil {
			body = sb.String()
		}
	}

	rows := strings.Split(body, "\n")
	if len(rows) > last-first+1 {
		rows = rows[:last-first+1]
	}
	var out strings.Builder
	for i, text := range rows {
		n := first + i
		marker := " "
		if n == line {
			marker = ">"
		}
		fmt.Fprintf(&out, "%s %4d | %s\n", marker, n, text)
	}
	return out.String()
}

// ColorEnabled reports whether w is a terminal that should receive ANSI colour.
func ColorEnabled(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
