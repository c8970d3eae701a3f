// Package analyzer estimates the interactive input requirements of a
// submitted script without running it.
package analyzer

import "regexp"

var (
	inputCallRe = regexp.MustCompile(`\binput\s*\(`)
	loopRe      = regexp.MustCompile(`\b(for|while)\b`)
)

// Report is the result of statically inspecting a script.
type Report struct {
	InputCount int  // number of interactive input() reads found
	HasLoop    bool // whether the script contains a loop construct
}

// Analyze scans source text for interactive input reads and loop keywords.
// This is a lexical heuristic, not a parse: matches inside string literals
// or comments count, and reads hidden behind aliases or wrappers do not.
// When a loop is present the static count is unreliable and the caller is
// expected to ask the user for the true total.
func Analyze(source string) Report {
	return Report{
		InputCount: len(inputCallRe.FindAllStringIndex(source, -1)),
		HasLoop:    loopRe.MatchString(source),
	}
}
