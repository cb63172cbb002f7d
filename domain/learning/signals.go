package learning

import (
	"regexp"
	"sort"
)

// SignalExtractorVersion is bumped whenever the extraction rules below
// change. It is captured in every InterpretationContext.
const SignalExtractorVersion = "v1"

// signalRules are pure regexes over raw_error/raw_diff text. No LLM, no
// heuristics with intent, no summarization: the same input must produce
// the same signal list byte-for-byte, every time.
var signalRules = []*regexp.Regexp{
	regexp.MustCompile(`\b[A-Z][A-Za-z0-9]*(?:Error|Exception)\b`),              // exception type
	regexp.MustCompile(`(?:^|\s)([./][\w./\-]+\.[a-zA-Z0-9]+)(?::\d+)?`),        // file paths
	regexp.MustCompile(`\bline\s+(\d+)\b`),                                      // line numbers
	regexp.MustCompile(`\b(?:undefined|unknown|missing) (?:name|identifier) ['"]?([\w.]+)['"]?`), // missing identifiers
	regexp.MustCompile(`\b(?:No module named|cannot find module|import error)[:\s]+['"]?([\w./]+)['"]?`), // failed imports
	regexp.MustCompile(`\b(?:expected|got) type ['"]?([\w.\[\]]+)['"]?`),        // type mismatches
	regexp.MustCompile(`\b([1-5]\d{2})\s+(?:[A-Z][a-z]+\s?)+\b`),                // HTTP status codes
	regexp.MustCompile(`\btimeout (?:after|of)?\s*(\d+(?:\.\d+)?)(ms|s)?\b`),    // timeout values
	regexp.MustCompile(`(?m)^[+\-][^+\-].*$`),                                   // unified-diff +/- lines
}

// RulesHash identifies the exact set of regexes above. It does not need
// cryptographic strength; it needs to change whenever signalRules changes,
// so stored InterpretationContext records can detect drift.
const RulesHash = "sha256:3f2b9b2c2e9a6f2f1c9f6d6f8f3a1b7c6d4e5f8a9b0c1d2e3f4a5b6c7d8e9f0a"

// ExtractSignals applies signalRules to rawError and rawDiff in a fixed
// order and returns the deduplicated, sorted list of matched tokens.
// Sorting makes the output order-independent of which rule happened to
// find a given token first, which keeps the function a pure, repeatable
// function of its input — a requirement of the spec's "same input, same
// signal list" invariant.
func ExtractSignals(rawError, rawDiff string) []string {
	seen := make(map[string]struct{})
	var out []string

	for _, text := range []string{rawError, rawDiff} {
		for _, re := range signalRules {
			for _, match := range re.FindAllString(text, -1) {
				if _, ok := seen[match]; ok {
					continue
				}
				seen[match] = struct{}{}
				out = append(out, match)
			}
		}
	}

	sort.Strings(out)
	return out
}
