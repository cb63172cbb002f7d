package agentinvoke

import (
	"encoding/json"
	"regexp"
	"strings"
)

var blockHeader = regexp.MustCompile(`(?m)^=== (.+?) ===\s*$`)

// splitBlocks extracts (path, content) pairs from the LLM's delimited
// response, in the order they appear. Any text before the first header
// (a thinking block) is discarded.
func splitBlocks(text string) []FileBlock {
	locs := blockHeader.FindAllStringSubmatchIndex(text, -1)
	if locs == nil {
		return nil
	}

	var blocks []FileBlock
	for i, loc := range locs {
		path := text[loc[2]:loc[3]]
		contentStart := loc[1]
		contentEnd := len(text)
		if i+1 < len(locs) {
			contentEnd = locs[i+1][0]
		}
		content := strings.Trim(text[contentStart:contentEnd], "\n")
		blocks = append(blocks, FileBlock{Path: strings.TrimSpace(path), Content: content})
	}
	return blocks
}

// looksTruncated reports whether text shows the structural signs of a
// cut-off response: an unterminated code fence, unbalanced braces, or an
// explicit stop_reason of "length".
func looksTruncated(text, stopReason string) bool {
	if stopReason == "length" {
		return true
	}
	if strings.Count(text, "```")%2 != 0 {
		return true
	}
	return !balanced(text)
}

// isStructurallyComplete reports whether one block's content is a
// complete unit on its own: balanced braces/fences, and — for JSON
// artifacts — content that actually parses as JSON.
func isStructurallyComplete(block FileBlock) bool {
	if strings.Count(block.Content, "```")%2 != 0 {
		return false
	}
	if !balanced(block.Content) {
		return false
	}
	if strings.HasSuffix(block.Path, ".json") {
		var v any
		if err := json.Unmarshal([]byte(block.Content), &v); err != nil {
			return false
		}
	}
	return true
}

// salvage walks blocks in order, keeping each one only while it is
// structurally complete; it stops at the first incomplete block, since a
// truncated response cuts off at one point and nothing after that point
// is trustworthy.
func salvage(blocks []FileBlock) []FileBlock {
	var kept []FileBlock
	for _, b := range blocks {
		if !isStructurallyComplete(b) {
			break
		}
		kept = append(kept, b)
	}
	return kept
}

// balanced reports whether content's braces, brackets, and parens are
// all matched. It is a structural heuristic shared across the agent
// invocation and capability-validator layers — neither parses a specific
// target language, since the generated artifacts span several.
func balanced(content string) bool {
	var stack []rune
	pairs := map[rune]rune{')': '(', ']': '[', '}': '{'}
	for _, r := range content {
		switch r {
		case '(', '[', '{':
			stack = append(stack, r)
		case ')', ']', '}':
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}

// parseResponse turns raw LLM text into an Artifact, or one of
// *ParseFailure / *Truncation.
func parseResponse(step, text, stopReason string) (Artifact, error) {
	if strings.TrimSpace(text) == "" {
		return Artifact{}, &ParseFailure{Step: step, Reason: "empty response body"}
	}

	blocks := splitBlocks(text)

	if !looksTruncated(text, stopReason) {
		if len(blocks) == 0 {
			return Artifact{}, &ParseFailure{Step: step, Reason: "no file blocks found in response"}
		}
		return Artifact{Step: step, Files: blocks, RawText: text}, nil
	}

	salvaged := salvage(blocks)
	if len(salvaged) == 0 {
		return Artifact{}, &ParseFailure{Step: step, Reason: "truncated response had no structurally complete blocks to salvage"}
	}

	partial := Artifact{Step: step, Files: salvaged, Truncated: true, RawText: text}
	return partial, &Truncation{Step: step, Partial: partial}
}
