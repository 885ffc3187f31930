// Package thinking splits a model's delimited reasoning segment out of a
// streamed completion.
//
// Deltas arrive in arbitrary fragment sizes, so the open and close tags may
// straddle any number of chunk boundaries. Step is a pure reducer over an
// explicit State: callers thread the returned State into the next call, which
// keeps the logic testable without a live stream.
package thinking

import "strings"

const (
	// OpenTag starts the reasoning segment.
	OpenTag = "<think>"

	// CloseTag ends the reasoning segment.
	CloseTag = "</think>"
)

// Kind identifies which output channel an Update belongs to.
type Kind int

const (
	// KindThinking replaces the displayed reasoning text wholesale.
	KindThinking Kind = iota

	// KindContent is appended to the accumulated answer text.
	KindContent
)

func (k Kind) String() string {
	switch k {
	case KindThinking:
		return "thinking"
	case KindContent:
		return "content"
	default:
		return "unknown"
	}
}

// Update is a single emission from Step.
type Update struct {
	Kind Kind
	Text string
}

// State is the reducer's resumable state between deltas.
type State struct {
	// Buffer holds text seen since the last emitted boundary while an open
	// tag is waiting for its close tag.
	Buffer string

	// LastThinking is the most recently emitted reasoning text.
	LastThinking string
}

// Step folds one delta into state. Only the first complete tag pair in the
// buffered text is recognized; any later pair is passed through as content.
//
// Text that ends in a proper prefix of OpenTag (for example "<thi") is held
// back until the next delta decides whether it opens a tag.
func Step(state State, delta string) (State, []Update) {
	full := state.Buffer + delta

	if start, end, ok := findPair(full); ok {
		thought := strings.TrimSpace(full[start+len(OpenTag) : end])
		remaining := strings.TrimSpace(full[:start] + full[end+len(CloseTag):])
		state.Buffer = ""

		var updates []Update
		if thought != "" && thought != state.LastThinking {
			state.LastThinking = thought
			updates = append(updates, Update{Kind: KindThinking, Text: thought})
		}
		if remaining != "" {
			updates = append(updates, Update{Kind: KindContent, Text: remaining})
		}
		return state, updates
	}

	if strings.Contains(full, OpenTag) {
		state.Buffer = full
		return state, nil
	}

	cut := len(full) - partialOpenSuffix(full)
	state.Buffer = full[cut:]
	if content := strings.TrimSpace(full[:cut]); content != "" {
		return state, []Update{{Kind: KindContent, Text: content}}
	}
	return state, nil
}

// Flush drains whatever Step is still holding once the stream has ended.
// An unclosed reasoning segment is emitted as thinking, with any text before
// its open tag emitted as content.
func Flush(state State) (State, []Update) {
	full := state.Buffer
	state.Buffer = ""

	var updates []Update
	before, after, found := strings.Cut(full, OpenTag)
	if content := strings.TrimSpace(before); content != "" {
		updates = append(updates, Update{Kind: KindContent, Text: content})
	}
	if !found {
		return state, updates
	}

	if thought := strings.TrimSpace(after); thought != "" && thought != state.LastThinking {
		state.LastThinking = thought
		updates = append(updates, Update{Kind: KindThinking, Text: thought})
	}
	return state, updates
}

// findPair locates the first open tag and the first close tag after it.
func findPair(s string) (start, end int, ok bool) {
	start = strings.Index(s, OpenTag)
	if start < 0 {
		return 0, 0, false
	}

	rel := strings.Index(s[start+len(OpenTag):], CloseTag)
	if rel < 0 {
		return 0, 0, false
	}

	return start, start + len(OpenTag) + rel, true
}

// partialOpenSuffix returns the length of the longest suffix of s that is a
// proper prefix of OpenTag.
func partialOpenSuffix(s string) int {
	for n := min(len(OpenTag)-1, len(s)); n > 0; n-- {
		if strings.HasSuffix(s, OpenTag[:n]) {
			return n
		}
	}
	return 0
}
