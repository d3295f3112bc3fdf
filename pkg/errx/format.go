package errx

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// maxChainEntries bounds DebugString on cyclic or very deep chains.
const maxChainEntries = 64

// UserString returns the message that should be shown to a user.
func UserString(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return err.Error()
}

// DebugString returns one numbered line per error in the chain, with code,
// description, message and context for *Error entries.
func DebugString(err error) string {
	if err == nil {
		return ""
	}
	lines := make([]string, 0, 4)
	for i, item := range flattenChain(err) {
		lines = append(lines, debugLine(i+1, item))
	}
	return strings.Join(lines, "\n")
}

func debugLine(n int, err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d: %T: %s", n, err, err.Error())
	typed, ok := err.(*Error)
	if !ok {
		return b.String()
	}
	if typed.code != "" {
		fmt.Fprintf(&b, " | code=%s", typed.code)
	}
	if typed.description != "" {
		fmt.Fprintf(&b, " | description=%q", typed.description)
	}
	if typed.message != "" {
		fmt.Fprintf(&b, " | message=%q", typed.message)
	}
	if len(typed.context) > 0 {
		fmt.Fprintf(&b, " | context={%s}", formatContext(typed.context))
	}
	return b.String()
}

// flattenChain walks the chain breadth first so errors.Join branches are kept.
func flattenChain(err error) []error {
	var out []error
	queue := []error{err}
	for len(queue) > 0 && len(out) < maxChainEntries {
		current := queue[0]
		queue = queue[1:]
		if current == nil {
			continue
		}
		out = append(out, current)
		queue = append(queue, unwrapAll(current)...)
	}
	return out
}

func unwrapAll(err error) []error {
	switch unwrapped := err.(type) {
	case interface{ Unwrap() []error }:
		return unwrapped.Unwrap()
	case interface{ Unwrap() error }:
		if next := unwrapped.Unwrap(); next != nil {
			return []error{next}
		}
	}
	return nil
}

func formatContext(ctx map[string]any) string {
	keys := make([]string, 0, len(ctx))
	for key := range ctx {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", key, ctx[key]))
	}
	return strings.Join(parts, ", ")
}
