// Package errors derives low-cardinality error labels for metrics and logs.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// Classify maps an error to a stable, tag-safe name. The innermost wrapped
// error wins, since outer layers usually only add call-site context.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	for {
		inner := stderrors.Unwrap(err)
		if inner == nil {
			break
		}
		err = inner
	}

	return tagName(err)
}

// tagName renders the error's concrete type as a snake_case-ish label.
// errorString (the errors.New type) carries no signal beyond its message,
// so it collapses to a generic bucket.
func tagName(err error) string {
	name := fmt.Sprintf("%T", err)
	name = strings.TrimLeft(name, "*")
	name = strings.ToLower(strings.ReplaceAll(name, ".", "_"))

	switch name {
	case "", "errors_errorstring":
		return "error"
	}
	return name
}
