//go:build tools
// +build tools

// Package tools documents development tool dependencies.
// These tools are installed globally via `go install` and are not tracked in go.mod
// since they are development tools, not runtime dependencies.
package tools

// Development tools (install via `go install`):
//
// golangci-lint - Lint aggregator used in CI and locally
//   Install: go install github.com/golangci/golangci-lint/cmd/golangci-lint@v1.64.8
//   Version: v1.64.8 (pinned 2025-06-15)
//   Docs: https://golangci-lint.run
//
// migrate is built in; run `quiz-pipeline-admin migrate` against a local
// database rather than installing a separate migration tool.
