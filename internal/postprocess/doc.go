// Package postprocess transforms rendered scaffold files before they are
// written. Processors run in the order they were added and must be pure:
// the same path and content always produce the same output.
package postprocess
