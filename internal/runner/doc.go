// Package runner executes the external command steps that follow
// materialization. Steps run one after another in the generated project;
// a batch step fans out its commands over a bounded worker pool and waits
// for all of them. Every command's combined stdout and stderr is captured
// and tagged with its 1-based step index.
package runner
