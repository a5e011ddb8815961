// Package apperr defines the error taxonomy shared by every stage of a
// scaffold run. Each error carries a Kind (what went wrong) and a Stage
// (where in the run it happened) so the CLI can print a one-line diagnostic
// and choose an exit code without string matching.
package apperr
