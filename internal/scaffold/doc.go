// Package scaffold turns a project name and variant into a concrete project.
// Load validates the user's input into an immutable ScaffoldSpec, the
// Materializer renders the selected catalog entries and writes them under
// <root>/<moduleName>, and Plan renders the catalog's command steps for the
// runner. Every template is rendered before anything is written, so an
// authoring defect never leaves a half-written project behind.
package scaffold
