// Package manifest parses and validates scaffold catalogs. A catalog is a
// YAML document declaring variants, directories, file templates and the
// ordered command steps that follow materialization. Catalogs are checked
// against an embedded JSON Schema and then against the structural rules the
// schema cannot express (path containment, template references, group
// coverage).
package manifest
