// Package catalog provides the built-in "connect-templ" scaffold catalog and
// resolves user-supplied catalog files. The built-in catalog and its
// template tree are embedded into the binary.
package catalog
