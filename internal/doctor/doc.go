// Package doctor checks that the external tools a catalog depends on are
// installed and new enough. It backs the "qs doctor" command and the
// preflight warnings printed before "qs new" runs any command.
package doctor
