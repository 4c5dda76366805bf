// Package jsonfile persists the source ledger and stage artifacts as JSON
// files on the local filesystem.
//
// Writes go to a temporary file in the same directory and are renamed into
// place, so a crash never leaves a half-written ledger or artifact.
package jsonfile
