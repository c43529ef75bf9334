// Package persistence provides the sqlite-backed persistence slot for the
// record collection. The whole collection lives as one JSON blob under a
// single key; every save is a full replace of that slot.
package persistence
