// Package kvstore persists string key-value pairs in SQLite. Data written
// through it survives session teardown and process restarts.
package kvstore
