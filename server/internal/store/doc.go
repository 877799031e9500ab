// Package store holds the newest value snapshot of every source in memory
// and evicts sources that stop pushing for longer than the TTL.
package store
