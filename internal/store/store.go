// Package store holds the global key/value mapping and the command
// dispatcher that reads and mutates it. The mapping itself is the
// progressive-rehash hash table of internal/hashtable — there is no
// second, separate index behind it.
package store

import (
	"github.com/rs/zerolog"

	"github.com/xgzlucario/veloxd/internal/base"
	"github.com/xgzlucario/veloxd/internal/hashtable"
	"github.com/xgzlucario/veloxd/internal/zset"
)

// EntryType tags an Entry's payload. It is set at construction and never
// changes; a handler seeing the wrong type fails with BAD_ARG instead of
// coercing.
type EntryType int

const (
	TypeString EntryType = iota
	TypeZSet
)

// Entry is one value in the global mapping.
type Entry struct {
	Key  string
	Type EntryType
	Str  string
	ZSet *zset.ZSet

	hnode *hashtable.Node[*Entry]
}

// DB is the global key/value mapping, keyed by hash of the key bytes.
type DB struct {
	table hashtable.Table[*Entry]
}

// Logger receives per-command diagnostics; it defaults to a no-op sink so
// store is usable standalone (e.g. in tests) without wiring logsink.
var Logger = zerolog.Nop()

// NewDB returns an empty mapping.
func NewDB() *DB {
	return &DB{}
}

func keyHash(key string) uint64 {
	return base.HashBytes(base.S2B(&key))
}

func (db *DB) lookup(key string) (*Entry, bool) {
	n, ok := db.table.Lookup(keyHash(key), func(e *Entry) bool { return e.Key == key })
	if !ok {
		return nil, false
	}
	return n.Value, true
}

func (db *DB) insert(e *Entry) {
	e.hnode = hashtable.NewNode(keyHash(e.Key), e)
	db.table.Insert(e.hnode)
}

func (db *DB) delete(key string) (*Entry, bool) {
	n, ok := db.table.Delete(keyHash(key), func(e *Entry) bool { return e.Key == key })
	if !ok {
		return nil, false
	}
	return n.Value, true
}

func (db *DB) forEach(fn func(*Entry) bool) {
	db.table.ForEach(func(n *hashtable.Node[*Entry]) bool { return fn(n.Value) })
}

// Size reports the number of keys currently held.
func (db *DB) Size() int {
	return db.table.Size()
}

// Rehashing reports whether the global mapping's progressive resize is
// currently underway, for metrics.
func (db *DB) Rehashing() bool {
	return db.table.Rehashing()
}
