package repository

import (
	"context"
	"hash/fnv"
	"strconv"
)

// Predicate is a single "column = value" condition. Lists of predicates are
// joined with AND; there are no ranges, ORs or joins.
type Predicate struct {
	Column string
	Value  any
}

// Eq builds a Predicate.
func Eq(column string, value any) Predicate {
	return Predicate{Column: column, Value: value}
}

// Lookup describes a keyed read.
type Lookup struct {
	Table   string
	Where   []Predicate
	Columns []string // empty: every column of the table
	Single  bool     // at most one row
	OrderBy string   // ascending; empty: primary id when the table has one
}

// Result of a keyed read. A lookup that matched nothing has Rows == nil:
// callers test Found() instead of comparing against an empty collection.
type Result struct {
	Rows []Record
}

func (r Result) Found() bool { return len(r.Rows) > 0 }

// One returns the first row, if any.
func (r Result) One() (Record, bool) {
	if len(r.Rows) == 0 {
		return nil, false
	}
	return r.Rows[0], true
}

// Tables is the parameterized get/insert/update/delete surface over the
// relational store. Every value is sent as a bound parameter.
type Tables interface {
	// Get returns the matching rows, or an empty Result when nothing matched.
	Get(ctx context.Context, l Lookup) (Result, error)
	// Insert adds one row and returns its generated id (0 for tables without one).
	Insert(ctx context.Context, table string, values []Predicate) (int64, error)
	// Update sets values on the rows matching key. No values or no key is a
	// validation failure; no matching row is ErrNotFound.
	Update(ctx context.Context, table string, key []Predicate, values []Predicate) error
	// Delete removes matching rows and reports how many. An empty predicate
	// list is refused so a caller can never wipe a table by accident.
	Delete(ctx context.Context, table string, where []Predicate) (int64, error)
	// Max returns the largest integer value of column among matching rows.
	Max(ctx context.Context, table, column string, where []Predicate) (int64, bool, error)
}

// Store adds atomic, per-key serialized units of work to Tables.
type Store interface {
	Tables
	// Atomic runs fn as one transaction that holds an exclusive lock on key
	// for its whole duration. Contention failures are retried a bounded
	// number of times; any other error rolls back and is returned.
	Atomic(ctx context.Context, key LockKey, fn func(Tables) error) error
}

// LockKey names the entity a check-then-act write is serialized on.
type LockKey struct {
	Namespace string
	ID        int64
}

const (
	LockPairing          = "pairing"
	LockTrip             = "trip"
	LockConversationPair = "conversation-pair"
	LockConversation     = "conversation"
)

func (k LockKey) String() string {
	return k.Namespace + ":" + strconv.FormatInt(k.ID, 10)
}

// advisoryID maps the key onto the bigint space of pg advisory locks.
// A collision only serializes two unrelated keys.
func (k LockKey) advisoryID() int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(k.String()))
	return int64(h.Sum64())
}
