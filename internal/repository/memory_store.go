package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/domain"
)

// MemoryStore is an in-process Store used when PostgreSQL is disabled and in
// tests. It enforces the same unique keys as the SQL schema. Atomic holds a
// per-key lock and undoes the unit's writes when fn fails.
type MemoryStore struct {
	mu     sync.Mutex
	tables map[string]*memTable

	locksMu sync.Mutex
	locks   map[string]chan struct{}
}

type memTable struct {
	schema  *tableSchema
	rows    map[int64]Record // internal row id -> row
	nextRow int64
	nextID  int64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		tables: make(map[string]*memTable, len(tables)),
		locks:  make(map[string]chan struct{}),
	}
	for name, schema := range tables {
		s.tables[name] = &memTable{schema: schema, rows: make(map[int64]Record), nextID: 1}
	}
	return s
}

func (s *MemoryStore) Get(ctx context.Context, l Lookup) (Result, error) {
	return s.get(ctx, l)
}

func (s *MemoryStore) Insert(ctx context.Context, table string, values []Predicate) (int64, error) {
	id, _, err := s.insert(ctx, table, values)
	return id, err
}

func (s *MemoryStore) Update(ctx context.Context, table string, key []Predicate, values []Predicate) error {
	_, err := s.update(ctx, table, key, values)
	return err
}

func (s *MemoryStore) Delete(ctx context.Context, table string, where []Predicate) (int64, error) {
	removed, err := s.delete(ctx, table, where)
	return int64(len(removed)), err
}

func (s *MemoryStore) Max(ctx context.Context, table, column string, where []Predicate) (int64, bool, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, false, err
	}
	t, err := lookupTable(table)
	if err != nil {
		return 0, false, err
	}
	if err := checkColumns(t, []string{column}); err != nil {
		return 0, false, err
	}
	if err := checkPredicates(t, where); err != nil {
		return 0, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		top   int64
		found bool
	)
	for _, row := range s.tables[table].rows {
		if !matches(row, where) || row[column] == nil {
			continue
		}
		if v := row.Int64(column); !found || v > top {
			top, found = v, true
		}
	}
	return top, found, nil
}

// Atomic serializes units of work on key. Writes made through the Tables
// passed to fn are reverted if fn returns an error.
func (s *MemoryStore) Atomic(ctx context.Context, key LockKey, fn func(Tables) error) error {
	lock := s.lockFor(key.String())
	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		return ctxErr(ctx)
	}
	defer func() { <-lock }()

	tx := &memTx{store: s}
	if err := fn(tx); err != nil {
		tx.rollback()
		return err
	}
	return nil
}

func (s *MemoryStore) lockFor(key string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[key]
	if !ok {
		l = make(chan struct{}, 1)
		s.locks[key] = l
	}
	return l
}

func (s *MemoryStore) get(ctx context.Context, l Lookup) (Result, error) {
	if err := ctxErr(ctx); err != nil {
		return Result{}, err
	}
	t, err := lookupTable(l.Table)
	if err != nil {
		return Result{}, err
	}
	cols := l.Columns
	if len(cols) == 0 {
		cols = t.columns
	}
	if err := checkColumns(t, cols); err != nil {
		return Result{}, err
	}
	if err := checkPredicates(t, l.Where); err != nil {
		return Result{}, err
	}
	orderBy := l.OrderBy
	if orderBy == "" && t.hasID {
		orderBy = "id"
	}
	if orderBy != "" && !t.hasColumn(orderBy) {
		return Result{}, domain.E(domain.KindValidation, "unknown column "+orderBy+" on "+t.name)
	}

	s.mu.Lock()
	mt := s.tables[l.Table]
	var rowIDs []int64
	for rid, row := range mt.rows {
		if matches(row, l.Where) {
			rowIDs = append(rowIDs, rid)
		}
	}
	sort.Slice(rowIDs, func(i, j int) bool { return rowIDs[i] < rowIDs[j] })
	matched := make([]Record, 0, len(rowIDs))
	for _, rid := range rowIDs {
		matched = append(matched, mt.rows[rid].clone())
	}
	s.mu.Unlock()

	if orderBy != "" {
		sort.SliceStable(matched, func(i, j int) bool { return less(matched[i][orderBy], matched[j][orderBy]) })
	}
	if l.Single && len(matched) > 1 {
		matched = matched[:1]
	}

	var res Result
	for _, row := range matched {
		out := make(Record, len(cols))
		for _, c := range cols {
			out[c] = row[c]
		}
		res.Rows = append(res.Rows, out)
	}
	return res, nil
}

func (s *MemoryStore) insert(ctx context.Context, table string, values []Predicate) (int64, int64, error) {
	if err := ctxErr(ctx); err != nil {
		return 0, 0, err
	}
	t, err := lookupTable(table)
	if err != nil {
		return 0, 0, err
	}
	if len(values) == 0 {
		return 0, 0, domain.E(domain.KindValidation, "no columns to insert")
	}
	if err := checkPredicates(t, values); err != nil {
		return 0, 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mt := s.tables[table]
	row := make(Record, len(t.columns))
	for _, c := range t.columns {
		row[c] = nil
	}
	for _, v := range values {
		row[v.Column] = normalizeValue(v.Value)
	}
	if t.hasID && row["id"] == nil {
		row["id"] = mt.nextID
	}
	if err := mt.checkUnique(row, -1); err != nil {
		return 0, 0, err
	}

	var id int64
	if t.hasID {
		id = row.Int64("id")
		if id >= mt.nextID {
			mt.nextID = id + 1
		}
	}
	mt.nextRow++
	mt.rows[mt.nextRow] = row
	return id, mt.nextRow, nil
}

// update returns the previous contents of every changed row.
func (s *MemoryStore) update(ctx context.Context, table string, key []Predicate, values []Predicate) (map[int64]Record, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	t, err := lookupTable(table)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, domain.E(domain.KindValidation, "no columns to update")
	}
	if len(key) == 0 {
		return nil, domain.E(domain.KindValidation, "update requires a key")
	}
	if err := checkPredicates(t, values); err != nil {
		return nil, err
	}
	if err := checkPredicates(t, key); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mt := s.tables[table]
	next := make(map[int64]Record)
	for rid, row := range mt.rows {
		if !matches(row, key) {
			continue
		}
		updated := row.clone()
		for _, v := range values {
			updated[v.Column] = normalizeValue(v.Value)
		}
		next[rid] = updated
	}
	if len(next) == 0 {
		return nil, domain.ErrNotFound
	}
	for rid, row := range next {
		if err := mt.checkUnique(row, rid); err != nil {
			return nil, err
		}
	}

	prev := make(map[int64]Record, len(next))
	for rid, row := range next {
		prev[rid] = mt.rows[rid]
		mt.rows[rid] = row
	}
	return prev, nil
}

// delete returns the removed rows keyed by internal row id.
func (s *MemoryStore) delete(ctx context.Context, table string, where []Predicate) (map[int64]Record, error) {
	if err := ctxErr(ctx); err != nil {
		return nil, err
	}
	t, err := lookupTable(table)
	if err != nil {
		return nil, err
	}
	if len(where) == 0 {
		return nil, domain.E(domain.KindValidation, "delete requires at least one predicate")
	}
	if err := checkPredicates(t, where); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	mt := s.tables[table]
	removed := make(map[int64]Record)
	for rid, row := range mt.rows {
		if matches(row, where) {
			removed[rid] = row
			delete(mt.rows, rid)
		}
	}
	return removed, nil
}

// checkUnique reports a conflict if row collides with any other row on a
// unique key. skip is the row's own internal id on update.
func (mt *memTable) checkUnique(row Record, skip int64) error {
	for _, key := range mt.schema.uniques {
		for rid, other := range mt.rows {
			if rid == skip {
				continue
			}
			same := true
			for _, c := range key {
				if row[c] == nil || !valuesEqual(row[c], other[c]) {
					same = false
					break
				}
			}
			if same {
				return domain.E(domain.KindConflict, "conflict")
			}
		}
	}
	return nil
}

// memTx records how to revert each write made inside Atomic.
type memTx struct {
	store *MemoryStore
	undo  []func()
}

func (tx *memTx) Get(ctx context.Context, l Lookup) (Result, error) {
	return tx.store.get(ctx, l)
}

func (tx *memTx) Insert(ctx context.Context, table string, values []Predicate) (int64, error) {
	id, rid, err := tx.store.insert(ctx, table, values)
	if err != nil {
		return 0, err
	}
	tx.undo = append(tx.undo, func() { delete(tx.store.tables[table].rows, rid) })
	return id, nil
}

func (tx *memTx) Update(ctx context.Context, table string, key []Predicate, values []Predicate) error {
	prev, err := tx.store.update(ctx, table, key, values)
	if err != nil {
		return err
	}
	tx.undo = append(tx.undo, func() {
		for rid, row := range prev {
			tx.store.tables[table].rows[rid] = row
		}
	})
	return nil
}

func (tx *memTx) Delete(ctx context.Context, table string, where []Predicate) (int64, error) {
	removed, err := tx.store.delete(ctx, table, where)
	if err != nil {
		return 0, err
	}
	tx.undo = append(tx.undo, func() {
		for rid, row := range removed {
			tx.store.tables[table].rows[rid] = row
		}
	})
	return int64(len(removed)), nil
}

func (tx *memTx) Max(ctx context.Context, table, column string, where []Predicate) (int64, bool, error) {
	return tx.store.Max(ctx, table, column, where)
}

func (tx *memTx) rollback() {
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	for i := len(tx.undo) - 1; i >= 0; i-- {
		tx.undo[i]()
	}
	tx.undo = nil
}

func matches(row Record, where []Predicate) bool {
	for _, p := range where {
		if !valuesEqual(row[p.Column], p.Value) {
			return false
		}
	}
	return true
}

func less(a, b any) bool {
	switch x := a.(type) {
	case int64:
		y, ok := b.(int64)
		return ok && x < y
	case string:
		y, ok := b.(string)
		return ok && x < y
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Before(y)
	}
	return false
}

func ctxErr(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return classify(ctx, err)
	}
	return nil
}
