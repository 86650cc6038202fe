package registration

import (
	"fmt"
	"sync"
)

// Logger defines the logging interface used by the Table.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Table is the process-wide set of device to hub registrations.
//
// Records keep insertion order, which is the order they are written to the
// store. Every mutation rewrites the store in full. A failed write is
// returned to the caller but the in-memory table stays authoritative.
//
// All public methods are thread-safe. Reads return copies, so callers can
// iterate a result while other requests mutate the table.
type Table struct {
	mu      sync.RWMutex
	records []Record
	store   Store
	logger  Logger
}

// NewTable creates an empty table backed by store.
// A nil store keeps the table in memory only.
func NewTable(store Store) *Table {
	return &Table{
		store:  store,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the table.
func (t *Table) SetLogger(logger Logger) {
	t.logger = logger
}

// Load replaces the table contents with the stored records.
//
// A missing or unparsable store leaves the table empty. The error is
// returned for logging only; it is never fatal.
func (t *Table) Load() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.records = nil
	if t.store == nil {
		return nil
	}

	records, err := t.store.Load()
	if err != nil {
		return err
	}
	t.records = dedupe(records)

	t.logger.Info("registrations loaded", "count", len(t.records))
	return nil
}

// dedupe keeps the last record for each key, in first-seen position.
// A hand-edited store may contain duplicates; the table never does.
func dedupe(records []Record) []Record {
	index := make(map[Key]int, len(records))
	out := make([]Record, 0, len(records))
	for _, rec := range records {
		if i, ok := index[rec.Key()]; ok {
			out[i] = rec
			continue
		}
		index[rec.Key()] = len(out)
		out = append(out, rec)
	}
	return out
}

// Find returns the index of the record with the given key.
func (t *Table) Find(device Address, edgeID EdgeID) (int, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.find(Key{Device: device, EdgeID: edgeID})
}

func (t *Table) find(key Key) (int, bool) {
	for i := range t.records {
		if t.records[i].Key() == key {
			return i, true
		}
	}
	return -1, false
}

// Upsert adds rec, or replaces the record with the same key in place.
//
// Returns:
//   - replaced: true when an existing record was overwritten
//   - error: wraps ErrStoreWrite if persisting failed (the change is kept)
func (t *Table) Upsert(rec Record) (replaced bool, err error) {
	if err := rec.Validate(); err != nil {
		return false, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if i, ok := t.find(rec.Key()); ok {
		t.records[i] = rec
		replaced = true
	} else {
		t.records = append(t.records, rec)
	}

	return replaced, t.persistLocked()
}

// Remove deletes the record with the given key.
//
// Returns ErrNotFound, without touching the store, when no record matches.
func (t *Table) Remove(device Address, edgeID EdgeID) (Record, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i, ok := t.find(Key{Device: device, EdgeID: edgeID})
	if !ok {
		return Record{}, fmt.Errorf("%w: %s edge %s", ErrNotFound, device, edgeID)
	}

	removed := t.records[i]
	t.records = append(t.records[:i], t.records[i+1:]...)

	return removed, t.persistLocked()
}

// MatchBySender returns every record whose device address matches a sender.
// Records without a device port match any sender port on their IP.
func (t *Table) MatchBySender(ip string, port int) []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var matches []Record
	for _, rec := range t.records {
		if rec.Device.MatchesSender(ip, port) {
			matches = append(matches, rec)
		}
	}
	return matches
}

// RecordsForHub returns every record bound to hub.
func (t *Table) RecordsForHub(hub Address) []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var bound []Record
	for _, rec := range t.records {
		if rec.Hub == hub {
			bound = append(bound, rec)
		}
	}
	return bound
}

// RemoveRecords deletes every record equal to one in pending and persists
// once if anything was removed.
//
// Matching is by full value, so a record that was re-registered with a
// different hub after pending was collected is left alone.
func (t *Table) RemoveRecords(pending []Record) (int, error) {
	if len(pending) == 0 {
		return 0, nil
	}

	drop := make(map[Record]struct{}, len(pending))
	for _, rec := range pending {
		drop[rec] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.records[:0]
	for _, rec := range t.records {
		if _, ok := drop[rec]; ok {
			continue
		}
		kept = append(kept, rec)
	}
	removed := len(t.records) - len(kept)
	t.records = kept

	if removed == 0 {
		return 0, nil
	}
	return removed, t.persistLocked()
}

// Snapshot returns a copy of every record in insertion order.
func (t *Table) Snapshot() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Record, len(t.records))
	copy(out, t.records)
	return out
}

// Len returns the number of registrations.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.records)
}

// persistLocked must be called with t.mu held.
func (t *Table) persistLocked() error {
	if t.store == nil {
		return nil
	}
	if err := t.store.Save(t.records); err != nil {
		t.logger.Error("saving registrations failed", "error", err)
		return err
	}
	t.logger.Debug("registrations saved", "count", len(t.records))
	return nil
}
