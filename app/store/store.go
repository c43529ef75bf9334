// Package store owns the in-memory record collection and mirrors it to the
// persistence slot after every mutation. Operations never surface storage
// failures to callers; a broken slot degrades to an empty collection on load
// and to a logged warning on save.
package store

import (
	"strings"
	"sync"
	"time"

	log "github.com/go-pkgz/lgr"
)

// Persister is the storage collaborator, a single named slot holding the
// serialized form of the full collection. Save is a full replace.
type Persister interface {
	Load() ([]JobRecord, error)
	Save(records []JobRecord) error
}

// Store holds the ordered record collection, newest first. Safe for concurrent
// use; every mutation builds a fresh slice and overwrites the persistence slot.
type Store struct {
	mu        sync.RWMutex
	records   []JobRecord
	persister Persister
}

// Totals is the summary view of the collection
type Totals struct {
	Total     int `json:"total"`
	Applied   int `json:"applied"`
	Unapplied int `json:"unapplied"`
}

// NewStore creates a store and loads the collection from the persister once.
// Missing or corrupt stored data starts the collection empty.
func NewStore(p Persister) *Store {
	s := &Store{persister: p}
	recs, err := p.Load()
	if err != nil {
		log.Printf("[WARN] failed to load records, starting empty: %v", err)
		recs = nil
	}
	s.records = recs
	return s
}

// Add creates a record from trimmed inputs, stamps the current time and a fresh
// id, and prepends it. Returns false without touching the collection when the
// trimmed company or role is empty.
func (s *Store) Add(company, role, link, notes string, applied bool) (JobRecord, bool) {
	company, role = strings.TrimSpace(company), strings.TrimSpace(role)
	if company == "" || role == "" {
		return JobRecord{}, false
	}

	rec := JobRecord{
		ID:      NewID(),
		Company: company,
		Role:    role,
		Link:    strings.TrimSpace(link),
		Notes:   strings.TrimSpace(notes),
		Applied: applied,
		Date:    time.Now(),
	}

	s.mu.Lock()
	updated := make([]JobRecord, 0, len(s.records)+1)
	updated = append(updated, rec)
	updated = append(updated, s.records...)
	s.records = updated
	s.mu.Unlock()

	s.persist()
	return rec, true
}

// ToggleApplied flips the applied flag on the record with the given id.
// Returns false and leaves the collection unchanged when the id is not found.
func (s *Store) ToggleApplied(id string) bool {
	s.mu.Lock()
	found := false
	for i, rec := range s.records {
		if rec.ID != id {
			continue
		}
		updated := make([]JobRecord, len(s.records))
		copy(updated, s.records)
		updated[i].Applied = !updated[i].Applied
		s.records = updated
		found = true
		break
	}
	s.mu.Unlock()

	if found {
		s.persist()
	}
	return found
}

// Remove deletes the record with the given id, no-op when not found
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	found := false
	for i, rec := range s.records {
		if rec.ID != id {
			continue
		}
		updated := make([]JobRecord, 0, len(s.records)-1)
		updated = append(updated, s.records[:i]...)
		updated = append(updated, s.records[i+1:]...)
		s.records = updated
		found = true
		break
	}
	s.mu.Unlock()

	if found {
		s.persist()
	}
	return found
}

// ClearAll empties the collection. Destructive and unconditional; the
// presentation layer is expected to confirm with the user first.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.records = []JobRecord{}
	s.mu.Unlock()
	s.persist()
}

// ImportBatch stamps fresh ids on the parsed records and prepends them as a
// block in one persisted step. Order inside the batch is preserved, so the
// first parsed row ends up first in the collection. Records with empty
// company or role are dropped. Returns the number of records imported.
func (s *Store) ImportBatch(parsed []JobRecord) int {
	batch := make([]JobRecord, 0, len(parsed))
	for _, rec := range parsed {
		if strings.TrimSpace(rec.Company) == "" || strings.TrimSpace(rec.Role) == "" {
			continue
		}
		rec.ID = NewID()
		batch = append(batch, rec)
	}
	if len(batch) == 0 {
		return 0
	}

	s.mu.Lock()
	updated := make([]JobRecord, 0, len(batch)+len(s.records))
	updated = append(updated, batch...)
	updated = append(updated, s.records...)
	s.records = updated
	s.mu.Unlock()

	s.persist()
	return len(batch)
}

// All returns a snapshot copy of the collection in order
func (s *Store) All() []JobRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := make([]JobRecord, len(s.records))
	copy(recs, s.records)
	return recs
}

// Totals recomputes the summary counts, a pure function of the collection
func (s *Store) Totals() Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t := Totals{Total: len(s.records)}
	for _, rec := range s.records {
		if rec.Applied {
			t.Applied++
		}
	}
	t.Unapplied = t.Total - t.Applied
	return t
}

// Filtered returns records matching the search text (case-insensitive substring
// over the company+role+notes concatenation) AND the unapplied filter, in
// collection order. Empty search matches everything.
func (s *Store) Filtered(search string, onlyUnapplied bool) []JobRecord {
	q := strings.ToLower(search)

	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]JobRecord, 0, len(s.records))
	for _, rec := range s.records {
		if onlyUnapplied && rec.Applied {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(rec.Company+rec.Role+rec.Notes), q) {
			continue
		}
		res = append(res, rec)
	}
	return res
}

// persist saves the full collection, overwriting the slot. Failures are logged
// and absorbed, the in-memory collection stays authoritative.
func (s *Store) persist() {
	s.mu.RLock()
	recs := make([]JobRecord, len(s.records))
	copy(recs, s.records)
	s.mu.RUnlock()

	if err := s.persister.Save(recs); err != nil {
		log.Printf("[WARN] failed to persist records: %v", err)
	}
}
