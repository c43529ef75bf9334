package store

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memPersister records saves in memory
type memPersister struct {
	records   []JobRecord
	loadErr   error
	saveErr   error
	saveCalls int
}

func (p *memPersister) Load() ([]JobRecord, error) {
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	return p.records, nil
}

func (p *memPersister) Save(records []JobRecord) error {
	p.saveCalls++
	if p.saveErr != nil {
		return p.saveErr
	}
	p.records = records
	return nil
}

func TestNewStore(t *testing.T) {
	t.Run("loads existing records", func(t *testing.T) {
		p := &memPersister{records: []JobRecord{{ID: "a", Company: "Acme", Role: "Engineer"}}}
		s := NewStore(p)
		require.Len(t, s.All(), 1)
		assert.Equal(t, "Acme", s.All()[0].Company)
	})

	t.Run("load failure starts empty", func(t *testing.T) {
		p := &memPersister{loadErr: fmt.Errorf("corrupt blob")}
		s := NewStore(p)
		assert.Empty(t, s.All())
	})
}

func TestStore_Add(t *testing.T) {
	t.Run("valid input prepends one record", func(t *testing.T) {
		p := &memPersister{}
		s := NewStore(p)

		rec, ok := s.Add("Acme", "Engineer", "", "", false)
		require.True(t, ok)
		assert.NotEmpty(t, rec.ID)
		assert.Equal(t, "Acme", rec.Company)
		assert.Equal(t, "Engineer", rec.Role)
		assert.Empty(t, rec.Link)
		assert.Empty(t, rec.Notes)
		assert.False(t, rec.Applied)
		assert.WithinDuration(t, time.Now(), rec.Date, time.Second)

		require.Len(t, s.All(), 1)
		assert.Equal(t, 1, p.saveCalls, "every add persists")

		second, ok := s.Add("Globex", "Designer", "https://globex.example/jobs/1", "remote", true)
		require.True(t, ok)
		all := s.All()
		require.Len(t, all, 2)
		assert.Equal(t, second.ID, all[0].ID, "new record goes first")
		assert.Equal(t, rec.ID, all[1].ID)
	})

	t.Run("trims fields", func(t *testing.T) {
		s := NewStore(&memPersister{})
		rec, ok := s.Add("  Acme ", " Engineer\t", "  https://a.example  ", "  note ", false)
		require.True(t, ok)
		assert.Equal(t, "Acme", rec.Company)
		assert.Equal(t, "Engineer", rec.Role)
		assert.Equal(t, "https://a.example", rec.Link)
		assert.Equal(t, "note", rec.Notes)
	})

	t.Run("empty or whitespace company/role refused", func(t *testing.T) {
		p := &memPersister{}
		s := NewStore(p)
		for _, tc := range []struct{ company, role string }{
			{"", "Engineer"},
			{"Acme", ""},
			{"   ", "Engineer"},
			{"Acme", "\t "},
			{"", ""},
		} {
			_, ok := s.Add(tc.company, tc.role, "", "", false)
			assert.False(t, ok, "company=%q role=%q", tc.company, tc.role)
		}
		assert.Empty(t, s.All())
		assert.Zero(t, p.saveCalls, "refused add does not persist")
	})

	t.Run("save failure absorbed", func(t *testing.T) {
		s := NewStore(&memPersister{saveErr: fmt.Errorf("disk full")})
		_, ok := s.Add("Acme", "Engineer", "", "", false)
		require.True(t, ok)
		assert.Len(t, s.All(), 1, "in-memory collection stays authoritative")
	})
}

func TestStore_ToggleApplied(t *testing.T) {
	s := NewStore(&memPersister{})
	rec, ok := s.Add("Acme", "Engineer", "", "", false)
	require.True(t, ok)

	t.Run("toggle twice returns to original", func(t *testing.T) {
		require.True(t, s.ToggleApplied(rec.ID))
		assert.True(t, s.All()[0].Applied)
		require.True(t, s.ToggleApplied(rec.ID))
		assert.False(t, s.All()[0].Applied)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		before := s.All()
		assert.False(t, s.ToggleApplied("no-such-id"))
		assert.Equal(t, before, s.All())
	})

	t.Run("other fields untouched", func(t *testing.T) {
		require.True(t, s.ToggleApplied(rec.ID))
		got := s.All()[0]
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, rec.Company, got.Company)
		assert.Equal(t, rec.Role, got.Role)
		assert.Equal(t, rec.Date, got.Date)
	})
}

func TestStore_Remove(t *testing.T) {
	s := NewStore(&memPersister{})
	first, _ := s.Add("Acme", "Engineer", "", "", false)
	second, _ := s.Add("Globex", "Designer", "", "", false)

	t.Run("removes matching record", func(t *testing.T) {
		require.True(t, s.Remove(first.ID))
		all := s.All()
		require.Len(t, all, 1)
		assert.Equal(t, second.ID, all[0].ID)
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		assert.False(t, s.Remove(first.ID))
		assert.Len(t, s.All(), 1)
	})
}

func TestStore_ClearAll(t *testing.T) {
	p := &memPersister{}
	s := NewStore(p)
	s.Add("Acme", "Engineer", "", "", false)
	s.Add("Globex", "Designer", "", "", true)

	s.ClearAll()
	assert.Empty(t, s.All())
	assert.Empty(t, p.records, "empty collection persisted")
}

func TestStore_ImportBatch(t *testing.T) {
	t.Run("prepends batch in file order", func(t *testing.T) {
		s := NewStore(&memPersister{})
		existing, _ := s.Add("Oldco", "Analyst", "", "", false)

		n := s.ImportBatch([]JobRecord{
			{Company: "Acme", Role: "Engineer"},
			{Company: "Globex", Role: "Designer", Applied: true},
		})
		assert.Equal(t, 2, n)

		all := s.All()
		require.Len(t, all, 3)
		assert.Equal(t, "Acme", all[0].Company, "first parsed row closest to the front")
		assert.Equal(t, "Globex", all[1].Company)
		assert.Equal(t, existing.ID, all[2].ID, "batch placed before pre-existing records")
	})

	t.Run("fresh ids assigned", func(t *testing.T) {
		s := NewStore(&memPersister{})
		s.ImportBatch([]JobRecord{{ID: "stale", Company: "Acme", Role: "Engineer"}})
		all := s.All()
		require.Len(t, all, 1)
		assert.NotEqual(t, "stale", all[0].ID)
		assert.NotEmpty(t, all[0].ID)
	})

	t.Run("invalid rows dropped, empty batch persists nothing", func(t *testing.T) {
		p := &memPersister{}
		s := NewStore(p)
		n := s.ImportBatch([]JobRecord{{Company: "", Role: "Engineer"}, {Company: "Acme", Role: "  "}})
		assert.Zero(t, n)
		assert.Empty(t, s.All())
		assert.Zero(t, p.saveCalls)
	})
}

func TestStore_Totals(t *testing.T) {
	s := NewStore(&memPersister{})
	assert.Equal(t, Totals{}, s.Totals())

	s.Add("Acme", "Engineer", "", "", true)
	s.Add("Globex", "Designer", "", "", false)
	s.Add("Initech", "Manager", "", "", true)

	assert.Equal(t, Totals{Total: 3, Applied: 2, Unapplied: 1}, s.Totals())
}

func TestStore_Filtered(t *testing.T) {
	s := NewStore(&memPersister{})
	s.Add("Initech", "Manager", "", "golang shop", true)
	s.Add("Globex", "Designer", "", "", false)
	s.Add("Acme", "Engineer", "", "", false)

	t.Run("search matches role substring", func(t *testing.T) {
		got := s.Filtered("eng", false)
		require.Len(t, got, 1)
		assert.Equal(t, "Engineer", got[0].Role)
	})

	t.Run("search is case-insensitive and spans notes", func(t *testing.T) {
		got := s.Filtered("GOLANG", false)
		require.Len(t, got, 1)
		assert.Equal(t, "Initech", got[0].Company)
	})

	t.Run("unapplied filter combines with search", func(t *testing.T) {
		got := s.Filtered("", true)
		require.Len(t, got, 2)
		assert.Equal(t, "Acme", got[0].Company, "collection order preserved")
		assert.Equal(t, "Globex", got[1].Company)

		got = s.Filtered("design", true)
		require.Len(t, got, 1)
		assert.Equal(t, "Globex", got[0].Company)
	})

	t.Run("empty search matches all", func(t *testing.T) {
		assert.Len(t, s.Filtered("", false), 3)
	})

	t.Run("no match yields empty", func(t *testing.T) {
		assert.Empty(t, s.Filtered("cobol", false))
	})
}

func TestNewID(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 1000; i++ {
		id := NewID()
		assert.Len(t, id, 16)
		assert.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}
