package ident

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"romaneio-backend/internal/sheets"
)

func newTestMinter(store sheets.Store) *Minter {
	return NewMinter(store, sheets.DefaultNames(), zerolog.Nop())
}

func TestRequestID_Format(t *testing.T) {
	m := newTestMinter(sheets.NewMemStore())

	id := m.RequestID("2025-06-01", "Maria da Silva", "ABC123", 40, 0)

	parts := strings.Split(id, "_")
	if parts[0] != "SOL" {
		t.Fatalf("expected SOL prefix, got %q", id)
	}
	if parts[1] != "20250601" {
		t.Errorf("expected date fragment 20250601, got %q", parts[1])
	}
	if len(parts[2]) != 9 {
		t.Errorf("expected hhmmssmmm time fragment, got %q", parts[2])
	}
	frag := strings.Join(parts[3:len(parts)-1], "_")
	if len(frag) > 10 {
		t.Errorf("requester fragment longer than 10 chars: %q", frag)
	}
	hash := parts[len(parts)-1]
	if len(hash) != 8 {
		t.Errorf("expected 8 hex char hash, got %q", hash)
	}
}

func TestRequestID_UniqueWithinMillisecond(t *testing.T) {
	m := newTestMinter(sheets.NewMemStore())

	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		id := m.RequestID("2025-06-01", "Maria", "ABC123", 10, i)
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id after %d mints: %s", i, id)
		}
		seen[id] = struct{}{}
	}
}

func TestNextRunID_Sequential(t *testing.T) {
	testCases := []struct {
		name string
		rows [][]string
		want string
	}{
		{"empty sheet", nil, "ROM-000001"},
		{"header only", [][]string{{"RunID", "CreatedAt"}}, "ROM-000001"},
		{
			"takes max plus one",
			[][]string{
				{"RunID"},
				{"ROM-000001"},
				{"ROM-000007"},
				{"ROM-000003"},
			},
			"ROM-000008",
		},
		{
			"ignores malformed ids",
			[][]string{
				{"RunID"},
				{"ROM-000002"},
				{"IMP_20250101_120000_ABCDEF"},
				{"garbage"},
			},
			"ROM-000003",
		},
		{
			"id column moved by a hand-inserted column",
			[][]string{
				{"Obs", "RunID", "CreatedAt"},
				{"x", "ROM-000007", "2025-06-01 08:00:00"},
			},
			"ROM-000008",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			store := sheets.NewMemStore()
			if tc.rows != nil {
				store.Seed(sheets.DefaultNames().Runs, tc.rows)
			}
			m := newTestMinter(store)
			got := m.NextRunID(context.Background(), "op")
			if got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestNextRunID_FallbackWithoutIDColumn(t *testing.T) {
	store := sheets.NewMemStore()
	store.Seed(sheets.DefaultNames().Runs, [][]string{
		{"Something", "Else"},
		{"ROM-000009", "2025-06-01 08:00:00"},
	})
	m := newTestMinter(store)

	id := m.NextRunID(context.Background(), "op")
	if !strings.HasPrefix(id, "IMP_") {
		t.Fatalf("expected IMP_ fallback id when the header lost its id column, got %s", id)
	}
}

func TestNextRunID_FallbackOnStoreFailure(t *testing.T) {
	store := sheets.NewMemStore()
	store.FailWith(errors.New("boom"))
	m := newTestMinter(store)

	id := m.NextRunID(context.Background(), "op")
	if !strings.HasPrefix(id, "IMP_") {
		t.Fatalf("expected IMP_ fallback id, got %s", id)
	}
}
