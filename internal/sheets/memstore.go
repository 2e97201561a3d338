package sheets

import (
	"context"
	"sync"
)

// MemStore is the in-memory Store implementation. It backs tests and local
// development without credentials; semantics mirror the remote client
// (1-based rows, header in row 1, updates past the row end grow the row).
type MemStore struct {
	mu       sync.Mutex
	tabs     map[string][][]string
	order    []string
	failWith error
}

func NewMemStore() *MemStore {
	return &MemStore{tabs: make(map[string][][]string)}
}

// Seed replaces the sheet contents wholesale. Test setup only.
func (m *MemStore) Seed(sheet string, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tabs[sheet]; !ok {
		m.order = append(m.order, sheet)
	}
	cp := make([][]string, len(rows))
	for i, r := range rows {
		cp[i] = append([]string{}, r...)
	}
	m.tabs[sheet] = cp
}

// FailWith makes every subsequent call return err until reset with nil.
func (m *MemStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Sheet returns a copy of the sheet contents for assertions.
func (m *MemStore) Sheet(sheet string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.tabs[sheet]
	cp := make([][]string, len(rows))
	for i, r := range rows {
		cp[i] = append([]string{}, r...)
	}
	return cp
}

func (m *MemStore) Rows(ctx context.Context, sheet string) ([][]string, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	return m.Sheet(sheet), nil
}

func (m *MemStore) Append(ctx context.Context, sheet string, rows [][]string) error {
	if err := m.check(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tabs[sheet]; !ok {
		m.order = append(m.order, sheet)
	}
	for _, r := range rows {
		m.tabs[sheet] = append(m.tabs[sheet], append([]string{}, r...))
	}
	return nil
}

func (m *MemStore) BatchUpdate(ctx context.Context, sheet string, updates []CellUpdate) error {
	if err := m.check(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.tabs[sheet]
	for _, u := range updates {
		for len(rows) < u.Row {
			rows = append(rows, []string{})
		}
		row := rows[u.Row-1]
		for len(row) <= u.Col {
			row = append(row, "")
		}
		row[u.Col] = u.Value
		rows[u.Row-1] = row
	}
	m.tabs[sheet] = rows
	return nil
}

func (m *MemStore) EnsureSheet(ctx context.Context, sheet string, headers []string) error {
	if err := m.check(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tabs[sheet]; ok {
		return nil
	}
	m.order = append(m.order, sheet)
	m.tabs[sheet] = [][]string{append([]string{}, headers...)}
	return nil
}

func (m *MemStore) EnsureColumns(ctx context.Context, sheet string, names []string) ([]string, error) {
	if err := m.check(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.tabs[sheet]
	var header []string
	if len(rows) > 0 {
		header = rows[0]
	}
	missing := NewResolver(header).Missing(names...)
	if len(missing) == 0 {
		return append([]string{}, header...), nil
	}
	header = append(append([]string{}, header...), missing...)
	if len(rows) == 0 {
		rows = [][]string{header}
	} else {
		rows[0] = header
	}
	m.tabs[sheet] = rows
	return append([]string{}, header...), nil
}

func (m *MemStore) check() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failWith
}
