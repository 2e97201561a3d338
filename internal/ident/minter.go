package ident

import (
	"context"
	"crypto/md5"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"romaneio-backend/internal/sheets"
)

const (
	runPrefix      = "ROM-"
	runNumberWidth = 6
	fallbackPrefix = "IMP_"
)

var runIDPattern = regexp.MustCompile(`^ROM-(\d+)$`)

// Minter produces request line identifiers and print-run identifiers. Run ids
// are sequential, which needs a scan of the run sheet; the store reference is
// only used for that.
type Minter struct {
	store sheets.Store
	names sheets.Names
	log   zerolog.Logger

	// now is swapped in tests
	now func() time.Time
}

func NewMinter(store sheets.Store, names sheets.Names, log zerolog.Logger) *Minter {
	return &Minter{store: store, names: names, log: log, now: time.Now}
}

// RequestID mints a line identifier for one request:
// SOL_<yyyymmdd>_<hhmmssmmm>_<REQUESTER>_<8 hex>. The hash input folds in the
// wall clock down to the microsecond plus the caller's loop index, so two
// requests minted in the same tick still differ with overwhelming probability.
func (m *Minter) RequestID(date, requester, code string, quantity, seq int) string {
	now := m.now()
	stamp := now.Format("150405") + fmt.Sprintf("%03d", now.Nanosecond()/1e6)

	combined := fmt.Sprintf("%s_%s_%s_%d_%s_%d_%d",
		date, requester, code, quantity, stamp, now.Nanosecond()/1e3, seq)
	digest := fmt.Sprintf("%X", md5.Sum([]byte(combined)))[:8]

	day := now.Format("20060102")
	if len(date) >= 10 {
		day = strings.ReplaceAll(date[:10], "-", "")
	}
	return fmt.Sprintf("SOL_%s_%s_%s_%s", day, stamp, sanitizeRequester(requester), digest)
}

// sanitizeRequester folds a free-text name to an id-safe fragment, at most 10
// characters.
func sanitizeRequester(name string) string {
	s := strings.ToUpper(strings.TrimSpace(name))
	s = strings.ReplaceAll(s, " ", "_")
	var b strings.Builder
	for _, r := range s {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" {
		out = "UNKNOWN"
	}
	if len(out) > 10 {
		out = out[:10]
	}
	return out
}

// NextRunID scans the run sheet for the highest ROM-NNNNNN and returns the
// next one. When the scan fails the id degrades to a timestamp+hash form:
// sequentiality is sacrificed so a run can still be created while the store is
// flaky.
func (m *Minter) NextRunID(ctx context.Context, user string) string {
	rows, err := m.store.Rows(ctx, m.names.Runs)
	if err != nil {
		m.log.Warn().Err(err).Msg("run id scan failed, using fallback id")
		return m.fallbackRunID(user)
	}

	// Resolve the id column through the header: a hand-inserted column must
	// not silently restart the sequence at 1.
	idCol := 0
	if len(rows) > 0 {
		res := sheets.NewResolver(rows[0])
		col, ok := res.Col(sheets.ColRunID)
		if !ok {
			m.log.Warn().Msg("run sheet header has no run id column, using fallback id")
			return m.fallbackRunID(user)
		}
		idCol = col
	}

	next := 1
	for _, row := range rows[min(1, len(rows)):] {
		if len(row) == 0 {
			continue
		}
		match := runIDPattern.FindStringSubmatch(strings.TrimSpace(sheets.Field(row, idCol)))
		if match == nil {
			continue
		}
		if n, err := strconv.Atoi(match[1]); err == nil && n >= next {
			next = n + 1
		}
	}
	return fmt.Sprintf("%s%0*d", runPrefix, runNumberWidth, next)
}

func (m *Minter) fallbackRunID(user string) string {
	now := m.now()
	digest := fmt.Sprintf("%X", md5.Sum(fmt.Appendf(nil, "%s_%s", user, now.Format(time.RFC3339Nano))))[:6]
	return fmt.Sprintf("%s%s_%s", fallbackPrefix, now.Format("20060102_150405"), digest)
}
