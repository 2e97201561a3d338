package separation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"romaneio-backend/internal/cache"
	"romaneio-backend/internal/models"
	"romaneio-backend/internal/sheets"
)

var ErrRunNotFound = errors.New("print run not found")

const timestampLayout = "2006-01-02 15:04:05"

// Pick is the operator's input for one line item.
type Pick struct {
	Picked int
	Notes  string
	// Override, when Finalized or Missing, replaces the derived status.
	Override models.Status
}

type ItemResult struct {
	LineItemID string        `json:"line_item_id"`
	Code       string        `json:"code"`
	Picked     int           `json:"picked"`
	Cumulative int           `json:"cumulative"`
	Balance    int           `json:"balance"`
	Status     models.Status `json:"status"`
	ItemStatus models.Status `json:"item_status"`
}

type Summary struct {
	RunID     string       `json:"run_id"`
	Processed int          `json:"processed"`
	Skipped   []string     `json:"skipped,omitempty"`
	Results   []ItemResult `json:"results"`
}

// Processor folds picked quantities into request state. Line items are
// enumerated from the store, not from the caller's input, so a line the
// operator left blank is still visited and reset to zero for this pass.
//
// There is no locking on the remote store; the per-run mutex only stops one
// server instance from processing the same run twice concurrently. The
// cross-instance read-modify-write race is accepted and mitigated by batching
// all writes per sheet into single calls.
type Processor struct {
	store sheets.Store
	names sheets.Names
	cache *cache.Cache
	log   zerolog.Logger

	mu       sync.Mutex
	runLocks map[string]*sync.Mutex

	now func() time.Time
}

func NewProcessor(store sheets.Store, names sheets.Names, c *cache.Cache, log zerolog.Logger) *Processor {
	return &Processor{
		store:    store,
		names:    names,
		cache:    c,
		log:      log,
		runLocks: make(map[string]*sync.Mutex),
		now:      time.Now,
	}
}

func (p *Processor) lockRun(runID string) func() {
	p.mu.Lock()
	l, ok := p.runLocks[runID]
	if !ok {
		l = &sync.Mutex{}
		p.runLocks[runID] = l
	}
	p.mu.Unlock()
	l.Lock()
	return l.Unlock
}

// Process records one separation pass over every line item of the run.
// Request cumulative-picked accumulates across passes; item fields are
// overwritten per pass. All request-sheet writes go out in one batch, all
// item-sheet writes in another, then the run is stamped Processed and the
// cache invalidated.
func (p *Processor) Process(ctx context.Context, runID string, picks map[string]Pick, operator string) (*Summary, error) {
	unlock := p.lockRun(runID)
	defer unlock()

	runRows, err := p.store.Rows(ctx, p.names.Runs)
	if err != nil {
		return nil, err
	}
	runRes, runRowIndex := findRunRow(runRows, runID)
	if runRowIndex == 0 {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	// Self-heals missing columns on both written sheets before staging cell
	// updates against their positions.
	itemHeader, err := p.store.EnsureColumns(ctx, p.names.Items, []string{
		sheets.ColPicked, sheets.ColItemStatus, sheets.ColNotes,
		sheets.ColSeparatedAt, sheets.ColSeparatedBy,
	})
	if err != nil {
		return nil, err
	}
	itemRows, err := p.store.Rows(ctx, p.names.Items)
	if err != nil {
		return nil, err
	}
	if len(itemRows) == 0 {
		return nil, fmt.Errorf("%w: item sheet is empty", ErrRunNotFound)
	}
	itemRes := sheets.NewResolver(itemHeader)

	reqHeader, err := p.store.EnsureColumns(ctx, p.names.Requests, []string{
		sheets.ColPicked, sheets.ColStatus, sheets.ColBalance, sheets.ColLineItemID,
	})
	if err != nil {
		return nil, err
	}
	reqRows, err := p.store.Rows(ctx, p.names.Requests)
	if err != nil {
		return nil, err
	}
	reqRes := sheets.NewResolver(reqHeader)
	reqByLineID := indexRequests(reqRows, reqRes)

	now := p.now().Format(timestampLayout)
	summary := &Summary{RunID: runID}
	var reqUpdates, itemUpdates []sheets.CellUpdate
	var withdrawals [][]string

	runIDCol, _ := itemRes.Col(sheets.ColRunID)
	for i, row := range itemRows[1:] {
		if sheets.Field(row, runIDCol) != runID {
			continue
		}
		itemRow := i + 2 // 1-based sheet row past the header
		lineID := itemRes.FieldAt(row, sheets.ColLineItemID)
		pick := picks[lineID]

		reqRow, ok := reqByLineID[lineID]
		if !ok {
			// The request row vanished or lost its id since run creation.
			// Skip the line instead of failing the whole pass.
			p.log.Warn().Str("run_id", runID).Str("line_item_id", lineID).
				Msg("request row not found for line item, skipping")
			summary.Skipped = append(summary.Skipped, lineID)
			continue
		}

		requested := atoi(reqRes.FieldAt(reqRow.cells, sheets.ColQuantity))
		cumulative := atoi(reqRes.FieldAt(reqRow.cells, sheets.ColPicked)) + pick.Picked
		balance := RemainingBalance(requested, cumulative)
		status := Derive(requested, cumulative, pick.Override)
		itemStatus := Derive(atoi(itemRes.FieldAt(row, sheets.ColQuantity)), pick.Picked, pick.Override)

		reqUpdates = append(reqUpdates,
			cellAt(reqRes, sheets.ColPicked, reqRow.row, strconv.Itoa(cumulative)),
			cellAt(reqRes, sheets.ColStatus, reqRow.row, string(status)),
			cellAt(reqRes, sheets.ColBalance, reqRow.row, strconv.Itoa(balance)),
		)
		itemUpdates = append(itemUpdates,
			cellAt(itemRes, sheets.ColPicked, itemRow, strconv.Itoa(pick.Picked)),
			cellAt(itemRes, sheets.ColItemStatus, itemRow, string(itemStatus)),
			cellAt(itemRes, sheets.ColNotes, itemRow, pick.Notes),
			cellAt(itemRes, sheets.ColSeparatedAt, itemRow, now),
			cellAt(itemRes, sheets.ColSeparatedBy, itemRow, operator),
		)
		withdrawals = append(withdrawals, []string{
			now,
			itemRes.FieldAt(row, sheets.ColCode),
			itemRes.FieldAt(row, sheets.ColDate),
			strconv.Itoa(pick.Picked),
			operator,
			itemRes.FieldAt(row, sheets.ColRequester),
			runID,
		})

		summary.Processed++
		summary.Results = append(summary.Results, ItemResult{
			LineItemID: lineID,
			Code:       itemRes.FieldAt(row, sheets.ColCode),
			Picked:     pick.Picked,
			Cumulative: cumulative,
			Balance:    balance,
			Status:     status,
			ItemStatus: itemStatus,
		})
	}

	if summary.Processed == 0 && len(summary.Skipped) == 0 {
		return nil, fmt.Errorf("%w: run %s has no line items", ErrRunNotFound, runID)
	}

	if err := p.store.BatchUpdate(ctx, p.names.Requests, reqUpdates); err != nil {
		return nil, err
	}
	if err := p.store.BatchUpdate(ctx, p.names.Items, itemUpdates); err != nil {
		return nil, err
	}
	if err := p.markProcessed(ctx, runRes, runRowIndex, runRows[runRowIndex-1], operator, now); err != nil {
		return nil, err
	}

	// Append-only reconciliation rows. Pure side effect, never read back here.
	if err := p.store.EnsureSheet(ctx, p.names.Withdrawals, sheets.WithdrawalHeaders); err != nil {
		p.log.Warn().Err(err).Msg("withdrawal sheet unavailable")
	} else if err := p.store.Append(ctx, p.names.Withdrawals, withdrawals); err != nil {
		p.log.Warn().Err(err).Msg("withdrawal append failed")
	}

	p.cache.InvalidateByPrefix("requests")
	p.cache.InvalidateByPrefix("runs")
	p.cache.InvalidateByPrefix("items")

	p.log.Info().Str("run_id", runID).Int("processed", summary.Processed).
		Int("skipped", len(summary.Skipped)).Str("operator", operator).
		Msg("separation pass committed")
	return summary, nil
}

// markProcessed flips the run to Processed with timestamp and operator. The
// Pending->Processed transition happens once: a later staged pass leaves the
// original stamp in place.
func (p *Processor) markProcessed(ctx context.Context, res *sheets.Resolver, rowIndex int, row []string, operator, now string) error {
	if models.RunStatus(res.FieldAt(row, sheets.ColStatus)) == models.RunStatusProcessed {
		return nil
	}
	updates := []sheets.CellUpdate{
		cellAt(res, sheets.ColStatus, rowIndex, string(models.RunStatusProcessed)),
		cellAt(res, sheets.ColProcessedAt, rowIndex, now),
		cellAt(res, sheets.ColProcessedBy, rowIndex, operator),
	}
	return p.store.BatchUpdate(ctx, p.names.Runs, updates)
}

type indexedRow struct {
	row   int // 1-based sheet row
	cells []string
}

func indexRequests(rows [][]string, res *sheets.Resolver) map[string]indexedRow {
	byID := make(map[string]indexedRow)
	idCol, ok := res.Col(sheets.ColLineItemID)
	if !ok {
		return byID
	}
	for i, row := range rows[min(1, len(rows)):] {
		id := sheets.Field(row, idCol)
		if id == "" {
			continue
		}
		if _, dup := byID[id]; !dup {
			byID[id] = indexedRow{row: i + 2, cells: row}
		}
	}
	return byID
}

func findRunRow(rows [][]string, runID string) (*sheets.Resolver, int) {
	if len(rows) == 0 {
		return nil, 0
	}
	res := sheets.NewResolver(rows[0])
	idCol, ok := res.Col(sheets.ColRunID)
	if !ok {
		return nil, 0
	}
	for i, row := range rows[1:] {
		if sheets.Field(row, idCol) == runID {
			return res, i + 2
		}
	}
	return nil, 0
}

func cellAt(res *sheets.Resolver, name string, row int, value string) sheets.CellUpdate {
	col, _ := res.Col(name)
	return sheets.CellUpdate{Row: row, Col: col, Value: value}
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
