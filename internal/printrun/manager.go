package printrun

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"romaneio-backend/internal/cache"
	"romaneio-backend/internal/ident"
	"romaneio-backend/internal/models"
	"romaneio-backend/internal/sheets"
)

// ConflictError aborts a run creation that includes a request which is
// already mid-run or in a terminal status. No writes are issued.
type ConflictError struct {
	Conflicting []string // request codes or line ids
	Reason      string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting selection (%s): %s", e.Reason, strings.Join(e.Conflicting, ", "))
}

// Selection identifies one request to include in a run. The pair
// (Code, Requester) locates the row; the sheet has no stable row numbers.
type Selection struct {
	Code      string `json:"code"`
	Requester string `json:"requester"`
}

// DocumentScheduler is the async document collaborator. Scheduling must never
// fail run creation.
type DocumentScheduler interface {
	Schedule(run models.PrintRun, items []models.PrintRunItem)
}

// Manager creates print runs: it validates the selection against pending runs
// and terminal statuses, mints identifiers, appends the run header and item
// snapshot rows, stamps the originating request rows and flips them to
// In Separation, then hands the run off for document generation.
type Manager struct {
	store  sheets.Store
	names  sheets.Names
	cache  *cache.Cache
	minter *ident.Minter
	docs   DocumentScheduler
	log    zerolog.Logger

	now func() time.Time
}

func NewManager(store sheets.Store, names sheets.Names, c *cache.Cache, minter *ident.Minter, docs DocumentScheduler, log zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		names:  names,
		cache:  c,
		minter: minter,
		docs:   docs,
		log:    log,
		now:    time.Now,
	}
}

const timestampLayout = "2006-01-02 15:04:05"

// Create validates the whole selection before the first write: a conflicting
// request aborts everything with the conflicting identifiers named.
func (m *Manager) Create(ctx context.Context, user string, selected []Selection, notes string) (*models.PrintRun, error) {
	if len(selected) == 0 {
		return nil, fmt.Errorf("empty selection")
	}

	if err := m.ensureControlSheets(ctx); err != nil {
		return nil, err
	}
	reqHeader, err := m.store.EnsureColumns(ctx, m.names.Requests, []string{
		sheets.ColStatus, sheets.ColPicked, sheets.ColBalance, sheets.ColLineItemID,
	})
	if err != nil {
		return nil, err
	}
	reqRows, err := m.store.Rows(ctx, m.names.Requests)
	if err != nil {
		return nil, err
	}
	res := sheets.NewResolver(reqHeader)

	rows, err := m.locateSelection(reqRows, res, selected)
	if err != nil {
		return nil, err
	}
	if err := m.checkStatuses(res, rows); err != nil {
		return nil, err
	}
	if err := m.checkPendingRuns(ctx, res, rows); err != nil {
		return nil, err
	}

	// Selection is clean; everything after this point writes.
	runID := m.minter.NextRunID(ctx, user)
	now := m.now()
	createdAt := now.Format(timestampLayout)

	run := models.PrintRun{
		ID:        runID,
		CreatedAt: createdAt,
		CreatedBy: user,
		Status:    models.RunStatusPending,
		ItemCount: len(rows),
		Notes:     notes,
	}

	var items []models.PrintRunItem
	var itemRows [][]string
	var stamps []sheets.CellUpdate
	lineIDCol, _ := res.Col(sheets.ColLineItemID)
	statusCol, _ := res.Col(sheets.ColStatus)

	for i, r := range rows {
		req := parseRequest(res, r)
		// Mint once: a request keeps its first line id for every later run
		// it appears in, so items of already-processed runs stay matchable.
		if req.LineItemID == "" {
			req.LineItemID = m.minter.RequestID(req.Date, req.Requester, req.Code, req.Quantity, i)
		}
		stamps = append(stamps,
			sheets.CellUpdate{Row: r.row, Col: lineIDCol, Value: req.LineItemID},
			sheets.CellUpdate{Row: r.row, Col: statusCol, Value: string(models.StatusInSeparation)},
		)

		item := models.PrintRunItem{
			RunID:          runID,
			LineItemID:     req.LineItemID,
			Date:           req.Date,
			Requester:      req.Requester,
			Code:           req.Code,
			Description:    req.Description,
			Unit:           req.Unit,
			Quantity:       req.Quantity,
			Location:       req.Location,
			StockBalance:   req.StockBalance,
			MonthlyAverage: req.MonthlyAverage,
			ItemStatus:     models.StatusOpen,
		}
		items = append(items, item)
		itemRows = append(itemRows, itemToRow(item))
	}

	if err := m.store.Append(ctx, m.names.Runs, [][]string{runToRow(run)}); err != nil {
		return nil, err
	}
	if err := m.store.Append(ctx, m.names.Items, itemRows); err != nil {
		return nil, err
	}
	if err := m.store.BatchUpdate(ctx, m.names.Requests, stamps); err != nil {
		return nil, err
	}

	m.cache.InvalidateByPrefix("requests")
	m.cache.InvalidateByPrefix("runs")
	m.cache.InvalidateByPrefix("items")

	// Fire and forget; a run is valid even without its document.
	if m.docs != nil {
		m.docs.Schedule(run, items)
	}

	m.log.Info().Str("run_id", runID).Int("items", len(items)).Str("user", user).
		Msg("print run created")
	return &run, nil
}

func (m *Manager) ensureControlSheets(ctx context.Context) error {
	if err := m.store.EnsureSheet(ctx, m.names.Runs, sheets.RunHeaders); err != nil {
		return err
	}
	return m.store.EnsureSheet(ctx, m.names.Items, sheets.ItemHeaders)
}

type locatedRow struct {
	row   int // 1-based sheet row
	cells []string
}

// locateSelection matches every selection to exactly one request row. A
// selection with no row is a hard failure: the caller picked something that
// no longer exists in the sheet. A request selected more than once collapses
// to a single row, so a run never carries two items for the same request.
func (m *Manager) locateSelection(reqRows [][]string, res *sheets.Resolver, selected []Selection) ([]locatedRow, error) {
	codeCol, okCode := res.Col(sheets.ColCode)
	reqCol, okReq := res.Col(sheets.ColRequester)
	if !okCode || !okReq {
		return nil, fmt.Errorf("request sheet is missing code/requester columns")
	}

	var located []locatedRow
	var missing []string
	seen := make(map[int]bool)
	for _, sel := range selected {
		found := false
		for i, row := range reqRows[min(1, len(reqRows)):] {
			if sheets.Field(row, codeCol) == sel.Code && sheets.Field(row, reqCol) == sel.Requester {
				if !seen[i+2] {
					seen[i+2] = true
					located = append(located, locatedRow{row: i + 2, cells: row})
				}
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, sel.Code)
		}
	}
	if len(missing) > 0 {
		return nil, &ConflictError{Conflicting: missing, Reason: "request not found in sheet"}
	}
	return located, nil
}

func (m *Manager) checkStatuses(res *sheets.Resolver, rows []locatedRow) error {
	var conflicting []string
	for _, r := range rows {
		status := models.Status(res.FieldAt(r.cells, sheets.ColStatus))
		if status == models.StatusInSeparation || models.IsTerminal(status) {
			conflicting = append(conflicting, res.FieldAt(r.cells, sheets.ColCode))
		}
	}
	if len(conflicting) > 0 {
		return &ConflictError{Conflicting: conflicting, Reason: "already in separation or terminal"}
	}
	return nil
}

// checkPendingRuns rejects any selected request whose line id appears in an
// unprocessed run. This closes the double-printing race; the pick-quantity
// race stays open by design.
func (m *Manager) checkPendingRuns(ctx context.Context, res *sheets.Resolver, rows []locatedRow) error {
	pending, err := m.pendingRunIDs(ctx)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}

	itemRows, err := m.store.Rows(ctx, m.names.Items)
	if err != nil {
		return err
	}
	if len(itemRows) == 0 {
		return nil
	}
	itemRes := sheets.NewResolver(itemRows[0])
	runIDCol, ok1 := itemRes.Col(sheets.ColRunID)
	lineIDCol, ok2 := itemRes.Col(sheets.ColLineItemID)
	if !ok1 || !ok2 {
		return nil
	}

	inPending := make(map[string]bool)
	for _, row := range itemRows[1:] {
		if pending[sheets.Field(row, runIDCol)] {
			inPending[sheets.Field(row, lineIDCol)] = true
		}
	}

	var conflicting []string
	for _, r := range rows {
		lineID := res.FieldAt(r.cells, sheets.ColLineItemID)
		if lineID != "" && inPending[lineID] {
			conflicting = append(conflicting, res.FieldAt(r.cells, sheets.ColCode))
		}
	}
	if len(conflicting) > 0 {
		return &ConflictError{Conflicting: conflicting, Reason: "already attached to a pending run"}
	}
	return nil
}

func (m *Manager) pendingRunIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := m.store.Rows(ctx, m.names.Runs)
	if err != nil {
		return nil, err
	}
	pending := make(map[string]bool)
	if len(rows) == 0 {
		return pending, nil
	}
	res := sheets.NewResolver(rows[0])
	idCol, ok1 := res.Col(sheets.ColRunID)
	statusCol, ok2 := res.Col(sheets.ColStatus)
	if !ok1 || !ok2 {
		return pending, nil
	}
	for _, row := range rows[1:] {
		if models.RunStatus(sheets.Field(row, statusCol)) == models.RunStatusPending {
			pending[sheets.Field(row, idCol)] = true
		}
	}
	return pending, nil
}

func parseRequest(res *sheets.Resolver, r locatedRow) models.Request {
	return models.Request{
		RowIndex:       r.row,
		Date:           res.FieldAt(r.cells, sheets.ColDate),
		Requester:      res.FieldAt(r.cells, sheets.ColRequester),
		Code:           res.FieldAt(r.cells, sheets.ColCode),
		Description:    res.FieldAt(r.cells, sheets.ColDescription),
		Unit:           res.FieldAt(r.cells, sheets.ColUnit),
		Quantity:       atoi(res.FieldAt(r.cells, sheets.ColQuantity)),
		Location:       res.FieldAt(r.cells, sheets.ColLocation),
		StockBalance:   atoi(res.FieldAt(r.cells, sheets.ColStockBalance)),
		MonthlyAverage: atoi(res.FieldAt(r.cells, sheets.ColMonthlyAverage)),
		Picked:         atoi(res.FieldAt(r.cells, sheets.ColPicked)),
		Balance:        atoi(res.FieldAt(r.cells, sheets.ColBalance)),
		Status:         models.Status(res.FieldAt(r.cells, sheets.ColStatus)),
		LineItemID:     res.FieldAt(r.cells, sheets.ColLineItemID),
	}
}

// runToRow and itemToRow serialize in the order of the sheet headers this
// system creates (sheets.RunHeaders / sheets.ItemHeaders).
func runToRow(run models.PrintRun) []string {
	return []string{
		run.ID, run.CreatedAt, run.CreatedBy, string(run.Status),
		strconv.Itoa(run.ItemCount), run.Notes, run.ProcessedAt, run.ProcessedBy,
	}
}

func itemToRow(it models.PrintRunItem) []string {
	return []string{
		it.RunID, it.LineItemID, it.Date, it.Requester, it.Code,
		it.Description, it.Unit, strconv.Itoa(it.Quantity), it.Location,
		strconv.Itoa(it.StockBalance), strconv.Itoa(it.MonthlyAverage),
		string(it.ItemStatus), strconv.Itoa(it.Picked), it.Notes,
		it.SeparatedAt, it.SeparatedBy,
	}
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
