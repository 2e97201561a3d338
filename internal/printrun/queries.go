package printrun

import (
	"context"
	"errors"
	"fmt"

	"romaneio-backend/internal/models"
	"romaneio-backend/internal/sheets"
)

var ErrNotFound = errors.New("print run not found")

// List returns runs newest-first, optionally only the unprocessed ones.
// Reads go through the cache; run creation/processing invalidate it.
func (m *Manager) List(ctx context.Context, onlyPending bool) ([]models.PrintRun, error) {
	key := "runs:all"
	if onlyPending {
		key = "runs:pending"
	}
	if v, ok := m.cache.Get(key); ok {
		return v.([]models.PrintRun), nil
	}

	rows, err := m.store.Rows(ctx, m.names.Runs)
	if err != nil {
		return nil, err
	}
	var runs []models.PrintRun
	if len(rows) > 0 {
		res := sheets.NewResolver(rows[0])
		for i, row := range rows[1:] {
			run := parseRun(res, row, i+2)
			if run.ID == "" {
				continue
			}
			if onlyPending && run.Status != models.RunStatusPending {
				continue
			}
			runs = append(runs, run)
		}
	}
	// Newest first: the sheet is append-only.
	for i, j := 0, len(runs)-1; i < j; i, j = i+1, j-1 {
		runs[i], runs[j] = runs[j], runs[i]
	}
	m.cache.Set(key, runs)
	return runs, nil
}

func (m *Manager) Get(ctx context.Context, runID string) (*models.PrintRun, error) {
	runs, err := m.List(ctx, false)
	if err != nil {
		return nil, err
	}
	for i := range runs {
		if runs[i].ID == runID {
			return &runs[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, runID)
}

// Items returns the line items of one run in sheet order.
func (m *Manager) Items(ctx context.Context, runID string) ([]models.PrintRunItem, error) {
	key := "items:run:" + runID
	if v, ok := m.cache.Get(key); ok {
		return v.([]models.PrintRunItem), nil
	}

	rows, err := m.store.Rows(ctx, m.names.Items)
	if err != nil {
		return nil, err
	}
	var items []models.PrintRunItem
	if len(rows) > 0 {
		res := sheets.NewResolver(rows[0])
		runIDCol, _ := res.Col(sheets.ColRunID)
		for i, row := range rows[1:] {
			if sheets.Field(row, runIDCol) != runID {
				continue
			}
			items = append(items, parseItem(res, row, i+2))
		}
	}
	m.cache.Set(key, items)
	return items, nil
}

func parseRun(res *sheets.Resolver, row []string, rowIndex int) models.PrintRun {
	return models.PrintRun{
		RowIndex:    rowIndex,
		ID:          res.FieldAt(row, sheets.ColRunID),
		CreatedAt:   res.FieldAt(row, sheets.ColCreatedAt),
		CreatedBy:   res.FieldAt(row, sheets.ColCreatedBy),
		Status:      models.RunStatus(res.FieldAt(row, sheets.ColStatus)),
		ItemCount:   atoi(res.FieldAt(row, sheets.ColItemCount)),
		Notes:       res.FieldAt(row, sheets.ColNotes),
		ProcessedAt: res.FieldAt(row, sheets.ColProcessedAt),
		ProcessedBy: res.FieldAt(row, sheets.ColProcessedBy),
	}
}

func parseItem(res *sheets.Resolver, row []string, rowIndex int) models.PrintRunItem {
	return models.PrintRunItem{
		RowIndex:       rowIndex,
		RunID:          res.FieldAt(row, sheets.ColRunID),
		LineItemID:     res.FieldAt(row, sheets.ColLineItemID),
		Date:           res.FieldAt(row, sheets.ColDate),
		Requester:      res.FieldAt(row, sheets.ColRequester),
		Code:           res.FieldAt(row, sheets.ColCode),
		Description:    res.FieldAt(row, sheets.ColDescription),
		Unit:           res.FieldAt(row, sheets.ColUnit),
		Quantity:       atoi(res.FieldAt(row, sheets.ColQuantity)),
		Location:       res.FieldAt(row, sheets.ColLocation),
		StockBalance:   atoi(res.FieldAt(row, sheets.ColStockBalance)),
		MonthlyAverage: atoi(res.FieldAt(row, sheets.ColMonthlyAverage)),
		ItemStatus:     models.Status(res.FieldAt(row, sheets.ColItemStatus)),
		Picked:         atoi(res.FieldAt(row, sheets.ColPicked)),
		Notes:          res.FieldAt(row, sheets.ColNotes),
		SeparatedAt:    res.FieldAt(row, sheets.ColSeparatedAt),
		SeparatedBy:    res.FieldAt(row, sheets.ColSeparatedBy),
	}
}
