package requests

import (
	"context"
	"strconv"

	"github.com/rs/zerolog"

	"romaneio-backend/internal/cache"
	"romaneio-backend/internal/models"
	"romaneio-backend/internal/sheets"
)

// Service exposes the request sheet as typed rows. All reads go through the
// freshness cache; the mutating components invalidate the "requests" source.
type Service struct {
	store sheets.Store
	names sheets.Names
	cache *cache.Cache
	log   zerolog.Logger
}

func NewService(store sheets.Store, names sheets.Names, c *cache.Cache, log zerolog.Logger) *Service {
	return &Service{store: store, names: names, cache: c, log: log}
}

// List returns every request row that has real data (code and requester
// present). The intake form leaves plenty of half-empty rows behind.
func (s *Service) List(ctx context.Context) ([]models.Request, error) {
	if v, ok := s.cache.Get("requests:all"); ok {
		return v.([]models.Request), nil
	}

	rows, err := s.store.Rows(ctx, s.names.Requests)
	if err != nil {
		return nil, err
	}
	var out []models.Request
	if len(rows) > 0 {
		res := sheets.NewResolver(rows[0])
		for i, row := range rows[1:] {
			req := parseRow(res, row, i+2)
			if req.Code == "" || req.Requester == "" {
				continue
			}
			if req.Status == "" {
				req.Status = models.StatusOpen
			}
			out = append(out, req)
		}
	}
	s.cache.Set("requests:all", out)
	return out, nil
}

// Open returns the requests still eligible for a print run.
func (s *Service) Open(ctx context.Context) ([]models.Request, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	var open []models.Request
	for _, r := range all {
		if r.Status == models.StatusInSeparation || models.IsTerminal(r.Status) {
			continue
		}
		open = append(open, r)
	}
	return open, nil
}

type StatusSummary struct {
	Total       int                   `json:"total"`
	ByStatus    map[models.Status]int `json:"by_status"`
	OpenBalance int                   `json:"open_balance"`
	TotalPicked int                   `json:"total_picked"`
}

func (s *Service) Summary(ctx context.Context) (*StatusSummary, error) {
	if v, ok := s.cache.Get("requests:summary"); ok {
		return v.(*StatusSummary), nil
	}

	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	sum := &StatusSummary{ByStatus: make(map[models.Status]int)}
	for _, r := range all {
		sum.Total++
		sum.ByStatus[r.Status]++
		sum.OpenBalance += r.Balance
		sum.TotalPicked += r.Picked
	}
	s.cache.Set("requests:summary", sum)
	return sum, nil
}

func parseRow(res *sheets.Resolver, row []string, rowIndex int) models.Request {
	return models.Request{
		RowIndex:       rowIndex,
		Date:           res.FieldAt(row, sheets.ColDate),
		Requester:      res.FieldAt(row, sheets.ColRequester),
		Code:           res.FieldAt(row, sheets.ColCode),
		Description:    res.FieldAt(row, sheets.ColDescription),
		Unit:           res.FieldAt(row, sheets.ColUnit),
		Quantity:       atoi(res.FieldAt(row, sheets.ColQuantity)),
		Location:       res.FieldAt(row, sheets.ColLocation),
		StockBalance:   atoi(res.FieldAt(row, sheets.ColStockBalance)),
		MonthlyAverage: atoi(res.FieldAt(row, sheets.ColMonthlyAverage)),
		Picked:         atoi(res.FieldAt(row, sheets.ColPicked)),
		Balance:        atoi(res.FieldAt(row, sheets.ColBalance)),
		Status:         models.Status(res.FieldAt(row, sheets.ColStatus)),
		LineItemID:     res.FieldAt(row, sheets.ColLineItemID),
	}
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
