package separation

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"romaneio-backend/internal/cache"
	"romaneio-backend/internal/models"
	"romaneio-backend/internal/sheets"
)

var testNames = sheets.DefaultNames()

func newTestProcessor(store sheets.Store) *Processor {
	c := cache.New(time.Minute, 30*time.Second)
	return NewProcessor(store, testNames, c, zerolog.Nop())
}

// seedRun builds a store with one pending run whose items reference the
// request rows. requested maps line id -> requested quantity.
func seedRun(runID string, requested map[string]int, order []string) *sheets.MemStore {
	store := sheets.NewMemStore()

	reqRows := [][]string{{
		"Date", "Requester", "Code", "Description", "Unit", "Quantity",
		"Location", "StockBalance", "MonthlyAverage", "PickedQuantity",
		"Balance", "Status", "LineItemID",
	}}
	itemRows := [][]string{sheets.ItemHeaders}
	for _, lineID := range order {
		qty := requested[lineID]
		code := "C-" + lineID
		reqRows = append(reqRows, []string{
			"2025-06-01", "Maria", code, "Desc", "UN", strconv.Itoa(qty),
			"A1", "600", "41", "0", strconv.Itoa(qty), string(models.StatusInSeparation), lineID,
		})
		itemRows = append(itemRows, []string{
			runID, lineID, "2025-06-01", "Maria", code, "Desc", "UN",
			strconv.Itoa(qty), "A1", "600", "41", string(models.StatusOpen), "0", "", "", "",
		})
	}
	store.Seed(testNames.Requests, reqRows)
	store.Seed(testNames.Items, itemRows)
	store.Seed(testNames.Runs, [][]string{
		sheets.RunHeaders,
		{runID, "2025-06-01 08:00:00", "ana", string(models.RunStatusPending), strconv.Itoa(len(order)), "", "", ""},
	})
	return store
}

func TestProcess_AccumulatesAcrossPasses(t *testing.T) {
	store := seedRun("ROM-000001", map[string]int{"SOL_R1": 100}, []string{"SOL_R1"})
	p := newTestProcessor(store)
	ctx := context.Background()

	passes := []struct {
		picked         int
		wantCumulative int
		wantBalance    int
		wantStatus     models.Status
	}{
		{40, 40, 60, models.StatusPartial},
		{60, 100, 0, models.StatusFulfilled},
		{10, 110, 0, models.StatusExcess},
	}

	lastCumulative := 0
	for i, pass := range passes {
		summary, err := p.Process(ctx, "ROM-000001", map[string]Pick{
			"SOL_R1": {Picked: pass.picked},
		}, "carlos")
		if err != nil {
			t.Fatalf("pass %d: %v", i+1, err)
		}
		r := summary.Results[0]
		if r.Cumulative != pass.wantCumulative || r.Balance != pass.wantBalance || r.Status != pass.wantStatus {
			t.Errorf("pass %d: got cumulative=%d balance=%d status=%s, want %d/%d/%s",
				i+1, r.Cumulative, r.Balance, r.Status,
				pass.wantCumulative, pass.wantBalance, pass.wantStatus)
		}
		if r.Cumulative < lastCumulative {
			t.Errorf("pass %d: cumulative decreased %d -> %d", i+1, lastCumulative, r.Cumulative)
		}
		lastCumulative = r.Cumulative

		// Persisted request row agrees with the summary.
		reqRows := store.Sheet(testNames.Requests)
		if reqRows[1][9] != strconv.Itoa(pass.wantCumulative) {
			t.Errorf("pass %d: sheet cumulative %q", i+1, reqRows[1][9])
		}
		if reqRows[1][10] != strconv.Itoa(pass.wantBalance) {
			t.Errorf("pass %d: sheet balance %q", i+1, reqRows[1][10])
		}
		if reqRows[1][11] != string(pass.wantStatus) {
			t.Errorf("pass %d: sheet status %q", i+1, reqRows[1][11])
		}
	}
}

func TestProcess_ZeroQuantityItemsAreVisited(t *testing.T) {
	store := seedRun("ROM-000002",
		map[string]int{"SOL_1": 10, "SOL_2": 5, "SOL_3": 8},
		[]string{"SOL_1", "SOL_2", "SOL_3"})
	p := newTestProcessor(store)

	// The operator's form only mentions items 2 and 3; item 1 must still be
	// visited and reset, not skipped.
	summary, err := p.Process(context.Background(), "ROM-000002", map[string]Pick{
		"SOL_2": {Picked: 5},
		"SOL_3": {Picked: 5},
	}, "carlos")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if summary.Processed != 3 {
		t.Fatalf("expected all 3 items processed, got %d", summary.Processed)
	}

	byID := make(map[string]ItemResult)
	for _, r := range summary.Results {
		byID[r.LineItemID] = r
	}
	if byID["SOL_1"].ItemStatus != models.StatusOpen || byID["SOL_1"].Status != models.StatusOpen {
		t.Errorf("zero-quantity item should reset to Open, got %+v", byID["SOL_1"])
	}
	if byID["SOL_2"].ItemStatus != models.StatusFulfilled {
		t.Errorf("item 2 should be Fulfilled, got %s", byID["SOL_2"].ItemStatus)
	}
	if byID["SOL_3"].Status != models.StatusPartial || byID["SOL_3"].Balance != 3 {
		t.Errorf("item 3 should be Partial with balance 3, got %+v", byID["SOL_3"])
	}
}

func TestProcess_ManualOverride(t *testing.T) {
	store := seedRun("ROM-000003", map[string]int{"SOL_1": 10}, []string{"SOL_1"})
	p := newTestProcessor(store)

	summary, err := p.Process(context.Background(), "ROM-000003", map[string]Pick{
		"SOL_1": {Picked: 4, Override: models.StatusMissing, Notes: "shelf empty"},
	}, "carlos")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if summary.Results[0].Status != models.StatusMissing {
		t.Errorf("expected manual Missing status, got %s", summary.Results[0].Status)
	}
	// Quantities still accumulate under an override.
	if summary.Results[0].Cumulative != 4 || summary.Results[0].Balance != 6 {
		t.Errorf("unexpected quantities under override: %+v", summary.Results[0])
	}
}

func TestProcess_MarksRunProcessedOnce(t *testing.T) {
	store := seedRun("ROM-000004", map[string]int{"SOL_1": 10}, []string{"SOL_1"})
	p := newTestProcessor(store)
	ctx := context.Background()

	if _, err := p.Process(ctx, "ROM-000004", map[string]Pick{"SOL_1": {Picked: 2}}, "carlos"); err != nil {
		t.Fatalf("first pass: %v", err)
	}
	runRows := store.Sheet(testNames.Runs)
	if runRows[1][3] != string(models.RunStatusProcessed) {
		t.Fatalf("run not marked Processed: %v", runRows[1])
	}
	firstStamp := runRows[1][6]
	if firstStamp == "" || runRows[1][7] != "carlos" {
		t.Fatalf("missing processing stamp: %v", runRows[1])
	}

	if _, err := p.Process(ctx, "ROM-000004", map[string]Pick{"SOL_1": {Picked: 3}}, "ana"); err != nil {
		t.Fatalf("second pass: %v", err)
	}
	runRows = store.Sheet(testNames.Runs)
	if runRows[1][6] != firstStamp || runRows[1][7] != "carlos" {
		t.Error("Pending->Processed stamp should be written exactly once")
	}
}

func TestProcess_StaleRequestRowSkipped(t *testing.T) {
	store := seedRun("ROM-000005", map[string]int{"SOL_1": 10, "SOL_2": 5}, []string{"SOL_1", "SOL_2"})
	// Wipe SOL_2's line id from the request sheet, as if the row was edited
	// underneath us after run creation.
	store.BatchUpdate(context.Background(), testNames.Requests,
		[]sheets.CellUpdate{{Row: 3, Col: 12, Value: ""}})
	p := newTestProcessor(store)

	summary, err := p.Process(context.Background(), "ROM-000005", map[string]Pick{
		"SOL_1": {Picked: 10},
		"SOL_2": {Picked: 5},
	}, "carlos")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if summary.Processed != 1 {
		t.Errorf("expected 1 processed, got %d", summary.Processed)
	}
	if len(summary.Skipped) != 1 || summary.Skipped[0] != "SOL_2" {
		t.Errorf("expected SOL_2 skipped, got %v", summary.Skipped)
	}
}

func TestProcess_AppendsWithdrawalRows(t *testing.T) {
	store := seedRun("ROM-000006", map[string]int{"SOL_1": 10, "SOL_2": 5}, []string{"SOL_1", "SOL_2"})
	p := newTestProcessor(store)

	if _, err := p.Process(context.Background(), "ROM-000006", map[string]Pick{
		"SOL_1": {Picked: 3},
	}, "carlos"); err != nil {
		t.Fatalf("Process: %v", err)
	}

	rows := store.Sheet(testNames.Withdrawals)
	if len(rows) != 3 { // header + one row per visited line
		t.Fatalf("expected header + 2 withdrawal rows, got %d", len(rows))
	}
	if rows[1][1] != "C-SOL_1" || rows[1][3] != "3" || rows[1][4] != "carlos" || rows[1][6] != "ROM-000006" {
		t.Errorf("unexpected withdrawal row: %v", rows[1])
	}
}

func TestProcess_HealsMissingItemColumns(t *testing.T) {
	// An item sheet that lost its trailing columns must get them appended,
	// never have the writes land in column 0 over the RunID cell.
	store := sheets.NewMemStore()
	store.Seed(testNames.Requests, [][]string{
		{"Date", "Requester", "Code", "Quantity", "PickedQuantity", "Balance", "Status", "LineItemID"},
		{"2025-06-01", "Maria", "A100", "10", "0", "10", string(models.StatusInSeparation), "SOL_1"},
	})
	store.Seed(testNames.Items, [][]string{
		{"RunID", "LineItemID", "Date", "Requester", "Code", "Quantity"},
		{"ROM-000008", "SOL_1", "2025-06-01", "Maria", "A100", "10"},
	})
	store.Seed(testNames.Runs, [][]string{
		sheets.RunHeaders,
		{"ROM-000008", "2025-06-01 08:00:00", "ana", string(models.RunStatusPending), "1", "", "", ""},
	})
	p := newTestProcessor(store)

	summary, err := p.Process(context.Background(), "ROM-000008", map[string]Pick{
		"SOL_1": {Picked: 4},
	}, "carlos")
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if summary.Processed != 1 {
		t.Fatalf("expected 1 processed, got %d", summary.Processed)
	}

	itemRows := store.Sheet(testNames.Items)
	header := sheets.NewResolver(itemRows[0])
	for _, col := range []string{sheets.ColPicked, sheets.ColItemStatus, sheets.ColSeparatedBy} {
		if _, ok := header.Col(col); !ok {
			t.Errorf("column %s not appended to the item sheet header", col)
		}
	}
	if itemRows[1][0] != "ROM-000008" {
		t.Errorf("RunID cell overwritten: %q", itemRows[1][0])
	}
	if got := header.FieldAt(itemRows[1], sheets.ColPicked); got != "4" {
		t.Errorf("picked = %q, want 4", got)
	}
	if got := header.FieldAt(itemRows[1], sheets.ColSeparatedBy); got != "carlos" {
		t.Errorf("separated by = %q, want carlos", got)
	}
}

func TestProcess_RunNotFound(t *testing.T) {
	store := seedRun("ROM-000007", map[string]int{"SOL_1": 10}, []string{"SOL_1"})
	p := newTestProcessor(store)

	_, err := p.Process(context.Background(), "ROM-999999", nil, "carlos")
	if !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestProcess_StoreUnreachable(t *testing.T) {
	store := seedRun("ROM-000008", map[string]int{"SOL_1": 10}, []string{"SOL_1"})
	store.FailWith(sheets.ErrStoreUnreachable)
	p := newTestProcessor(store)

	_, err := p.Process(context.Background(), "ROM-000008", nil, "carlos")
	if !errors.Is(err, sheets.ErrStoreUnreachable) {
		t.Fatalf("expected store unreachable, got %v", err)
	}
}
