package sheets

import (
	"context"
	"errors"
	"fmt"
)

// ErrStoreUnreachable marks network/auth failures against the remote
// spreadsheet. Callers may retry the whole operation: nothing is guaranteed to
// have been written before the first successful batch call.
var ErrStoreUnreachable = errors.New("tabular store unreachable")

func unreachable(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrStoreUnreachable, err)
}

// CellUpdate addresses a single cell write. Row is 1-based (sheet row), Col is
// 0-based (header index), matching how rows come back from Rows.
type CellUpdate struct {
	Row   int
	Col   int
	Value string
}

// Store is the full surface the rest of the system uses to talk to the
// tabular store. Client implements it against Google Sheets, MemStore in
// memory for tests.
type Store interface {
	// Rows returns every row of the sheet, header included, as strings.
	Rows(ctx context.Context, sheet string) ([][]string, error)
	// Append adds rows after the last non-empty row.
	Append(ctx context.Context, sheet string, rows [][]string) error
	// BatchUpdate writes all cell updates in a single remote call.
	BatchUpdate(ctx context.Context, sheet string, updates []CellUpdate) error
	// EnsureSheet creates the sheet with the given header row if absent.
	EnsureSheet(ctx context.Context, sheet string, headers []string) error
	// EnsureColumns appends any missing header and returns the header row as
	// it stands afterwards. Idempotent: existing headers are matched through
	// the resolver, not by position.
	EnsureColumns(ctx context.Context, sheet string, names []string) ([]string, error)
}

// Names holds the sheet titles. The request sheet is an externally owned tab
// whose title tends to differ per deployment; the control sheets are created
// by this system on demand.
type Names struct {
	Requests    string
	Runs        string
	Items       string
	Withdrawals string
	Activity    string
}

func DefaultNames() Names {
	return Names{
		Requests:    "Requests",
		Runs:        "PrintRuns",
		Items:       "PrintRunItems",
		Withdrawals: "Withdrawals",
		Activity:    "ActivityLog",
	}
}

// Canonical column names. The resolver maps these to whatever header spelling
// the sheet actually carries.
const (
	ColDate           = "Date"
	ColRequester      = "Requester"
	ColCode           = "Code"
	ColDescription    = "Description"
	ColUnit           = "Unit"
	ColQuantity       = "Quantity"
	ColLocation       = "Location"
	ColStockBalance   = "StockBalance"
	ColMonthlyAverage = "MonthlyAverage"
	ColPicked         = "PickedQuantity"
	ColBalance        = "Balance"
	ColStatus         = "Status"
	ColLineItemID     = "LineItemID"

	ColRunID       = "RunID"
	ColCreatedAt   = "CreatedAt"
	ColCreatedBy   = "CreatedBy"
	ColItemCount   = "ItemCount"
	ColNotes       = "Notes"
	ColProcessedAt = "ProcessedAt"
	ColProcessedBy = "ProcessedBy"

	ColItemStatus  = "ItemStatus"
	ColSeparatedAt = "SeparatedAt"
	ColSeparatedBy = "SeparatedBy"
)

// Header rows for the sheets this system owns.
var (
	RunHeaders = []string{
		ColRunID, ColCreatedAt, ColCreatedBy, ColStatus,
		ColItemCount, ColNotes, ColProcessedAt, ColProcessedBy,
	}
	ItemHeaders = []string{
		ColRunID, ColLineItemID, ColDate, ColRequester, ColCode,
		ColDescription, ColUnit, ColQuantity, ColLocation, ColStockBalance,
		ColMonthlyAverage, ColItemStatus, ColPicked, ColNotes,
		ColSeparatedAt, ColSeparatedBy,
	}
	WithdrawalHeaders = []string{
		"Timestamp", ColCode, ColDate, ColQuantity, "Operator", ColRequester, ColRunID,
	}
	ActivityHeaders = []string{
		"Timestamp", "User", "Action", "Entity", "EntityID", "Details", "Result",
	}
)
