package models

// Request is one row of the request sheet, mapped to a typed value at the
// store boundary. Instances are transient projections: they are rebuilt from
// reads and discarded after each operation, the sheet stays the owner.
type Request struct {
	RowIndex       int    `json:"row_index"` // 1-based sheet row, not a stable key
	Date           string `json:"date"`
	Requester      string `json:"requester"`
	Code           string `json:"code"`
	Description    string `json:"description"`
	Unit           string `json:"unit"`
	Quantity       int    `json:"quantity"`
	Location       string `json:"location"`
	StockBalance   int    `json:"stock_balance"`
	MonthlyAverage int    `json:"monthly_average"`
	Picked         int    `json:"picked"`  // cumulative across all runs
	Balance        int    `json:"balance"` // max(0, quantity - picked)
	Status         Status `json:"status"`
	LineItemID     string `json:"line_item_id"` // stamped on first run inclusion
}

type PrintRun struct {
	RowIndex    int       `json:"row_index"`
	ID          string    `json:"id"`
	CreatedAt   string    `json:"created_at"`
	CreatedBy   string    `json:"created_by"`
	Status      RunStatus `json:"status"`
	ItemCount   int       `json:"item_count"`
	Notes       string    `json:"notes"`
	ProcessedAt string    `json:"processed_at"`
	ProcessedBy string    `json:"processed_by"`
}

// PrintRunItem snapshots a request inside one print run. The descriptive
// fields are write-once at run creation; Picked, ItemStatus, Notes and the
// separation stamps are overwritten on each processing pass.
type PrintRunItem struct {
	RowIndex       int    `json:"row_index"`
	RunID          string `json:"run_id"`
	LineItemID     string `json:"line_item_id"`
	Date           string `json:"date"`
	Requester      string `json:"requester"`
	Code           string `json:"code"`
	Description    string `json:"description"`
	Unit           string `json:"unit"`
	Quantity       int    `json:"quantity"`
	Location       string `json:"location"`
	StockBalance   int    `json:"stock_balance"`
	MonthlyAverage int    `json:"monthly_average"`
	ItemStatus     Status `json:"item_status"`
	Picked         int    `json:"picked"` // this run only, overwritten per pass
	Notes          string `json:"notes"`
	SeparatedAt    string `json:"separated_at"`
	SeparatedBy    string `json:"separated_by"`
}
