package sheets

import "strings"

// The request sheet is filled by an upstream intake form and its headers are
// not under our control: spelling, accents and ordering drift. Columns are
// therefore resolved by normalized name with an alias list per canonical
// column, never by fixed position.
var columnAliases = map[string][]string{
	ColDate:           {"date", "data", "data solicitacao"},
	ColRequester:      {"requester", "solicitante"},
	ColCode:           {"code", "codigo", "cod", "cod="},
	ColDescription:    {"description", "descricao", "item", "produto"},
	ColUnit:           {"unit", "unidade", "un"},
	ColQuantity:       {"quantity", "quantidade", "qtd", "qtd solicitada"},
	ColLocation:       {"location", "localizacao", "locacao", "locacao matriz"},
	ColStockBalance:   {"stockbalance", "stock balance", "saldo estoque"},
	ColMonthlyAverage: {"monthlyaverage", "monthly average", "media mensal", "media consumo"},
	ColPicked:         {"pickedquantity", "picked quantity", "qtd separada", "qtd. separada"},
	ColBalance:        {"balance", "saldo"},
	ColStatus:         {"status"},
	ColLineItemID:     {"lineitemid", "line item id", "id solicitacao", "id_solicitacao"},
	ColRunID:          {"runid", "run id", "id impressao", "id_impressao"},
	ColCreatedAt:      {"createdat", "created at"},
	ColCreatedBy:      {"createdby", "created by"},
	ColItemCount:      {"itemcount", "item count", "total itens"},
	ColNotes:          {"notes", "observacoes"},
	ColProcessedAt:    {"processedat", "processed at", "data processamento"},
	ColProcessedBy:    {"processedby", "processed by", "usuario processamento"},
	ColItemStatus:     {"itemstatus", "item status", "status item"},
	ColSeparatedAt:    {"separatedat", "separated at", "data separacao"},
	ColSeparatedBy:    {"separatedby", "separated by", "separado por"},
}

var accentFold = map[rune]rune{
	'á': 'a', 'à': 'a', 'ã': 'a', 'â': 'a',
	'é': 'e', 'ê': 'e',
	'í': 'i',
	'ó': 'o', 'õ': 'o', 'ô': 'o',
	'ú': 'u', 'ü': 'u',
	'ç': 'c',
}

// normalizeHeader folds a raw header cell to a comparable key: lower-cased,
// accents stripped, punctuation collapsed to single spaces.
func normalizeHeader(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if f, ok := accentFold[r]; ok {
			r = f
		}
		switch r {
		case '.', '_', '-', '/':
			r = ' '
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Resolver maps canonical column names to positions in one header row.
// Build one per read; headers can have shifted since the last read.
type Resolver struct {
	header []string
	byName map[string]int
}

func NewResolver(header []string) *Resolver {
	r := &Resolver{header: header, byName: make(map[string]int, len(header))}
	for i, h := range header {
		key := normalizeHeader(h)
		if key == "" {
			continue
		}
		// First occurrence wins on duplicate headers.
		if _, seen := r.byName[key]; !seen {
			r.byName[key] = i
		}
	}
	return r
}

// Col returns the 0-based index of the canonical column, trying the canonical
// name itself and then its aliases.
func (r *Resolver) Col(name string) (int, bool) {
	if i, ok := r.byName[normalizeHeader(name)]; ok {
		return i, true
	}
	for _, alias := range columnAliases[name] {
		if i, ok := r.byName[alias]; ok {
			return i, true
		}
	}
	return 0, false
}

// Missing returns the subset of names that do not resolve.
func (r *Resolver) Missing(names ...string) []string {
	var missing []string
	for _, n := range names {
		if _, ok := r.Col(n); !ok {
			missing = append(missing, n)
		}
	}
	return missing
}

// Field safely reads a cell from a possibly short row.
func Field(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// FieldAt resolves the column and reads it in one step.
func (r *Resolver) FieldAt(row []string, name string) string {
	col, ok := r.Col(name)
	if !ok {
		return ""
	}
	return Field(row, col)
}
