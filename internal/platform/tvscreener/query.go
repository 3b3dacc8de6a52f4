// Package tvscreener is a client for the TradingView stock screener scan API,
// with a constrained query builder in place of the screener's free-form query
// language: callers compose column selections, typed filters, ordering, and a
// row limit, and the builder renders the scan payload.
package tvscreener

import "encoding/json"

// Operation is a filter comparison operator understood by the scan API.
type Operation string

const (
	OpGreater  Operation = "greater"
	OpEGreater Operation = "egreater"
	OpLess     Operation = "less"
	OpELess    Operation = "eless"
	OpEqual    Operation = "equal"
	OpNotEqual Operation = "nequal"
	OpInRange  Operation = "in_range"
	OpMatch    Operation = "match"
)

// Filter is one column comparison.
type Filter struct {
	Left      string    `json:"left"`
	Operation Operation `json:"operation"`
	Right     any       `json:"right"`
}

// Greater filters rows where column > value.
func Greater(column string, value any) Filter {
	return Filter{Left: column, Operation: OpGreater, Right: value}
}

// GreaterEqual filters rows where column >= value.
func GreaterEqual(column string, value any) Filter {
	return Filter{Left: column, Operation: OpEGreater, Right: value}
}

// Less filters rows where column < value.
func Less(column string, value any) Filter {
	return Filter{Left: column, Operation: OpLess, Right: value}
}

// LessEqual filters rows where column <= value.
func LessEqual(column string, value any) Filter {
	return Filter{Left: column, Operation: OpELess, Right: value}
}

// Equal filters rows where column == value.
func Equal(column string, value any) Filter {
	return Filter{Left: column, Operation: OpEqual, Right: value}
}

// NotEqual filters rows where column != value.
func NotEqual(column string, value any) Filter {
	return Filter{Left: column, Operation: OpNotEqual, Right: value}
}

// Between filters rows where lo <= column <= hi.
func Between(column string, lo, hi any) Filter {
	return Filter{Left: column, Operation: OpInRange, Right: []any{lo, hi}}
}

// IsIn filters rows where the column value is one of the given values.
func IsIn(column string, values ...string) Filter {
	right := make([]any, len(values))
	for i, v := range values {
		right[i] = v
	}
	return Filter{Left: column, Operation: OpInRange, Right: right}
}

// Match filters rows where the column matches the pattern.
func Match(column, pattern string) Filter {
	return Filter{Left: column, Operation: OpMatch, Right: pattern}
}

// defaultColumns mirror the screener's baseline selection.
var defaultColumns = []string{"name", "close", "volume", "market_cap_basic"}

const defaultLimit = 50

// Query is a screener scan under construction. The zero value selects the
// default columns over the US market with a 50-row limit.
type Query struct {
	columns   []string
	filters   []Filter
	sortBy    string
	sortOrder string
	limit     int
	markets   []string
}

// NewQuery creates a query with the default column selection.
func NewQuery() *Query {
	return &Query{}
}

// Select replaces the column selection.
func (q *Query) Select(columns ...string) *Query {
	q.columns = columns
	return q
}

// Where appends filters; all filters must hold.
func (q *Query) Where(filters ...Filter) *Query {
	q.filters = append(q.filters, filters...)
	return q
}

// OrderBy sorts results by the column.
func (q *Query) OrderBy(column string, ascending bool) *Query {
	q.sortBy = column
	if ascending {
		q.sortOrder = "asc"
	} else {
		q.sortOrder = "desc"
	}
	return q
}

// Limit caps the number of returned rows.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Markets replaces the market selection. The default is the US market.
func (q *Query) Markets(markets ...string) *Query {
	q.markets = markets
	return q
}

// Columns returns the effective column selection.
func (q *Query) Columns() []string {
	if len(q.columns) == 0 {
		return defaultColumns
	}
	return q.columns
}

type sortPayload struct {
	SortBy    string `json:"sortBy"`
	SortOrder string `json:"sortOrder"`
}

type symbolsQuery struct {
	Types []string `json:"types"`
}

type symbolsPayload struct {
	Query   symbolsQuery `json:"query"`
	Tickers []string     `json:"tickers"`
}

type scanPayload struct {
	Markets []string          `json:"markets"`
	Symbols symbolsPayload    `json:"symbols"`
	Options map[string]string `json:"options"`
	Columns []string          `json:"columns"`
	Filter  []Filter          `json:"filter,omitempty"`
	Sort    *sortPayload      `json:"sort,omitempty"`
	Range   [2]int            `json:"range"`
}

// payload renders the query as the scan request body.
func (q *Query) payload() scanPayload {
	limit := q.limit
	if limit <= 0 {
		limit = defaultLimit
	}
	markets := q.markets
	if len(markets) == 0 {
		markets = []string{"america"}
	}

	p := scanPayload{
		Markets: markets,
		Options: map[string]string{"lang": "en"},
		Columns: q.Columns(),
		Filter:  q.filters,
		Range:   [2]int{0, limit},
	}
	p.Symbols.Query.Types = []string{}
	p.Symbols.Tickers = []string{}
	if q.sortBy != "" {
		p.Sort = &sortPayload{SortBy: q.sortBy, SortOrder: q.sortOrder}
	}
	return p
}

// MarshalJSON renders the scan request body.
func (q *Query) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.payload())
}
