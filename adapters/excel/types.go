package excel

// RawRowData represents a single row of raw data keyed by header
type RawRowData map[string]string

// ExcelData represents a complete tabular file
type ExcelData struct {
	Headers []string     // Column headers, trimmed, in file order
	Rows    []RawRowData // Data rows
}

// Column returns the raw cells of one column in row order.
func (d *ExcelData) Column(header string) []string {
	out := make([]string, len(d.Rows))
	for i, row := range d.Rows {
		out[i] = row[header]
	}
	return out
}

// HasHeader reports whether a header is present.
func (d *ExcelData) HasHeader(header string) bool {
	for _, h := range d.Headers {
		if h == header {
			return true
		}
	}
	return false
}
