package model

// Page is one slice of rows returned by a paged source.
type Page struct {
	Rows []Row `json:"resultset"`

	// Start is the offset of the first row. Total is the number of rows the
	// query matches at the source; HasTotal is false when the source did not
	// report it.
	Start    int  `json:"pageStart"`
	Total    int  `json:"totalRows"`
	HasTotal bool `json:"-"`
}

// PageRequest asks a source for one page of rows matching Pattern.
type PageRequest struct {
	Page     int
	PageSize int
	Pattern  string
}

// Offset returns the index of the first row of the requested page.
func (r PageRequest) Offset() int {
	if r.Page < 0 || r.PageSize <= 0 {
		return 0
	}
	return r.Page * r.PageSize
}
