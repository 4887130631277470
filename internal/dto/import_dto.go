package dto

// ImportFailure reports a spreadsheet row that was not imported.
type ImportFailure struct {
	Row    int      `json:"row"`
	Errors []string `json:"errors"`
}

// ImportResult summarises a spreadsheet import.
type ImportResult struct {
	Imported int             `json:"imported"`
	Failed   []ImportFailure `json:"failed"`
}
