package models

// Page is one page of the source document as seen by the splitter.
type Page struct {
	Index int    // 0-based position in the source document
	Text  string // extracted plain text, empty when the page has no text layer
}

// OutputRecord describes one emitted sub-document.
type OutputRecord struct {
	Candidate  string `json:"candidate"`
	Path       string `json:"path"`
	Identifier string `json:"identifier,omitempty"`
	Pages      []int  `json:"pages"`
}

// SplitReport is the aggregate result of a split run. It is returned for
// failed runs too, carrying whatever was written before the failure.
type SplitReport struct {
	TotalPages     int            `json:"totalPages"`
	Created        int            `json:"created"`
	Outputs        []OutputRecord `json:"outputs"`
	OutputPaths    []string       `json:"outputPaths"`
	DiscardedPages []int          `json:"discardedPages,omitempty"`
	Success        bool           `json:"success"`
	Message        string         `json:"message"`
}
