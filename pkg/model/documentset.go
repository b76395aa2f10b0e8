package model

// DocumentSet is the result envelope returned by the query API.
type DocumentSet struct {
	Metadata SetMetadata `json:"metadata"`
	Results  []Document  `json:"results"`
}

type SetMetadata struct {
	Query      string     `json:"query"`
	Total      int64      `json:"total"`
	Start      int        `json:"start"`
	Size       int        `json:"size"`
	Pagination Pagination `json:"pagination"`
}

type Pagination struct {
	Next     string `json:"next,omitempty"`
	Previous string `json:"previous,omitempty"`
}
