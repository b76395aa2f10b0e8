package agent

import (
	"sync"
)

// Stage names the pipeline step at which a document left the happy path.
type Stage string

const (
	StageFetch     Stage = "fetch"
	StageTransform Stage = "transform"
	StageIndex     Stage = "index"
)

// DeadLetter records a document the run could not index, with the stage that
// failed and the last error seen. Fetch-stage letters carry the versionless
// paper id; later stages carry the versioned one.
type DeadLetter struct {
	ID     string `json:"id"`
	Stage  Stage  `json:"stage"`
	Reason string `json:"reason"`
}

// Summary accumulates the outcome of one indexing run. Counter fields are
// updated with atomic adds by concurrent workers; read them after Run
// returns.
type Summary struct {
	Fetched         int64 `json:"fetched"`
	Normalized      int64 `json:"normalized"`
	Written         int64 `json:"written"`
	Skipped         int64 `json:"skipped"`
	FetchFailed     int64 `json:"fetch_failed"`
	TransformFailed int64 `json:"transform_failed"`
	IndexFailed     int64 `json:"index_failed"`

	mu          sync.Mutex
	DeadLetters []DeadLetter `json:"dead_letters"`
}

func (s *Summary) deadLetter(id string, stage Stage, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.DeadLetters = append(s.DeadLetters, DeadLetter{ID: id, Stage: stage, Reason: reason})
}

// Failed reports whether any document was lost during the run.
func (s *Summary) Failed() bool {
	return s.FetchFailed > 0 || s.TransformFailed > 0 || s.IndexFailed > 0
}
