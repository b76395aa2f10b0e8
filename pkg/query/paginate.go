package query

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quillium/papersearch/pkg/model"
)

const (
	// MaxResultWindow is the deepest offset+size the engine is asked to
	// window. Offset pagination past this point is disallowed by contract:
	// its cost grows with the offset, so deeper traversal must use the
	// stable sort-key cursor instead.
	MaxResultWindow = 10000

	// DefaultPageSize applies when the request names no size.
	DefaultPageSize = 50

	// MaxPageSize caps a single page.
	MaxPageSize = 200
)

// Window is an engine-level offset+size slice of the result set.
type Window struct {
	From int
	Size int
}

// DepthError signals that the requested offset lies beyond the windowing
// boundary and the caller should switch to cursor pagination.
type DepthError struct {
	Requested int
}

func (e *DepthError) Error() string {
	return fmt.Sprintf(
		"requested offset %d exceeds the maximum result window of %d; use cursor pagination to traverse deeper",
		e.Requested, MaxResultWindow)
}

// Planner converts API offset/size requests into engine windows.
type Planner struct {
	MaxDepth    int
	DefaultSize int
	MaxSize     int
}

func NewPlanner() Planner {
	return Planner{
		MaxDepth:    MaxResultWindow,
		DefaultSize: DefaultPageSize,
		MaxSize:     MaxPageSize,
	}
}

// Plan validates and clamps the requested window. Absent values default to
// the first page.
func (p Planner) Plan(start, size int) (Window, error) {
	if start < 0 {
		return Window{}, &Error{Message: fmt.Sprintf("invalid start offset %d", start)}
	}
	if size < 0 {
		return Window{}, &Error{Message: fmt.Sprintf("invalid page size %d", size)}
	}
	if size == 0 {
		size = p.DefaultSize
	}
	if size > p.MaxSize {
		size = p.MaxSize
	}
	if start+size > p.MaxDepth {
		return Window{}, &DepthError{Requested: start + size}
	}
	return Window{From: start, Size: size}, nil
}

// Cursor is the stable sort key of the last document on a page, used to
// continue past the offset windowing boundary.
type Cursor struct {
	SubmittedDateFirst time.Time `json:"submitted_date_first"`
	PaperIDv           string    `json:"paper_id_v"`
}

// EncodeCursor derives the continuation cursor from the last document of a
// page ordered by the default date sort.
func EncodeCursor(doc model.Document) string {
	payload, _ := json.Marshal(Cursor{
		SubmittedDateFirst: doc.SubmittedDateFirst,
		PaperIDv:           doc.PaperIDv,
	})
	return base64.URLEncoding.EncodeToString(payload)
}

// DecodeCursor parses a cursor produced by EncodeCursor. A malformed cursor
// is a client error.
func DecodeCursor(s string) (Cursor, error) {
	payload, err := base64.URLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, &Error{Message: "malformed pagination cursor"}
	}
	var c Cursor
	if err := json.Unmarshal(payload, &c); err != nil || c.PaperIDv == "" {
		return Cursor{}, &Error{Message: "malformed pagination cursor"}
	}
	return c, nil
}

// SearchAfter renders the cursor as the engine's search_after sort values,
// matching the default sort of submitted_date_first then paper_id_v.
func (c Cursor) SearchAfter() []interface{} {
	return []interface{}{
		c.SubmittedDateFirst.UnixMilli(),
		c.PaperIDv,
	}
}
