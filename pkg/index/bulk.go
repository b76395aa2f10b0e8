package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/quillium/papersearch/pkg/model"
)

// ItemStatus is the per-document outcome of a bulk upsert.
type ItemStatus int

const (
	// StatusWritten means the engine accepted the document.
	StatusWritten ItemStatus = iota
	// StatusRejected is a permanent rejection (schema/data mismatch).
	// Retrying the same document cannot succeed.
	StatusRejected
	// StatusRetryable is a transient engine failure (timeout, resource
	// exhaustion, concurrency conflict). The orchestrator may retry.
	StatusRetryable
)

func (s ItemStatus) String() string {
	switch s {
	case StatusWritten:
		return "written"
	case StatusRejected:
		return "rejected"
	case StatusRetryable:
		return "retryable_error"
	}
	return "unknown"
}

// ItemResult is the outcome for one document within a bulk call.
type ItemResult struct {
	PaperIDv string
	Status   ItemStatus
	Reason   string
}

// BatchResult reports, per paper_id_v, what the engine did with each
// document of a bulk upsert. The engine may accept some documents and reject
// others within the same call.
type BatchResult struct {
	Items []ItemResult
}

// Written returns the ids that were accepted.
func (r BatchResult) Written() []string {
	return r.withStatus(StatusWritten)
}

// Rejected returns the items that failed permanently.
func (r BatchResult) Rejected() []ItemResult {
	return r.itemsWithStatus(StatusRejected)
}

// Retryable returns the items that failed transiently.
func (r BatchResult) Retryable() []ItemResult {
	return r.itemsWithStatus(StatusRetryable)
}

func (r BatchResult) withStatus(status ItemStatus) []string {
	var ids []string
	for _, item := range r.Items {
		if item.Status == status {
			ids = append(ids, item.PaperIDv)
		}
	}
	return ids
}

func (r BatchResult) itemsWithStatus(status ItemStatus) []ItemResult {
	var items []ItemResult
	for _, item := range r.Items {
		if item.Status == status {
			items = append(items, item)
		}
	}
	return items
}

// BulkUpsert writes a batch of documents in one bulk call, keyed by
// paper_id_v. Writes are idempotent create-or-replace operations;
// re-submitting an unchanged document is a no-op in effect. The writer never
// retries internally: retry policy belongs to the orchestrator.
func (s *Session) BulkUpsert(ctx context.Context, docs []model.Document) (BatchResult, error) {
	if len(docs) == 0 {
		return BatchResult{}, nil
	}

	var buf bytes.Buffer
	for _, doc := range docs {
		if doc.PaperIDv == "" {
			return BatchResult{}, fmt.Errorf("index: document without paper_id_v in batch")
		}
		action := map[string]interface{}{
			"index": map[string]interface{}{"_id": doc.PaperIDv},
		}
		if err := json.NewEncoder(&buf).Encode(action); err != nil {
			return BatchResult{}, err
		}
		if err := json.NewEncoder(&buf).Encode(doc); err != nil {
			return BatchResult{}, err
		}
	}

	s.logger.Debugf("bulk upsert of %d documents", len(docs))
	resp, err := s.es.Bulk(bytes.NewReader(buf.Bytes()),
		s.es.Bulk.WithContext(ctx),
		s.es.Bulk.WithIndex(s.index))
	if err != nil {
		return BatchResult{}, err
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return BatchResult{}, fmt.Errorf("index: bulk request failed: %s", resp.String())
	}

	return parseBulkResponse(resp.Body)
}

// retryableErrorTypes are engine error types that indicate a transient
// condition rather than a schema/data mismatch.
var retryableErrorTypes = map[string]bool{
	"es_rejected_execution_exception":        true,
	"circuit_breaking_exception":             true,
	"unavailable_shards_exception":           true,
	"cluster_block_exception":                true,
	"process_cluster_event_timeout_exception": true,
	"timeout_exception":                       true,
	"version_conflict_engine_exception":       true,
}

type bulkError struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

type bulkItem struct {
	ID     string     `json:"_id"`
	Status int        `json:"status"`
	Error  *bulkError `json:"error"`
}

func parseBulkResponse(body io.Reader) (BatchResult, error) {
	var envelope struct {
		Errors bool                  `json:"errors"`
		Items  []map[string]bulkItem `json:"items"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		return BatchResult{}, fmt.Errorf("index: invalid bulk response: %w", err)
	}

	result := BatchResult{Items: make([]ItemResult, 0, len(envelope.Items))}
	for _, wrapper := range envelope.Items {
		for _, item := range wrapper {
			out := ItemResult{PaperIDv: item.ID}
			switch {
			case item.Status >= 200 && item.Status < 300:
				out.Status = StatusWritten
			case isRetryable(item.Status, item.Error):
				out.Status = StatusRetryable
				out.Reason = item.Error.describe(item.Status)
			default:
				out.Status = StatusRejected
				out.Reason = item.Error.describe(item.Status)
			}
			result.Items = append(result.Items, out)
			break //the wrapper has exactly one action key
		}
	}
	return result, nil
}

func isRetryable(status int, e *bulkError) bool {
	switch status {
	case 408, 409, 429, 502, 503, 504:
		return true
	}
	return e != nil && retryableErrorTypes[e.Type]
}

func (e *bulkError) describe(status int) string {
	if e == nil {
		return fmt.Sprintf("status %d", status)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Reason)
}
