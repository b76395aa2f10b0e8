package index

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/elastic/go-elasticsearch/v7"
	"github.com/sirupsen/logrus"

	"github.com/quillium/papersearch/pkg/model"
	"github.com/quillium/papersearch/pkg/schema"
)

// ErrNotFound indicates the requested document is not in the index.
var ErrNotFound = errors.New("document not found in index")

// Session encapsulates the connection to the search engine for one index.
// It is safe for concurrent use; the engine serializes conflicting writes by
// document id.
type Session struct {
	endpoint        *url.URL
	index           string
	mappingOverride string
	registry        *schema.Registry
	es              *elasticsearch.Client
	logger          *logrus.Entry
}

// NewSession connects to the search engine and verifies it is reachable.
func NewSession(logger *logrus.Entry, registry *schema.Registry, endpoint string, index string, username string, password string, mappingOverride string) (*Session, error) {

	endpointURL, err := url.Parse(endpoint)
	if err != nil {
		return nil, err
	}

	s := &Session{
		endpoint:        endpointURL,
		index:           index,
		mappingOverride: mappingOverride,
		registry:        registry,
		logger:          logger,
	}

	cfg := elasticsearch.Config{
		Addresses: []string{s.endpoint.String()},
		Username:  username,
		Password:  password,
	}

	es, err := elasticsearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	s.es = es

	s.logger.Debugln("connect to the search engine")
	s.logger.Debugln(elasticsearch.Version)

	res, err := es.Info()
	if err != nil {
		return nil, fmt.Errorf("index: engine unreachable at %s: %w", s.endpoint, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("index: engine error on connect: %s", res.String())
	}

	return s, nil
}

// Index returns the index name this session writes to.
func (s *Session) Index() string {
	return s.index
}

// EnsureIndex creates the document index with the registry's mapping if it
// does not exist yet.
func (s *Session) EnsureIndex() error {

	s.logger.Debugf("ensure index %s exists", s.index)
	resp, err := s.es.Indices.Exists([]string{s.index})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == 200 {
		s.logger.Debugln("index already exists, skipping")
		return nil
	}

	mapping, err := s.mappingReader()
	if err != nil {
		return err
	}

	created, err := s.es.Indices.Create(s.index, s.es.Indices.Create.WithBody(mapping))
	if err != nil {
		return err
	}
	defer created.Body.Close()
	if created.IsError() {
		return fmt.Errorf("index: could not create index %s: %s", s.index, created.String())
	}
	s.logger.Infof("created index %s (mapping version %s)", s.index, s.registry.Version())
	return nil
}

// MappingVersion reads the mapping version of the live index so the
// orchestrator can decide between an incremental run and a full rebuild. A
// missing index returns an empty version and no error.
func (s *Session) MappingVersion() (string, error) {
	resp, err := s.es.Indices.GetMapping(s.es.Indices.GetMapping.WithIndex(s.index))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode == 404 {
		return "", nil
	}
	if resp.IsError() {
		return "", fmt.Errorf("index: could not read mapping for %s: %s", s.index, resp.String())
	}

	var parsed map[string]struct {
		Mappings struct {
			Meta struct {
				Version string `json:"version"`
			} `json:"_meta"`
		} `json:"mappings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	for _, idx := range parsed {
		return idx.Mappings.Meta.Version, nil
	}
	return "", nil
}

// Reindex creates newIndex with the current mapping and copies this
// session's index into it. Used after a breaking schema change, since
// analyzers cannot be changed in place on a live field.
func (s *Session) Reindex(ctx context.Context, newIndex string, waitForCompletion bool) error {

	mapping, err := s.mappingReader()
	if err != nil {
		return err
	}
	created, err := s.es.Indices.Create(newIndex, s.es.Indices.Create.WithBody(mapping))
	if err != nil {
		return err
	}
	defer created.Body.Close()
	if created.IsError() {
		return fmt.Errorf("index: could not create index %s: %s", newIndex, created.String())
	}

	body := map[string]interface{}{
		"source": map[string]interface{}{"index": s.index},
		"dest":   map[string]interface{}{"index": newIndex},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	s.logger.Infof("reindex %s into %s", s.index, newIndex)
	resp, err := s.es.Reindex(bytes.NewReader(payload),
		s.es.Reindex.WithContext(ctx),
		s.es.Reindex.WithWaitForCompletion(waitForCompletion))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return fmt.Errorf("index: reindex failed: %s", resp.String())
	}
	return nil
}

// GetDocument retrieves one document by its paper_id_v key.
func (s *Session) GetDocument(ctx context.Context, paperIDv string) (model.Document, error) {
	resp, err := s.es.Get(s.index, url.PathEscape(paperIDv), s.es.Get.WithContext(ctx))
	if err != nil {
		return model.Document{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == 404 {
		return model.Document{}, ErrNotFound
	}
	if resp.IsError() {
		return model.Document{}, fmt.Errorf("index: get %s: %s", paperIDv, resp.String())
	}

	var envelope struct {
		Source model.Document `json:"_source"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return model.Document{}, err
	}
	return envelope.Source, nil
}

// CurrentVersion resolves a versionless paper id to its current version's
// document.
func (s *Session) CurrentVersion(ctx context.Context, paperID string) (model.Document, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"filter": []interface{}{
					map[string]interface{}{"term": map[string]interface{}{"paper_id": paperID}},
					map[string]interface{}{"term": map[string]interface{}{"is_current": true}},
				},
			},
		},
	}

	docs, _, err := s.Search(ctx, body, 0, 1)
	if err != nil {
		return model.Document{}, err
	}
	if len(docs) == 0 {
		return model.Document{}, ErrNotFound
	}
	return docs[0], nil
}

// Exists reports whether a paper version is present in the index.
func (s *Session) Exists(ctx context.Context, paperIDv string) (bool, error) {
	resp, err := s.es.Exists(s.index, url.PathEscape(paperIDv), s.es.Exists.WithContext(ctx))
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	return resp.StatusCode == 200, nil
}

// Search executes a prepared query body against the index with the given
// window and parses the hits, including nested inner-hit matches.
func (s *Session) Search(ctx context.Context, body map[string]interface{}, from int, size int) ([]model.Document, int64, error) {

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, err
	}
	s.logger.Debugf("search body: %s", payload)

	resp, err := s.es.Search(
		s.es.Search.WithContext(ctx),
		s.es.Search.WithIndex(s.index),
		s.es.Search.WithBody(bytes.NewReader(payload)),
		s.es.Search.WithFrom(from),
		s.es.Search.WithSize(size),
		s.es.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	if resp.IsError() {
		return nil, 0, fmt.Errorf("index: search failed: %s", resp.String())
	}

	return parseSearchResponse(resp.Body)
}

func parseSearchResponse(body io.Reader) ([]model.Document, int64, error) {
	var envelope struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source    model.Document `json:"_source"`
				InnerHits map[string]struct {
					Hits struct {
						Hits []struct {
							Source model.Author `json:"_source"`
						} `json:"hits"`
					} `json:"hits"`
				} `json:"inner_hits"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(body).Decode(&envelope); err != nil {
		return nil, 0, err
	}

	docs := make([]model.Document, 0, len(envelope.Hits.Hits))
	for _, hit := range envelope.Hits.Hits {
		doc := hit.Source
		//inner_hits names are the nested path, suffixed when a query holds
		//several clauses for the same path
		for name, inner := range hit.InnerHits {
			for _, ih := range inner.Hits.Hits {
				if doc.Match == nil {
					doc.Match = &model.MatchInfo{}
				}
				switch {
				case strings.HasPrefix(name, "authors"):
					doc.Match.Authors = append(doc.Match.Authors, ih.Source.FullName)
				case strings.HasPrefix(name, "owners"):
					doc.Match.Owners = append(doc.Match.Owners, ih.Source.FullName)
				}
			}
		}
		docs = append(docs, doc)
	}
	return docs, envelope.Hits.Total.Value, nil
}

func (s *Session) mappingReader() (io.Reader, error) {
	if len(s.mappingOverride) > 0 {
		f, err := os.Open(s.mappingOverride)
		if err != nil {
			return nil, fmt.Errorf("index: could not open mapping override %s: %w", s.mappingOverride, err)
		}
		return bufio.NewReader(f), nil
	}
	return strings.NewReader(string(s.registry.Mapping())), nil
}
