package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/Skotchmaster/gigmarket/internal/models"
)

// JobIndex keeps job postings searchable in Elasticsearch.
type JobIndex struct {
	ES    *elasticsearch.Client
	Index string
}

type jobDoc struct {
	ID          uint   `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category,omitempty"`
	Type        string `json:"type,omitempty"`
	Location    string `json:"location,omitempty"`
	Budget      string `json:"budget,omitempty"`
	Skills      string `json:"skills,omitempty"`
	Description string `json:"description,omitempty"`
	OwnerID     uint   `json:"ownerId"`
}

func toDoc(j models.Job) jobDoc {
	return jobDoc{
		ID:          j.ID,
		Title:       j.Title,
		Category:    j.Category,
		Type:        j.Type,
		Location:    j.Location,
		Budget:      j.Budget,
		Skills:      j.Skills,
		Description: j.Description,
		OwnerID:     j.OwnerID,
	}
}

func (d jobDoc) job() models.Job {
	return models.Job{
		ID:          d.ID,
		Title:       d.Title,
		Category:    d.Category,
		Type:        d.Type,
		Location:    d.Location,
		Budget:      d.Budget,
		Skills:      d.Skills,
		Description: d.Description,
		OwnerID:     d.OwnerID,
	}
}

func (s *JobIndex) IndexJob(ctx context.Context, j models.Job) error {
	body, err := json.Marshal(toDoc(j))
	if err != nil {
		return fmt.Errorf("index job: %w", err)
	}

	res, err := s.ES.Index(
		s.Index,
		bytes.NewReader(body),
		s.ES.Index.WithContext(ctx),
		s.ES.Index.WithDocumentID(strconv.FormatUint(uint64(j.ID), 10)),
	)
	if err != nil {
		return fmt.Errorf("index job: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return fmt.Errorf("index job: %s: %s", res.Status(), msg)
	}
	return nil
}

func (s *JobIndex) Search(ctx context.Context, query string, from, size int) (int64, []models.Job, error) {
	body := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":     query,
				"fields":    []string{"title^3", "skills^2", "category", "description"},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}

	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(s.Index),
		s.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return 0, nil, fmt.Errorf("search: %s: %s", res.Status(), msg)
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source jobDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, fmt.Errorf("search: decode: %w", err)
	}

	jobs := make([]models.Job, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		jobs[i] = hit.Source.job()
	}
	return r.Hits.Total.Value, jobs, nil
}
