// Package dataset loads evaluation datasets: a document corpus, a query set,
// and relevance judgments (qrels). All three are loaded once per run and
// treated as read-only afterwards.
package dataset

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/embedbench/embed-bench/internal/config"
	"github.com/embedbench/embed-bench/internal/pkg/errors"
)

// Document is a corpus item.
type Document struct {
	ID   string `json:"_id"`
	Text string `json:"text"`
}

// Query is an evaluation query.
type Query struct {
	ID   string `json:"_id"`
	Text string `json:"text"`
}

// Relevance maps a query ID to the set of document IDs considered relevant.
// Relevance is binary; graded qrels scores collapse to member/non-member.
type Relevance map[string]map[string]struct{}

// Relevant returns the relevant set for a query and whether the query has an
// entry at all. An existing entry may be empty (a query with no known
// relevant documents).
func (r Relevance) Relevant(queryID string) (map[string]struct{}, bool) {
	set, ok := r[queryID]
	return set, ok
}

// Dataset bundles the three read-only inputs of an evaluation run.
type Dataset struct {
	Documents []Document
	Queries   []Query
	Relevance Relevance
}

// Load reads the corpus, queries, and qrels files named by cfg.
func Load(cfg config.DatasetConfig) (*Dataset, error) {
	docs, err := LoadCorpus(filepath.Join(cfg.Dir, cfg.CorpusFile))
	if err != nil {
		return nil, err
	}

	queries, err := LoadQueries(filepath.Join(cfg.Dir, cfg.QueriesFile))
	if err != nil {
		return nil, err
	}

	rels, err := LoadQrels(filepath.Join(cfg.Dir, cfg.QrelsFile))
	if err != nil {
		return nil, err
	}

	return &Dataset{
		Documents: docs,
		Queries:   queries,
		Relevance: rels,
	}, nil
}

// LoadCorpus reads a JSONL corpus file, one document per line.
func LoadCorpus(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.DatasetError("opening corpus file", err)
	}
	defer f.Close()

	var docs []Document
	seen := make(map[string]struct{})

	scanner := newLineScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var doc Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, errors.DatasetError("parsing corpus line", err).
				WithDetail("line", strconv.Itoa(line))
		}
		if doc.ID == "" {
			return nil, errors.DatasetError("corpus document has no _id", nil).
				WithDetail("line", strconv.Itoa(line))
		}
		if _, dup := seen[doc.ID]; dup {
			return nil, errors.DatasetError(
				fmt.Sprintf("duplicate document ID %q", doc.ID), nil).
				WithDetail("line", strconv.Itoa(line))
		}
		seen[doc.ID] = struct{}{}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.DatasetError("reading corpus file", err)
	}

	return docs, nil
}

// LoadQueries reads a JSONL queries file, one query per line. Queries are
// returned sorted by ID so downstream iteration is deterministic.
func LoadQueries(path string) ([]Query, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.DatasetError("opening queries file", err)
	}
	defer f.Close()

	var queries []Query
	seen := make(map[string]struct{})

	scanner := newLineScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		var q Query
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, errors.DatasetError("parsing queries line", err).
				WithDetail("line", strconv.Itoa(line))
		}
		if q.ID == "" {
			return nil, errors.DatasetError("query has no _id", nil).
				WithDetail("line", strconv.Itoa(line))
		}
		if _, dup := seen[q.ID]; dup {
			return nil, errors.DatasetError(
				fmt.Sprintf("duplicate query ID %q", q.ID), nil).
				WithDetail("line", strconv.Itoa(line))
		}
		seen[q.ID] = struct{}{}
		queries = append(queries, q)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.DatasetError("reading queries file", err)
	}

	sort.Slice(queries, func(i, j int) bool { return queries[i].ID < queries[j].ID })

	return queries, nil
}

// LoadQrels reads a TREC-style qrels TSV file:
//
//	query-id<TAB>corpus-id<TAB>score
//
// An optional header line is skipped. Scores greater than zero mark the
// document as relevant; zero scores record the query without adding the
// document, so a query judged entirely non-relevant still gets an entry.
func LoadQrels(path string) (Relevance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.DatasetError("opening qrels file", err)
	}
	defer f.Close()

	rels := make(Relevance)

	scanner := newLineScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}

		fields := strings.Split(raw, "\t")
		if len(fields) < 3 {
			return nil, errors.DatasetError("qrels line has fewer than 3 fields", nil).
				WithDetail("line", strconv.Itoa(line))
		}

		queryID := strings.TrimSpace(fields[0])
		docID := strings.TrimSpace(fields[1])
		scoreField := strings.TrimSpace(fields[2])

		score, err := strconv.Atoi(scoreField)
		if err != nil {
			// Tolerate a single header line (e.g. "query-id\tcorpus-id\tscore")
			if line == 1 {
				continue
			}
			return nil, errors.DatasetError("parsing qrels score", err).
				WithDetail("line", strconv.Itoa(line))
		}

		if rels[queryID] == nil {
			rels[queryID] = make(map[string]struct{})
		}
		if score > 0 {
			rels[queryID][docID] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.DatasetError("reading qrels file", err)
	}

	return rels, nil
}

// newLineScanner returns a scanner sized for long document lines.
func newLineScanner(f *os.File) *bufio.Scanner {
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return scanner
}
