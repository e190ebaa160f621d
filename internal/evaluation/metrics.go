// Package evaluation scores retrieval quality with NDCG at a fixed cutoff.
package evaluation

import "math"

// ScoreQuery computes NDCG@k for one query with binary relevance.
//
// The retrieved slice is the ranked result list, best first. Only the
// first k entries contribute. DCG gives each relevant hit at rank i
// (zero-based) a gain of 1/log2(i+2); IDCG is the DCG of the ideal
// ranking, which places min(k, |relevant|) relevant documents at the
// top. The score is DCG/IDCG, always in [0, 1].
//
// A query with an empty relevant set cannot be ranked well or badly;
// its IDCG is zero and the score is defined as 0.
func ScoreQuery(retrieved []string, relevant map[string]struct{}, k int) float64 {
	if k <= 0 || len(relevant) == 0 {
		return 0
	}

	if len(retrieved) > k {
		retrieved = retrieved[:k]
	}

	var dcg float64
	counted := make(map[string]struct{}, len(relevant))
	for i, docID := range retrieved {
		if _, ok := relevant[docID]; !ok {
			continue
		}
		// A duplicate result earns its gain once, at its best rank.
		if _, dup := counted[docID]; dup {
			continue
		}
		counted[docID] = struct{}{}
		dcg += 1 / math.Log2(float64(i)+2)
	}

	ideal := len(relevant)
	if ideal > k {
		ideal = k
	}

	var idcg float64
	for i := 0; i < ideal; i++ {
		idcg += 1 / math.Log2(float64(i)+2)
	}

	if idcg == 0 {
		return 0
	}

	return dcg / idcg
}
