package evaluation

import (
	"math"
	"testing"
)

func set(ids ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func TestScoreQuery_NoOverlap(t *testing.T) {
	got := ScoreQuery([]string{"x", "y", "z"}, set("a", "b"), 10)
	if got != 0 {
		t.Errorf("ScoreQuery() = %f, want 0 when nothing retrieved is relevant", got)
	}
}

func TestScoreQuery_PerfectPrefix(t *testing.T) {
	// All relevant documents at the top, in any order, scores exactly 1.
	cases := []struct {
		name      string
		retrieved []string
		relevant  map[string]struct{}
		k         int
	}{
		{"single relevant first", []string{"a", "x", "y"}, set("a"), 10},
		{"two relevant on top", []string{"b", "a", "x"}, set("a", "b"), 10},
		{"relevant fills the window", []string{"a", "b"}, set("a", "b"), 2},
		{"more relevant than k", []string{"a", "b"}, set("a", "b", "c"), 2},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ScoreQuery(tc.retrieved, tc.relevant, tc.k)
			if math.Abs(got-1.0) > 1e-9 {
				t.Errorf("ScoreQuery() = %.12f, want 1.0", got)
			}
		})
	}
}

func TestScoreQuery_SingleRelevantTopRank(t *testing.T) {
	// k=10, relevant={"552"}, retrieved=["552","9","3"] scores 1.0
	got := ScoreQuery([]string{"552", "9", "3"}, set("552"), 10)
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("ScoreQuery() = %.12f, want 1.0", got)
	}
}

func TestScoreQuery_PartialCredit(t *testing.T) {
	// k=2, relevant={"a","b"}, retrieved=["x","a"]:
	// DCG  = 1/log2(3)
	// IDCG = 1/log2(2) + 1/log2(3)
	got := ScoreQuery([]string{"x", "a"}, set("a", "b"), 2)
	want := (1 / math.Log2(3)) / (1/math.Log2(2) + 1/math.Log2(3))
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("ScoreQuery() = %.12f, want %.12f", got, want)
	}
	if math.Abs(got-0.3869) > 5e-4 {
		t.Errorf("ScoreQuery() = %.4f, want approximately 0.3869", got)
	}
}

func TestScoreQuery_RankOrderMatters(t *testing.T) {
	relevant := set("a")

	high := ScoreQuery([]string{"a", "x", "y"}, relevant, 10)
	mid := ScoreQuery([]string{"x", "a", "y"}, relevant, 10)
	low := ScoreQuery([]string{"x", "y", "a"}, relevant, 10)

	if !(high > mid && mid > low) {
		t.Errorf("scores not monotone in rank: pos0=%f pos1=%f pos2=%f", high, mid, low)
	}
}

func TestScoreQuery_BeyondCutoffIgnored(t *testing.T) {
	// The only relevant document sits at rank k; it contributes nothing.
	retrieved := []string{"x1", "x2", "a"}
	got := ScoreQuery(retrieved, set("a"), 2)
	if got != 0 {
		t.Errorf("ScoreQuery() = %f, want 0 for a hit past the cutoff", got)
	}
}

func TestScoreQuery_EmptyRelevantSet(t *testing.T) {
	got := ScoreQuery([]string{"a", "b"}, set(), 10)
	if got != 0 {
		t.Errorf("ScoreQuery() = %f, want 0 for an empty relevant set", got)
	}

	got = ScoreQuery([]string{"a", "b"}, nil, 10)
	if got != 0 {
		t.Errorf("ScoreQuery() = %f, want 0 for a nil relevant set", got)
	}
}

func TestScoreQuery_EmptyRetrieved(t *testing.T) {
	got := ScoreQuery(nil, set("a"), 10)
	if got != 0 {
		t.Errorf("ScoreQuery() = %f, want 0 for empty results", got)
	}
}

func TestScoreQuery_Bounds(t *testing.T) {
	// Scores stay in [0, 1] across a spread of shapes.
	cases := []struct {
		retrieved []string
		relevant  map[string]struct{}
		k         int
	}{
		{[]string{"a"}, set("a"), 1},
		{[]string{"x", "a", "b", "y", "c"}, set("a", "b", "c"), 3},
		{[]string{"a", "b", "c", "d", "e"}, set("e"), 5},
		{[]string{"a", "a", "a"}, set("a"), 3},
		{[]string{"x"}, set("a", "b", "c", "d", "e", "f"), 2},
	}

	for _, tc := range cases {
		got := ScoreQuery(tc.retrieved, tc.relevant, tc.k)
		if got < 0 || got > 1+1e-9 {
			t.Errorf("ScoreQuery(%v, k=%d) = %f, out of [0,1]", tc.retrieved, tc.k, got)
		}
	}
}

func TestScoreQuery_MoreRelevantThanK(t *testing.T) {
	// IDCG only counts min(k, |relevant|) positions: filling the whole
	// window with relevant documents is a perfect score even when more
	// relevant documents exist.
	got := ScoreQuery([]string{"a", "b", "c"}, set("a", "b", "c", "d", "e"), 3)
	if math.Abs(got-1.0) > 1e-9 {
		t.Errorf("ScoreQuery() = %.12f, want 1.0 when the window is saturated", got)
	}
}
