package search

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/rolegraph/internal/config"
	"github.com/hyperjump/rolegraph/internal/haystack"
	"github.com/hyperjump/rolegraph/internal/metrics"
	"github.com/hyperjump/rolegraph/internal/models"
	"github.com/hyperjump/rolegraph/internal/role"
	"github.com/hyperjump/rolegraph/internal/rolegraph"
	"github.com/hyperjump/rolegraph/internal/summarize"
)

type staticCorpus struct {
	docs map[string][]models.Document
}

func (c *staticCorpus) Documents(r string) []models.Document { return c.docs[r] }

func titleScorerState(t *testing.T) (*config.ConfigState, *staticCorpus) {
	t.Helper()
	cfg := &config.Config{
		Roles: []role.Role{
			{Name: "Engineer", RelevanceFunction: role.RelevanceTitleScorer},
		},
		SelectedRole: "Engineer",
	}
	state, err := config.New(cfg, nil)
	require.NoError(t, err)

	corpus := &staticCorpus{docs: map[string][]models.Document{
		"Engineer": {
			{ID: "doc1", Title: "haystack indexing", Body: "text about haystacks"},
			{ID: "doc2", Title: "unrelated topic", Body: "nothing relevant here"},
		},
	}}
	return state, corpus
}

func TestSearchDispatchesToScorer(t *testing.T) {
	state, corpus := titleScorerState(t)
	e := New(state, corpus, nil)

	resp, err := e.Search(context.Background(), models.SearchQuery{SearchTerm: "haystack"})
	require.NoError(t, err)
	require.Equal(t, models.StatusSuccess, resp.Status)
	require.Len(t, resp.Results, 1)
	require.Equal(t, models.DocumentID("doc1"), resp.Results[0].ID)
}

func TestSearchUnknownRole(t *testing.T) {
	state, corpus := titleScorerState(t)
	e := New(state, corpus, nil)

	resp, err := e.Search(context.Background(), models.SearchQuery{SearchTerm: "haystack", Role: "Ghost"})
	require.ErrorIs(t, err, ErrUnknownRole)
	require.Equal(t, models.StatusError, resp.Status)
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	state, corpus := titleScorerState(t)
	e := New(state, corpus, nil)

	_, err := e.Search(context.Background(), models.SearchQuery{})
	require.ErrorIs(t, err, models.ErrInvalidQuery)
}

func TestSearchAppliesSkipAndLimit(t *testing.T) {
	cfg := &config.Config{
		Roles: []role.Role{
			{Name: "Engineer", RelevanceFunction: role.RelevanceTitleScorer},
		},
		SelectedRole: "Engineer",
	}
	state, err := config.New(cfg, nil)
	require.NoError(t, err)

	corpus := &staticCorpus{docs: map[string][]models.Document{
		"Engineer": {
			{ID: "doc1", Title: "haystack haystack haystack"},
			{ID: "doc2", Title: "haystack haystack"},
			{ID: "doc3", Title: "haystack"},
		},
	}}
	e := New(state, corpus, nil)

	resp, err := e.Search(context.Background(), models.SearchQuery{SearchTerm: "haystack", Skip: 1, Limit: 1})
	require.NoError(t, err)
	require.EqualValues(t, 3, resp.Total)
	require.Len(t, resp.Results, 1)
	require.Equal(t, models.DocumentID("doc2"), resp.Results[0].ID)
}

func TestSearchAndIntersectsResults(t *testing.T) {
	cfg := &config.Config{
		Roles: []role.Role{
			{Name: "Engineer", RelevanceFunction: role.RelevanceTitleScorer},
		},
		SelectedRole: "Engineer",
	}
	state, err := config.New(cfg, nil)
	require.NoError(t, err)

	corpus := &staticCorpus{docs: map[string][]models.Document{
		"Engineer": {
			{ID: "doc1", Title: "haystack service"},
			{ID: "doc2", Title: "haystack only"},
		},
	}}
	e := New(state, corpus, nil)

	resp, err := e.Search(context.Background(), models.SearchQuery{
		SearchTerms: []string{"haystack", "service"},
		Operator:    models.OperatorAnd,
	})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	require.Equal(t, models.DocumentID("doc1"), resp.Results[0].ID)
}

func buildGraphState(t *testing.T) *config.ConfigState {
	t.Helper()
	kgDir := t.TempDir()
	require.NoError(t, os.WriteFile(kgDir+"/haystack.md", []byte("# haystack\n"), 0o600))
	require.NoError(t, os.WriteFile(kgDir+"/service.md", []byte("# service\n"), 0o600))

	cfg := &config.Config{
		Roles: []role.Role{
			{Name: "Engineer", RelevanceFunction: role.RelevanceTerraphimGraph, KG: kgDir},
		},
		SelectedRole: "Engineer",
	}
	state, err := config.New(cfg, nil)
	require.NoError(t, err)

	graphSync, ok := state.RoleGraph("Engineer")
	require.True(t, ok)
	var insertErr error
	graphSync.With(func(g *rolegraph.RoleGraph) {
		insertErr = g.InsertDocument("doc1", models.Document{ID: "doc1", Body: "haystack service"})
	})
	require.NoError(t, insertErr)
	return state
}

func TestSearchDispatchesToGraph(t *testing.T) {
	state := buildGraphState(t)
	e := New(state, nil, nil)

	resp, err := e.Search(context.Background(), models.SearchQuery{SearchTerm: "haystack service"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	require.Equal(t, models.DocumentID("doc1"), resp.Results[0].ID)
}

func TestEngineIngestInsertsDocumentsAndRecordsMetric(t *testing.T) {
	kgDir := t.TempDir()
	require.NoError(t, os.WriteFile(kgDir+"/haystack.md", []byte("# haystack\n"), 0o600))
	require.NoError(t, os.WriteFile(kgDir+"/service.md", []byte("# service\n"), 0o600))

	cfg := &config.Config{
		Roles: []role.Role{
			{Name: "Engineer", RelevanceFunction: role.RelevanceTerraphimGraph, KG: kgDir},
		},
		SelectedRole: "Engineer",
	}
	state, err := config.New(cfg, nil)
	require.NoError(t, err)

	e := New(state, nil, nil)
	reg := metrics.New(prometheus.NewRegistry())
	e.SetMetrics(reg)

	// Graph scores come from co-occurrence edges, so each document carries
	// two concepts; a single-concept document would score 0 and be excluded.
	hs := haystack.Static([]models.Document{
		{ID: "doc1", Body: "haystack service"},
		{ID: "doc2", Body: "haystack service"},
	})
	require.NoError(t, e.Ingest(context.Background(), "Engineer", hs))

	resp, err := e.Search(context.Background(), models.SearchQuery{SearchTerm: "haystack"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 2)
	require.Equal(t, 2.0, testutil.ToFloat64(reg.DocumentsIndexed.WithLabelValues("Engineer")))
}

func TestEngineIngestUnknownRole(t *testing.T) {
	state, _ := titleScorerState(t)
	e := New(state, nil, nil)

	err := e.Ingest(context.Background(), "Ghost", haystack.Static(nil))
	require.Error(t, err)
}

func TestSearchEnqueuesSummarizationWhenDescriptionMissing(t *testing.T) {
	cfg := &config.Config{
		Roles: []role.Role{
			{Name: "Engineer", RelevanceFunction: role.RelevanceTitleScorer, LLMAutoSummarize: true},
		},
		SelectedRole: "Engineer",
	}
	state, err := config.New(cfg, nil)
	require.NoError(t, err)

	corpus := &staticCorpus{docs: map[string][]models.Document{
		"Engineer": {{ID: "doc1", Title: "haystack"}},
	}}

	ready := make(chan struct{})
	summarizer := summarize.NewInMemory(func(ctx context.Context, doc models.Document) (string, error) {
		<-ready
		return "a generated summary", nil
	})
	e := New(state, corpus, summarizer)

	resp, err := e.Search(context.Background(), models.SearchQuery{SearchTerm: "haystack"})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	taskID, ok := resp.SummarizationTaskIDs["doc1"]
	require.True(t, ok)
	require.NotEmpty(t, taskID)
	close(ready)
}

func TestMergeCompletedSummariesCopiesReadySummaries(t *testing.T) {
	summarizer := summarize.NewInMemory(func(ctx context.Context, doc models.Document) (string, error) {
		return "synthesized description", nil
	})
	e := New(nil, nil, summarizer)

	task, err := summarizer.Enqueue(context.Background(), models.Document{ID: "doc1"}, "Engineer")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		_, done, _ := summarizer.Poll(context.Background(), task)
		return done
	}, time.Second, 5*time.Millisecond)

	docs := []models.Document{{ID: "doc1"}}
	merged := e.MergeCompletedSummaries(context.Background(), docs, map[models.DocumentID]string{"doc1": string(task)}, 200*time.Millisecond)
	require.Equal(t, "synthesized description", merged[0].Description)
}

func TestMergeCompletedSummariesLeavesUnqueuedDocumentsAlone(t *testing.T) {
	e := New(nil, nil, nil)
	docs := []models.Document{{ID: "doc1", Description: "already set"}}
	merged := e.MergeCompletedSummaries(context.Background(), docs, nil, time.Millisecond)
	require.Equal(t, docs, merged)
}
