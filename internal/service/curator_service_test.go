package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"
)

// Mock implementations for testing
type MockStarSource struct {
	mock.Mock
}

func (m *MockStarSource) FetchStarred(ctx context.Context) ([]*domain.Repo, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*domain.Repo), args.Error(1)
}

type MockEnricher struct {
	mock.Mock
}

func (m *MockEnricher) LatestRelease(ctx context.Context, owner, name string) (domain.Release, error) {
	args := m.Called(ctx, owner, name)
	return args.Get(0).(domain.Release), args.Error(1)
}

func (m *MockEnricher) Topics(ctx context.Context, owner, name string) ([]string, error) {
	args := m.Called(ctx, owner, name)
	return args.Get(0).([]string), args.Error(1)
}

type MockCurator struct {
	mock.Mock
}

func (m *MockCurator) Collect(ctx context.Context, lists []domain.CuratedList) (*domain.Curation, error) {
	args := m.Called(ctx, lists)
	return args.Get(0).(*domain.Curation), args.Error(1)
}

type MockRecommender struct {
	mock.Mock
}

func (m *MockRecommender) Recommend(ctx context.Context, starred []domain.StarredRow, ignore map[string]bool) ([]domain.Recommendation, error) {
	args := m.Called(ctx, starred, ignore)
	return args.Get(0).([]domain.Recommendation), args.Error(1)
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) Persist(ctx context.Context, table *domain.Table) error {
	args := m.Called(ctx, table)
	return args.Error(0)
}

func (m *MockSink) LoadStarred(ctx context.Context, name string) ([]domain.StarredRow, error) {
	args := m.Called(ctx, name)
	return args.Get(0).([]domain.StarredRow), args.Error(1)
}

func (m *MockSink) Tables(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockSink) Close() error {
	return m.Called().Error(0)
}

type mocks struct {
	source   *MockStarSource
	enricher *MockEnricher
	curator  *MockCurator
	rec      *MockRecommender
	sink     *MockSink
}

var testLists = []domain.CuratedList{
	{Name: "stack", URL: "https://github.com/stars/u/lists/stack"},
	{Name: "ignore", URL: "https://github.com/stars/u/lists/ignore"},
}

func newTestService() (*CuratorService, *mocks) {
	m := &mocks{
		source:   new(MockStarSource),
		enricher: new(MockEnricher),
		curator:  new(MockCurator),
		rec:      new(MockRecommender),
		sink:     new(MockSink),
	}
	svc := NewCuratorService(m.source, m.enricher, m.curator, m.rec, m.sink, testLists, common.NopPacer{}, nil)
	return svc, m
}

// countingPacer 记录 Wait 的调用次数
type countingPacer struct {
	waits int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.waits++
	return ctx.Err()
}

func starred(names ...string) []*domain.Repo {
	repos := make([]*domain.Repo, 0, len(names))
	for i, n := range names {
		repos = append(repos, &domain.Repo{ID: int64(i + 1), FullName: n, Stars: 10 * (i + 1), Language: "Go"})
	}
	return repos
}

func curation() *domain.Curation {
	cur := domain.NewCuration()
	cur.Order = []string{"stack"}
	cur.Tags["a/one"] = []string{"stack"}
	cur.Ignore["c/ignored"] = true
	return cur
}

func persistedTable(m *MockSink, name string) *domain.Table {
	for _, call := range m.Calls {
		if call.Method != "Persist" {
			continue
		}
		if table := call.Arguments.Get(1).(*domain.Table); table.Name == name {
			return table
		}
	}
	return nil
}

func TestCuratorService_Starred(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()
	published := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	m.source.On("FetchStarred", ctx).Return(starred("a/one", "b/two", "c/ignored"), nil)
	m.curator.On("Collect", ctx, testLists).Return(curation(), nil)
	m.enricher.On("LatestRelease", ctx, "a", "one").Return(domain.Release{Status: domain.ReleasePublished, PublishedAt: published}, nil)
	m.enricher.On("Topics", ctx, "a", "one").Return([]string{"go", "cli"}, nil)
	m.enricher.On("LatestRelease", ctx, "b", "two").
		Return(domain.Release{Status: domain.ReleaseError, Code: 502},
			common.ClassifiedError(common.ErrCodeGitHubAPI, common.KindHTTPStatus, 502, "latest release", nil))
	m.enricher.On("Topics", ctx, "b", "two").Return([]string{}, errors.New("boom"))
	m.sink.On("Persist", ctx, mock.AnythingOfType("*domain.Table")).Return(nil)

	summary, rows, cur, err := svc.Starred(ctx)
	require.NoError(t, err)
	require.NotNil(t, cur)

	// ignore 列表中的仓库不补全、不写入
	m.enricher.AssertNotCalled(t, "LatestRelease", ctx, "c", "ignored")

	require.Len(t, rows, 2)
	assert.Equal(t, "a/one", rows[0].FullName)
	assert.Equal(t, "2024-05-01T00:00:00Z", rows[0].LastReleaseTimestamp)
	assert.Equal(t, "cli, go, stack", rows[0].AllTags)
	assert.True(t, rows[0].IsCurated)
	assert.Equal(t, "Error: 502", rows[1].LastReleaseTimestamp)
	assert.Equal(t, "", rows[1].Topics)
	assert.False(t, rows[1].IsCurated)

	table := persistedTable(m.sink, domain.StarredTable)
	require.NotNil(t, table)
	assert.Equal(t, 2, table.Len())

	assert.Equal(t, &StarredSummary{
		Total:     2,
		Curated:   1,
		Languages: 1,
		Stars:     30,
		TagCounts: map[string]int{"stack": 1},
	}, summary)
}

func TestCuratorService_Starred_PartialFetchContinues(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	m.source.On("FetchStarred", ctx).Return(starred("a/one"), errors.New("page 2 failed"))
	m.curator.On("Collect", ctx, testLists).Return(domain.NewCuration(), nil)
	m.enricher.On("LatestRelease", ctx, "a", "one").Return(domain.Release{Status: domain.ReleaseNone}, nil)
	m.enricher.On("Topics", ctx, "a", "one").Return([]string{}, nil)
	m.sink.On("Persist", ctx, mock.Anything).Return(nil)

	summary, rows, _, err := svc.Starred(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Equal(t, "No releases", rows[0].LastReleaseTimestamp)
}

func TestCuratorService_Starred_SinkFailureAborts(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	m.source.On("FetchStarred", ctx).Return(starred("a/one"), nil)
	m.curator.On("Collect", ctx, testLists).Return(domain.NewCuration(), nil)
	m.enricher.On("LatestRelease", ctx, "a", "one").Return(domain.Release{Status: domain.ReleaseNone}, nil)
	m.enricher.On("Topics", ctx, "a", "one").Return([]string{}, nil)
	m.sink.On("Persist", ctx, mock.Anything).Return(common.NewError(common.ErrCodeSink, "down"))

	_, _, _, err := svc.Starred(ctx)
	assert.Error(t, err)
}

func TestCuratorService_Starred_EmptyFetchKeepsTable(t *testing.T) {
	ctx := context.Background()

	t.Run("unauthorized on first page", func(t *testing.T) {
		svc, m := newTestService()
		unauthorized := common.ClassifiedError(common.ErrCodeGitHubAPI, common.KindHTTPStatus, 401, "list starred page 1", nil)
		m.source.On("FetchStarred", ctx).Return([]*domain.Repo{}, unauthorized)

		_, _, _, err := svc.Starred(ctx)
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrNothingToDo)
		assert.Equal(t, 401, common.StatusOf(err))
		m.curator.AssertNotCalled(t, "Collect", mock.Anything, mock.Anything)
		m.sink.AssertNotCalled(t, "Persist", mock.Anything, mock.Anything)
	})

	t.Run("sync propagates the fetch failure", func(t *testing.T) {
		svc, m := newTestService()
		limited := common.ClassifiedError(common.ErrCodeGitHubAPI, common.KindRateLimited, 403, "list starred page 1", nil)
		m.source.On("FetchStarred", ctx).Return([]*domain.Repo{}, limited)

		report, err := svc.Sync(ctx)
		require.Error(t, err)
		assert.Nil(t, report)
		assert.Equal(t, common.KindRateLimited, common.KindOf(err))
		m.sink.AssertNotCalled(t, "Persist", mock.Anything, mock.Anything)
		m.rec.AssertNotCalled(t, "Recommend", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no stars at all", func(t *testing.T) {
		svc, m := newTestService()
		m.source.On("FetchStarred", ctx).Return([]*domain.Repo{}, nil)

		_, err := svc.Sync(ctx)
		assert.ErrorIs(t, err, ErrNothingToDo)
		m.sink.AssertNotCalled(t, "Persist", mock.Anything, mock.Anything)
	})
}

func TestCuratorService_EnrichPacesEveryRepository(t *testing.T) {
	m := &mocks{
		source:   new(MockStarSource),
		enricher: new(MockEnricher),
		curator:  new(MockCurator),
		rec:      new(MockRecommender),
		sink:     new(MockSink),
	}
	pacer := &countingPacer{}
	svc := NewCuratorService(m.source, m.enricher, m.curator, m.rec, m.sink, testLists, pacer, nil)
	ctx := context.Background()

	m.source.On("FetchStarred", ctx).Return(starred("a/one", "b/two", "c/ignored"), nil)
	m.curator.On("Collect", ctx, testLists).Return(curation(), nil)
	m.enricher.On("LatestRelease", ctx, "a", "one").Return(domain.Release{Status: domain.ReleaseNone}, nil)
	m.enricher.On("Topics", ctx, "a", "one").Return([]string{"go"}, nil)
	m.enricher.On("LatestRelease", ctx, "b", "two").
		Return(domain.Release{Status: domain.ReleaseError, Code: 500}, errors.New("release lookup failed"))
	m.enricher.On("Topics", ctx, "b", "two").Return([]string{}, errors.New("topics lookup failed"))
	m.sink.On("Persist", ctx, mock.Anything).Return(nil)

	_, rows, _, err := svc.Starred(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// ignore 列表中的仓库不补全，也不等待
	assert.Equal(t, 2, pacer.waits)
}

func TestCuratorService_EnrichStopsWhenPacerCancelled(t *testing.T) {
	m := &mocks{
		source:   new(MockStarSource),
		enricher: new(MockEnricher),
		curator:  new(MockCurator),
		rec:      new(MockRecommender),
		sink:     new(MockSink),
	}
	pacer := &countingPacer{}
	svc := NewCuratorService(m.source, m.enricher, m.curator, m.rec, m.sink, testLists, pacer, nil)
	ctx, cancel := context.WithCancel(context.Background())

	m.source.On("FetchStarred", ctx).Return(starred("a/one", "b/two"), nil)
	m.curator.On("Collect", ctx, testLists).Return(domain.NewCuration(), nil)
	cancel()

	_, _, _, err := svc.Starred(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, pacer.waits)
	m.enricher.AssertNotCalled(t, "LatestRelease", mock.Anything, mock.Anything, mock.Anything)
	m.sink.AssertNotCalled(t, "Persist", mock.Anything, mock.Anything)
}

func TestCuratorService_Sync(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()
	cur := curation()

	m.source.On("FetchStarred", ctx).Return(starred("a/one"), nil)
	m.curator.On("Collect", ctx, testLists).Return(cur, nil)
	m.enricher.On("LatestRelease", ctx, "a", "one").Return(domain.Release{Status: domain.ReleaseNone}, nil)
	m.enricher.On("Topics", ctx, "a", "one").Return([]string{"go"}, nil)
	m.sink.On("Persist", ctx, mock.Anything).Return(nil)

	recs := []domain.Recommendation{{ID: 9, FullName: "x/rec", Stars: 5000, MatchedTopics: []string{"go"}, Score: 1}}
	m.rec.On("Recommend", ctx, mock.AnythingOfType("[]domain.StarredRow"), cur.Ignore).Return(recs, nil)

	report, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Starred.Total)
	assert.Equal(t, recs, report.Recommendations)

	table := persistedTable(m.sink, domain.RecommendationsTable)
	require.NotNil(t, table)
	assert.Equal(t, 1, table.Len())
}

func TestCuratorService_Sync_EmptyRecommendationsSkipsWrite(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	m.source.On("FetchStarred", ctx).Return(starred("a/one"), nil)
	m.curator.On("Collect", ctx, testLists).Return(domain.NewCuration(), nil)
	m.enricher.On("LatestRelease", ctx, "a", "one").Return(domain.Release{Status: domain.ReleaseNone}, nil)
	m.enricher.On("Topics", ctx, "a", "one").Return([]string{}, nil)
	m.sink.On("Persist", ctx, mock.Anything).Return(nil)
	m.rec.On("Recommend", ctx, mock.Anything, mock.Anything).Return([]domain.Recommendation{}, nil)

	report, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Recommendations)
	assert.Nil(t, persistedTable(m.sink, domain.RecommendationsTable))
	m.sink.AssertNumberOfCalls(t, "Persist", 1)
}

func TestCuratorService_Recommend(t *testing.T) {
	ctx := context.Background()

	t.Run("empty starred table", func(t *testing.T) {
		svc, m := newTestService()
		m.sink.On("LoadStarred", ctx, domain.StarredTable).Return([]domain.StarredRow(nil), nil)

		_, err := svc.Recommend(ctx)
		assert.ErrorIs(t, err, ErrNothingToDo)
		m.rec.AssertNotCalled(t, "Recommend", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("no topics", func(t *testing.T) {
		svc, m := newTestService()
		m.sink.On("LoadStarred", ctx, domain.StarredTable).Return([]domain.StarredRow{{FullName: "a/one"}}, nil)

		_, err := svc.Recommend(ctx)
		assert.ErrorIs(t, err, ErrNothingToDo)
	})

	t.Run("reads back and only scrapes the ignore list", func(t *testing.T) {
		svc, m := newTestService()
		rows := []domain.StarredRow{{FullName: "a/one", AllTags: "go, cli"}}
		ignore := domain.NewCuration()
		ignore.Ignore["z/skip"] = true

		m.sink.On("LoadStarred", ctx, domain.StarredTable).Return(rows, nil)
		m.curator.On("Collect", ctx, []domain.CuratedList{testLists[1]}).Return(ignore, nil)
		recs := []domain.Recommendation{{ID: 1, FullName: "x/y", MatchedTopics: []string{"go"}, Score: 1}}
		m.rec.On("Recommend", ctx, rows, ignore.Ignore).Return(recs, nil)
		m.sink.On("Persist", ctx, mock.Anything).Return(nil)

		got, err := svc.Recommend(ctx)
		require.NoError(t, err)
		assert.Equal(t, recs, got)
		require.NotNil(t, persistedTable(m.sink, domain.RecommendationsTable))
	})

	t.Run("load failure", func(t *testing.T) {
		svc, m := newTestService()
		m.sink.On("LoadStarred", ctx, domain.StarredTable).Return([]domain.StarredRow(nil), errors.New("no sink"))

		_, err := svc.Recommend(ctx)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrNothingToDo)
	})
}

func TestCuratorService_Lists(t *testing.T) {
	svc, m := newTestService()
	ctx := context.Background()

	cur := domain.NewCuration()
	cur.Order = []string{"stack", "education"}
	cur.Entries["stack"] = []domain.ListEntry{
		{FullName: "a/one", Stars: 5, UpdatedAt: "2024-01-01T00:00:00Z", Tags: []string{"stack"}},
		{FullName: "b/two", Stars: 50, Tags: []string{"stack"}},
	}
	cur.Entries["education"] = []domain.ListEntry{
		{FullName: "a/one", Stars: 6, UpdatedAt: "2024-02-01T00:00:00Z", Tags: []string{"education"}},
	}

	m.curator.On("Collect", ctx, testLists).Return(cur, nil)
	m.sink.On("Persist", ctx, mock.Anything).Return(nil)

	counts, total, err := svc.Lists(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, map[string]int{"stack": 2, "education": 1}, counts)

	table := persistedTable(m.sink, domain.ListsTable)
	require.NotNil(t, table)
	records := table.Records.([]domain.ListRow)
	assert.Equal(t, "b/two", records[0].FullName)
	assert.Equal(t, "education, stack", records[1].Tags)
	assert.Equal(t, 6, records[1].StarCount)
}

func TestSortedTagsAndTop(t *testing.T) {
	assert.Equal(t, []string{"b", "a", "c"}, SortedTags(map[string]int{"a": 1, "b": 3, "c": 1}))

	recs := make([]domain.Recommendation, 12)
	assert.Len(t, Top(recs, 10), 10)
	assert.Len(t, Top(recs[:3], 10), 3)
}
