package service

import (
	"context"
	"errors"
	"sort"

	"go.uber.org/zap"

	"github-star-curator/internal/adapter/recommender"
	"github-star-curator/internal/adapter/tagger"
	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"
	"github-star-curator/internal/port"
)

// ErrNothingToDo 表示 recommend 没有可用的 starred 数据或 topic
var ErrNothingToDo = errors.New("nothing to do")

// CuratorService 编排一次完整的同步：拉取、打标签、补全、写入、推荐
type CuratorService struct {
	source      port.StarSource
	enricher    port.Enricher
	curator     port.Curator
	recommender port.Recommender
	sink        port.Sink
	lists       []domain.CuratedList
	enrichPacer common.Pacer
	logger      *zap.Logger
}

// NewCuratorService 创建服务；enrichPacer 为 nil 时不限速
func NewCuratorService(
	source port.StarSource,
	enricher port.Enricher,
	curator port.Curator,
	rec port.Recommender,
	sink port.Sink,
	lists []domain.CuratedList,
	enrichPacer common.Pacer,
	logger *zap.Logger,
) *CuratorService {
	if enrichPacer == nil {
		enrichPacer = common.NopPacer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CuratorService{
		source:      source,
		enricher:    enricher,
		curator:     curator,
		recommender: rec,
		sink:        sink,
		lists:       lists,
		enrichPacer: enrichPacer,
		logger:      logger.With(zap.String("component", "curator_service")),
	}
}

// Starred 拉取 star 列表、合并列表标签、补全元数据并整表写入 starred
func (s *CuratorService) Starred(ctx context.Context) (*StarredSummary, []domain.StarredRow, *domain.Curation, error) {
	repos, err := s.source.FetchStarred(ctx)
	// 一条都没拿到时不写入，避免清空上一轮的 starred 表
	if len(repos) == 0 {
		if err != nil {
			s.logger.Error("failed to fetch starred repositories",
				zap.String("kind", string(common.KindOf(err))),
				zap.Error(err))
			return nil, nil, nil, err
		}
		return nil, nil, nil, ErrNothingToDo
	}
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, nil, ctxErr
		}
		s.logger.Warn("starred pagination stopped early",
			zap.Int("fetched", len(repos)),
			zap.String("kind", string(common.KindOf(err))),
			zap.Error(err))
	}
	s.logger.Info("starred repositories fetched", zap.Int("count", len(repos)))

	cur, err := s.curator.Collect(ctx, s.lists)
	if err != nil {
		return nil, nil, nil, err
	}

	repos = tagger.DropIgnored(repos, cur)
	if err := s.enrich(ctx, repos); err != nil {
		return nil, nil, nil, err
	}
	repos = tagger.Merge(repos, cur)

	values := make([]domain.Repo, 0, len(repos))
	for _, r := range repos {
		values = append(values, *r)
	}
	table, err := domain.NewStarredTable(domain.StarredTable, values)
	if err != nil {
		return nil, nil, nil, common.WrapError(common.ErrCodeInvalidInput, "build starred table", err)
	}
	if err := s.sink.Persist(ctx, table); err != nil {
		return nil, nil, nil, err
	}

	rows := table.Records.([]domain.StarredRow)
	return Summarize(rows), rows, cur, nil
}

// Sync 先执行 Starred，再用同一批数据生成推荐
func (s *CuratorService) Sync(ctx context.Context) (*SyncReport, error) {
	summary, rows, cur, err := s.Starred(ctx)
	if err != nil {
		return nil, err
	}

	recs, err := s.recommend(ctx, rows, cur.Ignore)
	if err != nil {
		return nil, err
	}
	return &SyncReport{Starred: summary, Recommendations: recs}, nil
}

// Recommend 从 sink 读回 starred 表并生成推荐。
// starred 表为空或没有任何 topic 时返回 ErrNothingToDo。
func (s *CuratorService) Recommend(ctx context.Context) ([]domain.Recommendation, error) {
	rows, err := s.sink.LoadStarred(ctx, domain.StarredTable)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		s.logger.Info("starred table is empty")
		return nil, ErrNothingToDo
	}
	if len(recommender.TopicFrequencies(rows)) == 0 {
		s.logger.Info("no topics found in starred table", zap.Int("rows", len(rows)))
		return nil, ErrNothingToDo
	}

	// 只需要 ignore 列表
	var ignoreLists []domain.CuratedList
	for _, l := range s.lists {
		if l.IsIgnore() {
			ignoreLists = append(ignoreLists, l)
		}
	}
	cur, err := s.curator.Collect(ctx, ignoreLists)
	if err != nil {
		return nil, err
	}

	return s.recommend(ctx, rows, cur.Ignore)
}

// Lists 抓取全部非 ignore 列表，合并重复仓库后写入 lists 表。返回每个标签的仓库数。
func (s *CuratorService) Lists(ctx context.Context) (map[string]int, int, error) {
	cur, err := s.curator.Collect(ctx, s.lists)
	if err != nil {
		return nil, 0, err
	}

	entries := tagger.Combine(cur)
	table, err := domain.NewListTable(domain.ListsTable, entries)
	if err != nil {
		return nil, 0, common.WrapError(common.ErrCodeInvalidInput, "build lists table", err)
	}
	if err := s.sink.Persist(ctx, table); err != nil {
		return nil, 0, err
	}
	return tagger.TagCounts(entries), len(entries), nil
}

func (s *CuratorService) recommend(ctx context.Context, rows []domain.StarredRow, ignore map[string]bool) ([]domain.Recommendation, error) {
	recs, err := s.recommender.Recommend(ctx, rows, ignore)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		s.logger.Warn("no recommendations produced, keeping previous table")
		return recs, nil
	}

	table, err := domain.NewRecommendationTable(domain.RecommendationsTable, recs)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeInvalidInput, "build recommendations table", err)
	}
	if err := s.sink.Persist(ctx, table); err != nil {
		return nil, err
	}
	return recs, nil
}

// enrich 逐个查询 latest release 和 topics，失败的仓库记为 Error 并留空 topics
func (s *CuratorService) enrich(ctx context.Context, repos []*domain.Repo) error {
	failed := 0
	for i, repo := range repos {
		if err := s.enrichPacer.Wait(ctx); err != nil {
			return err
		}

		owner, name, err := repo.OwnerAndName()
		if err != nil {
			s.logger.Warn("skipping enrichment", zap.String("repo", repo.FullName), zap.Error(err))
			repo.LastRelease = domain.Release{Status: domain.ReleaseError}
			repo.Topics = []string{}
			failed++
			continue
		}

		release, err := s.enricher.LatestRelease(ctx, owner, name)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.logger.Warn("latest release lookup failed",
				zap.String("repo", repo.FullName),
				zap.String("kind", string(common.KindOf(err))),
				zap.Error(err))
			release = domain.Release{Status: domain.ReleaseError, Code: common.StatusOf(err)}
			failed++
		}
		repo.LastRelease = release

		topics, err := s.enricher.Topics(ctx, owner, name)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.logger.Warn("topics lookup failed",
				zap.String("repo", repo.FullName),
				zap.String("kind", string(common.KindOf(err))),
				zap.Error(err))
			topics = []string{}
		}
		repo.Topics = topics

		if (i+1)%100 == 0 {
			s.logger.Info("enrichment progress", zap.Int("done", i+1), zap.Int("total", len(repos)))
		}
	}
	s.logger.Info("enrichment finished", zap.Int("repos", len(repos)), zap.Int("release_errors", failed))
	return nil
}

// StarredSummary 是 starred 表的统计
type StarredSummary struct {
	Total     int
	Curated   int
	Languages int
	Stars     int
	TagCounts map[string]int
}

// SyncReport 是一次 sync 的结果
type SyncReport struct {
	Starred         *StarredSummary
	Recommendations []domain.Recommendation
}

// Summarize computes the totals printed after starred and sync.
// TagCounts only covers curated tags.
func Summarize(rows []domain.StarredRow) *StarredSummary {
	sum := &StarredSummary{TagCounts: make(map[string]int)}
	languages := make(map[string]struct{})
	for _, row := range rows {
		sum.Total++
		sum.Stars += row.StarCount
		if row.IsCurated {
			sum.Curated++
		}
		if row.PrimaryLanguage != "" {
			languages[row.PrimaryLanguage] = struct{}{}
		}
		for _, tag := range domain.SplitTags(row.CuratedTags) {
			sum.TagCounts[tag]++
		}
	}
	sum.Languages = len(languages)
	return sum
}

// Top returns at most n recommendations from an already ranked slice.
func Top(recs []domain.Recommendation, n int) []domain.Recommendation {
	if len(recs) <= n {
		return recs
	}
	return recs[:n]
}

// SortedTags returns the keys of a tag-count map, most frequent first then by name.
func SortedTags(counts map[string]int) []string {
	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool {
		if counts[tags[i]] != counts[tags[j]] {
			return counts[tags[i]] > counts[tags[j]]
		}
		return tags[i] < tags[j]
	})
	return tags
}
