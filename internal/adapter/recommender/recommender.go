package recommender

import (
	"context"
	"sort"

	"go.uber.org/zap"

	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"
	"github-star-curator/internal/port"
)

var _ port.Recommender = (*Engine)(nil)

// TopicCount 是一个 topic 在已 star 仓库中出现的次数
type TopicCount struct {
	Topic string
	Count int
}

// Engine 基于 topic 频率推荐未 star 的仓库
type Engine struct {
	searcher    port.TopicSearcher
	minStars    int
	maxPerTopic int
	logger      *zap.Logger
}

// NewEngine 创建推荐引擎
func NewEngine(searcher port.TopicSearcher, minStars, maxPerTopic int, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		searcher:    searcher,
		minStars:    minStars,
		maxPerTopic: maxPerTopic,
		logger:      logger.With(zap.String("component", "recommender")),
	}
}

// TopicFrequencies 统计所有 starred 仓库 all_tags 中每个 topic 的出现次数。
// 按次数降序排列，次数相同按字典序。
func TopicFrequencies(starred []domain.StarredRow) []TopicCount {
	counts := make(map[string]int)
	for _, row := range starred {
		for _, tag := range row.Tags() {
			topic := domain.NormalizeTopic(tag)
			if topic == "" {
				continue
			}
			counts[topic]++
		}
	}

	freqs := make([]TopicCount, 0, len(counts))
	for topic, n := range counts {
		freqs = append(freqs, TopicCount{Topic: topic, Count: n})
	}
	sort.Slice(freqs, func(i, j int) bool {
		if freqs[i].Count != freqs[j].Count {
			return freqs[i].Count > freqs[j].Count
		}
		return freqs[i].Topic < freqs[j].Topic
	})
	return freqs
}

// Recommend 按 topic 频率从高到低逐个搜索，累计每个仓库匹配到的 topic 和频率分数。
// 已 star 和被忽略的仓库不会出现在结果中。单个 topic 搜索失败只记录日志，使用已取得的部分结果。
func (e *Engine) Recommend(ctx context.Context, starred []domain.StarredRow, ignore map[string]bool) ([]domain.Recommendation, error) {
	starredSet := make(map[string]bool, len(starred))
	for _, row := range starred {
		starredSet[row.FullName] = true
	}

	freqs := TopicFrequencies(starred)
	e.logger.Info("topic frequencies computed",
		zap.Int("topics", len(freqs)),
		zap.Int("starred", len(starredSet)))

	byID := make(map[int64]*domain.Recommendation)
	var order []int64
	skipped := 0

	for _, tc := range freqs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		repos, err := e.searcher.SearchByTopic(ctx, tc.Topic, e.minStars, e.maxPerTopic)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			e.logger.Warn("topic search failed",
				zap.String("topic", tc.Topic),
				zap.String("kind", string(common.KindOf(err))),
				zap.Int("partial", len(repos)),
				zap.Error(err))
		}

		for _, repo := range repos {
			if starredSet[repo.FullName] || ignore[repo.FullName] {
				skipped++
				continue
			}

			rec, ok := byID[repo.ID]
			if !ok {
				rec = &domain.Recommendation{
					ID:          repo.ID,
					FullName:    repo.FullName,
					Description: repo.Description,
					Stars:       repo.Stars,
					Forks:       repo.Forks,
					Language:    repo.Language,
					URL:         repo.URL,
					Topics:      repo.Topics,
				}
				byID[repo.ID] = rec
				order = append(order, repo.ID)
			}
			// 同一 topic 翻页时可能返回重复仓库
			if n := len(rec.MatchedTopics); n > 0 && rec.MatchedTopics[n-1] == tc.Topic {
				continue
			}
			rec.MatchedTopics = append(rec.MatchedTopics, tc.Topic)
			rec.Score += tc.Count
		}
	}

	recs := make([]domain.Recommendation, 0, len(order))
	for _, id := range order {
		recs = append(recs, *byID[id])
	}
	Rank(recs)

	e.logger.Info("recommendations ready",
		zap.Int("unique", len(recs)),
		zap.Int("skipped", skipped))
	return recs, nil
}

// Rank 按 (score desc, stars desc, full_name asc) 排序
func Rank(recs []domain.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Score != recs[j].Score {
			return recs[i].Score > recs[j].Score
		}
		if recs[i].Stars != recs[j].Stars {
			return recs[i].Stars > recs[j].Stars
		}
		return recs[i].FullName < recs[j].FullName
	})
}
