package github

import (
	"context"
	"fmt"

	"github.com/google/go-github/v53/github"
	"go.uber.org/zap"

	"github-star-curator/internal/domain"
)

// SearchByTopic 按 topic 搜索 star 数不低于 minStars 的仓库，按 star 降序，最多 limit 个。
// 翻页中途失败时返回已取得的部分和错误。
func (c *Client) SearchByTopic(ctx context.Context, topic string, minStars, limit int) ([]*domain.Repo, error) {
	if limit <= 0 {
		return nil, nil
	}

	query := fmt.Sprintf("topic:%s stars:>=%d", topic, minStars)
	opts := &github.SearchOptions{
		Sort:  "stars",
		Order: "desc",
		ListOptions: github.ListOptions{
			PerPage: min(limit, perPage),
			Page:    1,
		},
	}

	var repos []*domain.Repo
	for len(repos) < limit {
		if err := c.searchPacer.Wait(ctx); err != nil {
			return repos, classify(opName("search topic %q", topic), err)
		}

		result, _, err := c.gh.Search.Repositories(ctx, query, opts)
		if err != nil {
			err = classify(opName("search topic %q page %d", topic, opts.Page), err)
			c.logger.Warn("topic search failed",
				zap.String("topic", topic),
				zap.Int("page", opts.Page),
				zap.Error(err))
			return repos, err
		}
		if len(result.Repositories) == 0 {
			break
		}

		for _, item := range result.Repositories {
			repos = append(repos, c.toDomain(item))
		}
		if len(result.Repositories) < opts.PerPage {
			break
		}
		opts.Page++
	}

	if len(repos) > limit {
		repos = repos[:limit]
	}
	c.logger.Debug("topic search done", zap.String("topic", topic), zap.Int("found", len(repos)))
	return repos, nil
}
