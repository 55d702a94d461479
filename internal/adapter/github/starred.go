package github

import (
	"context"

	"github.com/google/go-github/v53/github"
	"go.uber.org/zap"

	"github-star-curator/internal/domain"
)

// FetchStarred 逐页拉取 star 列表，遇到空页停止。
// 某一页失败时停止翻页，返回已拉到的仓库和该错误。
func (c *Client) FetchStarred(ctx context.Context) ([]*domain.Repo, error) {
	var repos []*domain.Repo
	opts := &github.ActivityListStarredOptions{
		ListOptions: github.ListOptions{PerPage: perPage, Page: 1},
	}

	for {
		starred, _, err := c.gh.Activity.ListStarred(ctx, "", opts)
		if err != nil {
			err = classify(opName("list starred page %d", opts.Page), err)
			c.logger.Warn("starred pagination stopped",
				zap.Int("page", opts.Page),
				zap.Int("collected", len(repos)),
				zap.Error(err))
			return repos, err
		}
		if len(starred) == 0 {
			break
		}

		for _, s := range starred {
			if s.GetRepository() == nil {
				continue
			}
			repos = append(repos, c.toDomain(s.GetRepository()))
		}
		c.logger.Debug("fetched starred page", zap.Int("page", opts.Page), zap.Int("total", len(repos)))
		opts.Page++
	}

	return repos, nil
}
