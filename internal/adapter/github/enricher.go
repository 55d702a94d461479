package github

import (
	"context"
	"net/http"

	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"
)

// LatestRelease 查询最新 release。
// 404 表示没有 release；其它失败返回带状态码的 ReleaseError 和分类后的错误。
func (c *Client) LatestRelease(ctx context.Context, owner, name string) (domain.Release, error) {
	release, resp, err := c.gh.Repositories.GetLatestRelease(ctx, owner, name)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return domain.Release{Status: domain.ReleaseNone}, nil
		}
		err = classify(opName("latest release of %s/%s", owner, name), err)
		return domain.Release{Status: domain.ReleaseError, Code: common.StatusOf(err)}, err
	}

	published := release.GetPublishedAt().Time
	if published.IsZero() {
		published = release.GetCreatedAt().Time
	}
	return domain.Release{Status: domain.ReleasePublished, PublishedAt: published.UTC()}, nil
}

// Topics 查询仓库 topics，失败时返回空列表和错误
func (c *Client) Topics(ctx context.Context, owner, name string) ([]string, error) {
	topics, _, err := c.gh.Repositories.ListAllTopics(ctx, owner, name)
	if err != nil {
		return []string{}, classify(opName("topics of %s/%s", owner, name), err)
	}
	if topics == nil {
		topics = []string{}
	}
	return topics, nil
}
