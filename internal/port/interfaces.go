package port

import (
	"context"

	"github-star-curator/internal/domain"
)

// StarSource 负责拉取当前用户 star 过的全部仓库
type StarSource interface {
	// FetchStarred pages through the starred endpoint until an empty page.
	// A failed page stops pagination: the repos collected so far are returned with the error.
	FetchStarred(ctx context.Context) ([]*domain.Repo, error)
}

// Enricher 负责补全单个仓库的 release 和 topics
type Enricher interface {
	// LatestRelease returns ReleaseNone for a repository without releases.
	LatestRelease(ctx context.Context, owner, name string) (domain.Release, error)
	Topics(ctx context.Context, owner, name string) ([]string, error)
}

// TopicSearcher 按 topic 搜索高 star 仓库
type TopicSearcher interface {
	// SearchByTopic returns at most limit repositories with the topic and at least minStars,
	// most-starred first.
	SearchByTopic(ctx context.Context, topic string, minStars, limit int) ([]*domain.Repo, error)
}

// ListScraper 抓取一个列表页面
type ListScraper interface {
	Scrape(ctx context.Context, url string) ([]domain.ListEntry, error)
}

// Curator 抓取全部配置的列表并建立标签索引
type Curator interface {
	Collect(ctx context.Context, lists []domain.CuratedList) (*domain.Curation, error)
}

// Recommender 根据已 star 仓库的 topic 频率推荐新仓库
type Recommender interface {
	Recommend(ctx context.Context, starred []domain.StarredRow, ignore map[string]bool) ([]domain.Recommendation, error)
}

// Sink (仓库管理员): 负责整表写入和读回
type Sink interface {
	// Persist replaces the named table with exactly the given rows.
	Persist(ctx context.Context, table *domain.Table) error

	// LoadStarred reads back a previously persisted starred table.
	LoadStarred(ctx context.Context, name string) ([]domain.StarredRow, error)

	// Tables checks the connection and lists existing tables (or tabs).
	Tables(ctx context.Context) ([]string, error)

	Close() error
}
