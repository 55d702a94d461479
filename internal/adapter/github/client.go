package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v53/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github-star-curator/internal/common"
	"github-star-curator/internal/config"
	"github-star-curator/internal/domain"
	"github-star-curator/internal/port"
)

const perPage = 100

var (
	_ port.StarSource    = (*Client)(nil)
	_ port.Enricher      = (*Client)(nil)
	_ port.TopicSearcher = (*Client)(nil)
)

// Client 封装 GitHub REST API，实现 StarSource / Enricher / TopicSearcher
type Client struct {
	gh          *github.Client
	searchPacer common.Pacer
	logger      *zap.Logger
	nowFunc     func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithSearchPacer paces every search request, including later pages of one topic.
func WithSearchPacer(p common.Pacer) Option {
	return func(c *Client) { c.searchPacer = p }
}

// WithClock overrides the fetched_at clock.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.nowFunc = now }
}

// NewClient 初始化 GitHub 客户端；token 为空时匿名访问
func NewClient(cfg config.GitHubConfig, logger *zap.Logger, opts ...Option) (*Client, error) {
	httpClient := &http.Client{Timeout: cfg.RequestTimeout}
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(
			&oauth2.Token{AccessToken: cfg.Token},
		)
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		httpClient = oauth2.NewClient(ctx, ts)
		httpClient.Timeout = cfg.RequestTimeout
	}

	gh := github.NewClient(httpClient)
	if cfg.BaseURL != "" {
		u, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/") + "/")
		if err != nil {
			return nil, common.WrapError(common.ErrCodeConfig, "invalid github base url", err)
		}
		gh.BaseURL = u
	}

	return newClient(gh, logger, opts...), nil
}

func newClient(gh *github.Client, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		gh:          gh,
		searchPacer: common.NopPacer{},
		logger:      logger.With(zap.String("component", "github")),
		nowFunc:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// toDomain 把 API 返回的仓库转换为领域对象
func (c *Client) toDomain(item *github.Repository) *domain.Repo {
	return &domain.Repo{
		ID:          item.GetID(),
		FullName:    item.GetFullName(),
		Description: item.GetDescription(),
		Stars:       item.GetStargazersCount(),
		Forks:       item.GetForksCount(),
		Language:    item.GetLanguage(),
		URL:         item.GetHTMLURL(),
		Topics:      item.Topics,
		CreatedAt:   item.GetCreatedAt().Time,
		UpdatedAt:   item.GetUpdatedAt().Time,
		PushedAt:    item.GetPushedAt().Time,
		FetchedAt:   c.nowFunc().UTC(),
		Archived:    item.GetArchived(),
		Fork:        item.GetFork(),
	}
}

func opName(format string, args ...any) string {
	return fmt.Sprintf(format, args...)
}
