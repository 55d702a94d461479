package tagger

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"
	"github-star-curator/internal/port"
)

var _ port.Curator = (*Tagger)(nil)

// Tagger 抓取配置的列表，把列表名作为标签合并到仓库上
type Tagger struct {
	scraper port.ListScraper
	pacer   common.Pacer
	logger  *zap.Logger
}

// NewTagger 创建新的打标签器
func NewTagger(scraper port.ListScraper, pacer common.Pacer, logger *zap.Logger) *Tagger {
	if pacer == nil {
		pacer = common.NopPacer{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tagger{
		scraper: scraper,
		pacer:   pacer,
		logger:  logger.With(zap.String("component", "tagger")),
	}
}

// Collect 依次抓取每个列表。ignore 列表的成员进入排除集合，其它列表的成员以列表名为标签。
// 单个列表抓取失败只记录日志并按空列表处理。
func (t *Tagger) Collect(ctx context.Context, lists []domain.CuratedList) (*domain.Curation, error) {
	cur := domain.NewCuration()

	for _, list := range lists {
		if err := t.pacer.Wait(ctx); err != nil {
			return cur, err
		}

		entries, err := t.scraper.Scrape(ctx, list.URL)
		if err != nil {
			t.logger.Warn("list scrape failed, treating as empty",
				zap.String("list", list.Name),
				zap.String("kind", string(common.KindOf(err))),
				zap.Error(err))
			entries = nil
		}

		if list.IsIgnore() {
			for _, e := range entries {
				cur.Ignore[e.FullName] = true
			}
			t.logger.Info("ignore list loaded", zap.Int("repos", len(entries)))
			continue
		}

		cur.Order = append(cur.Order, list.Name)
		tagged := make([]domain.ListEntry, 0, len(entries))
		for _, e := range entries {
			cur.Tags[e.FullName] = append(cur.Tags[e.FullName], list.Name)
			e.Tags = []string{list.Name}
			tagged = append(tagged, e)
		}
		cur.Entries[list.Name] = tagged
		t.logger.Info("list loaded", zap.String("list", list.Name), zap.Int("repos", len(entries)))
	}

	return cur, nil
}

// DropIgnored 去掉 ignore 列表中的仓库
func DropIgnored(repos []*domain.Repo, cur *domain.Curation) []*domain.Repo {
	kept := make([]*domain.Repo, 0, len(repos))
	for _, repo := range repos {
		if cur.IsIgnored(repo.FullName) {
			continue
		}
		kept = append(kept, repo)
	}
	return kept
}

// Merge drops ignored repositories and sets curated_tags, all_tags and is_curated on the rest.
func Merge(repos []*domain.Repo, cur *domain.Curation) []*domain.Repo {
	kept := DropIgnored(repos, cur)
	for _, repo := range kept {
		repo.ApplyCuratedTags(cur.CuratedTags(repo.FullName))
	}
	return kept
}

// Combine 合并多个列表中的同一仓库：标签取并集，保留 updated_at 最新的那条记录。
// 结果按 star 数降序。
func Combine(cur *domain.Curation) []domain.ListEntry {
	byName := make(map[string]*domain.ListEntry)
	var order []string

	for _, name := range cur.Order {
		for _, e := range cur.Entries[name] {
			if cur.IsIgnored(e.FullName) {
				continue
			}
			existing, ok := byName[e.FullName]
			if !ok {
				entry := e
				entry.Tags = append([]string(nil), e.Tags...)
				byName[e.FullName] = &entry
				order = append(order, e.FullName)
				continue
			}

			tags := domain.SortedUnion(existing.Tags, e.Tags)
			if newer(e.UpdatedAt, existing.UpdatedAt) {
				*existing = e
			}
			existing.Tags = tags
		}
	}

	combined := make([]domain.ListEntry, 0, len(order))
	for _, name := range order {
		entry := byName[name]
		entry.Tags = domain.SortedUnion(entry.Tags)
		combined = append(combined, *entry)
	}

	sort.SliceStable(combined, func(i, j int) bool {
		if combined[i].Stars != combined[j].Stars {
			return combined[i].Stars > combined[j].Stars
		}
		return combined[i].FullName < combined[j].FullName
	})
	return combined
}

// newer reports whether candidate is a later RFC3339 time than current.
// An unparseable candidate never wins; an unparseable current always loses to a valid candidate.
func newer(candidate, current string) bool {
	c, err := time.Parse(time.RFC3339, candidate)
	if err != nil {
		return false
	}
	cur, err := time.Parse(time.RFC3339, current)
	if err != nil {
		return true
	}
	return c.After(cur)
}

// TagCounts 统计每个标签下的仓库数
func TagCounts(entries []domain.ListEntry) map[string]int {
	counts := make(map[string]int)
	for _, e := range entries {
		for _, tag := range e.Tags {
			counts[tag]++
		}
	}
	return counts
}
