package scraper

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github-star-curator/internal/common"
	"github-star-curator/internal/domain"
	"github-star-curator/internal/port"
)

// BrowserUserAgent 模拟浏览器请求，避免被拦截
const BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// DOM paths of a list page.
const (
	blockSelector       = "div#user-list-repositories > div.border-bottom"
	nameSelector        = "h3 a"
	descriptionSelector = "[itemprop=description]"
	languageSelector    = "[itemprop=programmingLanguage]"
	starsSelector       = `a[href$="/stargazers"]`
	forksSelector       = `a[href$="/forks"]`
	updatedSelector     = "relative-time"
)

const repoURLPrefix = "https://github.com/"

var _ port.ListScraper = (*Scraper)(nil)

// Scraper 抓取 GitHub star 列表页面
type Scraper struct {
	client  *http.Client
	logger  *zap.Logger
	nowFunc func() time.Time
}

// NewScraper creates a scraper. A nil client gets a 30s timeout client.
func NewScraper(client *http.Client, logger *zap.Logger) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{
		client:  client,
		logger:  logger.With(zap.String("component", "scraper")),
		nowFunc: time.Now,
	}
}

// Scrape 抓取一个列表页面。只解析 200 响应；其它状态返回空结果和分类后的错误。
func (s *Scraper) Scrape(ctx context.Context, listURL string) ([]domain.ListEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, listURL, nil)
	if err != nil {
		return nil, common.ClassifiedError(common.ErrCodeScrape, common.KindMalformed, 0, "build request for "+listURL, err)
	}
	req.Header.Set("User-Agent", BrowserUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, classifyTransport(listURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		kind := common.KindHTTPStatus
		if resp.StatusCode == http.StatusNotFound {
			kind = common.KindNotFound
		}
		return nil, common.ClassifiedError(common.ErrCodeScrape, kind, resp.StatusCode,
			fmt.Sprintf("list page %s returned %d", listURL, resp.StatusCode), nil)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, common.ClassifiedError(common.ErrCodeScrape, common.KindMalformed, resp.StatusCode, "parse "+listURL, err)
	}

	entries := s.parse(doc)
	s.logger.Debug("scraped list", zap.String("url", listURL), zap.Int("repos", len(entries)))
	return entries, nil
}

func (s *Scraper) parse(doc *goquery.Document) []domain.ListEntry {
	fetchedAt := s.nowFunc().UTC()
	var entries []domain.ListEntry

	doc.Find(blockSelector).Each(func(_ int, block *goquery.Selection) {
		href, ok := block.Find(nameSelector).First().Attr("href")
		fullName := strings.Trim(strings.TrimSpace(href), "/")
		if !ok || fullName == "" {
			return
		}

		updated, _ := block.Find(updatedSelector).First().Attr("datetime")
		entries = append(entries, domain.ListEntry{
			FullName:    fullName,
			URL:         repoURLPrefix + fullName,
			Description: text(block, descriptionSelector),
			Language:    text(block, languageSelector),
			Stars:       ParseCount(text(block, starsSelector)),
			Forks:       ParseCount(text(block, forksSelector)),
			UpdatedAt:   updated,
			FetchedAt:   fetchedAt,
		})
	})

	return entries
}

func text(block *goquery.Selection, selector string) string {
	return strings.TrimSpace(block.Find(selector).First().Text())
}

// ParseCount parses a star or fork label: "1.2k" is 1200, "1,234" is 1234.
// Empty or unparseable text is 0.
func ParseCount(s string) int {
	s = strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, ",", "")))
	if s == "" || s == "0" {
		return 0
	}

	if strings.HasSuffix(s, "k") {
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "k")), 64)
		if err != nil {
			return 0
		}
		return int(f * 1000)
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func classifyTransport(listURL string, err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return common.ClassifiedError(common.ErrCodeScrape, common.KindTimeout, 0, "fetch "+listURL, err)
	}
	return common.ClassifiedError(common.ErrCodeScrape, common.KindTransport, 0, "fetch "+listURL, err)
}
