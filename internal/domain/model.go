package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Repo 代表一个已加星标的仓库，经过元数据补全和标签合并之后的完整记录
type Repo struct {
	// 基础信息 (来自 GitHub starred 接口)
	ID          int64  `validate:"gte=0"`
	FullName    string `validate:"required,contains=/"` // 例如 "gohugoio/hugo"
	Description string
	Stars       int `validate:"gte=0"`
	Forks       int `validate:"gte=0"`
	Language    string
	URL         string

	// 补全信息 (latest release + topics)
	LastRelease Release
	Topics      []string

	// 标签信息 (来自 curated lists)
	CuratedTags []string
	AllTags     []string
	IsCurated   bool

	CreatedAt time.Time
	UpdatedAt time.Time
	PushedAt  time.Time
	FetchedAt time.Time
	Archived  bool
	Fork      bool
}

// Validate checks the record invariants that hold for every output row.
func (r *Repo) Validate() error {
	return validate.Struct(r)
}

// OwnerAndName splits FullName into its owner and repository parts.
func (r *Repo) OwnerAndName() (string, string, error) {
	return SplitFullName(r.FullName)
}

// ApplyCuratedTags sets CuratedTags, AllTags and IsCurated from the given list names.
// AllTags is the sorted union of Topics and the curated names.
func (r *Repo) ApplyCuratedTags(curated []string) {
	r.CuratedTags = SortedUnion(curated)
	r.AllTags = SortedUnion(r.Topics, r.CuratedTags)
	r.IsCurated = len(r.CuratedTags) > 0
}

// SplitFullName splits "owner/name".
func SplitFullName(fullName string) (string, string, error) {
	owner, name, ok := strings.Cut(strings.Trim(fullName, "/"), "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return "", "", fmt.Errorf("invalid repository name %q", fullName)
	}
	return owner, name, nil
}

// ReleaseStatus 表示 latest release 查询的结果类别
type ReleaseStatus int

const (
	ReleasePublished ReleaseStatus = iota
	ReleaseNone
	ReleaseError
)

// Release is the outcome of a latest-release lookup.
type Release struct {
	Status      ReleaseStatus
	PublishedAt time.Time
	// HTTP status code when Status is ReleaseError (0 for transport failures)
	Code int
}

// String renders the value stored in the last_release_timestamp column.
func (r Release) String() string {
	switch r.Status {
	case ReleasePublished:
		if r.PublishedAt.IsZero() {
			return ""
		}
		return r.PublishedAt.UTC().Format(time.RFC3339)
	case ReleaseNone:
		return "No releases"
	default:
		return fmt.Sprintf("Error: %d", r.Code)
	}
}

// Recommendation 代表一个通过 topic 搜索发现的、尚未加星标的仓库
type Recommendation struct {
	ID            int64  `validate:"gt=0"`
	FullName      string `validate:"required,contains=/"`
	Description   string
	Stars         int `validate:"gte=0"`
	Forks         int `validate:"gte=0"`
	Language      string
	URL           string
	Topics        []string
	MatchedTopics []string
	// 所有命中 topic 在 starred 集合中出现次数之和
	Score int `validate:"gte=0"`
}

// Validate checks the record invariants.
func (r *Recommendation) Validate() error {
	return validate.Struct(r)
}

// NumMatches is the number of topics that surfaced this repository.
func (r *Recommendation) NumMatches() int {
	return len(r.MatchedTopics)
}

// ListEntry is one repository block scraped from a curated list page.
type ListEntry struct {
	FullName    string
	URL         string
	Description string
	Language    string
	Stars       int
	Forks       int
	// raw datetime attribute of the relative-time element
	UpdatedAt string
	Tags      []string
	FetchedAt time.Time
}

// CuratedList 是从一个列表页面抓取到的命名集合
type CuratedList struct {
	Name    string
	URL     string
	Members []string
}

// IgnoreList is the reserved list name whose members are excluded from every output table.
const IgnoreList = "ignore"

// IsIgnore reports whether the list is the reserved exclusion list.
func (l CuratedList) IsIgnore() bool {
	return l.Name == IgnoreList
}

// Curation 是一次运行中所有列表的抓取结果
type Curation struct {
	// full_name -> names of the non-ignore lists containing it
	Tags map[string][]string
	// members of the ignore list
	Ignore map[string]bool
	// list name -> scraped entries, non-ignore lists only
	Entries map[string][]ListEntry
	// non-ignore list names in scrape order
	Order []string
}

// NewCuration returns an empty curation.
func NewCuration() *Curation {
	return &Curation{
		Tags:    make(map[string][]string),
		Ignore:  make(map[string]bool),
		Entries: make(map[string][]ListEntry),
	}
}

// IsIgnored reports whether fullName is on the ignore list.
func (c *Curation) IsIgnored(fullName string) bool {
	return c != nil && c.Ignore[fullName]
}

// CuratedTags returns the list names fullName belongs to.
func (c *Curation) CuratedTags(fullName string) []string {
	if c == nil {
		return nil
	}
	return c.Tags[fullName]
}
