package main

import (
	"fmt"
	"io"
	"strings"

	"github-star-curator/internal/domain"
	"github-star-curator/internal/service"
)

const topN = 10

const noStarredMessage = "📭 no starred repositories found, nothing to do"

func printStarredSummary(out io.Writer, s *service.StarredSummary) {
	fmt.Fprintln(out, "📊 starred summary")
	fmt.Fprintf(out, "  repositories: %d\n", s.Total)
	fmt.Fprintf(out, "  curated:      %d\n", s.Curated)
	fmt.Fprintf(out, "  languages:    %d\n", s.Languages)
	fmt.Fprintf(out, "  total stars:  %d\n", s.Stars)
	for _, tag := range service.SortedTags(s.TagCounts) {
		fmt.Fprintf(out, "  #%s: %d\n", tag, s.TagCounts[tag])
	}
}

func printRecommendations(out io.Writer, recs []domain.Recommendation) {
	if len(recs) == 0 {
		fmt.Fprintln(out, "📭 no recommendations")
		return
	}
	fmt.Fprintf(out, "✨ %d recommendations, top %d:\n", len(recs), min(topN, len(recs)))
	for i, rec := range service.Top(recs, topN) {
		fmt.Fprintf(out, "  %2d. %s (score %d, %d stars) [%s]\n",
			i+1, rec.FullName, rec.Score, rec.Stars, strings.Join(rec.MatchedTopics, ", "))
	}
}

func printTagCounts(out io.Writer, total int, counts map[string]int) {
	fmt.Fprintf(out, "📚 %d repositories across curated lists\n", total)
	for _, tag := range service.SortedTags(counts) {
		fmt.Fprintf(out, "  #%s: %d\n", tag, counts[tag])
	}
}
