package sheets

import (
	"fmt"
	"strconv"
	"strings"

	"github-star-curator/internal/domain"
)

// decodeStarred maps a header row plus data rows back onto StarredRow.
// Cells may be typed (numbers, booleans) or formatted strings.
func decodeStarred(values [][]interface{}) []domain.StarredRow {
	if len(values) < 2 {
		return nil
	}

	index := make(map[string]int, len(values[0]))
	for i, h := range values[0] {
		index[cellString(h)] = i
	}
	get := func(row []interface{}, col string) interface{} {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return nil
		}
		return row[i]
	}

	rows := make([]domain.StarredRow, 0, len(values)-1)
	for _, row := range values[1:] {
		name := cellString(get(row, "full_name"))
		if name == "" {
			continue
		}
		rows = append(rows, domain.StarredRow{
			FullName:             name,
			Description:          cellString(get(row, "description")),
			StarCount:            cellInt(get(row, "star_count")),
			ForkCount:            cellInt(get(row, "fork_count")),
			PrimaryLanguage:      cellString(get(row, "primary_language")),
			URL:                  cellString(get(row, "url")),
			LastReleaseTimestamp: cellString(get(row, "last_release_timestamp")),
			Topics:               cellString(get(row, "topics")),
			CuratedTags:          cellString(get(row, "curated_tags")),
			AllTags:              cellString(get(row, "all_tags")),
			IsCurated:            cellBool(get(row, "is_curated")),
			CreatedAt:            cellString(get(row, "created_at")),
			UpdatedAt:            cellString(get(row, "updated_at")),
			PushedAt:             cellString(get(row, "pushed_at")),
			FetchedAt:            cellString(get(row, "fetched_at")),
			Archived:             cellBool(get(row, "archived")),
			Fork:                 cellBool(get(row, "fork")),
		})
	}
	return rows
}

func cellString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}

func cellInt(v interface{}) int {
	switch t := v.(type) {
	case float64:
		return int(t)
	case int:
		return t
	case string:
		n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(t), ",", ""))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func cellBool(v interface{}) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		b, _ := strconv.ParseBool(strings.ToLower(strings.TrimSpace(t)))
		return b
	default:
		return false
	}
}
