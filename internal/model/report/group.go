package report

import (
	"sort"
	"time"
)

// Day group labels used by the report list.
const (
	GroupToday         = "Heute"
	GroupYesterday     = "Gestern"
	GroupDayBeforeLast = "Vorgestern"
	groupDateLayout    = "02.01.2006"
)

// Group 按创建日期分组后的报告。
type Group struct {
	Key     string   `json:"key"`
	Reports []Report `json:"reports"`
}

// GroupByDay buckets reports by the calendar day of CreatedAt in now's location.
// Heute, Gestern and Vorgestern come first, remaining dd.MM.yyyy keys follow in
// string order. Reports keep their relative order inside a group.
func GroupByDay(reports []Report, now time.Time) []Group {
	loc := now.Location()
	today := startOfDay(now)

	buckets := make(map[string][]Report)
	for _, r := range reports {
		key := dayKey(r.CreatedAt.In(loc), today)
		buckets[key] = append(buckets[key], r)
	}

	groups := make([]Group, 0, len(buckets))
	fixed := []string{GroupToday, GroupYesterday, GroupDayBeforeLast}
	for _, key := range fixed {
		if items, ok := buckets[key]; ok {
			groups = append(groups, Group{Key: key, Reports: items})
			delete(buckets, key)
		}
	}

	others := make([]string, 0, len(buckets))
	for key := range buckets {
		others = append(others, key)
	}
	sort.Strings(others)
	for _, key := range others {
		groups = append(groups, Group{Key: key, Reports: buckets[key]})
	}
	return groups
}

func dayKey(t, today time.Time) string {
	day := startOfDay(t)
	switch {
	case day.Equal(today):
		return GroupToday
	case day.Equal(today.AddDate(0, 0, -1)):
		return GroupYesterday
	case day.Equal(today.AddDate(0, 0, -2)):
		return GroupDayBeforeLast
	default:
		return t.Format(groupDateLayout)
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
