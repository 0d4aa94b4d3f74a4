// Package aggregate contains the pure dashboard transforms. Functions
// here take plain slices and return chart-ready rows; they never touch
// the database so they can be tested exhaustively.
package aggregate

import (
	"sort"
	"strings"
	"time"
)

// Lead carries the fields the dashboard transforms read.
type Lead struct {
	CreatedAt         time.Time
	Converted         bool
	ServiceOfInterest string
	AdName            string
}

// Appointment carries the fields category aggregation reads.
type Appointment struct {
	Title  string
	Status string
}

// TimeSeriesPoint is one calendar-day bucket.
type TimeSeriesPoint struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// CategoryCount is one row of the conversions-by-category chart.
type CategoryCount struct {
	Category    string `json:"category"`
	Conversions int    `json:"conversions"`
}

// AdStats is one row of the ad performance chart.
type AdStats struct {
	AdName      string `json:"adName"`
	Leads       int    `json:"leads"`
	Conversions int    `json:"conversions"`
	// Variants holds the distinct raw spellings grouped under this row.
	// Surfaced for debug logging only, not serialized.
	Variants []string `json:"-"`
}

const topN = 10

// defaultCategory labels converted leads with no service of interest.
const defaultCategory = "unspecified"

// LeadTimeSeries buckets leads into one point per calendar day in the
// inclusive [start, end] window. Day boundaries use the local time zone
// and labels are short dd/MM dates. Zero start/end default to the last
// 30 days through now.
func LeadTimeSeries(leads []Lead, start, end time.Time) []TimeSeriesPoint {
	if end.IsZero() {
		end = time.Now()
	}
	if start.IsZero() {
		start = end.AddDate(0, 0, -29)
	}

	startDay := truncateToDay(start)
	endDay := truncateToDay(end)
	if endDay.Before(startDay) {
		return []TimeSeriesPoint{}
	}

	days := int(endDay.Sub(startDay).Hours()/24) + 1
	points := make([]TimeSeriesPoint, days)
	index := make(map[time.Time]int, days)
	for i := 0; i < days; i++ {
		day := startDay.AddDate(0, 0, i)
		points[i] = TimeSeriesPoint{Label: day.Format("02/01")}
		index[day] = i
	}

	for _, lead := range leads {
		day := truncateToDay(lead.CreatedAt.Local())
		if i, ok := index[day]; ok {
			points[i].Count++
		}
	}
	return points
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ConversionsByCategory merges converted leads (keyed by service of
// interest) and completed or paid appointments (keyed by title) into a
// single count per category. Rows are sorted descending by count with
// ties keeping first-seen order, truncated to the top 10.
func ConversionsByCategory(leads []Lead, appointments []Appointment) []CategoryCount {
	counts := make(map[string]int)
	var order []string

	bump := func(category string) {
		if _, seen := counts[category]; !seen {
			order = append(order, category)
		}
		counts[category]++
	}

	for _, lead := range leads {
		if !lead.Converted {
			continue
		}
		category := strings.TrimSpace(lead.ServiceOfInterest)
		if category == "" {
			category = defaultCategory
		}
		bump(category)
	}
	for _, appt := range appointments {
		if appt.Status != "completed" && appt.Status != "paid" {
			continue
		}
		title := strings.TrimSpace(appt.Title)
		if title == "" {
			title = defaultCategory
		}
		bump(title)
	}

	result := make([]CategoryCount, 0, len(order))
	for _, category := range order {
		result = append(result, CategoryCount{Category: category, Conversions: counts[category]})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Conversions > result[j].Conversions
	})
	if len(result) > topN {
		result = result[:topN]
	}
	return result
}

// AdPerformance groups leads by normalized ad name and counts totals and
// conversions per group. The display name is the longest raw variant as
// received, whitespace included; among equal lengths a variant
// containing "AD" wins. Rows are sorted descending by lead count,
// truncated to the top 10.
func AdPerformance(leads []Lead) []AdStats {
	type group struct {
		display     string
		leads       int
		conversions int
		variants    []string
	}
	groups := make(map[string]*group)
	var order []string

	for _, lead := range leads {
		raw := lead.AdName
		if strings.TrimSpace(raw) == "" {
			continue
		}
		key := normalizeAdName(raw)

		g, ok := groups[key]
		if !ok {
			g = &group{display: raw}
			groups[key] = g
			order = append(order, key)
		}
		g.leads++
		if lead.Converted {
			g.conversions++
		}
		if !containsString(g.variants, raw) {
			g.variants = append(g.variants, raw)
		}
		if preferDisplayName(raw, g.display) {
			g.display = raw
		}
	}

	result := make([]AdStats, 0, len(order))
	for _, key := range order {
		g := groups[key]
		result = append(result, AdStats{
			AdName:      g.display,
			Leads:       g.leads,
			Conversions: g.conversions,
			Variants:    g.variants,
		})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Leads > result[j].Leads
	})
	if len(result) > topN {
		result = result[:topN]
	}
	return result
}

// normalizeAdName builds the grouping key: trimmed, lower-cased, inner
// whitespace collapsed to single spaces.
func normalizeAdName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// preferDisplayName reports whether candidate should replace current as
// the group's display name.
func preferDisplayName(candidate, current string) bool {
	if len(candidate) != len(current) {
		return len(candidate) > len(current)
	}
	return strings.Contains(candidate, "AD") && !strings.Contains(current, "AD")
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
