// Package stats derives the history, calendar and statistics views from the
// in-memory entry list. Everything here is a pure function over a snapshot.
package stats

import (
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/medtrack/internal/datex"
	"github.com/dmitrijs2005/medtrack/internal/models"
)

// MedicationCount is one row of the per-medication breakdown.
type MedicationCount struct {
	Name  string `json:"name"`
	Doses int    `json:"doses"`
}

// Summary aggregates the statistics view.
type Summary struct {
	TotalEntries    int               `json:"totalEntries"`
	TotalDoses      int               `json:"totalDoses"`
	DosesLast7d     int               `json:"dosesLast7Days"`
	DosesLast30d    int               `json:"dosesLast30Days"`
	AverageDaily7d  float64           `json:"averageDaily7Days"`
	AverageDaily30d float64           `json:"averageDaily30Days"`
	PerMedication   []MedicationCount `json:"perMedication"`
}

// Compute builds the summary for a snapshot. The 7- and 30-day figures use
// rolling windows ending at now; each daily average divides its window total
// by the full window length.
func Compute(entries []models.MedicationEntry, now time.Time) Summary {
	s := Summary{TotalEntries: len(entries), PerMedication: []MedicationCount{}}
	if len(entries) == 0 {
		return s
	}

	weekAgo := now.UTC().AddDate(0, 0, -7)
	monthAgo := now.UTC().AddDate(0, 0, -30)
	perName := make(map[string]int)

	for _, e := range entries {
		s.TotalDoses += e.Quantity
		if e.OccurredAt.After(weekAgo) {
			s.DosesLast7d += e.Quantity
		}
		if e.OccurredAt.After(monthAgo) {
			s.DosesLast30d += e.Quantity
		}
		perName[strings.TrimSpace(e.Name)] += e.Quantity
	}

	s.AverageDaily7d = float64(s.DosesLast7d) / 7
	s.AverageDaily30d = float64(s.DosesLast30d) / 30

	for name, doses := range perName {
		s.PerMedication = append(s.PerMedication, MedicationCount{Name: name, Doses: doses})
	}
	sort.Slice(s.PerMedication, func(i, j int) bool {
		if s.PerMedication[i].Doses != s.PerMedication[j].Doses {
			return s.PerMedication[i].Doses > s.PerMedication[j].Doses
		}
		return s.PerMedication[i].Name < s.PerMedication[j].Name
	})

	return s
}

// Calendar buckets entries of the given reference-zone month by calendar day.
// Keys use datex.DayFormat; days without entries are absent.
func Calendar(entries []models.MedicationEntry, year int, month time.Month) map[string][]models.MedicationEntry {
	buckets := make(map[string][]models.MedicationEntry)
	for _, e := range entries {
		local := e.OccurredAt.In(datex.Location())
		if local.Year() != year || local.Month() != month {
			continue
		}
		key := datex.DayKey(e.OccurredAt)
		buckets[key] = append(buckets[key], e)
	}
	return buckets
}

// FilterByRange keeps entries whose stored UTC instant falls inside the given
// reference-zone calendar-date range. Empty bounds are open.
func FilterByRange(entries []models.MedicationEntry, startDate, endDate string) ([]models.MedicationEntry, error) {
	result := make([]models.MedicationEntry, 0, len(entries))
	for _, e := range entries {
		ok, err := datex.InRange(e.OccurredAt, startDate, endDate)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, e)
		}
	}
	return result, nil
}

// FilterByName keeps entries whose name contains the query, case-insensitive.
// An empty query keeps everything.
func FilterByName(entries []models.MedicationEntry, query string) []models.MedicationEntry {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return entries
	}
	result := make([]models.MedicationEntry, 0, len(entries))
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Name), query) {
			result = append(result, e)
		}
	}
	return result
}
