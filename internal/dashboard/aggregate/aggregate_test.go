package aggregate

import (
	"testing"
	"time"
)

func day(year int, month time.Month, d, hour int) time.Time {
	return time.Date(year, month, d, hour, 0, 0, 0, time.Local)
}

func TestLeadTimeSeriesBucketsByCalendarDay(t *testing.T) {
	start := day(2026, time.March, 1, 0)
	end := day(2026, time.March, 5, 0)

	leads := []Lead{
		{CreatedAt: day(2026, time.March, 1, 9)},
		{CreatedAt: day(2026, time.March, 1, 23)},
		{CreatedAt: day(2026, time.March, 3, 0)},
		{CreatedAt: day(2026, time.March, 5, 12)},
		// Outside the window on both sides.
		{CreatedAt: day(2026, time.February, 28, 23)},
		{CreatedAt: day(2026, time.March, 6, 0)},
	}

	points := LeadTimeSeries(leads, start, end)
	if len(points) != 5 {
		t.Fatalf("expected 5 buckets, got %d", len(points))
	}

	wantLabels := []string{"01/03", "02/03", "03/03", "04/03", "05/03"}
	wantCounts := []int{2, 0, 1, 0, 1}
	for i := range points {
		if points[i].Label != wantLabels[i] {
			t.Fatalf("bucket %d: label %s, want %s", i, points[i].Label, wantLabels[i])
		}
		if points[i].Count != wantCounts[i] {
			t.Fatalf("bucket %d (%s): count %d, want %d", i, points[i].Label, points[i].Count, wantCounts[i])
		}
	}
}

func TestLeadTimeSeriesDefaultWindow(t *testing.T) {
	points := LeadTimeSeries(nil, time.Time{}, time.Time{})
	if len(points) != 30 {
		t.Fatalf("default window should span 30 days, got %d", len(points))
	}
	for _, p := range points {
		if p.Count != 0 {
			t.Fatalf("empty input produced non-zero count in bucket %s", p.Label)
		}
	}
}

func TestLeadTimeSeriesInvertedWindow(t *testing.T) {
	points := LeadTimeSeries(nil, day(2026, time.March, 5, 0), day(2026, time.March, 1, 0))
	if len(points) != 0 {
		t.Fatalf("inverted window should yield no buckets, got %d", len(points))
	}
}

func TestConversionsByCategoryMergesLeadsAndAppointments(t *testing.T) {
	leads := []Lead{
		{Converted: true, ServiceOfInterest: "Botox"},
		{Converted: true, ServiceOfInterest: "Botox"},
		{Converted: true, ServiceOfInterest: ""},
		{Converted: false, ServiceOfInterest: "Limpeza"},
	}
	appointments := []Appointment{
		{Title: "Botox", Status: "completed"},
		{Title: "Limpeza", Status: "paid"},
		{Title: "Limpeza", Status: "scheduled"},
		{Title: "Limpeza", Status: "cancelled"},
	}

	result := ConversionsByCategory(leads, appointments)

	want := map[string]int{"Botox": 3, "unspecified": 1, "Limpeza": 1}
	if len(result) != len(want) {
		t.Fatalf("expected %d categories, got %d: %v", len(want), len(result), result)
	}
	for _, row := range result {
		if want[row.Category] != row.Conversions {
			t.Fatalf("category %s: got %d, want %d", row.Category, row.Conversions, want[row.Category])
		}
	}
	if result[0].Category != "Botox" {
		t.Fatalf("expected Botox first, got %s", result[0].Category)
	}
}

func TestConversionsByCategoryTiesKeepInsertionOrder(t *testing.T) {
	leads := []Lead{
		{Converted: true, ServiceOfInterest: "Primeiro"},
		{Converted: true, ServiceOfInterest: "Segundo"},
	}
	result := ConversionsByCategory(leads, nil)
	if result[0].Category != "Primeiro" || result[1].Category != "Segundo" {
		t.Fatalf("tie broke insertion order: %v", result)
	}
}

func TestConversionsByCategoryTopTen(t *testing.T) {
	var leads []Lead
	for i := 0; i < 15; i++ {
		leads = append(leads, Lead{Converted: true, ServiceOfInterest: string(rune('A' + i))})
	}
	result := ConversionsByCategory(leads, nil)
	if len(result) != 10 {
		t.Fatalf("expected top 10, got %d", len(result))
	}
}

func TestConversionsByCategoryEmptyInput(t *testing.T) {
	result := ConversionsByCategory(nil, nil)
	if result == nil || len(result) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", result)
	}
}

func TestAdPerformanceGroupsNormalizedVariants(t *testing.T) {
	leads := []Lead{
		{AdName: "Promo Verão", Converted: true},
		{AdName: "  promo   verão "},
		{AdName: "PROMO VERÃO", Converted: true},
		{AdName: "Outra Campanha"},
		{AdName: ""},
	}

	result := AdPerformance(leads)
	if len(result) != 2 {
		t.Fatalf("expected 2 groups, got %d: %v", len(result), result)
	}

	top := result[0]
	if top.Leads != 3 {
		t.Fatalf("expected 3 leads in top group, got %d", top.Leads)
	}
	if top.Conversions != 2 {
		t.Fatalf("expected 2 conversions, got %d", top.Conversions)
	}
	if len(top.Variants) != 3 {
		t.Fatalf("expected 3 distinct variants, got %v", top.Variants)
	}
}

func TestAdPerformanceDisplayNamePrefersLongest(t *testing.T) {
	leads := []Lead{
		{AdName: "campanha x"},
		{AdName: "Campanha X - Institucional"},
	}
	result := AdPerformance(leads)
	if len(result) != 2 {
		// Different normalized keys: the suffix makes them distinct groups.
		t.Fatalf("expected 2 groups, got %d", len(result))
	}

	leads = []Lead{
		{AdName: "campanha x"},
		{AdName: "CAMPANHA X"},
	}
	result = AdPerformance(leads)
	if len(result) != 1 {
		t.Fatalf("expected 1 group, got %d", len(result))
	}
	if result[0].AdName != "campanha x" && result[0].AdName != "CAMPANHA X" {
		t.Fatalf("unexpected display name %s", result[0].AdName)
	}
}

func TestAdPerformanceDisplayNameKeepsRawVariant(t *testing.T) {
	// Variants differing only in casing and whitespace collapse into one
	// group; the display name is the longest raw spelling exactly as it
	// arrived, padding included.
	leads := []Lead{
		{AdName: "Campanha AD1"},
		{AdName: "campanha  ad1"},
		{AdName: " CAMPANHA AD1 "},
	}
	result := AdPerformance(leads)
	if len(result) != 1 {
		t.Fatalf("expected 1 group, got %d: %v", len(result), result)
	}
	if result[0].Leads != 3 {
		t.Fatalf("expected 3 leads, got %d", result[0].Leads)
	}
	if result[0].AdName != " CAMPANHA AD1 " {
		t.Fatalf("expected longest raw variant as display name, got %q", result[0].AdName)
	}
	if len(result[0].Variants) != 3 {
		t.Fatalf("expected 3 distinct raw variants, got %v", result[0].Variants)
	}
}

func TestAdPerformanceDisplayNamePrefersADOnTie(t *testing.T) {
	// Same normalized group, equal lengths: the variant containing the
	// literal "AD" wins the display name.
	leads := []Lead{
		{AdName: "campanha adulto"},
		{AdName: "CAMPANHA ADULTO"},
	}
	result := AdPerformance(leads)
	if len(result) != 1 {
		t.Fatalf("expected 1 group, got %d", len(result))
	}
	if result[0].AdName != "CAMPANHA ADULTO" {
		t.Fatalf("expected AD-bearing variant as display name, got %s", result[0].AdName)
	}
}

func TestAdPerformanceSortsByLeadCount(t *testing.T) {
	leads := []Lead{
		{AdName: "Menor"},
		{AdName: "Maior"},
		{AdName: "Maior"},
		{AdName: "Maior"},
		{AdName: "Menor"},
	}
	result := AdPerformance(leads)
	if result[0].AdName != "Maior" || result[0].Leads != 3 {
		t.Fatalf("expected Maior first with 3 leads, got %+v", result[0])
	}
}

func TestAdPerformanceEmptyInput(t *testing.T) {
	result := AdPerformance(nil)
	if result == nil || len(result) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", result)
	}
}
