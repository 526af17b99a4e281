package domain

import (
	"fmt"
	"strings"
	"time"
)

// PartSource identifies one of the two parts inventories.
type PartSource string

const (
	SourcePAT  PartSource = "pat"
	SourceKYEC PartSource = "kyec"
)

// Table names of the inventory schema.
const (
	TablePATParts    = "pat_parts_all"
	TableKYECParts   = "kyec_parts_all"
	TablePATWeekly   = "pat_stats_weekly"
	TableKYECWeekly  = "kyec_stats_weekly"
	TableChangeLog   = "table_change_log"
	ChangeLogMaxRows = 1000
)

// RequiredTables must all exist for the dashboard to work.
var RequiredTables = []string{
	TablePATParts, TableKYECParts, TablePATWeekly, TableKYECWeekly, TableChangeLog,
}

// StatusVocabulary maps the dashboard's status buckets to the literal values
// a source stores in its status column. The two sources were loaded from
// different systems and disagree on naming.
type StatusVocabulary struct {
	Production     string
	InHouseRepair  string
	CustomerRepair string
	Borrowed       string
}

var (
	patStatuses = StatusVocabulary{
		Production:     "PRODUCTION",
		InHouseRepair:  "REPAIR",
		CustomerRepair: "OUT_REPAIR",
		Borrowed:       "BORROW",
	}
	kyecStatuses = StatusVocabulary{
		Production:     "正常生產",
		InHouseRepair:  "廠內維修",
		CustomerRepair: "客戶維修",
		Borrowed:       "客戶借出",
	}
)

// ParsePartSource accepts "pat" or "kyec" in any case.
func ParsePartSource(s string) (PartSource, error) {
	switch PartSource(strings.ToLower(strings.TrimSpace(s))) {
	case SourcePAT:
		return SourcePAT, nil
	case SourceKYEC:
		return SourceKYEC, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSource, s)
}

// Table returns the parts table for the source.
func (s PartSource) Table() string {
	if s == SourceKYEC {
		return TableKYECParts
	}
	return TablePATParts
}

// WeeklyTable returns the weekly statistics table for the source.
func (s PartSource) WeeklyTable() string {
	if s == SourceKYEC {
		return TableKYECWeekly
	}
	return TablePATWeekly
}

// Statuses returns the source's status vocabulary.
func (s PartSource) Statuses() StatusVocabulary {
	if s == SourceKYEC {
		return kyecStatuses
	}
	return patStatuses
}

// SearchScope limits a part search to one source or both.
type SearchScope string

const (
	ScopeAll  SearchScope = "all"
	ScopePAT  SearchScope = "pat"
	ScopeKYEC SearchScope = "kyec"
)

// ParseSearchScope defaults to ScopeAll for an empty string.
func ParseSearchScope(s string) (SearchScope, error) {
	switch SearchScope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeAll:
		return ScopeAll, nil
	case ScopePAT:
		return ScopePAT, nil
	case ScopeKYEC:
		return ScopeKYEC, nil
	}
	return "", fmt.Errorf("%w: search scope %q", ErrUnknownSource, s)
}

// OverviewStats are the headline counts across both sources.
type OverviewStats struct {
	TotalParts      int64 `json:"total_parts"`
	RepairParts     int64 `json:"repair_parts"`
	ProductionParts int64 `json:"production_parts"`
	BorrowedParts   int64 `json:"borrowed_parts"`
}

// ChangeWindow restricts change-log entries to the last N days. Zero means no limit.
type ChangeWindow int

const (
	WindowAll    ChangeWindow = 0
	WindowWeek   ChangeWindow = 7
	WindowMonth  ChangeWindow = 30
	WindowPeriod ChangeWindow = 90
)

// ParseChangeWindow accepts "", "all", "7", "30" or "90" (optionally suffixed with "d").
func ParseChangeWindow(s string) (ChangeWindow, error) {
	v := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), "d")
	switch v {
	case "", "all":
		return WindowAll, nil
	case "7":
		return WindowWeek, nil
	case "30":
		return WindowMonth, nil
	case "90":
		return WindowPeriod, nil
	}
	return 0, fmt.Errorf("invalid change window %q: must be all, 7, 30 or 90", s)
}

// ParseAnalysisWindow is ParseChangeWindow for the change-log analysis, where
// an empty string means the last 30 days rather than everything.
func ParseAnalysisWindow(s string) (ChangeWindow, error) {
	if strings.TrimSpace(s) == "" {
		return WindowMonth, nil
	}
	return ParseChangeWindow(s)
}

// Cutoff returns the first day included in the window, formatted as YYYY-MM-DD,
// and false when the window is unlimited.
func (w ChangeWindow) Cutoff(now time.Time) (string, bool) {
	if w <= 0 {
		return "", false
	}
	return now.AddDate(0, 0, -int(w)).Format("2006-01-02"), true
}

// ChangeLogFilter selects change-log entries. Empty fields match everything.
type ChangeLogFilter struct {
	Table     string
	Operation string
	Window    ChangeWindow
	Search    string
}

// Repair duration classes of the maintenance analysis. A repair of up to
// RepairShortMaxDays is short, up to RepairMediumMaxDays medium, longer is long.
const (
	RepairShortMaxDays  = 7
	RepairMediumMaxDays = 30

	RepairShort  = "短期維修"
	RepairMedium = "中期維修"
	RepairLong   = "長期維修"
)

// ClassifyRepair returns the duration class of a repair lasting days.
func ClassifyRepair(days int64) string {
	switch {
	case days <= RepairShortMaxDays:
		return RepairShort
	case days <= RepairMediumMaxDays:
		return RepairMedium
	}
	return RepairLong
}
