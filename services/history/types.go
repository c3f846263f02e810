package history

import "cloud.google.com/go/civil"

// WindowDays is the fixed aggregation window: today plus the six days
// before it.
const WindowDays = 7

// UserDailyEntryStatus is one row of the attendance table: for each date in
// the window, whether the user logged at least one entry that day.
type UserDailyEntryStatus struct {
	UserID        string              `json:"userId"`
	UserName      string              `json:"userName"`
	EntriesByDate map[civil.Date]bool `json:"entriesByDate"`
}

// View is an immutable snapshot of the aggregated streak history. The
// coordinator replaces it whole on every recomputation; consumers never see
// a partially updated value.
type View struct {
	DateHeaders    []civil.Date           `json:"dateHeaders"`
	UserEntries    []UserDailyEntryStatus `json:"userEntries"`
	HasLoggedToday bool                   `json:"hasLoggedToday"`
	Loading        bool                   `json:"loading"`
	ErrorMessage   string                 `json:"errorMessage,omitempty"`
}
