package dto

// DashboardStatsResponse read-only aggregates
type DashboardStatsResponse struct {
	EventsByStatus    map[string]int64 `json:"events_by_status"`
	EventsByPhase     map[string]int64 `json:"events_by_phase"`
	TeamsByStatus     map[string]int64 `json:"teams_by_status"`
	SoloRegistrations int64            `json:"solo_registrations"`
	Users             int64            `json:"users"`
	Departments       int64            `json:"departments"`
}
