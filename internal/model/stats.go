package model

// SiteStats are the public aggregate counters shown to signed-in members.
type SiteStats struct {
	TotalUsers   int64 `json:"totalUsers"`
	TotalEntries int64 `json:"totalEntries"`
	TextEntries  int64 `json:"textEntries"`
	ImageEntries int64 `json:"imageEntries"`
	AudioEntries int64 `json:"audioEntries"`
}

// AdminMetrics are the console counters, a superset of SiteStats that adds
// the access-workflow and activity figures.
type AdminMetrics struct {
	SiteStats
	TotalAllowedEmails int64 `json:"totalAllowedEmails"`
	PendingRequests    int64 `json:"pendingRequests"`
	ApprovedRequests   int64 `json:"approvedRequests"`
	RejectedRequests   int64 `json:"rejectedRequests"`
	ActiveUsers7d      int64 `json:"activeUsers7d"`
}
