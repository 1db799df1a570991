package domain

// Stats summarizes one owner's licensing position. Values are recomputed from
// the current collections on every request, never cached.
type Stats struct {
	TotalLicenses       int `json:"total_licenses"`
	ActiveSubscriptions int `json:"active_subscriptions"`
	TotalEAs            int `json:"total_eas"`
	MaxLicenses         int `json:"max_licenses"`
}
