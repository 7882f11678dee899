package domain

// Stats is the admin dashboard summary.
type Stats struct {
	Accounts       int              `json:"accounts"`
	Admins         int              `json:"admins"`
	Products       int              `json:"products"`
	ActiveProducts int              `json:"active_products"`
	Categories     int              `json:"categories"`
	Materials      int              `json:"materials"`
	Arts           int              `json:"arts"`
	Projects       int              `json:"projects"`
	RecentAccounts []AccountSummary `json:"recent_accounts"`
}
