package store

// ModuleSetting toggles a handler for one tenant. Missing rows mean enabled.
type ModuleSetting struct {
	TenantID  string
	ModuleID  string
	Enabled   bool
	UpdatedTs int64
}

type FindModuleSetting struct {
	TenantID string
}
