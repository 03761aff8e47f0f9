package domain

// Control is a compliance-framework reference an artifact or export
// can be linked to (spec §3, id scheme ctl_<fw>_<local>).
type Control struct {
	ControlID string `json:"control_id"`
	Framework string `json:"framework"`
	Name      string `json:"name"`
}
