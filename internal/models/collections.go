package models

// Remote collection names.
const (
	CollectionNotes    = "notes"
	CollectionFiles    = "files"
	CollectionTodos    = "todos"
	CollectionTimeBox  = "timebox"
	CollectionSettings = "settings"
)

// TimeBoxDocID returns the id of the planner document for one (owner, day).
func TimeBoxDocID(owner, date string) string {
	return owner + "_" + date
}

// SettingsDocID returns the id of a widget-settings document.
func SettingsDocID(owner, widget string) string {
	return owner + "_" + widget
}
