package models

// SettingsTodoBox is the document id of the to-do window geometry settings.
const SettingsTodoBox = "todo-box"

// WidgetSettings persists window geometry for a named widget, one document
// per (owner, widget).
type WidgetSettings struct {
	ID       string   `json:"-"`
	Owner    string   `json:"owner"`
	Position Position `json:"position"`
	Height   float64  `json:"height"`
}

// DefaultTodoBoxSettings is the geometry used before a stored settings
// document arrives.
func DefaultTodoBoxSettings(owner string) WidgetSettings {
	return WidgetSettings{
		ID:       SettingsTodoBox,
		Owner:    owner,
		Position: Position{X: 60, Y: 60},
		Height:   320,
	}
}
