package state

import (
	"encoding/json"

	"github.com/roach88/mydays/internal/task"
)

// Category is a user-defined task category.
type Category struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CustomTheme is a user-defined colour theme. Its contents are opaque to
// this program; they are stored and synced as-is.
type CustomTheme map[string]any

// Document is the synced state: the tasks collection plus the settings that
// travel with it. It is both the remote payload and the unit of
// fingerprinting.
//
// A nil field is absent. Applying a document overwrites only the fields it
// carries, so documents written by older clients that lack a field leave
// the local value alone.
type Document struct {
	Theme          *string                 `json:"theme,omitempty"`
	Sound          *string                 `json:"sound,omitempty"`
	View           *string                 `json:"view,omitempty"`
	Tasks          *task.Records           `json:"tasks,omitempty"`
	Categories     *[]Category             `json:"categories,omitempty"`
	CustomThemes   *map[string]CustomTheme `json:"customThemes,omitempty"`
	CategoryColors *map[string]string      `json:"categoryColors,omitempty"`
}

// Settings is the non-task part of the synced state.
type Settings struct {
	Theme          string
	Sound          string
	View           string
	Categories     []Category
	CustomThemes   map[string]CustomTheme
	CategoryColors map[string]string
}

// DefaultSettings returns the settings of a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Theme: "sunset",
		Sound: "chime",
		View:  "week",
		Categories: []Category{
			{Name: "Personal", Color: "#e8807a"},
			{Name: "Home", Color: "#d4976b"},
			{Name: "School", Color: "#c7a85e"},
			{Name: "Health", Color: "#d68cb2"},
		},
		CustomThemes:   map[string]CustomTheme{},
		CategoryColors: map[string]string{},
	}
}

func (s Settings) clone() Settings {
	c := s
	c.Categories = append([]Category(nil), s.Categories...)
	if c.Categories == nil {
		c.Categories = []Category{}
	}
	c.CustomThemes = cloneThemes(s.CustomThemes)
	c.CategoryColors = make(map[string]string, len(s.CategoryColors))
	for k, v := range s.CategoryColors {
		c.CategoryColors[k] = v
	}
	return c
}

// cloneThemes deep-copies opaque theme values through JSON.
func cloneThemes(in map[string]CustomTheme) map[string]CustomTheme {
	out := make(map[string]CustomTheme, len(in))
	if len(in) == 0 {
		return out
	}
	data, err := json.Marshal(in)
	if err != nil {
		return out
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return map[string]CustomTheme{}
	}
	return out
}

func ptr[T any](v T) *T { return &v }
