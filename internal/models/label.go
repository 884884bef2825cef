package models

import "context"

// VisualParams are the randomized presentation attributes of one label.
type VisualParams struct {
	SizeTier       int     `json:"size_tier"`       // 1..4
	SpeedScale     float64 `json:"speed_scale"`     // 0.8..1.5
	VerticalOffset float64 `json:"vertical_offset"` // -5..100, in vh
}

// Label is a floating city name placed on a page.
type Label struct {
	ID          string       `json:"id"`
	RecordIndex int          `json:"record_index"`
	Params      VisualParams `json:"params"`
	Class       string       `json:"class"`
	Style       string       `json:"style"`
	Text        string       `json:"text"`
}

// ClickHandler reacts to a label being activated.
type ClickHandler interface {
	Activate(ctx context.Context) error
}

// PanelWrite sets the text content of Element, or its Attr attribute when
// Attr is set.
type PanelWrite struct {
	Element string
	Attr    string
	Value   string
}

// Event types mirrored to the browser.
const (
	EventHello     = "hello"
	EventSpawn     = "spawn"
	EventExpire    = "expire"
	EventContent   = "content"
	EventAttribute = "attribute"
)

// Event is one document mutation sent to the browser.
type Event struct {
	Type    string `json:"type"`
	Page    string `json:"page,omitempty"`
	Label   string `json:"label,omitempty"`
	Class   string `json:"class,omitempty"`
	Style   string `json:"style,omitempty"`
	Text    string `json:"text,omitempty"`
	Element string `json:"element,omitempty"`
	Name    string `json:"name,omitempty"`
	Value   string `json:"value,omitempty"`
}

// CityDetail is the detail panel content for a city, with derived links.
type CityDetail struct {
	Index           int     `json:"index"`
	Name            string  `json:"name"`
	City            string  `json:"city"`
	Prefecture      string  `json:"prefecture"`
	PrefectureKana  string  `json:"prefecture_kana"`
	CityKana        string  `json:"city_kana"`
	Latitude        float64 `json:"latitude"`
	Longitude       float64 `json:"longitude"`
	MapURL          string  `json:"map_url"`
	EncyclopediaURL string  `json:"encyclopedia_url"`
}
