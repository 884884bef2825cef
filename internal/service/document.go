package service

import "citiescrowl/internal/models"

// PanelWriter applies a set of detail panel writes as one mutation: either
// every write lands or none does.
type PanelWriter interface {
	WritePanel(writes []models.PanelWrite) error
}

// LabelRemover detaches labels from a document.
type LabelRemover interface {
	RemoveLabel(id string) bool
}

// Document is the page the display draws on.
type Document interface {
	PanelWriter
	LabelRemover
	ViewportHeight() int
	AppendLabel(label models.Label, onClick models.ClickHandler) error
	Require(ids ...string) error
}

// Panel names the detail panel elements.
type Panel struct {
	City       string
	Prefecture string
	CityKana   string
	Map        string
	Wiki       string
}

func (p Panel) IDs() []string {
	return []string{p.City, p.Prefecture, p.CityKana, p.Map, p.Wiki}
}
