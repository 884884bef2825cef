package service

import (
	"context"
	"fmt"
	"strings"

	"citiescrowl/internal/models"

	"golang.org/x/text/width"
)

// Links builds the map and encyclopedia URLs of a city.
type Links struct {
	MapBase  string
	WikiBase string
}

// MapURL returns the embeddable map search for a city.
func (l Links) MapURL(prefecture, city string) string {
	return l.MapBase + "?output=embed&q=" + prefecture + StripParenthetical(city)
}

// EncyclopediaURL returns the article URL for a city, turning a
// disambiguation segment into the "_(...)" title form.
func (l Links) EncyclopediaURL(city string) string {
	return strings.TrimRight(l.WikiBase, "/") + "/" + articleTitle(city)
}

// StripParenthetical drops a trailing disambiguation segment such as
// "（東京都）" or "(東京都)".
func StripParenthetical(city string) string {
	i := strings.IndexFunc(city, isOpenBracket)
	if i < 0 {
		return city
	}
	return strings.TrimSpace(city[:i])
}

func articleTitle(city string) string {
	var b strings.Builder
	for _, r := range city {
		switch {
		case isOpenBracket(r):
			b.WriteString("_(")
		case isCloseBracket(r):
			b.WriteByte(')')
		default:
			b.WriteRune(r)
		}
	}
	return strings.ReplaceAll(b.String(), " _(", "_(")
}

func isOpenBracket(r rune) bool {
	return r == '(' || narrow(r) == '('
}

func isCloseBracket(r rune) bool {
	return r == ')' || narrow(r) == ')'
}

func narrow(r rune) rune {
	p := width.LookupRune(r)
	return p.Narrow()
}

// InteractionHandler fills the detail panel for one record. Each label owns
// its own handler, so the bound index never changes.
type InteractionHandler struct {
	store *models.RecordStore
	index int
	doc   PanelWriter
	panel Panel
	links Links
}

// NewInteractionHandler creates a handler bound to the record at index
func NewInteractionHandler(store *models.RecordStore, index int, doc PanelWriter, panel Panel, links Links) *InteractionHandler {
	return &InteractionHandler{store: store, index: index, doc: doc, panel: panel, links: links}
}

// Activate writes the city, prefecture and kana and points the map and
// encyclopedia elements at the city.
func (h *InteractionHandler) Activate(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	city := h.store.Get(h.index)

	err := h.doc.WritePanel([]models.PanelWrite{
		{Element: h.panel.City, Value: StripParenthetical(city.City)},
		{Element: h.panel.Prefecture, Value: city.Prefecture},
		{Element: h.panel.CityKana, Value: city.CityKana},
		{Element: h.panel.Map, Attr: "src", Value: h.links.MapURL(city.Prefecture, city.City)},
		{Element: h.panel.Wiki, Attr: "href", Value: h.links.EncyclopediaURL(city.City)},
	})
	if err != nil {
		return fmt.Errorf("service: failed to update detail panel: %w", err)
	}
	return nil
}
