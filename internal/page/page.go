// Package page keeps a server-side model of each visitor's document and
// mirrors every mutation to the browser as an event.
package page

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"citiescrowl/internal/models"

	"github.com/rs/zerolog/log"
)

var (
	// ErrContract reports a required element missing from the page.
	ErrContract = errors.New("document contract violated")
	// ErrClosed is returned by mutations on a torn down page.
	ErrClosed = errors.New("page is closed")
	// ErrNoSuchLabel is returned when clicking a label that is gone.
	ErrNoSuchLabel = errors.New("no such label")
)

// Layout names the elements of the host page.
type Layout struct {
	Container  string
	City       string
	Prefecture string
	CityKana   string
	Map        string
	Wiki       string
}

// IDs returns every element id in the layout, container first.
func (l Layout) IDs() []string {
	return []string{l.Container, l.City, l.Prefecture, l.CityKana, l.Map, l.Wiki}
}

// Validate checks that every element id is set and distinct.
func (l Layout) Validate() error {
	seen := make(map[string]bool, 6)
	for _, id := range l.IDs() {
		if id == "" {
			return fmt.Errorf("page: %w: empty element id", ErrContract)
		}
		if seen[id] {
			return fmt.Errorf("page: %w: duplicate element id %q", ErrContract, id)
		}
		seen[id] = true
	}
	return nil
}

type element struct {
	content string
	attrs   map[string]string
}

// Page is one visitor's document. All mutations are serialized by a mutex so
// no two mutation sequences interleave.
type Page struct {
	id     string
	layout Layout

	mu       sync.Mutex
	height   int
	elements map[string]*element
	labels   map[string]models.ClickHandler
	events   chan models.Event
	closed   bool
}

// New creates a page holding the layout's elements. buffer bounds the number
// of undelivered events; when the reader falls behind, events are dropped.
func New(id string, layout Layout, buffer int) (*Page, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	p := &Page{
		id:       id,
		layout:   layout,
		elements: make(map[string]*element, 6),
		labels:   make(map[string]models.ClickHandler),
		events:   make(chan models.Event, buffer),
	}
	for _, el := range layout.IDs() {
		p.elements[el] = &element{attrs: map[string]string{}}
	}
	return p, nil
}

func (p *Page) ID() string { return p.id }

func (p *Page) Layout() Layout { return p.layout }

// Events delivers mutations in the order they were applied. The channel is
// closed by Close.
func (p *Page) Events() <-chan models.Event { return p.events }

// ViewportHeight returns the last client height reported by the browser.
func (p *Page) ViewportHeight() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.height
}

func (p *Page) SetViewportHeight(h int) error {
	if h < 0 {
		return fmt.Errorf("page: negative viewport height %d", h)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.height = h
	return nil
}

// Require reports ErrContract when any of ids is not an element of the page.
func (p *Page) Require(ids ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, id := range ids {
		if _, ok := p.elements[id]; !ok {
			return fmt.Errorf("page: %w: missing element %q", ErrContract, id)
		}
	}
	return nil
}

// AppendLabel inserts a label into the container and registers its click
// handler.
func (p *Page) AppendLabel(label models.Label, onClick models.ClickHandler) error {
	if label.ID == "" {
		return errors.New("page: label without id")
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	if _, dup := p.labels[label.ID]; dup {
		return fmt.Errorf("page: duplicate label %s", label.ID)
	}

	p.labels[label.ID] = onClick
	p.emit(models.Event{
		Type:    models.EventSpawn,
		Label:   label.ID,
		Element: p.layout.Container,
		Class:   label.Class,
		Style:   label.Style,
		Text:    label.Text,
	})
	return nil
}

// RemoveLabel detaches a label. Removing an absent label is a no-op and
// returns false.
func (p *Page) RemoveLabel(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.labels[id]; !ok {
		return false
	}
	delete(p.labels, id)
	if !p.closed {
		p.emit(models.Event{Type: models.EventExpire, Label: id})
	}
	return true
}

func (p *Page) HasLabel(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.labels[id]
	return ok
}

func (p *Page) LabelCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.labels)
}

// SetContent replaces the text content of an element.
func (p *Page) SetContent(elementID, value string) error {
	return p.WritePanel([]models.PanelWrite{{Element: elementID, Value: value}})
}

// SetAttribute sets one attribute of an element.
func (p *Page) SetAttribute(elementID, name, value string) error {
	return p.WritePanel([]models.PanelWrite{{Element: elementID, Attr: name, Value: value}})
}

// WritePanel applies writes under a single lock hold, so concurrent clicks
// never leave the panel showing parts of two cities. Nothing is written when
// any target element is missing.
func (p *Page) WritePanel(writes []models.PanelWrite) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	targets := make([]*element, len(writes))
	for i, w := range writes {
		el, err := p.lookup(w.Element)
		if err != nil {
			return err
		}
		targets[i] = el
	}

	for i, w := range writes {
		if w.Attr == "" {
			targets[i].content = w.Value
			p.emit(models.Event{Type: models.EventContent, Element: w.Element, Value: w.Value})
			continue
		}
		targets[i].attrs[w.Attr] = w.Value
		p.emit(models.Event{Type: models.EventAttribute, Element: w.Element, Name: w.Attr, Value: w.Value})
	}
	return nil
}

// Content returns the current text content of an element.
func (p *Page) Content(elementID string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.elements[elementID]; ok {
		return el.content
	}
	return ""
}

// Attribute returns the current value of an element attribute.
func (p *Page) Attribute(elementID, name string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if el, ok := p.elements[elementID]; ok {
		return el.attrs[name]
	}
	return ""
}

// Click activates the handler bound to a label.
func (p *Page) Click(ctx context.Context, labelID string) error {
	p.mu.Lock()
	h, ok := p.labels[labelID]
	closed := p.closed
	p.mu.Unlock()

	if closed {
		return ErrClosed
	}
	if !ok {
		return fmt.Errorf("page: %w: %s", ErrNoSuchLabel, labelID)
	}
	if h == nil {
		return nil
	}
	// The handler mutates the page itself, so it runs without the lock.
	return h.Activate(ctx)
}

// Close tears the page down and closes the event channel. It is safe to call
// more than once.
func (p *Page) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.labels = map[string]models.ClickHandler{}
	close(p.events)
}

func (p *Page) lookup(elementID string) (*element, error) {
	if p.closed {
		return nil, ErrClosed
	}
	el, ok := p.elements[elementID]
	if !ok {
		return nil, fmt.Errorf("page: %w: missing element %q", ErrContract, elementID)
	}
	return el, nil
}

// emit must be called with p.mu held.
func (p *Page) emit(ev models.Event) {
	select {
	case p.events <- ev:
	default:
		log.Warn().Str("page", p.id).Str("event", ev.Type).Msg("event buffer full, dropping event")
	}
}
