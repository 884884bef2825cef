package service

import (
	"errors"
	"sync"
	"time"

	"citiescrowl/internal/models"
)

var testPanel = Panel{
	City:       "popup_content_city",
	Prefecture: "popup_content_prefecture",
	CityKana:   "popup_content_city_kana",
	Map:        "popup_content_google_map",
	Wiki:       "popup_content_wikipedia",
}

var testLinks = Links{
	MapBase:  "https://www.google.com/maps",
	WikiBase: "https://ja.wikipedia.org/wiki",
}

func testStore() *models.RecordStore {
	return models.NewRecordStore([]models.City{
		{Prefecture: "北海道", City: "札幌市", PrefectureKana: "ほっかいどう", CityKana: "さっぽろし", Latitude: 43.06417, Longitude: 141.34694},
		{Prefecture: "神奈川県", City: "横浜市", PrefectureKana: "かながわけん", CityKana: "よこはまし", Latitude: 35.44778, Longitude: 139.6425},
		{Prefecture: "東京都", City: "府中市（東京都）", PrefectureKana: "とうきょうと", CityKana: "ふちゅうし", Latitude: 35.66889, Longitude: 139.4775},
		{Prefecture: "広島県", City: "府中市（広島県）", PrefectureKana: "ひろしまけん", CityKana: "ふちゅうし", Latitude: 34.56833, Longitude: 133.23639},
	})
}

var errRender = errors.New("render failed")

// fakeDocument is an in-memory Document with failure injection.
type fakeDocument struct {
	mu       sync.Mutex
	height   int
	labels   map[string]models.Label
	handlers map[string]models.ClickHandler
	content  map[string]string
	attrs    map[string]string
	missing  map[string]bool
	appends  int
	failures int
	// failWhen decides, per append attempt (1-based), whether to fail.
	failWhen  func(n int) bool
	panicWhen func(n int) bool
}

func newFakeDocument(height int) *fakeDocument {
	return &fakeDocument{
		height:   height,
		labels:   map[string]models.Label{},
		handlers: map[string]models.ClickHandler{},
		content:  map[string]string{},
		attrs:    map[string]string{},
		missing:  map[string]bool{},
	}
}

func (d *fakeDocument) ViewportHeight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.height
}

func (d *fakeDocument) AppendLabel(label models.Label, onClick models.ClickHandler) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.appends++
	if d.panicWhen != nil && d.panicWhen(d.appends) {
		d.failures++
		panic("append exploded")
	}
	if d.failWhen != nil && d.failWhen(d.appends) {
		d.failures++
		return errRender
	}
	d.labels[label.ID] = label
	d.handlers[label.ID] = onClick
	return nil
}

func (d *fakeDocument) RemoveLabel(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.labels[id]; !ok {
		return false
	}
	delete(d.labels, id)
	return true
}

func (d *fakeDocument) WritePanel(writes []models.PanelWrite) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, w := range writes {
		if w.Attr == "" {
			d.content[w.Element] = w.Value
			continue
		}
		d.attrs[w.Element+"@"+w.Attr] = w.Value
	}
	return nil
}

func (d *fakeDocument) Require(ids ...string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, id := range ids {
		if d.missing[id] {
			return errors.New("missing element " + id)
		}
	}
	return nil
}

func (d *fakeDocument) has(id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.labels[id]
	return ok
}

func (d *fakeDocument) counts() (live, appends, failures int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.labels), d.appends, d.failures
}

// fakeClock fires callbacks only when advanced.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// armed counts timers that have neither fired nor been stopped.
func (c *fakeClock) armed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.fired && !t.stopped {
			n++
		}
	}
	return n
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.fired && !t.stopped && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}
