package service

import (
	"fmt"
	"strconv"

	"citiescrowl/internal/models"

	"github.com/google/uuid"
)

// LabelFactory builds labels and inserts them into a document.
type LabelFactory struct {
	store     *models.RecordStore
	baseClass string
	panel     Panel
	links     Links
	newID     func() string
}

// NewLabelFactory creates a new label factory
func NewLabelFactory(store *models.RecordStore, baseClass string, panel Panel, links Links) *LabelFactory {
	return &LabelFactory{
		store:     store,
		baseClass: baseClass,
		panel:     panel,
		links:     links,
		newID:     uuid.NewString,
	}
}

// Create inserts a label for the record at index. The label's click handler
// is bound to that index for its whole life.
func (f *LabelFactory) Create(doc Document, index int, params models.VisualParams) (models.Label, error) {
	city := f.store.Get(index)

	label := models.Label{
		ID:          f.newID(),
		RecordIndex: index,
		Params:      params,
		Class:       LabelClass(f.baseClass, params.SizeTier),
		Style:       LabelStyle(params),
		Text:        city.City,
	}

	handler := NewInteractionHandler(f.store, index, doc, f.panel, f.links)
	if err := doc.AppendLabel(label, handler); err != nil {
		return models.Label{}, fmt.Errorf("service: failed to append label: %w", err)
	}
	return label, nil
}

// LabelClass returns "base base{tier}".
func LabelClass(base string, tier int) string {
	return base + " " + base + strconv.Itoa(tier)
}

// AnimationSeconds is the time a label takes to cross the page. Larger
// labels move slightly slower.
func AnimationSeconds(params models.VisualParams) float64 {
	return params.SpeedScale * (1 + float64(params.SizeTier)/20) * 10
}

// LabelStyle positions the label and sets its animation duration.
func LabelStyle(params models.VisualParams) string {
	return "top: " + formatFloat(params.VerticalOffset) + "vh; animation-duration: " +
		formatFloat(AnimationSeconds(params)) + "s;"
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
