package models

import (
	"errors"
	"fmt"
)

// ErrEmptyStore is returned when an operation needs at least one city record.
var ErrEmptyStore = errors.New("record store is empty")

// City is one municipality entry of the dataset. City may carry a
// parenthetical disambiguation segment, e.g. "府中市（東京都）".
type City struct {
	Prefecture     string  `json:"prefecture"`
	City           string  `json:"city"`
	PrefectureKana string  `json:"prefecture_kana"`
	CityKana       string  `json:"city_kana"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
}

// RecordStore is the frozen list of cities loaded at startup.
// It has no mutating methods, so a single value is shared by every page.
type RecordStore struct {
	cities []City
}

// NewRecordStore copies cities into a new store.
func NewRecordStore(cities []City) *RecordStore {
	owned := make([]City, len(cities))
	copy(owned, cities)
	return &RecordStore{cities: owned}
}

// Count returns the number of records.
func (s *RecordStore) Count() int {
	if s == nil {
		return 0
	}
	return len(s.cities)
}

// Get returns the record at index. An out of range index is a programming
// error and panics.
func (s *RecordStore) Get(index int) City {
	if index < 0 || index >= s.Count() {
		panic(fmt.Sprintf("models: record index %d out of range [0, %d)", index, s.Count()))
	}
	return s.cities[index]
}

// Lookup is the checked form of Get for indexes that come from outside the
// process.
func (s *RecordStore) Lookup(index int) (City, bool) {
	if index < 0 || index >= s.Count() {
		return City{}, false
	}
	return s.cities[index], true
}

// Each calls fn for every record in order until fn returns false.
func (s *RecordStore) Each(fn func(index int, city City) bool) {
	for i := 0; i < s.Count(); i++ {
		if !fn(i, s.cities[i]) {
			return
		}
	}
}
