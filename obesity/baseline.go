package obesity

// Baseline obesity screening
//
// The baseline flag is derived from an age- and sex-stratified BMI reference
// table. Children and adolescents are placed into half-year age bands
// [start, start+0.5) from 6 to 18 years; each band carries one threshold per
// sex. From 18 years on a single adult cut-off applies to both sexes.
//
// A student is flagged (1) when their BMI is greater than or equal to the
// threshold of their band. Values are kept exactly as published, including the
// 13.0-13.5 female threshold of 25.6, which is higher than the male value and
// equal to the following band.

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

const (
	// bandWidthYears is the width of every child/adolescent age band.
	bandWidthYears = 0.5
	// AdultAgeYears is the age from which the adult cut-off applies.
	AdultAgeYears = 18.0
	// AdultThreshold is the sex-independent BMI cut-off for ages >= 18.
	AdultThreshold = 28.0
)

// ErrInvalidMeasurement is returned when height or weight is non-positive or non-finite.
var ErrInvalidMeasurement = errors.New("invalid measurement")

// Band is a single row of the BMI reference table.
type Band struct {
	StartAge        float64 `json:"startAge"`
	EndAge          float64 `json:"endAge,omitempty"`
	MaleThreshold   float64 `json:"maleThreshold"`
	FemaleThreshold float64 `json:"femaleThreshold"`
	Adult           bool    `json:"adult,omitempty"`
}

// Threshold returns the BMI cut-off of the band for the given sex.
func (b Band) Threshold(sex Sex) float64 {
	if sex == Female {
		return b.FemaleThreshold
	}
	return b.MaleThreshold
}

// Contains reports whether age falls inside [StartAge, EndAge). The adult
// band is open-ended.
func (b Band) Contains(age float64) bool {
	if b.Adult {
		return age >= b.StartAge
	}
	return age >= b.StartAge && age < b.EndAge
}

// referenceBands is sorted by StartAge; LookupBand relies on that order.
var referenceBands = []Band{
	newBand(6.0, 17.7, 17.5),
	newBand(6.5, 18.1, 18.0),
	newBand(7.0, 18.7, 18.5),
	newBand(7.5, 19.2, 19.0),
	newBand(8.0, 19.7, 19.4),
	newBand(8.5, 20.3, 19.9),
	newBand(9.0, 20.8, 20.4),
	newBand(9.5, 21.4, 21.0),
	newBand(10.0, 21.9, 21.5),
	newBand(10.5, 22.5, 22.1),
	newBand(11.0, 23.0, 22.7),
	newBand(11.5, 23.6, 23.3),
	newBand(12.0, 24.1, 23.9),
	newBand(12.5, 24.7, 24.5),
	newBand(13.0, 25.2, 25.6),
	newBand(13.5, 25.7, 25.6),
	newBand(14.0, 26.1, 25.9),
	newBand(14.5, 26.4, 26.3),
	newBand(15.0, 26.6, 26.6),
	newBand(15.5, 26.9, 26.9),
	newBand(16.0, 27.1, 27.1),
	newBand(16.5, 27.4, 27.4),
	newBand(17.0, 27.6, 27.6),
	newBand(17.5, 27.8, 27.8),
}

var adultBand = Band{
	StartAge:        AdultAgeYears,
	MaleThreshold:   AdultThreshold,
	FemaleThreshold: AdultThreshold,
	Adult:           true,
}

func newBand(start, male, female float64) Band {
	return Band{
		StartAge:        start,
		EndAge:          start + bandWidthYears,
		MaleThreshold:   male,
		FemaleThreshold: female,
	}
}

// ReferenceBands returns a copy of the half-year bands followed by the adult band.
func ReferenceBands() []Band {
	bands := make([]Band, 0, len(referenceBands)+1)
	bands = append(bands, referenceBands...)
	return append(bands, adultBand)
}

// LookupBand finds the band containing ageYears. Ages below the first band
// (and NaN) match nothing.
func LookupBand(ageYears float64) (Band, bool) {
	if ageYears >= AdultAgeYears {
		return adultBand, true
	}

	// first band whose start is beyond the age, minus one
	idx := sort.Search(len(referenceBands), func(i int) bool {
		return referenceBands[i].StartAge > ageYears
	}) - 1
	if idx < 0 {
		return Band{}, false
	}

	band := referenceBands[idx]
	if !band.Contains(ageYears) {
		return Band{}, false
	}
	return band, true
}

// BMI computes weight / height^2 with height converted from centimetres to metres.
func BMI(heightCm, weightKg float64) (float64, error) {
	if !isPositiveFinite(heightCm) {
		return 0, fmt.Errorf("%w: height %v cm", ErrInvalidMeasurement, heightCm)
	}
	if !isPositiveFinite(weightKg) {
		return 0, fmt.Errorf("%w: weight %v kg", ErrInvalidMeasurement, weightKg)
	}

	heightM := heightCm / 100
	return weightKg / (heightM * heightM), nil
}

// ClassifyBMI returns 1 when bmi reaches the threshold of the band containing
// ageYears, 0 otherwise. Students younger than six fall outside the reference
// table and are never flagged.
func ClassifyBMI(ageYears float64, sex Sex, bmi float64) int {
	band, ok := LookupBand(ageYears)
	if !ok {
		return 0
	}
	if bmi >= band.Threshold(sex) {
		return 1
	}
	return 0
}

// ClassifyBaseline derives the baseline obesity flag from raw measurements.
func ClassifyBaseline(ageYears float64, sex Sex, heightCm, weightKg float64) (int, error) {
	bmi, err := BMI(heightCm, weightKg)
	if err != nil {
		return 0, err
	}
	return ClassifyBMI(ageYears, sex, bmi), nil
}

func isPositiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}
