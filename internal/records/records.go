// Package records defines the typed health-record variants and their
// SQLite persistence.
//
// Every record carries the instant the event occurred and the owner it
// belongs to. Records are validated before persistence and are
// immutable once written — this subsystem only creates rows.
package records

import (
	"fmt"
	"time"
)

// Variant identifies a health-record table.
type Variant string

// The six record variants, one per table.
const (
	VariantHeart     Variant = "heart"
	VariantBody      Variant = "body"
	VariantNutrition Variant = "nutrition"
	VariantCaffeine  Variant = "caffeine"
	VariantAlcohol   Variant = "alcohol"
	VariantSauna     Variant = "sauna"
)

// Record is a typed health event ready for persistence.
type Record interface {
	// Variant names the destination table.
	Variant() Variant

	// Validate checks the per-variant field constraints. A non-nil
	// error means the record must not be persisted.
	Validate() error

	// OccurredAt returns the absolute instant of the event.
	OccurredAt() time.Time
}

// Heart is a blood pressure and heart rate measurement.
type Heart struct {
	Occurred      time.Time
	SystolicMmHg  int
	DiastolicMmHg int
	RateBPM       int
}

func (h Heart) Variant() Variant      { return VariantHeart }
func (h Heart) OccurredAt() time.Time { return h.Occurred }

// Validate requires all three readings to be positive integers.
func (h Heart) Validate() error {
	if h.SystolicMmHg <= 0 {
		return fmt.Errorf("systolic_mmhg must be > 0, got %d", h.SystolicMmHg)
	}
	if h.DiastolicMmHg <= 0 {
		return fmt.Errorf("diastolic_mmhg must be > 0, got %d", h.DiastolicMmHg)
	}
	if h.RateBPM <= 0 {
		return fmt.Errorf("rate_bpm must be > 0, got %d", h.RateBPM)
	}
	return nil
}

// Body is a body-composition measurement. PBF (percent body fat) and
// ECWTCW (extracellular to total cell water) are fractions in (0,1).
type Body struct {
	Occurred time.Time
	WeightLb float64
	SMMLb    float64
	PBF      float64
	ECWTCW   float64
}

func (b Body) Variant() Variant      { return VariantBody }
func (b Body) OccurredAt() time.Time { return b.Occurred }

func (b Body) Validate() error {
	if b.WeightLb <= 0 {
		return fmt.Errorf("weight_lb must be > 0, got %g", b.WeightLb)
	}
	if b.SMMLb <= 0 {
		return fmt.Errorf("smm_lb must be > 0, got %g", b.SMMLb)
	}
	if b.PBF <= 0 || b.PBF >= 1 {
		return fmt.Errorf("pbf must be a fraction between 0 and 1 exclusive, got %g", b.PBF)
	}
	if b.ECWTCW <= 0 || b.ECWTCW >= 1 {
		return fmt.Errorf("ecw_tcw must be a fraction between 0 and 1 exclusive, got %g", b.ECWTCW)
	}
	return nil
}

// Nutrition is a food intake entry.
type Nutrition struct {
	Occurred         time.Time
	ShortDescription string
	ProteinG         float64
	SodiumMg         float64
	PotassiumMg      float64
	LongDescription  string
}

func (n Nutrition) Variant() Variant      { return VariantNutrition }
func (n Nutrition) OccurredAt() time.Time { return n.Occurred }

func (n Nutrition) Validate() error {
	if n.ShortDescription == "" {
		return fmt.Errorf("short_description is required")
	}
	if n.ProteinG < 0 {
		return fmt.Errorf("protein_g must be >= 0, got %g", n.ProteinG)
	}
	if n.SodiumMg < 0 {
		return fmt.Errorf("sodium_mg must be >= 0, got %g", n.SodiumMg)
	}
	if n.PotassiumMg < 0 {
		return fmt.Errorf("potassium_mg must be >= 0, got %g", n.PotassiumMg)
	}
	return nil
}

// Caffeine is a caffeine intake entry.
type Caffeine struct {
	Occurred        time.Time
	ItemDescription string
	CaffeineMg      float64
}

func (c Caffeine) Variant() Variant      { return VariantCaffeine }
func (c Caffeine) OccurredAt() time.Time { return c.Occurred }

func (c Caffeine) Validate() error {
	if c.ItemDescription == "" {
		return fmt.Errorf("item_description is required")
	}
	if c.CaffeineMg < 0 {
		return fmt.Errorf("caffeine_mg must be >= 0, got %g", c.CaffeineMg)
	}
	return nil
}

// Alcohol is an alcohol intake entry.
type Alcohol struct {
	Occurred        time.Time
	ItemDescription string
	AlcoholOz       float64
}

func (a Alcohol) Variant() Variant      { return VariantAlcohol }
func (a Alcohol) OccurredAt() time.Time { return a.Occurred }

func (a Alcohol) Validate() error {
	if a.ItemDescription == "" {
		return fmt.Errorf("item_description is required")
	}
	if a.AlcoholOz < 0 {
		return fmt.Errorf("alcohol_oz must be >= 0, got %g", a.AlcoholOz)
	}
	return nil
}

// Sauna is a sauna session. TemperatureF is optional; nil means not
// reported.
type Sauna struct {
	Occurred     time.Time
	DurationMin  int
	TemperatureF *float64
}

func (s Sauna) Variant() Variant      { return VariantSauna }
func (s Sauna) OccurredAt() time.Time { return s.Occurred }

func (s Sauna) Validate() error {
	if s.DurationMin <= 0 {
		return fmt.Errorf("duration_min must be > 0, got %d", s.DurationMin)
	}
	if s.TemperatureF != nil && *s.TemperatureF <= 0 {
		return fmt.Errorf("temperature_f must be > 0, got %g", *s.TemperatureF)
	}
	return nil
}
