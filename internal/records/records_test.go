package records

import (
	"strings"
	"testing"
	"time"
)

var testInstant = time.Date(2025, 7, 28, 10, 12, 0, 0, time.UTC)

func TestHeartValidate(t *testing.T) {
	tests := []struct {
		name    string
		rec     Heart
		wantErr string
	}{
		{
			name: "valid",
			rec:  Heart{Occurred: testInstant, SystolicMmHg: 120, DiastolicMmHg: 80, RateBPM: 65},
		},
		{
			name:    "zero systolic",
			rec:     Heart{Occurred: testInstant, DiastolicMmHg: 80, RateBPM: 65},
			wantErr: "systolic_mmhg",
		},
		{
			name:    "negative diastolic",
			rec:     Heart{Occurred: testInstant, SystolicMmHg: 120, DiastolicMmHg: -1, RateBPM: 65},
			wantErr: "diastolic_mmhg",
		},
		{
			name:    "zero rate",
			rec:     Heart{Occurred: testInstant, SystolicMmHg: 120, DiastolicMmHg: 80},
			wantErr: "rate_bpm",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rec.Validate()
			checkValidation(t, err, tt.wantErr)
		})
	}
}

func TestBodyValidate(t *testing.T) {
	valid := Body{Occurred: testInstant, WeightLb: 185.2, SMMLb: 88.1, PBF: 0.21, ECWTCW: 0.38}

	tests := []struct {
		name    string
		mutate  func(*Body)
		wantErr string
	}{
		{name: "valid", mutate: func(*Body) {}},
		{name: "pbf zero", mutate: func(b *Body) { b.PBF = 0 }, wantErr: "pbf"},
		{name: "pbf one", mutate: func(b *Body) { b.PBF = 1 }, wantErr: "pbf"},
		{name: "pbf above one", mutate: func(b *Body) { b.PBF = 21 }, wantErr: "pbf"},
		{name: "water ratio negative", mutate: func(b *Body) { b.ECWTCW = -0.1 }, wantErr: "ecw_tcw"},
		{name: "water ratio one", mutate: func(b *Body) { b.ECWTCW = 1.0 }, wantErr: "ecw_tcw"},
		{name: "zero weight", mutate: func(b *Body) { b.WeightLb = 0 }, wantErr: "weight_lb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := valid
			tt.mutate(&rec)
			checkValidation(t, rec.Validate(), tt.wantErr)
		})
	}
}

func TestNutritionValidate(t *testing.T) {
	valid := Nutrition{
		Occurred:         testInstant,
		ShortDescription: "grilled chicken salad",
		ProteinG:         42,
		SodiumMg:         800,
		PotassiumMg:      600,
	}

	if err := valid.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	missing := valid
	missing.ShortDescription = ""
	checkValidation(t, missing.Validate(), "short_description")

	negative := valid
	negative.SodiumMg = -5
	checkValidation(t, negative.Validate(), "sodium_mg")

	// Zero grams is a legitimate entry (e.g. black coffee).
	zero := valid
	zero.ProteinG, zero.SodiumMg, zero.PotassiumMg = 0, 0, 0
	if err := zero.Validate(); err != nil {
		t.Errorf("Validate() with zero values = %v, want nil", err)
	}
}

func TestCaffeineAlcoholValidate(t *testing.T) {
	if err := (Caffeine{Occurred: testInstant, ItemDescription: "espresso", CaffeineMg: 63}).Validate(); err != nil {
		t.Errorf("caffeine Validate() = %v, want nil", err)
	}
	checkValidation(t, Caffeine{Occurred: testInstant, ItemDescription: "espresso", CaffeineMg: -1}.Validate(), "caffeine_mg")

	if err := (Alcohol{Occurred: testInstant, ItemDescription: "IPA", AlcoholOz: 0.8}).Validate(); err != nil {
		t.Errorf("alcohol Validate() = %v, want nil", err)
	}
	checkValidation(t, Alcohol{Occurred: testInstant, AlcoholOz: 0.8}.Validate(), "item_description")
}

func TestSaunaValidate(t *testing.T) {
	if err := (Sauna{Occurred: testInstant, DurationMin: 20}).Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}

	checkValidation(t, Sauna{Occurred: testInstant}.Validate(), "duration_min")

	temp := 185.0
	if err := (Sauna{Occurred: testInstant, DurationMin: 20, TemperatureF: &temp}).Validate(); err != nil {
		t.Errorf("Validate() with temperature = %v, want nil", err)
	}

	bad := -10.0
	checkValidation(t, Sauna{Occurred: testInstant, DurationMin: 20, TemperatureF: &bad}.Validate(), "temperature_f")
}

func checkValidation(t *testing.T, err error, wantErr string) {
	t.Helper()
	if wantErr == "" {
		if err != nil {
			t.Errorf("Validate() = %v, want nil", err)
		}
		return
	}
	if err == nil {
		t.Errorf("Validate() = nil, want error mentioning %q", wantErr)
		return
	}
	if !strings.Contains(err.Error(), wantErr) {
		t.Errorf("Validate() = %q, want mention of %q", err, wantErr)
	}
}
