package records

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreate_Heart(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()
	occurred := time.Date(2025, 7, 27, 15, 0, 0, 0, time.UTC)

	id, err := store.Create(ctx, "mcnewcp", Heart{
		Occurred:      occurred,
		SystolicMmHg:  120,
		DiastolicMmHg: 80,
		RateBPM:       65,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if id <= 0 {
		t.Errorf("id = %d, want > 0", id)
	}

	var sys, dia, rate int
	var owner string
	var got time.Time
	err = store.db.QueryRow(`
		SELECT owner_id, occurred_at, systolic_mmhg, diastolic_mmhg, rate_bpm
		FROM heart_log WHERE id = ?
	`, id).Scan(&owner, &got, &sys, &dia, &rate)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if owner != "mcnewcp" {
		t.Errorf("owner_id = %q, want mcnewcp", owner)
	}
	if sys != 120 || dia != 80 || rate != 65 {
		t.Errorf("fields = (%d, %d, %d), want (120, 80, 65)", sys, dia, rate)
	}
	if !got.Equal(occurred) {
		t.Errorf("occurred_at = %v, want %v", got, occurred)
	}
}

func TestCreate_InvalidRecordWritesNothing(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	_, err := store.Create(ctx, "mcnewcp", Body{
		Occurred: time.Now(),
		WeightLb: 185,
		SMMLb:    88,
		PBF:      21, // should be a fraction
		ECWTCW:   0.38,
	})
	if err == nil {
		t.Fatal("Create() error = nil, want validation error")
	}

	n, err := store.Count(ctx, VariantBody, "mcnewcp")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 0 {
		t.Errorf("Count() = %d, want 0", n)
	}
}

func TestCreate_EveryCallWritesOneRow(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	rec := Sauna{Occurred: time.Now().Add(-time.Hour), DurationMin: 20}
	for range 3 {
		if _, err := store.Create(ctx, "mcnewcp", rec); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	// Identical submissions are intentional; no deduplication.
	n, err := store.Count(ctx, VariantSauna, "mcnewcp")
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}

func TestCreate_RequiresOwner(t *testing.T) {
	store := testStore(t)

	_, err := store.Create(context.Background(), "", Caffeine{
		Occurred:        time.Now(),
		ItemDescription: "cold brew",
		CaffeineMg:      200,
	})
	if err == nil {
		t.Fatal("Create() error = nil, want owner_id error")
	}
}

func TestCreate_SaunaOptionalTemperature(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	temp := 185.0
	id, err := store.Create(ctx, "mcnewcp", Sauna{
		Occurred:     time.Now().Add(-time.Hour),
		DurationMin:  25,
		TemperatureF: &temp,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	var got *float64
	if err := store.db.QueryRow(`SELECT temperature_f FROM sauna_log WHERE id = ?`, id).Scan(&got); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got == nil || *got != 185.0 {
		t.Errorf("temperature_f = %v, want 185", got)
	}

	// Without a temperature the column stays NULL.
	id, err = store.Create(ctx, "mcnewcp", Sauna{Occurred: time.Now().Add(-time.Hour), DurationMin: 15})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.db.QueryRow(`SELECT temperature_f FROM sauna_log WHERE id = ?`, id).Scan(&got); err != nil {
		t.Fatalf("read back: %v", err)
	}
	if got != nil {
		t.Errorf("temperature_f = %v, want NULL", *got)
	}
}
