package records

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store is a SQLite-backed health record sink. It exposes create-only
// semantics; reads belong to the analytics side of the system.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the record database at dbPath.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

// migrate creates the health log schema. Table and column names mirror
// the upstream warehouse tables so exports line up.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS heart_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id TEXT NOT NULL,
		occurred_at TIMESTAMP NOT NULL,
		systolic_mmhg INTEGER NOT NULL,
		diastolic_mmhg INTEGER NOT NULL,
		rate_bpm INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_heart_owner_time ON heart_log(owner_id, occurred_at);

	CREATE TABLE IF NOT EXISTS body_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id TEXT NOT NULL,
		occurred_at TIMESTAMP NOT NULL,
		weight_lb REAL NOT NULL,
		smm_lb REAL NOT NULL,
		pbf REAL NOT NULL,
		ecw_tcw REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_body_owner_time ON body_log(owner_id, occurred_at);

	CREATE TABLE IF NOT EXISTS nutrition_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id TEXT NOT NULL,
		occurred_at TIMESTAMP NOT NULL,
		short_description TEXT NOT NULL,
		protein_g REAL NOT NULL,
		sodium_mg REAL NOT NULL,
		potassium_mg REAL NOT NULL,
		long_description TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_nutrition_owner_time ON nutrition_log(owner_id, occurred_at);

	CREATE TABLE IF NOT EXISTS caffeine_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id TEXT NOT NULL,
		occurred_at TIMESTAMP NOT NULL,
		item_description TEXT NOT NULL,
		caffeine_mg REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_caffeine_owner_time ON caffeine_log(owner_id, occurred_at);

	CREATE TABLE IF NOT EXISTS alcohol_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id TEXT NOT NULL,
		occurred_at TIMESTAMP NOT NULL,
		item_description TEXT NOT NULL,
		alcohol_oz REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_alcohol_owner_time ON alcohol_log(owner_id, occurred_at);

	CREATE TABLE IF NOT EXISTS sauna_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		owner_id TEXT NOT NULL,
		occurred_at TIMESTAMP NOT NULL,
		duration_min INTEGER NOT NULL,
		temperature_f REAL
	);
	CREATE INDEX IF NOT EXISTS idx_sauna_owner_time ON sauna_log(owner_id, occurred_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create validates rec and inserts it into its variant table, scoped
// to ownerID. Each call writes exactly one row — duplicate submissions
// are intentional writes and are not deduplicated. Returns the new
// row id.
func (s *Store) Create(ctx context.Context, ownerID string, rec Record) (int64, error) {
	if ownerID == "" {
		return 0, fmt.Errorf("owner_id is required")
	}
	if err := rec.Validate(); err != nil {
		return 0, fmt.Errorf("%s record invalid: %w", rec.Variant(), err)
	}

	var res sql.Result
	var err error

	switch r := rec.(type) {
	case Heart:
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO heart_log (owner_id, occurred_at, systolic_mmhg, diastolic_mmhg, rate_bpm)
			VALUES (?, ?, ?, ?, ?)
		`, ownerID, r.Occurred, r.SystolicMmHg, r.DiastolicMmHg, r.RateBPM)
	case Body:
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO body_log (owner_id, occurred_at, weight_lb, smm_lb, pbf, ecw_tcw)
			VALUES (?, ?, ?, ?, ?, ?)
		`, ownerID, r.Occurred, r.WeightLb, r.SMMLb, r.PBF, r.ECWTCW)
	case Nutrition:
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO nutrition_log (owner_id, occurred_at, short_description, protein_g, sodium_mg, potassium_mg, long_description)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, ownerID, r.Occurred, r.ShortDescription, r.ProteinG, r.SodiumMg, r.PotassiumMg, r.LongDescription)
	case Caffeine:
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO caffeine_log (owner_id, occurred_at, item_description, caffeine_mg)
			VALUES (?, ?, ?, ?)
		`, ownerID, r.Occurred, r.ItemDescription, r.CaffeineMg)
	case Alcohol:
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO alcohol_log (owner_id, occurred_at, item_description, alcohol_oz)
			VALUES (?, ?, ?, ?)
		`, ownerID, r.Occurred, r.ItemDescription, r.AlcoholOz)
	case Sauna:
		var temp any
		if r.TemperatureF != nil {
			temp = *r.TemperatureF
		}
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO sauna_log (owner_id, occurred_at, duration_min, temperature_f)
			VALUES (?, ?, ?, ?)
		`, ownerID, r.Occurred, r.DurationMin, temp)
	default:
		return 0, fmt.Errorf("unknown record variant %T", rec)
	}

	if err != nil {
		return 0, fmt.Errorf("insert %s record: %w", rec.Variant(), err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert %s record: %w", rec.Variant(), err)
	}
	return id, nil
}

// Count returns the number of rows in a variant's table for an owner.
// Used by health checks and tests; the logger itself never reads
// records back.
func (s *Store) Count(ctx context.Context, variant Variant, ownerID string) (int, error) {
	table, err := tableFor(variant)
	if err != nil {
		return 0, err
	}

	var n int
	err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table+` WHERE owner_id = ?`, ownerID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s records: %w", variant, err)
	}
	return n, nil
}

func tableFor(variant Variant) (string, error) {
	switch variant {
	case VariantHeart:
		return "heart_log", nil
	case VariantBody:
		return "body_log", nil
	case VariantNutrition:
		return "nutrition_log", nil
	case VariantCaffeine:
		return "caffeine_log", nil
	case VariantAlcohol:
		return "alcohol_log", nil
	case VariantSauna:
		return "sauna_log", nil
	}
	return "", fmt.Errorf("unknown variant %q", variant)
}
