package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mcnewcp/phda-logger/internal/records"
	"github.com/mcnewcp/phda-logger/internal/timeparse"
)

// HealthLog wires the six log_* tools to the record store and the time
// resolver. Each tool resolves the caller's time phrase (defaulting to
// now), validates and persists one record, and returns a JSON
// confirmation echoing the stored values.
type HealthLog struct {
	store    *records.Store
	resolver *timeparse.Resolver
	ownerID  string
	now      func() time.Time
}

// NewHealthLog creates the health-log tool set.
func NewHealthLog(store *records.Store, resolver *timeparse.Resolver, ownerID string) *HealthLog {
	return &HealthLog{
		store:    store,
		resolver: resolver,
		ownerID:  ownerID,
		now:      time.Now,
	}
}

// RegisterAll adds all six log tools to the registry.
func (h *HealthLog) RegisterAll(r *Registry) {
	r.Register(h.heartTool())
	r.Register(h.bodyTool())
	r.Register(h.nutritionTool())
	r.Register(h.caffeineTool())
	r.Register(h.alcoholTool())
	r.Register(h.saunaTool())
}

// timestampParam is the shared schema for the optional event time.
func timestampParam() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "When the event happened, as stated by the user: a relative phrase ('yesterday at 3pm', '2 hours ago', 'this morning') or a timestamp ('2025-07-28 10:12'). Omit if it happened just now.",
	}
}

// resolveTime turns the optional timestamp argument into an absolute
// instant in the configured timezone.
func (h *HealthLog) resolveTime(args map[string]any) (time.Time, error) {
	phrase, _ := args["timestamp"].(string)
	return h.resolver.Resolve(phrase, h.now().In(h.resolver.Location()))
}

// persist validates, writes, and builds the confirmation payload.
func (h *HealthLog) persist(ctx context.Context, rec records.Record, echo map[string]any) (string, error) {
	id, err := h.store.Create(ctx, h.ownerID, rec)
	if err != nil {
		return "", err
	}

	echo["status"] = "logged"
	echo["record_id"] = id
	echo["timestamp"] = rec.OccurredAt().Format(time.RFC3339)

	out, err := json.Marshal(echo)
	if err != nil {
		return "", fmt.Errorf("encode confirmation: %w", err)
	}
	return string(out), nil
}

func (h *HealthLog) heartTool() *Tool {
	return &Tool{
		Name:        "log_heart_health",
		Description: "Log a blood pressure and heart rate reading.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"systolic_mmhg": map[string]any{
					"type":             "integer",
					"description":      "Systolic blood pressure in mmHg.",
					"exclusiveMinimum": 0,
				},
				"diastolic_mmhg": map[string]any{
					"type":             "integer",
					"description":      "Diastolic blood pressure in mmHg.",
					"exclusiveMinimum": 0,
				},
				"rate_bpm": map[string]any{
					"type":             "integer",
					"description":      "Heart rate in beats per minute.",
					"exclusiveMinimum": 0,
				},
				"timestamp": timestampParam(),
			},
			"required": []string{"systolic_mmhg", "diastolic_mmhg", "rate_bpm"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			occurred, err := h.resolveTime(args)
			if err != nil {
				return "", err
			}

			rec := records.Heart{
				Occurred:      occurred,
				SystolicMmHg:  intArg(args, "systolic_mmhg"),
				DiastolicMmHg: intArg(args, "diastolic_mmhg"),
				RateBPM:       intArg(args, "rate_bpm"),
			}

			return h.persist(ctx, rec, map[string]any{
				"table":          "heart_health",
				"systolic_mmhg":  rec.SystolicMmHg,
				"diastolic_mmhg": rec.DiastolicMmHg,
				"rate_bpm":       rec.RateBPM,
			})
		},
	}
}

func (h *HealthLog) bodyTool() *Tool {
	return &Tool{
		Name:        "log_body_composition",
		Description: "Log a body composition measurement from a smart scale: weight, skeletal muscle mass, percent body fat, and ECW/TCW ratio.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"weight_lb": map[string]any{
					"type":             "number",
					"description":      "Body weight in pounds.",
					"exclusiveMinimum": 0,
				},
				"smm_lb": map[string]any{
					"type":             "number",
					"description":      "Skeletal muscle mass in pounds.",
					"exclusiveMinimum": 0,
				},
				"pbf": map[string]any{
					"type":             "number",
					"description":      "Percent body fat as a fraction, e.g. 0.23 for 23%.",
					"exclusiveMinimum": 0,
					"exclusiveMaximum": 1,
				},
				"ecw_tcw": map[string]any{
					"type":             "number",
					"description":      "Extracellular water to total body water ratio as a fraction, e.g. 0.38.",
					"exclusiveMinimum": 0,
					"exclusiveMaximum": 1,
				},
				"timestamp": timestampParam(),
			},
			"required": []string{"weight_lb", "smm_lb", "pbf", "ecw_tcw"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			occurred, err := h.resolveTime(args)
			if err != nil {
				return "", err
			}

			rec := records.Body{
				Occurred: occurred,
				WeightLb: floatArg(args, "weight_lb"),
				SMMLb:    floatArg(args, "smm_lb"),
				PBF:      floatArg(args, "pbf"),
				ECWTCW:   floatArg(args, "ecw_tcw"),
			}

			return h.persist(ctx, rec, map[string]any{
				"table":     "body_composition",
				"weight_lb": rec.WeightLb,
				"smm_lb":    rec.SMMLb,
				"pbf":       rec.PBF,
				"ecw_tcw":   rec.ECWTCW,
			})
		},
	}
}

func (h *HealthLog) nutritionTool() *Tool {
	return &Tool{
		Name:        "log_nutrition",
		Description: "Log a food or meal entry with its protein, sodium, and potassium content. Use web_search first if the user did not state the nutrient amounts.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"short_description": map[string]any{
					"type":        "string",
					"description": "Brief name of the food, e.g. 'grilled chicken salad'.",
				},
				"protein_g": map[string]any{
					"type":        "number",
					"description": "Protein in grams.",
					"minimum":     0,
				},
				"sodium_mg": map[string]any{
					"type":        "number",
					"description": "Sodium in milligrams.",
					"minimum":     0,
				},
				"potassium_mg": map[string]any{
					"type":        "number",
					"description": "Potassium in milligrams.",
					"minimum":     0,
				},
				"long_description": map[string]any{
					"type":        "string",
					"description": "Optional details: portion size, preparation, brand.",
				},
				"timestamp": timestampParam(),
			},
			"required": []string{"short_description", "protein_g", "sodium_mg", "potassium_mg"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			occurred, err := h.resolveTime(args)
			if err != nil {
				return "", err
			}

			longDesc, _ := args["long_description"].(string)
			rec := records.Nutrition{
				Occurred:         occurred,
				ShortDescription: args["short_description"].(string),
				ProteinG:         floatArg(args, "protein_g"),
				SodiumMg:         floatArg(args, "sodium_mg"),
				PotassiumMg:      floatArg(args, "potassium_mg"),
				LongDescription:  longDesc,
			}

			echo := map[string]any{
				"table":             "nutrition",
				"short_description": rec.ShortDescription,
				"protein_g":         rec.ProteinG,
				"sodium_mg":         rec.SodiumMg,
				"potassium_mg":      rec.PotassiumMg,
			}
			if rec.LongDescription != "" {
				echo["long_description"] = rec.LongDescription
			}
			return h.persist(ctx, rec, echo)
		},
	}
}

func (h *HealthLog) caffeineTool() *Tool {
	return &Tool{
		Name:        "log_caffeine",
		Description: "Log a caffeinated drink or item and its caffeine content in milligrams. Use web_search first if the user did not state the amount.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"item_description": map[string]any{
					"type":        "string",
					"description": "What was consumed, e.g. '12oz cold brew'.",
				},
				"caffeine_mg": map[string]any{
					"type":        "number",
					"description": "Caffeine content in milligrams.",
					"minimum":     0,
				},
				"timestamp": timestampParam(),
			},
			"required": []string{"item_description", "caffeine_mg"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			occurred, err := h.resolveTime(args)
			if err != nil {
				return "", err
			}

			rec := records.Caffeine{
				Occurred:        occurred,
				ItemDescription: args["item_description"].(string),
				CaffeineMg:      floatArg(args, "caffeine_mg"),
			}

			return h.persist(ctx, rec, map[string]any{
				"table":            "caffeine",
				"item_description": rec.ItemDescription,
				"caffeine_mg":      rec.CaffeineMg,
			})
		},
	}
}

func (h *HealthLog) alcoholTool() *Tool {
	return &Tool{
		Name:        "log_alcohol",
		Description: "Log an alcoholic drink and the ounces of pure alcohol it contained. A standard US drink is 0.6 oz; use calculate for multiples.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"item_description": map[string]any{
					"type":        "string",
					"description": "What was consumed, e.g. 'two IPAs'.",
				},
				"alcohol_oz": map[string]any{
					"type":        "number",
					"description": "Ounces of pure alcohol.",
					"minimum":     0,
				},
				"timestamp": timestampParam(),
			},
			"required": []string{"item_description", "alcohol_oz"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			occurred, err := h.resolveTime(args)
			if err != nil {
				return "", err
			}

			rec := records.Alcohol{
				Occurred:        occurred,
				ItemDescription: args["item_description"].(string),
				AlcoholOz:       floatArg(args, "alcohol_oz"),
			}

			return h.persist(ctx, rec, map[string]any{
				"table":            "alcohol",
				"item_description": rec.ItemDescription,
				"alcohol_oz":       rec.AlcoholOz,
			})
		},
	}
}

func (h *HealthLog) saunaTool() *Tool {
	return &Tool{
		Name:        "log_sauna",
		Description: "Log a sauna session: duration in minutes and, when mentioned, the temperature in Fahrenheit.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"duration_min": map[string]any{
					"type":             "integer",
					"description":      "Session length in minutes.",
					"exclusiveMinimum": 0,
				},
				"temperature_f": map[string]any{
					"type":             "number",
					"description":      "Sauna temperature in Fahrenheit, if stated.",
					"exclusiveMinimum": 0,
				},
				"timestamp": timestampParam(),
			},
			"required": []string{"duration_min"},
		},
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			occurred, err := h.resolveTime(args)
			if err != nil {
				return "", err
			}

			rec := records.Sauna{
				Occurred:    occurred,
				DurationMin: intArg(args, "duration_min"),
			}
			if _, ok := args["temperature_f"]; ok {
				temp := floatArg(args, "temperature_f")
				rec.TemperatureF = &temp
			}

			echo := map[string]any{
				"table":        "sauna",
				"duration_min": rec.DurationMin,
			}
			if rec.TemperatureF != nil {
				echo["temperature_f"] = *rec.TemperatureF
			}
			return h.persist(ctx, rec, echo)
		},
	}
}

// intArg and floatArg read validated numeric arguments. Validation ran
// before the handler, so a missing or mistyped value reads as zero and
// the record's own Validate catches it.

func intArg(args map[string]any, name string) int {
	n, _ := asNumber(args[name])
	return int(n)
}

func floatArg(args map[string]any, name string) float64 {
	n, _ := asNumber(args[name])
	return n
}
