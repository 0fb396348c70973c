package tools

import (
	"context"
	"testing"
)

func TestEvaluate(t *testing.T) {
	tests := []struct {
		expr string
		want float64
	}{
		{"2+3", 5},
		{"(2+3)*4", 20},
		{"2 * 95 + 40", 230},
		{"10/4", 2.5},
		{"-3 + 5", 2},
		{"2 - -3", 5},
		{"1.5 * 2", 3},
		{"((1+2)*(3+4))", 21},
		{"100 / 2 / 5", 10},
		{"8 - 2 - 1", 5},
		{"0.6 * 3", 1.7999999999999998},
	}

	for _, tt := range tests {
		got, err := Evaluate(tt.expr)
		if err != nil {
			t.Errorf("Evaluate(%q) error = %v", tt.expr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
		}
	}
}

func TestEvaluateRejectsInvalid(t *testing.T) {
	exprs := []string{
		"",
		"   ",
		"__import__('os')",
		"2 ** 3",
		"1/0",
		"(2+3",
		"2+3)",
		"2 + abc",
		"1..5",
		"2 & 3",
		"sqrt(4)",
		"0x10",
	}

	for _, expr := range exprs {
		if got, err := Evaluate(expr); err == nil {
			t.Errorf("Evaluate(%q) = %v, want error", expr, got)
		}
	}
}

func TestCalculatorTool(t *testing.T) {
	tool := CalculatorTool()

	out, err := tool.Handler(context.Background(), map[string]any{"expression": "(2+3)*4"})
	if err != nil {
		t.Fatalf("Handler() error = %v", err)
	}
	if out != "20" {
		t.Errorf("Handler() = %q, want \"20\"", out)
	}

	if _, err := tool.Handler(context.Background(), map[string]any{"expression": "os.exit(1)"}); err == nil {
		t.Error("Handler() accepted non-arithmetic input")
	}
}
