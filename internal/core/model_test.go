package core_test

import (
	"errors"
	"testing"

	"cdg-engine/internal/core"
)

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      core.Period
		expectErr bool
	}{
		{name: "valid", input: "03/2025", want: core.Period{Month: 3, Year: 2025}},
		{name: "december", input: "12/2024", want: core.Period{Month: 12, Year: 2024}},
		{name: "month out of range", input: "13/2025", expectErr: true},
		{name: "zero month", input: "00/2025", expectErr: true},
		{name: "garbage", input: "march 2025", expectErr: true},
		{name: "empty", input: "", expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := core.ParsePeriod(tt.input)
			if tt.expectErr {
				if err == nil {
					t.Errorf("ParsePeriod(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParsePeriod(%q): %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParsePeriod(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if got.String() != tt.input {
				t.Errorf("round trip = %q, want %q", got.String(), tt.input)
			}
		})
	}
}

func TestPeriodNext(t *testing.T) {
	if got := (core.Period{Month: 12, Year: 2024}).Next(); got != (core.Period{Month: 1, Year: 2025}) {
		t.Errorf("December next = %v", got)
	}
	if got := (core.Period{Month: 6, Year: 2025}).Next(); got != (core.Period{Month: 7, Year: 2025}) {
		t.Errorf("June next = %v", got)
	}
}

func TestPeriodDays(t *testing.T) {
	tests := []struct {
		period core.Period
		want   int
	}{
		{core.Period{Month: 1, Year: 2025}, 31},
		{core.Period{Month: 2, Year: 2025}, 28},
		{core.Period{Month: 2, Year: 2024}, 29},
		{core.Period{Month: 4, Year: 2025}, 30},
	}
	for _, tt := range tests {
		if got := tt.period.Days(); got != tt.want {
			t.Errorf("%s days = %d, want %d", tt.period, got, tt.want)
		}
	}
}

func TestPeriodBefore(t *testing.T) {
	a := core.Period{Month: 12, Year: 2024}
	b := core.Period{Month: 1, Year: 2025}
	if !a.Before(b) || b.Before(a) {
		t.Error("year ordering broken")
	}
	if a.Before(a) {
		t.Error("period before itself")
	}
}

func TestRegistry(t *testing.T) {
	units := []core.OperatingUnit{
		{Code: "VLB", Name: "RSA Villabate", Operative: true},
		{Code: "HLD", Name: "Holding", Operative: false},
		{Code: "COS", Name: "Casa di Cura Cosentino", Operative: true},
		{Code: "VLB", Name: "Duplicate", Operative: false},
	}
	reg := core.NewRegistry(units)

	if reg.Len() != 3 {
		t.Fatalf("len = %d, want 3 after duplicate drop", reg.Len())
	}
	u, ok := reg.Lookup("VLB")
	if !ok || u.Name != "RSA Villabate" {
		t.Errorf("duplicate did not keep first occurrence: %+v", u)
	}
	if _, ok := reg.Lookup("XXX"); ok {
		t.Error("unknown code resolved")
	}

	codes := reg.Codes()
	want := []string{"COS", "HLD", "VLB"}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes = %v, want %v", codes, want)
		}
	}

	operative := reg.OperativeCodes()
	if len(operative) != 2 || operative[0] != "COS" || operative[1] != "VLB" {
		t.Errorf("operative codes = %v, want [COS VLB]", operative)
	}
}

func TestRunReport(t *testing.T) {
	r := core.NewRunReport("01/2025")
	if r.RunID == "" {
		t.Error("run ID empty")
	}
	if core.NewRunReport("01/2025").RunID == r.RunID {
		t.Error("run IDs not unique")
	}
	r.Addf(core.AnomalyBadRow, "industrial", "R01", "VLB", "row %d malformed", 7)
	if r.Count() != 1 {
		t.Fatalf("count = %d, want 1", r.Count())
	}
	if r.Anomalies[0].Message != "row 7 malformed" {
		t.Errorf("message = %q", r.Anomalies[0].Message)
	}
}

func TestStageError(t *testing.T) {
	err := core.MissingTable("allocation", "Costi_Sede")
	var se *core.StageError
	if !errors.As(err, &se) {
		t.Fatalf("error %T is not a StageError", err)
	}
	if se.Stage != "allocation" || se.Table != "Costi_Sede" {
		t.Errorf("unexpected fields: %+v", se)
	}
}
