package lastvalue

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/obsidianstack/singlestat/pkg/table"
)

var nan = math.NaN()

// ts returns n seconds after the Unix epoch.
func ts(n int64) time.Time { return time.Unix(n, 0).UTC() }

func stamps(secs ...int64) []time.Time {
	out := make([]time.Time, len(secs))
	for i, s := range secs {
		out[i] = ts(s)
	}
	return out
}

func TestLatest(t *testing.T) {
	tests := []struct {
		name  string
		table *table.Table
		want  []float64
	}{
		{
			name:  "single row needs no time key",
			table: table.New(1).MustAdd("_value", table.NewNumeric("_value", []float64{42})),
			want:  []float64{42},
		},
		{
			name: "latest timestamp wins",
			table: table.New(3).
				MustAdd("_time", table.NewTime("_time", stamps(1, 2, 3))).
				MustAdd("_value", table.NewNumeric("_value", []float64{10, 20, 30})),
			want: []float64{30},
		},
		{
			name: "rows tied at the newest timestamp all contribute",
			table: table.New(3).
				MustAdd("_time", table.NewTime("_time", stamps(1, 5, 5))).
				MustAdd("_value", table.NewNumeric("_value", []float64{3, 7, 9})),
			want: []float64{7, 9},
		},
		{
			name: "_stop ranks rows when _time is absent",
			table: table.New(3).
				MustAdd("_start", table.NewTime("_start", stamps(0, 10, 20))).
				MustAdd("_stop", table.NewTime("_stop", stamps(10, 30, 20))).
				MustAdd("_value", table.NewNumeric("_value", []float64{1, 2, 3})),
			want: []float64{2},
		},
		{
			name: "multi-row table without a time key",
			table: table.New(2).
				MustAdd("_value", table.NewNumeric("_value", []float64{1, 2})),
			want: nil,
		},
		{
			name: "structural numeric columns are ignored",
			table: table.New(2).
				MustAdd("_time", table.NewTime("_time", stamps(1, 2))).
				MustAdd("_start", table.NewNumeric("_start", []float64{100, 100})).
				MustAdd("_stop", table.NewNumeric("_stop", []float64{200, 200})).
				MustAdd("table", table.NewNumeric("table", []float64{0, 0})).
				MustAdd("result", table.NewNumeric("result", []float64{9, 9})).
				MustAdd("_value", table.NewNumeric("_value", []float64{4, 5})),
			want: []float64{5},
		},
		{
			name: "NaN in one column does not suppress the others",
			table: table.New(2).
				MustAdd("_time", table.NewTime("_time", stamps(1, 2))).
				MustAdd("_value", table.NewNumeric("_value", []float64{1, nan})).
				MustAdd("b", table.NewNumeric("b", []float64{2, 5})),
			want: []float64{5},
		},
		{
			name: "rows with only NaN values cannot be latest",
			table: table.New(3).
				MustAdd("_time", table.NewTime("_time", stamps(1, 2, 3))).
				MustAdd("_value", table.NewNumeric("_value", []float64{1, 2, nan})),
			want: []float64{2},
		},
		{
			name: "rows with an undefined time cannot be latest",
			table: table.New(2).
				MustAdd("_time", table.NewTime("_time", []time.Time{ts(1), {}})).
				MustAdd("_value", table.NewNumeric("_value", []float64{1, 2})),
			want: []float64{1},
		},
		{
			name: "columns flatten per winning row in value-first order",
			table: table.New(3).
				MustAdd("_time", table.NewTime("_time", stamps(4, 4, 1))).
				MustAdd("mem", table.NewNumeric("mem", []float64{30, 31, 32})).
				MustAdd("cpu", table.NewNumeric("cpu", []float64{20, 21, 22})).
				MustAdd("_value", table.NewNumeric("_value", []float64{10, 11, 12})),
			want: []float64{10, 20, 30, 11, 21, 31},
		},
		{
			name: "no numeric value columns",
			table: table.New(2).
				MustAdd("_time", table.NewTime("_time", stamps(1, 2))).
				MustAdd("host", table.NewString("host", []string{"a", "b"})),
			want: nil,
		},
		{
			name: "every row unusable",
			table: table.New(2).
				MustAdd("_time", table.NewTime("_time", stamps(1, 2))).
				MustAdd("_value", table.NewNumeric("_value", []float64{nan, nan})),
			want: nil,
		},
		{
			name:  "empty table",
			table: table.New(0).MustAdd("_value", table.NewNumeric("_value", nil)),
			want:  nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Latest(tc.table)
			if diff := cmp.Diff(tc.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("Latest mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLatest_SingleRowIgnoresMissingTime(t *testing.T) {
	tbl := table.New(1).
		MustAdd("_time", table.NewTime("_time", []time.Time{{}})).
		MustAdd("_value", table.NewNumeric("_value", []float64{7}))

	if diff := cmp.Diff([]float64{7}, Latest(tbl)); diff != "" {
		t.Errorf("Latest mismatch (-want +got):\n%s", diff)
	}
}

func TestLatest_Idempotent(t *testing.T) {
	tbl := table.New(4).
		MustAdd("_time", table.NewTime("_time", stamps(1, 9, 9, 3))).
		MustAdd("b_value", table.NewNumeric("b_value", []float64{1, nan, 3, 4})).
		MustAdd("_value", table.NewNumeric("_value", []float64{5, 6, 7, 8})).
		MustAdd("a", table.NewNumeric("a", []float64{9, 10, 11, 12}))

	first := Latest(tbl)
	second := Latest(tbl)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("second call differs (-first +second):\n%s", diff)
	}
	want := []float64{6, 10, 3, 7, 11}
	if diff := cmp.Diff(want, first); diff != "" {
		t.Errorf("Latest mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_ReportsOrigin(t *testing.T) {
	tbl := table.New(3).
		MustAdd("_time", table.NewTime("_time", stamps(1, 8, 8))).
		MustAdd("_value", table.NewNumeric("_value", []float64{1, nan, 3})).
		MustAdd("errors", table.NewNumeric("errors", []float64{0, 2, 4}))

	got := Extract(tbl)
	want := []Point{
		{Key: "errors", Row: 1, Time: ts(8), Value: 2},
		{Key: "_value", Row: 2, Time: ts(8), Value: 3},
		{Key: "errors", Row: 2, Time: ts(8), Value: 4},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Extract mismatch (-want +got):\n%s", diff)
	}
}

func TestExtract_SingleRowWithoutTime(t *testing.T) {
	tbl := table.New(1).MustAdd("_value", table.NewNumeric("_value", []float64{3}))

	got := Extract(tbl)
	if len(got) != 1 {
		t.Fatalf("Extract len = %d, want 1", len(got))
	}
	if !got[0].Time.IsZero() {
		t.Errorf("Time = %v, want zero", got[0].Time)
	}
}
