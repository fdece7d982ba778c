package core

import (
	"encoding/json"
	"testing"
)

func TestDateDaysSince(t *testing.T) {
	cases := []struct {
		a, b Date
		want int
	}{
		{NewDate(2024, 1, 2), NewDate(2024, 1, 1), 1},
		{NewDate(2024, 3, 1), NewDate(2024, 2, 28), 2}, // leap year
		{NewDate(2024, 1, 1), NewDate(2024, 1, 8), -7},
		{NewDate(2025, 1, 1), NewDate(2024, 12, 31), 1},
	}
	for _, tc := range cases {
		if got := tc.a.DaysSince(tc.b); got != tc.want {
			t.Errorf("%s.DaysSince(%s) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestNewDateNormalizes(t *testing.T) {
	if got := NewDate(2024, 1, 32).String(); got != "2024-02-01" {
		t.Fatalf("got %s", got)
	}
}

func TestDateJSON(t *testing.T) {
	type wrapper struct {
		D Date `json:"d"`
	}
	var w wrapper
	if err := json.Unmarshal([]byte(`{"d":"2024-7-1"}`), &w); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if w.D != NewDate(2024, 7, 1) {
		t.Fatalf("unexpected date %s", w.D)
	}
	if err := json.Unmarshal([]byte(`{"d":"2024-07-01T10:30:00.000Z"}`), &w); err != nil || w.D != NewDate(2024, 7, 1) {
		t.Fatalf("timestamp not accepted: %v %s", err, w.D)
	}
	if err := json.Unmarshal([]byte(`{"d":null}`), &w); err != nil || !w.D.IsZero() {
		t.Fatalf("null should decode to zero date: %v %s", err, w.D)
	}

	out, err := json.Marshal(wrapper{D: NewDate(2024, 1, 5)})
	if err != nil || string(out) != `{"d":"2024-01-05"}` {
		t.Fatalf("unexpected marshal %s err=%v", out, err)
	}
	out, _ = json.Marshal(wrapper{})
	if string(out) != `{"d":null}` {
		t.Fatalf("zero date should marshal to null: %s", out)
	}
	if err := json.Unmarshal([]byte(`{"d":"garbage"}`), &w); err == nil {
		t.Fatalf("expected error for garbage date")
	}
}
