package core

import (
	"errors"
	"math"
	"testing"

	"github.com/signalsfoundry/rtsched/model"
)

func TestGCD(t *testing.T) {
	tests := []struct {
		a, b, want int
	}{
		{12, 18, 6},
		{-12, 18, 6},
		{7, 0, 7},
		{0, 9, 9},
		{17, 5, 1},
	}
	for _, tc := range tests {
		got, err := GCD(tc.a, tc.b)
		if err != nil {
			t.Fatalf("GCD(%d, %d) error: %v", tc.a, tc.b, err)
		}
		if got != tc.want {
			t.Fatalf("GCD(%d, %d) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}

	if _, err := GCD(0, 0); !errors.Is(err, ErrDomain) {
		t.Fatalf("GCD(0, 0) error = %v, want ErrDomain", err)
	}
}

func TestLCM(t *testing.T) {
	tests := []struct {
		a, b, want int
	}{
		{4, 6, 12},
		{-4, 6, 12},
		{5, 5, 5},
		{0, 5, 0},
		{3, 0, 0},
	}
	for _, tc := range tests {
		got, err := LCM(tc.a, tc.b)
		if err != nil {
			t.Fatalf("LCM(%d, %d) error: %v", tc.a, tc.b, err)
		}
		if got != tc.want {
			t.Fatalf("LCM(%d, %d) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}

func TestLCMOverflow(t *testing.T) {
	_, err := LCM(math.MaxInt, math.MaxInt-1)
	if !errors.Is(err, ErrHorizonOverflow) {
		t.Fatalf("LCM overflow error = %v, want ErrHorizonOverflow", err)
	}
	if !errors.Is(err, ErrDomain) {
		t.Fatalf("ErrHorizonOverflow should wrap ErrDomain, got %v", err)
	}
}

func TestLCMOfAll(t *testing.T) {
	tests := []struct {
		name    string
		periods []int
		want    int
		wantErr bool
	}{
		{name: "nested", periods: []int{5, 10, 20}, want: 20},
		{name: "coprime mix", periods: []int{4, 5, 10}, want: 20},
		{name: "single", periods: []int{7}, want: 7},
		{name: "empty", periods: nil, wantErr: true},
		{name: "zero period", periods: []int{4, 0}, wantErr: true},
		{name: "negative period", periods: []int{-3}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := LCMOfAll(tc.periods)
			if tc.wantErr {
				if !errors.Is(err, ErrDomain) {
					t.Fatalf("LCMOfAll(%v) error = %v, want ErrDomain", tc.periods, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LCMOfAll(%v) error: %v", tc.periods, err)
			}
			if got != tc.want {
				t.Fatalf("LCMOfAll(%v) = %d, want %d", tc.periods, got, tc.want)
			}
		})
	}
}

func TestHyperperiodIsMultipleOfEveryPeriod(t *testing.T) {
	tasks := []model.TaskType{
		{ID: "a", Period: 6},
		{ID: "b", Period: 8},
		{ID: "c", Period: 15},
	}
	h, err := Hyperperiod(tasks)
	if err != nil {
		t.Fatalf("Hyperperiod error: %v", err)
	}
	if h != 120 {
		t.Fatalf("Hyperperiod = %d, want 120", h)
	}
	for _, task := range tasks {
		if h%task.Period != 0 {
			t.Fatalf("Hyperperiod %d not a multiple of %d", h, task.Period)
		}
	}
}
