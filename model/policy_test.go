package model

import "testing"

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in   string
		want PolicyName
	}{
		{"rm", PolicyRM},
		{"Rate-Monotonic", PolicyRM},
		{"DM", PolicyDM},
		{"edf", PolicyLLFEDF},
		{"llf-edf", PolicyLLFEDF},
		{"LLF", PolicyLLF},
		{"laxity", PolicyLLF},
	}
	for _, tc := range tests {
		got, err := ParsePolicy(tc.in)
		if err != nil {
			t.Fatalf("ParsePolicy(%q) error: %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ParsePolicy(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
	if _, err := ParsePolicy("fifo"); err == nil {
		t.Fatalf("ParsePolicy(fifo) succeeded, want error")
	}
}

func TestPolicyDynamic(t *testing.T) {
	for _, p := range AllPolicies() {
		want := p == PolicyLLFEDF || p == PolicyLLF
		if p.Dynamic() != want {
			t.Fatalf("%s.Dynamic() = %v, want %v", p, p.Dynamic(), want)
		}
	}
}
