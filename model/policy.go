package model

import (
	"fmt"
	"strings"
)

// PolicyName names a scheduling discipline.
type PolicyName string

const (
	// PolicyRM is Rate Monotonic: shorter period wins.
	PolicyRM PolicyName = "RM"
	// PolicyDM is Deadline Monotonic: shorter relative deadline wins.
	PolicyDM PolicyName = "DM"
	// PolicyLLFEDF ranks jobs by absolute deadline. It carries the "LLF"
	// name of the page it came from but behaves as EDF.
	PolicyLLFEDF PolicyName = "LLF_EDF"
	// PolicyLLF is true least-laxity-first, re-ranked every tick.
	PolicyLLF PolicyName = "LLF"
)

// AllPolicies lists every supported policy in a stable order.
func AllPolicies() []PolicyName {
	return []PolicyName{PolicyRM, PolicyDM, PolicyLLFEDF, PolicyLLF}
}

// ParsePolicy maps user input (case-insensitive) onto a PolicyName.
func ParsePolicy(s string) (PolicyName, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rm", "rate-monotonic", "rate_monotonic":
		return PolicyRM, nil
	case "dm", "deadline-monotonic", "deadline_monotonic":
		return PolicyDM, nil
	case "edf", "llf_edf", "llf-edf":
		return PolicyLLFEDF, nil
	case "llf", "laxity":
		return PolicyLLF, nil
	default:
		return "", fmt.Errorf("unknown scheduling policy %q", s)
	}
}

// Dynamic reports whether the policy recomputes priorities per job or tick.
func (p PolicyName) Dynamic() bool {
	return p == PolicyLLFEDF || p == PolicyLLF
}
