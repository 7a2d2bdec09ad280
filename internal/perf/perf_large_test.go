//go:build perf_large

package perf

import (
	"testing"

	"github.com/signalsfoundry/rtsched/model"
)

var largeConfig = perfConfig{
	Tasks:   50,
	Octaves: 10,
}

func BenchmarkSimulateRMLarge(b *testing.B) {
	benchmarkSimulate(b, largeConfig, model.PolicyRM)
}

func BenchmarkSimulateDMLarge(b *testing.B) {
	benchmarkSimulate(b, largeConfig, model.PolicyDM)
}

func BenchmarkSimulateLLFLarge(b *testing.B) {
	benchmarkSimulate(b, largeConfig, model.PolicyLLF)
}

func BenchmarkCompareLarge(b *testing.B) {
	benchmarkCompare(b, largeConfig)
}
