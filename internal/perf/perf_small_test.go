//go:build perf

package perf

import (
	"testing"

	"github.com/signalsfoundry/rtsched/model"
)

var smallConfig = perfConfig{
	Tasks:   12,
	Octaves: 6,
}

func BenchmarkSimulateRMSmall(b *testing.B) {
	benchmarkSimulate(b, smallConfig, model.PolicyRM)
}

func BenchmarkSimulateLLFEDFSmall(b *testing.B) {
	benchmarkSimulate(b, smallConfig, model.PolicyLLFEDF)
}

func BenchmarkSimulateLLFSmall(b *testing.B) {
	benchmarkSimulate(b, smallConfig, model.PolicyLLF)
}

func BenchmarkCompareSmall(b *testing.B) {
	benchmarkCompare(b, smallConfig)
}
