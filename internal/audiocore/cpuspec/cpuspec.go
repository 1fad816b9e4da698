// Package cpuspec reports host CPU characteristics relevant to sizing the
// render pipeline's worker-friendly stages (partitioned convolution, FFT
// kernel builds on the control thread).
package cpuspec

import (
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// Spec describes the host CPU as seen at engine startup.
type Spec struct {
	BrandName        string
	LogicalCores     int
	PerformanceCores int
	HasAVX2          bool
	HasFMA3          bool
}

// Detect inspects the running CPU once. It is safe to call repeatedly; cpuid
// caches its own feature probe.
func Detect() Spec {
	brandName := cpuid.CPU.BrandName
	return Spec{
		BrandName:        brandName,
		LogicalCores:     cpuid.CPU.LogicalCores,
		PerformanceCores: determinePerformanceCores(brandName, cpuid.CPU.LogicalCores),
		HasAVX2:          cpuid.CPU.Supports(cpuid.AVX2),
		HasFMA3:          cpuid.CPU.Supports(cpuid.FMA3),
	}
}

// RecommendedPartitionWorkers returns how many goroutines the control thread
// should use when building FIR kernels or pre-warming convolution partitions
// in parallel (spec.md 4.5's kernel build runs off the render thread, but
// still benefits from not serializing large partition counts on one core).
func (s Spec) RecommendedPartitionWorkers() int {
	if s.PerformanceCores > 0 {
		return s.PerformanceCores
	}
	if s.LogicalCores > 0 {
		return s.LogicalCores
	}
	return 1
}

// determinePerformanceCores mirrors known hybrid (P-core/E-core) brand
// strings; returns 0 when the split can't be inferred, meaning "use all
// logical cores".
func determinePerformanceCores(brandName string, logicalCores int) int {
	brand := strings.ToLower(brandName)

	switch {
	case strings.Contains(brand, "i9") || strings.Contains(brand, "i7"):
		// Common desktop hybrid parts ship 8 P-cores at most.
		if logicalCores >= 16 {
			return 8
		}
	case strings.Contains(brand, "i5"):
		if logicalCores >= 12 {
			return 6
		}
	}
	return 0
}
