package cpuspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect_ReturnsUsableSpec(t *testing.T) {
	t.Parallel()

	spec := Detect()
	assert.GreaterOrEqual(t, spec.LogicalCores, 1)
	assert.GreaterOrEqual(t, spec.RecommendedPartitionWorkers(), 1)
}

func TestRecommendedPartitionWorkers_FallsBackToLogicalCores(t *testing.T) {
	t.Parallel()

	spec := Spec{LogicalCores: 4}
	assert.Equal(t, 4, spec.RecommendedPartitionWorkers())
}

func TestRecommendedPartitionWorkers_PrefersPerformanceCores(t *testing.T) {
	t.Parallel()

	spec := Spec{LogicalCores: 16, PerformanceCores: 8}
	assert.Equal(t, 8, spec.RecommendedPartitionWorkers())
}

func TestRecommendedPartitionWorkers_NeverReturnsZero(t *testing.T) {
	t.Parallel()

	spec := Spec{}
	assert.Equal(t, 1, spec.RecommendedPartitionWorkers())
}
