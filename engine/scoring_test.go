package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"leadpilot/models"
)

func TestApplyScoreClamps(t *testing.T) {
	cases := []struct {
		name    string
		current int
		delta   int
		want    int
	}{
		{"plain add", 30, 20, 50},
		{"negative delta", 30, -10, 20},
		{"clamp low", 10, -30, 0},
		{"clamp high", 95, 25, 100},
		{"zero delta", 42, 0, 42},
		{"already at ceiling", 100, 50, 100},
		{"already at floor", 0, -1, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ApplyScore(tc.current, tc.delta))
		})
	}
}

func TestClassify(t *testing.T) {
	const warm, hot = 40, 70

	assert.Equal(t, models.TemperatureCold, Classify(0, warm, hot))
	assert.Equal(t, models.TemperatureCold, Classify(39, warm, hot))
	assert.Equal(t, models.TemperatureWarm, Classify(40, warm, hot))
	assert.Equal(t, models.TemperatureWarm, Classify(69, warm, hot))
	assert.Equal(t, models.TemperatureHot, Classify(70, warm, hot))
	assert.Equal(t, models.TemperatureHot, Classify(100, warm, hot))
}

func TestClassifyMonotonic(t *testing.T) {
	rank := map[string]int{
		models.TemperatureCold: 0,
		models.TemperatureWarm: 1,
		models.TemperatureHot:  2,
	}
	prev := 0
	for score := 0; score <= 100; score++ {
		cur := rank[Classify(score, 40, 70)]
		assert.GreaterOrEqual(t, cur, prev, "temperature dropped at score %d", score)
		prev = cur
	}
}
