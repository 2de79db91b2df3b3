package fetcher

import (
	"testing"
	"time"
)

func TestWaitBudget(t *testing.T) {
	tests := []struct {
		name    string
		left    time.Duration
		reserve time.Duration
		d       time.Duration
		min     time.Duration
		max     time.Duration
	}{
		{"wait fits", time.Minute, 5 * time.Second, 10 * time.Second, 10 * time.Second, 10 * time.Second},
		{"capped by deadline", 20 * time.Second, 5 * time.Second, time.Minute, 14 * time.Second, 15 * time.Second},
		{"reserve consumed", 3 * time.Second, 5 * time.Second, time.Minute, 0, 0},
		{"deadline passed", -time.Second, 0, time.Minute, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := waitBudget(time.Now().Add(tt.left), tt.reserve, tt.d)
			if got < tt.min || got > tt.max {
				t.Errorf("waitBudget = %v, want within [%v, %v]", got, tt.min, tt.max)
			}
		})
	}
}
