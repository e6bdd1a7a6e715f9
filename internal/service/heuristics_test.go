package service

import (
	"testing"

	"github.com/G-TechSD/ganesha-ai/internal/domain/policy"
)

func TestHeuristicRisk(t *testing.T) {
	cases := []struct {
		command string
		want    policy.RiskLevel
	}{
		{"rm -rf /tmp/build", policy.RiskCritical},
		{"dd if=/dev/zero of=out.img", policy.RiskCritical},
		{"sudo apt update", policy.RiskHigh},
		{"chmod 755 script.sh", policy.RiskHigh},
		{"npm install lodash", policy.RiskMedium},
		{"ls -la", policy.RiskLow},
	}
	for _, c := range cases {
		if got := heuristicRisk(c.command); got != c.want {
			t.Errorf("heuristicRisk(%q) = %v, want %v", c.command, got, c.want)
		}
	}
}
