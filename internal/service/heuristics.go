package service

import (
	"strings"

	"github.com/G-TechSD/ganesha-ai/internal/domain/policy"
)

// Lexical risk tokens, per spec.md §4.3 step 5. These never deny a command
// on their own; they only raise the risk level a match or preset lookup
// already produced (policy.MaxRisk never lowers it).
var (
	criticalRiskTokens = []string{
		"rm -rf", "dd if=", "mkfs", "> /dev/", "chmod 777 /",
	}
	highRiskTokens = []string{
		"rm -r", "sudo", "su -", "chmod", "chown", "kill -9",
		"systemctl stop", "service stop", "iptables",
	}
	mediumRiskTokens = []string{
		"install", "remove", "delete", "modify", "update", "mv /", "cp /", "docker run",
	}
)

// heuristicRisk returns a coarse risk estimate based on lexical tokens
// alone, independent of whether the command matched any compiled pattern.
func heuristicRisk(command string) policy.RiskLevel {
	lower := strings.ToLower(command)
	for _, tok := range criticalRiskTokens {
		if strings.Contains(lower, tok) {
			return policy.RiskCritical
		}
	}
	for _, tok := range highRiskTokens {
		if strings.Contains(lower, tok) {
			return policy.RiskHigh
		}
	}
	for _, tok := range mediumRiskTokens {
		if strings.Contains(lower, tok) {
			return policy.RiskMedium
		}
	}
	return policy.RiskLow
}
