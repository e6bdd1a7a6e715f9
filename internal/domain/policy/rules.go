package policy

// Hardcoded rule strings, per spec.md §6.3. These are never removable via
// policy and are compiled with case-insensitive matching (spec §4.2's
// universal case-insensitivity requirement — a correction of the Python
// original, which only applied re.IGNORECASE to these two lists and not
// to the preset/whitelist/blacklist patterns below).

// alwaysDeniedRule pairs a hardcoded ALWAYS_DENIED pattern with the deny
// category the Access Controller should stamp on its Decision, so a
// caller can emit the matching audit event (SELF_INVOCATION_BLOCKED,
// LOG_TAMPERING_ATTEMPT, CRITICAL_COMMAND_BLOCKED) instead of a generic
// COMMAND_DENIED.
type alwaysDeniedRule struct {
	Expr     string
	Category DenyCategory
}

// alwaysDenied enumerates the ten ALWAYS_DENIED categories from spec §6.3:
// self-invocation bypass, tampering with own state, log erasure,
// catastrophic deletion, fork bombs, disk destruction, firmware/bootloader
// writes, credential exfiltration, kernel manipulation, and
// security-control disablement.
var alwaysDenied = []alwaysDeniedRule{
	// Self-invocation protection.
	{`ganesha\s+.*--auto`, DenyCategorySelfInvocation},
	{`ganesha\s+.*-A\b`, DenyCategorySelfInvocation},
	{`ganesha\s+.*--yes`, DenyCategorySelfInvocation},
	{`ganesha\s+.*-y\b`, DenyCategorySelfInvocation},
	{`ganesha-daemon\s+.*--level\s+full`, DenyCategorySelfInvocation},
	{`ganesha-config\s+.*set-level\s+full`, DenyCategorySelfInvocation},
	{`ganesha-config\s+.*reset`, DenyCategorySelfInvocation},
	{`python.*ganesha.*--auto`, DenyCategorySelfInvocation},
	{`python.*ganesha.*-A\b`, DenyCategorySelfInvocation},

	// Tampering with own config/logs.
	{`(rm|mv|cp|cat\s*>|echo\s*>).*\.ganesha/`, DenyCategoryLogTampering},
	{`(rm|mv|cp|cat\s*>|echo\s*>).*/etc/ganesha/`, DenyCategoryLogTampering},
	{`(rm|mv|cp|cat\s*>|echo\s*>).*/var/log/ganesha/`, DenyCategoryLogTampering},

	// Log erasure.
	{`(rm|truncate|cat\s*/dev/null\s*>).*(/var/log/syslog|/var/log/messages)`, DenyCategoryLogTampering},
	{`journalctl\s+--vacuum`, DenyCategoryLogTampering},
	{`(rm|truncate).*\.xsession-errors`, DenyCategoryLogTampering},

	// Catastrophic deletion.
	{`rm\s+(-rf?|--recursive)\s+/\s*$`, DenyCategoryCritical},
	{`rm\s+(-rf?|--recursive)\s+/\*`, DenyCategoryCritical},
	{`rm\s+(-rf?|--recursive)\s+/home\s*$`, DenyCategoryCritical},
	{`rm\s+(-rf?|--recursive)\s+/etc\s*$`, DenyCategoryCritical},
	{`rm\s+(-rf?|--recursive)\s+/var\s*$`, DenyCategoryCritical},
	{`rm\s+(-rf?|--recursive)\s+/usr\s*$`, DenyCategoryCritical},

	// Fork bombs.
	{`:\(\)\s*\{\s*:\|:&\s*\}\s*;:`, DenyCategoryCritical},
	{`\./\s*\S+\s*\|\s*\./\s*\S+\s*&`, DenyCategoryCritical},

	// Disk destruction.
	{`dd\s+.*of=/dev/[sh]d[a-z]\s*$`, DenyCategoryCritical},
	{`mkfs\s+.*\s+/dev/[sh]d[a-z][0-9]*`, DenyCategoryCritical},
	{`wipefs`, DenyCategoryCritical},

	// Firmware/bootloader writes.
	{`dd\s+.*of=/dev/nvme`, DenyCategoryCritical},
	{`flashrom`, DenyCategoryCritical},

	// Credential exfiltration.
	{`(curl|wget|nc)\s+.*(/etc/shadow|/etc/passwd|\.ssh/)`, DenyCategoryCritical},
	{`cat\s+.*\.ssh/(id_rsa|id_ed25519)\s*\|`, DenyCategoryCritical},

	// Kernel manipulation.
	{`insmod\s+.*\.ko`, DenyCategoryCritical},
	{`rmmod`, DenyCategoryCritical},
	{`echo\s+.*>\s*/proc/sys`, DenyCategoryCritical},

	// Security-control disablement.
	{`setenforce\s+0`, DenyCategoryCritical},
	{`systemctl\s+(stop|disable)\s+.*firewall`, DenyCategoryCritical},
	{`ufw\s+disable`, DenyCategoryCritical},
	{`iptables\s+-F`, DenyCategoryCritical},
}

// manipulationIndicators are phrases characteristic of prompt-injection and
// jailbreak attempts (spec §6.3). Used only by the Manipulation Detector
// (C4), never to match commands directly.
var manipulationIndicators = []string{
	`ignore\s+(previous|prior|above)\s+(instructions?|rules?|constraints?)`,
	`disregard\s+(safety|security|restrictions?)`,
	`pretend\s+(you\s+)?(are|can|have)`,
	`act\s+as\s+if\s+(there\s+)?(are\s+)?no\s+(rules?|restrictions?)`,
	`bypass\s+(the\s+)?(safety|security|consent)`,
	`override\s+(the\s+)?(safety|security|consent)`,
	`you\s+(must|should|have\s+to)\s+(always\s+)?approve`,
	`automatically\s+(approve|accept|allow|run)`,
	`without\s+(asking|confirmation|consent|approval)`,
	`skip\s+(the\s+)?(confirmation|consent|approval|check)`,
	`trust\s+me`,
	`i('m|\s+am)\s+(the\s+)?(admin|root|owner|authorized)`,
	`emergency\s+(override|access|mode)`,
	`maintenance\s+mode`,
	`debug\s+mode.*all\s+access`,
}

// presetDef is a named, optionally-inheriting bundle of allowed patterns.
type presetDef struct {
	inherits AccessLevel // empty if this preset has no parent
	hasParent bool
	patterns []string
}

var presetRestricted = presetDef{
	patterns: []string{
		// File viewing (read-only).
		`^cat\s+`, `^less\s+`, `^head\s+`, `^tail\s+`, `^ls\s+`, `^ls$`,
		`^find\s+.*-type`, `^file\s+`, `^stat\s+`, `^wc\s+`,
		// System info (read-only).
		`^uname\s+`, `^hostname$`, `^uptime$`, `^whoami$`, `^id$`, `^groups$`,
		`^df\s+`, `^du\s+`, `^free\s+`, `^lscpu$`, `^lsblk$`, `^lspci$`,
		`^lsusb$`, `^lsof\s+`, `^ps\s+`, `^top\s+-b\s+-n\s*1`,
		`^htop\s+--no-color.*-t`,
		// Network info (read-only).
		`^ip\s+(addr|link|route)\s*(show)?`, `^ifconfig$`, `^netstat\s+`,
		`^ss\s+`, `^ping\s+-c\s+\d+\s+`, `^dig\s+`, `^nslookup\s+`, `^host\s+`,
		// Service status (read-only).
		`^systemctl\s+status\s+`, `^systemctl\s+is-active\s+`,
		`^systemctl\s+is-enabled\s+`, `^systemctl\s+list-units`,
		`^service\s+\S+\s+status$`,
		// Docker info (read-only).
		`^docker\s+(ps|images|info|version|inspect)`, `^docker\s+logs\s+`,
		// Package info (read-only).
		`^apt\s+(list|show|search)`, `^apt-cache\s+`, `^dpkg\s+-[lLsS]`,
		`^pip\s+(list|show|freeze)`, `^pip3\s+(list|show|freeze)`,
		`^npm\s+(list|ls|view)`,
		// Git info (read-only).
		`^git\s+(status|log|diff|branch|remote|show)`,
		// Env/config viewing.
		`^env$`, `^printenv`, `^echo\s+\$`,
	},
}

var presetStandard = presetDef{
	inherits: LevelRestricted, hasParent: true,
	patterns: []string{
		// File operations (safe).
		`^mkdir\s+`, `^touch\s+`, `^cp\s+`, `^mv\s+`, `^rm\s+([^-\s]|-([^r]|r[^f\s]|rf\S|r\s+[^/\s]|rf\s+[^/\s]))`,
		`^chmod\s+`, `^chown\s+`, `^ln\s+`,
		// Text processing.
		`^grep\s+`, `^awk\s+`, `^sed\s+`, `^sort\s+`, `^uniq\s+`, `^cut\s+`, `^tr\s+`,
		// Archives.
		`^tar\s+`, `^gzip\s+`, `^gunzip\s+`, `^zip\s+`, `^unzip\s+`,
		// Network tools.
		// Fetches of /etc/shadow or .ssh/ are refused earlier by ALWAYS_DENIED.
		`^curl\s+`, `^wget\s+`,
		// Process management (own processes).
		`^kill\s+\d+`, `^pkill\s+`, `^killall\s+`,
		// Docker (safe operations).
		`^docker\s+(pull|run|stop|start|restart|rm|exec)`, `^docker-compose\s+`,
		// Git operations.
		`^git\s+(add|commit|push|pull|fetch|checkout|merge|rebase)`,
		// Editors (for scripts).
		`^nano\s+`, `^vim?\s+`,
		// Python/Node.
		`^python3?\s+`, `^pip3?\s+install\s+--user`, `^node\s+`,
		`^npm\s+(install|run|start|test)`,
		// Cron (user crontab).
		`^crontab\s+`,
	},
}

var presetElevated = presetDef{
	inherits: LevelStandard, hasParent: true,
	patterns: []string{
		// Package management.
		`^apt\s+(update|upgrade|install|remove|purge|autoremove)`, `^apt-get\s+`,
		`^dpkg\s+-i`, `^pip3?\s+install`, `^npm\s+install\s+-g`,
		// Service control.
		`^systemctl\s+(start|stop|restart|reload|enable|disable)\s+`,
		`^service\s+\S+\s+(start|stop|restart|reload)$`,
		// Docker privileged.
		`^docker\s+(build|network|volume)`,
		// System configuration.
		`^hostnamectl\s+`, `^timedatectl\s+`, `^localectl\s+`,
		// User management (limited).
		`^useradd\s+`, `^usermod\s+`, `^passwd\s+`, `^groupadd\s+`,
		// Firewall (safe rules).
		`^ufw\s+(allow|deny|status|enable)`,
		// Disk operations (safe).
		`^mount\s+`, `^umount\s+`, `^lsblk\s+`, `^blkid\s+`,
	},
}

var presetFullAccess = presetDef{
	inherits: LevelElevated, hasParent: true,
	patterns: []string{
		`.*`, // allow everything; still blocked by ALWAYS_DENIED.
	},
}

var presetsByLevel = map[AccessLevel]presetDef{
	LevelRestricted: presetRestricted,
	LevelStandard:   presetStandard,
	LevelElevated:   presetElevated,
	LevelFullAccess: presetFullAccess,
}

// expandPreset walks the inheritance chain for lv, leaves last (most
// specific first), per spec §4.2 point 3.
func expandPreset(lv AccessLevel) []string {
	def, ok := presetsByLevel[lv]
	if !ok {
		return nil
	}
	patterns := append([]string{}, def.patterns...)
	if def.hasParent {
		patterns = append(patterns, expandPreset(def.inherits)...)
	}
	return patterns
}
