// Package service hosts the application services that sit between the
// domain model and the adapters: the Access Controller (C3) and the Audit
// pipeline orchestration (C5/C6).
package service

import (
	"log"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/G-TechSD/ganesha-ai/internal/adapter/outbound/cel"
	"github.com/G-TechSD/ganesha-ai/internal/domain/policy"
)

// resultCache is a bounded LRU cache of Decisions keyed by a hash of the
// command string, grounded on the teacher's policy_service.go ResultCache.
// Evaluation is a pure function of (command, compiled rule set) per spec
// §8 invariant 5, so caching by command alone is sound as long as the
// cache is cleared on every Reload.
type resultCache struct {
	mu      sync.Mutex
	entries map[uint64]*lruEntry
	head    *lruEntry
	tail    *lruEntry
	maxSize int
}

type lruEntry struct {
	key      uint64
	decision policy.Decision
	prev     *lruEntry
	next     *lruEntry
}

func newResultCache(maxSize int) *resultCache {
	return &resultCache{entries: make(map[uint64]*lruEntry, maxSize), maxSize: maxSize}
}

func (c *resultCache) Get(key uint64) (policy.Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.moveToHeadLocked(e)
		return e.decision, true
	}
	return policy.Decision{}, false
}

func (c *resultCache) Put(key uint64, d policy.Decision) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.decision = d
		c.moveToHeadLocked(e)
		return
	}
	if len(c.entries) >= c.maxSize {
		c.evictTailLocked()
	}
	e := &lruEntry{key: key, decision: d}
	c.entries[key] = e
	c.pushHeadLocked(e)
}

func (c *resultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]*lruEntry, c.maxSize)
	c.head, c.tail = nil, nil
}

func (c *resultCache) moveToHeadLocked(e *lruEntry) {
	if c.head == e {
		return
	}
	c.unlinkLocked(e)
	c.pushHeadLocked(e)
}

func (c *resultCache) pushHeadLocked(e *lruEntry) {
	e.prev = nil
	e.next = c.head
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *resultCache) unlinkLocked(e *lruEntry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
	e.prev, e.next = nil, nil
}

func (c *resultCache) evictTailLocked() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.unlinkLocked(c.tail)
}

func cacheKey(command string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(command)
	return h.Sum64()
}

// AccessController implements the operation check(command) -> Decision
// from spec.md §4.3. The compiled rule set is published through
// atomic.Value so evaluation never blocks on a mutex; Reload is
// serialized behind a mutex and swaps the snapshot once recompilation
// succeeds.
type AccessController struct {
	snapshot atomic.Value // holds *policy.RuleSet
	mu       sync.Mutex
	cache    *resultCache
	logger   *log.Logger
}

// NewAccessController compiles the given policy and returns a ready
// controller. On a builtin pattern compile failure it returns an error;
// callers (the daemon's startup path) are expected to fall back to
// RESTRICTED per spec §4.2.
func NewAccessController(p policy.AccessPolicy, logger *log.Logger) (*AccessController, error) {
	rs, err := policy.CompileRuleSet(p)
	if err != nil {
		return nil, err
	}
	ac := &AccessController{cache: newResultCache(2048), logger: logger}
	ac.snapshot.Store(rs)
	for _, dropped := range rs.DroppedUserPatterns {
		logger.Printf("WARNING: dropped unparseable user pattern %q", dropped)
	}
	return ac, nil
}

// Reload recompiles the rule set from p and atomically swaps the
// published snapshot, clearing the decision cache. Safe to call
// concurrently with Check.
func (ac *AccessController) Reload(p policy.AccessPolicy) error {
	rs, err := policy.CompileRuleSet(p)
	if err != nil {
		return err
	}
	ac.mu.Lock()
	ac.snapshot.Store(rs)
	ac.mu.Unlock()
	ac.cache.Clear()
	for _, dropped := range rs.DroppedUserPatterns {
		ac.logger.Printf("WARNING: dropped unparseable user pattern %q", dropped)
	}
	return nil
}

func (ac *AccessController) ruleSet() *policy.RuleSet {
	return ac.snapshot.Load().(*policy.RuleSet)
}

// Check evaluates command against the current rule set, per the fixed
// five-step order in spec.md §4.3. It is deterministic and side-effect
// free save for the decision cache (spec §8 invariant 5).
func (ac *AccessController) Check(command string) policy.Decision {
	return ac.checkWithContext(command, cel.GuardContext{Command: command})
}

// CheckWithContext is Check plus the activation fields a pattern's CEL
// guard may reference (working directory, resolved user, and so on).
func (ac *AccessController) CheckWithContext(command, workingDir, userName string, uid int) policy.Decision {
	return ac.checkWithContext(command, cel.GuardContext{
		Command: command, WorkingDir: workingDir, UserName: userName, UID: uid,
	})
}

func (ac *AccessController) checkWithContext(rawCommand string, gctx cel.GuardContext) policy.Decision {
	command := trimCommand(rawCommand)
	if command == "" {
		return policy.Decision{Allowed: false, Risk: policy.RiskMedium, Reason: "empty command"}
	}

	key := cacheKey(command)
	if d, ok := ac.cache.Get(key); ok {
		return d
	}

	rs := ac.ruleSet()

	// Step 2: always-denied, security critical, never overridable.
	for _, p := range rs.AlwaysDenied {
		if p.Regexp.MatchString(command) {
			d := policy.Decision{
				Allowed: false, Risk: policy.RiskCritical,
				Reason: "security-critical deny: matches ALWAYS_DENIED pattern",
				MatchedRuleOrigin: policy.OriginAlwaysDenied,
				DenyCategory:      p.Category,
			}
			ac.cache.Put(key, d)
			return d
		}
	}

	// Step 3: blacklist, consulted regardless of level.
	for _, p := range rs.Blacklist {
		gctx.RiskLevel = policy.RiskHigh.String()
		if p.matches(command, gctx) {
			d := policy.Decision{
				Allowed: false, Risk: policy.RiskHigh,
				Reason: "blacklist match", MatchedRuleOrigin: policy.OriginBlacklist,
			}
			d.Risk = policy.MaxRisk(d.Risk, heuristicRisk(command))
			ac.cache.Put(key, d)
			return d
		}
	}

	// Step 4: mode dispatch.
	var d policy.Decision
	switch rs.Level {
	case policy.LevelWhitelist:
		d = ac.checkWhitelist(rs, command, gctx)
	case policy.LevelBlacklist:
		d = policy.Decision{Allowed: true, Risk: policy.RiskMedium, Reason: "not in blacklist", MatchedRuleOrigin: policy.OriginBlacklist}
	default:
		d = ac.checkPreset(rs, command)
	}

	// Step 5: lexical risk heuristic can only raise, never lower, risk.
	d.Risk = policy.MaxRisk(d.Risk, heuristicRisk(command))
	ac.cache.Put(key, d)
	return d
}

func (ac *AccessController) checkWhitelist(rs *policy.RuleSet, command string, gctx cel.GuardContext) policy.Decision {
	gctx.RiskLevel = policy.RiskLow.String()
	for _, p := range rs.Whitelist {
		if p.matches(command, gctx) {
			return policy.Decision{Allowed: true, Risk: policy.RiskLow, Reason: "matched whitelist", MatchedRuleOrigin: policy.OriginWhitelist}
		}
	}
	return policy.Decision{Allowed: false, Risk: policy.RiskMedium, Reason: "command not in whitelist", MatchedRuleOrigin: policy.OriginWhitelist}
}

func (ac *AccessController) checkPreset(rs *policy.RuleSet, command string) policy.Decision {
	for _, p := range rs.PresetAllowed {
		if p.Regexp.MatchString(command) {
			return policy.Decision{Allowed: true, Risk: policy.RiskLow, Reason: "allowed by preset", MatchedRuleOrigin: policy.OriginPreset}
		}
	}
	return policy.Decision{Allowed: false, Risk: policy.RiskMedium, Reason: "command not allowed by preset", MatchedRuleOrigin: policy.OriginPreset}
}

func trimCommand(s string) string {
	start, end := 0, len(s)
	for start < end && isSpace(s[start]) {
		start++
	}
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
