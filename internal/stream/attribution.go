package stream

import (
	"strings"
)

// keywordWindow is how much of a result the keyword fallback inspects.
const keywordWindow = 500

// Method records how a result was attributed.
type Method string

const (
	MethodInvocation Method = "invocation"
	MethodKeyword    Method = "keyword"
	MethodUnknown    Method = "unknown"
)

// Attribution names the specialist that produced a result. Specialist is
// empty when Method is MethodUnknown.
type Attribution struct {
	Specialist string
	Method     Method
}

// Unknown reports whether no specialist could be identified.
func (a Attribution) Unknown() bool {
	return a.Method == MethodUnknown
}

// KeywordRule matches a specialist when the lowercased text contains every
// word in All and, if Any is non-empty, at least one word in Any.
type KeywordRule struct {
	Specialist string   `yaml:"agent" json:"agent"`
	All        []string `yaml:"all,omitempty" json:"all,omitempty"`
	Any        []string `yaml:"any,omitempty" json:"any,omitempty"`
}

// Match reports whether lower satisfies the rule. A rule with no words never
// matches.
func (r KeywordRule) Match(lower string) bool {
	if len(r.All) == 0 && len(r.Any) == 0 {
		return false
	}
	for _, w := range r.All {
		if !strings.Contains(lower, strings.ToLower(w)) {
			return false
		}
	}
	if len(r.Any) == 0 {
		return true
	}
	for _, w := range r.Any {
		if strings.Contains(lower, strings.ToLower(w)) {
			return true
		}
	}
	return false
}

// DefaultKeywordRules is the fallback table in priority order.
func DefaultKeywordRules() []KeywordRule {
	return []KeywordRule{
		{Specialist: "market", All: []string{"market", "tam"}},
		{Specialist: "competition", Any: []string{"competi"}},
		{Specialist: "customer", All: []string{"customer"}, Any: []string{"icp", "persona"}},
		{Specialist: "business_model", All: []string{"revenue", "model"}},
		{Specialist: "risks", Any: []string{"risk"}},
		{Specialist: "gtm", Any: []string{"go-to-market", "gtm", "launch"}},
	}
}

// Attributor resolves which specialist produced a tool result.
type Attributor struct {
	rules []KeywordRule
}

// NewAttributor returns an attributor using rules in the given order. A nil
// slice selects DefaultKeywordRules; an empty non-nil slice disables the
// keyword fallback.
func NewAttributor(rules []KeywordRule) *Attributor {
	if rules == nil {
		rules = DefaultKeywordRules()
	}
	return &Attributor{rules: append([]KeywordRule(nil), rules...)}
}

// Rules returns a copy of the keyword table.
func (a *Attributor) Rules() []KeywordRule {
	return append([]KeywordRule(nil), a.rules...)
}

// Attribute resolves the specialist for a result. The invocation's parsed
// arguments win; otherwise the first keyword rule matching the start of the
// text wins; otherwise the result is unknown.
func (a *Attributor) Attribute(inv *Invocation, text string) Attribution {
	if inv != nil {
		if inv.Overflowed {
			return Attribution{Method: MethodUnknown}
		}
		if inv.Specialist != "" {
			return Attribution{Specialist: inv.Specialist, Method: MethodInvocation}
		}
	}
	if s := a.matchKeywords(text); s != "" {
		return Attribution{Specialist: s, Method: MethodKeyword}
	}
	return Attribution{Method: MethodUnknown}
}

func (a *Attributor) matchKeywords(text string) string {
	if r := []rune(text); len(r) > keywordWindow {
		text = string(r[:keywordWindow])
	}
	lower := strings.ToLower(text)
	for _, r := range a.rules {
		if r.Match(lower) {
			return r.Specialist
		}
	}
	return ""
}
