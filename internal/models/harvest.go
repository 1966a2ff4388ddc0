package models

import (
	"strings"
)

// Category 规则分组 (model, qa_number, ...)
type Category string

const (
	CategoryModel    Category = "model"
	CategoryQANumber Category = "qa_number"
)

// NormalizeCategory maps operator labels such as "QA Number" onto category keys.
func NormalizeCategory(label string) Category {
	key := strings.ToLower(strings.TrimSpace(label))
	key = strings.Join(strings.Fields(key), "_")
	key = strings.ReplaceAll(key, "-", "_")
	return Category(key)
}

// RuleSource 规则来源
type RuleSource string

const (
	SourceBuiltin RuleSource = "builtin"
	SourceCustom  RuleSource = "custom"
)

// Rule is a single regular expression bound to a category.
type Rule struct {
	Category Category   `json:"category" yaml:"category"`
	Pattern  string     `json:"pattern" yaml:"pattern"`
	Source   RuleSource `json:"source,omitempty" yaml:"-"`
}

// RuleGroup is the ordered rule list of one category.
type RuleGroup struct {
	Category Category `json:"category"`
	Rules    []Rule   `json:"rules"`
}

// RuleLibrary is an ordered, immutable mapping from category to rules.
// Category order is first appearance; rule order is insertion order.
type RuleLibrary struct {
	groups []RuleGroup
}

// NewRuleLibrary groups rules by category, keeping first-appearance order.
func NewRuleLibrary(rules ...Rule) RuleLibrary {
	return RuleLibrary{}.With(rules...)
}

// With returns a new library with rules appended; the receiver is left untouched.
func (l RuleLibrary) With(rules ...Rule) RuleLibrary {
	groups := make([]RuleGroup, len(l.groups))
	for i, g := range l.groups {
		groups[i] = RuleGroup{Category: g.Category, Rules: append([]Rule(nil), g.Rules...)}
	}

	for _, r := range rules {
		idx := -1
		for i := range groups {
			if groups[i].Category == r.Category {
				idx = i
				break
			}
		}
		if idx < 0 {
			groups = append(groups, RuleGroup{Category: r.Category})
			idx = len(groups) - 1
		}
		groups[idx].Rules = append(groups[idx].Rules, r)
	}

	return RuleLibrary{groups: groups}
}

// Groups returns a copy of the category groups in evaluation order.
func (l RuleLibrary) Groups() []RuleGroup {
	out := make([]RuleGroup, len(l.groups))
	for i, g := range l.groups {
		out[i] = RuleGroup{Category: g.Category, Rules: append([]Rule(nil), g.Rules...)}
	}
	return out
}

// Rules flattens the library in evaluation order.
func (l RuleLibrary) Rules() []Rule {
	var out []Rule
	for _, g := range l.groups {
		out = append(out, g.Rules...)
	}
	return out
}

// Len returns the number of rules.
func (l RuleLibrary) Len() int {
	n := 0
	for _, g := range l.groups {
		n += len(g.Rules)
	}
	return n
}

// Finding is one (category, matched text) fact.
type Finding struct {
	Category Category `json:"type"`
	Text     string   `json:"text"`
}

// RuleDiagnostic describes a rule that could not be evaluated.
type RuleDiagnostic struct {
	Category Category `json:"category"`
	Pattern  string   `json:"pattern"`
	Cause    string   `json:"cause"`
}

const (
	ReasonDataFound = "Data found."
	ReasonNoMatch   = "No patterns matched."
)

// HarvestResult 规则扫描结果
type HarvestResult struct {
	Findings     []Finding        `json:"findings"`
	StatusReason string           `json:"statusReason"`
	Diagnostics  []RuleDiagnostic `json:"diagnostics,omitempty"`
}
