package harvest

import (
	"regexp"
	"strings"

	"github.com/feichai0017/document-harvester/internal/models"
)

type compiledRule struct {
	category models.Category
	re       *regexp.Regexp
}

// Compiled is a rule library with every valid pattern compiled once.
// It is read-only after Compile and safe for concurrent use.
type Compiled struct {
	rules       []compiledRule
	diagnostics []models.RuleDiagnostic
}

// Compile compiles lib case-insensitively. Patterns that fail are recorded as diagnostics and skipped.
func Compile(lib models.RuleLibrary) *Compiled {
	c := &Compiled{}
	for _, group := range lib.Groups() {
		for _, rule := range group.Rules {
			re, err := regexp.Compile("(?i)" + rule.Pattern)
			if err != nil {
				c.diagnostics = append(c.diagnostics, models.RuleDiagnostic{
					Category: group.Category,
					Pattern:  rule.Pattern,
					Cause:    err.Error(),
				})
				continue
			}
			c.rules = append(c.rules, compiledRule{category: group.Category, re: re})
		}
	}
	return c
}

// Diagnostics returns the rules that could not be compiled.
func (c *Compiled) Diagnostics() []models.RuleDiagnostic {
	return append([]models.RuleDiagnostic(nil), c.diagnostics...)
}

// Harvest scans text with every rule and returns deduplicated findings in rule order.
func (c *Compiled) Harvest(text string) models.HarvestResult {
	findings := make([]models.Finding, 0)
	seen := make(map[models.Finding]struct{})

	for _, rule := range c.rules {
		for _, match := range rule.re.FindAllString(text, -1) {
			f := models.Finding{Category: rule.category, Text: strings.TrimSpace(match)}
			if f.Text == "" {
				continue
			}
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			findings = append(findings, f)
		}
	}

	reason := models.ReasonNoMatch
	if len(findings) > 0 {
		reason = models.ReasonDataFound
	}

	return models.HarvestResult{
		Findings:     findings,
		StatusReason: reason,
		Diagnostics:  c.Diagnostics(),
	}
}

// Harvest compiles lib and scans text in one call.
func Harvest(text string, lib models.RuleLibrary) models.HarvestResult {
	return Compile(lib).Harvest(text)
}
