package harvest

import "github.com/feichai0017/document-harvester/internal/models"

// builtinRules 内置规则库
var builtinRules = []models.Rule{
	{Category: models.CategoryModel, Pattern: `\bTASKalfa\s*[\w-]+\b`},
	{Category: models.CategoryModel, Pattern: `\bECOSYS\s*[\w-]+\b`},
	{Category: models.CategoryModel, Pattern: `\bFS-\d+DN\b`},
	{Category: models.CategoryQANumber, Pattern: `\bQA[-_]?[\w-]+\b`},
	{Category: models.CategoryQANumber, Pattern: `\bSB[-_]?\d+\b`},
}

// Builtin returns the rules compiled into the binary.
func Builtin() models.RuleLibrary {
	rules := make([]models.Rule, len(builtinRules))
	for i, r := range builtinRules {
		r.Source = models.SourceBuiltin
		rules[i] = r
	}
	return models.NewRuleLibrary(rules...)
}
