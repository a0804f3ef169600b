package policy

import (
	"encoding/json"
	"regexp"
	"strings"
)

// ContentResult — итог проверки текста по всем content_filter политикам.
// Reasons возвращаются как данные, а не как ошибки: даже "blocked" — валидный результат.
type ContentResult struct {
	Allowed      bool     `json:"allowed"`
	Reasons      []string `json:"reasons"`
	MatchedTerms []string `json:"matched_terms"`
}

type piiPattern struct {
	name string
	re   *regexp.Regexp
}

// Встроенные детекторы PII. Используются, когда в политике нет
// ни одного валидного кастомного паттерна.
var defaultPIIPatterns = []piiPattern{
	{name: "email", re: regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)},
	{name: "phone", re: regexp.MustCompile(`\b(?:\+?1[\s.-]?)?\(?\d{3}\)?[\s.-]\d{3}[\s.-]\d{4}\b`)},
	{name: "ssn", re: regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
}

// EvaluateContentPolicies прогоняет текст через все включенные content_filter
// политики. Без short-circuit: каждая политика вносит свои reasons,
// совпавшие термы дедуплицируются в общий набор.
func EvaluateContentPolicies(text string, ruleSets []json.RawMessage) ContentResult {
	reasons := make([]string, 0)
	matchedTerms := make([]string, 0)
	seenTerms := make(map[string]struct{})
	normalized := strings.ToLower(text)

	for _, raw := range ruleSets {
		rules := decodeRules(raw)

		for _, term := range rules.strings("blockedTerms") {
			term = strings.ToLower(term)
			if !strings.Contains(normalized, term) {
				continue
			}
			if _, ok := seenTerms[term]; !ok {
				seenTerms[term] = struct{}{}
				matchedTerms = append(matchedTerms, term)
			}
			reasons = append(reasons, "blocked_term:"+term)
		}

		if rules.boolean("blockOnPii", true) {
			// Кастомные паттерны вытесняют дефолтные целиком,
			// но только если хоть один скомпилировался
			patterns := compileCustomPatterns(rules.strings("piiPatterns"))
			if len(patterns) == 0 {
				patterns = defaultPIIPatterns
			}
			for _, p := range patterns {
				if p.re.MatchString(text) {
					reasons = append(reasons, "pii_detected:"+p.name)
				}
			}
		}
	}

	return ContentResult{
		Allowed:      len(reasons) == 0,
		Reasons:      reasons,
		MatchedTerms: matchedTerms,
	}
}

// compileCustomPatterns компилирует пользовательские регулярки.
// Синтаксически невалидные молча отбрасываются: битый паттерн
// не должен блокировать чужие проверки.
func compileCustomPatterns(values []string) []piiPattern {
	patterns := make([]piiPattern, 0, len(values))
	for _, value := range values {
		re, err := regexp.Compile("(?i)" + value)
		if err != nil {
			continue
		}
		patterns = append(patterns, piiPattern{name: "custom:" + value, re: re})
	}
	return patterns
}
