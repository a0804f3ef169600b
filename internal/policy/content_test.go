package policy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawRules(t *testing.T, s string) json.RawMessage {
	t.Helper()
	require.True(t, json.Valid([]byte(s)), "test rule-set must be valid JSON")
	return json.RawMessage(s)
}

func TestEvaluateContentPolicies_BlockedTerm(t *testing.T) {
	result := EvaluateContentPolicies("please execute the FORBIDDEN action", []json.RawMessage{
		rawRules(t, `{"blockedTerms": ["forbidden"], "blockOnPii": false}`),
	})

	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reasons, "blocked_term:forbidden")
	assert.Equal(t, []string{"forbidden"}, result.MatchedTerms)
}

func TestEvaluateContentPolicies_CleanText(t *testing.T) {
	result := EvaluateContentPolicies("hello world", []json.RawMessage{
		rawRules(t, `{"blockedTerms": ["forbidden"]}`),
	})

	assert.True(t, result.Allowed)
	assert.Empty(t, result.Reasons)
	assert.Empty(t, result.MatchedTerms)
}

func TestEvaluateContentPolicies_DefaultPIIEmail(t *testing.T) {
	// blockOnPii по умолчанию true, кастомных паттернов нет — работают дефолтные
	result := EvaluateContentPolicies("Reach me at test@example.com", []json.RawMessage{
		rawRules(t, `{}`),
	})

	assert.False(t, result.Allowed)
	require.NotEmpty(t, result.Reasons)
	assert.Equal(t, "pii_detected:email", result.Reasons[0])
}

func TestEvaluateContentPolicies_DefaultPIIPhoneAndSSN(t *testing.T) {
	phone := EvaluateContentPolicies("call 555-123-4567 now", []json.RawMessage{rawRules(t, `{}`)})
	assert.Contains(t, phone.Reasons, "pii_detected:phone")

	ssn := EvaluateContentPolicies("ssn is 123-45-6789", []json.RawMessage{rawRules(t, `{}`)})
	assert.Contains(t, ssn.Reasons, "pii_detected:ssn")
}

func TestEvaluateContentPolicies_CustomPatternsReplaceDefaults(t *testing.T) {
	ruleSets := []json.RawMessage{
		rawRules(t, `{"piiPatterns": ["secret-\\d+"]}`),
	}

	// Кастомный паттерн вытесняет дефолтные: email больше не детектится
	result := EvaluateContentPolicies("mail test@example.com about secret-42", ruleSets)
	assert.False(t, result.Allowed)
	assert.Equal(t, []string{`pii_detected:custom:secret-\d+`}, result.Reasons)
}

func TestEvaluateContentPolicies_InvalidPatternDiscarded(t *testing.T) {
	// Единственный паттерн битый — молча откатываемся на дефолтные детекторы
	result := EvaluateContentPolicies("contact test@example.com", []json.RawMessage{
		rawRules(t, `{"piiPatterns": ["[unclosed"]}`),
	})

	assert.Contains(t, result.Reasons, "pii_detected:email")
}

func TestEvaluateContentPolicies_BlockOnPiiDisabled(t *testing.T) {
	result := EvaluateContentPolicies("test@example.com", []json.RawMessage{
		rawRules(t, `{"blockOnPii": false}`),
	})

	assert.True(t, result.Allowed)
	assert.Empty(t, result.Reasons)
}

func TestEvaluateContentPolicies_AccumulatesAcrossPolicies(t *testing.T) {
	ruleSets := []json.RawMessage{
		rawRules(t, `{"blockedTerms": ["alpha"], "blockOnPii": false}`),
		rawRules(t, `{"blockedTerms": ["alpha", "beta"], "blockOnPii": false}`),
	}

	result := EvaluateContentPolicies("alpha and beta", ruleSets)

	// Reasons копятся от каждой политики, matchedTerms дедуплицируются
	assert.Equal(t, []string{"blocked_term:alpha", "blocked_term:alpha", "blocked_term:beta"}, result.Reasons)
	assert.Equal(t, []string{"alpha", "beta"}, result.MatchedTerms)
}

func TestEvaluateContentPolicies_CaseInsensitiveSubstring(t *testing.T) {
	result := EvaluateContentPolicies("WIRE_transfer requested", []json.RawMessage{
		rawRules(t, `{"blockedTerms": ["Wire_Transfer"], "blockOnPii": false}`),
	})

	assert.False(t, result.Allowed)
	assert.Contains(t, result.Reasons, "blocked_term:wire_transfer")
}

func TestEvaluateContentPolicies_MalformedRulesDegradeToDefaults(t *testing.T) {
	ruleSets := []json.RawMessage{
		rawRules(t, `{"blockedTerms": "not-a-list", "blockOnPii": false}`),
		rawRules(t, `["totally", "wrong", "shape"]`),
	}

	result := EvaluateContentPolicies("anything at all", ruleSets)
	assert.True(t, result.Allowed)
}
