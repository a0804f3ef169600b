package policy

/*
Файл rules.go отвечает за защищенный разбор rules_json.
Принцип: одна криво настроенная политика не должна ронять проверки
для всех остальных. Любое битое поле деградирует до дефолта
(пустой список / fallback), а не превращается в ошибку.
*/

import (
	"encoding/json"
	"strings"
)

// ruleMap — распакованный rules_json одной политики.
// Лишние поля игнорируются, отсутствующие заменяются дефолтами.
type ruleMap map[string]interface{}

// decodeRules распаковывает сырой JSON в мапу.
// Не-объект (массив, строка, мусор) трактуется как пустой набор правил.
func decodeRules(raw json.RawMessage) ruleMap {
	if len(raw) == 0 {
		return ruleMap{}
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return ruleMap{}
	}
	return m
}

// strings достает список строк по ключу.
// Элементы не-строки и пустые строки отбрасываются.
func (m ruleMap) strings(key string) []string {
	rawList, ok := m[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(rawList))
	for _, item := range rawList {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

// boolean достает флаг, возвращая fallback для отсутствующего или битого значения.
func (m ruleMap) boolean(key string, fallback bool) bool {
	if v, ok := m[key].(bool); ok {
		return v
	}
	return fallback
}

func containsString(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}
	return false
}
