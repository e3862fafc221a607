package policy

import (
	"encoding/json"
	"reflect"
	"regexp"
	"strings"

	"github.com/openagora/agora/pkg/models"
)

// evaluateConditions reports whether a condition set holds for the request.
// An empty set holds vacuously; "all" requires every condition, "any" at
// least one.
func evaluateConditions(conds []models.Condition, mode models.MatchMode, req *models.AccessRequest) bool {
	if len(conds) == 0 {
		return true
	}

	if mode == models.MatchAny {
		for _, cond := range conds {
			if evaluateCondition(cond, req) {
				return true
			}
		}
		return false
	}

	for _, cond := range conds {
		if !evaluateCondition(cond, req) {
			return false
		}
	}
	return true
}

// evaluateCondition applies one operator. Comparisons against missing
// attributes are false, except is_null which holds.
func evaluateCondition(cond models.Condition, req *models.AccessRequest) bool {
	actual, found := resolveAttribute(req, cond.Attribute)

	switch cond.Operator {
	case models.OpIsNull:
		return !found || actual == nil
	case models.OpIsNotNull:
		return found && actual != nil
	}
	if !found || actual == nil {
		return false
	}

	switch cond.Operator {
	case models.OpEquals:
		return looseEquals(actual, cond.Value)
	case models.OpNotEquals:
		return !looseEquals(actual, cond.Value)
	case models.OpContains:
		return containsValue(actual, cond.Value)
	case models.OpNotContains:
		return !containsValue(actual, cond.Value)
	case models.OpIn:
		return inList(actual, cond.Value)
	case models.OpNotIn:
		return !inList(actual, cond.Value)
	case models.OpGreaterThan:
		a, aok := toFloat(actual)
		b, bok := toFloat(cond.Value)
		return aok && bok && a > b
	case models.OpLessThan:
		a, aok := toFloat(actual)
		b, bok := toFloat(cond.Value)
		return aok && bok && a < b
	case models.OpBetween:
		bounds, ok := cond.Value.([]interface{})
		if !ok || len(bounds) != 2 {
			return false
		}
		a, aok := toFloat(actual)
		lo, lok := toFloat(bounds[0])
		hi, hok := toFloat(bounds[1])
		return aok && lok && hok && a >= lo && a <= hi
	case models.OpMatchesRegex:
		pattern, ok := cond.Value.(string)
		if !ok {
			return false
		}
		s, ok := actual.(string)
		if !ok {
			return false
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return re.MatchString(s)
	case models.OpStartsWith:
		prefix, pok := cond.Value.(string)
		s, sok := actual.(string)
		return pok && sok && strings.HasPrefix(s, prefix)
	case models.OpEndsWith:
		suffix, pok := cond.Value.(string)
		s, sok := actual.(string)
		return pok && sok && strings.HasSuffix(s, suffix)
	default:
		return false
	}
}

// resolveAttribute walks a dot-notation path over the request attribute
// maps. The first segment selects the root: subject, resource,
// environment, action, or tenant_id. The identifier shortcuts subject.id,
// resource.id, and environment.client_ip resolve even when the attribute
// maps omit them.
func resolveAttribute(req *models.AccessRequest, path string) (interface{}, bool) {
	segments := strings.Split(path, ".")

	switch segments[0] {
	case "action":
		if len(segments) == 1 {
			return req.Action, true
		}
		return nil, false
	case "tenant_id":
		if len(segments) == 1 {
			return req.TenantID, true
		}
		return nil, false
	case "subject":
		if len(segments) == 2 && segments[1] == "id" {
			if _, ok := req.Subject["id"]; !ok {
				return req.SubjectID, true
			}
		}
		return walk(req.Subject, segments[1:])
	case "resource":
		if len(segments) == 2 && segments[1] == "id" {
			if _, ok := req.ResourceAtt["id"]; !ok {
				return req.Resource, true
			}
		}
		return walk(req.ResourceAtt, segments[1:])
	case "environment":
		if len(segments) == 2 && segments[1] == "client_ip" {
			if _, ok := req.Environment["client_ip"]; !ok && req.ClientIP != "" {
				return req.ClientIP, true
			}
		}
		return walk(req.Environment, segments[1:])
	default:
		return nil, false
	}
}

// walk descends nested maps one segment at a time.
func walk(root map[string]interface{}, segments []string) (interface{}, bool) {
	if len(segments) == 0 {
		if root == nil {
			return nil, false
		}
		return root, true
	}

	var current interface{} = root
	for _, segment := range segments {
		node, ok := current.(map[string]interface{})
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// looseEquals compares values with JSON-decoded representations in mind:
// numbers compare numerically regardless of the Go type they arrived in.
func looseEquals(a, b interface{}) bool {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		return bok && af == bf
	}
	return reflect.DeepEqual(a, b)
}

// containsValue covers substring checks on strings and membership checks
// on list attributes.
func containsValue(actual, expected interface{}) bool {
	switch a := actual.(type) {
	case string:
		s, ok := expected.(string)
		return ok && strings.Contains(a, s)
	case []interface{}:
		for _, item := range a {
			if looseEquals(item, expected) {
				return true
			}
		}
		return false
	case []string:
		s, ok := expected.(string)
		if !ok {
			return false
		}
		for _, item := range a {
			if item == s {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// inList reports whether the attribute equals any element of the expected
// list.
func inList(actual, expected interface{}) bool {
	switch list := expected.(type) {
	case []interface{}:
		for _, item := range list {
			if looseEquals(actual, item) {
				return true
			}
		}
	case []string:
		s, ok := actual.(string)
		if !ok {
			return false
		}
		for _, item := range list {
			if item == s {
				return true
			}
		}
	}
	return false
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
