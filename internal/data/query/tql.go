package query

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	tqlSelectRE       = regexp.MustCompile(`(?i)^\s*SELECT\s+(directories|files)(?:\s+WHERE\s+(.+))?\s*$`)
	tqlAndSplitRE     = regexp.MustCompile(`(?i)\s+AND\s+`)
	tqlNumericCondRE  = regexp.MustCompile(`(?i)^\s*([a-z_]+)\s*(>=|<=|!=|=|>|<)\s*(-?[0-9]+(?:\.[0-9]+)?)\s*$`)
	tqlContainsCondRE = regexp.MustCompile(`(?i)^\s*([a-z_]+)\s+CONTAINS\s+['"]([^'"]+)['"]\s*$`)
	tqlStringCondRE   = regexp.MustCompile(`(?i)^\s*([a-z_]+)\s*(=|!=)\s*['"]([^'"]+)['"]\s*$`)
)

// TQLQuery is one parsed propagation query: a target collection plus zero or
// more AND-combined conditions.
type TQLQuery struct {
	Target     string
	Conditions []TQLCondition
}

type TQLCondition struct {
	Field    string
	Op       string
	NumVal   float64
	StrVal   string
	IsNumber bool
	IsStr    bool
}

// ParseTQL parses "SELECT directories|files [WHERE cond AND cond ...]".
func ParseTQL(raw string) (TQLQuery, error) {
	matches := tqlSelectRE.FindStringSubmatch(strings.TrimSpace(raw))
	if len(matches) == 0 {
		return TQLQuery{}, fmt.Errorf("invalid TQL query: expected SELECT directories|files [WHERE ...]")
	}

	query := TQLQuery{Target: strings.ToLower(matches[1])}
	where := strings.TrimSpace(matches[2])
	if where == "" {
		return query, nil
	}

	parts := tqlAndSplitRE.Split(where, -1)
	query.Conditions = make([]TQLCondition, 0, len(parts))
	for _, part := range parts {
		condition, err := parseTQLCondition(part)
		if err != nil {
			return TQLQuery{}, err
		}
		query.Conditions = append(query.Conditions, condition)
	}
	return query, nil
}

func parseTQLCondition(raw string) (TQLCondition, error) {
	if match := tqlNumericCondRE.FindStringSubmatch(raw); len(match) == 4 {
		value, err := strconv.ParseFloat(strings.TrimSpace(match[3]), 64)
		if err != nil {
			return TQLCondition{}, fmt.Errorf("invalid numeric value %q: %w", match[3], err)
		}
		return TQLCondition{
			Field:    strings.ToLower(strings.TrimSpace(match[1])),
			Op:       strings.TrimSpace(match[2]),
			NumVal:   value,
			IsNumber: true,
		}, nil
	}

	if match := tqlContainsCondRE.FindStringSubmatch(raw); len(match) == 3 {
		return TQLCondition{
			Field:  strings.ToLower(strings.TrimSpace(match[1])),
			Op:     "contains",
			StrVal: strings.TrimSpace(match[2]),
			IsStr:  true,
		}, nil
	}

	if match := tqlStringCondRE.FindStringSubmatch(raw); len(match) == 4 {
		return TQLCondition{
			Field:  strings.ToLower(strings.TrimSpace(match[1])),
			Op:     strings.TrimSpace(match[2]),
			StrVal: strings.TrimSpace(match[3]),
			IsStr:  true,
		}, nil
	}

	return TQLCondition{}, fmt.Errorf("invalid TQL condition %q", strings.TrimSpace(raw))
}

func (c TQLCondition) matchesNumber(v float64) bool {
	switch c.Op {
	case ">=":
		return v >= c.NumVal
	case "<=":
		return v <= c.NumVal
	case ">":
		return v > c.NumVal
	case "<":
		return v < c.NumVal
	case "=":
		return v == c.NumVal
	case "!=":
		return v != c.NumVal
	default:
		return false
	}
}

func (c TQLCondition) matchesString(v string) bool {
	switch c.Op {
	case "contains":
		return strings.Contains(strings.ToLower(v), strings.ToLower(c.StrVal))
	case "=":
		return strings.EqualFold(v, c.StrVal)
	case "!=":
		return !strings.EqualFold(v, c.StrVal)
	default:
		return false
	}
}
