// Package extract reads id-to-value mappings out of exported answer-key and
// errata documents.
package extract

import (
	"fmt"
	"sort"
	"strings"
)

// Role selects what a mapping is for. Answers must resolve to letters;
// modifications may carry free text.
type Role int

const (
	RoleAnswers Role = iota
	RoleModifications
)

func (r Role) String() string {
	switch r {
	case RoleAnswers:
		return "answers"
	case RoleModifications:
		return "modifications"
	default:
		return "unknown"
	}
}

// Strategy extracts a mapping from document text. An empty result means the
// strategy found nothing and the next one in the policy should run.
type Strategy interface {
	Name() string
	Extract(text string, role Role) map[string]string
}

// Strategy names accepted in policies.
const (
	StrategyTable      = "table-first"
	StrategyLineRegex  = "line-regex"
	StrategyPositional = "positional-fallback"
	StrategyPlainRegex = "plain-regex"
)

var registry = map[string]Strategy{
	StrategyTable:      TableStrategy{},
	StrategyLineRegex:  LineRegexStrategy{},
	StrategyPositional: PositionalStrategy{},
	StrategyPlainRegex: PlainRegexStrategy{},
}

// Default policies per role.
var (
	DefaultAnswerPolicy       = []string{StrategyTable, StrategyLineRegex, StrategyPositional}
	DefaultModificationPolicy = []string{StrategyTable, StrategyPlainRegex}
)

// Lookup returns the strategy registered under name.
func Lookup(name string) (Strategy, error) {
	s, ok := registry[strings.TrimSpace(name)]
	if !ok {
		return nil, fmt.Errorf("unknown extraction strategy %q (available: %s)",
			name, strings.Join(StrategyNames(), ", "))
	}
	return s, nil
}

// StrategyNames lists the registered strategies in sorted order.
func StrategyNames() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
