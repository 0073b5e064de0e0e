package factory

import (
	"fmt"
	"strings"
)

// Strategy selects which of construction, persistence and callbacks run.
type Strategy int

const (
	StrategyBuild Strategy = iota
	StrategyCreate
	StrategyAttributesFor
	StrategyBuildStubbed
)

func (s Strategy) String() string {
	switch s {
	case StrategyBuild:
		return "build"
	case StrategyCreate:
		return "create"
	case StrategyAttributesFor:
		return "attributes_for"
	case StrategyBuildStubbed:
		return "build_stubbed"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

// ParseStrategy converts a strategy name, case-insensitively.
func ParseStrategy(name string) (Strategy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "build":
		return StrategyBuild, nil
	case "create":
		return StrategyCreate, nil
	case "attributes_for", "attributes":
		return StrategyAttributesFor, nil
	case "build_stubbed", "stub":
		return StrategyBuildStubbed, nil
	default:
		return 0, fmt.Errorf("factory: unknown strategy %q", name)
	}
}
