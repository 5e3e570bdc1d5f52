package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTier is returned when a difficulty name cannot be parsed
var ErrInvalidTier = errors.New("invalid difficulty tier")

// Tier represents a question or session difficulty level
type Tier string

const (
	TierEasy   Tier = "easy"
	TierNormal Tier = "normal"
	TierHard   Tier = "hard"
)

// AllTiers returns every tier in ascending order
func AllTiers() []Tier {
	return []Tier{TierEasy, TierNormal, TierHard}
}

// rank orders tiers; unknown tiers rank below easy
func (t Tier) rank() int {
	switch t {
	case TierEasy:
		return 1
	case TierNormal:
		return 2
	case TierHard:
		return 3
	default:
		return 0
	}
}

// Valid returns true if t is one of the known tiers
func (t Tier) Valid() bool {
	return t.rank() > 0
}

// Less reports whether t is strictly easier than other
func (t Tier) Less(other Tier) bool {
	return t.rank() < other.rank()
}

// Next returns the tier one step above t. Hard is the ceiling.
func (t Tier) Next() Tier {
	switch t {
	case TierEasy:
		return TierNormal
	case TierNormal, TierHard:
		return TierHard
	default:
		return TierEasy
	}
}

func (t Tier) String() string {
	return string(t)
}

// tierAliases maps the names used by older catalogs onto tiers
var tierAliases = map[string]Tier{
	"easy":    TierEasy,
	"fácil":   TierEasy,
	"facil":   TierEasy,
	"normal":  TierNormal,
	"medium":  TierNormal,
	"hard":    TierHard,
	"difícil": TierHard,
	"dificil": TierHard,
}

// ParseTier parses a tier name (case-insensitive)
func ParseTier(s string) (Tier, error) {
	tier, ok := tierAliases[strings.ToLower(strings.TrimSpace(s))]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidTier, s)
	}
	return tier, nil
}
