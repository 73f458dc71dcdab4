package scoring

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

var ErrInvalidRules = errors.New("invalid scoring rules")

// Rules stores the point values and multipliers used to score a pick.
type Rules struct {
	MapWinPoints       int      `yaml:"map_win_points"`
	MatchWinPoints     int      `yaml:"match_win_points"`
	CleanSweepBonus    int      `yaml:"clean_sweep_bonus"`
	CleanSweepMinMaps  int      `yaml:"clean_sweep_min_maps"`
	TournamentWinBonus int      `yaml:"tournament_win_bonus"`
	TournamentKeywords []string `yaml:"tournament_keywords"`
	AmateurMultiplier  float64  `yaml:"amateur_multiplier"`
	StarMultiplier     float64  `yaml:"star_multiplier"`
}

func DefaultRules() Rules {
	return Rules{
		MapWinPoints:       3,
		MatchWinPoints:     10,
		CleanSweepBonus:    5,
		CleanSweepMinMaps:  2,
		TournamentWinBonus: 25,
		TournamentKeywords: []string{"championship", "final", "cup"},
		AmateurMultiplier:  1.25,
		StarMultiplier:     2,
	}
}

func (r Rules) Validate() error {
	switch {
	case r.MapWinPoints < 0, r.MatchWinPoints < 0, r.CleanSweepBonus < 0, r.TournamentWinBonus < 0:
		return fmt.Errorf("%w: point values must be >= 0", ErrInvalidRules)
	case r.CleanSweepMinMaps < 1:
		return fmt.Errorf("%w: clean_sweep_min_maps must be >= 1", ErrInvalidRules)
	case r.AmateurMultiplier <= 0, r.StarMultiplier <= 0:
		return fmt.Errorf("%w: multipliers must be > 0", ErrInvalidRules)
	}
	for _, kw := range r.TournamentKeywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("%w: tournament keyword cannot be empty", ErrInvalidRules)
		}
	}
	return nil
}

// ParseRules overlays YAML on top of DefaultRules. Keys left out keep their default.
func ParseRules(data []byte) (Rules, error) {
	rules := DefaultRules()
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("%w: decode yaml: %v", ErrInvalidRules, err)
	}
	for i, kw := range rules.TournamentKeywords {
		rules.TournamentKeywords[i] = strings.ToLower(strings.TrimSpace(kw))
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// LoadRules reads a rules file. An empty path yields DefaultRules.
func LoadRules(path string) (Rules, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return DefaultRules(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read scoring rules %s: %w", path, err)
	}
	return ParseRules(data)
}
