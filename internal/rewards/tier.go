package rewards

import (
	"encoding/json"
	"sort"
	"strings"
)

// Tier is a display label reached once a user has earned MinPoints in total.
type Tier struct {
	Name      string `json:"name"`
	MinPoints int64  `json:"min_points"`
}

// TierFor returns the highest tier whose threshold totalEarned has reached,
// or "" when no tiers are configured or none is reached.
func TierFor(totalEarned int64, tiers []Tier) string {
	best := ""
	bestMin := int64(-1)
	for _, t := range tiers {
		if totalEarned >= t.MinPoints && t.MinPoints > bestMin {
			best = t.Name
			bestMin = t.MinPoints
		}
	}
	return best
}

// ParseTiers decodes the stored JSON tier list. Empty input means no tiers.
func ParseTiers(raw string) ([]Tier, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var tiers []Tier
	if err := json.Unmarshal([]byte(raw), &tiers); err != nil {
		return nil, err
	}
	return NormalizeTiers(tiers)
}

// NormalizeTiers trims names, rejects blanks, negative or duplicate
// thresholds and sorts ascending by MinPoints.
func NormalizeTiers(tiers []Tier) ([]Tier, error) {
	out := make([]Tier, 0, len(tiers))
	seen := make(map[int64]bool, len(tiers))
	for _, t := range tiers {
		name := strings.TrimSpace(t.Name)
		if name == "" || t.MinPoints < 0 || seen[t.MinPoints] {
			return nil, ErrInvalidTiers
		}
		seen[t.MinPoints] = true
		out = append(out, Tier{Name: name, MinPoints: t.MinPoints})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MinPoints < out[j].MinPoints })
	return out, nil
}

func EncodeTiers(tiers []Tier) (string, error) {
	if len(tiers) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(tiers)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
