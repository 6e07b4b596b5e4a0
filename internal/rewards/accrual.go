// Package rewards holds the reward-points rules: accrual per liter, tier
// labels, redemption eligibility and the allowed status transitions.
package rewards

import (
	"errors"
	"math"
)

type RoundingMode string

const (
	RoundFloor   RoundingMode = "floor"
	RoundNearest RoundingMode = "nearest"
)

// epsilon absorbs float noise such as 0.7*3 == 2.0999999999999996.
const epsilon = 1e-9

var ErrInvalidRate = errors.New("invalid reward rate")

// Rate is the accrual configuration effective when a sale is recorded.
type Rate struct {
	PointsPerLiter float64      `json:"points_per_liter"`
	Multiplier     float64      `json:"reward_multiplier"`
	Rounding       RoundingMode `json:"rounding_mode"`
}

func DefaultRate() Rate {
	return Rate{PointsPerLiter: 1, Multiplier: 1, Rounding: RoundNearest}
}

func (r Rate) Validate() error {
	if math.IsNaN(r.PointsPerLiter) || math.IsInf(r.PointsPerLiter, 0) || r.PointsPerLiter < 0 {
		return ErrInvalidRate
	}
	if math.IsNaN(r.Multiplier) || math.IsInf(r.Multiplier, 0) || r.Multiplier < 0 {
		return ErrInvalidRate
	}
	switch r.Rounding {
	case RoundFloor, RoundNearest:
	default:
		return ErrInvalidRate
	}
	return nil
}

// Points returns the points earned for liters at rate. Missing, zero or
// negative liters earn nothing; the result is never negative.
func Points(liters float64, rate Rate) int64 {
	if math.IsNaN(liters) || math.IsInf(liters, 0) || liters <= 0 {
		return 0
	}
	if rate.Validate() != nil {
		return 0
	}

	raw := liters * rate.PointsPerLiter * rate.Multiplier

	var pts float64
	switch rate.Rounding {
	case RoundNearest:
		pts = math.Round(raw)
	default:
		pts = math.Floor(raw + epsilon)
	}
	if pts < 0 {
		return 0
	}
	return int64(pts)
}
