package rewards

import (
	"errors"

	"rewards-service/internal/models"
)

var (
	ErrInsufficientPoints = errors.New("insufficient reward points")
	ErrGiftInactive       = errors.New("gift is not active")
	ErrOutOfStock         = errors.New("gift is out of stock")
	ErrAlreadyProcessed   = errors.New("already processed")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidTiers       = errors.New("invalid tier thresholds")
)

// Balance is a user's reward position. Available always equals
// TotalEarned minus TotalRedeemed.
type Balance struct {
	UserID        uint   `json:"user_id"`
	TotalEarned   int64  `json:"total_earned"`
	TotalRedeemed int64  `json:"total_redeemed"`
	Available     int64  `json:"available_balance"`
	Tier          string `json:"tier"`
}

func NewBalance(userID uint, earned, redeemed int64, tiers []Tier) Balance {
	return Balance{
		UserID:        userID,
		TotalEarned:   earned,
		TotalRedeemed: redeemed,
		Available:     earned - redeemed,
		Tier:          TierFor(earned, tiers),
	}
}

// CheckEligibility reports whether a user holding available points may
// request gift. It never clamps: short balances fail.
func CheckEligibility(available int64, gift models.Gift) error {
	if !gift.Active {
		return ErrGiftInactive
	}
	if gift.Stock <= 0 {
		return ErrOutOfStock
	}
	if gift.PointsRequired > available {
		return ErrInsufficientPoints
	}
	return nil
}

// CheckRedemptionTransition allows only Pending -> Approved and
// Pending -> Rejected.
func CheckRedemptionTransition(from, to string) error {
	if from != models.RedemptionPending {
		return ErrAlreadyProcessed
	}
	switch to {
	case models.RedemptionApproved, models.RedemptionRejected:
		return nil
	}
	return ErrInvalidTransition
}

// InitialAssignmentStatus gives the status a new gift assignment starts in.
// Employer assignments wait for approval; user assignments are usable at once.
func InitialAssignmentStatus(assignedToRole string) (string, error) {
	switch assignedToRole {
	case models.RoleEmployer:
		return models.GiftAssignmentPending, nil
	case models.RoleUser:
		return models.GiftAssignmentAvailable, nil
	}
	return "", ErrInvalidTransition
}

// CheckAssignmentTransition guards gift assignment status changes.
func CheckAssignmentTransition(from, to string) error {
	switch {
	case from == models.GiftAssignmentPending && to == models.GiftAssignmentAvailable:
		return nil
	case from == models.GiftAssignmentAvailable && to == models.GiftAssignmentRedeemed:
		return nil
	case (from == models.GiftAssignmentPending || from == models.GiftAssignmentAvailable) && to == models.GiftAssignmentExpired:
		return nil
	}
	if from != models.GiftAssignmentPending && to == models.GiftAssignmentAvailable {
		return ErrAlreadyProcessed
	}
	return ErrInvalidTransition
}

func ValidAvailability(v string) bool {
	for _, a := range models.Availabilities {
		if a == v {
			return true
		}
	}
	return false
}
