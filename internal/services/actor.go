package services

import "rewards-service/internal/models"

// Actor is the authenticated user a request acts as. Role always comes
// from the database, never from the client's token.
type Actor struct {
	ID    uint
	Email string
	Role  string
}

func ActorFromUser(u *models.User) Actor {
	return Actor{ID: u.ID, Email: u.Email, Role: u.Role}
}

func (a Actor) Is(roles ...string) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

func (a Actor) IsStaff() bool {
	return a.Is(models.RoleAdmin, models.RoleSupervisor)
}
