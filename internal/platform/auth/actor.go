package auth

import "github.com/google/uuid"

// Staff roles recognized by the portal.
const (
	RoleAdmin                 = "admin"
	RoleDoctor                = "doctor"
	RoleCommunityHealthWorker = "community_health_worker"
	RoleDistrictHealthOfficer = "district_health_officer"
	RoleRecordsOfficer        = "records_officer"
)

// Actor identifies the authenticated employee performing an operation.
// It is passed into domain operations explicitly rather than read from
// ambient session state, so authorization is testable as a plain argument.
type Actor struct {
	EmployeeID uuid.UUID
	Role       string
	FacilityID uuid.UUID
}

// HasRole reports whether the actor holds one of the given roles. Admin
// satisfies any role check.
func (a Actor) HasRole(roles ...string) bool {
	if a.Role == RoleAdmin {
		return true
	}
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}
