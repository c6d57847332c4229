package service

import (
	"anoa.com/campuscomplaint/internal/entity"
	complaintRepo "anoa.com/campuscomplaint/internal/modules/complaint/repository"
	"anoa.com/campuscomplaint/pkg/apperror"
)

type Action string

const (
	ActionSubmit       Action = "submit"
	ActionView         Action = "view"
	ActionSetStatus    Action = "set_status"
	ActionSetPriority  Action = "set_priority"
	ActionSetSensitive Action = "set_sensitive"
	ActionWithdraw     Action = "withdraw"
	ActionSearch       Action = "search"
)

// Policy decides who may do what to a complaint. Every engine operation asks
// it once before loading (complaint == nil, role check only) and once more
// after loading when the answer depends on the record.
type Policy struct {
	// DepartmentAdminTransitions lets department-admins change status and
	// priority of complaints in their own faculty and department.
	DepartmentAdminTransitions bool
}

// CanTransition reports whether actor may perform action on complaint.
func (p Policy) CanTransition(actor entity.Actor, action Action, complaint *entity.Complaint) bool {
	return p.Authorize(actor, action, complaint) == nil
}

// Authorize is CanTransition with the reason attached.
func (p Policy) Authorize(actor entity.Actor, action Action, complaint *entity.Complaint) error {
	if !actor.IsAuthenticated() {
		return apperror.New(apperror.ErrUnauthenticated, "sign in to continue", nil)
	}

	switch action {
	case ActionSubmit:
		if actor.Role != entity.RoleStudent {
			return apperror.Unauthorized("only students can submit complaints")
		}
		return nil

	case ActionSetStatus, ActionSetPriority:
		if actor.Role == entity.RoleAdmin {
			return nil
		}
		if actor.Role == entity.RoleDepartmentAdmin && p.DepartmentAdminTransitions {
			if complaint == nil || inDepartment(actor, complaint) {
				return nil
			}
			return apperror.Unauthorized("complaint is outside your department")
		}
		return apperror.Unauthorized("only administrators can update complaints")

	case ActionSetSensitive, ActionSearch:
		if actor.Role != entity.RoleAdmin {
			return apperror.Unauthorized("only administrators can do this")
		}
		return nil

	case ActionWithdraw:
		if complaint == nil {
			return nil
		}
		if complaint.UserID != actor.UserID {
			return apperror.Forbidden("you can only withdraw your own complaints")
		}
		if complaint.Status != entity.StatusPending {
			return apperror.Forbidden("only pending complaints can be withdrawn")
		}
		return nil

	case ActionView:
		if complaint == nil {
			return nil
		}
		switch {
		case actor.Role == entity.RoleAdmin,
			complaint.UserID == actor.UserID,
			actor.Role == entity.RoleDepartmentAdmin && inDepartment(actor, complaint):
			return nil
		}
		return apperror.Forbidden("you do not have access to this complaint")
	}

	return apperror.Unauthorized("action not permitted")
}

// ScopeFor returns the slice of complaints actor may read.
func (p Policy) ScopeFor(actor entity.Actor) complaintRepo.Scope {
	switch actor.Role {
	case entity.RoleAdmin:
		return complaintRepo.Scope{}
	case entity.RoleDepartmentAdmin:
		if actor.Faculty != "" && actor.Department != "" {
			return complaintRepo.Scope{Faculty: actor.Faculty, Department: actor.Department}
		}
		// unscoped department-admins see nothing beyond their own
		return complaintRepo.Scope{OwnerID: actor.UserID}
	default:
		return complaintRepo.Scope{OwnerID: actor.UserID}
	}
}

func inDepartment(actor entity.Actor, complaint *entity.Complaint) bool {
	return actor.Faculty != "" && actor.Department != "" &&
		actor.Faculty == complaint.Faculty &&
		actor.Department == complaint.Department
}
