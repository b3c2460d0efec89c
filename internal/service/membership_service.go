package service

import (
	"context"

	"nexus/internal/bus"
	"nexus/internal/cache"
	"nexus/internal/models"
	"nexus/internal/repository"
)

// MembershipService owns role assignment, admin promotion and resignation,
// and member removal.
type MembershipService struct {
	repos     repository.Repos
	uow       repository.UnitOfWork
	perms     *PermissionEvaluator
	publisher bus.Publisher
}

// NewMembershipService returns a new MembershipService.
func NewMembershipService(repos repository.Repos, uow repository.UnitOfWork, perms *PermissionEvaluator, publisher bus.Publisher) *MembershipService {
	return &MembershipService{
		repos:     repos,
		uow:       uow,
		perms:     perms,
		publisher: publisher,
	}
}

// GetMembers returns the member list, serving from cache when possible.
func (s *MembershipService) GetMembers(ctx context.Context, networkID uint) ([]models.NetworkMember, error) {
	var cached []models.NetworkMember
	if cache.Get(ctx, cache.MembersKey(networkID), &cached) {
		return cached, nil
	}

	members, err := s.repos.Members.ListByNetwork(ctx, networkID)
	if err != nil {
		return nil, err
	}
	cache.Set(ctx, cache.MembersKey(networkID), members, cache.MembersTTL)
	return members, nil
}

// AssignRole sets a member's role. Admin only. Admin roles are untouchable
// through this path and cannot be handed out through it either.
func (s *MembershipService) AssignRole(ctx context.Context, actorID, networkID, targetUserID uint, role models.NetworkRole) error {
	isAdmin, err := s.perms.IsAdmin(ctx, networkID, actorID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return models.NewForbiddenError("Only network admins can assign roles")
	}
	if !models.AssignableRole(role) {
		return models.NewValidationError("Role cannot be assigned directly")
	}

	target, err := s.repos.Members.Get(ctx, networkID, targetUserID)
	if err != nil {
		return err
	}
	if target == nil {
		return models.NewNotFoundError("Membership", targetUserID)
	}
	if target.Role == models.NetworkRoleAdmin {
		return models.NewForbiddenError("Admin roles cannot be changed through role assignment")
	}

	if err := s.repos.Members.UpdateRole(ctx, networkID, targetUserID, role); err != nil {
		return err
	}
	cache.InvalidateNetwork(ctx, networkID)

	if err := publishEvent(ctx, s.publisher, bus.TopicMemberUpdates, bus.Event{
		Type:      bus.EventRoleChanged,
		Scope:     bus.ScopeNetwork,
		NetworkID: networkID,
		UserID:    targetUserID,
		Data:      map[string]interface{}{"role": string(role)},
	}); err != nil {
		return err
	}

	return publishEvent(ctx, s.publisher, bus.TopicNotifications, bus.Event{
		Type:      bus.EventRoleUpdate,
		Scope:     bus.ScopeUser,
		NetworkID: networkID,
		UserID:    targetUserID,
		Title:     "Role updated",
		Message:   "Your role is now " + string(role),
	})
}

// PromoteToAdmin elevates a member to admin. Admin only.
func (s *MembershipService) PromoteToAdmin(ctx context.Context, actorID, networkID, targetUserID uint) error {
	isAdmin, err := s.perms.IsAdmin(ctx, networkID, actorID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return models.NewForbiddenError("Only network admins can promote admins")
	}

	target, err := s.repos.Members.Get(ctx, networkID, targetUserID)
	if err != nil {
		return err
	}
	if target == nil {
		return models.NewNotFoundError("Membership", targetUserID)
	}
	if target.Role == models.NetworkRoleAdmin {
		return models.NewConflictError("User is already an admin")
	}

	if err := s.repos.Members.UpdateRole(ctx, networkID, targetUserID, models.NetworkRoleAdmin); err != nil {
		return err
	}
	cache.InvalidateNetwork(ctx, networkID)

	if err := publishEvent(ctx, s.publisher, bus.TopicMemberUpdates, bus.Event{
		Type:      bus.EventRoleChanged,
		Scope:     bus.ScopeNetwork,
		NetworkID: networkID,
		UserID:    targetUserID,
		Data:      map[string]interface{}{"role": string(models.NetworkRoleAdmin)},
	}); err != nil {
		return err
	}

	return publishEvent(ctx, s.publisher, bus.TopicNotifications, bus.Event{
		Type:      bus.EventRoleUpdate,
		Scope:     bus.ScopeUser,
		NetworkID: networkID,
		UserID:    targetUserID,
		Title:     "You are now an admin",
		Message:   "You were promoted to network admin",
	})
}

// ResignAdmin demotes the calling admin to plain member. The admin count
// check and the demotion run in one transaction, so two admins resigning
// concurrently can never leave the network unadministered.
func (s *MembershipService) ResignAdmin(ctx context.Context, actorID, networkID uint) error {
	err := s.uow.InTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		member, err := repos.Members.Get(ctx, networkID, actorID)
		if err != nil {
			return err
		}
		if member == nil || member.Role != models.NetworkRoleAdmin {
			return models.NewForbiddenError("Only admins can resign the admin role")
		}

		admins, err := repos.Members.CountAdmins(ctx, networkID)
		if err != nil {
			return err
		}
		if admins < 2 {
			return models.NewConflictError("Cannot resign as the only admin")
		}

		return repos.Members.UpdateRole(ctx, networkID, actorID, models.NetworkRoleMember)
	})
	if err != nil {
		return err
	}
	cache.InvalidateNetwork(ctx, networkID)

	return publishEvent(ctx, s.publisher, bus.TopicMemberUpdates, bus.Event{
		Type:      bus.EventRoleChanged,
		Scope:     bus.ScopeNetwork,
		NetworkID: networkID,
		UserID:    actorID,
		Data:      map[string]interface{}{"role": string(models.NetworkRoleMember)},
	})
}

// RemoveMember removes a member, or lets a member leave when actor and
// target match. Admins are never removable; an admin leaves by resigning
// first. Moderators can only remove plain members.
func (s *MembershipService) RemoveMember(ctx context.Context, actorID, networkID, targetUserID uint) error {
	target, err := s.repos.Members.Get(ctx, networkID, targetUserID)
	if err != nil {
		return err
	}
	if target == nil {
		return models.NewNotFoundError("Membership", targetUserID)
	}

	if actorID == targetUserID {
		if target.Role == models.NetworkRoleAdmin {
			return models.NewConflictError("Admins must resign before leaving")
		}
	} else {
		actorRole, isMember, err := s.perms.Role(ctx, networkID, actorID)
		if err != nil {
			return err
		}
		if !isMember || (actorRole != models.NetworkRoleAdmin && actorRole != models.NetworkRoleModerator) {
			return models.NewForbiddenError("Only admins and moderators can remove members")
		}
		if target.Role == models.NetworkRoleAdmin {
			return models.NewForbiddenError("Admins cannot be removed")
		}
		if actorRole == models.NetworkRoleModerator && target.Role.AtLeast(models.NetworkRoleModerator) {
			return models.NewForbiddenError("Moderators can only remove ordinary members")
		}
	}

	err = s.uow.InTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		if err := repos.Goals.DeleteMemberGoalsForUser(ctx, networkID, targetUserID); err != nil {
			return err
		}
		return repos.Members.Remove(ctx, networkID, targetUserID)
	})
	if err != nil {
		return err
	}
	cache.InvalidateNetwork(ctx, networkID)

	if err := publishEvent(ctx, s.publisher, bus.TopicMemberUpdates, bus.Event{
		Type:      bus.EventMemberRemoved,
		Scope:     bus.ScopeNetwork,
		NetworkID: networkID,
		UserID:    targetUserID,
	}); err != nil {
		return err
	}

	if actorID == targetUserID {
		return nil
	}
	return publishEvent(ctx, s.publisher, bus.TopicNotifications, bus.Event{
		Type:      bus.EventMemberRemoved,
		Scope:     bus.ScopeUser,
		NetworkID: networkID,
		UserID:    targetUserID,
		Title:     "Removed from network",
		Message:   "You were removed from the network",
	})
}
