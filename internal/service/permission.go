// Package service implements the membership, join, invitation, and lifecycle
// business logic on top of the repository layer.
package service

import (
	"context"

	"nexus/internal/models"
	"nexus/internal/repository"
)

// PermissionEvaluator answers role questions from committed membership state.
// It never caches: a role revoked in one request is gone for the next check.
type PermissionEvaluator struct {
	members repository.MembershipRepository
}

// NewPermissionEvaluator returns a new PermissionEvaluator.
func NewPermissionEvaluator(members repository.MembershipRepository) *PermissionEvaluator {
	return &PermissionEvaluator{members: members}
}

// Role returns the user's role in the network and whether they are a member.
func (p *PermissionEvaluator) Role(ctx context.Context, networkID, userID uint) (models.NetworkRole, bool, error) {
	member, err := p.members.Get(ctx, networkID, userID)
	if err != nil {
		return "", false, err
	}
	if member == nil {
		return "", false, nil
	}
	return member.Role, true, nil
}

// HasAnyRole reports whether the user holds one of the given roles.
func (p *PermissionEvaluator) HasAnyRole(ctx context.Context, networkID, userID uint, roles ...models.NetworkRole) (bool, error) {
	role, isMember, err := p.Role(ctx, networkID, userID)
	if err != nil {
		return false, err
	}
	if !isMember {
		return false, nil
	}
	for _, want := range roles {
		if role == want {
			return true, nil
		}
	}
	return false, nil
}

// IsAdmin reports whether the user is an admin of the network.
func (p *PermissionEvaluator) IsAdmin(ctx context.Context, networkID, userID uint) (bool, error) {
	return p.HasAnyRole(ctx, networkID, userID, models.NetworkRoleAdmin)
}
