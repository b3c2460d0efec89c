package service

import (
	"context"
	"time"

	"nexus/internal/bus"
	"nexus/internal/models"
	"nexus/internal/repository"

	"github.com/google/uuid"
)

// InvitationService issues single-use, per-user invitations into networks.
type InvitationService struct {
	repos     repository.Repos
	uow       repository.UnitOfWork
	perms     *PermissionEvaluator
	publisher bus.Publisher
	now       func() time.Time
}

// NewInvitationService returns a new InvitationService.
func NewInvitationService(repos repository.Repos, uow repository.UnitOfWork, perms *PermissionEvaluator, publisher bus.Publisher) *InvitationService {
	return &InvitationService{
		repos:     repos,
		uow:       uow,
		perms:     perms,
		publisher: publisher,
		now:       time.Now,
	}
}

// CreateInvitationsInput carries a batch of users to invite at one role.
type CreateInvitationsInput struct {
	UserIDs     []uint             `json:"user_ids"`
	Role        models.NetworkRole `json:"role"`
	ExpiryHours int                `json:"expiry_hours"`
}

// CreateInvitations invites each user at the given role. Admin only. Users
// who already hold a live invitation or a membership are skipped, not
// failed. Returns the invitations actually created.
func (s *InvitationService) CreateInvitations(ctx context.Context, actorID, networkID uint, input CreateInvitationsInput) ([]models.NetworkInvitation, error) {
	isAdmin, err := s.perms.IsAdmin(ctx, networkID, actorID)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, models.NewForbiddenError("Only network admins can send invitations")
	}

	if len(input.UserIDs) == 0 {
		return nil, models.NewValidationError("No users to invite")
	}
	role := input.Role
	if role == "" {
		role = models.NetworkRoleMember
	}
	if !role.Valid() || role == models.NetworkRoleAdmin {
		return nil, models.NewValidationError("Invitations cannot grant that role")
	}

	ttl := models.DefaultInvitationTTL
	if input.ExpiryHours > 0 {
		ttl = time.Duration(input.ExpiryHours) * time.Hour
	}

	now := s.now()
	expiresAt := now.Add(ttl)

	var created []models.NetworkInvitation
	err = s.uow.InTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		users, err := repos.Users.GetByIDs(ctx, input.UserIDs)
		if err != nil {
			return err
		}
		known := make(map[uint]struct{}, len(users))
		for _, u := range users {
			known[u.ID] = struct{}{}
		}

		var batch []models.NetworkInvitation
		for _, userID := range input.UserIDs {
			if _, ok := known[userID]; !ok {
				continue
			}
			member, err := repos.Members.Get(ctx, networkID, userID)
			if err != nil {
				return err
			}
			if member != nil {
				continue
			}
			active, err := repos.Invitations.GetActiveForUser(ctx, networkID, userID, now)
			if err != nil {
				return err
			}
			if active != nil {
				continue
			}
			batch = append(batch, models.NetworkInvitation{
				NetworkID:       networkID,
				InvitedUserID:   userID,
				InvitedByUserID: actorID,
				Role:            role,
				InviteToken:     uuid.NewString(),
				ExpiresAt:       expiresAt,
			})
		}
		if err := repos.Invitations.CreateBatch(ctx, batch); err != nil {
			return err
		}
		created = batch
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, invitation := range created {
		if err := publishEvent(ctx, s.publisher, bus.TopicNotifications, bus.Event{
			Type:      bus.EventNetworkInvitation,
			Scope:     bus.ScopeUser,
			NetworkID: networkID,
			UserID:    invitation.InvitedUserID,
			Title:     "Network invitation",
			Message:   "You were invited to join a network",
			Data:      map[string]interface{}{"role": string(invitation.Role)},
		}); err != nil {
			return nil, err
		}
	}

	return created, nil
}

// ListMyInvitations returns the caller's live invitations.
func (s *InvitationService) ListMyInvitations(ctx context.Context, userID uint) ([]models.NetworkInvitation, error) {
	return s.repos.Invitations.ListPendingForUser(ctx, userID, s.now())
}
