package service

import (
	"context"
	"fmt"
	"time"

	"nexus/internal/bus"
	"nexus/internal/cache"
	"nexus/internal/models"
	"nexus/internal/repository"
)

// Join outcome statuses returned to handlers.
const (
	JoinStatusJoined  = "joined"
	JoinStatusPending = "pending"
)

// JoinOutcome reports how a join attempt ended: immediate membership or a
// queued request awaiting review.
type JoinOutcome struct {
	Status string             `json:"status"`
	Role   models.NetworkRole `json:"role,omitempty"`
}

// JoinService owns every way into a network: approval-mode gated requests,
// invitation redemption, and admin review of queued requests.
type JoinService struct {
	repos     repository.Repos
	uow       repository.UnitOfWork
	perms     *PermissionEvaluator
	publisher bus.Publisher
	now       func() time.Time
}

// NewJoinService returns a new JoinService.
func NewJoinService(repos repository.Repos, uow repository.UnitOfWork, perms *PermissionEvaluator, publisher bus.Publisher) *JoinService {
	return &JoinService{
		repos:     repos,
		uow:       uow,
		perms:     perms,
		publisher: publisher,
		now:       time.Now,
	}
}

// RequestJoin routes a join attempt through the network's approval mode.
// Auto admits immediately, passcode compares and audits failures, manual
// queues the request for admin review.
func (s *JoinService) RequestJoin(ctx context.Context, userID, networkID uint, passcode *string) (*JoinOutcome, error) {
	network, err := s.repos.Networks.GetByID(ctx, networkID)
	if err != nil {
		return nil, err
	}

	if err := s.rejectDuplicate(ctx, networkID, userID); err != nil {
		return nil, err
	}

	switch network.ApprovalMode {
	case models.ApprovalModeAuto:
		if err := s.admit(ctx, networkID, userID, models.NetworkRoleMember); err != nil {
			return nil, err
		}
		return &JoinOutcome{Status: JoinStatusJoined, Role: models.NetworkRoleMember}, nil

	case models.ApprovalModePasscode:
		if err := s.verifyPasscode(ctx, network, userID, passcode, true); err != nil {
			return nil, err
		}
		if err := s.admit(ctx, networkID, userID, models.NetworkRoleMember); err != nil {
			return nil, err
		}
		return &JoinOutcome{Status: JoinStatusJoined, Role: models.NetworkRoleMember}, nil

	case models.ApprovalModeManual:
		if err := s.repos.Joins.Create(ctx, &models.PendingNetworkJoin{
			NetworkID: networkID,
			UserID:    userID,
			Status:    models.JoinRequestStatusPending,
		}); err != nil {
			return nil, err
		}
		if err := publishEvent(ctx, s.publisher, bus.TopicJoinRequests, bus.Event{
			Type:      bus.EventJoinRequestCreated,
			Scope:     bus.ScopeNetworkAdmins,
			NetworkID: networkID,
			UserID:    userID,
			Title:     "New join request",
			Message:   "A user asked to join the network",
		}); err != nil {
			return nil, err
		}
		return &JoinOutcome{Status: JoinStatusPending}, nil

	default:
		return nil, models.NewInternalError(fmt.Errorf("unknown approval mode %q", network.ApprovalMode))
	}
}

// JoinNetwork admits a user directly. An explicit redeemable invite token
// wins over every other gate; otherwise private networks require the
// passcode, and a live invitation silently upgrades the granted role.
func (s *JoinService) JoinNetwork(ctx context.Context, userID, networkID uint, inviteToken, passcode *string) (*JoinOutcome, error) {
	network, err := s.repos.Networks.GetByID(ctx, networkID)
	if err != nil {
		return nil, err
	}

	existing, err := s.repos.Members.Get(ctx, networkID, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, models.NewConflictError("Already a member of this network")
	}

	if inviteToken != nil && *inviteToken != "" {
		outcome, err := s.redeemInvitation(ctx, networkID, userID, *inviteToken)
		if err != nil {
			return nil, err
		}
		if outcome != nil {
			return outcome, nil
		}
		// A token that cannot be redeemed (unknown, expired, used, or
		// issued to someone else) is ignored and the ordinary gates apply.
	}

	if network.IsPrivate {
		if err := s.verifyPasscode(ctx, network, userID, passcode, false); err != nil {
			return nil, err
		}
	}

	role := models.NetworkRoleMember
	invitation, err := s.repos.Invitations.GetActiveForUser(ctx, networkID, userID, s.now())
	if err != nil {
		return nil, err
	}

	err = s.uow.InTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		if invitation != nil {
			role = invitation.Role
			if err := repos.Invitations.MarkUsed(ctx, invitation.ID); err != nil {
				return err
			}
		}
		return repos.Members.Add(ctx, &models.NetworkMember{
			NetworkID: networkID,
			UserID:    userID,
			Role:      role,
		})
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateNetwork(ctx, networkID)

	if err := s.publishJoined(ctx, networkID, userID, role); err != nil {
		return nil, err
	}
	return &JoinOutcome{Status: JoinStatusJoined, Role: role}, nil
}

// HandleJoinRequest approves or rejects a queued manual-mode request.
// Admins and moderators only.
func (s *JoinService) HandleJoinRequest(ctx context.Context, actorID, requestID uint, approve bool) error {
	request, err := s.repos.Joins.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if request.Status != models.JoinRequestStatusPending {
		return models.NewConflictError("Join request was already handled")
	}

	allowed, err := s.perms.HasAnyRole(ctx, request.NetworkID, actorID, models.NetworkRoleAdmin, models.NetworkRoleModerator)
	if err != nil {
		return err
	}
	if !allowed {
		return models.NewForbiddenError("Only admins and moderators can handle join requests")
	}

	if !approve {
		if err := s.repos.Joins.UpdateStatus(ctx, requestID, models.JoinRequestStatusRejected); err != nil {
			return err
		}
		return publishEvent(ctx, s.publisher, bus.TopicNotifications, bus.Event{
			Type:      bus.EventJoinRequestReject,
			Scope:     bus.ScopeUser,
			NetworkID: request.NetworkID,
			UserID:    request.UserID,
			Title:     "Join request declined",
			Message:   "Your request to join the network was declined",
		})
	}

	err = s.uow.InTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		if err := repos.Members.Add(ctx, &models.NetworkMember{
			NetworkID: request.NetworkID,
			UserID:    request.UserID,
			Role:      models.NetworkRoleMember,
		}); err != nil {
			return err
		}
		return repos.Joins.UpdateStatus(ctx, requestID, models.JoinRequestStatusApproved)
	})
	if err != nil {
		return err
	}
	cache.InvalidateNetwork(ctx, request.NetworkID)

	if err := s.publishJoined(ctx, request.NetworkID, request.UserID, models.NetworkRoleMember); err != nil {
		return err
	}
	return publishEvent(ctx, s.publisher, bus.TopicNotifications, bus.Event{
		Type:      bus.EventJoinRequestApprove,
		Scope:     bus.ScopeUser,
		NetworkID: request.NetworkID,
		UserID:    request.UserID,
		Title:     "Join request approved",
		Message:   "You are now a member of the network",
	})
}

// ListPendingRequests returns a network's open join requests for review.
func (s *JoinService) ListPendingRequests(ctx context.Context, actorID, networkID uint) ([]models.PendingNetworkJoin, error) {
	allowed, err := s.perms.HasAnyRole(ctx, networkID, actorID, models.NetworkRoleAdmin, models.NetworkRoleModerator)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, models.NewForbiddenError("Only admins and moderators can view join requests")
	}
	return s.repos.Joins.ListPendingByNetwork(ctx, networkID)
}

// redeemInvitation admits the user when the token is redeemable by them for
// this network. A token that cannot be redeemed yields a nil outcome so the
// caller falls back to the ordinary join gates instead of rejecting.
func (s *JoinService) redeemInvitation(ctx context.Context, networkID, userID uint, token string) (*JoinOutcome, error) {
	invitation, err := s.repos.Invitations.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if invitation == nil || invitation.NetworkID != networkID ||
		invitation.InvitedUserID != userID || !invitation.Redeemable(s.now()) {
		return nil, nil
	}

	err = s.uow.InTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		if err := repos.Invitations.MarkUsed(ctx, invitation.ID); err != nil {
			return err
		}
		return repos.Members.Add(ctx, &models.NetworkMember{
			NetworkID: networkID,
			UserID:    userID,
			Role:      invitation.Role,
		})
	})
	if err != nil {
		return nil, err
	}
	cache.InvalidateNetwork(ctx, networkID)

	if err := s.publishJoined(ctx, networkID, userID, invitation.Role); err != nil {
		return nil, err
	}
	return &JoinOutcome{Status: JoinStatusJoined, Role: invitation.Role}, nil
}

// verifyPasscode gates a join on the network passcode. A missing passcode
// is rejected as invalid input before anything is written; a wrong one is
// forbidden, and when audit is set every mismatch lands as a fresh rejected
// row carrying the attempted code.
func (s *JoinService) verifyPasscode(ctx context.Context, network *models.Network, userID uint, passcode *string, audit bool) error {
	if passcode == nil || *passcode == "" {
		return models.NewValidationError("Passcode is required")
	}
	if network.Passcode != nil && *passcode == *network.Passcode {
		return nil
	}

	if audit {
		if err := s.repos.Joins.Create(ctx, &models.PendingNetworkJoin{
			NetworkID:       network.ID,
			UserID:          userID,
			Status:          models.JoinRequestStatusRejected,
			PasscodeAttempt: passcode,
		}); err != nil {
			return err
		}
	}
	return models.NewForbiddenError("Incorrect passcode")
}

func (s *JoinService) rejectDuplicate(ctx context.Context, networkID, userID uint) error {
	existing, err := s.repos.Members.Get(ctx, networkID, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return models.NewConflictError("Already a member of this network")
	}

	pending, err := s.repos.Joins.GetPending(ctx, networkID, userID)
	if err != nil {
		return err
	}
	if pending != nil {
		return models.NewConflictError("A join request is already pending")
	}
	return nil
}

func (s *JoinService) admit(ctx context.Context, networkID, userID uint, role models.NetworkRole) error {
	if err := s.repos.Members.Add(ctx, &models.NetworkMember{
		NetworkID: networkID,
		UserID:    userID,
		Role:      role,
	}); err != nil {
		return err
	}
	cache.InvalidateNetwork(ctx, networkID)
	return s.publishJoined(ctx, networkID, userID, role)
}

func (s *JoinService) publishJoined(ctx context.Context, networkID, userID uint, role models.NetworkRole) error {
	return publishEvent(ctx, s.publisher, bus.TopicMemberUpdates, bus.Event{
		Type:      bus.EventMemberJoined,
		Scope:     bus.ScopeNetwork,
		NetworkID: networkID,
		UserID:    userID,
		Data:      map[string]interface{}{"role": string(role)},
	})
}
