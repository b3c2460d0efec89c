package service

import (
	"context"
	"log/slog"
	"time"

	"nexus/internal/bus"
	"nexus/internal/cache"
	"nexus/internal/middleware"
	"nexus/internal/models"
	"nexus/internal/observability"
	"nexus/internal/repository"
	"nexus/internal/validation"

	"github.com/google/uuid"
)

const (
	tagGenerationAttempts = 5
	sweepBatchSize        = 100
)

// AvatarGenerator renders a network avatar. Generation is best-effort during
// network creation; a failure is logged, never surfaced.
type AvatarGenerator interface {
	Generate(networkID uint, tagName string) (string, error)
}

// NetworkService owns the network aggregate: creation, settings, passcode
// rotation, and the suspend/restore/permanent-delete lifecycle.
type NetworkService struct {
	repos     repository.Repos
	uow       repository.UnitOfWork
	perms     *PermissionEvaluator
	publisher bus.Publisher
	avatars   AvatarGenerator
	baseURL   string
	now       func() time.Time
}

// NewNetworkService returns a new NetworkService.
func NewNetworkService(repos repository.Repos, uow repository.UnitOfWork, perms *PermissionEvaluator, publisher bus.Publisher, avatars AvatarGenerator, baseURL string) *NetworkService {
	return &NetworkService{
		repos:     repos,
		uow:       uow,
		perms:     perms,
		publisher: publisher,
		avatars:   avatars,
		baseURL:   baseURL,
		now:       time.Now,
	}
}

// CreateNetworkInput carries the caller-supplied fields for a new network.
type CreateNetworkInput struct {
	Name         string              `json:"name"`
	Description  string              `json:"description"`
	IsPrivate    bool                `json:"is_private"`
	ApprovalMode models.ApprovalMode `json:"approval_mode"`
	Passcode     *string             `json:"passcode,omitempty"`
}

// CreateNetwork validates the input, generates a unique tag, and atomically
// creates the network with its creator as admin.
func (s *NetworkService) CreateNetwork(ctx context.Context, userID uint, input CreateNetworkInput) (*models.Network, error) {
	if err := validation.ValidateNetworkName(input.Name); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	mode := input.ApprovalMode
	if mode == "" {
		mode = models.ApprovalModeAuto
	}
	if !models.ValidApprovalMode(mode) {
		return nil, models.NewValidationError("Unknown approval mode")
	}

	if mode == models.ApprovalModePasscode || input.IsPrivate {
		if input.Passcode == nil {
			return nil, models.NewValidationError("A passcode is required for private or passcode-protected networks")
		}
	}
	if input.Passcode != nil {
		if err := validation.ValidatePasscode(*input.Passcode); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
	}

	slug := slugify(input.Name)
	if err := validation.ValidateTagSlug(slug); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	tag, err := s.uniqueTag(ctx, slug)
	if err != nil {
		return nil, err
	}

	now := s.now()
	network := &models.Network{
		Name:             input.Name,
		TagName:          tag,
		Description:      input.Description,
		Avatar:           "",
		IsPrivate:        input.IsPrivate,
		ApprovalMode:     mode,
		SuspensionStatus: models.SuspensionStatusActive,
	}
	if input.Passcode != nil {
		network.Passcode = input.Passcode
		network.LastPasscodeUpdate = &now
	}

	err = s.uow.InTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		if err := repos.Networks.Create(ctx, network); err != nil {
			return err
		}
		return repos.Members.Add(ctx, &models.NetworkMember{
			NetworkID: network.ID,
			UserID:    userID,
			Role:      models.NetworkRoleAdmin,
		})
	})
	if err != nil {
		return nil, err
	}

	// Avatar generation is enrichment only. The network exists without one.
	if s.avatars != nil {
		if avatarURL, avatarErr := s.avatars.Generate(network.ID, network.TagName); avatarErr != nil {
			middleware.Logger.WarnContext(ctx, "avatar generation failed",
				slog.Uint64("network_id", uint64(network.ID)),
				slog.String("error", avatarErr.Error()),
			)
		} else {
			network.Avatar = avatarURL
			if saveErr := s.repos.Networks.Update(ctx, network); saveErr != nil {
				middleware.Logger.WarnContext(ctx, "avatar save failed",
					slog.Uint64("network_id", uint64(network.ID)),
					slog.String("error", saveErr.Error()),
				)
			}
		}
	}

	if err := s.publish(ctx, bus.TopicNetworkUpdates, bus.Event{
		Type:      bus.EventNetworkCreated,
		Scope:     bus.ScopeUser,
		NetworkID: network.ID,
		UserID:    userID,
		Title:     "Network created",
		Message:   network.Name + " is live",
		Data:      map[string]interface{}{"tag_name": network.TagName},
	}); err != nil {
		return nil, err
	}

	return network, nil
}

func (s *NetworkService) uniqueTag(ctx context.Context, slug string) (string, error) {
	for attempt := 0; attempt < tagGenerationAttempts; attempt++ {
		tag, err := newTag(slug)
		if err != nil {
			return "", models.NewInternalError(err)
		}
		existing, err := s.repos.Networks.GetByTag(ctx, tag)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return tag, nil
		}
	}
	return "", models.NewConflictError("Could not generate a unique tag, try again")
}

// GetNetwork fetches a network, serving from cache when possible.
func (s *NetworkService) GetNetwork(ctx context.Context, networkID uint) (*models.Network, error) {
	var cached models.Network
	if cache.Get(ctx, cache.NetworkKey(networkID), &cached) {
		return &cached, nil
	}

	network, err := s.repos.Networks.GetByID(ctx, networkID)
	if err != nil {
		return nil, err
	}
	cache.Set(ctx, cache.NetworkKey(networkID), network, cache.NetworkTTL)
	return network, nil
}

// SearchNetworks returns active networks matching the query.
func (s *NetworkService) SearchNetworks(ctx context.Context, query string, limit, offset int) ([]models.Network, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}
	return s.repos.Networks.Search(ctx, query, limit, offset)
}

// EditNetworkInput carries the optional fields an admin may change.
type EditNetworkInput struct {
	Name         *string              `json:"name,omitempty"`
	Description  *string              `json:"description,omitempty"`
	IsPrivate    *bool                `json:"is_private,omitempty"`
	ApprovalMode *models.ApprovalMode `json:"approval_mode,omitempty"`
	Passcode     *string              `json:"passcode,omitempty"`
}

// EditNetwork updates network settings. Admin only. A network switched to
// passcode mode or made private must have a passcode on record.
func (s *NetworkService) EditNetwork(ctx context.Context, userID, networkID uint, input EditNetworkInput) (*models.Network, error) {
	if err := s.requireAdmin(ctx, networkID, userID); err != nil {
		return nil, err
	}

	network, err := s.repos.Networks.GetByID(ctx, networkID)
	if err != nil {
		return nil, err
	}
	if network.IsSuspended() {
		return nil, models.NewConflictError("Network is suspended")
	}

	if input.Name != nil {
		if err := validation.ValidateNetworkName(*input.Name); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		network.Name = *input.Name
	}
	if input.Description != nil {
		network.Description = *input.Description
	}
	if input.ApprovalMode != nil {
		if !models.ValidApprovalMode(*input.ApprovalMode) {
			return nil, models.NewValidationError("Unknown approval mode")
		}
		network.ApprovalMode = *input.ApprovalMode
	}
	if input.IsPrivate != nil {
		network.IsPrivate = *input.IsPrivate
	}
	if input.Passcode != nil {
		if err := validation.ValidatePasscode(*input.Passcode); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		now := s.now()
		network.Passcode = input.Passcode
		network.LastPasscodeUpdate = &now
	}

	needsPasscode := network.ApprovalMode == models.ApprovalModePasscode || network.IsPrivate
	if needsPasscode && network.Passcode == nil {
		return nil, models.NewValidationError("A passcode is required for private or passcode-protected networks")
	}

	if err := s.repos.Networks.Update(ctx, network); err != nil {
		return nil, err
	}
	cache.InvalidateNetwork(ctx, networkID)

	if err := s.publish(ctx, bus.TopicNetworkUpdates, bus.Event{
		Type:      bus.EventNetworkUpdated,
		Scope:     bus.ScopeNetwork,
		NetworkID: networkID,
		UserID:    userID,
		Message:   "Network settings updated",
	}); err != nil {
		return nil, err
	}

	return network, nil
}

// UpdatePasscode rotates the passcode of a private or passcode-mode network
// and stamps the rotation time.
func (s *NetworkService) UpdatePasscode(ctx context.Context, userID, networkID uint, passcode string) error {
	if err := s.requireAdmin(ctx, networkID, userID); err != nil {
		return err
	}

	network, err := s.repos.Networks.GetByID(ctx, networkID)
	if err != nil {
		return err
	}
	if network.IsSuspended() {
		return models.NewConflictError("Network is suspended")
	}
	if network.ApprovalMode != models.ApprovalModePasscode && !network.IsPrivate {
		return models.NewValidationError("Network does not use a passcode")
	}
	if err := validation.ValidatePasscode(passcode); err != nil {
		return models.NewValidationError(err.Error())
	}

	now := s.now()
	network.Passcode = &passcode
	network.LastPasscodeUpdate = &now
	if err := s.repos.Networks.Update(ctx, network); err != nil {
		return err
	}
	cache.InvalidateNetwork(ctx, networkID)

	return s.publish(ctx, bus.TopicNetworkUpdates, bus.Event{
		Type:      bus.EventPasscodeUpdated,
		Scope:     bus.ScopeNetworkAdmins,
		NetworkID: networkID,
		UserID:    userID,
		Message:   "Network passcode was rotated",
	})
}

// ShareLink composes the join link for a network.
func (s *NetworkService) ShareLink(ctx context.Context, networkID uint) (string, error) {
	network, err := s.GetNetwork(ctx, networkID)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/join/" + network.TagName, nil
}

// Suspend pauses a network for the reclaim window. Returns the one-time
// reclaim token given to the suspending admin.
func (s *NetworkService) Suspend(ctx context.Context, userID, networkID uint) (string, error) {
	if err := s.requireAdmin(ctx, networkID, userID); err != nil {
		return "", err
	}

	network, err := s.repos.Networks.GetByID(ctx, networkID)
	if err != nil {
		return "", err
	}
	if network.IsSuspended() {
		return "", models.NewConflictError("Network is already suspended")
	}

	now := s.now()
	expires := now.Add(models.SuspensionWindow)
	token := uuid.NewString()

	network.Name = network.SuspendedName()
	network.SuspensionStatus = models.SuspensionStatusSuspended
	network.SuspendedAt = &now
	network.SuspendedByUserID = &userID
	network.SuspensionToken = &token
	network.SuspensionExpiresAt = &expires

	if err := s.repos.Networks.Update(ctx, network); err != nil {
		return "", err
	}
	cache.InvalidateNetwork(ctx, networkID)

	if err := s.publish(ctx, bus.TopicNetworkUpdates, bus.Event{
		Type:      bus.EventNetworkSuspended,
		Scope:     bus.ScopeNetwork,
		NetworkID: networkID,
		UserID:    userID,
		Title:     "Network suspended",
		Message:   network.RestoredName() + " was suspended and will be deleted unless restored",
		Data:      map[string]interface{}{"expires_at": expires},
	}); err != nil {
		return "", err
	}

	return token, nil
}

// Restore reclaims a suspended network before its window expires. Allowed
// for the network's admins or the holder of the reclaim token.
func (s *NetworkService) Restore(ctx context.Context, userID, networkID uint, token string) (*models.Network, error) {
	network, err := s.repos.Networks.GetByID(ctx, networkID)
	if err != nil {
		return nil, err
	}
	if !network.IsSuspended() {
		return nil, models.NewConflictError("Network is not suspended")
	}
	if network.SuspensionExpiresAt != nil && s.now().After(*network.SuspensionExpiresAt) {
		return nil, models.NewConflictError("Suspension window has expired")
	}

	tokenMatches := token != "" && network.SuspensionToken != nil && *network.SuspensionToken == token
	if !tokenMatches {
		isAdmin, err := s.perms.IsAdmin(ctx, networkID, userID)
		if err != nil {
			return nil, err
		}
		if !isAdmin {
			return nil, models.NewForbiddenError("Only an admin or the reclaim token holder can restore this network")
		}
	}

	network.Name = network.RestoredName()
	network.SuspensionStatus = models.SuspensionStatusActive
	network.SuspendedAt = nil
	network.SuspendedByUserID = nil
	network.SuspensionToken = nil
	network.SuspensionExpiresAt = nil

	if err := s.repos.Networks.Update(ctx, network); err != nil {
		return nil, err
	}
	cache.InvalidateNetwork(ctx, networkID)

	if err := s.publish(ctx, bus.TopicNetworkUpdates, bus.Event{
		Type:      bus.EventNetworkRestored,
		Scope:     bus.ScopeNetwork,
		NetworkID: networkID,
		UserID:    userID,
		Title:     "Network restored",
		Message:   network.Name + " is active again",
	}); err != nil {
		return nil, err
	}

	return network, nil
}

// CleanupExpiredSuspensions permanently deletes every network whose
// suspension window has lapsed. Each network is deleted in its own
// transaction; one failure never blocks the rest of the batch.
func (s *NetworkService) CleanupExpiredSuspensions(ctx context.Context) (int, error) {
	expired, err := s.repos.Networks.ListExpiredSuspensions(ctx, s.now(), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, network := range expired {
		if err := s.purgeNetwork(ctx, network.ID); err != nil {
			middleware.Logger.ErrorContext(ctx, "failed to delete expired network",
				slog.Uint64("network_id", uint64(network.ID)),
				slog.String("error", err.Error()),
			)
			continue
		}
		deleted++
		observability.SweepDeletions.Inc()
		cache.InvalidateNetwork(ctx, network.ID)

		if err := s.publish(ctx, bus.TopicNetworkUpdates, bus.Event{
			Type:      bus.EventNetworkDeleted,
			Scope:     bus.ScopeNetwork,
			NetworkID: network.ID,
			Title:     "Network deleted",
			Message:   network.RestoredName() + " was permanently deleted",
		}); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish deletion event",
				slog.Uint64("network_id", uint64(network.ID)),
				slog.String("error", err.Error()),
			)
		}
	}

	return deleted, nil
}

// purgeNetwork removes a network and everything referencing it. Dependent
// rows go first so the delete can never leave orphans behind.
func (s *NetworkService) purgeNetwork(ctx context.Context, networkID uint) error {
	return s.uow.InTx(ctx, func(ctx context.Context, repos repository.Repos) error {
		if err := repos.Goals.DeleteAllForNetwork(ctx, networkID); err != nil {
			return err
		}
		if err := repos.Joins.DeleteAllForNetwork(ctx, networkID); err != nil {
			return err
		}
		if err := repos.Invitations.DeleteAllForNetwork(ctx, networkID); err != nil {
			return err
		}
		if err := repos.Members.DeleteAllForNetwork(ctx, networkID); err != nil {
			return err
		}
		return repos.Networks.Delete(ctx, networkID)
	})
}

func (s *NetworkService) requireAdmin(ctx context.Context, networkID, userID uint) error {
	isAdmin, err := s.perms.IsAdmin(ctx, networkID, userID)
	if err != nil {
		return err
	}
	if !isAdmin {
		return models.NewForbiddenError("Only network admins can do that")
	}
	return nil
}

func (s *NetworkService) publish(ctx context.Context, topic bus.Topic, event bus.Event) error {
	return publishEvent(ctx, s.publisher, topic, event)
}
