package service

import (
	"context"
	"testing"
	"time"

	"nexus/internal/bus"
	"nexus/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newJoinService(e *testEnv) *JoinService {
	return NewJoinService(e.repos, e.uow, e.perms, e.publisher)
}

func strPtr(s string) *string { return &s }

func TestRequestJoinAutoMode(t *testing.T) {
	e := newTestEnv(t)
	svc := newJoinService(e)
	ctx := context.Background()

	user := e.seedUser(t, "Ben", "ben@example.com")
	network := e.seedNetwork(t, "Open Door", "@opendoor111111", models.ApprovalModeAuto)

	outcome, err := svc.RequestJoin(ctx, user.ID, network.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, JoinStatusJoined, outcome.Status)
	assert.Equal(t, models.NetworkRoleMember, outcome.Role)

	member, err := e.repos.Members.Get(ctx, network.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, member)

	assert.Contains(t, e.publisher.eventTypes(), bus.EventMemberJoined)

	// Joining twice conflicts.
	_, err = svc.RequestJoin(ctx, user.ID, network.ID, nil)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFLICT", appErr.Code)
}

func TestRequestJoinPasscodeMode(t *testing.T) {
	e := newTestEnv(t)
	svc := newJoinService(e)
	ctx := context.Background()

	user := e.seedUser(t, "Ben", "ben@example.com")
	network := e.seedNetwork(t, "Gated", "@gated22222222", models.ApprovalModePasscode)
	code := "orchid-gate"
	require.NoError(t, e.db.Model(network).Update("passcode", code).Error)

	// Wrong passcode: forbidden plus a fresh rejected audit row.
	_, err := svc.RequestJoin(ctx, user.ID, network.ID, strPtr("wrong"))
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)

	_, err = svc.RequestJoin(ctx, user.ID, network.ID, strPtr("also-wrong"))
	require.Error(t, err)

	var audits []models.PendingNetworkJoin
	require.NoError(t, e.db.Where("network_id = ? AND user_id = ? AND status = ?",
		network.ID, user.ID, models.JoinRequestStatusRejected).Find(&audits).Error)
	require.Len(t, audits, 2)
	require.NotNil(t, audits[0].PasscodeAttempt)
	assert.Equal(t, "wrong", *audits[0].PasscodeAttempt)

	// Correct passcode admits.
	outcome, err := svc.RequestJoin(ctx, user.ID, network.ID, &code)
	require.NoError(t, err)
	assert.Equal(t, JoinStatusJoined, outcome.Status)
}

func TestRequestJoinManualMode(t *testing.T) {
	e := newTestEnv(t)
	svc := newJoinService(e)
	ctx := context.Background()

	user := e.seedUser(t, "Ben", "ben@example.com")
	network := e.seedNetwork(t, "Reviewed", "@reviewed333333", models.ApprovalModeManual)

	outcome, err := svc.RequestJoin(ctx, user.ID, network.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, JoinStatusPending, outcome.Status)

	pending, err := e.repos.Joins.GetPending(ctx, network.ID, user.ID)
	require.NoError(t, err)
	require.NotNil(t, pending)

	assert.Contains(t, e.publisher.eventTypes(), bus.EventJoinRequestCreated)

	// Duplicate pending request conflicts.
	_, err = svc.RequestJoin(ctx, user.ID, network.ID, nil)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFLICT", appErr.Code)
}

func TestHandleJoinRequest(t *testing.T) {
	e := newTestEnv(t)
	svc := newJoinService(e)
	ctx := context.Background()

	admin := e.seedUser(t, "Ada", "ada@example.com")
	moderator := e.seedUser(t, "Mo", "mo@example.com")
	outsider := e.seedUser(t, "Out", "out@example.com")
	applicant := e.seedUser(t, "Ben", "ben@example.com")
	network := e.seedNetwork(t, "Reviewed", "@reviewed444444", models.ApprovalModeManual)
	e.seedMember(t, network.ID, admin.ID, models.NetworkRoleAdmin)
	e.seedMember(t, network.ID, moderator.ID, models.NetworkRoleModerator)

	_, err := svc.RequestJoin(ctx, applicant.ID, network.ID, nil)
	require.NoError(t, err)
	request, err := e.repos.Joins.GetPending(ctx, network.ID, applicant.ID)
	require.NoError(t, err)

	// Outsiders cannot review.
	var appErr *models.AppError
	err = svc.HandleJoinRequest(ctx, outsider.ID, request.ID, true)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)

	// Moderator approves: membership plus status flip, atomically.
	require.NoError(t, svc.HandleJoinRequest(ctx, moderator.ID, request.ID, true))

	member, err := e.repos.Members.Get(ctx, network.ID, applicant.ID)
	require.NoError(t, err)
	require.NotNil(t, member)
	assert.Equal(t, models.NetworkRoleMember, member.Role)

	handled, err := e.repos.Joins.GetByID(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JoinRequestStatusApproved, handled.Status)

	// Handling again conflicts.
	err = svc.HandleJoinRequest(ctx, admin.ID, request.ID, false)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFLICT", appErr.Code)

	assert.Contains(t, e.publisher.eventTypes(), bus.EventJoinRequestApprove)
}

func TestHandleJoinRequestReject(t *testing.T) {
	e := newTestEnv(t)
	svc := newJoinService(e)
	ctx := context.Background()

	admin := e.seedUser(t, "Ada", "ada@example.com")
	applicant := e.seedUser(t, "Ben", "ben@example.com")
	network := e.seedNetwork(t, "Reviewed", "@reviewed555555", models.ApprovalModeManual)
	e.seedMember(t, network.ID, admin.ID, models.NetworkRoleAdmin)

	_, err := svc.RequestJoin(ctx, applicant.ID, network.ID, nil)
	require.NoError(t, err)
	request, err := e.repos.Joins.GetPending(ctx, network.ID, applicant.ID)
	require.NoError(t, err)

	require.NoError(t, svc.HandleJoinRequest(ctx, admin.ID, request.ID, false))

	member, err := e.repos.Members.Get(ctx, network.ID, applicant.ID)
	require.NoError(t, err)
	assert.Nil(t, member)

	assert.Contains(t, e.publisher.eventTypes(), bus.EventJoinRequestReject)
}

func TestJoinNetworkInviteTokenPrecedence(t *testing.T) {
	e := newTestEnv(t)
	svc := newJoinService(e)
	ctx := context.Background()

	admin := e.seedUser(t, "Ada", "ada@example.com")
	invitee := e.seedUser(t, "Ben", "ben@example.com")
	network := e.seedNetwork(t, "Private Hall", "@privatehall666", models.ApprovalModePasscode)
	require.NoError(t, e.db.Model(network).Updates(map[string]interface{}{
		"is_private": true,
		"passcode":   "orchid-gate",
	}).Error)
	e.seedMember(t, network.ID, admin.ID, models.NetworkRoleAdmin)

	invitation := &models.NetworkInvitation{
		NetworkID:       network.ID,
		InvitedUserID:   invitee.ID,
		InvitedByUserID: admin.ID,
		Role:            models.NetworkRoleVIP,
		InviteToken:     "tok-precedence",
		ExpiresAt:       time.Now().Add(time.Hour),
	}
	require.NoError(t, e.db.Create(invitation).Error)

	// Token wins: no passcode needed despite the private network.
	outcome, err := svc.JoinNetwork(ctx, invitee.ID, network.ID, strPtr("tok-precedence"), nil)
	require.NoError(t, err)
	assert.Equal(t, JoinStatusJoined, outcome.Status)
	assert.Equal(t, models.NetworkRoleVIP, outcome.Role)

	used, err := e.repos.Invitations.GetByToken(ctx, "tok-precedence")
	require.NoError(t, err)
	assert.True(t, used.IsUsed)

	// Redeeming again: the holder is already a member, so the second
	// attempt conflicts and the membership count stays at one insertion.
	var appErr *models.AppError
	_, err = svc.JoinNetwork(ctx, invitee.ID, network.ID, strPtr("tok-precedence"), nil)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFLICT", appErr.Code)

	var memberships int64
	require.NoError(t, e.db.Model(&models.NetworkMember{}).
		Where("network_id = ? AND user_id = ?", network.ID, invitee.ID).
		Count(&memberships).Error)
	assert.EqualValues(t, 1, memberships)
}

func TestJoinNetworkUnredeemableTokenFallsThrough(t *testing.T) {
	e := newTestEnv(t)
	svc := newJoinService(e)
	ctx := context.Background()

	admin := e.seedUser(t, "Ada", "ada@example.com")
	invitee := e.seedUser(t, "Ben", "ben@example.com")
	other := e.seedUser(t, "Cal", "cal@example.com")
	stranger := e.seedUser(t, "Dot", "dot@example.com")
	network := e.seedNetwork(t, "Hall", "@hall7777777777", models.ApprovalModeAuto)
	e.seedMember(t, network.ID, admin.ID, models.NetworkRoleAdmin)

	require.NoError(t, e.db.Create(&models.NetworkInvitation{
		NetworkID:       network.ID,
		InvitedUserID:   invitee.ID,
		InvitedByUserID: admin.ID,
		Role:            models.NetworkRoleVIP,
		InviteToken:     "tok-expired",
		ExpiresAt:       time.Now().Add(-time.Hour),
	}).Error)

	// Expired token: ignored, the open network admits as plain member and
	// the invitation stays unused.
	outcome, err := svc.JoinNetwork(ctx, invitee.ID, network.ID, strPtr("tok-expired"), nil)
	require.NoError(t, err)
	assert.Equal(t, JoinStatusJoined, outcome.Status)
	assert.Equal(t, models.NetworkRoleMember, outcome.Role)

	expired, err := e.repos.Invitations.GetByToken(ctx, "tok-expired")
	require.NoError(t, err)
	assert.False(t, expired.IsUsed)

	// Someone else's token: ignored, no role granted, invitation untouched.
	require.NoError(t, e.db.Create(&models.NetworkInvitation{
		NetworkID:       network.ID,
		InvitedUserID:   stranger.ID,
		InvitedByUserID: admin.ID,
		Role:            models.NetworkRoleLeader,
		InviteToken:     "tok-wrong-user",
		ExpiresAt:       time.Now().Add(time.Hour),
	}).Error)

	outcome, err = svc.JoinNetwork(ctx, other.ID, network.ID, strPtr("tok-wrong-user"), nil)
	require.NoError(t, err)
	assert.Equal(t, models.NetworkRoleMember, outcome.Role)

	pending, err := e.repos.Invitations.GetByToken(ctx, "tok-wrong-user")
	require.NoError(t, err)
	assert.False(t, pending.IsUsed)

	// Unknown token: ignored.
	outcome, err = svc.JoinNetwork(ctx, stranger.ID, network.ID, strPtr("tok-missing"), nil)
	require.NoError(t, err)
	// The stranger's own live invitation is still granted silently.
	assert.Equal(t, models.NetworkRoleLeader, outcome.Role)
}

func TestJoinNetworkUnredeemableTokenStillGated(t *testing.T) {
	e := newTestEnv(t)
	svc := newJoinService(e)
	ctx := context.Background()

	user := e.seedUser(t, "Ben", "ben@example.com")
	network := e.seedNetwork(t, "Private Hall", "@privatehallbbb", models.ApprovalModeAuto)
	require.NoError(t, e.db.Model(network).Updates(map[string]interface{}{
		"is_private": true,
		"passcode":   "orchid-gate",
	}).Error)

	// The bogus token does not bypass the private-network passcode.
	var appErr *models.AppError
	_, err := svc.JoinNetwork(ctx, user.ID, network.ID, strPtr("tok-bogus"), strPtr("nope"))
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
}

func TestJoinNetworkSilentInvitationGrant(t *testing.T) {
	e := newTestEnv(t)
	svc := newJoinService(e)
	ctx := context.Background()

	admin := e.seedUser(t, "Ada", "ada@example.com")
	invitee := e.seedUser(t, "Ben", "ben@example.com")
	network := e.seedNetwork(t, "Hall", "@hall8888888888", models.ApprovalModeAuto)
	e.seedMember(t, network.ID, admin.ID, models.NetworkRoleAdmin)

	require.NoError(t, e.db.Create(&models.NetworkInvitation{
		NetworkID:       network.ID,
		InvitedUserID:   invitee.ID,
		InvitedByUserID: admin.ID,
		Role:            models.NetworkRoleLeader,
		InviteToken:     "tok-silent",
		ExpiresAt:       time.Now().Add(time.Hour),
	}).Error)

	// No token supplied, but the live invitation still grants its role.
	outcome, err := svc.JoinNetwork(ctx, invitee.ID, network.ID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.NetworkRoleLeader, outcome.Role)

	used, err := e.repos.Invitations.GetByToken(ctx, "tok-silent")
	require.NoError(t, err)
	assert.True(t, used.IsUsed)
}

func TestJoinNetworkPrivatePasscodeGate(t *testing.T) {
	e := newTestEnv(t)
	svc := newJoinService(e)
	ctx := context.Background()

	user := e.seedUser(t, "Ben", "ben@example.com")
	network := e.seedNetwork(t, "Private Hall", "@privatehall999", models.ApprovalModeAuto)
	require.NoError(t, e.db.Model(network).Updates(map[string]interface{}{
		"is_private": true,
		"passcode":   "orchid-gate",
	}).Error)

	var appErr *models.AppError
	_, err := svc.JoinNetwork(ctx, user.ID, network.ID, nil, strPtr("nope"))
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)

	// A direct-join mismatch is rejected without leaving an audit row;
	// only the passcode approval mode records attempts.
	var audits int64
	require.NoError(t, e.db.Model(&models.PendingNetworkJoin{}).
		Where("network_id = ? AND user_id = ?", network.ID, user.ID).
		Count(&audits).Error)
	assert.Zero(t, audits)

	outcome, err := svc.JoinNetwork(ctx, user.ID, network.ID, nil, strPtr("orchid-gate"))
	require.NoError(t, err)
	assert.Equal(t, JoinStatusJoined, outcome.Status)
}

func TestJoinMissingPasscodeIsValidation(t *testing.T) {
	e := newTestEnv(t)
	svc := newJoinService(e)
	ctx := context.Background()

	user := e.seedUser(t, "Ben", "ben@example.com")
	gated := e.seedNetwork(t, "Gated", "@gatedcccccccc", models.ApprovalModePasscode)
	require.NoError(t, e.db.Model(gated).Update("passcode", "orchid-gate").Error)

	// No passcode supplied at all: invalid input, not a failed attempt,
	// so nothing is written.
	var appErr *models.AppError
	_, err := svc.RequestJoin(ctx, user.ID, gated.ID, nil)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)

	_, err = svc.RequestJoin(ctx, user.ID, gated.ID, strPtr(""))
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)

	var audits int64
	require.NoError(t, e.db.Model(&models.PendingNetworkJoin{}).
		Where("network_id = ? AND user_id = ?", gated.ID, user.ID).
		Count(&audits).Error)
	assert.Zero(t, audits)

	// Same on the direct-join private gate.
	private := e.seedNetwork(t, "Private Hall", "@privatehallddd", models.ApprovalModeAuto)
	require.NoError(t, e.db.Model(private).Updates(map[string]interface{}{
		"is_private": true,
		"passcode":   "orchid-gate",
	}).Error)

	_, err = svc.JoinNetwork(ctx, user.ID, private.ID, nil, nil)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestListPendingRequests(t *testing.T) {
	e := newTestEnv(t)
	svc := newJoinService(e)
	ctx := context.Background()

	admin := e.seedUser(t, "Ada", "ada@example.com")
	applicant := e.seedUser(t, "Ben", "ben@example.com")
	network := e.seedNetwork(t, "Reviewed", "@reviewedaaaaaa", models.ApprovalModeManual)
	e.seedMember(t, network.ID, admin.ID, models.NetworkRoleAdmin)

	_, err := svc.RequestJoin(ctx, applicant.ID, network.ID, nil)
	require.NoError(t, err)

	pending, err := svc.ListPendingRequests(ctx, admin.ID, network.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	_, err = svc.ListPendingRequests(ctx, applicant.ID, network.ID)
	assert.Error(t, err)
}
