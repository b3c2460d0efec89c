package server

import (
	"context"
	"net/http"
	"testing"

	"nexus/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMembersHandler(t *testing.T) {
	s, _ := newTestServer(t)
	admin := seedUser(t, s.db, "Ada", "ada@example.com")
	member := seedUser(t, s.db, "Ben", "ben@example.com")
	network := seedNetwork(t, s.db, "Writers", "@writers444444", models.ApprovalModeAuto)
	seedMember(t, s.db, network.ID, admin.ID, models.NetworkRoleAdmin)
	seedMember(t, s.db, network.ID, member.ID, models.NetworkRoleMember)

	app := newAuthedApp(admin.ID)
	app.Get("/api/networks/:id/members", s.GetMembers)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/networks/1/members", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var members []models.NetworkMember
	decodeBody(t, resp, &members)
	require.Len(t, members, 2)
	require.NotNil(t, members[0].User)
}

func TestAssignRoleHandler(t *testing.T) {
	s, _ := newTestServer(t)
	admin := seedUser(t, s.db, "Ada", "ada@example.com")
	member := seedUser(t, s.db, "Ben", "ben@example.com")
	network := seedNetwork(t, s.db, "Writers", "@writers555555", models.ApprovalModeAuto)
	seedMember(t, s.db, network.ID, admin.ID, models.NetworkRoleAdmin)
	seedMember(t, s.db, network.ID, member.ID, models.NetworkRoleMember)

	app := newAuthedApp(admin.ID)
	app.Put("/api/networks/:id/members/:userId/role", s.AssignRole)

	resp, err := app.Test(jsonRequest(t, http.MethodPut, "/api/networks/1/members/2/role", fiber.Map{
		"role": "moderator",
	}))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	updated, err := s.repos.Members.Get(context.Background(), network.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NetworkRoleModerator, updated.Role)

	// Handing out the admin role this way is rejected.
	bad, err := app.Test(jsonRequest(t, http.MethodPut, "/api/networks/1/members/2/role", fiber.Map{
		"role": "admin",
	}))
	require.NoError(t, err)
	_ = bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestRemoveMemberHandlerForbiddenForPlainMember(t *testing.T) {
	s, _ := newTestServer(t)
	actor := seedUser(t, s.db, "Ben", "ben@example.com")
	target := seedUser(t, s.db, "Cal", "cal@example.com")
	network := seedNetwork(t, s.db, "Writers", "@writers666666", models.ApprovalModeAuto)
	seedMember(t, s.db, network.ID, actor.ID, models.NetworkRoleMember)
	seedMember(t, s.db, network.ID, target.ID, models.NetworkRoleMember)

	app := newAuthedApp(actor.ID)
	app.Delete("/api/networks/:id/members/:userId", s.RemoveMember)

	resp, err := app.Test(jsonRequest(t, http.MethodDelete, "/api/networks/1/members/2", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLeaveNetworkHandler(t *testing.T) {
	s, _ := newTestServer(t)
	admin := seedUser(t, s.db, "Ada", "ada@example.com")
	member := seedUser(t, s.db, "Ben", "ben@example.com")
	network := seedNetwork(t, s.db, "Writers", "@writers777777", models.ApprovalModeAuto)
	seedMember(t, s.db, network.ID, admin.ID, models.NetworkRoleAdmin)
	seedMember(t, s.db, network.ID, member.ID, models.NetworkRoleMember)

	app := newAuthedApp(member.ID)
	app.Delete("/api/networks/:id/members/me", s.LeaveNetwork)

	resp, err := app.Test(jsonRequest(t, http.MethodDelete, "/api/networks/1/members/me", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	gone, err := s.repos.Members.Get(context.Background(), network.ID, member.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)

	// Admins cannot leave without resigning first.
	adminApp := newAuthedApp(admin.ID)
	adminApp.Delete("/api/networks/:id/members/me", s.LeaveNetwork)
	blocked, err := adminApp.Test(jsonRequest(t, http.MethodDelete, "/api/networks/1/members/me", nil))
	require.NoError(t, err)
	_ = blocked.Body.Close()
	assert.Equal(t, http.StatusConflict, blocked.StatusCode)
}

func TestResignAdminHandlerSoleAdmin(t *testing.T) {
	s, _ := newTestServer(t)
	admin := seedUser(t, s.db, "Ada", "ada@example.com")
	network := seedNetwork(t, s.db, "Writers", "@writers888888", models.ApprovalModeAuto)
	seedMember(t, s.db, network.ID, admin.ID, models.NetworkRoleAdmin)

	app := newAuthedApp(admin.ID)
	app.Post("/api/networks/:id/resign-admin", s.ResignAdmin)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/networks/1/resign-admin", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestPromoteToAdminHandler(t *testing.T) {
	s, _ := newTestServer(t)
	admin := seedUser(t, s.db, "Ada", "ada@example.com")
	member := seedUser(t, s.db, "Ben", "ben@example.com")
	network := seedNetwork(t, s.db, "Writers", "@writers999999", models.ApprovalModeAuto)
	seedMember(t, s.db, network.ID, admin.ID, models.NetworkRoleAdmin)
	seedMember(t, s.db, network.ID, member.ID, models.NetworkRoleMember)

	app := newAuthedApp(admin.ID)
	app.Post("/api/networks/:id/members/:userId/promote-admin", s.PromoteToAdmin)

	resp, err := app.Test(jsonRequest(t, http.MethodPost, "/api/networks/1/members/2/promote-admin", nil))
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	promoted, err := s.repos.Members.Get(context.Background(), network.ID, member.ID)
	require.NoError(t, err)
	assert.Equal(t, models.NetworkRoleAdmin, promoted.Role)
}
