package server

import (
	"net/http"
	"testing"

	"nexus/internal/featureflags"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMyFlags(t *testing.T) {
	s, _ := newTestServer(t)
	s.flags = featureflags.NewManager("goal_digest=on,new_onboarding=off")

	app := newAuthedApp(1)
	app.Get("/api/flags/me", s.GetMyFlags)

	resp, err := app.Test(jsonRequest(t, http.MethodGet, "/api/flags/me", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Flags map[string]bool `json:"flags"`
	}
	decodeBody(t, resp, &body)
	assert.True(t, body.Flags["goal_digest"])
	assert.False(t, body.Flags["new_onboarding"])
}
