package service

import (
	"testing"

	"github.com/jpmelo/financio-backend/internal/domain"
	"github.com/jpmelo/financio-backend/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureUser_FirstLoginProvisionsWorkspace(t *testing.T) {
	userRepo := testutil.NewMockUserRepository()
	workspaceRepo := testutil.NewMockWorkspaceRepository()
	svc := NewAuthService(userRepo, workspaceRepo)

	name := "Joana"
	user, workspace, err := svc.EnsureUser("auth0|abc123", "joana@example.com", &name)
	require.NoError(t, err)
	assert.Equal(t, "auth0|abc123", user.Subject)
	assert.Equal(t, "Personal", workspace.Name)
	assert.Equal(t, user.ID, workspace.UserID)
}

func TestEnsureUser_Idempotent(t *testing.T) {
	svc := NewAuthService(testutil.NewMockUserRepository(), testutil.NewMockWorkspaceRepository())

	user1, workspace1, err := svc.EnsureUser("auth0|abc123", "joana@example.com", nil)
	require.NoError(t, err)
	user2, workspace2, err := svc.EnsureUser("auth0|abc123", "joana@example.com", nil)
	require.NoError(t, err)

	assert.Equal(t, user1.ID, user2.ID)
	assert.Equal(t, workspace1.ID, workspace2.ID)
}

func TestEnsureWorkspace(t *testing.T) {
	svc := NewAuthService(testutil.NewMockUserRepository(), testutil.NewMockWorkspaceRepository())

	id, err := svc.EnsureWorkspace("auth0|abc123", "joana@example.com", nil)
	require.NoError(t, err)
	assert.NotZero(t, id)

	again, err := svc.EnsureWorkspace("auth0|abc123", "joana@example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestGetWorkspaceBySubject(t *testing.T) {
	svc := NewAuthService(testutil.NewMockUserRepository(), testutil.NewMockWorkspaceRepository())

	_, err := svc.GetWorkspaceBySubject("auth0|unknown")
	assert.Equal(t, domain.ErrUserNotFound, err)

	_, workspace, err := svc.EnsureUser("auth0|abc123", "joana@example.com", nil)
	require.NoError(t, err)

	found, err := svc.GetWorkspaceBySubject("auth0|abc123")
	require.NoError(t, err)
	assert.Equal(t, workspace.ID, found.ID)
}
