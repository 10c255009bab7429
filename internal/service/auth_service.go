package service

import (
	"github.com/jpmelo/financio-backend/internal/domain"
)

// AuthService resolves authenticated identities to workspaces. The engine
// itself never sees tokens; it only ever receives the workspace ID this
// service resolves.
type AuthService struct {
	userRepo      domain.UserRepository
	workspaceRepo domain.WorkspaceRepository
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo domain.UserRepository, workspaceRepo domain.WorkspaceRepository) *AuthService {
	return &AuthService{
		userRepo:      userRepo,
		workspaceRepo: workspaceRepo,
	}
}

// EnsureUser creates the user and their workspace on first login.
func (s *AuthService) EnsureUser(subject, email string, name *string) (*domain.User, *domain.Workspace, error) {
	user, err := s.userRepo.CreateOrGetBySubject(subject, email, name)
	if err != nil {
		return nil, nil, err
	}

	workspace, err := s.workspaceRepo.GetByUserID(user.ID)
	if err == domain.ErrWorkspaceNotFound {
		workspace, err = s.workspaceRepo.Create(&domain.Workspace{
			UserID: user.ID,
			Name:   "Personal",
		})
	}
	if err != nil {
		return nil, nil, err
	}
	return user, workspace, nil
}

// EnsureWorkspace resolves the caller's workspace ID, provisioning the user
// and workspace on first login.
func (s *AuthService) EnsureWorkspace(subject, email string, name *string) (int32, error) {
	_, workspace, err := s.EnsureUser(subject, email, name)
	if err != nil {
		return 0, err
	}
	return workspace.ID, nil
}

// GetWorkspaceBySubject resolves the workspace owned by the identity subject.
func (s *AuthService) GetWorkspaceBySubject(subject string) (*domain.Workspace, error) {
	user, err := s.userRepo.GetBySubject(subject)
	if err != nil {
		return nil, err
	}
	return s.workspaceRepo.GetByUserID(user.ID)
}
