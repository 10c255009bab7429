package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Subject   string    `json:"subject"` // external identity provider subject
	Email     string    `json:"email"`
	Name      *string   `json:"name,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Workspace is the ownership scope for every financial record. Each user owns
// exactly one workspace; all repository lookups are scoped by workspace ID.
type Workspace struct {
	ID        int32     `json:"id"`
	UserID    uuid.UUID `json:"userId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserRepository interface {
	GetBySubject(subject string) (*User, error)
	CreateOrGetBySubject(subject, email string, name *string) (*User, error)
}

type WorkspaceRepository interface {
	GetByID(id int32) (*Workspace, error)
	GetByUserID(userID uuid.UUID) (*Workspace, error)
	Create(workspace *Workspace) (*Workspace, error)
}
