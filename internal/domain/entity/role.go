package entity

import "github.com/google/uuid"

// Role represents a user role in the system
type Role struct {
	ID          int    `gorm:"primaryKey;autoIncrement" json:"id"`
	RoleName    string `gorm:"type:varchar(50);uniqueIndex;not null" json:"role_name"`
	Description string `gorm:"type:text" json:"description,omitempty"`

	// Relationships
	Users []User `gorm:"foreignKey:RoleID" json:"users,omitempty"`
}

func (Role) TableName() string {
	return "roles"
}

// Role ID constants
const (
	RoleIDAdmin   = 1
	RoleIDDoctor  = 2
	RoleIDPatient = 3
)

// RoleNames constants
const (
	RoleAdmin   = "admin"
	RoleDoctor  = "doctor"
	RolePatient = "patient"
)

// ActorKind tells which side of an appointment an authenticated user is on.
type ActorKind int

const (
	ActorUnknown ActorKind = iota
	ActorPatient
	ActorDoctor
	ActorAdmin
)

func (k ActorKind) String() string {
	switch k {
	case ActorPatient:
		return RolePatient
	case ActorDoctor:
		return RoleDoctor
	case ActorAdmin:
		return RoleAdmin
	}
	return "unknown"
}

// Actor is the authenticated user performing an operation. Specialty is only
// set for doctors and becomes the category of the appointments they book.
type Actor struct {
	ID        uuid.UUID
	Kind      ActorKind
	Specialty string
}

func NewPatientActor(id uuid.UUID) Actor {
	return Actor{ID: id, Kind: ActorPatient}
}

func NewDoctorActor(id uuid.UUID, specialty string) Actor {
	return Actor{ID: id, Kind: ActorDoctor, Specialty: specialty}
}

func NewAdminActor(id uuid.UUID) Actor {
	return Actor{ID: id, Kind: ActorAdmin}
}

// ActorFromRole builds an Actor from the role id stored in the token.
func ActorFromRole(id uuid.UUID, roleID int, specialty string) Actor {
	switch roleID {
	case RoleIDDoctor:
		return NewDoctorActor(id, specialty)
	case RoleIDPatient:
		return NewPatientActor(id)
	case RoleIDAdmin:
		return NewAdminActor(id)
	}
	return Actor{ID: id, Kind: ActorUnknown}
}

func (a Actor) IsDoctor() bool  { return a.Kind == ActorDoctor }
func (a Actor) IsPatient() bool { return a.Kind == ActorPatient }
func (a Actor) IsAdmin() bool   { return a.Kind == ActorAdmin }

// RoleID maps the actor kind back to the roles table.
func (a Actor) RoleID() int {
	switch a.Kind {
	case ActorDoctor:
		return RoleIDDoctor
	case ActorPatient:
		return RoleIDPatient
	case ActorAdmin:
		return RoleIDAdmin
	}
	return 0
}
