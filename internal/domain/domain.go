package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrStoreUnavailable wraps storage/network failures, including timeouts.
// It is the only error kind a caller should retry.
var ErrStoreUnavailable = errors.New("storage temporarily unavailable")

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// User is the identity record for patients and admins. Doctors authenticate
// through the doctor directory and are linked here via DoctorID.
type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`
	DeletedAt *time.Time `gorm:"index" json:"-"`

	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null" json:"-"`
	Name         string `gorm:"column:name;type:varchar(200);not null" json:"name"`
	Phone        string `gorm:"column:phone;type:varchar(30)" json:"phone,omitempty"`
	Role         Role   `gorm:"column:role;type:varchar(30);not null;index" json:"role"`

	// For doctor role, links to the doctor directory record
	DoctorID *uuid.UUID `gorm:"column:doctor_id;type:uuid;index" json:"doctorId,omitempty"`

	Address   string   `gorm:"column:address;type:text" json:"address,omitempty"`
	Latitude  *float64 `gorm:"column:latitude" json:"latitude,omitempty"`
	Longitude *float64 `gorm:"column:longitude" json:"longitude,omitempty"`

	IsActive         bool       `gorm:"column:is_active;default:true;index" json:"isActive"`
	FailedLoginCount int        `gorm:"column:failed_login_count;default:0" json:"-"`
	LockedUntil      *time.Time `gorm:"column:locked_until" json:"-"`
	LastLoginAt      *time.Time `gorm:"column:last_login_at" json:"lastLoginAt,omitempty"`
}

func (User) TableName() string {
	return "identity.users"
}

// IsLocked returns true if the account is temporarily locked due to failed logins.
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

// Actor is the explicit caller identity passed into every core operation.
// It replaces any ambient "current session" state.
type Actor struct {
	UserID   uuid.UUID
	Role     Role
	DoctorID *uuid.UUID
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// IsDoctor reports whether the actor is the doctor identified by doctorID.
func (a Actor) IsDoctor(doctorID uuid.UUID) bool {
	return a.Role == RoleDoctor && a.DoctorID != nil && *a.DoctorID == doctorID
}

type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionRead   AuditAction = "read"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
	ActionLogin  AuditAction = "login"
)

type AuditLog struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OccurredAt time.Time `gorm:"autoCreateTime;index"`

	// Who
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	UserRole  Role      `gorm:"column:user_role;type:varchar(30);not null"`
	IPAddress string    `gorm:"column:ip_address;type:varchar(45)"` // Supports IPv6

	// What
	Action       AuditAction `gorm:"column:action;type:varchar(20);not null;index"`
	ResourceType string      `gorm:"column:resource_type;type:varchar(50);not null;index"`
	ResourceID   string      `gorm:"column:resource_id;type:varchar(50);index"`

	RequestID  string `gorm:"column:request_id;type:varchar(50);index"`
	StatusCode int    `gorm:"column:status_code"`

	Changes string `gorm:"column:changes;type:jsonb"`
}

func (AuditLog) TableName() string {
	return "audit.logs"
}

type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"` // Always "Bearer"
}

type Claims struct {
	UserID   uuid.UUID  `json:"sub"`
	Email    string     `json:"email"`
	Role     Role       `json:"role"`
	DoctorID *uuid.UUID `json:"doctor_id,omitempty"`
}

func (c *Claims) Actor() Actor {
	return Actor{UserID: c.UserID, Role: c.Role, DoctorID: c.DoctorID}
}
