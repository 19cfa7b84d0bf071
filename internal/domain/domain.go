package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin  Role = "admin"
	RoleDoctor Role = "doctor"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleDoctor:
		return true
	}
	return false
}

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("a user with this email already exists")
)

// Failed logins before an account is locked, and for how long.
const (
	MaxFailedLoginAttempts = 5
	LoginLockDuration      = 15 * time.Minute
)

type User struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
	DeletedAt *time.Time `gorm:"index"`

	Email        string `gorm:"column:email;type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;type:varchar(255);not null"`
	FullName     string `gorm:"column:full_name;type:varchar(200);not null"`
	Role         Role   `gorm:"column:role;type:varchar(30);not null;index"`

	// Hospital site the user works at. Empty for admins and for doctors who
	// have not been assigned yet; the latter see no consultations.
	Location string `gorm:"column:location;type:varchar(100);index"`

	IsActive         bool       `gorm:"column:is_active;default:true;index"`
	FailedLoginCount int        `gorm:"column:failed_login_count;default:0"`
	LockedUntil      *time.Time `gorm:"column:locked_until"`
	LastLoginAt      *time.Time `gorm:"column:last_login_at"`
}

func (User) TableName() string {
	return "auth.users"
}

// IsLocked returns true if the account is temporarily locked due to failed logins.
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

type AuditAction string

const (
	ActionCreate AuditAction = "create"
	ActionRead   AuditAction = "read"
	ActionList   AuditAction = "list"
	ActionUpdate AuditAction = "update"
	ActionDelete AuditAction = "delete"
	ActionUpload AuditAction = "upload"
	ActionStream AuditAction = "stream"
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
	ResourceID   string      `gorm:"column:resource_id;type:varchar(100);index"`

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
	UserID   uuid.UUID `json:"sub"`
	Email    string    `json:"email"`
	Role     Role      `json:"role"`
	Location string    `json:"location,omitempty"`
}

// Access derives the per-request access context from authenticated claims.
func (c *Claims) Access() AccessContext {
	return AccessContext{Role: c.Role, Location: strings.TrimSpace(c.Location)}
}

// AccessContext is what scoping decisions are made on. It is never persisted.
type AccessContext struct {
	Role     Role
	Location string
}

func (a AccessContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a AccessContext) HasLocation() bool {
	return a.Location != ""
}

// CanSeeLocation reports whether a record stored at location is inside the
// caller's scope.
func (a AccessContext) CanSeeLocation(location string) bool {
	if a.IsAdmin() {
		return true
	}
	return a.HasLocation() && a.Location == location
}
