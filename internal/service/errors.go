package service

import (
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain"
)

var (
	ErrForbidden = errors.New("forbidden: insufficient permissions")

	ErrInvalidIdentifier    = errors.New("consultationId must be a 24-character hexadecimal string")
	ErrMissingFile          = errors.New("video file is required")
	ErrUnsupportedMediaType = errors.New("uploaded file must have a video content type")
	ErrFileTooLarge         = errors.New("uploaded file exceeds the maximum allowed size")
)

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// Caller identifies who is making a request, for scoping and audit.
type Caller struct {
	UserID    uuid.UUID
	Role      domain.Role
	Location  string
	IP        string
	RequestID string
}

func CallerFromClaims(c *domain.Claims, ip, requestID string) Caller {
	return Caller{
		UserID:    c.UserID,
		Role:      c.Role,
		Location:  c.Location,
		IP:        ip,
		RequestID: requestID,
	}
}

func (c Caller) Access() domain.AccessContext {
	return domain.AccessContext{Role: c.Role, Location: strings.TrimSpace(c.Location)}
}

type AuditEntry struct {
	UserID       uuid.UUID
	UserRole     domain.Role
	Action       domain.AuditAction
	ResourceType string
	ResourceID   string
	IPAddress    string
	RequestID    string
	StatusCode   int
	Changes      string
}

func (c Caller) audit(action domain.AuditAction, resourceType, resourceID string) AuditEntry {
	return AuditEntry{
		UserID:       c.UserID,
		UserRole:     c.Role,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    c.IP,
		RequestID:    c.RequestID,
	}
}
