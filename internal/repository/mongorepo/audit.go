package mongorepo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain"
)

const auditCollection = "audit_logs"

type auditDoc struct {
	ID           string    `bson:"_id"`
	OccurredAt   time.Time `bson:"occurredAt"`
	UserID       string    `bson:"userId"`
	UserRole     string    `bson:"userRole"`
	IPAddress    string    `bson:"ipAddress,omitempty"`
	Action       string    `bson:"action"`
	ResourceType string    `bson:"resourceType"`
	ResourceID   string    `bson:"resourceId,omitempty"`
	RequestID    string    `bson:"requestId,omitempty"`
	StatusCode   int       `bson:"statusCode"`
	Changes      string    `bson:"changes,omitempty"`
}

type AuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{coll: db.Collection(auditCollection)}
}

func (r *AuditRepository) Create(ctx context.Context, e *domain.AuditLog) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	_, err := r.coll.InsertOne(ctx, auditDoc{
		ID:           e.ID.String(),
		OccurredAt:   e.OccurredAt,
		UserID:       e.UserID.String(),
		UserRole:     string(e.UserRole),
		IPAddress:    e.IPAddress,
		Action:       string(e.Action),
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		RequestID:    e.RequestID,
		StatusCode:   e.StatusCode,
		Changes:      e.Changes,
	})
	return err
}
