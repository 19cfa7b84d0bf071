package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain"
)

const usersCollection = "users"

type userDoc struct {
	ID               string     `bson:"_id"`
	CreatedAt        time.Time  `bson:"createdAt"`
	UpdatedAt        time.Time  `bson:"updatedAt"`
	DeletedAt        *time.Time `bson:"deletedAt,omitempty"`
	Email            string     `bson:"email"`
	PasswordHash     string     `bson:"passwordHash"`
	FullName         string     `bson:"fullName"`
	Role             string     `bson:"role"`
	Location         string     `bson:"location,omitempty"`
	IsActive         bool       `bson:"isActive"`
	FailedLoginCount int        `bson:"failedLoginCount"`
	LockedUntil      *time.Time `bson:"lockedUntil,omitempty"`
	LastLoginAt      *time.Time `bson:"lastLoginAt,omitempty"`
}

func (d *userDoc) user() *domain.User {
	id, _ := uuid.Parse(d.ID)
	return &domain.User{
		ID:               id,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		DeletedAt:        d.DeletedAt,
		Email:            d.Email,
		PasswordHash:     d.PasswordHash,
		FullName:         d.FullName,
		Role:             domain.Role(d.Role),
		Location:         d.Location,
		IsActive:         d.IsActive,
		FailedLoginCount: d.FailedLoginCount,
		LockedUntil:      d.LockedUntil,
		LastLoginAt:      d.LastLoginAt,
	}
}

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(usersCollection)}
}

func (r *UserRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("creating user indexes: %w", err)
	}
	return nil
}

func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	_, err := r.coll.InsertOne(ctx, userDoc{
		ID:           u.ID.String(),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FullName:     u.FullName,
		Role:         string(u.Role),
		Location:     u.Location,
		IsActive:     u.IsActive,
	})
	if mongo.IsDuplicateKeyError(err) {
		return domain.ErrUserExists
	}
	if err != nil {
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.D) (*domain.User, error) {
	filter = append(filter, bson.E{Key: "deletedAt", Value: bson.D{{Key: "$exists", Value: false}}})
	var doc userDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching user: %w", err)
	}
	return doc.user(), nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "email", Value: strings.ToLower(strings.TrimSpace(email))}})
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.findOne(ctx, bson.D{{Key: "_id", Value: id.String()}})
}

func (r *UserRepository) UpdateLoginAttempt(ctx context.Context, id uuid.UUID, success bool) error {
	filter := bson.D{{Key: "_id", Value: id.String()}}
	now := time.Now().UTC()

	if success {
		_, err := r.coll.UpdateOne(ctx, filter, bson.D{
			{Key: "$set", Value: bson.D{
				{Key: "failedLoginCount", Value: 0},
				{Key: "lastLoginAt", Value: now},
				{Key: "updatedAt", Value: now},
			}},
			{Key: "$unset", Value: bson.D{{Key: "lockedUntil", Value: ""}}},
		})
		return err
	}

	var doc userDoc
	err := r.coll.FindOneAndUpdate(ctx, filter,
		bson.D{{Key: "$inc", Value: bson.D{{Key: "failedLoginCount", Value: 1}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.ErrUserNotFound
	}
	if err != nil {
		return err
	}
	if doc.FailedLoginCount >= domain.MaxFailedLoginAttempts {
		_, err = r.coll.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: bson.D{
			{Key: "lockedUntil", Value: now.Add(domain.LoginLockDuration)},
		}}})
	}
	return err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: id.String()}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "passwordHash", Value: hash},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
