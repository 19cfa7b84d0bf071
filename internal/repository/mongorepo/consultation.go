// Package mongorepo implements the repositories on MongoDB. Consultation
// documents use the ObjectID form of the record id as _id.
package mongorepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/dmehra2102/prod-golang-projects/consultrec/internal/domain/consultation"
)

const consultationsCollection = "consultations"

type consultationDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`

	PatientName       string `bson:"patientName"`
	UHID              string `bson:"uhid"`
	Department        string `bson:"department"`
	DoctorName        string `bson:"doctorName,omitempty"`
	AttenderName      string `bson:"attenderName,omitempty"`
	ICUConsultantName string `bson:"icuConsultantName,omitempty"`
	ConditionType     string `bson:"conditionType"`
	Location          string `bson:"location"`

	Date                     time.Time `bson:"date"`
	RecordingDurationSeconds int       `bson:"recordingDurationSeconds"`
	Status                   string    `bson:"status"`

	VideoUploadedAt *time.Time `bson:"videoUploadedAt,omitempty"`
	VideoFolder     string     `bson:"videoFolder,omitempty"`

	CreatedBy string `bson:"createdBy"`
}

func toDoc(r *consultation.Record) (*consultationDoc, error) {
	oid, err := primitive.ObjectIDFromHex(r.ID)
	if err != nil {
		return nil, consultation.ErrInvalidID
	}
	return &consultationDoc{
		ID:                       oid,
		CreatedAt:                r.CreatedAt,
		UpdatedAt:                r.UpdatedAt,
		PatientName:              r.PatientName,
		UHID:                     r.UHID,
		Department:               r.Department,
		DoctorName:               r.DoctorName,
		AttenderName:             r.AttenderName,
		ICUConsultantName:        r.ICUConsultantName,
		ConditionType:            string(r.ConditionType),
		Location:                 r.Location,
		Date:                     r.Date,
		RecordingDurationSeconds: r.RecordingDurationSeconds,
		Status:                   string(r.Status),
		VideoUploadedAt:          r.VideoUploadedAt,
		VideoFolder:              r.VideoFolder,
		CreatedBy:                r.CreatedBy.String(),
	}, nil
}

func (d *consultationDoc) record() *consultation.Record {
	createdBy, _ := uuid.Parse(d.CreatedBy)
	return &consultation.Record{
		ID:                       d.ID.Hex(),
		CreatedAt:                d.CreatedAt,
		UpdatedAt:                d.UpdatedAt,
		PatientName:              d.PatientName,
		UHID:                     d.UHID,
		Department:               d.Department,
		DoctorName:               d.DoctorName,
		AttenderName:             d.AttenderName,
		ICUConsultantName:        d.ICUConsultantName,
		ConditionType:            consultation.ConditionType(d.ConditionType),
		Location:                 d.Location,
		Date:                     d.Date,
		RecordingDurationSeconds: d.RecordingDurationSeconds,
		Status:                   consultation.Status(d.Status),
		VideoUploadedAt:          d.VideoUploadedAt,
		VideoFolder:              d.VideoFolder,
		CreatedBy:                createdBy,
	}
}

type ConsultationRepository struct {
	coll    *mongo.Collection
	client  *mongo.Client
	timeout time.Duration
}

func NewConsultationRepository(db *mongo.Database, timeout time.Duration) *ConsultationRepository {
	return &ConsultationRepository{
		coll:    db.Collection(consultationsCollection),
		client:  db.Client(),
		timeout: timeout,
	}
}

// EnsureIndexes creates the indexes the list and reconcile queries rely on.
func (r *ConsultationRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()

	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "location", Value: 1}, {Key: "date", Value: -1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "uhid", Value: 1}}},
		{Keys: bson.D{{Key: "videoFolder", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("creating consultation indexes: %w", err)
	}
	return nil
}

func (r *ConsultationRepository) ctx(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func (r *ConsultationRepository) Create(ctx context.Context, rec *consultation.Record) error {
	now := time.Now().UTC()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	doc, err := toDoc(rec)
	if err != nil {
		return err
	}

	ctx, cancel := r.ctx(ctx)
	defer cancel()
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return consultation.ErrAlreadyExists
		}
		return fmt.Errorf("inserting consultation: %w", err)
	}
	return nil
}

func (r *ConsultationRepository) GetByID(ctx context.Context, id string) (*consultation.Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, consultation.ErrNotFound
	}

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var doc consultationDoc
	err = r.coll.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, consultation.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching consultation %s: %w", id, err)
	}
	return doc.record(), nil
}

func (r *ConsultationRepository) Update(ctx context.Context, id string, cmd *consultation.UpdateCommand) (*consultation.Record, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, consultation.ErrNotFound
	}

	set := updateFields(cmd)
	set = append(set, bson.E{Key: "updatedAt", Value: time.Now().UTC()})

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	var doc consultationDoc
	err = r.coll.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, consultation.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating consultation %s: %w", id, err)
	}
	return doc.record(), nil
}

func updateFields(cmd *consultation.UpdateCommand) bson.D {
	set := bson.D{}
	if cmd.PatientName != nil {
		set = append(set, bson.E{Key: "patientName", Value: *cmd.PatientName})
	}
	if cmd.Department != nil {
		set = append(set, bson.E{Key: "department", Value: *cmd.Department})
	}
	if cmd.DoctorName != nil {
		set = append(set, bson.E{Key: "doctorName", Value: *cmd.DoctorName})
	}
	if cmd.AttenderName != nil {
		set = append(set, bson.E{Key: "attenderName", Value: *cmd.AttenderName})
	}
	if cmd.ICUConsultantName != nil {
		set = append(set, bson.E{Key: "icuConsultantName", Value: *cmd.ICUConsultantName})
	}
	if cmd.ConditionType != nil {
		set = append(set, bson.E{Key: "conditionType", Value: string(*cmd.ConditionType)})
	}
	if cmd.Location != nil {
		set = append(set, bson.E{Key: "location", Value: *cmd.Location})
	}
	if cmd.Date != nil {
		set = append(set, bson.E{Key: "date", Value: *cmd.Date})
	}
	if cmd.RecordingDurationSeconds != nil {
		set = append(set, bson.E{Key: "recordingDurationSeconds", Value: *cmd.RecordingDurationSeconds})
	}
	if cmd.Status != nil {
		set = append(set, bson.E{Key: "status", Value: string(*cmd.Status)})
	}
	return set
}

func (r *ConsultationRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return consultation.ErrNotFound
	}

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: oid}})
	if err != nil {
		return fmt.Errorf("deleting consultation %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return consultation.ErrNotFound
	}
	return nil
}

func (r *ConsultationRepository) List(ctx context.Context, q *consultation.ListQuery) (*consultation.PagedRecords, error) {
	filter, err := filterFor(q.Predicate)
	if err != nil {
		return nil, err
	}

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("counting consultations: %w", err)
	}

	opts := options.Find().SetSort(sortFor(q.SortBy, q.SortOrder))
	if q.PageSize > 0 {
		opts.SetSkip(int64(q.Offset())).SetLimit(int64(q.PageSize))
	}

	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("listing consultations: %w", err)
	}
	records, err := decodeAll(ctx, cur)
	if err != nil {
		return nil, err
	}
	return consultation.NewPagedRecords(records, total, q), nil
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]*consultation.Record, error) {
	defer cur.Close(ctx)

	records := make([]*consultation.Record, 0)
	for cur.Next(ctx) {
		var doc consultationDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding consultation: %w", err)
		}
		records = append(records, doc.record())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterating consultations: %w", err)
	}
	return records, nil
}

func (r *ConsultationRepository) MarkVideoUploaded(ctx context.Context, id, folder string, at time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return consultation.ErrNotFound
	}

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: oid}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "videoUploadedAt", Value: at},
			{Key: "videoFolder", Value: folder},
			{Key: "status", Value: string(consultation.StatusCompleted)},
			{Key: "updatedAt", Value: time.Now().UTC()},
		}}},
	)
	if err != nil {
		return fmt.Errorf("marking video uploaded for %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return consultation.ErrNotFound
	}
	return nil
}

func (r *ConsultationRepository) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	found := make(map[string]bool, len(ids))
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return found, nil
	}

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	cur, err := r.coll.Find(ctx,
		bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: oids}}}},
		options.Find().SetProjection(bson.D{{Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("checking consultation ids: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var doc struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding id: %w", err)
		}
		found[doc.ID.Hex()] = true
	}
	return found, cur.Err()
}

func (r *ConsultationRepository) ListByVideoFolders(ctx context.Context, folders []string) ([]*consultation.Record, error) {
	if len(folders) == 0 {
		return []*consultation.Record{}, nil
	}

	ctx, cancel := r.ctx(ctx)
	defer cancel()

	cur, err := r.coll.Find(ctx,
		bson.D{
			{Key: "videoFolder", Value: bson.D{{Key: "$in", Value: folders}}},
			{Key: "videoUploadedAt", Value: bson.D{{Key: "$ne", Value: nil}}},
		},
		options.Find().SetSort(bson.D{{Key: "videoFolder", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("listing uploaded consultations: %w", err)
	}
	return decodeAll(ctx, cur)
}

func (r *ConsultationRepository) Ping(ctx context.Context) error {
	ctx, cancel := r.ctx(ctx)
	defer cancel()
	return r.client.Ping(ctx, readpref.Primary())
}
