package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/acquisitions/acquisitions-api/internal/core/domain"
)

const auditCollection = "admission_denials"

// AuditRepository implements ports.AuditSink by appending denied admissions
// to the admission_denials collection.
type AuditRepository struct {
	col       *mongo.Collection
	retention time.Duration
}

// NewAuditRepository creates an AuditRepository. Records older than
// retention are expired by MongoDB; zero keeps them forever.
func NewAuditRepository(db *mongo.Database, retention time.Duration) *AuditRepository {
	return &AuditRepository{col: db.Collection(auditCollection), retention: retention}
}

// Record inserts rec. A replayed record with the same id is ignored.
func (r *AuditRepository) Record(ctx context.Context, rec domain.AuditRecord) error {
	if _, err := r.col.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// EnsureIndexes creates the lookup and retention indexes.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	created := options.Index().SetName("created_at")
	if r.retention > 0 {
		created.SetExpireAfterSeconds(int32(r.retention / time.Second))
	}
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: 1}}, Options: created},
		{Keys: bson.D{{Key: "client_key", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "reason", Value: 1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
