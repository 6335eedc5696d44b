package skysched

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SessionRecord is the persisted-state layout of spec.md §6: the
// scheduling-relevant catalog scalars plus the committed scan list,
// stored as one BSON document per session. Grounded on the
// writeObs2MongoDB connect/insert pattern in app/rtkrcv/rtkrcv.go,
// extended from a fire-and-forget per-observation insert to a single
// document per completed run.
type SessionRecord struct {
	ID        string    `bson:"_id"`
	StartUTC  time.Time `bson:"start_utc"`
	EndUTC    time.Time `bson:"end_utc"`
	CreatedAt time.Time `bson:"created_at"`

	Weights WeightFactorsConfig `bson:"weights"`
	Mode    ModeConfig          `bson:"mode"`

	Scans []ScanRecord `bson:"scans"`
	Stats SchedulerStats `bson:"stats"`
}

// ScanRecord is one committed scan's persisted shape.
type ScanRecord struct {
	SourceID      int              `bson:"source_id"`
	Stations      []int            `bson:"stations"`
	Kind          ScanType         `bson:"kind"`
	Constellation ScanConstellation `bson:"constellation"`
	Score         float64          `bson:"score"`
	Observations  []Observation    `bson:"observations"`
}

// NewSessionRecord converts a completed scheduler run into its
// persisted-state document, stamping a fresh UUID as the external
// session identifier (the in-memory scheduler itself keys everything by
// catalog index, per spec.md §9's design note).
func NewSessionRecord(clock *SessionClock, weights WeightFactorsConfig, mode ModeConfig, committed []*Scan, stats SchedulerStats, createdAt time.Time) SessionRecord {
	rec := SessionRecord{
		ID:        uuid.NewString(),
		StartUTC:  clock.UTC(0),
		EndUTC:    clock.UTC(clock.Duration()),
		CreatedAt: createdAt,
		Weights:   weights,
		Mode:      mode,
		Stats:     stats,
	}
	rec.Scans = make([]ScanRecord, 0, len(committed))
	for _, s := range committed {
		rec.Scans = append(rec.Scans, ScanRecord{
			SourceID:      s.SourceID(),
			Stations:      s.Stations(),
			Kind:          s.Kind(),
			Constellation: s.Constellation(),
			Score:         s.Score(),
			Observations:  s.Observations(),
		})
	}
	return rec
}

// Store persists SessionRecords to MongoDB, the concrete half of the
// "final schedule serialization" boundary spec.md §6 keeps abstract
// (VEX/NGS/skd writers remain an external collaborator).
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewStore connects to uri and returns a Store backed by database.collection.
func NewStore(ctx context.Context, uri, database, collection string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, errors.Wrap(err, "ping mongodb")
	}
	return &Store{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

// Save inserts a session record as a new document.
func (s *Store) Save(ctx context.Context, rec SessionRecord) error {
	if _, err := s.collection.InsertOne(ctx, rec); err != nil {
		return errors.Wrap(err, "insert session record")
	}
	return nil
}

// Load fetches a session record by its external ID.
func (s *Store) Load(ctx context.Context, id string) (SessionRecord, error) {
	var rec SessionRecord
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if err != nil {
		return SessionRecord{}, errors.Wrapf(err, "load session record %s", id)
	}
	return rec, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
