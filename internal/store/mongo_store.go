package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"field-attendance-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	zonesCollection      = "zones"
	attendanceCollection = "attendance_records"
	taskStatusCollection = "task_statuses"
	usersCollection      = "users"
)

type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore connects, pings the primary and makes sure the indexes the
// invariants rely on exist.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	s := &MongoStore{client: client, db: client.Database(dbName)}
	if err := s.EnsureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) Database() *mongo.Database { return s.db }

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(attendanceCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			// At most one open record per employee. Enforced here, not by a
			// read-then-write in the service.
			Keys: bson.D{{Key: "employeeRef", Value: 1}},
			Options: options.Index().
				SetName("one_open_record_per_employee").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"open": true}),
		},
		{
			Keys:    bson.D{{Key: "employeeRef", Value: 1}, {Key: "checkInTime", Value: -1}},
			Options: options.Index().SetName("employee_history"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create attendance indexes: %w", err)
	}
	_, err = s.db.Collection(zonesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "active", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}},
		Options: options.Index().SetName("active_zones"),
	})
	if err != nil {
		return fmt.Errorf("failed to create zone indexes: %w", err)
	}
	_, err = s.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "employeeRef", Value: 1}},
		Options: options.Index().SetName("unique_employee_ref").SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create user indexes: %w", err)
	}
	return nil
}

func (s *MongoStore) CreateZone(ctx context.Context, zone models.Zone) error {
	_, err := s.db.Collection(zonesCollection).InsertOne(ctx, zone)
	if mongo.IsDuplicateKeyError(err) {
		return ErrConflict
	}
	return err
}

func (s *MongoStore) UpdateZone(ctx context.Context, zone models.Zone) error {
	res, err := s.db.Collection(zonesCollection).UpdateOne(ctx, bson.M{"_id": zone.ID}, bson.M{"$set": bson.M{
		"name":      zone.Name,
		"vertices":  zone.Vertices,
		"updatedAt": zone.UpdatedAt,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) DeleteZone(ctx context.Context, id string) (bool, error) {
	res, err := s.db.Collection(zonesCollection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, err
	}
	return res.DeletedCount > 0, nil
}

func (s *MongoStore) SetZoneActive(ctx context.Context, id string, active bool, at time.Time) (models.Zone, error) {
	var zone models.Zone
	err := s.db.Collection(zonesCollection).FindOneAndUpdate(ctx,
		bson.M{"_id": id, "active": !active},
		bson.M{"$set": bson.M{"active": active, "updatedAt": at}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&zone)
	if err == nil {
		return zone, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Zone{}, err
	}
	// Already in the requested state, or unknown.
	return s.GetZone(ctx, id)
}

func (s *MongoStore) GetZone(ctx context.Context, id string) (models.Zone, error) {
	var zone models.Zone
	err := s.db.Collection(zonesCollection).FindOne(ctx, bson.M{"_id": id}).Decode(&zone)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Zone{}, ErrNotFound
	}
	return zone, err
}

func (s *MongoStore) ListZones(ctx context.Context, activeOnly bool) ([]models.Zone, error) {
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.db.Collection(zonesCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var zones []models.Zone
	if err := cursor.All(ctx, &zones); err != nil {
		return nil, err
	}
	if zones == nil {
		zones = []models.Zone{}
	}
	return zones, nil
}

func (s *MongoStore) InsertOpenRecord(ctx context.Context, rec models.AttendanceRecord) error {
	rec.Open = true
	rec.CheckOutTime = nil
	_, err := s.db.Collection(attendanceCollection).InsertOne(ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		return ErrOpenRecordExists
	}
	return err
}

func (s *MongoStore) FindOpenRecord(ctx context.Context, employeeRef string) (models.AttendanceRecord, error) {
	return s.findRecord(ctx, bson.M{"employeeRef": employeeRef, "open": true})
}

func (s *MongoStore) GetRecord(ctx context.Context, id string) (models.AttendanceRecord, error) {
	return s.findRecord(ctx, bson.M{"_id": id})
}

func (s *MongoStore) findRecord(ctx context.Context, filter bson.M) (models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	err := s.db.Collection(attendanceCollection).FindOne(ctx, filter).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.AttendanceRecord{}, ErrNotFound
	}
	return rec, err
}

func (s *MongoStore) CloseRecord(ctx context.Context, id string, at time.Time) (models.AttendanceRecord, error) {
	return s.transitionRecord(ctx,
		bson.M{"_id": id, "open": true, "status": models.StatusCheckedIn},
		bson.M{"$set": bson.M{"checkOutTime": at, "status": models.StatusCheckedOut, "open": false}},
		id,
	)
}

func (s *MongoStore) SetRecordStatus(ctx context.Context, id string, from, to models.AttendanceStatus) (models.AttendanceRecord, error) {
	return s.transitionRecord(ctx,
		bson.M{"_id": id, "open": true, "status": from},
		bson.M{"$set": bson.M{"status": to}},
		id,
	)
}

func (s *MongoStore) transitionRecord(ctx context.Context, filter, update bson.M, id string) (models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	err := s.db.Collection(attendanceCollection).FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&rec)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.AttendanceRecord{}, err
	}
	if _, getErr := s.GetRecord(ctx, id); getErr != nil {
		return models.AttendanceRecord{}, getErr
	}
	return models.AttendanceRecord{}, ErrConflict
}

func (s *MongoStore) AttachPhoto(ctx context.Context, id, photoRef string) error {
	res, err := s.db.Collection(attendanceCollection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"photoRef": photoRef}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) ListRecords(ctx context.Context, employeeRef string, limit int) ([]models.AttendanceRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "checkInTime", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.db.Collection(attendanceCollection).Find(ctx, bson.M{"employeeRef": employeeRef}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []models.AttendanceRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	return records, nil
}

func (s *MongoStore) GetTaskStatus(ctx context.Context, employeeRef string) (models.TaskStatus, error) {
	var ts models.TaskStatus
	err := s.db.Collection(taskStatusCollection).FindOne(ctx, bson.M{"_id": employeeRef}).Decode(&ts)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.TaskStatus{}, ErrNotFound
	}
	return ts, err
}

func (s *MongoStore) SwapTaskStatus(ctx context.Context, expected models.TaskState, next models.TaskStatus) error {
	coll := s.db.Collection(taskStatusCollection)
	filter := bson.M{"_id": next.EmployeeRef, "status": expected}

	// From idle the row may not exist yet. Upserting against an existing
	// non-idle row collides on _id, which is the conflict we want.
	opts := options.Replace().SetUpsert(expected == models.TaskIdle)
	res, err := coll.ReplaceOne(ctx, filter, next, opts)
	if mongo.IsDuplicateKeyError(err) {
		return ErrConflict
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return ErrConflict
	}
	return nil
}

func (s *MongoStore) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := s.db.Collection(usersCollection).FindOne(ctx, bson.M{"_id": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.User{}, ErrNotFound
	}
	return user, err
}

func (s *MongoStore) CreateUser(ctx context.Context, user models.User) error {
	_, err := s.db.Collection(usersCollection).InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return ErrConflict
	}
	return err
}
