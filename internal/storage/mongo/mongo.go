// Package mongo provides a MongoDB-backed store for Q&A entries and video
// history. A unique index on videos.videoId enforces one record per video.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kalambet/vidqa/internal/storage"
)

const (
	qaCollection    = "qa_entries"
	videoCollection = "videos"
)

type qaDoc struct {
	ID        string    `bson:"_id"`
	VideoID   string    `bson:"videoId"`
	Question  string    `bson:"question"`
	Answer    string    `bson:"answer"`
	CreatedAt time.Time `bson:"createdAt"`
}

type videoDoc struct {
	VideoID   string    `bson:"videoId"`
	Title     string    `bson:"title"`
	CreatedAt time.Time `bson:"createdAt"`
}

// Store implements the Q&A store over a MongoDB database.
type Store struct {
	client *mongo.Client
	qa     *mongo.Collection
	videos *mongo.Collection
}

// Open connects to uri, selects database and ensures the indexes exist.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	db := client.Database(database)
	s := &Store{
		client: client,
		qa:     db.Collection(qaCollection),
		videos: db.Collection(videoCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.qa.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "videoId", Value: 1}, {Key: "createdAt", Value: 1}},
		Options: options.Index().SetName("idx_qa_entries_video"),
	})
	if err != nil {
		return fmt.Errorf("creating qa index: %w", err)
	}

	_, err = s.videos.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "videoId", Value: 1}},
			Options: options.Index().SetName("idx_videos_video_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_videos_created"),
		},
	})
	if err != nil {
		return fmt.Errorf("creating video indexes: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// SaveQA appends a Q&A entry.
func (s *Store) SaveQA(ctx context.Context, e storage.QAEntry) error {
	_, err := s.qa.InsertOne(ctx, qaDoc{
		ID:        e.ID,
		VideoID:   e.VideoID,
		Question:  e.Question,
		Answer:    e.Answer,
		CreatedAt: e.CreatedAt.UTC(),
	})
	return err
}

// ListQA returns all entries for videoID in insertion order.
func (s *Store) ListQA(ctx context.Context, videoID string) ([]storage.QAEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.qa.Find(ctx, bson.M{"videoId": videoID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	results := []storage.QAEntry{}
	for cur.Next(ctx) {
		var d qaDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decoding qa entry: %w", err)
		}
		results = append(results, storage.QAEntry{
			ID:        d.ID,
			VideoID:   d.VideoID,
			Question:  d.Question,
			Answer:    d.Answer,
			CreatedAt: d.CreatedAt.UTC(),
		})
	}
	return results, cur.Err()
}

// RegisterVideo inserts v; a duplicate key error on the unique index means the
// video is already registered and is reported as created=false.
func (s *Store) RegisterVideo(ctx context.Context, v storage.VideoRecord) (bool, error) {
	_, err := s.videos.InsertOne(ctx, videoDoc{
		VideoID:   v.VideoID,
		Title:     v.Title,
		CreatedAt: v.CreatedAt.UTC(),
	})
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetVideo returns the record for videoID or storage.ErrNotFound.
func (s *Store) GetVideo(ctx context.Context, videoID string) (storage.VideoRecord, error) {
	var d videoDoc
	err := s.videos.FindOne(ctx, bson.M{"videoId": videoID}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return storage.VideoRecord{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.VideoRecord{}, err
	}
	return storage.VideoRecord{VideoID: d.VideoID, Title: d.Title, CreatedAt: d.CreatedAt.UTC()}, nil
}

// ListVideos returns every video record, most recently registered first.
func (s *Store) ListVideos(ctx context.Context) ([]storage.VideoRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.videos.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	results := []storage.VideoRecord{}
	for cur.Next(ctx) {
		var d videoDoc
		if err := cur.Decode(&d); err != nil {
			return nil, fmt.Errorf("decoding video: %w", err)
		}
		results = append(results, storage.VideoRecord{VideoID: d.VideoID, Title: d.Title, CreatedAt: d.CreatedAt.UTC()})
	}
	return results, cur.Err()
}

// UnregisteredVideoIDs returns video IDs with Q&A entries but no video record.
func (s *Store) UnregisteredVideoIDs(ctx context.Context) ([]string, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$videoId"},
			{Key: "first", Value: bson.D{{Key: "$min", Value: "$createdAt"}}},
		}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: videoCollection},
			{Key: "localField", Value: "_id"},
			{Key: "foreignField", Value: "videoId"},
			{Key: "as", Value: "video"},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "video", Value: bson.D{{Key: "$size", Value: 0}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "first", Value: 1}}}},
	}
	cur, err := s.qa.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []string
	for cur.Next(ctx) {
		var row struct {
			ID string `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, fmt.Errorf("decoding aggregate row: %w", err)
		}
		ids = append(ids, row.ID)
	}
	return ids, cur.Err()
}
