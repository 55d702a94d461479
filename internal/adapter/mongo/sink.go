package mongo

import (
	"context"
	"reflect"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github-star-curator/internal/common"
	"github-star-curator/internal/config"
	"github-star-curator/internal/domain"
	"github-star-curator/internal/port"
)

const connectTimeout = 10 * time.Second

var _ port.Sink = (*Sink)(nil)

// Sink 每张表对应一个集合，写入时先 drop 再整批插入
type Sink struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// Open connects and pings the server.
func Open(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (*Sink, error) {
	if cfg.URI == "" {
		return nil, common.NewError(common.ErrCodeConfig, "MONGO_URI is not set")
	}
	if cfg.Database == "" {
		return nil, common.NewError(common.ErrCodeConfig, "mongo database name is empty")
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSink, "mongodb connect", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, common.WrapError(common.ErrCodeSink, "mongodb ping", err)
	}

	return newSink(client, cfg.Database, logger), nil
}

func newSink(client *mongo.Client, database string, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{
		client: client,
		db:     client.Database(database),
		logger: logger.With(zap.String("component", "mongo_sink")),
	}
}

// Persist drops the collection and inserts every record of the table.
func (s *Sink) Persist(ctx context.Context, table *domain.Table) error {
	docs, err := documents(table.Records)
	if err != nil {
		return err
	}

	coll := s.db.Collection(table.Name)
	if err := coll.Drop(ctx); err != nil {
		return common.WrapError(common.ErrCodeSink, "drop "+table.Name, err)
	}
	if len(docs) > 0 {
		if _, err := coll.InsertMany(ctx, docs); err != nil {
			return common.WrapError(common.ErrCodeSink, "insert into "+table.Name, err)
		}
	}

	s.logger.Info("collection replaced", zap.String("collection", table.Name), zap.Int("rows", len(docs)))
	return nil
}

// LoadStarred 读回 starred 集合；集合不存在时返回空
func (s *Sink) LoadStarred(ctx context.Context, name string) ([]domain.StarredRow, error) {
	names, err := s.db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSink, "look up "+name, err)
	}
	if len(names) == 0 {
		return nil, nil
	}

	opts := options.Find().SetSort(bson.D{{Key: "full_name", Value: 1}})
	cur, err := s.db.Collection(name).Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSink, "load "+name, err)
	}

	var rows []domain.StarredRow
	if err := cur.All(ctx, &rows); err != nil {
		return nil, common.WrapError(common.ErrCodeSink, "decode "+name, err)
	}
	return rows, nil
}

// Tables pings the server and lists the collections.
func (s *Sink) Tables(ctx context.Context) ([]string, error) {
	if err := s.client.Ping(ctx, nil); err != nil {
		return nil, common.WrapError(common.ErrCodeSink, "mongodb ping", err)
	}
	names, err := s.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, common.WrapError(common.ErrCodeSink, "list collections", err)
	}
	return names, nil
}

func (s *Sink) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// documents converts a typed record slice (e.g. []StarredRow) into InsertMany input.
func documents(records any) ([]any, error) {
	if records == nil {
		return nil, nil
	}
	v := reflect.ValueOf(records)
	if v.Kind() != reflect.Slice {
		return nil, common.NewError(common.ErrCodeInvalidInput, "table records must be a slice, got "+v.Kind().String())
	}
	docs := make([]any, v.Len())
	for i := 0; i < v.Len(); i++ {
		docs[i] = v.Index(i).Interface()
	}
	return docs, nil
}
