package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/IshaanNene/radarbr/internal/types"
)

// MongoStore keeps categories and articles in the categorias and noticias
// collections.
type MongoStore struct {
	client     *mongo.Client
	categories *mongo.Collection
	articles   *mongo.Collection
	siteBase   string
	now        func() time.Time
	logger     *slog.Logger
}

// NewMongoStore connects, pings and ensures the unique indexes.
func NewMongoStore(ctx context.Context, uri, database, siteBase string, logger *slog.Logger) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, &types.StorageError{Backend: BackendMongo, Op: "connect", Err: err}
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, &types.StorageError{Backend: BackendMongo, Op: "ping", Err: err}
	}

	db := client.Database(database)
	s := &MongoStore{
		client:     client,
		categories: db.Collection("categorias"),
		articles:   db.Collection("noticias"),
		siteBase:   siteBase,
		now:        time.Now,
		logger:     logger.With("component", "mongo_store"),
	}
	if err := s.ensureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	_, err := s.categories.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "nome", Value: 1}}, Options: unique},
	})
	if err != nil {
		return &types.StorageError{Backend: BackendMongo, Op: "create_indexes", Err: err}
	}
	_, err = s.articles.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "fonte_url", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "criado_em", Value: -1}}},
	})
	if err != nil {
		return &types.StorageError{Backend: BackendMongo, Op: "create_indexes", Err: err}
	}
	return nil
}

func (s *MongoStore) Name() string { return BackendMongo }

func (s *MongoStore) Close() error {
	s.logger.Info("mongo store closing")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) wrap(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return collision(BackendMongo, op, err.Error())
	}
	return &types.StorageError{Backend: BackendMongo, Op: op, Err: err}
}

// exactFold matches a whole string case-insensitively.
func exactFold(s string) primitive.Regex {
	return primitive.Regex{Pattern: "^" + regexp.QuoteMeta(s) + "$", Options: "i"}
}

func (s *MongoStore) ListCategories(ctx context.Context) ([]types.Category, error) {
	cur, err := s.categories.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "nome", Value: 1}}))
	if err != nil {
		return nil, s.wrap("list_categories", err)
	}
	var out []types.Category
	if err := cur.All(ctx, &out); err != nil {
		return nil, s.wrap("list_categories", err)
	}
	return out, nil
}

func (s *MongoStore) findCategory(ctx context.Context, op string, filter bson.M) (types.Category, error) {
	var c types.Category
	err := s.categories.FindOne(ctx, filter).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return c, types.ErrNotFound
	}
	if err != nil {
		return c, s.wrap(op, err)
	}
	return c, nil
}

func (s *MongoStore) FindCategoryByName(ctx context.Context, name string) (types.Category, error) {
	c, err := s.findCategory(ctx, "find_category", bson.M{"nome": exactFold(strings.TrimSpace(name))})
	if errors.Is(err, types.ErrNotFound) {
		return c, fmt.Errorf("category %q: %w", name, err)
	}
	return c, err
}

func (s *MongoStore) GetOrCreateCategory(ctx context.Context, name, slug string) (types.Category, error) {
	name, slug = categoryFields(name, slug)
	match := bson.M{"$or": bson.A{bson.M{"slug": slug}, bson.M{"nome": exactFold(name)}}}

	c, err := s.findCategory(ctx, "get_or_create_category", match)
	if !errors.Is(err, types.ErrNotFound) {
		return c, err
	}
	c = types.Category{ID: uuid.NewString(), Name: name, Slug: slug}
	if _, err := s.categories.InsertOne(ctx, c); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return s.findCategory(ctx, "get_or_create_category", match)
		}
		return types.Category{}, s.wrap("get_or_create_category", err)
	}
	return c, nil
}

func (s *MongoStore) exists(ctx context.Context, op string, filter bson.M) (bool, error) {
	n, err := s.articles.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, s.wrap(op, err)
	}
	return n > 0, nil
}

func (s *MongoStore) ExistsArticleBySourceURL(ctx context.Context, sourceURL string) (bool, error) {
	return s.exists(ctx, "exists_source_url", bson.M{"fonte_url": sourceURL})
}

func (s *MongoStore) ExistsSimilarTitleToday(ctx context.Context, prefix string) (bool, error) {
	return s.exists(ctx, "exists_similar_title", bson.M{
		"titulo":    primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix), Options: "i"},
		"criado_em": bson.M{"$gte": types.StartOfDay(s.now())},
	})
}

func (s *MongoStore) SaveArticle(ctx context.Context, a *types.Article) error {
	slug, err := uniqueSlug(ctx, a.Title, func(ctx context.Context, slug string) (bool, error) {
		return s.exists(ctx, "slug_lookup", bson.M{"slug": slug})
	})
	if err != nil {
		return err
	}
	prepare(a, uuid.NewString(), slug, s.siteBase, s.now())
	if _, err := s.articles.InsertOne(ctx, a); err != nil {
		return s.wrap("save_article", err)
	}
	s.logger.Debug("article stored", "id", a.ID, "slug", a.Slug)
	return nil
}

func (s *MongoStore) UpdateArticleImage(ctx context.Context, id string, img types.ImageResult) error {
	var a types.Article
	a.ApplyImage(img)
	res, err := s.articles.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"imagem":           a.ImageURL,
		"imagem_alt":       a.ImageAlt,
		"imagem_credito":   a.ImageCredit,
		"imagem_licenca":   a.ImageLicence,
		"imagem_fonte_url": a.ImageSourceURL,
	}})
	if err != nil {
		return s.wrap("update_image", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("article %s: %w", id, types.ErrNotFound)
	}
	return nil
}

func (s *MongoStore) GetArticleBySlug(ctx context.Context, slug string) (*types.Article, error) {
	var a types.Article
	err := s.articles.FindOne(ctx, bson.M{"slug": slug}).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("article %q: %w", slug, types.ErrNotFound)
	}
	if err != nil {
		return nil, s.wrap("get_article", err)
	}
	return &a, nil
}

func (s *MongoStore) RecentArticles(ctx context.Context, since time.Time) ([]types.Article, error) {
	cur, err := s.articles.Find(ctx,
		bson.M{"criado_em": bson.M{"$gte": since}},
		options.Find().SetSort(bson.D{{Key: "criado_em", Value: -1}}),
	)
	if err != nil {
		return nil, s.wrap("recent_articles", err)
	}
	var out []types.Article
	if err := cur.All(ctx, &out); err != nil {
		return nil, s.wrap("recent_articles", err)
	}
	return out, nil
}

func (s *MongoStore) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	n, err := s.articles.CountDocuments(ctx, bson.M{"criado_em": bson.M{"$gte": since}})
	if err != nil {
		return 0, s.wrap("count_created", err)
	}
	return int(n), nil
}

func (s *MongoStore) IncrementViews(ctx context.Context, id string) error {
	return s.increment(ctx, id, "views")
}

func (s *MongoStore) IncrementClicks(ctx context.Context, id string) error {
	return s.increment(ctx, id, "clicks")
}

func (s *MongoStore) IncrementShares(ctx context.Context, id string) error {
	return s.increment(ctx, id, "shares")
}

func (s *MongoStore) increment(ctx context.Context, id, field string) error {
	var a types.Article
	err := s.articles.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{field: 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&a)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("article %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return s.wrap("increment_"+field, err)
	}
	a.RecomputeTrending(s.now())
	if _, err := s.articles.UpdateByID(ctx, id, bson.M{"$set": bson.M{"trending_score": a.TrendingScore}}); err != nil {
		return s.wrap("increment_"+field, err)
	}
	return nil
}
