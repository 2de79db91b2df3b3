package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/IshaanNene/radarbr/internal/types"
)

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var articleColumns = []string{
	"id", "titulo", "slug", "conteudo", "publicado_em", "criado_em", "status", "destaque",
	"categoria_id", "fonte_url", "fonte_nome",
	"imagem", "imagem_alt", "imagem_credito", "imagem_licenca", "imagem_fonte_url",
	"views", "clicks", "shares", "trending_score", "has_video", "video_urls",
}

// PostgresStore is the production Store.
type PostgresStore struct {
	pool     *pgxpool.Pool
	siteBase string
	now      func() time.Time
	logger   *slog.Logger
}

// NewPostgresStore connects to databaseURL and pings it.
func NewPostgresStore(ctx context.Context, databaseURL, siteBase string, logger *slog.Logger) (*PostgresStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.New(connectCtx, databaseURL)
	if err != nil {
		return nil, &types.StorageError{Backend: BackendPostgres, Op: "connect", Err: err}
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, &types.StorageError{Backend: BackendPostgres, Op: "ping", Err: err}
	}
	return &PostgresStore{
		pool:     pool,
		siteBase: siteBase,
		now:      time.Now,
		logger:   logger.With("component", "postgres_store"),
	}, nil
}

func (s *PostgresStore) Name() string { return BackendPostgres }

func (s *PostgresStore) Close() error {
	s.logger.Info("postgres store closing")
	s.pool.Close()
	return nil
}

func (s *PostgresStore) wrap(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return collision(BackendPostgres, op, pgErr.ConstraintName)
	}
	return &types.StorageError{Backend: BackendPostgres, Op: op, Err: err}
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]types.Category, error) {
	query, args, err := psql.Select("id", "nome", "slug").From("categorias").OrderBy("nome").ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.wrap("list_categories", err)
	}
	defer rows.Close()

	var out []types.Category
	for rows.Next() {
		var c types.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, s.wrap("list_categories", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("list_categories", err)
	}
	return out, nil
}

func (s *PostgresStore) findCategory(ctx context.Context, op string, where sq.Sqlizer) (types.Category, error) {
	query, args, err := psql.Select("id", "nome", "slug").From("categorias").Where(where).Limit(1).ToSql()
	if err != nil {
		return types.Category{}, err
	}
	var c types.Category
	err = s.pool.QueryRow(ctx, query, args...).Scan(&c.ID, &c.Name, &c.Slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return types.Category{}, types.ErrNotFound
	}
	if err != nil {
		return types.Category{}, s.wrap(op, err)
	}
	return c, nil
}

func (s *PostgresStore) FindCategoryByName(ctx context.Context, name string) (types.Category, error) {
	c, err := s.findCategory(ctx, "find_category", sq.Expr("lower(nome) = lower(?)", strings.TrimSpace(name)))
	if errors.Is(err, types.ErrNotFound) {
		return c, fmt.Errorf("category %q: %w", name, err)
	}
	return c, err
}

func (s *PostgresStore) GetOrCreateCategory(ctx context.Context, name, slug string) (types.Category, error) {
	name, slug = categoryFields(name, slug)
	match := sq.Or{sq.Eq{"slug": slug}, sq.Expr("lower(nome) = lower(?)", name)}

	c, err := s.findCategory(ctx, "get_or_create_category", match)
	if !errors.Is(err, types.ErrNotFound) {
		return c, err
	}

	query, args, err := psql.Insert("categorias").
		Columns("id", "nome", "slug").
		Values(uuid.NewString(), name, slug).
		Suffix("ON CONFLICT DO NOTHING").
		ToSql()
	if err != nil {
		return types.Category{}, err
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return types.Category{}, s.wrap("get_or_create_category", err)
	}
	// A concurrent insert may have won; read back whichever row exists.
	return s.findCategory(ctx, "get_or_create_category", match)
}

func (s *PostgresStore) exists(ctx context.Context, op string, where ...sq.Sqlizer) (bool, error) {
	b := psql.Select("1").From("noticias").Limit(1)
	for _, w := range where {
		b = b.Where(w)
	}
	query, args, err := b.ToSql()
	if err != nil {
		return false, err
	}
	var one int
	err = s.pool.QueryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, s.wrap(op, err)
	}
	return true, nil
}

func (s *PostgresStore) ExistsArticleBySourceURL(ctx context.Context, sourceURL string) (bool, error) {
	return s.exists(ctx, "exists_source_url", sq.Eq{"fonte_url": sourceURL})
}

func (s *PostgresStore) ExistsSimilarTitleToday(ctx context.Context, prefix string) (bool, error) {
	return s.exists(ctx, "exists_similar_title",
		sq.ILike{"titulo": escapeLike(prefix) + "%"},
		sq.GtOrEq{"criado_em": types.StartOfDay(s.now())},
	)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (s *PostgresStore) SaveArticle(ctx context.Context, a *types.Article) error {
	slug, err := uniqueSlug(ctx, a.Title, func(ctx context.Context, slug string) (bool, error) {
		return s.exists(ctx, "slug_lookup", sq.Eq{"slug": slug})
	})
	if err != nil {
		return err
	}
	prepare(a, uuid.NewString(), slug, s.siteBase, s.now())

	videos := a.VideoURLs
	if videos == nil {
		videos = []string{}
	}
	query, args, err := psql.Insert("noticias").
		Columns(articleColumns...).
		Values(
			a.ID, a.Title, a.Slug, a.Content, a.PublishedAt, a.CreatedAt, a.Status, a.Highlighted,
			nullable(a.CategoryID), a.SourceURL, a.SourceName,
			a.ImageURL, a.ImageAlt, a.ImageCredit, a.ImageLicence, a.ImageSourceURL,
			a.Views, a.Clicks, a.Shares, a.TrendingScore, a.HasVideo, videos,
		).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return s.wrap("save_article", err)
	}
	s.logger.Debug("article stored", "id", a.ID, "slug", a.Slug)
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func (s *PostgresStore) UpdateArticleImage(ctx context.Context, id string, img types.ImageResult) error {
	var a types.Article
	a.ApplyImage(img)
	query, args, err := psql.Update("noticias").
		SetMap(map[string]any{
			"imagem":           a.ImageURL,
			"imagem_alt":       a.ImageAlt,
			"imagem_credito":   a.ImageCredit,
			"imagem_licenca":   a.ImageLicence,
			"imagem_fonte_url": a.ImageSourceURL,
		}).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return s.wrap("update_image", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("article %s: %w", id, types.ErrNotFound)
	}
	return nil
}

func scanArticle(row pgx.Row) (*types.Article, error) {
	var a types.Article
	var categoryID *string
	err := row.Scan(
		&a.ID, &a.Title, &a.Slug, &a.Content, &a.PublishedAt, &a.CreatedAt, &a.Status, &a.Highlighted,
		&categoryID, &a.SourceURL, &a.SourceName,
		&a.ImageURL, &a.ImageAlt, &a.ImageCredit, &a.ImageLicence, &a.ImageSourceURL,
		&a.Views, &a.Clicks, &a.Shares, &a.TrendingScore, &a.HasVideo, &a.VideoURLs,
	)
	if err != nil {
		return nil, err
	}
	if categoryID != nil {
		a.CategoryID = *categoryID
	}
	return &a, nil
}

func (s *PostgresStore) GetArticleBySlug(ctx context.Context, slug string) (*types.Article, error) {
	query, args, err := psql.Select(articleColumns...).From("noticias").Where(sq.Eq{"slug": slug}).ToSql()
	if err != nil {
		return nil, err
	}
	a, err := scanArticle(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("article %q: %w", slug, types.ErrNotFound)
	}
	if err != nil {
		return nil, s.wrap("get_article", err)
	}
	return a, nil
}

func (s *PostgresStore) RecentArticles(ctx context.Context, since time.Time) ([]types.Article, error) {
	query, args, err := psql.Select(articleColumns...).
		From("noticias").
		Where(sq.GtOrEq{"criado_em": since}).
		OrderBy("criado_em DESC").
		ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, s.wrap("recent_articles", err)
	}
	defer rows.Close()

	var out []types.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, s.wrap("recent_articles", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, s.wrap("recent_articles", err)
	}
	return out, nil
}

func (s *PostgresStore) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	query, args, err := psql.Select("count(*)").From("noticias").Where(sq.GtOrEq{"criado_em": since}).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&n); err != nil {
		return 0, s.wrap("count_created", err)
	}
	return n, nil
}

func (s *PostgresStore) IncrementViews(ctx context.Context, id string) error {
	return s.increment(ctx, id, "views")
}

func (s *PostgresStore) IncrementClicks(ctx context.Context, id string) error {
	return s.increment(ctx, id, "clicks")
}

func (s *PostgresStore) IncrementShares(ctx context.Context, id string) error {
	return s.increment(ctx, id, "shares")
}

// increment bumps one counter and refreshes trending_score in one transaction.
func (s *PostgresStore) increment(ctx context.Context, id, column string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return s.wrap("increment_"+column, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query, args, err := psql.Update("noticias").
		Set(column, sq.Expr(column+" + 1")).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING views, clicks, shares, criado_em").
		ToSql()
	if err != nil {
		return err
	}
	var views, clicks, shares int64
	var created time.Time
	err = tx.QueryRow(ctx, query, args...).Scan(&views, &clicks, &shares, &created)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("article %s: %w", id, types.ErrNotFound)
	}
	if err != nil {
		return s.wrap("increment_"+column, err)
	}

	score := types.TrendingScore(views, clicks, shares, types.AgeDays(created, s.now()))
	query, args, err = psql.Update("noticias").Set("trending_score", score).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return s.wrap("increment_"+column, err)
	}
	return tx.Commit(ctx)
}
