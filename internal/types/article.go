package types

import (
	"math"
	"time"
)

// Article status values, matching the persisted integer column.
const (
	StatusDraft     = 0
	StatusPublished = 1
)

// Column limits of the noticias table.
const (
	MaxTitleLen          = 200
	MaxSlugLen           = 180
	MaxSourceURLLen      = 1000
	MaxSourceNameLen     = 160
	MaxImageURLLen       = 1000
	MaxImageAltLen       = 200
	MaxImageCreditLen    = 200
	MaxImageLicenceLen   = 120
	MaxImageSourceURLLen = 300
	MaxCategoryNameLen   = 120
	MaxCategorySlugLen   = 140
)

// Category is a topical section of the portal.
type Category struct {
	ID   string `json:"id" bson:"_id"`
	Name string `json:"nome" bson:"nome"`
	Slug string `json:"slug" bson:"slug"`
}

// Article is a persisted news item.
type Article struct {
	ID          string    `json:"id" bson:"_id"`
	Title       string    `json:"titulo" bson:"titulo"`
	Slug        string    `json:"slug" bson:"slug"`
	Content     string    `json:"conteudo" bson:"conteudo"`
	PublishedAt time.Time `json:"publicado_em" bson:"publicado_em"`
	CreatedAt   time.Time `json:"criado_em" bson:"criado_em"`
	Status      int       `json:"status" bson:"status"`
	Highlighted bool      `json:"destaque" bson:"destaque"`
	CategoryID  string    `json:"categoria_id,omitempty" bson:"categoria_id,omitempty"`

	SourceURL  string `json:"fonte_url" bson:"fonte_url"`
	SourceName string `json:"fonte_nome" bson:"fonte_nome"`

	ImageURL       string `json:"imagem" bson:"imagem"`
	ImageAlt       string `json:"imagem_alt" bson:"imagem_alt"`
	ImageCredit    string `json:"imagem_credito" bson:"imagem_credito"`
	ImageLicence   string `json:"imagem_licenca" bson:"imagem_licenca"`
	ImageSourceURL string `json:"imagem_fonte_url" bson:"imagem_fonte_url"`

	Views         int64   `json:"views" bson:"views"`
	Clicks        int64   `json:"clicks" bson:"clicks"`
	Shares        int64   `json:"shares" bson:"shares"`
	TrendingScore float64 `json:"trending_score" bson:"trending_score"`

	HasVideo  bool     `json:"has_video" bson:"has_video"`
	VideoURLs []string `json:"video_urls,omitempty" bson:"video_urls,omitempty"`
}

// ApplyImage copies an acquired image onto the article, truncating to column limits.
func (a *Article) ApplyImage(img ImageResult) {
	a.ImageURL = Truncate(img.URL, MaxImageURLLen)
	a.ImageAlt = Truncate(img.Alt, MaxImageAltLen)
	a.ImageCredit = Truncate(img.Credit, MaxImageCreditLen)
	a.ImageLicence = Truncate(img.Licence, MaxImageLicenceLen)
	a.ImageSourceURL = Truncate(img.SourceURL, MaxImageSourceURLLen)
}

// TrendingScore computes views·1 + clicks·2 + shares·3 + max(0, 30 − age_days)·0.1.
func TrendingScore(views, clicks, shares int64, ageDays float64) float64 {
	engagement := float64(views) + float64(clicks)*2 + float64(shares)*3
	return engagement + math.Max(0, 30-ageDays)*0.1
}

// AgeDays returns the whole days elapsed between created and now.
func AgeDays(created, now time.Time) float64 {
	if created.IsZero() || now.Before(created) {
		return 0
	}
	return math.Floor(now.Sub(created).Hours() / 24)
}

// RecomputeTrending refreshes the trending score from the counters.
func (a *Article) RecomputeTrending(now time.Time) {
	a.TrendingScore = TrendingScore(a.Views, a.Clicks, a.Shares, AgeDays(a.CreatedAt, now))
}

// Brasília is the portal's wall-clock zone. Day boundaries and zone-less
// publisher dates use it.
var Brasilia = func() *time.Location {
	if loc, err := time.LoadLocation("America/Sao_Paulo"); err == nil {
		return loc
	}
	return time.FixedZone("BRT", -3*60*60)
}()

// StartOfDay returns midnight of t's day in Brasília time.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.In(Brasilia).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, Brasilia)
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
