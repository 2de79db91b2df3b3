package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/IshaanNene/radarbr/internal/types"
)

// Export formats.
const (
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
)

var csvHeader = []string{
	"id", "titulo", "slug", "categoria_id", "publicado_em", "fonte_url", "fonte_nome",
	"imagem", "imagem_credito", "views", "clicks", "shares", "trending_score",
}

// Export writes articles to w as a JSON array, newline-delimited JSON or CSV.
// Article bodies are omitted from CSV.
func Export(w io.Writer, format string, articles []types.Article) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if articles == nil {
			articles = []types.Article{}
		}
		if err := enc.Encode(articles); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
		return nil
	case FormatJSONL:
		enc := json.NewEncoder(w)
		for i := range articles {
			if err := enc.Encode(&articles[i]); err != nil {
				return fmt.Errorf("encode JSONL: %w", err)
			}
		}
		return nil
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(csvHeader); err != nil {
			return fmt.Errorf("write CSV header: %w", err)
		}
		for _, a := range articles {
			row := []string{
				a.ID, a.Title, a.Slug, a.CategoryID, a.PublishedAt.Format(time.RFC3339),
				a.SourceURL, a.SourceName, a.ImageURL, a.ImageCredit,
				strconv.FormatInt(a.Views, 10),
				strconv.FormatInt(a.Clicks, 10),
				strconv.FormatInt(a.Shares, 10),
				strconv.FormatFloat(a.TrendingScore, 'f', 2, 64),
			}
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write CSV row: %w", err)
			}
		}
		cw.Flush()
		return cw.Error()
	default:
		return &types.ConfigError{Field: "format", Msg: fmt.Sprintf("unknown export format %q", format)}
	}
}
