// Package video finds a YouTube video that belongs to an article and embeds
// it in the rewritten body.
package video

import (
	"html"
	"regexp"
	"strings"
)

// Sources recorded in Video.Source, in lookup order.
const (
	SourcePublisherURL  = "publisher_url"
	SourcePublisherPage = "publisher_page"
	SourcePublisherText = "publisher_text"
	SourceRewrite       = "rewrite"
	SourceSearch        = "youtube_search"
)

const (
	titleFromSource = "Vídeo da notícia original"
	titleRelated    = "Vídeo relacionado"
)

// idPatterns match the URL shapes that carry an 11-character video ID. The
// host is matched case-insensitively; the ID keeps its case.
var idPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i:youtube(?:-nocookie)?\.com/watch\?(?:[^\s"'<>]*&)?v=)([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`),
	regexp.MustCompile(`(?i:youtu\.be/)([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`),
	regexp.MustCompile(`(?i:youtube(?:-nocookie)?\.com/(?:embed|v|shorts|live)/)([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`),
}

// mentionWords suggest the source talks about a video without linking one.
var mentionWords = []string{
	"vídeo", "video", "youtube", "assista", "gravação", "gravacao",
	"filmagem", "filmado", "gravado", "transmissão", "transmissao", "ao vivo",
}

// Video is a YouTube video chosen for an article.
type Video struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Source string `json:"source"`
}

// WatchURL is the canonical page of the video, stored with the article.
func (v Video) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}

// EmbedURL is the iframe source of the video.
func (v Video) EmbedURL() string {
	return "https://www.youtube.com/embed/" + v.ID + "?rel=0&modestbranding=1"
}

// ExtractID returns the first video ID found in text, or "".
func ExtractID(text string) string {
	for _, re := range idPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return ""
}

// HasMention reports whether text talks about a video.
func HasMention(text string) bool {
	lower := strings.ToLower(text)
	for _, w := range mentionWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// HasEmbed reports whether content already embeds a YouTube player.
func HasEmbed(content string) bool {
	lower := strings.ToLower(content)
	return strings.Contains(lower, "youtube.com/embed/") || strings.Contains(lower, "youtube-nocookie.com/embed/")
}

// EmbedHTML renders the player block. It carries no visible text so the
// article word count is unchanged.
func EmbedHTML(v Video) string {
	t := v.Title
	if t == "" {
		t = titleRelated
	}
	return `<figure class="video-embed"><iframe src="` + html.EscapeString(v.EmbedURL()) +
		`" title="` + html.EscapeString(t) +
		`" loading="lazy" allow="accelerometer; encrypted-media; picture-in-picture" allowfullscreen></iframe></figure>`
}

// Embed inserts the player after the first paragraph of content, or appends
// it when there is none. Content that already embeds a video is returned as is.
func Embed(content string, v Video) string {
	if v.ID == "" || HasEmbed(content) {
		return content
	}
	block := EmbedHTML(v)
	if i := strings.Index(strings.ToLower(content), "</p>"); i >= 0 {
		end := i + len("</p>")
		return content[:end] + "\n" + block + content[end:]
	}
	return content + "\n" + block
}
