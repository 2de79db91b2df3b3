package trends

import (
	"regexp"
	"strings"

	"github.com/IshaanNene/radarbr/internal/textutil"
)

// DefaultCategory is assigned to topics that match no keyword.
const DefaultCategory = "geral"

var topicCategories = []struct {
	category string
	keywords []string
}{
	{"política", []string{"eleição", "eleições", "presidente", "governo", "política", "senado", "câmara", "deputado", "ministro", "stf"}},
	{"economia", []string{"economia", "inflação", "dólar", "real", "bolsa", "banco", "juros", "pib", "desemprego", "selic"}},
	{"tecnologia", []string{"tecnologia", "chatgpt", "inteligência artificial", "app", "software", "digital"}},
	{"esportes", []string{"futebol", "copa", "brasileirão", "flamengo", "palmeiras", "corinthians", "esporte"}},
	{"saúde", []string{"saúde", "vacina", "covid", "hospital", "médico", "doença", "tratamento"}},
	{"meio ambiente", []string{"meio ambiente", "clima", "sustentabilidade", "energia", "água", "floresta", "crise hídrica"}},
	{"brasil", []string{"brasil", "brasileiro", "nacional", "brasília", "rio", "são paulo", "minas"}},
}

// CategorizeTopic maps a topic to a coarse category by keyword. The first
// matching category wins; "ia" only matches as a whole word.
func CategorizeTopic(topic string) string {
	lower := strings.ToLower(topic)
	for _, tc := range topicCategories {
		for _, kw := range tc.keywords {
			if strings.Contains(lower, kw) {
				return tc.category
			}
		}
		if tc.category == "tecnologia" && iaRe.MatchString(lower) {
			return tc.category
		}
	}
	return DefaultCategory
}

var iaRe = regexp.MustCompile(`\bia\b`)

var headlineNoise = map[string]bool{
	"análise": true, "notícia": true, "notícias": true, "brasil": true, "brasileiro": true,
}

// ExtractTopic reduces a headline to a short search topic: its first three
// content words longer than two letters, or the first 30 characters of the
// headline when too few remain.
func ExtractTopic(title string) string {
	var words []string
	for _, w := range textutil.Words(title) {
		if len([]rune(w)) <= 2 || textutil.IsStopword(w) || headlineNoise[w] {
			continue
		}
		words = append(words, w)
	}
	switch {
	case len(words) >= 2:
		if len(words) > 3 {
			words = words[:3]
		}
		if topic := strings.Join(words, " "); len([]rune(topic)) > 5 {
			return topic
		}
	case len(words) == 1 && len([]rune(words[0])) > 3:
		return words[0]
	}
	r := []rune(strings.TrimSpace(title))
	if len(r) > 30 {
		r = r[:30]
	}
	return strings.TrimSpace(string(r))
}

var noisePatterns = compile(
	`\bhoje\b`, `\bamanh[ãa]`, `\bontem\b`,
	`que dia`, `que horas`,
	`\bchuva\b`, `previs[ãa]o do tempo`, `tempo agora`,
	`tem jogo`, `not[íi]cias de hoje`,
	`fases da lua`,
	`lotof[áa]cil`, `\bquina\b`, `mega[- ]?sena`,
)

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

// IsNoisy reports whether a topic is too short or is an everyday query
// (weather, lottery, dates) that never yields a news story.
func IsNoisy(topic string) bool {
	t := strings.TrimSpace(topic)
	if len([]rune(t)) <= 3 {
		return true
	}
	for _, re := range noisePatterns {
		if re.MatchString(t) {
			return true
		}
	}
	return false
}

// Similar reports whether two topics share more than half of their words.
func Similar(a, b string) bool {
	return textutil.Jaccard(a, b) > 0.5
}

var seasonal = map[int][]string{
	1:  {"ano novo", "férias janeiro", "carnaval"},
	2:  {"carnaval", "volta às aulas", "imposto de renda"},
	3:  {"páscoa", "outono", "dia da mulher"},
	4:  {"dia do trabalho", "tiradentes", "abril"},
	5:  {"dia das mães", "maio", "inverno"},
	6:  {"festas juninas", "são joão", "junho"},
	7:  {"férias julho", "inverno", "julho"},
	8:  {"dia dos pais", "agosto", "inverno"},
	9:  {"primavera", "setembro", "independência"},
	10: {"outubro", "eleições", "halloween"},
	11: {"novembro", "black friday", "consciência negra"},
	12: {"natal", "ano novo", "dezembro", "férias"},
}

// SeasonalTopics returns the recurring topics for month (1-12).
func SeasonalTopics(month int) []string {
	return append([]string(nil), seasonal[month]...)
}
