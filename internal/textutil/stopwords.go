package textutil

var stopwords = map[string]bool{
	"a": true, "o": true, "as": true, "os": true, "um": true, "uma": true, "uns": true, "umas": true,
	"de": true, "da": true, "do": true, "das": true, "dos": true, "e": true, "ou": true, "mas": true,
	"em": true, "na": true, "no": true, "nas": true, "nos": true, "num": true, "numa": true,
	"por": true, "pela": true, "pelo": true, "pelas": true, "pelos": true, "para": true, "pra": true,
	"com": true, "sem": true, "sobre": true, "entre": true, "durante": true, "após": true, "apos": true,
	"antes": true, "depois": true, "até": true, "ate": true, "desde": true, "contra": true,
	"que": true, "qual": true, "quais": true, "quem": true, "como": true, "quando": true, "onde": true,
	"se": true, "não": true, "nao": true, "sim": true, "já": true, "ja": true, "mais": true, "menos": true,
	"muito": true, "muita": true, "muitos": true, "muitas": true, "pouco": true,
	"ser": true, "é": true, "foi": true, "são": true, "sao": true, "era": true, "será": true, "sera": true,
	"está": true, "esta": true, "estão": true, "estao": true, "tem": true, "têm": true, "ter": true,
	"há": true, "ha": true, "vai": true, "vão": true, "pode": true, "podem": true,
	"este": true, "esse": true, "isso": true, "isto": true, "aquele": true, "aquela": true,
	"essa": true, "esses": true, "essas": true, "estes": true, "estas": true,
	"seu": true, "sua": true, "seus": true, "suas": true, "ele": true, "ela": true, "eles": true, "elas": true,
	"também": true, "tambem": true, "ainda": true, "porque": true, "pois": true, "então": true,
	"diz": true, "afirma": true, "segundo": true, "veja": true, "saiba": true, "entenda": true,
	"hoje": true, "ontem": true, "amanhã": true, "agora": true, "novo": true, "nova": true,
	"the": true, "and": true, "of": true, "to": true, "in": true, "for": true, "on": true, "with": true,
}

// generic terms that make poor image or title keywords.
var genericTerms = map[string]bool{
	"notícia": true, "noticia": true, "notícias": true, "noticias": true,
	"brasil": true, "governo": true, "sobre": true, "dados": true,
	"anos": true, "ano": true, "dias": true, "semana": true, "mês": true,
	"caso": true, "parte": true, "vez": true, "vezes": true, "forma": true,
}

// IsStopword reports whether w (lowercase) is a Portuguese or English stopword.
func IsStopword(w string) bool { return stopwords[w] }

// IsGeneric reports whether w is too generic to drive a search.
func IsGeneric(w string) bool { return genericTerms[w] }
