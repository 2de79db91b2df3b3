package title

// bank is a named family of title templates. Every template holds {keyword}.
type bank struct {
	name      string
	templates []string
}

var banks = map[string]bank{
	"pergunta_direta": {"pergunta_direta", []string{
		"O que se sabe sobre {keyword}?",
		"Como {keyword} está mudando o cenário atual?",
		"Por que {keyword} está em destaque?",
		"O que esperar de {keyword} nos próximos dias?",
		"Como {keyword} impacta o dia a dia?",
	}},
	"analise_profunda": {"analise_profunda", []string{
		"Análise completa: {keyword} e suas implicações",
		"Entenda o impacto real de {keyword}",
		"Os bastidores de {keyword}",
		"Análise detalhada sobre {keyword}",
		"O que realmente está por trás de {keyword}",
	}},
	"urgente_atual": {"urgente_atual", []string{
		"{keyword}: últimas atualizações importantes",
		"{keyword} — o caso em desenvolvimento",
		"{keyword}: o que aconteceu agora",
		"Atualização sobre {keyword}",
		"{keyword}: novidades que você precisa saber",
	}},
	"explicativo_didatico": {"explicativo_didatico", []string{
		"Entenda tudo sobre {keyword}",
		"Guia completo: {keyword} explicado",
		"O que você precisa saber sobre {keyword}",
		"Tudo sobre {keyword}: guia definitivo",
		"Explicando {keyword} de forma simples",
	}},
	"impacto_social": {"impacto_social", []string{
		"Como {keyword} afeta a sociedade brasileira",
		"O impacto social de {keyword} no Brasil",
		"{keyword}: consequências para a população",
		"Como {keyword} muda a vida das pessoas",
		"O que {keyword} significa para o Brasil",
	}},
	"economico_financeiro": {"economico_financeiro", []string{
		"{keyword}: impacto na economia brasileira",
		"Análise econômica: {keyword} e o mercado",
		"Como {keyword} afeta o bolso do brasileiro",
		"{keyword}: consequências econômicas",
		"O peso econômico de {keyword}",
	}},
	"politico_institucional": {"politico_institucional", []string{
		"{keyword}: o cenário político atual",
		"Como {keyword} influencia a política",
		"{keyword}: implicações institucionais",
		"O papel político de {keyword}",
		"{keyword} — análise do cenário político",
	}},
	"tecnologico_inovacao": {"tecnologico_inovacao", []string{
		"{keyword}: a tecnologia por trás",
		"Inovação em {keyword}: o que há de novo",
		"Como a tecnologia transforma {keyword}",
		"{keyword}: avanços tecnológicos",
		"O futuro tecnológico de {keyword}",
	}},
}

// bankOrder is the deterministic iteration order over banks.
var bankOrder = []string{
	"pergunta_direta",
	"analise_profunda",
	"urgente_atual",
	"explicativo_didatico",
	"impacto_social",
	"economico_financeiro",
	"politico_institucional",
	"tecnologico_inovacao",
}

var categoryBanks = map[string]string{
	"economia":      "economico_financeiro",
	"política":      "politico_institucional",
	"tecnologia":    "tecnologico_inovacao",
	"saúde":         "impacto_social",
	"meio ambiente": "impacto_social",
	"brasil":        "impacto_social",
	"mundo":         "analise_profunda",
	"esportes":      "urgente_atual",
	"lazer":         "explicativo_didatico",
}

// wrappers keep the cleaned source title and add a framing.
var wrappers = []string{
	"O que muda com {base}",
	"{base} — contexto e impactos",
	"{base}: pontos-chave e próximos passos",
	"Análise: {base}",
	"{base}: entenda em detalhes",
	"{base}: o que você precisa saber",
	"{base}: fatos e perspectivas",
	"Entenda o caso: {base}",
}

// synonyms are applied to the cleaned title to produce a reworded candidate.
var synonyms = [][2]string{
	{"pede que", "solicita que"},
	{"pede", "solicita"},
	{"anuncia", "divulga"},
	{"diz", "afirma"},
	{"aumenta", "eleva"},
	{"reduz", "corta"},
	{"aprova", "dá aval a"},
	{"investiga", "apura"},
	{"restabeleça", "restaure"},
	{"Suprema Corte", "Corte Suprema"},
	{"pagamento", "remuneração"},
	{"bilhões", "bi"},
	{"milhões", "mi"},
}

var brands = []string{
	"Correio Braziliense", "Gazeta do Povo", "Agência Brasil", "Rádio Itatiaia",
	"Jornal Correio", "CartaCapital", "CNN Brasil", "Brasil 247", "Brasil247",
	"Zero Hora", "TV Cultura", "Metrópoles", "InfoMoney", "O Globo", "Estadão",
	"Reuters", "IstoÉ", "Exame", "Folha", "Globo", "Terra", "Época", "Valor",
	"Veja", "Band", "CNN", "BBC", "UOL", "GZH", "G1", "R7", "IG", "247",
}
