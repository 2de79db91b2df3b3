package classifier

import "regexp"

// Fallback is the sentinel category returned when no score clears the threshold.
const Fallback = "brasil"

// Threshold is the minimum weighted score a category needs to win.
const Threshold = 2.0

// pattern is the scoring pack of one category. Keyword lists keep their
// repeated entries; each occurrence scores and counts towards density.
type pattern struct {
	category string
	keywords []string
	context  []*regexp.Regexp
	weight   float64
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(`(?i)` + e)
	}
	return out
}

var foreignMarkers = []string{
	"israel", "gaza", "palestina", "ucrânia", "rússia", "china", "eua", "estados unidos", "europa",
}

// patterns is ordered; ties resolve to the earlier category.
var patterns = []pattern{
	{
		category: "política",
		keywords: []string{
			"política", "governo", "eleições", "presidente", "lula", "bolsonaro",
			"congresso", "ministro", "democracia", "eleitoral", "partido", "candidato",
			"votação", "urna", "eleitor", "mandato", "gestão", "administração",
			"poder", "estado", "federal", "municipal", "estadual", "prefeito",
			"governador", "senador", "deputado", "vereador", "câmara", "senado",
			"anuncia", "anunciou", "declara", "declarou", "pacote",
		},
		context: compile(
			`governo\s+(federal|estadual|municipal)`,
			`(eleições|votação)\s+(municipais|estaduais|federais)`,
			`(presidente|governador|prefeito)\s+(da|do|de)`,
			`(congresso|senado|câmara)\s+(nacional|federal)`,
			`(partido|político)\s+(brasileiro|nacional)`,
			`(democracia|democrático)\s+(brasileira|nacional)`,
		),
		weight: 1.0,
	},
	{
		category: "economia",
		keywords: []string{
			"economia", "mercado", "inflação", "dólar", "real", "investimento",
			"finanças", "banco", "crédito", "bolsa", "ações", "pib", "desemprego",
			"crescimento", "recessão", "crise", "recuperação", "produtividade",
			"exportação", "importação", "balança", "comercial", "fiscal",
			"monetária", "política", "cambial", "taxa", "juros", "selic",
		},
		context: compile(
			`(economia|mercado)\s+(brasileira|nacional)`,
			`(inflação|dólar|real)\s+(sobe|desce|estável)`,
			`(pib|produto interno bruto)`,
			`(bolsa|ações)\s+(de valores|brasileira)`,
			`(banco central|bcb|selic)`,
			`(crescimento|recessão)\s+(econômico|da economia)`,
		),
		weight: 1.0,
	},
	{
		category: "esportes",
		keywords: []string{
			"esportes", "futebol", "copa", "mundial", "brasileirão", "atletismo",
			"jogos", "competição", "campeonato", "jogador", "time", "clube",
			"estádio", "torcida", "gol", "vitória", "derrota", "empate",
			"técnico", "treinador", "atleta", "medalha", "olimpíada", "copa do mundo",
			"marca", "goleia", "partida", "jogo", "memphis", "malta",
		},
		context: compile(
			`(futebol|futebolista)\s+(brasileiro|nacional)`,
			`(brasileirão|campeonato brasileiro)`,
			`(copa do mundo|mundial)\s+(de futebol)`,
			`(time|clube)\s+(brasileiro|de futebol)`,
			`(jogador|atleta)\s+(brasileiro|profissional)`,
			`(estádio|arena)\s+(brasileira|nacional)`,
		),
		weight: 1.0,
	},
	{
		category: "saúde",
		keywords: []string{
			"saúde", "medicina", "hospital", "vacina", "covid", "coronavírus",
			"tratamento", "médico", "doença", "epidemia", "pandemia", "sintomas",
			"diagnóstico", "cura", "prevenção", "sistema", "público", "sus",
			"enfermagem", "enfermeiro", "cirurgia", "medicamento", "farmacêutico",
		},
		context: compile(
			`(saúde|sistema de saúde)\s+(pública|brasileira)`,
			`(hospital|unidade de saúde)\s+(público|municipal)`,
			`(sus|sistema único de saúde)`,
			`(vacina|vacinação)\s+(contra|para)`,
			`(doença|epidemia)\s+(no brasil|brasileira)`,
			`(médico|enfermeiro)\s+(brasileiro|do sus)`,
		),
		weight: 1.0,
	},
	{
		category: "meio ambiente",
		keywords: []string{
			"meio ambiente", "sustentabilidade", "natureza", "clima", "ecologia",
			"verde", "energia", "poluição", "desmatamento", "aquecimento", "global",
			"floresta", "amazônia", "biodiversidade", "recursos", "naturais",
			"conservação", "preservação", "ambiental", "carbono", "emissões",
			"pescaria", "pesca", "traira", "peixe", "rio", "lago", "água", "aquático",
		},
		context: compile(
			`(meio ambiente|ambiental)\s+(brasileiro|nacional)`,
			`(amazônia|floresta amazônica)`,
			`(desmatamento|desflorestamento)\s+(na amazônia)`,
			`(sustentabilidade|sustentável)\s+(brasileira)`,
			`(energia|renovável)\s+(no brasil)`,
			`(poluição|contaminação)\s+(ambiental|do ar)`,
		),
		weight: 1.0,
	},
	{
		category: "tecnologia",
		keywords: []string{
			"tecnologia", "digital", "ia", "inteligência artificial", "chatgpt",
			"app", "software", "blockchain", "crypto", "bitcoin", "startup",
			"inovação", "digital", "internet", "smartphone", "computador",
			"programação", "desenvolvedor", "dados", "big data", "cloud", "nuvem",
			"desenvolve", "desenvolveu", "criou", "criada", "algoritmo", "sistema",
		},
		context: compile(
			`(tecnologia|digital)\s+(brasileira|nacional)`,
			`(startup|empresa de tecnologia)\s+(brasileira)`,
			`(inteligência artificial|ia)\s+(no brasil)`,
			`(app|aplicativo)\s+(brasileiro|nacional)`,
			`(software|programa)\s+(brasileiro|desenvolvido)`,
			`(inovação|inovador)\s+(tecnológica|digital)`,
		),
		weight: 1.0,
	},
	{
		category: "mundo",
		keywords: []string{
			"china", "eua", "estados unidos", "europa", "internacional", "global", "mundial",
			"país", "nação", "estrangeiro", "guerra", "conflito", "onu", "oriente médio", "oriente medio",
			"organização", "mundial", "tratado", "acordo", "internacional",
			"exportação", "importação", "comércio", "exterior", "diplomacia",
			"holanda", "holandês", "holandesa", "países baixos", "américa", "europa",
			"frança", "alemão", "alemã", "italiano", "italiana", "espanhol", "espanhola",
			"israel", "palestina", "gaza", "cisjordânia", "hamas", "hezbollah", "ucrânia", "russia",
		},
		context: compile(
			`(china|estados unidos|eua|israel|ucrânia|rússia|russia)\s+(.*)`,
			`(europa|união europeia)\s+(.*)`,
			`(guerra|conflito)\s+(internacional|mundial|israel|gaza|ucr[aâ]nia)`,
			`(onu|organização das nações unidas)`,
			`(comércio|relações)\s+(internacionais|exteriores)`,
			`(acordo|tratado)\s+(internacional|mundial)`,
		),
		weight: 1.4,
	},
	{
		category: "lazer",
		keywords: []string{
			"lazer", "hobby", "hobbies", "entretenimento", "diversão", "recreação",
			"pescaria", "pesca", "caça", "camping", "trilha", "escalada", "surf",
			"natação", "ciclismo", "corrida", "caminhada", "viagem", "turismo",
			"férias", "ferias", "descanso", "relaxamento", "praia", "montanha",
			"traira", "peixe", "rio", "lago", "pesqueiro", "pesque-pague",
		},
		context: compile(
			`(pescaria|pesca)\s+(de|da|do)`,
			`(hobby|hobbies)\s+(brasileiro|nacional)`,
			`(lazer|entretenimento)\s+(no brasil)`,
			`(férias|ferias)\s+(brasileiras|no brasil)`,
		),
		weight: 1.0,
	},
	{
		category: "brasil",
		keywords: []string{
			"brasil", "brasileiro", "brasileira", "nacional", "federal",
			"estadual", "municipal", "governo federal", "república", "federação",
			"constituição", "democracia", "cidadão", "brasileiro", "sociedade",
		},
		context: compile(
			`(brasil|brasileiro)\s+(é|tem|possui)`,
			`(governo federal|república federativa)`,
			`(sociedade|população)\s+(brasileira)`,
			`(cidadão|brasileiro)\s+(tem direito)`,
			`(constituição|lei)\s+(brasileira|federal)`,
			`(democracia|democrático)\s+(brasileira)`,
		),
		weight: 0.3,
	},
}
