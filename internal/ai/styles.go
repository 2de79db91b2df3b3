package ai

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

// WritingStyle describes how the rewritten article should read.
type WritingStyle struct {
	Key             string
	Name            string
	Description     string
	Characteristics []string
	Tone            string
	Perspective     string
}

// DefaultStyle is used when an unknown style key is requested.
const DefaultStyle = "jornalistico"

var writingStyles = map[string]WritingStyle{
	"jornalistico": {
		Key:         "jornalistico",
		Name:        "Jornalístico Clássico",
		Description: "Tom formal e imparcial, linguagem direta e objetiva",
		Characteristics: []string{
			"Use linguagem formal e respeitosa",
			"Mantenha tom imparcial e objetivo",
			"Foque em fatos e dados concretos",
			"Estrutura tradicional de notícia",
			"Evite opiniões pessoais",
			"Use terceira pessoa",
		},
		Tone:        "formal",
		Perspective: "third_person",
	},
	"natural": {
		Key:         "natural",
		Name:        "Natural/Conversacional",
		Description: "Tom amigável e acessível, como uma conversa",
		Characteristics: []string{
			"Use linguagem amigável e acessível",
			"Explique conceitos complexos de forma simples",
			"Escreva como se estivesse conversando com o leitor",
			"Use exemplos práticos e cotidianos",
			"Mantenha tom respeitoso mas próximo",
			"Evite jargões técnicos desnecessários",
		},
		Tone:        "friendly",
		Perspective: "second_person",
	},
	"tecnico": {
		Key:         "tecnico",
		Name:        "Técnico/Analítico",
		Description: "Linguagem especializada com análise profunda",
		Characteristics: []string{
			"Use terminologia técnica quando apropriado",
			"Faça análises detalhadas e profundas",
			"Foque em dados, estatísticas e evidências",
			"Use linguagem formal e precisa",
			"Inclua contexto histórico e comparativo",
			"Mantenha rigor científico",
		},
		Tone:        "analytical",
		Perspective: "third_person",
	},
	"sarcastico": {
		Key:         "sarcastico",
		Name:        "Sarcástico/Inteligente",
		Description: "Tom crítico mas inteligente, com ironia sutil",
		Characteristics: []string{
			"Use ironia sutil sem alterar os fatos",
			"Faça comentários perspicazes",
			"Mantenha seriedade quando necessário",
			"Use humor inteligente, nunca ofensivo",
			"Seja crítico mas construtivo",
			"Nunca distorça informações importantes",
		},
		Tone:        "critical",
		Perspective: "third_person",
	},
	"explicativo": {
		Key:         "explicativo",
		Name:        "Explicativo/Didático",
		Description: "Foco em ensinar e explicar conceitos",
		Characteristics: []string{
			"Explique passo a passo os conceitos",
			"Use linguagem educativa e clara",
			"Quebre conceitos complexos em partes simples",
			"Use analogias e exemplos práticos",
			"Mantenha tom paciente e didático",
			"Foque no aprendizado do leitor",
		},
		Tone:        "educational",
		Perspective: "second_person",
	},
	"dinamico": {
		Key:         "dinamico",
		Name:        "Dinâmico/Moderno",
		Description: "Linguagem jovem e atual, ritmo acelerado",
		Characteristics: []string{
			"Use linguagem contemporânea e dinâmica",
			"Mantenha ritmo acelerado e envolvente",
			"Use expressões modernas quando apropriado",
			"Seja energético mas informativo",
			"Converse com uma audiência jovem",
			"Mantenha relevância atual",
		},
		Tone:        "energetic",
		Perspective: "second_person",
	},
}

// StyleKeys returns the known style keys in sorted order.
func StyleKeys() []string {
	keys := make([]string, 0, len(writingStyles))
	for k := range writingStyles {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LookupStyle returns the style for key, or the default style.
func LookupStyle(key string) WritingStyle {
	if s, ok := writingStyles[strings.ToLower(strings.TrimSpace(key))]; ok {
		return s
	}
	return writingStyles[DefaultStyle]
}

// RandomStyle picks a style uniformly at random.
func RandomStyle(rng *rand.Rand) WritingStyle {
	keys := StyleKeys()
	return writingStyles[keys[rng.Intn(len(keys))]]
}

// Prompt renders the style instructions injected into the rewrite prompt.
func (s WritingStyle) Prompt(topic string, minWords int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "ESTILO DE ESCRITA: %s\n", s.Name)
	fmt.Fprintf(&b, "DESCRIÇÃO: %s\n\n", s.Description)
	b.WriteString("CARACTERÍSTICAS OBRIGATÓRIAS:\n")
	for _, c := range s.Characteristics {
		fmt.Fprintf(&b, "• %s\n", c)
	}
	b.WriteString("\nINSTRUÇÕES ESPECÍFICAS:\n")
	fmt.Fprintf(&b, "- Tópico: %s\n", topic)
	fmt.Fprintf(&b, "- Palavras mínimas: %d\n", minWords)
	fmt.Fprintf(&b, "- Tom: %s\n", s.Tone)
	fmt.Fprintf(&b, "- Perspectiva: %s\n", s.Perspective)
	b.WriteString("- NÃO altere fatos ou informações importantes\n")
	b.WriteString("- Mantenha precisão jornalística\n")
	b.WriteString("- Use exatamente 2 subtítulos H2\n")
	b.WriteString("- Conteúdo em português brasileiro\n\n")
	b.WriteString("IMPORTANTE: adapte o estilo mas mantenha a veracidade dos fatos!\n")
	return b.String()
}
