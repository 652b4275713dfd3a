package planner

import (
	"strings"

	"github.com/local/lessonplanner/internal/ai"
)

const systemPrompt = "Você é um Engenheiro Pedagógico Sênior. Responda apenas com um objeto JSON que siga o esquema fornecido."

const promptTemplate = `Sua tarefa é transformar o texto abaixo em um plano de curso estruturado e detalhado.

INSTRUÇÕES CRÍTICAS DE ESTRUTURAÇÃO:
1. CARGA HORÁRIA: identifique a carga horária total do curso e de cada módulo ou disciplina.
2. REGRA DE 4 HORAS: cada aula deve ter obrigatoriamente a duração de "4 horas".
3. CÁLCULO DE AULAS: o número de aulas de um módulo é a carga horária do módulo dividida por 4, arredondada para cima.
   Exemplos: 16h geram 4 aulas; 20h geram 5 aulas; 18h geram 5 aulas.
4. FIDELIDADE E EXPANSÃO: mantenha fidelidade total aos tópicos do plano original e expanda-os com metodologias ativas (PBL, sala de aula invertida, gamificação) e estratégias pedagógicas claras para preencher as 4 horas de cada aula.
5. COMPETÊNCIAS: numere as competências a partir de 1 e relacione cada aula, pelos ids, às competências identificadas no plano original de forma lógica e progressiva.
6. IDENTIFICADORES: módulos e aulas usam ids inteiros positivos, únicos dentro do seu escopo, em ordem de ensino.

TEXTO DO PLANO ORIGINAL (PDF OU TEXTO):
`

// BuildPrompt embeds the whole source text in the generation instructions.
func BuildPrompt(text string) string {
	var b strings.Builder
	b.Grow(len(promptTemplate) + len(text))
	b.WriteString(promptTemplate)
	b.WriteString(text)
	return b.String()
}

// CourseSchema describes the plan the completion service must return.
func CourseSchema() *ai.Schema {
	str := func(desc string) *ai.Schema { return &ai.Schema{Type: ai.TypeString, Description: desc} }
	ids := &ai.Schema{Type: ai.TypeArray, Items: &ai.Schema{Type: ai.TypeInteger}}

	lesson := &ai.Schema{
		Type: ai.TypeObject,
		Properties: map[string]*ai.Schema{
			"id":              {Type: ai.TypeInteger},
			"title":           str(""),
			"duration":        str("Deve ser sempre '4 horas'"),
			"objectives":      {Type: ai.TypeArray, Items: str("")},
			"content":         str("Conteúdo detalhado para 4h de aula"),
			"strategy":        str(""),
			"methodology":     str(""),
			"assessment":      str(""),
			"competenciesIds": ids,
		},
		Order: []string{"id", "title", "duration", "objectives", "content", "strategy", "methodology", "assessment", "competenciesIds"},
	}
	lesson.Required = lesson.Order

	module := &ai.Schema{
		Type: ai.TypeObject,
		Properties: map[string]*ai.Schema{
			"id":       {Type: ai.TypeInteger},
			"title":    str(""),
			"duration": str("Carga horária do módulo, por exemplo '16 horas'"),
			"lessons":  {Type: ai.TypeArray, Items: lesson},
		},
		Order:    []string{"id", "title", "duration", "lessons"},
		Required: []string{"id", "title", "lessons"},
	}

	competency := &ai.Schema{
		Type: ai.TypeObject,
		Properties: map[string]*ai.Schema{
			"id":                    {Type: ai.TypeInteger},
			"description":           str(""),
			"knowledgeRelationship": str(""),
		},
		Order: []string{"id", "description", "knowledgeRelationship"},
	}
	competency.Required = competency.Order

	root := &ai.Schema{
		Type: ai.TypeObject,
		Properties: map[string]*ai.Schema{
			"courseName":     str(""),
			"description":    str(""),
			"targetAudience": str(""),
			"totalDuration":  str("Carga horária total identificada"),
			"competencies":   {Type: ai.TypeArray, Items: competency},
			"modules":        {Type: ai.TypeArray, Items: module},
		},
		Order: []string{"courseName", "description", "targetAudience", "totalDuration", "competencies", "modules"},
	}
	root.Required = root.Order
	return root
}
