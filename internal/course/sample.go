package course

// Sample returns the demonstration plan shown when the user accepts demo
// mode. A fresh copy is built on every call so callers may mutate it.
func Sample() CourseData {
	return CourseData{
		CourseName:     "Introdução à Programação com Python",
		Description:    "Curso introdutório que leva o participante da lógica de programação até a construção de pequenos scripts de automação.",
		TargetAudience: "Profissionais de áreas não técnicas que desejam automatizar tarefas do dia a dia",
		TotalDuration:  "20 horas",
		Competencies: []Competency{
			{ID: 1, Description: "Aplicar lógica de programação na resolução de problemas", KnowledgeRelationship: "Base para todas as demais competências; exige raciocínio sequencial e condicional."},
			{ID: 2, Description: "Escrever programas Python legíveis usando estruturas de dados básicas", KnowledgeRelationship: "Depende da competência 1; introduz listas, dicionários e funções."},
			{ID: 3, Description: "Automatizar tarefas com arquivos e bibliotecas padrão", KnowledgeRelationship: "Integra as competências 1 e 2 em cenários reais de trabalho."},
		},
		Modules: []Module{
			{
				ID:       1,
				Title:    "Fundamentos de Lógica e Python",
				Duration: "8 horas",
				Lessons: []Lesson{
					{
						ID:              1,
						Title:           "Pensamento computacional e primeiros passos",
						Duration:        LessonDuration,
						Objectives:      []string{"Decompor problemas em passos", "Executar o primeiro programa Python"},
						Content:         "Algoritmos do cotidiano, instalação do ambiente, variáveis, entrada e saída.",
						Strategy:        "Desafios curtos em duplas seguidos de socialização das soluções.",
						Methodology:     "Aprendizagem Baseada em Problemas (PBL)",
						Assessment:      "Lista de exercícios corrigida em aula",
						CompetenciesIDs: []ID{1},
					},
					{
						ID:              2,
						Title:           "Decisões e repetições",
						Duration:        LessonDuration,
						Objectives:      []string{"Usar estruturas condicionais", "Construir laços for e while"},
						Content:         "if/elif/else, operadores lógicos, for, while, range.",
						Strategy:        "Vídeo prévio e resolução guiada de problemas em sala.",
						Methodology:     "Sala de Aula Invertida",
						Assessment:      "Mini projeto: jogo de adivinhação",
						CompetenciesIDs: []ID{1, 2},
					},
				},
			},
			{
				ID:       2,
				Title:    "Automação de Tarefas",
				Duration: "12 horas",
				Lessons: []Lesson{
					{
						ID:              1,
						Title:           "Funções e coleções",
						Duration:        LessonDuration,
						Objectives:      []string{"Criar funções reutilizáveis", "Manipular listas e dicionários"},
						Content:         "Definição de funções, parâmetros, retorno, listas, dicionários e compreensão de listas.",
						Strategy:        "Refatoração coletiva de um script legado.",
						Methodology:     "Aprendizagem Colaborativa",
						Assessment:      "Revisão de código entre pares",
						CompetenciesIDs: []ID{2},
					},
					{
						ID:              2,
						Title:           "Trabalhando com arquivos",
						Duration:        LessonDuration,
						Objectives:      []string{"Ler e gravar arquivos de texto e CSV"},
						Content:         "open, with, módulo csv, tratamento de exceções.",
						Strategy:        "Estudo de caso com planilhas reais da turma.",
						Methodology:     "Aprendizagem Baseada em Projetos",
						Assessment:      "Script que consolida relatórios CSV",
						CompetenciesIDs: []ID{2, 3},
					},
					{
						ID:              3,
						Title:           "Projeto final de automação",
						Duration:        LessonDuration,
						Objectives:      []string{"Planejar e entregar uma automação completa"},
						Content:         "Bibliotecas os, pathlib e datetime; organização de projeto; apresentação.",
						Strategy:        "Hackathon interno com pontuação por entregas.",
						Methodology:     "Gamificação",
						Assessment:      "Apresentação do projeto com rubrica",
						CompetenciesIDs: []ID{1, 2, 3},
					},
				},
			},
		},
	}
}
