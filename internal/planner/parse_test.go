package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/lessonplanner/internal/ai"
)

func TestParseCourseDirect(t *testing.T) {
	cd, err := ParseCourse(`{"courseName":"Go","modules":[{"id":"2","title":"M","lessons":[]}]}`)
	require.NoError(t, err)
	assert.Equal(t, "Go", cd.CourseName)
	assert.EqualValues(t, 2, cd.Modules[0].ID)
}

func TestParseCourseSkipsBracesInStrings(t *testing.T) {
	text := `Resposta: {"courseName":"Uso de } e { em strings \"{\"","description":"ok"} fim`
	cd, err := ParseCourse(text)
	require.NoError(t, err)
	assert.Equal(t, `Uso de } e { em strings "{"`, cd.CourseName)
	assert.Equal(t, "ok", cd.Description)
}

func TestParseCourseTriesNextObject(t *testing.T) {
	text := `nota {sem json} e depois {"courseName":"B"}`
	cd, err := ParseCourse(text)
	require.NoError(t, err)
	assert.Equal(t, "B", cd.CourseName)
}

func TestParseCourseFailures(t *testing.T) {
	for _, text := range []string{"", "   ", "no json here", `{"courseName": "unterminated"`, `{"modules": "wrong type"}`} {
		cd, err := ParseCourse(text)
		assert.Nil(t, cd, text)
		assert.Error(t, err, text)
	}
}

func TestBuildPromptEmbedsText(t *testing.T) {
	p := BuildPrompt("Carga horária: 40h")
	assert.Contains(t, p, "4 horas")
	assert.Contains(t, p, "arredondada para cima")
	assert.Contains(t, p, "Carga horária: 40h")
}

func TestCourseSchemaShape(t *testing.T) {
	s := CourseSchema()
	assert.Equal(t, ai.TypeObject, s.Type)
	assert.ElementsMatch(t, s.Order, s.Required)
	for _, name := range s.Order {
		assert.Contains(t, s.Properties, name)
	}

	lesson := s.Properties["modules"].Items.Properties["lessons"].Items
	assert.Contains(t, lesson.Required, "competenciesIds")
	assert.Equal(t, ai.TypeInteger, lesson.Properties["competenciesIds"].Items.Type)
	assert.Equal(t, ai.TypeInteger, lesson.Properties["id"].Type)
}
