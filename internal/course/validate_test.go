package course

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldPaths(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationErrors
	require.True(t, errors.As(err, &verr), "expected *ValidationErrors, got %T", err)
	out := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		out = append(out, f.Path)
	}
	return out
}

func TestValidateRejectsEmptyModules(t *testing.T) {
	c := Sample()
	c.Modules = []Module{}

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, fieldPaths(t, err), "modules")
}

func TestValidateNil(t *testing.T) {
	var c *CourseData
	assert.Error(t, c.Validate())
}

func TestValidateReportsEveryProblem(t *testing.T) {
	c := Sample()
	c.CourseName = "  "
	c.Modules[0].Lessons[0].Duration = "2 horas"
	c.Modules[0].Lessons[1].CompetenciesIDs = []ID{1, 99}
	c.Modules[1].ID = 1
	c.Competencies[2].ID = 2

	err := c.Validate()
	require.Error(t, err)
	paths := fieldPaths(t, err)

	assert.Contains(t, paths, "courseName")
	assert.Contains(t, paths, "modules[0].lessons[0].duration")
	assert.Contains(t, paths, "modules[0].lessons[1].competenciesIds")
	assert.Contains(t, paths, "modules[1].id")
	assert.Contains(t, paths, "competencies[2].id")
	assert.True(t, strings.HasPrefix(err.Error(), "invalid course plan ("))
}

func TestValidateMissingLessonFields(t *testing.T) {
	c := Sample()
	l := &c.Modules[1].Lessons[2]
	l.Objectives = nil
	l.CompetenciesIDs = nil
	l.Assessment = ""

	paths := fieldPaths(t, c.Validate())
	assert.ElementsMatch(t, []string{
		"modules[1].lessons[2].assessment",
		"modules[1].lessons[2].objectives",
		"modules[1].lessons[2].competenciesIds",
	}, paths)
}

func TestValidateModuleWithoutLessons(t *testing.T) {
	c := Sample()
	c.Modules[1].Lessons = nil

	assert.Equal(t, []string{"modules[1].lessons"}, fieldPaths(t, c.Validate()))
}

func TestValidateAcceptsDurationSpellings(t *testing.T) {
	for _, d := range []string{"4 horas", "4h", "4 Hours", " 4 hrs "} {
		c := Sample()
		c.Modules[0].Lessons[0].Duration = d
		assert.NoError(t, c.Validate(), d)
	}
}

func TestValidateEmptyCompetencyListIsAllowed(t *testing.T) {
	c := Sample()
	c.Modules[0].Lessons[0].CompetenciesIDs = []ID{}
	assert.NoError(t, c.Validate())
}
