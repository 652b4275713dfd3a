package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/local/lessonplanner/internal/acquire"
	"github.com/local/lessonplanner/internal/ai"
	"github.com/local/lessonplanner/internal/config"
	"github.com/local/lessonplanner/internal/course"
	"github.com/local/lessonplanner/internal/planner"
)

type stubClient struct {
	configured bool
	text       string
	calls      int
}

func (s *stubClient) Name() string     { return "gemini" }
func (s *stubClient) Model() string    { return "gemini-test" }
func (s *stubClient) Configured() bool { return s.configured }
func (s *stubClient) Do(context.Context, ai.Request) (ai.Response, error) {
	s.calls++
	return ai.Response{Text: s.text}, nil
}

var planText = strings.Repeat("Módulo 1: Fundamentos de redes (8h). Módulo 2: Automação (12h). ", 3)

func run(t *testing.T, c ai.Client, args ...string) (string, string, error) {
	t.Helper()
	prev := newClient
	newClient = func(config.Config) (ai.Client, error) { return c, nil }
	t.Cleanup(func() { newClient = prev })

	var out, errOut bytes.Buffer
	cmd := newRootCmd(&out, &errOut)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "none.env")}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestGeneratePrintsPlan(t *testing.T) {
	b, err := json.Marshal(course.Sample())
	require.NoError(t, err)
	c := &stubClient{configured: true, text: string(b)}

	out, _, err := run(t, c, "generate", "--text", planText)
	require.NoError(t, err)

	var cd course.CourseData
	require.NoError(t, json.Unmarshal([]byte(out), &cd))
	assert.Len(t, cd.Modules, 2)
	assert.Equal(t, 1, c.calls)
}

func TestGenerateUnconfiguredFails(t *testing.T) {
	c := &stubClient{}
	out, errOut, err := run(t, c, "generate", "--text", planText)
	require.Error(t, err)
	assert.True(t, planner.IsConfiguration(err))
	assert.Empty(t, out)
	assert.Contains(t, errOut, "--demo-on-config-error")
	assert.Equal(t, 0, c.calls)
}

func TestGenerateDemoOnConfigError(t *testing.T) {
	out, errOut, err := run(t, &stubClient{}, "generate", "--text", planText, "--demo-on-config-error")
	require.NoError(t, err)
	assert.Contains(t, errOut, `"demonstration": true`)

	var cd course.CourseData
	require.NoError(t, json.Unmarshal([]byte(out), &cd))
	assert.Equal(t, course.Sample().CourseName, cd.CourseName)
}

func TestGenerateShortInput(t *testing.T) {
	c := &stubClient{configured: true}
	_, _, err := run(t, c, "generate", "--text", "curto")
	assert.True(t, acquire.IsValidation(err, acquire.CodeInputTooShort))
	assert.Equal(t, 0, c.calls)
}

func TestExtractRejectsNonPDF(t *testing.T) {
	p := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(p, []byte("plain text"), 0o644))

	_, _, err := run(t, &stubClient{}, "extract", p)
	assert.True(t, acquire.IsValidation(err, acquire.CodeWrongType))
}

func TestGenerateRejectsTextAndFile(t *testing.T) {
	_, _, err := run(t, &stubClient{}, "generate", "--text", planText, "doc.pdf")
	assert.ErrorContains(t, err, "not both")
}
