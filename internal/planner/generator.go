// Package planner turns source text into a validated course plan with a
// single request to the configured completion service.
package planner

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/lessonplanner/internal/acquire"
	"github.com/local/lessonplanner/internal/ai"
	"github.com/local/lessonplanner/internal/config"
	"github.com/local/lessonplanner/internal/course"
	"github.com/local/lessonplanner/internal/metrics"
)

const defaultTimeout = 60 * time.Second

var credentialHints = map[string]string{
	"gemini":    "defina GEMINI_API_KEY (ou API_KEY)",
	"openai":    "defina OPENAI_API_KEY",
	"anthropic": "defina ANTHROPIC_API_KEY",
}

var errInflight = errors.New("too many requests in flight")

// Gate caps concurrent requests per provider and model. A refused request
// fails at once as rate limited.
type Gate interface {
	Allow(ctx context.Context, provider, model string) (release func(), ok bool)
}

// Generator issues plan generation requests.
type Generator struct {
	cfg    config.GenerationConfig
	client ai.Client
	gate   Gate
}

// New creates a Generator for client.
func New(cfg config.GenerationConfig, client ai.Client) *Generator {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultTimeout
	}
	return &Generator{cfg: cfg, client: client}
}

// WithGate routes requests through gate. A nil gate disables the cap.
func (g *Generator) WithGate(gate Gate) *Generator {
	g.gate = gate
	return g
}

// Provider names the completion service in use.
func (g *Generator) Provider() string {
	if g.client == nil {
		return "ai"
	}
	return g.client.Name()
}

// Configured reports whether a request could be sent at all.
func (g *Generator) Configured() bool { return g.client != nil && g.client.Configured() }

func (g *Generator) configError(err error) *ConfigurationError {
	name := g.Provider()
	return &ConfigurationError{Provider: name, Hint: credentialHints[name], Err: err}
}

// Generate sends text to the completion service and returns a validated
// plan. On error the returned plan is always nil.
func (g *Generator) Generate(ctx context.Context, text string) (*course.CourseData, error) {
	input, err := acquire.CheckInput(text, g.cfg.MinInputChars)
	if err != nil {
		return nil, err
	}
	if !g.Configured() {
		metrics.IncPlan("config_error")
		return nil, g.configError(nil)
	}

	name, model := g.client.Name(), g.client.Model()
	lg := log.With().Str("provider", name).Str("model", model).Logger()

	if g.gate != nil {
		release, ok := g.gate.Allow(ctx, name, model)
		if !ok {
			lg.Warn().Msg("plan request refused: in-flight cap reached")
			metrics.IncPlan(string(KindRateLimited))
			return nil, &GenerationError{Kind: KindRateLimited, Err: errInflight}
		}
		defer release()
	}

	reqCtx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Do(reqCtx, ai.Request{
		Model:        model,
		SystemPrompt: systemPrompt,
		Prompt:       BuildPrompt(input),
		Schema:       CourseSchema(),
		Temperature:  g.cfg.Temperature,
		MaxTokens:    g.cfg.MaxTokens,
	})
	dur := time.Since(start)
	metrics.ObserveProvider(name, model, ai.Classify(err), dur)

	if err != nil {
		out := g.classify(reqCtx, err)
		lg.Warn().Err(err).Dur("duration", dur).Str("class", ai.Classify(err)).Msg("plan request failed")
		metrics.IncPlan(outcomeOf(out))
		return nil, out
	}

	lg.Info().
		Dur("duration", dur).
		Int("tokens_in", resp.TokensIn).
		Int("tokens_out", resp.TokensOut).
		Bool("structured", resp.Structured).
		Msg("plan response received")

	cd, err := ParseCourse(resp.Text)
	if err != nil {
		kind := KindMalformed
		if errors.Is(err, errBlank) {
			kind = KindEmpty
		}
		lg.Warn().Err(err).Int("chars", len(resp.Text)).Msg("plan response unreadable")
		metrics.IncPlan(string(kind))
		return nil, &GenerationError{Kind: kind, Err: err}
	}
	if err := cd.Validate(); err != nil {
		lg.Warn().Err(err).Msg("plan failed validation")
		metrics.IncPlan(string(KindSchema))
		return nil, &GenerationError{Kind: KindSchema, Err: err}
	}
	checkLessonCounts(cd)

	metrics.IncPlan("success")
	lg.Info().
		Str("course", cd.CourseName).
		Int("modules", len(cd.Modules)).
		Int("lessons", cd.TotalLessons()).
		Msg("plan generated")
	return cd, nil
}

func (g *Generator) classify(ctx context.Context, err error) error {
	switch {
	case ai.IsAuthError(err):
		return g.configError(err)
	case errors.Is(ctx.Err(), context.DeadlineExceeded) || ai.IsTimeout(err):
		return &GenerationError{Kind: KindTimeout, Err: err}
	case ai.IsRateLimited(err):
		return &GenerationError{Kind: KindRateLimited, Err: err}
	case errors.Is(err, ai.ErrEmptyResponse) || ai.IsContentRefused(err):
		return &GenerationError{Kind: KindEmpty, Err: err}
	default:
		return &GenerationError{Kind: KindNetwork, Err: err}
	}
}

func outcomeOf(err error) string {
	if IsConfiguration(err) {
		return "config_error"
	}
	return string(KindOf(err))
}

// checkLessonCounts logs modules whose hour label disagrees with the number
// of 4-hour lessons generated for them.
func checkLessonCounts(cd *course.CourseData) {
	for _, m := range cd.Modules {
		hours, ok := course.ParseHours(m.Duration)
		if !ok {
			continue
		}
		if want := course.LessonsForHours(hours); want != len(m.Lessons) {
			log.Warn().
				Int("module_id", int(m.ID)).
				Int("hours", hours).
				Int("want_lessons", want).
				Int("got_lessons", len(m.Lessons)).
				Msg("module lesson count does not match its hours")
		}
	}
}

// Demo returns the demonstration plan shown when the service is not
// configured and the user explicitly asks for it.
func Demo() *course.CourseData {
	cd := course.Sample()
	return &cd
}
