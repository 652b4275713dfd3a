package course

import (
	"fmt"
	"strings"
)

// FieldError is one structural problem found in a plan.
type FieldError struct {
	Path string
	Msg  string
}

func (e FieldError) String() string { return e.Path + ": " + e.Msg }

// ValidationErrors collects every problem found by Validate.
type ValidationErrors struct {
	Fields []FieldError
}

func (e *ValidationErrors) Error() string {
	if len(e.Fields) == 1 {
		return "invalid course plan: " + e.Fields[0].String()
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return fmt.Sprintf("invalid course plan (%d problems): %s", len(e.Fields), strings.Join(parts, "; "))
}

func (e *ValidationErrors) add(path, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Path: path, Msg: fmt.Sprintf(format, args...)})
}

func (e *ValidationErrors) required(path, v string) {
	if strings.TrimSpace(v) == "" {
		e.add(path, "required")
	}
}

// Validate checks the whole plan: required fields, non-empty modules and
// lessons, unique ids, the 4-hour lesson rule and that every lesson only
// references competencies declared by the course. It returns nil or a
// *ValidationErrors.
func (c *CourseData) Validate() error {
	if c == nil {
		return &ValidationErrors{Fields: []FieldError{{Path: "", Msg: "plan is empty"}}}
	}
	errs := &ValidationErrors{}

	errs.required("courseName", c.CourseName)
	errs.required("description", c.Description)
	errs.required("targetAudience", c.TargetAudience)
	errs.required("totalDuration", c.TotalDuration)

	known := make(map[ID]bool, len(c.Competencies))
	for i, comp := range c.Competencies {
		p := fmt.Sprintf("competencies[%d]", i)
		if comp.ID <= 0 {
			errs.add(p+".id", "must be positive, got %d", comp.ID)
		}
		if known[comp.ID] {
			errs.add(p+".id", "duplicate competency id %d", comp.ID)
		}
		known[comp.ID] = true
		errs.required(p+".description", comp.Description)
		errs.required(p+".knowledgeRelationship", comp.KnowledgeRelationship)
	}

	if len(c.Modules) == 0 {
		errs.add("modules", "at least one module is required")
	}
	moduleIDs := make(map[ID]bool, len(c.Modules))
	for i, m := range c.Modules {
		p := fmt.Sprintf("modules[%d]", i)
		if m.ID <= 0 {
			errs.add(p+".id", "must be positive, got %d", m.ID)
		}
		if moduleIDs[m.ID] {
			errs.add(p+".id", "duplicate module id %d", m.ID)
		}
		moduleIDs[m.ID] = true
		errs.required(p+".title", m.Title)
		if len(m.Lessons) == 0 {
			errs.add(p+".lessons", "at least one lesson is required")
		}
		lessonIDs := make(map[ID]bool, len(m.Lessons))
		for j, l := range m.Lessons {
			lp := fmt.Sprintf("%s.lessons[%d]", p, j)
			if l.ID <= 0 {
				errs.add(lp+".id", "must be positive, got %d", l.ID)
			}
			if lessonIDs[l.ID] {
				errs.add(lp+".id", "duplicate lesson id %d", l.ID)
			}
			lessonIDs[l.ID] = true
			validateLesson(errs, lp, l, known)
		}
	}

	if len(errs.Fields) == 0 {
		return nil
	}
	return errs
}

func validateLesson(errs *ValidationErrors, p string, l Lesson, known map[ID]bool) {
	errs.required(p+".title", l.Title)
	errs.required(p+".content", l.Content)
	errs.required(p+".strategy", l.Strategy)
	errs.required(p+".methodology", l.Methodology)
	errs.required(p+".assessment", l.Assessment)

	if strings.TrimSpace(l.Duration) == "" {
		errs.add(p+".duration", "required")
	} else if h, ok := ParseHours(l.Duration); !ok || h != LessonHours {
		errs.add(p+".duration", "lessons last %d hours, got %q", LessonHours, l.Duration)
	}

	if len(l.Objectives) == 0 {
		errs.add(p+".objectives", "at least one objective is required")
	}
	for k, o := range l.Objectives {
		errs.required(fmt.Sprintf("%s.objectives[%d]", p, k), o)
	}

	if l.CompetenciesIDs == nil {
		errs.add(p+".competenciesIds", "required")
	}
	for _, id := range l.CompetenciesIDs {
		if !known[id] {
			errs.add(p+".competenciesIds", "unknown competency %d", id)
		}
	}
}
