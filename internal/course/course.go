// Package course holds the lesson plan data model returned by a generation
// request, its wire schema mapping and the structural validation applied
// before a plan reaches the UI.
package course

// LessonDuration is the label every lesson carries: lessons are fixed 4-hour sessions.
const LessonDuration = "4 horas"

// LessonHours is the length of one lesson in hours.
const LessonHours = 4

// CourseData is the top-level plan for one course.
type CourseData struct {
	CourseName     string       `json:"courseName"`
	Description    string       `json:"description"`
	TargetAudience string       `json:"targetAudience"`
	TotalDuration  string       `json:"totalDuration"`
	Competencies   []Competency `json:"competencies"`
	Modules        []Module     `json:"modules"`
}

// Competency is a target skill that lessons are mapped to.
type Competency struct {
	ID                    ID     `json:"id"`
	Description           string `json:"description"`
	KnowledgeRelationship string `json:"knowledgeRelationship"`
}

// Module groups lessons by theme, in teaching order.
type Module struct {
	ID       ID       `json:"id"`
	Title    string   `json:"title"`
	Duration string   `json:"duration,omitempty"`
	Lessons  []Lesson `json:"lessons"`
}

// Lesson is one 4-hour teaching unit.
type Lesson struct {
	ID              ID       `json:"id"`
	Title           string   `json:"title"`
	Duration        string   `json:"duration"`
	Objectives      []string `json:"objectives"`
	Content         string   `json:"content"`
	Strategy        string   `json:"strategy"`
	Methodology     string   `json:"methodology"`
	Assessment      string   `json:"assessment"`
	CompetenciesIDs []ID     `json:"competenciesIds"`
}

// TotalLessons counts lessons across all modules.
func (c *CourseData) TotalLessons() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.Lessons)
	}
	return n
}

// Module looks a module up by id.
func (c *CourseData) Module(id ID) (*Module, bool) {
	for i := range c.Modules {
		if c.Modules[i].ID == id {
			return &c.Modules[i], true
		}
	}
	return nil, false
}

// Competency looks a competency up by id.
func (c *CourseData) Competency(id ID) (*Competency, bool) {
	for i := range c.Competencies {
		if c.Competencies[i].ID == id {
			return &c.Competencies[i], true
		}
	}
	return nil, false
}

// FirstModule returns the first module in teaching order.
func (c *CourseData) FirstModule() (*Module, bool) {
	if len(c.Modules) == 0 {
		return nil, false
	}
	return &c.Modules[0], true
}

// Lesson looks a lesson up by id inside the module.
func (m *Module) Lesson(id ID) (*Lesson, bool) {
	for i := range m.Lessons {
		if m.Lessons[i].ID == id {
			return &m.Lessons[i], true
		}
	}
	return nil, false
}

// Hours sums the lesson hours of the module.
func (m *Module) Hours() int { return len(m.Lessons) * LessonHours }
