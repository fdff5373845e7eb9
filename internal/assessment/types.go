// Package assessment generates one multiple-choice question per leaf skill.
package assessment

import "github.com/abhisek/studycast/internal/docstore"

// DocKey is the docstore key of the current assessment.
const DocKey = "assessment"

// Answer is one option of a question.
type Answer struct {
	Text      string `json:"text"`
	IsCorrect bool   `json:"is_correct"`
}

// Question tests a single leaf skill. Skill is its identity.
type Question struct {
	Skill   string   `json:"skill"`
	Prompt  string   `json:"prompt"`
	Answers []Answer `json:"answers"`
	Source  string   `json:"source"`
}

// CorrectAnswer returns the text of the first correct option.
func (q *Question) CorrectAnswer() (string, bool) {
	for _, a := range q.Answers {
		if a.IsCorrect {
			return a.Text, true
		}
	}
	return "", false
}

// Assessment is the ordered batch of questions generated from one skill tree.
type Assessment struct {
	Questions []Question `json:"questions"`
}

// Lookup returns the question for skill.
func (a *Assessment) Lookup(skill string) (*Question, bool) {
	for i := range a.Questions {
		if a.Questions[i].Skill == skill {
			return &a.Questions[i], true
		}
	}
	return nil, false
}

// Skills returns the skill of every question, in order.
func (a *Assessment) Skills() []string {
	out := make([]string, len(a.Questions))
	for i, q := range a.Questions {
		out[i] = q.Skill
	}
	return out
}

// Load reads the current assessment from ds. A missing assessment wraps
// docstore.ErrNotFound.
func Load(ds *docstore.Store) (*Assessment, error) {
	var a Assessment
	if err := ds.Get(DocKey, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// Save replaces the current assessment in ds.
func Save(ds *docstore.Store, a *Assessment) error {
	return ds.Put(DocKey, a)
}
