// Package remediation turns missed quiz questions into short spoken
// explanations, stored as one audio file per skill.
package remediation

// Record describes one incorrectly answered question and the context
// needed to explain it.
type Record struct {
	Skill         string `json:"skill"`
	Question      string `json:"question_text"`
	GivenAnswer   string `json:"given_answer"`
	CorrectAnswer string `json:"correct_answer"`
	Passage       string `json:"remediation_passage"`
	Source        string `json:"source"`
}
