package models

import "time"

const (
	// QuizTypeTrueFalse is the only quiz type the service generates.
	QuizTypeTrueFalse = "truefalse"

	// NumQuestions is the fixed size of every generated quiz. A generation
	// that yields fewer questions is a failure and is never persisted.
	NumQuestions = 10
)

type Question struct {
	Question      string   `bson:"question" json:"question"`
	Choices       []string `bson:"choices" json:"choices"`
	CorrectAnswer string   `bson:"correct_answer" json:"correctAnswer"`
	Explanation   string   `bson:"explanation" json:"explanation"`
}

// Quiz is the persisted document for one (userId, storyId) pair. The graded
// fields stay empty until the one-time submission; omitempty keeps them out
// of the stored document before then.
type Quiz struct {
	UserID       string           `bson:"user_id" json:"userId"`
	StoryID      string           `bson:"story_id" json:"storyId"`
	Type         string           `bson:"type" json:"type"`
	NumQuestions int              `bson:"num_questions" json:"numQuestions"`
	Title        string           `bson:"title" json:"title"`
	Questions    []Question       `bson:"questions" json:"questions"`
	GeneratedAt  time.Time        `bson:"generated_at" json:"generatedAt"`
	Submitted    bool             `bson:"submitted" json:"submitted"`
	LastScore    int              `bson:"last_score,omitempty" json:"lastScore,omitempty"`
	LastAccuracy float64          `bson:"last_accuracy,omitempty" json:"lastAccuracy,omitempty"`
	LastTime     int              `bson:"last_time,omitempty" json:"lastTime,omitempty"`
	LastBonus    int              `bson:"last_bonus,omitempty" json:"lastBonus,omitempty"`
	Results      []QuestionResult `bson:"results,omitempty" json:"results,omitempty"`
	SubmittedAt  *time.Time       `bson:"submitted_at,omitempty" json:"submittedAt,omitempty"`
}

type QuestionResult struct {
	Question      string `bson:"question" json:"question"`
	UserAnswer    string `bson:"user_answer" json:"userAnswer"`
	CorrectAnswer string `bson:"correct_answer" json:"correctAnswer"`
	IsCorrect     bool   `bson:"is_correct" json:"isCorrect"`
	Explanation   string `bson:"explanation" json:"explanation"`
}

type GradeResult struct {
	Score       int              `json:"score"`
	Accuracy    float64          `json:"accuracy"`
	Bonus       int              `json:"bonus"`
	TotalPoints int              `json:"totalPoints"`
	TimeTaken   int              `json:"timeTaken"`
	Results     []QuestionResult `json:"results"`
}

// QuestionView is the pre-submission projection of a question. It must never
// carry the correct answer or the explanation.
type QuestionView struct {
	Question string   `json:"question"`
	Choices  []string `json:"choices"`
}

type QuizView struct {
	StoryID      string         `json:"storyId"`
	Type         string         `json:"type"`
	NumQuestions int            `json:"numQuestions"`
	Questions    []QuestionView `json:"questions"`
}

// PublicView projects the quiz for the requesting client before submission.
func (q *Quiz) PublicView() *QuizView {
	view := &QuizView{
		StoryID:      q.StoryID,
		Type:         q.Type,
		NumQuestions: q.NumQuestions,
		Questions:    make([]QuestionView, 0, len(q.Questions)),
	}
	for _, question := range q.Questions {
		view.Questions = append(view.Questions, QuestionView{
			Question: question.Question,
			Choices:  question.Choices,
		})
	}
	return view
}

// MarkGraded performs the one-way Pending -> Graded transition. Once a quiz
// is graded it can never be graded again; there is no reverse transition.
func (q *Quiz) MarkGraded(result *GradeResult, at time.Time) error {
	if q.Submitted {
		return ErrAlreadySubmitted
	}
	q.Submitted = true
	q.LastScore = result.Score
	q.LastAccuracy = result.Accuracy
	q.LastTime = result.TimeTaken
	q.LastBonus = result.Bonus
	q.Results = result.Results
	q.SubmittedAt = &at
	return nil
}
