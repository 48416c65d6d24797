package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storyquiz-service/internal/models"
)

const (
	pointsPerCorrect = 5

	// A perfect quiz finished under two minutes earns the speed bonus.
	bonusPoints     = 10
	bonusTimeLimit  = 120
	perfectAccuracy = 100.0
)

// Submit grades one answer set against the stored quiz and persists the
// graded state in a single merge-write. The submitted flag is the only
// replay guard: it is read before the write, so two truly concurrent
// submissions can both pass the check and the later write wins. That is an
// accepted limitation of the flag-based guard.
func (s *QuizService) Submit(ctx context.Context, userID, storyID string, answers []string, timeTaken int) (*models.GradeResult, error) {
	normalized, err := validateSubmission(userID, storyID, answers, timeTaken)
	if err != nil {
		return nil, err
	}

	quiz, err := s.store.Get(ctx, userID, storyID)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, fmt.Errorf("%w: no quiz for story %s", models.ErrNotFound, storyID)
	}
	if quiz.Submitted {
		return nil, models.ErrAlreadySubmitted
	}
	if len(quiz.Questions) != len(normalized) {
		return nil, fmt.Errorf("%w: expected %d answers", models.ErrInvalidInput, len(quiz.Questions))
	}

	result := grade(quiz.Questions, normalized, timeTaken)

	now := time.Now().UTC()
	if err := quiz.MarkGraded(result, now); err != nil {
		return nil, err
	}

	// One merge-write; the original questions array is left untouched.
	fields := map[string]interface{}{
		"submitted":     true,
		"last_score":    result.Score,
		"last_accuracy": result.Accuracy,
		"last_time":     result.TimeTaken,
		"last_bonus":    result.Bonus,
		"results":       result.Results,
		"submitted_at":  now,
	}
	if err := s.store.Update(ctx, userID, storyID, fields); err != nil {
		return nil, err
	}
	return result, nil
}

// validateSubmission enforces the structural preconditions before any store
// access and returns the lowercased answers.
func validateSubmission(userID, storyID string, answers []string, timeTaken int) ([]string, error) {
	if userID == "" || storyID == "" {
		return nil, fmt.Errorf("%w: userId and storyId are required", models.ErrInvalidInput)
	}
	if len(answers) != models.NumQuestions {
		return nil, fmt.Errorf("%w: answers must contain exactly %d entries", models.ErrInvalidInput, models.NumQuestions)
	}
	if timeTaken <= 0 {
		return nil, fmt.Errorf("%w: timeTaken must be a positive integer", models.ErrInvalidInput)
	}

	normalized := make([]string, len(answers))
	for i, a := range answers {
		v := strings.ToLower(strings.TrimSpace(a))
		if v != "true" && v != "false" {
			return nil, fmt.Errorf("%w: answer %d must be \"true\" or \"false\"", models.ErrInvalidInput, i)
		}
		normalized[i] = v
	}
	return normalized, nil
}

// grade computes index-aligned correctness and the deterministic bonus rule.
func grade(questions []models.Question, answers []string, timeTaken int) *models.GradeResult {
	correct := 0
	results := make([]models.QuestionResult, 0, len(questions))
	for i, q := range questions {
		isCorrect := answers[i] == q.CorrectAnswer
		if isCorrect {
			correct++
		}
		results = append(results, models.QuestionResult{
			Question:      q.Question,
			UserAnswer:    answers[i],
			CorrectAnswer: q.CorrectAnswer,
			IsCorrect:     isCorrect,
			Explanation:   q.Explanation,
		})
	}

	// Integer numerator keeps the percentage exact (7 correct -> 70, never
	// 70.00000000000001).
	accuracy := float64(correct*100) / float64(len(questions))
	bonus := 0
	if accuracy == perfectAccuracy && timeTaken < bonusTimeLimit {
		bonus = bonusPoints
	}

	return &models.GradeResult{
		Score:       correct,
		Accuracy:    accuracy,
		Bonus:       bonus,
		TotalPoints: correct*pointsPerCorrect + bonus,
		TimeTaken:   timeTaken,
		Results:     results,
	}
}
