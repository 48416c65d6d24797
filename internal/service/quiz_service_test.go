package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"storyquiz-service/internal/models"
)

type fakeStore struct {
	quizzes  map[string]*models.Quiz
	getCalls int
	saves    int
	updates  int
}

func newFakeStore() *fakeStore {
	return &fakeStore{quizzes: make(map[string]*models.Quiz)}
}

func (f *fakeStore) Get(ctx context.Context, userID, storyID string) (*models.Quiz, error) {
	f.getCalls++
	q, ok := f.quizzes[userID+"_"+storyID]
	if !ok {
		return nil, nil
	}
	// Return a copy, as a decode from the database would.
	cp := *q
	return &cp, nil
}

func (f *fakeStore) Save(ctx context.Context, userID, storyID string, quiz *models.Quiz) error {
	f.saves++
	cp := *quiz
	f.quizzes[userID+"_"+storyID] = &cp
	return nil
}

func (f *fakeStore) Update(ctx context.Context, userID, storyID string, fields map[string]interface{}) error {
	f.updates++
	q, ok := f.quizzes[userID+"_"+storyID]
	if !ok {
		return errors.New("no document to update")
	}
	if v, ok := fields["submitted"].(bool); ok {
		q.Submitted = v
	}
	if v, ok := fields["last_score"].(int); ok {
		q.LastScore = v
	}
	if v, ok := fields["last_accuracy"].(float64); ok {
		q.LastAccuracy = v
	}
	if v, ok := fields["last_bonus"].(int); ok {
		q.LastBonus = v
	}
	if v, ok := fields["results"].([]models.QuestionResult); ok {
		q.Results = v
	}
	return nil
}

func (f *fakeStore) FindGradedByUser(ctx context.Context, userID string) ([]models.Quiz, error) {
	var out []models.Quiz
	for _, q := range f.quizzes {
		if q.UserID == userID && q.Submitted {
			out = append(out, *q)
		}
	}
	return out, nil
}

type fakeFetcher struct {
	calls int
	err   error
}

func (f *fakeFetcher) FetchStory(ctx context.Context, storyID string) (string, string, error) {
	f.calls++
	if f.err != nil {
		return "", "", f.err
	}
	return "Test", strings.Repeat("a", 3500), nil
}

type fakeGenerator struct {
	calls int
	err   error
}

func (f *fakeGenerator) Generate(ctx context.Context, title, text string) ([]models.Question, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	questions := make([]models.Question, models.NumQuestions)
	for i := range questions {
		questions[i] = models.Question{
			Question:      fmt.Sprintf("Statement %d", i),
			Choices:       []string{"true", "false"},
			CorrectAnswer: "true",
			Explanation:   fmt.Sprintf("Reason %d", i),
		}
	}
	return questions, nil
}

func newTestService() (*QuizService, *fakeStore, *fakeFetcher, *fakeGenerator) {
	store := newFakeStore()
	fetcher := &fakeFetcher{}
	generator := &fakeGenerator{}
	return NewQuizService(store, fetcher, generator), store, fetcher, generator
}

func allAnswers(v string) []string {
	answers := make([]string, models.NumQuestions)
	for i := range answers {
		answers[i] = v
	}
	return answers
}

func TestGetOrCreateQuizGeneratesOnce(t *testing.T) {
	svc, store, fetcher, generator := newTestService()
	ctx := context.Background()

	first, err := svc.GetOrCreateQuiz(ctx, "user-1", "GB123")
	if err != nil {
		t.Fatalf("First call failed: %v", err)
	}
	second, err := svc.GetOrCreateQuiz(ctx, "user-1", "GB123")
	if err != nil {
		t.Fatalf("Second call failed: %v", err)
	}

	if fetcher.calls != 1 || generator.calls != 1 {
		t.Errorf("Expected 1 fetch and 1 generation, got %d and %d", fetcher.calls, generator.calls)
	}
	if store.saves != 1 {
		t.Errorf("Expected 1 save, got %d", store.saves)
	}

	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	if string(firstJSON) != string(secondJSON) {
		t.Error("Repeated get-or-create must return identical public views")
	}
}

func TestGetOrCreateQuizViewShape(t *testing.T) {
	svc, _, _, _ := newTestService()

	view, err := svc.GetOrCreateQuiz(context.Background(), "user-1", "GB123")
	if err != nil {
		t.Fatalf("GetOrCreateQuiz failed: %v", err)
	}

	if view.Type != models.QuizTypeTrueFalse {
		t.Errorf("Expected type %q, got %q", models.QuizTypeTrueFalse, view.Type)
	}
	if view.NumQuestions != models.NumQuestions || len(view.Questions) != models.NumQuestions {
		t.Errorf("Expected %d questions, got %d", models.NumQuestions, len(view.Questions))
	}

	body, _ := json.Marshal(view)
	if strings.Contains(string(body), "correctAnswer") || strings.Contains(string(body), "explanation") {
		t.Error("Pre-submission view must not leak answers or explanations")
	}
}

func TestGetOrCreateQuizGenerationFailureNotPersisted(t *testing.T) {
	svc, store, _, generator := newTestService()
	generator.err = fmt.Errorf("%w: got 8 questions", models.ErrGenerationFailed)

	_, err := svc.GetOrCreateQuiz(context.Background(), "user-1", "GB123")
	if !errors.Is(err, models.ErrGenerationFailed) {
		t.Fatalf("Expected ErrGenerationFailed, got %v", err)
	}
	if store.saves != 0 {
		t.Errorf("A failed generation must not be persisted, got %d saves", store.saves)
	}
}

func TestGetOrCreateQuizStoryNotFound(t *testing.T) {
	svc, _, fetcher, generator := newTestService()
	fetcher.err = fmt.Errorf("%w: archive returned status 404", models.ErrNotFound)

	_, err := svc.GetOrCreateQuiz(context.Background(), "user-1", "GB999")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
	if generator.calls != 0 {
		t.Error("Generator must not be called when the story is missing")
	}
}

func TestGetQuizRequiresExistingDocument(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.GetQuiz(context.Background(), "user-1", "GB123")
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for absent quiz, got %v", err)
	}
}

func TestSubmitEndToEnd(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.GetOrCreateQuiz(ctx, "user-1", "GB123"); err != nil {
		t.Fatalf("GetOrCreateQuiz failed: %v", err)
	}

	result, err := svc.Submit(ctx, "user-1", "GB123", allAnswers("true"), 100)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	if result.Score != 10 {
		t.Errorf("Expected score 10, got %d", result.Score)
	}
	if result.Accuracy != 100 {
		t.Errorf("Expected accuracy 100, got %v", result.Accuracy)
	}
	if result.Bonus != 10 {
		t.Errorf("Expected bonus 10, got %d", result.Bonus)
	}
	if result.TotalPoints != 60 {
		t.Errorf("Expected totalPoints 60, got %d", result.TotalPoints)
	}
	if len(result.Results) != models.NumQuestions {
		t.Errorf("Expected %d per-question results, got %d", models.NumQuestions, len(result.Results))
	}
	if result.Results[0].Explanation == "" {
		t.Error("Graded results must include explanations")
	}

	stored := store.quizzes["user-1_GB123"]
	if !stored.Submitted {
		t.Error("Expected stored quiz to be marked submitted")
	}
	if len(stored.Questions) != models.NumQuestions {
		t.Error("Grading must leave the original questions untouched")
	}
}

func TestSubmitCaseInsensitiveAnswers(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.GetOrCreateQuiz(ctx, "user-1", "GB123"); err != nil {
		t.Fatalf("GetOrCreateQuiz failed: %v", err)
	}

	result, err := svc.Submit(ctx, "user-1", "GB123", allAnswers("TRUE"), 100)
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if result.Score != 10 {
		t.Errorf("Uppercase answers should normalize and match, got score %d", result.Score)
	}
}

func TestSubmitValidationBeforeStoreAccess(t *testing.T) {
	testCases := []struct {
		name      string
		answers   []string
		timeTaken int
	}{
		{"nine answers", allAnswers("true")[:9], 100},
		{"eleven answers", append(allAnswers("true"), "true"), 100},
		{"zero time", allAnswers("true"), 0},
		{"negative time", allAnswers("true"), -5},
		{"invalid answer value", append(allAnswers("true")[:9], "yes"), 100},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, _, _ := newTestService()

			_, err := svc.Submit(context.Background(), "user-1", "GB123", tc.answers, tc.timeTaken)
			if !errors.Is(err, models.ErrInvalidInput) {
				t.Errorf("Expected ErrInvalidInput, got %v", err)
			}
			if store.getCalls != 0 {
				t.Error("Validation failures must not touch the store")
			}
		})
	}
}

func TestSubmitMissingQuiz(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Submit(context.Background(), "user-1", "GB123", allAnswers("true"), 100)
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for absent quiz, got %v", err)
	}
}

func TestSubmitReplayGuard(t *testing.T) {
	svc, store, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.GetOrCreateQuiz(ctx, "user-1", "GB123"); err != nil {
		t.Fatalf("GetOrCreateQuiz failed: %v", err)
	}
	first, err := svc.Submit(ctx, "user-1", "GB123", allAnswers("true"), 100)
	if err != nil {
		t.Fatalf("First submit failed: %v", err)
	}

	_, err = svc.Submit(ctx, "user-1", "GB123", allAnswers("false"), 50)
	if !errors.Is(err, models.ErrAlreadySubmitted) {
		t.Fatalf("Expected ErrAlreadySubmitted on replay, got %v", err)
	}

	stored := store.quizzes["user-1_GB123"]
	if stored.LastScore != first.Score {
		t.Errorf("Replay must not change the stored grade, got %d", stored.LastScore)
	}
	if store.updates != 1 {
		t.Errorf("Expected exactly 1 grade write, got %d", store.updates)
	}
}

func TestGetUserResults(t *testing.T) {
	svc, _, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.GetOrCreateQuiz(ctx, "user-1", "GB123"); err != nil {
		t.Fatalf("GetOrCreateQuiz failed: %v", err)
	}
	if _, err := svc.GetOrCreateQuiz(ctx, "user-1", "GB456"); err != nil {
		t.Fatalf("GetOrCreateQuiz failed: %v", err)
	}
	if _, err := svc.Submit(ctx, "user-1", "GB123", allAnswers("true"), 100); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	results, err := svc.GetUserResults(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetUserResults failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("Expected 1 graded quiz, got %d", len(results))
	}
}
