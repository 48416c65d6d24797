package service

import (
	"context"
	"fmt"
	"time"

	"storyquiz-service/internal/models"
)

// StoryFetcher resolves a story id to its title and full text.
type StoryFetcher interface {
	FetchStory(ctx context.Context, storyID string) (title, text string, err error)
}

// QuestionGenerator produces the fixed-size question set for a story.
type QuestionGenerator interface {
	Generate(ctx context.Context, title, text string) ([]models.Question, error)
}

// QuizStore is the single shared mutable resource. Get returns (nil, nil)
// when no quiz exists for the pair; Update merges fields into an existing
// document.
type QuizStore interface {
	Get(ctx context.Context, userID, storyID string) (*models.Quiz, error)
	Save(ctx context.Context, userID, storyID string, quiz *models.Quiz) error
	Update(ctx context.Context, userID, storyID string, fields map[string]interface{}) error
	FindGradedByUser(ctx context.Context, userID string) ([]models.Quiz, error)
}

type QuizService struct {
	store     QuizStore
	fetcher   StoryFetcher
	generator QuestionGenerator
}

func NewQuizService(store QuizStore, fetcher StoryFetcher, generator QuestionGenerator) *QuizService {
	return &QuizService{
		store:     store,
		fetcher:   fetcher,
		generator: generator,
	}
}

// GetOrCreateQuiz returns the public view of the pair's quiz, generating and
// persisting it on the first request. Generation is best-effort at-most-once:
// two concurrent calls for the same absent pair can both miss the cache and
// both generate, with a last-write-wins overwrite in the store. No lock is
// taken; this duplicate-generation race is an accepted limitation.
func (s *QuizService) GetOrCreateQuiz(ctx context.Context, userID, storyID string) (*models.QuizView, error) {
	if userID == "" || storyID == "" {
		return nil, fmt.Errorf("%w: userId and storyId are required", models.ErrInvalidInput)
	}

	existing, err := s.store.Get(ctx, userID, storyID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing.PublicView(), nil
	}

	title, text, err := s.fetcher.FetchStory(ctx, storyID)
	if err != nil {
		return nil, err
	}

	questions, err := s.generator.Generate(ctx, title, text)
	if err != nil {
		return nil, err
	}

	quiz := &models.Quiz{
		UserID:       userID,
		StoryID:      storyID,
		Type:         models.QuizTypeTrueFalse,
		NumQuestions: models.NumQuestions,
		Title:        title,
		Questions:    questions,
		GeneratedAt:  time.Now().UTC(),
		Submitted:    false,
	}

	if err := s.store.Save(ctx, userID, storyID, quiz); err != nil {
		return nil, err
	}
	return quiz.PublicView(), nil
}

// GetQuiz returns the public view of an existing quiz without triggering
// generation.
func (s *QuizService) GetQuiz(ctx context.Context, userID, storyID string) (*models.QuizView, error) {
	if userID == "" || storyID == "" {
		return nil, fmt.Errorf("%w: userId and storyId are required", models.ErrInvalidInput)
	}

	quiz, err := s.store.Get(ctx, userID, storyID)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, fmt.Errorf("%w: no quiz for story %s", models.ErrNotFound, storyID)
	}
	return quiz.PublicView(), nil
}

// GetUserResults lists a user's graded quizzes.
func (s *QuizService) GetUserResults(ctx context.Context, userID string) ([]models.Quiz, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: userId is required", models.ErrInvalidInput)
	}
	return s.store.FindGradedByUser(ctx, userID)
}
