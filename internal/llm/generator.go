package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"storyquiz-service/internal/config"
	"storyquiz-service/internal/models"
)

const (
	// The prompt covers only the opening of the story; enough for
	// comprehension questions without blowing the context window.
	excerptLimit = 3000

	requestTimeout = 30 * time.Second

	// Low-but-nonzero temperature: deterministic enough for repeatable
	// question quality, not fully greedy.
	temperature = 0.5
	maxTokens   = 2048

	defaultQuestion    = "Question unavailable"
	defaultExplanation = "No explanation provided."
)

// Generator produces true/false questions by driving an OpenAI-compatible
// chat-completions endpoint. It is a pure transform around one network call
// and persists nothing.
type Generator struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

func NewGenerator(cfg *config.Config) *Generator {
	return &Generator{
		client:  &http.Client{Timeout: requestTimeout},
		baseURL: strings.TrimSuffix(cfg.LLMBaseURL, "/"),
		apiKey:  cfg.LLMAPIKey,
		model:   cfg.LLMModel,
	}
}

type chatCompletionRequest struct {
	Model       string                  `json:"model"`
	Messages    []chatCompletionMessage `json:"messages"`
	Stream      bool                    `json:"stream"`
	Temperature *float64                `json:"temperature,omitempty"`
	MaxTokens   *int                    `json:"max_tokens,omitempty"`
}

type chatCompletionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message chatCompletionMessage `json:"message"`
	} `json:"choices"`
}

// rawQuestion is the untrusted shape of a single generated question.
// CorrectAnswer is deliberately loose: models return booleans, strings, or
// nothing at all.
type rawQuestion struct {
	Question      string      `json:"question"`
	Choices       []string    `json:"choices"`
	CorrectAnswer interface{} `json:"correctAnswer"`
	Explanation   string      `json:"explanation"`
}

// Generate asks the model for exactly 10 true/false questions over the story
// excerpt and normalizes the untrusted response into the canonical schema.
// Fewer than 10 usable questions is a generation failure; the caller must
// not persist anything in that case.
func (g *Generator) Generate(ctx context.Context, title, text string) ([]models.Question, error) {
	content, err := g.complete(ctx, buildPrompt(title, text))
	if err != nil {
		return nil, err
	}
	return parseQuestions(content)
}

func buildPrompt(title, text string) string {
	excerpt := text
	if len(excerpt) > excerptLimit {
		excerpt = excerpt[:excerptLimit]
	}

	var b strings.Builder
	b.WriteString("You are a reading comprehension quiz generator. Based on the story excerpt below, ")
	b.WriteString("create exactly 10 true/false statements that test comprehension and inference, not verbatim recall. ")
	b.WriteString("Do not quote the text directly.\n\n")
	fmt.Fprintf(&b, "Story title: %s\n\nStory excerpt:\n%s\n\n", title, excerpt)
	b.WriteString("Respond with a raw JSON array only, with no prose and no markdown fences. ")
	b.WriteString("Each element must have exactly this shape:\n")
	b.WriteString(`{"question": "<statement>", "choices": ["true", "false"], "correctAnswer": true, "explanation": "<one-sentence explanation>"}`)
	return b.String()
}

func (g *Generator) complete(ctx context.Context, prompt string) (string, error) {
	temp := temperature
	tokens := maxTokens
	request := chatCompletionRequest{
		Model: g.model,
		Messages: []chatCompletionMessage{
			{Role: "user", Content: prompt},
		},
		Stream:      false,
		Temperature: &temp,
		MaxTokens:   &tokens,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %v", models.ErrGenerationFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("%w: %v", models.ErrGenerationFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if g.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+g.apiKey)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("%w: text-generation request", models.ErrUpstreamTimeout)
		}
		return "", fmt.Errorf("%w: text-generation request failed", models.ErrGenerationFailed)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response", models.ErrGenerationFailed)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: text-generation API returned status %d", models.ErrGenerationFailed, resp.StatusCode)
	}

	var response chatCompletionResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return "", fmt.Errorf("%w: unreadable completion response", models.ErrGenerationFailed)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: completion returned no choices", models.ErrGenerationFailed)
	}
	return response.Choices[0].Message.Content, nil
}

func parseQuestions(content string) ([]models.Question, error) {
	var raw []rawQuestion
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &raw); err != nil {
		return nil, fmt.Errorf("%w: output is not a JSON array", models.ErrGenerationFailed)
	}
	if len(raw) < models.NumQuestions {
		return nil, fmt.Errorf("%w: got %d questions, need %d", models.ErrGenerationFailed, len(raw), models.NumQuestions)
	}

	// Keep exactly the first 10 even when the model over-delivers.
	questions := make([]models.Question, 0, models.NumQuestions)
	for _, r := range raw[:models.NumQuestions] {
		questions = append(questions, normalizeQuestion(r))
	}
	return questions, nil
}

// normalizeQuestion coerces one untrusted question into the canonical schema.
// Every field has an explicit default; a correct answer that is not a
// case-insensitive "true" silently becomes "false".
func normalizeQuestion(r rawQuestion) models.Question {
	q := models.Question{
		Question:    strings.TrimSpace(r.Question),
		Choices:     r.Choices,
		Explanation: strings.TrimSpace(r.Explanation),
	}
	if q.Question == "" {
		q.Question = defaultQuestion
	}
	if len(q.Choices) == 0 {
		q.Choices = []string{"true", "false"}
	}
	if q.Explanation == "" {
		q.Explanation = defaultExplanation
	}

	answer := ""
	if r.CorrectAnswer != nil {
		answer = strings.ToLower(strings.TrimSpace(fmt.Sprintf("%v", r.CorrectAnswer)))
	}
	if answer == "true" {
		q.CorrectAnswer = "true"
	} else {
		q.CorrectAnswer = "false"
	}
	return q
}

// stripCodeFence removes a markdown code-fence wrapper (```json ... ```)
// that chat models often add despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	if i := strings.Index(s, "\n"); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func isTimeout(err error) bool {
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}
