package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/civicmitra/backend/internal/models"
)

// RemoteClassifier asks an OpenAI-compatible chat completions endpoint to classify a
// complaint and parses a strict JSON answer.
type RemoteClassifier struct {
	BaseURL string
	Model   string
	APIKey  string
	Client  *http.Client

	mu    sync.Mutex
	cache map[string]cacheEntry
}

type cacheEntry struct {
	value models.Classification
	exp   time.Time
}

const (
	cacheTTL         = 10 * time.Minute
	maxCachedAnswers = 512
)

type remoteAnswer struct {
	Category   string `json:"category"`
	Priority   string `json:"priority"`
	Confidence *int   `json:"confidence"`
	Reasoning  string `json:"reasoning"`
}

func (r *RemoteClassifier) Classify(ctx context.Context, in Input) (models.Classification, error) {
	if strings.TrimSpace(r.BaseURL) == "" || strings.TrimSpace(r.Model) == "" {
		return models.Classification{}, errors.New("ai classifier is not configured")
	}
	prompt := buildPrompt(in)
	if v, ok := r.cacheGet(prompt); ok {
		return v, nil
	}

	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	payload := struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		Messages    []msg   `json:"messages"`
	}{
		Model: r.Model,
		Messages: []msg{
			{Role: "system", Content: "You classify municipal complaints. Reply with JSON only."},
			{Role: "user", Content: prompt},
		},
	}
	b, _ := json.Marshal(payload)

	url := strings.TrimRight(r.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return models.Classification{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(r.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+r.APIKey)
	}

	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return models.Classification{}, fmt.Errorf("ai request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Classification{}, fmt.Errorf("ai http error: %s", resp.Status)
	}

	var res struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return models.Classification{}, err
	}
	if len(res.Choices) == 0 {
		return models.Classification{}, errors.New("empty ai response")
	}
	out, err := parseAnswer(res.Choices[0].Message.Content)
	if err != nil {
		return models.Classification{}, err
	}
	r.cacheSet(prompt, out)
	return out, nil
}

func buildPrompt(in Input) string {
	cats := make([]string, 0, len(models.Categories))
	for _, c := range models.Categories {
		cats = append(cats, string(c))
	}
	var sb strings.Builder
	sb.WriteString("Classify this complaint.\n")
	sb.WriteString("category must be one of: " + strings.Join(cats, ", ") + "\n")
	sb.WriteString("priority must be one of: Low, Medium, High\n")
	sb.WriteString("confidence is an integer 0-100.\n")
	sb.WriteString(`Answer as {"category":"...","priority":"...","confidence":0,"reasoning":"..."}` + "\n\n")
	sb.WriteString("Title: " + in.Title + "\n")
	sb.WriteString("Description: " + in.Description + "\n")
	if in.UserCategory != "" {
		sb.WriteString("Citizen suggested category: " + in.UserCategory + "\n")
	}
	return sb.String()
}

// parseAnswer accepts the model output, tolerating a fenced code block around the JSON.
func parseAnswer(content string) (models.Classification, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var a remoteAnswer
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &a); err != nil {
		return models.Classification{}, fmt.Errorf("malformed ai answer: %w", err)
	}
	category := models.Category(a.Category)
	if !category.Valid() {
		return models.Classification{}, fmt.Errorf("ai answer has invalid category %q", a.Category)
	}
	priority := models.Priority(a.Priority)
	if !priority.Valid() {
		return models.Classification{}, fmt.Errorf("ai answer has invalid priority %q", a.Priority)
	}
	if a.Confidence == nil {
		return models.Classification{}, errors.New("ai answer is missing confidence")
	}
	conf := *a.Confidence
	if conf < 0 {
		conf = 0
	}
	if conf > 100 {
		conf = 100
	}

	out := models.Classification{
		Category:     category,
		Priority:     priority,
		Confidence:   conf,
		Reasoning:    a.Reasoning,
		AIClassified: true,
	}
	if d := DefaultsFor(category).Department; d != "" {
		out.Department = &d
	}
	return out, nil
}

func (r *RemoteClassifier) cacheGet(key string) (models.Classification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.cache[key]; ok {
		if time.Now().Before(e.exp) {
			return e.value, true
		}
		delete(r.cache, key)
	}
	return models.Classification{}, false
}

func (r *RemoteClassifier) cacheSet(key string, value models.Classification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if r.cache == nil {
		r.cache = map[string]cacheEntry{}
	}
	if _, ok := r.cache[key]; !ok && len(r.cache) >= maxCachedAnswers {
		r.evict(now)
	}
	r.cache[key] = cacheEntry{value: value, exp: now.Add(cacheTTL)}
}

// evict drops expired answers, or the one closest to expiry when none has
// expired. Callers hold r.mu.
func (r *RemoteClassifier) evict(now time.Time) {
	var (
		oldest    string
		oldestExp time.Time
	)
	for k, e := range r.cache {
		if !now.Before(e.exp) {
			delete(r.cache, k)
			continue
		}
		if oldest == "" || e.exp.Before(oldestExp) {
			oldest, oldestExp = k, e.exp
		}
	}
	if len(r.cache) >= maxCachedAnswers {
		delete(r.cache, oldest)
	}
}
