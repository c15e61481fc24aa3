package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicmitra/backend/internal/models"
)

func TestFallbackIsTotalOverCategories(t *testing.T) {
	inputs := make([]string, 0, len(models.Categories)+2)
	for _, c := range models.Categories {
		inputs = append(inputs, string(c))
	}
	inputs = append(inputs, "Volcano", "")

	for _, cat := range inputs {
		res := Fallback(Input{Title: "Something", Description: "happened", UserCategory: cat})
		assert.True(t, res.Category.Valid(), cat)
		assert.True(t, res.Priority.Valid(), cat)
		assert.False(t, res.AIClassified, cat)
		assert.Equal(t, FallbackConfidence, res.Confidence, cat)
	}
}

func TestFallbackUsesUserCategory(t *testing.T) {
	res := Fallback(Input{Title: "Pothole", Description: "Large pothole on Main St", UserCategory: "Roads"})
	assert.Equal(t, models.CategoryRoads, res.Category)
	assert.Equal(t, models.PriorityMedium, res.Priority)
	require.NotNil(t, res.Department)
	assert.Equal(t, "Public Works", *res.Department)
}

func TestFallbackInfersFromKeywords(t *testing.T) {
	res := Fallback(Input{Title: "Garbage pile", Description: "Nobody collects the trash"})
	assert.Equal(t, models.CategorySanitation, res.Category)

	res = Fallback(Input{Title: "Bench broken", Description: "On the main street"})
	assert.Equal(t, models.CategoryOther, res.Category, "street must not match tree")
	assert.Nil(t, res.Department)

	res = Fallback(Input{Title: "Exposed wire", Description: "Risk of electrocution near school"})
	assert.Equal(t, models.CategoryElectricity, res.Category)
	assert.Equal(t, models.PriorityHigh, res.Priority)
}

func TestKeywordsMatchWholeWords(t *testing.T) {
	cases := map[string]models.Category{
		"No parking signs near the market": models.CategoryOther,
		"Tape stuck on the bus stop":       models.CategoryOther,
		"Tap broken in ward 4":             models.CategoryWater,
		"Two potholes near school":         models.CategoryRoads,
		"Swings broken in the park.":       models.CategoryParks,
		"Parks closed all week":            models.CategoryParks,
		"Drainage blocked after rain":      models.CategoryDrainage,
		"Street flooded again":             models.CategoryDrainage,
	}
	for text, want := range cases {
		assert.Equal(t, want, Fallback(Input{Title: text}).Category, text)
	}
}

func TestUrgentWordsRaisePriority(t *testing.T) {
	res := Fallback(Input{Title: "Tree fell", Description: "wall collapsed on a parked car"})
	assert.Equal(t, models.CategoryParks, res.Category)
	assert.Equal(t, models.PriorityHigh, res.Priority)

	res = Fallback(Input{Title: "Tree fell", Description: "blocking the lane"})
	assert.Equal(t, models.PriorityLow, res.Priority)
}

func TestFallbackDeterministic(t *testing.T) {
	in := Input{Title: "Drain blocked", Description: "sewage overflow"}
	assert.Equal(t, Fallback(in), Fallback(in))
}

type failing struct{}

func (failing) Classify(context.Context, Input) (models.Classification, error) {
	return models.Classification{}, errors.New("boom")
}

func TestWithFallbackNeverFails(t *testing.T) {
	c := WithFallback{Primary: failing{}, Logger: zerolog.Nop()}
	res, err := c.Classify(context.Background(), Input{Title: "Pothole", Description: "deep", UserCategory: "Roads"})
	require.NoError(t, err)
	assert.False(t, res.AIClassified)
	assert.Equal(t, models.CategoryRoads, res.Category)
}

func TestRemoteClassifierParsesAnswer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"category\":\"Drainage\",\"priority\":\"High\",\"confidence\":91,\"reasoning\":\"overflowing drain\"}"}}]}`))
	}))
	defer srv.Close()

	rc := &RemoteClassifier{BaseURL: srv.URL, Model: "m", APIKey: "key"}
	res, err := rc.Classify(context.Background(), Input{Title: "Drain", Description: "overflow"})
	require.NoError(t, err)
	assert.Equal(t, models.CategoryDrainage, res.Category)
	assert.Equal(t, models.PriorityHigh, res.Priority)
	assert.Equal(t, 91, res.Confidence)
	assert.True(t, res.AIClassified)
	require.NotNil(t, res.Department)
	assert.Equal(t, "Drainage", *res.Department)
}

func TestRemoteClassifierCacheIsBounded(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"{\"category\":\"Roads\",\"priority\":\"Low\",\"confidence\":70}"}}]}`))
	}))
	defer srv.Close()

	rc := &RemoteClassifier{BaseURL: srv.URL, Model: "m"}
	ctx := context.Background()
	for i := 0; i < maxCachedAnswers+50; i++ {
		_, err := rc.Classify(ctx, Input{Title: fmt.Sprintf("Pothole %d", i), Description: "deep"})
		require.NoError(t, err)
	}
	assert.Len(t, rc.cache, maxCachedAnswers)

	// The most recent answer is still served from the cache.
	before := calls.Load()
	_, err := rc.Classify(ctx, Input{Title: fmt.Sprintf("Pothole %d", maxCachedAnswers+49), Description: "deep"})
	require.NoError(t, err)
	assert.Equal(t, before, calls.Load())
}

func TestParseAnswerRejectsIncompleteResults(t *testing.T) {
	_, err := parseAnswer(`{"category":"Roads","priority":"Medium"}`)
	assert.Error(t, err, "missing confidence")

	_, err = parseAnswer(`{"category":"Lava","priority":"Medium","confidence":10}`)
	assert.Error(t, err)

	_, err = parseAnswer(`not json`)
	assert.Error(t, err)

	res, err := parseAnswer("```json\n{\"category\":\"Parks\",\"priority\":\"Low\",\"confidence\":150}\n```")
	require.NoError(t, err)
	assert.Equal(t, 100, res.Confidence)
}

func TestRemoteErrorFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, "m", "", zerolog.Nop())
	res, err := c.Classify(context.Background(), Input{Title: "Pothole", Description: "deep", UserCategory: "Roads"})
	require.NoError(t, err)
	assert.False(t, res.AIClassified)
	assert.Equal(t, models.PriorityMedium, res.Priority)
}
