package controllers_test

import (
	"net/http"
	"testing"

	"cognitory/backend/controllers"
	"cognitory/backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateQuestion(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.login(models.RoleAdmin)
	author, token := env.login(models.RoleUser)
	c := env.fullChain(adminToken)

	status, body := env.do(http.MethodPost, "/api/v1/question", token, c.questionPayload(nil))
	require.Equal(t, http.StatusCreated, status, body.Message)

	var question models.Question
	body.decode(t, &question)
	assert.Equal(t, author.ID, question.CreatorID)
	assert.Equal(t, []string{"1", "2", "3", "4"}, question.Options)
	require.NotNil(t, question.Review)
	assert.Nil(t, question.Review.ReviewedAt)
	assert.False(t, question.Review.Approved)
	require.NotNil(t, question.Level)
	assert.Equal(t, "Beginner", question.Level.Name)

	var level models.Level
	require.NoError(t, env.db.Preload("Questions").Where("id = ?", c.Level.ID).Take(&level).Error)
	assert.Len(t, level.Questions, 1)
}

func TestCreateQuestionValidation(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login(models.RoleAdmin)
	c := env.fullChain(token)

	t.Run("multiple needs four options", func(t *testing.T) {
		status, body := env.do(http.MethodPost, "/api/v1/question", token, c.questionPayload(map[string]interface{}{
			"options": []string{"1", "2", "3"},
		}))
		require.Equal(t, http.StatusNotAcceptable, status)
		assert.Equal(t, "options must contain exactly 4 items", body.fields(t)["options"])
	})

	t.Run("input needs no options", func(t *testing.T) {
		status, body := env.do(http.MethodPost, "/api/v1/question", token, c.questionPayload(map[string]interface{}{
			"type":    "input",
			"options": nil,
		}))
		require.Equal(t, http.StatusCreated, status, body.Message)
	})

	t.Run("unknown text type", func(t *testing.T) {
		status, body := env.do(http.MethodPost, "/api/v1/question", token, c.questionPayload(map[string]interface{}{
			"textType": "html",
		}))
		require.Equal(t, http.StatusNotAcceptable, status)
		assert.Contains(t, body.fields(t), "textType")
	})

	t.Run("level outside the given subtopic", func(t *testing.T) {
		other := env.subtopicChain(token, env.enterprise(token, "Globex"))
		payload := c.questionPayload(map[string]interface{}{"subtopicId": other.Subtopic.ID})
		status, body := env.do(http.MethodPost, "/api/v1/question", token, payload)
		assert.Equal(t, http.StatusNotAcceptable, status)
		assert.Equal(t, "Level does not belong to Subtopic", body.Message)
	})

	t.Run("missing level", func(t *testing.T) {
		status, body := env.do(http.MethodPost, "/api/v1/question", token, c.questionPayload(map[string]interface{}{
			"levelId": uuid.NewString(),
		}))
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "Level ID not found", body.Message)
	})
}

func TestSoftDeletedQuestionVisibility(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.login(models.RoleAdmin)
	_, superToken := env.login(models.RoleSuper)
	_, userToken := env.login(models.RoleUser)
	c := env.fullChain(adminToken)

	var question models.Question
	env.create("/api/v1/question", userToken, c.questionPayload(nil), &question)

	status, _ := env.do(http.MethodDelete, "/api/v1/question/"+question.ID, userToken, nil)
	require.Equal(t, http.StatusOK, status)

	for name, token := range map[string]string{"user": userToken, "admin": adminToken} {
		t.Run(name, func(t *testing.T) {
			status, _ := env.do(http.MethodGet, "/api/v1/question/"+question.ID+"?showDeleted=true", token, nil)
			assert.Equal(t, http.StatusNotFound, status)

			status, body := env.do(http.MethodGet, "/api/v1/question?showDeleted=true", token, nil)
			require.Equal(t, http.StatusOK, status)
			var questions []models.Question
			body.decode(t, &questions)
			assert.Empty(t, questions)
		})
	}

	t.Run("super without the flag", func(t *testing.T) {
		status, _ := env.do(http.MethodGet, "/api/v1/question/"+question.ID, superToken, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("super with showDeleted", func(t *testing.T) {
		status, body := env.do(http.MethodGet, "/api/v1/question/"+question.ID+"?showDeleted=true", superToken, nil)
		require.Equal(t, http.StatusOK, status)
		var loaded models.Question
		body.decode(t, &loaded)
		assert.True(t, loaded.IsDeleted())

		status, body = env.do(http.MethodGet, "/api/v1/question?showDeleted=true", superToken, nil)
		require.Equal(t, http.StatusOK, status)
		var questions []models.Question
		body.decode(t, &questions)
		assert.Len(t, questions, 1)
	})

	t.Run("super restores", func(t *testing.T) {
		status, _ := env.do(http.MethodPatch, "/api/v1/question/"+question.ID+"/restore", superToken, nil)
		require.Equal(t, http.StatusOK, status)

		status, _ = env.do(http.MethodGet, "/api/v1/question/"+question.ID, adminToken, nil)
		assert.Equal(t, http.StatusOK, status)
	})
}

func TestUsersSeeOnlyTheirQuestions(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.login(models.RoleAdmin)
	_, aliceToken := env.login(models.RoleUser)
	_, bobToken := env.login(models.RoleUser)
	c := env.fullChain(adminToken)

	var alices models.Question
	env.create("/api/v1/question", aliceToken, c.questionPayload(nil), &alices)
	var bobs models.Question
	env.create("/api/v1/question", bobToken, c.questionPayload(map[string]interface{}{"text": "Bob's question"}), &bobs)

	status, body := env.do(http.MethodGet, "/api/v1/question", aliceToken, nil)
	require.Equal(t, http.StatusOK, status)
	var questions []models.Question
	body.decode(t, &questions)
	require.Len(t, questions, 1)
	assert.Equal(t, alices.ID, questions[0].ID)

	status, _ = env.do(http.MethodGet, "/api/v1/question/"+bobs.ID, aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(http.MethodDelete, "/api/v1/question/"+bobs.ID, aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, status)

	status, body = env.do(http.MethodGet, "/api/v1/question?levelId="+c.Level.ID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	body.decode(t, &questions)
	assert.Len(t, questions, 2)
}

func TestQuestionSortValidation(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login(models.RoleAdmin)

	status, body := env.do(http.MethodGet, "/api/v1/question?sort=password", token, nil)
	assert.Equal(t, http.StatusNotAcceptable, status)
	assert.Contains(t, body.fields(t), "sort")

	status, _ = env.do(http.MethodGet, "/api/v1/question?sort=text:asc", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = env.do(http.MethodGet, "/api/v1/question?random=true&limit=5", token, nil)
	assert.Equal(t, http.StatusOK, status)
}

func TestReviewQuestion(t *testing.T) {
	env := newTestEnv(t)
	admin, adminToken := env.login(models.RoleAdmin)
	_, userToken := env.login(models.RoleUser)
	c := env.fullChain(adminToken)

	var question models.Question
	env.create("/api/v1/question", userToken, c.questionPayload(nil), &question)
	require.NotNil(t, question.Review)
	require.Nil(t, question.Review.ReviewedAt)

	unreviewed := func() int {
		status, body := env.do(http.MethodGet, "/api/v1/question?reviewed=false", adminToken, nil)
		require.Equal(t, http.StatusOK, status)
		var questions []models.Question
		body.decode(t, &questions)
		return len(questions)
	}
	assert.Equal(t, 1, unreviewed())

	status, body := env.do(http.MethodPost, "/api/v1/review/"+question.ID, adminToken, map[string]interface{}{
		"approved": true, "comment": "Clear and correct", "rating": 5,
	})
	require.Equal(t, http.StatusOK, status, body.Message)
	var review models.Review
	body.decode(t, &review)
	assert.True(t, review.Approved)
	assert.NotNil(t, review.ReviewedAt)
	require.NotNil(t, review.ReviewedByID)
	assert.Equal(t, admin.ID, *review.ReviewedByID)
	assert.Equal(t, 0, unreviewed())

	status, body = env.do(http.MethodPost, "/api/v1/review/"+question.ID, adminToken, map[string]interface{}{
		"approved": false, "comment": "Answer is ambiguous", "rating": 2,
	})
	require.Equal(t, http.StatusOK, status)
	var second models.Review
	body.decode(t, &second)
	assert.Equal(t, review.ID, second.ID)
	assert.False(t, second.Approved)
	assert.Equal(t, "Answer is ambiguous", second.Comment)

	var count int64
	require.NoError(t, env.db.Model(&models.Review{}).Where("question_id = ?", question.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	t.Run("author reads it", func(t *testing.T) {
		status, body := env.do(http.MethodGet, "/api/v1/review/"+question.ID, userToken, nil)
		require.Equal(t, http.StatusOK, status)
		var read models.Review
		body.decode(t, &read)
		assert.Equal(t, 2, read.Rating)
	})

	t.Run("plain users cannot review", func(t *testing.T) {
		status, _ := env.do(http.MethodPost, "/api/v1/review/"+question.ID, userToken, map[string]interface{}{"approved": true})
		assert.Equal(t, http.StatusUnauthorized, status)
	})

	t.Run("rating out of range", func(t *testing.T) {
		status, body := env.do(http.MethodPost, "/api/v1/review/"+question.ID, adminToken, map[string]interface{}{
			"approved": true, "rating": 6,
		})
		assert.Equal(t, http.StatusNotAcceptable, status)
		assert.Contains(t, body.fields(t), "rating")
	})

	t.Run("missing question", func(t *testing.T) {
		status, body := env.do(http.MethodPost, "/api/v1/review/"+uuid.NewString(), adminToken, map[string]interface{}{"approved": true})
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "Question ID not found", body.Message)
	})

	t.Run("editing resets the review", func(t *testing.T) {
		payload := c.questionPayload(nil)
		payload["text"] = "Solve 2x + 5 = 9"
		status, body := env.do(http.MethodPatch, "/api/v1/question/"+question.ID, userToken, payload)
		require.Equal(t, http.StatusOK, status, body.Message)
		var edited models.Question
		body.decode(t, &edited)
		assert.Equal(t, "Solve 2x + 5 = 9", edited.Text)
		require.NotNil(t, edited.Review)
		assert.Nil(t, edited.Review.ReviewedAt)
		assert.Equal(t, 1, unreviewed())
	})
}

func TestReviewQueueAndStats(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.login(models.RoleAdmin)
	c := env.fullChain(adminToken)

	var ids []string
	for _, text := range []string{"one", "two", "three"} {
		var q models.Question
		env.create("/api/v1/question", adminToken, c.questionPayload(map[string]interface{}{"text": text}), &q)
		ids = append(ids, q.ID)
	}
	env.do(http.MethodPost, "/api/v1/review/"+ids[0], adminToken, map[string]interface{}{"approved": true})
	env.do(http.MethodPost, "/api/v1/review/"+ids[1], adminToken, map[string]interface{}{"approved": false})

	status, body := env.do(http.MethodGet, "/api/v1/question/review", adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	var queue []models.Question
	body.decode(t, &queue)
	require.Len(t, queue, 1)
	assert.Equal(t, ids[2], queue[0].ID)

	status, body = env.do(http.MethodGet, "/api/v1/question/stats?subtopicId="+c.Subtopic.ID, adminToken, nil)
	require.Equal(t, http.StatusOK, status)
	var stats controllers.QuestionStats
	body.decode(t, &stats)
	assert.Equal(t, controllers.QuestionStats{Total: 3, Unreviewed: 1, Approved: 1, Rejected: 1}, stats)
}
