package controllers_test

import (
	"fmt"
	"net/http"
	"strings"
	"testing"

	"cognitory/backend/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateEnterprise(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login(models.RoleAdmin)

	status, body := env.do(http.MethodPost, "/api/v1/enterprise", token, map[string]string{
		"name": "Acme", "email": "a@acme.com",
	})
	require.Equal(t, http.StatusCreated, status)
	assert.True(t, body.Success)

	var enterprise models.Enterprise
	body.decode(t, &enterprise)
	assert.Equal(t, "acme", enterprise.Slug)
	assert.True(t, strings.HasPrefix(enterprise.Avatar, "https://api.dicebear.com/"))
	assert.Contains(t, enterprise.Avatar, "seed=Acme")
	assert.NotEmpty(t, enterprise.ID)

	status, body = env.do(http.MethodPost, "/api/v1/enterprise", token, map[string]string{
		"name": "Acme", "email": "other@acme.com",
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.False(t, body.Success)
	assert.Equal(t, "Duplicate Enterprise name", body.Message)
}

func TestCreateEnterpriseValidation(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login(models.RoleAdmin)

	status, body := env.do(http.MethodPost, "/api/v1/enterprise", token, map[string]string{"name": "Acme"})
	require.Equal(t, http.StatusNotAcceptable, status)
	assert.Equal(t, "email is required", body.fields(t)["email"])

	status, body = env.do(http.MethodPost, "/api/v1/enterprise", token, map[string]string{"name": "!!!", "email": "a@b.co"})
	require.Equal(t, http.StatusNotAcceptable, status)
	assert.Contains(t, body.fields(t), "name")
}

func TestEnterpriseRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login(models.RoleUser)

	status, _ := env.do(http.MethodPost, "/api/v1/enterprise", token, map[string]string{
		"name": "Acme", "email": "a@acme.com",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.do(http.MethodGet, "/api/v1/enterprise", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestDemotedAdminLosesAccess(t *testing.T) {
	env := newTestEnv(t)
	admin, token := env.login(models.RoleAdmin)
	env.enterprise(token, "Acme")

	require.NoError(t, env.db.Model(admin).Update("role", models.RoleUser).Error)

	// the token still says admin
	status, _ := env.do(http.MethodPost, "/api/v1/enterprise", token, map[string]string{
		"name": "Globex", "email": "g@globex.com",
	})
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestCreateClass(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login(models.RoleAdmin)
	acme := env.enterprise(token, "Acme")
	globex := env.enterprise(token, "Globex")

	t.Run("duplicate name within an enterprise", func(t *testing.T) {
		payload := map[string]string{"name": "Grade 1", "enterpriseId": acme.ID}
		status, _ := env.do(http.MethodPost, "/api/v1/class", token, payload)
		require.Equal(t, http.StatusCreated, status)

		status, body := env.do(http.MethodPost, "/api/v1/class", token, payload)
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "Duplicate Class name", body.Message)
	})

	t.Run("same name in another enterprise", func(t *testing.T) {
		status, body := env.do(http.MethodPost, "/api/v1/class", token, map[string]string{
			"name": "Grade 1", "enterpriseId": globex.ID,
		})
		require.Equal(t, http.StatusCreated, status)

		var class models.Class
		body.decode(t, &class)
		assert.Equal(t, globex.ID, class.EnterpriseID)
		require.NotNil(t, class.Enterprise)
		assert.Equal(t, "Globex", class.Enterprise.Name)
	})

	t.Run("missing enterprise", func(t *testing.T) {
		status, body := env.do(http.MethodPost, "/api/v1/class", token, map[string]string{
			"name": "Grade 2", "enterpriseId": uuid.NewString(),
		})
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "Enterprise ID not found", body.Message)
	})

	t.Run("malformed enterprise id", func(t *testing.T) {
		status, body := env.do(http.MethodPost, "/api/v1/class", token, map[string]string{
			"name": "Grade 2", "enterpriseId": "not-an-id",
		})
		assert.Equal(t, http.StatusNotAcceptable, status)
		assert.Equal(t, "Invalid Enterprise ID", body.Message)
	})

	t.Run("parent keeps its children", func(t *testing.T) {
		var loaded models.Enterprise
		require.NoError(t, env.db.Preload("Classes").Where("id = ?", acme.ID).Take(&loaded).Error)
		require.Len(t, loaded.Classes, 1)
		assert.Equal(t, "grade-1", loaded.Classes[0].Slug)
	})
}

func TestCreateSubjectRejectsForeignClass(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login(models.RoleAdmin)
	acme := env.enterprise(token, "Acme")
	globex := env.enterprise(token, "Globex")

	var class models.Class
	env.create("/api/v1/class", token, map[string]string{"name": "Grade 1", "enterpriseId": acme.ID}, &class)

	status, body := env.do(http.MethodPost, "/api/v1/subject", token, map[string]string{
		"name": "Physics", "enterpriseId": globex.ID, "classId": class.ID,
	})
	assert.Equal(t, http.StatusNotAcceptable, status)
	assert.Equal(t, "Class does not belong to Enterprise", body.Message)
}

func TestSubjectNamesAreScopedToClass(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login(models.RoleAdmin)
	acme := env.enterprise(token, "Acme")

	var grade1, grade2 models.Class
	env.create("/api/v1/class", token, map[string]string{"name": "Grade 1", "enterpriseId": acme.ID}, &grade1)
	env.create("/api/v1/class", token, map[string]string{"name": "Grade 2", "enterpriseId": acme.ID}, &grade2)

	for _, class := range []models.Class{grade1, grade2} {
		status, body := env.do(http.MethodPost, "/api/v1/subject", token, map[string]string{
			"name": "Physics", "enterpriseId": acme.ID, "classId": class.ID,
		})
		assert.Equal(t, http.StatusCreated, status, body.Message)
	}
}

func TestCreateLevel(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login(models.RoleAdmin)
	first := env.subtopicChain(token, env.enterprise(token, "Acme"))
	second := env.subtopicChain(token, env.enterprise(token, "Globex"))

	status, _ := env.do(http.MethodPost, "/api/v1/level", token, first.levelPayload("Beginner", 1))
	require.Equal(t, http.StatusCreated, status)

	t.Run("duplicate rank in the same subtopic", func(t *testing.T) {
		status, body := env.do(http.MethodPost, "/api/v1/level", token, first.levelPayload("Novice", 1))
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "Duplicate Level rank", body.Message)
	})

	t.Run("duplicate name in the same subtopic", func(t *testing.T) {
		status, body := env.do(http.MethodPost, "/api/v1/level", token, first.levelPayload("Beginner", 2))
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "Duplicate Level name", body.Message)
	})

	t.Run("same rank in another subtopic", func(t *testing.T) {
		status, _ := env.do(http.MethodPost, "/api/v1/level", token, second.levelPayload("Beginner", 1))
		assert.Equal(t, http.StatusCreated, status)
	})

	t.Run("rank out of range", func(t *testing.T) {
		status, body := env.do(http.MethodPost, "/api/v1/level", token, first.levelPayload("Legend", 11))
		assert.Equal(t, http.StatusNotAcceptable, status)
		assert.Contains(t, body.fields(t), "rank")
	})

	t.Run("subtopic from another chain", func(t *testing.T) {
		payload := first.levelPayload("Crossed", 3)
		payload["subtopicId"] = second.Subtopic.ID
		status, body := env.do(http.MethodPost, "/api/v1/level", token, payload)
		assert.Equal(t, http.StatusNotAcceptable, status)
		assert.Equal(t, "Subtopic does not belong to Topic", body.Message)
	})
}

func TestMaxLevelsPerSubtopic(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.MaxLevelsPerSubtopic = 3
	_, token := env.login(models.RoleAdmin)
	c := env.subtopicChain(token, env.enterprise(token, "Acme"))

	for rank := 1; rank <= 3; rank++ {
		status, body := env.do(http.MethodPost, "/api/v1/level", token, c.levelPayload(fmt.Sprintf("Level %d", rank), rank))
		require.Equal(t, http.StatusCreated, status, body.Message)
	}

	for attempt := 0; attempt < 2; attempt++ {
		status, body := env.do(http.MethodPost, "/api/v1/level", token, c.levelPayload("Level 4", 4))
		assert.Equal(t, http.StatusConflict, status)
		assert.Equal(t, "Maximum 3 levels allowed per subtopic", body.Message)
	}

	// a soft-deleted level frees its slot
	require.NoError(t, env.db.Where("subtopic_id = ? AND rank = ?", c.Subtopic.ID, 3).Delete(&models.Level{}).Error)
	status, _ := env.do(http.MethodPost, "/api/v1/level", token, c.levelPayload("Level 3", 3))
	assert.Equal(t, http.StatusCreated, status)
}

func TestUpdateLevel(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login(models.RoleAdmin)
	c := env.fullChain(token)

	var second models.Level
	env.create("/api/v1/level", token, c.levelPayload("Intermediate", 2), &second)

	status, body := env.do(http.MethodPatch, "/api/v1/level/"+second.ID, token, map[string]interface{}{"rank": 1})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Duplicate Level rank", body.Message)

	status, body = env.do(http.MethodPatch, "/api/v1/level/"+second.ID, token, map[string]interface{}{"name": "Advanced", "rank": 3})
	require.Equal(t, http.StatusOK, status, body.Message)
	var updated models.Level
	body.decode(t, &updated)
	assert.Equal(t, "advanced", updated.Slug)
	assert.Equal(t, 3, updated.Rank)
}

func TestListClasses(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login(models.RoleAdmin)
	acme := env.enterprise(token, "Acme")
	globex := env.enterprise(token, "Globex")
	for i := 1; i <= 3; i++ {
		var class models.Class
		env.create("/api/v1/class", token, map[string]string{"name": fmt.Sprintf("Grade %d", i), "enterpriseId": acme.ID}, &class)
	}
	var other models.Class
	env.create("/api/v1/class", token, map[string]string{"name": "Grade 1", "enterpriseId": globex.ID}, &other)

	t.Run("filtered and paginated", func(t *testing.T) {
		status, body := env.do(http.MethodGet, "/api/v1/class?enterpriseId="+acme.ID+"&page=2&limit=2", token, nil)
		require.Equal(t, http.StatusOK, status)
		var classes []models.Class
		body.decode(t, &classes)
		assert.Len(t, classes, 1)
		require.NotNil(t, body.Meta)
		assert.Equal(t, int64(3), body.Meta.TotalItems)
		assert.Equal(t, 2, body.Meta.TotalPages)
		assert.False(t, body.Meta.HasNextPage)
		assert.True(t, body.Meta.HasPrevPage)
		assert.Equal(t, int64(3), body.Meta.From)
		assert.Equal(t, int64(3), body.Meta.To)
	})

	t.Run("unpaginated", func(t *testing.T) {
		status, body := env.do(http.MethodGet, "/api/v1/class?paginate=false&limit=1", token, nil)
		require.Equal(t, http.StatusOK, status)
		var classes []models.Class
		body.decode(t, &classes)
		assert.Len(t, classes, 4)
		assert.Equal(t, 1, body.Meta.TotalPages)
	})

	t.Run("unknown enterprise filter", func(t *testing.T) {
		status, body := env.do(http.MethodGet, "/api/v1/class?enterpriseId="+uuid.NewString(), token, nil)
		assert.Equal(t, http.StatusNotFound, status)
		assert.Equal(t, "Enterprise ID not found", body.Message)
	})
}

func TestGetClass(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login(models.RoleAdmin)
	acme := env.enterprise(token, "Acme")
	var class models.Class
	env.create("/api/v1/class", token, map[string]string{"name": "Grade 1", "enterpriseId": acme.ID}, &class)

	status, _ := env.do(http.MethodGet, "/api/v1/class/"+class.ID, token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, body := env.do(http.MethodGet, "/api/v1/class/"+uuid.NewString(), token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Class not found", body.Message)

	status, body = env.do(http.MethodGet, "/api/v1/class/abc", token, nil)
	assert.Equal(t, http.StatusNotAcceptable, status)
	assert.Equal(t, "Invalid Class ID", body.Message)
}

func TestUpdateSoftDeletedClass(t *testing.T) {
	env := newTestEnv(t)
	_, adminToken := env.login(models.RoleAdmin)
	_, superToken := env.login(models.RoleSuper)
	acme := env.enterprise(adminToken, "Acme")
	var class models.Class
	env.create("/api/v1/class", adminToken, map[string]string{"name": "Grade 1", "enterpriseId": acme.ID}, &class)
	require.NoError(t, env.db.Delete(&models.Class{}, "id = ?", class.ID).Error)

	status, _ := env.do(http.MethodPatch, "/api/v1/class/"+class.ID, adminToken, map[string]string{"name": "Grade One"})
	assert.Equal(t, http.StatusNotFound, status)

	status, body := env.do(http.MethodPatch, "/api/v1/class/"+class.ID, superToken, map[string]string{"name": "Grade One"})
	require.Equal(t, http.StatusOK, status, body.Message)
	var updated models.Class
	body.decode(t, &updated)
	assert.Equal(t, "grade-one", updated.Slug)
	assert.True(t, updated.IsDeleted())
}

func TestRenameClassConflict(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.login(models.RoleAdmin)
	acme := env.enterprise(token, "Acme")
	var first, second models.Class
	env.create("/api/v1/class", token, map[string]string{"name": "Grade 1", "enterpriseId": acme.ID}, &first)
	env.create("/api/v1/class", token, map[string]string{"name": "Grade 2", "enterpriseId": acme.ID}, &second)

	status, body := env.do(http.MethodPatch, "/api/v1/class/"+second.ID, token, map[string]string{"name": "Grade 1"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Duplicate Class name", body.Message)

	// renaming to its own name is not a conflict
	status, _ = env.do(http.MethodPatch, "/api/v1/class/"+second.ID, token, map[string]string{"name": "Grade 2"})
	assert.Equal(t, http.StatusOK, status)
}
