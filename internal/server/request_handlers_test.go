package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"mfl/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) request(t *testing.T, method, path, token string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	defer func() { _ = resp.Body.Close() }()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func additionBody() map[string]interface{} {
	return map[string]interface{}{
		"request_type": "addition",
		"payload": map[string]interface{}{
			"name":         "Nakawa Health Centre III",
			"level":        "HC III",
			"ownership":    "Government",
			"region":       "Central",
			"district":     "Kampala",
			"subcounty":    "Nakawa",
			"bed_capacity": 24,
			"services":     []string{"OPD", "Maternity"},
		},
	}
}

func TestSubmitRequest(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/requests", env.token(t, env.public), additionBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.FacilityRequest
	decodeBody(t, resp, &created)
	assert.Equal(t, models.StatusInitiated, created.Status)
	assert.NotEmpty(t, created.Reference)
	assert.NotNil(t, created.DistrictID)
	assert.EqualValues(t, env.public.ID, created.RequestedByUserID)
}

func TestSubmitRequest_ValidationFailures(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, env.public)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"Missing Name", map[string]interface{}{
			"request_type": "addition",
			"payload":      map[string]interface{}{"level": "HC III", "region": "Central", "district": "Kampala"},
		}},
		{"Unknown District", map[string]interface{}{
			"request_type": "addition",
			"payload": map[string]interface{}{
				"name": "Ghost Clinic", "level": "HC II", "region": "Central", "district": "Atlantis",
			},
		}},
		{"Update Without Target", map[string]interface{}{
			"request_type": "update",
			"payload":      map[string]interface{}{"name": "X", "level": "HC III", "region": "Central", "district": "Kampala"},
		}},
		{"Update Without Documents", map[string]interface{}{
			"request_type": "update",
			"facility_id":  1,
			"payload":      map[string]interface{}{"name": "X", "level": "HC III", "region": "Central", "district": "Kampala"},
		}},
		{"Unknown Type", map[string]interface{}{
			"request_type": "merger",
			"payload":      map[string]interface{}{"name": "X"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.request(t, http.MethodPost, "/api/requests", token, tt.body)
			defer func() { _ = resp.Body.Close() }()
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestApprovalChainOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/requests", env.token(t, env.public), additionBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.FacilityRequest
	decodeBody(t, resp, &created)

	approve := fmt.Sprintf("/api/requests/%d/approve", created.ID)

	// Planning's approval after district review finalizes the request
	steps := []struct {
		actor    *models.User
		expected models.RequestStatus
	}{
		{env.district, models.StatusDistrictApproved},
		{env.planning, models.StatusApproved},
	}
	for _, step := range steps {
		resp := env.request(t, http.MethodPost, approve, env.token(t, step.actor),
			map[string]string{"comments": "looks good"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var updated models.FacilityRequest
		decodeBody(t, resp, &updated)
		assert.Equal(t, step.expected, updated.Status)
	}

	// Final approval published a facility and linked it back
	resp = env.request(t, http.MethodGet, fmt.Sprintf("/api/requests/%d", created.ID), env.token(t, env.admin), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail struct {
		Request models.FacilityRequest      `json:"request"`
		History []models.StatusHistoryEntry `json:"history"`
	}
	decodeBody(t, resp, &detail)
	require.NotNil(t, detail.Request.FacilityID)
	assert.Len(t, detail.History, 3)
	assert.Equal(t, models.StatusInitiated, detail.History[0].Status)
	assert.Equal(t, models.StatusApproved, detail.History[2].Status)

	resp = env.request(t, http.MethodGet, fmt.Sprintf("/api/facilities/%d", *detail.Request.FacilityID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var facility models.Facility
	decodeBody(t, resp, &facility)
	assert.Regexp(t, `^MFL-\d{6}$`, facility.Code)
	assert.True(t, facility.Active)

	// Terminal requests cannot move again
	resp = env.request(t, http.MethodPost, approve, env.token(t, env.admin),
		map[string]string{"comments": "again"})
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestApprove_AuthorizationOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/requests", env.token(t, env.public), additionBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.FacilityRequest
	decodeBody(t, resp, &created)

	approve := fmt.Sprintf("/api/requests/%d/approve", created.ID)

	// Public users are cut off by the role gate
	resp = env.request(t, http.MethodPost, approve, env.token(t, env.public), nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Planning cannot jump the district stage on public submissions
	resp = env.request(t, http.MethodPost, approve, env.token(t, env.planning), nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// District officers from another district are out of scope
	var jinja models.District
	require.NoError(t, env.db.Where("name = ?", "Jinja").First(&jinja).Error)
	outsider := env.createUser(t, "dho_jinja", models.RoleDistrict, &jinja.ID)
	resp = env.request(t, http.MethodPost, approve, env.token(t, outsider), nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// The request is untouched by all of the above
	resp = env.request(t, http.MethodGet, fmt.Sprintf("/api/requests/%d", created.ID), env.token(t, env.planning), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail struct {
		Request models.FacilityRequest `json:"request"`
	}
	decodeBody(t, resp, &detail)
	assert.Equal(t, models.StatusInitiated, detail.Request.Status)
}

func TestReject_RequiresReasonOverHTTP(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/requests", env.token(t, env.public), additionBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.FacilityRequest
	decodeBody(t, resp, &created)

	reject := fmt.Sprintf("/api/requests/%d/reject", created.ID)

	resp = env.request(t, http.MethodPost, reject, env.token(t, env.district), map[string]string{})
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// A whitespace-only reason is no reason at all
	resp = env.request(t, http.MethodPost, reject, env.token(t, env.district),
		map[string]string{"comments": "   "})
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.request(t, http.MethodPost, reject, env.token(t, env.district),
		map[string]string{"comments": "duplicate of an existing facility"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rejected models.FacilityRequest
	decodeBody(t, resp, &rejected)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectedByUserID)
	assert.EqualValues(t, env.district.ID, *rejected.RejectedByUserID)
	assert.Equal(t, "duplicate of an existing facility", rejected.RejectionComments)
	require.NotNil(t, rejected.RejectedAt)
}

func TestGetRequest_VisibilityRules(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/requests", env.token(t, env.public), additionBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.FacilityRequest
	decodeBody(t, resp, &created)

	path := fmt.Sprintf("/api/requests/%d", created.ID)

	// The owner and all reviewers in scope can read it
	for _, user := range []*models.User{env.public, env.district, env.planning, env.admin} {
		resp := env.request(t, http.MethodGet, path, env.token(t, user), nil)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, "user %s", user.Username)
	}

	// Another public user cannot
	stranger := env.createUser(t, "stranger", models.RolePublic, nil)
	resp = env.request(t, http.MethodGet, path, env.token(t, stranger), nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// History follows the same rule
	resp = env.request(t, http.MethodGet, path+"/history", env.token(t, stranger), nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Unauthenticated requests never get in
	resp = env.request(t, http.MethodGet, path, "", nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Missing requests are 404 for reviewers
	resp = env.request(t, http.MethodGet, "/api/requests/99999", env.token(t, env.admin), nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetRequests_DistrictScopedQueue(t *testing.T) {
	env := newTestEnv(t)

	// One request in Kampala, one in Jinja
	resp := env.request(t, http.MethodPost, "/api/requests", env.token(t, env.public), additionBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	jinjaBody := additionBody()
	jinjaBody["payload"].(map[string]interface{})["region"] = "Eastern"
	jinjaBody["payload"].(map[string]interface{})["district"] = "Jinja"
	jinjaBody["payload"].(map[string]interface{})["subcounty"] = ""
	jinjaBody["payload"].(map[string]interface{})["name"] = "Jinja Central HC II"
	resp = env.request(t, http.MethodPost, "/api/requests", env.token(t, env.public), jinjaBody)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	// Public users have no reviewer queue
	resp = env.request(t, http.MethodGet, "/api/requests", env.token(t, env.public), nil)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Admins see everything
	resp = env.request(t, http.MethodGet, "/api/requests", env.token(t, env.admin), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var adminList struct {
		Requests []models.FacilityRequest `json:"requests"`
		Total    int64                    `json:"total"`
	}
	decodeBody(t, resp, &adminList)
	assert.EqualValues(t, 2, adminList.Total)

	// Kampala's officer only sees Kampala's queue, even when asking for more
	resp = env.request(t, http.MethodGet, "/api/requests?district_id=0", env.token(t, env.district), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var districtList struct {
		Requests []models.FacilityRequest `json:"requests"`
		Total    int64                    `json:"total"`
	}
	decodeBody(t, resp, &districtList)
	require.EqualValues(t, 1, districtList.Total)
	assert.Equal(t, *env.district.DistrictID, *districtList.Requests[0].DistrictID)
}

func TestGetMyRequests(t *testing.T) {
	env := newTestEnv(t)

	resp := env.request(t, http.MethodPost, "/api/requests", env.token(t, env.public), additionBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	resp = env.request(t, http.MethodGet, "/api/requests/me", env.token(t, env.public), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var mine struct {
		Requests []models.FacilityRequest `json:"requests"`
	}
	decodeBody(t, resp, &mine)
	assert.Len(t, mine.Requests, 1)

	resp = env.request(t, http.MethodGet, "/api/requests/me", env.token(t, env.planning), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var theirs struct {
		Requests []models.FacilityRequest `json:"requests"`
	}
	decodeBody(t, resp, &theirs)
	assert.Empty(t, theirs.Requests)

	// History across own submissions carries the initial entry
	resp = env.request(t, http.MethodGet, "/api/requests/me/history", env.token(t, env.public), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var ownHistory struct {
		History []models.StatusHistoryEntry `json:"history"`
	}
	decodeBody(t, resp, &ownHistory)
	require.Len(t, ownHistory.History, 1)
	assert.Equal(t, models.StatusInitiated, ownHistory.History[0].Status)

	resp = env.request(t, http.MethodGet, "/api/requests/me/history", env.token(t, env.planning), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var otherHistory struct {
		History []models.StatusHistoryEntry `json:"history"`
	}
	decodeBody(t, resp, &otherHistory)
	assert.Empty(t, otherHistory.History)
}

func TestGetRequest_UpdateIncludesDiff(t *testing.T) {
	env := newTestEnv(t)

	// Publish a facility through the full chain first
	resp := env.request(t, http.MethodPost, "/api/requests", env.token(t, env.public), additionBody())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.FacilityRequest
	decodeBody(t, resp, &created)

	approve := fmt.Sprintf("/api/requests/%d/approve", created.ID)
	for _, user := range []*models.User{env.district, env.planning} {
		resp := env.request(t, http.MethodPost, approve, env.token(t, user), nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()
	}

	var published models.FacilityRequest
	require.NoError(t, env.db.First(&published, created.ID).Error)
	require.NotNil(t, published.FacilityID)

	// Propose an upgrade to HC IV
	update := additionBody()
	update["request_type"] = "update"
	update["facility_id"] = *published.FacilityID
	update["payload"].(map[string]interface{})["level"] = "HC IV"
	update["documents"] = []map[string]interface{}{{
		"file_name":    "upgrade-assessment.pdf",
		"file_url":     "https://files.mfl.local/upgrade-assessment.pdf",
		"content_type": "application/pdf",
	}}
	resp = env.request(t, http.MethodPost, "/api/requests", env.token(t, env.public), update)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var updateReq models.FacilityRequest
	decodeBody(t, resp, &updateReq)

	resp = env.request(t, http.MethodGet, fmt.Sprintf("/api/requests/%d", updateReq.ID), env.token(t, env.planning), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail struct {
		Diff *struct {
			BaselineMissing bool `json:"baseline_missing"`
			Changes         []struct {
				Field    string `json:"field"`
				Baseline string `json:"baseline"`
				Proposed string `json:"proposed"`
			} `json:"changes"`
		} `json:"diff"`
	}
	decodeBody(t, resp, &detail)
	require.NotNil(t, detail.Diff)
	assert.False(t, detail.Diff.BaselineMissing)
	require.Len(t, detail.Diff.Changes, 1)
	assert.Equal(t, "level", detail.Diff.Changes[0].Field)
	assert.Equal(t, "HC III", detail.Diff.Changes[0].Baseline)
	assert.Equal(t, "HC IV", detail.Diff.Changes[0].Proposed)
}
