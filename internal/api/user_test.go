package api

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeAndList(t *testing.T) {
	a := setupTestAPI(t)
	author, _ := a.register(t, "author")
	_, token := a.register(t, "fan")

	for i := 0; i < 3; i++ {
		a.seedRecipe(t, author, fmt.Sprintf("recipe-%d", i))
	}

	w := a.request(t, http.MethodPost, fmt.Sprintf("/api/v1/users/%s/subscribe?recipes_limit=2", author.ID), token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var sub SubscriptionResponse
	decodeJSON(t, w, &sub)
	assert.Equal(t, author.ID, sub.ID)
	assert.True(t, sub.IsSubscribed)
	assert.Equal(t, int64(3), sub.RecipesCount)
	assert.Len(t, sub.Recipes, 2)

	w = a.request(t, http.MethodGet, "/api/v1/users/subscriptions?recipes_limit=1", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Count   int64                  `json:"count"`
		Results []SubscriptionResponse `json:"results"`
	}
	decodeJSON(t, w, &page)
	assert.Equal(t, int64(1), page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "author", page.Results[0].Username)
	assert.Len(t, page.Results[0].Recipes, 1)
}

func TestSubscribeToSelf(t *testing.T) {
	a := setupTestAPI(t)
	user, token := a.register(t, "alice")

	w := a.request(t, http.MethodPost, fmt.Sprintf("/api/v1/users/%s/subscribe", user.ID), token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscribeTwice(t *testing.T) {
	a := setupTestAPI(t)
	author, _ := a.register(t, "author")
	_, token := a.register(t, "fan")

	path := fmt.Sprintf("/api/v1/users/%s/subscribe", author.ID)

	w := a.request(t, http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = a.request(t, http.MethodPost, path, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnsubscribe(t *testing.T) {
	a := setupTestAPI(t)
	author, _ := a.register(t, "author")
	_, token := a.register(t, "fan")

	path := fmt.Sprintf("/api/v1/users/%s/subscribe", author.ID)

	// Dropping a subscription that was never made is a client error.
	w := a.request(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = a.request(t, http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = a.request(t, http.MethodDelete, path, token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSubscribeMissingUser(t *testing.T) {
	a := setupTestAPI(t)
	_, token := a.register(t, "fan")

	w := a.request(t, http.MethodPost, fmt.Sprintf("/api/v1/users/%s/subscribe", uuid.New()), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMe(t *testing.T) {
	a := setupTestAPI(t)
	user, token := a.register(t, "alice")

	w := a.request(t, http.MethodGet, "/api/v1/users/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp UserResponse
	decodeJSON(t, w, &resp)
	assert.Equal(t, user.ID, resp.ID)
	assert.Equal(t, "alice", resp.Username)

	w = a.request(t, http.MethodGet, "/api/v1/users/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetUserSubscribedFlag(t *testing.T) {
	a := setupTestAPI(t)
	author, _ := a.register(t, "author")
	_, token := a.register(t, "fan")

	w := a.request(t, http.MethodPost, fmt.Sprintf("/api/v1/users/%s/subscribe", author.ID), token, nil)
	require.Equal(t, http.StatusCreated, w.Code)

	w = a.request(t, http.MethodGet, "/api/v1/users/"+author.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp UserResponse
	decodeJSON(t, w, &resp)
	assert.True(t, resp.IsSubscribed)

	// Anonymous viewers never see a subscribed flag.
	w = a.request(t, http.MethodGet, "/api/v1/users/"+author.ID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeJSON(t, w, &resp)
	assert.False(t, resp.IsSubscribed)
}

func TestListUsers(t *testing.T) {
	a := setupTestAPI(t)
	a.register(t, "alice")
	a.register(t, "bob")

	w := a.request(t, http.MethodGet, "/api/v1/users?limit=1", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page struct {
		Count   int64          `json:"count"`
		Results []UserResponse `json:"results"`
	}
	decodeJSON(t, w, &page)
	assert.Equal(t, int64(2), page.Count)
	assert.Len(t, page.Results, 1)
}
