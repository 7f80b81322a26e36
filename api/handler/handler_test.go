package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"

	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/internal/testutil"
	"github.com/fastygo/taskhub/pkg/httpcontext"
	authUC "github.com/fastygo/taskhub/usecase/auth"
	categoryUC "github.com/fastygo/taskhub/usecase/category"
	profileUC "github.com/fastygo/taskhub/usecase/profile"
	subscriptionUC "github.com/fastygo/taskhub/usecase/subscription"
	taskUC "github.com/fastygo/taskhub/usecase/task"
)

type envelope struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error"`
	Meta   json.RawMessage `json:"meta"`
}

type handlers struct {
	store        *testutil.Store
	user         domain.User
	category     domain.Category
	task         *TaskHandler
	subscription *SubscriptionHandler
	categories   *CategoryHandler
	profile      *ProfileHandler
	auth         *AuthHandler
}

func newHandlers(t *testing.T) *handlers {
	t.Helper()
	store := testutil.NewStore()
	adapter := httpcontext.NewAdapter(time.Second)

	tasks := taskUC.New(taskUC.Repositories{
		Tasks:         store.Tasks(),
		Categories:    store.Categories(),
		Users:         store.Users(),
		Subscriptions: store.Subscriptions(),
		Tx:            store.Transactor(),
	}, nil, nil, taskUC.Options{}, nil)
	subscriptions := subscriptionUC.New(store.Subscriptions(), store.Tasks(), store.Users(), nil)
	auth := authUC.New(store.Users(), store.Sessions(), authUC.Config{
		Secret:     "test-secret",
		Issuer:     "taskhub",
		BcryptCost: bcrypt.MinCost,
	}, nil)

	return &handlers{
		store:        store,
		user:         store.AddUser("alice"),
		category:     store.AddCategory("Work", 3),
		task:         NewTaskHandler(tasks, subscriptions, adapter, nil),
		subscription: NewSubscriptionHandler(subscriptions, adapter, nil),
		categories:   NewCategoryHandler(categoryUC.New(store.Categories(), nil), adapter, nil),
		profile:      NewProfileHandler(profileUC.New(store.Users(), store.Tasks(), nil), adapter, nil),
		auth:         NewAuthHandler(auth, adapter, nil),
	}
}

// call runs handler as userID with the given body and path values.
func call(t *testing.T, handler fasthttp.RequestHandler, userID, query, body string, params map[string]string) (int, envelope) {
	t.Helper()
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.SetRequestURI("/test" + query)
	if userID != "" {
		ctx.Request.Header.Set(httpcontext.HeaderUserID, userID)
	}
	if body != "" {
		ctx.Request.SetBodyString(body)
	}
	for key, value := range params {
		ctx.SetUserValue(key, value)
	}

	handler(ctx)

	var env envelope
	if len(ctx.Response.Body()) > 0 {
		require.NoError(t, json.Unmarshal(ctx.Response.Body(), &env))
	}
	return ctx.Response.StatusCode(), env
}

func (h *handlers) createTask(t *testing.T, title string) map[string]any {
	t.Helper()
	body := `{"title":"` + title + `","due_date":"2030-01-02T10:00:00Z","category_id":"` + h.category.ID + `","user_weight":2}`
	status, env := call(t, h.task.CreateTask, h.user.ID, "", body, nil)
	require.Equal(t, http.StatusCreated, status, env.Error)

	var task map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &task))
	return task
}

func TestCreateTaskSubscribesCreator(t *testing.T) {
	h := newHandlers(t)

	task := h.createTask(t, "Ship it")

	assert.Equal(t, "Ship it", task["title"])
	assert.Equal(t, true, task["is_subscribed"])
	assert.Equal(t, 1, h.store.SubscriptionCount(task["id"].(string)))
}

func TestCreateTaskRejectsBadInput(t *testing.T) {
	h := newHandlers(t)

	cases := map[string]struct {
		body   string
		status int
		code   string
	}{
		"malformed json": {body: `{`, status: http.StatusBadRequest, code: "INVALID"},
		"bad due date":   {body: `{"title":"x","due_date":"tomorrow","category_id":"` + h.category.ID + `"}`, status: http.StatusBadRequest, code: "INVALID"},
		"blank title":    {body: `{"title":"","due_date":"2030-01-01","category_id":"` + h.category.ID + `"}`, status: http.StatusBadRequest, code: "INVALID"},
		"no category":    {body: `{"title":"x","due_date":"2030-01-01","category_id":"missing"}`, status: http.StatusNotFound, code: "NOT_FOUND"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			status, env := call(t, h.task.CreateTask, h.user.ID, "", tc.body, nil)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, env.Code)
		})
	}
	assert.Zero(t, h.store.TaskCount())
}

func TestHandlersRequireUser(t *testing.T) {
	h := newHandlers(t)

	status, env := call(t, h.task.GetTasks, "", "", "", nil)

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Code)
}

func TestGetTasksFiltersAndSorts(t *testing.T) {
	h := newHandlers(t)
	h.createTask(t, "alpha report")
	h.createTask(t, "beta report")
	h.createTask(t, "gamma")

	status, env := call(t, h.task.GetTasks, h.user.ID, "?q=report&from=2030-01-02&to=2030-01-02&sort=asc", "", nil)
	require.Equal(t, http.StatusOK, status)

	var tasks []map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &tasks))
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Contains(t, task["title"], "report")
	}

	status, _ = call(t, h.task.GetTasks, h.user.ID, "?from=2030-01-03&to=2030-01-01", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, h.task.GetTasks, h.user.ID, "?status=Done", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, h.task.GetTasks, h.user.ID, "?sort=sideways", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTaskLifecycle(t *testing.T) {
	h := newHandlers(t)
	id := h.createTask(t, "Ship it")["id"].(string)
	params := map[string]string{"id": id}

	status, env := call(t, h.task.UpdateTask, h.user.ID, "", `{"title":"Ship it now"}`, params)
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.Contains(t, string(env.Data), "Ship it now")

	status, env = call(t, h.task.SetState, h.user.ID, "", `{"status":"Completed"}`, params)
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.Contains(t, string(env.Data), `"status":"Completed"`)

	status, _ = call(t, h.task.SetState, h.user.ID, "", `{"status":"Finished"}`, params)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, h.task.DeleteTask, h.user.ID, "", "", params)
	assert.Equal(t, http.StatusNoContent, status)

	status, env = call(t, h.task.GetTask, h.user.ID, "", "", params)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", env.Code)
}

func TestSubscriptionRoutes(t *testing.T) {
	h := newHandlers(t)
	bob := h.store.AddUser("bob")
	id := h.createTask(t, "Ship it")["id"].(string)
	params := map[string]string{"id": id, "userId": bob.ID}

	status, _ := call(t, h.subscription.Subscribe, h.user.ID, "", "", params)
	assert.Equal(t, http.StatusNoContent, status)

	status, env := call(t, h.subscription.Subscribe, h.user.ID, "", "", params)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", env.Code)

	status, env = call(t, h.subscription.ListSubscribers, h.user.ID, "", "", params)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "bob")

	status, _ = call(t, h.subscription.Unsubscribe, h.user.ID, "", "", params)
	assert.Equal(t, http.StatusNoContent, status)

	status, _ = call(t, h.subscription.Unsubscribe, h.user.ID, "", "", params)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCategoryRoutes(t *testing.T) {
	h := newHandlers(t)

	status, env := call(t, h.categories.CreateCategory, h.user.ID, "", `{"name":"Home","weight":2}`, nil)
	require.Equal(t, http.StatusCreated, status, env.Error)

	status, _ = call(t, h.categories.CreateCategory, h.user.ID, "", `{"name":"Bad","weight":9}`, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = call(t, h.categories.ListCategories, h.user.ID, "", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "Home")
	assert.Contains(t, string(env.Meta), `"count":2`)

	status, _ = call(t, h.categories.GetCategory, h.user.ID, "", "", map[string]string{"id": "missing"})
	assert.Equal(t, http.StatusNotFound, status)
}

func TestProfileListsSubscribedTasks(t *testing.T) {
	h := newHandlers(t)
	h.createTask(t, "Ship it")

	status, env := call(t, h.profile.GetProfile, h.user.ID, "", "", nil)

	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), "alice")
	assert.Contains(t, string(env.Data), "Ship it")
}

func TestAuthRoutes(t *testing.T) {
	h := newHandlers(t)

	status, env := call(t, h.auth.Register, "", "", `{"username":"carol","email":"carol@example.com","password":"secret1"}`, nil)
	require.Equal(t, http.StatusCreated, status, env.Error)
	assert.NotContains(t, string(env.Data), "secret1")

	status, _ = call(t, h.auth.Register, "", "", `{"username":"carol","email":"carol2@example.com","password":"secret1"}`, nil)
	assert.Equal(t, http.StatusConflict, status)

	status, env = call(t, h.auth.Login, "", "", `{"username":"carol","password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Code)

	status, env = call(t, h.auth.Login, "", "", `{"username":"carol","password":"secret1"}`, nil)
	require.Equal(t, http.StatusOK, status, env.Error)
	assert.Contains(t, string(env.Data), "access_token")
}

func TestLogoutNeedsSession(t *testing.T) {
	h := newHandlers(t)

	status, env := call(t, h.auth.Logout, "", "", "", nil)

	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", env.Code)
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	h := newHandlers(t)
	ctx := &fasthttp.RequestCtx{}

	h.task.respondError(ctx, context.Background(), domain.Internal("query failed", assert.AnError))

	assert.Equal(t, http.StatusInternalServerError, ctx.Response.StatusCode())
	assert.Contains(t, string(ctx.Response.Body()), internalMessage)
	assert.NotContains(t, string(ctx.Response.Body()), "query failed")
}
