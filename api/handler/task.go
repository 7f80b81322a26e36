package handler

import (
	"net/http"
	"strings"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/api/transport"
	"github.com/fastygo/taskhub/domain"
	"github.com/fastygo/taskhub/pkg/httpcontext"
	subscriptionUC "github.com/fastygo/taskhub/usecase/subscription"
	taskUC "github.com/fastygo/taskhub/usecase/task"
	"github.com/fastygo/taskhub/usecase/taskfilter"
)

const defaultPageSize = 50

type TaskHandler struct {
	baseHandler
	uc            *taskUC.UseCase
	subscriptions *subscriptionUC.UseCase
}

func NewTaskHandler(uc *taskUC.UseCase, subscriptions *subscriptionUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		baseHandler:   newBaseHandler(adapter, logger),
		uc:            uc,
		subscriptions: subscriptions,
	}
}

// @Summary List tasks
// @Tags tasks
// @Param status query string false "Incomplete, InProgress or Completed"
// @Param from query string false "YYYY-MM-DD"
// @Param to query string false "YYYY-MM-DD"
// @Param sort query string false "asc or desc"
// @Router /api/v1/tasks [get]
func (h *TaskHandler) GetTasks(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	input, err := parseListInput(ctx.QueryArgs())
	if err != nil {
		h.respondError(ctx, ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tasks, err := h.uc.ListTasks(stdCtx, input)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondList(ctx, transport.NewTaskViews(tasks, userID), transport.ListMeta{
		Count:  len(tasks),
		Limit:  input.Limit,
		Offset: input.Offset,
	})
}

// @Summary Incomplete tasks by descending priority
// @Tags tasks
// @Router /api/v1/tasks/priority [get]
func (h *TaskHandler) GetPriorityTasks(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	tasks, err := h.uc.ListByPriority(stdCtx)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondList(ctx, transport.NewTaskViews(tasks, userID), transport.ListMeta{Count: len(tasks)})
}

// @Summary Get task
// @Tags tasks
// @Router /api/v1/tasks/{id} [get]
func (h *TaskHandler) GetTask(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	id := pathParam(ctx, "id")
	task, err := h.uc.GetTask(stdCtx, id)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	subscribed, err := h.subscriptions.IsSubscribed(stdCtx, userID, id)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.TaskView{Task: *task, IsSubscribed: subscribed})
}

// @Summary Create task
// @Tags tasks
// @Router /api/v1/tasks [post]
func (h *TaskHandler) CreateTask(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.TaskCreateRequest
	if !h.decode(ctx, &req) {
		return
	}
	due, err := transport.ParseTime(req.DueDate)
	if err != nil {
		h.respondError(ctx, ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	created, err := h.uc.CreateTask(stdCtx, taskUC.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		DueAt:       due,
		CategoryID:  req.CategoryID,
		UserWeight:  req.UserWeight,
		CreatorID:   userID,
	})
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, transport.NewTaskView(*created, userID))
}

// @Summary Partially update task
// @Tags tasks
// @Router /api/v1/tasks/{id} [put]
func (h *TaskHandler) UpdateTask(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.TaskUpdateRequest
	if !h.decode(ctx, &req) {
		return
	}
	input, err := updateInput(req)
	if err != nil {
		h.respondError(ctx, ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	updated, err := h.uc.UpdateTask(stdCtx, pathParam(ctx, "id"), input)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, transport.NewTaskView(*updated, userID))
}

// @Summary Change task state
// @Tags tasks
// @Router /api/v1/tasks/{id}/state [patch]
func (h *TaskHandler) SetState(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	var req transport.TaskStateRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	task, err := h.uc.SetState(stdCtx, pathParam(ctx, "id"), req.Status)
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, domain.TaskStateChange{TaskID: task.ID, Status: task.Status})
}

// @Summary Delete task
// @Tags tasks
// @Router /api/v1/tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(ctx *fasthttp.RequestCtx) {
	userID := h.userID(ctx)
	if userID == "" {
		return
	}

	id := pathParam(ctx, "id")
	if id == "" {
		h.invalid(ctx, "missing task id")
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.DeleteTask(stdCtx, id); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

func parseListInput(args *fasthttp.Args) (taskUC.ListInput, error) {
	input := taskUC.ListInput{
		CategoryID:       string(args.Peek("category_id")),
		IncludeCompleted: args.GetBool("include_completed"),
		Search:           string(args.Peek("q")),
		Limit:            parseInt(string(args.Peek("limit")), defaultPageSize),
		Offset:           parseInt(string(args.Peek("offset")), 0),
	}

	if raw := strings.TrimSpace(string(args.Peek("status"))); raw != "" {
		status, err := domain.ParseTaskStatus(raw)
		if err != nil {
			return input, err
		}
		input.Status = status
	}
	if raw := string(args.Peek("priority")); raw != "" {
		value := parseInt(raw, -1)
		if value < 0 || value > 100 {
			return input, domain.Invalid("priority must be an integer between 0 and 100")
		}
		input.Priority = &value
	}

	var err error
	if input.From, err = taskfilter.ParseDay(string(args.Peek("from"))); err != nil {
		return input, err
	}
	if input.To, err = taskfilter.ParseDay(string(args.Peek("to"))); err != nil {
		return input, err
	}
	if input.Sort, err = taskfilter.ParseSortOrder(string(args.Peek("sort"))); err != nil {
		return input, err
	}
	return input, nil
}

func updateInput(req transport.TaskUpdateRequest) (taskUC.UpdateInput, error) {
	input := taskUC.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		UserWeight:  req.UserWeight,
	}
	if req.DueDate != nil {
		due, err := transport.ParseTime(*req.DueDate)
		if err != nil {
			return input, err
		}
		input.DueAt = &due
	}
	if req.Status != nil {
		status, err := domain.ParseTaskStatus(*req.Status)
		if err != nil {
			return input, err
		}
		input.Status = &status
	}
	return input, nil
}
