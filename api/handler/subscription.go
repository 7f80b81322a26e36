package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/api/transport"
	"github.com/fastygo/taskhub/pkg/httpcontext"
	subscriptionUC "github.com/fastygo/taskhub/usecase/subscription"
)

type SubscriptionHandler struct {
	baseHandler
	uc *subscriptionUC.UseCase
}

func NewSubscriptionHandler(uc *subscriptionUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Subscribe a user to a task
// @Tags subscriptions
// @Router /api/v1/tasks/{id}/subscribe/{userId} [post]
func (h *SubscriptionHandler) Subscribe(ctx *fasthttp.RequestCtx) {
	if h.userID(ctx) == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Subscribe(stdCtx, pathParam(ctx, "userId"), pathParam(ctx, "id")); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary Unsubscribe a user from a task
// @Tags subscriptions
// @Router /api/v1/tasks/{id}/unsubscribe/{userId} [delete]
func (h *SubscriptionHandler) Unsubscribe(ctx *fasthttp.RequestCtx) {
	if h.userID(ctx) == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	if err := h.uc.Unsubscribe(stdCtx, pathParam(ctx, "userId"), pathParam(ctx, "id")); err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusNoContent, nil)
}

// @Summary List task subscribers
// @Tags subscriptions
// @Router /api/v1/tasks/{id}/subscribers [get]
func (h *SubscriptionHandler) ListSubscribers(ctx *fasthttp.RequestCtx) {
	if h.userID(ctx) == "" {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	subscribers, err := h.uc.ListSubscribers(stdCtx, pathParam(ctx, "id"))
	if err != nil {
		h.respondError(ctx, stdCtx, err)
		return
	}
	h.respondList(ctx, subscribers, transport.ListMeta{Count: len(subscribers)})
}
