package orders

import (
	"context"
	"net/http"
	"time"

	"hindustanbills/models"
	"hindustanbills/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

func (h *Handlers) CreateOrder(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in CreateInput
	if err := utils.DecodeAndValidate(r, &in); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	order, err := h.svc.Create(ctx, utils.GetUserIDFromRequest(r), in)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"message": "Order created", "order": order})
}

func (h *Handlers) MyOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	list, err := h.svc.ListMine(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"orders": list})
}

func (h *Handlers) GetOrder(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	order, err := h.svc.Get(r.Context(), utils.GetUserIDFromRequest(r), utils.GetRoleFromRequest(r), ps.ByName("id"))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"order": order})
}

func (h *Handlers) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Status models.OrderStatus `json:"status" validate:"required"`
	}
	if err := utils.DecodeAndValidate(r, &body); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	order, err := h.svc.UpdateStatus(r.Context(), utils.GetUserIDFromRequest(r), utils.GetRoleFromRequest(r), ps.ByName("id"), body.Status)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Order status updated", "order": order})
}
