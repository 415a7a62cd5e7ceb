package cart

import (
	"context"
	"net/http"
	"time"

	"hindustanbills/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

type itemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gte=1"`
}

func (h *Handlers) Initialize(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		TableNumber string `json:"tableNumber" validate:"max=32"`
	}
	if err := utils.DecodeAndValidate(r, &body); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	c, err := h.svc.Initialize(ctx, utils.GetUserIDFromRequest(r), body.TableNumber)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"cart": c})
}

func (h *Handlers) ConvertSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		SessionCode string `json:"sessionCode" validate:"required"`
	}
	if err := utils.DecodeAndValidate(r, &body); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	res, err := h.svc.ConvertSession(ctx, utils.GetUserIDFromRequest(r), body.SessionCode)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}

// AddToCart increments quantity if the product is already in the cart.
func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body itemRequest
	if err := utils.DecodeAndValidate(r, &body); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	c, err := h.svc.Add(ctx, utils.GetUserIDFromRequest(r), body.ProductID, body.Quantity)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"cart": c})
}

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	c, err := h.svc.Get(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"cart": c})
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body struct {
		ProductID string `json:"productId" validate:"required"`
	}
	if err := utils.DecodeAndValidate(r, &body); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	c, err := h.svc.Remove(r.Context(), utils.GetUserIDFromRequest(r), body.ProductID)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"cart": c})
}

func (h *Handlers) UpdateCart(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body itemRequest
	if err := utils.DecodeAndValidate(r, &body); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	c, err := h.svc.Update(r.Context(), utils.GetUserIDFromRequest(r), body.ProductID, body.Quantity)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"cart": c})
}
