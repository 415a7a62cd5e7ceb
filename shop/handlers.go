package shop

import (
	"net/http"

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

func (h *Handlers) GetDetails(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sh, err := h.svc.Owned(r.Context(), utils.GetUserIDFromRequest(r))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"shop": sh})
}

func (h *Handlers) UpdateDetails(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in DetailsInput
	if err := utils.DecodeAndValidate(r, &in); err != nil {
		utils.RespondWithError(w, err)
		return
	}
	sh, created, err := h.svc.SaveDetails(r.Context(), utils.GetUserIDFromRequest(r), in)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	utils.RespondWithJSON(w, status, utils.M{"message": "Shop details saved", "shop": sh})
}

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := utils.ParseQueryOptions(r)
	list, err := h.svc.Products(r.Context(), utils.GetUserIDFromRequest(r), q)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"products": list, "page": q.Page, "limit": q.Limit})
}

func (h *Handlers) GetOrders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	q := utils.ParseQueryOptions(r)
	list, err := h.svc.Orders(r.Context(), utils.GetUserIDFromRequest(r), models.OrderStatus(q.Status))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"orders": list})
}

func (h *Handlers) Available(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	list, err := h.svc.Available(r.Context())
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"shops": list})
}
