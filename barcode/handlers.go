package barcode

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"hindustanbills/apperr"
	"hindustanbills/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

type Handlers struct {
	svc *Service
}

func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

func (h *Handlers) Scan(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in ScanInput
	if err := utils.DecodeAndValidate(r, &in); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.svc.Scan(ctx, utils.GetUserIDFromRequest(r), in)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}

func (h *Handlers) AddByID(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in AddByIDInput
	if err := utils.DecodeAndValidate(r, &in); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.svc.AddByID(ctx, utils.GetUserIDFromRequest(r), in)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}

func (h *Handlers) SessionProducts(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	view, err := h.svc.SessionProducts(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("sessionCode"))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, view)
}

func (h *Handlers) UpdateScanned(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var body struct {
		Quantity int `json:"quantity"`
	}
	if err := utils.DecodeAndValidate(r, &body); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	row, err := h.svc.UpdateScanned(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("sessionCode"), ps.ByName("id"), body.Quantity)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, row)
}

func (h *Handlers) RemoveScanned(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if err := h.svc.RemoveScanned(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("sessionCode"), ps.ByName("id")); err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithMessage(w, http.StatusOK, "Product removed from session")
}

func (h *Handlers) ClearSession(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	n, err := h.svc.ClearSession(r.Context(), utils.GetUserIDFromRequest(r), ps.ByName("sessionCode"))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"message": "Session cleared", "removed": n})
}

func (h *Handlers) NewSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"sessionCode": NewSessionCode()})
}

// SessionQR renders the session code as a PNG so a second device can join
// the same scan session.
func (h *Handlers) SessionQR(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	code := ps.ByName("sessionCode")
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	if size < 64 || size > 1024 {
		size = 256
	}
	png, err := qrcode.Encode(code, qrcode.Medium, size)
	if err != nil {
		log.Println("SessionQR encode error:", err)
		utils.RespondWithError(w, apperr.Internal(err, "Failed to render QR code"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// LookupProduct resolves a barcode without staging it.
func (h *Handlers) LookupProduct(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	p, err := h.svc.Lookup(r.Context(), r.URL.Query().Get("shopId"), ps.ByName("barcode"))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"product": p})
}
