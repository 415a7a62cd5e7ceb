// Package receipt records quick counter checkouts that bypass the order
// flow.
package receipt

import (
	"context"
	"net/http"
	"time"

	"hindustanbills/apperr"
	"hindustanbills/models"
	"hindustanbills/store"
	"hindustanbills/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
)

type Service struct {
	receipts store.Receipts
}

func NewService(receipts store.Receipts) *Service {
	return &Service{receipts: receipts}
}

type CheckoutInput struct {
	Items []ItemInput `json:"items" validate:"dive"`
}

type ItemInput struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name" validate:"required"`
	Price     float64 `json:"price" validate:"gte=0"`
	Quantity  int     `json:"quantity" validate:"gte=1"`
}

// Checkout stores a receipt for the given lines. userID may be empty.
func (s *Service) Checkout(ctx context.Context, userID string, in CheckoutInput) (*models.Receipt, error) {
	if len(in.Items) == 0 {
		return nil, apperr.BadRequest("No items provided")
	}
	rc := &models.Receipt{
		ID:        utils.GetUUID(),
		Items:     make([]models.ReceiptItem, 0, len(in.Items)),
		User:      userID,
		CreatedAt: time.Now(),
	}
	for _, it := range in.Items {
		rc.Items = append(rc.Items, models.ReceiptItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Quantity:  it.Quantity,
		})
		rc.TotalAmount += it.Price * float64(it.Quantity)
	}
	rc.TotalAmount = utils.RoundMoney(rc.TotalAmount)

	if err := s.receipts.CreateReceipt(ctx, rc); err != nil {
		return nil, apperr.Internal(err, "Failed to save receipt")
	}
	return rc, nil
}

func (s *Service) Get(ctx context.Context, id string) (*models.Receipt, error) {
	rc, err := s.receipts.ReceiptByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Receipt not found")
		}
		return nil, apperr.Internal(err, "Failed to load receipt")
	}
	return rc, nil
}

func (s *Service) CheckoutHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var in CheckoutInput
	if err := utils.DecodeAndValidate(r, &in); err != nil {
		utils.RespondWithError(w, err)
		return
	}
	rc, err := s.Checkout(r.Context(), utils.GetUserIDFromRequest(r), in)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, utils.M{"message": "Checkout complete", "receipt": rc})
}

func (s *Service) GetHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	rc, err := s.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{"receipt": rc})
}
