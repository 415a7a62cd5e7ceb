package pay

import (
	"context"
	"log"
	"net/http"
	"time"

	"hindustanbills/apperr"
	"hindustanbills/invoice"
	"hindustanbills/locks"
	"hindustanbills/models"
	"hindustanbills/mq"
	"hindustanbills/store"
	"hindustanbills/utils"

	"github.com/julienschmidt/httprouter"
	"github.com/pkg/errors"
)

const (
	lockTTL    = 30 * time.Second
	mockMethod = "mock"
)

// CartEmptier clears a user's cart once an order is paid.
type CartEmptier interface {
	Empty(ctx context.Context, userID string) error
}

// PaymentService settles orders with the mock gateway.
type PaymentService struct {
	orders     store.Orders
	shops      store.Shops
	users      store.Users
	cart       CartEmptier
	queue      mq.Publisher
	locker     locks.Locker
	invoiceDir string
}

func NewPaymentService(orders store.Orders, shops store.Shops, users store.Users, cart CartEmptier, queue mq.Publisher, locker locks.Locker, invoiceDir string) *PaymentService {
	return &PaymentService{
		orders:     orders,
		shops:      shops,
		users:      users,
		cart:       cart,
		queue:      queue,
		locker:     locker,
		invoiceDir: invoiceDir,
	}
}

type MockRequest struct {
	OrderID string `json:"orderId" validate:"required"`
	Success *bool  `json:"success" validate:"required"`
}

type Result struct {
	Message       string        `json:"message"`
	Order         *models.Order `json:"order"`
	TransactionID string        `json:"transactionId"`
	InvoiceURL    string        `json:"invoiceUrl,omitempty"`
}

// ErrPaymentFailed is what the mock gateway reports for success=false.
var ErrPaymentFailed = apperr.BadRequest("Payment failed")

// MockPayment settles orderID for userID. A failed attempt leaves the order
// pending. A successful one marks it paid, writes the invoice, queues the
// invoice email and empties the cart. Paying an already paid order returns
// the recorded payment without repeating any of that.
func (p *PaymentService) MockPayment(ctx context.Context, userID, orderID string, success bool) (*Result, error) {
	var res *Result
	err := locks.Do(ctx, p.locker, "pay:"+orderID, lockTTL, func() error {
		o, err := p.orders.OrderByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return apperr.NotFound("Order not found")
			}
			return err
		}
		if o.User != userID {
			return apperr.NotFound("Order not found")
		}

		if !success {
			return p.fail(ctx, o)
		}

		switch o.Status {
		case models.OrderPaid:
			res = &Result{Message: "Payment already completed", Order: o}
			if o.PaymentInfo != nil {
				res.TransactionID = o.PaymentInfo.TransactionID
				res.InvoiceURL = o.PaymentInfo.InvoiceURL
			}
			return nil
		case models.OrderPending:
		default:
			return apperr.Conflict("Order is " + string(o.Status) + " and cannot be paid")
		}

		res, err = p.settle(ctx, o)
		return err
	})
	if err != nil {
		return nil, apperr.Wrap(err, "Payment processing failed")
	}
	return res, nil
}

func (p *PaymentService) fail(ctx context.Context, o *models.Order) error {
	switch o.Status {
	case models.OrderPending:
	case models.OrderPaid:
		if err := p.orders.TransitionOrder(ctx, o.ID, models.OrderPaid, store.OrderUpdate{Status: models.OrderPending}); err != nil {
			if errors.Is(err, store.ErrConflict) {
				return apperr.Conflict("Order status changed, please retry")
			}
			return err
		}
	default:
		return apperr.Conflict("Order is " + string(o.Status) + " and cannot be paid")
	}
	return ErrPaymentFailed
}

func (p *PaymentService) settle(ctx context.Context, o *models.Order) (*Result, error) {
	info := &models.PaymentInfo{
		TransactionID: "TXN-" + utils.GetUUID(),
		Method:        mockMethod,
		PaidAt:        time.Now(),
	}
	o.PaymentInfo = info
	o.Status = models.OrderPaid

	shop := p.shop(ctx, o.Shop)
	buyer := p.buyer(ctx, o.User)

	file, err := invoice.Save(p.invoiceDir, o, shop, buyer)
	if err != nil {
		log.Printf("MockPayment: invoice for order %s failed: %v", o.ID, err)
	} else {
		info.InvoiceURL = "/invoices/" + file
	}

	if err := p.orders.TransitionOrder(ctx, o.ID, models.OrderPending, store.OrderUpdate{Status: models.OrderPaid, PaymentInfo: info}); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apperr.Conflict("Order status changed, please retry")
		}
		return nil, err
	}

	if file != "" {
		p.queueEmail(ctx, o, shop, buyer, file)
	}
	if err := p.cart.Empty(ctx, o.User); err != nil {
		log.Printf("MockPayment: emptying cart of %s failed: %v", o.User, err)
	}

	return &Result{
		Message:       "Payment successful",
		Order:         o,
		TransactionID: info.TransactionID,
		InvoiceURL:    info.InvoiceURL,
	}, nil
}

func (p *PaymentService) shop(ctx context.Context, id string) *models.Shop {
	s, err := p.shops.ShopByID(ctx, id)
	if err != nil {
		return nil
	}
	return s
}

func (p *PaymentService) buyer(ctx context.Context, id string) *models.User {
	u, err := p.users.UserByID(ctx, id)
	if err != nil {
		return nil
	}
	return u
}

func (p *PaymentService) queueEmail(ctx context.Context, o *models.Order, shop *models.Shop, buyer *models.User, file string) {
	ev := mq.InvoiceEmail{OrderID: o.ID, Name: o.Customer.Name, To: o.Customer.Email, Total: o.Total, InvoiceFile: file}
	if buyer != nil {
		if ev.To == "" {
			ev.To = buyer.Email
		}
		if ev.Name == "" {
			ev.Name = buyer.Name
		}
	}
	if shop != nil {
		ev.ShopName = shop.Name
	}
	if ev.To == "" {
		log.Printf("MockPayment: order %s has no email address, invoice not sent", o.ID)
		return
	}
	if err := p.queue.Publish(ctx, ev); err != nil {
		log.Printf("MockPayment: queueing invoice email for %s failed: %v", o.ID, err)
	}
}

// ===== Handlers =====

func (p *PaymentService) Mock(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var body MockRequest
	if err := utils.DecodeAndValidate(r, &body); err != nil {
		utils.RespondWithError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	res, err := p.MockPayment(ctx, utils.GetUserIDFromRequest(r), body.OrderID, *body.Success)
	if err != nil {
		utils.RespondWithError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}
