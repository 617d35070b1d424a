package orders

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kitchenledger/kitchenledger/internal/money"
	"github.com/kitchenledger/kitchenledger/internal/platform/httpx"
	"github.com/kitchenledger/kitchenledger/internal/shared"
)

// Handler exposes the order ledger over JSON.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers order routes on the /api router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/orders", h.createOrder)
	r.Get("/orders/pending", h.listPending)
	r.Get("/orders/{id}/payments", h.listPayments)
	r.Post("/orders/{id}/payments", h.addPayment)
	r.Get("/orders/{id}/items", h.listItems)
	r.Get("/customers/{id}/orders", h.listForCustomer)
}

type newCustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

type orderFieldsRequest struct {
	OrderType       OrderType    `json:"order_type" validate:"required,oneof=Online Local"`
	DeliveryDate    *shared.Date `json:"delivery_date"`
	DeliveryTime    *string      `json:"delivery_time"`
	AdvancePayment  money.Amount `json:"advance_payment"`
	DeliveryAddress string       `json:"delivery_address"`
	Notes           string       `json:"notes"`
}

type itemRequest struct {
	ItemID         *int64       `json:"item_id"`
	CustomItemName *string      `json:"custom_item_name"`
	Quantity       int          `json:"quantity"`
	UnitPrice      money.Amount `json:"unit_price"`
}

type createOrderRequest struct {
	IsAddingNewCustomer bool                `json:"isAddingNewCustomer"`
	NewCustomer         *newCustomerRequest `json:"newCustomer"`
	CustomerID          *int64              `json:"customerId"`
	Order               orderFieldsRequest  `json:"order"`
	Items               []itemRequest       `json:"items"`
}

func (req createOrderRequest) toNewOrder() NewOrder {
	in := NewOrder{
		OrderType:       req.Order.OrderType,
		DeliveryDate:    req.Order.DeliveryDate,
		DeliveryAddress: req.Order.DeliveryAddress,
		Notes:           req.Order.Notes,
		Advance:         req.Order.AdvancePayment,
	}
	if req.Order.DeliveryTime != nil {
		in.DeliveryTime = *req.Order.DeliveryTime
	}
	if req.IsAddingNewCustomer && req.NewCustomer != nil {
		in.Customer = CreateCustomer(req.NewCustomer.Name, req.NewCustomer.Phone, req.NewCustomer.Address)
	} else if req.CustomerID != nil {
		in.Customer = ExistingCustomer(*req.CustomerID)
	}
	for _, item := range req.Items {
		switch {
		case item.ItemID != nil && *item.ItemID > 0:
			in.Lines = append(in.Lines, CatalogLine(*item.ItemID, item.Quantity, item.UnitPrice))
		case item.CustomItemName != nil:
			in.Lines = append(in.Lines, CustomLine(*item.CustomItemName, item.Quantity, item.UnitPrice))
		default:
			in.Lines = append(in.Lines, Line{Quantity: item.Quantity, UnitPrice: item.UnitPrice})
		}
	}
	return in
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httpx.Bind(w, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	order, err := h.service.CreateOrder(r.Context(), req.toNewOrder(), r.Header.Get(shared.IdempotencyHeader))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"orderId": order.ID, "order": order})
}

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListPending(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, emptyIfNil(list))
}

func (h *Handler) listForCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	list, err := h.service.ListForCustomer(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, emptyIfNil(list))
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	payments, err := h.service.Payments(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, emptyIfNil(payments))
}

type addPaymentRequest struct {
	Amount money.Amount `json:"amount"`
	Notes  string       `json:"notes"`
}

func (h *Handler) addPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	var req addPaymentRequest
	if err := httpx.Bind(w, r, &req); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	updated, err := h.service.AddPayment(r.Context(), PaymentInput{
		OrderID:        id,
		Amount:         req.Amount,
		Notes:          req.Notes,
		IdempotencyKey: r.Header.Get(shared.IdempotencyHeader),
	})
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"updatedOrder": updated})
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	items, err := h.service.Items(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, emptyIfNil(items))
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Invalid("id", "id must be a positive number")
	}
	return id, nil
}

func emptyIfNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
