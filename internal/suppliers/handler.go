package suppliers

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/kitchenledger/kitchenledger/internal/platform/httpx"
	"github.com/kitchenledger/kitchenledger/internal/shared"
)

// Handler exposes the supplier ledger.
type Handler struct {
	logger  *slog.Logger
	service *Service
	csvPool sync.Pool
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	h := &Handler{logger: logger, service: service}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

// MountRoutes registers supplier routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/parties", h.listParties)
	r.Get("/parties/names", h.listNames)
	r.Post("/parties/bills", h.addBill)
	r.Get("/parties/ledger", h.ledger)
	r.Post("/parties/transactions", h.addTransaction)

	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export limit reached, try again shortly")
		}),
	)
	r.With(limiter).Get("/parties/ledger.csv", h.exportCSV)
}

func rateLimitKey(r *http.Request) (string, error) {
	if user := strings.TrimSpace(shared.OperatorFromContext(r.Context())); user != "" {
		return "user:" + user, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}

func (h *Handler) listParties(w http.ResponseWriter, r *http.Request) {
	parties, err := h.service.ListParties(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, parties)
}

func (h *Handler) listNames(w http.ResponseWriter, r *http.Request) {
	names, err := h.service.ListPartyNames(r.Context())
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, names)
}

func (h *Handler) addBill(w http.ResponseWriter, r *http.Request) {
	var in BillInput
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	bill, err := h.service.AddSupplyBill(r.Context(), in, r.Header.Get(shared.IdempotencyHeader))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, bill)
}

func (h *Handler) ledger(w http.ResponseWriter, r *http.Request) {
	ledger, err := h.service.Ledger(r.Context(), r.URL.Query().Get("partyName"))
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusOK, ledger)
}

func (h *Handler) addTransaction(w http.ResponseWriter, r *http.Request) {
	var in TransactionInput
	if err := httpx.Bind(w, r, &in); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	in.IdempotencyKey = r.Header.Get(shared.IdempotencyHeader)
	ledger, err := h.service.AddTransaction(r.Context(), in)
	if err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, ledger)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	name := NormalizeName(r.URL.Query().Get("partyName"))

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := h.service.ExportLedgerCSV(r.Context(), name, buf); err != nil {
		httpx.RespondError(w, h.logger, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "ledger-"+fileSafe(name)+".csv"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func fileSafe(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, name)
}
