package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/wasteledger/internal/ports"
)

type BillingHandler struct {
	service ports.BillingService
	log     *zap.Logger
}

func NewBillingHandler(service ports.BillingService, log *zap.Logger) *BillingHandler {
	return &BillingHandler{
		service: service,
		log:     log,
	}
}

func (h *BillingHandler) Register(r fiber.Router) {
	r.Get("/transactions/:id/bill", h.GetBill)
	r.Post("/transactions/:id/finalize", h.Finalize)
	r.Get("/stores/:storeId/summary", h.StoreSummary)
}

func (h *BillingHandler) GetBill(c *fiber.Ctx) error {
	bill, err := h.service.GenerateBill(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(bill)
}

func (h *BillingHandler) Finalize(c *fiber.Ctx) error {
	bill, err := h.service.FinalizeTransaction(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	h.log.Info("Transaction finalized over HTTP", zap.String("transaction_id", bill.TransactionID))
	return c.JSON(bill)
}

func (h *BillingHandler) StoreSummary(c *fiber.Ctx) error {
	summary, err := h.service.StoreSummary(c.UserContext(), c.Params("storeId"))
	if err != nil {
		return err
	}
	return c.JSON(summary)
}
