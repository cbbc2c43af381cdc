package handlers

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/seu-repo/wasteledger/internal/domain"
	"github.com/seu-repo/wasteledger/internal/ports"
	"github.com/seu-repo/wasteledger/internal/service/recognition"
)

// maxUploadBytes bounds a multipart scale photo.
const maxUploadBytes = 10 << 20

type TransactionHandler struct {
	service ports.TransactionService
	log     *zap.Logger
}

func NewTransactionHandler(service ports.TransactionService, log *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		service: service,
		log:     log,
	}
}

// Register mounts the transaction routes on an /api/v1 router.
func (h *TransactionHandler) Register(r fiber.Router) {
	r.Post("/transactions", h.Create)
	r.Get("/transactions/:id", h.Get)
	r.Post("/transactions/:id/calibration", h.SubmitCalibration)
	r.Post("/transactions/:id/credential", h.VerifyCredential)
	r.Post("/transactions/:id/items", h.AddItem)
	r.Get("/transactions/:id/items", h.ListItems)
	r.Post("/transactions/:id/weight", h.CaptureWeight)
	r.Get("/stores/:storeId/transactions", h.ListByStore)
}

func (h *TransactionHandler) Create(c *fiber.Ctx) error {
	var req ports.CreateTransactionInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	tx, err := h.service.CreateTransaction(c.UserContext(), req)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(tx)
}

func (h *TransactionHandler) Get(c *fiber.Ctx) error {
	tx, err := h.service.GetTransaction(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(tx)
}

func (h *TransactionHandler) SubmitCalibration(c *fiber.Ctx) error {
	var req ports.CalibrationInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	tx, err := h.service.SubmitCalibration(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(tx)
}

func (h *TransactionHandler) VerifyCredential(c *fiber.Ctx) error {
	var req ports.CredentialInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.VerifiedBy == "" {
		if id, ok := c.Locals("user_id").(string); ok {
			req.VerifiedBy = id
		}
	}

	tx, err := h.service.VerifyCredential(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return err
	}
	return c.JSON(tx)
}

type itemsResponse struct {
	TransactionID string        `json:"transaction_id"`
	Items         []domain.Item `json:"items"`
	TotalWeight   float64       `json:"total_weight"`
}

func (h *TransactionHandler) AddItem(c *fiber.Ctx) error {
	var req ports.AddItemInput
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	id := c.Params("id")
	items, err := h.service.AddItem(c.UserContext(), id, req)
	if err != nil {
		return err
	}

	tx := &domain.Transaction{TransactionID: id, Items: items}
	return c.Status(fiber.StatusCreated).JSON(itemsResponse{
		TransactionID: id,
		Items:         tx.DisplayItems(),
		TotalWeight:   domain.Round2(tx.TotalWeight()),
	})
}

// ListItems returns the items newest first, keeping their item numbers.
func (h *TransactionHandler) ListItems(c *fiber.Ctx) error {
	tx, err := h.service.GetTransaction(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(itemsResponse{
		TransactionID: tx.TransactionID,
		Items:         tx.DisplayItems(),
		TotalWeight:   domain.Round2(tx.TotalWeight()),
	})
}

type weightRequest struct {
	Image string `json:"image"`
}

// CaptureWeight reads the scale display from a multipart "image" file or a
// JSON body carrying base64. A 422 with manual_entry_required asks the
// client to fall back to manual entry.
func (h *TransactionHandler) CaptureWeight(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := h.service.GetTransaction(c.UserContext(), id); err != nil {
		return err
	}

	raw, err := h.imageFromRequest(c)
	if err != nil {
		return err
	}

	reading, err := h.service.CaptureWeight(c.UserContext(), raw)
	if err != nil {
		return err
	}

	h.log.Debug("Weight captured",
		zap.String("transaction_id", id),
		zap.String("provider", reading.Provider),
		zap.Float64("weight", reading.Weight),
	)
	return c.JSON(fiber.Map{
		"transaction_id": id,
		"weight":         reading.Weight,
		"provider":       reading.Provider,
		"estimated":      reading.Estimated,
		"weight_source":  domain.WeightSourceSystem,
	})
}

func (h *TransactionHandler) imageFromRequest(c *fiber.Ctx) ([]byte, error) {
	if file, err := c.FormFile("image"); err == nil {
		if file.Size > maxUploadBytes {
			return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge, "image too large")
		}
		f, err := file.Open()
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "cannot read image upload")
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	var req weightRequest
	if err := c.BodyParser(&req); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Invalid body")
	}
	return recognition.DecodeBase64Image(req.Image)
}

func (h *TransactionHandler) ListByStore(c *fiber.Ctx) error {
	txs, err := h.service.ListTransactionsByStore(c.UserContext(), c.Params("storeId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"store_id":     c.Params("storeId"),
		"transactions": txs,
	})
}
