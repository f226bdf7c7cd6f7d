package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/optica/internal/events"
	"github.com/Skotchmaster/optica/internal/models"
	"github.com/Skotchmaster/optica/internal/repo"
	"github.com/Skotchmaster/optica/internal/transport"
)

type WorkOrderService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
	Now    func() time.Time
}

func (s *WorkOrderService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Create allocates the next order number and inserts the order in one transaction.
func (s *WorkOrderService) Create(ctx context.Context, req transport.CreateWorkOrderRequest, actor uuid.UUID) (*models.WorkOrder, error) {
	purchase, err := buildPurchase(req.Purchase)
	if err != nil {
		return nil, err
	}
	customer, err := buildCustomer(req.Customer)
	if err != nil {
		return nil, err
	}
	if err := validateOrderKinds(req.OrderType, req.OrderNumberScheme); err != nil {
		return nil, err
	}
	saleDate := s.now()
	if req.SaleDate != nil {
		saleDate = req.SaleDate.UTC()
	}

	order := &models.WorkOrder{
		ManualOrderNumber: strings.TrimSpace(req.ManualOrderNumber),
		OrderNumberScheme: req.OrderNumberScheme,
		OrderType:         req.OrderType,
		Customer:          customer,
		PrescriptionID:    req.PrescriptionID,
		Lens:              req.Lens,
		Purchase:          purchase,
		SaleDate:          saleDate,
		Notes:             req.Notes,
		CreatedByID:       actor,
	}

	err = s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		if order.PrescriptionID != nil {
			if _, err := tx.GetPrescription(ctx, *order.PrescriptionID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: prescription %s does not exist", ErrValidation, *order.PrescriptionID)
				}
				return err
			}
		}
		n, err := tx.NextOrderNumber(ctx)
		if err != nil {
			return fmt.Errorf("allocate order number: %w", err)
		}
		order.OrderNumber = n
		return tx.CreateWorkOrder(ctx, order)
	})
	if errors.Is(err, ErrValidation) {
		return nil, err
	}
	if err != nil {
		return nil, storeErr(err, "work order")
	}

	created, err := s.Repo.GetWorkOrder(ctx, order.ID)
	if err != nil {
		return nil, storeErr(err, "work order")
	}
	publish(ctx, s.Events, events.TopicWorkOrders, created.ID.String(), events.Event{
		Type:       events.WorkOrderCreated,
		ID:         created.ID.String(),
		NationalID: created.Customer.NationalID,
		Actor:      actor.String(),
		Data:       map[string]int64{"order_number": created.OrderNumber, "total": created.Purchase.Total},
	})
	return created, nil
}

func (s *WorkOrderService) List(ctx context.Context) ([]models.WorkOrder, error) {
	out, err := s.Repo.ListWorkOrders(ctx, "")
	if err != nil {
		return nil, storeErr(err, "work orders")
	}
	return out, nil
}

func (s *WorkOrderService) ListByClient(ctx context.Context, nationalID string) ([]models.WorkOrder, error) {
	nationalID = strings.TrimSpace(nationalID)
	if nationalID == "" {
		return nil, fmt.Errorf("%w: national_id required", ErrValidation)
	}
	out, err := s.Repo.ListWorkOrders(ctx, nationalID)
	if err != nil {
		return nil, storeErr(err, "work orders")
	}
	return out, nil
}

func (s *WorkOrderService) Get(ctx context.Context, id uuid.UUID) (*models.WorkOrder, error) {
	w, err := s.Repo.GetWorkOrder(ctx, id)
	if err != nil {
		return nil, storeErr(err, "work order")
	}
	return w, nil
}

func (s *WorkOrderService) GetByNumber(ctx context.Context, number int64) (*models.WorkOrder, error) {
	if number <= 0 {
		return nil, fmt.Errorf("%w: order number must be positive", ErrValidation)
	}
	w, err := s.Repo.GetWorkOrderByNumber(ctx, number)
	if err != nil {
		return nil, storeErr(err, "work order")
	}
	return w, nil
}

// Patch never touches the order number.
func (s *WorkOrderService) Patch(ctx context.Context, id uuid.UUID, req transport.PatchWorkOrderRequest, actor uuid.UUID) (*models.WorkOrder, error) {
	w, err := s.Repo.GetWorkOrder(ctx, id)
	if err != nil {
		return nil, storeErr(err, "work order")
	}

	if req.ManualOrderNumber != nil {
		w.ManualOrderNumber = strings.TrimSpace(*req.ManualOrderNumber)
	}
	if req.OrderNumberScheme != nil {
		w.OrderNumberScheme = *req.OrderNumberScheme
	}
	if req.OrderType != nil {
		w.OrderType = *req.OrderType
	}
	if err := validateOrderKinds(w.OrderType, w.OrderNumberScheme); err != nil {
		return nil, err
	}
	if req.Customer != nil {
		c, err := buildCustomer(*req.Customer)
		if err != nil {
			return nil, err
		}
		w.Customer = c
	}
	if req.PrescriptionID != nil {
		if _, err := s.Repo.GetPrescription(ctx, *req.PrescriptionID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: prescription %s does not exist", ErrValidation, *req.PrescriptionID)
			}
			return nil, storeErr(err, "prescription")
		}
		w.PrescriptionID = req.PrescriptionID
	}
	if req.Lens != nil {
		w.Lens = req.Lens
	}
	if req.Purchase != nil {
		p, err := buildPurchase(*req.Purchase)
		if err != nil {
			return nil, err
		}
		w.Purchase = p
	}
	if req.SaleDate != nil {
		w.SaleDate = req.SaleDate.UTC()
	}
	if req.Notes != nil {
		w.Notes = *req.Notes
	}
	w.UpdatedByID = &actor

	if err := s.Repo.SaveWorkOrder(ctx, w); err != nil {
		return nil, storeErr(err, "work order")
	}
	updated, err := s.Repo.GetWorkOrder(ctx, id)
	if err != nil {
		return nil, storeErr(err, "work order")
	}
	publish(ctx, s.Events, events.TopicWorkOrders, updated.ID.String(), events.Event{
		Type:  events.WorkOrderUpdated,
		ID:    updated.ID.String(),
		Actor: actor.String(),
	})
	return updated, nil
}

func (s *WorkOrderService) Delete(ctx context.Context, id uuid.UUID, actor uuid.UUID) error {
	if err := s.Repo.DeleteWorkOrder(ctx, id); err != nil {
		return storeErr(err, "work order")
	}
	publish(ctx, s.Events, events.TopicWorkOrders, id.String(), events.Event{
		Type:  events.WorkOrderDeleted,
		ID:    id.String(),
		Actor: actor.String(),
	})
	return nil
}

func buildCustomer(in transport.CustomerInput) (models.Customer, error) {
	c := models.Customer{
		Name:       strings.TrimSpace(in.Name),
		NationalID: strings.TrimSpace(in.NationalID),
		Phone:      strings.TrimSpace(in.Phone),
	}
	if c.Name == "" || c.NationalID == "" {
		return models.Customer{}, fmt.Errorf("%w: customer name and national_id required", ErrValidation)
	}
	return c, nil
}

// buildPurchase derives the balance from total and deposit when it is not given.
func buildPurchase(in transport.PurchaseInput) (models.Purchase, error) {
	if in.Total < 0 || in.Deposit < 0 {
		return models.Purchase{}, fmt.Errorf("%w: amounts cannot be negative", ErrValidation)
	}
	if in.Deposit > in.Total {
		return models.Purchase{}, fmt.Errorf("%w: deposit exceeds total", ErrValidation)
	}
	balance := in.Total - in.Deposit
	if in.Balance != nil {
		if *in.Balance != balance {
			return models.Purchase{}, fmt.Errorf("%w: balance must equal total minus deposit", ErrValidation)
		}
	}
	switch in.PaymentMethod {
	case "", models.PaymentCash, models.PaymentTransfer, models.PaymentCard:
	default:
		return models.Purchase{}, fmt.Errorf("%w: unknown payment method %q", ErrValidation, in.PaymentMethod)
	}

	p := models.Purchase{
		Total:         in.Total,
		Deposit:       in.Deposit,
		Balance:       balance,
		PaymentMethod: in.PaymentMethod,
	}
	if in.DeliveryDate != nil {
		d := in.DeliveryDate.UTC()
		p.DeliveryDate = &d
	}
	return p, nil
}

func validateOrderKinds(t models.OrderType, scheme models.OrderNumberScheme) error {
	switch t {
	case models.OrderFrame, models.OrderLenses, models.OrderFull:
	default:
		return fmt.Errorf("%w: order_type must be frame, lenses or full", ErrValidation)
	}
	switch scheme {
	case "", models.SchemeTuVision, models.SchemeOpticolors, models.SchemeOptivaVR:
	default:
		return fmt.Errorf("%w: unknown order_number_scheme %q", ErrValidation, scheme)
	}
	return nil
}
