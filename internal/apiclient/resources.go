package apiclient

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/google/uuid"

	"github.com/Skotchmaster/optica/internal/models"
	"github.com/Skotchmaster/optica/internal/transport"
)

func (c *Client) CreateClient(ctx context.Context, req transport.CreateClientRequest) (*models.Client, error) {
	var out models.Client
	if err := c.authed(ctx, http.MethodPost, "/clients", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FindOrCreateClient is the fallback offered when CreateClient reports a conflict.
func (c *Client) FindOrCreateClient(ctx context.Context, req transport.CreateClientRequest) (*models.Client, error) {
	var out models.Client
	if err := c.authed(ctx, http.MethodPost, "/clients/find-or-create", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SearchClients(ctx context.Context, q string) ([]models.Client, error) {
	var out []models.Client
	if err := c.authed(ctx, http.MethodGet, query("/clients/search", "q", q), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ClientByNationalID(ctx context.Context, nationalID string) (*models.Client, error) {
	var out models.Client
	if err := c.authed(ctx, http.MethodGet, "/clients/by-national-id/"+url.PathEscape(nationalID), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteClient(ctx context.Context, id uuid.UUID) error {
	return c.authed(ctx, http.MethodDelete, "/clients/"+id.String(), nil, nil)
}

func (c *Client) CreatePrescription(ctx context.Context, req transport.CreatePrescriptionRequest) (*transport.PrescriptionResult, error) {
	var out transport.PrescriptionResult
	if err := c.authed(ctx, http.MethodPost, "/prescriptions", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PrescriptionsByClient(ctx context.Context, nationalID string) ([]models.Prescription, error) {
	var out []models.Prescription
	if err := c.authed(ctx, http.MethodGet, query("/prescriptions/by-national-id", "national_id", nationalID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// LatestPrescription returns an error matching IsNotFound when the client has none of that type.
func (c *Client) LatestPrescription(ctx context.Context, nationalID string, typ models.PrescriptionType) (*models.Prescription, error) {
	path := query("/prescriptions/latest-by-national-id", "national_id", nationalID)
	if typ != "" {
		path = query("/prescriptions/latest-by-national-id-and-type", "national_id", nationalID, "type", string(typ))
	}
	var out models.Prescription
	if err := c.authed(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateWorkOrder(ctx context.Context, req transport.CreateWorkOrderRequest) (*models.WorkOrder, error) {
	var out models.WorkOrder
	if err := c.authed(ctx, http.MethodPost, "/work-orders", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) WorkOrderByNumber(ctx context.Context, n int64) (*models.WorkOrder, error) {
	var out models.WorkOrder
	if err := c.authed(ctx, http.MethodGet, "/work-orders/by-number/"+strconv.FormatInt(n, 10), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) WorkOrdersByClient(ctx context.Context, nationalID string) ([]models.WorkOrder, error) {
	var out []models.WorkOrder
	if err := c.authed(ctx, http.MethodGet, query("/work-orders/by-national-id", "national_id", nationalID), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}
