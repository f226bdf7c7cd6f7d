package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Skotchmaster/optica/internal/events"
	"github.com/Skotchmaster/optica/internal/logging"
	"github.com/Skotchmaster/optica/internal/models"
	"github.com/Skotchmaster/optica/internal/repo"
	"github.com/Skotchmaster/optica/internal/transport"
)

const searchLimit = 50

// ClientIndex is the optional full-text mirror of the clients table.
type ClientIndex interface {
	Index(ctx context.Context, c models.Client) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, size int) ([]uuid.UUID, error)
}

type ClientService struct {
	Repo   *repo.GormRepo
	Index  ClientIndex
	Events events.Publisher
}

func (s *ClientService) Create(ctx context.Context, req transport.CreateClientRequest, actor uuid.UUID) (*models.Client, error) {
	nid := strings.TrimSpace(req.NationalID)
	name := strings.TrimSpace(req.Name)
	if nid == "" || name == "" {
		return nil, fmt.Errorf("%w: national_id and name required", ErrValidation)
	}

	if _, err := s.Repo.GetClientByNationalID(ctx, nid); err == nil {
		return nil, fmt.Errorf("%w: client with national_id %s already exists", ErrConflict, nid)
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load client: %w", err)
	}

	client := &models.Client{
		NationalID:  nid,
		Name:        name,
		Phone:       strings.TrimSpace(req.Phone),
		Email:       normalizeEmail(req.Email),
		CreatedByID: actor,
	}
	if err := s.Repo.CreateClient(ctx, client); err != nil {
		return nil, storeErr(err, "client")
	}

	created, err := s.Repo.GetClient(ctx, client.ID)
	if err != nil {
		return nil, storeErr(err, "client")
	}
	s.mirror(ctx, *created)
	publish(ctx, s.Events, events.TopicClients, created.ID.String(), events.Event{
		Type:       events.ClientCreated,
		ID:         created.ID.String(),
		NationalID: created.NationalID,
		Actor:      actor.String(),
	})
	return created, nil
}

// FindOrCreate returns the client registered under the national id, creating it when absent.
func (s *ClientService) FindOrCreate(ctx context.Context, req transport.CreateClientRequest, actor uuid.UUID) (*models.Client, bool, error) {
	existing, err := s.Repo.GetClientByNationalID(ctx, strings.TrimSpace(req.NationalID))
	if err == nil {
		return existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("load client: %w", err)
	}

	created, err := s.Create(ctx, req, actor)
	if errors.Is(err, ErrConflict) {
		existing, err := s.Repo.GetClientByNationalID(ctx, strings.TrimSpace(req.NationalID))
		if err != nil {
			return nil, false, storeErr(err, "client")
		}
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (s *ClientService) List(ctx context.Context) ([]models.Client, error) {
	clients, err := s.Repo.ListClients(ctx)
	if err != nil {
		return nil, storeErr(err, "clients")
	}
	return clients, nil
}

// Search uses the index for free text when one is configured and falls back to the database.
func (s *ClientService) Search(ctx context.Context, q string, f repo.ClientFilter) ([]models.Client, error) {
	q = strings.TrimSpace(q)
	if q != "" && s.Index != nil {
		ids, err := s.Index.Search(ctx, q, searchLimit)
		if err == nil {
			clients, err := s.Repo.GetClientsByIDs(ctx, ids)
			if err != nil {
				return nil, storeErr(err, "clients")
			}
			return clients, nil
		}
		logging.FromContext(ctx).Warn("client_index_search_failed", "error", err)
	}
	if q != "" {
		f = repo.ClientFilter{NationalID: q, Name: q, Email: q}
	}

	clients, err := s.Repo.SearchClients(ctx, f)
	if err != nil {
		return nil, storeErr(err, "clients")
	}
	return clients, nil
}

func (s *ClientService) Get(ctx context.Context, id uuid.UUID) (*models.Client, error) {
	client, err := s.Repo.GetClient(ctx, id)
	if err != nil {
		return nil, storeErr(err, "client")
	}
	return client, nil
}

func (s *ClientService) GetByNationalID(ctx context.Context, nationalID string) (*models.Client, error) {
	client, err := s.Repo.GetClientByNationalID(ctx, strings.TrimSpace(nationalID))
	if err != nil {
		return nil, storeErr(err, "client")
	}
	return client, nil
}

func (s *ClientService) Patch(ctx context.Context, id uuid.UUID, req transport.PatchClientRequest, actor uuid.UUID) (*models.Client, error) {
	client, err := s.Repo.GetClient(ctx, id)
	if err != nil {
		return nil, storeErr(err, "client")
	}

	if req.NationalID != nil {
		nid := strings.TrimSpace(*req.NationalID)
		if nid == "" {
			return nil, fmt.Errorf("%w: national_id cannot be empty", ErrValidation)
		}
		if nid != client.NationalID {
			if _, err := s.Repo.GetClientByNationalID(ctx, nid); err == nil {
				return nil, fmt.Errorf("%w: client with national_id %s already exists", ErrConflict, nid)
			} else if !errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("load client: %w", err)
			}
		}
		client.NationalID = nid
	}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: name cannot be empty", ErrValidation)
		}
		client.Name = name
	}
	if req.Phone != nil {
		client.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		client.Email = normalizeEmail(*req.Email)
	}
	client.UpdatedByID = &actor

	if err := s.Repo.SaveClient(ctx, client); err != nil {
		return nil, storeErr(err, "client")
	}

	updated, err := s.Repo.GetClient(ctx, id)
	if err != nil {
		return nil, storeErr(err, "client")
	}
	s.mirror(ctx, *updated)
	publish(ctx, s.Events, events.TopicClients, updated.ID.String(), events.Event{
		Type:       events.ClientUpdated,
		ID:         updated.ID.String(),
		NationalID: updated.NationalID,
		Actor:      actor.String(),
	})
	return updated, nil
}

func (s *ClientService) Delete(ctx context.Context, id uuid.UUID, actor uuid.UUID) error {
	if err := s.Repo.DeleteClient(ctx, id); err != nil {
		return storeErr(err, "client")
	}
	if s.Index != nil {
		if err := s.Index.Delete(ctx, id); err != nil {
			logging.FromContext(ctx).Warn("client_index_delete_failed", "client_id", id, "error", err)
		}
	}
	publish(ctx, s.Events, events.TopicClients, id.String(), events.Event{
		Type:  events.ClientDeleted,
		ID:    id.String(),
		Actor: actor.String(),
	})
	return nil
}

func (s *ClientService) mirror(ctx context.Context, c models.Client) {
	if s.Index == nil {
		return
	}
	if err := s.Index.Index(ctx, c); err != nil {
		logging.FromContext(ctx).Warn("client_index_failed", "client_id", c.ID, "error", err)
	}
}
