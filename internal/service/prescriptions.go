package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/Skotchmaster/optica/internal/events"
	"github.com/Skotchmaster/optica/internal/logging"
	"github.com/Skotchmaster/optica/internal/models"
	"github.com/Skotchmaster/optica/internal/repo"
	"github.com/Skotchmaster/optica/internal/transport"
)

const (
	maxWriteAttempts = 3

	MsgPrescriptionUnchanged = "prescription unchanged; existing record confirmed"
)

type PrescriptionService struct {
	Repo   *repo.GormRepo
	Events events.Publisher
}

// Create stores a prescription unless the latest record of the same client and type
// carries identical readings, in which case that record is reconfirmed and returned.
func (s *PrescriptionService) Create(ctx context.Context, req transport.CreatePrescriptionRequest, actor uuid.UUID) (*transport.PrescriptionResult, error) {
	l := logging.FromContext(ctx).With("svc", "prescriptions.create")

	candidate := models.Prescription{
		ClientNationalID:  strings.TrimSpace(req.ClientNationalID),
		ClientName:        strings.TrimSpace(req.ClientName),
		ClientPhone:       strings.TrimSpace(req.ClientPhone),
		Type:              req.Type,
		RightEye:          eyeOrEmpty(req.RightEye),
		LeftEye:           eyeOrEmpty(req.LeftEye),
		PupillaryDistance: req.PupillaryDistance,
		Notes:             req.Notes,
		CreatedByID:       actor,
	}
	if candidate.ClientNationalID == "" || candidate.ClientName == "" {
		return nil, fmt.Errorf("%w: client_national_id and client_name required", ErrValidation)
	}
	if !candidate.Type.Valid() {
		return nil, fmt.Errorf("%w: type must be distance or near", ErrValidation)
	}

	for attempt := 1; attempt <= maxWriteAttempts; attempt++ {
		res, err := s.createOnce(ctx, candidate, actor)
		if errors.Is(err, repo.ErrStaleHead) {
			l.Info("prescription_write_retry", "attempt", attempt, "national_id", candidate.ClientNationalID)
			continue
		}
		if err != nil {
			return nil, storeErr(err, "prescription")
		}

		typ := events.PrescriptionCreated
		if !res.IsNew {
			typ = events.PrescriptionReconfirmed
		}
		publish(ctx, s.Events, events.TopicPrescriptions, res.Prescription.ClientNationalID, events.Event{
			Type:       typ,
			ID:         res.Prescription.ID.String(),
			NationalID: res.Prescription.ClientNationalID,
			Actor:      actor.String(),
		})
		return res, nil
	}
	return nil, fmt.Errorf("%w: prescription for %s was modified concurrently", ErrConflict, candidate.ClientNationalID)
}

func (s *PrescriptionService) createOnce(ctx context.Context, p models.Prescription, actor uuid.UUID) (*transport.PrescriptionResult, error) {
	var out transport.PrescriptionResult
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		version, err := tx.HeadVersion(ctx, p.ClientNationalID, p.Type)
		if err != nil {
			return err
		}

		latest, err := tx.LatestPrescription(ctx, p.ClientNationalID, p.Type)
		if err != nil {
			return err
		}

		var id uuid.UUID
		if latest != nil && latest.SameReadings(p) {
			if err := tx.TouchPrescription(ctx, latest.ID, actor); err != nil {
				return err
			}
			id = latest.ID
			out.Message = MsgPrescriptionUnchanged
		} else {
			p.Seq = version + 1
			if err := tx.CreatePrescription(ctx, &p); err != nil {
				return err
			}
			id = p.ID
			out.IsNew = true
		}

		if err := tx.BumpHead(ctx, p.ClientNationalID, p.Type, version); err != nil {
			return err
		}

		out.Prescription, err = tx.GetPrescription(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PrescriptionService) List(ctx context.Context) ([]models.Prescription, error) {
	out, err := s.Repo.ListPrescriptions(ctx, "", "")
	if err != nil {
		return nil, storeErr(err, "prescriptions")
	}
	return out, nil
}

func (s *PrescriptionService) ListByClient(ctx context.Context, nationalID string, typ models.PrescriptionType) ([]models.Prescription, error) {
	nationalID = strings.TrimSpace(nationalID)
	if nationalID == "" {
		return nil, fmt.Errorf("%w: national_id required", ErrValidation)
	}
	if typ != "" && !typ.Valid() {
		return nil, fmt.Errorf("%w: type must be distance or near", ErrValidation)
	}
	out, err := s.Repo.ListPrescriptions(ctx, nationalID, typ)
	if err != nil {
		return nil, storeErr(err, "prescriptions")
	}
	return out, nil
}

// Latest returns ErrNotFound when the client has no matching record.
func (s *PrescriptionService) Latest(ctx context.Context, nationalID string, typ models.PrescriptionType) (*models.Prescription, error) {
	nationalID = strings.TrimSpace(nationalID)
	if nationalID == "" {
		return nil, fmt.Errorf("%w: national_id required", ErrValidation)
	}
	if typ != "" && !typ.Valid() {
		return nil, fmt.Errorf("%w: type must be distance or near", ErrValidation)
	}
	p, err := s.Repo.LatestPrescription(ctx, nationalID, typ)
	if err != nil {
		return nil, storeErr(err, "prescription")
	}
	if p == nil {
		return nil, fmt.Errorf("%w: no prescription for %s", ErrNotFound, nationalID)
	}
	return p, nil
}

func (s *PrescriptionService) Search(ctx context.Context, f repo.PrescriptionFilter) ([]models.Prescription, error) {
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, fmt.Errorf("%w: to is before from", ErrValidation)
	}
	out, err := s.Repo.SearchPrescriptions(ctx, f)
	if err != nil {
		return nil, storeErr(err, "prescriptions")
	}
	return out, nil
}

func (s *PrescriptionService) Get(ctx context.Context, id uuid.UUID) (*models.Prescription, error) {
	p, err := s.Repo.GetPrescription(ctx, id)
	if err != nil {
		return nil, storeErr(err, "prescription")
	}
	return p, nil
}

// Patch edits a record in place and moves the head so concurrent creates re-read it.
func (s *PrescriptionService) Patch(ctx context.Context, id uuid.UUID, req transport.PatchPrescriptionRequest, actor uuid.UUID) (*models.Prescription, error) {
	var updated *models.Prescription
	err := s.Repo.Transaction(ctx, func(tx *repo.GormRepo) error {
		p, err := tx.GetPrescription(ctx, id)
		if err != nil {
			return err
		}
		version, err := tx.HeadVersion(ctx, p.ClientNationalID, p.Type)
		if err != nil {
			return err
		}

		if req.ClientName != nil {
			name := strings.TrimSpace(*req.ClientName)
			if name == "" {
				return fmt.Errorf("%w: client_name cannot be empty", ErrValidation)
			}
			p.ClientName = name
		}
		if req.ClientPhone != nil {
			p.ClientPhone = strings.TrimSpace(*req.ClientPhone)
		}
		if req.RightEye != nil {
			p.RightEye = *req.RightEye
		}
		if req.LeftEye != nil {
			p.LeftEye = *req.LeftEye
		}
		if req.PupillaryDistance != nil {
			p.PupillaryDistance = *req.PupillaryDistance
		}
		if req.Notes != nil {
			p.Notes = *req.Notes
		}
		p.UpdatedByID = &actor

		if err := tx.SavePrescription(ctx, p); err != nil {
			return err
		}
		if err := tx.BumpHead(ctx, p.ClientNationalID, p.Type, version); err != nil {
			return err
		}
		updated, err = tx.GetPrescription(ctx, id)
		return err
	})
	if errors.Is(err, repo.ErrStaleHead) {
		return nil, fmt.Errorf("%w: prescription was modified concurrently", ErrConflict)
	}
	if errors.Is(err, ErrValidation) {
		return nil, err
	}
	if err != nil {
		return nil, storeErr(err, "prescription")
	}

	publish(ctx, s.Events, events.TopicPrescriptions, updated.ClientNationalID, events.Event{
		Type:       events.PrescriptionUpdated,
		ID:         updated.ID.String(),
		NationalID: updated.ClientNationalID,
		Actor:      actor.String(),
	})
	return updated, nil
}

func (s *PrescriptionService) Delete(ctx context.Context, id uuid.UUID, actor uuid.UUID) error {
	if err := s.Repo.DeletePrescription(ctx, id); err != nil {
		return storeErr(err, "prescription")
	}
	publish(ctx, s.Events, events.TopicPrescriptions, id.String(), events.Event{
		Type:  events.PrescriptionDeleted,
		ID:    id.String(),
		Actor: actor.String(),
	})
	return nil
}

func eyeOrEmpty(e *models.EyeData) models.EyeData {
	if e == nil {
		return models.EyeData{}
	}
	return *e
}
