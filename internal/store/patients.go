package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"clinic-scheduler-backend/internal/model"
)

// firstPatientID is the id given to the first registered patient.
const firstPatientID = 1000

// LookupPatient finds a patient by case-insensitive name and date of birth.
func (s *gormStore) LookupPatient(ctx context.Context, name, dob string) (*model.Patient, error) {
	var p model.Patient
	err := s.db.WithContext(ctx).
		Where("LOWER(name) = ? AND dob = ?", strings.ToLower(strings.TrimSpace(name)), dob).
		Order("id").
		First(&p).Error
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("patient %q", name))
	}
	return &p, nil
}

// GetPatient loads a patient with its insurance.
func (s *gormStore) GetPatient(ctx context.Context, id int64) (*model.Patient, error) {
	var p model.Patient
	if err := s.db.WithContext(ctx).Preload("Insurance").First(&p, id).Error; err != nil {
		return nil, notFound(err, fmt.Sprintf("patient %d", id))
	}
	return &p, nil
}

// RegisterPatient assigns the next patient id and inserts the record.
func (s *gormStore) RegisterPatient(ctx context.Context, p *model.Patient) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxID int64
		if err := tx.Model(&model.Patient{}).
			Select("COALESCE(MAX(id), ?)", firstPatientID-1).
			Scan(&maxID).Error; err != nil {
			return fmt.Errorf("failed to compute next patient id: %w", err)
		}
		p.ID = maxID + 1
		p.Name = strings.TrimSpace(p.Name)
		if err := tx.Create(p).Error; err != nil {
			return fmt.Errorf("failed to register patient: %w", err)
		}
		return nil
	})
}

// SaveInsurance creates or replaces the insurance details of a patient.
func (s *gormStore) SaveInsurance(ctx context.Context, ins *model.Insurance) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(&model.Patient{}).Where("id = ?", ins.PatientID).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check patient %d: %w", ins.PatientID, err)
	}
	if count == 0 {
		return fmt.Errorf("patient %d: %w", ins.PatientID, ErrNotFound)
	}

	ins.UpdatedAt = time.Now().UTC()
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "patient_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"company", "member_id", "group_number", "updated_at"}),
	}).Create(ins).Error; err != nil {
		return fmt.Errorf("failed to save insurance for patient %d: %w", ins.PatientID, err)
	}
	return nil
}
