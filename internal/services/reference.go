package services

import (
	"errors"
	"strings"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
	"gorm.io/gorm"
)

// ReferenceService manages the shared discipline and zone lists.
type ReferenceService struct {
	db *gorm.DB
}

func NewReferenceService(db *gorm.DB) *ReferenceService {
	return &ReferenceService{db: db}
}

type NameRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

func cleanName(req *NameRequest) (string, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", fieldError("name", scheduling.MsgBlank)
	}
	return name, nil
}

func saveNamed(db *gorm.DB, record interface{}, create bool) error {
	var err error
	if create {
		err = db.Create(record).Error
	} else {
		err = db.Save(record).Error
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateName
	}
	return err
}

// deleteUnused removes record when no activity references it through column.
func deleteUnused(db *gorm.DB, record interface{}, column string, id uint) error {
	var count int64
	if err := db.Model(&models.Activity{}).Where(column+" = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrInUse
	}
	res := db.Delete(record, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ReferenceService) Disciplines() ([]models.Discipline, error) {
	items := []models.Discipline{}
	err := s.db.Order("name").Find(&items).Error
	return items, err
}

func (s *ReferenceService) CreateDiscipline(req *NameRequest) (*models.Discipline, error) {
	name, err := cleanName(req)
	if err != nil {
		return nil, err
	}
	d := &models.Discipline{Name: name}
	if err := saveNamed(s.db, d, true); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *ReferenceService) UpdateDiscipline(id uint, req *NameRequest) (*models.Discipline, error) {
	name, err := cleanName(req)
	if err != nil {
		return nil, err
	}
	var d models.Discipline
	if err := s.db.First(&d, id).Error; err != nil {
		return nil, notFound(err)
	}
	d.Name = name
	if err := saveNamed(s.db, &d, false); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *ReferenceService) DeleteDiscipline(id uint) error {
	return deleteUnused(s.db, &models.Discipline{}, "discipline_id", id)
}

func (s *ReferenceService) Zones() ([]models.Zone, error) {
	items := []models.Zone{}
	err := s.db.Order("name").Find(&items).Error
	return items, err
}

func (s *ReferenceService) CreateZone(req *NameRequest) (*models.Zone, error) {
	name, err := cleanName(req)
	if err != nil {
		return nil, err
	}
	z := &models.Zone{Name: name}
	if err := saveNamed(s.db, z, true); err != nil {
		return nil, err
	}
	return z, nil
}

func (s *ReferenceService) UpdateZone(id uint, req *NameRequest) (*models.Zone, error) {
	name, err := cleanName(req)
	if err != nil {
		return nil, err
	}
	var z models.Zone
	if err := s.db.First(&z, id).Error; err != nil {
		return nil, notFound(err)
	}
	z.Name = name
	if err := saveNamed(s.db, &z, false); err != nil {
		return nil, err
	}
	return &z, nil
}

func (s *ReferenceService) DeleteZone(id uint) error {
	return deleteUnused(s.db, &models.Zone{}, "zone_id", id)
}

// findOrCreateDiscipline matches names case-insensitively.
func findOrCreateDiscipline(db *gorm.DB, name string) (*models.Discipline, error) {
	var d models.Discipline
	err := db.Where("LOWER(name) = ?", strings.ToLower(name)).First(&d).Error
	if err == nil {
		return &d, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	d = models.Discipline{Name: name}
	return &d, db.Create(&d).Error
}

func findOrCreateZone(db *gorm.DB, name string) (*models.Zone, error) {
	var z models.Zone
	err := db.Where("LOWER(name) = ?", strings.ToLower(name)).First(&z).Error
	if err == nil {
		return &z, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	z = models.Zone{Name: name}
	return &z, db.Create(&z).Error
}
