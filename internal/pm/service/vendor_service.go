package service

import (
	"context"

	"github.com/bitfantasy/sitepm/internal/pm/entity"
	"github.com/bitfantasy/sitepm/internal/pm/repository"
	"github.com/google/uuid"
)

// VendorService 供应商服务
type VendorService struct {
	vendorRepo *repository.VendorRepository
}

func NewVendorService(vendorRepo *repository.VendorRepository) *VendorService {
	return &VendorService{vendorRepo: vendorRepo}
}

// CreateVendorInput 创建供应商请求
type CreateVendorInput struct {
	Code    string `json:"code" binding:"required,max=32"`
	Name    string `json:"name" binding:"required,max=200"`
	Trade   string `json:"trade" binding:"max=50"`
	Email   string `json:"email" binding:"omitempty,email"`
	Phone   string `json:"phone" binding:"max=30"`
	Address string `json:"address" binding:"max=500"`
	Notes   string `json:"notes"`
}

// UpdateVendorInput 更新供应商请求
type UpdateVendorInput struct {
	Name    string  `json:"name" binding:"omitempty,max=200"`
	Trade   *string `json:"trade"`
	Status  string  `json:"status" binding:"omitempty,oneof=active inactive disbarred"`
	Email   *string `json:"email"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Notes   *string `json:"notes"`
}

// ContactInput 联系人请求
type ContactInput struct {
	Name      string `json:"name" binding:"required,max=100"`
	Title     string `json:"title" binding:"max=100"`
	Email     string `json:"email" binding:"omitempty,email"`
	Phone     string `json:"phone" binding:"max=30"`
	IsPrimary bool   `json:"is_primary"`
}

func (s *VendorService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Vendor, int64, error) {
	return s.vendorRepo.FindAll(ctx, page, pageSize, filters)
}

func (s *VendorService) Get(ctx context.Context, id string) (*entity.Vendor, error) {
	return s.vendorRepo.FindByID(ctx, id)
}

func (s *VendorService) Create(ctx context.Context, input *CreateVendorInput, createdBy string) (*entity.Vendor, error) {
	vendor := &entity.Vendor{
		ID:        uuid.New().String()[:32],
		Code:      input.Code,
		Name:      input.Name,
		Trade:     input.Trade,
		Status:    entity.VendorStatusActive,
		Email:     input.Email,
		Phone:     input.Phone,
		Address:   input.Address,
		CreatedBy: createdBy,
		Notes:     input.Notes,
	}
	if err := s.vendorRepo.Create(ctx, vendor); err != nil {
		return nil, err
	}
	return vendor, nil
}

func (s *VendorService) Update(ctx context.Context, id string, input *UpdateVendorInput) (*entity.Vendor, error) {
	vendor, err := s.vendorRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != "" {
		vendor.Name = input.Name
	}
	if input.Trade != nil {
		vendor.Trade = *input.Trade
	}
	if input.Status != "" {
		vendor.Status = input.Status
	}
	if input.Email != nil {
		vendor.Email = *input.Email
	}
	if input.Phone != nil {
		vendor.Phone = *input.Phone
	}
	if input.Address != nil {
		vendor.Address = *input.Address
	}
	if input.Notes != nil {
		vendor.Notes = *input.Notes
	}
	if err := s.vendorRepo.Update(ctx, vendor); err != nil {
		return nil, err
	}
	return vendor, nil
}

// AddContact 添加联系人
func (s *VendorService) AddContact(ctx context.Context, vendorID string, input *ContactInput) (*entity.VendorContact, error) {
	if _, err := s.vendorRepo.FindByID(ctx, vendorID); err != nil {
		return nil, err
	}
	contact := &entity.VendorContact{
		ID:        uuid.New().String()[:32],
		VendorID:  vendorID,
		Name:      input.Name,
		Title:     input.Title,
		Email:     input.Email,
		Phone:     input.Phone,
		IsPrimary: input.IsPrimary,
	}
	if err := s.vendorRepo.CreateContact(ctx, contact); err != nil {
		return nil, err
	}
	return contact, nil
}

// DeleteContact 删除联系人
func (s *VendorService) DeleteContact(ctx context.Context, contactID string) error {
	return s.vendorRepo.DeleteContact(ctx, contactID)
}
