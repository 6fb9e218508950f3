package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 项目管理仓库集合
type Repositories struct {
	Project    *ProjectRepository
	Vendor     *VendorRepository
	Budget     *BudgetRepository
	Commitment *CommitmentRepository
}

// NewRepositories 创建项目管理仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Project:    NewProjectRepository(db),
		Vendor:     NewVendorRepository(db),
		Budget:     NewBudgetRepository(db),
		Commitment: NewCommitmentRepository(db),
	}
}
