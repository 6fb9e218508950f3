package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bitfantasy/sitepm/internal/bidding/entity"
	pmentity "github.com/bitfantasy/sitepm/internal/pm/entity"
	"gorm.io/gorm"
)

// AwardRepository 中标记录仓库
type AwardRepository struct {
	db *gorm.DB
}

func NewAwardRepository(db *gorm.DB) *AwardRepository {
	return &AwardRepository{db: db}
}

// FindByID 根据ID查找中标记录
func (r *AwardRepository) FindByID(ctx context.Context, id string) (*entity.Award, error) {
	var award entity.Award
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&award).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &award, nil
}

// FindByRFP 查找某RFP当前有效的中标记录（至多一条）。
// 已撤销的历史定标不算，撤销后RFP可重新定标。
func (r *AwardRepository) FindByRFP(ctx context.Context, rfpID string) (*entity.Award, error) {
	var award entity.Award
	err := r.db.WithContext(ctx).
		Where("rfp_id = ? AND status = ?", rfpID, entity.AwardStatusActive).
		First(&award).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &award, nil
}

// GenerateContractNo 在事务内生成合同编号 CT-{项目编码}-{YYYYMM}-{4位}。
// 编号在项目+月份范围内递增，配合contract_no唯一索引防撞号。
func GenerateContractNo(tx *gorm.DB, projectCode string) (string, error) {
	month := time.Now().Format("200601")
	prefix := fmt.Sprintf("CT-%s-%s-", projectCode, month)

	var maxNo string
	err := tx.Model(&pmentity.Commitment{}).
		Select("COALESCE(MAX(contract_no), '')").
		Where("contract_no LIKE ?", prefix+"%").
		Scan(&maxNo).Error
	if err != nil {
		return "", err
	}

	var seq int
	if maxNo != "" {
		fmt.Sscanf(maxNo, prefix+"%04d", &seq)
	}
	seq++
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}
