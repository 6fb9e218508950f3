package service

import (
	"context"
	"fmt"

	"github.com/bitfantasy/sitepm/internal/pm/entity"
	"github.com/bitfantasy/sitepm/internal/pm/repository"
)

// CommitmentService 合同承诺服务。承诺只由定标事务创建，
// 这里提供查询和状态流转（激活/关闭）。
type CommitmentService struct {
	commitmentRepo *repository.CommitmentRepository
}

func NewCommitmentService(commitmentRepo *repository.CommitmentRepository) *CommitmentService {
	return &CommitmentService{commitmentRepo: commitmentRepo}
}

func (s *CommitmentService) List(ctx context.Context, page, pageSize int, filters map[string]string) ([]entity.Commitment, int64, error) {
	return s.commitmentRepo.FindAll(ctx, page, pageSize, filters)
}

func (s *CommitmentService) Get(ctx context.Context, id string) (*entity.Commitment, error) {
	return s.commitmentRepo.FindByID(ctx, id)
}

// Activate 承诺生效（合同签订后draft转active）
func (s *CommitmentService) Activate(ctx context.Context, id string) (*entity.Commitment, error) {
	commitment, err := s.commitmentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if commitment.Status != entity.CommitmentStatusDraft {
		return nil, fmt.Errorf("仅草稿状态的承诺可激活，当前状态: %s", commitment.Status)
	}
	commitment.Status = entity.CommitmentStatusActive
	if err := s.commitmentRepo.Update(ctx, commitment); err != nil {
		return nil, err
	}
	return commitment, nil
}

// Close 关闭承诺（履约完成）
func (s *CommitmentService) Close(ctx context.Context, id string) (*entity.Commitment, error) {
	commitment, err := s.commitmentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if commitment.Status != entity.CommitmentStatusActive {
		return nil, fmt.Errorf("仅生效状态的承诺可关闭，当前状态: %s", commitment.Status)
	}
	commitment.Status = entity.CommitmentStatusClosed
	if err := s.commitmentRepo.Update(ctx, commitment); err != nil {
		return nil, err
	}
	return commitment, nil
}
