package user

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	domain "github.com/viewcasthq/viewcast-server/internal/domain/user"
	"github.com/viewcasthq/viewcast-server/internal/infrastructure/database/entities"
)

// Repository handles account persistence.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, u *domain.User) error {
	entity := entities.User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		Avatar:       u.Avatar,
	}
	if err := r.db.WithContext(ctx).Create(&entity).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	u.CreatedAt = entity.CreatedAt
	u.UpdatedAt = entity.UpdatedAt
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *Repository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

func (r *Repository) findOne(ctx context.Context, query string, arg string) (*domain.User, error) {
	var entity entities.User
	err := r.db.WithContext(ctx).Where(query, arg).First(&entity).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	u := mapEntity(entity)
	return &u, nil
}

func (r *Repository) List(ctx context.Context) ([]*domain.User, error) {
	var rows []entities.User
	err := r.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]*domain.User, 0, len(rows))
	for _, row := range rows {
		u := mapEntity(row)
		out = append(out, &u)
	}
	return out, nil
}

func (r *Repository) UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error) {
	result := r.db.WithContext(ctx).Model(&entities.User{}).
		Where("id = ?", id).
		Update("role", string(role))
	if result.Error != nil {
		return nil, fmt.Errorf("update role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&entities.User{})
	if result.Error != nil {
		return fmt.Errorf("delete user: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Count returns the total number of accounts.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&entities.User{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// CountByRole groups account counts by role.
func (r *Repository) CountByRole(ctx context.Context) (map[domain.Role]int64, error) {
	type row struct {
		Role  string
		Count int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&entities.User{}).
		Select("role, COUNT(*) as count").
		Group("role").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count by role: %w", err)
	}
	out := make(map[domain.Role]int64, len(rows))
	for _, r := range rows {
		out[domain.Role(r.Role)] = r.Count
	}
	return out, nil
}

func mapEntity(entity entities.User) domain.User {
	return domain.User{
		ID:           entity.ID,
		Username:     entity.Username,
		Email:        entity.Email,
		PasswordHash: entity.PasswordHash,
		Role:         domain.Role(entity.Role),
		Avatar:       entity.Avatar,
		CreatedAt:    entity.CreatedAt,
		UpdatedAt:    entity.UpdatedAt,
	}
}
