package repository

import (
	"context"

	"anoa.com/campuscomplaint/internal/entity"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Scope narrows complaint queries to what a caller may see. The zero value
// is unrestricted.
type Scope struct {
	OwnerID    string
	Faculty    entity.Faculty
	Department string
}

func (s Scope) Apply(db *gorm.DB) *gorm.DB {
	if s.OwnerID != "" {
		db = db.Where("complaints.user_id = ?", s.OwnerID)
	}
	if s.Faculty != "" {
		db = db.Where("complaints.faculty = ?", s.Faculty)
	}
	if s.Department != "" {
		db = db.Where("complaints.department = ?", s.Department)
	}
	return db
}

type Filter struct {
	Scope     Scope
	IDs       []uuid.UUID
	Status    entity.ComplaintStatus
	Priority  entity.Priority
	Category  entity.Category
	Faculty   entity.Faculty
	Sensitive *bool
	OrderBy   string
	Limit     int
}

const (
	OrderSensitiveFirst = "sensitive-first"
	OrderDateNewest     = "date-newest"
	OrderDateOldest     = "date-oldest"
	OrderPriority       = "priority"
	OrderStatus         = "status"
	OrderTitle          = "title"
)

var orderClauses = map[string][]string{
	OrderSensitiveFirst: {"complaints.sensitive desc", "complaints.created_at desc"},
	OrderDateNewest:     {"complaints.created_at desc"},
	OrderDateOldest:     {"complaints.created_at asc"},
	OrderPriority: {
		"CASE complaints.priority WHEN 'high' THEN 0 WHEN 'normal' THEN 1 ELSE 2 END",
		"complaints.created_at desc",
	},
	OrderStatus: {
		"CASE complaints.status WHEN 'pending' THEN 0 WHEN 'in-review' THEN 1 ELSE 2 END",
		"complaints.created_at desc",
	},
	OrderTitle: {"complaints.title asc"},
}

func IsValidOrder(order string) bool {
	_, ok := orderClauses[order]
	return ok
}

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
	Create(ctx context.Context, complaint *entity.Complaint) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Complaint, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Complaint, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error
	DeletePending(ctx context.Context, id uuid.UUID, ownerID string) (int64, error)
	FindAll(ctx context.Context, filter Filter) ([]entity.Complaint, error)
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	return &repository{db: tx}
}

func (r *repository) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *repository) Create(ctx context.Context, complaint *entity.Complaint) error {
	return r.db.WithContext(ctx).Create(complaint).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Complaint, error) {
	var complaint entity.Complaint
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&complaint).Error; err != nil {
		return nil, err
	}
	return &complaint, nil
}

// FindByIDForUpdate row-locks the complaint until the surrounding transaction ends.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Complaint, error) {
	var complaint entity.Complaint
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&complaint).Error; err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	result := r.db.WithContext(ctx).Model(&entity.Complaint{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeletePending removes the complaint only while it is still pending and owned
// by ownerID. Dependent rows go with it through the foreign key cascades.
func (r *repository) DeletePending(ctx context.Context, id uuid.UUID, ownerID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ? AND status = ?", id, ownerID, entity.StatusPending).
		Delete(&entity.Complaint{})
	return result.RowsAffected, result.Error
}

func (r *repository) FindAll(ctx context.Context, filter Filter) ([]entity.Complaint, error) {
	query := filter.Scope.Apply(r.db.WithContext(ctx).Model(&entity.Complaint{}))

	if filter.IDs != nil {
		query = query.Where("complaints.id IN ?", filter.IDs)
	}
	if filter.Status != "" {
		query = query.Where("complaints.status = ?", filter.Status)
	}
	if filter.Priority != "" {
		query = query.Where("complaints.priority = ?", filter.Priority)
	}
	if filter.Category != "" {
		query = query.Where("complaints.category = ?", filter.Category)
	}
	if filter.Faculty != "" {
		query = query.Where("complaints.faculty = ?", filter.Faculty)
	}
	if filter.Sensitive != nil {
		query = query.Where("complaints.sensitive = ?", *filter.Sensitive)
	}

	order, ok := orderClauses[filter.OrderBy]
	if !ok {
		order = orderClauses[OrderSensitiveFirst]
	}
	for _, o := range order {
		query = query.Order(o)
	}
	query = query.Order("complaints.id desc")

	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var complaints []entity.Complaint
	if err := query.Find(&complaints).Error; err != nil {
		return nil, err
	}
	return complaints, nil
}
