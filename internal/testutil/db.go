package testutil

import (
	"fmt"
	"testing"
	"time"

	"anoa.com/campuscomplaint/internal/bootstrap"
	"anoa.com/campuscomplaint/internal/entity"
	"anoa.com/campuscomplaint/pkg/database"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB returns a migrated, isolated in-memory sqlite store with foreign
// keys enforced. A single connection keeps the shared-cache database alive
// for the whole test, so code inside a transaction must use the tx handle.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_foreign_keys=on", uuid.NewString())
	cfg := database.Config()
	cfg.Logger = logger.Default.LogMode(logger.Silent)

	db, err := gorm.Open(sqlite.Open(dsn), cfg)
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.Exec("PRAGMA foreign_keys = ON").Error)
	require.NoError(t, bootstrap.Migrate(db))

	return db
}

func ptr[T any](v T) *T { return &v }

// SeedUser inserts a user row so ownership and recipient foreign keys resolve.
func SeedUser(t *testing.T, db *gorm.DB, actor entity.Actor) entity.Actor {
	t.Helper()

	user := entity.User{ID: actor.UserID, Role: actor.Role}
	if actor.Faculty != "" {
		user.Faculty = ptr(actor.Faculty)
	}
	if actor.Department != "" {
		user.Department = ptr(actor.Department)
	}
	require.NoError(t, db.Create(&user).Error)
	return actor
}

func Student(id string) entity.Actor {
	return entity.Actor{UserID: id, Role: entity.RoleStudent, Faculty: entity.FacultyScience, Department: "Computer Science"}
}

func Admin(id string) entity.Actor {
	return entity.Actor{UserID: id, Role: entity.RoleAdmin}
}

func DepartmentAdmin(id string, faculty entity.Faculty, department string) entity.Actor {
	return entity.Actor{UserID: id, Role: entity.RoleDepartmentAdmin, Faculty: faculty, Department: department}
}

// SeedComplaint inserts a complaint directly, bypassing the lifecycle engine.
func SeedComplaint(t *testing.T, db *gorm.DB, ownerID string, status entity.ComplaintStatus, createdAt time.Time) *entity.Complaint {
	t.Helper()

	c := &entity.Complaint{
		UserID:         ownerID,
		Title:          "Broken projector",
		Description:    "The projector in LT2 has not worked for a week",
		Category:       entity.CategoryFacility,
		Faculty:        entity.FacultyScience,
		Department:     "Computer Science",
		ResolutionType: entity.ResolutionOther,
		Status:         status,
		Priority:       entity.PriorityNormal,
		SubmittedAt:    createdAt,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	if status == entity.StatusResolved {
		c.ResolvedAt = ptr(createdAt)
	}
	require.NoError(t, db.Create(c).Error)
	return c
}
