// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"saasbackend/internal/database"
	"saasbackend/internal/model"
	"saasbackend/internal/token"
)

// Secret signs every token issued by NewCodec.
var Secret = []byte("testutil-secret")

// NewDB opens a private in-memory SQLite database with the full schema.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err, "open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db), "migrate")
	return db
}

// NewCodec returns an HS256 codec with a 30 minute lifetime.
func NewCodec(t *testing.T) *token.Codec {
	t.Helper()
	codec, err := token.NewCodec(Secret, "HS256", 30*time.Minute)
	require.NoError(t, err)
	return codec
}

// HashPassword hashes with the minimum bcrypt cost to keep tests fast.
func HashPassword(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hashed)
}

// CreateTenant inserts an active tenant whose owner logs in with ownerEmail/password.
func CreateTenant(t *testing.T, db *gorm.DB, slug, ownerEmail, password string) *model.Tenant {
	t.Helper()
	tenant := &model.Tenant{
		Name:               strings.ToUpper(slug[:1]) + slug[1:],
		Slug:               slug,
		Email:              "contact@" + slug + ".test",
		AdminName:          "Owner of " + slug,
		AdminEmail:         ownerEmail,
		AdminPassword:      HashPassword(t, password),
		IsActive:           true,
		SubscriptionStatus: "trial",
	}
	require.NoError(t, db.Create(tenant).Error)
	return tenant
}

// CreateUser inserts an active member of tenantID with the given raw role.
func CreateUser(t *testing.T, db *gorm.DB, tenantID uuid.UUID, email, rawRole, password string) *model.User {
	t.Helper()
	user := &model.User{
		TenantID: tenantID,
		Name:     email,
		Email:    email,
		Password: HashPassword(t, password),
		Role:     rawRole,
		IsActive: true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateAdmin inserts an active platform admin.
func CreateAdmin(t *testing.T, db *gorm.DB, email, password string) *model.Admin {
	t.Helper()
	admin := &model.Admin{
		Email:    email,
		Name:     "Admin",
		Password: HashPassword(t, password),
		IsActive: true,
	}
	require.NoError(t, db.Create(admin).Error)
	return admin
}

// IssueToken signs a token for the given subject or fails the test.
func IssueToken(t *testing.T, codec *token.Codec, s token.Subject) string {
	t.Helper()
	signed, err := codec.Issue(s)
	require.NoError(t, err)
	return signed
}
