package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/francohenker/carDetailing-sub000/internal/middleware"
	"github.com/francohenker/carDetailing-sub000/internal/procurement/entity"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	TestSchema = "test_procurement"
	JWTSecret  = "car-detailing-test-secret"
)

// projectRoot returns the directory holding go.mod
func projectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func loadEnv() {
	if root := projectRoot(); root != "" {
		_ = godotenv.Load(filepath.Join(root, ".env"))
	}
}

// SetupTestDB opens a connection bound to a fresh schema, migrated and dropped on cleanup.
// The test is skipped when no database is reachable.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	loadEnv()

	baseDSN := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		getEnv("DB_HOST", "127.0.0.1"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "car_detailing_test"))

	schemaName := fmt.Sprintf("%s_%s", TestSchema, strings.ReplaceAll(uuid.New().String(), "-", "")[:12])

	setupDB, err := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Skipf("database not reachable, skipping: %v", err)
	}
	sqlSetup, err := setupDB.DB()
	if err != nil || sqlSetup.Ping() != nil {
		t.Skip("database not reachable, skipping")
	}
	if err := setupDB.Exec(fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName)).Error; err != nil {
		t.Fatalf("Failed to create test schema: %v", err)
	}
	sqlSetup.Close()

	// search_path in the DSN so every pooled connection uses the test schema
	testDSN := fmt.Sprintf("%s search_path=%s", baseDSN, schemaName)
	db, err := gorm.Open(postgres.Open(testDSN), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
		TranslateError:                           true,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	if err := db.AutoMigrate(entity.Models()...); err != nil {
		t.Fatalf("Failed to migrate test tables: %v", err)
	}

	t.Cleanup(func() {
		if sqlDB, _ := db.DB(); sqlDB != nil {
			sqlDB.Close()
		}
		cleanDB, cleanErr := gorm.Open(postgres.Open(baseDSN), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if cleanErr == nil {
			cleanDB.Exec(fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName))
			if sqlClean, _ := cleanDB.DB(); sqlClean != nil {
				sqlClean.Close()
			}
		}
	})

	return db
}

// SetupRouter gin engine in test mode
func SetupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(gin.Recovery())
	return r
}

// AuthGroup route group behind JWT auth
func AuthGroup(r *gin.Engine, path string) *gin.RouterGroup {
	return r.Group(path, middleware.JWTAuth(JWTSecret))
}

// GenerateTestToken signs a token with the test secret
func GenerateTestToken(userID, name, email string, roles []string) string {
	return signToken(userID, name, email, roles, nil)
}

func signToken(userID, name, email string, roles []string, extra jwt.MapClaims) string {
	if roles == nil {
		roles = []string{}
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"uid":   userID,
		"name":  name,
		"email": email,
		"roles": roles,
		"iss":   "car-detailing",
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
		"jti":   fmt.Sprintf("test-jti-%d", now.UnixNano()),
	}
	for k, v := range extra {
		claims[k] = v
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, _ := token.SignedString([]byte(JWTSecret))
	return tokenString
}

// AdminToken token of an administrator
func AdminToken() string {
	return GenerateTestToken("test-admin-001", "Test Admin", "admin@test.com", []string{entity.RoleAdmin})
}

// SupplierToken token of a supplier account
func SupplierToken() string {
	return GenerateTestToken("test-supplier-001", "Test Supplier", "supplier@test.com", []string{entity.RoleSupplier})
}

// SupplierTokenFor token of a supplier account bound to supplierID
func SupplierTokenFor(supplierID string) string {
	return signToken("test-supplier-"+supplierID, "Test Supplier", "supplier@test.com",
		[]string{entity.RoleSupplier}, jwt.MapClaims{"supplier_id": supplierID})
}

// EmployeeToken token of a shop employee
func EmployeeToken() string {
	return GenerateTestToken("test-employee-001", "Test Employee", "employee@test.com", []string{entity.RoleEmployee})
}

// DoRequest executes a JSON request against the router
func DoRequest(r http.Handler, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ParseResponse decodes the {code, message, data} envelope
func ParseResponse(w *httptest.ResponseRecorder) map[string]interface{} {
	var result map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &result)
	return result
}

// SeedSupplier creates an active supplier
func SeedSupplier(t *testing.T, db *gorm.DB, name, email string) *entity.Supplier {
	t.Helper()
	s := &entity.Supplier{
		ID:       uuid.New().String()[:32],
		Name:     name,
		Email:    email,
		IsActive: true,
	}
	if err := db.Create(s).Error; err != nil {
		t.Fatalf("Failed to seed supplier: %v", err)
	}
	return s
}

// SeedProduct creates a product linked to suppliers
func SeedProduct(t *testing.T, db *gorm.DB, name, stock, minimum, priority string, suppliers ...*entity.Supplier) *entity.Product {
	t.Helper()
	p := &entity.Product{
		ID:           uuid.New().String()[:32],
		Name:         name,
		Unit:         "unit",
		CurrentStock: decimal.RequireFromString(stock),
		MinimumStock: decimal.RequireFromString(minimum),
		Priority:     priority,
	}
	for _, s := range suppliers {
		p.Suppliers = append(p.Suppliers, *s)
	}
	if err := db.Omit("Suppliers.*").Create(p).Error; err != nil {
		t.Fatalf("Failed to seed product: %v", err)
	}
	return p
}

// SeedAdmin creates an active administrator account
func SeedAdmin(t *testing.T, db *gorm.DB, name, email string) *entity.User {
	t.Helper()
	u := &entity.User{
		ID:       uuid.New().String()[:32],
		Name:     name,
		Email:    email,
		Role:     entity.RoleAdmin,
		IsActive: true,
	}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("Failed to seed admin: %v", err)
	}
	return u
}

// ProductStock reads the current stock of a product
func ProductStock(t *testing.T, db *gorm.DB, productID string) decimal.Decimal {
	t.Helper()
	var p entity.Product
	if err := db.Unscoped().Where("id = ?", productID).First(&p).Error; err != nil {
		t.Fatalf("Failed to load product %s: %v", productID, err)
	}
	return p.CurrentStock
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
