package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"warranty-backend/config"
	"warranty-backend/internal/db"
	"warranty-backend/internal/model"
	"warranty-backend/internal/orders"
	"warranty-backend/internal/store"
	"warranty-backend/internal/warranty"
)

type fakeLookup struct {
	orders map[string]*orders.Order
}

func (f *fakeLookup) Get(_ context.Context, orderID string) (*orders.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, orders.ErrOrderNotFound
	}
	return o, nil
}

var apiTestSeq int

func setupRouter(t *testing.T, autoActivate bool) (*gin.Engine, store.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	apiTestSeq++
	name := fmt.Sprintf("file:apitest%d?mode=memory&cache=shared", apiTestSeq)
	testDB, err := gorm.Open(sqlite.Open(name), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to connect to the in-memory database: %v", err)
	}
	sqlDB, _ := testDB.DB()
	t.Cleanup(func() { sqlDB.Close() })

	err = db.Migrate(testDB)
	assert.NoError(t, err)

	st := store.NewGormStore(testDB)
	lookup := &fakeLookup{orders: map[string]*orders.Order{
		"1001": {
			ID:           "1001",
			Status:       "completed",
			BillingPhone: "5551234567",
			BillingEmail: "jane@example.com",
			CreatedAt:    time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
			LineItems:    []orders.LineItem{{ProductID: 77, Name: "Washing Machine X200"}},
		},
	}}

	cfg := &config.Config{}
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Admin.Password = "hunter2"
	cfg.Admin.JWTSecret = "test-secret"
	cfg.Admin.TokenTTLMinutes = 60
	cfg.Warranty.AutoActivate = autoActivate
	cfg.Warranty.DefaultWarrantyMonths = []int{6, 12, 18, 24, 36}

	svc := warranty.NewService(st, lookup, nil, cfg.Warranty, "https://shop.example.com/warranty-check")
	router := NewRouter(svc, st, cfg, &webpush.Options{VAPIDPublicKey: "test-public-key"})
	return router, st
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		assert.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, path, reader)
	assert.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func adminToken(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(t, router, "POST", "/api/admin/login", "", gin.H{"password": "hunter2"})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestActivateAndCheckFlow(t *testing.T) {
	router, _ := setupRouter(t, false)

	activate := gin.H{
		"customer_name":   "Jane Doe",
		"order_id":        "1001",
		"phone_number":    "5551234567",
		"product_name":    "Washing Machine X200",
		"warranty_months": 12,
	}

	w := doJSON(t, router, "POST", "/api/warranty/activate", "", activate)
	assert.Equal(t, http.StatusOK, w.Code)

	var result warranty.ActivationResult
	err := json.Unmarshal(w.Body.Bytes(), &result)
	assert.NoError(t, err)
	assert.False(t, result.Activated)
	assert.NotZero(t, result.RecordID)

	// Resubmitting while pending refreshes the same record.
	w = doJSON(t, router, "POST", "/api/warranty/activate", "", activate)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "POST", "/api/warranty/check", "", gin.H{"order_id": "1001"})
	assert.Equal(t, http.StatusOK, w.Code)

	var check warranty.CheckResult
	err = json.Unmarshal(w.Body.Bytes(), &check)
	assert.NoError(t, err)
	assert.Equal(t, model.StatusPending, check.Status)
	assert.Equal(t, "pending", check.Class)
	assert.Nil(t, check.Certificate)
}

func TestActivateErrors(t *testing.T) {
	router, _ := setupRouter(t, false)

	w := doJSON(t, router, "POST", "/api/warranty/activate", "", gin.H{
		"customer_name": "Jane", "order_id": "9999",
		"phone_number": "5551234567", "warranty_months": 12,
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, router, "POST", "/api/warranty/activate", "", gin.H{
		"customer_name": "Jane", "order_id": "1001",
		"phone_number": "5550000000", "warranty_months": 12,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = doJSON(t, router, "POST", "/api/warranty/activate", "", gin.H{
		"order_id": "1001", "phone_number": "5551234567", "warranty_months": 12,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestActivateConflictWhenAlreadyActive(t *testing.T) {
	router, _ := setupRouter(t, true)

	activate := gin.H{
		"customer_name": "Jane Doe", "order_id": "1001",
		"phone_number": "5551234567", "warranty_months": 12,
	}
	w := doJSON(t, router, "POST", "/api/warranty/activate", "", activate)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, "POST", "/api/warranty/activate", "", activate)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestVerifyEndpoint(t *testing.T) {
	router, _ := setupRouter(t, true)

	activate := gin.H{
		"customer_name": "Jane Doe", "order_id": "1001",
		"phone_number": "5551234567", "warranty_months": 12,
	}
	w := doJSON(t, router, "POST", "/api/warranty/activate", "", activate)
	assert.Equal(t, http.StatusOK, w.Code)

	token := warranty.EncodeVerifyToken("1001", "5551234567", 0)
	w = doJSON(t, router, "GET", "/api/warranty/verify/"+token, "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var check warranty.CheckResult
	err := json.Unmarshal(w.Body.Bytes(), &check)
	assert.NoError(t, err)
	assert.Equal(t, "active", check.Class)
	assert.NotNil(t, check.Certificate)

	w = doJSON(t, router, "GET", "/api/warranty/verify/%21%21%21", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOptionsEndpoint(t *testing.T) {
	router, _ := setupRouter(t, false)

	w := doJSON(t, router, "GET", "/api/warranty/options", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var opts struct {
		WarrantyMonths []int `json:"warranty_months"`
		AutoActivate   bool  `json:"auto_activate"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &opts)
	assert.NoError(t, err)
	assert.Equal(t, []int{6, 12, 18, 24, 36}, opts.WarrantyMonths)
	assert.False(t, opts.AutoActivate)
}

func TestAdminAuthGuard(t *testing.T) {
	router, _ := setupRouter(t, false)

	w := doJSON(t, router, "GET", "/api/admin/stats", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, "GET", "/api/admin/stats", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, router, "POST", "/api/admin/login", "", gin.H{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := adminToken(t, router)
	w = doJSON(t, router, "GET", "/api/admin/stats", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminWarrantyCRUD(t *testing.T) {
	router, _ := setupRouter(t, false)
	token := adminToken(t, router)

	// Create.
	w := doJSON(t, router, "POST", "/api/admin/warranties", token, gin.H{
		"order_id": "2002", "customer_name": "Bob Smith",
		"phone_number": "5559876543", "warranty_months": 6,
		"status": "pending",
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		ID int64 `json:"id"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &created)
	assert.NoError(t, err)
	assert.NotZero(t, created.ID)

	// Read.
	w = doJSON(t, router, "GET", fmt.Sprintf("/api/admin/warranties/%d", created.ID), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var rec model.WarrantyRecord
	err = json.Unmarshal(w.Body.Bytes(), &rec)
	assert.NoError(t, err)
	assert.Equal(t, "Bob Smith", rec.CustomerName)
	assert.Equal(t, model.StatusPending, rec.Status)

	// Approve.
	w = doJSON(t, router, "POST", fmt.Sprintf("/api/admin/warranties/%d/activate", created.ID), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	err = json.Unmarshal(w.Body.Bytes(), &rec)
	assert.NoError(t, err)
	assert.Equal(t, model.StatusActive, rec.Status)
	assert.NotNil(t, rec.ExpiryDate)

	// Update.
	w = doJSON(t, router, "PUT", fmt.Sprintf("/api/admin/warranties/%d", created.ID), token, gin.H{
		"customer_name": "Robert Smith", "phone_number": "5559876543",
		"warranty_months": 12, "status": "active",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	// List.
	w = doJSON(t, router, "GET", "/api/admin/warranties?status=active", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var listing struct {
		Warranties []model.WarrantyRecord `json:"warranties"`
		Total      int64                  `json:"total"`
	}
	err = json.Unmarshal(w.Body.Bytes(), &listing)
	assert.NoError(t, err)
	assert.Equal(t, int64(1), listing.Total)
	assert.Equal(t, "Robert Smith", listing.Warranties[0].CustomerName)

	// Delete.
	w = doJSON(t, router, "DELETE", fmt.Sprintf("/api/admin/warranties/%d", created.ID), token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, "GET", fmt.Sprintf("/api/admin/warranties/%d", created.ID), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminBulkAction(t *testing.T) {
	router, st := setupRouter(t, false)
	token := adminToken(t, router)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 2; i++ {
		id, err := st.Insert(ctx, &model.WarrantyRecord{
			OrderID: fmt.Sprintf("300%d", i), CustomerName: "C",
			PhoneNumber: fmt.Sprintf("555123000%d", i),
			WarrantyMonths: 6, Status: model.StatusPending,
		})
		assert.NoError(t, err)
		ids = append(ids, id)
	}

	w := doJSON(t, router, "POST", "/api/admin/warranties/bulk", token, gin.H{
		"action": "cancel", "ids": ids,
	})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Updated int64 `json:"updated"`
	}
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), resp.Updated)

	count, err := st.Count(ctx, model.StatusCancelled)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestAdminExport(t *testing.T) {
	router, st := setupRouter(t, false)
	token := adminToken(t, router)

	_, err := st.Insert(context.Background(), &model.WarrantyRecord{
		OrderID: "1001", CustomerName: "Jane Doe", PhoneNumber: "5551234567",
		WarrantyMonths: 12, Status: model.StatusPending,
	})
	assert.NoError(t, err)

	w := doJSON(t, router, "GET", "/api/admin/warranties/export", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), "Order ID")
	assert.Contains(t, w.Body.String(), "Jane Doe")
}

func TestAdminImport(t *testing.T) {
	router, st := setupRouter(t, false)
	token := adminToken(t, router)

	var body bytes.Buffer
	mp := multipart.NewWriter(&body)
	fw, err := mp.CreateFormFile("file", "warranties.csv")
	assert.NoError(t, err)
	_, err = fw.Write([]byte("order_id,customer_name,phone_number,warranty_months\n" +
		"4001,Carol Jones,5553334444,12\n"))
	assert.NoError(t, err)
	assert.NoError(t, mp.Close())

	req, err := http.NewRequest("POST", "/api/admin/warranties/import", &body)
	assert.NoError(t, err)
	req.Header.Set("Content-Type", mp.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var result struct {
		Imported int `json:"imported"`
	}
	err = json.Unmarshal(w.Body.Bytes(), &result)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Imported)

	rec, err := st.FindByOrderAndPhone(context.Background(), "4001", "5553334444")
	assert.NoError(t, err)
	assert.NotNil(t, rec)
}

func TestSubscriptionLifecycle(t *testing.T) {
	router, st := setupRouter(t, false)
	ctx := context.Background()

	id, err := st.Insert(ctx, &model.WarrantyRecord{
		OrderID: "1001", CustomerName: "Jane Doe", PhoneNumber: "5551234567",
		WarrantyMonths: 12, Status: model.StatusActive,
	})
	assert.NoError(t, err)

	verifyToken := warranty.EncodeVerifyToken("1001", "5551234567", id)
	w := doJSON(t, router, "PUT", "/api/subscriptions", "", gin.H{
		"endpoint":     "https://push.example.com/sub-1",
		"p256dh":       "p256dh-key",
		"auth":         "auth-key",
		"verify_token": verifyToken,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, router, "GET", "/api/subscriptions?endpoint=https%3A%2F%2Fpush.example.com%2Fsub-1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	var sub struct {
		WarrantyID int64 `json:"warranty_id"`
	}
	err = json.Unmarshal(w.Body.Bytes(), &sub)
	assert.NoError(t, err)
	assert.Equal(t, id, sub.WarrantyID)

	w = doJSON(t, router, "DELETE", "/api/subscriptions", "", gin.H{
		"endpoint": "https://push.example.com/sub-1",
	})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, "GET", "/api/subscriptions?endpoint=https%3A%2F%2Fpush.example.com%2Fsub-1", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVAPIDPublicKey(t *testing.T) {
	router, _ := setupRouter(t, false)

	w := doJSON(t, router, "GET", "/api/vapid_public_key", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"public_key":"test-public-key"}`, w.Body.String())
}
