package internal

import (
	"bytes"
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dormitory-backend/config"
	"dormitory-backend/internal/api"
	"dormitory-backend/internal/auth"
	"dormitory-backend/internal/backup"
	"dormitory-backend/internal/billing"
	"dormitory-backend/internal/db"
	"dormitory-backend/internal/model"
	"dormitory-backend/internal/notification"
	"dormitory-backend/internal/store"
)

// subscriptionKeys returns a browser-like p256dh/auth pair.
func subscriptionKeys(t *testing.T) (string, string) {
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	secret := make([]byte, 16)
	_, err = rand.Read(secret)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		base64.RawURLEncoding.EncodeToString(secret)
}

func postJSON(t *testing.T, client *http.Client, url, token string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	return resp
}

// TestApplicationLifecycle drives an application from the public form to an
// approved resident, with the push notification delivered to a subscribed
// manager along the way.
func TestApplicationLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	// --- Test Setup ---
	gormDB, err := gorm.Open(sqlite.Open("file:lifecycle?mode=memory&cache=shared"),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	require.NoError(t, err)
	sqlDB, _ := gormDB.DB()
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(gormDB))

	cfg := &config.Config{}
	cfg.Database.Driver = "sqlite"
	cfg.Auth.JWTSecret = "integration-test-secret"
	cfg.Backup.Dir = t.TempDir()
	cfg.WorkerPool.Size = 2
	cfg.ApplyDefaults()

	privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	cfg.Push = config.PushConfig{PublicKey: publicKey, PrivateKey: privateKey, Subject: "mailto:housing@example.edu", TTL: 60}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB, store.Options{
		Billing: billing.Calculator{DefaultFee: 2500, MaxSemesters: cfg.Billing.MaxSemesters},
		Logger:  zap.NewNop(),
	})
	webpushOptions := notification.OptionsFromConfig(&cfg.Push)
	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, appStore, webpushOptions, zap.NewNop())
	pool.Start(ctx)

	authManager := auth.NewManager(&cfg.Auth)
	router := api.NewRouter(api.Deps{
		Config:  cfg,
		Store:   appStore,
		Auth:    authManager,
		Push:    pool,
		Backups: backup.NewService(cfg, gormDB, zap.NewNop()),
		WebPush: webpushOptions,
		Logger:  zap.NewNop(),
	})
	server := httptest.NewServer(router)
	defer server.Close()

	// Mock push service standing in for the browser vendor.
	var pushes atomic.Int32
	pushService := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "aes128gcm", r.Header.Get("Content-Encoding"))
		assert.Contains(t, r.Header.Get("Authorization"), "vapid")
		pushes.Add(1)
		w.WriteHeader(http.StatusCreated)
	}))
	defer pushService.Close()

	dorm := &model.Dormitory{Name: "Acacia Hall", GenderPolicy: model.GenderPolicyMixed}
	require.NoError(t, appStore.CreateDormitory(ctx, dorm))
	room := &model.Room{DormitoryID: dorm.ID, Number: "3-12", MaxCapacity: 2}
	require.NoError(t, appStore.CreateRoom(ctx, store.ForDormitory(dorm.ID), room))

	hash, err := auth.HashPassword("manager-password")
	require.NoError(t, err)
	manager := &model.User{Name: "Manager", Email: "manager@example.edu", PasswordHash: hash, Role: model.RoleManager, DormitoryID: &dorm.ID}
	require.NoError(t, appStore.CreateUser(ctx, manager))

	client := server.Client()

	// --- Step 1: manager logs in and subscribes to push ---
	resp := postJSON(t, client, server.URL+"/api/auth/login", "", map[string]string{
		"email": "manager@example.edu", "password": "manager-password",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&login))
	resp.Body.Close()

	p256dh, authSecret := subscriptionKeys(t)
	req, _ := http.NewRequest(http.MethodPut, server.URL+"/api/push/subscriptions", bytes.NewBufferString(fmt.Sprintf(
		`{"endpoint":%q,"p256dh":%q,"auth":%q}`, pushService.URL+"/push/1", p256dh, authSecret)))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+login.Token)
	resp, err = client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// --- Step 2: a student applies through the public form ---
	resp = postJSON(t, client, server.URL+"/api/applications", "", map[string]any{
		"dormitory_id":      dorm.ID,
		"preferred_room_id": room.ID,
		"student_no":        "2025-0042",
		"first_name":        "Mara",
		"last_name":         "Lim",
		"email":             "mara@example.edu",
		"semester_count":    2,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var app model.Application
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&app))
	resp.Body.Close()

	assert.Eventually(t, func() bool { return pushes.Load() == 1 }, 5*time.Second, 20*time.Millisecond,
		"the subscribed manager should receive exactly one push")

	// --- Step 3: the manager approves it ---
	resp = postJSON(t, client, fmt.Sprintf("%s/api/applications/%d/approve", server.URL, app.ID), login.Token, map[string]any{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// --- Verification ---
	approved, err := appStore.GetApplication(ctx, store.AllDormitories(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationApproved, approved.Status)
	require.NotNil(t, approved.StudentID)

	detail, err := appStore.GetStudent(ctx, store.ForDormitory(dorm.ID), *approved.StudentID)
	require.NoError(t, err)
	require.NotNil(t, detail.ActiveBooking)
	assert.Equal(t, room.ID, detail.ActiveBooking.RoomID)
	assert.Equal(t, 5000.0, detail.ActiveBooking.TotalFee)
	assert.Equal(t, 5000.0, detail.Balance)

	roomDetail, err := appStore.GetRoom(ctx, store.AllDormitories(), room.ID)
	require.NoError(t, err)
	assert.Len(t, roomDetail.Occupants, 1)
	assert.Equal(t, model.RoomAvailable, roomDetail.Status)
}
