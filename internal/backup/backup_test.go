package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"dormitory-backend/internal/db"
	"dormitory-backend/internal/model"
	"dormitory-backend/internal/store"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gormDB, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)),
		&gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := gormDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

func newTestService(t *testing.T, retention int) (*Service, *gorm.DB) {
	gormDB := newTestDB(t)
	dumper := &snapshotDumper{db: gormDB, now: time.Now}
	return newService(gormDB, dumper, "sqlite", t.TempDir(), retention, zap.NewNop()), gormDB
}

func seed(t *testing.T, gormDB *gorm.DB) (*model.Dormitory, *model.User) {
	dorm := &model.Dormitory{Name: "North Hall", FeePerSemester: 1500, GenderPolicy: model.GenderPolicyMixed}
	require.NoError(t, gormDB.Create(dorm).Error)
	user := &model.User{Name: "Ana", Email: "ana@example.com", PasswordHash: "$2a$10$hash", Role: model.RoleManager, DormitoryID: &dorm.ID}
	require.NoError(t, gormDB.Create(user).Error)
	return dorm, user
}

func TestSnapshotDumper_RoundTrip(t *testing.T) {
	gormDB := newTestDB(t)
	dorm, user := seed(t, gormDB)
	require.NoError(t, gormDB.Create(&model.Room{DormitoryID: dorm.ID, Number: "101", MaxCapacity: 2, Status: model.RoomAvailable}).Error)

	d := &snapshotDumper{db: gormDB, now: time.Now}
	var buf bytes.Buffer
	require.NoError(t, d.Dump(context.Background(), &buf))

	var snap snapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &snap))
	assert.Equal(t, snapshotVersion, snap.Version)
	assert.Len(t, snap.Tables["dormitories"], 1)
	assert.Len(t, snap.Tables["rooms"], 1)
	assert.NotContains(t, snap.Tables, "backups")

	// Wipe and change data, then restore.
	require.NoError(t, gormDB.Exec("DELETE FROM rooms").Error)
	require.NoError(t, gormDB.Exec("DELETE FROM users").Error)
	require.NoError(t, gormDB.Create(&model.Dormitory{Name: "Added Later"}).Error)

	require.NoError(t, d.Restore(context.Background(), bytes.NewReader(buf.Bytes())))

	var dorms []model.Dormitory
	require.NoError(t, gormDB.Find(&dorms).Error)
	require.Len(t, dorms, 1)
	assert.Equal(t, "North Hall", dorms[0].Name)
	assert.Equal(t, 1500.0, dorms[0].FeePerSemester)

	var restored model.User
	require.NoError(t, gormDB.First(&restored, user.ID).Error)
	assert.Equal(t, "$2a$10$hash", restored.PasswordHash)
	require.NotNil(t, restored.DormitoryID)
	assert.Equal(t, dorm.ID, *restored.DormitoryID)

	var rooms int64
	require.NoError(t, gormDB.Model(&model.Room{}).Count(&rooms).Error)
	assert.Equal(t, int64(1), rooms)
}

func TestSnapshotDumper_ArchivedDormitoryRestoresAfterReload(t *testing.T) {
	gormDB := newTestDB(t)
	ctx := context.Background()
	s := store.NewGormStore(gormDB, store.Options{Logger: zap.NewNop()})

	dorm := &model.Dormitory{Name: "North Hall", GenderPolicy: model.GenderPolicyMixed}
	require.NoError(t, s.CreateDormitory(ctx, dorm))
	room := &model.Room{DormitoryID: dorm.ID, Number: "101", MaxCapacity: 2}
	require.NoError(t, s.CreateRoom(ctx, store.AllDormitories(), room))
	require.NoError(t, s.ArchiveDormitory(ctx, store.AllDormitories(), dorm.ID))

	d := &snapshotDumper{db: gormDB, now: time.Now}
	var buf bytes.Buffer
	require.NoError(t, d.Dump(ctx, &buf))
	require.NoError(t, d.Restore(ctx, bytes.NewReader(buf.Bytes())))

	// Timestamps compare as times again, not as JSON text.
	var archivedBefore int64
	require.NoError(t, gormDB.Unscoped().Model(&model.Room{}).
		Where("deleted_at < ?", time.Now().UTC().Add(time.Minute)).
		Count(&archivedBefore).Error)
	assert.Equal(t, int64(1), archivedBefore)

	require.NoError(t, s.Restore(ctx, store.AllDormitories(), store.KindDormitories, dorm.ID))

	rooms, err := s.ListRooms(ctx, store.ForDormitory(dorm.ID), store.RoomFilter{})
	require.NoError(t, err)
	require.Len(t, rooms, 1, "rooms archived with the dormitory come back with it")
	assert.Equal(t, room.ID, rooms[0].ID)
}

func TestNormalize(t *testing.T) {
	row := map[string]any{
		"id":         json.Number("7"),
		"fee":        json.Number("1500.5"),
		"name":       "2024-01-02T03:04:05Z",
		"deleted_at": "2024-01-02T03:04:05.123456789+08:00",
		"read_at":    nil,
	}
	require.NoError(t, normalize(row, map[string]bool{"deleted_at": true, "read_at": true}))

	assert.Equal(t, int64(7), row["id"])
	assert.Equal(t, 1500.5, row["fee"])
	assert.Equal(t, "2024-01-02T03:04:05Z", row["name"], "only time columns are parsed")
	assert.Equal(t, time.Date(2024, 1, 1, 19, 4, 5, 123456789, time.UTC), row["deleted_at"])
	assert.Nil(t, row["read_at"])

	assert.Error(t, normalize(map[string]any{"created_at": "yesterday"}, map[string]bool{"created_at": true}))
}

func TestSnapshotDumper_RejectsUnknownVersion(t *testing.T) {
	d := &snapshotDumper{db: newTestDB(t), now: time.Now}
	err := d.Restore(context.Background(), strings.NewReader(`{"version":99,"tables":{}}`))
	assert.ErrorContains(t, err, "unsupported snapshot version 99")
}

func TestService_CreateRestore(t *testing.T) {
	svc, gormDB := newTestService(t, 7)
	ctx := context.Background()
	dorm, user := seed(t, gormDB)

	b, err := svc.Create(ctx, TriggerManual, &user.ID)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", b.Driver)
	assert.True(t, strings.HasPrefix(b.Filename, "dormitory-"))
	assert.True(t, strings.HasSuffix(b.Filename, ".json"))
	assert.Positive(t, b.SizeBytes)

	info, err := os.Stat(svc.Path(b))
	require.NoError(t, err)
	assert.Equal(t, b.SizeBytes, info.Size())

	entries, err := os.ReadDir(svc.dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")

	require.NoError(t, gormDB.Delete(&model.Dormitory{}, dorm.ID).Error)

	forgotten := false
	svc.AfterRestore = func() { forgotten = true }
	require.NoError(t, svc.Restore(ctx, b.ID))
	assert.True(t, forgotten)

	var got model.Dormitory
	require.NoError(t, gormDB.First(&got, dorm.ID).Error)
	assert.False(t, got.DeletedAt.Valid)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1, "backup history survives a restore")
	assert.Equal(t, b.ID, list[0].ID)
}

func TestService_RestoreErrors(t *testing.T) {
	svc, gormDB := newTestService(t, 7)
	ctx := context.Background()

	err := svc.Restore(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)

	pg := &model.Backup{Filename: "dormitory-x.sql", Driver: "postgres", Trigger: TriggerManual, CreatedAt: time.Now()}
	require.NoError(t, gormDB.Create(pg).Error)
	assert.ErrorIs(t, svc.Restore(ctx, pg.ID), ErrDriverMismatch)

	missing := &model.Backup{Filename: "dormitory-gone.json", Driver: "sqlite", Trigger: TriggerManual, CreatedAt: time.Now()}
	require.NoError(t, gormDB.Create(missing).Error)
	assert.ErrorIs(t, svc.Restore(ctx, missing.ID), ErrNotFound)
}

func TestService_PruneKeepsManualBackups(t *testing.T) {
	svc, _ := newTestService(t, 1)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	var scheduled []*model.Backup
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Hour)
		svc.now = func() time.Time { return at }
		b, err := svc.Create(ctx, TriggerScheduled, nil)
		require.NoError(t, err)
		scheduled = append(scheduled, b)
	}
	manual, err := svc.Create(ctx, TriggerManual, nil)
	require.NoError(t, err)

	removed, err := svc.Prune(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	var ids []int64
	for _, b := range list {
		ids = append(ids, b.ID)
	}
	assert.ElementsMatch(t, []int64{scheduled[2].ID, manual.ID}, ids)

	_, err = os.Stat(svc.Path(scheduled[0]))
	assert.True(t, os.IsNotExist(err))
}

func TestService_Delete(t *testing.T) {
	svc, _ := newTestService(t, 7)
	ctx := context.Background()

	b, err := svc.Create(ctx, TriggerManual, nil)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, b.ID))

	_, err = svc.Get(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = os.Stat(svc.Path(b))
	assert.True(t, os.IsNotExist(err))
}

func TestScheduler(t *testing.T) {
	svc, _ := newTestService(t, 2)
	ctx := context.Background()

	s := NewScheduler(svc, time.Hour, zap.NewNop())
	for i := 0; i < 3; i++ {
		s.RunOnce(ctx)
	}
	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
	for _, b := range list {
		assert.Equal(t, TriggerScheduled, b.Trigger)
	}

	// A disabled scheduler returns immediately.
	done := make(chan struct{})
	go func() {
		NewScheduler(svc, 0, zap.NewNop()).Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled scheduler kept running")
	}
}
