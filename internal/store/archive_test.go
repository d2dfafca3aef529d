package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dormitory-backend/internal/model"
)

func TestParseKind(t *testing.T) {
	k, err := ParseKind("rooms")
	require.NoError(t, err)
	assert.Equal(t, KindRooms, k)

	_, err = ParseKind("users")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestArchiveRestore_Student(t *testing.T) {
	f := newFixture(t)
	d := f.dormitory("North Hall", model.GenderPolicyMixed, 0)
	r := f.room(d.ID, "101", 1)
	st := f.student(d.ID, "S-1", "male")
	f.book(st.ID, r.ID, 1)

	require.NoError(t, f.store.ArchiveStudent(f.ctx, AllDormitories(), st.ID))
	assert.Equal(t, model.RoomAvailable, f.roomStatus(r.ID))

	_, total, err := f.store.ListStudents(f.ctx, AllDormitories(), StudentFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)

	archived, err := f.store.ListArchived(f.ctx, AllDormitories(), KindStudents)
	require.NoError(t, err)
	require.Len(t, archived, 1)

	bookings, err := f.store.ListArchived(f.ctx, AllDormitories(), KindBookings)
	require.NoError(t, err)
	require.Len(t, bookings, 1)

	err = f.store.Restore(f.ctx, AllDormitories(), KindStudents, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.store.Restore(f.ctx, AllDormitories(), KindStudents, st.ID))
	_, total, err = f.store.ListStudents(f.ctx, AllDormitories(), StudentFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	err = f.store.Restore(f.ctx, AllDormitories(), KindStudents, st.ID)
	assert.ErrorIs(t, err, ErrNotArchived)
}

func TestRestoreBooking_RechecksCapacity(t *testing.T) {
	f := newFixture(t)
	d := f.dormitory("North Hall", model.GenderPolicyMixed, 0)
	r := f.room(d.ID, "101", 1)
	ana := f.student(d.ID, "S-1", "female")
	ben := f.student(d.ID, "S-2", "male")

	first := f.book(ana.ID, r.ID, 1)
	require.NoError(t, f.store.ArchiveBooking(f.ctx, AllDormitories(), first.ID))
	f.book(ben.ID, r.ID, 1)

	err := f.store.Restore(f.ctx, AllDormitories(), KindBookings, first.ID)
	assert.ErrorIs(t, err, ErrRoomFull)

	r.MaxCapacity = 2
	require.NoError(t, f.store.UpdateRoom(f.ctx, AllDormitories(), r))
	require.NoError(t, f.store.Restore(f.ctx, AllDormitories(), KindBookings, first.ID))
	assert.Equal(t, model.RoomFull, f.roomStatus(r.ID))

	detail, err := f.store.GetStudent(f.ctx, AllDormitories(), ana.ID)
	require.NoError(t, err)
	require.NotNil(t, detail.RoomID)
	assert.Equal(t, r.ID, *detail.RoomID)
}

func TestArchiveDormitory_CascadesRooms(t *testing.T) {
	f := newFixture(t)
	d := f.dormitory("North Hall", model.GenderPolicyMixed, 0)
	kept := f.room(d.ID, "101", 2)
	earlier := f.room(d.ID, "102", 2)
	st := f.student(d.ID, "S-1", "male")
	b := f.book(st.ID, kept.ID, 1)

	require.NoError(t, f.store.ArchiveRoom(f.ctx, AllDormitories(), earlier.ID))

	err := f.store.ArchiveDormitory(f.ctx, AllDormitories(), d.ID)
	assert.ErrorIs(t, err, ErrHasActiveBookings)

	_, err = f.store.EndBooking(f.ctx, AllDormitories(), b.ID, model.BookingCompleted)
	require.NoError(t, err)
	require.NoError(t, f.store.ArchiveDormitory(f.ctx, AllDormitories(), d.ID))

	rooms, err := f.store.ListRooms(f.ctx, AllDormitories(), RoomFilter{})
	require.NoError(t, err)
	assert.Empty(t, rooms)

	err = f.store.Restore(f.ctx, AllDormitories(), KindRooms, kept.ID)
	assert.ErrorIs(t, err, ErrParentArchived)

	require.NoError(t, f.store.Restore(f.ctx, AllDormitories(), KindDormitories, d.ID))
	rooms, err = f.store.ListRooms(f.ctx, AllDormitories(), RoomFilter{})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, kept.ID, rooms[0].ID)
}

func TestPurge(t *testing.T) {
	f := newFixture(t)
	d := f.dormitory("North Hall", model.GenderPolicyMixed, 0)
	r := f.room(d.ID, "101", 2)
	st := f.student(d.ID, "S-1", "male")
	b := f.book(st.ID, r.ID, 1)

	err := f.store.Purge(f.ctx, AllDormitories(), KindStudents, st.ID)
	assert.ErrorIs(t, err, ErrNotArchived)

	require.NoError(t, f.store.ArchiveStudent(f.ctx, AllDormitories(), st.ID))
	require.NoError(t, f.store.ArchiveRoom(f.ctx, AllDormitories(), r.ID))

	// The archived booking still references the room.
	err = f.store.Purge(f.ctx, AllDormitories(), KindRooms, r.ID)
	assert.ErrorIs(t, err, ErrHasDependents)

	require.NoError(t, f.store.Purge(f.ctx, AllDormitories(), KindStudents, st.ID))
	require.NoError(t, f.store.Purge(f.ctx, AllDormitories(), KindRooms, r.ID))

	err = f.store.Purge(f.ctx, AllDormitories(), KindBookings, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.store.ArchiveDormitory(f.ctx, AllDormitories(), d.ID))
	require.NoError(t, f.store.Purge(f.ctx, AllDormitories(), KindDormitories, d.ID))

	left, err := f.store.ListArchived(f.ctx, AllDormitories(), KindDormitories)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	d := f.dormitory("North Hall", model.GenderPolicyMixed, 1000)
	r := f.room(d.ID, "101", 3)
	f.room(d.ID, "102", 2)
	ana := f.student(d.ID, "S-1", "female")
	ben := f.student(d.ID, "S-2", "male")
	f.student(d.ID, "S-3", "male")
	f.book(ana.ID, r.ID, 2)
	f.book(ben.ID, r.ID, 1)
	_, err := f.store.RecordPayment(f.ctx, AllDormitories(), ana.ID, PaymentEntry{Amount: 500})
	require.NoError(t, err)
	_, err = f.store.SubmitApplication(f.ctx, newApplication(d.ID, "2024-0100"))
	require.NoError(t, err)

	stats, err := f.store.Stats(f.ctx, ForDormitory(d.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Dormitories)
	assert.Equal(t, int64(2), stats.Rooms)
	assert.Equal(t, int64(3), stats.Students)
	assert.Equal(t, int64(5), stats.TotalCapacity)
	assert.Equal(t, int64(2), stats.OccupiedBeds)
	assert.Equal(t, int64(2), stats.StudentsByPayment[model.PaymentUnpaid])
	assert.Equal(t, int64(1), stats.StudentsByPayment[model.PaymentPartial])
	assert.Equal(t, int64(1), stats.PendingApplications)
	assert.Equal(t, int64(1), stats.UnreadNotifications)
	// 2000 - 500 for ana, 1000 for ben.
	assert.Equal(t, 2500.0, stats.OutstandingBalance)
}
