package rbac

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightclass/reportcard/pkg/identity"
)

func setupCachedResolver(t *testing.T) (*CachedScopeResolver, sqlmock.Sqlmock, *miniredis.Miniredis, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cached, err := NewCachedScopeResolver(NewScopeResolver(db), client, time.Minute, nil)
	require.NoError(t, err)

	return cached, mock, mr, func() {
		client.Close()
		mr.Close()
		db.Close()
	}
}

func expectFacultyScopeQuery(mock sqlmock.Sqlmock, facultyID string, studentIDs ...string) {
	rows := sqlmock.NewRows([]string{"student_id"})
	for _, id := range studentIDs {
		rows.AddRow(id)
	}
	mock.ExpectQuery(`SELECT DISTINCT sce.student_id`).
		WithArgs(facultyID).
		WillReturnRows(rows)
}

func TestCachedScopeResolver(t *testing.T) {
	ctx := context.Background()
	faculty := testProfile("fac-1", identity.RoleFaculty)

	t.Run("miss computes and later calls hit the cache", func(t *testing.T) {
		cached, mock, _, done := setupCachedResolver(t)
		defer done()

		// One query only; the second call must be served from cache.
		expectFacultyScopeQuery(mock, "fac-1", "stu-1", "stu-2")

		ids, err := cached.AccessibleStudents(ctx, faculty)
		require.NoError(t, err)
		assert.Equal(t, []string{"stu-1", "stu-2"}, ids)

		ids, err = cached.AccessibleStudents(ctx, faculty)
		require.NoError(t, err)
		assert.Equal(t, []string{"stu-1", "stu-2"}, ids)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("membership answers from cached scope", func(t *testing.T) {
		cached, mock, _, done := setupCachedResolver(t)
		defer done()

		expectFacultyScopeQuery(mock, "fac-1", "stu-1")

		ok, err := cached.CanAccessStudent(ctx, faculty, "stu-1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = cached.CanAccessStudent(ctx, faculty, "stu-2")
		require.NoError(t, err)
		assert.False(t, ok)

		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("redis survives process restart", func(t *testing.T) {
		cached, mock, mr, done := setupCachedResolver(t)
		defer done()

		expectFacultyScopeQuery(mock, "fac-1", "stu-1")

		_, err := cached.AccessibleStudents(ctx, faculty)
		require.NoError(t, err)

		// A fresh resolver sharing the same Redis must not recompute.
		db2, mock2, err := sqlmock.New()
		require.NoError(t, err)
		defer db2.Close()
		client2 := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		defer client2.Close()

		cached2, err := NewCachedScopeResolver(NewScopeResolver(db2), client2, time.Minute, nil)
		require.NoError(t, err)

		ids, err := cached2.AccessibleStudents(ctx, faculty)
		require.NoError(t, err)
		assert.Equal(t, []string{"stu-1"}, ids)
		assert.NoError(t, mock2.ExpectationsWereMet())
	})

	t.Run("invalidate forces recompute", func(t *testing.T) {
		cached, mock, _, done := setupCachedResolver(t)
		defer done()

		expectFacultyScopeQuery(mock, "fac-1", "stu-1")

		_, err := cached.AccessibleStudents(ctx, faculty)
		require.NoError(t, err)

		require.NoError(t, cached.InvalidateUser(ctx, "fac-1"))

		expectFacultyScopeQuery(mock, "fac-1", "stu-1", "stu-3")

		ids, err := cached.AccessibleStudents(ctx, faculty)
		require.NoError(t, err)
		assert.Equal(t, []string{"stu-1", "stu-3"}, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("admin scope bypasses the cache", func(t *testing.T) {
		cached, mock, mr, done := setupCachedResolver(t)
		defer done()

		mock.ExpectQuery(`SELECT id FROM profiles WHERE role = 'student'`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("stu-1"))

		admin := testProfile("admin-1", identity.RoleAdmin)
		ids, err := cached.AccessibleStudents(ctx, admin)
		require.NoError(t, err)
		assert.Equal(t, []string{"stu-1"}, ids)

		assert.False(t, mr.Exists(scopeKey("admin-1")))
	})

	t.Run("redis outage degrades to recompute", func(t *testing.T) {
		cached, mock, mr, done := setupCachedResolver(t)
		defer done()

		mr.Close()

		expectFacultyScopeQuery(mock, "fac-1", "stu-1")

		ids, err := cached.AccessibleStudents(ctx, faculty)
		require.NoError(t, err)
		assert.Equal(t, []string{"stu-1"}, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nil redis client uses only the in-process tier", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		cached, err := NewCachedScopeResolver(NewScopeResolver(db), nil, time.Minute, nil)
		require.NoError(t, err)

		expectFacultyScopeQuery(mock, "fac-1", "stu-1")

		ids, err := cached.AccessibleStudents(ctx, faculty)
		require.NoError(t, err)
		assert.Equal(t, []string{"stu-1"}, ids)

		ids, err = cached.AccessibleStudents(ctx, faculty)
		require.NoError(t, err)
		assert.Equal(t, []string{"stu-1"}, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
