package postgres

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/koustreak/dbstream/internal/database"
	"github.com/koustreak/dbstream/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriver_Accepts(t *testing.T) {
	d := New()
	assert.Equal(t, "postgres", d.Name())

	tests := []struct {
		in     string
		wantOK bool
	}{
		{in: "postgres://u:p@localhost:5432/db", wantOK: true},
		{in: "postgresql://localhost/db?sslmode=disable", wantOK: true},
		{in: "POSTGRES://localhost/db", wantOK: true},
		{in: "mysql://u@tcp(h)/db", wantOK: false},
		{in: "host=localhost dbname=db", wantOK: false},
		{in: "", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			dsn, ok := d.Accepts(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.in, dsn, "the whole URL is handed to pgx")
			}
		})
	}
}

func TestRowsAffected(t *testing.T) {
	tests := []struct {
		tag    string
		want   int64
		wantOK bool
	}{
		{tag: "INSERT 0 2", want: 2, wantOK: true},
		{tag: "UPDATE 3", want: 3, wantOK: true},
		{tag: "DELETE 0", want: 0, wantOK: true},
		{tag: "SELECT 5", want: 5, wantOK: true},
		{tag: "CREATE TABLE", wantOK: false},
		{tag: "BEGIN", wantOK: false},
		{tag: "", wantOK: false},
	}
	for _, tt := range tests {
		t.Run(tt.tag, func(t *testing.T) {
			n, ok := rowsAffected(pgconn.NewCommandTag(tt.tag))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, n)
		})
	}
}

func TestStatement_RowCountBeforeExecute(t *testing.T) {
	st := &statement{}
	_, ok := st.RowCount(context.Background())
	assert.False(t, ok)
}

func TestSession_PrepareRejectsEmpty(t *testing.T) {
	s := &session{}
	for _, q := range []string{"", " \n", "-- nothing", "/* nothing */;"} {
		_, err := s.Prepare(context.Background(), q)
		require.Error(t, err, "%q", q)
		assert.True(t, errs.IsQueryFailed(err), "%q", q)
	}
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		where failure
		check func(error) bool
	}{
		{name: "deadline", err: context.DeadlineExceeded, where: queryFailure, check: errs.IsTimeout},
		{name: "cancelled", err: context.Canceled, where: connectFailure, check: errs.IsTimeout},
		{name: "connection class", err: &pgconn.PgError{Code: "08006"}, where: queryFailure, check: errs.IsConnectionFailed},
		{name: "bad password", err: &pgconn.PgError{Code: "28P01"}, where: connectFailure, check: errs.IsPermissionDenied},
		{name: "privilege", err: &pgconn.PgError{Code: "42501"}, where: queryFailure, check: errs.IsPermissionDenied},
		{name: "cancel", err: &pgconn.PgError{Code: "57014"}, where: queryFailure, check: errs.IsTimeout},
		{name: "syntax", err: &pgconn.PgError{Code: "42601", Message: "syntax error"}, where: queryFailure, check: errs.IsQueryFailed},
		{name: "server error at connect", err: &pgconn.PgError{Code: "3D000"}, where: connectFailure, check: errs.IsConnectionFailed},
		{name: "opaque at connect", err: errors.New("dial tcp: refused"), where: connectFailure, check: errs.IsConnectionFailed},
		{name: "opaque at query", err: errors.New("broken"), where: queryFailure, check: errs.IsQueryFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mapError(tt.err, tt.where, "op")
			require.Error(t, err)
			assert.True(t, tt.check(err), "got %v", err)
			assert.ErrorIs(t, err, tt.err)
		})
	}

	assert.NoError(t, mapError(nil, queryFailure, "op"))
}

func TestMapError_IncludesServerMessage(t *testing.T) {
	err := mapError(&pgconn.PgError{Code: "42P01", Message: `relation "nope" does not exist`}, queryFailure, "prepare failed")
	assert.Contains(t, err.Error(), `relation "nope" does not exist`)
}

func TestOpen_InvalidDSN(t *testing.T) {
	_, err := New().Open(context.Background(), &database.Config{DSN: "postgres://%zz"})
	require.Error(t, err)
	assert.True(t, errs.IsConnectionFailed(err))
}

// Integration tests run against a live server when TEST_POSTGRES_URL is set.

func openLive(t *testing.T) database.Session {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sess, err := New().Open(ctx, &database.Config{DSN: dsn, ConnectTimeout: 5 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sess.Close(context.Background()) })
	return sess
}

func TestLive_Select(t *testing.T) {
	sess := openLive(t)
	ctx := context.Background()

	st, err := sess.Prepare(ctx, "SELECT g AS id, 'row ' || g AS name, NULL::text AS missing FROM generate_series(1, 7) g")
	require.NoError(t, err)
	defer st.Close(ctx)

	cur, err := st.Execute(ctx)
	require.NoError(t, err)
	require.NotNil(t, cur)
	defer cur.Close(ctx)

	assert.Equal(t, []string{"id", "name", "missing"}, cur.Columns())

	b := database.NewBatch(3, 3, 64)
	var ids []string
	for {
		require.NoError(t, cur.Fetch(ctx, b))
		if b.Len() == 0 {
			break
		}
		for r := 0; r < b.Len(); r++ {
			v, _ := b.At(0, r)
			ids = append(ids, string(v))
			_, ok := b.At(2, r)
			assert.False(t, ok)
		}
	}
	assert.Equal(t, []string{"1", "2", "3", "4", "5", "6", "7"}, ids)
}

func TestLive_RowCount(t *testing.T) {
	sess := openLive(t)
	ctx := context.Background()

	exec := func(sql string) database.Statement {
		st, err := sess.Prepare(ctx, sql)
		require.NoError(t, err)
		cur, err := st.Execute(ctx)
		require.NoError(t, err)
		require.Nil(t, cur)
		return st
	}

	exec("CREATE TEMP TABLE dbstream_rc (id int)")
	exec("INSERT INTO dbstream_rc VALUES (1), (2)")
	st := exec("DELETE FROM dbstream_rc")

	n, ok := st.RowCount(ctx)
	assert.True(t, ok)
	assert.Equal(t, int64(2), n)
}

func TestLive_PrepareError(t *testing.T) {
	sess := openLive(t)
	_, err := sess.Prepare(context.Background(), "SELEC nope")
	require.Error(t, err)
	assert.True(t, errs.IsQueryFailed(err))
}
