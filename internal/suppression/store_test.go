package suppression

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aviral2610/Lead-gen/internal/domain"
)

var addedAt = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func sampleTable() Table {
	return Table{
		"a@example.com": {Reason: domain.ReasonUnsubscribe, Source: domain.SuppressionFromWebhook, AddedAt: addedAt},
	}
}

// =============================================================================
// FILE STORE
// =============================================================================

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nope.json"))
	tbl, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, tbl)
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "suppression.json")
	s := NewFileStore(path)
	ctx := context.Background()

	require.NoError(t, s.Save(ctx, sampleTable()))
	tbl, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, sampleTable()["a@example.com"].Reason, tbl["a@example.com"].Reason)
	assert.True(t, addedAt.Equal(tbl["a@example.com"].AddedAt))

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestFileStore_ReadsExistingFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "suppression_list.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "old@example.com": {
    "reason": "bounce",
    "source": "instantly",
    "added_at": "2024-06-01T12:00:00.123456+00:00"
  }
}`), 0o644))

	tbl, err := NewFileStore(path).Load(context.Background())
	require.NoError(t, err)
	rec := tbl["old@example.com"]
	assert.Equal(t, domain.ReasonBounce, rec.Reason)
	assert.Equal(t, domain.SuppressionFromInstantly, rec.Source)
	assert.Equal(t, 2024, rec.AddedAt.Year())
}

func TestFileStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{oops"), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	assert.Error(t, err)

	_, err = NewGate(context.Background(), NewFileStore(path))
	assert.Error(t, err)
}

// =============================================================================
// REDIS STORE
// =============================================================================

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	client, mr := setupTestRedis(t)
	s := NewRedisStore(client, "test:suppression")
	ctx := context.Background()

	tbl, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tbl)

	require.NoError(t, s.Save(ctx, sampleTable()))
	assert.True(t, mr.Exists("test:suppression"))

	tbl, err = s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, tbl, 1)
	assert.Equal(t, domain.ReasonUnsubscribe, tbl["a@example.com"].Reason)

	// A smaller table replaces the hash rather than merging into it.
	require.NoError(t, s.Save(ctx, Table{}))
	tbl, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tbl)
}

func TestRedisStore_WithGate(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	g1, err := NewGate(ctx, NewRedisStore(client, ""))
	require.NoError(t, err)
	_, err = g1.Add(ctx, "shared@example.com", domain.ReasonBounce, "")
	require.NoError(t, err)

	g2, err := NewGate(ctx, NewRedisStore(client, ""))
	require.NoError(t, err)
	assert.True(t, g2.IsSuppressed("shared@example.com"))
}

func TestRedisStore_BadRecord(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.HSet("test:suppression", "x@example.com", "not json")

	_, err := NewRedisStore(client, "test:suppression").Load(context.Background())
	assert.Error(t, err)
}

// =============================================================================
// POSTGRES STORE
// =============================================================================

func setupTestDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestPostgresStore_Load(t *testing.T) {
	db, mock := setupTestDB(t)
	s := NewPostgresStore(db, "")

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT email, reason, source, added_at FROM "suppression_list"`)).
		WillReturnRows(sqlmock.NewRows([]string{"email", "reason", "source", "added_at"}).
			AddRow("a@example.com", "unsubscribe", "webhook", addedAt).
			AddRow("b@example.com", "bounce", "instantly", addedAt))

	tbl, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, tbl, 2)
	assert.Equal(t, domain.ReasonBounce, tbl["b@example.com"].Reason)
	assert.Equal(t, domain.SuppressionFromInstantly, tbl["b@example.com"].Source)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRewritesTable(t *testing.T) {
	db, mock := setupTestDB(t)
	s := NewPostgresStore(db, "suppression_list")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "suppression_list"`)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	prep := mock.ExpectPrepare(regexp.QuoteMeta(`INSERT INTO "suppression_list"`))
	prep.ExpectExec().
		WithArgs(sqlmock.AnyArg(), "a@example.com", "unsubscribe", "webhook", addedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, s.Save(context.Background(), sampleTable()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRollsBackOnError(t *testing.T) {
	db, mock := setupTestDB(t)
	s := NewPostgresStore(db, "")

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM").WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	err := s.Save(context.Background(), sampleTable())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	db, mock := setupTestDB(t)
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS "suppression_list"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, NewPostgresStore(db, "").EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// =============================================================================
// S3 STORE
// =============================================================================

type fakeS3 struct {
	objects map[string][]byte
	getErr  error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	data, ok := f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[aws.ToString(in.Bucket)+"/"+aws.ToString(in.Key)] = data
	return &s3.PutObjectOutput{}, nil
}

func TestS3Store_RoundTrip(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}}
	s := &S3Store{client: fake, bucket: "leadgen", key: "suppression_list.json"}
	ctx := context.Background()

	tbl, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, tbl)

	require.NoError(t, s.Save(ctx, sampleTable()))
	assert.Contains(t, string(fake.objects["leadgen/suppression_list.json"]), `"a@example.com"`)

	tbl, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.ReasonUnsubscribe, tbl["a@example.com"].Reason)
}

func TestS3Store_LoadError(t *testing.T) {
	fake := &fakeS3{objects: map[string][]byte{}, getErr: errors.New("access denied")}
	s := &S3Store{client: fake, bucket: "leadgen", key: "k"}

	_, err := s.Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://leadgen/k")
}
