package sqlite

import (
	"errors"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/corey/shodiff/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "cache.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func makeResult(term string, hosts map[string][]int) *ports.SearchResult {
	list := make([]ports.Host, 0, len(hosts))
	for ip, nums := range hosts {
		h := ports.Host{IP: ip, Hostname: "host-" + ip}
		for _, n := range nums {
			h.Ports = append(h.Ports, ports.Port{Number: n})
		}
		list = append(list, h)
	}
	return ports.NewSearchResult(term, time.Date(2024, 5, 1, 12, 30, 0, 123, time.UTC), list)
}

func count(t *testing.T, s *Store, table string) int {
	t.Helper()
	var n int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestStore_PutLookup_Roundtrip(t *testing.T) {
	store := newTestStore(t)
	original := makeResult("apache", map[string][]int{"1.2.3.4": {443, 80}, "5.6.7.8": {}})

	require.NoError(t, store.Put(original))

	loaded, err := store.Lookup("apache")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, original.Equals(loaded))
	assert.True(t, original.Timestamp.Equal(loaded.Timestamp))
	assert.Equal(t, original.String(), loaded.String())
	require.NotNil(t, loaded.Host("5.6.7.8"), "hosts without ports survive the LEFT JOIN")
	assert.Equal(t, "host-1.2.3.4", loaded.Host("1.2.3.4").Hostname)
}

func TestStore_Lookup_Missing(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.Lookup("apache")
	require.NoError(t, err)
	assert.Nil(t, loaded)
}

func TestStore_Put_ReplacesAndCascades(t *testing.T) {
	store := newTestStore(t)
	first := makeResult("apache", map[string][]int{"1.2.3.4": {80}, "5.6.7.8": {22, 23}})
	second := makeResult("apache", map[string][]int{"1.2.3.4": {80, 443}})

	require.NoError(t, store.Put(first))
	require.NoError(t, store.Put(second))
	require.NoError(t, store.Put(second))

	assert.Equal(t, 1, count(t, store, "search_result"))
	assert.Equal(t, 1, count(t, store, "host"), "hosts of the replaced record must cascade")
	assert.Equal(t, 2, count(t, store, "port"), "ports of the replaced record must cascade")

	loaded, err := store.Lookup("apache")
	require.NoError(t, err)
	assert.True(t, second.Equals(loaded))
}

func TestStore_Delete_CascadesAndIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Delete("apache"))

	require.NoError(t, store.Put(makeResult("apache", map[string][]int{"1.2.3.4": {80, 443}})))
	require.NoError(t, store.Put(makeResult("nginx", map[string][]int{"9.9.9.9": {8080}})))
	require.NoError(t, store.Delete("apache"))
	require.NoError(t, store.Delete("apache"))

	assert.Equal(t, 1, count(t, store, "search_result"))
	assert.Equal(t, 1, count(t, store, "host"))
	assert.Equal(t, 1, count(t, store, "port"))

	terms, err := store.Terms()
	require.NoError(t, err)
	assert.Equal(t, []string{"nginx"}, terms)
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.sqlite")
	original := makeResult("apache", map[string][]int{"1.2.3.4": {80}})

	s1, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s1.Put(original))
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	loaded, err := s2.Lookup("apache")
	require.NoError(t, err)
	assert.True(t, original.Equals(loaded))
}

func TestStore_ZeroTimestamp_Roundtrip(t *testing.T) {
	store := newTestStore(t)
	r := ports.NewSearchResult("apache", time.Time{}, nil)

	require.NoError(t, store.Put(r))
	loaded, err := store.Lookup("apache")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.True(t, loaded.Timestamp.IsZero())
}

func TestStore_EmptyTermRejected(t *testing.T) {
	store := newTestStore(t)

	assert.ErrorIs(t, store.Put(makeResult("", nil)), errEmptyTerm)
	_, err := store.Lookup("")
	assert.ErrorIs(t, err, errEmptyTerm)
	assert.ErrorIs(t, store.Delete(""), errEmptyTerm)
}

// =============================================================================
// Failure paths against go-sqlmock: a failed insert must roll back so the
// previous baseline is never lost.
// =============================================================================

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

func TestStore_Put_InsertFailureRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	ioErr := errors.New("disk I/O error")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(sqlDeleteResult)).
		WithArgs("apache").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(sqlInsertResult)).
		WithArgs("apache", sqlmock.AnyArg()).
		WillReturnError(ioErr)
	mock.ExpectRollback()

	err := store.Put(makeResult("apache", map[string][]int{"1.2.3.4": {80}}))
	require.Error(t, err)
	assert.ErrorIs(t, err, ioErr)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Put_PortFailureRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(sqlDeleteResult)).
		WithArgs("apache").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(sqlInsertResult)).
		WithArgs("apache", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectExec(regexp.QuoteMeta(sqlInsertHost)).
		WithArgs(int64(7), "1.2.3.4", "host-1.2.3.4").
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(regexp.QuoteMeta(sqlInsertPort)).
		WithArgs(int64(11), 80).
		WillReturnError(errors.New("constraint failed"))
	mock.ExpectRollback()

	err := store.Put(makeResult("apache", map[string][]int{"1.2.3.4": {80}}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert port 1.2.3.4/80")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Put_CommitFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(sqlDeleteResult)).
		WithArgs("apache").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(sqlInsertResult)).
		WithArgs("apache", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit().WillReturnError(errors.New("database is locked"))

	err := store.Put(makeResult("apache", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "commit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Lookup_QueryFailure(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(sqlSelectResult)).
		WithArgs("apache").
		WillReturnError(errors.New("no such table: search_result"))

	_, err := store.Lookup("apache")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "select baseline")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Lookup_AssemblesRows(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(sqlSelectResult)).
		WithArgs("apache").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(3), "2024-05-01T12:30:00Z"))
	mock.ExpectQuery(regexp.QuoteMeta(sqlSelectHosts)).
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"ip", "hostname", "number"}).
			AddRow("1.2.3.4", "", int64(80)).
			AddRow("1.2.3.4", "", int64(443)).
			AddRow("5.6.7.8", "mail", nil))

	r, err := store.Lookup("apache")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "apache 1.2.3.4 80 443\napache 5.6.7.8", r.String())
	assert.Equal(t, "mail", r.Host("5.6.7.8").Hostname)
	assert.NoError(t, mock.ExpectationsWereMet())
}
