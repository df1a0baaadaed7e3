package migrations

import (
	"context"
	"errors"
	"io/fs"
	"net/url"
	"strings"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMigrate struct {
	upErr      error
	downErr    error
	version    uint
	dirty      bool
	versionErr error
	closeSrc   error
	closeDB    error
}

func (f *fakeMigrate) Up() error   { return f.upErr }
func (f *fakeMigrate) Down() error { return f.downErr }
func (f *fakeMigrate) Version() (uint, bool, error) {
	return f.version, f.dirty, f.versionErr
}
func (f *fakeMigrate) Close() (error, error) { return f.closeSrc, f.closeDB }

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		schema  string
		wantErr bool
	}{
		{name: "postgres scheme", in: "postgres://u:p@localhost:5432/db?sslmode=disable", schema: "warden"},
		{name: "postgresql scheme", in: "postgresql://u:p@localhost/db", schema: "tenant_1"},
		{name: "unsupported scheme", in: "mysql://u:p@localhost/db", schema: "warden", wantErr: true},
		{name: "bad schema", in: "postgres://localhost/db", schema: "x; DROP", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MigrateURL(tt.in, tt.schema)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(got, "pgx5://"), got)

			u, err := url.Parse(got)
			require.NoError(t, err)
			assert.Equal(t, tt.schema, u.Query().Get("search_path"))
		})
	}
}

func TestMigrateURL_KeepsExistingParams(t *testing.T) {
	got, err := MigrateURL("postgres://localhost/db?sslmode=disable", "warden")
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}

func TestMigrator_WrapsNoChange(t *testing.T) {
	m := &Migrator{m: &fakeMigrate{upErr: migrate.ErrNoChange, downErr: migrate.ErrNoChange}}
	assert.NoError(t, m.Up())
	assert.NoError(t, m.Down())

	m = &Migrator{m: &fakeMigrate{upErr: errors.New("boom")}}
	assert.ErrorContains(t, m.Up(), "boom")
}

func TestMigrator_Version(t *testing.T) {
	m := &Migrator{m: &fakeMigrate{versionErr: migrate.ErrNilVersion}}
	v, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Zero(t, v)
	assert.False(t, dirty)

	m = &Migrator{m: &fakeMigrate{version: 2, dirty: true}}
	v, dirty, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	assert.True(t, dirty)
}

func TestMigrator_CloseJoinsErrors(t *testing.T) {
	src := errors.New("source")
	db := errors.New("database")

	m := &Migrator{m: &fakeMigrate{closeSrc: src, closeDB: db}}
	err := m.Close()
	assert.ErrorIs(t, err, src)
	assert.ErrorIs(t, err, db)

	m = &Migrator{m: &fakeMigrate{}}
	assert.NoError(t, m.Close())
}

func TestVersions_EmbeddedPairs(t *testing.T) {
	versions, err := Versions()
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2}, versions)

	entries, err := fs.ReadDir(migrationsFS, "sql")
	require.NoError(t, err)

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Equal(t, ups, downs, "every up migration needs a down")
}

func TestEnsureSchema(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(`CREATE SCHEMA IF NOT EXISTS "warden"`).
		WillReturnResult(pgxmock.NewResult("CREATE SCHEMA", 0))

	require.NoError(t, EnsureSchema(context.Background(), mock, "warden"))
	require.Error(t, EnsureSchema(context.Background(), mock, "bad name"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
