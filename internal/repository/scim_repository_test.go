package repository

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun/migrate"

	"github.com/scimkit/scimserver/internal/config"
	"github.com/scimkit/scimserver/internal/migrations"
	"github.com/scimkit/scimserver/internal/models"
	"github.com/scimkit/scimserver/internal/queryopt"
)

// setupSCIMTestDB connects to a scratch Postgres database and applies the
// SCIM schema migrations, so these tests run against a real database
// rather than a mock.
func setupSCIMTestDB(t *testing.T) (*Database, func()) {
	t.Helper()
	cfg := &config.DatabaseConfig{
		Host:         getSCIMTestEnv("TEST_DB_HOST", "localhost"),
		Port:         getSCIMTestEnv("TEST_DB_PORT", "5432"),
		User:         getSCIMTestEnv("TEST_DB_USER", "postgres"),
		Password:     getSCIMTestEnv("TEST_DB_PASSWORD", "postgres"),
		DBName:       getSCIMTestEnv("TEST_DB_NAME", "scim_test"),
		SSLMode:      "disable",
		MaxOpenConns: 10,
		MaxIdleConns: 5,
	}
	db, err := NewDatabase(cfg)
	require.NoError(t, err)

	migrator := migrate.NewMigrator(db.DB, migrations.Migrations)
	require.NoError(t, migrator.Init(context.Background()))
	_, err = migrator.Migrate(context.Background())
	require.NoError(t, err)

	return db, func() { db.Close() }
}

func getSCIMTestEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func newTestUserRow(tenantID, userName string) *models.UserRow {
	return &models.UserRow{
		TenantID: tenantID,
		UserName: userName,
		Active:   true,
		Data:     []byte(`{"schemas":["urn:ietf:params:scim:schemas:core:2.0:User"],"userName":"` + userName + `"}`),
	}
}

func TestSCIMStore_CreateAndGetUser(t *testing.T) {
	db, cleanup := setupSCIMTestDB(t)
	defer cleanup()
	store := NewSCIMStore(db)
	ctx := context.Background()

	row := newTestUserRow("tenant-a", "bjensen")
	require.NoError(t, store.CreateUser(ctx, row))
	assert.NotEqual(t, uuid.Nil, row.ID)
	assert.Equal(t, int64(1), row.Version)

	fetched, err := store.GetUser(ctx, "tenant-a", row.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "bjensen", fetched.UserName)
}

func TestSCIMStore_GetUser_NotFoundAcrossTenants(t *testing.T) {
	db, cleanup := setupSCIMTestDB(t)
	defer cleanup()
	store := NewSCIMStore(db)
	ctx := context.Background()

	row := newTestUserRow("tenant-a", "bjensen")
	require.NoError(t, store.CreateUser(ctx, row))

	_, err := store.GetUser(ctx, "tenant-b", row.ID.String())
	assert.Equal(t, models.ErrNotFound, err)
}

func TestSCIMStore_UpdateUser_VersionMismatch(t *testing.T) {
	db, cleanup := setupSCIMTestDB(t)
	defer cleanup()
	store := NewSCIMStore(db)
	ctx := context.Background()

	row := newTestUserRow("tenant-a", "bjensen")
	require.NoError(t, store.CreateUser(ctx, row))

	row.DisplayName = "Barbara Jensen"
	err := store.UpdateUser(ctx, row, 99)
	assert.Equal(t, models.ErrVersionMismatch, err)
}

func TestSCIMStore_UpdateUser_Succeeds(t *testing.T) {
	db, cleanup := setupSCIMTestDB(t)
	defer cleanup()
	store := NewSCIMStore(db)
	ctx := context.Background()

	row := newTestUserRow("tenant-a", "bjensen")
	require.NoError(t, store.CreateUser(ctx, row))

	row.DisplayName = "Barbara Jensen"
	require.NoError(t, store.UpdateUser(ctx, row, 1))
	assert.Equal(t, int64(2), row.Version)

	fetched, err := store.GetUser(ctx, "tenant-a", row.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Barbara Jensen", fetched.DisplayName)
}

func TestSCIMStore_DeleteUser_RemovesGroupMemberships(t *testing.T) {
	db, cleanup := setupSCIMTestDB(t)
	defer cleanup()
	store := NewSCIMStore(db)
	ctx := context.Background()

	user := newTestUserRow("tenant-a", "bjensen")
	require.NoError(t, store.CreateUser(ctx, user))

	group := &models.GroupRow{TenantID: "tenant-a", DisplayName: "Engineers", Data: []byte(`{}`)}
	members := []models.GroupMemberRow{{TenantID: "tenant-a", MemberID: user.ID, MemberType: "User"}}
	require.NoError(t, store.CreateGroup(ctx, group, members))

	require.NoError(t, store.DeleteUser(ctx, "tenant-a", user.ID.String(), 1))

	groups, err := store.ListGroupsForMember(ctx, "tenant-a", user.ID.String())
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestSCIMStore_CreateGroup_WithMembers(t *testing.T) {
	db, cleanup := setupSCIMTestDB(t)
	defer cleanup()
	store := NewSCIMStore(db)
	ctx := context.Background()

	user := newTestUserRow("tenant-a", "bjensen")
	require.NoError(t, store.CreateUser(ctx, user))

	group := &models.GroupRow{TenantID: "tenant-a", DisplayName: "Engineers", Data: []byte(`{}`)}
	members := []models.GroupMemberRow{{TenantID: "tenant-a", MemberID: user.ID, MemberType: "User"}}
	require.NoError(t, store.CreateGroup(ctx, group, members))

	fetchedMembers, err := store.ListMembersForGroup(ctx, "tenant-a", group.ID.String())
	require.NoError(t, err)
	require.Len(t, fetchedMembers, 1)
	assert.Equal(t, user.ID, fetchedMembers[0].MemberID)
}

func TestSCIMStore_SearchUsers_ScopesByTenant(t *testing.T) {
	db, cleanup := setupSCIMTestDB(t)
	defer cleanup()
	store := NewSCIMStore(db)
	ctx := context.Background()

	require.NoError(t, store.CreateUser(ctx, newTestUserRow("tenant-a", "alice")))
	require.NoError(t, store.CreateUser(ctx, newTestUserRow("tenant-b", "bob")))

	rows, total, err := store.SearchUsers(ctx, "tenant-a", queryopt.BuildSearchOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "alice", rows[0].UserName)
}
