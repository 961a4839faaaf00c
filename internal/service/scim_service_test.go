package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scimkit/scimserver/internal/config"
	"github.com/scimkit/scimserver/internal/models"
	"github.com/scimkit/scimserver/internal/queryopt"
)

// fakeStore is an in-memory repository.ResourceStore double, scoped by
// tenant the same way SCIMStore is, used to exercise the service layer
// without a database.
type fakeStore struct {
	users   map[string]*models.UserRow
	groups  map[string]*models.GroupRow
	members []models.GroupMemberRow
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: map[string]*models.UserRow{}, groups: map[string]*models.GroupRow{}}
}

func (f *fakeStore) CreateUser(ctx context.Context, row *models.UserRow) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.Version = 1
	f.users[row.ID.String()] = row
	return nil
}

func (f *fakeStore) GetUser(ctx context.Context, tenantID, id string) (*models.UserRow, error) {
	row, ok := f.users[id]
	if !ok || row.TenantID != tenantID {
		return nil, models.ErrNotFound
	}
	return row, nil
}

func (f *fakeStore) UpdateUser(ctx context.Context, row *models.UserRow, expectedVersion int64) error {
	existing, ok := f.users[row.ID.String()]
	if !ok {
		return models.ErrNotFound
	}
	if existing.Version != expectedVersion {
		return models.ErrVersionMismatch
	}
	row.Version = expectedVersion + 1
	f.users[row.ID.String()] = row
	return nil
}

func (f *fakeStore) DeleteUser(ctx context.Context, tenantID, id string, expectedVersion int64) error {
	existing, ok := f.users[id]
	if !ok || existing.TenantID != tenantID {
		return models.ErrNotFound
	}
	if existing.Version != expectedVersion {
		return models.ErrVersionMismatch
	}
	delete(f.users, id)
	return nil
}

func (f *fakeStore) SearchUsers(ctx context.Context, tenantID string, opts queryopt.SearchOptions) ([]*models.UserRow, int, error) {
	var out []*models.UserRow
	for _, row := range f.users {
		if row.TenantID == tenantID {
			out = append(out, row)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) CreateGroup(ctx context.Context, row *models.GroupRow, members []models.GroupMemberRow) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.Version = 1
	f.groups[row.ID.String()] = row
	for i := range members {
		members[i].GroupID = row.ID
	}
	f.members = append(f.members, members...)
	return nil
}

func (f *fakeStore) GetGroup(ctx context.Context, tenantID, id string) (*models.GroupRow, error) {
	row, ok := f.groups[id]
	if !ok || row.TenantID != tenantID {
		return nil, models.ErrNotFound
	}
	return row, nil
}

func (f *fakeStore) UpdateGroup(ctx context.Context, row *models.GroupRow, expectedVersion int64, members []models.GroupMemberRow) error {
	existing, ok := f.groups[row.ID.String()]
	if !ok {
		return models.ErrNotFound
	}
	if existing.Version != expectedVersion {
		return models.ErrVersionMismatch
	}
	row.Version = expectedVersion + 1
	f.groups[row.ID.String()] = row

	kept := f.members[:0]
	for _, m := range f.members {
		if m.GroupID != row.ID {
			kept = append(kept, m)
		}
	}
	f.members = kept
	for i := range members {
		members[i].GroupID = row.ID
	}
	f.members = append(f.members, members...)
	return nil
}

func (f *fakeStore) DeleteGroup(ctx context.Context, tenantID, id string, expectedVersion int64) error {
	existing, ok := f.groups[id]
	if !ok || existing.TenantID != tenantID {
		return models.ErrNotFound
	}
	if existing.Version != expectedVersion {
		return models.ErrVersionMismatch
	}
	delete(f.groups, id)
	return nil
}

func (f *fakeStore) SearchGroups(ctx context.Context, tenantID string, opts queryopt.SearchOptions) ([]*models.GroupRow, int, error) {
	var out []*models.GroupRow
	for _, row := range f.groups {
		if row.TenantID == tenantID {
			out = append(out, row)
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) ListMembersForGroup(ctx context.Context, tenantID, groupID string) ([]models.GroupMemberRow, error) {
	gid, err := uuid.Parse(groupID)
	if err != nil {
		return nil, err
	}
	var out []models.GroupMemberRow
	for _, m := range f.members {
		if m.TenantID == tenantID && m.GroupID == gid {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) ListGroupsForMember(ctx context.Context, tenantID, memberID string) ([]models.GroupMemberRow, error) {
	mid, err := uuid.Parse(memberID)
	if err != nil {
		return nil, err
	}
	var out []models.GroupMemberRow
	for _, m := range f.members {
		if m.TenantID == tenantID && m.MemberID == mid {
			out = append(out, m)
		}
	}
	return out, nil
}

func testTenant() config.TenantConfig {
	return config.TenantConfig{ID: "tenant-a", Path: "/scim/v2/tenant-a"}
}

func TestSCIMService_CreateAndGetUser(t *testing.T) {
	svc := NewSCIMService(newFakeStore(), nil, config.CompatOverrides{})
	ctx := context.Background()
	tenant := testTenant()

	doc, err := svc.CreateUser(ctx, tenant, "https://scim.example.com/v2", &models.SCIMUser{
		Schemas:  []string{models.SchemaUser},
		UserName: "bjensen",
	})
	require.NoError(t, err)
	assert.Equal(t, "bjensen", doc["userName"])
	assert.NotEmpty(t, doc["id"])

	fetched, err := svc.GetUser(ctx, tenant, "https://scim.example.com/v2", doc["id"].(string), "", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "bjensen", fetched["userName"])
}

func TestSCIMService_CreateUser_RejectsMissingUserName(t *testing.T) {
	svc := NewSCIMService(newFakeStore(), nil, config.CompatOverrides{})
	_, err := svc.CreateUser(context.Background(), testTenant(), "https://scim.example.com/v2", &models.SCIMUser{
		Schemas: []string{models.SchemaUser},
	})
	require.Error(t, err)
}

func TestSCIMService_UpdateUser_VersionMismatchRejected(t *testing.T) {
	svc := NewSCIMService(newFakeStore(), nil, config.CompatOverrides{})
	ctx := context.Background()
	tenant := testTenant()

	doc, err := svc.CreateUser(ctx, tenant, "https://scim.example.com/v2", &models.SCIMUser{
		Schemas: []string{models.SchemaUser}, UserName: "bjensen",
	})
	require.NoError(t, err)
	id := doc["id"].(string)

	_, err = svc.UpdateUser(ctx, tenant, "https://scim.example.com/v2", id,
		&models.SCIMUser{Schemas: []string{models.SchemaUser}, UserName: "bjensen2"}, `W/"99"`)
	require.Error(t, err)
	assert.Equal(t, models.ErrVersionMismatch, err)
}

func TestSCIMService_PatchUser_AddsEmail(t *testing.T) {
	svc := NewSCIMService(newFakeStore(), nil, config.CompatOverrides{})
	ctx := context.Background()
	tenant := testTenant()

	doc, err := svc.CreateUser(ctx, tenant, "https://scim.example.com/v2", &models.SCIMUser{
		Schemas: []string{models.SchemaUser}, UserName: "bjensen",
	})
	require.NoError(t, err)
	id := doc["id"].(string)

	patched, err := svc.PatchUser(ctx, tenant, "https://scim.example.com/v2", id, &models.SCIMPatchRequest{
		Schemas: []string{models.SchemaPatchOp},
		Operations: []models.SCIMPatchOperation{
			{Op: "add", Path: "emails", Value: []byte(`[{"value":"bjensen@example.com","primary":true}]`)},
		},
	}, "")
	require.NoError(t, err)
	emails, ok := patched["emails"].([]interface{})
	require.True(t, ok)
	assert.Len(t, emails, 1)
}

func TestSCIMService_CreateGroup_RejectsUnknownMember(t *testing.T) {
	svc := NewSCIMService(newFakeStore(), nil, config.CompatOverrides{})
	_, err := svc.CreateGroup(context.Background(), testTenant(), "https://scim.example.com/v2", &models.SCIMGroup{
		Schemas:     []string{models.SchemaGroup},
		DisplayName: "Engineers",
		Members:     []models.SCIMMember{{Value: uuid.New().String(), Type: "User"}},
	})
	require.Error(t, err)
}

func TestSCIMService_CreateGroup_WithExistingMember(t *testing.T) {
	store := newFakeStore()
	svc := NewSCIMService(store, nil, config.CompatOverrides{})
	ctx := context.Background()
	tenant := testTenant()

	userDoc, err := svc.CreateUser(ctx, tenant, "https://scim.example.com/v2", &models.SCIMUser{
		Schemas: []string{models.SchemaUser}, UserName: "bjensen",
	})
	require.NoError(t, err)

	groupDoc, err := svc.CreateGroup(ctx, tenant, "https://scim.example.com/v2", &models.SCIMGroup{
		Schemas:     []string{models.SchemaGroup},
		DisplayName: "Engineers",
		Members:     []models.SCIMMember{{Value: userDoc["id"].(string), Type: "User"}},
	})
	require.NoError(t, err)
	members, ok := groupDoc["members"].([]interface{})
	require.True(t, ok)
	assert.Len(t, members, 1)
}

func TestSCIMService_GetUser_DerivesManagerDisplayNameAndRef(t *testing.T) {
	svc := NewSCIMService(newFakeStore(), nil, config.CompatOverrides{})
	ctx := context.Background()
	tenant := testTenant()
	baseURL := "https://scim.example.com/v2"

	managerDoc, err := svc.CreateUser(ctx, tenant, baseURL, &models.SCIMUser{
		Schemas: []string{models.SchemaUser}, UserName: "mjones", DisplayName: "Maria Jones",
	})
	require.NoError(t, err)
	managerID := managerDoc["id"].(string)

	reportDoc, err := svc.CreateUser(ctx, tenant, baseURL, &models.SCIMUser{
		Schemas: []string{models.SchemaUser}, UserName: "bjensen",
		Enterprise: &models.SCIMEnterpriseExtension{Manager: &models.SCIMManager{Value: managerID}},
	})
	require.NoError(t, err)

	fetched, err := svc.GetUser(ctx, tenant, baseURL, reportDoc["id"].(string), "", nil, nil)
	require.NoError(t, err)

	enterprise, ok := fetched[models.SchemaEnterpriseUser].(map[string]interface{})
	require.True(t, ok, "expected enterprise extension object in %v", fetched)
	manager, ok := enterprise["manager"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "Maria Jones", manager["displayName"])
	assert.Equal(t, baseURL+"/Users/"+managerID, manager["$ref"])
}

func TestSCIMService_GetUser_IfNoneMatchReturnsNotModified(t *testing.T) {
	svc := NewSCIMService(newFakeStore(), nil, config.CompatOverrides{})
	ctx := context.Background()
	tenant := testTenant()

	doc, err := svc.CreateUser(ctx, tenant, "https://scim.example.com/v2", &models.SCIMUser{
		Schemas: []string{models.SchemaUser}, UserName: "bjensen",
	})
	require.NoError(t, err)

	_, err = svc.GetUser(ctx, tenant, "https://scim.example.com/v2", doc["id"].(string), `W/"1"`, nil, nil)
	assert.Equal(t, models.ErrNotModified, err)
}
