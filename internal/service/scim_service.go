// Package service implements the SCIM business-logic layer (4.3.2):
// validation, password handling, PATCH application, attribute projection
// and precondition checks sit here, between the HTTP handlers and the
// tenant-scoped resource store.
package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/scimkit/scimserver/internal/config"
	"github.com/scimkit/scimserver/internal/filter"
	"github.com/scimkit/scimserver/internal/models"
	"github.com/scimkit/scimserver/internal/patch"
	"github.com/scimkit/scimserver/internal/projection"
	"github.com/scimkit/scimserver/internal/queryopt"
	"github.com/scimkit/scimserver/internal/repository"
	"github.com/scimkit/scimserver/internal/utils"
)

// SCIMService is the tenant-agnostic business-logic layer; every method
// takes the resolved tenant so compatibility flags and storage scoping
// come from the same document the request was routed through.
type SCIMService struct {
	store          repository.ResourceStore
	checker        *PasswordChecker
	argonParams    utils.ArgonParams
	compatDefaults config.CompatOverrides
}

func NewSCIMService(store repository.ResourceStore, checker *PasswordChecker, compatDefaults config.CompatOverrides) *SCIMService {
	return &SCIMService{
		store:          store,
		checker:        checker,
		argonParams:    utils.DefaultArgonParams(),
		compatDefaults: compatDefaults,
	}
}

// SetArgonParams overrides the Argon2id cost parameters used for new
// password hashes; existing hashes keep verifying against whatever
// parameters they were encoded with.
func (s *SCIMService) SetArgonParams(p utils.ArgonParams) {
	s.argonParams = p
}

func (s *SCIMService) compat(tenant config.TenantConfig) config.ResolvedCompat {
	return tenant.Resolve(s.compatDefaults)
}

// --- Users ---------------------------------------------------------------

func (s *SCIMService) CreateUser(ctx context.Context, tenant config.TenantConfig, baseURL string, u *models.SCIMUser) (map[string]interface{}, error) {
	if err := validateUser(u); err != nil {
		return nil, err
	}

	plain := u.Password
	hash, err := s.hashIfPresent(ctx, plain)
	if err != nil {
		return nil, err
	}

	row, err := userToRow(u, tenant.ID, hash)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateUser(ctx, row); err != nil {
		return nil, err
	}
	return s.userDoc(ctx, tenant, baseURL, row, nil, nil)
}

func (s *SCIMService) GetUser(ctx context.Context, tenant config.TenantConfig, baseURL, id string, ifNoneMatch string, attributes, excluded []string) (map[string]interface{}, error) {
	row, err := s.store.GetUser(ctx, tenant.ID, id)
	if err != nil {
		return nil, err
	}
	if ifNoneMatch != "" && ifNoneMatch == models.FormatVersion(row.Version) {
		return nil, models.ErrNotModified
	}
	return s.userDoc(ctx, tenant, baseURL, row, attributes, excluded)
}

func (s *SCIMService) UpdateUser(ctx context.Context, tenant config.TenantConfig, baseURL, id string, u *models.SCIMUser, ifMatch string) (map[string]interface{}, error) {
	if err := validateUser(u); err != nil {
		return nil, err
	}
	existing, err := s.store.GetUser(ctx, tenant.ID, id)
	if err != nil {
		return nil, err
	}
	if err := checkIfMatch(ifMatch, existing.Version); err != nil {
		return nil, err
	}

	hash := existing.PasswordHash
	if u.Password != "" {
		hash, err = s.hashIfPresent(ctx, u.Password)
		if err != nil {
			return nil, err
		}
	}

	row, err := userToRow(u, tenant.ID, hash)
	if err != nil {
		return nil, err
	}
	row.ID = existing.ID
	row.TenantID = tenant.ID
	row.CreatedAt = existing.CreatedAt

	if err := s.store.UpdateUser(ctx, row, existing.Version); err != nil {
		return nil, err
	}
	return s.userDoc(ctx, tenant, baseURL, row, nil, nil)
}

func (s *SCIMService) PatchUser(ctx context.Context, tenant config.TenantConfig, baseURL, id string, req *models.SCIMPatchRequest, ifMatch string) (map[string]interface{}, error) {
	existing, err := s.store.GetUser(ctx, tenant.ID, id)
	if err != nil {
		return nil, err
	}
	if err := checkIfMatch(ifMatch, existing.Version); err != nil {
		return nil, err
	}

	u, err := rowToUser(existing, baseURL)
	if err != nil {
		return nil, err
	}
	doc, err := docToMap(u)
	if err != nil {
		return nil, err
	}

	flags := patch.CompatFlags{
		SupportPatchReplaceEmptyArray: s.compat(tenant).SupportPatchReplaceEmptyArray,
		SupportPatchReplaceEmptyValue: s.compat(tenant).SupportPatchReplaceEmptyValue,
	}
	patched, err := patch.Apply(doc, req.Operations, filter.UserAttrs, flags)
	if err != nil {
		return nil, toPatchError(err)
	}

	patchedUser, err := mapToUser(patched)
	if err != nil {
		return nil, models.ScimError(400, "invalidValue", "patched document is not a valid User")
	}
	if err := validateUser(patchedUser); err != nil {
		return nil, err
	}

	hash := existing.PasswordHash
	if patchedUser.Password != "" {
		hash, err = s.hashIfPresent(ctx, patchedUser.Password)
		if err != nil {
			return nil, err
		}
	}

	row, err := userToRow(patchedUser, tenant.ID, hash)
	if err != nil {
		return nil, err
	}
	row.ID = existing.ID
	row.TenantID = tenant.ID
	row.CreatedAt = existing.CreatedAt

	if err := s.store.UpdateUser(ctx, row, existing.Version); err != nil {
		return nil, err
	}
	return s.userDoc(ctx, tenant, baseURL, row, nil, nil)
}

func (s *SCIMService) DeleteUser(ctx context.Context, tenant config.TenantConfig, id string, ifMatch string) error {
	existing, err := s.store.GetUser(ctx, tenant.ID, id)
	if err != nil {
		return err
	}
	if err := checkIfMatch(ifMatch, existing.Version); err != nil {
		return err
	}
	return s.store.DeleteUser(ctx, tenant.ID, id, existing.Version)
}

func (s *SCIMService) SearchUsers(ctx context.Context, tenant config.TenantConfig, baseURL string, rawFilter, sortBy string, sortOrder queryopt.SortOrder, startIndex, count int, attributes, excluded []string) (*models.SCIMListResponse, error) {
	var f *filter.Filter
	if rawFilter != "" {
		parsed, err := filter.Parse(rawFilter)
		if err != nil {
			return nil, models.ScimError(400, "invalidFilter", err.Error())
		}
		f = parsed
	}

	opts := queryopt.BuildSearchOptions(
		queryopt.WithFilter(f),
		queryopt.WithSort(sortBy, sortOrder),
		queryopt.WithPage(startIndex, count),
	)

	rows, total, err := s.store.SearchUsers(ctx, tenant.ID, opts)
	if err != nil {
		return nil, err
	}

	resources := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		doc, err := s.userDoc(ctx, tenant, baseURL, row, attributes, excluded)
		if err != nil {
			return nil, err
		}
		resources = append(resources, doc)
	}
	return models.NewListResponse(total, opts.StartIndex, len(resources), resources), nil
}

// userDoc renders row to its projected generic-JSON form: typed
// conversion, groups derivation (if the tenant opts in), then
// inclusion/exclusion.
func (s *SCIMService) userDoc(ctx context.Context, tenant config.TenantConfig, baseURL string, row *models.UserRow, attributes, excluded []string) (map[string]interface{}, error) {
	u, err := rowToUser(row, baseURL)
	if err != nil {
		return nil, err
	}
	if s.compat(tenant).IncludeUserGroups {
		refs, err := s.groupsForMember(ctx, tenant, baseURL, row.ID.String())
		if err != nil {
			return nil, err
		}
		u.Groups = refs
	}
	if err := s.resolveManager(ctx, tenant, baseURL, u); err != nil {
		return nil, err
	}
	doc, err := docToMap(u)
	if err != nil {
		return nil, err
	}
	return projection.Apply(doc, attributes, excluded), nil
}

// resolveManager populates the enterprise manager reference's displayName
// and $ref from the referenced user record; both are derived at read time
// and never persisted, so a manager's own rename is reflected immediately.
// An unresolvable manager id is left as a bare value, not an error.
func (s *SCIMService) resolveManager(ctx context.Context, tenant config.TenantConfig, baseURL string, u *models.SCIMUser) error {
	if u.Enterprise == nil || u.Enterprise.Manager == nil || u.Enterprise.Manager.Value == "" {
		return nil
	}
	manager, err := s.store.GetUser(ctx, tenant.ID, u.Enterprise.Manager.Value)
	if err != nil {
		if err == models.ErrNotFound {
			return nil
		}
		return err
	}
	u.Enterprise.Manager.DisplayName = manager.DisplayName
	u.Enterprise.Manager.Ref = baseURL + "/Users/" + manager.ID.String()
	return nil
}

func (s *SCIMService) groupsForMember(ctx context.Context, tenant config.TenantConfig, baseURL, memberID string) ([]models.SCIMGroupRef, error) {
	memberships, err := s.store.ListGroupsForMember(ctx, tenant.ID, memberID)
	if err != nil {
		return nil, err
	}
	refs := make([]models.SCIMGroupRef, 0, len(memberships))
	for _, m := range memberships {
		group, err := s.store.GetGroup(ctx, tenant.ID, m.GroupID.String())
		if err != nil {
			if err == models.ErrNotFound {
				continue
			}
			return nil, err
		}
		refs = append(refs, models.SCIMGroupRef{
			Value:   group.ID.String(),
			Ref:     baseURL + "/Groups/" + group.ID.String(),
			Display: group.DisplayName,
			Type:    "direct",
		})
	}
	return refs, nil
}

// --- Groups ----------------------------------------------------------------

func (s *SCIMService) CreateGroup(ctx context.Context, tenant config.TenantConfig, baseURL string, g *models.SCIMGroup) (map[string]interface{}, error) {
	if err := validateGroup(g); err != nil {
		return nil, err
	}
	members, err := s.resolveMembers(ctx, tenant, g.Members)
	if err != nil {
		return nil, err
	}
	row, err := groupToRow(g, tenant.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateGroup(ctx, row, members); err != nil {
		return nil, err
	}
	return s.groupDoc(ctx, tenant, baseURL, row, nil, nil)
}

func (s *SCIMService) GetGroup(ctx context.Context, tenant config.TenantConfig, baseURL, id string, ifNoneMatch string, attributes, excluded []string) (map[string]interface{}, error) {
	row, err := s.store.GetGroup(ctx, tenant.ID, id)
	if err != nil {
		return nil, err
	}
	if ifNoneMatch != "" && ifNoneMatch == models.FormatVersion(row.Version) {
		return nil, models.ErrNotModified
	}
	return s.groupDoc(ctx, tenant, baseURL, row, attributes, excluded)
}

func (s *SCIMService) UpdateGroup(ctx context.Context, tenant config.TenantConfig, baseURL, id string, g *models.SCIMGroup, ifMatch string) (map[string]interface{}, error) {
	if err := validateGroup(g); err != nil {
		return nil, err
	}
	existing, err := s.store.GetGroup(ctx, tenant.ID, id)
	if err != nil {
		return nil, err
	}
	if err := checkIfMatch(ifMatch, existing.Version); err != nil {
		return nil, err
	}
	members, err := s.resolveMembers(ctx, tenant, g.Members)
	if err != nil {
		return nil, err
	}
	row, err := groupToRow(g, tenant.ID)
	if err != nil {
		return nil, err
	}
	row.ID = existing.ID
	row.TenantID = tenant.ID
	row.CreatedAt = existing.CreatedAt

	if err := s.store.UpdateGroup(ctx, row, existing.Version, members); err != nil {
		return nil, err
	}
	return s.groupDoc(ctx, tenant, baseURL, row, nil, nil)
}

func (s *SCIMService) PatchGroup(ctx context.Context, tenant config.TenantConfig, baseURL, id string, req *models.SCIMPatchRequest, ifMatch string) (map[string]interface{}, error) {
	existing, err := s.store.GetGroup(ctx, tenant.ID, id)
	if err != nil {
		return nil, err
	}
	if err := checkIfMatch(ifMatch, existing.Version); err != nil {
		return nil, err
	}

	g, err := rowToGroup(existing, baseURL)
	if err != nil {
		return nil, err
	}
	currentMembers, err := s.store.ListMembersForGroup(ctx, tenant.ID, id)
	if err != nil {
		return nil, err
	}
	g.Members = memberRowsToRefs(currentMembers)

	doc, err := docToMap(g)
	if err != nil {
		return nil, err
	}

	flags := patch.CompatFlags{
		SupportPatchReplaceEmptyArray: s.compat(tenant).SupportPatchReplaceEmptyArray,
		SupportPatchReplaceEmptyValue: s.compat(tenant).SupportPatchReplaceEmptyValue,
	}
	patched, err := patch.Apply(doc, req.Operations, filter.GroupAttrs, flags)
	if err != nil {
		return nil, toPatchError(err)
	}

	patchedGroup, err := mapToGroup(patched)
	if err != nil {
		return nil, models.ScimError(400, "invalidValue", "patched document is not a valid Group")
	}
	if err := validateGroup(patchedGroup); err != nil {
		return nil, err
	}

	members, err := s.resolveMembers(ctx, tenant, patchedGroup.Members)
	if err != nil {
		return nil, err
	}
	row, err := groupToRow(patchedGroup, tenant.ID)
	if err != nil {
		return nil, err
	}
	row.ID = existing.ID
	row.TenantID = tenant.ID
	row.CreatedAt = existing.CreatedAt

	if err := s.store.UpdateGroup(ctx, row, existing.Version, members); err != nil {
		return nil, err
	}
	return s.groupDoc(ctx, tenant, baseURL, row, nil, nil)
}

func (s *SCIMService) DeleteGroup(ctx context.Context, tenant config.TenantConfig, id string, ifMatch string) error {
	existing, err := s.store.GetGroup(ctx, tenant.ID, id)
	if err != nil {
		return err
	}
	if err := checkIfMatch(ifMatch, existing.Version); err != nil {
		return err
	}
	return s.store.DeleteGroup(ctx, tenant.ID, id, existing.Version)
}

func (s *SCIMService) SearchGroups(ctx context.Context, tenant config.TenantConfig, baseURL string, rawFilter, sortBy string, sortOrder queryopt.SortOrder, startIndex, count int, attributes, excluded []string) (*models.SCIMListResponse, error) {
	var f *filter.Filter
	if rawFilter != "" {
		parsed, err := filter.Parse(rawFilter)
		if err != nil {
			return nil, models.ScimError(400, "invalidFilter", err.Error())
		}
		f = parsed
	}

	opts := queryopt.BuildSearchOptions(
		queryopt.WithFilter(f),
		queryopt.WithSort(sortBy, sortOrder),
		queryopt.WithPage(startIndex, count),
	)

	rows, total, err := s.store.SearchGroups(ctx, tenant.ID, opts)
	if err != nil {
		return nil, err
	}

	resources := make([]interface{}, 0, len(rows))
	for _, row := range rows {
		doc, err := s.groupDoc(ctx, tenant, baseURL, row, attributes, excluded)
		if err != nil {
			return nil, err
		}
		resources = append(resources, doc)
	}
	return models.NewListResponse(total, opts.StartIndex, len(resources), resources), nil
}

func (s *SCIMService) groupDoc(ctx context.Context, tenant config.TenantConfig, baseURL string, row *models.GroupRow, attributes, excluded []string) (map[string]interface{}, error) {
	g, err := rowToGroup(row, baseURL)
	if err != nil {
		return nil, err
	}
	members, err := s.store.ListMembersForGroup(ctx, tenant.ID, row.ID.String())
	if err != nil {
		return nil, err
	}
	if len(members) == 0 && !s.compat(tenant).ShowEmptyGroupsMembers {
		g.Members = nil
	} else {
		g.Members = memberRowsToRefs(members)
	}
	doc, err := docToMap(g)
	if err != nil {
		return nil, err
	}
	return projection.Apply(doc, attributes, excluded), nil
}

func memberRowsToRefs(rows []models.GroupMemberRow) []models.SCIMMember {
	out := make([]models.SCIMMember, 0, len(rows))
	for _, r := range rows {
		out = append(out, models.SCIMMember{Value: r.MemberID.String(), Type: r.MemberType})
	}
	return out
}

// resolveMembers verifies every member reference exists in this tenant
// before it is persisted into the join table (4.3's member-existence
// invariant), defaulting an unspecified Type to User.
func (s *SCIMService) resolveMembers(ctx context.Context, tenant config.TenantConfig, members []models.SCIMMember) ([]models.GroupMemberRow, error) {
	out := make([]models.GroupMemberRow, 0, len(members))
	for _, m := range members {
		memberType := m.Type
		if memberType == "" {
			memberType = "User"
		}
		var exists bool
		switch memberType {
		case "Group":
			_, err := s.store.GetGroup(ctx, tenant.ID, m.Value)
			exists = err == nil
		default:
			_, err := s.store.GetUser(ctx, tenant.ID, m.Value)
			exists = err == nil
		}
		if !exists {
			return nil, models.ScimError(400, "invalidValue", "member "+m.Value+" does not exist in this tenant")
		}
		memberUUID, err := uuid.Parse(m.Value)
		if err != nil {
			return nil, models.ScimError(400, "invalidValue", "member value must be a UUID")
		}
		out = append(out, models.GroupMemberRow{
			TenantID:   tenant.ID,
			MemberID:   memberUUID,
			MemberType: memberType,
		})
	}
	return out, nil
}

// --- shared helpers ---------------------------------------------------------

func (s *SCIMService) hashIfPresent(ctx context.Context, plain string) (string, error) {
	if plain == "" {
		return "", nil
	}
	if !utils.IsPasswordValid(plain) {
		return "", models.ScimError(400, "invalidValue", "password does not meet minimum length requirements")
	}
	if s.checker != nil {
		compromised, _ := s.checker.IsCompromised(ctx, plain)
		if compromised {
			return "", models.ScimError(400, "invalidValue", "password appears in a known breach corpus")
		}
	}
	return utils.HashPassword(plain, s.argonParams)
}

func checkIfMatch(ifMatch string, currentVersion int64) error {
	if ifMatch == "" || ifMatch == "*" {
		return nil
	}
	want, ok := models.ParseVersionTag(ifMatch)
	if !ok {
		return models.ScimError(400, "invalidValue", "malformed If-Match header")
	}
	if want != currentVersion {
		return models.ErrVersionMismatch
	}
	return nil
}

func toPatchError(err error) error {
	if pe, ok := err.(*patch.PathError); ok {
		return models.ScimError(400, pe.ScimType, pe.Detail)
	}
	return err
}

