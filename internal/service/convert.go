package service

import (
	"encoding/json"
	"time"

	"github.com/scimkit/scimserver/internal/models"
)

func userToRow(u *models.SCIMUser, tenantID, passwordHash string) (*models.UserRow, error) {
	u.Password = ""
	if len(u.Schemas) == 0 {
		u.Schemas = []string{models.SchemaUser}
	}
	raw, err := json.Marshal(u)
	if err != nil {
		return nil, err
	}

	active := true
	if u.Active != nil {
		active = *u.Active
	}
	var department, costCenter string
	if u.Enterprise != nil {
		department = u.Enterprise.Department
		costCenter = u.Enterprise.CostCenter
	}

	return &models.UserRow{
		TenantID:     tenantID,
		UserName:     u.UserName,
		ExternalID:   u.ExternalID,
		Active:       active,
		DisplayName:  u.DisplayName,
		NickName:     u.NickName,
		Title:        u.Title,
		UserType:     u.UserType,
		Department:   department,
		CostCenter:   costCenter,
		PasswordHash: passwordHash,
		Data:         raw,
	}, nil
}

func rowToUser(row *models.UserRow, baseURL string) (*models.SCIMUser, error) {
	var u models.SCIMUser
	if err := json.Unmarshal(row.Data, &u); err != nil {
		return nil, err
	}
	u.ID = row.ID.String()
	u.Password = ""
	if len(u.Schemas) == 0 {
		u.Schemas = []string{models.SchemaUser}
	}
	u.Meta = models.SCIMMeta{
		ResourceType: "User",
		Created:      row.CreatedAt.UTC().Format(time.RFC3339),
		LastModified: row.UpdatedAt.UTC().Format(time.RFC3339),
		Location:     baseURL + "/Users/" + u.ID,
		Version:      models.FormatVersion(row.Version),
	}
	return &u, nil
}

func groupToRow(g *models.SCIMGroup, tenantID string) (*models.GroupRow, error) {
	if len(g.Schemas) == 0 {
		g.Schemas = []string{models.SchemaGroup}
	}
	members := g.Members
	g.Members = nil // membership is derived from the join table on read, not stored in the document
	raw, err := json.Marshal(g)
	if err != nil {
		return nil, err
	}
	g.Members = members

	return &models.GroupRow{
		TenantID:    tenantID,
		DisplayName: g.DisplayName,
		ExternalID:  g.ExternalID,
		Data:        raw,
	}, nil
}

func rowToGroup(row *models.GroupRow, baseURL string) (*models.SCIMGroup, error) {
	var g models.SCIMGroup
	if err := json.Unmarshal(row.Data, &g); err != nil {
		return nil, err
	}
	g.ID = row.ID.String()
	if len(g.Schemas) == 0 {
		g.Schemas = []string{models.SchemaGroup}
	}
	g.Meta = models.SCIMMeta{
		ResourceType: "Group",
		Created:      row.CreatedAt.UTC().Format(time.RFC3339),
		LastModified: row.UpdatedAt.UTC().Format(time.RFC3339),
		Location:     baseURL + "/Groups/" + g.ID,
		Version:      models.FormatVersion(row.Version),
	}
	return &g, nil
}

// docToMap/mapToDoc round-trip a SCIM resource through its generic JSON
// form for the PATCH engine and the attribute projector, both of which
// operate on map[string]interface{} rather than the typed struct.
func docToMap(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func mapToUser(m map[string]interface{}) (*models.SCIMUser, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var u models.SCIMUser
	if err := json.Unmarshal(raw, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func mapToGroup(m map[string]interface{}) (*models.SCIMGroup, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var g models.SCIMGroup
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, err
	}
	return &g, nil
}
