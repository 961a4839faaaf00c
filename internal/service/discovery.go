package service

import "github.com/scimkit/scimserver/internal/models"

// GetServiceProviderConfig renders the static capability document (RFC
// 7644 4): every flag here must match what the rest of this package
// actually implements.
func (s *SCIMService) GetServiceProviderConfig(baseURL string) *models.SCIMServiceProviderConfig {
	return &models.SCIMServiceProviderConfig{
		Schemas:          []string{models.SchemaServiceProvider},
		DocumentationURI: "",
		Patch:            models.SCIMFeature{Supported: true},
		Bulk:             models.SCIMBulkFeature{Supported: false, MaxOperations: 0, MaxPayloadSize: 0},
		Filter:           models.SCIMFilterFeature{Supported: true, MaxResults: 200},
		ChangePassword:   models.SCIMFeature{Supported: true},
		Sort:             models.SCIMFeature{Supported: true},
		ETag:             models.SCIMFeature{Supported: true},
		AuthenticationSchemes: []models.SCIMAuthScheme{
			{Type: "httpbasic", Name: "HTTP Basic", Description: "Authentication via the HTTP Basic scheme"},
			{Type: "oauthbearertoken", Name: "Bearer Token", Description: "Authentication via a static bearer token"},
		},
		Meta: models.SCIMMeta{
			ResourceType: "ServiceProviderConfig",
			Location:     baseURL + "/ServiceProviderConfig",
		},
	}
}

// GetResourceTypes renders the /ResourceTypes discovery listing
// (supplemented: dropped by the distillation but present in every
// compliant SCIM server).
func (s *SCIMService) GetResourceTypes(baseURL string) []*models.SCIMResourceType {
	return []*models.SCIMResourceType{
		{
			Schemas:     []string{models.SchemaResourceTypeCore},
			ID:          "User",
			Name:        "User",
			Endpoint:    "/Users",
			Description: "User Account",
			Schema:      models.SchemaUser,
			SchemaExtensions: []models.SCIMResourceTypeExtension{
				{Schema: models.SchemaEnterpriseUser, Required: false},
			},
			Meta: models.SCIMMeta{ResourceType: "ResourceType", Location: baseURL + "/ResourceTypes/User"},
		},
		{
			Schemas:     []string{models.SchemaResourceTypeCore},
			ID:          "Group",
			Name:        "Group",
			Endpoint:    "/Groups",
			Description: "Group",
			Schema:      models.SchemaGroup,
			Meta:        models.SCIMMeta{ResourceType: "ResourceType", Location: baseURL + "/ResourceTypes/Group"},
		},
	}
}

// GetSchemas renders the /Schemas discovery listing for the User and
// Group core schemas plus the enterprise extension.
func (s *SCIMService) GetSchemas(baseURL string) []*models.SCIMSchema {
	return []*models.SCIMSchema{
		userSchema(baseURL),
		groupSchema(baseURL),
		enterpriseSchema(baseURL),
	}
}

func attr(name, typ string, multi, required, caseExact bool) models.SCIMAttribute {
	return models.SCIMAttribute{
		Name:        name,
		Type:        typ,
		MultiValued: multi,
		Required:    required,
		CaseExact:   caseExact,
		Mutability:  "readWrite",
		Returned:    "default",
	}
}

func userSchema(baseURL string) *models.SCIMSchema {
	return &models.SCIMSchema{
		ID:          models.SchemaUser,
		Name:        "User",
		Description: "User Account",
		Attributes: []models.SCIMAttribute{
			attr("userName", "string", false, true, false),
			{Name: "name", Type: "complex", Mutability: "readWrite", Returned: "default", SubAttributes: []models.SCIMAttribute{
				attr("formatted", "string", false, false, false),
				attr("givenName", "string", false, false, false),
				attr("familyName", "string", false, false, false),
			}},
			attr("displayName", "string", false, false, false),
			attr("nickName", "string", false, false, false),
			attr("active", "boolean", false, false, false),
			attr("emails", "complex", true, false, false),
			attr("phoneNumbers", "complex", true, false, false),
			attr("addresses", "complex", true, false, false),
			attr("groups", "complex", true, false, false),
		},
		Meta: models.SCIMMeta{ResourceType: "Schema", Location: baseURL + "/Schemas/" + models.SchemaUser},
	}
}

func groupSchema(baseURL string) *models.SCIMSchema {
	return &models.SCIMSchema{
		ID:          models.SchemaGroup,
		Name:        "Group",
		Description: "Group",
		Attributes: []models.SCIMAttribute{
			attr("displayName", "string", false, true, false),
			{Name: "members", Type: "complex", MultiValued: true, Mutability: "readWrite", Returned: "default", SubAttributes: []models.SCIMAttribute{
				attr("value", "string", false, true, true),
				attr("type", "string", false, false, false),
			}},
		},
		Meta: models.SCIMMeta{ResourceType: "Schema", Location: baseURL + "/Schemas/" + models.SchemaGroup},
	}
}

func enterpriseSchema(baseURL string) *models.SCIMSchema {
	return &models.SCIMSchema{
		ID:          models.SchemaEnterpriseUser,
		Name:        "EnterpriseUser",
		Description: "Enterprise User extension",
		Attributes: []models.SCIMAttribute{
			attr("employeeNumber", "string", false, false, false),
			attr("costCenter", "string", false, false, false),
			attr("organization", "string", false, false, false),
			attr("division", "string", false, false, false),
			attr("department", "string", false, false, false),
			{Name: "manager", Type: "complex", Mutability: "readWrite", Returned: "default", SubAttributes: []models.SCIMAttribute{
				attr("value", "string", false, false, false),
			}},
		},
		Meta: models.SCIMMeta{ResourceType: "Schema", Location: baseURL + "/Schemas/" + models.SchemaEnterpriseUser},
	}
}
