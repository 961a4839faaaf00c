package service

import (
	"github.com/scimkit/scimserver/internal/models"
	"github.com/scimkit/scimserver/internal/utils"
)

func validateUser(u *models.SCIMUser) error {
	hasUserSchema := false
	for _, s := range u.Schemas {
		if s == models.SchemaUser {
			hasUserSchema = true
		}
	}
	if !hasUserSchema {
		return models.ScimError(400, "invalidSyntax", "schemas must include "+models.SchemaUser)
	}
	if u.UserName == "" {
		return models.ScimError(400, "invalidValue", "userName is required")
	}

	for _, e := range u.Emails {
		if e.Value != "" {
			if err := utils.ValidateEmail(e.Value); err != nil {
				return models.ScimError(400, "invalidValue", "invalid email: "+err.Error())
			}
		}
	}
	if !atMostOnePrimary(u.Emails) {
		return models.ScimError(400, "invalidValue", "emails may have at most one primary entry")
	}
	if !atMostOnePrimary(u.PhoneNumbers) {
		return models.ScimError(400, "invalidValue", "phoneNumbers may have at most one primary entry")
	}
	if !atMostOnePrimary(u.Ims) {
		return models.ScimError(400, "invalidValue", "ims may have at most one primary entry")
	}
	if !atMostOneAddressPrimary(u.Addresses) {
		return models.ScimError(400, "invalidValue", "addresses may have at most one primary entry")
	}

	if !utils.IsValidLocale(u.Locale) {
		return models.ScimError(400, "invalidValue", "locale is not a valid BCP-47-like tag")
	}
	if !utils.IsValidTimezone(u.Timezone) {
		return models.ScimError(400, "invalidValue", "timezone is not a valid IANA zone name")
	}
	return nil
}

func validateGroup(g *models.SCIMGroup) error {
	hasGroupSchema := false
	for _, s := range g.Schemas {
		if s == models.SchemaGroup {
			hasGroupSchema = true
		}
	}
	if !hasGroupSchema {
		return models.ScimError(400, "invalidSyntax", "schemas must include "+models.SchemaGroup)
	}
	if g.DisplayName == "" {
		return models.ScimError(400, "invalidValue", "displayName is required")
	}
	for _, m := range g.Members {
		if m.Type != "" && m.Type != "User" && m.Type != "Group" {
			return models.ScimError(400, "invalidValue", "members[*].type must be User or Group")
		}
	}
	return nil
}

// atMostOnePrimary enforces the "no more than one primary" rule shared by
// every {value,display,type,primary} multi-valued attribute.
func atMostOnePrimary(items []models.MultiValued) bool {
	count := 0
	for _, it := range items {
		if it.Primary {
			count++
		}
	}
	return count <= 1
}

func atMostOneAddressPrimary(items []models.SCIMAddress) bool {
	count := 0
	for _, it := range items {
		if it.Primary {
			count++
		}
	}
	return count <= 1
}
