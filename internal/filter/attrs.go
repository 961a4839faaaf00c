package filter

import "strings"

// StorageKind distinguishes a typed SQL column from a JSON-document path.
type StorageKind int

const (
	StorageColumn StorageKind = iota
	StorageJSON
)

// AttrType drives comparison semantics (numeric vs lexical, bool parsing).
type AttrType int

const (
	TypeString AttrType = iota
	TypeNumber
	TypeBool
	TypeDate
)

// CaseRule controls whether string comparisons fold case.
type CaseRule int

const (
	CaseInsensitive CaseRule = iota
	CaseExact
)

// AttrMeta is one row of the static attribute metadata table: new
// attributes are data, not code, for both executors.
type AttrMeta struct {
	Storage  StorageKind
	Column   string   // set when Storage == StorageColumn
	JSONPath []string // set when Storage == StorageJSON; path segments under `data`
	Case     CaseRule
	Type     AttrType
	// MultiValued marks an attribute addressed as attr.sub over a JSON
	// array (e.g. emails.value); translators existentially quantify it.
	MultiValued bool
}

// UserAttrs is the attribute metadata table for the User resource.
var UserAttrs = map[string]AttrMeta{
	"username":    {Storage: StorageColumn, Column: "user_name", Case: CaseInsensitive, Type: TypeString},
	"externalid":  {Storage: StorageColumn, Column: "external_id", Case: CaseExact, Type: TypeString},
	"active":      {Storage: StorageColumn, Column: "active", Case: CaseExact, Type: TypeBool},
	"displayname": {Storage: StorageColumn, Column: "display_name", Case: CaseInsensitive, Type: TypeString},
	"nickname":    {Storage: StorageColumn, Column: "nick_name", Case: CaseInsensitive, Type: TypeString},
	"title":       {Storage: StorageColumn, Column: "title", Case: CaseInsensitive, Type: TypeString},
	"usertype":    {Storage: StorageColumn, Column: "user_type", Case: CaseInsensitive, Type: TypeString},

	"name.givenname":  {Storage: StorageJSON, JSONPath: []string{"name", "givenName"}, Case: CaseInsensitive, Type: TypeString},
	"name.familyname": {Storage: StorageJSON, JSONPath: []string{"name", "familyName"}, Case: CaseInsensitive, Type: TypeString},
	"name.formatted":  {Storage: StorageJSON, JSONPath: []string{"name", "formatted"}, Case: CaseInsensitive, Type: TypeString},

	"emails.value":        {Storage: StorageJSON, JSONPath: []string{"emails"}, Case: CaseInsensitive, Type: TypeString, MultiValued: true},
	"phonenumbers.value":  {Storage: StorageJSON, JSONPath: []string{"phoneNumbers"}, Case: CaseInsensitive, Type: TypeString, MultiValued: true},
	"roles.value":         {Storage: StorageJSON, JSONPath: []string{"roles"}, Case: CaseInsensitive, Type: TypeString, MultiValued: true},
	"entitlements.value":  {Storage: StorageJSON, JSONPath: []string{"entitlements"}, Case: CaseInsensitive, Type: TypeString, MultiValued: true},

	"urn:ietf:params:scim:schemas:extension:enterprise:2.0:user:department":      {Storage: StorageColumn, Column: "department", Case: CaseInsensitive, Type: TypeString},
	"urn:ietf:params:scim:schemas:extension:enterprise:2.0:user:costcenter":      {Storage: StorageColumn, Column: "cost_center", Case: CaseInsensitive, Type: TypeString},
	"urn:ietf:params:scim:schemas:extension:enterprise:2.0:user:employeenumber":  {Storage: StorageJSON, JSONPath: []string{"employeeNumber"}, Case: CaseExact, Type: TypeString},
}

// GroupAttrs is the attribute metadata table for the Group resource.
var GroupAttrs = map[string]AttrMeta{
	"displayname":       {Storage: StorageColumn, Column: "display_name", Case: CaseInsensitive, Type: TypeString},
	"externalid":        {Storage: StorageColumn, Column: "external_id", Case: CaseExact, Type: TypeString},
	"members.value":     {Storage: StorageJSON, JSONPath: []string{"members"}, Case: CaseExact, Type: TypeString, MultiValued: true},
	"members.display":   {Storage: StorageJSON, JSONPath: []string{"members"}, Case: CaseInsensitive, Type: TypeString, MultiValued: true},
}

// NormalizeAttr lowercases an attrPath for metadata-table lookup; a schema
// URN prefix is lowercased along with the rest, so URN lookups are
// case-insensitive too.
func NormalizeAttr(attr string) string {
	return strings.ToLower(attr)
}

func LookupAttr(table map[string]AttrMeta, attr string) (AttrMeta, bool) {
	m, ok := table[NormalizeAttr(attr)]
	return m, ok
}
