package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/scimkit/scimserver/internal/filter"
	"github.com/scimkit/scimserver/internal/models"
	"github.com/scimkit/scimserver/internal/queryopt"
)

// ResourceStore is the storage contract C8 depends on (4.3): every method
// is tenant-scoped and every mutation is either atomic or runs inside the
// caller's transaction. A second backend (e.g. an embedded single-file
// store) could implement this interface without touching the service layer.
type ResourceStore interface {
	CreateUser(ctx context.Context, row *models.UserRow) error
	GetUser(ctx context.Context, tenantID, id string) (*models.UserRow, error)
	UpdateUser(ctx context.Context, row *models.UserRow, expectedVersion int64) error
	DeleteUser(ctx context.Context, tenantID, id string, expectedVersion int64) error
	SearchUsers(ctx context.Context, tenantID string, opts queryopt.SearchOptions) ([]*models.UserRow, int, error)

	CreateGroup(ctx context.Context, row *models.GroupRow, members []models.GroupMemberRow) error
	GetGroup(ctx context.Context, tenantID, id string) (*models.GroupRow, error)
	UpdateGroup(ctx context.Context, row *models.GroupRow, expectedVersion int64, members []models.GroupMemberRow) error
	DeleteGroup(ctx context.Context, tenantID, id string, expectedVersion int64) error
	SearchGroups(ctx context.Context, tenantID string, opts queryopt.SearchOptions) ([]*models.GroupRow, int, error)

	ListMembersForGroup(ctx context.Context, tenantID, groupID string) ([]models.GroupMemberRow, error)
	ListGroupsForMember(ctx context.Context, tenantID, memberID string) ([]models.GroupMemberRow, error)
}

// SCIMStore is the bun/Postgres implementation of ResourceStore (4.3.1).
type SCIMStore struct {
	db *Database
}

func NewSCIMStore(db *Database) *SCIMStore {
	return &SCIMStore{db: db}
}

func (s *SCIMStore) CreateUser(ctx context.Context, row *models.UserRow) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.Version = 1
	now := time.Now().UTC()
	row.CreatedAt, row.UpdatedAt = now, now

	_, err := s.db.NewInsert().Model(row).Exec(ctx)
	return handlePgError(err)
}

func (s *SCIMStore) GetUser(ctx context.Context, tenantID, id string) (*models.UserRow, error) {
	row := new(models.UserRow)
	err := s.db.NewSelect().Model(row).
		Where("tenant_id = ?", tenantID).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, handlePgError(err)
	}
	return row, nil
}

func (s *SCIMStore) UpdateUser(ctx context.Context, row *models.UserRow, expectedVersion int64) error {
	row.UpdatedAt = time.Now().UTC()
	newVersion := expectedVersion + 1

	res, err := s.db.NewUpdate().Model(row).
		Set("user_name = ?", row.UserName).
		Set("external_id = ?", row.ExternalID).
		Set("active = ?", row.Active).
		Set("display_name = ?", row.DisplayName).
		Set("nick_name = ?", row.NickName).
		Set("title = ?", row.Title).
		Set("user_type = ?", row.UserType).
		Set("department = ?", row.Department).
		Set("cost_center = ?", row.CostCenter).
		Set("hire_date = ?", row.HireDate).
		Set("performance_score = ?", row.PerformanceScore).
		Set("manager_level = ?", row.ManagerLevel).
		Set("password_hash = ?", row.PasswordHash).
		Set("data = ?", row.Data).
		Set("version = ?", newVersion).
		Set("updated_at = ?", row.UpdatedAt).
		Where("tenant_id = ?", row.TenantID).
		Where("id = ?", row.ID).
		Where("version = ?", expectedVersion).
		Exec(ctx)
	if err != nil {
		return handlePgError(err)
	}
	if err := checkVersionedResult(res, ctx, s.db, "scim_users", row.TenantID, row.ID.String()); err != nil {
		return err
	}
	row.Version = newVersion
	return nil
}

func (s *SCIMStore) DeleteUser(ctx context.Context, tenantID, id string, expectedVersion int64) error {
	return s.db.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.GroupMemberRow)(nil)).
			Where("tenant_id = ?", tenantID).
			Where("member_id = ?", id).
			Exec(ctx); err != nil {
			return handlePgError(err)
		}

		res, err := tx.NewDelete().Model((*models.UserRow)(nil)).
			Where("tenant_id = ?", tenantID).
			Where("id = ?", id).
			Where("version = ?", expectedVersion).
			Exec(ctx)
		if err != nil {
			return handlePgError(err)
		}
		return checkVersionedDelete(ctx, tx, res, "scim_users", tenantID, id)
	})
}

func (s *SCIMStore) SearchUsers(ctx context.Context, tenantID string, opts queryopt.SearchOptions) ([]*models.UserRow, int, error) {
	var rows []*models.UserRow
	q := s.db.NewSelect().Model(&rows).Where("tenant_id = ?", tenantID)

	q, err := applyFilter(q, filter.UserAttrs, opts.Filter, "data")
	if err != nil {
		return nil, 0, err
	}

	total, err := q.Clone().Count(ctx)
	if err != nil {
		return nil, 0, handlePgError(err)
	}

	q, err = applySort(q, filter.UserAttrs, opts.SortBy, opts.SortOrder, "user_name")
	if err != nil {
		return nil, 0, err
	}
	q = applyPage(q, opts)

	if opts.Count > 0 {
		if err := q.Scan(ctx); err != nil {
			return nil, 0, handlePgError(err)
		}
	}
	return rows, total, nil
}

func (s *SCIMStore) CreateGroup(ctx context.Context, row *models.GroupRow, members []models.GroupMemberRow) error {
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	row.Version = 1
	now := time.Now().UTC()
	row.CreatedAt, row.UpdatedAt = now, now
	for i := range members {
		members[i].GroupID = row.ID
	}

	return s.db.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(row).Exec(ctx); err != nil {
			return handlePgError(err)
		}
		if len(members) > 0 {
			if _, err := tx.NewInsert().Model(&members).Exec(ctx); err != nil {
				return handlePgError(err)
			}
		}
		return nil
	})
}

func (s *SCIMStore) GetGroup(ctx context.Context, tenantID, id string) (*models.GroupRow, error) {
	row := new(models.GroupRow)
	err := s.db.NewSelect().Model(row).
		Where("tenant_id = ?", tenantID).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, handlePgError(err)
	}
	return row, nil
}

func (s *SCIMStore) UpdateGroup(ctx context.Context, row *models.GroupRow, expectedVersion int64, members []models.GroupMemberRow) error {
	row.UpdatedAt = time.Now().UTC()
	newVersion := expectedVersion + 1
	for i := range members {
		members[i].GroupID = row.ID
	}

	err := s.db.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewUpdate().Model(row).
			Set("display_name = ?", row.DisplayName).
			Set("external_id = ?", row.ExternalID).
			Set("data = ?", row.Data).
			Set("version = ?", newVersion).
			Set("updated_at = ?", row.UpdatedAt).
			Where("tenant_id = ?", row.TenantID).
			Where("id = ?", row.ID).
			Where("version = ?", expectedVersion).
			Exec(ctx)
		if err != nil {
			return handlePgError(err)
		}
		if err := checkVersionedDelete(ctx, tx, res, "scim_groups", row.TenantID, row.ID.String()); err != nil {
			return err
		}

		if _, err := tx.NewDelete().Model((*models.GroupMemberRow)(nil)).
			Where("tenant_id = ?", row.TenantID).
			Where("group_id = ?", row.ID).
			Exec(ctx); err != nil {
			return handlePgError(err)
		}
		if len(members) > 0 {
			if _, err := tx.NewInsert().Model(&members).Exec(ctx); err != nil {
				return handlePgError(err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	row.Version = newVersion
	return nil
}

func (s *SCIMStore) DeleteGroup(ctx context.Context, tenantID, id string, expectedVersion int64) error {
	return s.db.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.GroupMemberRow)(nil)).
			Where("tenant_id = ?", tenantID).
			Where("group_id = ?", id).
			Exec(ctx); err != nil {
			return handlePgError(err)
		}

		res, err := tx.NewDelete().Model((*models.GroupRow)(nil)).
			Where("tenant_id = ?", tenantID).
			Where("id = ?", id).
			Where("version = ?", expectedVersion).
			Exec(ctx)
		if err != nil {
			return handlePgError(err)
		}
		return checkVersionedDelete(ctx, tx, res, "scim_groups", tenantID, id)
	})
}

func (s *SCIMStore) SearchGroups(ctx context.Context, tenantID string, opts queryopt.SearchOptions) ([]*models.GroupRow, int, error) {
	var rows []*models.GroupRow
	q := s.db.NewSelect().Model(&rows).Where("tenant_id = ?", tenantID)

	q, err := applyFilter(q, filter.GroupAttrs, opts.Filter, "data")
	if err != nil {
		return nil, 0, err
	}

	total, err := q.Clone().Count(ctx)
	if err != nil {
		return nil, 0, handlePgError(err)
	}

	q, err = applySort(q, filter.GroupAttrs, opts.SortBy, opts.SortOrder, "display_name")
	if err != nil {
		return nil, 0, err
	}
	q = applyPage(q, opts)

	if opts.Count > 0 {
		if err := q.Scan(ctx); err != nil {
			return nil, 0, handlePgError(err)
		}
	}
	return rows, total, nil
}

func (s *SCIMStore) ListMembersForGroup(ctx context.Context, tenantID, groupID string) ([]models.GroupMemberRow, error) {
	var rows []models.GroupMemberRow
	err := s.db.NewSelect().Model(&rows).
		Where("tenant_id = ?", tenantID).
		Where("group_id = ?", groupID).
		Scan(ctx)
	return rows, handlePgError(err)
}

func (s *SCIMStore) ListGroupsForMember(ctx context.Context, tenantID, memberID string) ([]models.GroupMemberRow, error) {
	var rows []models.GroupMemberRow
	err := s.db.NewSelect().Model(&rows).
		Where("tenant_id = ?", tenantID).
		Where("member_id = ?", memberID).
		Scan(ctx)
	return rows, handlePgError(err)
}

// applyFilter lowers a parsed SCIM filter into the select query's WHERE
// clause via the SQL translator (4.4), leaving the query untouched when no
// filter was supplied.
func applyFilter(q *bun.SelectQuery, attrs map[string]filter.AttrMeta, f *filter.Filter, jsonColumn string) (*bun.SelectQuery, error) {
	if f == nil {
		return q, nil
	}
	t := &filter.SQLTranslator{Attrs: attrs}
	clause, args, err := t.ToSQL(f, jsonColumn)
	if err != nil {
		return nil, models.ScimError(400, "invalidFilter", err.Error())
	}
	return q.Where(clause, args...), nil
}

// applySort resolves sortBy to a SQL expression via the attribute metadata
// table, falling back to defaultColumn when sortBy is empty.
func applySort(q *bun.SelectQuery, attrs map[string]filter.AttrMeta, sortBy string, order queryopt.SortOrder, defaultColumn string) (*bun.SelectQuery, error) {
	expr := defaultColumn
	if sortBy != "" {
		meta, ok := filter.LookupAttr(attrs, sortBy)
		if !ok {
			return nil, models.ScimError(400, "invalidFilter", fmt.Sprintf("unknown sortBy attribute %q", sortBy))
		}
		if meta.Storage == filter.StorageColumn {
			expr = meta.Column
		} else {
			expr = fmt.Sprintf("data #>> '{%s}'", strings.Join(meta.JSONPath, ","))
		}
	}
	direction := "ASC"
	if order == queryopt.SortDescending {
		direction = "DESC"
	}
	return q.OrderExpr(expr + " " + direction), nil
}

func applyPage(q *bun.SelectQuery, opts queryopt.SearchOptions) *bun.SelectQuery {
	if opts.Count <= 0 {
		return q.Limit(0)
	}
	return q.Limit(opts.Count).Offset(opts.StartIndex - 1)
}

func checkVersionedResult(res interface{ RowsAffected() (int64, error) }, ctx context.Context, db *Database, table, tenantID, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return handlePgError(err)
	}
	if n == 0 {
		exists, err := db.NewSelect().Table(table).
			Where("tenant_id = ?", tenantID).Where("id = ?", id).Exists(ctx)
		if err != nil {
			return handlePgError(err)
		}
		if !exists {
			return models.ErrNotFound
		}
		return models.ErrVersionMismatch
	}
	return nil
}

func checkVersionedDelete(ctx context.Context, tx bun.Tx, res interface{ RowsAffected() (int64, error) }, table, tenantID, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return handlePgError(err)
	}
	if n == 0 {
		exists, err := tx.NewSelect().Table(table).
			Where("tenant_id = ?", tenantID).Where("id = ?", id).Exists(ctx)
		if err != nil {
			return handlePgError(err)
		}
		if !exists {
			return models.ErrNotFound
		}
		return models.ErrVersionMismatch
	}
	return nil
}
