package migrations

import (
	"context"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `
			CREATE EXTENSION IF NOT EXISTS pgcrypto;

			CREATE TABLE IF NOT EXISTS scim_users (
				id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
				tenant_id text NOT NULL,
				user_name text NOT NULL,
				external_id text,
				active boolean NOT NULL DEFAULT true,
				display_name text,
				nick_name text,
				title text,
				user_type text,
				department text,
				cost_center text,
				hire_date timestamptz,
				performance_score double precision,
				manager_level text,
				password_hash text,
				version bigint NOT NULL DEFAULT 1,
				data jsonb NOT NULL DEFAULT '{}'::jsonb,
				created_at timestamptz NOT NULL DEFAULT now(),
				updated_at timestamptz NOT NULL DEFAULT now()
			);

			CREATE UNIQUE INDEX IF NOT EXISTS scim_users_tenant_username_lower_idx
				ON scim_users (tenant_id, lower(user_name));
			CREATE UNIQUE INDEX IF NOT EXISTS scim_users_tenant_external_id_idx
				ON scim_users (tenant_id, external_id) WHERE external_id IS NOT NULL AND external_id <> '';

			CREATE TABLE IF NOT EXISTS scim_groups (
				id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
				tenant_id text NOT NULL,
				display_name text NOT NULL,
				external_id text,
				version bigint NOT NULL DEFAULT 1,
				data jsonb NOT NULL DEFAULT '{}'::jsonb,
				created_at timestamptz NOT NULL DEFAULT now(),
				updated_at timestamptz NOT NULL DEFAULT now()
			);

			CREATE UNIQUE INDEX IF NOT EXISTS scim_groups_tenant_displayname_lower_idx
				ON scim_groups (tenant_id, lower(display_name));
			CREATE UNIQUE INDEX IF NOT EXISTS scim_groups_tenant_external_id_idx
				ON scim_groups (tenant_id, external_id) WHERE external_id IS NOT NULL AND external_id <> '';

			CREATE TABLE IF NOT EXISTS scim_group_members (
				tenant_id text NOT NULL,
				group_id uuid NOT NULL REFERENCES scim_groups(id) ON DELETE CASCADE,
				member_id uuid NOT NULL,
				member_type text NOT NULL,
				PRIMARY KEY (group_id, member_id)
			);

			CREATE INDEX IF NOT EXISTS scim_group_members_member_idx
				ON scim_group_members (tenant_id, member_id);
		`)
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		_, err := db.ExecContext(ctx, `
			DROP TABLE IF EXISTS scim_group_members;
			DROP TABLE IF EXISTS scim_groups;
			DROP TABLE IF EXISTS scim_users;
		`)
		return err
	})
}
