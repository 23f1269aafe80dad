package db

import (
	"context"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/entsql"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

func idColumn() *schema.Column {
	return &schema.Column{Name: "id", Type: field.TypeString, Size: 36}
}

func refColumn(name string) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeString, Size: 36}
}

func textColumn(name string, size int64) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeString, Size: size, Default: ""}
}

func timeColumn(name string) *schema.Column {
	return &schema.Column{Name: name, Type: field.TypeTime}
}

var (
	AccountsColumns = []*schema.Column{
		idColumn(),
		{Name: "email", Type: field.TypeString, Size: 255, Unique: true},
		textColumn("name", 255),
		textColumn("password_hash", 255),
		{Name: "status", Type: field.TypeString, Size: 16, Default: "ACTIVE"},
		timeColumn("created_at"),
	}
	AccountsTable = &schema.Table{
		Name:       "accounts",
		Columns:    AccountsColumns,
		PrimaryKey: []*schema.Column{AccountsColumns[0]},
	}

	UserSessionsColumns = []*schema.Column{
		idColumn(),
		refColumn("account_id"),
		{Name: "status", Type: field.TypeString, Size: 16},
		textColumn("user_ip", 64),
		textColumn("user_agent", 512),
		timeColumn("created_at"),
		timeColumn("updated_at"),
		timeColumn("expire_at"),
	}
	UserSessionsTable = &schema.Table{
		Name:       "user_sessions",
		Columns:    UserSessionsColumns,
		PrimaryKey: []*schema.Column{UserSessionsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "usersession_account_id_status", Columns: []*schema.Column{UserSessionsColumns[1], UserSessionsColumns[2]}},
		},
	}

	OrgsColumns = []*schema.Column{
		idColumn(),
		{Name: "name", Type: field.TypeString, Size: 255},
		textColumn("timezone", 64),
		{Name: "status", Type: field.TypeString, Size: 16, Default: "ACTIVE"},
		{Name: "billing_plan", Type: field.TypeString, Size: 32, Default: "FREE"},
		timeColumn("created_at"),
		timeColumn("updated_at"),
	}
	OrgsTable = &schema.Table{
		Name:       "orgs",
		Columns:    OrgsColumns,
		PrimaryKey: []*schema.Column{OrgsColumns[0]},
	}

	OrgUsersColumns = []*schema.Column{
		idColumn(),
		refColumn("org_id"),
		refColumn("account_id"),
		{Name: "role", Type: field.TypeString, Size: 16},
		{Name: "status", Type: field.TypeString, Size: 16},
		timeColumn("created_at"),
	}
	OrgUsersTable = &schema.Table{
		Name:       "org_users",
		Columns:    OrgUsersColumns,
		PrimaryKey: []*schema.Column{OrgUsersColumns[0]},
		Indexes: []*schema.Index{
			{Name: "orguser_org_id_account_id", Unique: true, Columns: []*schema.Column{OrgUsersColumns[1], OrgUsersColumns[2]}},
			{Name: "orguser_account_id", Columns: []*schema.Column{OrgUsersColumns[2]}},
		},
	}

	OrgInvitesColumns = []*schema.Column{
		idColumn(),
		refColumn("org_id"),
		{Name: "email", Type: field.TypeString, Size: 255},
		{Name: "status", Type: field.TypeString, Size: 16},
		timeColumn("expire_at"),
		timeColumn("created_at"),
	}
	OrgInvitesTable = &schema.Table{
		Name:       "org_invites",
		Columns:    OrgInvitesColumns,
		PrimaryKey: []*schema.Column{OrgInvitesColumns[0]},
		Indexes: []*schema.Index{
			{Name: "orginvite_org_id_email", Columns: []*schema.Column{OrgInvitesColumns[1], OrgInvitesColumns[2]}},
		},
	}

	ChannelsColumns = []*schema.Column{
		idColumn(),
		refColumn("org_id"),
		refColumn("account_id"),
		{Name: "name", Type: field.TypeString, Size: 255},
		timeColumn("created_at"),
	}
	ChannelsTable = &schema.Table{
		Name:       "channels",
		Columns:    ChannelsColumns,
		PrimaryKey: []*schema.Column{ChannelsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "channel_org_id", Columns: []*schema.Column{ChannelsColumns[1]}},
		},
	}

	APIKeysColumns = []*schema.Column{
		idColumn(),
		refColumn("channel_id"),
		{Name: "status", Type: field.TypeString, Size: 16},
		timeColumn("created_at"),
	}
	APIKeysTable = &schema.Table{
		Name:       "api_keys",
		Columns:    APIKeysColumns,
		PrimaryKey: []*schema.Column{APIKeysColumns[0]},
		Indexes: []*schema.Index{
			{
				Name:       "apikey_channel_id_active",
				Unique:     true,
				Columns:    []*schema.Column{APIKeysColumns[1]},
				Annotation: &entsql.IndexAnnotation{Where: "status = 'ACTIVE'"},
			},
			{Name: "apikey_channel_id", Columns: []*schema.Column{APIKeysColumns[1]}},
		},
	}

	VisitorsColumns = []*schema.Column{
		idColumn(),
		refColumn("channel_id"),
		refColumn("org_id"),
		{Name: "type", Type: field.TypeString, Size: 16},
		textColumn("email", 255),
		textColumn("phone", 64),
		textColumn("client_uid", 255),
		{Name: "version", Type: field.TypeInt64, Default: 1},
		timeColumn("created_at"),
		timeColumn("updated_at"),
	}
	VisitorsTable = &schema.Table{
		Name:       "visitors",
		Columns:    VisitorsColumns,
		PrimaryKey: []*schema.Column{VisitorsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "visitor_channel_id", Columns: []*schema.Column{VisitorsColumns[1]}},
		},
	}

	VisitorIdentityHistoryColumns = []*schema.Column{
		idColumn(),
		refColumn("visitor_id"),
		{Name: "kind", Type: field.TypeString, Size: 16},
		{Name: "value", Type: field.TypeString, Size: 255},
		timeColumn("created_at"),
	}
	VisitorIdentityHistoryTable = &schema.Table{
		Name:       "visitor_identity_history",
		Columns:    VisitorIdentityHistoryColumns,
		PrimaryKey: []*schema.Column{VisitorIdentityHistoryColumns[0]},
		Indexes: []*schema.Index{
			{Name: "visitorhistory_visitor_id", Columns: []*schema.Column{VisitorIdentityHistoryColumns[1]}},
		},
	}

	EventsColumns = []*schema.Column{
		idColumn(),
		{Name: "name", Type: field.TypeString, Size: 255},
		refColumn("visitor_id"),
		refColumn("channel_id"),
		textColumn("user_ip", 64),
		{Name: "user_agent", Type: field.TypeString, Size: 1024, Default: ""},
		textColumn("browser", 128),
		textColumn("os", 128),
		textColumn("device", 32),
		{Name: "value", Type: field.TypeFloat64, Nullable: true},
		timeColumn("created_at"),
	}
	EventsTable = &schema.Table{
		Name:       "events",
		Columns:    EventsColumns,
		PrimaryKey: []*schema.Column{EventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "event_channel_id_created_at", Columns: []*schema.Column{EventsColumns[3], EventsColumns[10]}},
			{Name: "event_visitor_id", Columns: []*schema.Column{EventsColumns[2]}},
		},
	}

	EventAttributesColumns = []*schema.Column{
		idColumn(),
		refColumn("org_id"),
		refColumn("event_id"),
		refColumn("visitor_id"),
		{Name: "key", Type: field.TypeString, Size: 255},
		{Name: "value", Type: field.TypeString, Size: 2048},
		timeColumn("created_at"),
	}
	EventAttributesTable = &schema.Table{
		Name:       "event_attributes",
		Columns:    EventAttributesColumns,
		PrimaryKey: []*schema.Column{EventAttributesColumns[0]},
		Indexes: []*schema.Index{
			{Name: "eventattribute_event_id", Columns: []*schema.Column{EventAttributesColumns[2]}},
			{Name: "eventattribute_org_id_key", Columns: []*schema.Column{EventAttributesColumns[1], EventAttributesColumns[4]}},
		},
	}

	// Tables holds every table the service owns, in creation order.
	Tables = []*schema.Table{
		AccountsTable,
		UserSessionsTable,
		OrgsTable,
		OrgUsersTable,
		OrgInvitesTable,
		ChannelsTable,
		APIKeysTable,
		VisitorsTable,
		VisitorIdentityHistoryTable,
		EventsTable,
		EventAttributesTable,
	}
)

// Migrate creates or updates all tables. References between tables are by id only, no foreign keys.
func Migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv, schema.WithForeignKeys(false))
	if err != nil {
		return err
	}
	if err := m.Create(ctx, Tables...); err != nil {
		return err
	}
	dbLogger.Sugar().Debugf("schema migrated: %d tables", len(Tables))
	return nil
}
