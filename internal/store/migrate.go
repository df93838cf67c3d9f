package store

import (
	"context"
	"fmt"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	tableUsers       = "users"
	tableChildren    = "children"
	tableAssessments = "assessments"
	tableLLMEvents   = "llm_request_events"
)

var (
	usersColumns = []*schema.Column{
		{Name: "uid", Type: field.TypeString},
		{Name: "email", Type: field.TypeString, Unique: true},
		{Name: "role", Type: field.TypeString},
		{Name: "name", Type: field.TypeString, Default: ""},
		{Name: "phone", Type: field.TypeString, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	usersTable = &schema.Table{
		Name:       tableUsers,
		Columns:    usersColumns,
		PrimaryKey: []*schema.Column{usersColumns[0]},
	}

	childrenColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "parent_id", Type: field.TypeString},
		{Name: "name", Type: field.TypeString},
		{Name: "age", Type: field.TypeInt},
		{Name: "grade", Type: field.TypeString, Default: ""},
		{Name: "date_of_birth", Type: field.TypeString, Default: ""},
		{Name: "created_at", Type: field.TypeTime},
	}
	childrenTable = &schema.Table{
		Name:       tableChildren,
		Columns:    childrenColumns,
		PrimaryKey: []*schema.Column{childrenColumns[0]},
		Indexes: []*schema.Index{
			{Name: "child_parent_id", Columns: []*schema.Column{childrenColumns[1]}},
		},
	}

	assessmentsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeString},
		{Name: "child_id", Type: field.TypeString},
		{Name: "created_by", Type: field.TypeString},
		{Name: "status", Type: field.TypeString},
		{Name: "parent_responses", Type: field.TypeString, Default: "{}"},
		{Name: "teacher_responses", Type: field.TypeString, Default: "{}"},
		{Name: "results", Type: field.TypeString, Nullable: true},
		{Name: "created_at", Type: field.TypeTime},
		{Name: "updated_at", Type: field.TypeTime},
		{Name: "analyzed_at", Type: field.TypeTime, Nullable: true},
	}
	assessmentsTable = &schema.Table{
		Name:       tableAssessments,
		Columns:    assessmentsColumns,
		PrimaryKey: []*schema.Column{assessmentsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "assessments_children_assessments",
				Columns:    []*schema.Column{assessmentsColumns[1]},
				RefColumns: []*schema.Column{childrenColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{Name: "assessment_child_id_created_at", Columns: []*schema.Column{assessmentsColumns[1], assessmentsColumns[7]}},
			{Name: "assessment_status", Columns: []*schema.Column{assessmentsColumns[3]}},
		},
	}

	llmEventsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeInt, Increment: true},
		{Name: "timestamp", Type: field.TypeTime},
		{Name: "provider", Type: field.TypeString},
		{Name: "model", Type: field.TypeString},
		{Name: "purpose", Type: field.TypeString},
		{Name: "input_tokens", Type: field.TypeInt, Default: 0},
		{Name: "output_tokens", Type: field.TypeInt, Default: 0},
		{Name: "latency_ms", Type: field.TypeInt64, Default: 0},
		{Name: "success", Type: field.TypeBool},
		{Name: "error_message", Type: field.TypeString, Default: ""},
		{Name: "request_body", Type: field.TypeString, Default: ""},
		{Name: "response_body", Type: field.TypeString, Default: ""},
	}
	llmEventsTable = &schema.Table{
		Name:       tableLLMEvents,
		Columns:    llmEventsColumns,
		PrimaryKey: []*schema.Column{llmEventsColumns[0]},
		Indexes: []*schema.Index{
			{Name: "llmrequestevent_timestamp", Columns: []*schema.Column{llmEventsColumns[1]}},
			{Name: "llmrequestevent_purpose", Columns: []*schema.Column{llmEventsColumns[4]}},
			{Name: "llmrequestevent_success", Columns: []*schema.Column{llmEventsColumns[8]}},
		},
	}

	tables = []*schema.Table{
		usersTable,
		childrenTable,
		assessmentsTable,
		llmEventsTable,
	}
)

func init() {
	assessmentsTable.ForeignKeys[0].RefTable = childrenTable
}

// migrate creates or upgrades the schema in place.
func migrate(ctx context.Context, drv dialect.Driver) error {
	m, err := schema.NewMigrate(drv)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	if err := m.Create(ctx, tables...); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}
