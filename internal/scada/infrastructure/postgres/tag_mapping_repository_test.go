package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	scada "wellpulse/internal/scada/domain"
)

func newTagMappingMock(t *testing.T) (*TagMappingRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTagMappingRepository(db), mock
}

func testMapping(t *testing.T, id, nodeID string, property scada.FieldProperty) *scada.TagMapping {
	t.Helper()
	config, err := scada.NewTagConfig(nodeID, "casing_pressure", property, scada.DataTypeFloat, "psi", nil, nil)
	if err != nil {
		t.Fatalf("config: %v", err)
	}
	return scada.NewTagMapping(id, "tenant-1", "conn-1", config, "user-1", time.Now())
}

func TestTagMappingRepository_SaveManyCommits(t *testing.T) {
	repo, mock := newTagMappingMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO tag_mappings`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO tag_mappings`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	mappings := []*scada.TagMapping{
		testMapping(t, "tag-1", "ns=2;s=Well23H.Casing.Pressure", scada.FieldCasingPressure),
		testMapping(t, "tag-2", "ns=2;s=Well23H.Tubing.Pressure", scada.FieldTubingPressure),
	}
	if err := repo.SaveMany(context.Background(), mappings); err != nil {
		t.Fatalf("save many: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTagMappingRepository_SaveManyRollsBackOnViolation(t *testing.T) {
	repo, mock := newTagMappingMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO tag_mappings`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO tag_mappings`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "tag_mappings_tenant_conn_node_key"})
	mock.ExpectRollback()

	mappings := []*scada.TagMapping{
		testMapping(t, "tag-1", "ns=2;s=Well23H.Casing.Pressure", scada.FieldCasingPressure),
		testMapping(t, "tag-2", "ns=2;s=Well23H.Casing.Pressure", scada.FieldTubingPressure),
	}
	err := repo.SaveMany(context.Background(), mappings)
	if !errors.Is(err, scada.ErrDuplicateInConnection) {
		t.Fatalf("expected ErrDuplicateInConnection, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTagMappingRepository_SaveTranslatesTagNameCollision(t *testing.T) {
	repo, mock := newTagMappingMock(t)

	// A persisted tag-name collision has no workflow pre-check; the unique
	// constraint is the only guard, so its violation must map to the same
	// duplicate error the other checks produce.
	mock.ExpectExec(`INSERT INTO tag_mappings`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "tag_mappings_tenant_conn_tag_name_key"})

	mapping := testMapping(t, "tag-1", "ns=2;s=Well23H.Casing.Pressure", scada.FieldCasingPressure)
	err := repo.Save(context.Background(), mapping)
	if !errors.Is(err, scada.ErrDuplicateInConnection) {
		t.Fatalf("expected ErrDuplicateInConnection, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestTagMappingRepository_ListByConnection(t *testing.T) {
	repo, mock := newTagMappingMock(t)
	now := time.Date(2026, 8, 15, 10, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows([]string{
		"id", "tenant_id", "connection_id", "node_id", "tag_name",
		"field_property", "data_type", "unit", "scaling_factor", "deadband", "enabled",
		"last_value_kind", "last_value_numeric", "last_value_text", "last_value_bool",
		"last_read_at", "created_at", "updated_at", "created_by", "updated_by",
	}).AddRow(
		"tag-1", "tenant-1", "conn-1", "ns=2;s=Well23H.Casing.Pressure", "casing_pressure",
		"casingPressure", "Float", "psi", 1.0, nil, true,
		"numeric", 850.0, nil, nil,
		now, now, now, "user-1", "user-1",
	)
	mock.ExpectQuery(`SELECT .+ FROM tag_mappings\s+WHERE tenant_id = \$1 AND connection_id = \$2`).
		WithArgs("tenant-1", "conn-1").
		WillReturnRows(rows)

	mappings, err := repo.ListByConnection(context.Background(), "tenant-1", "conn-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(mappings) != 1 {
		t.Fatalf("expected 1 mapping, got %d", len(mappings))
	}
	if got, ok := mappings[0].LastValue.Numeric(); !ok || got != 850 {
		t.Fatalf("expected numeric last value 850, got %v", mappings[0].LastValue)
	}
	if mappings[0].Config.Deadband != nil {
		t.Fatalf("expected nil deadband, got %v", *mappings[0].Config.Deadband)
	}
}
