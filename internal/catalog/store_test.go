package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestActiveReturnsService(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "name", "category", "description", "duration_minutes", "is_active"}).
		AddRow("deep_cleaning", "Deep Cleaning", "Hygiene", "Full scale and polish", 45, true)
	mock.ExpectQuery("SELECT id, name, category, description, duration_minutes, is_active").
		WithArgs("deep_cleaning").
		WillReturnRows(rows)

	store := NewStore(db)
	svc, err := store.Active(context.Background(), "deep_cleaning")
	if err != nil {
		t.Fatalf("Active returned error: %v", err)
	}
	if svc.DurationMinutes != 45 {
		t.Fatalf("expected duration 45, got %d", svc.DurationMinutes)
	}
	if svc.Name != "Deep Cleaning" {
		t.Fatalf("unexpected name %q", svc.Name)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestActiveUnknownServiceMapsToNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT id, name, category, description, duration_minutes, is_active").
		WithArgs("retired_service").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "category", "description", "duration_minutes", "is_active"}))

	store := NewStore(db)
	_, err = store.Active(context.Background(), "retired_service")
	if !errors.Is(err, ErrServiceNotFound) {
		t.Fatalf("expected ErrServiceNotFound, got %v", err)
	}
}

func TestListActiveOrdersByCategoryThenName(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"id", "name", "category", "description", "duration_minutes", "is_active"}).
		AddRow("checkup", "Checkup", "General", "Routine exam", 30, true).
		AddRow("whitening", "Whitening", "Cosmetic", "Teeth whitening", 60, true)
	mock.ExpectQuery("ORDER BY category, name").WillReturnRows(rows)

	store := NewStore(db)
	services, err := store.ListActive(context.Background())
	if err != nil {
		t.Fatalf("ListActive returned error: %v", err)
	}
	if len(services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(services))
	}
	if services[0].ID != "checkup" || services[1].ID != "whitening" {
		t.Fatalf("unexpected ordering: %+v", services)
	}
}
