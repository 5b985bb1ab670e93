package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/Stefs-2142/ai-engineering-bootcamp/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*ProductRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ProductRepository{db: db}, mock, func() { _ = db.Close() }
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

func TestSelectCandidateIDsAppliesAllFilters(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(`SELECT DISTINCT parent_asin FROM products WHERE parent_asin IS NOT NULL AND price >= \$1 AND price <= \$2 AND average_rating >= \$3 AND main_category ILIKE \$4 LIMIT \$5`).
		WithArgs(10.0, 50.0, 4.0, "%Kitchen%", 100).
		WillReturnRows(sqlmock.NewRows([]string{"parent_asin"}).AddRow("B01").AddRow("B02"))

	ids, err := repo.SelectCandidateIDs(context.Background(), domain.QueryFilters{
		MinPrice:  floatPtr(10),
		MaxPrice:  floatPtr(50),
		MinRating: floatPtr(4),
		Category:  strPtr("Kitchen"),
	}, 100)
	if err != nil {
		t.Fatalf("SelectCandidateIDs() error = %v", err)
	}
	if len(ids) != 2 || ids[0] != "B01" || ids[1] != "B02" {
		t.Errorf("ids = %v", ids)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSelectCandidateIDsWithoutFiltersOnlyRequiresASIN(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(`SELECT DISTINCT parent_asin FROM products WHERE parent_asin IS NOT NULL LIMIT \$1`).
		WithArgs(100).
		WillReturnRows(sqlmock.NewRows([]string{"parent_asin"}).AddRow("B03"))

	ids, err := repo.SelectCandidateIDs(context.Background(), domain.QueryFilters{}, 100)
	if err != nil {
		t.Fatalf("SelectCandidateIDs() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != "B03" {
		t.Errorf("ids = %v", ids)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSelectCandidateIDsEmptyMatchReturnsEmptySlice(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(`SELECT DISTINCT parent_asin FROM products`).
		WithArgs(250.0, 100).
		WillReturnRows(sqlmock.NewRows([]string{"parent_asin"}))

	ids, err := repo.SelectCandidateIDs(context.Background(), domain.QueryFilters{
		MinPrice: floatPtr(250),
	}, 100)
	if err != nil {
		t.Fatalf("SelectCandidateIDs() error = %v", err)
	}
	if ids == nil || len(ids) != 0 {
		t.Errorf("ids = %v, want empty non-nil slice", ids)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestQueryRowsMapsColumnsAndDecodesBytes(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"title", "price"}).
		AddRow([]byte("Espresso Machine"), 129.99).
		AddRow([]byte("Drip Brewer"), 49.5)
	mock.ExpectQuery(`SELECT title, price FROM products`).WillReturnRows(rows)

	got, err := repo.QueryRows(context.Background(), "SELECT title, price FROM products ORDER BY price DESC")
	if err != nil {
		t.Fatalf("QueryRows() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d rows, want 2", len(got))
	}
	if got[0]["title"] != "Espresso Machine" {
		t.Errorf("title = %v (%T), want string", got[0]["title"], got[0]["title"])
	}
	if got[1]["price"] != 49.5 {
		t.Errorf("price = %v", got[1]["price"])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestQueryRowsSurfacesExecutionError(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery(`SELECT bogus`).WillReturnError(errors.New(`column "bogus" does not exist`))

	_, err := repo.QueryRows(context.Background(), "SELECT bogus FROM products")
	if err == nil {
		t.Fatal("expected error")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
