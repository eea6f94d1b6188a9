package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/PortNumber53/ppp-dashboard/backend/internal/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return &Store{db: db}, mock
}

func TestNewStoreValidation(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("expected error when db is nil")
	}
}

func TestGetUserSubscriptionSuccess(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "clerk_user_id", "tier",
		"stripe_customer_id", "stripe_subscription_id", "stripe_subscription_item_id",
		"created_at", "updated_at",
	}).AddRow("sub-1", "user_1", "Basic", "cus_1", nil, nil, now, now)

	mock.ExpectQuery(`SELECT\s+id::text, clerk_user_id, tier`).WithArgs("user_1").WillReturnRows(rows)

	sub, err := s.GetUserSubscription(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("GetUserSubscription returned error: %v", err)
	}
	if sub == nil {
		t.Fatal("expected subscription")
	}
	if sub.Tier != models.TierBasic {
		t.Fatalf("unexpected tier %q", sub.Tier)
	}
	if sub.StripeCustomerID == nil || *sub.StripeCustomerID != "cus_1" {
		t.Fatalf("unexpected customer id %v", sub.StripeCustomerID)
	}
	if sub.StripeSubscriptionID != nil || sub.StripeSubscriptionItemID != nil {
		t.Fatal("expected null subscription ids to stay nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetUserSubscriptionNoRows(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM user_subscriptions`).WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	sub, err := s.GetUserSubscription(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if sub != nil {
		t.Fatalf("expected nil subscription, got %+v", sub)
	}
}

func TestGetUserSubscriptionQueryError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(`FROM user_subscriptions`).WithArgs("user_1").WillReturnError(errors.New("boom"))

	if _, err := s.GetUserSubscription(context.Background(), "user_1"); err == nil {
		t.Fatal("expected error when query fails")
	}
}

func TestCreateUserSubscription(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO user_subscriptions \(clerk_user_id, tier\)`).
		WithArgs("user_1", "Free").
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := s.CreateUserSubscription(context.Background(), "user_1", models.TierFree); err != nil {
		t.Fatalf("CreateUserSubscription returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateSubscriptionByCustomerIDBuildsPartialUpdate(t *testing.T) {
	s, mock := newMockStore(t)

	tier := models.TierFree
	update := models.SubscriptionUpdate{
		Tier:                     &tier,
		StripeSubscriptionID:     models.ClearString(),
		StripeSubscriptionItemID: models.ClearString(),
	}

	query := regexp.QuoteMeta(`UPDATE user_subscriptions SET tier = $1, stripe_subscription_id = $2, stripe_subscription_item_id = $3, updated_at = now() WHERE stripe_customer_id = $4`)
	mock.ExpectExec(query).
		WithArgs("Free", nil, nil, "cus_1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := s.UpdateSubscriptionByCustomerID(context.Background(), "cus_1", update); err != nil {
		t.Fatalf("UpdateSubscriptionByCustomerID returned error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateSubscriptionByUserIDNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	update := models.SubscriptionUpdate{StripeCustomerID: models.SetString("cus_2")}

	mock.ExpectExec(regexp.QuoteMeta(`SET stripe_customer_id = $1, updated_at = now() WHERE clerk_user_id = $2`)).
		WithArgs("cus_2", "user_9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateSubscriptionByUserID(context.Background(), "user_9", update)
	if !errors.Is(err, ErrSubscriptionNotFound) {
		t.Fatalf("expected ErrSubscriptionNotFound, got %v", err)
	}
}

func TestUpdateSubscriptionEmptyUpdateIsNoop(t *testing.T) {
	s, mock := newMockStore(t)

	if err := s.UpdateSubscriptionByUserID(context.Background(), "user_1", models.SubscriptionUpdate{}); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected database call: %v", err)
	}
}

func TestListProducts(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "clerk_user_id", "name", "url", "description", "created_at"}).
		AddRow("p1", "user_1", "Course", "https://course.example.com", nil, now).
		AddRow("p2", "user_1", "Ebook", "https://ebook.example.com", "PDF", now)

	mock.ExpectQuery(`FROM products\s+WHERE clerk_user_id = \$1`).WithArgs("user_1").WillReturnRows(rows)

	products, err := s.ListProducts(context.Background(), "user_1")
	if err != nil {
		t.Fatalf("ListProducts returned error: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	if products[0].Description != nil {
		t.Fatal("expected nil description for first product")
	}
	if products[1].Description == nil || *products[1].Description != "PDF" {
		t.Fatalf("unexpected description %v", products[1].Description)
	}
}
