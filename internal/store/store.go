package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/PortNumber53/ppp-dashboard/backend/internal/models"
)

const subscriptionsTable = "user_subscriptions"

// ErrSubscriptionNotFound is returned when an update matches no subscription row.
var ErrSubscriptionNotFound = errors.New("subscription not found")

// Store provides database-backed accessors for application data.
type Store struct {
	db *sql.DB
}

// New creates a Store using the provided sql.DB connection.
func New(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, errors.New("db cannot be nil")
	}
	return &Store{db: db}, nil
}

// GetUserSubscription returns the subscription owned by the given auth-provider
// user, or nil when the user has no subscription record.
func (s *Store) GetUserSubscription(ctx context.Context, userID string) (*models.Subscription, error) {
	query := fmt.Sprintf(`
SELECT
	id::text, clerk_user_id, tier,
	stripe_customer_id, stripe_subscription_id, stripe_subscription_item_id,
	created_at, updated_at
FROM %s
WHERE clerk_user_id = $1
LIMIT 1
`, subscriptionsTable)

	var (
		sub            models.Subscription
		tier           string
		customerID     sql.NullString
		subscriptionID sql.NullString
		itemID         sql.NullString
	)
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&sub.ID,
		&sub.UserID,
		&tier,
		&customerID,
		&subscriptionID,
		&itemID,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user subscription: %w", err)
	}

	sub.Tier = models.TierName(tier)
	sub.StripeCustomerID = nullStringPtr(customerID)
	sub.StripeSubscriptionID = nullStringPtr(subscriptionID)
	sub.StripeSubscriptionItemID = nullStringPtr(itemID)

	return &sub, nil
}

// CreateUserSubscription inserts a subscription for a newly registered user.
// An existing row for the same user is left untouched.
func (s *Store) CreateUserSubscription(ctx context.Context, userID string, tier models.TierName) error {
	if userID == "" {
		return errors.New("store: user id is required")
	}

	query := fmt.Sprintf(`
INSERT INTO %s (clerk_user_id, tier)
VALUES ($1, $2)
ON CONFLICT (clerk_user_id) DO NOTHING
`, subscriptionsTable)

	if _, err := s.db.ExecContext(ctx, query, userID, string(tier)); err != nil {
		return fmt.Errorf("store: create user subscription: %w", err)
	}
	return nil
}

// UpdateSubscriptionByUserID applies a partial update to the user's subscription.
func (s *Store) UpdateSubscriptionByUserID(ctx context.Context, userID string, update models.SubscriptionUpdate) error {
	return s.updateSubscription(ctx, "clerk_user_id", userID, update)
}

// UpdateSubscriptionByCustomerID applies a partial update to the subscription
// billed to the given Stripe customer.
func (s *Store) UpdateSubscriptionByCustomerID(ctx context.Context, customerID string, update models.SubscriptionUpdate) error {
	return s.updateSubscription(ctx, "stripe_customer_id", customerID, update)
}

func (s *Store) updateSubscription(ctx context.Context, column, key string, update models.SubscriptionUpdate) error {
	if key == "" {
		return fmt.Errorf("store: update subscription: empty %s", column)
	}
	if update.Empty() {
		return nil
	}

	var (
		sets []string
		args []any
	)
	add := func(col string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if update.Tier != nil {
		add("tier", string(*update.Tier))
	}
	if update.StripeCustomerID.Set {
		add("stripe_customer_id", update.StripeCustomerID.Value)
	}
	if update.StripeSubscriptionID.Set {
		add("stripe_subscription_id", update.StripeSubscriptionID.Value)
	}
	if update.StripeSubscriptionItemID.Set {
		add("stripe_subscription_item_id", update.StripeSubscriptionItemID.Value)
	}
	args = append(args, key)

	query := fmt.Sprintf(`UPDATE %s SET %s, updated_at = now() WHERE %s = $%d`,
		subscriptionsTable, strings.Join(sets, ", "), column, len(args))

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("store: update subscription by %s: %w", column, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: update subscription rows affected: %w", err)
	}
	if n == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

// ListProducts returns the user's products, newest first.
func (s *Store) ListProducts(ctx context.Context, userID string) ([]models.Product, error) {
	query := `
SELECT id::text, clerk_user_id, name, url, description, created_at
FROM products
WHERE clerk_user_id = $1
ORDER BY created_at DESC
`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("store: list products: %w", err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var (
			p           models.Product
			description sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.URL, &description, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan product: %w", err)
		}
		p.Description = nullStringPtr(description)
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: iterate products: %w", err)
	}

	return products, nil
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}
