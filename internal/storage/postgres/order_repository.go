package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

const orderColumns = `id, customer_id, status, payment_method, total_amount, total_items,
	billing, shipping, placed_at, paid_at, canceled_at, ready_at, version`

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

// Load возвращает заказ вместе с позициями или ErrOrderNotFound.
func (r *orderRepository) Load(ctx context.Context, id domain.OrderID) (*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	snapshot, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("load order %s: %w", id, err)
	}
	if snapshot.Items, err = loadOrderItems(ctx, r.db, id); err != nil {
		return nil, err
	}
	return domain.RestoreOrder(snapshot)
}

func (r *orderRepository) Exists(ctx context.Context, id domain.OrderID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check order exists: %w", err)
	}
	return exists, nil
}

// Save вставляет новый заказ или обновляет существующий с проверкой версии.
// Позиции заказа перезаписываются целиком в той же транзакции.
func (r *orderRepository) Save(ctx context.Context, order *domain.Order) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	s := order.Snapshot()
	billing, err := jsonColumn(s.Billing)
	if err != nil {
		return err
	}
	shipping, err := jsonColumn(s.Shipping)
	if err != nil {
		return err
	}
	next := s.Version + 1
	now := time.Now().UTC()

	err = inTx(ctx, r.db, func(tx *sql.Tx) error {
		err := saveVersioned(ctx, tx, "orders", s.ID, s.Version, domain.ErrOrderNotFound,
			func() error {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO orders (`+orderColumns+`, created_at, updated_at)
					VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$14)
				`,
					s.ID, s.CustomerID, string(s.Status), nullableString(string(s.PaymentMethod)),
					s.TotalAmount, s.TotalItems.Int(), billing, shipping,
					nullableTime(s.PlacedAt), nullableTime(s.PaidAt), nullableTime(s.CanceledAt), nullableTime(s.ReadyAt),
					next, now,
				)
				return err
			},
			func() (sql.Result, error) {
				return tx.ExecContext(ctx, `
					UPDATE orders
					SET status = $3,
					    payment_method = $4,
					    total_amount = $5,
					    total_items = $6,
					    billing = $7,
					    shipping = $8,
					    placed_at = $9,
					    paid_at = $10,
					    canceled_at = $11,
					    ready_at = $12,
					    version = $13,
					    updated_at = $14
					WHERE id = $1 AND version = $2
				`,
					s.ID, s.Version, string(s.Status), nullableString(string(s.PaymentMethod)),
					s.TotalAmount, s.TotalItems.Int(), billing, shipping,
					nullableTime(s.PlacedAt), nullableTime(s.PaidAt), nullableTime(s.CanceledAt), nullableTime(s.ReadyAt),
					next, now,
				)
			},
		)
		if err != nil {
			return err
		}
		return replaceOrderItems(ctx, tx, s.ID, s.Items)
	})
	if err != nil {
		return fmt.Errorf("save order %s: %w", s.ID, err)
	}
	order.AdvanceVersion()
	return nil
}

func (r *orderRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return count, nil
}

// ListByCustomer возвращает заказы клиента, новые первыми. UUIDv7 упорядочены по времени.
func (r *orderRepository) ListByCustomer(ctx context.Context, customerID domain.CustomerID, limit int) ([]*domain.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	query := `SELECT ` + orderColumns + ` FROM orders WHERE customer_id = $1 ORDER BY id DESC`
	args := []any{customerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders by customer: %w", err)
	}
	var snapshots []domain.OrderSnapshot
	for rows.Next() {
		snapshot, err := scanOrder(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan order: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	_ = rows.Close()

	orders := make([]*domain.Order, 0, len(snapshots))
	for _, snapshot := range snapshots {
		if snapshot.Items, err = loadOrderItems(ctx, r.db, snapshot.ID); err != nil {
			return nil, err
		}
		order, err := domain.RestoreOrder(snapshot)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.OrderSnapshot, error) {
	var (
		s             domain.OrderSnapshot
		status        string
		paymentMethod sql.NullString
		totalItems    int
		billing       []byte
		shipping      []byte
		placedAt      sql.NullTime
		paidAt        sql.NullTime
		canceledAt    sql.NullTime
		readyAt       sql.NullTime
	)
	if err := row.Scan(
		&s.ID, &s.CustomerID, &status, &paymentMethod, &s.TotalAmount, &totalItems,
		&billing, &shipping, &placedAt, &paidAt, &canceledAt, &readyAt, &s.Version,
	); err != nil {
		return domain.OrderSnapshot{}, err
	}

	var err error
	if s.Status, err = domain.ParseOrderStatus(status); err != nil {
		return domain.OrderSnapshot{}, err
	}
	if paymentMethod.Valid {
		if s.PaymentMethod, err = domain.ParsePaymentMethod(paymentMethod.String); err != nil {
			return domain.OrderSnapshot{}, err
		}
	}
	if s.TotalItems, err = domain.NewQuantity(totalItems); err != nil {
		return domain.OrderSnapshot{}, err
	}
	if s.Billing, err = fromJSONColumn[domain.Billing](billing); err != nil {
		return domain.OrderSnapshot{}, err
	}
	if s.Shipping, err = fromJSONColumn[domain.Shipping](shipping); err != nil {
		return domain.OrderSnapshot{}, err
	}
	s.PlacedAt = timePtr(placedAt)
	s.PaidAt = timePtr(paidAt)
	s.CanceledAt = timePtr(canceledAt)
	s.ReadyAt = timePtr(readyAt)
	return s, nil
}

func loadOrderItems(ctx context.Context, q querier, orderID domain.OrderID) ([]domain.OrderItemSnapshot, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, product_id, product_name, price, quantity, total_amount
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.OrderItemSnapshot, 0)
	for rows.Next() {
		var (
			item     = domain.OrderItemSnapshot{OrderID: orderID}
			name     string
			quantity int
		)
		if err := rows.Scan(&item.ID, &item.ProductID, &name, &item.Price, &quantity, &item.TotalAmount); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		if item.ProductName, err = domain.NewProductName(name); err != nil {
			return nil, err
		}
		if item.Quantity, err = domain.NewQuantity(quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

func replaceOrderItems(ctx context.Context, tx *sql.Tx, orderID domain.OrderID, items []domain.OrderItemSnapshot) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return fmt.Errorf("delete order items: %w", err)
	}
	for position, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, position, product_id, product_name, price, quantity, total_amount)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`,
			item.ID, orderID, position, item.ProductID, item.ProductName.String(),
			item.Price, item.Quantity.Int(), item.TotalAmount,
		); err != nil {
			return fmt.Errorf("insert order item %s: %w", item.ID, err)
		}
	}
	return nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
