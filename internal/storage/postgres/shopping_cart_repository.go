package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

const shoppingCartColumns = `id, customer_id, total_amount, total_items, created_at, version`

type shoppingCartRepository struct {
	db *sql.DB
}

// NewShoppingCartRepository создаёт PostgreSQL-реализацию ShoppingCartRepository.
func NewShoppingCartRepository(store *Store) domain.ShoppingCartRepository {
	return &shoppingCartRepository{db: store.DB()}
}

func (r *shoppingCartRepository) Load(ctx context.Context, id domain.ShoppingCartID) (*domain.ShoppingCart, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	snapshot, err := scanShoppingCart(r.db.QueryRowContext(ctx, `SELECT `+shoppingCartColumns+` FROM shopping_carts WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrShoppingCartNotFound
		}
		return nil, fmt.Errorf("load shopping cart %s: %w", id, err)
	}
	if snapshot.Items, err = loadShoppingCartItems(ctx, r.db, id); err != nil {
		return nil, err
	}
	return domain.RestoreShoppingCart(snapshot)
}

func (r *shoppingCartRepository) Exists(ctx context.Context, id domain.ShoppingCartID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM shopping_carts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check shopping cart exists: %w", err)
	}
	return exists, nil
}

// Save сохраняет корзину и её позиции с проверкой версии.
func (r *shoppingCartRepository) Save(ctx context.Context, cart *domain.ShoppingCart) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	s := cart.Snapshot()
	next := s.Version + 1
	now := time.Now().UTC()

	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		err := saveVersioned(ctx, tx, "shopping_carts", s.ID, s.Version, domain.ErrShoppingCartNotFound,
			func() error {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO shopping_carts (`+shoppingCartColumns+`, updated_at)
					VALUES ($1,$2,$3,$4,$5,$6,$7)
				`, s.ID, s.CustomerID, s.TotalAmount, s.TotalItems.Int(), s.CreatedAt.UTC(), next, now)
				return err
			},
			func() (sql.Result, error) {
				return tx.ExecContext(ctx, `
					UPDATE shopping_carts
					SET total_amount = $3,
					    total_items = $4,
					    version = $5,
					    updated_at = $6
					WHERE id = $1 AND version = $2
				`, s.ID, s.Version, s.TotalAmount, s.TotalItems.Int(), next, now)
			},
		)
		if err != nil {
			return err
		}
		return replaceShoppingCartItems(ctx, tx, s.ID, s.Items)
	})
	if err != nil {
		return fmt.Errorf("save shopping cart %s: %w", s.ID, err)
	}
	cart.AdvanceVersion()
	return nil
}

func (r *shoppingCartRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM shopping_carts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count shopping carts: %w", err)
	}
	return count, nil
}

// ListContainingProduct возвращает корзины, в которых есть позиция с товаром.
func (r *shoppingCartRepository) ListContainingProduct(ctx context.Context, productID domain.ProductID) ([]*domain.ShoppingCart, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+shoppingCartColumns+`
		FROM shopping_carts
		WHERE id IN (SELECT shopping_cart_id FROM shopping_cart_items WHERE product_id = $1)
		ORDER BY id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("list shopping carts by product: %w", err)
	}
	var snapshots []domain.ShoppingCartSnapshot
	for rows.Next() {
		snapshot, err := scanShoppingCart(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan shopping cart: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate shopping carts: %w", err)
	}
	_ = rows.Close()

	carts := make([]*domain.ShoppingCart, 0, len(snapshots))
	for _, snapshot := range snapshots {
		if snapshot.Items, err = loadShoppingCartItems(ctx, r.db, snapshot.ID); err != nil {
			return nil, err
		}
		cart, err := domain.RestoreShoppingCart(snapshot)
		if err != nil {
			return nil, err
		}
		carts = append(carts, cart)
	}
	return carts, nil
}

func scanShoppingCart(row rowScanner) (domain.ShoppingCartSnapshot, error) {
	var (
		s          domain.ShoppingCartSnapshot
		totalItems int
	)
	if err := row.Scan(&s.ID, &s.CustomerID, &s.TotalAmount, &totalItems, &s.CreatedAt, &s.Version); err != nil {
		return domain.ShoppingCartSnapshot{}, err
	}
	var err error
	if s.TotalItems, err = domain.NewQuantity(totalItems); err != nil {
		return domain.ShoppingCartSnapshot{}, err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	return s, nil
}

func loadShoppingCartItems(ctx context.Context, q querier, cartID domain.ShoppingCartID) ([]domain.ShoppingCartItemSnapshot, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, product_id, product_name, price, quantity, available, total_amount
		FROM shopping_cart_items
		WHERE shopping_cart_id = $1
		ORDER BY position
	`, cartID)
	if err != nil {
		return nil, fmt.Errorf("load shopping cart items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.ShoppingCartItemSnapshot, 0)
	for rows.Next() {
		var (
			item     = domain.ShoppingCartItemSnapshot{ShoppingCartID: cartID}
			name     string
			quantity int
		)
		if err := rows.Scan(&item.ID, &item.ProductID, &name, &item.Price, &quantity, &item.Available, &item.TotalAmount); err != nil {
			return nil, fmt.Errorf("scan shopping cart item: %w", err)
		}
		if item.Name, err = domain.NewProductName(name); err != nil {
			return nil, err
		}
		if item.Quantity, err = domain.NewQuantity(quantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shopping cart items: %w", err)
	}
	return items, nil
}

func replaceShoppingCartItems(ctx context.Context, tx *sql.Tx, cartID domain.ShoppingCartID, items []domain.ShoppingCartItemSnapshot) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM shopping_cart_items WHERE shopping_cart_id = $1`, cartID); err != nil {
		return fmt.Errorf("delete shopping cart items: %w", err)
	}
	for position, item := range items {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO shopping_cart_items (
				id, shopping_cart_id, position, product_id, product_name, price, quantity, available, total_amount
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		`,
			item.ID, cartID, position, item.ProductID, item.Name.String(),
			item.Price, item.Quantity.Int(), item.Available, item.TotalAmount,
		); err != nil {
			return fmt.Errorf("insert shopping cart item %s: %w", item.ID, err)
		}
	}
	return nil
}

var _ domain.ShoppingCartRepository = (*shoppingCartRepository)(nil)
