package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/ordering/internal/domain"
)

const customerColumns = `id, first_name, last_name, birth_date, email, phone, document,
	promotion_notifications_allowed, archived, registered_at, archived_at, loyalty_points, version`

type customerRepository struct {
	db *sql.DB
}

// NewCustomerRepository создаёт PostgreSQL-реализацию CustomerRepository.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{db: store.DB()}
}

func (r *customerRepository) Load(ctx context.Context, id domain.CustomerID) (*domain.Customer, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	snapshot, err := scanCustomer(r.db.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, fmt.Errorf("load customer %s: %w", id, err)
	}
	return domain.RestoreCustomer(snapshot)
}

func (r *customerRepository) Exists(ctx context.Context, id domain.CustomerID) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check customer exists: %w", err)
	}
	return exists, nil
}

// Save сохраняет клиента с проверкой версии.
func (r *customerRepository) Save(ctx context.Context, customer *domain.Customer) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	s := customer.Snapshot()
	var birthDate sql.NullTime
	if s.BirthDate != nil {
		birthDate = sql.NullTime{Time: s.BirthDate.Time(), Valid: true}
	}
	fields := []any{
		s.FullName.FirstName(), s.FullName.LastName(), birthDate,
		s.Email.String(), s.Phone.String(), s.Document.String(),
		s.PromotionNotificationsAllowed, s.Archived, s.RegisteredAt.UTC(), nullableTime(s.ArchivedAt),
		s.LoyaltyPoints.Int(), s.Version + 1, time.Now().UTC(),
	}

	err := inTx(ctx, r.db, func(tx *sql.Tx) error {
		return saveVersioned(ctx, tx, "customers", s.ID, s.Version, domain.ErrCustomerNotFound,
			func() error {
				_, err := tx.ExecContext(ctx, `
					INSERT INTO customers (`+customerColumns+`, updated_at)
					VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
				`, append([]any{s.ID}, fields...)...)
				return err
			},
			func() (sql.Result, error) {
				return tx.ExecContext(ctx, `
					UPDATE customers
					SET first_name = $3,
					    last_name = $4,
					    birth_date = $5,
					    email = $6,
					    phone = $7,
					    document = $8,
					    promotion_notifications_allowed = $9,
					    archived = $10,
					    registered_at = $11,
					    archived_at = $12,
					    loyalty_points = $13,
					    version = $14,
					    updated_at = $15
					WHERE id = $1 AND version = $2
				`, append([]any{s.ID, s.Version}, fields...)...)
			},
		)
	})
	if err != nil {
		return fmt.Errorf("save customer %s: %w", s.ID, err)
	}
	customer.AdvanceVersion()
	return nil
}

func (r *customerRepository) Count(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return count, nil
}

func scanCustomer(row rowScanner) (domain.CustomerSnapshot, error) {
	var (
		s         domain.CustomerSnapshot
		firstName string
		lastName  string
		birthDate sql.NullTime
		email     string
		phone     string
		document  string
		archived  sql.NullTime
		points    int
	)
	if err := row.Scan(
		&s.ID, &firstName, &lastName, &birthDate, &email, &phone, &document,
		&s.PromotionNotificationsAllowed, &s.Archived, &s.RegisteredAt, &archived, &points, &s.Version,
	); err != nil {
		return domain.CustomerSnapshot{}, err
	}

	var err error
	if s.FullName, err = domain.NewFullName(firstName, lastName); err != nil {
		return domain.CustomerSnapshot{}, err
	}
	if s.Email, err = domain.NewEmail(email); err != nil {
		return domain.CustomerSnapshot{}, err
	}
	if s.Phone, err = domain.NewPhone(phone); err != nil {
		return domain.CustomerSnapshot{}, err
	}
	if s.Document, err = domain.NewDocument(document); err != nil {
		return domain.CustomerSnapshot{}, err
	}
	if s.LoyaltyPoints, err = domain.NewLoyaltyPoints(points); err != nil {
		return domain.CustomerSnapshot{}, err
	}
	if birthDate.Valid {
		date, err := domain.NewBirthDate(birthDate.Time)
		if err != nil {
			return domain.CustomerSnapshot{}, err
		}
		s.BirthDate = &date
	}
	s.RegisteredAt = s.RegisteredAt.UTC()
	s.ArchivedAt = timePtr(archived)
	return s, nil
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
