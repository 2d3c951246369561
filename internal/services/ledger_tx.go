package services

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"pocketledger/internal/events"
	apperrors "pocketledger/internal/errors"
	"pocketledger/internal/ledger"
	"pocketledger/internal/lock"
	"pocketledger/internal/logger"
	"pocketledger/internal/models"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

// ledgerTx runs ledger writes: user lock, then one database transaction,
// then best-effort event publishing once the transaction has committed.
type ledgerTx struct {
	db        *gorm.DB
	locker    lock.Locker
	publisher events.Publisher
	now       func() time.Time
}

func newLedgerTx(db *gorm.DB, locker lock.Locker, publisher events.Publisher) ledgerTx {
	if locker == nil {
		locker = lock.NewLocal()
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return ledgerTx{db: db, locker: locker, publisher: publisher, now: time.Now}
}

// run holds userID's lock while fn runs inside a transaction.
func (l *ledgerTx) run(ctx context.Context, userID string, fn func(tx *gorm.DB) error) error {
	unlock, err := l.locker.Lock(ctx, lock.UserKey(userID))
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	defer unlock()

	err = l.db.WithContext(ctx).Transaction(fn)
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Wrap(apperrors.ErrInternalServer, err)
}

// publish sends events after commit. Failures are logged only.
func (l *ledgerTx) publish(ctx context.Context, evs ...events.Event) {
	for _, ev := range evs {
		if ev.OccurredAt.IsZero() {
			ev.OccurredAt = l.now()
		}
		if err := l.publisher.Publish(ctx, ev); err != nil {
			logger.Get().Warnw("Failed to publish ledger event",
				"type", ev.Type,
				"user_id", ev.UserID,
				"resource_id", ev.ResourceID,
				"error", err,
			)
		}
	}
}

// loadUser reads the user row inside tx.
func loadUser(tx *gorm.DB, userID string) (*models.User, error) {
	var user models.User
	if err := tx.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &user, nil
}

// applyDelta adjusts the user's counters and the touched category totals
// relative to their stored values.
func applyDelta(tx *gorm.DB, userID string, d ledger.Delta) error {
	updates := map[string]interface{}{}
	if d.Cash != 0 {
		updates["cash_balance"] = gorm.Expr("cash_balance + ?", d.Cash)
	}
	if d.Online != 0 {
		updates["online_balance"] = gorm.Expr("online_balance + ?", d.Online)
	}
	if d.Budget != 0 {
		updates["monthly_budget"] = gorm.Expr("monthly_budget + ?", d.Budget)
	}
	if len(updates) > 0 {
		res := tx.Model(&models.User{}).Where("id = ?", userID).Updates(updates)
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrUserNotFound
		}
	}

	ids := make([]string, 0, len(d.Categories))
	for id := range d.Categories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		res := tx.Model(&models.Category{}).
			Where("id = ? AND user_id = ?", id, userID).
			Update("cat_total", gorm.Expr("cat_total + ?", d.Categories[id]))
		if res.Error != nil {
			return apperrors.Wrap(apperrors.ErrInternalServer, res.Error)
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrCategoryNotFound
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
