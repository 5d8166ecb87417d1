package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"coffer/pkg/domain"
)

const (
	// Redis key layout. Balances are stored one key per account so WATCH
	// covers exactly the accounts a transfer touches.
	accountKeyPrefix = "ledger:acct:"
	issuanceKey      = "ledger:meta:issuance"
	dustKey          = "ledger:meta:dust"

	// maxTxRetries bounds optimistic-lock retries before giving up.
	maxTxRetries = 16
)

// RedisLedger stores balances in Redis using WATCH/MULTI optimistic
// transactions. Suited to cache-grade deployments; durability follows the
// Redis persistence configuration.
type RedisLedger struct {
	client  *redis.Client
	minimum Amount
}

// NewRedisLedger creates a ledger over an existing Redis client.
func NewRedisLedger(client *redis.Client, minimum Amount) *RedisLedger {
	return &RedisLedger{client: client, minimum: minimum}
}

func accountKey(account domain.AccountID) string {
	return accountKeyPrefix + account.String()
}

func (l *RedisLedger) MinimumBalance() Amount {
	return l.minimum
}

// watch retries fn under WATCH until it commits or conflicts too often.
func (l *RedisLedger) watch(ctx context.Context, fn func(tx *redis.Tx) error, keys ...string) error {
	for i := 0; i < maxTxRetries; i++ {
		err := l.client.Watch(ctx, fn, keys...)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("ledger tx kept conflicting: %w", redis.TxFailedErr)
}

// readBalance fetches a balance inside a WATCH block.
func readBalance(ctx context.Context, tx *redis.Tx, account domain.AccountID) (Amount, bool, error) {
	value, err := tx.Get(ctx, accountKey(account)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read balance of %s: %w", account, err)
	}
	return Amount(value), true, nil
}

func (l *RedisLedger) FreeBalance(ctx context.Context, account domain.AccountID) (Amount, error) {
	value, err := l.client.Get(ctx, accountKey(account)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read balance of %s: %w", account, err)
	}
	return Amount(value), nil
}

func (l *RedisLedger) Transfer(ctx context.Context, from, to domain.AccountID, amount Amount, policy ExistencePolicy) error {
	if amount == 0 {
		return nil
	}

	return l.watch(ctx, func(tx *redis.Tx) error {
		fromBalance, _, err := readBalance(ctx, tx, from)
		if err != nil {
			return err
		}
		if fromBalance < amount {
			return ErrInsufficientFunds
		}
		if from == to {
			return nil
		}

		toBalance, toExists, err := readBalance(ctx, tx, to)
		if err != nil {
			return err
		}
		newTo := toBalance + amount
		if newTo < toBalance {
			return ErrOverflow
		}
		if !toExists && newTo < l.minimum {
			return ErrBelowMinimum
		}

		newFrom := fromBalance - amount
		reap := newFrom < l.minimum
		if reap && policy == KeepAlive {
			return ErrWouldReap
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if reap {
				pipe.Del(ctx, accountKey(from))
				if newFrom > 0 {
					pipe.IncrBy(ctx, dustKey, int64(newFrom))
				}
			} else {
				pipe.Set(ctx, accountKey(from), strconv.FormatUint(uint64(newFrom), 10), 0)
			}
			pipe.Set(ctx, accountKey(to), strconv.FormatUint(uint64(newTo), 10), 0)
			return nil
		})
		return err
	}, accountKey(from), accountKey(to))
}

func (l *RedisLedger) ResolveCreating(ctx context.Context, account domain.AccountID, s *Surplus) (Amount, error) {
	amount, minted, err := s.take()
	if err != nil {
		return 0, err
	}

	var resulting Amount
	err = l.watch(ctx, func(tx *redis.Tx) error {
		current, exists, err := readBalance(ctx, tx, account)
		if err != nil {
			return err
		}
		if amount == 0 {
			resulting = current
			return nil
		}

		next := current + amount
		if next < current {
			return ErrOverflow
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if minted {
				pipe.IncrBy(ctx, issuanceKey, int64(amount))
			}
			if !exists && next < l.minimum {
				// Too small to create the account; the value survives as dust.
				pipe.IncrBy(ctx, dustKey, int64(amount))
				resulting = 0
				return nil
			}
			pipe.Set(ctx, accountKey(account), strconv.FormatUint(uint64(next), 10), 0)
			resulting = next
			return nil
		})
		return err
	}, accountKey(account))
	if err != nil {
		s.refund()
		return 0, err
	}
	return resulting, nil
}

func (l *RedisLedger) EnsureMinimumBalance(ctx context.Context, account domain.AccountID) (Amount, error) {
	var resulting Amount
	err := l.watch(ctx, func(tx *redis.Tx) error {
		current, exists, err := readBalance(ctx, tx, account)
		if err != nil {
			return err
		}
		if exists && current >= l.minimum {
			resulting = current
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.IncrBy(ctx, issuanceKey, int64(l.minimum-current))
			pipe.Set(ctx, accountKey(account), strconv.FormatUint(uint64(l.minimum), 10), 0)
			return nil
		})
		if err != nil {
			return err
		}
		resulting = l.minimum
		return nil
	}, accountKey(account))
	if err != nil {
		return 0, err
	}
	return resulting, nil
}

func (l *RedisLedger) CollectDust(ctx context.Context) (*Surplus, error) {
	var collected Amount
	err := l.watch(ctx, func(tx *redis.Tx) error {
		value, err := tx.Get(ctx, dustKey).Uint64()
		if errors.Is(err, redis.Nil) {
			collected = 0
			return nil
		}
		if err != nil {
			return fmt.Errorf("read dust pool: %w", err)
		}
		collected = Amount(value)
		if collected == 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, dustKey, "0", 0)
			return nil
		})
		return err
	}, dustKey)
	if err != nil {
		return nil, err
	}
	return newDustSurplus(collected), nil
}

// SetBalance forces an account to an exact balance, minting or burning the
// difference. Genesis and test setup only.
func (l *RedisLedger) SetBalance(ctx context.Context, account domain.AccountID, amount Amount) error {
	return l.watch(ctx, func(tx *redis.Tx) error {
		current, _, err := readBalance(ctx, tx, account)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.IncrBy(ctx, issuanceKey, int64(amount)-int64(current))
			if amount == 0 {
				pipe.Del(ctx, accountKey(account))
				return nil
			}
			pipe.Set(ctx, accountKey(account), strconv.FormatUint(uint64(amount), 10), 0)
			return nil
		})
		return err
	}, accountKey(account))
}

// TotalIssuance reports all currency the ledger knows about, including dust.
func (l *RedisLedger) TotalIssuance(ctx context.Context) (Amount, error) {
	return l.meta(ctx, issuanceKey)
}

// DustPool reports uncollected dust.
func (l *RedisLedger) DustPool(ctx context.Context) (Amount, error) {
	return l.meta(ctx, dustKey)
}

func (l *RedisLedger) meta(ctx context.Context, key string) (Amount, error) {
	value, err := l.client.Get(ctx, key).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", key, err)
	}
	return Amount(value), nil
}
