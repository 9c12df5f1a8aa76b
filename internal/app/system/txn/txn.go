// Package txn wraps MongoDB multi-document transactions.
//
// Relationship mutations that span aggregates (accept friend request,
// accept join request, leave group, RSVP) must commit all-or-nothing.
// Run executes them inside a session transaction when the server
// supports one, and falls back to plain sequential execution on
// standalone servers (local dev, test databases) where transactions are
// unavailable. The fallback keeps the same code path testable; the set
// operations involved are idempotent, so a partial fallback failure is
// recoverable by re-running.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

// Run executes fn transactionally against client. fn receives a context
// that must be used for every store call inside the transaction.
//
// On servers without transaction support, fn runs once outside a
// session. Any other error aborts the transaction and is returned
// unchanged.
func Run(ctx context.Context, client *mongo.Client, fn func(ctx context.Context) error) error {
	session, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			return fn(ctx)
		}
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil && IsNotSupported(err) {
		return fn(ctx)
	}
	return err
}

// IsConflict reports whether err is an optimistic-concurrency conflict:
// the transaction read documents that another writer changed before
// commit. Callers surface these as retryable.
func IsConflict(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		if ce.Code == 112 { // WriteConflict
			return true
		}
		if ce.HasErrorLabel("TransientTransactionError") {
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "transienttransactionerror")
}

// IsNotSupported reports whether err indicates the server cannot run
// multi-document transactions (standalone mongod, some DocumentDB
// versions). Codes 20 (IllegalOperation on standalone), 51, and 263 are
// the observed forms; message sniffing covers proxies that rewrap them.
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) {
		switch ce.Code {
		case 20, 51, 263:
			return true
		}
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "transaction") &&
		(strings.Contains(s, "replica set") ||
			strings.Contains(s, "session") ||
			strings.Contains(s, "illegal operation")) {
		return true
	}
	if strings.Contains(s, "session") && strings.Contains(s, "not supported") {
		return true
	}
	return false
}
