package core

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword bcrypt-hashes plain on the blocking-task pool.
func HashPassword(ctx context.Context, d *Dispatcher, plain string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return Run(ctx, d, func() (string, error) {
		h, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
		if err != nil {
			return "", err
		}
		return string(h), nil
	})
}

// VerifyPassword reports whether plain matches hash. A mismatch is not an
// error; a corrupt stored hash is.
func VerifyPassword(ctx context.Context, d *Dispatcher, plain, hash string) (bool, error) {
	return Run(ctx, d, func() (bool, error) {
		err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, err
		}
	})
}
