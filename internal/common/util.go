package common

import "fmt"

// Persistence wraps a backend error so that it matches ErrorPersistence
// while keeping the original cause reachable through errors.Is / errors.As.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrorPersistence, op, err)
}
