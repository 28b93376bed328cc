package utils

import "golang.org/x/crypto/bcrypt"

func clampCost(cost int) int {
	return min(max(cost, bcrypt.MinCost), bcrypt.MaxCost)
}

// HashPassword hashes plain with bcrypt. Costs outside bcrypt's accepted
// range are clamped; passwords longer than 72 bytes are rejected.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), clampCost(cost))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword reports whether plain matches the stored hash.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// NeedsRehash reports whether hash was produced at a cost other than the
// configured one. Unparseable hashes always need a rehash.
func NeedsRehash(hash string, cost int) bool {
	have, err := bcrypt.Cost([]byte(hash))
	return err != nil || have != clampCost(cost)
}
