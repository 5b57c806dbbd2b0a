package repository

import "github.com/google/uuid"

// uuidKey converts a token subject into a primary key. Subjects that are not
// UUIDs cannot match a row.
func uuidKey(id string) (uuid.UUID, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, ErrNotFound
	}
	return key, nil
}
