package shared

import (
	"fmt"
	"hash/fnv"
)

// PositionLockKey builds the serialization key for one inventory position.
func PositionLockKey(cropID int64, grade string) string {
	return fmt.Sprintf("inventory:crop:%d:grade:%s:lock", cropID, grade)
}

// AdvisoryLockID maps a lock key to a PostgreSQL advisory lock id.
func AdvisoryLockID(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}
