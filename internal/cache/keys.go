package cache

import (
	"fmt"
	"math"
	"strings"
)

// subtotalBucketSize is the fixed band subtotals are floored to before
// entering a match key. Bounds key cardinality at the cost of reusing a
// decision for any subtotal in the same band.
const subtotalBucketSize = 100_000

// RateMatch keys a resolution decision for (instance, ward, subtotal bucket).
func RateMatch(instanceID uint64, wardCode string, subtotal float64) string {
	return fmt.Sprintf("match:%d:%s:%d", instanceID, SanitizeField(wardCode), SubtotalBucket(subtotal))
}

// RatesForWard keys the decoded rule list for (instance, ward).
func RatesForWard(instanceID uint64, wardCode string) string {
	return fmt.Sprintf("rates:%d:ward:%s", instanceID, SanitizeField(wardCode))
}

// LocationByCode keys a single location row.
func LocationByCode(code string) string {
	return fmt.Sprintf("loc:%s", SanitizeField(code))
}

// LocationsByParent keys a list of child locations at one level.
func LocationsByParent(parentCode string, level int) string {
	return fmt.Sprintf("locs:%s:lvl:%d", SanitizeField(parentCode), level)
}

// SubtotalBucket floors a subtotal to its cache band.
func SubtotalBucket(subtotal float64) int64 {
	if subtotal <= 0 {
		return 0
	}
	return int64(math.Floor(subtotal/subtotalBucketSize)) * subtotalBucketSize
}

// SanitizeField strips the key separator and whitespace from a field so
// composed keys stay collision-free.
func SanitizeField(field string) string {
	field = strings.TrimSpace(field)
	field = strings.ReplaceAll(field, ":", "")
	return strings.ReplaceAll(field, " ", "")
}
