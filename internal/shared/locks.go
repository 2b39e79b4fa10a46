package shared

import "fmt"

// CommissionBatchLockKey builds the redis key guarding one period's
// commission calculation run.
func CommissionBatchLockKey(periodKey string) string {
	return fmt.Sprintf("commission:calc:%s:lock", periodKey)
}
