package order

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// GenerateOrderNo 生成订单号, 格式 ORD-yyyyMMdd-NNNN
// 4位随机后缀不保证唯一, 唯一性由数据库唯一索引兜底, 冲突时调用方重新生成
func GenerateOrderNo(now time.Time) string {
	return fmt.Sprintf("ORD-%s-%04d", now.Format("20060102"), rand.IntN(10000))
}
