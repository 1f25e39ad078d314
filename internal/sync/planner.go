package sync

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DateWindow 同步日期窗口，闭区间
type DateWindow struct {
	Start string
	End   string
}

// CalendarWindows 计算交易日历需要拉取的日期窗口
// 无游标时从回补起点 epoch 开始按 730 天一段走到今天，
// 有游标且游标已到今天则无需拉取，否则拉取 [游标+1天, 游标+365天]
func CalendarWindows(cursor string, epoch string, today time.Time) ([]DateWindow, error) {
	todayStr := today.Format(dateLayout)

	if cursor == "" {
		start, err := time.Parse(dateLayout, epoch)
		if err != nil {
			return nil, fmt.Errorf("回补起点日期格式错误: %w", err)
		}
		var windows []DateWindow
		for cur := start; cur.Format(dateLayout) <= todayStr; cur = cur.AddDate(0, 0, 730) {
			windows = append(windows, DateWindow{
				Start: cur.Format(dateLayout),
				End:   cur.AddDate(0, 0, 729).Format(dateLayout),
			})
		}
		return windows, nil
	}

	cursorDate, err := time.Parse(dateLayout, cursor)
	if err != nil {
		return nil, fmt.Errorf("游标日期格式错误: %w", err)
	}
	if cursor >= todayStr {
		return nil, nil
	}
	return []DateWindow{{
		Start: cursorDate.AddDate(0, 0, 1).Format(dateLayout),
		End:   cursorDate.AddDate(0, 0, 365).Format(dateLayout),
	}}, nil
}

// DailyWindow 计算单只股票单一复权类型的日线拉取窗口
// 无游标时从上市日期（缺失则用 epoch）开始，有游标从次日开始，终点为今天
// 返回 ok=false 表示数据已到最新，无需拉取
func DailyWindow(cursor string, listingDate *string, epoch string, today time.Time) (DateWindow, bool) {
	todayStr := today.Format(dateLayout)

	var start string
	if cursor == "" {
		if listingDate != nil && *listingDate != "" {
			start = *listingDate
		} else {
			start = epoch
		}
	} else {
		cursorDate, err := time.Parse(dateLayout, cursor)
		if err != nil {
			return DateWindow{}, false
		}
		start = cursorDate.AddDate(0, 0, 1).Format(dateLayout)
	}

	if start > todayStr {
		return DateWindow{}, false
	}
	return DateWindow{Start: start, End: todayStr}, true
}

// DiffByKey 实体差集：返回 remote 中 key 不在 localKeys 里的元素，保持原有顺序
func DiffByKey[T any](remote []T, localKeys map[string]bool, key func(T) string) []T {
	var missing []T
	for _, item := range remote {
		if !localKeys[key(item)] {
			missing = append(missing, item)
		}
	}
	return missing
}
