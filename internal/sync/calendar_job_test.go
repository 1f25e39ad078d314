package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_sync/internal/models"
	"stock_sync/internal/provider"
)

// TestSyncCalendar_Incremental 测试有游标时的增量日历同步
func TestSyncCalendar_Incremental(t *testing.T) {
	cursor := time.Now().AddDate(0, 0, -5).Format(dateLayout)
	wantStart := time.Now().AddDate(0, 0, -4).Format(dateLayout)

	var requestedStart string
	providerServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req provider.TushareRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "trade_cal", req.APIName)
		requestedStart, _ = req.Params["start_date"].(string)

		data := provider.TushareData{
			Fields: []string{"exchange", "cal_date", "is_open"},
			Items: [][]interface{}{
				{"SSE", "20240105", float64(1)},
				{"SSE", "20240106", float64(0)},
			},
		}
		dataBytes, _ := json.Marshal(data)
		json.NewEncoder(w).Encode(provider.TushareResponse{Code: 0, Data: dataBytes})
	}))
	defer providerServer.Close()

	var saved []models.CalendarDay
	yearChecked := false
	backendServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/trading-calendar/latest":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"code": 200, "message": "success",
				"data": map[string]string{"tradeDate": cursor},
			})
		case "/api/trading-calendar/batch":
			var days []models.CalendarDay
			require.NoError(t, json.NewDecoder(r.Body).Decode(&days))
			saved = append(saved, days...)
			json.NewEncoder(w).Encode(map[string]interface{}{"code": 200, "message": "success"})
		case fmt.Sprintf("/api/trading-calendar/year/%d", time.Now().Year()):
			yearChecked = true
			json.NewEncoder(w).Encode(map[string]interface{}{
				"code": 200, "message": "success",
				"data": []models.CalendarDay{{TradeDate: "2024-01-05", IsTradingDay: 1}},
			})
		default:
			t.Errorf("意外的请求: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer backendServer.Close()

	syncer := newTestSyncer(providerServer.URL, backendServer.URL)
	err := syncer.SyncCalendar(context.Background())
	require.NoError(t, err)

	// 拉取窗口从游标次日开始（请求日期为无连字符格式）
	assert.Equal(t, compactDate(wantStart), requestedStart)

	require.Len(t, saved, 2)
	assert.Equal(t, "2024-01-05", saved[0].TradeDate)
	assert.Equal(t, 1, saved[0].IsTradingDay)
	assert.Equal(t, 0, saved[1].IsTradingDay)

	// 同步后回读当年日历核对覆盖
	assert.True(t, yearChecked)
}

// TestSyncCalendar_UpToDate 测试游标已到今天时不发起拉取
func TestSyncCalendar_UpToDate(t *testing.T) {
	providerServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("游标已到今天，不应请求数据源")
	}))
	defer providerServer.Close()

	backendServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/trading-calendar/latest", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 200, "message": "success",
			"data": map[string]string{"tradeDate": time.Now().Format(dateLayout)},
		})
	}))
	defer backendServer.Close()

	syncer := newTestSyncer(providerServer.URL, backendServer.URL)
	err := syncer.SyncCalendar(context.Background())
	require.NoError(t, err)
}

// TestSyncCalendar_FetchAborts 测试拉取重试耗尽后任务中止
func TestSyncCalendar_FetchAborts(t *testing.T) {
	providerServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer providerServer.Close()

	backendServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 200, "message": "success",
			"data": map[string]string{"tradeDate": time.Now().AddDate(0, 0, -10).Format(dateLayout)},
		})
	}))
	defer backendServer.Close()

	syncer := newTestSyncer(providerServer.URL, backendServer.URL)
	err := syncer.SyncCalendar(context.Background())

	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

// compactDate 与数据源请求参数一致的日期格式
func compactDate(date string) string {
	return strings.ReplaceAll(date, "-", "")
}
