package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_sync/internal/backend"
	"stock_sync/internal/config"
	"stock_sync/internal/models"
	"stock_sync/internal/provider"
)

func strPtr(s string) *string     { return &s }
func floatPtr(f float64) *float64 { return &f }

// TestDiffStockDetail 测试详情字段比对规则
func TestDiffStockDetail(t *testing.T) {
	local := &models.Stock{
		StockCode:  "000001.SZ",
		StockName:  "平安银行",
		Status:     "L",
		Industry:   strPtr("银行"),
		Area:       strPtr("深圳"),
		TotalShare: floatPtr(1940592.16),
	}

	// 完全一致，无需更新
	same := &models.StockDetail{
		StockCode:  "000001.SZ",
		StockName:  "平安银行",
		Status:     "L",
		Industry:   strPtr("银行"),
		Area:       strPtr("深圳"),
		TotalShare: floatPtr(1940592.16),
	}
	assert.Empty(t, diffStockDetail(local, same))

	// 字符串字段变化
	changed := &models.StockDetail{
		StockCode: "000001.SZ",
		StockName: "平安银行A",
		Industry:  strPtr("保险"),
	}
	changes := diffStockDetail(local, changed)
	assert.Equal(t, "平安银行A", changes["stockName"])
	assert.Equal(t, "保险", changes["industry"])
	assert.NotContains(t, changes, "area")

	// 远端字段缺失不触发更新
	sparse := &models.StockDetail{StockCode: "000001.SZ"}
	assert.Empty(t, diffStockDetail(local, sparse))
}

// TestDiffStockDetail_Epsilon 测试数值字段的容差比较
func TestDiffStockDetail_Epsilon(t *testing.T) {
	local := &models.Stock{
		StockCode:  "000001.SZ",
		TotalShare: floatPtr(100.00),
	}

	// 容差以内视为相同
	within := &models.StockDetail{TotalShare: floatPtr(100.005)}
	assert.Empty(t, diffStockDetail(local, within))

	// 超出容差才更新
	beyond := &models.StockDetail{TotalShare: floatPtr(100.02)}
	changes := diffStockDetail(local, beyond)
	assert.Equal(t, 100.02, changes["totalShare"])

	// 本地缺失远端有值，直接更新
	local.TotalShare = nil
	changes = diffStockDetail(local, beyond)
	assert.Contains(t, changes, "totalShare")
}

// TestSyncStocks_EndToEnd 测试股票目录同步全流程：
// 拉取远端清单、剔除北交所、差集插入、详情刷新更新
func TestSyncStocks_EndToEnd(t *testing.T) {
	// 数据源：目录请求返回三只股票（含一只北交所），详情请求返回行业变更
	providerServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req provider.TushareRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		var data provider.TushareData
		if _, ok := req.Params["ts_code"]; ok {
			// 单只股票详情
			data = provider.TushareData{
				Fields: []string{"ts_code", "name", "industry", "area", "total_share", "float_share", "market", "list_status"},
				Items: [][]interface{}{
					{"000001.SZ", "平安银行", "保险", "深圳", 1940592.16, 1940576.21, "主板", "L"},
				},
			}
		} else {
			data = provider.TushareData{
				Fields: []string{"ts_code", "name", "area", "industry", "list_date", "exchange", "list_status"},
				Items: [][]interface{}{
					{"000001.SZ", "平安银行", "深圳", "银行", "19910403", "SZSE", "L"},
					{"600000.SH", "浦发银行", "上海", "银行", "19991110", "SSE", "L"},
					{"920001.BJ", "北交所股", nil, nil, "20230101", "BSE", "L"},
				},
			}
		}

		dataBytes, _ := json.Marshal(data)
		json.NewEncoder(w).Encode(provider.TushareResponse{Code: 0, Data: dataBytes})
	}))
	defer providerServer.Close()

	// 后端：本地已有 000001.SZ，记录插入和更新调用
	var mu sync.Mutex
	var inserted []string
	updates := make(map[string]map[string]interface{})

	backendServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/stocks/query":
			json.NewEncoder(w).Encode(map[string]interface{}{
				"code": 200, "message": "success",
				"data": []models.Stock{
					{Exchange: "SZSE", StockCode: "000001.SZ", StockName: "平安银行",
						Status: "L", Industry: strPtr("银行"), Area: strPtr("深圳")},
				},
			})
		case r.URL.Path == "/api/stocks/batch":
			var stocks []models.Stock
			require.NoError(t, json.NewDecoder(r.Body).Decode(&stocks))
			mu.Lock()
			for _, s := range stocks {
				inserted = append(inserted, s.StockCode)
			}
			mu.Unlock()
			json.NewEncoder(w).Encode(map[string]interface{}{"code": 200, "message": "success"})
		case strings.HasPrefix(r.URL.Path, "/api/stocks/") && r.Method == http.MethodPut:
			code := strings.TrimPrefix(r.URL.Path, "/api/stocks/")
			var fields map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&fields))
			mu.Lock()
			updates[code] = fields
			mu.Unlock()
			json.NewEncoder(w).Encode(map[string]interface{}{"code": 200, "message": "success"})
		default:
			t.Errorf("意外的请求: %s %s", r.Method, r.URL.Path)
		}
	}))
	defer backendServer.Close()

	syncer := newTestSyncer(providerServer.URL, backendServer.URL)
	err := syncer.SyncStocks(context.Background())
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()

	// 只插入缺失的 600000.SH，北交所被剔除
	assert.Equal(t, []string{"600000.SH"}, inserted)

	// 详情刷新发现行业变更
	require.Contains(t, updates, "000001.SZ")
	assert.Equal(t, "保险", updates["000001.SZ"]["industry"])
	assert.NotContains(t, updates["000001.SZ"], "stockName")
}

// newTestSyncer 构造指向模拟服务器的同步引擎，延迟全部调短
func newTestSyncer(providerURL, backendURL string) *Syncer {
	tushareClient := provider.NewTushareClient(&config.TushareConfig{
		Token:   "test_token",
		BaseURL: providerURL,
		Timeout: 10,
	})
	backendClient := backend.NewClient(&config.BackendConfig{
		Token:   "test_token",
		Timeout: 10,
	})
	backendClient.SetBaseURL(backendURL + "/api")

	return NewSyncer(tushareClient, backendClient, nil, &config.SyncConfig{
		MaxRetries:      1,
		RetryDelay:      0,
		FinalRetryDelay: 0,
		DailyFinalDelay: 0,
		BatchSize:       1000,
		StockBatchSize:  500,
		RefLimitPerMin:  1000,
		HistLimitPerMin: 1000,
		CompanyPageSize: 2,
		DailyMaxWorkers: 2,
		DetailBatchSize: 100,
		DetailItemDelay: 1,
		CalendarEpoch:   "1990-12-01",
	}, nil)
}
