package sync

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_sync/internal/models"
	"stock_sync/internal/provider"
)

// TestSyncCompanies_Pagination 测试公司信息分页拉取直到短页
// 测试配置的分页大小为 2：第一页满页继续翻，第二页 1 条结束
func TestSyncCompanies_Pagination(t *testing.T) {
	var offsets []int
	providerServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req provider.TushareRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "stock_company", req.APIName)

		offset := int(req.Params["offset"].(float64))
		offsets = append(offsets, offset)

		var items [][]interface{}
		if offset == 0 {
			items = [][]interface{}{
				{"000001.SZ", "平安银行股份有限公司", "陈某", "广东"},
				{"000002.SZ", "万科企业股份有限公司", "郁某", "广东"},
			}
		} else {
			items = [][]interface{}{
				{"600000.SH", "上海浦东发展银行股份有限公司", "张某", "上海"},
			}
		}

		data := provider.TushareData{
			Fields: []string{"ts_code", "com_name", "chairman", "province"},
			Items:  items,
		}
		dataBytes, _ := json.Marshal(data)
		json.NewEncoder(w).Encode(provider.TushareResponse{Code: 0, Data: dataBytes})
	}))
	defer providerServer.Close()

	var saved []models.CompanyProfile
	backendServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/companies/batch", r.URL.Path)
		var companies []models.CompanyProfile
		require.NoError(t, json.NewDecoder(r.Body).Decode(&companies))
		saved = append(saved, companies...)
		json.NewEncoder(w).Encode(map[string]interface{}{"code": 200, "message": "success"})
	}))
	defer backendServer.Close()

	syncer := newTestSyncer(providerServer.URL, backendServer.URL)
	err := syncer.SyncCompanies(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{0, 2}, offsets)
	require.Len(t, saved, 3)
	assert.Equal(t, "000001.SZ", saved[0].StockCode)
	assert.Equal(t, "平安银行股份有限公司", saved[0].ComName)
	assert.Equal(t, "600000.SH", saved[2].StockCode)
}

// TestSyncCompanies_EmptyFirstPage 测试首页为空时正常结束
func TestSyncCompanies_EmptyFirstPage(t *testing.T) {
	providerServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data := provider.TushareData{
			Fields: []string{"ts_code", "com_name"},
			Items:  [][]interface{}{},
		}
		dataBytes, _ := json.Marshal(data)
		json.NewEncoder(w).Encode(provider.TushareResponse{Code: 0, Data: dataBytes})
	}))
	defer providerServer.Close()

	backendServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("空页不应触发写入")
	}))
	defer backendServer.Close()

	syncer := newTestSyncer(providerServer.URL, backendServer.URL)
	err := syncer.SyncCompanies(context.Background())
	require.NoError(t, err)
}
