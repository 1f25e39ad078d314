package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"stock_sync/internal/config"
	"stock_sync/internal/models"
)

// TushareClient Tushare API 客户端
// 单次调用不做重试，重试策略由上层 sync.Fetcher 统一控制
type TushareClient struct {
	token   string
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// TushareRequest Tushare API 请求结构
type TushareRequest struct {
	APIName string                 `json:"api_name"`
	Token   string                 `json:"token"`
	Params  map[string]interface{} `json:"params"`
	Fields  string                 `json:"fields,omitempty"`
}

// TushareResponse Tushare API 响应结构
type TushareResponse struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// TushareData 列式数据结构
type TushareData struct {
	Fields []string        `json:"fields"`
	Items  [][]interface{} `json:"items"`
}

// NewTushareClient 创建 Tushare 客户端
func NewTushareClient(cfg *config.TushareConfig) *TushareClient {
	return &TushareClient{
		token:   cfg.Token,
		baseURL: cfg.BaseURL,
		timeout: time.Duration(cfg.Timeout) * time.Second,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// request 发送请求
func (c *TushareClient) request(ctx context.Context, apiName string, params map[string]interface{}, fields string) (*TushareData, error) {
	reqData := TushareRequest{
		APIName: apiName,
		Token:   c.token,
		Params:  params,
		Fields:  fields,
	}

	jsonData, err := json.Marshal(reqData)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	resp, err := c.doRequest(ctx, jsonData)
	if err != nil {
		return nil, err
	}

	if resp.Code != 0 {
		return nil, fmt.Errorf("API 返回错误: %s", resp.Msg)
	}

	var data TushareData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("解析响应数据失败: %w", err)
	}

	return &data, nil
}

// doRequest 执行 HTTP 请求
func (c *TushareClient) doRequest(ctx context.Context, jsonData []byte) (*TushareResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("请求失败: HTTP %d", httpResp.StatusCode)
	}

	var resp TushareResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	return &resp, nil
}

// StockBasic 获取所有上市股票基本信息（全量目录）
func (c *TushareClient) StockBasic(ctx context.Context) ([]models.Stock, error) {
	params := map[string]interface{}{
		"list_status": "L", // 只获取上市状态的股票
	}
	fields := "ts_code,symbol,name,area,industry,list_date,fullname,enname,cnspell,market,exchange,curr_type,list_status,delist_date,is_hs,act_name,act_ent_type"

	data, err := c.request(ctx, "stock_basic", params, fields)
	if err != nil {
		return nil, err
	}

	return parseStocks(data), nil
}

// StockDetail 获取单只股票的详情字段
func (c *TushareClient) StockDetail(ctx context.Context, stockCode string) (*models.StockDetail, error) {
	params := map[string]interface{}{
		"ts_code": stockCode,
	}
	fields := "ts_code,name,industry,area,total_share,float_share,market,list_status"

	data, err := c.request(ctx, "stock_basic", params, fields)
	if err != nil {
		return nil, err
	}

	details := parseStockDetails(data)
	if len(details) == 0 {
		return nil, nil
	}
	return &details[0], nil
}

// CompanyBasic 分页获取公司基本信息，offset/limit 由调用方翻页直到短页
func (c *TushareClient) CompanyBasic(ctx context.Context, offset, limit int) ([]models.CompanyProfile, error) {
	params := map[string]interface{}{
		"offset": offset,
		"limit":  limit,
	}

	data, err := c.request(ctx, "stock_company", params, "")
	if err != nil {
		return nil, err
	}

	return parseCompanies(data), nil
}

// TradeDates 获取交易日历，包含休市日
func (c *TushareClient) TradeDates(ctx context.Context, startDate, endDate string) ([]models.CalendarDay, error) {
	params := map[string]interface{}{
		"exchange":   "SSE", // 上交所日历
		"start_date": compactDate(startDate),
		"end_date":   compactDate(endDate),
	}

	data, err := c.request(ctx, "trade_cal", params, "")
	if err != nil {
		return nil, err
	}

	return parseCalendar(data), nil
}

// DailyBars 获取单只股票指定复权类型的日线数据
func (c *TushareClient) DailyBars(ctx context.Context, stockCode, startDate, endDate string, adjustFlag int) ([]models.DailyBar, error) {
	params := map[string]interface{}{
		"ts_code":    stockCode,
		"start_date": compactDate(startDate),
		"end_date":   compactDate(endDate),
		"adjustflag": fmt.Sprintf("%d", adjustFlag),
	}

	data, err := c.request(ctx, "daily", params, "")
	if err != nil {
		return nil, err
	}

	return parseDailyBars(data, stockCode, adjustFlag), nil
}

// RealtimeQuotes 获取一批股票的实时行情快照（最多50只）
func (c *TushareClient) RealtimeQuotes(ctx context.Context, stockCodes []string) ([]models.TickSnapshot, error) {
	params := map[string]interface{}{
		"ts_code": strings.Join(stockCodes, ","),
		"src":     "sina",
	}

	data, err := c.request(ctx, "realtime_quote", params, "")
	if err != nil {
		return nil, err
	}

	return parseTicks(data), nil
}

// compactDate 日期格式转换 YYYY-MM-DD -> YYYYMMDD
func compactDate(date string) string {
	return strings.ReplaceAll(date, "-", "")
}

// isoDate 日期格式转换 YYYYMMDD -> YYYY-MM-DD
func isoDate(date string) string {
	if len(date) == 8 && !strings.Contains(date, "-") {
		return date[:4] + "-" + date[4:6] + "-" + date[6:]
	}
	return date
}
