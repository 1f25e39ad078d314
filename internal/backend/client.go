package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"stock_sync/internal/config"
	"stock_sync/internal/models"
)

// Client 后端持久化 API 客户端
// REST JSON 接口，Bearer Token 认证，响应统一为 {code, message, data}，code==200 表示成功
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// Response 后端统一响应结构
type Response struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// NewClient 创建后端客户端
func NewClient(cfg *config.BackendConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL(),
		token:   cfg.Token,
		client: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

// SetBaseURL 覆盖后端根地址，用于对接测试服务器
func (c *Client) SetBaseURL(url string) {
	c.baseURL = url
}

// do 执行请求并解包统一响应
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("序列化请求失败: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reqBody)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("请求失败: HTTP %d", httpResp.StatusCode)
	}

	var resp Response
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	if resp.Code != http.StatusOK {
		return nil, fmt.Errorf("后端返回错误: %s", resp.Message)
	}

	return resp.Data, nil
}

// LatestDailyDate 查询日线数据最新日期
// stockCode/adjustFlag 为空时查询全表；无数据返回 ""（nil 游标）
func (c *Client) LatestDailyDate(ctx context.Context, stockCode string, adjustFlag int) (string, error) {
	query := url.Values{}
	if stockCode != "" {
		query.Set("stockCode", stockCode)
	}
	if adjustFlag > 0 {
		query.Set("adjustFlag", fmt.Sprintf("%d", adjustFlag))
	}

	data, err := c.do(ctx, http.MethodGet, "/stock-daily/latest-date", query, nil)
	if err != nil {
		return "", err
	}

	return parseNullableDate(data), nil
}

// AllStocks 获取所有股票基本信息
func (c *Client) AllStocks(ctx context.Context) ([]models.Stock, error) {
	data, err := c.do(ctx, http.MethodGet, "/stocks/all", nil, nil)
	if err != nil {
		return nil, err
	}

	// data 可能直接是列表，也可能是 {records: [...]} 包装
	var stocks []models.Stock
	if err := json.Unmarshal(data, &stocks); err == nil {
		return stocks, nil
	}

	var wrapped struct {
		Records []models.Stock `json:"records"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("解析股票列表失败: %w", err)
	}
	return wrapped.Records, nil
}

// QueryStocks 按交易所查询已存在的股票
func (c *Client) QueryStocks(ctx context.Context, exchanges []string) ([]models.Stock, error) {
	body := map[string]interface{}{
		"exchanges": exchanges,
	}

	data, err := c.do(ctx, http.MethodPost, "/stocks/query", nil, body)
	if err != nil {
		return nil, err
	}

	var stocks []models.Stock
	if err := json.Unmarshal(data, &stocks); err != nil {
		return nil, fmt.Errorf("解析股票列表失败: %w", err)
	}
	return stocks, nil
}

// BatchInsertStocks 批量插入股票
func (c *Client) BatchInsertStocks(ctx context.Context, stocks []models.Stock) error {
	_, err := c.do(ctx, http.MethodPost, "/stocks/batch", nil, stocks)
	return err
}

// UpdateStock 更新单只股票的详情字段
func (c *Client) UpdateStock(ctx context.Context, stockCode string, fields map[string]interface{}) error {
	_, err := c.do(ctx, http.MethodPut, "/stocks/"+url.PathEscape(stockCode), nil, fields)
	return err
}

// BatchUpsertCompanies 批量写入公司基本信息（按 stockCode 幂等）
func (c *Client) BatchUpsertCompanies(ctx context.Context, companies []models.CompanyProfile) error {
	_, err := c.do(ctx, http.MethodPost, "/companies/batch", nil, companies)
	return err
}

// CalendarYear 获取指定年份的交易日历
func (c *Client) CalendarYear(ctx context.Context, year int) ([]models.CalendarDay, error) {
	data, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/trading-calendar/year/%d", year), nil, nil)
	if err != nil {
		return nil, err
	}

	var days []models.CalendarDay
	if err := json.Unmarshal(data, &days); err != nil {
		return nil, fmt.Errorf("解析交易日历失败: %w", err)
	}
	return days, nil
}

// LatestCalendarDate 查询数据库中最新的日历日期，无数据返回 ""
func (c *Client) LatestCalendarDate(ctx context.Context) (string, error) {
	data, err := c.do(ctx, http.MethodGet, "/trading-calendar/latest", nil, nil)
	if err != nil {
		return "", err
	}

	var latest struct {
		TradeDate string `json:"tradeDate"`
	}
	if len(data) == 0 || string(data) == "null" {
		return "", nil
	}
	if err := json.Unmarshal(data, &latest); err != nil {
		return "", fmt.Errorf("解析最新日历日期失败: %w", err)
	}
	return latest.TradeDate, nil
}

// IsTradingDay 检查指定日期是否为交易日
func (c *Client) IsTradingDay(ctx context.Context, date string) (bool, error) {
	query := url.Values{}
	query.Set("date", date)

	data, err := c.do(ctx, http.MethodGet, "/trading-calendar/is-trading-day", query, nil)
	if err != nil {
		return false, err
	}

	var result struct {
		IsTradingDay bool `json:"isTradingDay"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return false, fmt.Errorf("解析交易日检查结果失败: %w", err)
	}
	return result.IsTradingDay, nil
}

// BatchSaveCalendar 批量保存交易日历（按日期幂等 upsert）
func (c *Client) BatchSaveCalendar(ctx context.Context, days []models.CalendarDay) error {
	_, err := c.do(ctx, http.MethodPost, "/trading-calendar/batch", nil, days)
	return err
}

// BatchSaveDaily 批量保存日线数据
func (c *Client) BatchSaveDaily(ctx context.Context, bars []models.DailyBar) error {
	_, err := c.do(ctx, http.MethodPost, "/stock-daily/batch", nil, bars)
	return err
}

// parseNullableDate 解析可空的日期响应：null、"" 或 "null" 均视为无游标
func parseNullableDate(data json.RawMessage) string {
	if len(data) == 0 || string(data) == "null" {
		return ""
	}
	var date string
	if err := json.Unmarshal(data, &date); err != nil {
		return ""
	}
	date = strings.TrimSpace(date)
	if strings.EqualFold(date, "null") {
		return ""
	}
	return date
}
