package provider

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"stock_sync/internal/models"
)

// 实时行情来源标识，随每条快照落库
const tickSource = "tushare_realtime_quote"

// fieldIndex 构建字段名到列下标的映射
func fieldIndex(data *TushareData) map[string]int {
	fieldMap := make(map[string]int, len(data.Fields))
	for i, field := range data.Fields {
		fieldMap[strings.ToLower(field)] = i
	}
	return fieldMap
}

// parseStocks 解析股票基本信息
func parseStocks(data *TushareData) []models.Stock {
	result := make([]models.Stock, 0, len(data.Items))
	fm := fieldIndex(data)

	for _, item := range data.Items {
		tsCode := getString(item, fm, "ts_code")
		exchange := getString(item, fm, "exchange")
		if tsCode == "" || exchange == "" {
			continue
		}

		stock := models.Stock{
			Exchange:    exchange,
			StockCode:   tsCode,
			StockName:   getString(item, fm, "name"),
			Area:        getStringPtr(item, fm, "area"),
			Industry:    getStringPtr(item, fm, "industry"),
			ListingDate: getDatePtr(item, fm, "list_date"),
			FullName:    getStringPtr(item, fm, "fullname"),
			EnName:      getStringPtr(item, fm, "enname"),
			CnSpell:     getStringPtr(item, fm, "cnspell"),
			Market:      getStringPtr(item, fm, "market"),
			CurrType:    getStringPtr(item, fm, "curr_type"),
			Status:      getString(item, fm, "list_status"),
			DelistDate:  getDatePtr(item, fm, "delist_date"),
			IsHs:        getStringPtr(item, fm, "is_hs"),
			ActName:     getStringPtr(item, fm, "act_name"),
			ActEntType:  getStringPtr(item, fm, "act_ent_type"),
		}
		result = append(result, stock)
	}

	return result
}

// parseStockDetails 解析股票详情字段
func parseStockDetails(data *TushareData) []models.StockDetail {
	result := make([]models.StockDetail, 0, len(data.Items))
	fm := fieldIndex(data)

	for _, item := range data.Items {
		tsCode := getString(item, fm, "ts_code")
		if tsCode == "" {
			continue
		}
		result = append(result, models.StockDetail{
			StockCode:  tsCode,
			StockName:  getString(item, fm, "name"),
			Industry:   getStringPtr(item, fm, "industry"),
			Area:       getStringPtr(item, fm, "area"),
			TotalShare: getFloatPtr(item, fm, "total_share"),
			FloatShare: getFloatPtr(item, fm, "float_share"),
			Market:     getStringPtr(item, fm, "market"),
			Status:     getString(item, fm, "list_status"),
		})
	}

	return result
}

// parseCompanies 解析公司基本信息
func parseCompanies(data *TushareData) []models.CompanyProfile {
	result := make([]models.CompanyProfile, 0, len(data.Items))
	fm := fieldIndex(data)

	for _, item := range data.Items {
		tsCode := getString(item, fm, "ts_code")
		if tsCode == "" {
			continue
		}
		result = append(result, models.CompanyProfile{
			StockCode:     tsCode,
			ComName:       getString(item, fm, "com_name"),
			ComID:         getStringPtr(item, fm, "com_id"),
			Chairman:      getStringPtr(item, fm, "chairman"),
			Manager:       getStringPtr(item, fm, "manager"),
			Secretary:     getStringPtr(item, fm, "secretary"),
			RegCapital:    getFloatPtr(item, fm, "reg_capital"),
			SetupDate:     getDatePtr(item, fm, "setup_date"),
			Province:      getStringPtr(item, fm, "province"),
			City:          getStringPtr(item, fm, "city"),
			Introduction:  getStringPtr(item, fm, "introduction"),
			Website:       getStringPtr(item, fm, "website"),
			Email:         getStringPtr(item, fm, "email"),
			Office:        getStringPtr(item, fm, "office"),
			Employees:     getIntPtr(item, fm, "employees"),
			MainBusiness:  getStringPtr(item, fm, "main_business"),
			BusinessScope: getStringPtr(item, fm, "business_scope"),
		})
	}

	return result
}

// parseCalendar 解析交易日历数据
func parseCalendar(data *TushareData) []models.CalendarDay {
	result := make([]models.CalendarDay, 0, len(data.Items))
	fm := fieldIndex(data)

	for _, item := range data.Items {
		calDate := getString(item, fm, "cal_date")
		if calDate == "" {
			continue
		}
		result = append(result, models.CalendarDay{
			TradeDate:    isoDate(calDate),
			IsTradingDay: int(getFloat(item, fm, "is_open")),
		})
	}

	return result
}

// parseDailyBars 解析日线数据，涨跌额在此处计算
func parseDailyBars(data *TushareData, stockCode string, adjustFlag int) []models.DailyBar {
	result := make([]models.DailyBar, 0, len(data.Items))
	fm := fieldIndex(data)

	for _, item := range data.Items {
		tradeDate := getString(item, fm, "trade_date")
		if tradeDate == "" {
			tradeDate = getString(item, fm, "date")
		}
		if tradeDate == "" {
			continue
		}

		bar := models.DailyBar{
			StockCode:   stockCode,
			TradeDate:   isoDate(tradeDate),
			OpenPrice:   getFloatPtr(item, fm, "open"),
			HighPrice:   getFloatPtr(item, fm, "high"),
			LowPrice:    getFloatPtr(item, fm, "low"),
			ClosePrice:  getFloatPtr(item, fm, "close"),
			PreClose:    getFloatPtr(item, fm, "pre_close"),
			Volume:      getFloatPtr(item, fm, "vol"),
			Amount:      getFloatPtr(item, fm, "amount"),
			AdjustFlag:  adjustFlag,
			Turn:        getFloatPtr(item, fm, "turn"),
			TradeStatus: getIntPtr(item, fm, "trade_status"),
			PctChange:   getFloatPtr(item, fm, "pct_chg"),
			PeTtm:       getFloatPtr(item, fm, "pe_ttm"),
			PsTtm:       getFloatPtr(item, fm, "ps_ttm"),
			PcfNcfTtm:   getFloatPtr(item, fm, "pcf_ncf_ttm"),
			PbMrq:       getFloatPtr(item, fm, "pb_mrq"),
		}

		if isSt := getIntPtr(item, fm, "is_st"); isSt != nil {
			bar.IsSt = *isSt
		}

		// 涨跌额 changeAmount = closePrice - preClose
		if bar.ClosePrice != nil && bar.PreClose != nil {
			change := *bar.ClosePrice - *bar.PreClose
			bar.ChangeAmount = &change
		}

		result = append(result, bar)
	}

	return result
}

// parseTicks 解析实时行情快照，保留原始载荷
func parseTicks(data *TushareData) []models.TickSnapshot {
	result := make([]models.TickSnapshot, 0, len(data.Items))
	fm := fieldIndex(data)

	for _, item := range data.Items {
		tsCode := getString(item, fm, "ts_code")
		if tsCode == "" {
			continue
		}

		tick := models.TickSnapshot{
			StockCode: tsCode,
			Name:      getString(item, fm, "name"),
			Trade:     getFloatPtr(item, fm, "trade"),
			Price:     getFloatPtr(item, fm, "price"),
			Open:      getFloatPtr(item, fm, "open"),
			High:      getFloatPtr(item, fm, "high"),
			Low:       getFloatPtr(item, fm, "low"),
			PreClose:  getFloatPtr(item, fm, "pre_close"),
			Bid:       getFloatPtr(item, fm, "bid"),
			Ask:       getFloatPtr(item, fm, "ask"),
			Volume:    getFloatPtr(item, fm, "volume"),
			Amount:    getFloatPtr(item, fm, "amount"),
			Date:      isoDate(getString(item, fm, "date")),
			Time:      getString(item, fm, "time"),
			Source:    tickSource,
		}

		if tick.Name == "" {
			tick.Name = tsCode
		}
		// 载荷缺失时间戳时用采集时刻兜底
		now := time.Now()
		if tick.Date == "" {
			tick.Date = now.Format("2006-01-02")
		}
		if tick.Time == "" {
			tick.Time = now.Format("15:04:05")
		}

		// 五档行情
		for i := 0; i < 5; i++ {
			n := strconv.Itoa(i + 1)
			tick.Bids[i] = models.OrderLevel{
				Volume: getFloatPtr(item, fm, "b"+n+"_v"),
				Price:  getFloatPtr(item, fm, "b"+n+"_p"),
			}
			tick.Asks[i] = models.OrderLevel{
				Volume: getFloatPtr(item, fm, "a"+n+"_v"),
				Price:  getFloatPtr(item, fm, "a"+n+"_p"),
			}
		}

		// 保留原始一行数据
		raw := make(map[string]interface{}, len(data.Fields))
		for i, field := range data.Fields {
			if i < len(item) {
				raw[field] = item[i]
			}
		}
		if rawJSON, err := json.Marshal(raw); err == nil {
			tick.Raw = string(rawJSON)
		}

		result = append(result, tick)
	}

	return result
}

// 辅助函数：列式数据的空值容错取值

func getString(item []interface{}, fm map[string]int, field string) string {
	index, ok := fm[field]
	if !ok || index < 0 || index >= len(item) || item[index] == nil {
		return ""
	}
	if str, ok := item[index].(string); ok {
		return strings.TrimSpace(str)
	}
	return ""
}

func getStringPtr(item []interface{}, fm map[string]int, field string) *string {
	str := getString(item, fm, field)
	if str == "" || str == "--" || str == "-" {
		return nil
	}
	return &str
}

// getDatePtr 取日期字段并统一为 YYYY-MM-DD
func getDatePtr(item []interface{}, fm map[string]int, field string) *string {
	str := getString(item, fm, field)
	if len(str) != 8 && len(str) != 10 {
		return nil
	}
	date := isoDate(str)
	return &date
}

func getFloat(item []interface{}, fm map[string]int, field string) float64 {
	if v := getFloatPtr(item, fm, field); v != nil {
		return *v
	}
	return 0
}

func getFloatPtr(item []interface{}, fm map[string]int, field string) *float64 {
	index, ok := fm[field]
	if !ok || index < 0 || index >= len(item) || item[index] == nil {
		return nil
	}
	switch v := item[index].(type) {
	case float64:
		return &v
	case int:
		f := float64(v)
		return &f
	case string:
		cleaned := strings.TrimSpace(strings.ReplaceAll(v, ",", ""))
		if cleaned == "" || cleaned == "--" || cleaned == "-" {
			return nil
		}
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return &f
		}
		return nil
	default:
		return nil
	}
}

func getIntPtr(item []interface{}, fm map[string]int, field string) *int {
	if f := getFloatPtr(item, fm, field); f != nil {
		n := int(*f)
		return &n
	}
	return nil
}
