package models

// Stock 股票基本信息（后端 stocks 表记录）
type Stock struct {
	Exchange    string  `json:"exchange"`    // 交易所 SSE/SZSE/BSE
	StockCode   string  `json:"stockCode"`   // 股票代码，格式 000001.SZ，全局唯一键
	StockName   string  `json:"stockName"`   // 股票名称
	Area        *string `json:"area"`        // 地域
	Industry    *string `json:"industry"`    // 行业
	ListingDate *string `json:"listingDate"` // 上市日期 YYYY-MM-DD
	FullName    *string `json:"fullName"`    // 公司全称
	EnName      *string `json:"enName"`      // 英文名称
	CnSpell     *string `json:"cnSpell"`     // 拼音缩写
	Market      *string `json:"market"`      // 市场类型
	CurrType    *string `json:"currType"`    // 交易货币
	Status      string  `json:"status"`      // 上市状态
	DelistDate  *string `json:"delistDate"`  // 退市日期
	IsHs        *string `json:"isHs"`        // 是否沪深港通标的
	ActName     *string `json:"actName"`     // 实控人名称
	ActEntType  *string `json:"actEntType"`  // 实控人企业性质

	TotalShare *float64 `json:"totalShare"` // 总股本（万股）
	FloatShare *float64 `json:"floatShare"` // 流通股本（万股）
}

// StockDetail 股票详情字段（详情刷新任务逐字段比对的子集）
type StockDetail struct {
	StockCode  string   `json:"stockCode"`
	StockName  string   `json:"stockName"`
	Industry   *string  `json:"industry"`
	Area       *string  `json:"area"`
	TotalShare *float64 `json:"totalShare"` // 总股本（万股）
	FloatShare *float64 `json:"floatShare"` // 流通股本（万股）
	Market     *string  `json:"market"`
	Status     string   `json:"status"`
}

// CompanyProfile 公司基本信息（stockCode 关联股票表）
type CompanyProfile struct {
	StockCode     string   `json:"stockCode"`
	ComName       string   `json:"comName"`    // 公司全称
	ComID         *string  `json:"comId"`      // 统一社会信用代码
	Chairman      *string  `json:"chairman"`   // 法人代表
	Manager       *string  `json:"manager"`    // 总经理
	Secretary     *string  `json:"secretary"`
	RegCapital    *float64 `json:"regCapital"` // 注册资本（万元）
	SetupDate     *string  `json:"setupDate"`  // 成立日期
	Province      *string  `json:"province"`
	City          *string  `json:"city"`
	Introduction  *string  `json:"introduction"`
	Website       *string  `json:"website"`
	Email         *string  `json:"email"`
	Office        *string  `json:"office"`
	Employees     *int     `json:"employees"`
	MainBusiness  *string  `json:"mainBusiness"`
	BusinessScope *string  `json:"businessScope"`
}

// CalendarDay 交易日历记录，按日期幂等 upsert
type CalendarDay struct {
	TradeDate    string `json:"tradeDate"`    // 日期 YYYY-MM-DD
	IsTradingDay int    `json:"isTradingDay"` // 是否交易日 0休市 1交易
}

// 复权标识
const (
	AdjustBackward   = 1 // 后复权
	AdjustForward    = 2 // 前复权
	AdjustUnadjusted = 3 // 不复权
)

// AdjustFlags 三种复权类型，日线任务逐一同步
var AdjustFlags = []int{AdjustBackward, AdjustForward, AdjustUnadjusted}

// DailyBar 股票日线数据，复合键 (stockCode, tradeDate, adjustFlag)
type DailyBar struct {
	StockCode    string   `json:"stockCode"`
	TradeDate    string   `json:"tradeDate"` // YYYY-MM-DD
	OpenPrice    *float64 `json:"openPrice"`
	HighPrice    *float64 `json:"highPrice"`
	LowPrice     *float64 `json:"lowPrice"`
	ClosePrice   *float64 `json:"closePrice"`
	PreClose     *float64 `json:"preClose"`
	Volume       *float64 `json:"volume"`
	Amount       *float64 `json:"amount"`
	AdjustFlag   int      `json:"adjustFlag"`
	Turn         *float64 `json:"turn"`         // 换手率
	TradeStatus  *int     `json:"tradeStatus"`  // 1正常 0停牌
	PctChange    *float64 `json:"pctChange"`    // 涨跌幅
	ChangeAmount *float64 `json:"changeAmount"` // 涨跌额 = close - preClose
	PeTtm        *float64 `json:"peTtm"`
	PsTtm        *float64 `json:"psTtm"`
	PcfNcfTtm    *float64 `json:"pcfNcfTtm"`
	PbMrq        *float64 `json:"pbMrq"`
	IsSt         int      `json:"isSt"` // 1是 0否
}

// OrderLevel 五档行情中的一档（量+价）
type OrderLevel struct {
	Volume *float64
	Price  *float64
}

// TickSnapshot 实时行情快照，按股票时间有序，只追加不更新
type TickSnapshot struct {
	StockCode string
	Name      string
	Trade     *float64 // 现价（成交价）
	Price     *float64
	Open      *float64
	High      *float64
	Low       *float64
	PreClose  *float64
	Bid       *float64
	Ask       *float64
	Volume    *float64
	Amount    *float64
	Bids      [5]OrderLevel // 买一至买五
	Asks      [5]OrderLevel // 卖一至卖五
	Date      string        // YYYY-MM-DD
	Time      string        // HH:MM:SS
	Source    string
	Raw       string // 原始 JSON
}
