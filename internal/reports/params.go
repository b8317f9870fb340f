package reports

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/freshmart/freshmart-pos/internal/platform/httpx"
)

const maxParamBytes = 1 << 16

// params is a flattened view of JSON bodies, forms and query strings.
type params url.Values

// readParams flattens the request input. JSON numbers and booleans become
// strings and arrays become repeated values.
func readParams(r *http.Request) (params, error) {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return params(r.URL.Query()), nil
	}
	if !httpx.IsJSONRequest(r) {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		return params(r.Form), nil
	}
	var body map[string]any
	if err := json.NewDecoder(io.LimitReader(r.Body, maxParamBytes)).Decode(&body); err != nil && err != io.EOF {
		return nil, err
	}
	out := params(r.URL.Query())
	for k, v := range body {
		switch x := v.(type) {
		case []any:
			for _, item := range x {
				if s, ok := scalar(item); ok {
					out[k] = append(out[k], s)
				}
			}
		default:
			if s, ok := scalar(x); ok {
				out[k] = append(out[k], s)
			}
		}
	}
	return out, nil
}

func scalar(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	}
	return "", false
}

// get returns the first non-empty value among keys.
func (p params) get(keys ...string) string {
	for _, k := range keys {
		for _, v := range p[k] {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// ids collects positive integers from repeated or comma separated values.
func (p params) ids(keys ...string) []int64 {
	var out []int64
	for _, k := range keys {
		for _, v := range p[k] {
			for _, part := range strings.Split(v, ",") {
				if id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64); err == nil && id > 0 {
					out = append(out, id)
				}
			}
		}
	}
	return out
}

// id parses a single ID; "all" or empty mean no filter.
func (p params) id(keys ...string) *int64 {
	v := p.get(keys...)
	if v == "" || strings.EqualFold(v, "all") {
		return nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

func (p params) count(keys ...string) *int {
	n, err := strconv.Atoi(p.get(keys...))
	if err != nil {
		return nil
	}
	return &n
}

func (p params) amount(keys ...string) *decimal.Decimal {
	d, err := decimal.NewFromString(p.get(keys...))
	if err != nil {
		return nil
	}
	return &d
}

func (p params) flag(keys ...string) bool {
	switch strings.ToLower(p.get(keys...)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func (p params) salesQuery() SalesQuery {
	q := SalesQuery{
		From:         DateOr(p.get("date_from", "from", "dateFrom"), DefaultFrom),
		To:           DateOr(p.get("date_to", "to", "dateTo"), DefaultTo),
		GroupBy:      ParseGroupBy(strings.ToLower(p.get("group_by", "groupBy"))),
		DepartmentID: p.id("department", "department_id"),
		EmployeeID:   p.id("employee", "employee_id"),
	}
	if n := p.count("min_units", "minUnits"); n != nil && *n > 0 {
		q.MinUnits = *n
	}
	return q
}

func (p params) productFilter() ProductFilter {
	return ProductFilter{
		DepartmentIDs: p.ids("department", "department[]"),
		Name:          p.get("product_name", "name"),
		StockStatus:   strings.ToLower(p.get("stock_status")),
		OnSaleOnly:    p.flag("on_sale"),
		MinPrice:      p.amount("min_price", "price_min"),
		MaxPrice:      p.amount("max_price", "price_max"),
		MinQty:        p.count("qty_min", "min_qty"),
		MaxQty:        p.count("qty_max", "max_qty"),
		RestockFrom:   datePtr(p.get("restock_from")),
		RestockTo:     datePtr(p.get("restock_to")),
		SortColumn:    p.get("sort_column"),
		SortDirection: p.get("sort_direction"),
	}
}

func (p params) employeeFilter() EmployeeFilter {
	return EmployeeFilter{
		DepartmentIDs: p.ids("department", "department[]"),
		Name:          p.get("name"),
		JobTitle:      p.get("job_title"),
		HireFrom:      datePtr(p.get("hire_from", "hire_date_from")),
		HireTo:        datePtr(p.get("hire_to", "hire_date_to")),
		MinRevenue:    p.amount("min_revenue", "revenue_min"),
		MaxRevenue:    p.amount("max_revenue", "revenue_max"),
		Sort:          p.get("sort", "sort_column"),
		Order:         p.get("order", "sort_order"),
	}
}

func (p params) customerFilter() CustomerFilter {
	return CustomerFilter{
		Name:         p.get("name", "customer_name"),
		Email:        p.get("email"),
		From:         datePtr(p.get("from", "date_from")),
		To:           datePtr(p.get("to", "date_to")),
		MinSpent:     p.amount("total_spent_min", "min_spent"),
		MaxSpent:     p.amount("total_spent_max", "max_spent"),
		MinPurchases: p.count("total_purchases_min", "min_purchases"),
		MaxPurchases: p.count("total_purchases_max", "max_purchases"),
		Sort:         p.get("sort", "sort_column"),
		Order:        p.get("order", "sort_direction"),
	}
}
