// Package profiler assigns semantic roles to raw column names.
package profiler

import (
	"log/slog"
	"strconv"
	"strings"

	"sales-insight/internal/models"
)

// DerivedRevenueColumn is the column written when revenue is synthesized.
const DerivedRevenueColumn = "revenue"

// Rule binds a role to the keywords that identify it. A column matches when
// its name contains any keyword.
type Rule struct {
	Role     models.Role `yaml:"role" json:"role"`
	Keywords []string    `yaml:"keywords" json:"keywords"`
}

// DefaultRules is evaluated in order; within a rule the first matching
// column in table order wins.
var DefaultRules = []Rule{
	{models.RoleDate, []string{"date", "order_date", "invoice_date", "transaction_date", "posting_date", "period", "month"}},
	{models.RoleRevenue, []string{"revenue", "amount", "sales", "net", "total", "turnover", "gmv", "sale_value"}},
	{models.RoleProduct, []string{"product", "item", "sku", "category", "product_name"}},
	{models.RoleCustomer, []string{"customer", "client", "account", "buyer", "cust", "customer_id", "customername"}},
	{models.RoleRegion, []string{"region", "city", "state", "country", "market", "area", "zone", "location", "outlet"}},
	{models.RoleDiscount, []string{"discount", "promo", "promotion", "disc"}},
	{models.RolePrice, []string{"price", "rate", "mrp", "unit_price"}},
	{models.RoleQuantity, []string{"qty", "quantity", "units", "volume", "qnty"}},
	{models.RoleMargin, []string{"margin", "profit", "gross_margin"}},
	{models.RoleOrderID, []string{"order", "invoice", "trans", "transaction_id", "order_id", "bill_no"}},
}

type Profiler struct {
	rules  []Rule
	logger *slog.Logger
}

// New returns a profiler using rules, or DefaultRules when rules is empty.
func New(rules []Rule, logger *slog.Logger) *Profiler {
	if len(rules) == 0 {
		rules = DefaultRules
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Profiler{rules: rules, logger: logger}
}

// Detect maps roles to columns without touching any data.
func (p *Profiler) Detect(columns []string) models.RoleMap {
	return models.NewRoleMap(p.match(columns), false)
}

// Profile detects roles and, when revenue is absent but quantity and price
// are present, installs a quantity × price column named "revenue" into t.
// Once that column exists it is matched like any other, so calling Profile
// again never derives it twice.
func (p *Profiler) Profile(t *models.Table) models.RoleMap {
	cols := p.match(t.Columns)

	derived := false
	if cols[models.RoleRevenue] == "" && cols[models.RoleQuantity] != "" && cols[models.RolePrice] != "" {
		qty, price := cols[models.RoleQuantity], cols[models.RolePrice]
		added := t.AddColumn(DerivedRevenueColumn, func(r models.Row) string {
			v := models.Number(r[qty]) * models.Number(r[price])
			return strconv.FormatFloat(v, 'f', -1, 64)
		})
		cols[models.RoleRevenue] = DerivedRevenueColumn
		derived = added
	}

	roles := models.NewRoleMap(cols, derived)
	p.logger.Debug("columns profiled",
		"columns", len(t.Columns),
		"derived_revenue", derived,
		"missing", roles.Missing(models.Roles...),
	)
	return roles
}

func (p *Profiler) match(columns []string) map[models.Role]string {
	out := make(map[models.Role]string, len(p.rules))
	for _, rule := range p.rules {
		out[rule.Role] = pick(columns, rule.Keywords)
	}
	return out
}

func pick(columns, keywords []string) string {
	for _, c := range columns {
		name := strings.ToLower(strings.TrimSpace(c))
		for _, k := range keywords {
			if strings.Contains(name, k) {
				return c
			}
		}
	}
	return ""
}
