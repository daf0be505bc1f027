package models

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

// NeedsRecord is the latest requirement statement of one customer.
type NeedsRecord struct {
	CustomerID        string    `json:"customerId"`
	Industry          string    `json:"industry"`
	Location          string    `json:"location"`
	Budget            Budget    `json:"budget"`
	OtherRequirements string    `json:"otherRequirements"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// IsEmpty reports whether no field carries any usable preference.
func (n NeedsRecord) IsEmpty() bool {
	return strings.TrimSpace(n.Industry) == "" &&
		strings.TrimSpace(n.Location) == "" &&
		!n.Budget.Known() &&
		strings.TrimSpace(n.OtherRequirements) == ""
}

// Budget keeps the customer's original budget text together with the range
// parsed from it. Max is +Inf for open-ended budgets such as "5000以上".
type Budget struct {
	Raw string
	Min float64
	Max float64
	ok  bool
}

func (b Budget) Known() bool {
	return b.ok
}

func (b Budget) String() string {
	return b.Raw
}

func (b Budget) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.Raw)
}

// UnmarshalJSON accepts either a JSON number or a string.
func (b *Budget) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = Budget{}
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*b = ParseBudget(n.String())
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*b = ParseBudget(s)
	return nil
}

var (
	budgetNumber  = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(万)?`)
	budgetCleaner = strings.NewReplacer(",", "", "，", "", "¥", "", "￥", "", "円", "", "$", "", " ", "")
)

// ParseBudget extracts a price range from free text: "5000", "¥10,000",
// "5000-10000", "〜8000", "3万円以上". Unparseable text yields an unknown budget.
func ParseBudget(raw string) Budget {
	b := Budget{Raw: raw}

	s := budgetCleaner.Replace(width.Narrow.String(strings.TrimSpace(raw)))
	if s == "" {
		return b
	}

	matches := budgetNumber.FindAllStringSubmatch(s, 2)
	values := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if m[2] != "" {
			v *= 10000
		}
		values = append(values, v)
	}

	switch len(values) {
	case 0:
		return b
	case 2:
		b.Min, b.Max = math.Min(values[0], values[1]), math.Max(values[0], values[1])
	default:
		v := values[0]
		switch {
		case strings.HasPrefix(s, "~") || strings.HasPrefix(s, "〜") || strings.Contains(s, "以下") || strings.Contains(s, "まで"):
			b.Min, b.Max = 0, v
		case strings.Contains(s, "以上") || strings.HasSuffix(s, "~") || strings.HasSuffix(s, "〜"):
			b.Min, b.Max = v, math.Inf(1)
		default:
			b.Min, b.Max = v, v
		}
	}
	b.ok = true
	return b
}
