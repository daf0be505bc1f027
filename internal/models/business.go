package models

import (
	"fmt"
	"sort"
	"strings"
)

// BusinessProfile is one entry of the service catalog.
type BusinessProfile struct {
	ID           string                 `json:"id"`
	CompanyName  string                 `json:"companyName"`
	Category     string                 `json:"category,omitempty"`
	Services     map[string]interface{} `json:"services"`
	ServiceAreas []string               `json:"serviceAreas"`
	PriceMin     float64                `json:"priceMin,omitempty"`
	PriceMax     float64                `json:"priceMax,omitempty"`
	Rating       float64                `json:"rating"`
	ReviewCount  int                    `json:"reviewCount"`
}

// ServiceKeywords flattens the services map into searchable text fragments:
// every key plus every string description, in key order.
func (b BusinessProfile) ServiceKeywords() []string {
	keys := make([]string, 0, len(b.Services))
	for k := range b.Services {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys)*2+1)
	for _, k := range keys {
		if !serviceEnabled(b.Services[k]) {
			continue
		}
		out = append(out, k)
		switch v := b.Services[k].(type) {
		case string:
			if v != "" {
				out = append(out, v)
			}
		case []interface{}:
			for _, item := range v {
				out = append(out, fmt.Sprint(item))
			}
		}
	}
	if b.Category != "" {
		out = append(out, b.Category)
	}
	return out
}

// HasServices reports whether at least one service is offered.
func (b BusinessProfile) HasServices() bool {
	for _, v := range b.Services {
		if serviceEnabled(v) {
			return true
		}
	}
	return false
}

func (b BusinessProfile) HasPriceRange() bool {
	return b.PriceMin > 0 || b.PriceMax > 0
}

func serviceEnabled(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return strings.TrimSpace(t) != "false"
	default:
		return true
	}
}
