package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Price accepts both JSON numbers and numeric strings ("12.50").
type Price float64

func (p *Price) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*p = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*p = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid price %q: %w", s, err)
		}
		*p = Price(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*p = Price(v)
	return nil
}

// MenuItem is the remote representation of a menu entry.
type MenuItem struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       Price  `json:"price"`
	Category    string `json:"category"`
	Image       string `json:"image,omitempty"`
}

// MenuDocument is the body served by the remote menu endpoint.
type MenuDocument struct {
	Menu []MenuItem `json:"menu"`
}

// MenuItemRecord is the persisted row form of a MenuItem.
type MenuItemRecord struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
	Category    string  `json:"category"`
	Image       string  `json:"image,omitempty"`
}

// ToRecord maps the remote item onto its stored form.
func (m MenuItem) ToRecord() MenuItemRecord {
	return MenuItemRecord{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Price:       float64(m.Price),
		Category:    m.Category,
		Image:       m.Image,
	}
}

func ToRecords(items []MenuItem) []MenuItemRecord {
	records := make([]MenuItemRecord, 0, len(items))
	for _, item := range items {
		records = append(records, item.ToRecord())
	}
	return records
}
