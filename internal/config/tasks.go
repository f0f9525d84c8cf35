package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"example.com/restock/internal/country"
)

// Document is the task file: one entry per product to watch and buy.
type Document struct {
	Tasks []Task `json:"tasks"`
}

// Task binds one product to the profiles that should purchase it.
type Task struct {
	Product  string    `json:"product"`
	Profiles []Profile `json:"profiles"`
}

// Profile is one buyer identity.
type Profile struct {
	Email    string  `json:"email"`
	Phone    string  `json:"phone"`
	Card     Card    `json:"card"`
	Delivery Address `json:"delivery"`
	Billing  Address `json:"billing"`
}

type Card struct {
	Number      string `json:"number"`
	ExpiryMonth int64  `json:"expiryMonth"`
	ExpiryYear  int64  `json:"expiryYear"`
	CVV         string `json:"cvv"`
}

// Address is a postal address. Address2 and State are optional.
type Address struct {
	FirstName string       `json:"firstName"`
	LastName  string       `json:"lastName"`
	Address1  string       `json:"address1"`
	Address2  *string      `json:"address2,omitempty"`
	Zip       string       `json:"zip"`
	City      string       `json:"city"`
	Country   country.Code `json:"country"`
	State     *string      `json:"state,omitempty"`
}

// Countries returns the distinct delivery countries of the task in first-seen order.
func (t Task) Countries() []country.Code {
	seen := make(map[country.Code]struct{}, len(t.Profiles))
	var out []country.Code
	for _, p := range t.Profiles {
		if _, ok := seen[p.Delivery.Country]; ok {
			continue
		}
		seen[p.Delivery.Country] = struct{}{}
		out = append(out, p.Delivery.Country)
	}
	return out
}

// LoadTasks reads and validates the task document at path.
func LoadTasks(path string) ([]Task, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read task document: %w", err)
	}
	return ParseTasks(bytes.NewReader(raw))
}

// ParseTasks decodes a task document. Unknown fields are rejected.
func ParseTasks(r io.Reader) ([]Task, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode task document: %w", err)
	}
	if len(doc.Tasks) == 0 {
		return nil, fmt.Errorf("task document has no tasks")
	}
	for i, task := range doc.Tasks {
		if err := task.validate(); err != nil {
			return nil, fmt.Errorf("task %d: %w", i, err)
		}
	}
	return doc.Tasks, nil
}

func (t Task) validate() error {
	if strings.TrimSpace(t.Product) == "" {
		return fmt.Errorf("product is required")
	}
	if len(t.Profiles) == 0 {
		return fmt.Errorf("product %s: at least one profile is required", t.Product)
	}
	for i, p := range t.Profiles {
		if strings.TrimSpace(p.Email) == "" {
			return fmt.Errorf("profile %d: email is required", i)
		}
		if p.Delivery.Country == "" || p.Billing.Country == "" {
			return fmt.Errorf("profile %s: delivery and billing country are required", p.Email)
		}
	}
	return nil
}
