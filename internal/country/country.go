// Package country holds the static storefront locale table.
package country

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Code identifies a storefront locale by ISO alpha-2 code.
type Code string

// Info carries the constants derived from a Code.
type Info struct {
	Code           Code
	Name           string
	ID             int
	BaseURL        string
	Currency       string
	AcceptLanguage string
}

const storefrontURL = "https://www.emiliopucci.com"

var table = map[Code]Info{
	"US": {Code: "US", Name: "United States", ID: 216, BaseURL: storefrontURL, Currency: "USD", AcceptLanguage: "en-US,en;q=0.9"},
	"GB": {Code: "GB", Name: "United Kingdom", ID: 215, BaseURL: storefrontURL, Currency: "GBP", AcceptLanguage: "en-GB,en;q=0.9"},
	"IT": {Code: "IT", Name: "Italy", ID: 104, BaseURL: storefrontURL, Currency: "EUR", AcceptLanguage: "it-IT,it;q=0.9"},
	"FR": {Code: "FR", Name: "France", ID: 74, BaseURL: storefrontURL, Currency: "EUR", AcceptLanguage: "fr-FR,fr;q=0.9"},
	"DE": {Code: "DE", Name: "Germany", ID: 80, BaseURL: storefrontURL, Currency: "EUR", AcceptLanguage: "de-DE,de;q=0.9"},
	"ES": {Code: "ES", Name: "Spain", ID: 195, BaseURL: storefrontURL, Currency: "EUR", AcceptLanguage: "es-ES,es;q=0.9"},
	"NL": {Code: "NL", Name: "Netherlands", ID: 150, BaseURL: storefrontURL, Currency: "EUR", AcceptLanguage: "nl-NL,nl;q=0.9"},
	"CH": {Code: "CH", Name: "Switzerland", ID: 203, BaseURL: storefrontURL, Currency: "CHF", AcceptLanguage: "de-CH,de;q=0.9"},
	"JP": {Code: "JP", Name: "Japan", ID: 107, BaseURL: storefrontURL, Currency: "JPY", AcceptLanguage: "ja-JP,ja;q=0.9"},
	"CA": {Code: "CA", Name: "Canada", ID: 37, BaseURL: storefrontURL, Currency: "CAD", AcceptLanguage: "en-CA,en;q=0.9"},
	"AU": {Code: "AU", Name: "Australia", ID: 13, BaseURL: storefrontURL, Currency: "AUD", AcceptLanguage: "en-AU,en;q=0.9"},
}

// Lookup returns the table entry for code.
func Lookup(code Code) (Info, error) {
	info, ok := table[Code(strings.ToUpper(string(code)))]
	if !ok {
		return Info{}, fmt.Errorf("unknown country %q", string(code))
	}
	return info, nil
}

// Codes lists every known code in sorted order.
func Codes() []Code {
	codes := make([]Code, 0, len(table))
	for c := range table {
		codes = append(codes, c)
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}

// UnmarshalJSON normalises the code and rejects unknown countries.
func (c *Code) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode country: %w", err)
	}
	info, err := Lookup(Code(raw))
	if err != nil {
		return err
	}
	*c = info.Code
	return nil
}
